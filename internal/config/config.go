package config

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port          string `envconfig:"PORT" default:"8080"`
	DBPath        string `envconfig:"DB_PATH" default:"./kantamanto.db"`
	MigrationsDir string `envconfig:"MIGRATIONS_DIR" default:"migrations"`
	UploadDir     string `envconfig:"UPLOAD_DIR" default:"static/uploads"`

	CookieDomain string `envconfig:"COOKIE_DOMAIN" default:""`
	CookieSecure bool   `envconfig:"COOKIE_SECURE" default:"false"`
	SessionKey   string `envconfig:"SESSION_KEY" default:""`
	CSRFKey      string `envconfig:"CSRF_KEY" default:""`

	PaystackSecretKey string        `envconfig:"PAYSTACK_SECRET_KEY" default:""`
	PaystackBaseURL   string        `envconfig:"PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	PaystackCurrency  string        `envconfig:"PAYSTACK_CURRENCY" default:"GHS"`
	PaymentTimeout    time.Duration `envconfig:"PAYMENT_TIMEOUT" default:"15s"`

	PredictorURL      string        `envconfig:"PREDICTOR_URL" default:"http://localhost:8501"`
	PredictorTimeout  time.Duration `envconfig:"PREDICTOR_TIMEOUT" default:"10s"`
	RepricingInterval time.Duration `envconfig:"REPRICING_INTERVAL" default:"24h"`

	// Decoded key material, populated by Load.
	SessionKeyBytes []byte `ignored:"true"`
	CSRFKeyBytes    []byte `ignored:"true"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	cfg.SessionKeyBytes = decodeKey("SESSION_KEY", cfg.SessionKey)
	cfg.CSRFKeyBytes = decodeKey("CSRF_KEY", cfg.CSRFKey)

	if cfg.PaystackSecretKey == "" {
		slog.Warn("PAYSTACK_SECRET_KEY not set. Payment initiation will fail against the live gateway.")
	}

	return &cfg, nil
}

// decodeKey decodes a base64 key from the environment, or generates a
// random one for development. Generated keys change on every restart.
func decodeKey(name, value string) []byte {
	if value == "" {
		slog.Warn("Key not set, generating a random one for development. PLEASE SET IT IN PRODUCTION!", "key", name)
		return generateRandomBytes(32)
	}
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil || len(decoded) < 32 {
		slog.Warn("Key is invalid or too short (min 32 bytes), generating a random one for development.", "key", name)
		return generateRandomBytes(32)
	}
	return decoded
}

func generateRandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing is unrecoverable for key material
		panic("config: cannot read random bytes: " + err.Error())
	}
	return b
}
