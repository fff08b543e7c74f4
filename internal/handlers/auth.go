package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"

	"github.com/kofiasare/kantamanto/internal/models"
	"github.com/kofiasare/kantamanto/internal/store"
)

const sessionName = "kantamanto-session"

// AuthHandler handles login, logout and session lookups.
type AuthHandler struct {
	Store        *store.Store
	SessionStore *sessions.CookieStore
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies credentials and establishes a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := decodeJSON(r, &creds); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.Store.GetUserByUsername(r.Context(), creds.Username)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if user == nil || !user.IsActive {
		respondError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(creds.Password)); err != nil {
		slog.Warn("Failed login attempt", "username", creds.Username, "ip", r.RemoteAddr)
		respondError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	session, _ := h.SessionStore.Get(r, sessionName)
	session.Values["authenticated"] = true
	session.Values["user_id"] = user.ID
	session.Values["role"] = user.Role
	if err := session.Save(r, w); err != nil {
		slog.Error("Failed to save session", "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	slog.Info("User logged in", "username", user.Username, "user_id", user.ID)
	respondJSON(w, http.StatusOK, map[string]any{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"role":     user.Role,
	})
}

// Logout clears the session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.SessionStore.Get(r, sessionName)
	session.Values = map[interface{}]interface{}{}
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		slog.Error("Failed to clear session", "error", err)
	}
	respondJSON(w, http.StatusOK, map[string]string{"detail": "Logged out"})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUserID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	user, err := h.Store.GetUserByID(r.Context(), userID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if user == nil {
		respondError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"role":     user.Role,
	})
}

// CSRFToken hands the current token to API clients.
func (h *AuthHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"csrf_token": csrf.Token(r)})
}

func (h *AuthHandler) currentUserID(r *http.Request) (int, bool) {
	session, err := h.SessionStore.Get(r, sessionName)
	if err != nil {
		return 0, false
	}
	auth, _ := session.Values["authenticated"].(bool)
	if !auth {
		return 0, false
	}
	userID, ok := session.Values["user_id"].(int)
	return userID, ok
}

func (h *AuthHandler) currentRole(r *http.Request) string {
	session, err := h.SessionStore.Get(r, sessionName)
	if err != nil {
		return ""
	}
	role, _ := session.Values["role"].(string)
	return role
}

// RequireUser rejects unauthenticated requests and passes the user id on.
func (h *AuthHandler) RequireUser(next func(w http.ResponseWriter, r *http.Request, userID int)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := h.currentUserID(r)
		if !ok {
			respondError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next(w, r, userID)
	}
}

// RequireAdmin additionally checks the admin role.
func (h *AuthHandler) RequireAdmin(next func(w http.ResponseWriter, r *http.Request, userID int)) http.HandlerFunc {
	return h.RequireUser(func(w http.ResponseWriter, r *http.Request, userID int) {
		if h.currentRole(r) != models.RoleAdmin {
			respondDomainError(w, models.ErrNotAuthorized)
			return
		}
		next(w, r, userID)
	})
}
