package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/kofiasare/kantamanto/internal/models"
	"github.com/kofiasare/kantamanto/internal/store"
)

func main() {
	addUserCmd := flag.NewFlagSet("add-user", flag.ExitOnError)
	username := addUserCmd.String("username", "", "Username for the new user")
	password := addUserCmd.String("password", "", "Password for the new user")
	email := addUserCmd.String("email", "", "Email for the new user")
	role := addUserCmd.String("role", models.RoleCustomer, "Role for the new user (customer or admin)")

	if len(os.Args) < 2 {
		fmt.Println("expected 'add-user' subcommand")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add-user":
		addUserCmd.Parse(os.Args[2:])
		if *username == "" || *password == "" || *email == "" {
			fmt.Println("username, password and email are required")
			addUserCmd.PrintDefaults()
			os.Exit(1)
		}
		if *role != models.RoleCustomer && *role != models.RoleAdmin {
			fmt.Printf("invalid role %q, expected %q or %q\n", *role, models.RoleCustomer, models.RoleAdmin)
			os.Exit(1)
		}
		createUser(*username, *password, *email, *role)
	default:
		fmt.Println("expected 'add-user' subcommand")
		os.Exit(1)
	}
}

func createUser(username, password, email, role string) {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./kantamanto.db"
	}
	migrationsDir := os.Getenv("MIGRATIONS_DIR")
	if migrationsDir == "" {
		migrationsDir = "migrations"
	}

	db, err := store.NewStore(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// Ensure schema exists if running cli before server
	if err := db.Migrate(migrationsDir); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	id, err := db.CreateUser(context.Background(), username, email, role, string(hashedPassword))
	if err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Printf("User '%s' (id %d, role %s) created successfully.\n", username, id, role)
}
