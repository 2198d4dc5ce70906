package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Bootstraps the first admin account on a fresh database
func main() {
	fmt.Println("========================================")
	fmt.Println("   Create Admin Account")
	fmt.Println("========================================")
	fmt.Println()

	var username, password, name, email, company string
	fmt.Print("Username: ")
	fmt.Scanln(&username)
	fmt.Print("Password: ")
	fmt.Scanln(&password)
	fmt.Print("Full name: ")
	fmt.Scanln(&name)
	fmt.Print("Email: ")
	fmt.Scanln(&email)
	fmt.Print("Company: ")
	fmt.Scanln(&company)

	if username == "" || len(password) < 8 {
		log.Fatal("Username is required and password must be at least 8 characters")
	}

	// Load environment variables
	godotenv.Load()

	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbUser := getEnv("DB_USER", "postgres")
	dbPassword := getEnv("DB_PASSWORD", "postgres")
	dbName := getEnv("DB_NAME", "valve_test_suite")

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		dbUser, dbPassword, dbHost, dbPort, dbName)

	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer pool.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	var id int
	err = pool.QueryRow(context.Background(),
		`INSERT INTO users(username, password_hash, name, email, role, company, is_active)
		 VALUES($1, $2, $3, $4, 'admin', $5, TRUE)
		 RETURNING id`,
		username, string(hash), name, email, company,
	).Scan(&id)
	if err != nil {
		log.Fatalf("Failed to create admin: %v", err)
	}

	fmt.Println()
	fmt.Printf("✓ Admin account '%s' created (id %d)\n", username, id)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
