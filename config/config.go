package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port string

	DBDriver   string // postgres, mysql, sqlite
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBPath     string // sqlite file

	JWTKey    string
	SaltRound int

	PaymentApiURL        string
	PaymentSecretKey     string
	PaymentWebhookSecret string
	WebhookTolerance     time.Duration
	CheckoutSuccessURL   string
	CheckoutCancelURL    string

	SendGridApiKey  string
	EmailSender     string
	EmailSenderName string

	CommitRetryAttempts   int
	SeedRetryAttempts     int
	ProgressSweepSchedule string
	PendingPaymentTTL     time.Duration
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	AppConfig = &Config{
		Port: getEnv("PORT", "3000"),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "academy"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBPath:     getEnv("DB_PATH", "academy.db"),

		JWTKey:    getEnv("JWT_SECRET_KEY", ""),
		SaltRound: getEnvInt("SALT_ROUND", 10),

		PaymentApiURL:        getEnv("PAYMENT_API_URL", "https://api.payments.example.com/v1"),
		PaymentSecretKey:     getEnv("PAYMENT_SECRET_KEY", ""),
		PaymentWebhookSecret: getEnv("PAYMENT_WEBHOOK_SECRET", ""),
		WebhookTolerance:     getEnvDuration("WEBHOOK_TOLERANCE", 5*time.Minute),
		CheckoutSuccessURL:   getEnv("CHECKOUT_SUCCESS_URL", "http://localhost:3000/academy/checkout/success?session_id={CHECKOUT_SESSION_ID}"),
		CheckoutCancelURL:    getEnv("CHECKOUT_CANCEL_URL", "http://localhost:3000/academy"),

		SendGridApiKey:  getEnv("SENDGRID_API_KEY", ""),
		EmailSender:     getEnv("EMAIL_SENDER", "no-reply@academy.local"),
		EmailSenderName: getEnv("EMAIL_SENDER_NAME", "AI First Academy"),

		CommitRetryAttempts:   getEnvInt("COMMIT_RETRY_ATTEMPTS", 3),
		SeedRetryAttempts:     getEnvInt("SEED_RETRY_ATTEMPTS", 3),
		ProgressSweepSchedule: getEnv("PROGRESS_SWEEP_SCHEDULE", "*/15 * * * *"),
		PendingPaymentTTL:     getEnvDuration("PENDING_PAYMENT_TTL", 24*time.Hour),
	}

	// Validate critical configuration
	if AppConfig.JWTKey == "" {
		log.Println("Warning: JWT_SECRET_KEY not set. Logins will fail and every token will be rejected.")
	}
	if AppConfig.PaymentWebhookSecret == "" {
		log.Println("Warning: PAYMENT_WEBHOOK_SECRET not set. Every payment webhook will be rejected.")
	}
	if AppConfig.PaymentSecretKey == "" {
		log.Println("Warning: PAYMENT_SECRET_KEY not set. Checkout sessions cannot be created or verified.")
	}
	if AppConfig.SendGridApiKey == "" {
		log.Println("Warning: SENDGRID_API_KEY not set. Emails will only be logged.")
	}

	return AppConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}

// getEnvDuration parses values like "5m" or "24h"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to duration: %v", key, err)
		return defaultValue
	}
	return d
}
