package config

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server reads from the environment
type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string

	// Optional integrations (empty disables them)
	RedisURL                  string
	RabbitMQURL               string
	FirebaseCredentialsBase64 string
	FirebaseCredentialsFile   string

	// Bootstrap admin created by the seed step; skipped when the password is unset
	SeedAdminEmail    string
	SeedAdminPassword string
	// Demo collector and resident with well-known passwords, off unless SEED_DEMO_USERS=true
	SeedDemoUsers bool

	AnalyticsCacheTTL time.Duration
}

// Load reads .env (if present) and the process environment
func Load() (*Config, error) {
	log.Println("📂 Loading environment variables...")
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := &Config{
		Port:                      getEnv("PORT", "8080"),
		DatabaseURL:               os.Getenv("DATABASE_URL"),
		JWTSecret:                 os.Getenv("APP_JWT_SECRET"),
		RedisURL:                  os.Getenv("REDIS_URL"),
		RabbitMQURL:               os.Getenv("RABBITMQ_URL"),
		FirebaseCredentialsBase64: os.Getenv("FIREBASE_CREDENTIALS_BASE64"),
		FirebaseCredentialsFile:   getEnv("FIREBASE_CREDENTIALS_FILE", "./firebase-service-account.json"),
		SeedAdminEmail:            getEnv("SEED_ADMIN_EMAIL", "admin@wastecollect.local"),
		SeedAdminPassword:         os.Getenv("SEED_ADMIN_PASSWORD"),
		SeedDemoUsers:             os.Getenv("SEED_DEMO_USERS") == "true",
		AnalyticsCacheTTL:         5 * time.Minute,
	}

	if raw := os.Getenv("ANALYTICS_CACHE_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			log.Printf("⚠️  Invalid ANALYTICS_CACHE_TTL %q, using %s", raw, cfg.AnalyticsCacheTTL)
		} else {
			cfg.AnalyticsCacheTTL = ttl
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the required settings
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	if c.JWTSecret == "" {
		return errors.New("APP_JWT_SECRET environment variable is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
