package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds the service configuration.
type Config struct {
	JWTSecret      string
	DatabaseURL    string
	DatabaseConfig DatabaseConfig
	RedisAddr      string
	CatalogConfig  CollaboratorConfig
	UsersConfig    CollaboratorConfig
	ListenAddr     string
	AppEnv         string
}

// DatabaseConfig holds the database connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// CollaboratorConfig holds the settings for one external service: the
// product catalog or the user-account service.
type CollaboratorConfig struct {
	BaseURL      string
	ServiceToken string
}

// LoadConfig loads variables from .env and the environment.
func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println(".env file not found, relying on environment variables")
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("PGHOST", "localhost"),
		Port:     getEnv("PGPORT", "5432"),
		User:     getEnv("PGUSER", "exchange_user"),
		Password: getEnv("PGPASSWORD", "exchange_pass"),
		Name:     getEnv("PGDATABASE", "exchange"),
		SSLMode:  getEnv("PGSSLMODE", "disable"),
	}

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbConfig.User, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name, dbConfig.SSLMode)

	cfg := &Config{
		JWTSecret:      getEnv("JWT_SECRET", ""),
		DatabaseURL:    dbURL,
		DatabaseConfig: dbConfig,
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		CatalogConfig: CollaboratorConfig{
			BaseURL:      getEnv("CATALOG_BASE_URL", "http://localhost:8081"),
			ServiceToken: getEnv("CATALOG_SERVICE_TOKEN", ""),
		},
		UsersConfig: CollaboratorConfig{
			BaseURL:      getEnv("USERS_BASE_URL", "http://localhost:8082"),
			ServiceToken: getEnv("USERS_SERVICE_TOKEN", ""),
		},
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		AppEnv:     getEnv("APP_ENV", "production"),
	}

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	return cfg
}

// getEnv returns the environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
