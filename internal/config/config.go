package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	MongoURI    string
	MongoDBName string

	RedisAddr     string
	RedisPassword string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	OrdersMigrationsPath  string
	ReviewsMigrationsPath string
	AddressMigrationsPath string

	CatalogDBPath         string
	CatalogMigrationsPath string

	KafkaBrokers     []string
	OrderEventsTopic string

	JWTSecret string

	StrictStock       bool
	ReconcileInterval time.Duration

	LogLevel       string
	LogDevelopment bool
}

// Load reads an optional .env file and then the process environment.
// The returned note is non-empty when no .env file was found.
func Load(envFiles ...string) (*Config, string, error) {
	note := ""
	if err := godotenv.Load(envFiles...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("failed to load env file: %w", err)
		}
		note = "no .env file found, using process environment"
	}

	cfg := &Config{
		HTTPPort:              getEnv("HTTP_PORT", "8080"),
		MaxRequestBodySize:    1 << 20, // 1MB
		MongoURI:              getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:           getEnv("MONGO_DB_NAME", "cartdb"),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		DBHost:                getEnv("DB_HOST", "localhost"),
		DBUser:                getEnv("DB_USER", "postgres"),
		DBPassword:            getEnv("DB_PASSWORD", "postgres"),
		DBName:                getEnv("DB_NAME", "storefront"),
		OrdersMigrationsPath:  getEnv("ORDERS_MIGRATIONS_PATH", "./internal/orders/repository/migrations"),
		ReviewsMigrationsPath: getEnv("REVIEWS_MIGRATIONS_PATH", "./internal/reviews/repository/migrations"),
		AddressMigrationsPath: getEnv("ADDRESS_MIGRATIONS_PATH", "./internal/address/migrations"),
		CatalogDBPath:         getEnv("CATALOG_DB_PATH", "./catalog.db"),
		CatalogMigrationsPath: getEnv("CATALOG_MIGRATIONS_PATH", "./internal/catalog/repository/migrations"),
		KafkaBrokers:          splitList(getEnv("KAFKA_BROKERS", "")),
		OrderEventsTopic:      getEnv("ORDER_EVENTS_TOPIC", "order-events"),
		JWTSecret:             getEnv("JWT_SECRET", ""),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.DBPort, err = strconv.Atoi(getEnv("DB_PORT", "5432")); err != nil {
		return nil, "", fmt.Errorf("invalid DB_PORT: %w", err)
	}
	if cfg.RequestTimeout, err = time.ParseDuration(getEnv("REQUEST_TIMEOUT", "30s")); err != nil {
		return nil, "", fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}
	if cfg.ShutdownTimeout, err = time.ParseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s")); err != nil {
		return nil, "", fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}
	if cfg.ReconcileInterval, err = time.ParseDuration(getEnv("RECONCILE_INTERVAL", "30s")); err != nil {
		return nil, "", fmt.Errorf("invalid RECONCILE_INTERVAL: %w", err)
	}
	if cfg.StrictStock, err = strconv.ParseBool(getEnv("STRICT_STOCK", "false")); err != nil {
		return nil, "", fmt.Errorf("invalid STRICT_STOCK: %w", err)
	}
	if cfg.LogDevelopment, err = strconv.ParseBool(getEnv("LOG_DEVELOPMENT", "false")); err != nil {
		return nil, "", fmt.Errorf("invalid LOG_DEVELOPMENT: %w", err)
	}
	if cfg.JWTSecret == "" {
		return nil, "", errors.New("JWT_SECRET must be set")
	}

	return cfg, note, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
