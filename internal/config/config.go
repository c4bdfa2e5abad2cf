package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort    string
	StorageDriver string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	// DBScopedRole is assumed with SET LOCAL ROLE inside scoped units so
	// row-level security applies even when the pool connects as the owner.
	DBScopedRole  string
	DBApplySchema bool
	RedisURL      string
	JWTSecret     string
	LogLevel      string
	NotifyTimeout time.Duration
	CORSOrigin    string
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		StorageDriver: getEnv("STORAGE_DRIVER", DriverPostgres),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "campusnet"),
		DBPassword:    getEnv("DB_PASSWORD", "campusnet_dev_password"),
		DBName:        getEnv("DB_NAME", "campusnet"),
		DBScopedRole:  getEnv("DB_SCOPED_ROLE", "campusnet_app"),
		DBApplySchema: getBool("DB_APPLY_SCHEMA", false),
		RedisURL:      getEnv("REDIS_URL", ""),
		JWTSecret:     getEnv("JWT_SECRET", "dev-secret-change-me"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		NotifyTimeout: getDuration("NOTIFY_TIMEOUT", 5*time.Second),
		CORSOrigin:    getEnv("CORS_ORIGIN", "http://localhost:5173"),
	}
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}

func getBool(key string, fallback bool) bool {
	val, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	val, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
