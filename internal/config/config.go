package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	JWTSecret   string
	MongoURI    string
	DBName      string
	SkipAuth    bool
	Environment string
	AppId       string

	// Remote voice-platform client
	PlatformBaseURL string
	CallTimeout     time.Duration // per remote registration call
	ProbeTimeout    time.Duration // per health probe

	// Migration engine
	MigrationWorkers int // bounded concurrency for batch migrations
	MaxAttempts      int // retry budget per migration attempt

	// Panel store (the control panel's relational DB, read-only import source)
	PanelDBDriver string // "postgresql" or "mysql"
	PanelDBDSN    string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "secret"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:      getEnv("DB_NAME", "voicepool"),
		SkipAuth:    getEnv("SKIP_AUTH", "false") == "true",
		Environment: getEnv("ENVIRONMENT", "development"),
		AppId:       getEnv("APP_ID", "voicepool"),

		PlatformBaseURL: getEnv("PLATFORM_BASE_URL", "https://api.voice-platform.example.com"),
		CallTimeout:     getEnvDuration("PLATFORM_CALL_TIMEOUT", 8*time.Second),
		ProbeTimeout:    getEnvDuration("PLATFORM_PROBE_TIMEOUT", 5*time.Second),

		MigrationWorkers: getEnvInt("MIGRATION_WORKERS", 5),
		MaxAttempts:      getEnvInt("MIGRATION_MAX_ATTEMPTS", 3),

		PanelDBDriver: getEnv("PANEL_DB_DRIVER", "postgresql"),
		PanelDBDSN:    getEnv("PANEL_DB_DSN", ""),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
