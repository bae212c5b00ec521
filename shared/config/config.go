package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Diamond Service
	DiamondServiceURL string
	DiamondOwner      string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Session tokens (meta-transactions)
	SessionSecret     string
	SessionTTLMinutes string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       string

	// Policy client (untrusted custom-rule contracts)
	PolicyClientTimeoutSeconds string

	// Frontend URL (websocket origin check)
	FrontendURL string

	// MinIO Configuration (guild symbol storage)
	MinIOServerURL    string
	MinIORootUser     string
	MinIORootPassword string
	MinIOUseSSL       bool
	MinIOBucketName   string
}

var cfg *Config

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	envPaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	envLoaded := false
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			log.Printf("✅ Environment loaded from: %s", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg = &Config{
		// Diamond Service
		DiamondServiceURL: getEnv("DIAMOND_SERVICE_URL", "http://localhost:8000"),
		DiamondOwner:      getEnv("DIAMOND_OWNER", "owner"),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "guildhall"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Session tokens
		SessionSecret:     getEnv("SESSION_SECRET", "your-secret-key-change-this"),
		SessionTTLMinutes: getEnv("SESSION_TTL_MINUTES", "15"),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),

		// Policy client
		PolicyClientTimeoutSeconds: getEnv("POLICY_CLIENT_TIMEOUT_SECONDS", "5"),

		// Frontend URL
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		// MinIO Configuration
		MinIOServerURL:    getEnv("MINIO_SERVER_URL", "http://localhost:9000"),
		MinIORootUser:     getEnv("MINIO_ROOT_USER", "minioadmin"),
		MinIORootPassword: getEnv("MINIO_ROOT_PASSWORD", "minioadmin"),
		MinIOUseSSL:       getEnvAsBool("MINIO_USE_SSL", false),
		MinIOBucketName:   getEnv("MINIO_BUCKET_NAME", "guildhall-symbols"),
	}

	log.Println("✅ Configuration loaded successfully")
}

// GetConfig returns the current configuration
func GetConfig() *Config {
	if cfg == nil {
		LoadConfig()
	}
	return cfg
}

// GetSessionTTLMinutes returns the session token TTL as integer minutes
func (c *Config) GetSessionTTLMinutes() int {
	if value, err := strconv.Atoi(c.SessionTTLMinutes); err == nil {
		return value
	}
	return 15
}

// GetPolicyClientTimeoutSeconds returns the policy client timeout as integer seconds
func (c *Config) GetPolicyClientTimeoutSeconds() int {
	if value, err := strconv.Atoi(c.PolicyClientTimeoutSeconds); err == nil {
		return value
	}
	return 5
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool gets environment variable as boolean with default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
