package config

import (
	"io"
	"log"
	"os"
	"strconv"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// AIConfig holds the settings for the upstream multimodal completion endpoint.
type AIConfig struct {
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// CORSConfig holds the browser origin allow-list.
// Origins are exact matches; suffixes match any subdomain (".example.com").
type CORSConfig struct {
	Origins        []string `yaml:"origins"`
	OriginSuffixes []string `yaml:"origin_suffixes"`
}

type Config struct {
	Port    string
	GinMode string

	// Database
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxIdleTime int // in minutes
	DBConnMaxLifetime int // in minutes

	// Auth
	ValidatorType     string // "jwk" or "firebase"
	JWTJWKSURL        string
	FirebaseProjectID string
	FirebaseCredJSON  string

	// AI gateway upstream
	AIGatewayAPIKey string
	AI              *AIConfig `yaml:"ai"`

	// Image storage
	ImagesBucket string

	// CORS
	CORS *CORSConfig `yaml:"cors"`
	// Extra origin appended to the fixed allow-list (single deployment-specific entry).
	AllowedOrigin string

	// Server
	ServerShutdownTimeoutSeconds int

	// Logging
	LogLevel  string
	LogFormat string
}

var AppConfig *Config

func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	AppConfig = &Config{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),

		// Database
		DatabaseURL:       getEnvOrDefault("DATABASE_URL", "postgres://localhost/autodiag?sslmode=disable"),
		DBMaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 15),
		DBMaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxIdleTime: getEnvAsInt("DB_CONN_MAX_IDLE_TIME_MINUTES", 1),
		DBConnMaxLifetime: getEnvAsInt("DB_CONN_MAX_LIFETIME_MINUTES", 30),

		// Auth
		ValidatorType:     getEnvOrDefault("VALIDATOR_TYPE", "firebase"),
		JWTJWKSURL:        getEnvOrDefault("JWT_JWKS_URL", ""),
		FirebaseProjectID: getEnvOrDefault("FIREBASE_PROJECT_ID", ""),
		FirebaseCredJSON:  getEnvOrDefault("FIREBASE_CRED_JSON", ""),

		// AI gateway upstream
		AIGatewayAPIKey: getEnvOrDefault("AI_GATEWAY_API_KEY", ""),
		AI: &AIConfig{
			BaseURL:        getEnvOrDefault("AI_GATEWAY_BASE_URL", "https://ai.gateway.lovable.dev/v1"),
			Model:          getEnvOrDefault("AI_MODEL", "google/gemini-2.5-pro"),
			TimeoutSeconds: getEnvAsInt("AI_TIMEOUT_SECONDS", 120),
		},

		// Image storage
		ImagesBucket: getEnvOrDefault("IMAGES_BUCKET", "autodiag-diagnostic-images"),

		// CORS
		AllowedOrigin: getEnvOrDefault("ALLOWED_ORIGIN", ""),

		// Server
		ServerShutdownTimeoutSeconds: getEnvAsInt("SERVER_SHUTDOWN_TIMEOUT_SECONDS", 30),

		// Logging
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "debug"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),
	}

	// Optional config file for settings that are awkward as environment
	// variables (origin lists, upstream model settings).
	configFilePath := getEnvOrDefault("CONFIG_FILE", "config.yaml")
	configFile, err := os.Open(configFilePath)
	if err == nil {
		defer configFile.Close()
		if err := LoadConfigFile(configFile, AppConfig); err != nil {
			log.Fatalf("Failed to load config file %s: %v", configFilePath, err)
		}
		log.Printf("Loaded config file: %v", configFilePath)
	}

	if AppConfig.AIGatewayAPIKey == "" {
		log.Println("Warning: AI gateway API key is missing. Please set AI_GATEWAY_API_KEY environment variable.")
	}

	if AppConfig.ValidatorType == "firebase" && AppConfig.FirebaseProjectID == "" {
		log.Println("Warning: Firebase project ID is missing. Please set FIREBASE_PROJECT_ID environment variable.")
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		} else {
			log.Printf("Warning: Failed to parse environment variable %s='%s' as int, using default %d: %v", key, value, defaultValue, err)
		}
	}
	return defaultValue
}

func LoadConfigFile(reader io.Reader, config *Config) error {
	decoder := yaml.NewDecoder(reader)

	if err := decoder.Decode(config); err != nil {
		return err
	}

	return nil
}
