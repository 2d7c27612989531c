package config

import (
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

type Config struct {
	// Host runtime
	HostBaseURL string
	NatsURL     string
	EventsSubject string

	// Title generation
	ModelOverride    string
	ProviderOverride string
	MaxTitleLength   int
	Disabled         bool

	// Prompt override, loaded from the optional YAML config file.
	Prompt *PromptConfig `yaml:"prompt"`

	// Janitor
	StalePendingCutoff time.Duration

	// Admin server
	AdminPort string
	GinMode   string

	// Logging
	LogLevel  string
	LogFormat string
	DebugFile string
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		HostBaseURL:   getEnvOrDefault("HOST_BASE_URL", "http://127.0.0.1:4096"),
		NatsURL:       getEnvOrDefault("NATS_URL", "nats://127.0.0.1:4222"),
		EventsSubject: getEnvOrDefault("EVENTS_SUBJECT", "event.>"),

		ModelOverride:    getEnvOrDefault("TITLER_MODEL", ""),
		ProviderOverride: getEnvOrDefault("TITLER_PROVIDER", ""),
		MaxTitleLength:   getEnvAsInt("TITLER_MAX_LENGTH", 50),
		Disabled:         getEnvOrDefault("TITLER_DISABLED", "false") == "true",

		StalePendingCutoff: getEnvAsDuration("TITLER_STALE_PENDING_CUTOFF", 10*time.Minute),

		AdminPort: getEnvOrDefault("ADMIN_PORT", "9090"),
		GinMode:   getEnvOrDefault("GIN_MODE", "release"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),
		DebugFile: getEnvOrDefault("TITLER_DEBUG_FILE", ""),
	}

	if getEnvOrDefault("TITLER_DEBUG", "false") == "true" {
		cfg.LogLevel = "debug"
	}

	// The config file only carries settings with no sensible env encoding,
	// like the multi-line prompt instruction. Missing file is fine unless
	// the operator pointed at one explicitly.
	configFilePath := os.Getenv("CONFIG_FILE")
	explicit := configFilePath != ""
	if !explicit {
		configFilePath = "config.yaml"
	}

	configFile, err := os.Open(configFilePath)
	if err != nil {
		if explicit {
			log.Fatalf("Failed to open config file: %v", err)
		}
		return cfg
	}
	defer configFile.Close()

	if err := LoadConfigFile(configFile, cfg); err != nil {
		log.Fatalf("Failed to load config file: %v", err)
	}

	return cfg
}

// PromptInstruction returns the operator-supplied instruction, empty when
// the built-in default should be used.
func (c *Config) PromptInstruction() string {
	if c.Prompt == nil {
		return ""
	}
	return c.Prompt.Instruction
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		} else {
			log.Printf("Warning: Failed to parse environment variable %s='%s' as time.Duration, using default %v: %v", key, value, defaultValue, err)
		}
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
