/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the ledger-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort            string `mapstructure:"SERVER_PORT"`
	DatabaseURL           string `mapstructure:"DATABASE_URL"`
	RedisURL              string `mapstructure:"REDIS_URL"`
	RedisCachePrefix      string `mapstructure:"REDIS_CACHE_PREFIX"`
	RabbitMQURL           string `mapstructure:"RABBITMQ_URL"`
	StatusEventQueue      string `mapstructure:"STATUS_EVENT_QUEUE"`
	JWTSecret             string `mapstructure:"JWT_SECRET"`
	IdentityServiceURL    string `mapstructure:"IDENTITY_SERVICE_URL"`
	IdentityServiceAPIKey string `mapstructure:"IDENTITY_SERVICE_API_KEY"`
	ReportCacheTTLSeconds int    `mapstructure:"REPORT_CACHE_TTL_SECONDS"`
	ReportMonths          int    `mapstructure:"REPORT_MONTHS"`
	AutoMigrate           bool   `mapstructure:"AUTO_MIGRATE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_CACHE_PREFIX", "ledger:report_cache")
	viper.SetDefault("STATUS_EVENT_QUEUE", "ledger_service.status_updates")
	viper.SetDefault("REPORT_CACHE_TTL_SECONDS", 30)
	viper.SetDefault("REPORT_MONTHS", 12)
	viper.SetDefault("AUTO_MIGRATE", true)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "LEDGER_REDIS_URL")
	_ = viper.BindEnv("REDIS_CACHE_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("STATUS_EVENT_QUEUE")
	_ = viper.BindEnv("JWT_SECRET", "JWT_SECRET", "LEDGER_SERVICE_JWT_SECRET")
	_ = viper.BindEnv("IDENTITY_SERVICE_URL")
	_ = viper.BindEnv("IDENTITY_SERVICE_API_KEY")
	_ = viper.BindEnv("REPORT_CACHE_TTL_SECONDS")
	_ = viper.BindEnv("REPORT_MONTHS")
	_ = viper.BindEnv("AUTO_MIGRATE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	// Platform runtimes inject PORT; it wins over SERVER_PORT when present.
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	if strings.TrimSpace(config.JWTSecret) == "" {
		config.JWTSecret = strings.TrimSpace(os.Getenv("LEDGER_SERVICE_JWT_SECRET"))
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisCachePrefix = strings.TrimSpace(config.RedisCachePrefix)
	if config.RedisCachePrefix == "" {
		config.RedisCachePrefix = "ledger:report_cache"
	}

	if config.ReportCacheTTLSeconds <= 0 {
		config.ReportCacheTTLSeconds = 30
	}
	if config.ReportMonths <= 0 {
		config.ReportMonths = 12
	}

	return
}
