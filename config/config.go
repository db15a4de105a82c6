package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	// ClientSecret authorizes frontend clients to mint an API token.
	// Token issuance is disabled while it is empty.
	ClientSecret string `mapstructure:"CLIENT_SECRET"`

	// Redis configuration.
	RedisAddr           string `mapstructure:"REDIS_ADDR"`
	RedisPassword       string `mapstructure:"REDIS_PASSWORD"`
	RedisConversationDB int    `mapstructure:"REDIS_CONVERSATION_DB"`

	// Booking backend (LibreBooking-compatible REST API).
	BookingAPIURL   string `mapstructure:"BOOKING_API_URL"`
	BookingUsername string `mapstructure:"BOOKING_USERNAME"`
	BookingPassword string `mapstructure:"BOOKING_PASSWORD"`
	// BookingTimezone is the zone the backend stores its local date strings in.
	BookingTimezone string `mapstructure:"BOOKING_TIMEZONE"`

	// Capability layer (OpenAI-compatible chat completions).
	LLMBaseURL    string        `mapstructure:"LLM_BASE_URL"`
	LLMAPIKey     string        `mapstructure:"LLM_API_KEY"`
	LLMModel      string        `mapstructure:"LLM_MODEL"`
	LLMTimeout    time.Duration `mapstructure:"LLM_TIMEOUT"`
	AgentMaxSteps int           `mapstructure:"AGENT_MAX_STEPS"`

	// Conversation state TTL in Redis.
	ConversationTTL time.Duration `mapstructure:"CONVERSATION_TTL"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("CLIENT_SECRET", "")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CONVERSATION_DB", 0)
	viper.SetDefault("BOOKING_API_URL", "http://localhost/Web/Services/index.php")
	viper.SetDefault("BOOKING_USERNAME", "admin")
	viper.SetDefault("BOOKING_PASSWORD", "password")
	viper.SetDefault("BOOKING_TIMEZONE", "Europe/Rome")
	viper.SetDefault("LLM_BASE_URL", "http://localhost:4000")
	viper.SetDefault("LLM_API_KEY", "")
	viper.SetDefault("LLM_MODEL", "gpt-4o-mini")
	viper.SetDefault("LLM_TIMEOUT", 60*time.Second)
	viper.SetDefault("AGENT_MAX_STEPS", 8)
	viper.SetDefault("CONVERSATION_TTL", 30*time.Minute)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
