package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	CORSAllowOrigins  string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	// Session tokens.
	JWTSecret     string        `mapstructure:"JWT_SECRET"`
	SessionTTL    time.Duration `mapstructure:"SESSION_TTL"`
	RememberMeTTL time.Duration `mapstructure:"REMEMBER_ME_TTL"`

	// Redis configuration.
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisSessionDB int    `mapstructure:"REDIS_SESSION_DB"`

	// Firebase.
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	FirebaseProjectID       string `mapstructure:"FIREBASE_PROJECT_ID"`
	FirebaseAPIKey          string `mapstructure:"FIREBASE_API_KEY"`
	GoogleClientID          string `mapstructure:"GOOGLE_CLIENT_ID"`
	ProviderRequestURI      string `mapstructure:"PROVIDER_REQUEST_URI"`

	// Profile store: "firestore" or "mongo".
	ProfileStore      string `mapstructure:"PROFILE_STORE"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	MongoDatabase     string `mapstructure:"MONGO_DATABASE"`
	ProfileCollection string `mapstructure:"PROFILE_COLLECTION"`

	// Workflow timings.
	LoginRedirectDelay    time.Duration `mapstructure:"LOGIN_REDIRECT_DELAY"`
	RegisterRedirectDelay time.Duration `mapstructure:"REGISTER_REDIRECT_DELAY"`

	HealthCheckInterval time.Duration `mapstructure:"HEALTH_CHECK_INTERVAL"`
}

var AppConfig Config

func LoadConfig() {
	v := viper.New()

	// Look for a config file named "config.yaml" in the current and "config" directory.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	// Automatically use environment variables where available.
	v.AutomaticEnv()

	// Set default values.
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("SESSION_TTL", 24*time.Hour)
	v.SetDefault("REMEMBER_ME_TTL", 30*24*time.Hour)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_SESSION_DB", 1)
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "./config/serviceAccountKey.json")
	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("FIREBASE_API_KEY", "")
	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("PROVIDER_REQUEST_URI", "http://localhost")
	v.SetDefault("PROFILE_STORE", "firestore")
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "educonnect")
	v.SetDefault("PROFILE_COLLECTION", "users")
	v.SetDefault("LOGIN_REDIRECT_DELAY", 1500*time.Millisecond)
	v.SetDefault("REGISTER_REDIRECT_DELAY", 2*time.Second)
	v.SetDefault("HEALTH_CHECK_INTERVAL", 60*time.Second)

	if err := v.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.ProfileStore = strings.ToLower(strings.TrimSpace(cfg.ProfileStore))
	AppConfig = cfg
}

// Validate reports settings the server cannot run without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required to sign session tokens")
	}
	return nil
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(AppConfig.CORSAllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
