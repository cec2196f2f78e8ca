package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const insecureSessionSecret = "admitgate-dev-secret"

// Config holds runtime configuration values for the portal API.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	SessionSecret          string
	SessionTTL             time.Duration
	CatalogCacheTTL        time.Duration
	MailEndpoint           string
	MailAPIKey             string
	MailFrom               string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	AdminEmail             string
	AdminPassword          string

	// SessionSecretInsecure is set when no secret was configured and the
	// development fallback is in use. Callers log a warning in that case.
	SessionSecretInsecure bool
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration from environment variables and an optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ADMIT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// The unprefixed names are the canonical deployment contract; the
	// ADMIT_-prefixed forms keep working for overrides.
	_ = v.BindEnv("database.url", "ADMIT_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("session.secret", "ADMIT_SESSION_SECRET", "SESSION_SECRET")
	_ = v.BindEnv("mail.api_key", "ADMIT_MAIL_API_KEY", "MAIL_API_KEY")

	v.SetDefault("app.name", "AdmitGate API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("catalog.cache_ttl", "10m")
	v.SetDefault("cloudinary.folder", "admitgate/documents")
	v.SetDefault("mail.from", "no-reply@admitgate.example")

	sessionTTL, err := time.ParseDuration(v.GetString("session.ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid session ttl: %w", err)
	}

	catalogTTL, err := time.ParseDuration(v.GetString("catalog.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid catalog cache ttl: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		SessionSecret:          v.GetString("session.secret"),
		SessionTTL:             sessionTTL,
		CatalogCacheTTL:        catalogTTL,
		MailEndpoint:           v.GetString("mail.endpoint"),
		MailAPIKey:             v.GetString("mail.api_key"),
		MailFrom:               v.GetString("mail.from"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		AdminEmail:             v.GetString("admin.email"),
		AdminPassword:          v.GetString("admin.password"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}

	if cfg.SessionSecret == "" {
		cfg.SessionSecret = insecureSessionSecret
		cfg.SessionSecretInsecure = true
	}

	return cfg, nil
}
