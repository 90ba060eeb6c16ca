package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// DefaultScopes are the HubSpot OAuth scopes the app requests on install.
var DefaultScopes = []string{
	"crm.objects.contacts.read",
	"crm.objects.companies.read",
}

// DefaultAllowedOrigins are the HubSpot app origins permitted by CORS when
// ALLOWED_ORIGINS is not set.
var DefaultAllowedOrigins = []string{
	"https://app.hubspot.com",
	"https://app-eu1.hubspot.com",
}

// Config holds all service configuration. It is loaded once at startup and
// passed explicitly to each component constructor.
type Config struct {
	HTTPAddress string
	AppBaseURL  string
	LogLevel    string

	// HubSpot OAuth app settings
	HubSpotClientID     string
	HubSpotClientSecret string
	HubSpotRedirectURI  string
	HubSpotScopes       []string

	// Secrets
	EncryptionKey string // exactly 32 bytes, keys the token store cipher
	JWTSecret     string // signs report access URLs

	// Token store (Redis)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Sales intelligence report backend
	SalesIntelAPIURL string
	SalesIntelAPIKey string

	AllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and an optional
// config file. Missing required variables abort startup.
func LoadConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envMappings := map[string]string{
		"HTTPAddress":         "HTTP_ADDRESS",
		"AppBaseURL":          "APP_BASE_URL",
		"LogLevel":            "LOG_LEVEL",
		"HubSpotClientID":     "HUBSPOT_CLIENT_ID",
		"HubSpotClientSecret": "HUBSPOT_CLIENT_SECRET",
		"HubSpotRedirectURI":  "HUBSPOT_REDIRECT_URI",
		"EncryptionKey":       "ENCRYPTION_KEY",
		"JWTSecret":           "JWT_SECRET",
		"RedisAddr":           "REDIS_ADDR",
		"RedisPassword":       "REDIS_PASSWORD",
		"RedisDB":             "REDIS_DB",
		"SalesIntelAPIURL":    "SALES_INTEL_API_URL",
		"SalesIntelAPIKey":    "SALES_INTEL_API_KEY",
	}

	for configKey, envVar := range envMappings {
		if err := v.BindEnv(configKey, envVar); err != nil {
			log.Warn().Err(err).Msgf("Failed to bind environment variable %s for %s", envVar, configKey)
		}
	}

	v.SetConfigName("oauth_bridge_config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug().Msg("Config file not found, using environment variables and defaults")
	} else {
		log.Info().Msgf("Using config file: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.HubSpotScopes = DefaultScopes

	config.AllowedOrigins = DefaultAllowedOrigins
	if origins := v.GetString("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = strings.Split(origins, ",")
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTPAddress", ":8080")
	v.SetDefault("AppBaseURL", "http://localhost:8080")
	v.SetDefault("LogLevel", "info")
	v.SetDefault("RedisAddr", "localhost:6379")
	v.SetDefault("RedisDB", 0)
}

func validateConfig(config *Config) error {
	required := []struct {
		envVar string
		value  string
	}{
		{"HUBSPOT_CLIENT_ID", config.HubSpotClientID},
		{"HUBSPOT_CLIENT_SECRET", config.HubSpotClientSecret},
		{"HUBSPOT_REDIRECT_URI", config.HubSpotRedirectURI},
		{"ENCRYPTION_KEY", config.EncryptionKey},
		{"JWT_SECRET", config.JWTSecret},
		{"SALES_INTEL_API_URL", config.SalesIntelAPIURL},
	}

	var missingVars []string
	for _, entry := range required {
		if entry.value == "" {
			missingVars = append(missingVars, entry.envVar)
		}
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missingVars, ", "))
	}

	if len(config.EncryptionKey) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must be exactly 32 characters long, got %d", len(config.EncryptionKey))
	}

	return nil
}
