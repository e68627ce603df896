package logger

import (
	"flag"
	"os"
	"strings"
)

// Flags registered on the default command line. They are read by LoadConfig
// after the caller has run flag.Parse().
var (
	logLevelFlag   = flag.String("log_level", "", "Log level (debug, info, warn, error)")
	webhookURLFlag = flag.String("log_webhook_url", "", "Webhook URL receiving buffered logs at exit")
	appNameFlag    = flag.String("app_name", "", "Application name reported in webhook payloads")
	envFlag        = flag.String("env", "", "Environment name (development, staging, production)")
)

// DefaultAppName is used when neither the flag nor APP_NAME is set.
const DefaultAppName = "go-site-file-harvester"

// EnvVar describes an environment variable understood by the logger.
type EnvVar struct {
	Name        string
	Description string
}

// LoadConfig loads logger config from flags and environment variables.
// Flags take precedence over environment variables.
// The caller must call flag.Parse() before calling this function.
func LoadConfig() (*Config, error) {
	levelStr := valueOrEnv(logLevelFlag, "LOG_LEVEL", "info")
	webhookURL := valueOrEnv(webhookURLFlag, "LOG_WEBHOOK_URL", "")
	appName := valueOrEnv(appNameFlag, "APP_NAME", DefaultAppName)
	envName := valueOrEnv(envFlag, "ENV", "development")

	return &Config{
		Level:       ParseLevel(strings.ToLower(strings.TrimSpace(levelStr))),
		WebhookURL:  webhookURL,
		AppName:     appName,
		Environment: envName,
	}, nil
}

// GetEnvVarsHelp returns the environment variables read by LoadConfig, for usage output.
func GetEnvVarsHelp() []EnvVar {
	return []EnvVar{
		{"LOG_LEVEL", "Log level (debug, info, warn, error)"},
		{"LOG_WEBHOOK_URL", "Webhook URL for logging"},
		{"APP_NAME", "Application name"},
		{"ENV", "Environment (development, staging, production)"},
	}
}

func valueOrEnv(f *string, key, defaultValue string) string {
	if f != nil && *f != "" {
		return *f
	}
	return getEnv(key, defaultValue)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
