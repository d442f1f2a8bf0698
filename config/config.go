package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. YOUTRACKR_YOUTRACK_HOST
const EnvPrefix = "YOUTRACKR"

// Load loads the configuration from file and environment. A .env file in the
// working directory is read first. Without an explicit path a missing config
// file is not an error, so the tool can be configured from the environment alone.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load() // no error if .env doesn't exist

	v := viper.New()

	// Set default values
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		// Check home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".youtrackr"))
		}

		// Check /etc
		v.AddConfigPath("/etc/youtrackr/")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values. Every key gets one so that
// environment overrides are picked up by Unmarshal.
func setDefaults(v *viper.Viper) {
	// YouTrack defaults
	v.SetDefault("youtrack.host", "")
	v.SetDefault("youtrack.port", 0)
	v.SetDefault("youtrack.use_ssl", false)
	v.SetDefault("youtrack.path", "")
	v.SetDefault("youtrack.username", "")
	v.SetDefault("youtrack.password", "")
	v.SetDefault("youtrack.timeout", "30s")
	v.SetDefault("youtrack.insecure_skip_verify", false)

	// Lookup defaults
	v.SetDefault("lookup.concurrency", 5)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their config key rather than the Go field name
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}

		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			key := strings.TrimPrefix(fe.Namespace(), "Config.")
			switch fe.Tag() {
			case "required":
				msgs = append(msgs, fmt.Sprintf("%s is required", key))
			case "required_with":
				msgs = append(msgs, fmt.Sprintf("%s is required when %s is set", key, strings.ToLower(fe.Param())))
			default:
				msgs = append(msgs, fmt.Sprintf("invalid %s: %v", key, fe.Value()))
			}
		}
		return errors.New(strings.Join(msgs, "; "))
	}

	// Validate logging level
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}
