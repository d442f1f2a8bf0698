package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	YouTrack YouTrackConfig `mapstructure:"youtrack"`
	Lookup   LookupConfig   `mapstructure:"lookup"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// YouTrackConfig holds the server address and the credentials used to log in
type YouTrackConfig struct {
	Host               string        `mapstructure:"host" validate:"required,excludes=://"`
	Port               int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	UseSSL             bool          `mapstructure:"use_ssl"`
	Path               string        `mapstructure:"path"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password" validate:"required_with=Username"`
	Timeout            time.Duration `mapstructure:"timeout" validate:"gte=0"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
}

// HasCredentials reports whether a login should be attempted
func (c YouTrackConfig) HasCredentials() bool {
	return c.Username != ""
}

// LookupConfig tunes batch user lookups
type LookupConfig struct {
	Concurrency int `mapstructure:"concurrency" validate:"gte=1,lte=50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
