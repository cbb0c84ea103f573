// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads the layered application configuration (defaults, yaml
// file, environment, command-line flags) using viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// DefaultConnectionName is the connection string the application requires.
const DefaultConnectionName = "DefaultConnection"

// Environment names understood by the pipeline.
const (
	Development = "Development"
	Staging     = "Staging"
	Production  = "Production"
)

// ErrConnectionStringNotFound is wrapped by ConnectionStringError.
var ErrConnectionStringNotFound = errors.New("connection string not found")

// ConnectionStringError reports a missing named connection string.
type ConnectionStringError struct {
	Name string
}

func (e *ConnectionStringError) Error() string {
	return fmt.Sprintf("Connection string '%s' not found.", e.Name)
}

func (e *ConnectionStringError) Unwrap() error { return ErrConnectionStringNotFound }

// Config is the root application configuration.
type Config struct {
	Environment       string             `mapstructure:"environment" yaml:"environment"`
	ConnectionStrings map[string]string  `mapstructure:"connectionstrings" yaml:"connectionstrings"`
	Database          DatabaseConfig     `mapstructure:"database" yaml:"database"`
	Server            ServerConfig       `mapstructure:"server" yaml:"server"`
	Localization      LocalizationConfig `mapstructure:"localization" yaml:"localization"`
	Identity          IdentityConfig     `mapstructure:"identity" yaml:"identity"`
	Static            StaticConfig       `mapstructure:"static" yaml:"static"`
	Logging           LoggingConfig      `mapstructure:"logging" yaml:"logging"`
	Metrics           MetricsConfig      `mapstructure:"metrics" yaml:"metrics"`
}

// DatabaseConfig selects the relational provider. An empty provider is
// inferred from the connection string.
type DatabaseConfig struct {
	Provider       string `mapstructure:"provider" yaml:"provider"`
	MigrateOnStart bool   `mapstructure:"migrateonstart" yaml:"migrateonstart"`
}

type ServerConfig struct {
	Listen          string        `mapstructure:"listen" yaml:"listen"`
	HTTPSListen     string        `mapstructure:"httpslisten" yaml:"httpslisten"`
	HTTPSPort       int           `mapstructure:"httpsport" yaml:"httpsport"`
	CertFile        string        `mapstructure:"certfile" yaml:"certfile"`
	KeyFile         string        `mapstructure:"keyfile" yaml:"keyfile"`
	ShutdownTimeout time.Duration `mapstructure:"shutdowntimeout" yaml:"shutdowntimeout"`
	HSTSMaxAge      time.Duration `mapstructure:"hstsmaxage" yaml:"hstsmaxage"`
}

type LocalizationConfig struct {
	ResourcesPath     string   `mapstructure:"resourcespath" yaml:"resourcespath"`
	DefaultCulture    string   `mapstructure:"defaultculture" yaml:"defaultculture"`
	SupportedCultures []string `mapstructure:"supportedcultures" yaml:"supportedcultures"`
}

type IdentityConfig struct {
	RequireConfirmedAccount bool          `mapstructure:"requireconfirmedaccount" yaml:"requireconfirmedaccount"`
	MaxFailedAccessAttempts int           `mapstructure:"maxfailedaccessattempts" yaml:"maxfailedaccessattempts"`
	LockoutDuration         time.Duration `mapstructure:"lockoutduration" yaml:"lockoutduration"`
	SessionLifetime         time.Duration `mapstructure:"sessionlifetime" yaml:"sessionlifetime"`
	CookieName              string        `mapstructure:"cookiename" yaml:"cookiename"`
	PasswordMinLength       int           `mapstructure:"passwordminlength" yaml:"passwordminlength"`
}

type StaticConfig struct {
	WebRoot string `mapstructure:"webroot" yaml:"webroot"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// MetricsConfig controls where /metrics is exposed. Outside development it
// is only served on Listen, or on the public listener when Public is set.
type MetricsConfig struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
	Public bool   `mapstructure:"public" yaml:"public"`
}

// Defaults returns the configuration defaults keyed by viper path.
func Defaults() map[string]any {
	return map[string]any{
		"environment":                      Production,
		"database.provider":                "",
		"database.migrateonstart":          false,
		"server.listen":                    ":5000",
		"server.httpslisten":               "",
		"server.httpsport":                 0,
		"server.shutdowntimeout":           "10s",
		"server.hstsmaxage":                "720h",
		"localization.resourcespath":       "Resources",
		"localization.defaultculture":      "en",
		"localization.supportedcultures":   []string{"en", "fr"},
		"identity.requireconfirmedaccount": true,
		"identity.maxfailedaccessattempts": 5,
		"identity.lockoutduration":         "5m",
		"identity.sessionlifetime":         "336h",
		"identity.cookiename":              ".Lingo.Identity",
		"identity.passwordminlength":       6,
		"static.webroot":                   "wwwroot",
		"logging.level":                    "info",
		"metrics.listen":                   "",
		"metrics.public":                   false,
	}
}

// IsDevelopment reports whether the configured environment is Development.
func (c Config) IsDevelopment() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), Development)
}

// ConnectionString returns the named connection string. Names match
// case-insensitively because viper lower-cases map keys.
func (c Config) ConnectionString(name string) (string, error) {
	for k, v := range c.ConnectionStrings {
		if strings.EqualFold(k, name) && strings.TrimSpace(v) != "" {
			return v, nil
		}
	}
	return "", &ConnectionStringError{Name: name}
}

// Validate checks the settings the application cannot start without.
func (c Config) Validate() error {
	if _, err := c.ConnectionString(DefaultConnectionName); err != nil {
		return err
	}
	if len(c.Localization.SupportedCultures) == 0 {
		return errors.New("localization.supportedcultures must not be empty")
	}
	found := false
	for _, s := range c.Localization.SupportedCultures {
		if strings.EqualFold(s, c.Localization.DefaultCulture) {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("default culture %q is not one of the supported cultures %v", c.Localization.DefaultCulture, c.Localization.SupportedCultures)
	}
	return nil
}

// GetConfigPath returns the full path for the configuration file.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "Lingo")
		default:
			configDir = "/etc/lingo"
		}
	} else {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(dir, "lingo")
	}
	return filepath.Join(configDir, "lingo.yaml"), nil
}

// LoadConfig reads configuration into T. Precedence, lowest first: defaults,
// config file (explicit path or lingo.yaml in the user, system and current
// directory), LINGO_* environment variables, then flags set on cmd.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, configFile *string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("lingo")
	v.SetConfigType("yaml")
	if configFile != nil {
		v.SetConfigFile(*configFile)
	}
	if userConfigPath, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return c, err
		}
	}

	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	v.SetEnvPrefix("lingo")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// Map keys are only visible to Unmarshal once bound. The double
	// underscore form is the conventional name used by container platforms.
	if err := v.BindEnv("connectionstrings.defaultconnection",
		"LINGO_CONNECTIONSTRINGS_DEFAULTCONNECTION",
		"ConnectionStrings__DefaultConnection"); err != nil {
		return c, err
	}

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}

// WriteConfigFile writes c to the user (or system) config path and returns
// the path written.
func WriteConfigFile[T any](c *T, system bool) (string, error) {
	path, err := GetConfigPath(system)
	if err != nil {
		return "", err
	}
	return path, WriteConfigFileTo(c, path)
}

// WriteConfigFileTo writes c as yaml to path, creating parent directories.
func WriteConfigFileTo[T any](c *T, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}
	// 0600: the file carries the database connection string.
	return os.WriteFile(path, data, 0o600)
}
