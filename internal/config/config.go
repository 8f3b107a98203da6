package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/multiply-org/multiply-core/pkg/errors"
	"github.com/multiply-org/multiply-core/pkg/reproject"
	"github.com/multiply-org/multiply-core/pkg/utils"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MULTIPLY_"

// Configuration represents the complete application configuration
type Configuration struct {
	Global       GlobalConfig       `yaml:"global"`
	AuxData      AuxDataConfig      `yaml:"aux_data"`
	Variables    VariablesConfig    `yaml:"variables"`
	Reprojection ReprojectionConfig `yaml:"reprojection"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// GlobalConfig represents global application settings
type GlobalConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogFile   string `yaml:"log_file"`
}

// AuxDataConfig selects the aux data provider. A selection file, when set,
// takes precedence over Provider and Parameters.
type AuxDataConfig struct {
	Provider      string            `yaml:"provider"`
	Parameters    map[string]string `yaml:"parameters,omitempty"`
	SelectionFile string            `yaml:"selection_file"`
}

// VariablesConfig points to an optional variables library replacing the
// built-in one.
type VariablesConfig struct {
	LibraryFile string `yaml:"library_file"`
}

// ReprojectionConfig represents reprojection defaults
type ReprojectionConfig struct {
	// Resampling forces a resampling algorithm; empty selects it per dataset.
	Resampling string `yaml:"resampling"`
}

// MetricsConfig represents metrics settings
type MetricsConfig struct {
	Enabled      bool              `yaml:"enabled"`
	Port         int               `yaml:"port"`
	Path         string            `yaml:"path"`
	Namespace    string            `yaml:"namespace"`
	CustomLabels map[string]string `yaml:"custom_labels,omitempty"`
}

// NewDefault returns a configuration with sensible defaults
func NewDefault() *Configuration {
	return &Configuration{
		Global: GlobalConfig{
			LogLevel:  "INFO",
			LogFormat: string(utils.FormatText),
		},
		AuxData: AuxDataConfig{
			Provider: "DEFAULT",
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Port:      9090,
			Path:      "/metrics",
			Namespace: "multiply",
		},
	}
}

// Load builds a configuration from the defaults, the optional file at
// filename and the environment, in that order, and validates the result.
func Load(filename string) (*Configuration, error) {
	cfg := NewDefault()
	if filename != "" {
		if err := cfg.LoadFromFile(filename); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigLoad, "failed to read config file").
			WithComponent("config").
			WithContext("path", filename)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidConfig, "failed to parse config file").
			WithComponent("config").
			WithContext("path", filename)
	}

	return nil
}

// LoadFromEnv loads configuration from environment variables
func (c *Configuration) LoadFromEnv() error {
	// Global settings
	if val := getenv("LOG_LEVEL"); val != "" {
		c.Global.LogLevel = val
	}
	if val := getenv("LOG_FORMAT"); val != "" {
		c.Global.LogFormat = val
	}
	if val := getenv("LOG_FILE"); val != "" {
		c.Global.LogFile = val
	}

	// Aux data
	if val := getenv("AUX_PROVIDER"); val != "" {
		c.AuxData.Provider = val
	}
	if val := getenv("AUX_SELECTION_FILE"); val != "" {
		c.AuxData.SelectionFile = val
	}

	if val := getenv("VARIABLES_FILE"); val != "" {
		c.Variables.LibraryFile = val
	}
	if val := getenv("RESAMPLING"); val != "" {
		c.Reprojection.Resampling = val
	}

	// Metrics
	if val := getenv("METRICS_ENABLED"); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return envError(err, "METRICS_ENABLED")
		}
		c.Metrics.Enabled = enabled
	}
	if val := getenv("METRICS_PORT"); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return envError(err, "METRICS_PORT")
		}
		c.Metrics.Port = port
	}

	return nil
}

// SaveToFile saves the configuration to a YAML file
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigSave, "failed to marshal config").
			WithComponent("config")
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0750); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigSave, "failed to create config directory").
			WithComponent("config")
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigSave, "failed to write config file").
			WithComponent("config").
			WithContext("path", filename)
	}

	return nil
}

// Validate validates the configuration
func (c *Configuration) Validate() error {
	if _, err := utils.ParseLogLevel(c.Global.LogLevel); err != nil {
		return invalid("invalid log_level: %s (must be one of: DEBUG, INFO, WARN, ERROR)", c.Global.LogLevel)
	}

	switch utils.LogFormat(strings.ToLower(c.Global.LogFormat)) {
	case utils.FormatText, utils.FormatJSON, "":
	default:
		return invalid("invalid log_format: %s (must be text or json)", c.Global.LogFormat)
	}

	if c.AuxData.Provider == "" && c.AuxData.SelectionFile == "" {
		return invalid("aux_data requires a provider or a selection_file")
	}

	if _, err := reproject.ParseResampling(c.Reprojection.Resampling); err != nil {
		return invalid("invalid reprojection resampling: %s", c.Reprojection.Resampling)
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
			return invalid("metrics port must be between 1 and 65535, got %d", c.Metrics.Port)
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return invalid("metrics path must start with '/', got %q", c.Metrics.Path)
		}
	}

	return nil
}

// LoggerConfig returns the logger settings of the global section.
func (c *Configuration) LoggerConfig() utils.LoggerConfig {
	return utils.LoggerConfig{
		Level:  c.Global.LogLevel,
		Format: utils.LogFormat(c.Global.LogFormat),
		File:   c.Global.LogFile,
	}
}

func getenv(name string) string {
	return os.Getenv(EnvPrefix + name)
}

func envError(err error, name string) error {
	return errors.Wrap(err, errors.ErrCodeInvalidConfig, "invalid environment override").
		WithComponent("config").
		WithContext("variable", EnvPrefix+name)
}

func invalid(format string, args ...interface{}) error {
	return errors.Newf(errors.ErrCodeConfigValidation, format, args...).WithComponent("config")
}
