package s3

import (
	"strconv"
	"strings"
	"time"

	"github.com/multiply-org/multiply-core/pkg/errors"
)

// Config represents S3 aux data provider configuration
type Config struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	ForcePathStyle  bool   `yaml:"force_path_style"`

	// CacheDir is the local directory the bucket prefix is mirrored into.
	CacheDir string `yaml:"cache_dir"`

	// Performance settings
	MaxRetries     int           `yaml:"max_retries"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// FailureThreshold consecutive transient failures stop requests for
	// BreakerTimeout. Zero disables the breaker.
	FailureThreshold int           `yaml:"failure_threshold"`
	BreakerTimeout   time.Duration `yaml:"breaker_timeout"`

	// ListCacheTTL keeps prefix listings in memory. Zero disables caching.
	ListCacheTTL     time.Duration `yaml:"list_cache_ttl"`
	ListCacheEntries int           `yaml:"list_cache_entries"`

	// Advanced settings
	UseAccelerate bool `yaml:"use_accelerate"`
	UseDualStack  bool `yaml:"use_dual_stack"`
}

// NewDefaultConfig returns a configuration with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Region:           "eu-central-1",
		MaxRetries:       3,
		RequestTimeout:   60 * time.Second,
		FailureThreshold: 5,
		BreakerTimeout:   30 * time.Second,
		ListCacheTTL:     5 * time.Minute,
		ListCacheEntries: 1024,
	}
}

// Validate checks that the configuration can be used
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return errors.NewError(errors.ErrCodeConfigValidation, "bucket name cannot be empty").
			WithComponent("s3")
	}
	if c.CacheDir == "" {
		return errors.NewError(errors.ErrCodeConfigValidation, "cache_dir cannot be empty").
			WithComponent("s3")
	}
	if c.MaxRetries < 0 {
		return errors.Newf(errors.ErrCodeConfigValidation, "max_retries must not be negative, got %d", c.MaxRetries).
			WithComponent("s3")
	}
	if c.RequestTimeout <= 0 {
		return errors.Newf(errors.ErrCodeConfigValidation, "request_timeout must be positive, got %s", c.RequestTimeout).
			WithComponent("s3")
	}
	if c.FailureThreshold < 0 {
		return errors.Newf(errors.ErrCodeConfigValidation, "failure_threshold must not be negative, got %d", c.FailureThreshold).
			WithComponent("s3")
	}
	if c.FailureThreshold > 0 && c.BreakerTimeout <= 0 {
		return errors.Newf(errors.ErrCodeConfigValidation, "breaker_timeout must be positive, got %s", c.BreakerTimeout).
			WithComponent("s3")
	}
	if c.ListCacheTTL < 0 || c.ListCacheEntries < 0 {
		return errors.NewError(errors.ErrCodeConfigValidation, "list_cache_ttl and list_cache_entries must not be negative").
			WithComponent("s3")
	}
	return nil
}

// ConfigFromParameters overlays provider selection parameters on the
// defaults. Unknown parameters are ignored.
func ConfigFromParameters(params map[string]string) (*Config, error) {
	cfg := NewDefaultConfig()
	for key, value := range params {
		var err error
		switch strings.ToLower(key) {
		case "bucket":
			cfg.Bucket = value
		case "prefix":
			cfg.Prefix = strings.Trim(value, "/")
		case "region":
			cfg.Region = value
		case "endpoint":
			cfg.Endpoint = value
		case "access_key_id":
			cfg.AccessKeyID = value
		case "secret_access_key":
			cfg.SecretAccessKey = value
		case "session_token":
			cfg.SessionToken = value
		case "cache_dir":
			cfg.CacheDir = value
		case "force_path_style":
			cfg.ForcePathStyle, err = strconv.ParseBool(value)
		case "use_accelerate":
			cfg.UseAccelerate, err = strconv.ParseBool(value)
		case "use_dual_stack":
			cfg.UseDualStack, err = strconv.ParseBool(value)
		case "max_retries":
			cfg.MaxRetries, err = strconv.Atoi(value)
		case "request_timeout":
			cfg.RequestTimeout, err = time.ParseDuration(value)
		case "failure_threshold":
			cfg.FailureThreshold, err = strconv.Atoi(value)
		case "breaker_timeout":
			cfg.BreakerTimeout, err = time.ParseDuration(value)
		case "list_cache_ttl":
			cfg.ListCacheTTL, err = time.ParseDuration(value)
		case "list_cache_entries":
			cfg.ListCacheEntries, err = strconv.Atoi(value)
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidConfig, "invalid S3 provider parameter").
				WithComponent("s3").
				WithContext("parameter", key)
		}
	}
	return cfg, nil
}
