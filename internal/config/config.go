package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/newthinker/parley/internal/core"
	"github.com/spf13/viper"
)

type Config struct {
	Provider        string            `mapstructure:"provider"`
	Models          map[string]string `mapstructure:"models"`
	APIEndpoint     string            `mapstructure:"api_endpoint"`
	APIRetries      int               `mapstructure:"api_retries"`
	APITimeout      time.Duration     `mapstructure:"api_timeout"`
	APIRetryBackoff time.Duration     `mapstructure:"api_retry_backoff"`
	QueryConfig     map[string]any    `mapstructure:"query_config"`
	Credentials     CredentialsConfig `mapstructure:"credentials"`
	Log             LogConfig         `mapstructure:"log"`
	Metrics         MetricsConfig     `mapstructure:"metrics"`
}

// CredentialsConfig selects where the API key lives.
type CredentialsConfig struct {
	Source string   `mapstructure:"source"` // "file", "env" or "s3"
	Path   string   `mapstructure:"path"`   // For file; also the object key for s3
	Env    string   `mapstructure:"env"`    // For env
	S3     S3Config `mapstructure:"s3"`     // For s3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type LogConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

const (
	DefaultKeyFileName = "api_key.txt"
	DefaultKeyEnv      = "PARLEY_API_KEY"
)

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	// Support environment variable overrides
	v.SetEnvPrefix("parley")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		secondsToDurationHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// secondsToDurationHook lets durations be written as bare numbers of seconds,
// the way API_TIMEOUT is usually given.
func secondsToDurationHook() mapstructure.DecodeHookFuncType {
	durationType := reflect.TypeOf(time.Duration(0))
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if t != durationType || f == durationType {
			return data, nil
		}
		switch n := data.(type) {
		case int:
			return time.Duration(n) * time.Second, nil
		case int64:
			return time.Duration(n) * time.Second, nil
		case float64:
			return time.Duration(n * float64(time.Second)), nil
		case string:
			if secs, err := strconv.ParseFloat(n, 64); err == nil {
				return time.Duration(secs * float64(time.Second)), nil
			}
		}
		return data, nil
	}
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("provider", d.Provider)
	v.SetDefault("api_retries", d.APIRetries)
	v.SetDefault("api_timeout", d.APITimeout)
	v.SetDefault("api_retry_backoff", d.APIRetryBackoff)
	v.SetDefault("credentials.source", d.Credentials.Source)
	v.SetDefault("credentials.env", d.Credentials.Env)
	v.SetDefault("log.level", d.Log.Level)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Provider:   "openai",
		Models:     map[string]string{},
		APIRetries: 3,
		APITimeout: 60 * time.Second,
		Credentials: CredentialsConfig{
			Source: "file",
			Env:    DefaultKeyEnv,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultKeyFile returns the key file location used when credentials.path is
// unset: api_key.txt in the parent of the executable's directory.
func DefaultKeyFile() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locating executable: %w", err)
	}
	return filepath.Join(filepath.Dir(filepath.Dir(exe)), DefaultKeyFileName), nil
}

// ModelID resolves a configured model key to its concrete model identifier.
func (c *Config) ModelID(key string) (string, error) {
	id, ok := c.Models[key]
	if !ok {
		// viper lower-cases map keys read from files
		id, ok = c.Models[strings.ToLower(key)]
	}
	if !ok || id == "" {
		return "", core.WrapError(core.ErrUnknownModel, fmt.Errorf("no model configured for key %q", key))
	}
	return id, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.APIRetries < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("api_retries must be at least 1, got %d", c.APIRetries))
	}
	if c.APITimeout <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("api_timeout must be positive, got %s", c.APITimeout))
	}
	if c.APIRetryBackoff < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("api_retry_backoff cannot be negative, got %s", c.APIRetryBackoff))
	}

	switch c.Provider {
	case "openai", "claude", "ollama":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown provider %q", c.Provider))
	}

	switch c.Credentials.Source {
	case "", "file":
	case "env":
		if c.Credentials.Env == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("credentials.env required when source is env"))
		}
	case "s3":
		if c.Credentials.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("credentials.s3.bucket required when source is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown credentials source %q", c.Credentials.Source))
	}

	return nil
}
