package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config keys. Each is also read from the environment as JARTRACK_<KEY>.
const (
	KeyDBPath              = "db_path"
	KeyImagePath           = "image_path"
	KeyLogLevel            = "log_level"
	KeyLogFormat           = "log_format"
	KeyLogFile             = "log_file"
	KeyRunningLowThreshold = "running_low_threshold"
	KeyMaxBatchQuantity    = "max_batch_quantity"
	KeyDefaultLocation     = "default_location"
)

const envPrefix = "JARTRACK"

type Config struct {
	DBPath              string
	ImagePath           string
	LogLevel            string
	LogFormat           string
	LogFile             string
	RunningLowThreshold int
	MaxBatchQuantity    int
	DefaultLocation     string
}

// Load reads configuration from defaults, the optional YAML file at path and
// JARTRACK_* environment variables, in increasing order of precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault(KeyDBPath, "jartrack.db")
	v.SetDefault(KeyImagePath, "images")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "json")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyRunningLowThreshold, 2)
	v.SetDefault(KeyMaxBatchQuantity, 100)
	v.SetDefault(KeyDefaultLocation, "")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{
		DBPath:              v.GetString(KeyDBPath),
		ImagePath:           v.GetString(KeyImagePath),
		LogLevel:            v.GetString(KeyLogLevel),
		LogFormat:           v.GetString(KeyLogFormat),
		LogFile:             v.GetString(KeyLogFile),
		RunningLowThreshold: v.GetInt(KeyRunningLowThreshold),
		MaxBatchQuantity:    v.GetInt(KeyMaxBatchQuantity),
		DefaultLocation:     v.GetString(KeyDefaultLocation),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("db_path must not be empty")
	}
	if c.RunningLowThreshold < 1 {
		return fmt.Errorf("running_low_threshold must be positive, got %d", c.RunningLowThreshold)
	}
	if c.MaxBatchQuantity < 1 {
		return fmt.Errorf("max_batch_quantity must be positive, got %d", c.MaxBatchQuantity)
	}
	return nil
}
