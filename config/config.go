package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the filterc settings.
type Config struct {
	Output OutputConfig `mapstructure:"output"`
	Input  InputConfig  `mapstructure:"input"`
	Log    LogConfig    `mapstructure:"log"`
}

type OutputConfig struct {
	Mode        string `mapstructure:"mode"`        // sql or tree
	Placeholder string `mapstructure:"placeholder"` // dollar, colon, at, question
	Indent      bool   `mapstructure:"indent"`
}

type InputConfig struct {
	Format string `mapstructure:"format"` // json or msgpack
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// GetDefaults returns a Config with all default values
func GetDefaults() *Config {
	return &Config{
		Output: OutputConfig{
			Mode:        "sql",
			Placeholder: "dollar",
			Indent:      false,
		},
		Input: InputConfig{
			Format: "json",
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"mode":        "output.mode",
	"placeholder": "output.placeholder",
	"indent":      "output.indent",
	"format":      "input.format",
	"log-level":   "log.level",
}

// Load reads configuration from path, or from filterc.yaml in the user
// config directory and the current directory when path is empty. Values
// are layered as defaults < file < FILTERC_* env < flags set on fs.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	def := GetDefaults()
	v.SetDefault("output.mode", def.Output.Mode)
	v.SetDefault("output.placeholder", def.Output.Placeholder)
	v.SetDefault("output.indent", def.Output.Indent)
	v.SetDefault("input.format", def.Input.Format)
	v.SetDefault("log.level", def.Log.Level)

	v.SetEnvPrefix("FILTERC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("error binding flag %s: %w", name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	} else {
		v.SetConfigName("filterc")
		v.SetConfigType("yaml")
		if configDir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(configDir, "filterc"))
		}
		v.AddConfigPath(".")

		// it's okay if the file doesn't exist, we have defaults
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	switch c.Output.Mode {
	case "sql", "tree":
	default:
		return fmt.Errorf("invalid output.mode %q: want sql or tree", c.Output.Mode)
	}
	switch c.Input.Format {
	case "json", "msgpack":
	default:
		return fmt.Errorf("invalid input.format %q: want json or msgpack", c.Input.Format)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses Log.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log.level %q: %w", c.Log.Level, err)
	}
	return lvl, nil
}
