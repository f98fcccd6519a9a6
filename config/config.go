package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

// DefaultFileName is looked up in the home directory when no config file is
// given.
const DefaultFileName = "zfr.cfg"

// envKeys maps configuration keys to the environment variables that set them.
var envKeys = map[string]string{
	"jira.url":        "ZFR_URL",
	"jira.username":   "ZFR_USERNAME",
	"jira.password":   "ZFR_PASSWORD",
	"jira.api_suffix": "ZFR_API_SUFFIX",
	"logging.level":   "ZFR_LOG_LEVEL",
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"url":        "jira.url",
	"username":   "jira.username",
	"password":   "jira.password",
	"api-suffix": "jira.api_suffix",
	"log-level":  "logging.level",
	"output":     "output.format",
	"pretty":     "output.pretty",
}

// fileSections are the INI sections read from the config file.
var fileSections = []string{"jira", "logging", "output"}

// Load resolves the configuration from, in increasing order of precedence,
// defaults, ZFR_* environment variables, the INI config file and the flags
// set on the command line.
//
// An empty configPath reads ~/zfr.cfg if it exists. An explicit path that
// does not exist is an error.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	if err := v.MergeConfigMap(readEnv()); err != nil {
		return nil, fmt.Errorf("error reading environment: %w", err)
	}

	fileValues, err := readFile(configPath)
	if err != nil {
		return nil, err
	}
	if err := v.MergeConfigMap(fileValues); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("error binding flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	normalize(&cfg)

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Zephyr defaults
	v.SetDefault("jira.api_suffix", "rest/atm/1.0")
	v.SetDefault("jira.timeout", "90s")
	v.SetDefault("jira.max_retries", 5)

	// Logging defaults
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)

	// Output defaults
	v.SetDefault("output.format", "json")
	v.SetDefault("output.pretty", false)
}

func readEnv() map[string]any {
	env := viper.New()
	values := make(map[string]any)
	for key, name := range envKeys {
		_ = env.BindEnv(key, name)
		if env.IsSet(key) {
			setNested(values, key, env.GetString(key))
		}
	}
	return values
}

// DefaultPath returns ~/zfr.cfg, or an empty string when the home directory
// is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, DefaultFileName)
}

func readFile(configPath string) (map[string]any, error) {
	explicit := configPath != ""
	if !explicit {
		configPath = DefaultPath()
		if configPath == "" {
			return nil, nil
		}
	}

	file, err := ini.LoadSources(ini.LoadOptions{Insensitive: true}, configPath)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	values := make(map[string]any)
	for _, name := range fileSections {
		section, err := file.GetSection(name)
		if err != nil {
			continue
		}
		for _, key := range section.Keys() {
			setNested(values, name+"."+key.Name(), key.Value())
		}
	}
	return values, nil
}

// setNested stores value under a dotted key.
func setNested(m map[string]any, key, value string) {
	section, name, ok := strings.Cut(key, ".")
	if !ok {
		m[key] = value
		return
	}
	inner, _ := m[section].(map[string]any)
	if inner == nil {
		inner = make(map[string]any)
		m[section] = inner
	}
	inner[name] = value
}

func normalize(cfg *Config) {
	cfg.Jira.URL = strings.TrimRight(strings.TrimSpace(cfg.Jira.URL), "/")
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)
	cfg.Output.Format = strings.ToLower(cfg.Output.Format)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.Jira.URL == "" {
		return fmt.Errorf("jira.url is required (set --url, ZFR_URL or url in the [jira] section)")
	}
	if cfg.Jira.Username == "" {
		return fmt.Errorf("jira.username is required (set --username, ZFR_USERNAME or username in the [jira] section)")
	}
	if cfg.Jira.Password == "" {
		return fmt.Errorf("jira.password is required (set --password, ZFR_PASSWORD or password in the [jira] section)")
	}
	if cfg.Jira.Timeout <= 0 {
		return fmt.Errorf("jira.timeout must be positive: %s", cfg.Jira.Timeout)
	}
	if cfg.Jira.MaxRetries < 0 {
		return fmt.Errorf("jira.max_retries must not be negative: %d", cfg.Jira.MaxRetries)
	}

	// Validate logging level
	validLevels := map[string]bool{
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

	if cfg.Output.Format != "json" && cfg.Output.Format != "table" {
		return fmt.Errorf("invalid output format: %s", cfg.Output.Format)
	}

	return nil
}
