package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

const configName = "httpdissect"

// InitViper points Viper at configFile, or searches for httpdissect.yaml/.yml
// in standard locations, and enables HTTPDISSECT_ environment overrides.
// The search requires an explicit YAML extension so the binary itself is
// never matched.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// ReadInConfig will return ConfigFileNotFoundError.
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
	}

	// HTTPDISSECT_SERVER_HTTP_ADDR overrides server.http_addr.
	viper.SetEnvPrefix("HTTPDISSECT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, "."+configName),
	}
	if runtime.GOOS == "windows" {
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, configName))
		}
	} else {
		paths = append(paths, "/etc/"+configName)
	}
	return findConfigFileInPaths(paths)
}

// findConfigFileInPaths returns the first httpdissect.yaml or .yml found in paths.
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, configName+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds scalar keys for environment overrides. Lists
// (layer.ports, auth.api_keys) are configured in the file.
func bindNestedEnvKeys() {
	for _, key := range []string{
		"server.http_addr",
		"server.log_level",
		"server.read_timeout",
		"server.max_body_bytes",
		"store.driver",
		"store.path",
		"store.buffer_size",
		"capture.channel_size",
		"capture.batch_size",
		"capture.flush_interval",
		"capture.send_timeout",
		"capture.warning_threshold",
		"rate_limit.enabled",
		"rate_limit.rate",
		"rate_limit.burst",
		"rate_limit.period",
		"rate_limit.cleanup_interval",
		"rate_limit.max_ttl",
		"telemetry.enabled",
		"telemetry.output",
		"telemetry.metrics_interval",
		"dev_mode",
	} {
		_ = viper.BindEnv(key)
	}
}

// LoadConfig reads the configuration file, applies environment overrides
// and defaults, and validates the result. A missing file is not an error.
func LoadConfig() (*Config, error) {
	cfg, err := LoadConfigRaw()
	if err != nil {
		return nil, err
	}
	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigRaw reads the configuration and applies defaults without
// validating.
func LoadConfigRaw() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.SetDefaults()
	return &cfg, nil
}

// ConfigFileUsed returns the loaded configuration file, or "".
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
