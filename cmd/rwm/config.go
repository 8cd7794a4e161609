package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/rwm/internal/errors"
)

const (
	defaultConfigDir  = ".rwm"
	defaultConfigFile = "project.yaml"
	configVersion     = "1"
)

// Config represents the .rwm/project.yaml configuration file.
type Config struct {
	Version     string `yaml:"version"`
	DBPath      string `yaml:"db_path,omitempty"`      // default: <root>/rwm.db
	Artifacts   string `yaml:"artifacts,omitempty"`     // default: <root>/rwm_artifacts
	BundleBudget int   `yaml:"bundle_tokens,omitempty"` // default bundle token budget
	ModelFamily string `yaml:"model_family,omitempty"`  // openai, anthropic, or generic
}

// DefaultConfig returns sensible defaults for a freshly initialized project.
func DefaultConfig() *Config {
	return &Config{
		Version:      configVersion,
		BundleBudget: defaultBundleTokens,
		ModelFamily:  "generic",
	}
}

// LoadConfig loads configuration from configPath, or finds .rwm/project.yaml
// by walking up from the current directory. Returns DefaultConfig(), with
// environment overrides applied, when no file is found anywhere — rwm works
// without a config file present.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = os.Getenv("RWM_CONFIG_PATH")
	}
	if configPath == "" {
		found, err := findConfigFile()
		if err != nil {
			cfg := DefaultConfig()
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		configPath = found
	}

	data, err := os.ReadFile(configPath) //nolint:gosec // path comes from discovery or explicit flag
	if err != nil {
		return nil, errors.NewConfigError(
			"Cannot read configuration file",
			fmt.Sprintf("Failed to read %s", configPath),
			"Check file permissions and ensure the file exists",
			err,
		)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.NewConfigError(
			"Invalid configuration format",
			"YAML parsing failed - the config file contains syntax errors",
			fmt.Sprintf("Edit %s to fix syntax errors, or run 'rwm init --force' to recreate", configPath),
			err,
		)
	}
	if cfg.Version != "" && cfg.Version != configVersion {
		return nil, errors.NewConfigError(
			"Unsupported configuration version",
			fmt.Sprintf("Config version %q is not supported (expected %q)", cfg.Version, configVersion),
			"Run 'rwm init --force' to regenerate the configuration file",
			nil,
		)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// SaveConfig writes cfg to configPath as YAML, creating the parent directory.
func SaveConfig(cfg *Config, configPath string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.NewInternalError(
			"Cannot encode configuration",
			"YAML marshaling failed unexpectedly",
			"This is a bug; please report it with your configuration details",
			err,
		)
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.NewPermissionError(
			"Cannot create configuration directory",
			fmt.Sprintf("Permission denied creating %s", dir),
			"Check directory permissions",
			err,
		)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return errors.NewPermissionError(
			"Cannot write configuration file",
			fmt.Sprintf("Permission denied writing to %s", configPath),
			"Check file permissions and available disk space",
			err,
		)
	}
	return nil
}

// ConfigPath returns <dir>/.rwm/project.yaml.
func ConfigPath(dir string) string {
	return filepath.Join(dir, defaultConfigDir, defaultConfigFile)
}

// ConfigDir returns <dir>/.rwm.
func ConfigDir(dir string) string {
	return filepath.Join(dir, defaultConfigDir)
}

func findConfigFile() (string, error) {
	if p := os.Getenv("RWM_CONFIG_PATH"); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
		return "", errors.NewConfigError(
			"Configuration file not found",
			fmt.Sprintf("RWM_CONFIG_PATH is set to %q but the file does not exist", p),
			"Fix RWM_CONFIG_PATH or run 'rwm init'",
			nil,
		)
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", errors.NewInternalError(
			"Cannot access working directory",
			"Failed to determine current directory path",
			"Check system permissions and try again",
			err,
		)
	}
	for {
		p := ConfigPath(dir)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", errors.NewConfigError(
		"Configuration not found",
		"No .rwm/project.yaml found in current directory or any parent directory",
		"Run 'rwm init' to create one, or rely on built-in defaults",
		nil,
	)
}

func (c *Config) applyEnvOverrides() {
	if db := os.Getenv("RWM_DB_PATH"); db != "" {
		c.DBPath = db
	}
	if artifacts := os.Getenv("RWM_ARTIFACTS_DIR"); artifacts != "" {
		c.Artifacts = artifacts
	}
	if budget := os.Getenv(envBundleTokensName); budget != "" {
		if n := parseIntOr(budget, 0); n > 0 {
			c.BundleBudget = n
		}
	}
	if family := os.Getenv("RWM_MODEL_FAMILY"); family != "" {
		c.ModelFamily = family
	}
}

func parseIntOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return fallback
		}
		n = n*10 + int(r-'0')
	}
	return n
}
