package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/grovetools/lookout/errors"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads and parses a lookout configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	return loadFromBytes(data, path)
}

// LoadDefault finds and loads the configuration starting from the current
// working directory. A missing config file is not an error; callers get a
// default (empty) config.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}
	return LoadFrom(cwd)
}

// LoadFrom loads the first lookout.yml found walking up from startDir,
// falling back to the XDG config directory, then to an empty config.
func LoadFrom(startDir string) (*Config, error) {
	path, err := FindConfigFile(startDir)
	if err != nil {
		if errors.Is(err, errors.ErrCodeConfigNotFound) {
			return &Config{}, nil
		}
		return nil, err
	}

	return Load(path)
}

func loadFromBytes(data []byte, path string) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse config file").
			WithDetail("path", path)
	}
	cfg.Path = path
	return &cfg, nil
}

// FindConfigFile searches for lookout configuration files with the following
// precedence:
// 1. Current directory up to filesystem root
// 2. XDG config directory (~/.config/lookout/lookout.yml)
func FindConfigFile(startDir string) (string, error) {
	configNames := []string{
		"lookout.yml",
		"lookout.yaml",
		".lookout.yml",
		".lookout.yaml",
	}

	// 1. Search from current directory up to filesystem root
	dir := startDir
	for {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	// 2. Check XDG config directory
	if xdgConfigPath := getXDGConfigPath(); xdgConfigPath != "" {
		if info, err := os.Stat(xdgConfigPath); err == nil && !info.IsDir() {
			return xdgConfigPath, nil
		}
	}

	return "", errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
}

// expandEnvVars replaces ${VAR} with environment variable values
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		// Handle default values: ${VAR:-default}
		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}

// getXDGConfigPath returns the XDG config path for lookout
func getXDGConfigPath() string {
	// Check XDG_CONFIG_HOME first
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "lookout", "lookout.yml")
	}

	// Fall back to ~/.config
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "lookout", "lookout.yml")
	}

	return ""
}
