package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Config represents a parsed lookout.yml file. Beyond the version field the
// file is a set of named sections (logging, observer, ...) that components
// decode on demand via UnmarshalExtension.
type Config struct {
	// Version is the config format version.
	Version string `yaml:"version"`

	// Extensions captures all tool-specific sections.
	Extensions map[string]interface{} `yaml:",inline"`

	// Path is the file the config was loaded from. Empty for defaults.
	Path string `yaml:"-"`
}

// UnmarshalExtension decodes a specific section of the loaded lookout.yml
// into the provided target struct. The target must be a pointer. This
// provides a type-safe way for components to access their custom
// configuration sections.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		// It's not an error if the key doesn't exist.
		// The target struct will simply remain zero-valued.
		return nil
	}

	// Use mapstructure to decode the generic map[string]interface{}
	// into the strongly-typed target struct. We configure it to use
	// `yaml` tags for consistency.
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: "yaml",
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
