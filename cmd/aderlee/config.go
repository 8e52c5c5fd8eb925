package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	atomic_file "github.com/natefinch/atomic"
	yaml "gopkg.in/yaml.v2"
)

// Profile is a named, ordered key set. Key order matters: the codec derives
// its key from the concatenation, so [a b] and [b a] are different codecs.
type Profile struct {
	Name string   `yaml:"name"`
	Keys []string `yaml:"keys,omitempty"`
}

type Config struct {
	CurrentProfile  string     `yaml:"current-profile"`
	Profiles        []*Profile `yaml:"profiles"`
	ProfileOverride string     `yaml:"-"`

	// configPath is the file this config was read from and writes back to.
	configPath string `yaml:"-"`
}

func (c *Config) HasProfile(name string) bool {
	for _, profile := range c.Profiles {
		if profile.Name == name {
			return true
		}
	}
	return false
}

func (c *Config) SetCurrentProfile(name string) error {
	var oldProfile string
	if c.ActiveProfile() != nil {
		oldProfile = c.ActiveProfile().Name
	}
	for _, profile := range c.Profiles {
		if profile.Name == name {
			c.CurrentProfile = name

			if err := c.Write(); err != nil {
				// "Revert" change to the config struct, either
				// everything is successful or nothing.
				c.CurrentProfile = oldProfile
				return err
			}
			return nil
		}
	}
	return fmt.Errorf("could not find profile with name %v", name)
}

// UpsertProfile creates or replaces the named profile and persists the
// config. The first profile ever saved also becomes the current one.
func (c *Config) UpsertProfile(name string, keys []string) error {
	for _, profile := range c.Profiles {
		if profile.Name == name {
			profile.Keys = keys
			return c.Write()
		}
	}
	c.Profiles = append(c.Profiles, &Profile{Name: name, Keys: keys})
	if c.CurrentProfile == "" {
		c.CurrentProfile = name
	}
	return c.Write()
}

// DeleteProfile removes the named profile. Removing the current profile
// clears the selection.
func (c *Config) DeleteProfile(name string) error {
	for i, profile := range c.Profiles {
		if profile.Name == name {
			c.Profiles = append(c.Profiles[:i], c.Profiles[i+1:]...)
			if c.CurrentProfile == name {
				c.CurrentProfile = ""
			}
			return c.Write()
		}
	}
	return fmt.Errorf("could not find profile with name %v", name)
}

func (c *Config) ActiveProfile() *Profile {
	if c == nil {
		return nil
	}

	toSearch := c.ProfileOverride
	if toSearch == "" {
		toSearch = c.CurrentProfile
	}
	if toSearch == "" {
		return nil
	}

	for _, profile := range c.Profiles {
		if profile.Name == toSearch {
			// Make a copy so modifications on currentProfile are not
			// written back into the config.
			p := *profile
			return &p
		}
	}
	return nil
}

func (c *Config) Write() error {
	configPath := c.configPath
	if configPath == "" {
		var err error
		configPath, err = getDefaultConfigPath()
		if err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	// Key material lands on disk here, so no partial writes.
	if err := atomic_file.WriteFile(configPath, bytes.NewReader(out)); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return os.Chmod(configPath, 0600)
}

func ReadConfig(cfgPath string) (c Config, err error) {
	resolvedPath := cfgPath
	if resolvedPath == "" {
		resolvedPath, err = getDefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
	}

	data, err := os.ReadFile(resolvedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{configPath: resolvedPath}, nil
		}
		return Config{}, fmt.Errorf("open config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	c.configPath = resolvedPath
	return c, nil
}

func getDefaultConfigPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".aderlee", "config"), nil
}
