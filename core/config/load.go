package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// Load loads the configuration from the directory. The built-in
// configuration is used if the directory has no configuration file.
func Load(base afero.Fs, path string) (*Configuration, error) {
	// If given the path to a config.yaml file, move back up a level.
	if filepath.Base(path) == ConfigurationName {
		path = filepath.Dir(path)
	}

	configContents, err := afero.ReadFile(base, filepath.Join(path, ConfigurationName))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		configContents = defaultConfigData
	case err != nil:
		return nil, err
	}

	// Keys missing from the file keep their built-in values.
	out := Default()
	if err := yaml.UnmarshalStrict(configContents, out); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ConfigurationName, err)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", ConfigurationName, err)
	}
	out.configFs = base
	out.configurationDir = path
	return out, nil
}

// Initialize writes the built-in configuration to dir if it doesn't already
// have one, then loads it.
func Initialize(base afero.Fs, dir string, logger *log.Logger) (*Configuration, error) {
	if err := base.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	configPath := filepath.Join(dir, ConfigurationName)
	switch exists, err := afero.Exists(base, configPath); {
	case err != nil:
		return nil, err
	case exists:
		logger.Printf("%s already exists, skipping\n", configPath)
	default:
		logger.Printf("Writing %s\n", configPath)
		if err := afero.WriteFile(base, configPath, defaultConfigData, 0600); err != nil {
			return nil, err
		}
	}

	return Load(base, dir)
}
