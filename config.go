// Copyright (c) 2026 The elveflow developers. All rights reserved.
// Project site: https://github.com/gotmc/elveflow
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package elveflow

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config keys used by the device sessions. A session constructed without an
// explicit device name resolves it from the config file under these keys.
const (
	KeyOB1Name        = "ob1_name"
	KeyOB1Calibration = "ob1_calibration"
	KeyMUXName        = "mux_name"
)

// configDirEnv overrides the per-user config directory, mainly for tests and
// multi-rig setups.
const configDirEnv = "ELVEFLOW_CONFIG_DIR"

// ConfigDir returns the directory holding the elveflow config file and the
// default calibration files, creating it if needed. It defaults to
// "elveflow" under the per-user configuration directory and can be overridden
// with the ELVEFLOW_CONFIG_DIR environment variable.
func ConfigDir() (string, error) {
	dir := os.Getenv(configDirEnv)
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("locating user config dir: %w", err)
		}
		dir = filepath.Join(base, "elveflow")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}
	return dir, nil
}

func configFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func readConfigMap() (map[string]string, string, error) {
	path, err := configFile()
	if err != nil {
		return nil, "", err
	}
	cfg := make(map[string]string)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, path, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, "", fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg == nil {
		cfg = make(map[string]string)
	}
	return cfg, path, nil
}

// ReadConfig looks up a single key in the config file. A missing key is a
// *ConfigError so callers can distinguish "not configured" from an I/O
// failure.
func ReadConfig(key string) (string, error) {
	cfg, path, err := readConfigMap()
	if err != nil {
		return "", err
	}
	v, ok := cfg[key]
	if !ok {
		return "", &ConfigError{Reason: fmt.Sprintf("key %q not found in %s", key, path)}
	}
	return v, nil
}

// WriteConfig sets a single key in the config file, creating the file if it
// does not exist yet.
func WriteConfig(key, value string) error {
	cfg, path, err := readConfigMap()
	if err != nil {
		return err
	}
	cfg[key] = value
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
