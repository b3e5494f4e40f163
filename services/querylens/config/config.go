// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config provides analysis configuration for querylens.
//
// Configuration ships as an embedded YAML default and can be overridden
// from a file. All loaded values are validated; a config that cannot be
// parsed falls back to nothing — loading errors are returned, not masked.
//
// Thread Safety:
//
//	Config values are read-only after load and safe to share.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MaxConfigFileSize is the maximum allowed config file size (1MB).
const MaxConfigFileSize = 1024 * 1024

//go:embed default_config.yaml
var defaultConfigYAML []byte

// Config controls which identifiers and methods the analysis tracks.
type Config struct {
	// Handles are local identifiers treated as database handles.
	Handles []string `yaml:"handles"`

	// FormAccessors are method names whose call result is tracked as a
	// form-data accessor (`.get`/`.getAll` reads are external input).
	FormAccessors []string `yaml:"form_accessors"`

	// BodyAccessors are method names whose call result is tracked as a
	// parsed request body (property reads are body input).
	BodyAccessors []string `yaml:"body_accessors"`

	// ValidatorMethods are method names whose call result is considered
	// schema-validated.
	ValidatorMethods []string `yaml:"validator_methods"`

	// MaxFileSizeBytes caps the size of analyzed source files.
	MaxFileSizeBytes int64 `yaml:"max_file_size_bytes"`
}

// Default returns the embedded default configuration. It never fails;
// the embedded YAML is validated by the package tests.
func Default() *Config {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultConfigYAML, cfg); err != nil {
		// Unreachable for a well-formed embedded default; keep the
		// zero-value fallback rather than panicking in a library.
		return &Config{MaxFileSizeBytes: 10 * 1024 * 1024}
	}
	return cfg
}

// LoadFile loads configuration from a YAML file, filling unset fields
// from the embedded defaults.
func LoadFile(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config %s: %w", path, err)
	}
	if info.Size() > MaxConfigFileSize {
		return nil, fmt.Errorf("config %s: size %d exceeds limit %d", path, info.Size(), MaxConfigFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = Default().MaxFileSizeBytes
	}
	return cfg, nil
}

// IsHandle reports whether name is a tracked database handle.
func (c *Config) IsHandle(name string) bool {
	return contains(c.Handles, name)
}

// IsFormAccessor reports whether method binds a form-data accessor.
func (c *Config) IsFormAccessor(method string) bool {
	return contains(c.FormAccessors, method)
}

// IsBodyAccessor reports whether method binds a request-body accessor.
func (c *Config) IsBodyAccessor(method string) bool {
	return contains(c.BodyAccessors, method)
}

// IsValidatorMethod reports whether method marks its result validated.
func (c *Config) IsValidatorMethod(method string) bool {
	return contains(c.ValidatorMethods, method)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
