// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
)

type ClarusConfig struct {
	// Server controls the dashboard started by "clarus serve".
	Server ServerConfig `yaml:"server"`

	// Backend decides which narrative backend the CLI talks to.
	Backend BackendConfig `yaml:"backend"`

	// Keystore points at the on-disk provider key store.
	Keystore KeystoreConfig `yaml:"keystore"`

	// Reports sets where generated report files land.
	Reports ReportsConfig `yaml:"reports"`
}

type ServerConfig struct {
	Port          int  `yaml:"port"`           // e.g. 8440
	EnableMetrics bool `yaml:"enable_metrics"` // Prometheus /metrics on the dashboard
}

type BackendConfig struct {
	// Type can be "ollama", "openai", or "anthropic".
	Type    string `yaml:"type"`
	BaseURL string `yaml:"base_url,omitempty"` // e.g. http://localhost:11434 for ollama
}

type KeystoreConfig struct {
	Path string `yaml:"path"` // e.g. ~/.clarus/keystore
}

type ReportsConfig struct {
	// Dir is where "clarus report" writes files when --output is not given.
	// Empty means the current directory.
	Dir string `yaml:"dir,omitempty"`
}

func DefaultConfig() ClarusConfig {
	// The key store shares the config directory so a single backup of
	// ~/.clarus captures both.
	var keystorePath string
	home, err := os.UserHomeDir()
	if err == nil {
		keystorePath = filepath.Join(home, ".clarus", "keystore")
	}
	return ClarusConfig{
		Server: ServerConfig{
			Port:          8440,
			EnableMetrics: true,
		},
		Backend: BackendConfig{
			Type: "ollama",
		},
		Keystore: KeystoreConfig{
			Path: keystorePath,
		},
		Reports: ReportsConfig{},
	}
}
