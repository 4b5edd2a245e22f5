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
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// TestCreateDefault verifies default config creation.
func TestCreateDefault(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, ".clarus", "clarus.yaml")

	// Create the config
	if err := createDefault(configPath); err != nil {
		t.Fatalf("createDefault() failed: %v", err)
	}

	// Verify the file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("config file was not created")
	}

	// Read and verify the config
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}

	var cfg ClarusConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}

	// Verify some defaults
	if cfg.Backend.Type != "ollama" {
		t.Errorf("Backend.Type = %q, want %q", cfg.Backend.Type, "ollama")
	}
	if cfg.Server.Port != 8440 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8440)
	}
	if !cfg.Server.EnableMetrics {
		t.Error("Server.EnableMetrics = false, want true")
	}
}

// TestCreateDefault_DirectoryCreation verifies directory is created.
func TestCreateDefault_DirectoryCreation(t *testing.T) {
	tempDir := t.TempDir()

	// Use a nested path
	configPath := filepath.Join(tempDir, "deep", "nested", "path", "clarus.yaml")

	if err := createDefault(configPath); err != nil {
		t.Fatalf("createDefault() failed with nested path: %v", err)
	}

	// Verify the directories were created
	dirPath := filepath.Dir(configPath)
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		t.Fatal("nested directories were not created")
	}
}

// TestDefaultConfig_KeystoreUnderHome verifies the key store default lands
// under the user's home directory.
func TestDefaultConfig_KeystoreUnderHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory on this system: %v", err)
	}

	cfg := DefaultConfig()

	if !strings.HasPrefix(cfg.Keystore.Path, home) {
		t.Errorf("Keystore.Path = %q, want a path under %q", cfg.Keystore.Path, home)
	}
	if filepath.Base(cfg.Keystore.Path) != "keystore" {
		t.Errorf("Keystore.Path base = %q, want %q", filepath.Base(cfg.Keystore.Path), "keystore")
	}
}

// TestDefaultConfig_ReportsDirEmpty verifies reports default to the current
// directory rather than a hidden one.
func TestDefaultConfig_ReportsDirEmpty(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Reports.Dir != "" {
		t.Errorf("Reports.Dir = %q, want empty (current directory)", cfg.Reports.Dir)
	}
}

// TestLoadedConfigRoundTrip verifies a written config parses back to the
// same values.
func TestLoadedConfigRoundTrip(t *testing.T) {
	original := ClarusConfig{
		Server:   ServerConfig{Port: 9000, EnableMetrics: false},
		Backend:  BackendConfig{Type: "openai", BaseURL: "https://api.example.test"},
		Keystore: KeystoreConfig{Path: "/var/lib/clarus/keystore"},
		Reports:  ReportsConfig{Dir: "/tmp/reports"},
	}

	data, err := yaml.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var parsed ClarusConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if parsed != original {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", parsed, original)
	}
}
