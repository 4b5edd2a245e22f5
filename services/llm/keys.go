// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// secretsDir is where container runtimes mount secret files.
// Overridable in tests.
var secretsDir = "/run/secrets"

// resolveKey returns the first key found: the envVar environment variable,
// then the secretName file under secretsDir. Returns "" when neither is
// set. The key value itself is never logged.
func resolveKey(envVar, secretName string) string {
	if key := os.Getenv(envVar); key != "" {
		return key
	}
	path := filepath.Join(secretsDir, secretName)
	if content, err := os.ReadFile(path); err == nil {
		key := strings.TrimSpace(string(content))
		if key != "" {
			slog.Info("read provider API key from mounted secret", "path", path)
			return key
		}
	}
	return ""
}
