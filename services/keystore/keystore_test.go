// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package keystore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore opens an in-memory store, tolerating hosts with low mlock
// limits.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	t.Setenv("CLARUS_INSECURE_MEMORY", "true")

	store, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// ============================================================================
// Store Tests
// ============================================================================

func TestStore_SetAndGet(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Set("openai", "sk-test-value"))

	got, err := store.Get("openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-test-value", got)
}

func TestStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get("anthropic")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestStore_SetReplaces(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Set("openai", "first"))
	require.NoError(t, store.Set("openai", "second"))

	got, err := store.Get("openai")
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestStore_SetRejectsEmptyValue(t *testing.T) {
	store := newTestStore(t)

	err := store.Set("openai", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestStore_ProviderValidation(t *testing.T) {
	store := newTestStore(t)

	tests := []struct {
		name     string
		provider string
		wantErr  bool
	}{
		{"lowercase name", "openai", false},
		{"with hyphen", "azure-openai", false},
		{"with underscore", "local_llm", false},
		{"uppercase rejected", "OpenAI", true},
		{"empty rejected", "", true},
		{"leading digit rejected", "1openai", true},
		{"path separator rejected", "openai/prod", true},
		{"space rejected", "open ai", true},
		{"too long rejected", "abcdefghijklmnopqrstuvwxyzabcdefg", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Set(tt.provider, "value")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Set("openai", "sk-test"))
	require.NoError(t, store.Delete("openai"))

	_, err := store.Get("openai")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestStore_DeleteMissing(t *testing.T) {
	store := newTestStore(t)

	err := store.Delete("openai")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestStore_List(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Set("openai", "sk-openai-value"))
	require.NoError(t, store.Set("anthropic", "sk-ant-value"))

	infos, err := store.List()
	require.NoError(t, err)
	require.Len(t, infos, 2)

	// Sorted by provider name
	assert.Equal(t, "anthropic", infos[0].Provider)
	assert.Equal(t, "openai", infos[1].Provider)

	for _, info := range infos {
		assert.Len(t, info.Fingerprint, 12)
		assert.False(t, info.UpdatedAt.IsZero())
		// A fingerprint must not leak the value
		assert.NotContains(t, info.Fingerprint, "sk-")
	}
}

func TestStore_ListEmpty(t *testing.T) {
	store := newTestStore(t)

	infos, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	t.Setenv("CLARUS_INSECURE_MEMORY", "true")
	dir := t.TempDir()

	store, err := Open(DefaultConfig(filepath.Join(dir, "keys")))
	require.NoError(t, err)
	require.NoError(t, store.Set("openai", "sk-persistent"))
	require.NoError(t, store.Close())

	store2, err := Open(DefaultConfig(filepath.Join(dir, "keys")))
	require.NoError(t, err)
	defer store2.Close()

	// Cache is cold after reopen; this exercises the database read path.
	got, err := store2.Get("openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-persistent", got)
}

func TestOpen_RequiresPath(t *testing.T) {
	t.Setenv("CLARUS_INSECURE_MEMORY", "true")

	_, err := Open(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestStore_KeyLookup(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("openai", "sk-lookup"))

	lookup := store.KeyLookup()

	assert.Equal(t, "sk-lookup", lookup("openai"))
	assert.Equal(t, "", lookup("anthropic"), "missing key resolves to empty string")
	assert.Equal(t, "", lookup("NOT-VALID"), "invalid provider resolves to empty string")
}

// ============================================================================
// Fingerprint Tests
// ============================================================================

func TestFingerprint(t *testing.T) {
	a := Fingerprint("sk-first")
	b := Fingerprint("sk-second")

	assert.Len(t, a, 12)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, Fingerprint("sk-first"), "fingerprint is deterministic")
}

// ============================================================================
// Secret Rotation Watcher Tests
// ============================================================================

func TestSecretWatcher_PicksUpRotation(t *testing.T) {
	store := newTestStore(t)
	dir := t.TempDir()

	secretPath := filepath.Join(dir, "openai_api_key")
	require.NoError(t, os.WriteFile(secretPath, []byte("sk-original\n"), 0o600))

	rotated := make(chan string, 4)
	watcher, err := NewSecretWatcher(store, dir, nil)
	require.NoError(t, err)
	watcher.OnRotate = func(provider string) { rotated <- provider }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Start(ctx)
	defer watcher.Stop()

	// Give the watch time to attach before rotating.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(secretPath, []byte("sk-rotated\n"), 0o600))

	require.Eventually(t, func() bool {
		got, err := store.Get("openai")
		return err == nil && got == "sk-rotated"
	}, 5*time.Second, 20*time.Millisecond, "store should pick up the rotated key")

	select {
	case provider := <-rotated:
		assert.Equal(t, "openai", provider)
	case <-time.After(5 * time.Second):
		t.Fatal("OnRotate was not called")
	}
}

func TestSecretWatcher_IgnoresUnrecognizedFiles(t *testing.T) {
	store := newTestStore(t)
	dir := t.TempDir()

	watcher, err := NewSecretWatcher(store, dir, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Start(ctx)
	defer watcher.Stop()

	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "tls.crt"), []byte("not a key"), 0o600))

	// The write must not create any store entries.
	time.Sleep(300 * time.Millisecond)
	infos, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestSecretWatcher_RequiresExistingDir(t *testing.T) {
	store := newTestStore(t)

	_, err := NewSecretWatcher(store, filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, err)
}

// ============================================================================
// Mlock Tests
// ============================================================================

func TestVerifyMlockLimit(t *testing.T) {
	// Result depends on the host; the call itself must not fail and the
	// reported limit must be -1 (unlimited) or non-negative.
	_, limitKB := VerifyMlockLimit()
	assert.GreaterOrEqual(t, limitKB, int64(-1))
}

func TestPurgeSecureMemory_KeepsPersistedKeys(t *testing.T) {
	t.Setenv("CLARUS_INSECURE_MEMORY", "true")
	dir := t.TempDir()

	store, err := Open(DefaultConfig(filepath.Join(dir, "keys")))
	require.NoError(t, err)
	require.NoError(t, store.Set("openai", "sk-survives-purge"))
	require.NoError(t, store.Close())

	// Purge wipes resident key material only; the database is untouched
	// and the enclave session re-keys itself for subsequent opens.
	PurgeSecureMemory()

	store2, err := Open(DefaultConfig(filepath.Join(dir, "keys")))
	require.NoError(t, err)
	defer store2.Close()

	got, err := store2.Get("openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-survives-purge", got)
}
