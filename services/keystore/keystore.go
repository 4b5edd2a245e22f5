// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package keystore persists provider API keys for the narrative backends.
//
// Keys live in an embedded BadgerDB instance, one entry per provider name
// ("openai", "anthropic"). While the process runs, plaintext values are held
// in memguard enclaves so key material stays encrypted in memory and is
// excluded from swap and core dumps. The store never holds patient data.
//
// Key values are never logged. Log lines and List results identify a key by
// its provider name and a short SHA-256 fingerprint only.
//
// Usage:
//
//	store, err := keystore.Open(keystore.DefaultConfig("/var/lib/clarus/keys"))
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	if err := store.Set("openai", apiKey); err != nil {
//	    return err
//	}
//	client, err := llm.NewClient("openai", store.KeyLookup())
package keystore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/awnumar/memguard"
	"github.com/dgraph-io/badger/v4"
)

// ErrKeyNotFound is returned by Get and Delete when no key is stored for
// the requested provider.
var ErrKeyNotFound = errors.New("no API key stored for provider")

// providerPattern matches provider names safe to embed in storage keys.
var providerPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,31}$`)

// keyPrefix namespaces API-key entries within the database.
const keyPrefix = "apikey/"

// Config holds configuration for the key store.
type Config struct {
	// Path is the directory for database files.
	// Required unless InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	// Default: true. Keys are written rarely and must survive a crash.
	SyncWrites bool

	// Logger receives store and BadgerDB events.
	// If nil, BadgerDB's internal logging is disabled and store events
	// go to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a production configuration rooted at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		SyncWrites: true,
	}
}

// InMemoryConfig returns a configuration for testing. Data is lost on Close.
func InMemoryConfig() Config {
	return Config{
		InMemory:   true,
		SyncWrites: false,
	}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// KeyInfo describes a stored key without exposing its value.
type KeyInfo struct {
	// Provider is the backend name the key belongs to.
	Provider string `json:"provider"`

	// Fingerprint is the first 12 hex characters of the value's SHA-256.
	// Enough to tell two keys apart, useless for recovering either.
	Fingerprint string `json:"fingerprint"`

	// UpdatedAt is when the key was last written.
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is a BadgerDB-backed API key store.
//
// While the store is open, values read or written pass through memguard
// enclaves; plaintext only exists transiently at the Get boundary where it
// is handed to an HTTP client. On systems without a usable mlock limit the
// enclave cache is disabled (see VerifyMlockLimit) and values are served
// straight from the database.
//
// Thread safety: all methods are safe for concurrent use.
type Store struct {
	db       *badger.DB
	logger   *slog.Logger
	path     string
	inMemory bool

	mu     sync.RWMutex
	cache  map[string]*memguard.Enclave
	secure bool
}

// Open creates and opens a key store with the given configuration.
//
// The database directory is created if it does not exist. Open fails when
// the system's mlock limit is too low for the enclave cache, unless
// CLARUS_INSECURE_MEMORY=true acknowledges the reduced protection.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for a persistent key store")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	secure, err := initSecureMemory(logger)
	if err != nil {
		return nil, err
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0700); err != nil {
			return nil, fmt.Errorf("create key store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open key store database: %w", err)
	}

	return &Store{
		db:       db,
		logger:   logger,
		path:     cfg.Path,
		inMemory: cfg.InMemory,
		cache:    make(map[string]*memguard.Enclave),
		secure:   secure,
	}, nil
}

// OpenInMemory opens an in-memory key store for testing.
func OpenInMemory() (*Store, error) {
	return Open(InMemoryConfig())
}

// Close releases the enclave cache and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	s.cache = make(map[string]*memguard.Enclave)
	s.mu.Unlock()
	return s.db.Close()
}

// Path returns the database directory, or empty string for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// Set stores an API key for a provider, replacing any existing value.
//
// The value is persisted with an update timestamp and sealed into the
// enclave cache. The plaintext argument is not wiped; callers reading keys
// from files or terminal prompts should not reuse the string afterwards.
func (s *Store) Set(provider, value string) error {
	if err := validateProvider(provider); err != nil {
		return err
	}
	if value == "" {
		return fmt.Errorf("API key for %q is empty", provider)
	}

	entry := storedKey{
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	raw, err := entry.marshal()
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+provider), raw)
	})
	if err != nil {
		return fmt.Errorf("store API key for %q: %w", provider, err)
	}

	s.cacheValue(provider, value)

	s.logger.Info("stored provider API key",
		slog.String("provider", provider),
		slog.String("fingerprint", Fingerprint(value)),
	)
	return nil
}

// Get returns the API key stored for a provider.
//
// Cached enclaves are preferred; on a cache miss the value is read from the
// database and sealed for subsequent calls. Returns ErrKeyNotFound when the
// provider has no stored key.
func (s *Store) Get(provider string) (string, error) {
	if err := validateProvider(provider); err != nil {
		return "", err
	}

	if value, ok := s.cachedValue(provider); ok {
		return value, nil
	}

	var entry storedKey
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + provider))
		if err != nil {
			return err
		}
		return item.Value(func(raw []byte) error {
			return entry.unmarshal(raw)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, provider)
	}
	if err != nil {
		return "", fmt.Errorf("read API key for %q: %w", provider, err)
	}

	s.cacheValue(provider, entry.Value)
	return entry.Value, nil
}

// Delete removes the stored key for a provider.
// Returns ErrKeyNotFound when nothing is stored.
func (s *Store) Delete(provider string) error {
	if err := validateProvider(provider); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(keyPrefix + provider)); err != nil {
			return err
		}
		return txn.Delete([]byte(keyPrefix + provider))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, provider)
	}
	if err != nil {
		return fmt.Errorf("delete API key for %q: %w", provider, err)
	}

	s.mu.Lock()
	delete(s.cache, provider)
	s.mu.Unlock()

	s.logger.Info("deleted provider API key", slog.String("provider", provider))
	return nil
}

// List returns metadata for every stored key, sorted by provider name.
// Values are never included.
func (s *Store) List() ([]KeyInfo, error) {
	var infos []KeyInfo
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			provider := string(item.Key()[len(prefix):])

			var entry storedKey
			err := item.Value(func(raw []byte) error {
				return entry.unmarshal(raw)
			})
			if err != nil {
				return fmt.Errorf("read API key entry %q: %w", provider, err)
			}

			infos = append(infos, KeyInfo{
				Provider:    provider,
				Fingerprint: Fingerprint(entry.Value),
				UpdatedAt:   entry.UpdatedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Provider < infos[j].Provider
	})
	return infos, nil
}

// KeyLookup adapts the store to the narrative backends' key resolution
// signature. Lookup failures resolve to the empty string so the backends
// fall through to environment variables and mounted secrets.
func (s *Store) KeyLookup() func(provider string) string {
	return func(provider string) string {
		value, err := s.Get(provider)
		if err != nil {
			return ""
		}
		return value
	}
}

// Fingerprint returns a short non-reversible identifier for a key value:
// the first 12 hex characters of its SHA-256 digest.
func Fingerprint(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])[:12]
}

// cacheValue seals a plaintext value into the enclave cache.
// No-op when secure memory is unavailable.
func (s *Store) cacheValue(provider, value string) {
	if !s.secure {
		return
	}
	// NewEnclave wipes its input buffer, so hand it a copy.
	enclave := memguard.NewEnclave([]byte(value))

	s.mu.Lock()
	s.cache[provider] = enclave
	s.mu.Unlock()
}

// cachedValue opens the provider's enclave and copies the plaintext out.
func (s *Store) cachedValue(provider string) (string, bool) {
	s.mu.RLock()
	enclave, ok := s.cache[provider]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}

	buf, err := enclave.Open()
	if err != nil {
		s.logger.Warn("failed to open key enclave, falling back to database",
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)
		return "", false
	}
	defer buf.Destroy()

	// buf.String() aliases the locked pages and becomes invalid once the
	// buffer is destroyed; convert through []byte to copy the value out.
	return string(buf.Bytes()), true
}

func validateProvider(provider string) error {
	if !providerPattern.MatchString(provider) {
		return fmt.Errorf("invalid provider name %q (must be 1-32 lowercase alphanumeric chars, underscores, or hyphens)", provider)
	}
	return nil
}

// storedKey is the on-disk representation of a key entry.
type storedKey struct {
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (k storedKey) marshal() ([]byte, error) {
	raw, err := json.Marshal(k)
	if err != nil {
		return nil, fmt.Errorf("encode key entry: %w", err)
	}
	return raw, nil
}

func (k *storedKey) unmarshal(raw []byte) error {
	if err := json.Unmarshal(raw, k); err != nil {
		return fmt.Errorf("decode key entry: %w", err)
	}
	return nil
}
