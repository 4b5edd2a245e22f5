// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding clinical-use disclaimers.

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ClarusHealth/ClarusRisk/cmd/clarus/config"
	"github.com/ClarusHealth/ClarusRisk/pkg/ux"
	"github.com/ClarusHealth/ClarusRisk/services/keystore"
	"github.com/ClarusHealth/ClarusRisk/services/riskengine"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

// runKeysSet stores an API key for a provider. The key comes from the second
// argument, an interactive hidden prompt, or a line piped on stdin. Only the
// provider name and a fingerprint are ever printed back.
func runKeysSet(cmd *cobra.Command, args []string) {
	provider := args[0]

	var value string
	if len(args) == 2 {
		value = args[1]
	} else {
		read, err := readProviderKey(provider)
		if err != nil {
			outputKeysError("No key to store", err)
			os.Exit(riskengine.ExitError)
		}
		value = read
	}

	store, err := openKeyStore()
	if err != nil {
		outputKeysError("Could not open the key store", err)
		os.Exit(riskengine.ExitError)
	}
	defer store.Close()

	if err := store.Set(provider, value); err != nil {
		outputKeysError("Could not store the key", err)
		os.Exit(riskengine.ExitError)
	}

	ux.Success(fmt.Sprintf("Stored the %s key (fingerprint %s)", provider, keystore.Fingerprint(value)))
}

// runKeysList prints stored providers with fingerprints and update times.
func runKeysList(cmd *cobra.Command, args []string) {
	path, err := resolveKeystorePath()
	if err != nil {
		outputKeysError("No key store", err)
		os.Exit(riskengine.ExitError)
	}

	// A read-only query should not create the store directory.
	if _, err := os.Stat(path); os.IsNotExist(err) {
		ux.Info(fmt.Sprintf("No key store at %s yet. Store one with 'clarus keys set'.", path))
		return
	}

	store, err := openKeyStore()
	if err != nil {
		outputKeysError("Could not open the key store", err)
		os.Exit(riskengine.ExitError)
	}
	defer store.Close()

	infos, err := store.List()
	if err != nil {
		outputKeysError("Could not list keys", err)
		os.Exit(riskengine.ExitError)
	}

	if len(infos) == 0 {
		ux.Info("The key store is empty.")
		return
	}

	ux.Title("Stored Provider Keys")
	fmt.Printf("  %-14s %-14s %s\n", "PROVIDER", "FINGERPRINT", "UPDATED")
	for _, info := range infos {
		fmt.Printf("  %-14s %-14s %s\n", info.Provider, info.Fingerprint,
			info.UpdatedAt.Format("2006-01-02 15:04 UTC"))
	}
	fmt.Println()
	ux.Muted(fmt.Sprintf("Store: %s", store.Path()))
}

// runKeysDelete removes a provider's key from the store.
func runKeysDelete(cmd *cobra.Command, args []string) {
	provider := args[0]

	store, err := openKeyStore()
	if err != nil {
		outputKeysError("Could not open the key store", err)
		os.Exit(riskengine.ExitError)
	}
	defer store.Close()

	if err := store.Delete(provider); err != nil {
		if errors.Is(err, keystore.ErrKeyNotFound) {
			outputKeysError("Nothing to delete", err)
		} else {
			outputKeysError("Could not delete the key", err)
		}
		os.Exit(riskengine.ExitError)
	}

	ux.Success(fmt.Sprintf("Deleted the %s key", provider))
}

// openKeyStore opens the store at the --keystore path or the configured one.
// Store events stay quiet; the command's own output is the user interface.
func openKeyStore() (*keystore.Store, error) {
	path, err := resolveKeystorePath()
	if err != nil {
		return nil, err
	}
	cfg := keystore.DefaultConfig(path)
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return keystore.Open(cfg)
}

func resolveKeystorePath() (string, error) {
	if keysStorePath != "" {
		return keysStorePath, nil
	}
	if config.Global.Keystore.Path != "" {
		return config.Global.Keystore.Path, nil
	}
	return "", errors.New("no key store path configured (pass --keystore or set keystore.path in clarus.yaml)")
}

// readProviderKey obtains a key without echoing it. Interactive sessions get
// a hidden prompt; scripts pipe the key on stdin.
func readProviderKey(provider string) (string, error) {
	if ux.IsInteractive() {
		var key string
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("API key for %s", provider)).
				EchoMode(huh.EchoModePassword).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("enter a key")
					}
					return nil
				}).
				Value(&key),
		))
		if err := form.Run(); err != nil {
			return "", err
		}
		return strings.TrimSpace(key), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read key from stdin: %w", err)
	}
	key := strings.TrimSpace(line)
	if key == "" {
		return "", errors.New("no key on stdin (pass it as an argument or pipe one line)")
	}
	return key, nil
}

// =============================================================================
// OUTPUT FUNCTIONS
// =============================================================================

func outputKeysError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
}
