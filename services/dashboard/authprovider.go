// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// This file contains the keystore-backed AuthProvider. When an operator
// issues a dashboard API key ("clarus keys set dashboard clk_..."), New()
// swaps this provider in for the Nop default and every /v1 request must
// present the key.

package dashboard

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/ClarusHealth/ClarusRisk/pkg/extensions"
	"github.com/ClarusHealth/ClarusRisk/services/keystore"
)

// DashboardKeyProvider is the keystore provider name under which the
// dashboard's own API key is stored. Distinct from LLM provider keys
// ("openai", "anthropic") held in the same store.
const DashboardKeyProvider = "dashboard"

// keystoreAuthProvider validates bearer tokens against the API key stored
// in the local keystore.
//
// # Description
//
// A single-key provider: the keystore holds at most one dashboard key, and
// any caller presenting it is authenticated as an integration identity.
// The comparison is constant-time so response timing does not leak how
// much of a guessed key matched.
//
// # Identity Mapping
//
// Successful validation yields:
//
//	UserID: "key-" + fingerprint of the stored key
//	Roles:  ["integration"]
//
// The fingerprint is a short SHA-256 prefix, safe for logs and audit
// records. The key itself never leaves this function.
//
// # Thread Safety
//
// Safe for concurrent use. The underlying store serializes access.
type keystoreAuthProvider struct {
	store *keystore.Store
}

// NewKeystoreAuthProvider creates an AuthProvider that validates tokens
// against the dashboard API key in the given store.
//
// The store must outlive the provider. Callers should only install this
// provider after confirming a dashboard key exists, otherwise every
// request is rejected.
func NewKeystoreAuthProvider(store *keystore.Store) extensions.AuthProvider {
	return &keystoreAuthProvider{store: store}
}

// Validate checks the presented token against the stored dashboard key.
//
// Returns ErrUnauthorized (wrapped) for a missing, empty, or mismatched
// token. Storage failures are returned as-is so the middleware can report
// them as authentication failures rather than rejections.
func (p *keystoreAuthProvider) Validate(_ context.Context, token string) (*extensions.AuthInfo, error) {
	if token == "" {
		return nil, fmt.Errorf("missing API key: %w", extensions.ErrUnauthorized)
	}

	stored, err := p.store.Get(DashboardKeyProvider)
	if err != nil {
		if errors.Is(err, keystore.ErrKeyNotFound) {
			return nil, fmt.Errorf("no dashboard key issued: %w", extensions.ErrUnauthorized)
		}
		return nil, fmt.Errorf("reading dashboard key: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(token), []byte(stored)) != 1 {
		return nil, fmt.Errorf("unknown API key: %w", extensions.ErrUnauthorized)
	}

	return &extensions.AuthInfo{
		UserID: "key-" + keystore.Fingerprint(stored),
		Roles:  []string{"integration"},
	}, nil
}

var _ extensions.AuthProvider = (*keystoreAuthProvider)(nil)
