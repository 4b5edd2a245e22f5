// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"errors"
)

// ErrUnauthorized is returned when authentication or authorization fails.
// Site implementations should wrap this error with additional context.
//
// Example:
//
//	if !validKey {
//	    return nil, fmt.Errorf("unknown API key: %w", extensions.ErrUnauthorized)
//	}
var ErrUnauthorized = errors.New("unauthorized")

// AuthInfo contains identity information returned after successful
// authentication.
//
// The Metadata field lets site implementations carry additional claims
// without modifying the core type.
//
// Required fields (always populated):
//   - UserID: Unique identifier for the caller
//
// Optional fields (may be empty):
//   - Email: Caller's email address
//   - Roles: Role memberships for authorization decisions
//   - Metadata: Arbitrary key-value pairs from the identity provider
//
// Example:
//
//	info := &AuthInfo{
//	    UserID: "user-5521",
//	    Email:  "rn.alvarez@stmarys.example",
//	    Roles:  []string{"clinician", "viewer"},
//	    Metadata: NewMetadata().
//	        Set("department", "nephrology").
//	        Set("mfa_verified", true),
//	}
type AuthInfo struct {
	// UserID is the unique identifier for the authenticated caller.
	// This is the only required field and must never be empty.
	UserID string

	// Email is the caller's email address.
	// May be empty if not provided by the auth provider.
	Email string

	// Roles contains the caller's role memberships.
	// Common roles: "admin", "clinician", "auditor", "integration"
	Roles []string

	// Metadata holds additional claims from the identity provider.
	//
	// Common metadata keys:
	//   - "department": organizational unit
	//   - "site_id": which facility issued the credential
	//   - "mfa_verified": whether MFA was used
	//   - "session_id": identity provider session ID
	//
	// Like every field that can reach a log attribute, Metadata must
	// never carry patient identifiers or clinical values.
	Metadata Metadata
}

// HasRole checks if the caller has a specific role.
//
// Convenience method for authorization checks:
//
//	if !authInfo.HasRole("clinician") {
//	    return ErrUnauthorized
//	}
func (a *AuthInfo) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthProvider validates bearer tokens and returns caller identity.
//
// Implementations must be safe for concurrent use by multiple goroutines.
//
// # Local Behavior
//
// The default NopAuthProvider always returns a valid "local-operator" with
// admin privileges, so the CLI and a workstation server function without
// any identity infrastructure.
//
// # Site Implementation
//
// Deployed sites implement this interface to validate tokens against
// their identity provider (hospital SSO, Okta, Azure AD) or against the
// local keystore of issued API keys. The dashboard ships a keystore-backed
// provider; anything else is plugged in here.
//
// Example site implementation:
//
//	type SSOAuthProvider struct {
//	    verifier *oidc.IDTokenVerifier
//	}
//
//	func (p *SSOAuthProvider) Validate(ctx context.Context, token string) (*AuthInfo, error) {
//	    idToken, err := p.verifier.Verify(ctx, token)
//	    if err != nil {
//	        return nil, fmt.Errorf("sso validation failed: %w", ErrUnauthorized)
//	    }
//	    var claims struct {
//	        Email  string   `json:"email"`
//	        Groups []string `json:"groups"`
//	    }
//	    if err := idToken.Claims(&claims); err != nil {
//	        return nil, err
//	    }
//	    return &AuthInfo{
//	        UserID: idToken.Subject,
//	        Email:  claims.Email,
//	        Roles:  claims.Groups,
//	    }, nil
//	}
type AuthProvider interface {
	// Validate checks if the token is valid and returns the caller's identity.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - token: The bearer token (API key, JWT, session ID)
	//
	// Returns:
	//   - *AuthInfo: Caller identity information if valid
	//   - error: ErrUnauthorized (or wrapped) if invalid, other errors for failures
	//
	// The token format is implementation-specific:
	//   - Clarus API key: "clk_..."
	//   - JWT: "eyJhbGciOiJSUzI1NiIs..."
	//   - Session: "sess_..."
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// AuthzRequest describes an authorization check.
//
// Follows the common (subject, action, resource) pattern for access
// control decisions.
//
// Example:
//
//	req := AuthzRequest{
//	    User:         authInfo,
//	    Action:       "create",
//	    ResourceType: "narrative",
//	}
//	err := authzProvider.Authorize(ctx, req)
type AuthzRequest struct {
	// User is the authenticated caller making the request.
	// This comes from AuthProvider.Validate().
	User *AuthInfo

	// Action is the operation being attempted.
	// Common actions: "create", "read", "export", "delete"
	Action string

	// ResourceType is the category of resource being accessed.
	// Examples: "assessment", "narrative", "report", "key"
	ResourceType string

	// ResourceID is the specific resource instance (optional).
	// If empty, the check is for the resource type in general.
	ResourceID string
}

// AuthzProvider checks if a caller is authorized to perform an action.
//
// Implementations must be safe for concurrent use by multiple goroutines.
//
// # Local Behavior
//
// The default NopAuthzProvider always allows all actions. Appropriate for
// single-operator workstations where access control is not needed.
//
// # Site Implementation
//
// Sites implement role-based or policy-based control. A typical policy:
// "clinician" may create assessments and narratives, "auditor" may read
// audit events, only "admin" may manage keys.
//
// Example site implementation:
//
//	type RolePolicy struct {
//	    allowed map[string]map[string]bool // role -> "action.resource"
//	}
//
//	func (p *RolePolicy) Authorize(ctx context.Context, req AuthzRequest) error {
//	    for _, role := range req.User.Roles {
//	        if p.allowed[role][req.Action+"."+req.ResourceType] {
//	            return nil
//	        }
//	    }
//	    return fmt.Errorf("user %s cannot %s %s: %w",
//	        req.User.UserID, req.Action, req.ResourceType, ErrUnauthorized)
//	}
type AuthzProvider interface {
	// Authorize checks if the caller is permitted to perform the action.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - req: The authorization request describing user, action, and resource
	//
	// Returns:
	//   - nil: Action is authorized
	//   - error: ErrUnauthorized (or wrapped) if denied
	Authorize(ctx context.Context, req AuthzRequest) error
}

// NopAuthProvider is the default authentication provider.
//
// It always returns a valid local operator with admin privileges, so the
// CLI works without any identity infrastructure.
//
// Thread-safe: This implementation has no mutable state.
//
// Example:
//
//	provider := &NopAuthProvider{}
//	info, err := provider.Validate(ctx, "any-token")
//	// info.UserID == "local-operator"
//	// info.Roles == []string{"admin"}
//	// err == nil
type NopAuthProvider struct{}

// Validate always returns a valid local operator with admin privileges.
//
// The token parameter is ignored. Any value, including the empty string,
// results in successful authentication. This is the intended behavior for
// single-operator workstations.
func (p *NopAuthProvider) Validate(_ context.Context, _ string) (*AuthInfo, error) {
	return &AuthInfo{
		UserID: "local-operator",
		Email:  "",
		Roles:  []string{"admin"},
	}, nil
}

// NopAuthzProvider is the default authorization provider.
//
// It always allows all actions.
//
// Thread-safe: This implementation has no mutable state.
//
// Example:
//
//	provider := &NopAuthzProvider{}
//	err := provider.Authorize(ctx, AuthzRequest{
//	    User:         &AuthInfo{UserID: "anyone"},
//	    Action:       "delete",
//	    ResourceType: "key",
//	})
//	// err == nil (always allowed)
type NopAuthzProvider struct{}

// Authorize always returns nil, allowing all actions.
//
// The request parameter is ignored. All actions are permitted, which is
// the intended behavior for single-operator workstations.
func (p *NopAuthzProvider) Authorize(_ context.Context, _ AuthzRequest) error {
	return nil
}

// Compile-time interface compliance checks.
var (
	_ AuthProvider  = (*NopAuthProvider)(nil)
	_ AuthzProvider = (*NopAuthzProvider)(nil)
)
