// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package extensions defines the integration points a deploying site can
// implement without modifying the Clarus codebase.
//
// Clarus is a fully functional local tool out of the box: a clinician can
// run assessments on a workstation with no identity provider, no audit
// sink, and no outbound screening. Hospitals and research sites that need
// those controls provide concrete implementations of these interfaces and
// inject them via ServiceOptions.
//
// # Integration Categories
//
// The package is organized by concern:
//
//   - auth.go: Authentication and authorization (AuthProvider, AuthzProvider)
//   - audit.go: Access-audit logging (AuditLogger)
//   - filter.go: Outbound prompt screening (PromptFilter)
//
// # Usage with local defaults
//
//	opts := extensions.DefaultOptions()
//	svc := dashboard.New(cfg, &opts)
//
// # Usage with site implementations
//
//	opts := extensions.ServiceOptions{
//	    AuthProvider: site.NewSSOProvider(idpConfig),
//	    AuditLogger:  site.NewSIEMAuditor(siemConfig),
//	    PromptFilter: site.NewIdentifierScreen(policy),
//	}
//	svc := dashboard.New(cfg, &opts)
//
// # Thread Safety
//
// All interface implementations must be safe for concurrent use.
// Multiple goroutines may call methods simultaneously.
package extensions

// ServiceOptions groups all integration points for service configuration.
//
// Pass this to service constructors. All fields are optional; nil values
// are replaced with no-op defaults when DefaultOptions() is used or when
// services check for nil.
//
// Example:
//
//	// Local workstation: use defaults
//	opts := extensions.DefaultOptions()
//
//	// Site deployment: inject implementations
//	opts := extensions.ServiceOptions{
//	    AuthProvider: ssoProvider,
//	    AuditLogger:  siemAuditor,
//	    PromptFilter: identifierScreen,
//	}
type ServiceOptions struct {
	// AuthProvider validates bearer tokens on API requests.
	// Default: NopAuthProvider (always returns a valid local operator)
	AuthProvider AuthProvider

	// AuthzProvider checks permissions for actions on resources.
	// Default: NopAuthzProvider (always allows all actions)
	AuthzProvider AuthzProvider

	// AuditLogger records access-audit events.
	// Default: NopAuditLogger (discards all events)
	AuditLogger AuditLogger

	// PromptFilter screens narrative prompts before they leave the process.
	// Default: NopPromptFilter (passes through unchanged)
	PromptFilter PromptFilter
}

// DefaultOptions returns ServiceOptions with no-op defaults.
//
// This is the configuration for a local single-operator deployment.
// All requests are allowed, no audit trail, no prompt screening.
//
// Returns:
//   - ServiceOptions with all fields set to no-op implementations
func DefaultOptions() ServiceOptions {
	return ServiceOptions{
		AuthProvider:  &NopAuthProvider{},
		AuthzProvider: &NopAuthzProvider{},
		AuditLogger:   &NopAuditLogger{},
		PromptFilter:  &NopPromptFilter{},
	}
}

// WithAuth returns a copy of opts with the given AuthProvider.
// Useful for fluent configuration.
func (opts ServiceOptions) WithAuth(provider AuthProvider) ServiceOptions {
	opts.AuthProvider = provider
	return opts
}

// WithAuthz returns a copy of opts with the given AuthzProvider.
func (opts ServiceOptions) WithAuthz(provider AuthzProvider) ServiceOptions {
	opts.AuthzProvider = provider
	return opts
}

// WithAudit returns a copy of opts with the given AuditLogger.
func (opts ServiceOptions) WithAudit(logger AuditLogger) ServiceOptions {
	opts.AuditLogger = logger
	return opts
}

// WithPromptFilter returns a copy of opts with the given PromptFilter.
func (opts ServiceOptions) WithPromptFilter(filter PromptFilter) ServiceOptions {
	opts.PromptFilter = filter
	return opts
}
