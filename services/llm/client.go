// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm provides the model backends used for narrative generation.
//
// Every backend implements LLMClient, a single-call text interface. The
// narrative service builds a complete prompt from an assessment; the
// client's only job is to move that prompt to a model and return the
// generated text.
//
// Three backends are supported:
//
//   - "ollama": a local Ollama server (default; nothing leaves the machine)
//   - "openai": the OpenAI chat completions API
//   - "anthropic": the Anthropic messages API
//
// Provider API keys resolve in order: an injected KeyLookup (the dashboard
// wires the keystore here), the provider's environment variable, then a
// mounted secret file under /run/secrets. Keys are never logged.
package llm

import (
	"context"
	"fmt"
)

// GenerationParams carries sampling settings for a single generation.
// Nil fields mean "use the backend's default".
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// LLMClient is the standard interface for any narrative backend.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// KeyLookup resolves a provider API key from an external store, keyed by
// provider name ("openai", "anthropic"). Returning an empty string falls
// back to the environment and /run/secrets.
type KeyLookup func(provider string) string

// NewClient constructs the backend named by backend.
//
// Recognized names are "ollama", "openai", and "anthropic". The empty
// string selects "ollama" so a workstation with no configuration stays
// local. lookup may be nil.
func NewClient(backend string, lookup KeyLookup) (LLMClient, error) {
	switch backend {
	case "", "ollama":
		return NewOllamaClient()
	case "openai":
		return NewOpenAIClient(lookupKey(lookup, "openai"))
	case "anthropic":
		return NewAnthropicClient(lookupKey(lookup, "anthropic"))
	default:
		return nil, fmt.Errorf("unknown narrative backend %q (want ollama, openai, or anthropic)", backend)
	}
}

func lookupKey(lookup KeyLookup, provider string) string {
	if lookup == nil {
		return ""
	}
	return lookup(provider)
}
