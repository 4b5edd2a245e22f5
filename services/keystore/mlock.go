// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package keystore

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/awnumar/memguard"
	"golang.org/x/sys/unix"
)

// MinMlockLimitKB is the smallest mlock limit at which the enclave cache is
// considered usable. Each enclave costs a few locked pages; 64 KB covers the
// handful of provider keys a deployment realistically holds.
const MinMlockLimitKB = 64

var (
	memguardInitOnce sync.Once

	mlockSufficient bool

	currentMlockLimitKB int64
)

// VerifyMlockLimit reports whether the process may lock enough memory for
// the enclave cache, and the current RLIMIT_MEMLOCK soft limit in kilobytes
// (-1 when unlimited or undeterminable).
func VerifyMlockLimit() (bool, int64) {
	var rlimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_MEMLOCK, &rlimit); err != nil {
		slog.Warn("could not determine mlock limit", "error", err)
		return true, -1
	}

	if rlimit.Cur == unix.RLIM_INFINITY {
		return true, -1
	}

	limitKB := int64(rlimit.Cur / 1024)
	return limitKB >= MinMlockLimitKB, limitKB
}

// initSecureMemory initializes memguard once and decides whether the enclave
// cache may be used.
//
// When the mlock limit is below MinMlockLimitKB, opening a store fails
// unless CLARUS_INSECURE_MEMORY=true acknowledges that key values will be
// held in ordinary swappable memory. The returned bool is false in that
// acknowledged-insecure mode.
func initSecureMemory(logger *slog.Logger) (bool, error) {
	memguardInitOnce.Do(func() {
		mlockSufficient, currentMlockLimitKB = VerifyMlockLimit()
		if mlockSufficient {
			memguard.CatchInterrupt()
		}
	})

	if mlockSufficient {
		logger.Debug("secure key memory initialized",
			slog.Int64("mlock_limit_kb", currentMlockLimitKB),
			slog.Int("required_kb", MinMlockLimitKB),
		)
		return true, nil
	}

	if os.Getenv("CLARUS_INSECURE_MEMORY") == "true" {
		logger.Warn("SECURITY: key enclave cache disabled, mlock limit insufficient",
			slog.Int64("current_limit_kb", currentMlockLimitKB),
			slog.Int("required_kb", MinMlockLimitKB),
			slog.String("env_override", "CLARUS_INSECURE_MEMORY=true"),
		)
		return false, nil
	}

	return false, fmt.Errorf(
		"mlock limit insufficient for key protection: have %d KB, need %d KB. "+
			"Raise the limit (ulimit -l or LimitMEMLOCK) or set CLARUS_INSECURE_MEMORY=true",
		currentMlockLimitKB, MinMlockLimitKB,
	)
}

// PurgeSecureMemory wipes all memguard-allocated memory. Call during
// graceful shutdown after the store is closed.
func PurgeSecureMemory() {
	memguard.Purge()
}
