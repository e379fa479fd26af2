// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads Scopus API keys from the environment. Keys come
// from SCOPUS_API_KEYS (comma-separated) or SCOPUS_API_KEY (single value),
// with a .env file as fallback source for either. The harvester reloads
// keys through this package when the operator resumes from a pause, so
// fresh keys can be injected into .env mid-run.
package secrets

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	keysVar = "SCOPUS_API_KEYS"
	keyVar  = "SCOPUS_API_KEY"
)

// LoadKeys returns the configured API key pool. envFile is consulted when
// set and existing; a missing .env is not an error. Values already present
// in the process environment win over the file, matching godotenv's
// no-overwrite behavior.
func LoadKeys(envFile string) ([]string, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv(keysVar); v != "" {
		return splitKeys(v), nil
	}
	if v := os.Getenv(keyVar); v != "" {
		return []string{strings.TrimSpace(v)}, nil
	}
	return nil, fmt.Errorf("no API keys: set %s or %s", keysVar, keyVar)
}

// ReloadKeys re-reads envFile, letting file values replace whatever the
// environment held before. Used at pause/resume to pick up keys added to
// .env while the run was paused.
func ReloadKeys(envFile string) ([]string, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Overload(envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reloading %s: %w", envFile, err)
	}
	return LoadKeys("")
}

// splitKeys parses a comma-separated key list, trimming whitespace and
// dropping empty entries.
func splitKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
