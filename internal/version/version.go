// Package version provides version information for the jwctl binary.
package version

import (
	_ "embed"
	"strings"
	"sync"
)

// VERSION contains the version from the VERSION file.
// This is used as a fallback when ldflags are not set (e.g., go install).
//
//go:embed VERSION
var VERSION string

var (
	mu       sync.RWMutex
	override string
)

// Set replaces the embedded version, typically with the ldflags value.
// "dev" and empty values are ignored.
func Set(v string) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if v == "" || v == "dev" {
		return
	}
	mu.Lock()
	override = v
	mu.Unlock()
}

// Get returns the version with "v" prefix.
func Get() string {
	mu.RLock()
	v := override
	mu.RUnlock()
	if v == "" {
		v = strings.TrimSpace(VERSION)
	}
	return "v" + v
}

// UserAgent returns the User-Agent sent to the gateway.
func UserAgent() string {
	return "jwctl/" + Get()
}
