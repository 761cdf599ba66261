// Package env reads the few settings needed before config.Load runs, or
// injected by the platform outside the STOREFRONT_ prefix.
package env

import (
	"os"
	"strings"
)

// Get returns the trimmed value of key, or fallback when unset or blank.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// ListenAddr builds the HTTP listen address. Cloud Run and similar hosts
// inject PORT, which wins over the configured port.
func ListenAddr(configured string) string {
	return ":" + Get("PORT", configured)
}
