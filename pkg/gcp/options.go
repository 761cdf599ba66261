// Package gcp holds credential wiring shared by the Google Cloud clients.
package gcp

import (
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"google.golang.org/api/option"
)

// ClientOptions picks explicit service account credentials when configured and
// otherwise leaves the client on Application Default Credentials.
func ClientOptions(cfg config.GCPConfig) []option.ClientOption {
	var opts []option.ClientOption
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case strings.TrimSpace(cfg.ApplicationCredentials) != "":
		opts = append(opts, option.WithCredentialsFile(cfg.ApplicationCredentials))
	}
	return opts
}
