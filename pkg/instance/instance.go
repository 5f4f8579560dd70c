package instance

import (
	"os"
	"strings"
)

const (
	EnvInstanceID = "TICKETCART_INSTANCE_ID"
	defaultID     = "ticketcart-0"
)

// GetID returns the process identifier used in sweeper lock ownership and
// logs. It falls back to the hostname, then to a fixed default.
func GetID() string {
	if id := strings.TrimSpace(os.Getenv(EnvInstanceID)); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return defaultID
}
