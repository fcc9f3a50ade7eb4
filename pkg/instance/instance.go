package instance

import (
	"os"
	"strings"

	"github.com/angelmondragon/storedesk-backend/pkg/config"
)

const fallbackID = "worker-0"

// GetID names this process in logs and lock diagnostics. The explicit env var
// wins, then the hostname.
func GetID() string {
	if id := strings.TrimSpace(os.Getenv(config.EnvInstanceID)); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
