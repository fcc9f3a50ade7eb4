package instance

import (
	"testing"

	"github.com/angelmondragon/storedesk-backend/pkg/config"
)

func TestGetIDPrefersEnv(t *testing.T) {
	t.Setenv(config.EnvInstanceID, " cron-a ")
	if got := GetID(); got != "cron-a" {
		t.Fatalf("expected env instance id, got %q", got)
	}
}

func TestGetIDFallsBack(t *testing.T) {
	t.Setenv(config.EnvInstanceID, "")
	if got := GetID(); got == "" {
		t.Fatal("expected a non-empty instance id")
	}
}
