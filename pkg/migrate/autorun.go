package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storedesk-backend/pkg/config"
	"github.com/angelmondragon/storedesk-backend/pkg/db"
	"github.com/angelmondragon/storedesk-backend/pkg/logger"
)

// MaybeRunDev migrates at startup when the app runs in dev mode with the
// feature flag enabled. SQLite databases are always migrated since they have
// no separate migration step.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	sqlite := client.Driver() == config.DBDriverSQLite
	if !sqlite && (!cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate) {
		return nil
	}

	meta := map[string]any{"env": cfg.App.Env, "dir": DefaultDir, "driver": client.Driver()}
	ctx = logg.WithFields(ctx, meta)
	logg.Info(ctx, "running schema migrations (auto-run)")

	if err := Up(ctx, client, DefaultDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	logg.Info(ctx, "schema migrations completed")
	return nil
}
