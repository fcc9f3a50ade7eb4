package migrate_test

import (
	"context"
	"testing"

	"github.com/angelmondragon/storedesk-backend/pkg/db"
	"github.com/angelmondragon/storedesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storedesk-backend/pkg/migrate"
)

func TestUpBuildsSQLiteSchema(t *testing.T) {
	client := db.Wrap(dbtest.OpenGorm(t))
	if err := migrate.Up(context.Background(), client, migrate.DefaultDir); err != nil {
		t.Fatalf("up: %v", err)
	}
	for _, table := range []string{"users", "products", "sale_line_items", "report_records"} {
		if !client.DB().Migrator().HasTable(table) {
			t.Errorf("expected table %s", table)
		}
	}
}
