package backup

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/storedesk-backend/pkg/db"
	"github.com/angelmondragon/storedesk-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storedesk-backend/pkg/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func exportArchive(t *testing.T, client *db.Client, engine *Engine) (*Archive, ExportSummary) {
	t.Helper()
	var (
		archive *Archive
		summary ExportSummary
	)
	require.NoError(t, client.WithTx(context.Background(), func(tx *gorm.DB) error {
		archive, summary = engine.Export(context.Background(), tx, ArchiveMeta{
			Timestamp:   time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC),
			CreatedBy:   "admin",
			Description: "nightly",
		})
		return nil
	}))

	// go through the wire format so restore sees what a file would hold
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, archive))
	decoded, err := Decode(&buf)
	require.NoError(t, err)
	return decoded, summary
}

func restoreInto(t *testing.T, client *db.Client, engine *Engine, archive *Archive) *RestoreResult {
	t.Helper()
	var result *RestoreResult
	require.NoError(t, client.WithTx(context.Background(), func(tx *gorm.DB) error {
		var err error
		result, err = engine.Restore(context.Background(), tx, archive)
		return err
	}))
	return result
}

func TestExportThenRestoreReproducesCounts(t *testing.T) {
	source := dbtest.Open(t)
	expected := seedStore(t, source.DB())
	engine := NewEngine(DefaultManifest(), nil)

	archive, summary := exportArchive(t, source, engine)
	assert.Empty(t, summary.Skipped)
	assert.Equal(t, expected, summary.Counts)
	assert.Equal(t, DefaultManifest().Names(), namesOf(archive.Data), "archive keeps manifest order")

	target := dbtest.Open(t)
	result := restoreInto(t, target, engine, archive)
	assert.Zero(t, result.Failed)
	assert.Equal(t, 13, result.Succeeded)

	for entity, want := range expected {
		got, ok := result.Entity(entity)
		require.True(t, ok, entity)
		assert.Equal(t, want, got.Succeeded, entity)
		assert.Equal(t, want, countRows(t, target.DB(), modelFor(entity)), entity)
	}

	var restored models.Sale
	require.NoError(t, target.DB().Order("sold_at ASC").First(&restored).Error)
	assert.True(t, restored.Total.Equal(mustDecimal("4.00")), "total %s", restored.Total)
	require.NotNil(t, restored.CustomerID)
}

func TestRestoreOutOfOrderLosesChildRows(t *testing.T) {
	source := dbtest.Open(t)
	expected := seedStore(t, source.DB())
	archive, _ := exportArchive(t, source, NewEngine(DefaultManifest(), nil))

	target := dbtest.Open(t)
	reversed := NewEngine(DefaultManifest().Reversed(), nil)
	result := restoreInto(t, target, reversed, archive)

	lines, ok := result.Entity(EntitySaleLineItems)
	require.True(t, ok)
	assert.Less(t, lines.Succeeded, expected[EntitySaleLineItems])
	assert.Equal(t, expected[EntitySaleLineItems], lines.Failed)
	assert.NotEmpty(t, lines.Errors)
	assert.Less(t, countRows(t, target.DB(), &models.SaleLineItem{}), expected[EntitySaleLineItems])

	sales, _ := result.Entity(EntitySales)
	assert.Less(t, sales.Succeeded, expected[EntitySales], "sales reference users and customers restored later")
	assert.Positive(t, result.Failed)
}

func TestRestoreReplacesExistingRows(t *testing.T) {
	client := dbtest.Open(t)
	expected := seedStore(t, client.DB())
	engine := NewEngine(DefaultManifest(), nil)
	archive, _ := exportArchive(t, client, engine)

	require.NoError(t, client.DB().Create(&models.Category{Name: "Added after backup"}).Error)

	result := restoreInto(t, client, engine, archive)
	categories, _ := result.Entity(EntityCategories)
	assert.EqualValues(t, 2, categories.Deleted)
	assert.Equal(t, expected[EntityCategories], countRows(t, client.DB(), &models.Category{}))
	assert.Equal(t, expected[EntitySaleLineItems], countRows(t, client.DB(), &models.SaleLineItem{}))
	assert.Zero(t, result.Failed)
}

func TestRestoreCountsBadRecordsAndContinues(t *testing.T) {
	client := dbtest.Open(t)
	engine := NewEngine(DefaultManifest(), nil)

	archive, err := Decode(strings.NewReader(`{
		"timestamp": "2024-01-01T00:00:00Z",
		"data": {
			"categories": [
				{"id": "2b0c5a34-6f7e-4d57-9c4c-2a1b3c4d5e6f", "name": "Snacks"},
				{"id": "not-a-uuid", "name": "Broken"},
				{"id": "3c1d6b45-7a8f-4e68-8d5d-3b2c4d5e6f70", "name": "Snacks"}
			],
			"widgets": []
		}
	}`))
	require.NoError(t, err)

	result := restoreInto(t, client, engine, archive)
	categories, ok := result.Entity(EntityCategories)
	require.True(t, ok)
	assert.Equal(t, 1, categories.Succeeded)
	assert.Equal(t, 2, categories.Failed, "bad id and duplicate name both fail")
	assert.Len(t, categories.Errors, 2)
	assert.Equal(t, []string{"widgets"}, result.Ignored)
	assert.Equal(t, 1, countRows(t, client.DB(), &models.Category{}))

	_, ok = result.Entity(EntityUsers)
	assert.False(t, ok, "types missing from the archive are left untouched")
}

func TestDecodeRejectsMalformedArchives(t *testing.T) {
	cases := map[string]string{
		"not json":          `{{`,
		"missing data":      `{"timestamp":"2024-01-01T00:00:00Z"}`,
		"data not object":   `{"data":[1,2]}`,
		"records not list":  `{"data":{"users":{"id":1}}}`,
		"record not object": `{"data":{"users":[1]}}`,
		"duplicate entity":  `{"data":{"users":[],"users":[]}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(body))
			assert.Error(t, err)
		})
	}
}

func TestCapErrorsLimitsMessages(t *testing.T) {
	var err error
	for i := 0; i < maxErrorsPerEntity+5; i++ {
		err = appendErr(err, i)
	}
	msgs := capErrors(err)
	require.Len(t, msgs, maxErrorsPerEntity+1)
	assert.Equal(t, "5 more errors omitted", msgs[len(msgs)-1])
	assert.Nil(t, capErrors(nil))
}

func namesOf(cols Collections) []string {
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.Entity)
	}
	return names
}
