package navdata

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	gormlib "gorm.io/gorm"
	"gorm.io/gorm/logger"

	"infinite-experiment/fmsuplink/internal/metrics"
)

// Setup test database
func setupTestDB(t *testing.T) *gormlib.DB {
	db, err := gormlib.Open(sqlite.Open(":memory:"), &gormlib.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// every connection to :memory: is a new database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	if err := NewImporter(db).Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

func testRawData() ([]RawFix, []RawAirway, []RawProcedure) {
	fixes := []RawFix{
		{Ident: "TOBAK", Region: "ED", Lat: 49.8, Lon: 8.9},
		{Ident: "KERAX", Region: "ED", Lat: 49.7, Lon: 9.3},
		{Ident: "ANEKI", Region: "ED", Lat: 49.9, Lon: 8.1},
		{Ident: "ANEKI", Region: "LF", Lat: 45.0, Lon: 2.0},
	}
	airways := []RawAirway{
		{Ident: "T161", Fixes: []RawFix{
			{Ident: "ANEKI", Region: "ED"},
			{Ident: "TOBAK", Region: "ED"},
			{Ident: "KERAX", Region: "ED"},
		}},
		{Ident: "UN869", Fixes: []RawFix{
			{Ident: "ANEKI", Region: "LF"},
			{Ident: "ROTAG", Region: "LF", Lat: 45.5, Lon: 3.0},
		}},
	}
	procedures := []RawProcedure{
		{
			Ident: "TOBAK7G", Airport: "eddf", Kind: "Departure", Runways: []string{"25C", "25L"},
			RunwayTransitions: map[string][]RawFix{"25C": {{Ident: "DF251", Region: "ED", Lat: 50.0, Lon: 8.4}}},
			Legs:              []RawFix{{Ident: "ANEKI", Region: "ED"}, {Ident: "TOBAK", Region: "ED"}},
			EnrouteTransitions: []RawTransition{
				{Ident: "KERAX", Legs: []RawFix{{Ident: "KERAX", Region: "ED"}}},
			},
		},
		{Ident: "ANEKI1L", Airport: "EDDF", Kind: "departure", Legs: []RawFix{{Ident: "ANEKI", Region: "ED"}}},
		{Ident: "MARUN7A", Airport: "EDDF", Kind: "departure", Runways: []string{"18"}, Legs: []RawFix{{Ident: "TOBAK", Region: "ED"}}},
		{Ident: "ROKIL1A", Airport: "EDDM", Kind: "arrival", Legs: []RawFix{{Ident: "KERAX", Region: "ED"}}},
		{Ident: "BROKEN", Airport: "EDDM", Kind: "approach"},
	}
	return fixes, airways, procedures
}

func setupTestStore(t *testing.T) *Store {
	db := setupTestDB(t)
	fixes, airways, procedures := testRawData()

	stats, err := NewImporter(db).Import(context.Background(), fixes, airways, procedures)
	require.NoError(t, err)
	assert.Equal(t, ImportStats{Fixes: 6, Airways: 2, Procedures: 4}, stats)

	return NewStore(db, nil)
}

func TestStore_SearchFixes(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	fixes, err := store.SearchFixes(ctx, "aneki")
	require.NoError(t, err)
	require.Len(t, fixes, 2)
	assert.Equal(t, "ED", fixes[0].Region)
	assert.Equal(t, "LF", fixes[1].Region)
	assert.InDelta(t, 49.9, fixes[0].Location.Lat, 1e-9)

	fixes, err = store.SearchFixes(ctx, "NOPE")
	require.NoError(t, err)
	assert.Empty(t, fixes)
}

func TestStore_SearchAirwaysThroughFix(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	airways, err := store.SearchAirways(ctx, "T161", Fix{Ident: "TOBAK", Region: "ED"})
	require.NoError(t, err)
	require.Len(t, airways, 1)

	var idents []string
	for _, f := range airways[0].Fixes {
		idents = append(idents, f.Ident)
	}
	assert.Equal(t, []string{"ANEKI", "TOBAK", "KERAX"}, idents)

	// same ident, other region: not on T161
	airways, err = store.SearchAirways(ctx, "T161", Fix{Ident: "ANEKI", Region: "LF"})
	require.NoError(t, err)
	assert.Empty(t, airways)

	airways, err = store.SearchAirways(ctx, "UN869", Fix{Ident: "ROTAG", Region: "LF"})
	require.NoError(t, err)
	require.Len(t, airways, 1)
	assert.Len(t, airways[0].Fixes, 2)
}

func TestStore_SearchDeparturesFiltersRunway(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	procs, err := store.SearchDepartures(ctx, "EDDF", "25C")
	require.NoError(t, err)

	var idents []string
	for _, p := range procs {
		idents = append(idents, p.Ident)
	}
	assert.ElementsMatch(t, []string{"TOBAK7G", "ANEKI1L"}, idents)

	for _, p := range procs {
		if p.Ident != "TOBAK7G" {
			continue
		}
		assert.Equal(t, Departure, p.Kind)
		assert.Equal(t, []string{"25C", "25L"}, p.Runways)
		require.Len(t, p.RunwayTransitions["25C"], 1)
		assert.Equal(t, "DF251", p.RunwayTransitions["25C"][0].Ident)
		require.Len(t, p.Legs, 2)
		assert.Equal(t, "ANEKI", p.Legs[0].Ident)
		assert.Equal(t, "TOBAK", p.Legs[1].Ident)
		require.Len(t, p.EnrouteTransitions, 1)
		assert.Equal(t, "KERAX", p.EnrouteTransitions[0].Ident)
	}
}

func TestStore_SearchArrivals(t *testing.T) {
	store := setupTestStore(t)

	procs, err := store.SearchArrivals(context.Background(), "EDDM")
	require.NoError(t, err)
	require.Len(t, procs, 1)
	assert.Equal(t, "ROKIL1A", procs[0].Ident)
	assert.Equal(t, Arrival, procs[0].Kind)
}

func TestImporter_ReplacesExistingData(t *testing.T) {
	db := setupTestDB(t)
	im := NewImporter(db)
	ctx := context.Background()

	fixes, airways, procedures := testRawData()
	_, err := im.Import(ctx, fixes, airways, procedures)
	require.NoError(t, err)

	stats, err := im.Import(ctx, []RawFix{{Ident: "ONLY", Region: "ED"}}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, ImportStats{Fixes: 1}, stats)

	got, err := NewStore(db, nil).SearchFixes(ctx, "TOBAK")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func writeJSON(t *testing.T, path string, v interface{}) {
	b, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o644))
}

func writeZstdJSON(t *testing.T, path string, v interface{}) {
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw, err := zstd.NewWriter(f)
	require.NoError(t, err)
	require.NoError(t, json.NewEncoder(zw).Encode(v))
	require.NoError(t, zw.Close())
}

func TestImporter_ImportDirReadsCompressedFiles(t *testing.T) {
	db := setupTestDB(t)
	dir := t.TempDir()
	fixes, airways, _ := testRawData()

	writeJSON(t, filepath.Join(dir, FixesFile), fixes)
	writeZstdJSON(t, filepath.Join(dir, AirwaysFile+".zst"), airways)

	stats, err := NewImporter(db).ImportDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Fixes)
	assert.Equal(t, 2, stats.Airways)
	assert.Equal(t, 0, stats.Procedures)
}

func TestImporter_ImportDirRequiresFixes(t *testing.T) {
	_, err := NewImporter(setupTestDB(t)).ImportDir(context.Background(), t.TempDir())
	assert.Error(t, err)
}

// countingDatabase counts lookups that reach the wrapped database.
type countingDatabase struct {
	Database
	fixCalls, airwayCalls int
}

func (c *countingDatabase) SearchFixes(ctx context.Context, ident string) ([]Fix, error) {
	c.fixCalls++
	return c.Database.SearchFixes(ctx, ident)
}

func (c *countingDatabase) SearchAirways(ctx context.Context, ident string, through Fix) ([]Airway, error) {
	c.airwayCalls++
	return c.Database.SearchAirways(ctx, ident, through)
}

func TestCachedDatabase_ServesRepeatLookups(t *testing.T) {
	inner := &countingDatabase{Database: setupTestStore(t)}
	promReg := prometheus.NewRegistry()
	cached := NewCachedDatabase(inner, 16, time.Minute, metrics.NewMetricsRegistryWith(promReg))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		fixes, err := cached.SearchFixes(ctx, "TOBAK")
		require.NoError(t, err)
		require.Len(t, fixes, 1)

		airways, err := cached.SearchAirways(ctx, "T161", fixes[0])
		require.NoError(t, err)
		require.Len(t, airways, 1)
	}

	assert.Equal(t, 1, inner.fixCalls)
	assert.Equal(t, 1, inner.airwayCalls)
	assert.Equal(t, float64(2), counterValue(t, promReg, "fmsuplink_cache_hits_total", "navdb_fixes"))
	assert.Equal(t, float64(1), counterValue(t, promReg, "fmsuplink_cache_misses_total", "navdb_fixes"))

	cached.Purge()
	_, err := cached.SearchFixes(ctx, "TOBAK")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.fixCalls)
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, cache string) float64 {
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "cache" && l.GetValue() == cache {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
