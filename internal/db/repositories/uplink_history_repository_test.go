package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infinite-experiment/fmsuplink/internal/models/entities"
)

// sqlite has no UUID/TIMESTAMPTZ types, so the table is declared by hand
const sqliteUplinkHistoryTable = `
CREATE TABLE uplink_history (
	id TEXT PRIMARY KEY,
	pilot_id TEXT NOT NULL,
	origin TEXT NOT NULL DEFAULT '',
	destination TEXT NOT NULL DEFAULT '',
	chunk_count INTEGER NOT NULL DEFAULT 0,
	leg_count INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
)`

func setupHistoryRepo(t *testing.T) *UplinkHistoryRepo {
	db, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(sqliteUplinkHistoryTable); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	return NewUplinkHistoryRepo(db)
}

func TestUplinkHistoryRepo_InsertAndList(t *testing.T) {
	repo := setupHistoryRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Insert(ctx, &entities.UplinkHistory{
			ID:          id,
			PilotID:     "123456",
			Origin:      "EDDF",
			Destination: "EGLL",
			ChunkCount:  10 + i,
			LegCount:    20 + i,
			Status:      "done",
			DurationMs:  int64(100 * i),
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Insert(ctx, &entities.UplinkHistory{
		ID: "other", PilotID: "999", Status: "failed", Error: "boom", CreatedAt: base,
	}))

	rows, err := repo.ListByPilot(ctx, "123456", 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "c", rows[0].ID)
	assert.Equal(t, "b", rows[1].ID)
	assert.Equal(t, 22, rows[0].LegCount)

	rows, err = repo.ListByPilot(ctx, "123456", 0)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestUplinkHistoryRepo_GetByID(t *testing.T) {
	repo := setupHistoryRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, &entities.UplinkHistory{
		ID: "x1", PilotID: "kilo", Status: "failed", Error: "waypoint not found", CreatedAt: time.Now().UTC(),
	}))

	row, err := repo.GetByID(ctx, "x1")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "waypoint not found", row.Error)

	row, err = repo.GetByID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, row)

	assert.NoError(t, repo.Ping(ctx))
}

func TestUplinkHistoryRepo_DeleteOlderThan(t *testing.T) {
	repo := setupHistoryRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	for i, age := range []time.Duration{time.Hour, 40 * 24 * time.Hour, 90 * 24 * time.Hour} {
		require.NoError(t, repo.Insert(ctx, &entities.UplinkHistory{
			ID: string(rune('a' + i)), PilotID: "123456", Status: "done", CreatedAt: now.Add(-age),
		}))
	}

	n, err := repo.DeleteOlderThan(ctx, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rows, err := repo.ListByPilot(ctx, "123456", 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0].ID)
}
