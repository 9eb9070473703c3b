package entities

import "time"

// UplinkHistory is one row of the uplink_history table
type UplinkHistory struct {
	ID          string    `db:"id"`
	PilotID     string    `db:"pilot_id"`
	Origin      string    `db:"origin"`
	Destination string    `db:"destination"`
	ChunkCount  int       `db:"chunk_count"`
	LegCount    int       `db:"leg_count"`
	Status      string    `db:"status"`
	Error       string    `db:"error"`
	DurationMs  int64     `db:"duration_ms"`
	CreatedAt   time.Time `db:"created_at"`
}
