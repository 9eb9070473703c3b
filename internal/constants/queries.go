package constants

const (
	InsertUplinkHistory = `
	INSERT INTO uplink_history (id, pilot_id, origin, destination, chunk_count, leg_count, status, error, duration_ms, created_at)
	VALUES (:id, :pilot_id, :origin, :destination, :chunk_count, :leg_count, :status, :error, :duration_ms, :created_at)
	`

	GetUplinkHistoryByPilot = `
	SELECT * FROM uplink_history WHERE pilot_id = $1 ORDER BY created_at DESC LIMIT $2
	`

	GetUplinkHistoryByID = `
	SELECT * FROM uplink_history WHERE id = $1
	`

	DeleteUplinkHistoryBefore = `
	DELETE FROM uplink_history WHERE created_at < $1
	`

	CreateUplinkHistoryTable = `
	CREATE TABLE IF NOT EXISTS uplink_history (
		id UUID PRIMARY KEY,
		pilot_id TEXT NOT NULL,
		origin TEXT NOT NULL DEFAULT '',
		destination TEXT NOT NULL DEFAULT '',
		chunk_count INTEGER NOT NULL DEFAULT 0,
		leg_count INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		duration_ms BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
	`
)
