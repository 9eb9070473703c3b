package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"infinite-experiment/fmsuplink/internal/constants"
	"infinite-experiment/fmsuplink/internal/models/entities"
)

const defaultHistoryLimit = 20

type UplinkHistoryRepo struct {
	db *sqlx.DB
}

func NewUplinkHistoryRepo(db *sqlx.DB) *UplinkHistoryRepo {
	return &UplinkHistoryRepo{db}
}

// EnsureSchema creates the uplink_history table if it does not exist
func (r *UplinkHistoryRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, constants.CreateUplinkHistoryTable)
	return err
}

func (r *UplinkHistoryRepo) Insert(ctx context.Context, h *entities.UplinkHistory) error {
	_, err := r.db.NamedExecContext(ctx, constants.InsertUplinkHistory, h)
	return err
}

// ListByPilot returns the most recent runs of pilotID, newest first
func (r *UplinkHistoryRepo) ListByPilot(ctx context.Context, pilotID string, limit int) ([]entities.UplinkHistory, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	var rows []entities.UplinkHistory
	if err := r.db.SelectContext(ctx, &rows, constants.GetUplinkHistoryByPilot, pilotID, limit); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetByID returns nil, nil when no row matches
func (r *UplinkHistoryRepo) GetByID(ctx context.Context, id string) (*entities.UplinkHistory, error) {
	var row entities.UplinkHistory

	err := r.db.QueryRowxContext(ctx, constants.GetUplinkHistoryByID, id).StructScan(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// DeleteOlderThan removes runs created before cutoff and returns how many
// were removed
func (r *UplinkHistoryRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, constants.DeleteUplinkHistoryBefore, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *UplinkHistoryRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
