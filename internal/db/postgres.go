package db

import (
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"infinite-experiment/fmsuplink/internal/logging"
)

// InitPostgres connects to the history database, retrying while Postgres
// starts up.
func InitPostgres(dsn string) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)

	for i := 0; i < 10; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			logging.Info("Connected to Postgres via sqlx")
			return db, nil
		}
		logging.Warn("Postgres not ready, retrying", "attempt", i+1, "error", err)
		time.Sleep(500 * time.Millisecond)
	}
	return nil, err
}
