package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/wsn-query/internal/pkg/table"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Db struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg Config) (Db, error) {
	p, err := connect(ctx, cfg)
	if err != nil {
		return Db{}, err
	}

	err = initialize(ctx, p)
	if err != nil {
		p.Close()
		return Db{}, err
	}

	return Db{
		pool: p,
	}, nil
}

func (db Db) Close() {
	db.pool.Close()
}

func initialize(ctx context.Context, pool *pgxpool.Pool) error {
	log := logging.GetFromContext(ctx)

	ddl := `
	CREATE TABLE IF NOT EXISTS wsn_records (
		node_id     BIGSERIAL,
		mote        TEXT    NOT NULL DEFAULT '',
		sensor      TEXT    NOT NULL DEFAULT '',
		epoch       BIGINT  NOT NULL,
		observed_at timestamp with time zone NOT NULL,
		data        JSONB   NULL,
		created_on  timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
		modified_on timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (node_id)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS wsn_records_reading_idx ON wsn_records (mote, sensor, epoch);
	CREATE INDEX IF NOT EXISTS wsn_records_observed_at_idx ON wsn_records (observed_at DESC);
	`

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Error("could not begin transaction", "err", err.Error())
		return err
	}

	_, err = tx.Exec(ctx, ddl)
	if err != nil {
		log.Error("could not execute ddl statement", "err", err.Error())
		tx.Rollback(ctx)
		return err
	}

	err = tx.Commit(ctx)
	if err != nil {
		log.Error("could not commit transaction", "err", err.Error())
		return err
	}

	return nil
}

func connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	conn, err := pgxpool.New(ctx, cfg.ConnStr())
	if err != nil {
		return nil, err
	}

	err = conn.Ping(ctx)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return conn, err
}

// StoreTable upserts every row that has a timestamp and returns the number of
// stored rows. Rows are written in a single transaction.
func (db Db) StoreTable(ctx context.Context, t *table.Table) (int, error) {
	log := logging.GetFromContext(ctx)

	rows, skipped := newRows(t)
	if skipped > 0 {
		log.Debug("rows without timestamp will not be stored", "count", skipped)
	}

	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		log.Error("could not begin transaction", "err", err.Error())
		return 0, err
	}

	for _, r := range rows {
		_, err = tx.Exec(ctx, upsertRecord, r.args())
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) {
				log.Debug("upsert statement failed", "err", pgErr.Error(), "code", pgErr.Code, "message", pgErr.Message)
			}
			tx.Rollback(ctx)
			return 0, fmt.Errorf("could not store row %d: %w", r.index, err)
		}
	}

	err = tx.Commit(ctx)
	if err != nil {
		log.Error("could not commit transaction", "err", err.Error())
		return 0, err
	}

	return len(rows), nil
}

// CountRecords returns the number of stored readings for a mote.
func (db Db) CountRecords(ctx context.Context, mote string) (int64, error) {
	var n int64
	err := db.pool.QueryRow(ctx, `SELECT count(*) FROM wsn_records WHERE mote=@mote`, pgx.NamedArgs{"mote": mote}).Scan(&n)
	return n, err
}
