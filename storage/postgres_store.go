package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"realty-scanner/models"
)

// PostgresStore keeps the latest snapshot in PostgreSQL. Each Save replaces
// the previous snapshot inside one transaction; no history is kept.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresStore.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			_ = db.Close()
			return nil, fmt.Errorf("postgres: ping: %w", ctx.Err())
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

func (ps *PostgresStore) migrate(ctx context.Context) error {
	_, err := ps.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS snapshot_meta (
			singleton  BOOLEAN     PRIMARY KEY DEFAULT TRUE CHECK (singleton),
			taken_at   TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS snapshot_listings (
			search     VARCHAR(100) NOT NULL,
			position   INTEGER      NOT NULL,
			mls        VARCHAR(50)  NOT NULL,
			price      NUMERIC(12,2) NOT NULL DEFAULT 0,
			address    TEXT         NOT NULL DEFAULT '',
			data       JSONB        NOT NULL,
			PRIMARY KEY (search, mls)
		);

		CREATE INDEX IF NOT EXISTS idx_snapshot_listings_mls ON snapshot_listings(mls);
	`)
	return err
}

// Load returns nil without error when no snapshot has been saved yet.
func (ps *PostgresStore) Load(ctx context.Context) (*models.ScanSnapshot, error) {
	snap := &models.ScanSnapshot{Searches: make(map[string][]models.Listing)}

	err := ps.db.QueryRowContext(ctx, `SELECT taken_at FROM snapshot_meta WHERE singleton`).Scan(&snap.TakenAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: load meta: %w", err)
	}

	rows, err := ps.db.QueryContext(ctx, `
		SELECT search, data
		FROM snapshot_listings
		ORDER BY search, position
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: load listings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			search string
			data   []byte
			l      models.Listing
		)
		if err := rows.Scan(&search, &data); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, fmt.Errorf("postgres: decode listing: %w", err)
		}
		snap.Searches[search] = append(snap.Searches[search], l)
	}
	return snap, rows.Err()
}

// Save replaces the stored snapshot with snap.
func (ps *PostgresStore) Save(ctx context.Context, snap *models.ScanSnapshot) error {
	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshot_listings"); err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}

	for search, listings := range snap.Searches {
		const batchSize = 50
		for i := 0; i < len(listings); i += batchSize {
			end := i + batchSize
			if end > len(listings) {
				end = len(listings)
			}
			query, args, err := buildInsert(search, i, listings[i:end])
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("postgres: insert %s: %w", search, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshot_meta (singleton, taken_at) VALUES (TRUE, $1)
		ON CONFLICT (singleton) DO UPDATE SET taken_at = EXCLUDED.taken_at
	`, snap.TakenAt); err != nil {
		return fmt.Errorf("postgres: write meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// buildInsert builds one multi-row insert; offset is the position of the
// first listing within its search.
func buildInsert(search string, offset int, batch []models.Listing) (string, []interface{}, error) {
	const cols = 6
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*cols)

	for idx, l := range batch {
		data, err := json.Marshal(l)
		if err != nil {
			return "", nil, fmt.Errorf("postgres: encode listing %s: %w", l.ID, err)
		}
		base := idx * cols
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6))
		valueArgs = append(valueArgs, search, offset+idx, l.ID, l.Price, l.Address, string(data))
	}

	query := fmt.Sprintf(`
		INSERT INTO snapshot_listings (search, position, mls, price, address, data)
		VALUES %s
		ON CONFLICT (search, mls) DO NOTHING
	`, strings.Join(valueStrings, ","))

	return query, valueArgs, nil
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
