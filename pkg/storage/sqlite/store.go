package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"livechart/pkg/storage"

	_ "modernc.org/sqlite"
)

var _ storage.SampleStore = (*Store)(nil)

// Store persists price samples to a SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database and runs migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single writer connection keeps SQLite from returning SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_sample (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			product     TEXT    NOT NULL,
			price       REAL    NOT NULL,
			observed_at INTEGER NOT NULL,
			recorded_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_sample_product_observed ON price_sample(product, observed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_price_sample_observed ON price_sample(observed_at)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// SaveSample stores observed_at as unix nanoseconds.
func (s *Store) SaveSample(ctx context.Context, sample storage.Sample) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO price_sample (product, price, observed_at, recorded_at) VALUES (?,?,?,?)`,
		sample.Product, sample.Price, sample.ObservedAt.UnixNano(), time.Now().UnixNano(),
	)
	return err
}

func (s *Store) RecentSamples(ctx context.Context, product string, limit int) ([]storage.Sample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT product, price, observed_at FROM (
			SELECT id, product, price, observed_at FROM price_sample
			WHERE product = ?
			ORDER BY observed_at DESC, id DESC
			LIMIT ?
		) ORDER BY observed_at ASC, id ASC`,
		product, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent samples: %w", err)
	}
	defer rows.Close()

	var out []storage.Sample
	for rows.Next() {
		var (
			sample storage.Sample
			nanos  int64
		)
		if err := rows.Scan(&sample.Product, &sample.Price, &nanos); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		sample.ObservedAt = time.Unix(0, nanos).UTC()
		out = append(out, sample)
	}
	return out, rows.Err()
}

func (s *Store) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM price_sample WHERE observed_at < ?`, before.UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) Close() error {
	return s.db.Close()
}
