package cache

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SQLiteStore is a Store backed by SQLite, one table per namespace.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
//
// Persistence matters here: a process restart must not lose knowledge of
// previously-seen requests, so collaborator calls stay idempotent across
// restarts.
type SQLiteStore struct {
	db *sql.DB
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore initializes the required schema in the given database and
// returns a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	for _, table := range []string{"ephemeral_cache", "durable_cache"} {
		if _, err := s.db.Exec(`
			CREATE TABLE IF NOT EXISTS ` + table + ` (
				cache_key TEXT PRIMARY KEY,
				value BLOB,
				created_at INTEGER NOT NULL,
				expires_at INTEGER NOT NULL,
				hit_count INTEGER NOT NULL DEFAULT 0
			);`,
		); err != nil {
			return err
		}
		if _, err := s.db.Exec(`
			CREATE INDEX IF NOT EXISTS idx_` + table + `_expires
			ON ` + table + `(expires_at);`,
		); err != nil {
			return err
		}
	}
	return nil
}

func tableFor(ns Namespace) (string, error) {
	switch ns {
	case NamespaceEphemeral:
		return "ephemeral_cache", nil
	case NamespaceDurable:
		return "durable_cache", nil
	default:
		return "", ErrUnknownNamespace
	}
}

func (s *SQLiteStore) Get(ctx context.Context, ns Namespace, key string) ([]byte, bool, error) {
	table, err := tableFor(ns)
	if err != nil {
		return nil, false, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT value, expires_at FROM `+table+`
		WHERE cache_key = ?`,
		key,
	)

	var value []byte
	var expiresAt int64
	if err := row.Scan(&value, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	// Expired entries are treated as misses and left for EvictExpired.
	if time.Now().UnixNano() >= expiresAt {
		return nil, false, nil
	}

	// Hit accounting is best-effort; a failed update does not void the hit.
	_, _ = s.db.ExecContext(ctx, `
		UPDATE `+table+` SET hit_count = hit_count + 1
		WHERE cache_key = ?`,
		key,
	)

	return value, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, ns Namespace, key string, value []byte, ttl time.Duration) error {
	table, err := tableFor(ns)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO `+table+` (cache_key, value, created_at, expires_at, hit_count)
		VALUES (?, ?, ?, ?, 0)
		ON CONFLICT(cache_key) DO UPDATE SET
			value = excluded.value,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at,
			hit_count = 0`,
		key,
		value,
		now.UnixNano(),
		now.Add(ttl).UnixNano(),
	)
	return err
}

func (s *SQLiteStore) EvictExpired(ctx context.Context, ns Namespace) (int, error) {
	table, err := tableFor(ns)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM `+table+` WHERE expires_at <= ?`,
		time.Now().UnixNano(),
	)
	if err != nil {
		return 0, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *SQLiteStore) Stats(ctx context.Context, ns Namespace) (Stats, error) {
	table, err := tableFor(ns)
	if err != nil {
		return Stats{}, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(CASE WHEN expires_at > ? THEN 1 END),
			COUNT(CASE WHEN expires_at <= ? THEN 1 END),
			COALESCE(SUM(hit_count), 0)
		FROM `+table,
		time.Now().UnixNano(),
		time.Now().UnixNano(),
	)

	var st Stats
	if err := row.Scan(&st.Entries, &st.Expired, &st.Hits); err != nil {
		return Stats{}, err
	}
	return st, nil
}
