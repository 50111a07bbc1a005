package metadata

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrijs2005/gophgallery/internal/dbx"
)

// SQLiteRepository stores session values in the metadata table. It works on
// a *sql.DB as well as inside a transaction; SetMany is only atomic in the
// latter.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) GetMany(ctx context.Context, keys ...Key) (map[Key][]byte, error) {
	result := make(map[Key][]byte, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	query := `SELECT key, value FROM metadata WHERE key IN (` + placeholders(len(keys)) + `)`
	rows, err := r.db.QueryContext(ctx, query, keyArgs(keys)...)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata %v: %w", keys, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		result[Key(key)] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate metadata rows: %w", err)
	}
	return result, nil
}

// SetMany upserts every pair in key order. An empty value deletes its key.
func (r *SQLiteRepository) SetMany(ctx context.Context, values map[Key][]byte) error {
	keys := make([]Key, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		v := values[k]
		if len(v) == 0 {
			if err := r.Delete(ctx, k); err != nil {
				return err
			}
			continue
		}
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO metadata (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, string(k), v)
		if err != nil {
			return fmt.Errorf("failed to set metadata[%s]: %w", k, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, keys ...Key) error {
	if len(keys) == 0 {
		return nil
	}
	query := `DELETE FROM metadata WHERE key IN (` + placeholders(len(keys)) + `)`
	if _, err := r.db.ExecContext(ctx, query, keyArgs(keys)...); err != nil {
		return fmt.Errorf("failed to delete metadata %v: %w", keys, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM metadata`); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func keyArgs(keys []Key) []any {
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = string(k)
	}
	return args
}
