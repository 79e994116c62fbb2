package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq" // postgres driver
)

const statementTimeout = 5 * time.Second

// PostgresLedger stores the world state in a single
// world_state(key, value) table, for running the service against a
// durable store instead of the in-process ledger.
type PostgresLedger struct {
	db *sql.DB
}

// OpenPostgres connects to Postgres with the given DSN and verifies
// the connection.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresLedger, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgresLedger{db: db}, nil
}

// EnsureSchema creates the world_state table if it does not exist.
func (l *PostgresLedger) EnsureSchema(ctx context.Context) error {
	createSQL := `CREATE TABLE IF NOT EXISTS world_state (key TEXT PRIMARY KEY, value BYTEA NOT NULL)`
	execCtx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()

	_, err := l.db.ExecContext(execCtx, createSQL)
	return err
}

// Get returns the bytes stored under key, or (nil, nil) when absent.
func (l *PostgresLedger) Get(ctx context.Context, key string) ([]byte, error) {
	querySQL := `SELECT value FROM world_state WHERE key = $1`
	queryCtx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()

	var value []byte
	err := l.db.QueryRowContext(queryCtx, querySQL, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Put stores value under key, overwriting any previous value.
func (l *PostgresLedger) Put(ctx context.Context, key string, value []byte) error {
	upsertSQL := `INSERT INTO world_state(key, value) VALUES($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
	execCtx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()

	_, err := l.db.ExecContext(execCtx, upsertSQL, key, value)
	return err
}

// Delete removes key. A no-op when the key is absent.
func (l *PostgresLedger) Delete(ctx context.Context, key string) error {
	deleteSQL := `DELETE FROM world_state WHERE key = $1`
	execCtx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()

	_, err := l.db.ExecContext(execCtx, deleteSQL, key)
	return err
}

// Range scans [startKey, endKey) in ascending key order. Empty bounds
// scan everything. The iterator holds the underlying rows open until
// Close.
func (l *PostgresLedger) Range(ctx context.Context, startKey, endKey string) (Iterator, error) {
	querySQL := `SELECT key, value FROM world_state
		WHERE ($1 = '' OR key >= $1) AND ($2 = '' OR key < $2)
		ORDER BY key ASC`
	queryCtx, cancel := context.WithTimeout(ctx, statementTimeout)

	rows, err := l.db.QueryContext(queryCtx, querySQL, startKey, endKey)
	if err != nil {
		cancel()
		return nil, err
	}

	return &postgresIterator{rows: rows, cancel: cancel}, nil
}

// Close closes the underlying connection pool.
func (l *PostgresLedger) Close() error {
	return l.db.Close()
}

type postgresIterator struct {
	rows   *sql.Rows
	cancel context.CancelFunc
	key    string
	value  []byte
	err    error
}

func (it *postgresIterator) Next() bool {
	if it.err != nil || !it.rows.Next() {
		return false
	}
	if err := it.rows.Scan(&it.key, &it.value); err != nil {
		it.err = err
		return false
	}
	return true
}

func (it *postgresIterator) Key() string {
	return it.key
}

func (it *postgresIterator) Value() []byte {
	return it.value
}

func (it *postgresIterator) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.rows.Err()
}

func (it *postgresIterator) Close() error {
	defer it.cancel()
	return it.rows.Close()
}
