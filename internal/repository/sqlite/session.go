package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/vidshare/internal/model"
	"github.com/sakif/vidshare/internal/repository"
)

// compile-time check that *DB implements repository.SessionRepository
var _ repository.SessionRepository = (*DB)(nil)

const upsertValue = `
	INSERT INTO session_values (session_key, name, value, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(session_key, name) DO UPDATE SET
		value      = excluded.value,
		updated_at = excluded.updated_at`

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Get returns the value stored under name for the session.
func (db *DB) Get(ctx context.Context, sessionKey, name string) (string, bool, error) {
	var value string
	err := db.conn.QueryRowContext(ctx,
		`SELECT value FROM session_values WHERE session_key = ? AND name = ?`,
		sessionKey, name,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("sqlite: reading %s: %w", name, err)
	}
	return value, true, nil
}

// Credentials reads the bundle with a single statement, so it sees either
// the whole of one SetCredentials transaction or none of it.
func (db *DB) Credentials(ctx context.Context, sessionKey string) (model.Credentials, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT name, value FROM session_values WHERE session_key = ? AND name IN (?, ?, ?)`,
		sessionKey, model.KeyAccessToken, model.KeyRefreshToken, model.KeyEmail,
	)
	if err != nil {
		return model.Credentials{}, fmt.Errorf("sqlite: reading credentials: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string, len(model.CredentialKeys))
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return model.Credentials{}, fmt.Errorf("sqlite: scanning credentials: %w", err)
		}
		values[name] = value
	}
	if err := rows.Err(); err != nil {
		return model.Credentials{}, fmt.Errorf("sqlite: reading credentials: %w", err)
	}
	return model.CredentialsFrom(values), nil
}

// Set stores a single value.
func (db *DB) Set(ctx context.Context, sessionKey, name, value string) error {
	if err := setValue(ctx, db.conn, sessionKey, name, value); err != nil {
		return fmt.Errorf("sqlite: writing %s: %w", name, err)
	}
	return nil
}

// SetCredentials writes accessToken, refreshToken and email in one
// transaction. If any write fails the transaction rolls back and the previous
// bundle stays in place.
func (db *DB) SetCredentials(ctx context.Context, sessionKey string, creds model.Credentials) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning credentials write: %w", err)
	}
	// Rollback after a successful Commit is a no-op.
	defer tx.Rollback()

	values := creds.Values()
	for _, name := range model.CredentialKeys {
		if err := setValue(ctx, tx, sessionKey, name, values[name]); err != nil {
			return fmt.Errorf("sqlite: writing %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing credentials: %w", err)
	}
	return nil
}

// DeleteCredentials removes the bundle in a single statement.
func (db *DB) DeleteCredentials(ctx context.Context, sessionKey string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM session_values WHERE session_key = ? AND name IN (?, ?, ?)`,
		sessionKey, model.KeyAccessToken, model.KeyRefreshToken, model.KeyEmail,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting credentials: %w", err)
	}
	return nil
}

func setValue(ctx context.Context, ex execer, sessionKey, name, value string) error {
	_, err := ex.ExecContext(ctx, upsertValue, sessionKey, name, value, time.Now().UTC())
	return err
}
