// Package sessionstore persists the authenticated session on the device.
package sessionstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boddenberg/spendsense-go/internal/domain"
	"github.com/boddenberg/spendsense-go/internal/port"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLite keeps the session in a single-row table.
type SQLite struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ port.SessionStore = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the session database at path.
func OpenSQLite(path string, logger *zap.Logger) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}
	// One writer; sqlite serializes anyway and this avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping session database: %w", err)
	}
	if err := runMigrations(path); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("session store opened", zap.String("path", path))
	return &SQLite{db: db, logger: logger}, nil
}

// Close releases the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Load(ctx context.Context) (*domain.Session, error) {
	var (
		sess                domain.Session
		userID, name, email sql.NullString
		updatedAt           string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT token, token_type, user_id, user_name, user_email, updated_at FROM session WHERE id = 1`,
	).Scan(&sess.Token, &sess.TokenType, &userID, &name, &email, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	if userID.Valid {
		sess.User = &domain.User{ID: domain.ID(userID.String), Name: name.String, Email: email.String}
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		sess.UpdatedAt = t
	}
	return &sess, nil
}

func (s *SQLite) Save(ctx context.Context, sess *domain.Session) error {
	if !sess.Authenticated() {
		return errors.New("save session: missing token")
	}

	var userID, name, email sql.NullString
	if sess.User != nil {
		userID = sql.NullString{String: sess.User.ID.String(), Valid: true}
		name = sql.NullString{String: sess.User.Name, Valid: true}
		email = sql.NullString{String: sess.User.Email, Valid: true}
	}
	updatedAt := sess.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session (id, token, token_type, user_id, user_name, user_email, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			token_type = excluded.token_type,
			user_id = excluded.user_id,
			user_name = excluded.user_name,
			user_email = excluded.user_email,
			updated_at = excluded.updated_at`,
		sess.Token, sess.TokenType, userID, name, email, updatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SQLite) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
