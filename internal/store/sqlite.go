// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides principal persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS principals (
			id TEXT PRIMARY KEY,
			integration TEXT NOT NULL,
			integration_user_id TEXT NOT NULL,
			api_key TEXT NOT NULL,
			team_id TEXT NOT NULL DEFAULT '',
			broker_id TEXT NOT NULL DEFAULT '',
			shop_id TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_principals_composite
			ON principals(integration, api_key, team_id, broker_id, shop_id);
		CREATE INDEX IF NOT EXISTS idx_principals_api_key ON principals(api_key);
		CREATE INDEX IF NOT EXISTS idx_principals_status ON principals(status);

		CREATE TABLE IF NOT EXISTS audit_log (
			id TEXT PRIMARY KEY,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			target_type TEXT NOT NULL,
			target_id TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			detail TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_log(timestamp);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// FindPrincipal performs an exact composite-key match. Every non-empty
// criteria field constrains the query; if the remaining freedom still matches
// more than one row the lookup fails with ErrAmbiguous rather than guessing,
// so a key shared across tenants can never leak another tenant's principal.
func (s *SQLiteStore) FindPrincipal(ctx context.Context, c Criteria) (*Principal, error) {
	if c.APIKey == "" {
		return nil, ErrNotFound
	}

	query := strings.Builder{}
	query.WriteString(`
		SELECT id, integration, integration_user_id, api_key, team_id, broker_id, shop_id, email, status, created_at, updated_at
		FROM principals WHERE integration = ? AND api_key = ?`)
	args := []any{string(c.Integration), c.APIKey}

	if c.TeamID != "" {
		query.WriteString(" AND team_id = ?")
		args = append(args, c.TeamID)
	}
	if c.BrokerID != "" {
		query.WriteString(" AND broker_id = ?")
		args = append(args, c.BrokerID)
	}
	if c.ShopID != "" {
		query.WriteString(" AND shop_id = ?")
		args = append(args, c.ShopID)
	}
	query.WriteString(" LIMIT 2")

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying principal: %w", err)
	}
	defer rows.Close()

	var matches []*Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading principal rows: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return nil, ErrAmbiguous
	}
}

// GetPrincipal retrieves a principal by its internal ID.
func (s *SQLiteStore) GetPrincipal(ctx context.Context, id string) (*Principal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, integration, integration_user_id, api_key, team_id, broker_id, shop_id, email, status, created_at, updated_at
		FROM principals WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("querying principal: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("reading principal row: %w", err)
		}
		return nil, ErrNotFound
	}
	return scanPrincipal(rows)
}

// CreatePrincipal inserts a new principal. The full composite tuple must be
// unique; violations surface as ErrDuplicatePrincipal.
func (s *SQLiteStore) CreatePrincipal(ctx context.Context, p *Principal) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	if p.Status == "" {
		p.Status = PrincipalStatusActive
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO principals (id, integration, integration_user_id, api_key, team_id, broker_id, shop_id, email, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, string(p.Integration), p.IntegrationUserID, p.APIKey,
		p.TeamID, p.BrokerID, p.ShopID, p.Email, string(p.Status),
		p.CreatedAt.Format(time.RFC3339Nano), p.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicatePrincipal
		}
		return fmt.Errorf("inserting principal: %w", err)
	}
	return nil
}

// isConstraintViolation reports whether err is an SQLITE_CONSTRAINT failure.
// For this schema that means the composite identity tuple (or the ID) is
// already registered. The extended result code carries the constraint kind in
// the high byte; masking keeps the primary code.
func isConstraintViolation(err error) bool {
	var serr *sqlite.Error
	return errors.As(err, &serr) && serr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

// UpdatePrincipalStatus changes a principal's status (active/revoked).
func (s *SQLiteStore) UpdatePrincipalStatus(ctx context.Context, id string, status PrincipalStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE principals SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("updating principal status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPrincipals returns principals matching the filter, newest first.
func (s *SQLiteStore) ListPrincipals(ctx context.Context, filter PrincipalFilter) ([]Principal, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT id, integration, integration_user_id, api_key, team_id, broker_id, shop_id, email, status, created_at, updated_at
		FROM principals WHERE 1=1`)
	var args []any
	if filter.Integration != nil {
		query.WriteString(" AND integration = ?")
		args = append(args, string(*filter.Integration))
	}
	if filter.Status != nil {
		query.WriteString(" AND status = ?")
		args = append(args, string(*filter.Status))
	}
	query.WriteString(" ORDER BY created_at DESC")

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("listing principals: %w", err)
	}
	defer rows.Close()

	var out []Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// DeletePrincipal removes a principal by ID.
func (s *SQLiteStore) DeletePrincipal(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM principals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting principal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanPrincipal(rows *sql.Rows) (*Principal, error) {
	var p Principal
	var integration, status, createdAt, updatedAt string
	if err := rows.Scan(&p.ID, &integration, &p.IntegrationUserID, &p.APIKey,
		&p.TeamID, &p.BrokerID, &p.ShopID, &p.Email, &status, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("scanning principal: %w", err)
	}
	p.Integration = IntegrationType(integration)
	p.Status = PrincipalStatus(status)

	var err error
	if p.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &p, nil
}
