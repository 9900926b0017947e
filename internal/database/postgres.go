package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pageaudit/pageaudit/internal/audit"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the connection pool used for audit rows.
type PostgresConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// pgxPool is the subset of pgxpool.Pool the store needs. pgxmock satisfies it.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// PostgresStore persists audit records in a Postgres table. The full result
// document lives in a JSONB column; the filterable fields are promoted to
// their own columns.
//
// Expected schema:
//
//	CREATE TABLE audits (
//	    id TEXT PRIMARY KEY,
//	    url TEXT NOT NULL,
//	    overall_score INT NOT NULL,
//	    user_id TEXT NOT NULL DEFAULT '',
//	    created_at TIMESTAMPTZ NOT NULL,
//	    result JSONB NOT NULL
//	);
type PostgresStore struct {
	pool  pgxPool
	table string
	ids   IDSource
}

// NewPostgresStore connects a pool and returns the store.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig, ids IDSource) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "audits"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresStore{pool: pool, table: table, ids: ids}, nil
}

// NewPostgresStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewPostgresStoreWithPool(pool pgxPool, table string, ids IDSource) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "audits"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresStore{pool: pool, table: table, ids: ids}, nil
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Save upserts the audit record and returns its ID.
func (s *PostgresStore) Save(ctx context.Context, result audit.Result) (string, error) {
	if result.ID == "" {
		id, err := s.ids.NewID()
		if err != nil {
			return "", fmt.Errorf("generate audit id: %w", err)
		}
		result.ID = id
	}
	doc, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("marshal audit result: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (id, url, overall_score, user_id, created_at, result)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
	url = EXCLUDED.url,
	overall_score = EXCLUDED.overall_score,
	user_id = EXCLUDED.user_id,
	created_at = EXCLUDED.created_at,
	result = EXCLUDED.result`, s.table)
	if _, err := s.pool.Exec(ctx, query,
		result.ID,
		result.URL,
		result.Overall,
		result.UserID,
		result.CreatedAt,
		doc,
	); err != nil {
		return "", fmt.Errorf("insert audit: %w", err)
	}
	return result.ID, nil
}

// Get loads one audit record or returns audit.ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, id string) (audit.Result, error) {
	query := fmt.Sprintf(`SELECT result FROM %s WHERE id = $1`, s.table)
	var doc []byte
	if err := s.pool.QueryRow(ctx, query, id).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return audit.Result{}, audit.ErrNotFound
		}
		return audit.Result{}, fmt.Errorf("select audit: %w", err)
	}
	var result audit.Result
	if err := json.Unmarshal(doc, &result); err != nil {
		return audit.Result{}, fmt.Errorf("unmarshal audit result: %w", err)
	}
	if result.ID == "" {
		result.ID = id
	}
	return result, nil
}

// List returns summaries matching the filters, newest first.
func (s *PostgresStore) List(ctx context.Context, filters audit.ListFilters) ([]audit.Summary, error) {
	var (
		clauses []string
		args    []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filters.URLSubstring != "" {
		clauses = append(clauses, fmt.Sprintf("url LIKE %s", arg("%"+filters.URLSubstring+"%")))
	}
	if filters.MinScore > 0 {
		clauses = append(clauses, fmt.Sprintf("overall_score >= %s", arg(filters.MinScore)))
	}
	if filters.UserID != "" {
		clauses = append(clauses, fmt.Sprintf("user_id = %s", arg(filters.UserID)))
	}
	if !filters.DateFrom.IsZero() {
		clauses = append(clauses, fmt.Sprintf("created_at >= %s", arg(filters.DateFrom)))
	}
	if !filters.DateTo.IsZero() {
		clauses = append(clauses, fmt.Sprintf("created_at <= %s", arg(filters.DateTo)))
	}
	query := fmt.Sprintf(`SELECT id, url, overall_score, user_id, created_at FROM %s`, s.table)
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audits: %w", err)
	}
	defer rows.Close()

	var out []audit.Summary
	for rows.Next() {
		var sum audit.Summary
		if err := rows.Scan(&sum.ID, &sum.URL, &sum.Overall, &sum.UserID, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit rows: %w", err)
	}
	return out, nil
}

// Delete removes the record and reports whether a row was deleted.
func (s *PostgresStore) Delete(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table)
	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete audit: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
