package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Dan9191/reasonable-comp/internal/models"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect selects placeholder style and driver
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) driver() string {
	if d == SQLite {
		return "sqlite3"
	}
	return "postgres"
}

// DefaultRetain is how many snapshots SaveSnapshot keeps
const DefaultRetain = 7

// Repository stores market data snapshots
type Repository struct {
	db      *sql.DB
	dialect Dialect
	retain  int
}

// Open connects to the database and checks it is reachable
func Open(dialect Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(dialect.driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// NewRepository initializes a new repository. retain <= 0 uses DefaultRetain.
func NewRepository(db *sql.DB, dialect Dialect, retain int) *Repository {
	if retain <= 0 {
		retain = DefaultRetain
	}
	return &Repository{db: db, dialect: dialect, retain: retain}
}

// EnsureSchema creates the snapshot table if it is missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS market_snapshots (
			id TEXT PRIMARY KEY,
			refreshed_at BIGINT NOT NULL,
			point_count INTEGER NOT NULL,
			points TEXT NOT NULL
		)`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create market_snapshots: %w", err)
	}
	index := `CREATE INDEX IF NOT EXISTS idx_market_snapshots_refreshed_at ON market_snapshots (refreshed_at)`
	if _, err := r.db.ExecContext(ctx, index); err != nil {
		return fmt.Errorf("failed to create snapshot index: %w", err)
	}
	return nil
}

// SaveSnapshot stores snap and prunes all but the newest snapshots
func (r *Repository) SaveSnapshot(ctx context.Context, snap models.MarketSnapshot) error {
	points := snap.Points
	if points == nil {
		points = []models.MarketDataPoint{}
	}
	payload, err := json.Marshal(points)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot points: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := r.rebind(`
		INSERT INTO market_snapshots (id, refreshed_at, point_count, points)
		VALUES (?, ?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, query, snap.ID, snap.RefreshedAt.UnixNano(), len(points), string(payload)); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	if _, err := r.prune(ctx, tx, r.retain); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the newest snapshot, or nil if there is none
func (r *Repository) LatestSnapshot(ctx context.Context) (*models.MarketSnapshot, error) {
	query := `
		SELECT id, refreshed_at, points
		FROM market_snapshots
		ORDER BY refreshed_at DESC
		LIMIT 1`
	var (
		snap      models.MarketSnapshot
		refreshed int64
		payload   string
	)
	err := r.db.QueryRowContext(ctx, query).Scan(&snap.ID, &refreshed, &payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &snap.Points); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", snap.ID, err)
	}
	snap.RefreshedAt = time.Unix(0, refreshed).UTC()
	return &snap, nil
}

// CountSnapshots returns how many snapshots are stored
func (r *Repository) CountSnapshots(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM market_snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return n, nil
}

// PruneSnapshots deletes all but the newest keep snapshots
func (r *Repository) PruneSnapshots(ctx context.Context, keep int) (int64, error) {
	return r.prune(ctx, r.db, keep)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *Repository) prune(ctx context.Context, db execer, keep int) (int64, error) {
	query := r.rebind(`
		DELETE FROM market_snapshots
		WHERE id NOT IN (
			SELECT id FROM market_snapshots
			ORDER BY refreshed_at DESC
			LIMIT ?
		)`)
	res, err := db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned snapshots: %w", err)
	}
	return n, nil
}

// rebind turns ? placeholders into $n for postgres
func (r *Repository) rebind(query string) string {
	if r.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
