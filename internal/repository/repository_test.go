package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/Dan9191/reasonable-comp/internal/models"
)

func newSQLiteRepository(t *testing.T, retain int) *Repository {
	t.Helper()
	db, err := Open(SQLite, filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db, SQLite, retain)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return repo
}

func snapshotAt(id string, at time.Time) models.MarketSnapshot {
	return models.MarketSnapshot{
		ID:          id,
		RefreshedAt: at,
		Points: []models.MarketDataPoint{{
			State:       "CA",
			Industry:    "technology",
			Role:        models.RoleExec,
			Salary:      174000,
			Source:      "Industry Analysis",
			Kind:        models.SourceIndustry,
			LastUpdated: at,
			Confidence:  0.8,
		}},
	}
}

func TestLatestSnapshot_Empty(t *testing.T) {
	repo := newSQLiteRepository(t, 0)
	snap, err := repo.LatestSnapshot(context.Background())
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if snap != nil {
		t.Errorf("expected nil, got %+v", snap)
	}
}

func TestSaveAndLoadSnapshot(t *testing.T) {
	repo := newSQLiteRepository(t, 0)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	if err := repo.SaveSnapshot(ctx, snapshotAt("older", base)); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if err := repo.SaveSnapshot(ctx, snapshotAt("newer", base.Add(time.Hour))); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	snap, err := repo.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if snap.ID != "newer" || !snap.RefreshedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("got %s at %v", snap.ID, snap.RefreshedAt)
	}
	if len(snap.Points) != 1 {
		t.Fatalf("points: got %d", len(snap.Points))
	}
	p := snap.Points[0]
	if p.Industry != "technology" || p.Salary != 174000 || p.Kind != models.SourceIndustry || !p.LastUpdated.Equal(base.Add(time.Hour)) {
		t.Errorf("point: got %+v", p)
	}
}

func TestSaveSnapshot_EmptyPoints(t *testing.T) {
	repo := newSQLiteRepository(t, 0)
	ctx := context.Background()
	if err := repo.SaveSnapshot(ctx, models.MarketSnapshot{ID: "empty", RefreshedAt: time.Now()}); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	snap, err := repo.LatestSnapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if snap == nil || snap.ID != "empty" || len(snap.Points) != 0 {
		t.Errorf("got %+v", snap)
	}
}

func TestSaveSnapshot_Retention(t *testing.T) {
	repo := newSQLiteRepository(t, 3)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := range 5 {
		if err := repo.SaveSnapshot(ctx, snapshotAt(fmt.Sprintf("s%d", i), base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("SaveSnapshot %d: %v", i, err)
		}
	}
	n, err := repo.CountSnapshots(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("count: got %d, want 3", n)
	}

	pruned, err := repo.PruneSnapshots(ctx, 1)
	if err != nil {
		t.Fatalf("PruneSnapshots: %v", err)
	}
	if pruned != 2 {
		t.Errorf("pruned: got %d, want 2", pruned)
	}
	snap, _ := repo.LatestSnapshot(ctx)
	if snap.ID != "s4" {
		t.Errorf("latest: got %s", snap.ID)
	}
}

func TestRebind(t *testing.T) {
	pg := &Repository{dialect: Postgres}
	if got := pg.rebind("VALUES (?, ?, ?)"); got != "VALUES ($1, $2, $3)" {
		t.Errorf("postgres: got %q", got)
	}
	lite := &Repository{dialect: SQLite}
	if got := lite.rebind("VALUES (?, ?)"); got != "VALUES (?, ?)" {
		t.Errorf("sqlite: got %q", got)
	}
}
