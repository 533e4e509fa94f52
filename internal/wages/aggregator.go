package wages

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Dan9191/reasonable-comp/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultMaxAge is how long a snapshot is considered fresh
const DefaultMaxAge = 24 * time.Hour

// ErrRefreshInProgress is returned when a refresh is already running
var ErrRefreshInProgress = errors.New("market data refresh already in progress")

// SnapshotStore persists the most recent snapshot between restarts
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap models.MarketSnapshot) error
	// LatestSnapshot returns nil, nil when nothing has been saved
	LatestSnapshot(ctx context.Context) (*models.MarketSnapshot, error)
}

// SourceStatus is the outcome of one source during the last refresh
type SourceStatus struct {
	Name      string            `json:"name"`
	Kind      models.SourceKind `json:"kind"`
	Available bool              `json:"available"`
	Points    int               `json:"points"`
	Error     string            `json:"error,omitempty"`
	Quota     *Quota            `json:"quota,omitempty"`
}

// Coverage counts what the current snapshot spans
type Coverage struct {
	States     int `json:"states"`
	Roles      int `json:"roles"`
	Industries int `json:"industries"`
}

// AggregatorConfig tunes refresh behaviour. Zero values pick defaults.
type AggregatorConfig struct {
	MaxAge      time.Duration
	SourceDelay time.Duration
	Clock       Clock
	Store       SnapshotStore
}

type snapshot struct {
	data     models.MarketSnapshot
	statuses []SourceStatus
}

// Aggregator blends points from several sources into baselines. Readers
// always see a whole snapshot; a refresh builds a new one and swaps it in.
type Aggregator struct {
	sources []Source
	cfg     AggregatorConfig
	log     *logrus.Logger

	current    atomic.Pointer[snapshot]
	refreshing atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	lastErr error
	closed  bool
}

// NewAggregator creates an aggregator over sources
func NewAggregator(sources []Source, cfg AggregatorConfig, log *logrus.Logger) *Aggregator {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Aggregator{
		sources: sources,
		cfg:     cfg,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Restore loads the last saved snapshot, if a store is configured
func (a *Aggregator) Restore(ctx context.Context) error {
	if a.cfg.Store == nil {
		return nil
	}
	snap, err := a.cfg.Store.LatestSnapshot(ctx)
	if err != nil {
		return err
	}
	if snap == nil {
		return nil
	}
	a.current.Store(&snapshot{data: *snap})
	a.log.Infof("Restored market data snapshot %s from %s (%d points)", snap.ID, snap.RefreshedAt.Format(time.RFC3339), len(snap.Points))
	return nil
}

// Refresh pulls every available source in turn and replaces the snapshot.
// A failing source is logged and skipped; if all fail the snapshot is empty.
func (a *Aggregator) Refresh(ctx context.Context) error {
	if !a.refreshing.CompareAndSwap(false, true) {
		return ErrRefreshInProgress
	}
	defer a.refreshing.Store(false)

	var (
		points   []models.MarketDataPoint
		statuses []SourceStatus
		errs     []error
	)
	for i, src := range a.sources {
		if i > 0 && a.cfg.SourceDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-a.cfg.Clock.After(a.cfg.SourceDelay):
			}
		}

		status := SourceStatus{Name: src.Name(), Kind: src.Kind(), Available: src.IsAvailable()}
		if !status.Available {
			a.log.WithField("source", src.Name()).Info("Market data source unavailable, skipping")
			statuses = append(statuses, status)
			continue
		}

		data, err := src.FetchData(ctx)
		if err != nil {
			fetchErr := &models.SourceFetchError{Source: src.Name(), Err: err}
			a.log.WithError(err).WithField("source", src.Name()).Warn("Market data source failed")
			status.Error = err.Error()
			statuses = append(statuses, status)
			errs = append(errs, fetchErr)
			continue
		}
		status.Points = len(data)
		statuses = append(statuses, status)
		points = append(points, data...)
	}

	snap := models.MarketSnapshot{
		ID:          uuid.NewString(),
		RefreshedAt: a.cfg.Clock.Now(),
		Points:      points,
	}
	a.current.Store(&snapshot{data: snap, statuses: statuses})

	a.mu.Lock()
	a.lastErr = errors.Join(errs...)
	a.mu.Unlock()

	a.log.WithFields(logrus.Fields{
		"snapshot": snap.ID,
		"points":   len(points),
		"failed":   len(errs),
	}).Info("Market data refreshed")

	if a.cfg.Store != nil {
		if err := a.cfg.Store.SaveSnapshot(ctx, snap); err != nil {
			a.log.WithError(err).Warn("Failed to persist market data snapshot")
		}
	}
	return nil
}

// Baseline returns the confidence-weighted salary for the query. It first
// matches metro and industry when given, then relaxes to state and role. It
// never falls back to another state. A stale snapshot triggers a background
// refresh but is still used for this lookup.
func (a *Aggregator) Baseline(q models.BaselineQuery) (models.Baseline, error) {
	s := a.current.Load()
	if a.stale(s) {
		a.triggerRefresh()
	}

	state := strings.ToUpper(q.State)
	if s == nil || len(s.data.Points) == 0 {
		return models.Baseline{}, &models.DataUnavailableError{State: state, Role: q.Role, Reason: "no market data loaded, check data source availability"}
	}

	exact := filterPoints(s.data.Points, func(p models.MarketDataPoint) bool {
		return p.State == state && p.Role == q.Role &&
			(q.Metro == "" || strings.EqualFold(p.Metro, q.Metro)) &&
			(q.Industry == "" || strings.EqualFold(p.Industry, q.Industry))
	})
	if b, ok := Blend(exact); ok {
		return b, nil
	}

	if q.Metro != "" || q.Industry != "" {
		if b, ok := Blend(pointsFor(s.data.Points, state, q.Role)); ok {
			return b, nil
		}
	}
	return models.Baseline{}, &models.DataUnavailableError{State: state, Role: q.Role, Reason: "no matching market data points"}
}

// DataQuality reports on the points behind (state, role)
func (a *Aggregator) DataQuality(state string, role models.Role) models.DataQuality {
	s := a.current.Load()
	if s == nil {
		return Quality(nil, time.Time{})
	}
	q := Quality(pointsFor(s.data.Points, strings.ToUpper(state), role), s.data.RefreshedAt)
	return q
}

// Snapshot returns a copy of the current snapshot
func (a *Aggregator) Snapshot() models.MarketSnapshot {
	s := a.current.Load()
	if s == nil {
		return models.MarketSnapshot{}
	}
	out := s.data
	out.Points = append([]models.MarketDataPoint(nil), s.data.Points...)
	return out
}

// SourceStatuses returns per-source results of the last refresh
func (a *Aggregator) SourceStatuses() []SourceStatus {
	s := a.current.Load()
	if s == nil {
		return nil
	}
	return append([]SourceStatus(nil), s.statuses...)
}

// Sources returns the registered sources
func (a *Aggregator) Sources() []Source {
	return a.sources
}

// LastRefresh is zero until the first refresh or restore
func (a *Aggregator) LastRefresh() time.Time {
	if s := a.current.Load(); s != nil {
		return s.data.RefreshedAt
	}
	return time.Time{}
}

// LastError joins the source errors of the last refresh
func (a *Aggregator) LastError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// Refreshing reports whether a refresh is running
func (a *Aggregator) Refreshing() bool {
	return a.refreshing.Load()
}

// MaxAge is the freshness window
func (a *Aggregator) MaxAge() time.Duration {
	return a.cfg.MaxAge
}

// Clock returns the aggregator's clock
func (a *Aggregator) Clock() Clock {
	return a.cfg.Clock
}

// Coverage counts distinct states, roles and industries in the snapshot
func (a *Aggregator) Coverage() Coverage {
	s := a.current.Load()
	if s == nil {
		return Coverage{}
	}
	states := map[string]struct{}{}
	roles := map[models.Role]struct{}{}
	industries := map[string]struct{}{}
	for _, p := range s.data.Points {
		states[p.State] = struct{}{}
		roles[p.Role] = struct{}{}
		if p.Industry != "" {
			industries[p.Industry] = struct{}{}
		}
	}
	return Coverage{States: len(states), Roles: len(roles), Industries: len(industries)}
}

// Wait blocks until background refreshes started by lookups have finished
func (a *Aggregator) Wait() {
	a.wg.Wait()
}

// Close cancels background refreshes and waits for them
func (a *Aggregator) Close() {
	a.mu.Lock()
	a.closed = true
	a.cancel()
	a.mu.Unlock()
	a.wg.Wait()
}

func (a *Aggregator) stale(s *snapshot) bool {
	if s == nil {
		return true
	}
	return a.cfg.Clock.Now().Sub(s.data.RefreshedAt) > a.cfg.MaxAge
}

func (a *Aggregator) triggerRefresh() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || a.refreshing.Load() {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.Refresh(a.ctx); err != nil && !errors.Is(err, ErrRefreshInProgress) {
			a.log.WithError(err).Warn("Background market data refresh failed")
		}
	}()
}

func pointsFor(points []models.MarketDataPoint, state string, role models.Role) []models.MarketDataPoint {
	return filterPoints(points, func(p models.MarketDataPoint) bool {
		return p.State == state && p.Role == role
	})
}

func filterPoints(points []models.MarketDataPoint, keep func(models.MarketDataPoint) bool) []models.MarketDataPoint {
	var out []models.MarketDataPoint
	for _, p := range points {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
