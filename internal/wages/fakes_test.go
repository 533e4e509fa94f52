package wages

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Dan9191/reasonable-comp/internal/models"
)

// fakeClock is a settable clock whose After fires immediately
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.Now()
	return ch
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeSource returns a fixed set of points, or err
type fakeSource struct {
	name      string
	kind      models.SourceKind
	available bool

	mu     sync.Mutex
	points []models.MarketDataPoint
	err    error
	calls  int
}

func newFakeSource(name string, points ...models.MarketDataPoint) *fakeSource {
	return &fakeSource{name: name, kind: models.SourceMarket, available: true, points: points}
}

func (s *fakeSource) Name() string            { return s.name }
func (s *fakeSource) Kind() models.SourceKind { return s.kind }
func (s *fakeSource) IsAvailable() bool       { return s.available }

func (s *fakeSource) FetchData(context.Context) ([]models.MarketDataPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]models.MarketDataPoint(nil), s.points...), nil
}

func (s *fakeSource) set(points ...models.MarketDataPoint) {
	s.mu.Lock()
	s.points = points
	s.mu.Unlock()
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func failingSource(name string) *fakeSource {
	s := newFakeSource(name)
	s.err = errors.New("upstream timeout")
	return s
}

// blockingSource blocks in FetchData until release is closed
type blockingSource struct {
	started chan struct{}
	release chan struct{}
}

func (s *blockingSource) Name() string            { return "blocking" }
func (s *blockingSource) Kind() models.SourceKind { return models.SourceMarket }
func (s *blockingSource) IsAvailable() bool       { return true }

func (s *blockingSource) FetchData(ctx context.Context) ([]models.MarketDataPoint, error) {
	close(s.started)
	select {
	case <-s.release:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// memStore keeps snapshots in memory
type memStore struct {
	mu    sync.Mutex
	saved []models.MarketSnapshot
}

func (m *memStore) SaveSnapshot(_ context.Context, snap models.MarketSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, snap)
	return nil
}

func (m *memStore) LatestSnapshot(context.Context) (*models.MarketSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saved) == 0 {
		return nil, nil
	}
	snap := m.saved[len(m.saved)-1]
	return &snap, nil
}

func point(state string, role models.Role, salary, confidence float64, source string) models.MarketDataPoint {
	return models.MarketDataPoint{
		State:       state,
		Role:        role,
		Salary:      salary,
		Source:      source,
		Kind:        models.SourceMarket,
		LastUpdated: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		Confidence:  confidence,
	}
}

// quotaSource is a fakeSource with a fixed daily quota
type quotaSource struct {
	*fakeSource
	quota Quota
}

func (s *quotaSource) Usage() Quota { return s.quota }
