package wages

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultSchedule refreshes market data once a day
const DefaultSchedule = "@every 24h"

// Status describes the refresh service for the data status endpoint
type Status struct {
	LastRefresh   *time.Time     `json:"lastRefresh"`
	NextRefresh   *time.Time     `json:"nextRefresh"`
	Refreshing    bool           `json:"isRefreshing"`
	Running       bool           `json:"running"`
	TotalSources  int            `json:"totalSources"`
	ActiveSources int            `json:"activeSources"`
	LastError     string         `json:"lastError,omitempty"`
	Coverage      Coverage       `json:"coverage"`
	Sources       []SourceStatus `json:"sources"`
}

// RefreshService runs aggregator refreshes on a cron schedule
type RefreshService struct {
	agg      *Aggregator
	schedule string
	log      *logrus.Logger
	cron     *cron.Cron

	mu      sync.Mutex
	entry   cron.EntryID
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewRefreshService validates schedule and prepares the scheduler. An empty
// schedule uses DefaultSchedule.
func NewRefreshService(agg *Aggregator, schedule string, log *logrus.Logger) (*RefreshService, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	cronLog := cron.PrintfLogger(log)
	return &RefreshService{
		agg:      agg,
		schedule: schedule,
		log:      log,
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(cron.SkipIfStillRunning(cronLog)),
		),
	}, nil
}

// Start schedules periodic refreshes. If the current data is stale an
// initial refresh runs in the background straight away.
func (s *RefreshService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	id, err := s.cron.AddFunc(s.schedule, func() { s.refresh(ctx) })
	if err != nil {
		cancel()
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}
	s.entry = id
	s.cancel = cancel
	s.running = true
	s.cron.Start()
	s.log.Infof("Market data refresh scheduled (%s)", s.schedule)

	if s.agg.stale(s.agg.current.Load()) {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.refresh(ctx)
		}()
	}
	return nil
}

// Stop cancels any running refresh and waits for scheduled jobs to exit
func (s *RefreshService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.cron.Remove(s.entry)
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.log.Info("Market data refresh stopped")
}

// ForceRefresh refreshes immediately, regardless of data age
func (s *RefreshService) ForceRefresh(ctx context.Context) error {
	return s.agg.Refresh(ctx)
}

// Status reports refresh timing, source availability and coverage
func (s *RefreshService) Status() Status {
	st := Status{
		Refreshing: s.agg.Refreshing(),
		Coverage:   s.agg.Coverage(),
		Sources:    s.agg.SourceStatuses(),
	}
	if st.Sources == nil {
		st.Sources = []SourceStatus{}
	}

	if last := s.agg.LastRefresh(); !last.IsZero() {
		st.LastRefresh = &last
	}
	if err := s.agg.LastError(); err != nil {
		st.LastError = err.Error()
	}

	for _, src := range s.agg.Sources() {
		st.TotalSources++
		if src.IsAvailable() {
			st.ActiveSources++
		}
		qr, ok := src.(QuotaReporter)
		if !ok {
			continue
		}
		q := qr.Usage()
		for i := range st.Sources {
			if st.Sources[i].Name == src.Name() {
				st.Sources[i].Quota = &q
			}
		}
	}

	s.mu.Lock()
	st.Running = s.running
	if s.running {
		if next := s.cron.Entry(s.entry).Next; !next.IsZero() {
			st.NextRefresh = &next
		}
	}
	s.mu.Unlock()
	return st
}

func (s *RefreshService) refresh(ctx context.Context) {
	err := s.agg.Refresh(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrRefreshInProgress):
		s.log.Debug("Skipping scheduled refresh, one is already running")
	case errors.Is(err, context.Canceled):
		s.log.Debug("Scheduled refresh cancelled")
	default:
		s.log.WithError(err).Error("Scheduled market data refresh failed")
	}
}
