package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dan9191/reasonable-comp/internal/calc"
	"github.com/Dan9191/reasonable-comp/internal/config"
	"github.com/Dan9191/reasonable-comp/internal/integrations/bls"
	"github.com/Dan9191/reasonable-comp/internal/integrations/glassdoor"
	"github.com/Dan9191/reasonable-comp/internal/integrations/industry"
	"github.com/Dan9191/reasonable-comp/internal/report"
	"github.com/Dan9191/reasonable-comp/internal/repository"
	"github.com/Dan9191/reasonable-comp/internal/service"
	"github.com/Dan9191/reasonable-comp/internal/utils/email"
	"github.com/Dan9191/reasonable-comp/internal/wages"
	"github.com/sirupsen/logrus"
)

// Wire bundles the stores, data sources and services built from a Config
type Wire struct {
	Service   *service.Service
	Estimator *calc.Estimator
	Market    *wages.Aggregator     // nil for the static provider
	Refresher *wages.RefreshService // nil for the static provider
	Static    *wages.StaticProvider // nil for the aggregated provider
	Watcher   *wages.TableWatcher
	Repo      *repository.Repository

	db     *sql.DB
	log    *logrus.Logger
	cancel context.CancelFunc
}

// NewWire constructs the dependency graph from cfg. Nothing runs in the
// background until Start is called.
func NewWire(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*Wire, error) {
	bands := calc.Bands{Low: cfg.BandLow, High: cfg.BandHigh}
	if err := bands.Validate(); err != nil {
		return nil, err
	}

	w := &Wire{log: log}
	var provider calc.BaselineProvider

	switch cfg.BaselineProvider {
	case config.ProviderStatic:
		table := wages.DefaultTable()
		if cfg.WageTablePath != "" {
			t, err := wages.LoadTableFile(cfg.WageTablePath)
			if err != nil {
				return nil, err
			}
			table = t
		}
		w.Static = wages.NewStaticProvider(table)
		if cfg.WatchWageTable {
			watcher, err := wages.NewTableWatcher(cfg.WageTablePath, w.Static, log)
			if err != nil {
				return nil, err
			}
			w.Watcher = watcher
		}
		provider = w.Static
		log.Infof("Using static wage table %s", table.Name)

	default:
		if err := w.openStore(ctx, cfg); err != nil {
			return nil, err
		}
		aggCfg := wages.AggregatorConfig{
			MaxAge:      cfg.DataMaxAge,
			SourceDelay: cfg.SourceDelay,
		}
		if w.Repo != nil {
			aggCfg.Store = w.Repo
		}
		w.Market = wages.NewAggregator(Sources(cfg, log), aggCfg, log)
		if err := w.Market.Restore(ctx); err != nil {
			log.WithError(err).Warn("Failed to restore market data snapshot")
		}
		refresher, err := wages.NewRefreshService(w.Market, cfg.RefreshSchedule, log)
		if err != nil {
			w.Close()
			return nil, err
		}
		w.Refresher = refresher
		provider = w.Market
	}

	w.Estimator = calc.NewEstimator(provider, bands)
	deps := service.Deps{
		Estimator: w.Estimator,
		Renderer:  report.NewRenderer(cfg.ReportBrand),
		Market:    w.Market,
		Refresher: w.Refresher,
	}
	if cfg.SMTPHost != "" {
		deps.Mailer = email.NewSender(cfg, log)
	}
	w.Service = service.NewService(deps, log)
	return w, nil
}

// Sources builds the market data sources described by cfg
func Sources(cfg *config.Config, log *logrus.Logger) []wages.Source {
	return []wages.Source{
		bls.NewSource(bls.Options{
			ReleaseURL: cfg.BLSReleaseURL,
			DailyLimit: cfg.BLSDailyLimit,
			Jitter:     cfg.BLSJitter,
		}, log),
		glassdoor.NewSource(glassdoor.Options{
			Jitter: cfg.GlassdoorJitter,
			Sample: cfg.GlassdoorSample,
		}, log),
		industry.NewSource(nil, log),
	}
}

func (w *Wire) openStore(ctx context.Context, cfg *config.Config) error {
	var (
		dialect repository.Dialect
		dsn     string
	)
	switch {
	case cfg.DBConn != "":
		dialect, dsn = repository.Postgres, cfg.DBConn
	case cfg.SQLitePath != "":
		dialect, dsn = repository.SQLite, cfg.SQLitePath
	default:
		w.log.Info("No snapshot store configured, market data is kept in memory only")
		return nil
	}

	db, err := repository.Open(dialect, dsn)
	if err != nil {
		return err
	}
	repo := repository.NewRepository(db, dialect, repository.DefaultRetain)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return err
	}
	n, err := repo.CountSnapshots(ctx)
	if err != nil {
		db.Close()
		return err
	}
	w.log.Infof("Snapshot store ready (%d snapshots stored)", n)
	w.db, w.Repo = db, repo
	return nil
}

// Start launches the scheduled refresher and the wage table watcher
func (w *Wire) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	if w.Refresher != nil {
		if err := w.Refresher.Start(); err != nil {
			return err
		}
	}
	if w.Watcher != nil {
		go w.Watcher.Run(ctx)
	}
	return nil
}

// EnsureFresh refreshes market data synchronously when it is missing or
// older than the configured max age. It is a no-op for the static provider.
func (w *Wire) EnsureFresh(ctx context.Context) error {
	if w.Market == nil {
		return nil
	}
	last := w.Market.LastRefresh()
	if !last.IsZero() && w.Market.Clock().Now().Sub(last) <= w.Market.MaxAge() {
		return nil
	}
	err := w.Market.Refresh(ctx)
	if errors.Is(err, wages.ErrRefreshInProgress) {
		w.Market.Wait()
		return nil
	}
	return err
}

// Close stops background work and releases the database
func (w *Wire) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.Refresher != nil {
		w.Refresher.Stop()
	}
	if w.Market != nil {
		w.Market.Close()
	}
	if w.Watcher != nil {
		if err := w.Watcher.Close(); err != nil {
			w.log.WithError(err).Warn("Failed to close wage table watcher")
		}
	}
	if w.db != nil {
		if err := w.db.Close(); err != nil {
			w.log.WithError(err).Warn("Failed to close database")
		}
	}
}

// String describes the active baseline provider
func (w *Wire) String() string {
	if w.Market != nil {
		return fmt.Sprintf("aggregated (%d sources)", len(w.Market.Sources()))
	}
	return "static"
}
