// Package scheduler runs the background cache jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"tradecoach/internal/logger"
	"tradecoach/internal/market"
	"tradecoach/internal/metrics"
)

// Refresher writes a fresh quote through the aggregator's cache path.
type Refresher interface {
	Refresh(ctx context.Context, sym string) (market.Quote, error)
}

// Sweeper drops expired cache entries.
type Sweeper interface {
	Sweep() int
}

type Config struct {
	RefreshSpec string
	SweepSpec   string
	Symbols     []string
	// Timeout bounds one symbol's refresh.
	Timeout time.Duration
}

// Scheduler manages the cron jobs.
type Scheduler struct {
	Cron      *cron.Cron
	Refresher Refresher
	Sweeper   Sweeper
	Metrics   *metrics.Metrics
	Ctx       context.Context

	cfg Config
	log *zap.Logger
}

// New creates a Scheduler. Overlapping runs of the same job are skipped.
func New(ctx context.Context, r Refresher, sw Sweeper, cfg Config, log *zap.Logger, m *metrics.Metrics) *Scheduler {
	log = logger.OrNop(log).Named("scheduler")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cl := cronLogger{log.Sugar()}
	return &Scheduler{
		Cron:      cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		Refresher: r,
		Sweeper:   sw,
		Metrics:   m,
		Ctx:       ctx,
		cfg:       cfg,
		log:       log,
	}
}

// RegisterAll registers the refresh and sweep jobs. An empty spec disables
// the job.
func (s *Scheduler) RegisterAll() error {
	if s.cfg.RefreshSpec != "" && len(s.cfg.Symbols) > 0 && s.Refresher != nil {
		if _, err := s.Cron.AddFunc(s.cfg.RefreshSpec, s.refreshTask); err != nil {
			return fmt.Errorf("register refresh task: %w", err)
		}
	}
	if s.cfg.SweepSpec != "" && s.Sweeper != nil {
		if _, err := s.Cron.AddFunc(s.cfg.SweepSpec, s.sweepTask); err != nil {
			return fmt.Errorf("register sweep task: %w", err)
		}
	}
	return nil
}

func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.Cron.Entries())))
}

// Stop stops scheduling and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunRefreshNow warms the cache immediately, e.g. on startup.
func (s *Scheduler) RunRefreshNow() {
	s.refreshTask()
}

func (s *Scheduler) refreshTask() {
	ok := 0
	for _, sym := range s.cfg.Symbols {
		if s.Ctx.Err() != nil {
			return
		}
		ctx, cancel := context.WithTimeout(s.Ctx, s.cfg.Timeout)
		q, err := s.Refresher.Refresh(ctx, sym)
		cancel()
		if err != nil {
			s.log.Warn("refresh failed", zap.String("symbol", sym), zap.Error(err))
			s.Metrics.Refresh("error")
			continue
		}
		ok++
		s.Metrics.Refresh("ok")
		s.log.Debug("refreshed",
			zap.String("symbol", sym),
			zap.String("price", q.Price.String()),
			zap.Stringer("source", q.Source),
		)
	}
	s.log.Info("refresh run", zap.Int("ok", ok), zap.Int("symbols", len(s.cfg.Symbols)))
}

func (s *Scheduler) sweepTask() {
	n := s.Sweeper.Sweep()
	s.log.Info("cache sweep", zap.Int("removed", n))
}

// cronLogger routes cron's own messages to zap.
type cronLogger struct{ s *zap.SugaredLogger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
