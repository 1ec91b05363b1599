package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"tradecoach/internal/market"
	"tradecoach/internal/metrics"
	"tradecoach/internal/scheduler"
)

type fakeRefresher struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (f *fakeRefresher) Refresh(ctx context.Context, sym string) (market.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sym)
	if _, ok := ctx.Deadline(); !ok {
		return market.Quote{}, errors.New("refresh without deadline")
	}
	if f.fail[sym] {
		return market.Quote{}, market.ErrAllSourcesUnavailable
	}
	return market.Quote{Symbol: sym, Price: decimal.NewFromInt(1)}, nil
}

func (f *fakeRefresher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeSweeper struct {
	mu    sync.Mutex
	count int
}

func (f *fakeSweeper) Sweep() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	return 0
}

func (f *fakeSweeper) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

func TestRunRefreshNow(t *testing.T) {
	ref := &fakeRefresher{fail: map[string]bool{"ethereum": true}}
	m := metrics.New(prometheus.NewRegistry())
	s := scheduler.New(context.Background(), ref, nil, scheduler.Config{
		RefreshSpec: "@every 60s",
		Symbols:     []string{"bitcoin", "ethereum", "solana"},
	}, nil, m)

	s.RunRefreshNow()

	require.Equal(t, []string{"bitcoin", "ethereum", "solana"}, ref.Calls())
	require.Equal(t, float64(2), testutil.ToFloat64(m.RefreshRuns.WithLabelValues("ok")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.RefreshRuns.WithLabelValues("error")))
}

func TestRefreshStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ref := &fakeRefresher{}
	s := scheduler.New(ctx, ref, nil, scheduler.Config{Symbols: []string{"bitcoin"}}, nil, nil)

	s.RunRefreshNow()
	require.Empty(t, ref.Calls())
}

func TestRegisterAll(t *testing.T) {
	ref := &fakeRefresher{}
	sw := &fakeSweeper{}

	s := scheduler.New(context.Background(), ref, sw, scheduler.Config{
		RefreshSpec: "@every 60s",
		SweepSpec:   "@every 5m",
		Symbols:     []string{"bitcoin"},
	}, nil, nil)
	require.NoError(t, s.RegisterAll())
	require.Len(t, s.Cron.Entries(), 2)

	s = scheduler.New(context.Background(), ref, sw, scheduler.Config{SweepSpec: "@every 5m"}, nil, nil)
	require.NoError(t, s.RegisterAll())
	require.Len(t, s.Cron.Entries(), 1)

	s = scheduler.New(context.Background(), ref, sw, scheduler.Config{
		RefreshSpec: "not a spec",
		Symbols:     []string{"bitcoin"},
	}, nil, nil)
	require.Error(t, s.RegisterAll())
}

func TestJobsRunOnSchedule(t *testing.T) {
	ref := &fakeRefresher{}
	sw := &fakeSweeper{}
	s := scheduler.New(context.Background(), ref, sw, scheduler.Config{
		RefreshSpec: "@every 1s",
		SweepSpec:   "@every 1s",
		Symbols:     []string{"bitcoin"},
	}, nil, nil)
	require.NoError(t, s.RegisterAll())

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return len(ref.Calls()) > 0 && sw.Count() > 0
	}, 3*time.Second, 50*time.Millisecond)
}
