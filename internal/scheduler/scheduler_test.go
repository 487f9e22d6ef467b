package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"it-inventory-api/internal/config"
	"it-inventory-api/internal/inventory"
	"it-inventory-api/internal/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSweeper struct {
	mu       sync.Mutex
	calls    int
	forced   bool
	deadline bool
	err      error
}

func (f *fakeSweeper) RunWarrantySweep(ctx context.Context, force bool) (inventory.SweepReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.forced = f.forced || force
	_, f.deadline = ctx.Deadline()
	return inventory.SweepReport{RunID: "run-1", Notifications: 2}, f.err
}

func (f *fakeSweeper) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(config.SweepConfig{Schedule: "not a cron"}, &fakeSweeper{}, logger.Discard())
	assert.Error(t, err)

	_, err = New(config.SweepConfig{Schedule: "0 8 * * *", TimeZone: "Mars/Olympus"}, &fakeSweeper{}, logger.Discard())
	assert.Error(t, err)
}

func TestRunOnceIsBoundedAndNeverForced(t *testing.T) {
	f := &fakeSweeper{}
	s, err := New(config.SweepConfig{Schedule: "0 8 * * *", TimeZone: "UTC", Timeout: time.Minute}, f, logger.Discard())
	require.NoError(t, err)

	s.RunOnce(context.Background())
	f.err = errors.New("database down")
	s.RunOnce(context.Background())

	assert.Equal(t, 2, f.Calls())
	assert.False(t, f.forced)
	assert.True(t, f.deadline)
	require.NoError(t, s.Stop(context.Background()))
}

func TestNextUsesConfiguredZone(t *testing.T) {
	s, err := New(config.SweepConfig{Schedule: "0 8 * * *", TimeZone: "Europe/Berlin"}, &fakeSweeper{}, logger.Discard())
	require.NoError(t, err)
	s.Start()
	defer func() { require.NoError(t, s.Stop(context.Background())) }()

	next := s.Next()
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	local := next.In(loc)
	assert.Equal(t, 8, local.Hour())
	assert.Equal(t, 0, local.Minute())
	assert.True(t, next.After(time.Now()))
}

func TestScheduledRunFires(t *testing.T) {
	f := &fakeSweeper{}
	s, err := New(config.SweepConfig{Schedule: "@every 1s", TimeZone: "UTC"}, f, logger.Discard())
	require.NoError(t, err)
	s.Start()

	assert.Eventually(t, func() bool { return f.Calls() > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
