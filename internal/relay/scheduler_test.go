package relay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNextOccurrence(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	require.NoError(t, err)

	t.Run("later today", func(t *testing.T) {
		now := time.Date(2025, 3, 10, 8, 0, 0, 0, loc)
		next := nextOccurrence(now, 9, 0)
		assert.Equal(t, time.Date(2025, 3, 10, 9, 0, 0, 0, loc), next)
	})

	t.Run("already passed rolls to tomorrow", func(t *testing.T) {
		now := time.Date(2025, 3, 10, 9, 30, 0, 0, loc)
		next := nextOccurrence(now, 9, 0)
		assert.Equal(t, time.Date(2025, 3, 11, 9, 0, 0, 0, loc), next)
	})

	t.Run("exact moment rolls to tomorrow", func(t *testing.T) {
		now := time.Date(2025, 3, 10, 9, 0, 0, 0, loc)
		next := nextOccurrence(now, 9, 0)
		assert.Equal(t, time.Date(2025, 3, 11, 9, 0, 0, 0, loc), next)
	})

	t.Run("preserves location", func(t *testing.T) {
		now := time.Date(2025, 6, 1, 23, 59, 0, 0, loc)
		next := nextOccurrence(now, 0, 5)
		assert.Equal(t, loc, next.Location())
		assert.Equal(t, time.Date(2025, 6, 2, 0, 5, 0, 0, loc), next)
	})
}

func TestRunDailySchedule_RejectsBadConfig(t *testing.T) {
	r := &Relay{}

	err := r.RunDailySchedule(context.Background(), Schedule{TimeOfDay: "09:00", Timezone: "Mars/Olympus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timezone")

	err = r.RunDailySchedule(context.Background(), Schedule{TimeOfDay: "nine", Timezone: "UTC"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broadcast time")
}

func TestRunDailySchedule_StopsOnCancel(t *testing.T) {
	r := &Relay{logger: zap.NewNop()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.RunDailySchedule(ctx, Schedule{TimeOfDay: "09:00", Timezone: "UTC"})
	assert.ErrorIs(t, err, context.Canceled)
}
