package store

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/retinotopy/internal/timeutil"
)

func TestIsSQLiteBusy(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "database is locked", err: errors.New("database is locked (5) (SQLITE_BUSY)"), expected: true},
		{name: "SQLITE_BUSY", err: errors.New("SQLITE_BUSY"), expected: true},
		{name: "other error", err: errors.New("no such table: voxel_fits"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isSQLiteBusy(tt.err); got != tt.expected {
				t.Errorf("isSQLiteBusy(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestRetryOnBusy(t *testing.T) {
	busy := errors.New("database is locked (5) (SQLITE_BUSY)")
	newClock := func() *timeutil.MockClock { return timeutil.NewMockClock(time.Unix(0, 0)) }

	t.Run("success after retry", func(t *testing.T) {
		clock := newClock()
		calls := 0
		err := retryOnBusy(clock, func() error {
			calls++
			if calls < 3 {
				return busy
			}
			return nil
		})
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if calls != 3 {
			t.Errorf("expected 3 calls, got %d", calls)
		}
		assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, clock.Sleeps())
	})

	t.Run("non-busy error fails immediately", func(t *testing.T) {
		calls := 0
		testErr := errors.New("constraint failed")
		err := retryOnBusy(newClock(), func() error {
			calls++
			return testErr
		})
		if err != testErr {
			t.Errorf("expected error %v, got %v", testErr, err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("max retries exceeded", func(t *testing.T) {
		clock := newClock()
		calls := 0
		err := retryOnBusy(clock, func() error {
			calls++
			return busy
		})
		if !errors.Is(err, busy) {
			t.Errorf("expected wrapped busy error, got %v", err)
		}
		if calls != maxBusyRetries {
			t.Errorf("expected %d calls, got %d", maxBusyRetries, calls)
		}
		// No sleep after the final attempt.
		assert.Len(t, clock.Sleeps(), maxBusyRetries-1)
		assert.Equal(t, 80*time.Millisecond, clock.Sleeps()[maxBusyRetries-2])
	})
}
