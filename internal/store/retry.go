package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/retinotopy/internal/timeutil"
)

const (
	maxBusyRetries = 5
	baseBusyDelay  = 10 * time.Millisecond
)

// isSQLiteBusy reports whether err is a lock contention error.
func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryOnBusy runs fn, retrying lock contention with exponential backoff.
func retryOnBusy(clock timeutil.Clock, fn func() error) error {
	delay := baseBusyDelay
	var err error
	for attempt := 0; attempt < maxBusyRetries; attempt++ {
		if err = fn(); !isSQLiteBusy(err) {
			return err
		}
		if attempt < maxBusyRetries-1 {
			clock.Sleep(delay)
			delay *= 2
		}
	}
	return fmt.Errorf("after %d attempts: %w", maxBusyRetries, err)
}
