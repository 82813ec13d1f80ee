package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
)

// Refresher re-runs a fetch on a fixed interval for as long as a view is open.
type Refresher struct {
	interval time.Duration
	fetch    func(ctx context.Context) error
	onError  func(error)
}

// NewRefresher creates a refresher. onError receives fetch failures and may be nil.
func NewRefresher(interval time.Duration, fetch func(ctx context.Context) error, onError func(error)) *Refresher {
	if onError == nil {
		onError = func(error) {}
	}
	return &Refresher{interval: interval, fetch: fetch, onError: onError}
}

// Run fetches immediately and then every interval until ctx is cancelled.
// A fetch that outlives the interval is not overlapped.
func (r *Refresher) Run(ctx context.Context) error {
	if r.interval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", r.interval)
	}

	scheduler := gocron.NewScheduler(time.Local)
	scheduler.SingletonModeAll()

	if _, err := scheduler.Every(r.interval).Do(func() {
		if ctx.Err() != nil {
			return
		}
		if err := r.fetch(ctx); err != nil && ctx.Err() == nil {
			r.onError(err)
		}
	}); err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}

	scheduler.StartAsync()
	<-ctx.Done()
	scheduler.Stop()
	return nil
}
