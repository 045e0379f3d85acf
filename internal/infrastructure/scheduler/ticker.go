package scheduler

import (
	"context"
	"sync"
	"time"

	"mygovpulse/internal/ports"
)

// TickerScheduler fires the refresh job on a fixed period. Triggers
// themselves are cheap no-ops when a source is still fresh or a
// refresh is in flight, so the period can match the freshness window.
type TickerScheduler struct {
	period time.Duration

	mu      sync.Mutex
	stop    chan struct{}
	running bool
}

var _ ports.Scheduler = (*TickerScheduler)(nil)

// NewTickerScheduler builds a scheduler with the given period.
func NewTickerScheduler(period time.Duration) *TickerScheduler {
	if period <= 0 {
		period = time.Minute
	}
	return &TickerScheduler{period: period}
}

// Start begins ticking; the job runs once immediately. A scheduler that
// is already running ignores further Start calls.
func (t *TickerScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return nil
	}
	stop := make(chan struct{})
	t.stop = stop
	t.running = true
	t.mu.Unlock()

	go func() {
		ticker := time.NewTicker(t.period)
		defer ticker.Stop()

		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		default:
		}
		job(time.Now())

		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				// A tick and Stop can become ready together; the
				// stop channel wins.
				select {
				case <-stop:
					return
				default:
				}
				job(now)
			}
		}
	}()

	return nil
}

// Stop halts the ticker goroutine. Safe to call more than once.
func (t *TickerScheduler) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}
	t.running = false
	close(t.stop)
	return nil
}
