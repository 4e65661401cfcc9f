package offline

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// Syncer drains a queue.
type Syncer interface {
	Sync(ctx context.Context) int
}

// Trigger names a reason for draining the queue.
type Trigger string

const (
	TriggerColdStart    Trigger = "cold_start"
	TriggerSignedIn     Trigger = "signed_in"
	TriggerForeground   Trigger = "foreground"
	TriggerConnectivity Trigger = "connectivity_restored"
	TriggerSchedule     Trigger = "schedule"
)

// Triggers runs drains in response to application events.
type Triggers struct {
	syncer Syncer
	logger zerolog.Logger

	mu        sync.Mutex
	scheduler *gocron.Scheduler
}

// NewTriggers creates the trigger set for syncer.
func NewTriggers(syncer Syncer, logger zerolog.Logger) *Triggers {
	return &Triggers{syncer: syncer, logger: logger}
}

// Fire drains the queue once on behalf of trigger.
func (t *Triggers) Fire(ctx context.Context, trigger Trigger) int {
	n := t.syncer.Sync(ctx)
	t.logger.Debug().Str("trigger", string(trigger)).Int("synced", n).Msg("offline sync triggered")
	return n
}

// ColdStart drains once at process start.
func (t *Triggers) ColdStart(ctx context.Context) int {
	return t.Fire(ctx, TriggerColdStart)
}

// SignedIn drains after the user authenticated.
func (t *Triggers) SignedIn(ctx context.Context) int {
	return t.Fire(ctx, TriggerSignedIn)
}

// Foreground drains when the application comes to the foreground.
func (t *Triggers) Foreground(ctx context.Context) int {
	return t.Fire(ctx, TriggerForeground)
}

// TransitionDetector reports offline to online transitions.
type TransitionDetector struct {
	mu    sync.Mutex
	known bool
	up    bool
}

// Observe records the current state and reports whether it is a
// false to true transition. The first observation only sets the baseline.
func (d *TransitionDetector) Observe(up bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	restored := d.known && !d.up && up
	d.known = true
	d.up = up
	return restored
}

// WatchConnectivity polls reach every interval and drains when
// connectivity is restored. It returns when ctx is done.
func (t *Triggers) WatchConnectivity(ctx context.Context, reach Reachability, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}

	var detector TransitionDetector
	detector.Observe(reach.Reachable(ctx))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if detector.Observe(reach.Reachable(ctx)) {
				t.logger.Info().Msg("connectivity restored")
				t.Fire(ctx, TriggerConnectivity)
			}
		}
	}
}

// StartSchedule drains every interval until StopSchedule. Runs never overlap.
func (t *Triggers) StartSchedule(ctx context.Context, interval time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.scheduler != nil {
		return nil
	}

	s := gocron.NewScheduler(time.UTC)
	_, err := s.Every(interval).SingletonMode().WaitForSchedule().Do(func() {
		t.Fire(ctx, TriggerSchedule)
	})
	if err != nil {
		return err
	}

	s.StartAsync()
	t.scheduler = s
	return nil
}

// StopSchedule stops the periodic drain.
func (t *Triggers) StopSchedule() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.scheduler != nil {
		t.scheduler.Stop()
		t.scheduler = nil
	}
}
