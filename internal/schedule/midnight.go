package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"prayerd/internal/eventbus"
	logx "prayerd/pkg/logx"
)

// The daily refresh trigger fires at 00:05, not midnight: the 5-minute
// offset sidesteps exact-midnight boundary ambiguity in the trigger
// machinery and in providers that flip their tables on the date change.
const (
	midnightCronSpec = "5 0 * * *"
	midnightHour     = 0
	midnightMinute   = 5
)

// nextMidnightTrigger returns the next 00:05 after now.
func nextMidnightTrigger(now time.Time) time.Time {
	t := time.Date(now.Year(), now.Month(), now.Day(), midnightHour, midnightMinute, 0, 0, now.Location())
	if !t.After(now) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// ArmMidnight arms a one-shot trigger at the next 00:05. It does not
// re-arm itself: fn (usually a HandleMidnight closure) must call
// ArmMidnight again after each firing. Any previously armed midnight
// trigger is cancelled first so only one exists.
func (s *Scheduler) ArmMidnight(ctx context.Context, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelMidnightLocked()

	now := s.now()
	fireAt := nextMidnightTrigger(now)
	s.midnightTimer = time.AfterFunc(fireAt.Sub(now), fn)
	s.recurring = false

	return s.persistMidnightLocked(ctx, "once-"+uuid.NewString(), fireAt)
}

// ArmMidnightRecurring arms a repeating daily 00:05 cron trigger that
// needs no re-arming. Any previously armed midnight trigger is cancelled
// first.
func (s *Scheduler) ArmMidnightRecurring(ctx context.Context, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelMidnightLocked()

	id, err := s.c.AddFunc(midnightCronSpec, fn)
	if err != nil {
		return fmt.Errorf("arming recurring midnight trigger: %w", err)
	}
	s.midnightEntry = id
	s.recurring = true

	return s.persistMidnightLocked(ctx, "daily-"+uuid.NewString(), nextMidnightTrigger(s.now()))
}

// MidnightArmed reports whether any midnight trigger is currently live.
func (s *Scheduler) MidnightArmed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.midnightTimer != nil || s.midnightEntry != 0
}

func (s *Scheduler) cancelMidnightLocked() {
	if s.midnightTimer != nil {
		_ = s.midnightTimer.Stop()
		s.midnightTimer = nil
	}
	if s.midnightEntry != 0 {
		s.c.Remove(s.midnightEntry)
		s.midnightEntry = 0
	}
	s.recurring = false
}

func (s *Scheduler) persistMidnightLocked(ctx context.Context, handle string, fireAt time.Time) error {
	if err := s.store.PutMidnightHandle(ctx, handle); err != nil {
		return fmt.Errorf("persisting midnight handle: %w", err)
	}
	s.log.Debug("midnight trigger armed",
		logx.String("handle", handle),
		logx.Time("fire_at", fireAt),
		logx.Bool("recurring", s.recurring))
	return nil
}

// HandleMidnight performs the daily refresh: fetch a fresh table via fn,
// arm the new notification set, and (in one-shot mode) re-arm the
// midnight trigger. A fetch that yields nothing reports false and leaves
// the existing schedules untouched. Returns true only on full success.
func (s *Scheduler) HandleMidnight(ctx context.Context, fetch RefreshFunc, opts Options) bool {
	t, err := fetch(ctx)
	if err != nil {
		s.log.Warn("midnight refresh: fetch failed, keeping current schedules", logx.Err(err))
		return false
	}
	if err := t.Validate(); err != nil {
		s.log.Warn("midnight refresh: unusable table, keeping current schedules", logx.Err(err))
		return false
	}

	if err := s.Schedule(ctx, t, opts); err != nil {
		s.log.Error("midnight refresh: scheduling failed", logx.Err(err))
		return false
	}

	s.mu.Lock()
	oneShot := !s.recurring
	s.mu.Unlock()
	if oneShot {
		if err := s.ArmMidnight(ctx, func() { s.HandleMidnight(context.Background(), fetch, opts) }); err != nil {
			s.log.Error("midnight refresh: re-arm failed", logx.Err(err))
			return false
		}
	}

	if err := s.MarkScheduled(ctx); err != nil {
		s.log.Warn("midnight refresh: marking failed", logx.Err(err))
	}
	s.publish(eventbus.EventMidnightRefresh, map[string]string{"date": t.Date})
	return true
}

// ShouldReschedule compares the persisted "last scheduled" calendar-date
// marker against today; a missing or different marker means the armed
// set no longer reflects today.
func (s *Scheduler) ShouldReschedule(ctx context.Context) bool {
	day, err := s.store.GetLastScheduled(ctx)
	if err != nil {
		s.log.Warn("reading last-scheduled marker failed", logx.Err(err))
		return true
	}
	return day != s.now().Format(dayFormat)
}

// MarkScheduled persists today as the new "last scheduled" marker.
func (s *Scheduler) MarkScheduled(ctx context.Context) error {
	return s.store.PutLastScheduled(ctx, s.now().Format(dayFormat))
}

// Initialize orchestrates app start: probe permission (abort quietly if
// denied), refresh if the armed set is stale, then make sure the
// recurring midnight trigger is live so a fresh install or a cleared
// schedule self-heals.
func (s *Scheduler) Initialize(ctx context.Context, fetch RefreshFunc, opts Options) error {
	if !s.RequestPermission(ctx) {
		s.log.Info("notifications not permitted, scheduler idle")
		return nil
	}

	if s.ShouldReschedule(ctx) {
		if ok := s.HandleMidnight(ctx, fetch, opts); !ok {
			s.log.Warn("initial refresh incomplete, will retry at next midnight trigger")
		}
	} else {
		s.log.Debug("armed set still current, skipping refresh")
	}

	// Unconditional: the recurring trigger is the self-healing backbone.
	return s.ArmMidnightRecurring(ctx, func() {
		s.HandleMidnight(context.Background(), fetch, opts)
	})
}
