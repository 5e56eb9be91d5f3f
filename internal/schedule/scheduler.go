package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"prayerd/internal/eventbus"
	"prayerd/internal/notify"
	"prayerd/internal/prayer"
	"prayerd/internal/storage"
	logx "prayerd/pkg/logx"
)

// Scheduler maintains the invariant that exactly one self-renewing set
// of notifications reflecting today's prayer times is armed: no
// duplicates, no stale leftovers from a previous day.
//
// Calls that mutate the armed set (Schedule, CancelAll, HandleMidnight)
// hold one lock for the whole cancel-then-reschedule sequence so the
// persisted handle list never interleaves between two callers.
type Scheduler struct {
	platform notify.Platform
	store    storage.Store
	log      logx.Logger
	bus      eventbus.Bus

	now func() time.Time

	mu sync.Mutex
	c  *cron.Cron

	midnightTimer *time.Timer
	midnightEntry cron.EntryID
	recurring     bool
	started       bool
}

// New builds a scheduler. A nil store degrades to session-only
// bookkeeping; a nil bus disables lifecycle events.
func New(platform notify.Platform, store storage.Store, log logx.Logger, bus eventbus.Bus) *Scheduler {
	if store == nil {
		store = storage.NewMemory()
	}
	return &Scheduler{
		platform: platform,
		store:    store,
		log:      log,
		bus:      bus,
		now:      time.Now,
		c:        cron.New(),
	}
}

// Start begins serving cron triggers. Idempotent.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.c.Start()
}

// Stop halts the midnight triggers. Armed prayer notifications keep
// their timers; callers wanting a full teardown use CancelAll first.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.midnightTimer != nil {
		_ = s.midnightTimer.Stop()
		s.midnightTimer = nil
	}
	c := s.c
	s.started = false
	s.mu.Unlock()

	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
		}
	}
}

// RequestPermission reports whether the notification platform may
// deliver. It never returns an error: probe failures resolve to false.
func (s *Scheduler) RequestPermission(ctx context.Context) bool {
	granted, err := s.platform.RequestPermission(ctx)
	if err != nil {
		s.log.Warn("notification permission probe failed", logx.Err(err))
		return false
	}
	return granted
}

// CancelAll cancels every persisted prayer-notification handle
// (best-effort per handle) and clears the persisted list. Safe to call
// when nothing is armed.
func (s *Scheduler) CancelAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelAllLocked(ctx)
}

func (s *Scheduler) cancelAllLocked(ctx context.Context) error {
	handles, err := s.store.GetHandles(ctx)
	if err != nil {
		s.log.Warn("reading armed handles failed", logx.Err(err))
	}
	if len(handles) == 0 {
		return nil
	}

	cancelled := 0
	for _, h := range handles {
		if err := s.platform.Cancel(ctx, h); err != nil {
			// One refusal must not strand the rest.
			s.log.Warn("cancel failed", logx.String("handle", h), logx.Err(err))
			continue
		}
		cancelled++
	}

	if err := s.store.PutHandles(ctx, nil); err != nil {
		return fmt.Errorf("clearing handle list: %w", err)
	}

	s.publish(eventbus.EventScheduleCancelled, map[string]int{"cancelled": cancelled, "total": len(handles)})
	s.log.Debug("prayer notifications cancelled", logx.Int("count", cancelled))
	return nil
}

// Schedule arms today's notification set from the given table: cancel
// everything first, then one reminder (MinutesBefore ahead) and one
// at-time notification per enabled prayer, each rolled forward a day if
// its instant has already passed. The resulting handle list replaces the
// persisted one.
//
// A denied permission logs and returns nil; platform failures degrade to
// "that notification is not armed" rather than propagating.
func (s *Scheduler) Schedule(ctx context.Context, t prayer.Table, opts Options) error {
	if err := t.Validate(); err != nil {
		return err
	}
	o := opts.withDefaults()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Idempotency: never stack a new set on top of an old one.
	if err := s.cancelAllLocked(ctx); err != nil {
		s.log.Warn("pre-schedule cancel incomplete", logx.Err(err))
	}

	granted, err := s.platform.RequestPermission(ctx)
	if err != nil || !granted {
		s.log.Warn("notifications not permitted, nothing armed", logx.Err(err))
		return nil
	}

	now := s.now()
	var handles []string
	for _, name := range prayer.Names() {
		if !o.wantsPrayer(name) {
			continue
		}
		clock := t.TimeOf(name)
		base, err := prayer.At(now, clock)
		if err != nil {
			s.log.Warn("unparseable prayer time", logx.String("prayer", name), logx.Err(err))
			continue
		}

		if o.MinutesBefore > 0 {
			fireAt := prayer.RollForwardIfPast(base.Add(-time.Duration(o.MinutesBefore)*time.Minute), now)
			if h, ok := s.armLocked(ctx, notify.Notification{
				Title:  name,
				Body:   reminderBody(name, clock, o.MinutesBefore),
				FireAt: fireAt,
			}); ok {
				handles = append(handles, h)
			}
		}

		if o.atTime() {
			fireAt := prayer.RollForwardIfPast(base, now)
			if h, ok := s.armLocked(ctx, notify.Notification{
				Title:  name,
				Body:   atTimeBody(name, clock),
				FireAt: fireAt,
			}); ok {
				handles = append(handles, h)
			}
		}
	}

	if err := s.store.PutHandles(ctx, handles); err != nil {
		return fmt.Errorf("persisting handle list: %w", err)
	}

	s.publish(eventbus.EventScheduleArmed, map[string]any{"handles": len(handles), "date": t.Date})
	s.log.Info("prayer notifications armed",
		logx.Int("handles", len(handles)),
		logx.String("date", t.Date),
		logx.Int("minutes_before", o.MinutesBefore),
		logx.Bool("at_time", o.atTime()))
	return nil
}

func (s *Scheduler) armLocked(ctx context.Context, n notify.Notification) (string, bool) {
	h, err := s.platform.Schedule(ctx, n)
	if err != nil {
		// Degrade to "not armed"; the rest of the set still goes out.
		s.log.Warn("arming notification failed", logx.String("title", n.Title), logx.Err(err))
		return "", false
	}
	return h, true
}

func reminderBody(name, clock string, minutesBefore int) string {
	if twelve, err := prayer.FormatTo12Hour(clock); err == nil {
		clock = twelve
	}
	return fmt.Sprintf("%s is in %s (%s)", name, prayer.FormatRemaining(minutesBefore), clock)
}

func atTimeBody(name, clock string) string {
	if twelve, err := prayer.FormatTo12Hour(clock); err == nil {
		clock = twelve
	}
	return fmt.Sprintf("It is time for %s (%s)", name, clock)
}

func (s *Scheduler) publish(typ string, data any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, Time: s.now(), Data: data})
}
