package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"prayerd/internal/config"
	"prayerd/internal/eventbus"
	"prayerd/internal/notify"
	"prayerd/internal/provider/aladhan"
	"prayerd/internal/schedule"
	"prayerd/internal/storage"
	"prayerd/internal/transport"
	"prayerd/internal/transport/telegram"
	"prayerd/pkg/logx"
)

// App wires the daemon together: config, logging, storage, the
// Telegram transport, the prayer-times client and the notification
// scheduler.
type App struct {
	cfgm *config.Manager

	logs *logx.Service
	log  logx.Logger

	bus    eventbus.Bus
	store  storage.Store
	sender transport.Sender
	sched  *schedule.Scheduler
	client *aladhan.Client

	target transport.ChatTarget

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New loads and validates the config at cfgPath and builds every
// component. Nothing is started yet.
func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logs, log := logx.New(cfg.LogxConfig())
	log = log.With(logx.String("component", "app"))
	cfgm.SetLogger(log.With(logx.String("component", "config")))

	bus := eventbus.New()

	scfg, err := cfg.StorageConfig()
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(scfg, log.With(logx.String("component", "storage")))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	sender, err := telegram.New(telegram.Config{Token: cfg.Telegram.Token},
		log.With(logx.String("component", "telegram")))
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	target := transport.ChatTarget{ChatID: cfg.Telegram.ChatID, ThreadID: cfg.Telegram.ThreadID}

	platform := notify.NewTimerPlatform(sender, target, log.With(logx.String("component", "notify")))
	sched := schedule.New(platform, store, log.With(logx.String("component", "schedule")), bus)

	pcfg, err := cfg.ProviderConfig()
	if err != nil {
		return nil, err
	}
	// Surface each retry attempt on the bus so observers can watch the
	// provider struggle without being in its call path.
	retryLog := log.With(logx.String("component", "aladhan"))
	pcfg.Retry.OnRetry = func(attempt int, err error, delay time.Duration) {
		retryLog.Warn("fetch attempt failed",
			logx.Int("attempt", attempt), logx.Err(err), logx.Duration("next_in", delay))
		bus.Publish(eventbus.Event{
			Type: eventbus.EventRetryAttempt,
			Data: map[string]any{"attempt": attempt, "error": err.Error()},
		})
	}
	client, err := aladhan.New(pcfg, store, log, bus)
	if err != nil {
		return nil, err
	}

	return &App{
		cfgm:   cfgm,
		logs:   logs,
		log:    log,
		bus:    bus,
		store:  store,
		sender: sender,
		sched:  sched,
		client: client,
		target: target,
	}, nil
}

// Start brings the daemon up: arms today's notifications plus the
// recurring midnight refresh, and launches the config watcher.
func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.sched.Start()

	refresh := schedule.RefreshFunc(a.client.Timings)
	opts := a.cfgm.Get().ScheduleOptions()
	if err := a.sched.Initialize(runCtx, refresh, opts); err != nil {
		return fmt.Errorf("initialize schedules: %w", err)
	}

	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return cfg.Validate()
	})

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.cfgm.Watch(runCtx)
	}()

	sub := a.cfgm.Subscribe(4)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(runCtx, sub, refresh)
	}()

	events := a.bus.Subscribe(32)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer events.Unsubscribe()
		for {
			select {
			case <-runCtx.Done():
				return
			case ev, ok := <-events.C:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", ev.Type), logx.Any("data", ev.Data))
			}
		}
	}()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	a.log.Info("started",
		logx.Bool("persistent", a.store != nil),
		logx.Int64("chat_id", a.target.ChatID))
	return nil
}

// reloadLoop applies hot-reloadable config sections. Logging and
// notification options apply live; provider, telegram and storage
// changes need a restart and are only logged.
func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config, refresh schedule.RefreshFunc) {
	last := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			a.logs.Apply(cfg.LogxConfig())

			if last == nil || notificationsChanged(last, cfg) {
				a.log.Info("notification options changed; rescheduling")
				if !a.sched.HandleMidnight(ctx, refresh, cfg.ScheduleOptions()) {
					a.log.Warn("reschedule after config change failed; keeping previous schedules")
				}
			}
			if last != nil && (last.Provider != cfg.Provider ||
				last.Telegram != cfg.Telegram ||
				!storageEqual(last.Storage, cfg.Storage)) {
				a.log.Warn("provider/telegram/storage changes require a restart")
			}
			last = cfg
		}
	}
}

func notificationsChanged(a, b *config.Config) bool {
	x, y := a.Notifications, b.Notifications
	if x.MinutesBefore != y.MinutesBefore || len(x.Prayers) != len(y.Prayers) {
		return true
	}
	for i := range x.Prayers {
		if x.Prayers[i] != y.Prayers[i] {
			return true
		}
	}
	return boolPtr(x.AtTime) != boolPtr(y.AtTime)
}

func boolPtr(p *bool) bool {
	return p == nil || *p
}

func storageEqual(a, b *config.StorageConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Stop tears the daemon down in dependency order. The context bounds
// how long each component may take.
func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	a.log.Info("stopping")

	if a.cancel != nil {
		a.cancel()
	}

	a.sched.Stop(ctx)
	if err := a.sender.Stop(ctx); err != nil {
		a.log.Warn("transport stop", logx.Err(err))
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("storage close", logx.Err(err))
		}
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn("background loops did not finish before deadline")
	}

	a.log.Info("stopped")
	return a.logs.Close()
}
