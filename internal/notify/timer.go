package notify

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"prayerd/internal/transport"
	logx "prayerd/pkg/logx"
)

const deliverTimeout = 15 * time.Second

// TimerPlatform arms in-process timers and delivers each fired
// notification through a transport.Sender (Telegram in the daemon).
// Timers do not survive a restart; the scheduler re-arms on boot.
type TimerPlatform struct {
	sender transport.Sender
	target transport.ChatTarget
	log    logx.Logger
	now    func() time.Time

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewTimerPlatform(sender transport.Sender, target transport.ChatTarget, log logx.Logger) *TimerPlatform {
	return &TimerPlatform{
		sender: sender,
		target: target,
		log:    log,
		now:    time.Now,
		timers: map[string]*time.Timer{},
	}
}

func (p *TimerPlatform) RequestPermission(ctx context.Context) (bool, error) {
	if p.sender == nil {
		return false, errors.New("no sender configured")
	}
	if err := p.sender.Healthy(ctx, p.target); err != nil {
		return false, err
	}
	return true, nil
}

func (p *TimerPlatform) Schedule(ctx context.Context, n Notification) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if n.FireAt.IsZero() {
		return "", errors.New("notification has no fire time")
	}

	handle := uuid.NewString()
	delay := n.FireAt.Sub(p.now())
	if delay < 0 {
		delay = 0
	}

	p.mu.Lock()
	p.timers[handle] = time.AfterFunc(delay, func() { p.fire(handle, n) })
	p.mu.Unlock()

	p.log.Debug("notification armed",
		logx.String("handle", handle),
		logx.String("title", n.Title),
		logx.Time("fire_at", n.FireAt))
	return handle, nil
}

func (p *TimerPlatform) fire(handle string, n Notification) {
	p.mu.Lock()
	delete(p.timers, handle)
	p.mu.Unlock()

	text := n.Body
	if n.Title != "" {
		text = n.Title + "\n" + n.Body
	}

	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()
	if err := p.sender.SendText(ctx, p.target, text, &transport.SendOptions{DisablePreview: true}); err != nil {
		p.log.Warn("notification delivery failed", logx.String("title", n.Title), logx.Err(err))
	}
}

func (p *TimerPlatform) Cancel(ctx context.Context, handle string) error {
	_ = ctx
	p.mu.Lock()
	t, ok := p.timers[handle]
	if ok {
		delete(p.timers, handle)
	}
	p.mu.Unlock()

	if ok {
		_ = t.Stop()
	}
	// Unknown handles (e.g. persisted across a restart) are a no-op.
	return nil
}

func (p *TimerPlatform) Scheduled(ctx context.Context) ([]string, error) {
	_ = ctx
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.timers))
	for h := range p.timers {
		out = append(out, h)
	}
	sort.Strings(out)
	return out, nil
}

var _ Platform = (*TimerPlatform)(nil)
