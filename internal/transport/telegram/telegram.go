package telegram

import (
	"context"
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"

	"prayerd/internal/transport"
	logx "prayerd/pkg/logx"
)

type Config struct {
	Token string

	// Offline skips the getMe call at construction; only used by tests.
	Offline bool
}

// Adapter is a send-only Telegram channel. prayerd never polls for
// updates; it only pushes prayer notifications out.
type Adapter struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Offline: cfg.Offline,
	})
	if err != nil {
		return nil, err
	}
	return &Adapter{cfg: cfg, log: log, bot: b}, nil
}

func (a *Adapter) SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) error {
	if a == nil || a.bot == nil {
		return errors.New("telegram adapter not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	sendOpt := &tele.SendOptions{}
	if opt != nil {
		sendOpt.ParseMode = tele.ParseMode(opt.ParseMode)
		sendOpt.DisableWebPagePreview = opt.DisablePreview
	}
	if to.ThreadID != 0 {
		sendOpt.ThreadID = to.ThreadID
	}

	_, err := a.bot.Send(tele.ChatID(to.ChatID), text, sendOpt)
	if err != nil {
		a.log.Warn("telegram send failed", logx.Int64("chat_id", to.ChatID), logx.Err(err))
	}
	return err
}

func (a *Adapter) Healthy(ctx context.Context, to transport.ChatTarget) error {
	if a == nil || a.bot == nil {
		return errors.New("telegram adapter not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := a.bot.ChatByID(to.ChatID)
	return err
}

func (a *Adapter) Stop(ctx context.Context) error {
	_ = ctx
	// Nothing to tear down: no poller, no background goroutines.
	return nil
}

// ensure interface compliance at compile time
var _ transport.Sender = (*Adapter)(nil)
