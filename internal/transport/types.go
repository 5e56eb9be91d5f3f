package transport

import "context"

type ChatTarget struct {
	ChatID   int64
	ThreadID int // forum topic thread id (0 if none)
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Sender delivers notification text to the configured chat channel.
type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) error

	// Healthy verifies the channel can reach the target, e.g. that the
	// bot is a member of the chat. Used as the permission probe.
	Healthy(ctx context.Context, to ChatTarget) error

	Stop(ctx context.Context) error
}
