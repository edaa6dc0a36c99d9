// Package notify pushes human-readable messages to an operator channel.
// Delivery is best effort: callers use Try, which logs failures and never
// returns them.
package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Notifier delivers a text message.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Nop drops every message.
type Nop struct{}

func (Nop) Send(context.Context, string) error { return nil }

// Try sends text through n and logs, rather than returns, any failure.
func Try(ctx context.Context, log logrus.FieldLogger, n Notifier, text string) {
	if n == nil {
		return
	}
	if err := n.Send(ctx, text); err != nil {
		log.Errorf("❌ Notification error: %v", err)
	}
}
