// internal/email/cancellation.go
package email

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const cancellationEmailTimeout = 5 * time.Second

// SendCancellationEmail sends a cancellation email asynchronously.
// The returned channel is closed once the send attempt finishes; it is nil
// when nothing was sent.
func SendCancellationEmail(ctx context.Context, client EmailSender, recipient string, message Message, logger *zerolog.Logger) <-chan struct{} {
	if client == nil {
		return nil
	}
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		if logger != nil {
			logger.Debug().Msg("Skipping cancellation email without recipient")
		}
		return nil
	}
	if message.Subject == "" || message.Body == "" {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sendCtx, cancel := newEmailContext(ctx, cancellationEmailTimeout)
		defer cancel()
		if sendCtx.Err() != nil {
			return
		}
		if err := client.Send(sendCtx, recipient, message.Subject, message.Body); err != nil && logger != nil {
			logger.Error().Err(err).Msg("Failed to send cancellation email")
		}
	}()
	return done
}

// newEmailContext detaches from the parent's cancellation so handler-scoped
// contexts don't abort async sends, while keeping its values.
func newEmailContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(context.WithoutCancel(parent), timeout)
}
