// Package notify delivers lifecycle notifications to the people involved in
// a commission request. Delivery is strictly best-effort: notification
// failures are logged and never propagate into the operation that triggered
// them, so a down email provider cannot fail a submission or a transition.
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/artisan-atelier/commission-backend/internal/domain"
)

// Notifier is the outbound notification contract consumed by the services.
type Notifier interface {
	// RequestCreated tells the requester their submission was received.
	RequestCreated(ctx context.Context, req *domain.CommissionRequest) error

	// StatusChanged tells the requester the request moved to a new state.
	StatusChanged(ctx context.Context, req *domain.CommissionRequest, from, to domain.Status) error

	// MessagePosted tells the counterpart a new message is waiting.
	MessagePosted(ctx context.Context, req *domain.CommissionRequest, msg *domain.Message) error
}

// sendTimeout bounds each async delivery so a hung provider cannot leak
// goroutines indefinitely.
const sendTimeout = 15 * time.Second

// Async runs fn on its own goroutine with a fresh timeout context, logging
// any failure. The caller's context is deliberately not inherited: the HTTP
// request that triggered the notification completes (and cancels its context)
// before delivery finishes.
func Async(fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Warn().Err(err).Msg("notification delivery failed")
		}
	}()
}

// Noop is a Notifier that does nothing. Used in tests and when no email
// provider is configured.
type Noop struct{}

func (Noop) RequestCreated(context.Context, *domain.CommissionRequest) error { return nil }

func (Noop) StatusChanged(context.Context, *domain.CommissionRequest, domain.Status, domain.Status) error {
	return nil
}

func (Noop) MessagePosted(context.Context, *domain.CommissionRequest, *domain.Message) error {
	return nil
}
