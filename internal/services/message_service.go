// Package services – MessageService
//
// This file implements the MessageService, which manages the per-request
// negotiation thread: append-only posting, ordered listing, read-state
// tracking, and unread counts. The thread is shared by exactly two parties
// (requester and artisan); which party an actor speaks for is derived from
// their identity, never supplied by the client.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/artisan-atelier/commission-backend/internal/domain"
	"github.com/artisan-atelier/commission-backend/internal/notify"
	"github.com/artisan-atelier/commission-backend/internal/repo"
)

// DefaultMaxBodyRunes caps message bodies when no explicit limit is set.
const DefaultMaxBodyRunes = 4000

// MessageService implements the use-cases around the message thread.
type MessageService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Notifier delivers "message posted" notifications, best-effort.
	Notifier notify.Notifier

	// MaxBodyRunes caps message bodies by rune length.
	MaxBodyRunes int
}

// NewMessageService constructs a MessageService with the default body cap.
func NewMessageService(db *gorm.DB, notifier notify.Notifier) *MessageService {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &MessageService{
		DB:           db,
		Notifier:     notifier,
		MaxBodyRunes: DefaultMaxBodyRunes,
	}
}

// Post appends a message to the thread of a visible request.
//
// The sender is derived from the actor (admin speaks as the artisan, owner
// and guest as the requester). The body is trimmed; an empty result is
// rejected with ErrEmptyMessage and an over-long one with ErrMessageTooLong.
// Messages are immutable once stored. A "message posted" notification is
// dispatched asynchronously on success.
func (s *MessageService) Post(ctx context.Context, requestID string, actor Actor, body string) (*domain.Message, error) {
	req, err := loadVisible(ctx, s.DB, requestID, actor)
	if err != nil {
		return nil, err
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyMessage
	}
	max := s.MaxBodyRunes
	if max <= 0 {
		max = DefaultMaxBodyRunes
	}
	if utf8.RuneCountInString(body) > max {
		return nil, ErrMessageTooLong
	}

	msg, err := repo.CreateMessage(ctx, s.DB, requestID, actor.Sender(), body)
	if err != nil {
		return nil, err
	}
	notify.Async(func(ctx context.Context) error {
		return s.Notifier.MessagePosted(ctx, req, msg)
	})
	return msg, nil
}

// Visible reports whether the actor may see the request's thread. A missing
// request and one the actor cannot see both return ErrRequestNotFound.
func (s *MessageService) Visible(ctx context.Context, requestID string, actor Actor) error {
	_, err := loadVisible(ctx, s.DB, requestID, actor)
	return err
}

// List returns the full thread of a visible request in stable order
// (creation time, then ID as tiebreaker).
func (s *MessageService) List(ctx context.Context, requestID string, actor Actor) ([]domain.Message, error) {
	if _, err := loadVisible(ctx, s.DB, requestID, actor); err != nil {
		return nil, err
	}
	return repo.ListMessages(ctx, s.DB, requestID)
}

// MarkRead stamps read_at on every unread counterpart message up to and
// including upToID. A message's read timestamp is set at most once, so
// repeating the call is a no-op; the returned count is the number of
// messages newly marked.
//
// The boundary message must exist in this thread (ErrMessageNotFound). The
// viewer's own messages are never touched: read state always describes what
// the counterpart wrote.
func (s *MessageService) MarkRead(ctx context.Context, requestID, upToID string, actor Actor) (int64, error) {
	if _, err := loadVisible(ctx, s.DB, requestID, actor); err != nil {
		return 0, err
	}
	boundary, err := repo.GetMessage(ctx, s.DB, requestID, upToID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrMessageNotFound
		}
		return 0, err
	}
	counterpart := actor.Sender().Counterpart()
	return repo.MarkReadUpTo(ctx, s.DB, requestID, counterpart, boundary.CreatedAt, boundary.ID)
}

// UnreadCount returns how many counterpart messages the viewer has not yet
// marked read.
func (s *MessageService) UnreadCount(ctx context.Context, requestID string, actor Actor) (int64, error) {
	if _, err := loadVisible(ctx, s.DB, requestID, actor); err != nil {
		return 0, err
	}
	return repo.UnreadCount(ctx, s.DB, requestID, actor.Sender().Counterpart())
}
