// Package domain defines the persistence models and the commission lifecycle
// state machine. This file owns the Status, Category, and Sender enums and the
// transition table that constrains how a request may move between states.
package domain

// Category classifies a commission request. It is fixed at creation.
type Category string

// Commission categories.
const (
	CategoryEngraving Category = "engraving"
	CategoryCake      Category = "cake"
	CategoryEvent     Category = "event"
	CategoryOther     Category = "other"
)

// Categories lists every valid category, in display order.
var Categories = []Category{CategoryEngraving, CategoryCake, CategoryEvent, CategoryOther}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryEngraving, CategoryCake, CategoryEvent, CategoryOther:
		return true
	}
	return false
}

// Sender identifies which counterpart authored a message.
type Sender string

// Message senders.
const (
	SenderRequester Sender = "requester"
	SenderArtisan   Sender = "artisan"
)

// Counterpart returns the other party in the thread.
func (s Sender) Counterpart() Sender {
	if s == SenderRequester {
		return SenderArtisan
	}
	return SenderRequester
}

// Status is the lifecycle state of a commission request.
//
// The happy path is new → under_review → quote_sent → accepted → in_progress
// → delivered. Every non-terminal state can also exit to rejected (artisan
// declines) or cancelled (either party walks away). delivered, rejected, and
// cancelled are terminal: no transition leaves them.
type Status string

// Lifecycle states.
const (
	StatusNew         Status = "new"
	StatusUnderReview Status = "under_review"
	StatusQuoteSent   Status = "quote_sent"
	StatusAccepted    Status = "accepted"
	StatusInProgress  Status = "in_progress"
	StatusDelivered   Status = "delivered"
	StatusRejected    Status = "rejected"
	StatusCancelled   Status = "cancelled"
)

// transitions is the full edge set of the lifecycle state machine. Anything
// not listed here is an illegal transition.
var transitions = map[Status][]Status{
	StatusNew:         {StatusUnderReview, StatusRejected, StatusCancelled},
	StatusUnderReview: {StatusQuoteSent, StatusRejected, StatusCancelled},
	StatusQuoteSent:   {StatusAccepted, StatusRejected, StatusCancelled},
	StatusAccepted:    {StatusInProgress, StatusCancelled},
	StatusInProgress:  {StatusDelivered, StatusCancelled},
	StatusDelivered:   nil,
	StatusRejected:    nil,
	StatusCancelled:   nil,
}

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether s admits no outgoing transition.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusRejected || s == StatusCancelled
}

// CanTransitionTo reports whether the edge s → target exists in the
// lifecycle table. Self-loops are not edges.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}
