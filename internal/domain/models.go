// Package domain defines the persistence models for commission requests,
// attachments, messages, and reviews. These types are mapped with GORM and
// form the core data layer of the commission backend.
package domain

import (
	"time"
)

// CommissionRequest represents one customer's customization order as it moves
// through the fulfillment lifecycle. The contact fields are a snapshot taken
// at submission time and never change afterwards, even when the owning user
// later edits their profile.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: owner when submitted by a registered user; nil for guests.
//   - ContactName / ContactEmail / ContactPhone: immutable contact snapshot.
//   - Category: fixed classification (engraving, cake, event, other), immutable.
//   - Status: lifecycle state; transitions are constrained (see status.go).
//   - Details: opaque category-specific payload, stored as a JSON string and
//     never inspected by the core.
//   - QuoteAmount / QuoteNotes / DueDate / AdminNotes: commercial fields,
//     nullable and settable only by the artisan (admin).
//   - AccessToken: per-request secret that lets a guest view and message the
//     request without an account. Hidden from JSON; returned once at creation.
type CommissionRequest struct {
	ID           string     `json:"id"            gorm:"type:char(36);primaryKey"`
	UserID       *string    `json:"user_id"       gorm:"type:varchar(64);index:idx_user_requests"`
	ContactName  string     `json:"contact_name"  gorm:"type:varchar(120);not null"`
	ContactEmail string     `json:"contact_email" gorm:"type:varchar(254);not null;index"`
	ContactPhone *string    `json:"contact_phone,omitempty" gorm:"type:varchar(32)"`
	Category     Category   `json:"category"      gorm:"type:varchar(16);not null;check:category IN ('engraving','cake','event','other')"`
	Status       Status     `json:"status"        gorm:"type:varchar(16);not null;default:'new';index"`
	Details      string     `json:"details"       gorm:"type:text;not null;default:'{}'"`
	QuoteAmount  *float64   `json:"quote_amount,omitempty"`
	QuoteNotes   *string    `json:"quote_notes,omitempty" gorm:"type:text"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	AdminNotes   *string    `json:"-"             gorm:"type:text"`
	AccessToken  string     `json:"-"             gorm:"type:char(36);not null;uniqueIndex"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName returns the database table name for CommissionRequest.
func (CommissionRequest) TableName() string { return "commission_requests" }

// Owned reports whether the request belongs to a registered user.
func (r *CommissionRequest) Owned() bool { return r.UserID != nil && *r.UserID != "" }

// Attachment is a file reference uploaded alongside a commission request.
// Attachments are immutable once created; they can only be deleted. The raw
// bytes live in object storage, the row only carries metadata.
type Attachment struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	RequestID   string    `json:"request_id"   gorm:"type:char(36);not null;index"`
	FileName    string    `json:"file_name"    gorm:"type:varchar(255);not null"`
	StoragePath string    `json:"storage_path" gorm:"type:varchar(512);not null"`
	MimeType    string    `json:"mime_type"    gorm:"type:varchar(127);not null"`
	SizeBytes   int64     `json:"size_bytes"   gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`

	// Request is the parent commission request. Attachments are
	// cascade-deleted if the request is removed.
	Request CommissionRequest `json:"-" gorm:"foreignKey:RequestID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Attachment.
func (Attachment) TableName() string { return "attachments" }

// Message is one entry in the negotiation thread of a commission request.
// Messages are immutable after creation except for ReadAt, which moves from
// nil to a timestamp exactly once. They are never edited or deleted so the
// thread remains an append-only audit trail.
type Message struct {
	ID        string     `json:"id"         gorm:"type:char(36);primaryKey"`
	RequestID string     `json:"request_id" gorm:"type:char(36);not null;index:idx_request_msgs,priority:1"`
	Sender    Sender     `json:"sender"     gorm:"type:varchar(16);not null;check:sender IN ('requester','artisan')"`
	Body      string     `json:"body"       gorm:"type:text;not null"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at" gorm:"index:idx_request_msgs,priority:2"`

	// Request is the parent commission request. Messages are cascade-deleted
	// if the request is removed.
	Request CommissionRequest `json:"-" gorm:"foreignKey:RequestID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// Review is a customer's rating of a delivered commission. A user can leave
// at most one review per request (enforced by unique index). Moderation state
// is two independent admin-only flags: Approved and Published.
type Review struct {
	ID        string     `json:"id"         gorm:"type:char(36);primaryKey"`
	RequestID string     `json:"request_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_reviews_request_user"`
	UserID    string     `json:"user_id"    gorm:"type:varchar(64);not null;index;uniqueIndex:ux_reviews_request_user"`
	Rating    int        `json:"rating"     gorm:"not null;check:rating BETWEEN 1 AND 5"`
	Title     *string    `json:"title,omitempty" gorm:"type:varchar(160)"`
	Body      string     `json:"body"       gorm:"type:text;not null"`
	PhotoPath *string    `json:"photo_path,omitempty" gorm:"type:varchar(512)"`
	Approved  bool       `json:"approved"   gorm:"not null;default:false"`
	Published bool       `json:"published"  gorm:"not null;default:false"`
	ReplyText *string    `json:"reply_text,omitempty" gorm:"type:text"`
	RepliedAt *time.Time `json:"replied_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Request is the reviewed commission. Reviews are cascade-deleted if the
	// underlying request is removed.
	Request CommissionRequest `json:"-" gorm:"foreignKey:RequestID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Review.
func (Review) TableName() string { return "reviews" }

// User is the backing identity record consulted by the session guard. The
// guard caches lookups for a bounded TTL, so edits here become visible to
// already-authenticated callers only after the cache entry expires.
type User struct {
	ID        string    `json:"id"       gorm:"type:varchar(64);primaryKey"`
	Email     string    `json:"email"    gorm:"type:varchar(254);not null;uniqueIndex"`
	Name      string    `json:"name"     gorm:"type:varchar(120);not null"`
	Role      string    `json:"role"     gorm:"type:varchar(16);not null;default:'customer';check:role IN ('customer','admin')"`
	Disabled  bool      `json:"disabled" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }
