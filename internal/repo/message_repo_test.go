package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/artisan-atelier/commission-backend/internal/domain"
)

func TestMessages_OrderAndScope(t *testing.T) {
	db := newDB(t, "repo_msg_order")
	req := mustCreateRequest(t, db, domain.StatusNew)

	m1, err := CreateMessage(context.Background(), db, req.ID, domain.SenderRequester, "first")
	if err != nil {
		t.Fatalf("create m1: %v", err)
	}
	m2, err := CreateMessage(context.Background(), db, req.ID, domain.SenderArtisan, "second")
	if err != nil {
		t.Fatalf("create m2: %v", err)
	}

	list, err := ListMessages(context.Background(), db, req.ID)
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %d %v", len(list), err)
	}
	if list[0].ID != m1.ID && list[0].CreatedAt.Equal(list[1].CreatedAt) && list[0].ID > list[1].ID {
		t.Fatalf("ordering broken: %s before %s", list[0].ID, list[1].ID)
	}

	// GetMessage is scoped to its request
	if _, err := GetMessage(context.Background(), db, uuid.NewString(), m2.ID); err == nil {
		t.Fatalf("cross-request get must miss")
	}
	got, err := GetMessage(context.Background(), db, req.ID, m2.ID)
	if err != nil || got.Body != "second" {
		t.Fatalf("get: %v %#v", err, got)
	}
}

func TestMarkReadUpTo_IdempotentAndBounded(t *testing.T) {
	db := newDB(t, "repo_msg_read")
	req := mustCreateRequest(t, db, domain.StatusNew)

	a1, _ := CreateMessage(context.Background(), db, req.ID, domain.SenderArtisan, "one")
	a2, _ := CreateMessage(context.Background(), db, req.ID, domain.SenderArtisan, "two")
	// The viewer's own message must never be stamped.
	mine, _ := CreateMessage(context.Background(), db, req.ID, domain.SenderRequester, "mine")

	// Mark up to a1 only: a2 stays unread.
	n, err := MarkReadUpTo(context.Background(), db, req.ID, domain.SenderArtisan, a1.CreatedAt, a1.ID)
	if err != nil || n != 1 {
		t.Fatalf("first mark: n=%d err=%v", n, err)
	}

	unread, err := UnreadCount(context.Background(), db, req.ID, domain.SenderArtisan)
	if err != nil || unread != 1 {
		t.Fatalf("unread after first mark: %d %v", unread, err)
	}

	// Repeating is a no-op; the original read timestamp survives.
	first, _ := GetMessage(context.Background(), db, req.ID, a1.ID)
	n, err = MarkReadUpTo(context.Background(), db, req.ID, domain.SenderArtisan, a2.CreatedAt, a2.ID)
	if err != nil || n != 1 {
		t.Fatalf("second mark: n=%d err=%v", n, err)
	}
	again, _ := GetMessage(context.Background(), db, req.ID, a1.ID)
	if again.ReadAt == nil || !again.ReadAt.Equal(*first.ReadAt) {
		t.Fatalf("read timestamp rewritten: %v -> %v", first.ReadAt, again.ReadAt)
	}

	// Own message untouched throughout.
	own, _ := GetMessage(context.Background(), db, req.ID, mine.ID)
	if own.ReadAt != nil {
		t.Fatalf("viewer's own message was stamped")
	}
}

func TestThreadStats(t *testing.T) {
	db := newDB(t, "repo_msg_stats")
	req := mustCreateRequest(t, db, domain.StatusNew)

	count, last, readCount, err := ThreadStats(context.Background(), db, req.ID)
	if err != nil || count != 0 || last != nil || readCount != 0 {
		t.Fatalf("empty thread stats: %d %v %d %v", count, last, readCount, err)
	}

	m, _ := CreateMessage(context.Background(), db, req.ID, domain.SenderArtisan, "hello")
	count, last, readCount, err = ThreadStats(context.Background(), db, req.ID)
	if err != nil || count != 1 || last == nil || readCount != 0 {
		t.Fatalf("stats after post: %d %v %d %v", count, last, readCount, err)
	}

	if _, err := MarkReadUpTo(context.Background(), db, req.ID, domain.SenderArtisan, m.CreatedAt, m.ID); err != nil {
		t.Fatalf("mark: %v", err)
	}
	_, _, readCount, err = ThreadStats(context.Background(), db, req.ID)
	if err != nil || readCount != 1 {
		t.Fatalf("read count after mark: %d %v", readCount, err)
	}
}

func TestCountMessages_MissingTable(t *testing.T) {
	db := newDB(t, "repo_msg_count")
	req := mustCreateRequest(t, db, domain.StatusNew)
	if _, err := CreateMessage(context.Background(), db, req.ID, domain.SenderRequester, "x"); err != nil {
		t.Fatalf("create: %v", err)
	}
	n, err := CountMessages(context.Background(), db, req.ID)
	if err != nil || n != 1 {
		t.Fatalf("count: %d %v", n, err)
	}

	db.Exec("DROP TABLE messages")
	if _, err := CountMessages(context.Background(), db, req.ID); err == nil {
		t.Fatalf("expected error after dropping table")
	}
}

func TestIdempotency_CreateGetExpiry(t *testing.T) {
	db := newDB(t, "repo_idem")
	req := mustCreateRequest(t, db, domain.StatusNew)

	rec, err := CreateIdempotency(context.Background(), db, "u1", req.ID, "k", "m1", 201, time.Hour)
	if err != nil || rec == nil {
		t.Fatalf("create: %v", err)
	}

	// duplicate tuple
	if _, err := CreateIdempotency(context.Background(), db, "u1", req.ID, "k", "m2", 201, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}

	// fresh lookup hits
	got, err := GetIdempotency(context.Background(), db, "u1", req.ID, "k", rec.CreatedAt)
	if err != nil || got == nil || got.MessageID != "m1" {
		t.Fatalf("get: %v %#v", err, got)
	}

	// expired lookup misses
	if _, err := GetIdempotency(context.Background(), db, "u1", req.ID, "k", rec.ExpiresAt.Add(time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired get: %v", err)
	}

	// blank request id short-circuits
	if _, err := GetIdempotency(context.Background(), db, "u1", "  ", "k", rec.CreatedAt); !errors.Is(err, ErrNotFound) {
		t.Fatalf("blank request id: %v", err)
	}
}
