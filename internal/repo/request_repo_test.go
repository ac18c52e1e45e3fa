package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/artisan-atelier/commission-backend/internal/domain"
)

func newDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(
		&domain.User{}, &domain.CommissionRequest{}, &domain.Attachment{},
		&domain.Message{}, &domain.Review{}, &domain.Idempotency{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func mustCreateRequest(t *testing.T, db *gorm.DB, status domain.Status) *domain.CommissionRequest {
	t.Helper()
	req := &domain.CommissionRequest{
		ContactName:  "Ada",
		ContactEmail: "ada@example.com",
		Category:     domain.CategoryCake,
		Status:       status,
		Details:      "{}",
		AccessToken:  uuid.NewString(),
	}
	if err := CreateRequest(context.Background(), db, req); err != nil {
		t.Fatalf("create request: %v", err)
	}
	return req
}

func TestCreateRequest_FillsDefaults(t *testing.T) {
	db := newDB(t, "repo_req_defaults")
	req := &domain.CommissionRequest{
		ContactName:  "Ada",
		ContactEmail: "ada@example.com",
		Category:     domain.CategoryOther,
		Details:      "{}",
		AccessToken:  uuid.NewString(),
	}
	if err := CreateRequest(context.Background(), db, req); err != nil {
		t.Fatalf("create: %v", err)
	}
	if req.ID == "" || req.Status != domain.StatusNew || req.CreatedAt.IsZero() {
		t.Fatalf("defaults not applied: %#v", req)
	}

	got, err := GetRequest(context.Background(), db, req.ID)
	if err != nil || got.ID != req.ID {
		t.Fatalf("get: %v %#v", err, got)
	}
}

func TestGetRequest_NotFound(t *testing.T) {
	db := newDB(t, "repo_req_missing")
	if _, err := GetRequest(context.Background(), db, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestUpdateRequestStatus_CompareAndSet(t *testing.T) {
	db := newDB(t, "repo_req_cas")
	req := mustCreateRequest(t, db, domain.StatusNew)

	rows, err := UpdateRequestStatus(context.Background(), db, req.ID, domain.StatusNew, domain.StatusUnderReview)
	if err != nil || rows != 1 {
		t.Fatalf("cas: rows=%d err=%v", rows, err)
	}

	// A stale observed value must match zero rows and write nothing.
	rows, err = UpdateRequestStatus(context.Background(), db, req.ID, domain.StatusNew, domain.StatusRejected)
	if err != nil || rows != 0 {
		t.Fatalf("stale cas: rows=%d err=%v", rows, err)
	}
	got, _ := GetRequest(context.Background(), db, req.ID)
	if got.Status != domain.StatusUnderReview {
		t.Fatalf("status corrupted by stale write: %s", got.Status)
	}
}

func TestUpdateCommercialFields(t *testing.T) {
	db := newDB(t, "repo_req_commercial")
	req := mustCreateRequest(t, db, domain.StatusQuoteSent)

	if err := UpdateCommercialFields(context.Background(), db, req.ID, map[string]any{"quote_amount": 99.0}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := GetRequest(context.Background(), db, req.ID)
	if got.QuoteAmount == nil || *got.QuoteAmount != 99.0 {
		t.Fatalf("quote not written: %#v", got.QuoteAmount)
	}

	// empty map is a no-op, not an error
	if err := UpdateCommercialFields(context.Background(), db, req.ID, map[string]any{}); err != nil {
		t.Fatalf("empty fields: %v", err)
	}

	// unknown id
	err := UpdateCommercialFields(context.Background(), db, uuid.NewString(), map[string]any{"quote_amount": 1.0})
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestListRequestsPage_And_Count(t *testing.T) {
	db := newDB(t, "repo_req_page")
	for i := 0; i < 3; i++ {
		mustCreateRequest(t, db, domain.StatusNew)
	}
	mustCreateRequest(t, db, domain.StatusDelivered)

	total, err := CountRequests(context.Background(), db, "")
	if err != nil || total != 4 {
		t.Fatalf("count all: %d %v", total, err)
	}
	total, err = CountRequests(context.Background(), db, domain.StatusDelivered)
	if err != nil || total != 1 {
		t.Fatalf("count filtered: %d %v", total, err)
	}

	page, err := ListRequestsPage(context.Background(), db, domain.StatusNew, 0, 2)
	if err != nil || len(page) != 2 {
		t.Fatalf("page: %d %v", len(page), err)
	}
	rest, err := ListRequestsPage(context.Background(), db, domain.StatusNew, 2, 2)
	if err != nil || len(rest) != 1 {
		t.Fatalf("second page: %d %v", len(rest), err)
	}
}

func TestAttachments_Lifecycle(t *testing.T) {
	db := newDB(t, "repo_attachments")
	req := mustCreateRequest(t, db, domain.StatusNew)

	att := &domain.Attachment{
		RequestID:   req.ID,
		FileName:    "sketch.png",
		StoragePath: "2026/08/abc.png",
		MimeType:    "image/png",
		SizeBytes:   1024,
	}
	if err := CreateAttachment(context.Background(), db, att); err != nil {
		t.Fatalf("create attachment: %v", err)
	}
	if att.ID == "" {
		t.Fatalf("attachment id not minted")
	}

	// scoped get: wrong request id misses
	if _, err := GetAttachment(context.Background(), db, uuid.NewString(), att.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-request get must miss, got %v", err)
	}

	list, err := ListAttachments(context.Background(), db, req.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %d %v", len(list), err)
	}

	if err := DeleteAttachment(context.Background(), db, req.ID, att.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// repeat delete reports not found
	if err := DeleteAttachment(context.Background(), db, req.ID, att.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("repeat delete: %v", err)
	}
}

func TestRequestsStats(t *testing.T) {
	db := newDB(t, "repo_req_stats")
	uid := "u-stats"

	count, maxTS, err := RequestsStats(context.Background(), db, uid)
	if err != nil || count != 0 || maxTS != nil {
		t.Fatalf("empty stats: %d %v %v", count, maxTS, err)
	}

	req := mustCreateRequest(t, db, domain.StatusNew)
	db.Model(req).Update("user_id", uid)

	count, maxTS, err = RequestsStats(context.Background(), db, uid)
	if err != nil || count != 1 || maxTS == nil {
		t.Fatalf("stats: %d %v %v", count, maxTS, err)
	}
}
