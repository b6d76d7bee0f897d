package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pymesoft/comercio-backend/pkg/db/models"
	"github.com/pymesoft/comercio-backend/pkg/enums"
	pkgerrors "github.com/pymesoft/comercio-backend/pkg/errors"
	"github.com/pymesoft/comercio-backend/pkg/mailer"
)

type fakeMailer struct {
	sent []mailer.Message
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, msg mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakePublisher struct {
	channel  string
	payloads []any
	err      error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, payload any) error {
	if f.err != nil {
		return f.err
	}
	f.channel = channel
	f.payloads = append(f.payloads, payload)
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:notifications_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Notification{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func paidNotice() OrderPaidNotice {
	email := "ana@example.com"
	ref := "pi_123"
	return OrderPaidNotice{
		OrderID:    7,
		Kind:       enums.OrderKindSale,
		Total:      decimal.RequireFromString("80.00"),
		TotalPaid:  decimal.RequireFromString("80.00"),
		PartyName:  "Ana",
		PartyEmail: &email,
		PaymentRef: &ref,
	}
}

func TestNotifyOrderPaidFansOut(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	mail := &fakeMailer{}
	pub := &fakePublisher{}
	svc, err := NewService(NewRepository(db), mail, pub, "comercio:orders:paid")
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	if err := svc.NotifyOrderPaid(context.Background(), paidNotice()); err != nil {
		t.Fatalf("notify: %v", err)
	}

	var count int64
	if err := db.Model(&models.Notification{}).Count(&count).Error; err != nil {
		t.Fatalf("count notifications: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one stored notification, got %d", count)
	}

	if len(mail.sent) != 1 || mail.sent[0].ToAddress != "ana@example.com" {
		t.Fatalf("unexpected mail %+v", mail.sent)
	}

	if pub.channel != "comercio:orders:paid" || len(pub.payloads) != 1 {
		t.Fatalf("unexpected broadcast %+v", pub)
	}
	raw, ok := pub.payloads[0].([]byte)
	if !ok {
		t.Fatalf("expected raw JSON payload")
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded["order_id"] != float64(7) || decoded["status"] != "paid" {
		t.Fatalf("unexpected payload %v", decoded)
	}
}

func TestNotifyOrderPaidAggregatesFailures(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	mail := &fakeMailer{err: errors.New("smtp down")}
	pub := &fakePublisher{err: errors.New("redis down")}
	svc, err := NewService(NewRepository(db), mail, pub, "comercio:orders:paid")
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	err = svc.NotifyOrderPaid(context.Background(), paidNotice())
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if got := len(multierr.Errors(err)); got != 2 {
		t.Fatalf("expected 2 aggregated failures, got %d: %v", got, err)
	}
	if !strings.Contains(err.Error(), "smtp down") || !strings.Contains(err.Error(), "redis down") {
		t.Fatalf("unexpected aggregate %v", err)
	}

	// The in-app record still lands even when fan-out fails.
	var count int64
	if err := db.Model(&models.Notification{}).Count(&count).Error; err != nil {
		t.Fatalf("count notifications: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected stored notification, got %d", count)
	}
}

func TestNotifyOrderPaidSkipsMissingChannels(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, err := NewService(NewRepository(db), nil, nil, "")
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	notice := paidNotice()
	notice.PartyEmail = nil
	if err := svc.NotifyOrderPaid(context.Background(), notice); err != nil {
		t.Fatalf("notify: %v", err)
	}
}

func TestMarkRead(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, err := NewService(NewRepository(db), nil, nil, "")
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	ctx := context.Background()

	row := models.Notification{OrderID: 1, Title: "t", Message: "m"}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("seed notification: %v", err)
	}

	if err := svc.MarkRead(ctx, row.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	err = svc.MarkRead(ctx, row.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found on second read, got %v", err)
	}

	unread, err := svc.List(ctx, ListParams{UnreadOnly: true})
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(unread) != 0 {
		t.Fatalf("expected no unread rows, got %d", len(unread))
	}
}
