package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/receiptwise/receiptwise/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders-test.db")
	s, err := Open(path, []string{"order_id", "date", "total"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenProvisionsFieldColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.db")

	s, err := Open(path, []string{"order_id", "date", "total"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Reopen with an extended field set; the new column must be added
	// without disturbing existing data.
	s2, err := Open(path, []string{"order_id", "date", "total", "merchant"})
	if err != nil {
		t.Fatalf("reopen with extra field failed: %v", err)
	}
	defer s2.Close()

	order := &models.Order{
		OrderID:     "X1",
		Fields:      map[string]string{"date": "2024-01-01", "total": "9.99", "merchant": "Corner Deli"},
		LastUpdated: time.Now().UTC(),
	}
	if _, err := s2.Insert(context.Background(), order); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := s2.FindByOrderID(context.Background(), "X1")
	if err != nil {
		t.Fatalf("FindByOrderID failed: %v", err)
	}
	if got.Fields["merchant"] != "Corner Deli" {
		t.Errorf("merchant = %q, want Corner Deli", got.Fields["merchant"])
	}
}

func TestOpenRejectsBadFieldNames(t *testing.T) {
	for _, fields := range [][]string{
		{"order_id", "total; DROP TABLE orders"},
		{"order_id", "id"},
		{"date", "total"}, // missing order_id
	} {
		if _, err := Open(filepath.Join(t.TempDir(), "bad.db"), fields); err == nil {
			t.Errorf("Open(%v) succeeded, want error", fields)
		}
	}
}

func TestInsertAndFind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	order := &models.Order{
		OrderID:     "X1",
		Filename:    "receipt.png",
		Fields:      map[string]string{"date": "2024-01-01", "total": "9.99"},
		LastUpdated: now,
	}

	inserted, err := s.Insert(ctx, order)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if inserted.ID == 0 {
		t.Error("expected surrogate id to be assigned")
	}

	got, err := s.FindByOrderID(ctx, "X1")
	if err != nil {
		t.Fatalf("FindByOrderID failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected order, got nil")
	}
	if got.OrderID != "X1" || got.Filename != "receipt.png" || got.Collected {
		t.Errorf("unexpected order: %+v", got)
	}
	if got.Fields["total"] != "9.99" {
		t.Errorf("total = %q, want 9.99", got.Fields["total"])
	}
	if !got.LastUpdated.Equal(now) {
		t.Errorf("last_updated = %v, want %v", got.LastUpdated, now)
	}
}

func TestFindMissingReturnsNil(t *testing.T) {
	s := newTestStore(t)

	got, err := s.FindByOrderID(context.Background(), "nope")
	if err != nil {
		t.Fatalf("FindByOrderID failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing order, got %+v", got)
	}
}

func TestInsertDuplicateOrderIDFails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	order := &models.Order{OrderID: "X1", LastUpdated: time.Now().UTC()}
	if _, err := s.Insert(ctx, order); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}
	if _, err := s.Insert(ctx, &models.Order{OrderID: "X1", LastUpdated: time.Now().UTC()}); err == nil {
		t.Error("expected unique constraint violation on duplicate order_id")
	}
}

func TestUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	order := &models.Order{
		OrderID:     "X1",
		Fields:      map[string]string{"date": "2024-01-01", "total": "9.99"},
		LastUpdated: time.Now().UTC(),
	}
	if _, err := s.Insert(ctx, order); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	order.SetField("total", "10.99")
	order.Collected = true
	order.LastUpdated = time.Now().UTC().Add(time.Minute)
	if _, err := s.Update(ctx, order); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := s.FindByOrderID(ctx, "X1")
	if err != nil {
		t.Fatalf("FindByOrderID failed: %v", err)
	}
	if got.Fields["total"] != "10.99" || !got.Collected {
		t.Errorf("unexpected order after update: %+v", got)
	}
}

func TestUpdateMissingReturnsNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Update(context.Background(), &models.Order{OrderID: "ghost", LastUpdated: time.Now().UTC()})
	var nf *models.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestAllOrderedByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"B2", "A1", "C3"} {
		if _, err := s.Insert(ctx, &models.Order{OrderID: id, LastUpdated: time.Now().UTC()}); err != nil {
			t.Fatalf("Insert %s failed: %v", id, err)
		}
	}

	orders, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(orders))
	}
	want := []string{"B2", "A1", "C3"}
	for i, w := range want {
		if orders[i].OrderID != w {
			t.Errorf("orders[%d] = %s, want %s (insertion order)", i, orders[i].OrderID, w)
		}
	}
}
