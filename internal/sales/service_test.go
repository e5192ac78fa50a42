package sales

import (
	"context"
	"io"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/stocklinehq/stockline-backend/pkg/db/models"
	pkgerrors "github.com/stocklinehq/stockline-backend/pkg/errors"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
)

type fakeRepository struct {
	records   []*models.SaleRecord
	createErr error
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) CreateBatch(_ context.Context, records []*models.SaleRecord) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.records = append(f.records, records...)
	return nil
}

func (f *fakeRepository) TotalsByVariant(_ context.Context, variantIDs []int64) (map[int64]int, error) {
	totals := map[int64]int{}
	wanted := map[int64]struct{}{}
	for _, id := range variantIDs {
		wanted[id] = struct{}{}
	}
	for _, record := range f.records {
		if _, ok := wanted[record.VariantID]; ok {
			totals[record.VariantID] += record.Qty
		}
	}
	return totals, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestService_RecordOrder(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo, testLogger())
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	createdAt := time.Date(2025, 9, 10, 8, 30, 0, 0, time.UTC)
	records, err := svc.RecordOrder(context.Background(), RecordOrderInput{
		OrderID:   4001,
		CreatedAt: createdAt,
		LineItems: []OrderLineItem{
			{VariantID: 101, SKU: "TEE-S", Qty: 2},
			{VariantID: 102, SKU: "TEE-M", Qty: 1},
		},
	})
	if err != nil {
		t.Fatalf("RecordOrder error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if len(repo.records) != 2 {
		t.Fatalf("expected 2 persisted records, got %d", len(repo.records))
	}
	first := repo.records[0]
	if first.OrderID != 4001 || first.VariantID != 101 || first.Qty != 2 || first.SKU != "TEE-S" {
		t.Fatalf("unexpected record data: %+v", first)
	}
	if !first.CreatedAt.Equal(createdAt) {
		t.Fatalf("expected created_at %s, got %s", createdAt, first.CreatedAt)
	}
}

func TestService_RecordOrderAccumulatesAcrossOrders(t *testing.T) {
	repo := &fakeRepository{}
	svc, _ := NewService(repo, testLogger())

	for _, orderID := range []int64{1, 2, 3} {
		if _, err := svc.RecordOrder(context.Background(), RecordOrderInput{
			OrderID:   orderID,
			LineItems: []OrderLineItem{{VariantID: 101, SKU: "TEE-S", Qty: 4}},
		}); err != nil {
			t.Fatalf("RecordOrder error: %v", err)
		}
	}

	totals, err := repo.TotalsByVariant(context.Background(), []int64{101})
	if err != nil {
		t.Fatalf("TotalsByVariant error: %v", err)
	}
	if totals[101] != 12 {
		t.Fatalf("expected total 12, got %d", totals[101])
	}
}

func TestService_RecordOrderValidation(t *testing.T) {
	repo := &fakeRepository{}
	svc, _ := NewService(repo, testLogger())

	cases := []struct {
		name  string
		input RecordOrderInput
	}{
		{"missing order id", RecordOrderInput{LineItems: []OrderLineItem{{VariantID: 1, Qty: 1}}}},
		{"no line items", RecordOrderInput{OrderID: 1}},
		{"missing variant id", RecordOrderInput{OrderID: 1, LineItems: []OrderLineItem{{Qty: 1}}}},
		{"negative quantity", RecordOrderInput{OrderID: 1, LineItems: []OrderLineItem{{VariantID: 1, Qty: -1}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RecordOrder(context.Background(), tc.input)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation code, got %v", err)
			}
		})
	}
	if len(repo.records) != 0 {
		t.Fatalf("invalid input must not append rows, got %d", len(repo.records))
	}
}
