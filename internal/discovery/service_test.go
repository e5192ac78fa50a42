package discovery

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"testing"

	"github.com/stocklinehq/stockline-backend/internal/catalog"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
)

type fakeLister struct {
	pages []catalog.ProductPage
	calls int
	err   error
}

func (f *fakeLister) ListProducts(_ context.Context, _ catalog.Cursor, _ []string) (catalog.ProductPage, error) {
	if f.err != nil {
		return catalog.ProductPage{}, f.err
	}
	if f.calls >= len(f.pages) {
		return catalog.ProductPage{}, nil
	}
	page := f.pages[f.calls]
	f.calls++
	return page, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestDiscoverRequiresAllTags(t *testing.T) {
	lister := &fakeLister{pages: []catalog.ProductPage{{
		Products: []catalog.Product{
			{ID: 1, Title: "Both", Tags: "summer-25, sale"},
			{ID: 2, Title: "OnlyOne", Tags: "summer-25"},
			{ID: 3, Title: "Superset", Tags: "summer-25, sale, clearance"},
			{ID: 4, Title: "Neither", Tags: "winter-25"},
		},
	}}}

	svc, err := NewService(lister, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	products, err := svc.DiscoverTaggedProducts(context.Background(), []string{"Summer-25", " SALE "})
	if err != nil {
		t.Fatalf("discover: %v", err)
	}

	var ids []int64
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	if !reflect.DeepEqual(ids, []int64{1, 3}) {
		t.Fatalf("expected products [1 3], got %v", ids)
	}
}

func TestDiscoverEmptyTagsReturnsEmptyWithoutCall(t *testing.T) {
	lister := &fakeLister{}
	svc, err := NewService(lister, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	products, err := svc.DiscoverTaggedProducts(context.Background(), []string{" ", ""})
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(products) != 0 {
		t.Fatalf("expected empty result, got %d products", len(products))
	}
	if lister.calls != 0 {
		t.Fatalf("expected no catalog calls, got %d", lister.calls)
	}
}

func TestDiscoverPaginatesUntilCursorExhausted(t *testing.T) {
	lister := &fakeLister{pages: []catalog.ProductPage{
		{
			Products: []catalog.Product{{ID: 1, Tags: "fall-25"}},
			Next:     catalog.Cursor{PageInfo: "next-1"},
			HasNext:  true,
		},
		{
			Products: []catalog.Product{{ID: 2, Tags: "fall-25"}},
		},
	}}

	svc, err := NewService(lister, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	products, err := svc.DiscoverTaggedProducts(context.Background(), []string{"fall-25"})
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products across pages, got %d", len(products))
	}
	if lister.calls != 2 {
		t.Fatalf("expected 2 page fetches, got %d", lister.calls)
	}
}

func TestDiscoverStopsOnEmptyPage(t *testing.T) {
	lister := &fakeLister{pages: []catalog.ProductPage{
		{
			Products: []catalog.Product{{ID: 1, Tags: "fall-25"}},
			Next:     catalog.Cursor{SinceID: 1},
			HasNext:  true,
		},
		{},
	}}

	svc, _ := NewService(lister, testLogger())
	products, err := svc.DiscoverTaggedProducts(context.Background(), []string{"fall-25"})
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}
	if lister.calls != 2 {
		t.Fatalf("expected 2 page fetches, got %d", lister.calls)
	}
}

func TestDiscoverPropagatesClientError(t *testing.T) {
	lister := &fakeLister{err: fmt.Errorf("upstream down")}
	svc, _ := NewService(lister, testLogger())

	if _, err := svc.DiscoverTaggedProducts(context.Background(), []string{"fall-25"}); err == nil {
		t.Fatal("expected client error to propagate")
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" Summer-25 ", "SALE", "sale", "", "  "})
	want := []string{"summer-25", "sale"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
