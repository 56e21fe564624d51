package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coach-gateway/pkg/models"
)

type fakeSource struct {
	entries []models.IndicatorEntry
	err     error
}

func (f *fakeSource) List(ctx context.Context) ([]models.IndicatorEntry, error) {
	return f.entries, f.err
}

func TestFeedCache_StartAndLookup(t *testing.T) {
	src := &fakeSource{entries: []models.IndicatorEntry{
		{ID: "d1", Type: models.IndicatorDomain, Value: "evil.com", Category: "phishing", Severity: models.SeverityHigh},
	}}

	fc := NewFeedCache(src, time.Hour)
	if err := fc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer fc.Stop()

	if m := fc.Store().CheckDomain("evil.com"); m == nil {
		t.Error("expected a match for evil.com after initial load")
	}
	if fc.Store().Stats().TotalIndicators != 1 {
		t.Errorf("stats = %d indicators, want 1", fc.Store().Stats().TotalIndicators)
	}
}

func TestFeedCache_InvalidateSwapsStore(t *testing.T) {
	src := &fakeSource{entries: []models.IndicatorEntry{
		{ID: "d1", Type: models.IndicatorDomain, Value: "evil.com", Category: "phishing", Severity: models.SeverityHigh},
	}}

	fc := NewFeedCache(src, time.Hour)
	if err := fc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer fc.Stop()

	old := fc.Store()

	src.entries = []models.IndicatorEntry{
		{ID: "d2", Type: models.IndicatorDomain, Value: "worse.com", Category: "malware", Severity: models.SeverityCritical},
	}
	if err := fc.Invalidate(context.Background()); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	if fc.Store() == old {
		t.Error("Invalidate should swap in a fresh store")
	}
	if fc.Store().CheckDomain("evil.com") != nil {
		t.Error("old indicator survived the rebuild")
	}
	if fc.Store().CheckDomain("worse.com") == nil {
		t.Error("new indicator missing after rebuild")
	}

	// The old store keeps answering for callers that grabbed it earlier.
	if old.CheckDomain("evil.com") == nil {
		t.Error("previously returned store must stay usable")
	}
}

func TestFeedCache_StartFailsWhenSourceFails(t *testing.T) {
	src := &fakeSource{err: errors.New("db down")}

	fc := NewFeedCache(src, time.Hour)
	if err := fc.Start(context.Background()); err == nil {
		t.Error("Start should fail when the initial load fails")
	}
}
