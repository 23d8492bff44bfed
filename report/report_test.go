package report

import (
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestAddRespectsMinLevel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewWithClock(LevelNormal, clock)

	r.Add(LevelMinimal, "certificate", "below threshold, dropped")
	r.Add(LevelNormal, "certificate", "at threshold, kept")
	r.Add(LevelDebug, "signature", "above threshold, kept")

	items := r.Items()
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].Message != "at threshold, kept" || items[1].Message != "above threshold, kept" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestAddWithDetailsAttachesDetails(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewWithClock(LevelMinimal, clock)

	r.AddWithDetails(LevelNormal, "certificate", "expired", map[string]interface{}{
		"serial": "7",
	})

	items := r.Items()
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	if items[0].Details["serial"] != "7" {
		t.Fatalf("details = %+v, want serial=7", items[0].Details)
	}
}

func TestItemsByCategoryFilters(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewWithClock(LevelMinimal, clock)

	r.Add(LevelNormal, "certificate", "cert msg 1")
	r.Add(LevelNormal, "signature", "sig msg")
	r.Add(LevelNormal, "certificate", "cert msg 2")

	certItems := r.ItemsByCategory("certificate")
	if len(certItems) != 2 {
		t.Fatalf("len(certItems) = %d, want 2", len(certItems))
	}
	for _, item := range certItems {
		if item.Category != "certificate" {
			t.Fatalf("unexpected category %q", item.Category)
		}
	}
}

func TestDurationAdvancesWithFakeClockAndFreezesOnComplete(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewWithClock(LevelMinimal, clock)

	clock.Advance(5 * time.Second)
	if got := r.Duration(); got.Seconds() < 5 {
		t.Fatalf("Duration = %v, want at least 5s", got)
	}

	r.Complete()
	frozen := r.Duration()

	clock.Advance(5 * time.Second)
	if r.Duration() != frozen {
		t.Fatalf("Duration changed after Complete: got %v, want %v", r.Duration(), frozen)
	}
}

func TestFormatIncludesItemsAndCategories(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewWithClock(LevelMinimal, clock)
	r.Add(LevelNormal, "certificate", "self-signed leaf accepted")
	r.Complete()

	out := r.Format()
	if !strings.Contains(out, "self-signed leaf accepted") {
		t.Fatalf("Format output missing message: %s", out)
	}
	if !strings.Contains(out, "certificate") {
		t.Fatalf("Format output missing category: %s", out)
	}
	if !strings.Contains(out, "Duration:") {
		t.Fatalf("Format output missing duration after Complete: %s", out)
	}
}
