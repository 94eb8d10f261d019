package tools

import (
	"testing"

	"github.com/devbridge/browser-debug-bridge/internal/store"
)

func TestProximityScoreDecaysWithDistance(t *testing.T) {
	near := proximityScore(1000, 1000, 5000)
	far := proximityScore(1000, 20000, 5000)
	if near != 1 {
		t.Fatalf("score at zero distance = %v, want 1", near)
	}
	if far >= near {
		t.Fatalf("expected far score %v < near score %v", far, near)
	}
	if far < 0 || far > 1 {
		t.Fatalf("score %v out of [0,1] bounds", far)
	}
}

func TestProximityScoreGuardsZeroWindow(t *testing.T) {
	score := proximityScore(1000, 1000, 0)
	if score != 1 {
		t.Fatalf("got %v, want 1 at zero distance regardless of window", score)
	}
}

func TestLastFailureAnchorPrefersLatestAcrossKinds(t *testing.T) {
	events := []store.Event{
		{Type: store.EventError, Timestamp: 1000},
		{Type: store.EventClick, Timestamp: 5000},
	}
	failures := []store.NetworkRecord{
		{Timestamp: 3000},
	}
	ts, kind, found := lastFailureAnchor(events, failures)
	if !found || ts != 3000 || kind != "network" {
		t.Fatalf("got ts=%d kind=%s found=%v, want ts=3000 kind=network", ts, kind, found)
	}
}

func TestLastFailureAnchorNotFoundWhenNoFailures(t *testing.T) {
	events := []store.Event{{Type: store.EventClick, Timestamp: 1000}}
	_, _, found := lastFailureAnchor(events, nil)
	if found {
		t.Fatal("expected found=false with no error events or network failures")
	}
}

func TestCorrelateAroundSortsByScoreDescending(t *testing.T) {
	events := []store.Event{
		{Type: store.EventClick, Timestamp: 8000},
		{Type: store.EventConsole, Timestamp: 1000},
	}
	items := correlateAround(1000, "error", 5, events, nil)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Timestamp != 1000 {
		t.Fatalf("expected closest timestamp first, got %d", items[0].Timestamp)
	}
}

func TestCausalPriorityBreaksTies(t *testing.T) {
	clickItem := correlated{Kind: "network"}
	if causalPriority("click", clickItem) != 2 {
		t.Fatal("expected click->network to outrank a plain network item")
	}
	consoleItem := correlated{Kind: "event", Type: string(store.EventConsole)}
	if causalPriority("error", consoleItem) != 2 {
		t.Fatal("expected error->console to outrank a plain event item")
	}
	plainEvent := correlated{Kind: "event", Type: string(store.EventClick)}
	if causalPriority("", plainEvent) != 0 {
		t.Fatal("expected an unrelated event to have the lowest priority")
	}
}
