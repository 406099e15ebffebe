package degradation

import (
	"testing"
	"time"
)

func TestGate_CoreIsAlwaysAvailable(t *testing.T) {
	g := NewGate(nil)
	for level := LevelNormal; level <= LevelEmergency; level++ {
		if !g.Available(level, ServiceCore) {
			t.Fatalf("expected CORE available at %s", level)
		}
	}
}

func TestGate_DefaultThresholds(t *testing.T) {
	g := NewGate(nil)

	cases := []struct {
		service ServiceType
		level   Level
		want    bool
	}{
		{ServiceRecommendation, LevelNormal, true},
		{ServiceRecommendation, LevelLight, false},
		{ServiceAnalytics, LevelLight, false},
		{ServiceEnhancement, LevelLight, true},
		{ServiceEnhancement, LevelModerate, false},
		{ServiceNotification, LevelModerate, false},
		{ServiceSearch, LevelModerate, true},
		{ServiceSearch, LevelHeavy, false},
		{ServiceBusiness, LevelHeavy, true},
		{ServiceBusiness, LevelEmergency, false},
	}
	for _, tc := range cases {
		if got := g.Available(tc.level, tc.service); got != tc.want {
			t.Fatalf("Available(%s, %s) = %v, want %v", tc.level, tc.service, got, tc.want)
		}
	}
}

func TestGate_OverridesIgnoreCoreAndUnknownServices(t *testing.T) {
	g := NewGate(map[ServiceType]Level{
		ServiceCore:        LevelLight,
		ServiceSearch:      LevelLight,
		ServiceType("CDN"): LevelLight,
	})

	if !g.Available(LevelEmergency, ServiceCore) {
		t.Fatal("expected CORE override discarded")
	}
	if g.Available(LevelLight, ServiceSearch) {
		t.Fatal("expected SEARCH shed at LIGHT per override")
	}
	// Unknown classes are treated as always available.
	if !g.Available(LevelEmergency, ServiceType("CDN")) {
		t.Fatal("expected unknown service class available")
	}
}

func TestGate_DisabledAtIsSorted(t *testing.T) {
	g := NewGate(nil)

	disabled := g.DisabledAt(LevelModerate)
	want := []ServiceType{ServiceAnalytics, ServiceEnhancement, ServiceNotification, ServiceRecommendation}
	if len(disabled) != len(want) {
		t.Fatalf("expected %v, got %v", want, disabled)
	}
	for i := range want {
		if disabled[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, disabled)
		}
	}

	if got := g.DisabledAt(LevelNormal); len(got) != 0 {
		t.Fatalf("expected nothing shed at NORMAL, got %v", got)
	}
}

func TestHistory_RingKeepsNewestFirst(t *testing.T) {
	h := NewHistory(3)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		h.Append(Event{At: at.Add(time.Duration(i) * time.Second), To: Level(i % 5)})
	}

	if h.Len() != 3 {
		t.Fatalf("expected ring capped at 3, got %d", h.Len())
	}

	recent := h.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("expected 2 events, got %d", len(recent))
	}
	if !recent[0].At.After(recent[1].At) {
		t.Fatalf("expected newest first, got %+v", recent)
	}
	if recent[0].At != at.Add(4*time.Second) {
		t.Fatalf("expected latest event first, got %+v", recent[0])
	}

	// Oversized and non-positive n both clamp to the full ring.
	if got := h.Recent(10); len(got) != 3 {
		t.Fatalf("expected clamp to 3, got %d", len(got))
	}
	if got := h.Recent(0); len(got) != 3 {
		t.Fatalf("expected full ring for n=0, got %d", len(got))
	}
}
