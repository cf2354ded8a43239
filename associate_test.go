package seismix

import (
	"math"
	"strings"
	"testing"
	"time"
)

func baseTime() time.Time {
	return time.Date(2021, 3, 14, 9, 0, 0, 0, time.UTC)
}

func assocStations() []Station {
	return []Station{
		{ID: "NET.C00", Coords: map[string]float64{"x(km)": -10, "y(km)": -10}},
		{ID: "NET.C01", Coords: map[string]float64{"x(km)": 10, "y(km)": -10}},
		{ID: "NET.C02", Coords: map[string]float64{"x(km)": -10, "y(km)": 10}},
		{ID: "NET.C03", Coords: map[string]float64{"x(km)": 10, "y(km)": 10}},
	}
}

// eventPicks synthesizes the P and S arrivals of one event at every station,
// eight picks in total.
func eventPicks(base time.Time, x, y, t0 float64) []PhasePick {
	vel := DefaultVelocity()
	var picks []PhasePick
	for _, st := range assocStations() {
		sta := []float64{st.Coords["x(km)"], st.Coords["y(km)"]}
		for _, phase := range []string{"p", "s"} {
			tt := vel.Time([]float64{x, y}, sta, phase)
			at := base.Add(time.Duration(math.Round((t0 + tt) * 1e9)))
			picks = append(picks, PhasePick{
				ID:   st.ID,
				Time: at,
				Type: strings.ToUpper(phase),
				Prob: 0.95,
			})
		}
	}
	return picks
}

// assocTestConfig keeps the fixtures small: eight picks form an event and
// every group gets exactly one hypothesis per MinPicksPerEvent picks.
func assocTestConfig() AssocConfig {
	cfg := DefaultAssocConfig()
	cfg.Feature.Dims = []string{"x(km)", "y(km)"}
	cfg.MinPicksPerEvent = 8
	cfg.OversampleFactor = 1
	return cfg
}

func TestAssociate_TwoEvents(t *testing.T) {
	base := baseTime()
	picks := eventPicks(base, 0, 0, 10)
	picks = append(picks, eventPicks(base, 2, -1, 300)...)

	events, assignments, err := Associate(picks, assocStations(), assocTestConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].ID == events[1].ID {
		t.Error("events share an identifier")
	}

	// events come back ordered by origin time
	for i, wantT0 := range []float64{10, 300} {
		ev := events[i]
		at, err := time.Parse(TimestampFormat, ev.Time)
		if err != nil {
			t.Fatalf("event %d: unparseable time %q: %v", i, ev.Time, err)
		}
		want := base.Add(time.Duration(wantT0) * time.Second)
		if d := at.Sub(want); d < -time.Second || d > time.Second {
			t.Errorf("event %d: origin time %v off by %v", i, ev.Time, d)
		}
		if ev.PickCount != 8 {
			t.Errorf("event %d: expected 8 picks, got %d", i, ev.PickCount)
		}
		if ev.Score < 7.9 {
			t.Errorf("event %d: expected score ~8, got %v", i, ev.Score)
		}
		if len(ev.Location) != 2 {
			t.Errorf("event %d: expected 2 location coordinates, got %v", i, ev.Location)
		}
		if len(ev.Sigma) != 1 || ev.Sigma[0] <= 0 || ev.Sigma[0] > 1 {
			t.Errorf("event %d: unexpected sigma %v", i, ev.Sigma)
		}
	}

	// every pick is assigned exactly once, to the right event
	if len(assignments) != 16 {
		t.Fatalf("expected 16 assignments, got %d", len(assignments))
	}
	seen := make(map[int]bool)
	for _, a := range assignments {
		if seen[a.PickIndex] {
			t.Errorf("pick %d assigned twice", a.PickIndex)
		}
		seen[a.PickIndex] = true
		if a.Prob < 0.99 {
			t.Errorf("pick %d: expected responsibility ~1, got %v", a.PickIndex, a.Prob)
		}
		want := events[0].ID
		if a.PickIndex >= 8 {
			want = events[1].ID
		}
		if a.EventID != want {
			t.Errorf("pick %d assigned to the wrong event", a.PickIndex)
		}
	}
	for i := 0; i < 16; i++ {
		if !seen[i] {
			t.Errorf("pick %d never assigned", i)
		}
	}
}

func TestAssociate_SingleMixtureWithoutTimeSplit(t *testing.T) {
	base := baseTime()
	picks := eventPicks(base, 0, 0, 10)
	picks = append(picks, eventPicks(base, 2, -1, 300)...)

	cfg := assocTestConfig()
	cfg.DisableTimeSplit = true
	events, assignments, err := Associate(picks, assocStations(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	for i, ev := range events {
		if ev.PickCount != 8 {
			t.Errorf("event %d: expected 8 picks, got %d", i, ev.PickCount)
		}
	}
	if len(assignments) != 16 {
		t.Errorf("expected 16 assignments, got %d", len(assignments))
	}
}

func TestAssociate_DropsUnknownStationPicks(t *testing.T) {
	base := baseTime()
	picks := []PhasePick{{ID: "NET.NOPE", Time: base.Add(12 * time.Second), Type: "P", Prob: 0.9}}
	picks = append(picks, eventPicks(base, 0, 0, 10)...)

	events, assignments, err := Associate(picks, assocStations(), assocTestConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if len(assignments) != 8 {
		t.Fatalf("expected 8 assignments, got %d", len(assignments))
	}
	for _, a := range assignments {
		if a.PickIndex == 0 {
			t.Error("dropped pick appears in the assignments")
		}
		if a.PickIndex < 1 || a.PickIndex > 8 {
			t.Errorf("assignment references pick %d outside the input", a.PickIndex)
		}
	}
}

func TestAssociate_SkipsSmallGroups(t *testing.T) {
	base := baseTime()
	picks := eventPicks(base, 0, 0, 10)
	// three stray picks in their own time group, too few to form an event
	for i, st := range assocStations()[:3] {
		picks = append(picks, PhasePick{
			ID:   st.ID,
			Time: base.Add(500*time.Second + time.Duration(i)*time.Second),
			Type: "P",
			Prob: 0.9,
		})
	}

	events, assignments, err := Associate(picks, assocStations(), assocTestConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	for _, a := range assignments {
		if a.PickIndex >= 8 {
			t.Errorf("stray pick %d was assigned", a.PickIndex)
		}
	}
}

func TestAssociate_MinScoreFilters(t *testing.T) {
	base := baseTime()
	picks := eventPicks(base, 0, 0, 10)

	cfg := assocTestConfig()
	cfg.MinScore = 100
	events, assignments, err := Associate(picks, assocStations(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
	if len(assignments) != 0 {
		t.Errorf("expected no assignments, got %d", len(assignments))
	}
}

func TestAssociate_EmptyPicks(t *testing.T) {
	events, assignments, err := Associate(nil, assocStations(), assocTestConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if events == nil || assignments == nil {
		t.Fatal("expected empty, non-nil results")
	}
	if len(events) != 0 || len(assignments) != 0 {
		t.Errorf("expected empty results, got %d events, %d assignments", len(events), len(assignments))
	}
}

func TestAssociate_ConfigValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*AssocConfig)
	}{
		{"negative min picks", func(c *AssocConfig) { c.MinPicksPerEvent = -1 }},
		{"negative oversample", func(c *AssocConfig) { c.OversampleFactor = -1 }},
		{"NaN oversample", func(c *AssocConfig) { c.OversampleFactor = math.NaN() }},
		{"negative split gap", func(c *AssocConfig) { c.SplitGap = -5 }},
		{"NaN split gap", func(c *AssocConfig) { c.SplitGap = math.NaN() }},
		{"negative min score", func(c *AssocConfig) { c.MinScore = -1 }},
		{"duplicate feature dims", func(c *AssocConfig) { c.Feature.Dims = []string{"x(km)", "x(km)"} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultAssocConfig()
			tc.mutate(&cfg)
			if _, _, err := Associate(nil, nil, cfg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestComponentCount(t *testing.T) {
	cfg := &AssocConfig{MinPicksPerEvent: 10, OversampleFactor: 5}
	cases := []struct {
		n    int
		want int
	}{
		{10, 5},   // 10/10*5
		{30, 15},  // 30/10*5
		{100, 50}, // 100/10*5
		{1, 1},    // clamped up
		{3, 1},    // 3/10*5 = 1.5, truncated
		{4, 2},    // 4/10*5 = 2.0
	}
	for _, tc := range cases {
		if got := componentCount(tc.n, cfg); got != tc.want {
			t.Errorf("componentCount(%d) = %d, expected %d", tc.n, got, tc.want)
		}
	}
}

func TestComponentCount_ClampsToGroupSize(t *testing.T) {
	cfg := &AssocConfig{MinPicksPerEvent: 1, OversampleFactor: 5}
	if got := componentCount(4, cfg); got != 4 {
		t.Errorf("expected clamp to 4, got %d", got)
	}
}
