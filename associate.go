package seismix

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

// AssocConfig controls end-to-end pick association.
// Start with [DefaultAssocConfig] and override the fields you need.
type AssocConfig struct {
	// Feature controls the pick-to-feature conversion.
	Feature FeatureConfig

	// Mixture configures the per-group mixture model. Components is
	// derived from the group size and ignored here; UseAmplitude follows
	// Feature.UseAmplitude.
	Mixture MixtureConfig

	// MinPicksPerEvent is the smallest number of picks that can form an
	// event. Groups smaller than this are skipped and components with
	// fewer assigned picks are discarded. Must be >= 1. Set to 0 to
	// default to 10.
	MinPicksPerEvent int

	// OversampleFactor scales the number of event hypotheses tried per
	// group: K = n/MinPicksPerEvent * OversampleFactor, clamped to
	// [1, n]. Spare hypotheses fade out during fitting. Must be > 0.
	// Set to 0 to default to 5.
	OversampleFactor float64

	// SplitGap is the quiet interval in seconds that separates two pick
	// groups before fitting. Groups are maximal runs of picks whose
	// consecutive arrival times are at most SplitGap apart. Must be > 0.
	// Set to 0 to default to 10.
	SplitGap float64

	// DisableTimeSplit fits one mixture over all picks instead of
	// splitting them into gap-separated groups first. Default: false.
	DisableTimeSplit bool

	// MinScore discards events whose accumulated responsibility mass is
	// below this value. 0 keeps every event that clears
	// MinPicksPerEvent. Default: 0.
	MinScore float64
}

// DefaultAssocConfig returns an AssocConfig with the associator's defaults.
func DefaultAssocConfig() AssocConfig {
	return AssocConfig{
		Mixture:          DefaultMixtureConfig(),
		MinPicksPerEvent: 10,
		OversampleFactor: 5,
		SplitGap:         10,
	}
}

// applyAssocDefaults fills in zero-valued config fields with their defaults.
func applyAssocDefaults(cfg *AssocConfig) {
	if cfg.MinPicksPerEvent == 0 {
		cfg.MinPicksPerEvent = 10
	}
	if cfg.OversampleFactor == 0 {
		cfg.OversampleFactor = 5
	}
	if cfg.SplitGap == 0 {
		cfg.SplitGap = 10
	}
}

func validateAssocConfig(cfg *AssocConfig) error {
	if cfg.MinPicksPerEvent < 1 {
		return fmt.Errorf("seismix: MinPicksPerEvent must be >= 1, got %d", cfg.MinPicksPerEvent)
	}
	if cfg.OversampleFactor <= 0 || math.IsNaN(cfg.OversampleFactor) {
		return fmt.Errorf("seismix: OversampleFactor must be > 0, got %f", cfg.OversampleFactor)
	}
	if cfg.SplitGap <= 0 || math.IsNaN(cfg.SplitGap) {
		return fmt.Errorf("seismix: SplitGap must be > 0, got %f", cfg.SplitGap)
	}
	if cfg.MinScore < 0 {
		return fmt.Errorf("seismix: MinScore must be >= 0, got %f", cfg.MinScore)
	}
	return nil
}

// Event is one associated earthquake hypothesis.
type Event struct {
	// ID is a fresh random identifier; assignments reference it.
	ID uuid.UUID
	// Time is the origin time in [TimestampFormat].
	Time string
	// Location holds the hypocenter, one value per feature coordinate.
	Location []float64
	// Magnitude is the event magnitude. Only meaningful when amplitude
	// features are enabled.
	Magnitude float64
	// Sigma holds the residual standard deviations: arrival time in
	// seconds, then log amplitude when amplitude features are enabled.
	Sigma []float64
	// Score is the accumulated responsibility mass of the event's picks.
	Score float64
	// PickCount is the number of picks assigned to the event.
	PickCount int
}

// Assignment links one input pick to one event.
type Assignment struct {
	// PickIndex is the pick's position in the slice passed to Associate.
	PickIndex int
	// EventID identifies the event the pick belongs to.
	EventID uuid.UUID
	// Prob is the pick's responsibility under the event's component.
	Prob float64
}

// Associate groups phase picks into earthquake events. Picks are converted
// to features, split into gap-separated time groups, and each group is
// fitted with an oversampled mixture of event hypotheses; hypotheses that
// keep at least MinPicksPerEvent picks (and clear MinScore) become events.
//
// Returned events are ordered by origin time. Assignments reference picks
// by their index in the input slice, so picks dropped during feature
// conversion never appear. Picks belonging to no surviving event are
// omitted.
func Associate(picks []PhasePick, stations []Station, cfg AssocConfig) ([]Event, []Assignment, error) {
	applyAssocDefaults(&cfg)
	if err := validateAssocConfig(&cfg); err != nil {
		return nil, nil, err
	}

	fs, err := ConvertPicks(picks, stations, cfg.Feature)
	if err != nil {
		return nil, nil, err
	}

	events := []Event{}
	assignments := []Assignment{}
	if fs.Len() == 0 {
		return events, assignments, nil
	}

	for _, group := range timeGroups(fs, &cfg) {
		if len(group) < cfg.MinPicksPerEvent {
			continue
		}
		evs, asns, err := associateGroup(fs, group, &cfg)
		if err != nil {
			return nil, nil, err
		}
		events = append(events, evs...)
		assignments = append(assignments, asns...)
	}

	sort.Slice(events, func(i, j int) bool { return events[i].Time < events[j].Time })
	return events, assignments, nil
}

// timeGroups partitions the feature rows into maximal runs whose
// consecutive arrival times are at most SplitGap apart. Rows within a
// group are ordered by arrival time.
func timeGroups(fs *FeatureSet, cfg *AssocConfig) [][]int {
	n := fs.Len()
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	if cfg.DisableTimeSplit {
		return [][]int{rows}
	}

	sort.Slice(rows, func(a, b int) bool {
		return fs.Data.At(rows[a], 0) < fs.Data.At(rows[b], 0)
	})

	var groups [][]int
	start := 0
	for i := 1; i < n; i++ {
		if fs.Data.At(rows[i], 0)-fs.Data.At(rows[i-1], 0) > cfg.SplitGap {
			groups = append(groups, rows[start:i])
			start = i
		}
	}
	return append(groups, rows[start:])
}

// componentCount oversamples the number of hypotheses for a group of n
// picks.
func componentCount(n int, cfg *AssocConfig) int {
	k := int(float64(n) / float64(cfg.MinPicksPerEvent) * cfg.OversampleFactor)
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	return k
}

// associateGroup fits one mixture over the given feature rows and turns
// its surviving components into events.
func associateGroup(fs *FeatureSet, rows []int, cfg *AssocConfig) ([]Event, []Assignment, error) {
	n := len(rows)
	_, nFeatures := fs.Data.Dims()
	_, dims := fs.Locs.Dims()

	subData := mat.NewDense(n, nFeatures, nil)
	subLocs := mat.NewDense(n, dims, nil)
	phases := make([]string, n)
	weights := make([]float64, n)
	for i, row := range rows {
		subData.SetRow(i, fs.Data.RawRowView(row))
		subLocs.SetRow(i, fs.Locs.RawRowView(row))
		phases[i] = fs.PhaseTypes[row]
		weights[i] = fs.Weights[row]
	}

	mcfg := cfg.Mixture
	mcfg.Components = componentCount(n, cfg)
	mcfg.UseAmplitude = cfg.Feature.UseAmplitude

	gm, err := NewGaussianMixture(mcfg, subLocs, phases, weights)
	if err != nil {
		return nil, nil, err
	}
	if err := gm.Fit(subData); err != nil {
		return nil, nil, err
	}
	resp, err := gm.PredictProba(subData)
	if err != nil {
		return nil, nil, err
	}

	labels := make([]int, n)
	counts := make([]int, mcfg.Components)
	scores := make([]float64, mcfg.Components)
	for i := 0; i < n; i++ {
		labels[i] = argmax(resp.RawRowView(i))
		counts[labels[i]]++
		for k := 0; k < mcfg.Components; k++ {
			scores[k] += resp.At(i, k)
		}
	}

	var events []Event
	var assignments []Assignment
	for k := 0; k < mcfg.Components; k++ {
		if counts[k] < cfg.MinPicksPerEvent || scores[k] < cfg.MinScore {
			continue
		}
		center := gm.Centers.RawRowView(k)
		ev := Event{
			ID:        uuid.New(),
			Time:      FromSeconds(center[dims]),
			Location:  append([]float64(nil), center[:dims]...),
			Sigma:     []float64{math.Sqrt(gm.Covariances[k].At(0, 0))},
			Score:     scores[k],
			PickCount: counts[k],
		}
		if mcfg.UseAmplitude {
			ev.Magnitude = center[dims+1]
			ev.Sigma = append(ev.Sigma, math.Sqrt(gm.Covariances[k].At(1, 1)))
		}
		events = append(events, ev)

		for i := 0; i < n; i++ {
			if labels[i] != k {
				continue
			}
			assignments = append(assignments, Assignment{
				PickIndex: fs.Index[rows[i]],
				EventID:   ev.ID,
				Prob:      resp.At(i, k),
			})
		}
	}
	return events, assignments, nil
}
