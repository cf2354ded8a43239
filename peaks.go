package seismix

import (
	"fmt"
	"math"
	"sort"
)

// EdgePolicy selects which index of a flat-topped maximum is reported.
type EdgePolicy string

const (
	// EdgeRising reports the first sample of a plateau.
	EdgeRising EdgePolicy = "rising"
	// EdgeFalling reports the last sample of a plateau.
	EdgeFalling EdgePolicy = "falling"
	// EdgeBoth reports both plateau edges.
	EdgeBoth EdgePolicy = "both"
	// EdgeNone keeps only strict local maxima; plateaus are discarded.
	EdgeNone EdgePolicy = "none"
)

// PeakConfig controls peak detection behavior.
// Start with [DefaultPeakConfig] and override the fields you need.
type PeakConfig struct {
	// MinHeight drops peaks whose amplitude is below this value. The bound
	// is absolute, not relative to the surrounding samples. NaN disables
	// the filter. Default: NaN (disabled).
	MinHeight float64

	// MinDistance is the smallest allowed index separation between two
	// reported peaks. When peaks are closer, the tallest survives and its
	// neighbors within the window are removed; equal heights keep the
	// earlier index. Values <= 1 disable suppression. Must be >= 0.
	// Default: 1.
	MinDistance int

	// Threshold drops peaks that do not exceed both immediate neighbors
	// by at least this amount, filtering shallow maxima caused by noise.
	// Must be >= 0. Default: 0 (disabled).
	Threshold float64

	// Edge selects how flat-topped maxima are reported. An empty value
	// means EdgeRising. Default: EdgeRising.
	Edge EdgePolicy

	// KeepSameHeight retains neighbors of equal height during distance
	// suppression instead of removing them. Default: false.
	KeepSameHeight bool

	// Valley detects local minima instead of maxima. The sequence is
	// negated internally; reported amplitudes are the original values.
	// Default: false.
	Valley bool
}

// DefaultPeakConfig returns a PeakConfig with the detector's defaults.
func DefaultPeakConfig() PeakConfig {
	return PeakConfig{
		MinHeight:   math.NaN(),
		MinDistance: 1,
		Edge:        EdgeRising,
	}
}

func validatePeakConfig(cfg *PeakConfig) error {
	if cfg.MinDistance < 0 {
		return fmt.Errorf("seismix: MinDistance must be >= 0, got %d", cfg.MinDistance)
	}
	if cfg.Threshold < 0 || math.IsNaN(cfg.Threshold) {
		return fmt.Errorf("seismix: Threshold must be >= 0, got %f", cfg.Threshold)
	}
	switch cfg.Edge {
	case EdgeRising, EdgeFalling, EdgeBoth, EdgeNone, "":
		// valid
	default:
		return fmt.Errorf("seismix: invalid Edge %q", cfg.Edge)
	}
	return nil
}

// DetectPeaks scans x for local maxima (or minima with cfg.Valley) and
// returns their indices in ascending order together with the amplitudes of
// x at those indices. The first and last samples are never peaks, and
// sequences shorter than three samples produce no peaks. Samples that are
// NaN, or whose immediate neighbor is NaN, never qualify.
//
// Filters apply in order: edge candidates, minimum height, neighbor
// threshold, then minimum distance suppression. The input is not modified.
func DetectPeaks(x []float64, cfg PeakConfig) ([]int, []float64, error) {
	if err := validatePeakConfig(&cfg); err != nil {
		return nil, nil, err
	}
	if cfg.Edge == "" {
		cfg.Edge = EdgeRising
	}

	if len(x) < 3 {
		return []int{}, []float64{}, nil
	}

	work := x
	if cfg.Valley {
		work = make([]float64, len(x))
		for i, v := range x {
			work[i] = -v
		}
	}

	ind := findPeakCandidates(work, cfg.Edge)

	if !math.IsNaN(cfg.MinHeight) {
		ind = filterPeakHeight(work, ind, cfg.MinHeight)
	}
	if cfg.Threshold > 0 {
		ind = filterPeakThreshold(work, ind, cfg.Threshold)
	}
	if cfg.MinDistance > 1 {
		ind = suppressClosePeaks(work, ind, cfg.MinDistance, cfg.KeepSameHeight)
	}

	amps := make([]float64, len(ind))
	for i, idx := range ind {
		amps[i] = x[idx]
	}
	if ind == nil {
		ind = []int{}
	}
	return ind, amps, nil
}

// findPeakCandidates returns the interior indices where the sequence turns
// from rising to falling, with plateau edges admitted according to the
// policy. A comparison involving NaN is false, so samples inside or
// adjacent to a NaN region can never become candidates.
func findPeakCandidates(x []float64, edge EdgePolicy) []int {
	var ind []int
	for i := 1; i < len(x)-1; i++ {
		left := x[i] - x[i-1]
		right := x[i+1] - x[i]

		var isPeak bool
		switch edge {
		case EdgeNone:
			isPeak = left > 0 && right < 0
		case EdgeFalling:
			isPeak = left >= 0 && right < 0
		case EdgeBoth:
			isPeak = (left > 0 && right <= 0) || (left >= 0 && right < 0)
		default: // EdgeRising
			isPeak = left > 0 && right <= 0
		}
		if isPeak {
			ind = append(ind, i)
		}
	}
	return ind
}

// filterPeakHeight keeps candidates whose amplitude is at least minHeight.
func filterPeakHeight(x []float64, ind []int, minHeight float64) []int {
	var out []int
	for _, i := range ind {
		if x[i] >= minHeight {
			out = append(out, i)
		}
	}
	return out
}

// filterPeakThreshold keeps candidates that rise above both immediate
// neighbors by at least threshold.
func filterPeakThreshold(x []float64, ind []int, threshold float64) []int {
	var out []int
	for _, i := range ind {
		if math.Min(x[i]-x[i-1], x[i]-x[i+1]) >= threshold {
			out = append(out, i)
		}
	}
	return out
}

// suppressClosePeaks enforces the minimum index distance between peaks.
// Peaks are visited tallest first (ties visit the earlier index first, so
// the earlier of two equal peaks survives); each surviving peak removes
// all remaining peaks within minDistance on either side. With
// keepSameHeight, neighbors of exactly equal height are spared.
func suppressClosePeaks(x []float64, ind []int, minDistance int, keepSameHeight bool) []int {
	if len(ind) == 0 {
		return ind
	}

	order := make([]int, len(ind))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		if x[ind[order[a]]] != x[ind[order[b]]] {
			return x[ind[order[a]]] > x[ind[order[b]]]
		}
		return ind[order[a]] < ind[order[b]]
	})

	removed := make([]bool, len(ind))
	for _, oi := range order {
		if removed[oi] {
			continue
		}
		for j := range ind {
			if j == oi || removed[j] {
				continue
			}
			if ind[j] < ind[oi]-minDistance || ind[j] > ind[oi]+minDistance {
				continue
			}
			if keepSameHeight && x[ind[j]] == x[ind[oi]] {
				continue
			}
			removed[j] = true
		}
	}

	var out []int
	for j, idx := range ind {
		if !removed[j] {
			out = append(out, idx)
		}
	}
	return out
}
