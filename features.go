package seismix

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"
)

// PhasePick is a phase arrival ready for association: a pick joined with
// the identity of the station that recorded it.
type PhasePick struct {
	// ID is the station identifier; it must match a Station.ID to
	// participate in association.
	ID string
	// Time is the absolute arrival time.
	Time time.Time
	// Type is the phase name; matching against the travel-time model is
	// case-insensitive.
	Type string
	// Prob is the detection probability, used as the pick's weight during
	// association. 0 means unknown and is treated as weight 1.
	Prob float64
	// Amp is the peak ground-motion amplitude in physical units, used
	// only when amplitude features are enabled.
	Amp float64
}

// Station is a named network station with coordinates.
type Station struct {
	ID string
	// Coords maps coordinate names (for example "x(km)", "y(km)",
	// "z(km)") to values. The names referenced by FeatureConfig.Dims
	// must be present.
	Coords map[string]float64
}

// FeatureConfig controls how picks are converted into feature matrices.
type FeatureConfig struct {
	// Dims lists the station coordinate columns, in order. Every station
	// participating in association must define each named coordinate.
	// Set to nil to default to ["x(km)", "y(km)", "z(km)"].
	Dims []string

	// UseAmplitude adds a log-amplitude column to the observation matrix
	// and a magnitude term to the mixture components. Default: false.
	UseAmplitude bool
}

func applyFeatureDefaults(cfg *FeatureConfig) {
	if cfg.Dims == nil {
		cfg.Dims = []string{"x(km)", "y(km)", "z(km)"}
	}
}

func validateFeatureConfig(cfg *FeatureConfig) error {
	if len(cfg.Dims) == 0 {
		return fmt.Errorf("seismix: Dims must name at least one station coordinate")
	}
	seen := make(map[string]bool, len(cfg.Dims))
	for _, d := range cfg.Dims {
		if seen[d] {
			return fmt.Errorf("seismix: duplicate coordinate %q in Dims", d)
		}
		seen[d] = true
	}
	return nil
}

// FeatureSet is the aligned output of ConvertPicks. Row i of Data, row i of
// Locs, and element i of PhaseTypes, Weights, Index, and StationIDs all
// describe the same surviving pick.
type FeatureSet struct {
	// Data is the n×1 observation matrix of arrival times in epoch
	// seconds, or n×2 with a log-amplitude column when amplitude features
	// are enabled. Nil when no pick survives.
	Data *mat.Dense

	// Locs holds the coordinates of each pick's station, one column per
	// entry of Dims. Nil when no pick survives.
	Locs *mat.Dense

	// PhaseTypes holds the lowercased phase name of each pick.
	PhaseTypes []string

	// Weights holds each pick's association weight.
	Weights []float64

	// Index maps each row back to the pick's position in the input slice.
	Index []int

	// StationIDs holds each pick's station identifier.
	StationIDs []string
}

// Len returns the number of surviving picks.
func (fs *FeatureSet) Len() int { return len(fs.Index) }

// ConvertPicks builds the aligned feature matrices that the association
// engine consumes. The time feature is the arrival time in epoch seconds;
// with cfg.UseAmplitude, a second feature log10(100*Amp) is added. Phase
// names are lowercased and weights default to each pick's detection
// probability (1 when the probability is unset).
//
// Picks whose station ID is unknown, or whose station lacks one of the
// cfg.Dims coordinates, are dropped from every output. ConvertPicks never
// fails on pick content; only an invalid config returns an error.
func ConvertPicks(picks []PhasePick, stations []Station, cfg FeatureConfig) (*FeatureSet, error) {
	applyFeatureDefaults(&cfg)
	if err := validateFeatureConfig(&cfg); err != nil {
		return nil, err
	}

	byID := make(map[string]Station, len(stations))
	for _, st := range stations {
		byID[st.ID] = st
	}

	nFeatures := 1
	if cfg.UseAmplitude {
		nFeatures = 2
	}

	fs := &FeatureSet{
		PhaseTypes: []string{},
		Weights:    []float64{},
		Index:      []int{},
		StationIDs: []string{},
	}
	var data, locs []float64

	for i, p := range picks {
		st, ok := byID[p.ID]
		if !ok {
			continue
		}
		coords := make([]float64, len(cfg.Dims))
		missing := false
		for j, dim := range cfg.Dims {
			v, ok := st.Coords[dim]
			if !ok {
				missing = true
				break
			}
			coords[j] = v
		}
		if missing {
			continue
		}

		data = append(data, epochSeconds(p.Time))
		if cfg.UseAmplitude {
			data = append(data, math.Log10(p.Amp*100))
		}
		locs = append(locs, coords...)
		fs.PhaseTypes = append(fs.PhaseTypes, strings.ToLower(p.Type))
		fs.Weights = append(fs.Weights, pickWeight(p.Prob))
		fs.Index = append(fs.Index, i)
		fs.StationIDs = append(fs.StationIDs, p.ID)
	}

	if n := len(fs.Index); n > 0 {
		fs.Data = mat.NewDense(n, nFeatures, data)
		fs.Locs = mat.NewDense(n, len(cfg.Dims), locs)
	}
	return fs, nil
}

func pickWeight(prob float64) float64 {
	if prob > 0 {
		return prob
	}
	return 1.0
}
