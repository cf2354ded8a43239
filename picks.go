package seismix

import (
	"fmt"
	"math"
)

// Pick is a single phase arrival detected at one station.
type Pick struct {
	// FileName names the batch item the pick came from.
	FileName string
	// StationID names the station within the batch item.
	StationID string
	// BeginTime is the absolute start time of the prediction window.
	BeginTime string
	// PhaseIndex is the sample index of the peak within the window.
	PhaseIndex int
	// PhaseTime is BeginTime shifted by PhaseIndex*Dt, in [TimestampFormat].
	PhaseTime string
	// PhaseScore is the peak probability.
	PhaseScore float64
	// PhaseType is the phase name of the peak's channel, e.g. "P" or "S".
	PhaseType string
	// Dt is the sampling interval in seconds used for this pick.
	Dt float64
}

// ExtractConfig controls pick extraction from prediction tensors.
// Start with [DefaultExtractConfig] and override the fields you need.
type ExtractConfig struct {
	// MinProb drops peaks whose probability is below this value.
	// 0 keeps every peak. Default (via DefaultExtractConfig): 0.3.
	MinProb float64

	// MinDistance is the smallest allowed sample separation between two
	// picks on the same trace. Values <= 1 disable suppression.
	// Default (via DefaultExtractConfig): 50.
	MinDistance int

	// Dt is the sampling interval in seconds. Set to 0 to default to 0.01.
	// Must not be negative. Default: 0.01.
	Dt float64

	// Phases maps prediction channels to phase names: channel c >= 1 is
	// named Phases[c-1]. Channel 0 is the noise channel and is never
	// scanned. Set to nil to default to ["P", "S"].
	Phases []string
}

// DefaultExtractConfig returns an ExtractConfig with the extractor's
// defaults.
func DefaultExtractConfig() ExtractConfig {
	return ExtractConfig{
		MinProb:     0.3,
		MinDistance: 50,
		Dt:          0.01,
		Phases:      []string{"P", "S"},
	}
}

// applyExtractDefaults fills in zero-valued config fields with their defaults.
func applyExtractDefaults(cfg *ExtractConfig) {
	if cfg.Dt == 0 {
		cfg.Dt = 0.01
	}
	if cfg.Phases == nil {
		cfg.Phases = []string{"P", "S"}
	}
}

// validateExtract checks the config and the metadata slices against the
// tensor's dimensions and returns a descriptive error if they disagree.
func validateExtract(preds *Tensor4, fileNames, beginTimes []string, stationIDs [][]string, cfg *ExtractConfig) error {
	if preds == nil {
		return fmt.Errorf("seismix: prediction tensor must not be nil")
	}
	if cfg.Dt < 0 || math.IsNaN(cfg.Dt) {
		return fmt.Errorf("seismix: Dt must be > 0, got %f", cfg.Dt)
	}
	if cfg.MinDistance < 0 {
		return fmt.Errorf("seismix: MinDistance must be >= 0, got %d", cfg.MinDistance)
	}
	if preds.Nc-1 > len(cfg.Phases) {
		return fmt.Errorf("seismix: tensor has %d phase channels but only %d phase names", preds.Nc-1, len(cfg.Phases))
	}
	if fileNames != nil && len(fileNames) != preds.Nb {
		return fmt.Errorf("seismix: got %d file names for %d batch items", len(fileNames), preds.Nb)
	}
	if beginTimes != nil && len(beginTimes) != preds.Nb {
		return fmt.Errorf("seismix: got %d begin times for %d batch items", len(beginTimes), preds.Nb)
	}
	if stationIDs != nil {
		if len(stationIDs) != preds.Nb {
			return fmt.Errorf("seismix: got station IDs for %d batch items, want %d", len(stationIDs), preds.Nb)
		}
		for b, ids := range stationIDs {
			if len(ids) != preds.Ns {
				return fmt.Errorf("seismix: batch item %d has %d station IDs for %d stations", b, len(ids), preds.Ns)
			}
		}
	}
	return nil
}

// ExtractPicks scans every station and phase channel of a prediction tensor
// for probability peaks and returns them as picks with absolute arrival
// times. Channel 0 is treated as noise and skipped; channel c >= 1 yields
// picks of type cfg.Phases[c-1].
//
// fileNames, beginTimes, and stationIDs may each be nil: batch items then
// default to zero-padded indices ("0000", "0001", ...), begin times to the
// zero epoch, and station IDs to zero-padded station indices. Provided
// slices must match the tensor's batch and station dimensions.
//
// Picks are ordered by batch item, then station, then channel, then sample
// index.
func ExtractPicks(preds *Tensor4, fileNames, beginTimes []string, stationIDs [][]string, cfg ExtractConfig) ([]Pick, error) {
	applyExtractDefaults(&cfg)
	if err := validateExtract(preds, fileNames, beginTimes, stationIDs, &cfg); err != nil {
		return nil, err
	}

	picks := []Pick{}
	for b := 0; b < preds.Nb; b++ {
		for s := 0; s < preds.Ns; s++ {
			slicePicks, err := extractSlice(preds, b, s,
				batchFileName(fileNames, b),
				batchBeginTime(beginTimes, b),
				sliceStationID(stationIDs, b, s),
				&cfg)
			if err != nil {
				return nil, err
			}
			picks = append(picks, slicePicks...)
		}
	}
	return picks, nil
}

// ExtractPicksBytes is ExtractPicks for byte-valued metadata, as produced
// by inference servers that ship names as raw bytes. Names are interpreted
// as UTF-8.
func ExtractPicksBytes(preds *Tensor4, fileNames, beginTimes [][]byte, stationIDs [][][]byte, cfg ExtractConfig) ([]Pick, error) {
	return ExtractPicks(preds, decodeStrings(fileNames), decodeStrings(beginTimes), decodeStringTable(stationIDs), cfg)
}

func decodeStrings(in [][]byte) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, b := range in {
		out[i] = string(b)
	}
	return out
}

func decodeStringTable(in [][][]byte) [][]string {
	if in == nil {
		return nil
	}
	out := make([][]string, len(in))
	for i, row := range in {
		out[i] = decodeStrings(row)
	}
	return out
}

// extractSlice detects picks on every phase channel of one
// (batch, station) trace.
func extractSlice(preds *Tensor4, b, s int, fileName, beginTime, stationID string, cfg *ExtractConfig) ([]Pick, error) {
	peakCfg := DefaultPeakConfig()
	peakCfg.MinHeight = cfg.MinProb
	peakCfg.MinDistance = cfg.MinDistance

	var picks []Pick
	for c := 1; c < preds.Nc; c++ {
		series := preds.Series(b, s, c)
		ind, amps, err := DetectPeaks(series, peakCfg)
		if err != nil {
			return nil, err
		}
		for k, idx := range ind {
			phaseTime, err := CalcTimestamp(beginTime, float64(idx)*cfg.Dt)
			if err != nil {
				return nil, fmt.Errorf("seismix: bad begin time for batch item %q: %w", fileName, err)
			}
			picks = append(picks, Pick{
				FileName:   fileName,
				StationID:  stationID,
				BeginTime:  beginTime,
				PhaseIndex: idx,
				PhaseTime:  phaseTime,
				PhaseScore: amps[k],
				PhaseType:  cfg.Phases[c-1],
				Dt:         cfg.Dt,
			})
		}
	}
	return picks, nil
}

func batchFileName(fileNames []string, b int) string {
	if fileNames == nil {
		return fmt.Sprintf("%04d", b)
	}
	return fileNames[b]
}

func batchBeginTime(beginTimes []string, b int) string {
	if beginTimes == nil {
		return FromSeconds(0)
	}
	return beginTimes[b]
}

func sliceStationID(stationIDs [][]string, b, s int) string {
	if stationIDs == nil {
		return fmt.Sprintf("%04d", s)
	}
	return stationIDs[b][s]
}
