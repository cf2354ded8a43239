// Package seismix turns per-sample seismic phase probabilities into discrete
// phase picks and associates picks from a station network into earthquake
// hypotheses using a travel-time-aware Gaussian mixture model.
//
// The pipeline has three stages. Peak detection scans a probability trace for
// local maxima subject to height, prominence, and spacing constraints:
//
//	cfg := seismix.DefaultPeakConfig()
//	cfg.MinHeight = 0.3
//	cfg.MinDistance = 50
//	idx, amps, err := seismix.DetectPeaks(trace, cfg)
//
// Pick extraction applies peak detection to a prediction tensor of shape
// (batch, time, station, channel) and stamps each peak with station metadata
// and an absolute arrival time:
//
//	picks, err := seismix.ExtractPicks(preds, files, begins, stations, seismix.DefaultExtractConfig())
//
// Association groups picks into events. Its input is a [PhasePick] slice
// (arrival time, phase, probability, amplitude per pick) joined against a
// [Station] table by station ID. Each mixture component is an event
// hypothesis whose mean encodes hypocenter, origin time, and optionally
// magnitude; a phase pick matches a component when its arrival time agrees
// with the component's origin time plus the predicted travel time:
//
//	events, assignments, err := seismix.Associate(arrivals, network, seismix.DefaultAssocConfig())
//
// # Physical models
//
// Travel times and amplitude attenuation are pluggable. The defaults are a
// homogeneous half-space with VP = 6.0 km/s and VP/VS = 1.75, and the
// Picozzi local-magnitude attenuation relation. Provide your own
// [TravelTimeModel] or [AmplitudeModel] (or wrap a function with
// [TravelTimeFunc]) to use a regional velocity model or magnitude scale.
package seismix
