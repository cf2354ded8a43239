package seismix

import "gonum.org/v1/gonum/stat"

// Normalize returns a copy of t with every (station, channel) trace
// shifted to zero mean and scaled to unit population standard deviation
// over the time axis. Traces with zero variance are shifted but left
// unscaled, so constant traces come out as zeros rather than NaN.
func Normalize(t *Tensor3) *Tensor3 {
	out := NewTensor3(t.Nt, t.Ns, t.Nc)
	for s := 0; s < t.Ns; s++ {
		for c := 0; c < t.Nc; c++ {
			series := t.Series(s, c)
			mean := stat.Mean(series, nil)
			std := stat.PopStdDev(series, nil)
			if std == 0 {
				std = 1
			}
			for i := 0; i < t.Nt; i++ {
				out.Set(i, s, c, (series[i]-mean)/std)
			}
		}
	}
	return out
}

// NormalizeLong returns a copy of t normalized against statistics that
// follow the trace over time, for windows too long for a single global
// mean and deviation. Mean and standard deviation are computed in a
// window centered on anchor positions spaced window/2 apart (clipped at
// the ends) and linearly interpolated between anchors; interpolated
// deviations of zero are replaced with 1. window values <= 0 or larger
// than the trace use the whole trace. A tensor with no samples comes
// back empty.
func NormalizeLong(t *Tensor3, window int) *Tensor3 {
	if t.Nt == 0 {
		return NewTensor3(0, t.Ns, t.Nc)
	}
	if window <= 0 || window > t.Nt {
		window = t.Nt
	}
	shift := window / 2
	if shift < 1 {
		shift = 1
	}

	var anchors []int
	for p := 0; p < t.Nt; p += shift {
		anchors = append(anchors, p)
	}
	if last := t.Nt - 1; anchors[len(anchors)-1] != last {
		anchors = append(anchors, last)
	}

	out := NewTensor3(t.Nt, t.Ns, t.Nc)
	means := make([]float64, len(anchors))
	stds := make([]float64, len(anchors))

	for s := 0; s < t.Ns; s++ {
		for c := 0; c < t.Nc; c++ {
			series := t.Series(s, c)
			for j, a := range anchors {
				lo := a - window/2
				if lo < 0 {
					lo = 0
				}
				hi := lo + window
				if hi > t.Nt {
					hi = t.Nt
					if lo = hi - window; lo < 0 {
						lo = 0
					}
				}
				seg := series[lo:hi]
				means[j] = stat.Mean(seg, nil)
				stds[j] = stat.PopStdDev(seg, nil)
			}

			j := 0
			for i := 0; i < t.Nt; i++ {
				if len(anchors) == 1 {
					out.Set(i, s, c, normalizeSample(series[i], means[0], stds[0]))
					continue
				}
				for j+2 < len(anchors) && i > anchors[j+1] {
					j++
				}
				f := 0.0
				if span := anchors[j+1] - anchors[j]; span > 0 && i > anchors[j] {
					f = float64(i-anchors[j]) / float64(span)
				}
				mean := means[j] + (means[j+1]-means[j])*f
				std := stds[j] + (stds[j+1]-stds[j])*f
				out.Set(i, s, c, normalizeSample(series[i], mean, std))
			}
		}
	}
	return out
}

func normalizeSample(v, mean, std float64) float64 {
	if std == 0 {
		std = 1
	}
	return (v - mean) / std
}

// NormalizeBatch applies Normalize to every batch item of a rank-4 tensor
// independently and returns a fresh tensor.
func NormalizeBatch(t *Tensor4) *Tensor4 {
	out := NewTensor4(t.Nb, t.Nt, t.Ns, t.Nc)
	stride := t.Nt * t.Ns * t.Nc
	for b := 0; b < t.Nb; b++ {
		norm := Normalize(t.Batch(b))
		copy(out.Data[b*stride:(b+1)*stride], norm.Data)
	}
	return out
}
