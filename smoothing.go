package seismix

// EMA is an exponential moving average over a scalar stream, used to
// smooth noisy per-window quality metrics. Alpha in [0, 1] weights the
// accumulated value: higher alpha reacts more slowly to new samples. The
// first Update seeds the average with the sample itself.
type EMA struct {
	alpha  float64
	value  float64
	primed bool
}

// NewEMA returns an exponential moving average with the given alpha.
func NewEMA(alpha float64) *EMA {
	return &EMA{alpha: alpha}
}

// Update folds x into the average and returns the new value.
func (e *EMA) Update(x float64) float64 {
	if !e.primed {
		e.value = x
		e.primed = true
	} else {
		e.value = e.alpha*e.value + (1-e.alpha)*x
	}
	return e.value
}

// Value returns the current average; 0 before the first Update.
func (e *EMA) Value() float64 { return e.value }

// LMA is a linear (running) mean over a scalar stream: every sample
// contributes equally regardless of age.
type LMA struct {
	value float64
	n     int
}

// NewLMA returns an empty running mean.
func NewLMA() *LMA {
	return &LMA{}
}

// Update folds x into the mean and returns the new value.
func (l *LMA) Update(x float64) float64 {
	l.n++
	l.value += (x - l.value) / float64(l.n)
	return l.value
}

// Value returns the current mean; 0 before the first Update.
func (l *LMA) Value() float64 { return l.value }
