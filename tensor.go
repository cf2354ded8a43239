package seismix

// Tensor4 is a dense rank-4 array indexed by (batch, time, station, channel),
// stored as a flat row-major slice. It is the shape produced by batched
// phase-probability predictions: Data[((b*Nt+t)*Ns+s)*Nc+c].
type Tensor4 struct {
	Nb, Nt, Ns, Nc int
	Data           []float64
}

// NewTensor4 allocates a zero-filled tensor with the given dimensions.
func NewTensor4(nb, nt, ns, nc int) *Tensor4 {
	return &Tensor4{Nb: nb, Nt: nt, Ns: ns, Nc: nc, Data: make([]float64, nb*nt*ns*nc)}
}

func (t *Tensor4) offset(b, i, s, c int) int {
	return ((b*t.Nt+i)*t.Ns+s)*t.Nc + c
}

// At returns the value at (batch, time, station, channel).
func (t *Tensor4) At(b, i, s, c int) float64 { return t.Data[t.offset(b, i, s, c)] }

// Set stores v at (batch, time, station, channel).
func (t *Tensor4) Set(b, i, s, c int, v float64) { t.Data[t.offset(b, i, s, c)] = v }

// Series copies the time series for one (batch, station, channel) slice.
// The copy is independent of the tensor's backing array.
func (t *Tensor4) Series(b, s, c int) []float64 {
	out := make([]float64, t.Nt)
	for i := 0; i < t.Nt; i++ {
		out[i] = t.Data[t.offset(b, i, s, c)]
	}
	return out
}

// Batch copies one batch item into a Tensor3 with the same time, station,
// and channel dimensions.
func (t *Tensor4) Batch(b int) *Tensor3 {
	out := NewTensor3(t.Nt, t.Ns, t.Nc)
	stride := t.Nt * t.Ns * t.Nc
	copy(out.Data, t.Data[b*stride:(b+1)*stride])
	return out
}

// Tensor3 is a dense rank-3 array indexed by (time, station, channel),
// stored as a flat row-major slice: Data[(i*Ns+s)*Nc+c]. It is the shape of
// a single waveform or prediction window.
type Tensor3 struct {
	Nt, Ns, Nc int
	Data       []float64
}

// NewTensor3 allocates a zero-filled tensor with the given dimensions.
func NewTensor3(nt, ns, nc int) *Tensor3 {
	return &Tensor3{Nt: nt, Ns: ns, Nc: nc, Data: make([]float64, nt*ns*nc)}
}

func (t *Tensor3) offset(i, s, c int) int {
	return (i*t.Ns+s)*t.Nc + c
}

// At returns the value at (time, station, channel).
func (t *Tensor3) At(i, s, c int) float64 { return t.Data[t.offset(i, s, c)] }

// Set stores v at (time, station, channel).
func (t *Tensor3) Set(i, s, c int, v float64) { t.Data[t.offset(i, s, c)] = v }

// Series copies the time series for one (station, channel) pair.
func (t *Tensor3) Series(s, c int) []float64 {
	out := make([]float64, t.Nt)
	for i := 0; i < t.Nt; i++ {
		out[i] = t.Data[t.offset(i, s, c)]
	}
	return out
}
