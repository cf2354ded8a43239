package seismix

import "testing"

func TestTensor4_AtSetRoundTrip(t *testing.T) {
	tn := NewTensor4(2, 4, 3, 2)
	v := 0.0
	for b := 0; b < tn.Nb; b++ {
		for i := 0; i < tn.Nt; i++ {
			for s := 0; s < tn.Ns; s++ {
				for c := 0; c < tn.Nc; c++ {
					tn.Set(b, i, s, c, v)
					v++
				}
			}
		}
	}
	// Row-major layout: the write order above must match Data order.
	for i, got := range tn.Data {
		if got != float64(i) {
			t.Fatalf("Data[%d]: got %v, want %v", i, got, float64(i))
		}
	}
	if got := tn.At(1, 2, 1, 1); got != tn.Data[((1*4+2)*3+1)*2+1] {
		t.Errorf("At does not match flat layout: got %v", got)
	}
}

func TestTensor4_SeriesIsACopy(t *testing.T) {
	tn := NewTensor4(1, 5, 2, 2)
	for i := 0; i < 5; i++ {
		tn.Set(0, i, 1, 1, float64(i))
	}
	series := tn.Series(0, 1, 1)
	for i, got := range series {
		if got != float64(i) {
			t.Fatalf("series[%d]: got %v, want %v", i, got, float64(i))
		}
	}
	series[0] = 99
	if tn.At(0, 0, 1, 1) != 0 {
		t.Error("mutating the series changed the tensor")
	}
}

func TestTensor4_BatchIsACopy(t *testing.T) {
	tn := NewTensor4(2, 3, 2, 2)
	tn.Set(1, 2, 1, 0, 7)
	batch := tn.Batch(1)
	if got := batch.At(2, 1, 0); got != 7 {
		t.Fatalf("batch value: got %v, want 7", got)
	}
	batch.Set(0, 0, 0, 5)
	if tn.At(1, 0, 0, 0) != 0 {
		t.Error("mutating the batch copy changed the tensor")
	}
}

func TestTensor3_SeriesMatchesLayout(t *testing.T) {
	tn := NewTensor3(4, 2, 3)
	for i := 0; i < 4; i++ {
		tn.Set(i, 1, 2, float64(10+i))
	}
	series := tn.Series(1, 2)
	for i, got := range series {
		if got != float64(10+i) {
			t.Fatalf("series[%d]: got %v, want %v", i, got, float64(10+i))
		}
	}
}
