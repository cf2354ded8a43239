package seismix

import "gonum.org/v1/gonum/mat"

// checkShape verifies that a model parameter has exactly the expected
// shape. Scalars are zero-dimensional: two empty shapes match. The
// returned error is a [*ShapeError].
func checkShape(got, want []int, name string) error {
	mismatch := len(got) != len(want)
	if !mismatch {
		for i := range want {
			if got[i] != want[i] {
				mismatch = true
				break
			}
		}
	}
	if mismatch {
		return &ShapeError{
			Param: name,
			Want:  append([]int(nil), want...),
			Got:   append([]int(nil), got...),
		}
	}
	return nil
}

// checkObservations validates an observation matrix and returns a fresh
// float64 copy of it, so the model never aliases or mutates caller data.
// This is also the upcast boundary: any mat.Matrix implementation,
// including integer-backed ones, comes out as a plain dense float64
// matrix.
//
// With nComponents > 0, the matrix must have at least that many rows
// ([*SampleCountError] otherwise). With nFeatures > 0, the column count
// must match it exactly ([*FeatureCountError] otherwise); nFeatures 0
// accepts any column count.
func checkObservations(X mat.Matrix, nComponents, nFeatures int) (*mat.Dense, error) {
	if X == nil {
		return nil, &SampleCountError{NSamples: 0, NComponents: nComponents}
	}
	r, c := X.Dims()
	if nComponents > 0 && r < nComponents {
		return nil, &SampleCountError{NSamples: r, NComponents: nComponents}
	}
	if nFeatures > 0 && c != nFeatures {
		return nil, &FeatureCountError{Want: nFeatures, Got: c}
	}

	out := mat.NewDense(r, c, nil)
	out.Copy(X)
	return out, nil
}
