package seismix

import (
	"fmt"
	"strconv"
	"strings"
)

// ShapeError reports a model parameter whose dimensions differ from the
// shape the model declares for it.
type ShapeError struct {
	Param string
	Want  []int
	Got   []int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("seismix: the parameter %q should have the shape of %s, but got %s",
		e.Param, formatShape(e.Want), formatShape(e.Got))
}

// SampleCountError reports an observation matrix with fewer rows than the
// requested number of mixture components.
type SampleCountError struct {
	NSamples    int
	NComponents int
}

func (e *SampleCountError) Error() string {
	return fmt.Sprintf("seismix: expected n_samples >= n_components, but got n_components = %d, n_samples = %d",
		e.NComponents, e.NSamples)
}

// FeatureCountError reports an observation matrix whose column count does
// not match the feature count the model was built with.
type FeatureCountError struct {
	Want int
	Got  int
}

func (e *FeatureCountError) Error() string {
	return fmt.Sprintf("seismix: expected the input data to have %d features, but got %d features",
		e.Want, e.Got)
}

// formatShape renders a shape in tuple notation: "()" for scalars, "(3,)"
// for vectors, "(2, 3)" for matrices.
func formatShape(shape []int) string {
	if len(shape) == 0 {
		return "()"
	}
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.Itoa(d)
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
