package seismix

import (
	"errors"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// --- checkShape tests ---

func TestCheckShape_Match(t *testing.T) {
	cases := [][]int{
		nil,
		{},
		{3},
		{2, 3},
		{4, 1, 2},
	}
	for _, shape := range cases {
		if err := checkShape(shape, shape, "param"); err != nil {
			t.Errorf("shape %v: unexpected error: %v", shape, err)
		}
	}
}

func TestCheckShape_ScalarMatchesEmpty(t *testing.T) {
	if err := checkShape(nil, []int{}, "param"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCheckShape_Mismatch(t *testing.T) {
	cases := []struct {
		name      string
		got, want []int
	}{
		{"wrong length", []int{3}, []int{4}},
		{"wrong rank", []int{3}, []int{3, 1}},
		{"scalar vs vector", nil, []int{3}},
		{"wrong rows", []int{2, 3}, []int{4, 3}},
		{"wrong cols", []int{2, 3}, []int{2, 4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := checkShape(tc.got, tc.want, "weights_init")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var se *ShapeError
			if !errors.As(err, &se) {
				t.Fatalf("expected *ShapeError, got %T", err)
			}
			if se.Param != "weights_init" {
				t.Errorf("Param: expected %q, got %q", "weights_init", se.Param)
			}
		})
	}
}

func TestCheckShape_MessageFormat(t *testing.T) {
	err := checkShape([]int{2, 4}, []int{3}, "weights_init")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	msg := err.Error()
	if !strings.Contains(msg, "should have the shape") {
		t.Errorf("message %q should mention the expected shape", msg)
	}
	if !strings.Contains(msg, "(3,)") {
		t.Errorf("message %q should render the vector shape as (3,)", msg)
	}
	if !strings.Contains(msg, "(2, 4)") {
		t.Errorf("message %q should render the matrix shape as (2, 4)", msg)
	}
}

func TestFormatShape(t *testing.T) {
	cases := []struct {
		shape []int
		want  string
	}{
		{nil, "()"},
		{[]int{}, "()"},
		{[]int{3}, "(3,)"},
		{[]int{2, 3}, "(2, 3)"},
		{[]int{4, 1, 2}, "(4, 1, 2)"},
	}
	for _, tc := range cases {
		if got := formatShape(tc.shape); got != tc.want {
			t.Errorf("formatShape(%v) = %q, expected %q", tc.shape, got, tc.want)
		}
	}
}

// --- checkObservations tests ---

func TestCheckObservations_Valid(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	out, err := checkObservations(X, 2, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, c := out.Dims()
	if r != 4 || c != 2 {
		t.Fatalf("expected 4x2, got %dx%d", r, c)
	}
	if out.At(2, 1) != 6 {
		t.Errorf("expected 6 at (2,1), got %v", out.At(2, 1))
	}
}

func TestCheckObservations_NilMatrix(t *testing.T) {
	_, err := checkObservations(nil, 3, 0)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var sce *SampleCountError
	if !errors.As(err, &sce) {
		t.Fatalf("expected *SampleCountError, got %T", err)
	}
	if sce.NSamples != 0 || sce.NComponents != 3 {
		t.Errorf("expected {0, 3}, got %+v", sce)
	}
}

func TestCheckObservations_TooFewSamples(t *testing.T) {
	X := mat.NewDense(2, 3, nil)
	_, err := checkObservations(X, 5, 3)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var sce *SampleCountError
	if !errors.As(err, &sce) {
		t.Fatalf("expected *SampleCountError, got %T", err)
	}
	if !strings.Contains(err.Error(), "n_samples >= n_components") {
		t.Errorf("message %q should mention the sample count requirement", err.Error())
	}
}

func TestCheckObservations_WrongFeatureCount(t *testing.T) {
	X := mat.NewDense(5, 4, nil)
	_, err := checkObservations(X, 2, 3)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var fce *FeatureCountError
	if !errors.As(err, &fce) {
		t.Fatalf("expected *FeatureCountError, got %T", err)
	}
	if fce.Want != 3 || fce.Got != 4 {
		t.Errorf("expected {3, 4}, got %+v", fce)
	}
	if !strings.Contains(err.Error(), "features") {
		t.Errorf("message %q should mention features", err.Error())
	}
}

func TestCheckObservations_ZeroConstraintsAcceptAnything(t *testing.T) {
	X := mat.NewDense(1, 7, nil)
	if _, err := checkObservations(X, 0, 0); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCheckObservations_ReturnsCopy(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	out, err := checkObservations(X, 1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// mutating the copy must not touch the input
	out.Set(0, 0, 99)
	if X.At(0, 0) != 1 {
		t.Errorf("input was mutated: got %v at (0,0)", X.At(0, 0))
	}

	// mutating the input must not touch the copy
	X.Set(1, 1, -7)
	if out.At(1, 1) != 4 {
		t.Errorf("copy aliases the input: got %v at (1,1)", out.At(1, 1))
	}
}

func TestCheckObservations_UpcastsTranspose(t *testing.T) {
	// a non-Dense mat.Matrix implementation still comes out dense
	X := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	out, err := checkObservations(X.T(), 3, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, c := out.Dims()
	if r != 3 || c != 2 {
		t.Fatalf("expected 3x2, got %dx%d", r, c)
	}
	if out.At(2, 1) != 6 {
		t.Errorf("expected 6 at (2,1), got %v", out.At(2, 1))
	}
}
