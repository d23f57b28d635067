package model

import (
	"fmt"
	"strings"
)

// Array is a dense, row-major float64 tensor whose axes carry names.
// Constraint assembly and post-processing index arrays by dimension name,
// so the axis order is part of the array's contract.
type Array struct {
	Dims  []string  `json:"dims"`
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// NewArray allocates a zero-filled array. A scalar has no dims.
func NewArray(dims []string, shape []int) *Array {
	if len(dims) != len(shape) {
		panic(fmt.Sprintf("model: %d dims for %d-d shape", len(dims), len(shape)))
	}
	n := 1
	for _, s := range shape {
		n *= s
	}
	return &Array{
		Dims:  append([]string(nil), dims...),
		Shape: append([]int(nil), shape...),
		Data:  make([]float64, n),
	}
}

// Len is the total number of elements.
func (a *Array) Len() int {
	return len(a.Data)
}

// Empty reports whether the array was never populated.
func (a *Array) Empty() bool {
	return a == nil || len(a.Data) == 0
}

// Axis returns the position of the named dimension, or -1.
func (a *Array) Axis(dim string) int {
	for i, d := range a.Dims {
		if d == dim {
			return i
		}
	}
	return -1
}

// Size returns the extent of the named dimension, or 0 if absent.
func (a *Array) Size(dim string) int {
	if i := a.Axis(dim); i >= 0 {
		return a.Shape[i]
	}
	return 0
}

func (a *Array) offset(idx []int) int {
	if len(idx) != len(a.Shape) {
		panic(fmt.Sprintf("model: %d indices for %d-d array %v", len(idx), len(a.Shape), a.Dims))
	}
	off := 0
	for i, k := range idx {
		if k < 0 || k >= a.Shape[i] {
			panic(fmt.Sprintf("model: index %d out of range [0,%d) on %s", k, a.Shape[i], a.Dims[i]))
		}
		off = off*a.Shape[i] + k
	}
	return off
}

// At reads one element.
func (a *Array) At(idx ...int) float64 {
	return a.Data[a.offset(idx)]
}

// Set writes one element.
func (a *Array) Set(v float64, idx ...int) {
	a.Data[a.offset(idx)] = v
}

// Sum adds every element.
func (a *Array) Sum() float64 {
	total := 0.0
	for _, v := range a.Data {
		total += v
	}
	return total
}

// Clone returns a deep copy.
func (a *Array) Clone() *Array {
	if a == nil {
		return nil
	}
	return &Array{
		Dims:  append([]string(nil), a.Dims...),
		Shape: append([]int(nil), a.Shape...),
		Data:  append([]float64(nil), a.Data...),
	}
}

// Scalar returns the single value of a 0-d or 1-element array.
func (a *Array) Scalar() float64 {
	if len(a.Data) != 1 {
		panic(fmt.Sprintf("model: array %v holds %d values, not a scalar", a.Dims, len(a.Data)))
	}
	return a.Data[0]
}

// CheckShape verifies dims and extents against the expected ones.
func (a *Array) CheckShape(dims []string, shape []int) error {
	if a.Empty() {
		return fmt.Errorf("%w: array (%s) is empty", ErrMissingTimeSeries, strings.Join(dims, ", "))
	}
	if len(a.Dims) != len(dims) {
		return fmt.Errorf("%w: got dims (%s), want (%s)", ErrShapeMismatch, strings.Join(a.Dims, ", "), strings.Join(dims, ", "))
	}
	for i := range dims {
		if a.Dims[i] != dims[i] || a.Shape[i] != shape[i] {
			return fmt.Errorf("%w: got %s=%d at axis %d, want %s=%d",
				ErrShapeMismatch, a.Dims[i], a.Shape[i], i, dims[i], shape[i])
		}
	}
	n := 1
	for _, s := range shape {
		n *= s
	}
	if len(a.Data) != n {
		return fmt.Errorf("%w: %d values for shape %v", ErrShapeMismatch, len(a.Data), shape)
	}
	return nil
}
