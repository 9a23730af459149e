// Package volume provides the n-dimensional tensor type used throughout the
// slicing pipeline. A Tensor stores float64 samples in a flat row-major
// buffer together with a shape and per-axis strides, so axis permutations and
// fixed-index slices are cheap stride views that share the underlying buffer
// rather than copies.
package volume

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Tensor is an n-dimensional array of float64 samples. The zero value is not
// usable; construct one with New or FromData. Views produced by Transpose and
// SliceAt alias the original buffer.
type Tensor struct {
	data    []float64
	shape   []int
	strides []int
	offset  int
}

// New creates a zero-filled tensor with the given shape.
// Every dimension must be positive.
func New(shape ...int) (*Tensor, error) {
	size, err := checkShape(shape)
	if err != nil {
		return nil, err
	}
	return &Tensor{
		data:    make([]float64, size),
		shape:   append([]int(nil), shape...),
		strides: contiguousStrides(shape),
	}, nil
}

// FromData wraps an existing row-major buffer in a tensor with the given
// shape. The buffer is used directly, not copied, and its length must match
// the product of the dimensions.
func FromData(data []float64, shape ...int) (*Tensor, error) {
	size, err := checkShape(shape)
	if err != nil {
		return nil, err
	}
	if len(data) != size {
		return nil, fmt.Errorf("volume: data length %d does not match shape %v (want %d)", len(data), shape, size)
	}
	return &Tensor{
		data:    data,
		shape:   append([]int(nil), shape...),
		strides: contiguousStrides(shape),
	}, nil
}

func checkShape(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, fmt.Errorf("volume: shape must have at least one dimension")
	}
	size := 1
	for i, d := range shape {
		if d <= 0 {
			return 0, fmt.Errorf("volume: dimension %d must be positive, got %d", i, d)
		}
		size *= d
	}
	return size, nil
}

func contiguousStrides(shape []int) []int {
	strides := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}
	return strides
}

// NDim returns the number of dimensions.
func (t *Tensor) NDim() int { return len(t.shape) }

// Shape returns a copy of the tensor's dimensions.
func (t *Tensor) Shape() []int { return append([]int(nil), t.shape...) }

// Dim returns the size of axis i.
func (t *Tensor) Dim(i int) int { return t.shape[i] }

// Size returns the total number of elements.
func (t *Tensor) Size() int {
	size := 1
	for _, d := range t.shape {
		size *= d
	}
	return size
}

func (t *Tensor) flatIndex(ix []int) int {
	if len(ix) != len(t.shape) {
		panic(fmt.Sprintf("volume: index rank %d does not match tensor rank %d", len(ix), len(t.shape)))
	}
	flat := t.offset
	for d, i := range ix {
		if i < 0 || i >= t.shape[d] {
			panic(fmt.Sprintf("volume: index %d out of range [0,%d) on axis %d", i, t.shape[d], d))
		}
		flat += i * t.strides[d]
	}
	return flat
}

// At returns the element at the given multi-index. It panics if the index
// rank does not match the tensor rank or any coordinate is out of range.
func (t *Tensor) At(ix ...int) float64 {
	return t.data[t.flatIndex(ix)]
}

// Set stores v at the given multi-index, with the same panic rules as At.
func (t *Tensor) Set(v float64, ix ...int) {
	t.data[t.flatIndex(ix)] = v
}

// Transpose returns a view of the tensor with its axes reordered so that
// output axis i is input axis perm[i]. No data is moved; only the shape and
// strides change.
func (t *Tensor) Transpose(perm ...int) (*Tensor, error) {
	if len(perm) != len(t.shape) {
		return nil, fmt.Errorf("volume: permutation length %d does not match rank %d", len(perm), len(t.shape))
	}
	seen := make([]bool, len(perm))
	for _, p := range perm {
		if p < 0 || p >= len(perm) || seen[p] {
			return nil, fmt.Errorf("volume: invalid permutation %v", perm)
		}
		seen[p] = true
	}
	shape := make([]int, len(perm))
	strides := make([]int, len(perm))
	for i, p := range perm {
		shape[i] = t.shape[p]
		strides[i] = t.strides[p]
	}
	return &Tensor{data: t.data, shape: shape, strides: strides, offset: t.offset}, nil
}

// SliceAt returns a view with the given axis fixed at index and removed from
// the shape, e.g. slicing a (Z,Y,X) tensor at axis 1 yields a (Z,X) view.
func (t *Tensor) SliceAt(axis, index int) (*Tensor, error) {
	if axis < 0 || axis >= len(t.shape) {
		return nil, fmt.Errorf("volume: axis %d out of range for rank %d", axis, len(t.shape))
	}
	if index < 0 || index >= t.shape[axis] {
		return nil, fmt.Errorf("volume: index %d out of range [0,%d) on axis %d", index, t.shape[axis], axis)
	}
	if len(t.shape) == 1 {
		return nil, fmt.Errorf("volume: cannot slice a 1-dimensional tensor")
	}
	shape := make([]int, 0, len(t.shape)-1)
	strides := make([]int, 0, len(t.shape)-1)
	for d := range t.shape {
		if d == axis {
			continue
		}
		shape = append(shape, t.shape[d])
		strides = append(strides, t.strides[d])
	}
	return &Tensor{
		data:    t.data,
		shape:   shape,
		strides: strides,
		offset:  t.offset + index*t.strides[axis],
	}, nil
}

// IsContiguous reports whether the tensor's elements are laid out in
// row-major order with no gaps, i.e. whether Data covers exactly the
// tensor's elements in iteration order.
func (t *Tensor) IsContiguous() bool {
	stride := 1
	for i := len(t.shape) - 1; i >= 0; i-- {
		if t.strides[i] != stride {
			return false
		}
		stride *= t.shape[i]
	}
	return true
}

// Copy materializes the tensor into a new contiguous buffer with the same
// shape and values.
func (t *Tensor) Copy() *Tensor {
	out := &Tensor{
		data:    make([]float64, t.Size()),
		shape:   append([]int(nil), t.shape...),
		strides: contiguousStrides(t.shape),
	}
	if t.IsContiguous() {
		copy(out.data, t.data[t.offset:t.offset+t.Size()])
		return out
	}
	ix := make([]int, len(t.shape))
	for flat := range out.data {
		out.data[flat] = t.At(ix...)
		for d := len(ix) - 1; d >= 0; d-- {
			ix[d]++
			if ix[d] < t.shape[d] {
				break
			}
			ix[d] = 0
		}
	}
	return out
}

// Data returns the contiguous row-major element buffer. For stride views the
// tensor is materialized first, so mutating the returned slice is only
// guaranteed to affect the tensor when IsContiguous reports true.
func (t *Tensor) Data() []float64 {
	if t.IsContiguous() {
		return t.data[t.offset : t.offset+t.Size()]
	}
	return t.Copy().data
}

// Max returns the largest element in the tensor.
func (t *Tensor) Max() float64 {
	return floats.Max(t.Data())
}
