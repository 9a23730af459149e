// Package resample stretches or compresses the leading (Z) axis of a
// canonical volume so that the voxel pitch along Z matches the XY pitch.
// Only the Z axis is touched; every other axis keeps its size and values.
//
// Two interpolation strategies exist: nearest-neighbor, which gathers whole
// source planes and therefore never invents sample values (required for
// integer label volumes), and linear, which blends along Z for smoother
// image data. Image mode prefers linear but degrades to nearest-neighbor on
// any interpolation failure instead of failing the call.
package resample

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"

	"isoslicer/pkg/volume"
)

// ErrInvalidParameter indicates a non-positive aspect ratio.
var ErrInvalidParameter = errors.New("invalid parameter")

// Mode selects the interpolation policy along Z.
type Mode int

const (
	// Labels preserves exact element values with nearest-neighbor gathering.
	Labels Mode = iota
	// Image prefers linear interpolation, falling back to nearest-neighbor.
	Image
)

// ParseMode converts the boundary strings "labels" and "image" into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "labels":
		return Labels, nil
	case "image":
		return Image, nil
	default:
		return Labels, fmt.Errorf("%w: unknown mode %q (want \"labels\" or \"image\")", ErrInvalidParameter, s)
	}
}

// String returns the boundary name of the mode.
func (m Mode) String() string {
	if m == Image {
		return "image"
	}
	return "labels"
}

// Interpolator resamples the leading axis of a volume to newZ planes.
type Interpolator interface {
	// Name identifies the engine in summaries ("nearest", "linear").
	Name() string

	// Resample returns a new volume whose axis 0 has size newZ. The input
	// is never mutated.
	Resample(vol *volume.Tensor, newZ int) (*volume.Tensor, error)
}

// Resampler applies the aspect-ratio calculation and mode policy on top of
// its interpolation engines. The nearest-neighbor engine is mandatory; the
// linear engine is optional and only consulted in Image mode.
type Resampler struct {
	nearest Interpolator
	linear  Interpolator
}

// New returns a resampler with the nearest-neighbor engine and the
// gonum-based linear engine.
func New() *Resampler {
	return &Resampler{nearest: NearestNeighbor{}, linear: Linear{}}
}

// NewWithLinear returns a resampler with a caller-supplied linear engine.
// Passing nil leaves Image mode with only the nearest-neighbor path.
func NewWithLinear(linear Interpolator) *Resampler {
	return &Resampler{nearest: NearestNeighbor{}, linear: linear}
}

// Resample adjusts axis 0 of vol to newZ = max(1, round(Z*aspect)) planes,
// rounding half to even, where aspect = zSpacing / xySpacing and must be
// positive. When newZ equals
// the current Z the input volume is returned as-is, so already-isotropic
// volumes pick up no resampling artifacts. The returned engine name reports
// which interpolation actually ran ("none" for the identity case), making an
// Image-mode fallback to nearest-neighbor observable to the caller.
func (r *Resampler) Resample(vol *volume.Tensor, aspect float64, mode Mode) (*volume.Tensor, string, error) {
	if !(aspect > 0) {
		return nil, "", fmt.Errorf("%w: aspect must be > 0, got %v", ErrInvalidParameter, aspect)
	}
	z := vol.Dim(0)
	newZ := int(math.RoundToEven(float64(z) * aspect))
	if newZ < 1 {
		newZ = 1
	}
	if newZ == z {
		return vol, "none", nil
	}

	if mode == Image && r.linear != nil {
		if out, err := r.linear.Resample(vol, newZ); err == nil {
			return out, r.linear.Name(), nil
		}
		// Fall through to nearest-neighbor on any linear failure.
	}
	out, err := r.nearest.Resample(vol, newZ)
	if err != nil {
		return nil, "", err
	}
	return out, r.nearest.Name(), nil
}

// samplePositions spreads n sample positions evenly over [0, z-1], endpoints
// inclusive. For n == 1 the single position is 0.
func samplePositions(z, n int) []float64 {
	pos := make([]float64, n)
	if n == 1 {
		return pos
	}
	step := float64(z-1) / float64(n-1)
	for i := range pos {
		pos[i] = float64(i) * step
	}
	return pos
}

// NearestNeighbor gathers whole source planes along Z. Sample positions are
// the rounded (half-to-even) values of an even spread over [0, Z-1], clipped
// into range, so every output plane is an exact copy of some input plane and
// the output value set is a subset of the input value set.
type NearestNeighbor struct{}

// Name implements Interpolator.
func (NearestNeighbor) Name() string { return "nearest" }

// Resample implements Interpolator.
func (NearestNeighbor) Resample(vol *volume.Tensor, newZ int) (*volume.Tensor, error) {
	if newZ < 1 {
		return nil, fmt.Errorf("resample: newZ must be >= 1, got %d", newZ)
	}
	src := vol.Copy()
	z := src.Dim(0)
	planeSize := src.Size() / z
	data := src.Data()

	out := make([]float64, newZ*planeSize)
	for t, pos := range samplePositions(z, newZ) {
		idx := int(math.RoundToEven(pos))
		if idx < 0 {
			idx = 0
		} else if idx > z-1 {
			idx = z - 1
		}
		copy(out[t*planeSize:(t+1)*planeSize], data[idx*planeSize:(idx+1)*planeSize])
	}

	shape := src.Shape()
	shape[0] = newZ
	return volume.FromData(out, shape...)
}

// Linear interpolates each voxel column along Z with a first-order
// piecewise-linear fit. It needs at least two source planes; with fewer it
// returns an error and the caller falls back to nearest-neighbor.
type Linear struct{}

// Name implements Interpolator.
func (Linear) Name() string { return "linear" }

// Resample implements Interpolator.
func (Linear) Resample(vol *volume.Tensor, newZ int) (*volume.Tensor, error) {
	if newZ < 1 {
		return nil, fmt.Errorf("resample: newZ must be >= 1, got %d", newZ)
	}
	src := vol.Copy()
	z := src.Dim(0)
	planeSize := src.Size() / z
	data := src.Data()

	xs := make([]float64, z)
	for i := range xs {
		xs[i] = float64(i)
	}
	positions := samplePositions(z, newZ)

	out := make([]float64, newZ*planeSize)
	ys := make([]float64, z)
	var pl interp.PiecewiseLinear
	for p := 0; p < planeSize; p++ {
		for i := 0; i < z; i++ {
			ys[i] = data[i*planeSize+p]
		}
		if err := pl.Fit(xs, ys); err != nil {
			return nil, fmt.Errorf("resample: linear fit failed: %w", err)
		}
		for t, pos := range positions {
			out[t*planeSize+p] = pl.Predict(pos)
		}
	}

	shape := src.Shape()
	shape[0] = newZ
	return volume.FromData(out, shape...)
}
