// Package export walks a canonical volume along its three orthogonal
// directions and hands one tile at a time to a sink. For each invocation it
// produces the XY sequence (one tile per Z plane), then the ZX sequence
// (iterating Y), then the ZY sequence (iterating X), with deterministic
// zero-based numbering inside each sequence.
//
// Tiles keep the channel layout of the canonical volume: with channels
// before XY the collapsed ZX/ZY slabs are transposed so the channel axis
// leads the tile (planar layout), with channels after XY the natural slab
// already ends in the channel axis (interleaved layout). The axes tag passed
// to the sink names the tile's dimension order so the sink can persist the
// layout correctly.
package export

import (
	"fmt"

	"isoslicer/pkg/axes"
	"isoslicer/pkg/volume"
)

// Direction tags one of the three orthogonal slice sequences.
type Direction string

const (
	// XY tiles are full (Y,X) planes, one per Z index.
	XY Direction = "xy"
	// ZX tiles span (Z,X) at a fixed Y index.
	ZX Direction = "zx"
	// ZY tiles span (Z,Y) at a fixed X index.
	ZY Direction = "zy"
)

// Sink persists tiles. Write is called with the sequence direction, the
// zero-based tile index within that sequence, an axes tag such as "YX",
// "CZX" or "ZYC" describing the tile's dimension order, and the tile itself.
// The tile is a freshly materialized tensor the sink may retain.
type Sink interface {
	Write(dir Direction, index int, axesTag string, tile *volume.Tensor) error
}

// ProgressFunc is notified after every logical tile, written or skipped.
// done is 1-based and monotonically increasing, total is Z+Y+X for the
// invocation. It is a pure notification: panics are swallowed and there is
// no backpressure or cancellation.
type ProgressFunc func(done, total int, note string)

// Summary reports the dimensions and tile counts of one export invocation.
// C is zero when the volume has no channel axis.
type Summary struct {
	Z, Y, X, C int
	Placement  axes.ChannelPlacement
	Written    int
	Skipped    int
}

// TileName builds the file stem for one tile: {stem}_{direction}_{index:04d}.
// The sink appends its codec's native extension.
func TileName(stem string, dir Direction, index int) string {
	return fmt.Sprintf("%s_%s_%04d", stem, dir, index)
}

// Exporter drives the three tile sequences against a sink.
type Exporter struct {
	sink      Sink
	progress  ProgressFunc
	skipEmpty bool
}

// New creates an exporter. progress may be nil. With skipEmpty set, tiles
// whose maximum element is zero are counted but not written.
func New(sink Sink, progress ProgressFunc, skipEmpty bool) *Exporter {
	return &Exporter{sink: sink, progress: progress, skipEmpty: skipEmpty}
}

// Export walks all three sequences in order (XY complete, then ZX, then ZY)
// and returns the tile counts. Any sink error aborts the remaining sequence;
// tiles already handed to the sink are not rolled back.
func (e *Exporter) Export(vol *volume.Tensor, placement axes.ChannelPlacement) (*Summary, error) {
	sum, err := newSummary(vol, placement)
	if err != nil {
		return nil, err
	}
	total := sum.Z + sum.Y + sum.X
	done := 0
	for _, dir := range []Direction{XY, ZX, ZY} {
		n := sum.sequenceLen(dir)
		for i := 0; i < n; i++ {
			if err := e.emit(vol, placement, dir, i, sum); err != nil {
				return nil, err
			}
			done++
			e.notify(done, total, fmt.Sprintf("%s %d/%d", dir, i+1, n))
		}
	}
	return sum, nil
}

// emit extracts, filters and writes one tile, updating the summary counts.
func (e *Exporter) emit(vol *volume.Tensor, placement axes.ChannelPlacement, dir Direction, i int, sum *Summary) error {
	tile, tag, err := extractTile(vol, placement, dir, i)
	if err != nil {
		return err
	}
	if e.skipEmpty && tile.Max() == 0 {
		sum.Skipped++
		return nil
	}
	if err := e.sink.Write(dir, i, tag, tile); err != nil {
		return fmt.Errorf("export: writing %s tile %d: %w", dir, i, err)
	}
	sum.Written++
	return nil
}

func (e *Exporter) notify(done, total int, note string) {
	if e.progress == nil {
		return
	}
	defer func() { _ = recover() }()
	e.progress(done, total, note)
}

func newSummary(vol *volume.Tensor, placement axes.ChannelPlacement) (*Summary, error) {
	shape := vol.Shape()
	switch placement {
	case axes.Absent:
		if len(shape) != 3 {
			return nil, fmt.Errorf("%w: expected 3 dimensions without channels, got %d", axes.ErrDimensionMismatch, len(shape))
		}
		return &Summary{Z: shape[0], Y: shape[1], X: shape[2], Placement: placement}, nil
	case axes.Before:
		if len(shape) != 4 {
			return nil, fmt.Errorf("%w: expected 4 dimensions with channels, got %d", axes.ErrDimensionMismatch, len(shape))
		}
		return &Summary{Z: shape[0], C: shape[1], Y: shape[2], X: shape[3], Placement: placement}, nil
	case axes.After:
		if len(shape) != 4 {
			return nil, fmt.Errorf("%w: expected 4 dimensions with channels, got %d", axes.ErrDimensionMismatch, len(shape))
		}
		return &Summary{Z: shape[0], Y: shape[1], X: shape[2], C: shape[3], Placement: placement}, nil
	default:
		return nil, fmt.Errorf("export: unknown channel placement %d", placement)
	}
}

func (s *Summary) sequenceLen(dir Direction) int {
	switch dir {
	case XY:
		return s.Z
	case ZX:
		return s.Y
	default:
		return s.X
	}
}

// extractTile materializes tile i of the given sequence together with its
// axes tag. Slicing at a fixed Y (or X) collapses that axis; with channels
// before XY the leftover (Z,C,·) slab is transposed so the channel axis
// leads, while channels after XY already trail naturally.
func extractTile(vol *volume.Tensor, placement axes.ChannelPlacement, dir Direction, i int) (*volume.Tensor, string, error) {
	var view *volume.Tensor
	var tag string
	var err error

	switch placement {
	case axes.Absent: // (Z, Y, X)
		switch dir {
		case XY:
			view, err = vol.SliceAt(0, i)
			tag = "YX"
		case ZX:
			view, err = vol.SliceAt(1, i)
			tag = "ZX"
		case ZY:
			view, err = vol.SliceAt(2, i)
			tag = "ZY"
		}
	case axes.Before: // (Z, C, Y, X)
		switch dir {
		case XY:
			view, err = vol.SliceAt(0, i) // (C, Y, X)
			tag = "CYX"
		case ZX:
			view, err = vol.SliceAt(2, i) // (Z, C, X)
			if err == nil {
				view, err = view.Transpose(1, 0, 2) // (C, Z, X)
			}
			tag = "CZX"
		case ZY:
			view, err = vol.SliceAt(3, i) // (Z, C, Y)
			if err == nil {
				view, err = view.Transpose(1, 0, 2) // (C, Z, Y)
			}
			tag = "CZY"
		}
	case axes.After: // (Z, Y, X, C)
		switch dir {
		case XY:
			view, err = vol.SliceAt(0, i) // (Y, X, C)
			tag = "YXC"
		case ZX:
			view, err = vol.SliceAt(1, i) // (Z, X, C)
			tag = "ZXC"
		case ZY:
			view, err = vol.SliceAt(2, i) // (Z, Y, C)
			tag = "ZYC"
		}
	}
	if err != nil {
		return nil, "", fmt.Errorf("export: extracting %s tile %d: %w", dir, i, err)
	}
	return view.Copy(), tag, nil
}
