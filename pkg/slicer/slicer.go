// Package slicer wires the full pipeline together: load an image stack,
// resolve the axis selections, canonicalize the volume, resample Z to
// isotropic voxels, and export the three orthogonal slice sequences
// through a sink.
package slicer

import (
	"fmt"
	"path/filepath"
	"strings"

	"isoslicer/pkg/axes"
	"isoslicer/pkg/export"
	"isoslicer/pkg/resample"
	"isoslicer/pkg/stack"
	"isoslicer/pkg/tiffsink"
	"isoslicer/pkg/volume"
)

// cpMaskSuffix is appended by cellpose to segmentation mask stacks; it is
// trimmed from the output directory name in labels mode so masks land next
// to their source image's slices.
const cpMaskSuffix = "_cp_masks"

// Params holds the slicing parameters for one invocation.
type Params struct {
	// InputDir is the directory containing the 2-D slice images that form
	// the input stack.
	InputDir string

	// OutDir is the directory below which xy/, zx/ and zy/ slice files are
	// written.
	OutDir string

	// ZAxis selects the Z dimension: "first", "last" or a signed index.
	ZAxis string

	// CAxis selects the channel dimension, or "none" for 3-D stacks.
	CAxis string

	// ZAspect is zSpacing / xySpacing and must be positive.
	ZAspect float64

	// Mode is "labels" or "image".
	Mode string

	// SkipEmpty drops all-zero tiles instead of writing them.
	SkipEmpty bool

	// Parallel exports the three directions concurrently.
	Parallel bool

	// Progress, when non-nil, is notified after every tile.
	Progress export.ProgressFunc

	// Sink overrides the default TIFF sink, mainly for tests. When nil a
	// tiffsink writing below OutDir is used.
	Sink export.Sink
}

// Result summarizes one completed invocation.
type Result struct {
	// Z, Y and X are the resampled canonical dimensions; C is zero when the
	// stack has no channel axis.
	Z, Y, X, C int

	// Placement reports where the channel axis sits: "none", "before" or
	// "after".
	Placement string

	// Engine is the interpolation that actually ran: "nearest", "linear",
	// or "none" when the volume was already isotropic. In image mode a
	// value of "nearest" means the linear engine fell back.
	Engine string

	// OutDir is the directory the slices were written below.
	OutDir string

	// Written and Skipped are the tile counts.
	Written, Skipped int
}

// Slicer runs the slicing pipeline for one parameter set.
type Slicer struct {
	params *Params
}

// NewSlicer creates a slicer instance with the provided parameters.
func NewSlicer(params *Params) *Slicer {
	return &Slicer{params: params}
}

// Process runs the complete pipeline and returns its summary. Any error
// aborts the remaining tiles; files already written stay on disk.
func (s *Slicer) Process() (*Result, error) {
	vol, err := stack.Load(s.params.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load stack: %w", err)
	}

	canonical, placement, err := s.canonicalize(vol)
	if err != nil {
		return nil, err
	}

	mode, err := resample.ParseMode(s.params.Mode)
	if err != nil {
		return nil, err
	}
	iso, engine, err := resample.New().Resample(canonical, s.params.ZAspect, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to resample: %w", err)
	}

	stem := filepath.Base(filepath.Clean(s.params.InputDir))
	outDir := filepath.Join(s.params.OutDir, outputStem(stem, mode))

	sink := s.params.Sink
	if sink == nil {
		ts, err := tiffsink.New(outDir, stem)
		if err != nil {
			return nil, err
		}
		sink = ts
	}

	exporter := export.New(sink, s.params.Progress, s.params.SkipEmpty)
	var sum *export.Summary
	if s.params.Parallel {
		sum, err = exporter.ExportParallel(iso, placement)
	} else {
		sum, err = exporter.Export(iso, placement)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to export slices: %w", err)
	}

	return &Result{
		Z:         sum.Z,
		Y:         sum.Y,
		X:         sum.X,
		C:         sum.C,
		Placement: placement.String(),
		Engine:    engine,
		OutDir:    outDir,
		Written:   sum.Written,
		Skipped:   sum.Skipped,
	}, nil
}

// canonicalize resolves the axis tokens against the loaded stack and
// reorders it into a canonical layout.
func (s *Slicer) canonicalize(vol *volume.Tensor) (*volume.Tensor, axes.ChannelPlacement, error) {
	ndim := vol.NDim()

	zTok, err := axes.Parse(s.params.ZAxis)
	if err != nil {
		return nil, axes.Absent, err
	}
	zIdx, _, err := zTok.Resolve(ndim, false)
	if err != nil {
		return nil, axes.Absent, err
	}

	cTok, err := axes.Parse(s.params.CAxis)
	if err != nil {
		return nil, axes.Absent, err
	}
	cIdx, hasC, err := cTok.Resolve(ndim, true)
	if err != nil {
		return nil, axes.Absent, err
	}
	if !hasC {
		cIdx = axes.NoChannel
	}

	return axes.Canonicalize(vol, zIdx, cIdx)
}

// outputStem trims the cellpose mask suffix in labels mode.
func outputStem(stem string, mode resample.Mode) string {
	if mode == resample.Labels && strings.HasSuffix(stem, cpMaskSuffix) {
		return strings.TrimSuffix(stem, cpMaskSuffix)
	}
	return stem
}
