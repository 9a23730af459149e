// Package tiffsink persists exported tiles as deflate-compressed TIFF files
// under the conventional directory layout:
//
//	<base>/xy/<stem>_xy_0000.tif
//	<base>/zx/<stem>_zx_0000.tif
//	<base>/zy/<stem>_zy_0000.tif
//
// 2-D tiles are written as 16-bit grayscale. Interleaved channel tiles
// (axes tag ending in C) are written as 8-bit RGBA for 3 or 4 channels.
// Planar channel tiles (axes tag starting with C) are stored as separate
// 16-bit grayscale planes, one file per channel with a _ch<N> suffix, which
// is this codec's rendition of TIFF's "separate" planar configuration.
package tiffsink

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"

	"isoslicer/pkg/export"
	"isoslicer/pkg/volume"
)

// Sink writes tiles below baseDir. It is safe for concurrent use: every tile
// maps to a distinct file.
type Sink struct {
	baseDir string
	stem    string
}

// New creates the xy/, zx/ and zy/ directories below baseDir and returns a
// sink that names files after stem.
func New(baseDir, stem string) (*Sink, error) {
	for _, dir := range []export.Direction{export.XY, export.ZX, export.ZY} {
		if err := os.MkdirAll(filepath.Join(baseDir, string(dir)), 0755); err != nil {
			return nil, fmt.Errorf("tiffsink: creating output directory: %w", err)
		}
	}
	return &Sink{baseDir: baseDir, stem: stem}, nil
}

// BaseDir returns the directory the sink writes below.
func (s *Sink) BaseDir() string { return s.baseDir }

// Write implements export.Sink.
func (s *Sink) Write(dir export.Direction, index int, axesTag string, tile *volume.Tensor) error {
	path := filepath.Join(s.baseDir, string(dir), export.TileName(s.stem, dir, index)+".tif")

	switch {
	case tile.NDim() == 2:
		return writeTIFF(path, grayImage(tile))

	case tile.NDim() == 3 && strings.HasPrefix(axesTag, "C"):
		// Planar: one grayscale file per channel plane.
		for c := 0; c < tile.Dim(0); c++ {
			plane, err := tile.SliceAt(0, c)
			if err != nil {
				return fmt.Errorf("tiffsink: extracting channel %d: %w", c, err)
			}
			chPath := filepath.Join(s.baseDir, string(dir),
				fmt.Sprintf("%s_ch%d.tif", export.TileName(s.stem, dir, index), c))
			if err := writeTIFF(chPath, grayImage(plane)); err != nil {
				return err
			}
		}
		return nil

	case tile.NDim() == 3 && strings.HasSuffix(axesTag, "C"):
		c := tile.Dim(2)
		if c != 3 && c != 4 {
			return fmt.Errorf("tiffsink: cannot encode %d interleaved channels (want 3 or 4)", c)
		}
		return writeTIFF(path, rgbaImage(tile))

	default:
		return fmt.Errorf("tiffsink: unsupported tile with %d dimensions and axes %q", tile.NDim(), axesTag)
	}
}

func writeTIFF(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tiffsink: %w", err)
	}
	if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		f.Close()
		return fmt.Errorf("tiffsink: encoding %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// grayImage renders a 2-D tile as 16-bit grayscale, clamping samples into
// [0, 65535].
func grayImage(tile *volume.Tensor) *image.Gray16 {
	h, w := tile.Dim(0), tile.Dim(1)
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray16(x, y, color.Gray16{Y: clamp16(tile.At(y, x))})
		}
	}
	return img
}

// rgbaImage renders an interleaved (H, W, C) tile with 3 or 4 channels as
// 8-bit RGBA, clamping samples into [0, 255]. A missing alpha channel is
// filled with full opacity.
func rgbaImage(tile *volume.Tensor) *image.NRGBA {
	h, w, c := tile.Dim(0), tile.Dim(1), tile.Dim(2)
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := uint8(255)
			if c == 4 {
				a = clamp8(tile.At(y, x, 3))
			}
			img.SetNRGBA(x, y, color.NRGBA{
				R: clamp8(tile.At(y, x, 0)),
				G: clamp8(tile.At(y, x, 1)),
				B: clamp8(tile.At(y, x, 2)),
				A: a,
			})
		}
	}
	return img
}

func clamp16(v float64) uint16 {
	return uint16(math.Max(0, math.Min(65535, math.Round(v))))
}

func clamp8(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}
