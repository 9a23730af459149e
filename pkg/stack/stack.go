// Package stack loads a directory of 2-D slice images into a single volume
// tensor. Files are ordered by the numeric component of their names so the
// stack preserves acquisition order, then stacked along a new leading axis.
//
// Grayscale inputs produce a (Z, Y, X) tensor; color inputs produce
// (Z, Y, X, C) with C=3 and channels after the spatial axes. Sample values
// are kept raw (no normalization), so integer label images survive the round
// trip through the pipeline unchanged.
package stack

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	// Codecs for the supported slice formats.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/tiff"

	"isoslicer/pkg/volume"
)

var sliceExtensions = map[string]bool{
	".tif":  true,
	".tiff": true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// Load reads every supported image in dir, sorted by the number embedded in
// each filename, and stacks them into a volume tensor. All images must share
// the same dimensions and the same grayscale-vs-color kind.
func Load(dir string) (*volume.Tensor, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if sliceExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("stack: no slice images found in %s", dir)
	}

	// Sort by the numeric part of the filename so slice order matches
	// acquisition order regardless of zero padding.
	sort.Slice(names, func(i, j int) bool {
		return extractNumber(names[i]) < extractNumber(names[j])
	})

	var (
		width, height int
		gray          bool
		data          []float64
	)
	for i, name := range names {
		img, err := loadImage(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("stack: loading %s: %w", name, err)
		}
		bounds := img.Bounds()
		if i == 0 {
			width = bounds.Dx()
			height = bounds.Dy()
			gray = isGray(img)
		} else if bounds.Dx() != width || bounds.Dy() != height {
			return nil, fmt.Errorf("stack: %s is %dx%d, want %dx%d like the first slice",
				name, bounds.Dx(), bounds.Dy(), width, height)
		} else if isGray(img) != gray {
			return nil, fmt.Errorf("stack: %s is %s, want %s like the first slice",
				name, kindName(isGray(img)), kindName(gray))
		}
		data = appendSamples(data, img, gray)
	}

	if gray {
		return volume.FromData(data, len(names), height, width)
	}
	return volume.FromData(data, len(names), height, width, 3)
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}

func kindName(gray bool) string {
	if gray {
		return "grayscale"
	}
	return "color"
}

func isGray(img image.Image) bool {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return true
	default:
		return false
	}
}

// appendSamples flattens one slice in row-major (Y, X[, C]) order. Gray
// images keep their native 8- or 16-bit sample values; color images
// contribute 8-bit R, G, B samples interleaved per pixel.
func appendSamples(data []float64, img image.Image, gray bool) []float64 {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if gray {
				switch p := img.(type) {
				case *image.Gray:
					data = append(data, float64(p.GrayAt(x, y).Y))
				case *image.Gray16:
					data = append(data, float64(p.Gray16At(x, y).Y))
				}
				continue
			}
			r, g, b, _ := img.At(x, y).RGBA()
			data = append(data, float64(r>>8), float64(g>>8), float64(b>>8))
		}
	}
	return data
}

// extractNumber pulls the digits out of a filename for ordering. Files with
// no digits sort first.
func extractNumber(filename string) int {
	numStr := ""
	for _, c := range filepath.Base(filename) {
		if c >= '0' && c <= '9' {
			numStr += string(c)
		}
	}
	if numStr == "" {
		return 0
	}
	num, err := strconv.Atoi(numStr)
	if err != nil {
		return 0
	}
	return num
}
