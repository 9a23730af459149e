package stack

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeGrayPNG(t *testing.T, path string, w, h int, value uint8) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: value})
		}
	}
	writePNG(t, path, img)
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}
}

func TestLoadGrayStack(t *testing.T) {
	dir := t.TempDir()
	// Written out of order on purpose: numeric sort must restore Z order.
	writeGrayPNG(t, filepath.Join(dir, "slice_2.png"), 5, 4, 30)
	writeGrayPNG(t, filepath.Join(dir, "slice_0.png"), 5, 4, 10)
	writeGrayPNG(t, filepath.Join(dir, "slice_10.png"), 5, 4, 40)
	writeGrayPNG(t, filepath.Join(dir, "slice_1.png"), 5, 4, 20)

	vol, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	shape := vol.Shape()
	if len(shape) != 3 || shape[0] != 4 || shape[1] != 4 || shape[2] != 5 {
		t.Fatalf("Expected shape [4 4 5], got %v", shape)
	}

	// Plane order follows the embedded numbers, not lexical order
	// (slice_10 after slice_2).
	wantPlanes := []float64{10, 20, 30, 40}
	for z, want := range wantPlanes {
		if got := vol.At(z, 0, 0); got != want {
			t.Errorf("Plane %d: expected value %v, got %v", z, want, got)
		}
	}
}

func TestLoadColorStack(t *testing.T) {
	dir := t.TempDir()
	for z := 0; z < 2; z++ {
		img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
		for y := 0; y < 2; y++ {
			for x := 0; x < 3; x++ {
				img.SetNRGBA(x, y, color.NRGBA{R: uint8(100 + z), G: uint8(50 + x), B: uint8(y), A: 255})
			}
		}
		writePNG(t, filepath.Join(dir, "ch"+string(rune('0'+z))+".png"), img)
	}

	vol, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	shape := vol.Shape()
	if len(shape) != 4 || shape[0] != 2 || shape[1] != 2 || shape[2] != 3 || shape[3] != 3 {
		t.Fatalf("Expected shape [2 2 3 3], got %v", shape)
	}
	if vol.At(1, 0, 0, 0) != 101 {
		t.Errorf("Expected R sample 101, got %v", vol.At(1, 0, 0, 0))
	}
	if vol.At(0, 0, 2, 1) != 52 {
		t.Errorf("Expected G sample 52, got %v", vol.At(0, 0, 2, 1))
	}
	if vol.At(0, 1, 0, 2) != 1 {
		t.Errorf("Expected B sample 1, got %v", vol.At(0, 1, 0, 2))
	}
}

func TestLoadGray16PreservesValues(t *testing.T) {
	dir := t.TempDir()
	img := image.NewGray16(image.Rect(0, 0, 2, 2))
	img.SetGray16(0, 0, color.Gray16{Y: 1234})
	img.SetGray16(1, 0, color.Gray16{Y: 65535})
	img.SetGray16(0, 1, color.Gray16{Y: 0})
	img.SetGray16(1, 1, color.Gray16{Y: 7})
	writePNG(t, filepath.Join(dir, "labels_0.png"), img)

	vol, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if vol.At(0, 0, 0) != 1234 || vol.At(0, 0, 1) != 65535 || vol.At(0, 1, 1) != 7 {
		t.Errorf("16-bit sample values not preserved: %v %v %v",
			vol.At(0, 0, 0), vol.At(0, 0, 1), vol.At(0, 1, 1))
	}
}

func TestLoadRejectsEmptyAndMismatched(t *testing.T) {
	empty := t.TempDir()
	if _, err := Load(empty); err == nil {
		t.Error("Expected error for a directory without slice images")
	}

	dir := t.TempDir()
	writeGrayPNG(t, filepath.Join(dir, "a_0.png"), 4, 4, 1)
	writeGrayPNG(t, filepath.Join(dir, "a_1.png"), 5, 4, 1)
	if _, err := Load(dir); err == nil {
		t.Error("Expected error for mismatched slice dimensions")
	}
}

// TestLoadRejectsMixedKinds loads a gray first slice followed by a color one:
// the color slice must be rejected, not coerced to grayscale.
func TestLoadRejectsMixedKinds(t *testing.T) {
	dir := t.TempDir()
	writeGrayPNG(t, filepath.Join(dir, "s_0.png"), 3, 2, 9)

	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 10, B: 30, A: 255})
		}
	}
	writePNG(t, filepath.Join(dir, "s_1.png"), img)

	if _, err := Load(dir); err == nil {
		t.Error("Expected error for a color slice in a grayscale stack")
	}
}

func TestLoadIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	writeGrayPNG(t, filepath.Join(dir, "s_0.png"), 2, 2, 5)
	writeGrayPNG(t, filepath.Join(dir, "s_1.png"), 2, 2, 6)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not an image"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	vol, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if vol.Dim(0) != 2 {
		t.Errorf("Expected 2 planes, got %d", vol.Dim(0))
	}
}

func TestExtractNumber(t *testing.T) {
	cases := []struct {
		name string
		want int
	}{
		{"slice_007.png", 7},
		{"img12_3.tif", 123},
		{"noscan.png", 0},
	}
	for _, c := range cases {
		if got := extractNumber(c.name); got != c.want {
			t.Errorf("extractNumber(%q) = %d, want %d", c.name, got, c.want)
		}
	}
}
