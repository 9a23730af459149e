package axes

import (
	"errors"
	"testing"

	"isoslicer/pkg/volume"
)

func TestParseVocabulary(t *testing.T) {
	cases := []struct {
		in   string
		want Token
	}{
		{"first", Token{Kind: First}},
		{"LAST", Token{Kind: Last}},
		{" last ", Token{Kind: Last}},
		{"none", Token{Kind: None}},
		{"no", Token{Kind: None}},
		{"disabled", Token{Kind: None}},
		{"0", Token{Kind: Index, Index: 0}},
		{"3", Token{Kind: Index, Index: 3}},
		{"-1", Token{Kind: Index, Index: -1}},
		{" -2 ", Token{Kind: Index, Index: -2}},
	}
	for _, c := range cases {
		got, err := Parse(c.in)
		if err != nil {
			t.Errorf("Parse(%q) failed: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("Parse(%q) = %+v, want %+v", c.in, got, c.want)
		}
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "z", "1.5", "first last", "axis0"} {
		if _, err := Parse(in); !errors.Is(err, ErrInvalidAxisSpec) {
			t.Errorf("Parse(%q): expected ErrInvalidAxisSpec, got %v", in, err)
		}
	}
}

func TestResolve(t *testing.T) {
	cases := []struct {
		tok       Token
		ndim      int
		allowNone bool
		want      int
		wantOK    bool
	}{
		{Token{Kind: First}, 3, false, 0, true},
		{Token{Kind: Last}, 3, false, 2, true},
		{Token{Kind: Last}, 4, false, 3, true},
		{Token{Kind: Index, Index: 1}, 3, false, 1, true},
		{Token{Kind: Index, Index: -1}, 4, false, 3, true},
		{Token{Kind: Index, Index: -4}, 4, false, 0, true},
		{Token{Kind: None}, 4, true, 0, false},
	}
	for _, c := range cases {
		got, ok, err := c.tok.Resolve(c.ndim, c.allowNone)
		if err != nil {
			t.Errorf("Resolve(%+v, ndim=%d) failed: %v", c.tok, c.ndim, err)
			continue
		}
		if ok != c.wantOK || (ok && got != c.want) {
			t.Errorf("Resolve(%+v, ndim=%d) = (%d, %v), want (%d, %v)", c.tok, c.ndim, got, ok, c.want, c.wantOK)
		}
	}
}

func TestResolveErrors(t *testing.T) {
	// Out of [-ndim, ndim).
	for _, i := range []int{3, 4, -4, -10} {
		tok := Token{Kind: Index, Index: i}
		if _, _, err := tok.Resolve(3, false); !errors.Is(err, ErrInvalidAxisSpec) {
			t.Errorf("Resolve(Index(%d), ndim=3): expected ErrInvalidAxisSpec, got %v", i, err)
		}
	}

	// None is only legal where the caller allows it.
	if _, _, err := (Token{Kind: None}).Resolve(3, false); !errors.Is(err, ErrInvalidAxisSpec) {
		t.Errorf("Resolve(None, allowNone=false): expected ErrInvalidAxisSpec, got %v", err)
	}
}

func TestCanonicalize3D(t *testing.T) {
	// (Y, Z, X) input with Z at axis 1: axis order of Y and X must survive.
	data := make([]float64, 4*3*5)
	for i := range data {
		data[i] = float64(i)
	}
	vol, err := volume.FromData(data, 4, 3, 5)
	if err != nil {
		t.Fatalf("FromData failed: %v", err)
	}

	can, placement, err := Canonicalize(vol, 1, NoChannel)
	if err != nil {
		t.Fatalf("Canonicalize failed: %v", err)
	}
	if placement != Absent {
		t.Errorf("Expected placement Absent, got %v", placement)
	}

	shape := can.Shape()
	if shape[0] != 3 || shape[1] != 4 || shape[2] != 5 {
		t.Fatalf("Expected canonical shape [3 4 5], got %v", shape)
	}
	if can.Size() != vol.Size() {
		t.Errorf("Element count changed: %d != %d", can.Size(), vol.Size())
	}
	for z := 0; z < 3; z++ {
		for y := 0; y < 4; y++ {
			for x := 0; x < 5; x++ {
				if can.At(z, y, x) != vol.At(y, z, x) {
					t.Fatalf("Value moved: canonical(%d,%d,%d) != input(%d,%d,%d)", z, y, x, y, z, x)
				}
			}
		}
	}
}

func TestCanonicalize3DRejectsWrongRank(t *testing.T) {
	vol, err := volume.New(2, 3, 4, 5)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, _, err := Canonicalize(vol, 0, NoChannel); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Expected ErrDimensionMismatch for 4-D input without channel, got %v", err)
	}

	vol3, err := volume.New(2, 3, 4)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, _, err := Canonicalize(vol3, 0, 2); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Expected ErrDimensionMismatch for 3-D input with channel, got %v", err)
	}
}

func TestCanonicalizeChannelBefore(t *testing.T) {
	// Scenario: shape (5,3,4,6) with Z at 0 and channel at 1 is already in
	// (Z, C, Y, X) order.
	vol, err := volume.New(5, 3, 4, 6)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	can, placement, err := Canonicalize(vol, 0, 1)
	if err != nil {
		t.Fatalf("Canonicalize failed: %v", err)
	}
	if placement != Before {
		t.Errorf("Expected placement Before, got %v", placement)
	}
	shape := can.Shape()
	if shape[0] != 5 || shape[1] != 3 || shape[2] != 4 || shape[3] != 6 {
		t.Errorf("Expected shape [5 3 4 6] unchanged, got %v", shape)
	}
}

func TestCanonicalizeChannelAfter(t *testing.T) {
	// Scenario: shape (7,9,11,2) with Z at 0 and channel at 3 is already in
	// (Z, Y, X, C) order.
	vol, err := volume.New(7, 9, 11, 2)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	can, placement, err := Canonicalize(vol, 0, 3)
	if err != nil {
		t.Fatalf("Canonicalize failed: %v", err)
	}
	if placement != After {
		t.Errorf("Expected placement After, got %v", placement)
	}
	shape := can.Shape()
	if shape[0] != 7 || shape[1] != 9 || shape[2] != 11 || shape[3] != 2 {
		t.Errorf("Expected shape [7 9 11 2] unchanged, got %v", shape)
	}
}

func TestCanonicalizeChannelBeforeReorders(t *testing.T) {
	// (C, Z, Y, X) input: channel precedes both spatial axes, so placement
	// is Before and the volume is permuted to (Z, C, Y, X).
	data := make([]float64, 2*3*4*5)
	for i := range data {
		data[i] = float64(i)
	}
	vol, err := volume.FromData(data, 2, 3, 4, 5)
	if err != nil {
		t.Fatalf("FromData failed: %v", err)
	}

	can, placement, err := Canonicalize(vol, 1, 0)
	if err != nil {
		t.Fatalf("Canonicalize failed: %v", err)
	}
	if placement != Before {
		t.Errorf("Expected placement Before, got %v", placement)
	}
	shape := can.Shape()
	if shape[0] != 3 || shape[1] != 2 || shape[2] != 4 || shape[3] != 5 {
		t.Fatalf("Expected shape [3 2 4 5], got %v", shape)
	}
	if can.At(2, 1, 3, 4) != vol.At(1, 2, 3, 4) {
		t.Error("Permutation moved values incorrectly")
	}
}

func TestCanonicalizeChannelBetweenXY(t *testing.T) {
	// Scenario: channel axis 2 sits between the spatial axes 1 and 3.
	vol, err := volume.New(4, 5, 6, 3)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, _, err := Canonicalize(vol, 0, 2); !errors.Is(err, ErrChannelBetweenXY) {
		t.Errorf("Expected ErrChannelBetweenXY, got %v", err)
	}
}

func TestCanonicalizeAxisConflict(t *testing.T) {
	vol, err := volume.New(4, 5, 6, 3)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, _, err := Canonicalize(vol, 2, 2); !errors.Is(err, ErrAxisConflict) {
		t.Errorf("Expected ErrAxisConflict, got %v", err)
	}
}

func TestChannelPlacementString(t *testing.T) {
	if Absent.String() != "none" || Before.String() != "before" || After.String() != "after" {
		t.Errorf("Unexpected placement names: %q %q %q", Absent, Before, After)
	}
}
