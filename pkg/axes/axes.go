// Package axes resolves symbolic axis selections against a concrete tensor
// rank and reorders volumes into one of three canonical layouts:
//
//	(Z, Y, X)       no channel axis
//	(Z, C, Y, X)    channel axis before both spatial axes ("planar")
//	(Z, Y, X, C)    channel axis after both spatial axes ("interleaved")
//
// The relative order of the two spatial axes as they appeared in the input
// is always preserved. A channel axis sandwiched between the two spatial
// axes is rejected rather than reinterpreted.
package axes

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"isoslicer/pkg/volume"
)

// Errors returned by token resolution and canonicalization.
var (
	// ErrInvalidAxisSpec indicates an unparsable axis token or a resolved
	// index outside [-ndim, ndim).
	ErrInvalidAxisSpec = errors.New("invalid axis spec")

	// ErrDimensionMismatch indicates the tensor rank does not match the
	// declared channel presence (3 without a channel axis, 4 with one).
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrAxisConflict indicates the Z and channel tokens resolved to the
	// same dimension.
	ErrAxisConflict = errors.New("z and channel axes refer to the same dimension")

	// ErrChannelBetweenXY indicates the channel axis lies strictly between
	// the two spatial axes in the input order.
	ErrChannelBetweenXY = errors.New("channel axis must be either before both XY or after both XY (not between X and Y)")
)

// TokenKind discriminates the closed set of axis token variants.
type TokenKind int

const (
	// First selects dimension 0.
	First TokenKind = iota
	// Last selects dimension ndim-1.
	Last
	// Index selects an explicit signed dimension index.
	Index
	// None declares the axis absent. Only valid where the caller allows it.
	None
)

// Token is a symbolic request for a dimension, parsed once at the boundary
// and resolved against a concrete rank with Resolve.
type Token struct {
	Kind  TokenKind
	Index int // meaningful only when Kind == Index
}

// Parse converts a boundary axis string into a Token. Accepted forms are
// "first", "last", a signed integer, and "none"/"no"/"disabled" for the
// channel-absent case. Matching is case-insensitive and ignores surrounding
// whitespace.
func Parse(s string) (Token, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "no", "disabled":
		return Token{Kind: None}, nil
	case "first":
		return Token{Kind: First}, nil
	case "last":
		return Token{Kind: Last}, nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return Token{}, fmt.Errorf("%w: %q", ErrInvalidAxisSpec, s)
	}
	return Token{Kind: Index, Index: i}, nil
}

// Resolve turns the token into a concrete dimension index for a tensor of
// the given rank. Negative explicit indices are normalized by adding ndim.
// The returned bool is false when the token is None; a None token is only
// accepted when allowNone is set.
func (t Token) Resolve(ndim int, allowNone bool) (int, bool, error) {
	switch t.Kind {
	case None:
		if !allowNone {
			return 0, false, fmt.Errorf("%w: axis cannot be none here", ErrInvalidAxisSpec)
		}
		return 0, false, nil
	case First:
		return 0, true, nil
	case Last:
		return ndim - 1, true, nil
	case Index:
		i := t.Index
		if i < -ndim || i >= ndim {
			return 0, false, fmt.Errorf("%w: axis %d out of bounds for ndim=%d", ErrInvalidAxisSpec, t.Index, ndim)
		}
		if i < 0 {
			i += ndim
		}
		return i, true, nil
	default:
		return 0, false, fmt.Errorf("%w: unknown token kind %d", ErrInvalidAxisSpec, t.Kind)
	}
}

// ChannelPlacement records where the channel axis sits relative to the two
// spatial axes in the canonical layout.
type ChannelPlacement int

const (
	// Absent means the volume has no channel axis.
	Absent ChannelPlacement = iota
	// Before means the channel axis precedes both spatial axes: (Z,C,Y,X).
	Before
	// After means the channel axis follows both spatial axes: (Z,Y,X,C).
	After
)

// String returns the placement name used in summaries and logs.
func (p ChannelPlacement) String() string {
	switch p {
	case Before:
		return "before"
	case After:
		return "after"
	default:
		return "none"
	}
}

// NoChannel marks the channel axis as absent in Canonicalize.
const NoChannel = -1

// Canonicalize reorders vol so that the Z axis leads, preserving the input
// order of the remaining spatial axes. zIdx and cIdx must already be
// resolved, non-negative dimension indices; pass NoChannel as cIdx for a
// 3-dimensional volume. The result is a stride view sharing vol's buffer.
//
// With a channel axis the placement is decided by comparing its position
// against both spatial axes: strictly before both gives (Z,C,Y,X), strictly
// after both gives (Z,Y,X,C), and anything in between is rejected with
// ErrChannelBetweenXY.
func Canonicalize(vol *volume.Tensor, zIdx, cIdx int) (*volume.Tensor, ChannelPlacement, error) {
	ndim := vol.NDim()

	if cIdx == NoChannel {
		if ndim != 3 {
			return nil, Absent, fmt.Errorf("%w: no channel axis but input ndim=%d != 3", ErrDimensionMismatch, ndim)
		}
		perm := []int{zIdx}
		for d := 0; d < ndim; d++ {
			if d != zIdx {
				perm = append(perm, d)
			}
		}
		out, err := vol.Transpose(perm...)
		if err != nil {
			return nil, Absent, err
		}
		return out, Absent, nil
	}

	if ndim != 4 {
		return nil, Absent, fmt.Errorf("%w: channel axis provided but input ndim=%d (expected 4)", ErrDimensionMismatch, ndim)
	}
	if zIdx == cIdx {
		return nil, Absent, ErrAxisConflict
	}

	// The two remaining axes, in original order, are the spatial pair.
	var spatial []int
	for d := 0; d < ndim; d++ {
		if d != zIdx && d != cIdx {
			spatial = append(spatial, d)
		}
	}
	yAx, xAx := spatial[0], spatial[1]

	switch {
	case cIdx < yAx && cIdx < xAx:
		out, err := vol.Transpose(zIdx, cIdx, yAx, xAx)
		if err != nil {
			return nil, Absent, err
		}
		return out, Before, nil
	case cIdx > yAx && cIdx > xAx:
		out, err := vol.Transpose(zIdx, yAx, xAx, cIdx)
		if err != nil {
			return nil, Absent, err
		}
		return out, After, nil
	default:
		return nil, Absent, ErrChannelBetweenXY
	}
}
