// Package geometry converts layout millimetres into printer dots and resolves rotations
package geometry

import (
	"math"
)

// MMPerInch is the millimetre length of one inch
const MMPerInch = 25.4

// Orientation buckets a rotation snaps to
const (
	Bucket0   = 0
	Bucket90  = 90
	Bucket180 = 180
	Bucket270 = 270
)

// SupportedDPI lists print head resolutions (6, 8, 12 and 24 dots per mm)
var SupportedDPI = []int{152, 203, 300, 600}

// IsSupportedDPI reports whether dpi is one of SupportedDPI
func IsSupportedDPI(dpi int) bool {
	for _, d := range SupportedDPI {
		if d == dpi {
			return true
		}
	}
	return false
}

// MMToDots converts a millimetre length to printer dots at dpi, rounding half away from zero.
func MMToDots(mm float64, dpi int) int {
	return int(math.Round(mm * float64(dpi) / MMPerInch))
}

// DotsToMM converts printer dots back to millimetres.
func DotsToMM(dots int, dpi int) float64 {
	if dpi <= 0 {
		return 0
	}
	return float64(dots) * MMPerInch / float64(dpi)
}

// NormalizeRotation maps any angle in degrees into [0, 360).
func NormalizeRotation(deg float64) float64 {
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	if r >= 360 || r == 0 {
		// Tiny negative inputs land on 360 after the shift; -0 becomes 0.
		return 0
	}
	return r
}

// OrientationBucket snaps an angle to the nearest quarter turn. Boundaries
// (45, 135, 225, 315) belong to the following bucket.
func OrientationBucket(deg float64) int {
	n := NormalizeRotation(deg)
	switch {
	case n < 45:
		return Bucket0
	case n < 135:
		return Bucket90
	case n < 225:
		return Bucket180
	case n < 315:
		return Bucket270
	default:
		return Bucket0
	}
}

// IsQuarterTurn reports whether the bucket swaps width and height
func IsQuarterTurn(bucket int) bool {
	return bucket == Bucket90 || bucket == Bucket270
}

// Box is an axis-aligned rectangle in dots
type Box struct {
	X int
	Y int
	W int
	H int
}

// Empty reports whether the box has no area
func (b Box) Empty() bool {
	return b.W <= 0 || b.H <= 0
}

// RotatedBounds returns the bounding box of b after a rotation into bucket,
// centred on the original centre. Half-turns leave the box unchanged.
func RotatedBounds(b Box, bucket int) Box {
	if !IsQuarterTurn(bucket) {
		return b
	}

	// Truncation toward zero is symmetric, so a 90 then 270 pass restores b.
	return Box{
		X: b.X + (b.W-b.H)/2,
		Y: b.Y + (b.H-b.W)/2,
		W: b.H,
		H: b.W,
	}
}
