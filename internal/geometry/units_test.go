package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMMToDots(t *testing.T) {
	tests := []struct {
		mm   float64
		dpi  int
		want int
	}{
		{86, 203, 687},
		{120, 203, 959},
		{10, 203, 80},
		{60, 203, 480},
		{3, 203, 24},
		{25.4, 300, 300},
		{0, 203, 0},
		{1, 600, 24},
		{-10, 203, -80},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MMToDots(tt.mm, tt.dpi), "MMToDots(%v, %d)", tt.mm, tt.dpi)
	}
}

func TestMMToDotsMonotonic(t *testing.T) {
	for _, dpi := range SupportedDPI {
		prev := MMToDots(0, dpi)
		for mm := 0.05; mm < 200; mm += 0.05 {
			got := MMToDots(mm, dpi)
			if got < prev {
				t.Fatalf("dpi %d: MMToDots(%g)=%d is below previous %d", dpi, mm, got, prev)
			}
			prev = got
		}
	}
}

func TestDotsToMM(t *testing.T) {
	assert.InDelta(t, 25.4, DotsToMM(203, 203), 1e-9)
	assert.Equal(t, 0.0, DotsToMM(10, 0))
}

func TestIsSupportedDPI(t *testing.T) {
	assert.True(t, IsSupportedDPI(203))
	assert.True(t, IsSupportedDPI(300))
	assert.False(t, IsSupportedDPI(200))
	assert.False(t, IsSupportedDPI(0))
}

func TestNormalizeRotation(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{90, 90},
		{360, 0},
		{450, 90},
		{-90, 270},
		{-360, 0},
		{-720.5, 359.5},
		{math.Copysign(0, -1), 0},
	}

	for _, tt := range tests {
		got := NormalizeRotation(tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, "NormalizeRotation(%v)", tt.in)
		assert.True(t, got >= 0 && got < 360)
		assert.False(t, math.Signbit(got), "NormalizeRotation(%v) returned negative zero", tt.in)
	}
}

func TestOrientationBucket(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0, 0},
		{44.9, 0},
		{45, 90},
		{90, 90},
		{134.9, 90},
		{135, 180},
		{224, 180},
		{225, 270},
		{314.9, 270},
		{315, 0},
		{359, 0},
		{-90, 270},
		{-45, 0},
		{630, 270},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, OrientationBucket(tt.in), "OrientationBucket(%v)", tt.in)
	}
}

func TestRotatedBounds(t *testing.T) {
	box := Box{X: 80, Y: 40, W: 401, H: 120}

	t.Run("half turns are identity", func(t *testing.T) {
		assert.Equal(t, box, RotatedBounds(box, Bucket0))
		assert.Equal(t, box, RotatedBounds(box, Bucket180))
	})

	t.Run("quarter turn swaps and recenters", func(t *testing.T) {
		got := RotatedBounds(box, Bucket90)
		assert.Equal(t, 120, got.W)
		assert.Equal(t, 401, got.H)
		assert.Equal(t, 80+140, got.X)
		assert.Equal(t, 40-140, got.Y)
	})

	t.Run("90 then 270 round trips", func(t *testing.T) {
		for _, b := range []Box{box, {X: 0, Y: 0, W: 3, H: 8}, {X: 5, Y: 7, W: 10, H: 10}, {X: 1, Y: 2, W: 0, H: 9}} {
			assert.Equal(t, b, RotatedBounds(RotatedBounds(b, Bucket90), Bucket270))
		}
	})
}

func TestBoxEmpty(t *testing.T) {
	assert.True(t, Box{W: 0, H: 10}.Empty())
	assert.True(t, Box{W: 10, H: 0}.Empty())
	assert.False(t, Box{W: 1, H: 1}.Empty())
}
