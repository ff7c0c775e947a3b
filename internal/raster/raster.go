// Package raster turns fetched images into 1-bit bitmaps for ^GFA graphic fields
package raster

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/thereceipt/label-engine/internal/geometry"
)

var (
	// ErrEmptyTarget is returned when the requested bitmap has no area
	ErrEmptyTarget = errors.New("target size has no area")

	// ErrTargetTooLarge is returned for canvases beyond MaxDots or MaxPixels
	ErrTargetTooLarge = errors.New("target size too large")
)

const (
	// Threshold is the luminance below which a pixel prints
	Threshold = 128

	// MaxDots is the longest side a printer accepts (^PW and ^LL stop at 32000)
	MaxDots = 32000

	// MaxPixels bounds one composed canvas or preview page
	MaxPixels = 1 << 24

	// MaxSourcePixels bounds a decoded source image
	MaxSourcePixels = 1 << 26
)

// CheckSize rejects a canvas too large to allocate
func CheckSize(width, height int) error {
	if width > MaxDots || height > MaxDots || int64(width)*int64(height) > MaxPixels {
		return fmt.Errorf("%w: %dx%d dots", ErrTargetTooLarge, width, height)
	}
	return nil
}

// Request describes one image placement in dots
type Request struct {
	Location string
	Width    int
	Height   int
	Rotation float64 // exact degrees, clockwise
}

// Bitmap is a packed monochrome image. Bit 7 of each byte is the leftmost
// pixel; a set bit prints.
type Bitmap struct {
	Width       int
	Height      int
	BytesPerRow int
	Data        []byte
}

// TotalBytes returns the packed size
func (b *Bitmap) TotalBytes() int {
	return b.BytesPerRow * b.Height
}

// Hex returns the packed data as uppercase hex without separators
func (b *Bitmap) Hex() string {
	return strings.ToUpper(hex.EncodeToString(b.Data))
}

// Ink reports whether the pixel at x, y prints
func (b *Bitmap) Ink(x, y int) bool {
	return b.Data[y*b.BytesPerRow+x/8]&(0x80>>uint(x%8)) != 0
}

// Image expands the bitmap into black and white pixels
func (b *Bitmap) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, b.Width, b.Height))
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			if b.Ink(x, y) {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

// Rasterizer fetches, composes and packs images
type Rasterizer struct {
	source ImageSource
}

// New creates a rasterizer reading from source
func New(source ImageSource) *Rasterizer {
	return &Rasterizer{
		source: source,
	}
}

// Rasterize fetches req.Location and packs it at the requested size and rotation
func (r *Rasterizer) Rasterize(ctx context.Context, req Request) (*Bitmap, error) {
	if req.Width <= 0 || req.Height <= 0 {
		return nil, ErrEmptyTarget
	}
	if err := CheckSize(req.Width, req.Height); err != nil {
		return nil, err
	}
	if r.source == nil {
		return nil, fmt.Errorf("%w: no image source configured", ErrUnsupportedLocation)
	}

	img, err := r.source.Fetch(ctx, req.Location)
	if err != nil {
		return nil, err
	}

	return Pack(Compose(img, req.Width, req.Height, req.Rotation)), nil
}

// Compose scales img to width x height and draws it centred on an opaque
// white canvas rotated by rotation degrees. Quarter-turn buckets swap the
// canvas dimensions so the rotated image fits.
func Compose(img image.Image, width, height int, rotation float64) image.Image {
	angle := geometry.NormalizeRotation(rotation)

	canvasW, canvasH := width, height
	if angle != 0 && geometry.IsQuarterTurn(geometry.OrientationBucket(angle)) {
		canvasW, canvasH = height, width
	}

	scaled := imaging.Resize(img, width, height, imaging.Lanczos)

	dc := gg.NewContext(canvasW, canvasH)
	dc.SetColor(color.White)
	dc.Clear()
	if angle != 0 {
		dc.RotateAbout(gg.Radians(angle), float64(canvasW)/2, float64(canvasH)/2)
	}
	dc.DrawImageAnchored(scaled, canvasW/2, canvasH/2, 0.5, 0.5)

	return dc.Image()
}

// Pack thresholds img by luminance and packs it MSB first, padding each row
// to a whole byte with non-printing bits.
func Pack(img image.Image) *Bitmap {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	bytesPerRow := (width + 7) / 8

	data := make([]byte, bytesPerRow*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if isInk(img.At(bounds.Min.X+x, bounds.Min.Y+y)) {
				data[y*bytesPerRow+x/8] |= 0x80 >> uint(x%8)
			}
		}
	}

	return &Bitmap{
		Width:       width,
		Height:      height,
		BytesPerRow: bytesPerRow,
		Data:        data,
	}
}

// Luminance of 8-bit channels, scaled by 1000 to stay in integers
func luminance(c color.Color) uint32 {
	r, g, b, _ := c.RGBA()
	return 299*(r>>8) + 587*(g>>8) + 114*(b>>8)
}

func isInk(c color.Color) bool {
	return luminance(c) < Threshold*1000
}
