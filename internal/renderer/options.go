package renderer

import (
	"errors"
	"fmt"

	"github.com/thereceipt/label-engine/internal/geometry"
)

var (
	// ErrInvalidDPI is returned when no usable resolution was given
	ErrInvalidDPI = errors.New("dpi must be a positive number")

	// ErrUnsupportedDPI flags a resolution outside geometry.SupportedDPI.
	// Rendering still proceeds at that resolution.
	ErrUnsupportedDPI = errors.New("unsupported dpi")
)

// Options are the per-invocation render settings
type Options struct {
	DPI          int     `json:"dpi" yaml:"dpi" msgpack:"dpi"`
	OffsetLeftMM float64 `json:"offsetLeftMm,omitempty" yaml:"offset_left_mm" msgpack:"offsetLeftMm"`
	OffsetTopMM  float64 `json:"offsetTopMm,omitempty" yaml:"offset_top_mm" msgpack:"offsetTopMm"`
}

// Validate returns ErrInvalidDPI for a non-positive resolution and
// ErrUnsupportedDPI for one the printers do not offer.
func (o Options) Validate() error {
	if o.DPI <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidDPI, o.DPI)
	}
	if !geometry.IsSupportedDPI(o.DPI) {
		return fmt.Errorf("%w: %d (supported: %v)", ErrUnsupportedDPI, o.DPI, geometry.SupportedDPI)
	}
	return nil
}

// Dots converts millimetres at the configured resolution
func (o Options) Dots(mm float64) int {
	return geometry.MMToDots(mm, o.DPI)
}
