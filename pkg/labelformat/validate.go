package labelformat

import (
	"fmt"
	"math"
)

// Validate validates a LabelLayout structure
func Validate(l *LabelLayout) error {
	if !finite(l.Width) || l.Width <= 0 {
		return fmt.Errorf("width must be a positive number of millimetres, got %v", l.Width)
	}
	if !finite(l.Height) || l.Height <= 0 {
		return fmt.Errorf("height must be a positive number of millimetres, got %v", l.Height)
	}
	if l.NumColumns < 0 {
		return fmt.Errorf("num_columns cannot be negative")
	}

	ids := make(map[string]bool)
	for i := range l.Elements {
		el := &l.Elements[i]
		if el.ID == "" {
			return fmt.Errorf("element[%d]: 'id' is required", i)
		}
		if ids[el.ID] {
			return fmt.Errorf("element[%d]: duplicate element id '%s'", i, el.ID)
		}
		ids[el.ID] = true

		if err := validateElement(el); err != nil {
			return fmt.Errorf("element[%d] '%s': %w", i, el.ID, err)
		}
	}

	return nil
}

func validateElement(el *Element) error {
	if el.Props == nil {
		return fmt.Errorf("element type is required")
	}

	for _, v := range []struct {
		name  string
		value float64
	}{{"x", el.X}, {"y", el.Y}, {"rotation", el.Rotation}, {"width", el.Width}, {"height", el.Height}} {
		if !finite(v.value) {
			return fmt.Errorf("%s must be a finite number", v.name)
		}
	}
	if el.Width < 0 || el.Height < 0 {
		return fmt.Errorf("width and height cannot be negative")
	}

	switch p := el.Props.(type) {
	case *TextProps:
		return validateText(p)
	case *RectangleProps:
		return validateStroke(p.StrokeWidth)
	case *CircleProps:
		return validateStroke(p.StrokeWidth)
	case *LineProps:
		return validateStroke(p.StrokeWidth)
	case *BarcodeProps, *QRCodeProps, *ImageProps:
		// Empty content or an unreachable image degrades at render time
		return nil
	default:
		return fmt.Errorf("unknown element type: %s", el.Props.Kind())
	}
}

func validateText(p *TextProps) error {
	if !finite(p.FontSize) || p.FontSize < 0 {
		return fmt.Errorf("invalid fontSize %v", p.FontSize)
	}

	switch p.Align {
	case "", AlignLeft, AlignCenter, AlignRight:
		return nil
	default:
		return fmt.Errorf("invalid textAlign '%s' (must be left, center, or right)", p.Align)
	}
}

func validateStroke(w float64) error {
	if !finite(w) || w < 0 {
		return fmt.Errorf("invalid strokeWidth %v", w)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
