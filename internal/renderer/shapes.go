package renderer

import (
	"github.com/thereceipt/label-engine/internal/geometry"
	"github.com/thereceipt/label-engine/internal/zpl"
	"github.com/thereceipt/label-engine/pkg/labelformat"
)

// StrokeDots converts a stroke width to dots; the thinnest stroke is one dot
func StrokeDots(widthMM float64, opts Options) int {
	t := opts.Dots(widthMM)
	if t < 1 {
		return 1
	}
	return t
}

func (r *Renderer) renderRectangle(enc *zpl.Encoder, el *labelformat.Element, p *labelformat.RectangleProps) error {
	box := geometry.RotatedBounds(r.box(el), geometry.OrientationBucket(el.Rotation))
	if box.Empty() {
		return nil
	}

	enc.FieldOrigin(box.X, box.Y)
	enc.GraphicBox(box.W, box.H, StrokeDots(p.StrokeWidth, r.opts))
	enc.FieldSeparator()

	return nil
}

// LineBox returns the drawn box of a line: full length along its long axis
// and stroke thickness across it, after rotation into its bucket
func LineBox(el *labelformat.Element, opts Options, thickness int) (geometry.Box, bool) {
	src := Box(el, opts)
	if src.W <= 0 && src.H <= 0 {
		return geometry.Box{}, false
	}

	bucket := geometry.OrientationBucket(el.Rotation)
	horizontal := src.W >= src.H
	if geometry.IsQuarterTurn(bucket) {
		horizontal = !horizontal
	}

	box := geometry.RotatedBounds(src, bucket)
	if horizontal {
		box.H = thickness
		if box.W < thickness {
			box.W = thickness
		}
	} else {
		box.W = thickness
		if box.H < thickness {
			box.H = thickness
		}
	}
	return box, true
}

func (r *Renderer) renderLine(enc *zpl.Encoder, el *labelformat.Element, p *labelformat.LineProps) error {
	t := StrokeDots(p.StrokeWidth, r.opts)
	box, ok := LineBox(el, r.opts, t)
	if !ok {
		return nil
	}

	enc.FieldOrigin(box.X, box.Y)
	enc.GraphicBox(box.W, box.H, t)
	enc.FieldSeparator()

	return nil
}

func (r *Renderer) renderCircle(enc *zpl.Encoder, el *labelformat.Element, p *labelformat.CircleProps) error {
	box := r.box(el)
	diameter := box.W
	if box.H < diameter {
		diameter = box.H
	}
	if diameter <= 0 {
		return nil
	}

	enc.FieldOrigin(box.X, box.Y)
	enc.GraphicCircle(diameter, StrokeDots(p.StrokeWidth, r.opts))
	enc.FieldSeparator()

	return nil
}
