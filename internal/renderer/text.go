package renderer

import (
	"github.com/thereceipt/label-engine/internal/placeholder"
	"github.com/thereceipt/label-engine/internal/zpl"
	"github.com/thereceipt/label-engine/pkg/labelformat"
)

// DefaultFontSizeMM is used when a text element has no font size
const DefaultFontSizeMM = 3.0

// TextBlockLines is the fixed line capacity of a text field block
const TextBlockLines = 4

func (r *Renderer) renderText(enc *zpl.Encoder, el *labelformat.Element, p *labelformat.TextProps, fields *placeholder.Fields) error {
	box := r.box(el)
	if box.Empty() {
		return nil
	}

	content := placeholder.Resolve(p.Text, fields)
	font := FontDots(p.FontSize, r.opts)

	enc.FieldOrigin(box.X, box.Y)
	enc.ScalableFont(orientation(el), font, font)
	enc.FieldBlock(box.W, TextBlockLines, 0, justification(p.Align), 0)
	enc.FieldData(content)
	enc.FieldSeparator()

	return nil
}

// FontDots converts a font size in millimetres to dots, never below one
func FontDots(sizeMM float64, opts Options) int {
	if sizeMM <= 0 {
		sizeMM = DefaultFontSizeMM
	}
	font := opts.Dots(sizeMM)
	if font < 1 {
		font = 1
	}
	return font
}

func justification(align labelformat.TextAlign) zpl.Justification {
	switch align {
	case labelformat.AlignCenter:
		return zpl.JustifyCenter
	case labelformat.AlignRight:
		return zpl.JustifyRight
	default:
		return zpl.JustifyLeft
	}
}
