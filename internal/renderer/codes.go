package renderer

import (
	"unicode/utf8"

	"github.com/thereceipt/label-engine/internal/placeholder"
	"github.com/thereceipt/label-engine/internal/zpl"
	"github.com/thereceipt/label-engine/pkg/labelformat"
)

// Code 128 sizing: each symbol is 11 modules wide, plus 20 for the start,
// stop and quiet zones. A QR module grid is budgeted at 45 dots per step of
// magnification.
const (
	code128ModulesPerChar  = 11
	code128Overhead        = 20
	qrDotsPerMagnification = 45
	qrMinMagnification     = 2
	qrMaxMagnification     = 10
)

// ModuleWidth is the narrow bar width in dots that fits n characters into
// width dots. It never drops below 1.
func ModuleWidth(width, n int) int {
	m := width / (code128ModulesPerChar*n + code128Overhead)
	if m < 1 {
		return 1
	}
	return m
}

// QRMagnification is the QR magnification for a square of width dots,
// clamped to 2..10
func QRMagnification(width int) int {
	mag := width / qrDotsPerMagnification
	if mag < qrMinMagnification {
		return qrMinMagnification
	}
	if mag > qrMaxMagnification {
		return qrMaxMagnification
	}
	return mag
}

func (r *Renderer) renderBarcode(enc *zpl.Encoder, el *labelformat.Element, p *labelformat.BarcodeProps, fields *placeholder.Fields) error {
	box := r.box(el)
	content := placeholder.Resolve(p.Text, fields)
	if box.Empty() || content == "" {
		return nil
	}

	enc.FieldOrigin(box.X, box.Y)
	enc.BarcodeDefaults(ModuleWidth(box.W, utf8.RuneCountInString(content)))
	enc.Code128(orientation(el), box.H)
	enc.FieldData(content)
	enc.FieldSeparator()

	return nil
}

func (r *Renderer) renderQRCode(enc *zpl.Encoder, el *labelformat.Element, p *labelformat.QRCodeProps, fields *placeholder.Fields) error {
	box := r.box(el)
	content := placeholder.Resolve(p.Text, fields)
	if box.Empty() || content == "" {
		return nil
	}

	// Q error correction, automatic input mode
	enc.FieldOrigin(box.X, box.Y)
	enc.QRCode(orientation(el), QRMagnification(box.W))
	enc.FieldData("QA," + content)
	enc.FieldSeparator()

	return nil
}
