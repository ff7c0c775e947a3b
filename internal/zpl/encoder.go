// Package zpl writes ZPL II command streams
package zpl

import (
	"bytes"
	"fmt"
	"strings"
)

// Orientation is the field orientation parameter of font and barcode commands
type Orientation byte

const (
	Normal   Orientation = 'N' // 0 degrees
	Rotated  Orientation = 'R' // 90 degrees clockwise
	Inverted Orientation = 'I' // 180 degrees
	Bottom   Orientation = 'B' // 270 degrees, read from the bottom up
)

// OrientationFor maps an orientation bucket (0, 90, 180, 270) to its letter
func OrientationFor(bucket int) Orientation {
	switch bucket {
	case 90:
		return Rotated
	case 180:
		return Inverted
	case 270:
		return Bottom
	default:
		return Normal
	}
}

// Justification is the text alignment inside a field block
type Justification byte

const (
	JustifyLeft   Justification = 'L'
	JustifyCenter Justification = 'C'
	JustifyRight  Justification = 'R'
)

// MediaMode selects what the printer does after a label
type MediaMode byte

const (
	MediaTearOff MediaMode = 'T'
)

// RFIDFormat selects how ^RFW interprets its field data
type RFIDFormat byte

const (
	RFIDHex   RFIDFormat = 'H'
	RFIDASCII RFIDFormat = 'A'
)

// TagGen2 is the ^RS tag type for EPC Class 1 Gen 2
const TagGen2 = 8

// Encoder accumulates ZPL commands
type Encoder struct {
	buffer *bytes.Buffer
}

// NewEncoder creates an empty encoder
func NewEncoder() *Encoder {
	return &Encoder{
		buffer: new(bytes.Buffer),
	}
}

// StartFormat opens a label (^XA)
func (e *Encoder) StartFormat() {
	e.buffer.WriteString("^XA\n")
}

// EndFormat closes a label (^XZ)
func (e *Encoder) EndFormat() {
	e.buffer.WriteString("^XZ\n")
}

// ChangeEncodingUTF8 switches field data to UTF-8 (^CI28)
func (e *Encoder) ChangeEncodingUTF8() {
	e.buffer.WriteString("^CI28\n")
}

// PrintWidth sets the label width in dots (^PW)
func (e *Encoder) PrintWidth(dots int) {
	fmt.Fprintf(e.buffer, "^PW%d\n", dots)
}

// LabelLength sets the label length in dots (^LL)
func (e *Encoder) LabelLength(dots int) {
	fmt.Fprintf(e.buffer, "^LL%d\n", dots)
}

// SetMediaMode sets the post-print action (^MM)
func (e *Encoder) SetMediaMode(mode MediaMode) {
	fmt.Fprintf(e.buffer, "^MM%c\n", mode)
}

// LabelHome sets the label origin (^LH)
func (e *Encoder) LabelHome(x, y int) {
	fmt.Fprintf(e.buffer, "^LH%d,%d\n", x, y)
}

// RFIDSetup selects the RFID tag type (^RS)
func (e *Encoder) RFIDSetup(tagType int) {
	fmt.Fprintf(e.buffer, "^RS%d\n", tagType)
}

// RFIDWrite writes data to the tag (^RFW)
func (e *Encoder) RFIDWrite(format RFIDFormat, data string) {
	fmt.Fprintf(e.buffer, "^RFW,%c", format)
	e.FieldData(data)
	e.FieldSeparator()
}

// FieldOrigin positions the next field (^FO). Negative coordinates are clamped to 0.
func (e *Encoder) FieldOrigin(x, y int) {
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	fmt.Fprintf(e.buffer, "^FO%d,%d", x, y)
}

// ScalableFont selects the built-in scalable font (^A0)
func (e *Encoder) ScalableFont(o Orientation, height, width int) {
	fmt.Fprintf(e.buffer, "^A0%c,%d,%d", o, height, width)
}

// FieldBlock wraps the next field into a block (^FB)
func (e *Encoder) FieldBlock(width, maxLines, lineSpacing int, j Justification, hangingIndent int) {
	fmt.Fprintf(e.buffer, "^FB%d,%d,%d,%c,%d", width, maxLines, lineSpacing, j, hangingIndent)
}

// BarcodeDefaults sets the narrow module width in dots (^BY)
func (e *Encoder) BarcodeDefaults(moduleWidth int) {
	fmt.Fprintf(e.buffer, "^BY%d", moduleWidth)
}

// Code128 starts a Code 128 field with the interpretation line printed below (^BC)
func (e *Encoder) Code128(o Orientation, height int) {
	fmt.Fprintf(e.buffer, "^BC%c,%d,Y,N,N", o, height)
}

// QRCode starts a model 2 QR code field (^BQ)
func (e *Encoder) QRCode(o Orientation, magnification int) {
	fmt.Fprintf(e.buffer, "^BQ%c,2,%d", o, magnification)
}

// GraphicBox draws a box or line with black borders (^GB)
func (e *Encoder) GraphicBox(width, height, thickness int) {
	fmt.Fprintf(e.buffer, "^GB%d,%d,%d,B,0", width, height, thickness)
}

// GraphicCircle draws a black circle outline (^GC)
func (e *Encoder) GraphicCircle(diameter, thickness int) {
	fmt.Fprintf(e.buffer, "^GC%d,%d,B", diameter, thickness)
}

// GraphicField embeds an ASCII-hex bitmap (^GFA)
func (e *Encoder) GraphicField(totalBytes, bytesPerRow int, hexData string) {
	fmt.Fprintf(e.buffer, "^GFA,%d,%d,%d,%s", totalBytes, totalBytes, bytesPerRow, hexData)
}

// FieldData writes field content (^FD). Content containing control
// characters is hex escaped behind ^FH.
func (e *Encoder) FieldData(data string) {
	if strings.ContainsAny(data, "^~\\") {
		e.buffer.WriteString("^FH\\^FD")
		e.buffer.WriteString(escapeFieldData(data))
		return
	}
	e.buffer.WriteString("^FD")
	e.buffer.WriteString(data)
}

// FieldSeparator ends a field (^FS)
func (e *Encoder) FieldSeparator() {
	e.buffer.WriteString("^FS\n")
}

// Write appends raw bytes, typically another encoder's output
func (e *Encoder) Write(p []byte) (int, error) {
	return e.buffer.Write(p)
}

// Bytes returns the encoded commands
func (e *Encoder) Bytes() []byte {
	return e.buffer.Bytes()
}

// String returns the encoded commands as text
func (e *Encoder) String() string {
	return e.buffer.String()
}

// Len returns the number of buffered bytes
func (e *Encoder) Len() int {
	return e.buffer.Len()
}

// Reset clears the buffer
func (e *Encoder) Reset() {
	e.buffer.Reset()
}

func escapeFieldData(data string) string {
	var b strings.Builder
	b.Grow(len(data) + 8)
	for i := 0; i < len(data); i++ {
		switch c := data[i]; c {
		case '^', '~', '\\':
			fmt.Fprintf(&b, "\\%02X", c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
