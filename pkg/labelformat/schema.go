// Package labelformat defines the label layout document: page size in
// millimetres, optional RFID binding and the positioned elements drawn on
// every label.
package labelformat

// ElementKind identifies the element variant
type ElementKind string

const (
	KindText      ElementKind = "text"
	KindBarcode   ElementKind = "barcode"
	KindQRCode    ElementKind = "qrcode"
	KindRectangle ElementKind = "rectangle"
	KindCircle    ElementKind = "circle"
	KindLine      ElementKind = "line"
	KindImage     ElementKind = "image"
)

// TextAlign is the horizontal alignment of a text element
type TextAlign string

const (
	AlignLeft   TextAlign = "left"
	AlignCenter TextAlign = "center"
	AlignRight  TextAlign = "right"
)

// LabelLayout describes one label design
type LabelLayout struct {
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name,omitempty"`
	Width       float64   `json:"width"`  // mm
	Height      float64   `json:"height"` // mm
	NumColumns  int       `json:"num_columns,omitempty"`
	Active      bool      `json:"is_active"`
	RFIDEnabled bool      `json:"rfid_enabled,omitempty"`
	RFIDColumn  string    `json:"rfid_column,omitempty"` // template, e.g. "{EPC}"
	Elements    []Element `json:"layout_data"`
}

// Element is a positioned item on the label. Geometry is in millimetres with
// the origin at the top-left corner; Rotation is in degrees, clockwise.
type Element struct {
	ID       string
	X        float64
	Y        float64
	Width    float64
	Height   float64
	Rotation float64
	Props    Properties
}

// Kind returns the variant of the element
func (e *Element) Kind() ElementKind {
	if e.Props == nil {
		return ""
	}
	return e.Props.Kind()
}

// Template returns the placeholder-bearing content of text, barcode and QR
// elements, or "" for other kinds.
func (e *Element) Template() string {
	switch p := e.Props.(type) {
	case *TextProps:
		return p.Text
	case *BarcodeProps:
		return p.Text
	case *QRCodeProps:
		return p.Text
	default:
		return ""
	}
}

// Properties holds the kind-specific fields of an element
type Properties interface {
	Kind() ElementKind
}

// TextProps is a text block
type TextProps struct {
	Text     string
	FontSize float64 // mm
	Align    TextAlign
}

// BarcodeProps is a Code 128 barcode
type BarcodeProps struct {
	Text string
}

// QRCodeProps is a QR code
type QRCodeProps struct {
	Text string
}

// RectangleProps is a rectangle outline
type RectangleProps struct {
	StrokeWidth float64 // mm
}

// CircleProps is a circle outline
type CircleProps struct {
	StrokeWidth float64 // mm
}

// LineProps is a straight rule
type LineProps struct {
	StrokeWidth float64 // mm
}

// ImageProps is a raster image fetched from URL
type ImageProps struct {
	URL string
}

func (*TextProps) Kind() ElementKind      { return KindText }
func (*BarcodeProps) Kind() ElementKind   { return KindBarcode }
func (*QRCodeProps) Kind() ElementKind    { return KindQRCode }
func (*RectangleProps) Kind() ElementKind { return KindRectangle }
func (*CircleProps) Kind() ElementKind    { return KindCircle }
func (*LineProps) Kind() ElementKind      { return KindLine }
func (*ImageProps) Kind() ElementKind     { return KindImage }
