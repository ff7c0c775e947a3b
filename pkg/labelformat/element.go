package labelformat

import (
	"encoding/json"
	"fmt"
)

// propertiesJSON is the wire form of the kind-specific fields
type propertiesJSON struct {
	Text        *string    `json:"text,omitempty"`
	FontSize    *float64   `json:"fontSize,omitempty"`
	TextAlign   *TextAlign `json:"textAlign,omitempty"`
	StrokeWidth *float64   `json:"strokeWidth,omitempty"`
	ImageURL    *string    `json:"imageUrl,omitempty"`
}

type elementJSON struct {
	ID         string          `json:"id"`
	Type       ElementKind     `json:"type"`
	X          float64         `json:"x"`
	Y          float64         `json:"y"`
	Width      float64         `json:"width"`
	Height     float64         `json:"height"`
	Rotation   float64         `json:"rotation,omitempty"`
	Properties *propertiesJSON `json:"properties,omitempty"`

	// Older editors stored the properties at the element root
	propertiesJSON
}

// UnmarshalJSON decodes an element, migrating root-level legacy properties
// into the variant when "properties" does not set them.
func (e *Element) UnmarshalJSON(data []byte) error {
	var raw elementJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p := raw.propertiesJSON
	if raw.Properties != nil {
		p = mergeProperties(*raw.Properties, raw.propertiesJSON)
	}

	props, err := buildProperties(raw.Type, p)
	if err != nil {
		return err
	}

	*e = Element{
		ID:       raw.ID,
		X:        raw.X,
		Y:        raw.Y,
		Width:    raw.Width,
		Height:   raw.Height,
		Rotation: raw.Rotation,
		Props:    props,
	}
	return nil
}

// MarshalJSON writes the canonical form with all kind fields under "properties"
func (e Element) MarshalJSON() ([]byte, error) {
	if e.Props == nil {
		return nil, fmt.Errorf("element %q has no properties", e.ID)
	}

	out := elementJSON{
		ID:         e.ID,
		Type:       e.Props.Kind(),
		X:          e.X,
		Y:          e.Y,
		Width:      e.Width,
		Height:     e.Height,
		Rotation:   e.Rotation,
		Properties: &propertiesJSON{},
	}

	switch p := e.Props.(type) {
	case *TextProps:
		out.Properties.Text = &p.Text
		if p.FontSize != 0 {
			out.Properties.FontSize = &p.FontSize
		}
		if p.Align != "" {
			out.Properties.TextAlign = &p.Align
		}
	case *BarcodeProps:
		out.Properties.Text = &p.Text
	case *QRCodeProps:
		out.Properties.Text = &p.Text
	case *RectangleProps:
		out.Properties.StrokeWidth = strokePtr(p.StrokeWidth)
	case *CircleProps:
		out.Properties.StrokeWidth = strokePtr(p.StrokeWidth)
	case *LineProps:
		out.Properties.StrokeWidth = strokePtr(p.StrokeWidth)
	case *ImageProps:
		out.Properties.ImageURL = &p.URL
	}

	return json.Marshal(out)
}

func strokePtr(w float64) *float64 {
	if w == 0 {
		return nil
	}
	return &w
}

func mergeProperties(primary, legacy propertiesJSON) propertiesJSON {
	if primary.Text == nil {
		primary.Text = legacy.Text
	}
	if primary.FontSize == nil {
		primary.FontSize = legacy.FontSize
	}
	if primary.TextAlign == nil {
		primary.TextAlign = legacy.TextAlign
	}
	if primary.StrokeWidth == nil {
		primary.StrokeWidth = legacy.StrokeWidth
	}
	if primary.ImageURL == nil {
		primary.ImageURL = legacy.ImageURL
	}
	return primary
}

func buildProperties(kind ElementKind, p propertiesJSON) (Properties, error) {
	switch kind {
	case KindText:
		return &TextProps{Text: str(p.Text), FontSize: num(p.FontSize), Align: align(p.TextAlign)}, nil
	case KindBarcode:
		return &BarcodeProps{Text: str(p.Text)}, nil
	case KindQRCode:
		return &QRCodeProps{Text: str(p.Text)}, nil
	case KindRectangle:
		return &RectangleProps{StrokeWidth: num(p.StrokeWidth)}, nil
	case KindCircle:
		return &CircleProps{StrokeWidth: num(p.StrokeWidth)}, nil
	case KindLine:
		return &LineProps{StrokeWidth: num(p.StrokeWidth)}, nil
	case KindImage:
		return &ImageProps{URL: str(p.ImageURL)}, nil
	case "":
		return nil, fmt.Errorf("element type is required")
	default:
		return nil, fmt.Errorf("unknown element type: %s", kind)
	}
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func num(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func align(a *TextAlign) TextAlign {
	if a == nil {
		return ""
	}
	return *a
}
