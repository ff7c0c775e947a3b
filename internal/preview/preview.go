// Package preview draws an on-screen approximation of one printed label.
// Geometry and sizing follow the ZPL renderers so the picture matches the
// printout dot for dot where the printer fonts allow.
package preview

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"
	"sync"
	"unicode/utf8"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/fogleman/gg"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/thereceipt/label-engine/internal/geometry"
	"github.com/thereceipt/label-engine/internal/placeholder"
	"github.com/thereceipt/label-engine/internal/raster"
	"github.com/thereceipt/label-engine/internal/renderer"
	"github.com/thereceipt/label-engine/pkg/labelformat"
)

var regularFont = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(goregular.TTF)
})

// Previewer renders labels to images
type Previewer struct {
	opts    renderer.Options
	bitmaps renderer.Bitmaps
	logger  *log.Logger
}

// New creates a previewer. bitmaps may be nil, in which case image
// elements are skipped.
func New(opts renderer.Options, bitmaps renderer.Bitmaps, logger *log.Logger) *Previewer {
	if logger == nil {
		logger = log.Default()
	}
	return &Previewer{
		opts:    opts,
		bitmaps: bitmaps,
		logger:  logger,
	}
}

// Render draws layout filled with rec. Elements that fail are logged and
// left out of the picture.
func (p *Previewer) Render(ctx context.Context, layout *labelformat.LabelLayout, rec placeholder.Record) (image.Image, error) {
	if err := p.opts.Validate(); err != nil && !errors.Is(err, renderer.ErrUnsupportedDPI) {
		return nil, err
	}
	if err := labelformat.Validate(layout); err != nil {
		return nil, err
	}

	width := p.opts.Dots(layout.Width)
	height := p.opts.Dots(layout.Height)
	if err := raster.CheckSize(width, height); err != nil {
		return nil, fmt.Errorf("preview page: %w", err)
	}
	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()

	fields := placeholder.NewFields(rec)
	for i := range layout.Elements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		el := &layout.Elements[i]
		dc.Push()
		dc.SetColor(color.Black)
		if err := p.drawElement(ctx, dc, el, fields); err != nil {
			p.logger.Printf("Warning: preview element %s skipped: %v", el.ID, err)
		}
		dc.Pop()
	}

	return dc.Image(), nil
}

func (p *Previewer) drawElement(ctx context.Context, dc *gg.Context, el *labelformat.Element, fields *placeholder.Fields) error {
	switch props := el.Props.(type) {
	case *labelformat.TextProps:
		return p.drawText(dc, el, props, fields)
	case *labelformat.BarcodeProps:
		return p.drawBarcode(dc, el, placeholder.Resolve(props.Text, fields))
	case *labelformat.QRCodeProps:
		return p.drawQRCode(dc, el, placeholder.Resolve(props.Text, fields))
	case *labelformat.RectangleProps:
		box := geometry.RotatedBounds(renderer.Box(el, p.opts), geometry.OrientationBucket(el.Rotation))
		if box.Empty() {
			return nil
		}
		t := float64(renderer.StrokeDots(props.StrokeWidth, p.opts))
		dc.SetLineWidth(t)
		dc.DrawRectangle(float64(box.X)+t/2, float64(box.Y)+t/2, float64(box.W)-t, float64(box.H)-t)
		dc.Stroke()
		return nil
	case *labelformat.LineProps:
		t := renderer.StrokeDots(props.StrokeWidth, p.opts)
		box, ok := renderer.LineBox(el, p.opts, t)
		if !ok {
			return nil
		}
		dc.DrawRectangle(float64(box.X), float64(box.Y), float64(box.W), float64(box.H))
		dc.Fill()
		return nil
	case *labelformat.CircleProps:
		box := renderer.Box(el, p.opts)
		d := min(box.W, box.H)
		if d <= 0 {
			return nil
		}
		t := float64(renderer.StrokeDots(props.StrokeWidth, p.opts))
		r := float64(d) / 2
		dc.SetLineWidth(t)
		dc.DrawCircle(float64(box.X)+r, float64(box.Y)+r, r-t/2)
		dc.Stroke()
		return nil
	case *labelformat.ImageProps:
		return p.drawImage(ctx, dc, el)
	default:
		return fmt.Errorf("unknown element type: %s", el.Kind())
	}
}

func (p *Previewer) drawText(dc *gg.Context, el *labelformat.Element, props *labelformat.TextProps, fields *placeholder.Fields) error {
	box := renderer.Box(el, p.opts)
	if box.Empty() {
		return nil
	}

	face, err := fontFace(renderer.FontDots(props.FontSize, p.opts))
	if err != nil {
		return err
	}
	dc.SetFontFace(face)

	x, y := float64(box.X), float64(box.Y)
	rotateAboutOrigin(dc, el, x, y)
	dc.DrawStringWrapped(placeholder.Resolve(props.Text, fields), x, y, 0, 0, float64(box.W), 1.0, textAlign(props.Align))
	return nil
}

func (p *Previewer) drawBarcode(dc *gg.Context, el *labelformat.Element, content string) error {
	box := renderer.Box(el, p.opts)
	if box.Empty() || content == "" {
		return nil
	}

	code, err := code128.Encode(content)
	if err != nil {
		return fmt.Errorf("failed to encode barcode: %w", err)
	}

	module := renderer.ModuleWidth(box.W, utf8.RuneCountInString(content))
	scaled, err := barcode.Scale(code, code.Bounds().Dx()*module, box.H)
	if err != nil {
		return fmt.Errorf("failed to scale barcode: %w", err)
	}

	rotateAboutOrigin(dc, el, float64(box.X), float64(box.Y))
	dc.DrawImage(scaled, box.X, box.Y)
	return nil
}

func (p *Previewer) drawQRCode(dc *gg.Context, el *labelformat.Element, content string) error {
	box := renderer.Box(el, p.opts)
	if box.Empty() || content == "" {
		return nil
	}

	qr, err := qrcode.New(content, qrcode.High)
	if err != nil {
		return fmt.Errorf("failed to encode QR code: %w", err)
	}
	qr.DisableBorder = true

	// Negative size is pixels per module, matching the printer magnification
	img := qr.Image(-renderer.QRMagnification(box.W))

	rotateAboutOrigin(dc, el, float64(box.X), float64(box.Y))
	dc.DrawImage(img, box.X, box.Y)
	return nil
}

func (p *Previewer) drawImage(ctx context.Context, dc *gg.Context, el *labelformat.Element) error {
	req, ok := renderer.ImageRequest(el, p.opts)
	if !ok {
		return nil
	}
	if p.bitmaps == nil {
		return fmt.Errorf("no image source configured")
	}

	bmp, err := p.bitmaps.Get(ctx, req)
	if err != nil {
		return err
	}

	box := renderer.Box(el, p.opts)
	dc.DrawImage(bmp.Image(), box.X, box.Y)
	return nil
}

// The printer turns rotated fields about their origin in quarter turns
func rotateAboutOrigin(dc *gg.Context, el *labelformat.Element, x, y float64) {
	if bucket := geometry.OrientationBucket(el.Rotation); bucket != geometry.Bucket0 {
		dc.RotateAbout(gg.Radians(float64(bucket)), x, y)
	}
}

func fontFace(sizeDots int) (font.Face, error) {
	f, err := regularFont()
	if err != nil {
		return nil, fmt.Errorf("failed to parse preview font: %w", err)
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(sizeDots),
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

func textAlign(a labelformat.TextAlign) gg.Align {
	switch a {
	case labelformat.AlignCenter:
		return gg.AlignCenter
	case labelformat.AlignRight:
		return gg.AlignRight
	default:
		return gg.AlignLeft
	}
}
