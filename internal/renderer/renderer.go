// Package renderer translates layout elements into ZPL field commands
package renderer

import (
	"context"
	"fmt"

	"github.com/thereceipt/label-engine/internal/geometry"
	"github.com/thereceipt/label-engine/internal/placeholder"
	"github.com/thereceipt/label-engine/internal/raster"
	"github.com/thereceipt/label-engine/internal/zpl"
	"github.com/thereceipt/label-engine/pkg/labelformat"
)

// Bitmaps provides rasterized images for image elements
type Bitmaps interface {
	Get(ctx context.Context, req raster.Request) (*raster.Bitmap, error)
}

// Renderer writes element commands at a fixed resolution
type Renderer struct {
	opts    Options
	bitmaps Bitmaps
}

// New creates a renderer. bitmaps may be nil when the layout has no images.
func New(opts Options, bitmaps Bitmaps) *Renderer {
	return &Renderer{
		opts:    opts,
		bitmaps: bitmaps,
	}
}

// Options returns the render settings
func (r *Renderer) Options() Options {
	return r.opts
}

// RenderElement writes the commands for el into enc. Elements without area
// write nothing. On error enc may hold a partial field, so callers render
// into a scratch encoder.
func (r *Renderer) RenderElement(ctx context.Context, enc *zpl.Encoder, el *labelformat.Element, fields *placeholder.Fields) error {
	switch p := el.Props.(type) {
	case *labelformat.TextProps:
		return r.renderText(enc, el, p, fields)
	case *labelformat.BarcodeProps:
		return r.renderBarcode(enc, el, p, fields)
	case *labelformat.QRCodeProps:
		return r.renderQRCode(enc, el, p, fields)
	case *labelformat.RectangleProps:
		return r.renderRectangle(enc, el, p)
	case *labelformat.CircleProps:
		return r.renderCircle(enc, el, p)
	case *labelformat.LineProps:
		return r.renderLine(enc, el, p)
	case *labelformat.ImageProps:
		return r.renderImage(ctx, enc, el, p)
	case nil:
		return fmt.Errorf("element has no type")
	default:
		return fmt.Errorf("unknown element type: %s", el.Kind())
	}
}

// Box converts the element geometry to dots, applying the print offsets to
// the origin
func Box(el *labelformat.Element, opts Options) geometry.Box {
	return geometry.Box{
		X: opts.Dots(el.X) + opts.Dots(opts.OffsetLeftMM),
		Y: opts.Dots(el.Y) + opts.Dots(opts.OffsetTopMM),
		W: opts.Dots(el.Width),
		H: opts.Dots(el.Height),
	}
}

// ImageRequest returns the raster request for an image element, or false
// when the element is not an image or has nothing to draw
func ImageRequest(el *labelformat.Element, opts Options) (raster.Request, bool) {
	p, ok := el.Props.(*labelformat.ImageProps)
	if !ok || p.URL == "" {
		return raster.Request{}, false
	}

	box := Box(el, opts)
	if box.Empty() {
		return raster.Request{}, false
	}

	return raster.Request{
		Location: p.URL,
		Width:    box.W,
		Height:   box.H,
		Rotation: el.Rotation,
	}, true
}

func (r *Renderer) box(el *labelformat.Element) geometry.Box {
	return Box(el, r.opts)
}

func orientation(el *labelformat.Element) zpl.Orientation {
	return zpl.OrientationFor(geometry.OrientationBucket(el.Rotation))
}
