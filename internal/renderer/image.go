package renderer

import (
	"context"
	"fmt"

	"github.com/thereceipt/label-engine/internal/zpl"
	"github.com/thereceipt/label-engine/pkg/labelformat"
)

func (r *Renderer) renderImage(ctx context.Context, enc *zpl.Encoder, el *labelformat.Element, p *labelformat.ImageProps) error {
	if p.URL == "" {
		return fmt.Errorf("image element has no imageUrl")
	}

	req, ok := ImageRequest(el, r.opts)
	if !ok {
		return nil
	}
	if r.bitmaps == nil {
		return fmt.Errorf("no image source configured for %s", p.URL)
	}

	bmp, err := r.bitmaps.Get(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to rasterize %s: %w", p.URL, err)
	}

	box := r.box(el)
	enc.FieldOrigin(box.X, box.Y)
	enc.GraphicField(bmp.TotalBytes(), bmp.BytesPerRow, bmp.Hex())
	enc.FieldSeparator()

	return nil
}
