// Package generator assembles one ZPL label frame per data record
package generator

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/thereceipt/label-engine/internal/placeholder"
	"github.com/thereceipt/label-engine/internal/raster"
	"github.com/thereceipt/label-engine/internal/renderer"
	"github.com/thereceipt/label-engine/internal/rfid"
	"github.com/thereceipt/label-engine/internal/zpl"
	"github.com/thereceipt/label-engine/pkg/labelformat"
)

// Option configures a Generator
type Option func(*Generator)

// WithImageSource sets where image elements are fetched from
func WithImageSource(src raster.ImageSource) Option {
	return func(g *Generator) {
		g.source = src
	}
}

// WithLogger sets the logger for skipped elements and fields
func WithLogger(l *log.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithPrefetchWorkers bounds concurrent image fetches
func WithPrefetchWorkers(n int) Option {
	return func(g *Generator) {
		g.workers = n
	}
}

// FrameFunc receives each finished frame in record order
type FrameFunc func(index int, frame string) error

// Generator renders a layout for a sequence of records. It holds no state
// between calls and is safe for concurrent use.
type Generator struct {
	layout   *labelformat.LabelLayout
	opts     renderer.Options
	source   raster.ImageSource
	logger   *log.Logger
	workers  int
	warnings []Diagnostic
}

// New creates a generator. The layout must be valid and opts.DPI positive;
// a DPI outside the supported set is reported as a diagnostic on every run.
func New(layout *labelformat.LabelLayout, opts renderer.Options, options ...Option) (*Generator, error) {
	if layout == nil {
		return nil, fmt.Errorf("%w: layout is nil", ErrInvalidLayout)
	}
	if err := labelformat.Validate(layout); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLayout, err)
	}

	g := &Generator{
		layout:  layout,
		opts:    opts,
		source:  raster.NewDefaultSource(nil, "", 0),
		logger:  log.Default(),
		workers: raster.DefaultWorkers,
	}

	if err := opts.Validate(); err != nil {
		if !errors.Is(err, renderer.ErrUnsupportedDPI) {
			return nil, err
		}
		g.warnings = append(g.warnings, Diagnostic{Record: -1, Err: err})
	}

	for _, opt := range options {
		opt(g)
	}

	return g, nil
}

// Layout returns the layout being rendered
func (g *Generator) Layout() *labelformat.LabelLayout {
	return g.layout
}

// Options returns the render settings
func (g *Generator) Options() renderer.Options {
	return g.opts
}

// Generate renders every record and collects the frames. On cancellation
// the frames produced so far are returned along with the context error.
func (g *Generator) Generate(ctx context.Context, records []placeholder.Record) (*Output, error) {
	out := &Output{Frames: make([]string, 0, len(records))}

	diags, err := g.Stream(ctx, records, func(_ int, frame string) error {
		out.Frames = append(out.Frames, frame)
		return nil
	})
	out.Diagnostics = diags

	return out, err
}

// Stream renders records in order and hands each frame to emit as soon as it
// is complete. The context is checked before each record; an error from emit
// stops the run.
func (g *Generator) Stream(ctx context.Context, records []placeholder.Record, emit FrameFunc) ([]Diagnostic, error) {
	if len(records) == 0 {
		return nil, ErrNoData
	}

	diags := make([]Diagnostic, 0, len(g.warnings))
	for _, d := range g.warnings {
		g.logger.Printf("Warning: %s", d)
		diags = append(diags, d)
	}

	bitmaps := raster.NewCache(raster.New(g.source))
	g.prefetch(ctx, bitmaps)
	rnd := renderer.New(g.opts, bitmaps)

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return diags, err
		}

		frame, frameDiags := g.frame(ctx, rnd, i, rec)
		diags = append(diags, frameDiags...)

		if err := emit(i, frame); err != nil {
			return diags, err
		}
	}

	return diags, nil
}

// prefetch rasterizes every image element once, in parallel, before the
// first frame. Image URLs carry no placeholders, so all records share them.
func (g *Generator) prefetch(ctx context.Context, cache *raster.Cache) {
	var reqs []raster.Request
	for i := range g.layout.Elements {
		if req, ok := renderer.ImageRequest(&g.layout.Elements[i], g.opts); ok {
			reqs = append(reqs, req)
		}
	}

	if len(reqs) > 0 {
		cache.Prefetch(ctx, reqs, g.workers)
	}
}

func (g *Generator) frame(ctx context.Context, rnd *renderer.Renderer, index int, rec placeholder.Record) (string, []Diagnostic) {
	var diags []Diagnostic
	warn := func(elementID string, err error) {
		d := Diagnostic{Record: index, ElementID: elementID, Err: err}
		g.logger.Printf("Warning: %s", d)
		diags = append(diags, d)
	}

	fields := placeholder.NewFields(rec)
	enc := zpl.NewEncoder()

	enc.StartFormat()
	enc.ChangeEncodingUTF8()
	enc.PrintWidth(g.opts.Dots(g.layout.Width))
	enc.LabelLength(g.opts.Dots(g.layout.Height))
	enc.SetMediaMode(zpl.MediaTearOff)
	enc.LabelHome(0, 0)

	if g.layout.RFIDEnabled {
		g.writeRFID(enc, fields, warn)
	}

	for i := range g.layout.Elements {
		el := &g.layout.Elements[i]

		for _, name := range placeholder.Missing(el.Template(), fields) {
			warn(el.ID, fmt.Errorf("%w: %s", placeholder.ErrMissingField, name))
		}

		// A failing element must not leave a half-written field behind
		scratch := zpl.NewEncoder()
		if err := renderSafely(ctx, rnd, scratch, el, fields); err != nil {
			warn(el.ID, fmt.Errorf("skipped: %w", err))
			continue
		}
		enc.Write(scratch.Bytes())
	}

	enc.EndFormat()

	return enc.String(), diags
}

func (g *Generator) writeRFID(enc *zpl.Encoder, fields *placeholder.Fields, warn func(string, error)) {
	if g.layout.RFIDColumn == "" {
		warn("", errors.New("rfid_enabled is set but rfid_column is empty, tag not written"))
		return
	}

	for _, name := range placeholder.Missing(g.layout.RFIDColumn, fields) {
		warn("", fmt.Errorf("rfid: %w: %s", placeholder.ErrMissingField, name))
	}

	content := placeholder.Resolve(g.layout.RFIDColumn, fields)
	if content == "" {
		warn("", errors.New("rfid content is empty, tag not written"))
		return
	}

	rfid.Encode(content).Write(enc)
}

func renderSafely(ctx context.Context, rnd *renderer.Renderer, enc *zpl.Encoder, el *labelformat.Element, fields *placeholder.Fields) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("renderer panic: %v", p)
		}
	}()

	return rnd.RenderElement(ctx, enc, el, fields)
}
