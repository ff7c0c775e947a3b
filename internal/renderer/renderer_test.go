package renderer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereceipt/label-engine/internal/placeholder"
	"github.com/thereceipt/label-engine/internal/raster"
	"github.com/thereceipt/label-engine/internal/zpl"
	"github.com/thereceipt/label-engine/pkg/labelformat"
)

type fakeBitmaps struct {
	bitmap   *raster.Bitmap
	err      error
	requests []raster.Request
}

func (f *fakeBitmaps) Get(ctx context.Context, req raster.Request) (*raster.Bitmap, error) {
	f.requests = append(f.requests, req)
	return f.bitmap, f.err
}

type bogusProps struct{}

func (*bogusProps) Kind() labelformat.ElementKind { return "bogus" }

var opts203 = Options{DPI: 203}

func render(t *testing.T, r *Renderer, el labelformat.Element, rec placeholder.Record) string {
	t.Helper()
	enc := zpl.NewEncoder()
	require.NoError(t, r.RenderElement(context.Background(), enc, &el, placeholder.NewFields(rec)))
	return enc.String()
}

func TestRenderText(t *testing.T) {
	r := New(opts203, nil)
	el := labelformat.Element{ID: "t1", X: 10, Y: 10, Width: 60, Height: 8,
		Props: &labelformat.TextProps{Text: "{ITEM_CODIGO}", FontSize: 3}}

	got := render(t, r, el, placeholder.Record{"ITEM_CODIGO": "ABC1"})
	assert.Equal(t, "^FO80,80^A0N,24,24^FB480,4,0,L,0^FDABC1^FS\n", got)
}

func TestRenderTextVariants(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		el   labelformat.Element
		want string
	}{
		{
			name: "rotated and centred",
			opts: opts203,
			el: labelformat.Element{X: 10, Y: 10, Width: 60, Height: 8, Rotation: 90,
				Props: &labelformat.TextProps{Text: "x", FontSize: 3, Align: labelformat.AlignCenter}},
			want: "^FO80,80^A0R,24,24^FB480,4,0,C,0^FDx^FS\n",
		},
		{
			name: "right aligned upside down",
			opts: opts203,
			el: labelformat.Element{Width: 10, Height: 8, Rotation: -180,
				Props: &labelformat.TextProps{Text: "x", FontSize: 3, Align: labelformat.AlignRight}},
			want: "^FO0,0^A0I,24,24^FB80,4,0,R,0^FDx^FS\n",
		},
		{
			name: "offsets added after conversion",
			opts: Options{DPI: 203, OffsetLeftMM: 2, OffsetTopMM: -1},
			el:   labelformat.Element{X: 10, Y: 10, Width: 60, Height: 8, Props: &labelformat.TextProps{Text: "x", FontSize: 3}},
			want: "^FO96,72^A0N,24,24^FB480,4,0,L,0^FDx^FS\n",
		},
		{
			name: "default font size",
			opts: opts203,
			el:   labelformat.Element{Width: 10, Height: 8, Props: &labelformat.TextProps{Text: "x"}},
			want: "^FO0,0^A0N,24,24^FB80,4,0,L,0^FDx^FS\n",
		},
		{
			name: "zero width renders nothing",
			opts: opts203,
			el:   labelformat.Element{Width: 0, Height: 8, Props: &labelformat.TextProps{Text: "x"}},
			want: "",
		},
		{
			name: "zero height renders nothing",
			opts: opts203,
			el:   labelformat.Element{X: 1, Y: 1, Width: 40, Height: 0, Props: &labelformat.TextProps{Text: "VISIBLE"}},
			want: "",
		},
		{
			name: "control characters escaped",
			opts: opts203,
			el:   labelformat.Element{Width: 10, Height: 8, Props: &labelformat.TextProps{Text: "a^b", FontSize: 3}},
			want: "^FO0,0^A0N,24,24^FB80,4,0,L,0^FH\\^FDa\\5Eb^FS\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, render(t, New(tt.opts, nil), tt.el, nil))
		})
	}
}

func TestRenderBarcode(t *testing.T) {
	r := New(opts203, nil)
	el := labelformat.Element{X: 10, Y: 30, Width: 60, Height: 15, Props: &labelformat.BarcodeProps{Text: "{EAN}"}}

	got := render(t, r, el, placeholder.Record{"EAN": "12345678"})
	assert.Equal(t, "^FO80,240^BY4^BCN,120,Y,N,N^FD12345678^FS\n", got)

	el.Rotation = 270
	got = render(t, r, el, placeholder.Record{"EAN": "12345678"})
	assert.Contains(t, got, "^BCB,120,")

	assert.Empty(t, render(t, r, el, placeholder.Record{}))
}

func TestModuleWidth(t *testing.T) {
	assert.Equal(t, 4, ModuleWidth(480, 8))
	assert.Equal(t, 1, ModuleWidth(10, 30))
	assert.Equal(t, 1, ModuleWidth(0, 0))

	for w := 0; w <= 2000; w += 7 {
		for n := 0; n <= 60; n++ {
			if m := ModuleWidth(w, n); m < 1 {
				t.Fatalf("ModuleWidth(%d, %d) = %d", w, n, m)
			}
		}
	}
}

func TestRenderQRCode(t *testing.T) {
	r := New(opts203, nil)
	el := labelformat.Element{X: 10, Y: 50, Width: 20, Height: 20, Props: &labelformat.QRCodeProps{Text: "{URL}"}}

	got := render(t, r, el, placeholder.Record{"url": "https://x.io/1"})
	assert.Equal(t, "^FO80,400^BQN,2,3^FDQA,https://x.io/1^FS\n", got)

	assert.Empty(t, render(t, r, el, nil))
}

func TestQRMagnification(t *testing.T) {
	assert.Equal(t, 2, QRMagnification(0))
	assert.Equal(t, 2, QRMagnification(89))
	assert.Equal(t, 3, QRMagnification(160))
	assert.Equal(t, 10, QRMagnification(450))
	assert.Equal(t, 10, QRMagnification(5000))
}

func TestRenderRectangle(t *testing.T) {
	r := New(opts203, nil)
	el := labelformat.Element{Width: 86, Height: 120, Props: &labelformat.RectangleProps{StrokeWidth: 0.5}}

	assert.Equal(t, "^FO0,0^GB687,959,4,B,0^FS\n", render(t, r, el, nil))

	el.Rotation = 90
	assert.Equal(t, "^FO0,136^GB959,687,4,B,0^FS\n", render(t, r, el, nil))

	el.Rotation = 180
	assert.Equal(t, "^FO0,0^GB687,959,4,B,0^FS\n", render(t, r, el, nil))

	el.Height = 0
	assert.Empty(t, render(t, r, el, nil))
}

func TestRenderLine(t *testing.T) {
	r := New(opts203, nil)
	el := labelformat.Element{X: 5, Y: 100, Width: 76, Height: 0, Props: &labelformat.LineProps{StrokeWidth: 0.3}}

	assert.Equal(t, "^FO40,799^GB607,2,2,B,0^FS\n", render(t, r, el, nil))

	el.Rotation = 90
	assert.Equal(t, "^FO343,496^GB2,607,2,B,0^FS\n", render(t, r, el, nil))

	vertical := labelformat.Element{X: 5, Y: 10, Width: 0, Height: 20, Props: &labelformat.LineProps{}}
	assert.Equal(t, "^FO40,80^GB1,160,1,B,0^FS\n", render(t, r, vertical, nil))

	empty := labelformat.Element{X: 5, Y: 10, Props: &labelformat.LineProps{StrokeWidth: 1}}
	assert.Empty(t, render(t, r, empty, nil))
}

func TestRenderCircle(t *testing.T) {
	r := New(opts203, nil)
	el := labelformat.Element{X: 40, Y: 80, Width: 10, Height: 12, Rotation: 33, Props: &labelformat.CircleProps{}}

	assert.Equal(t, "^FO320,639^GC80,1,B^FS\n", render(t, r, el, nil))

	el.Width = 0
	assert.Empty(t, render(t, r, el, nil))
}

func TestRenderImage(t *testing.T) {
	bitmaps := &fakeBitmaps{bitmap: &raster.Bitmap{Width: 2, Height: 1, BytesPerRow: 1, Data: []byte{0xC0}}}
	r := New(opts203, bitmaps)
	el := labelformat.Element{X: 1, Y: 1, Width: 1, Height: 2, Rotation: 30,
		Props: &labelformat.ImageProps{URL: "https://cdn/logo.png"}}

	assert.Equal(t, "^FO8,8^GFA,1,1,1,C0^FS\n", render(t, r, el, nil))
	require.Len(t, bitmaps.requests, 1)
	assert.Equal(t, raster.Request{Location: "https://cdn/logo.png", Width: 8, Height: 16, Rotation: 30}, bitmaps.requests[0])
}

func TestRenderImageFailures(t *testing.T) {
	fetchErr := errors.New("unreachable")
	el := labelformat.Element{Width: 10, Height: 10, Props: &labelformat.ImageProps{URL: "https://down/x.png"}}

	err := New(opts203, &fakeBitmaps{err: fetchErr}).RenderElement(context.Background(), zpl.NewEncoder(), &el, nil)
	assert.ErrorIs(t, err, fetchErr)

	err = New(opts203, nil).RenderElement(context.Background(), zpl.NewEncoder(), &el, nil)
	assert.Error(t, err)

	noURL := labelformat.Element{Width: 10, Height: 10, Props: &labelformat.ImageProps{}}
	err = New(opts203, &fakeBitmaps{}).RenderElement(context.Background(), zpl.NewEncoder(), &noURL, nil)
	assert.Error(t, err)

	bitmaps := &fakeBitmaps{}
	flat := labelformat.Element{Width: 10, Props: &labelformat.ImageProps{URL: "x.png"}}
	assert.Empty(t, render(t, New(opts203, bitmaps), flat, nil))
	assert.Empty(t, bitmaps.requests)
}

func TestRenderUnknownElement(t *testing.T) {
	r := New(opts203, nil)

	err := r.RenderElement(context.Background(), zpl.NewEncoder(), &labelformat.Element{Props: &bogusProps{}}, nil)
	assert.Error(t, err)

	err = r.RenderElement(context.Background(), zpl.NewEncoder(), &labelformat.Element{}, nil)
	assert.Error(t, err)
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, Options{DPI: 203}.Validate())
	assert.NoError(t, Options{DPI: 600}.Validate())
	assert.ErrorIs(t, Options{}.Validate(), ErrInvalidDPI)
	assert.ErrorIs(t, Options{DPI: -300}.Validate(), ErrInvalidDPI)
	assert.ErrorIs(t, Options{DPI: 200}.Validate(), ErrUnsupportedDPI)
	assert.Equal(t, opts203, New(opts203, nil).Options())
}

func TestImageRequest(t *testing.T) {
	el := labelformat.Element{Width: 10, Height: 5, Props: &labelformat.ImageProps{URL: "a.png"}}
	req, ok := ImageRequest(&el, opts203)
	assert.True(t, ok)
	assert.Equal(t, 80, req.Width)
	assert.Equal(t, 40, req.Height)

	_, ok = ImageRequest(&labelformat.Element{Width: 10, Height: 5, Props: &labelformat.TextProps{}}, opts203)
	assert.False(t, ok)
}
