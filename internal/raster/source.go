package raster

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	// Decoders for image.Decode
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrUnsupportedLocation is returned for image locations no source can serve
	ErrUnsupportedLocation = errors.New("unsupported image location")

	// ErrOutsideBaseDir is returned for file paths that leave the image directory
	ErrOutsideBaseDir = errors.New("image path outside base directory")
)

// ImageSource fetches and decodes an image by location
type ImageSource interface {
	Fetch(ctx context.Context, location string) (image.Image, error)
}

// SourceFunc adapts a function to ImageSource
type SourceFunc func(ctx context.Context, location string) (image.Image, error)

// Fetch calls f
func (f SourceFunc) Fetch(ctx context.Context, location string) (image.Image, error) {
	return f(ctx, location)
}

// HTTPSource fetches images over HTTP(S). Timeouts come from Client.
type HTTPSource struct {
	Client   *http.Client
	MaxBytes int64 // 0 means unlimited
}

// Fetch downloads and decodes the image at location
func (s *HTTPSource) Fetch(ctx context.Context, location string) (image.Image, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch image: HTTP %d", resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if s.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, s.MaxBytes)
	}

	return decode(body)
}

// FileSource reads images from disk. Relative paths resolve against BaseDir,
// and when BaseDir is set no path may leave it. An empty BaseDir reads any
// path relative to the working directory.
type FileSource struct {
	BaseDir string
}

// Fetch opens and decodes the file at location (a path or file:// URL)
func (s *FileSource) Fetch(ctx context.Context, location string) (image.Image, error) {
	path := location
	if strings.HasPrefix(location, "file://") {
		u, err := url.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("invalid file URL: %w", err)
		}
		path = u.Path
	}

	if s.BaseDir != "" {
		var err error
		path, err = s.confine(path)
		if err != nil {
			return nil, err
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	return decode(f)
}

// confine resolves path under BaseDir, following symlinks on both sides
func (s *FileSource) confine(path string) (string, error) {
	base, err := filepath.Abs(s.BaseDir)
	if err != nil {
		return "", fmt.Errorf("invalid image directory: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(base); err == nil {
		base = resolved
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
	}
	path = filepath.Clean(path)
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}

	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideBaseDir, path)
	}
	return path, nil
}

// DataURISource decodes base64 data URIs (data:image/png;base64,...)
type DataURISource struct{}

// Fetch decodes the inline image
func (DataURISource) Fetch(ctx context.Context, location string) (image.Image, error) {
	header, payload, ok := strings.Cut(location, ",")
	if !ok || !strings.HasPrefix(header, "data:") {
		return nil, fmt.Errorf("invalid data URI")
	}
	if !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("data URI must be base64 encoded")
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image: %w", err)
	}

	return decode(bytes.NewReader(raw))
}

// Router dispatches a location to the source for its scheme. A nil source
// disables that scheme.
type Router struct {
	HTTP ImageSource
	File ImageSource
	Data ImageSource
}

// NewDefaultSource routes http(s), data and file locations
func NewDefaultSource(client *http.Client, baseDir string, maxBytes int64) *Router {
	return &Router{
		HTTP: &HTTPSource{Client: client, MaxBytes: maxBytes},
		File: &FileSource{BaseDir: baseDir},
		Data: DataURISource{},
	}
}

// Fetch picks a source by scheme
func (r *Router) Fetch(ctx context.Context, location string) (image.Image, error) {
	var src ImageSource
	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		src = r.HTTP
	case strings.HasPrefix(location, "data:"):
		src = r.Data
	case location != "" && !strings.Contains(location, "://"), strings.HasPrefix(location, "file://"):
		src = r.File
	}

	if src == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLocation, location)
	}
	return src.Fetch(ctx, location)
}

// decode reads the header first so oversized images are refused before
// their pixels are allocated
func decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return nil, fmt.Errorf("%w: source is %dx%d pixels", ErrTargetTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
