// Package api handles HTTP and WebSocket API endpoints
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/thereceipt/label-engine/internal/config"
	"github.com/thereceipt/label-engine/internal/generator"
	"github.com/thereceipt/label-engine/internal/placeholder"
	"github.com/thereceipt/label-engine/internal/preview"
	"github.com/thereceipt/label-engine/internal/printer"
	"github.com/thereceipt/label-engine/internal/raster"
	"github.com/thereceipt/label-engine/internal/registry"
	"github.com/thereceipt/label-engine/internal/renderer"
	"github.com/thereceipt/label-engine/pkg/labelformat"
)

const mimeMsgpack = "application/msgpack"

// SendFunc delivers a finished stream to a printer
type SendFunc func(ctx context.Context, target printer.Target, data []byte) error

// Option configures a Server
type Option func(*Server)

// WithImageSource overrides where image elements are fetched from
func WithImageSource(src raster.ImageSource) Option {
	return func(s *Server) {
		s.source = src
	}
}

// WithLogger sets the logger used for render warnings
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRegistry sets the named printer store
func WithRegistry(reg *registry.Registry) Option {
	return func(s *Server) {
		if reg != nil {
			s.registry = reg
		}
	}
}

// WithSender overrides printer delivery
func WithSender(send SendFunc) Option {
	return func(s *Server) {
		s.send = send
	}
}

// Server is the API server
type Server struct {
	router   *gin.Engine
	cfg      *config.Config
	source   raster.ImageSource
	logger   *log.Logger
	registry *registry.Registry
	send     SendFunc
	upgrader websocket.Upgrader
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, opts ...Option) *Server {
	if cfg == nil {
		cfg = config.Default()
	}

	// Set Gin to release mode
	gin.SetMode(gin.ReleaseMode)

	// Record values keep their literal digits instead of becoming float64
	binding.EnableDecoderUseNumber = true

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	// CORS middleware
	router.Use(corsMiddleware())

	// an in-memory registry cannot fail to load
	reg, _ := registry.New("")

	server := &Server{
		router:   router,
		cfg:      cfg,
		source:   defaultSource(cfg),
		logger:   log.Default(),
		registry: reg,
		send:     printer.Send,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
	}

	for _, opt := range opts {
		opt(server)
	}

	server.setupRoutes()

	return server
}

// defaultSource fetches over http(s) and data URIs. Disk access is only
// enabled for a configured image directory.
func defaultSource(cfg *config.Config) raster.ImageSource {
	src := raster.NewDefaultSource(&http.Client{Timeout: cfg.FetchTimeout()}, cfg.Images.BaseDir, cfg.Images.MaxBytes)
	if cfg.Images.BaseDir == "" {
		src.File = nil
	}
	return src
}

func (s *Server) setupRoutes() {
	s.router.POST("/render", s.handleRender)
	s.router.POST("/render/raw", s.handleRenderRaw)
	s.router.POST("/preview", s.handlePreview)
	s.router.POST("/print", s.handlePrint)

	// Named printers
	s.router.GET("/printers", s.handleGetPrinters)
	s.router.POST("/printers", s.handleAddPrinter)
	s.router.DELETE("/printers/:id", s.handleRemovePrinter)

	// WebSocket
	s.router.GET("/ws", s.handleWebSocket)

	// Health check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}

// RenderRequest is the body of /render, /render/raw and the websocket render event
type RenderRequest struct {
	Layout  json.RawMessage      `json:"layout" binding:"required"`
	Data    []placeholder.Record `json:"data"`
	Options *renderer.Options    `json:"options"`
}

// RenderResponse carries the generated stream
type RenderResponse struct {
	RenderID string   `json:"render_id" msgpack:"render_id"`
	Frames   []string `json:"frames" msgpack:"frames"`
	Output   string   `json:"output" msgpack:"output"`
	Warnings []string `json:"warnings" msgpack:"warnings"`
}

// PreviewRequest is the body of /preview
type PreviewRequest struct {
	Layout  json.RawMessage    `json:"layout" binding:"required"`
	Record  placeholder.Record `json:"record"`
	Options *renderer.Options  `json:"options"`
}

// PrintRequest is the body of /print. Printer falls back to the configured target.
type PrintRequest struct {
	RenderRequest
	Printer string `json:"printer"`
}

// PrintResponse reports a delivered stream
type PrintResponse struct {
	RenderID string   `json:"render_id"`
	Printer  string   `json:"printer"`
	Frames   int      `json:"frames"`
	Bytes    int      `json:"bytes"`
	Warnings []string `json:"warnings"`
}

// PrintFailure is returned when rendering worked but delivery did not.
// Output holds the stream so it can be sent by hand.
type PrintFailure struct {
	*APIError
	RenderID string `json:"render_id"`
	Output   string `json:"output"`
}

// handleRender renders every record and returns the frames
func (s *Server) handleRender(c *gin.Context) {
	var req RenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, NewBadRequestError("invalid render request", err))
		return
	}

	out, apiErr := s.render(c.Request.Context(), &req)
	if apiErr != nil {
		respondError(c, apiErr)
		return
	}

	resp := RenderResponse{
		RenderID: uuid.New().String(),
		Frames:   out.Frames,
		Output:   out.String(),
		Warnings: out.Warnings(),
	}

	if strings.Contains(c.GetHeader("Accept"), mimeMsgpack) {
		data, err := msgpack.Marshal(&resp)
		if err != nil {
			respondError(c, NewInternalError("failed to encode msgpack", err))
			return
		}
		c.Data(http.StatusOK, mimeMsgpack, data)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// handleRenderRaw returns the bare stream, ready to pipe to a printer
func (s *Server) handleRenderRaw(c *gin.Context) {
	var req RenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, NewBadRequestError("invalid render request", err))
		return
	}

	out, apiErr := s.render(c.Request.Context(), &req)
	if apiErr != nil {
		respondError(c, apiErr)
		return
	}

	c.Header("X-Label-Warnings", strconv.Itoa(len(out.Diagnostics)))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(out.String()))
}

// handlePreview draws one record as a PNG
func (s *Server) handlePreview(c *gin.Context) {
	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, NewBadRequestError("invalid preview request", err))
		return
	}

	layout, err := parseLayout(req.Layout)
	if err != nil {
		respondError(c, NewInvalidLayoutError(err))
		return
	}

	opts := s.options(req.Options)
	bitmaps := raster.NewCache(raster.New(s.source))
	img, err := preview.New(opts, bitmaps, s.logger).Render(c.Request.Context(), layout, req.Record)
	if err != nil {
		if errors.Is(err, renderer.ErrInvalidDPI) {
			respondError(c, NewBadRequestError("invalid render options", err))
			return
		}
		respondError(c, NewInvalidLayoutError(err))
		return
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		respondError(c, NewInternalError("failed to encode preview", err))
		return
	}

	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// handlePrint renders and delivers the stream in one attempt
func (s *Server) handlePrint(c *gin.Context) {
	var req PrintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, NewBadRequestError("invalid print request", err))
		return
	}

	targetAddr := req.Printer
	if targetAddr == "" {
		targetAddr = s.cfg.Printer.Target
	}
	if targetAddr == "" {
		respondError(c, NewBadRequestError("printer is required", nil))
		return
	}

	target, apiErr := s.resolvePrinter(targetAddr)
	if apiErr != nil {
		respondError(c, apiErr)
		return
	}

	out, apiErr := s.render(c.Request.Context(), &req.RenderRequest)
	if apiErr != nil {
		respondError(c, apiErr)
		return
	}

	renderID := uuid.New().String()
	stream := out.String()

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.DialTimeout())
	defer cancel()

	if err := s.send(ctx, target, []byte(stream)); err != nil {
		s.logger.Printf("Warning: print %s to %s failed: %v", renderID, target, err)
		failure := PrintFailure{
			APIError: NewPrinterUnavailableError(target.String(), err),
			RenderID: renderID,
			Output:   stream,
		}
		c.AbortWithStatusJSON(failure.Status, failure)
		return
	}

	c.JSON(http.StatusOK, PrintResponse{
		RenderID: renderID,
		Printer:  target.String(),
		Frames:   len(out.Frames),
		Bytes:    len(stream),
		Warnings: out.Warnings(),
	})
}

// render runs the generator for a request
func (s *Server) render(ctx context.Context, req *RenderRequest) (*generator.Output, *APIError) {
	gen, apiErr := s.newGenerator(req)
	if apiErr != nil {
		return nil, apiErr
	}

	out, err := gen.Generate(ctx, req.Data)
	if err != nil {
		return nil, renderError(err)
	}
	return out, nil
}

func (s *Server) newGenerator(req *RenderRequest) (*generator.Generator, *APIError) {
	layout, err := parseLayout(req.Layout)
	if err != nil {
		return nil, NewInvalidLayoutError(err)
	}

	gen, err := generator.New(layout, s.options(req.Options),
		generator.WithImageSource(s.source),
		generator.WithLogger(s.logger),
		generator.WithPrefetchWorkers(s.cfg.Images.PrefetchWorkers),
	)
	if err != nil {
		return nil, renderError(err)
	}
	return gen, nil
}

// options fills what the request left out from the configuration
func (s *Server) options(req *renderer.Options) renderer.Options {
	if req == nil {
		return s.cfg.Render
	}
	opts := *req
	if opts.DPI == 0 {
		opts.DPI = s.cfg.Render.DPI
	}
	return opts
}

// parseLayout accepts the layout as an object or as a JSON-encoded string
func parseLayout(raw json.RawMessage) (*labelformat.LabelLayout, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, err
		}
		trimmed = []byte(s)
	}
	return labelformat.Parse(trimmed)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
