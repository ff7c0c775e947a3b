package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/thereceipt/label-engine/internal/generator"
)

// WebSocket message types
const (
	EventRender = "render"
	EventCancel = "cancel"
	EventFrame  = "frame"
	EventDone   = "done"
	EventError  = "error"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// FrameEvent carries one finished label
type FrameEvent struct {
	RenderID string `json:"render_id"`
	Index    int    `json:"index"`
	ZPL      string `json:"zpl"`
}

// DoneEvent ends a render
type DoneEvent struct {
	RenderID string   `json:"render_id"`
	Frames   int      `json:"frames"`
	Warnings []string `json:"warnings"`
}

// ErrorEvent reports a failed or cancelled render
type ErrorEvent struct {
	RenderID string `json:"render_id,omitempty"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

var errRenderBusy = errors.New("a render is already running on this connection")

// WSClient represents a connected WebSocket client. It runs at most one
// render at a time.
type WSClient struct {
	conn   *websocket.Conn
	send   chan WSMessage
	server *Server

	mu   sync.Mutex
	run  *renderRun
	runs sync.WaitGroup
}

type renderRun struct {
	id     string
	cancel context.CancelFunc
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &WSClient{
		conn:   conn,
		send:   make(chan WSMessage, 256),
		server: s,
	}

	go client.writePump()
	go client.readPump()
}

func (c *WSClient) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			c.server.logger.Printf("WebSocket write error: %v", err)
			// keep draining so senders never block on a dead socket
			for range c.send {
			}
			return
		}
	}
}

func (c *WSClient) readPump() {
	defer func() {
		c.stopRender()
		c.runs.Wait()
		close(c.send)
	}()

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.server.logger.Printf("WebSocket error: %v", err)
			}
			return
		}

		c.handleMessage(&msg)
	}
}

func (c *WSClient) handleMessage(msg *WSMessage) {
	switch msg.Event {
	case EventRender:
		c.handleRenderEvent(msg.Data)
	case EventCancel:
		c.stopRender()
	default:
		c.sendError("", NewBadRequestError(fmt.Sprintf("unknown event: %s", msg.Event), nil))
	}
}

func (c *WSClient) handleRenderEvent(data json.RawMessage) {
	var req RenderRequest
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		c.sendError("", NewBadRequestError("invalid render request", err))
		return
	}
	if len(req.Layout) == 0 {
		c.sendError("", NewBadRequestError("layout is required", nil))
		return
	}

	gen, apiErr := c.server.newGenerator(&req)
	if apiErr != nil {
		c.sendError("", apiErr)
		return
	}

	c.mu.Lock()
	if c.run != nil {
		c.mu.Unlock()
		c.sendError("", NewBadRequestError(errRenderBusy.Error(), nil))
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	run := &renderRun{id: uuid.New().String(), cancel: cancel}
	c.run = run
	c.runs.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.runs.Done()

		final := c.stream(ctx, gen, &req, run.id)
		// free the slot before the client can react to the last event
		c.finish(run)
		c.send <- final
	}()
}

// stream pushes one frame event per record and returns the closing event
func (c *WSClient) stream(ctx context.Context, gen *generator.Generator, req *RenderRequest, renderID string) WSMessage {
	count := 0
	diags, err := gen.Stream(ctx, req.Data, func(index int, frame string) error {
		if err := c.push(ctx, EventFrame, FrameEvent{RenderID: renderID, Index: index, ZPL: frame}); err != nil {
			return err
		}
		count++
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return errorMessage(renderID, &APIError{Code: "CANCELLED", Message: fmt.Sprintf("render stopped after %d frames", count)})
	}
	if err != nil {
		return errorMessage(renderID, renderError(err))
	}

	warnings := make([]string, 0, len(diags))
	for _, d := range diags {
		warnings = append(warnings, d.String())
	}
	data, _ := json.Marshal(DoneEvent{RenderID: renderID, Frames: count, Warnings: warnings})
	return WSMessage{Event: EventDone, Data: data}
}

// stopRender cancels the running render, if any. Its goroutine still
// reports the cancellation before finishing.
func (c *WSClient) stopRender() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run != nil {
		c.run.cancel()
	}
}

func (c *WSClient) finish(run *renderRun) {
	c.mu.Lock()
	defer c.mu.Unlock()

	run.cancel()
	if c.run == run {
		c.run = nil
	}
}

// push queues an event, giving up when ctx ends
func (c *WSClient) push(ctx context.Context, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	select {
	case c.send <- WSMessage{Event: event, Data: data}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *WSClient) sendError(renderID string, apiErr *APIError) {
	c.send <- errorMessage(renderID, apiErr)
}

func errorMessage(renderID string, apiErr *APIError) WSMessage {
	data, _ := json.Marshal(ErrorEvent{
		RenderID: renderID,
		Code:     apiErr.Code,
		Message:  apiErr.Message,
	})
	return WSMessage{Event: EventError, Data: data}
}
