package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thereceipt/label-engine/internal/printer"
	"github.com/thereceipt/label-engine/internal/registry"
)

var (
	errNotPrinterPort    = errors.New("local targets must be a serial port or printer device")
	errLocalUnregistered = errors.New("serial and device printers must be registered first")
)

// resolvePrinter turns the printer named in a request into a target.
// Registered printers and the configured default may be local ports;
// anything else given inline must be a network printer.
func (s *Server) resolvePrinter(addr string) (printer.Target, *APIError) {
	if entry, err := s.registry.Get(addr); err == nil {
		target, err := printer.ParseTarget(entry.Target)
		if err != nil {
			return printer.Target{}, NewInternalError("registered printer is invalid", err)
		}
		return target, nil
	}

	target, err := printer.ParseTarget(addr)
	if err != nil {
		return printer.Target{}, NewBadRequestError("invalid printer", err)
	}
	if target.Kind != printer.KindNetwork && addr != s.cfg.Printer.Target {
		return printer.Target{}, NewBadRequestError("invalid printer", errLocalUnregistered)
	}
	return target, nil
}

// handleGetPrinters returns the registered printers and local candidates
func (s *Server) handleGetPrinters(c *gin.Context) {
	local := make([]gin.H, 0)
	for _, cand := range printer.Candidates() {
		local = append(local, gin.H{
			"target":      cand.Target.String(),
			"description": cand.Description,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"printers": s.registry.All(),
		"local":    local,
	})
}

// handleAddPrinter registers a named printer
func (s *Server) handleAddPrinter(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Target      string `json:"target" binding:"required"`
		Description string `json:"description"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, NewBadRequestError("name and target are required", err))
		return
	}

	if target, err := printer.ParseTarget(req.Target); err == nil && !printer.IsPrinterPort(target) {
		respondError(c, NewBadRequestError("target is not a printer port", errNotPrinterPort))
		return
	}

	entry, err := s.registry.Add(req.Name, req.Target, req.Description)
	switch {
	case errors.Is(err, registry.ErrNameTaken):
		respondError(c, newError(http.StatusConflict, "CONFLICT", "printer name already in use", err))
		return
	case errors.Is(err, printer.ErrInvalidTarget), errors.Is(err, registry.ErrNameRequired):
		respondError(c, NewBadRequestError("invalid printer target", err))
		return
	case err != nil:
		respondError(c, NewInternalError("failed to register printer", err))
		return
	}

	c.JSON(http.StatusOK, entry)
}

// handleRemovePrinter removes a printer by ID or name
func (s *Server) handleRemovePrinter(c *gin.Context) {
	err := s.registry.Remove(c.Param("id"))
	switch {
	case errors.Is(err, registry.ErrNotFound):
		respondError(c, newError(http.StatusNotFound, "NOT_FOUND", "printer not found", err))
		return
	case err != nil:
		respondError(c, NewInternalError("failed to remove printer", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
