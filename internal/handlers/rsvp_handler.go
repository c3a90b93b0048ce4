package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jessyrel/wedding-rsvp/internal/rsvp"
	"github.com/jessyrel/wedding-rsvp/internal/storage"
	"github.com/jessyrel/wedding-rsvp/internal/validation"
)

// Version is reported by the index route.
const Version = "1.0.0"

// Submitter runs a submission through the pipeline.
type Submitter interface {
	Submit(ctx context.Context, req validation.SubmitRequest, submitterAddr string) (rsvp.Record, error)
}

// HandlerConfig groups dependencies for the RSVP handlers.
type HandlerConfig struct {
	Pipeline    Submitter
	Store       storage.Store
	Env         string
	Production  bool
	BasePath    string
	FrontendURL string
	AdminToken  string
	Logger      zerolog.Logger
}

type rsvpHandler struct {
	cfg HandlerConfig
}

// RegisterRSVPRoutes registers the /rsvp routes on r.
func RegisterRSVPRoutes(r gin.IRouter, cfg HandlerConfig) {
	h := &rsvpHandler{cfg: cfg}

	g := r.Group("/rsvp")
	g.POST("/submit", h.submit)
	g.GET("/all", AdminAuth(cfg.AdminToken), h.all)
	g.GET("/statistics", h.statistics)
}

func (h *rsvpHandler) submit(c *gin.Context) {
	req, err := validation.Bind(c)
	if err != nil {
		var ve *validation.Error
		switch {
		case errors.Is(err, validation.ErrEmptyBody):
			h.badRequest(c, "Missing required fields", map[string]string{"body": "Request body is required"})
		case errors.As(err, &ve):
			h.badRequest(c, "Validation failed", ve.Fields)
		default:
			h.badRequest(c, "Invalid request body", map[string]string{"body": "Request body must be valid JSON"})
		}
		return
	}

	rec, err := h.cfg.Pipeline.Submit(c.Request.Context(), req, c.ClientIP())
	if err != nil {
		var ve *validation.Error
		if errors.As(err, &ve) {
			h.badRequest(c, "Validation failed", ve.Fields)
			return
		}
		h.serverError(c, "Failed to submit RSVP", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "RSVP submitted successfully",
		"data": gin.H{
			"id":        rec.ID,
			"name":      rec.Name,
			"attending": rec.Attending,
		},
	})
}

func (h *rsvpHandler) all(c *gin.Context) {
	records, err := h.cfg.Store.ReadAll(c.Request.Context())
	if err != nil {
		h.serverError(c, "Failed to fetch RSVPs", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(records),
		"data":    records,
	})
}

func (h *rsvpHandler) statistics(c *gin.Context) {
	stats, err := h.cfg.Store.Statistics(c.Request.Context())
	if err != nil {
		h.serverError(c, "Failed to calculate statistics", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
}

func (h *rsvpHandler) badRequest(c *gin.Context, message string, fields map[string]string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": message,
		"errors":  fields,
	})
}

// serverError logs err and writes a 500. The cause is only exposed outside
// production.
func (h *rsvpHandler) serverError(c *gin.Context, message string, err error) {
	h.cfg.Logger.Error().Err(err).Str(ctxRequestID, c.GetString(ctxRequestID)).Msg(message)

	detail := "An unexpected error occurred"
	if !h.cfg.Production {
		detail = err.Error()
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"message": message,
		"error":   detail,
	})
}
