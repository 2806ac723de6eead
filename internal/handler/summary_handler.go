package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khalidoy/gspfinancefront-sub000/internal/models"
	appErrors "github.com/khalidoy/gspfinancefront-sub000/pkg/errors"
	"github.com/khalidoy/gspfinancefront-sub000/pkg/response"
)

type summaryProvider interface {
	Snapshot(ctx context.Context, academicYearID string) (*models.LedgerSnapshot, error)
	ClassSummary(ctx context.Context, academicYearID, classID string) (*models.SummarySnapshot, error)
}

// SummaryHandler exposes aggregate collection figures.
type SummaryHandler struct {
	store summaryProvider
}

// NewSummaryHandler constructs the handler.
func NewSummaryHandler(store summaryProvider) *SummaryHandler {
	return &SummaryHandler{store: store}
}

// Summary godoc
// @Summary Collection summary for the active selection
// @Tags Summary
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /years/{yearId}/summary [get]
func (h *SummaryHandler) Summary(c *gin.Context) {
	if h.store == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	snapshot, err := h.store.Snapshot(c.Request.Context(), c.Param("yearId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot.Summary, nil)
}

// Buckets godoc
// @Summary Per-class collection buckets
// @Tags Summary
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /years/{yearId}/summary/classes [get]
func (h *SummaryHandler) Buckets(c *gin.Context) {
	if h.store == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	snapshot, err := h.store.Snapshot(c.Request.Context(), c.Param("yearId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot.Buckets, nil)
}

// ClassSummary godoc
// @Summary Collection summary for one class
// @Tags Summary
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Param id path string true "Class ID, or no-class for unassigned students"
// @Success 200 {object} response.Envelope
// @Router /years/{yearId}/summary/classes/{id} [get]
func (h *SummaryHandler) ClassSummary(c *gin.Context) {
	if h.store == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	summary, err := h.store.ClassSummary(c.Request.Context(), c.Param("yearId"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
