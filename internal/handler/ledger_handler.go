package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/khalidoy/gspfinancefront-sub000/internal/dto"
	"github.com/khalidoy/gspfinancefront-sub000/internal/models"
	"github.com/khalidoy/gspfinancefront-sub000/internal/service"
	appErrors "github.com/khalidoy/gspfinancefront-sub000/pkg/errors"
	"github.com/khalidoy/gspfinancefront-sub000/pkg/response"
)

type ledgerStore interface {
	Snapshot(ctx context.Context, academicYearID string) (*models.LedgerSnapshot, error)
	SetFilter(ctx context.Context, academicYearID string, spec models.FilterSpec) (*models.LedgerSnapshot, error)
	StudentLedger(ctx context.Context, academicYearID, studentID string) (*models.StudentLedgerView, error)
	ApplyEdit(ctx context.Context, academicYearID string, req models.EditRequest) (*service.EditResult, error)
	RefreshFromRemote(ctx context.Context, academicYearID string) error
}

// LedgerHandler wires the payment ledger store to HTTP endpoints.
type LedgerHandler struct {
	store    ledgerStore
	validate *validator.Validate
}

// NewLedgerHandler constructs the handler.
func NewLedgerHandler(store ledgerStore, validate *validator.Validate) *LedgerHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &LedgerHandler{store: store, validate: validate}
}

// Snapshot godoc
// @Summary Filtered payment roster with buckets and summary
// @Tags Ledger
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Param category query string false "Statistic category (new, left, transfer, registered, notRegistered, total)"
// @Param unpaidMonth query string false "Calendar month (1-12) or insurance"
// @Param search query string false "Name or code substring"
// @Success 200 {object} response.Envelope
// @Router /years/{yearId}/ledger [get]
func (h *LedgerHandler) Snapshot(c *gin.Context) {
	if h.store == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	yearID := c.Param("yearId")
	query := dto.LedgerQuery{
		Category:    strings.TrimSpace(c.Query("category")),
		UnpaidMonth: strings.TrimSpace(c.Query("unpaidMonth")),
		Search:      strings.TrimSpace(c.Query("search")),
	}

	// Only the filter params reset the stored filter; unrelated query
	// parameters read the current snapshot unchanged.
	params := c.Request.URL.Query()
	hasFilter := params.Has("category") || params.Has("unpaidMonth") || params.Has("search")

	var snapshot *models.LedgerSnapshot
	var err error
	if hasFilter {
		snapshot, err = h.store.SetFilter(c.Request.Context(), yearID, query.ToFilterSpec())
	} else {
		snapshot, err = h.store.Snapshot(c.Request.Context(), yearID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, toSnapshotResponse(snapshot), nil)
}

// StudentLedger godoc
// @Summary Payment matrix for one student
// @Tags Ledger
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /years/{yearId}/ledger/students/{id} [get]
func (h *LedgerHandler) StudentLedger(c *gin.Context) {
	if h.store == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	view, err := h.store.StudentLedger(c.Request.Context(), c.Param("yearId"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// EditPayment godoc
// @Summary Edit one agreed or paid amount
// @Tags Ledger
// @Accept json
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Param id path string true "Student ID"
// @Param payload body dto.EditPaymentRequest true "Edit payload"
// @Success 200 {object} response.Envelope
// @Router /years/{yearId}/ledger/students/{id}/payments [post]
func (h *LedgerHandler) EditPayment(c *gin.Context) {
	if h.store == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var payload dto.EditPaymentRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	result, err := h.store.ApplyEdit(c.Request.Context(), c.Param("yearId"), models.EditRequest{
		StudentID: c.Param("id"),
		FeeType:   models.FeeType(payload.FeeType),
		Field:     models.EditField(payload.Field),
		Month:     payload.Month,
		Amount:    parseAmount(payload.Amount),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.EditPaymentResponse{
		Student:        result.Student,
		Summary:        result.Summary,
		CascadeApplied: result.CascadeApplied,
	}, nil)
}

// Refresh godoc
// @Summary Reload the roster from the record store
// @Tags Ledger
// @Produce json
// @Param yearId path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /years/{yearId}/ledger/refresh [post]
func (h *LedgerHandler) Refresh(c *gin.Context) {
	if h.store == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	if err := h.store.RefreshFromRemote(c.Request.Context(), c.Param("yearId")); err != nil {
		response.Error(c, err)
		return
	}
	snapshot, err := h.store.Snapshot(c.Request.Context(), c.Param("yearId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, toSnapshotResponse(snapshot), nil)
}

func toSnapshotResponse(snapshot *models.LedgerSnapshot) dto.LedgerSnapshotResponse {
	views := make([]models.StudentLedgerView, 0, len(snapshot.Students))
	for _, student := range snapshot.Students {
		views = append(views, service.DeriveLedger(student))
	}
	return dto.LedgerSnapshotResponse{
		AcademicYearID: snapshot.AcademicYearID,
		Filter:         snapshot.Filter,
		Students:       views,
		Buckets:        snapshot.Buckets,
		Summary:        snapshot.Summary,
	}
}

// parseAmount coerces user input to a number. Blank and malformed values
// mean zero, matching how the edit grid treats cleared cells.
func parseAmount(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return value
}
