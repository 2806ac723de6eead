package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	appErrors "github.com/khalidoy/gspfinancefront-sub000/pkg/errors"
	"github.com/khalidoy/gspfinancefront-sub000/pkg/response"
)

type reportService interface {
	MonthlyPaymentsPDF(ctx context.Context, academicYearID string, month int) ([]byte, error)
	ClassBucketsPDF(ctx context.Context, academicYearID string) ([]byte, error)
}

// ReportHandler exposes printable report endpoints.
type ReportHandler struct {
	reports reportService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports reportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// MonthlyPayments godoc
// @Summary Monthly payments report as PDF
// @Tags Reports
// @Produce application/pdf
// @Param yearId path string true "Academic year ID"
// @Param month query int true "Calendar month (9-12, 1-6)"
// @Success 200 {file} binary
// @Router /years/{yearId}/reports/monthly-payments [get]
func (h *ReportHandler) MonthlyPayments(c *gin.Context) {
	if h.reports == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "month must be a number"))
		return
	}
	pdf, err := h.reports.MonthlyPaymentsPDF(c.Request.Context(), c.Param("yearId"), month)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"payments-%02d.pdf\"", month))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// ClassBuckets godoc
// @Summary Per-class collection report as PDF
// @Tags Reports
// @Produce application/pdf
// @Param yearId path string true "Academic year ID"
// @Success 200 {file} binary
// @Router /years/{yearId}/reports/classes [get]
func (h *ReportHandler) ClassBuckets(c *gin.Context) {
	if h.reports == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	pdf, err := h.reports.ClassBucketsPDF(c.Request.Context(), c.Param("yearId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\"collection-by-class.pdf\"")
	c.Data(http.StatusOK, "application/pdf", pdf)
}
