package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/khalidoy/gspfinancefront-sub000/internal/models"
	appErrors "github.com/khalidoy/gspfinancefront-sub000/pkg/errors"
	"github.com/khalidoy/gspfinancefront-sub000/pkg/export"
)

var monthNames = map[int]string{
	1: "January", 2: "February", 3: "March", 4: "April", 5: "May", 6: "June",
	9: "September", 10: "October", 11: "November", 12: "December",
}

// PDFRenderer renders a dataset to PDF bytes.
type PDFRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ReportService produces printable payment reports from ledger snapshots.
type ReportService struct {
	store    *LedgerStore
	renderer PDFRenderer
	logger   *zap.Logger
}

// NewReportService constructs a report service.
func NewReportService(store *LedgerStore, renderer PDFRenderer, logger *zap.Logger) *ReportService {
	return &ReportService{store: store, renderer: renderer, logger: logger}
}

// MonthlyPaymentsPDF renders the payment ledger for one academic month: one
// row per student with tuition and transport amounts, plus a totals footer.
// Students whose month is gated by their enrollment date are skipped.
func (s *ReportService) MonthlyPaymentsPDF(ctx context.Context, academicYearID string, month int) ([]byte, error) {
	if month < 1 || month > 12 || models.AcademicOrder(month) > len(models.AcademicMonths) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("month %d is outside the school year", month))
	}

	snapshot, err := s.store.Snapshot(ctx, academicYearID)
	if err != nil {
		return nil, err
	}

	headers := []string{"Code", "Student", "Class", "Tuition Agreed", "Tuition Paid", "Transport Agreed", "Transport Paid", "Status"}
	rows := make([]map[string]string, 0, len(snapshot.Students))
	var totalAgreed, totalPaid float64

	for _, student := range snapshot.Students {
		view := DeriveLedger(student)
		var cell *models.MonthLedger
		for i := range view.Months {
			if view.Months[i].Month == month {
				cell = &view.Months[i]
				break
			}
		}
		if cell == nil || cell.Total.Disabled {
			continue
		}

		className := ""
		if student.Class != nil {
			className = student.Class.ClassName
		}
		rows = append(rows, map[string]string{
			"Code":             student.StudentCode,
			"Student":          student.FullName,
			"Class":            className,
			"Tuition Agreed":   formatAmount(cell.Tuition.Agreed),
			"Tuition Paid":     formatAmount(cell.Tuition.Paid),
			"Transport Agreed": formatAmount(cell.Transport.Agreed),
			"Transport Paid":   formatAmount(cell.Transport.Paid),
			"Status":           string(cell.Total.Status),
		})
		totalAgreed += cell.Tuition.Agreed + cell.Transport.Agreed
		totalPaid += cell.Tuition.Paid + cell.Transport.Paid
	}

	data := export.Dataset{
		Headers: headers,
		Rows:    rows,
		Footer: []map[string]string{{
			"Code":           "TOTAL",
			"Student":        strconv.Itoa(len(rows)) + " students",
			"Tuition Agreed": formatAmount(totalAgreed),
			"Tuition Paid":   formatAmount(totalPaid),
			"Status":         fmt.Sprintf("%.0f%% collected", models.CollectionRate(totalPaid, totalAgreed, 0)),
		}},
	}

	pdf, err := s.renderer.Render(data, fmt.Sprintf("Payments for %s", monthNames[month]))
	if err != nil {
		s.logger.Error("monthly report render failed", zap.String("year", academicYearID), zap.Int("month", month), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return pdf, nil
}

// ClassBucketsPDF renders the per-class collection overview.
func (s *ReportService) ClassBucketsPDF(ctx context.Context, academicYearID string) ([]byte, error) {
	snapshot, err := s.store.Snapshot(ctx, academicYearID)
	if err != nil {
		return nil, err
	}

	headers := []string{"Class", "Section", "Students", "Agreed", "Paid", "Rate", "Fully Paid", "Unpaid"}
	rows := make([]map[string]string, 0, len(snapshot.Buckets))
	for _, bucket := range snapshot.Buckets {
		name := bucket.ClassName
		if bucket.ClassID == models.NoClassBucketID {
			name = "Unassigned"
		}
		rows = append(rows, map[string]string{
			"Class":      name,
			"Section":    bucket.SectionName,
			"Students":   strconv.Itoa(len(bucket.Students)),
			"Agreed":     formatAmount(bucket.TotalAgreed),
			"Paid":       formatAmount(bucket.TotalPaid),
			"Rate":       fmt.Sprintf("%.1f%%", bucket.CollectionRate),
			"Fully Paid": strconv.Itoa(bucket.FullyPaidCount),
			"Unpaid":     strconv.Itoa(bucket.UnpaidCount),
		})
	}

	data := export.Dataset{
		Headers: headers,
		Rows:    rows,
		Footer: []map[string]string{{
			"Class":    "TOTAL",
			"Students": strconv.Itoa(snapshot.Summary.TotalStudents),
			"Agreed":   formatAmount(snapshot.Summary.TotalAgreed),
			"Paid":     formatAmount(snapshot.Summary.TotalPaid),
			"Rate":     fmt.Sprintf("%.0f%%", snapshot.Summary.CollectionRate),
		}},
	}

	pdf, err := s.renderer.Render(data, "Collection by Class")
	if err != nil {
		s.logger.Error("class report render failed", zap.String("year", academicYearID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return pdf, nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
