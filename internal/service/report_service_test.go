package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/khalidoy/gspfinancefront-sub000/internal/models"
	"github.com/khalidoy/gspfinancefront-sub000/pkg/export"
)

type captureRenderer struct {
	data  export.Dataset
	title string
}

func (r *captureRenderer) Render(data export.Dataset, title string) ([]byte, error) {
	r.data = data
	r.title = title
	return []byte("%PDF-stub"), nil
}

func reportRoster() []models.StudentRecord {
	return []models.StudentRecord{
		{
			ID: "s1", StudentCode: "STU-001", FullName: "Amina Berrada",
			EnrollmentStatus: models.EnrollmentStatusActive, EnrollmentMonth: 9,
			Class:  &models.ClassRef{ClassID: "c1", ClassName: "CE1 A"},
			Agreed: models.FeeMap{models.TuitionKey(9): 500, models.TransportKey(9): 150},
			Actual: models.FeeMap{models.TuitionKey(9): 500},
		},
		{
			ID: "s2", StudentCode: "STU-002", FullName: "Driss El Fassi",
			EnrollmentStatus: models.EnrollmentStatusActive, EnrollmentMonth: 11,
			Agreed: models.FeeMap{models.TuitionKey(11): 600},
			Actual: models.FeeMap{},
		},
	}
}

func TestMonthlyPaymentsPDFRowsAndTotals(t *testing.T) {
	store := newTestStore(&fakeRemote{roster: reportRoster()})
	renderer := &captureRenderer{}
	svc := NewReportService(store, renderer, zap.NewNop())

	pdf, err := svc.MonthlyPaymentsPDF(context.Background(), "2025", 9)
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)
	assert.Equal(t, "Payments for September", renderer.title)

	// s2 enrolled in November, so September lists only s1.
	require.Len(t, renderer.data.Rows, 1)
	row := renderer.data.Rows[0]
	assert.Equal(t, "STU-001", row["Code"])
	assert.Equal(t, "CE1 A", row["Class"])
	assert.Equal(t, "500.00", row["Tuition Paid"])
	assert.Equal(t, "150.00", row["Transport Agreed"])

	require.Len(t, renderer.data.Footer, 1)
	assert.Equal(t, "650.00", renderer.data.Footer[0]["Tuition Agreed"])
	assert.Equal(t, "500.00", renderer.data.Footer[0]["Tuition Paid"])
}

func TestMonthlyPaymentsPDFIncludesLaterEnrollees(t *testing.T) {
	store := newTestStore(&fakeRemote{roster: reportRoster()})
	renderer := &captureRenderer{}
	svc := NewReportService(store, renderer, zap.NewNop())

	_, err := svc.MonthlyPaymentsPDF(context.Background(), "2025", 11)
	require.NoError(t, err)
	require.Len(t, renderer.data.Rows, 2)
}

func TestMonthlyPaymentsPDFRejectsSummerMonths(t *testing.T) {
	store := newTestStore(&fakeRemote{roster: reportRoster()})
	svc := NewReportService(store, &captureRenderer{}, zap.NewNop())

	for _, month := range []int{0, 7, 8, 13} {
		_, err := svc.MonthlyPaymentsPDF(context.Background(), "2025", month)
		assert.Error(t, err, "month %d", month)
	}
}

func TestClassBucketsPDF(t *testing.T) {
	store := newTestStore(&fakeRemote{roster: reportRoster()})
	renderer := &captureRenderer{}
	svc := NewReportService(store, renderer, zap.NewNop())

	_, err := svc.ClassBucketsPDF(context.Background(), "2025")
	require.NoError(t, err)
	require.Len(t, renderer.data.Rows, 2)
	assert.Equal(t, "CE1 A", renderer.data.Rows[0]["Class"])
	assert.Equal(t, "Unassigned", renderer.data.Rows[1]["Class"])
	assert.Equal(t, "2", renderer.data.Footer[0]["Students"])
}

func TestPDFExporterProducesDocument(t *testing.T) {
	pdf, err := export.NewPDFExporter().Render(export.Dataset{
		Headers: []string{"Code", "Student", "Agreed", "Paid"},
		Rows:    []map[string]string{{"Code": "STU-001", "Student": "Amina Berrada", "Agreed": "500.00", "Paid": "500.00"}},
		Footer:  []map[string]string{{"Code": "TOTAL", "Agreed": "500.00", "Paid": "500.00"}},
	}, "Payments for September")
	require.NoError(t, err)
	require.True(t, len(pdf) > 4)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}
