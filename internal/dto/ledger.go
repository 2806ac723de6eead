package dto

import "github.com/khalidoy/gspfinancefront-sub000/internal/models"

// LedgerQuery captures the filter query parameters on roster endpoints.
type LedgerQuery struct {
	Category    string
	UnpaidMonth string
	Search      string
}

// ToFilterSpec converts the raw query into a domain filter.
func (q LedgerQuery) ToFilterSpec() models.FilterSpec {
	return models.FilterSpec{
		Category:    models.StatisticCategory(q.Category),
		UnpaidMonth: q.UnpaidMonth,
		Search:      q.Search,
	}
}

// EditPaymentRequest is the body of a cell edit. Amount arrives as a string
// so blank and malformed inputs can be coerced to zero instead of failing
// JSON number parsing.
type EditPaymentRequest struct {
	FeeType string `json:"feeType" validate:"required,oneof=tuition transport insurance registration"`
	Field   string `json:"field" validate:"required,oneof=paid agreed"`
	Month   int    `json:"month" validate:"omitempty,min=1,max=12"`
	Amount  string `json:"amount"`
}

// LedgerSnapshotResponse is the roster payload with derived per-student
// matrices alongside bucket and summary aggregates.
type LedgerSnapshotResponse struct {
	AcademicYearID string                     `json:"academicYearId"`
	Filter         models.FilterSpec          `json:"filter"`
	Students       []models.StudentLedgerView `json:"students"`
	Buckets        []models.ClassBucket       `json:"buckets"`
	Summary        models.SummarySnapshot     `json:"summary"`
}

// EditPaymentResponse echoes the student's recomputed matrix and the updated
// selection summary after a committed edit.
type EditPaymentResponse struct {
	Student        models.StudentLedgerView `json:"student"`
	Summary        models.SummarySnapshot   `json:"summary"`
	CascadeApplied bool                     `json:"cascadeApplied"`
}
