package models

import "math"

// NoClassBucketID is the sentinel bucket for students without a class.
const NoClassBucketID = "no-class"

// ClassBucket groups the filtered roster by class with aggregated financial
// statistics. Buckets live for a single filter evaluation pass; they are
// rebuilt on every roster or filter change, never mutated in place.
type ClassBucket struct {
	ClassID        string          `json:"class_id"`
	ClassName      string          `json:"class_name"`
	SectionName    string          `json:"section_name,omitempty"`
	Students       []StudentRecord `json:"students"`
	TotalAgreed    float64         `json:"total_agreed"`
	TotalPaid      float64         `json:"total_paid"`
	CollectionRate float64         `json:"collection_rate"`
	FullyPaidCount int             `json:"fully_paid_count"`
	UnpaidCount    int             `json:"unpaid_count"`
}

// SummarySnapshot carries collection totals for the active selection.
type SummarySnapshot struct {
	TotalStudents      int     `json:"total_students"`
	TotalAgreed        float64 `json:"total_agreed"`
	TotalPaid          float64 `json:"total_paid"`
	OutstandingBalance float64 `json:"outstanding_balance"`
	CollectionRate     float64 `json:"collection_rate"`
}

// LedgerSnapshot is an immutable view of one academic year's ledger under
// the active filter: the filtered roster, its class buckets, and the summary
// of the selection. Version changes whenever the underlying roster does.
type LedgerSnapshot struct {
	AcademicYearID string          `json:"academic_year_id"`
	Version        uint64          `json:"version"`
	Filter         FilterSpec      `json:"filter"`
	Students       []StudentRecord `json:"students"`
	Buckets        []ClassBucket   `json:"buckets"`
	Summary        SummarySnapshot `json:"summary"`
}

// CollectionRate computes paid/agreed as a percentage rounded to the given
// number of decimals, clamped to 0 when nothing is agreed. The dashboard
// summary uses 0 decimals while class cards use 1; the two metrics are kept
// distinct on purpose.
func CollectionRate(paid, agreed float64, decimals int) float64 {
	if agreed <= 0 {
		return 0
	}
	scale := math.Pow(10, float64(decimals))
	return math.Round(paid/agreed*100*scale) / scale
}
