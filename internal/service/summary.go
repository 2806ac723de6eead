package service

import (
	"github.com/khalidoy/gspfinancefront-sub000/internal/models"
)

// ComputeSummary is the authoritative full recompute of collection totals for
// a student selection (global roster, one class, or a filtered subset). The
// incremental deltas applied by the edit controller must converge to exactly
// this result over the then-current roster.
func ComputeSummary(students []models.StudentRecord) models.SummarySnapshot {
	summary := models.SummarySnapshot{TotalStudents: len(students)}
	for _, student := range students {
		agreed, paid := studentTotals(student)
		summary.TotalAgreed += agreed
		summary.TotalPaid += paid
	}
	summary.OutstandingBalance = summary.TotalAgreed - summary.TotalPaid
	summary.CollectionRate = models.CollectionRate(summary.TotalPaid, summary.TotalAgreed, 0)
	return summary
}
