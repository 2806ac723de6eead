package models

import "strconv"

// StatisticCategory selects a roster statistic to filter by.
type StatisticCategory string

const (
	CategoryNew           StatisticCategory = "new"
	CategoryLeft          StatisticCategory = "left"
	CategoryTransfer      StatisticCategory = "transfer"
	CategoryRegistered    StatisticCategory = "registered"
	CategoryNotRegistered StatisticCategory = "notRegistered"
	CategoryTotal         StatisticCategory = "total"
)

// Valid reports whether the category is one the filter engine understands.
// The empty category is valid and means "no category filtering".
func (c StatisticCategory) Valid() bool {
	switch c {
	case "", CategoryNew, CategoryLeft, CategoryTransfer, CategoryRegistered, CategoryNotRegistered, CategoryTotal:
		return true
	}
	return false
}

// UnpaidMonthInsurance is the UnpaidMonth sentinel selecting the annual
// insurance bucket instead of an academic month.
const UnpaidMonthInsurance = "insurance"

// FilterSpec is a compound roster filter. All present predicates must hold
// (logical AND) for a student to remain in the filtered roster.
type FilterSpec struct {
	Category    StatisticCategory `json:"category,omitempty"`
	UnpaidMonth string            `json:"unpaid_month,omitempty"`
	Search      string            `json:"search,omitempty"`
}

// IsZero reports whether no predicate is set.
func (f FilterSpec) IsZero() bool {
	return (f.Category == "" || f.Category == CategoryTotal) && f.UnpaidMonth == "" && f.Search == ""
}

// UnpaidCalendarMonth parses UnpaidMonth as a calendar month, returning
// ok=false for the insurance sentinel or an empty/invalid value.
func (f FilterSpec) UnpaidCalendarMonth() (int, bool) {
	if f.UnpaidMonth == "" || f.UnpaidMonth == UnpaidMonthInsurance {
		return 0, false
	}
	m, err := strconv.Atoi(f.UnpaidMonth)
	if err != nil || m < 1 || m > 12 {
		return 0, false
	}
	return m, true
}
