package models

// PaymentStatus classifies a payment cell.
type PaymentStatus string

const (
	PaymentStatusPaid          PaymentStatus = "paid"
	PaymentStatusPartial       PaymentStatus = "partial"
	PaymentStatusUnpaid        PaymentStatus = "unpaid"
	PaymentStatusNotApplicable PaymentStatus = "notApplicable"
)

// AcademicMonths lists the calendar months of the school year in academic
// order, September through June.
var AcademicMonths = []int{9, 10, 11, 12, 1, 2, 3, 4, 5, 6}

// AcademicOrder maps a calendar month to its position in the school year
// (September=1 ... June=10). Months outside the school year still map into
// the 1..12 range so comparisons stay total.
func AcademicOrder(calendarMonth int) int {
	if calendarMonth >= 9 {
		return calendarMonth - 8
	}
	return calendarMonth + 4
}

// CellStatus derives the payment status from agreed and paid amounts.
func CellStatus(agreed, paid float64) PaymentStatus {
	switch {
	case agreed == 0 && paid == 0:
		return PaymentStatusNotApplicable
	case paid >= agreed:
		return PaymentStatusPaid
	case paid > 0:
		return PaymentStatusPartial
	default:
		return PaymentStatusUnpaid
	}
}

// PaymentCell is one derived billing cell. Disabled marks months preceding
// the student's enrollment; Absent marks transport cells with no agreed or
// paid amount, which consumers suppress from rendering but which still
// participate in totals.
type PaymentCell struct {
	Agreed   float64       `json:"agreed"`
	Paid     float64       `json:"paid"`
	Status   PaymentStatus `json:"status"`
	Disabled bool          `json:"disabled,omitempty"`
	Absent   bool          `json:"absent,omitempty"`
}

// NewPaymentCell builds a cell with its derived status.
func NewPaymentCell(agreed, paid float64) PaymentCell {
	return PaymentCell{Agreed: agreed, Paid: paid, Status: CellStatus(agreed, paid)}
}

// MonthLedger groups the cells of one academic month.
type MonthLedger struct {
	Month     int         `json:"month"`
	Tuition   PaymentCell `json:"tuition"`
	Transport PaymentCell `json:"transport"`
	Total     PaymentCell `json:"total"`
}

// StudentLedgerView is the derived month-by-fee-type payment matrix for one
// student.
type StudentLedgerView struct {
	StudentID    string        `json:"student_id"`
	StudentCode  string        `json:"student_code"`
	FullName     string        `json:"full_name"`
	Insurance    PaymentCell   `json:"insurance"`
	Registration PaymentCell   `json:"registration"`
	Months       []MonthLedger `json:"months"`
}
