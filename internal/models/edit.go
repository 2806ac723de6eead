package models

// FeeType names the fee being edited.
type FeeType string

const (
	FeeTypeTuition      FeeType = "tuition"
	FeeTypeTransport    FeeType = "transport"
	FeeTypeInsurance    FeeType = "insurance"
	FeeTypeRegistration FeeType = "registration"
)

// Monthly reports whether the fee type is billed per academic month.
func (t FeeType) Monthly() bool {
	return t == FeeTypeTuition || t == FeeTypeTransport
}

// EditField selects which side of a cell is being edited.
type EditField string

const (
	EditFieldPaid   EditField = "paid"
	EditFieldAgreed EditField = "agreed"
)

// EditRequest is a single in-place amount edit. Month is ignored for annual
// fee types. The request is transient: created per user action, consumed by
// the edit controller, discarded after commit or rollback.
type EditRequest struct {
	StudentID string    `json:"student_id"`
	FeeType   FeeType   `json:"fee_type"`
	Field     EditField `json:"field"`
	Month     int       `json:"month,omitempty"`
	Amount    float64   `json:"amount"`
}

// BucketKey returns the FeeMap key the edit targets.
func (e EditRequest) BucketKey() string {
	switch e.FeeType {
	case FeeTypeTuition:
		return TuitionKey(e.Month)
	case FeeTypeTransport:
		return TransportKey(e.Month)
	case FeeTypeInsurance:
		return KeyAnnualInsurance
	case FeeTypeRegistration:
		return KeyAnnualRegistration
	}
	return ""
}

// MonthlyPaidWrite is the remote-store request persisting a paid-amount edit
// for a monthly fee bucket. When CascadeAgreed is set the agreed amount for
// the edited month and every later academic month is set to Amount as well.
type MonthlyPaidWrite struct {
	StudentID      string
	AcademicYearID string
	FeeType        FeeType
	Month          int
	Amount         float64
	CascadeAgreed  bool
}

// MonthlyAgreedWrite is the remote-store request persisting an agreed-amount
// edit for a monthly fee bucket.
type MonthlyAgreedWrite struct {
	StudentID      string
	AcademicYearID string
	FeeType        FeeType
	Month          int
	Amount         float64
}

// AnnualPaidWrite is the remote-store request for annual buckets (insurance,
// registration). AlsoSetAgreed covers the first-touch rule where entering a
// paid amount on an unset bucket fixes the agreed amount too.
type AnnualPaidWrite struct {
	StudentID      string
	AcademicYearID string
	FeeType        FeeType
	Amount         float64
	AlsoSetAgreed  bool
}

// AnnualAgreedWrite is the remote-store request persisting an agreed-amount
// edit for an annual bucket.
type AnnualAgreedWrite struct {
	StudentID      string
	AcademicYearID string
	FeeType        FeeType
	Amount         float64
}

// AmountChange records one before/after pair inside an edit transaction.
type AmountChange struct {
	Field  EditField
	Key    string
	Before float64
	After  float64
}

// EditTransaction captures everything a single committed edit touched so the
// exact delta can be reverted if the remote write fails. It never spans more
// than one student.
type EditTransaction struct {
	StudentID      string
	Request        EditRequest
	Changes        []AmountChange
	CascadeApplied bool
}

// AgreedDelta sums the agreed-side delta across all changes.
func (t EditTransaction) AgreedDelta() float64 {
	var d float64
	for _, c := range t.Changes {
		if c.Field == EditFieldAgreed {
			d += c.After - c.Before
		}
	}
	return d
}

// PaidDelta sums the paid-side delta across all changes.
func (t EditTransaction) PaidDelta() float64 {
	var d float64
	for _, c := range t.Changes {
		if c.Field == EditFieldPaid {
			d += c.After - c.Before
		}
	}
	return d
}
