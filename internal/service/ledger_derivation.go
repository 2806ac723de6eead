package service

import (
	"github.com/khalidoy/gspfinancefront-sub000/internal/models"
)

// DeriveLedger transforms a raw student record into its month-by-fee-type
// payment matrix. Pure function: no I/O, no shared state. Malformed or
// missing amounts coerce to 0 via FeeMap.Amount.
func DeriveLedger(student models.StudentRecord) models.StudentLedgerView {
	view := models.StudentLedgerView{
		StudentID:    student.ID,
		StudentCode:  student.StudentCode,
		FullName:     student.FullName,
		Insurance:    models.NewPaymentCell(student.Agreed.Amount(models.KeyAnnualInsurance), student.Actual.Amount(models.KeyAnnualInsurance)),
		Registration: models.NewPaymentCell(student.Agreed.Amount(models.KeyAnnualRegistration), student.Actual.Amount(models.KeyAnnualRegistration)),
		Months:       make([]models.MonthLedger, 0, len(models.AcademicMonths)),
	}

	enrollOrder := models.AcademicOrder(student.EnrollmentMonth)
	if student.EnrollmentMonth < 1 || student.EnrollmentMonth > 12 {
		enrollOrder = 1
	}

	for _, month := range models.AcademicMonths {
		disabled := models.AcademicOrder(month) < enrollOrder

		tuition := models.NewPaymentCell(student.Agreed.Amount(models.TuitionKey(month)), student.Actual.Amount(models.TuitionKey(month)))
		tuition.Disabled = disabled

		transport := models.NewPaymentCell(student.Agreed.Amount(models.TransportKey(month)), student.Actual.Amount(models.TransportKey(month)))
		transport.Disabled = disabled
		// Transport with no agreed or paid amount stays in the matrix for
		// totals but is suppressed from rendering.
		transport.Absent = transport.Agreed == 0 && transport.Paid == 0

		total := models.NewPaymentCell(tuition.Agreed+transport.Agreed, tuition.Paid+transport.Paid)
		total.Disabled = disabled

		view.Months = append(view.Months, models.MonthLedger{
			Month:     month,
			Tuition:   tuition,
			Transport: transport,
			Total:     total,
		})
	}

	return view
}

// studentTotals sums agreed and paid across all ten months' tuition and
// transport plus the annual insurance and registration buckets.
func studentTotals(student models.StudentRecord) (agreed, paid float64) {
	for _, month := range models.AcademicMonths {
		agreed += student.Agreed.Amount(models.TuitionKey(month)) + student.Agreed.Amount(models.TransportKey(month))
		paid += student.Actual.Amount(models.TuitionKey(month)) + student.Actual.Amount(models.TransportKey(month))
	}
	agreed += student.Agreed.Amount(models.KeyAnnualInsurance) + student.Agreed.Amount(models.KeyAnnualRegistration)
	paid += student.Actual.Amount(models.KeyAnnualInsurance) + student.Actual.Amount(models.KeyAnnualRegistration)
	return agreed, paid
}
