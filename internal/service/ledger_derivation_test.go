package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khalidoy/gspfinancefront-sub000/internal/models"
)

func monthCell(t *testing.T, view models.StudentLedgerView, month int) models.MonthLedger {
	t.Helper()
	for _, m := range view.Months {
		if m.Month == month {
			return m
		}
	}
	t.Fatalf("month %d not in view", month)
	return models.MonthLedger{}
}

func TestDeriveLedgerStatuses(t *testing.T) {
	student := models.StudentRecord{
		ID:              "s1",
		StudentCode:     "STU-001",
		FullName:        "Amina Berrada",
		EnrollmentMonth: 9,
		Agreed: models.FeeMap{
			models.TuitionKey(9):      500,
			models.TuitionKey(10):     500,
			models.TuitionKey(11):     500,
			models.KeyAnnualInsurance: 100,
		},
		Actual: models.FeeMap{
			models.TuitionKey(9):      500,
			models.TuitionKey(10):     200,
			models.KeyAnnualInsurance: 100,
		},
	}

	view := DeriveLedger(student)
	require.Len(t, view.Months, 10)
	assert.Equal(t, []int{9, 10, 11, 12, 1, 2, 3, 4, 5, 6}, func() []int {
		months := make([]int, 0, len(view.Months))
		for _, m := range view.Months {
			months = append(months, m.Month)
		}
		return months
	}())

	assert.Equal(t, models.PaymentStatusPaid, monthCell(t, view, 9).Tuition.Status)
	assert.Equal(t, models.PaymentStatusPartial, monthCell(t, view, 10).Tuition.Status)
	assert.Equal(t, models.PaymentStatusUnpaid, monthCell(t, view, 11).Tuition.Status)
	assert.Equal(t, models.PaymentStatusNotApplicable, monthCell(t, view, 12).Tuition.Status)
	assert.Equal(t, models.PaymentStatusPaid, view.Insurance.Status)
	assert.Equal(t, models.PaymentStatusNotApplicable, view.Registration.Status)
}

func TestDeriveLedgerEnrollmentGating(t *testing.T) {
	student := models.StudentRecord{
		ID:              "s2",
		EnrollmentMonth: 11,
		Agreed:          models.FeeMap{models.KeyAnnualInsurance: 100},
	}

	view := DeriveLedger(student)

	assert.True(t, monthCell(t, view, 9).Tuition.Disabled)
	assert.True(t, monthCell(t, view, 10).Total.Disabled)
	assert.False(t, monthCell(t, view, 11).Tuition.Disabled)
	assert.False(t, monthCell(t, view, 1).Tuition.Disabled)
	assert.False(t, monthCell(t, view, 6).Tuition.Disabled)

	// Annual buckets never follow the enrollment gate.
	assert.False(t, view.Insurance.Disabled)
	assert.False(t, view.Registration.Disabled)
}

func TestDeriveLedgerInvalidEnrollmentMonthDefaultsToSeptember(t *testing.T) {
	view := DeriveLedger(models.StudentRecord{ID: "s3", EnrollmentMonth: 0})
	for _, m := range view.Months {
		assert.False(t, m.Tuition.Disabled, "month %d should not be gated", m.Month)
	}
}

func TestDeriveLedgerTransportAbsent(t *testing.T) {
	student := models.StudentRecord{
		ID:              "s4",
		EnrollmentMonth: 9,
		Agreed: models.FeeMap{
			models.TuitionKey(9):    400,
			models.TransportKey(10): 150,
		},
		Actual: models.FeeMap{models.TransportKey(11): 150},
	}

	view := DeriveLedger(student)

	assert.True(t, monthCell(t, view, 9).Transport.Absent)
	assert.False(t, monthCell(t, view, 10).Transport.Absent)
	assert.False(t, monthCell(t, view, 11).Transport.Absent)
	// Absent cells still contribute zero, so the total equals tuition alone.
	assert.Equal(t, 400.0, monthCell(t, view, 9).Total.Agreed)
}

func TestDeriveLedgerCoercesMalformedAmounts(t *testing.T) {
	student := models.StudentRecord{
		ID:              "s5",
		EnrollmentMonth: 9,
		Agreed: models.FeeMap{
			models.TuitionKey(9):  math.NaN(),
			models.TuitionKey(10): math.Inf(1),
			models.TuitionKey(11): -300,
		},
	}

	view := DeriveLedger(student)

	assert.Equal(t, 0.0, monthCell(t, view, 9).Tuition.Agreed)
	assert.Equal(t, 0.0, monthCell(t, view, 10).Tuition.Agreed)
	assert.Equal(t, 0.0, monthCell(t, view, 11).Tuition.Agreed)
	assert.Equal(t, models.PaymentStatusNotApplicable, monthCell(t, view, 11).Tuition.Status)
}

func TestDeriveLedgerMonthTotals(t *testing.T) {
	student := models.StudentRecord{
		ID:              "s6",
		EnrollmentMonth: 9,
		Agreed: models.FeeMap{
			models.TuitionKey(9):   500,
			models.TransportKey(9): 150,
		},
		Actual: models.FeeMap{
			models.TuitionKey(9):   500,
			models.TransportKey(9): 100,
		},
	}

	total := monthCell(t, DeriveLedger(student), 9).Total
	assert.Equal(t, 650.0, total.Agreed)
	assert.Equal(t, 600.0, total.Paid)
	assert.Equal(t, models.PaymentStatusPartial, total.Status)
}
