package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/khalidoy/gspfinancefront-sub000/internal/models"
)

// PaymentRepository persists amount edits against the record store. Amounts
// live inside the students table's JSONB fee columns.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const setActualQuery = `UPDATE students
        SET actual_fees = jsonb_set(COALESCE(actual_fees, '{}'::jsonb), ARRAY[$3], to_jsonb($4::numeric), true), updated_at = $5
        WHERE id = $1 AND academic_year_id = $2`

const setAgreedQuery = `UPDATE students
        SET agreed_fees = jsonb_set(COALESCE(agreed_fees, '{}'::jsonb), ARRAY[$3], to_jsonb($4::numeric), true), updated_at = $5
        WHERE id = $1 AND academic_year_id = $2`

// WriteMonthlyPaid stores a monthly paid amount, optionally propagating the
// agreed amount to the edited and all later academic months.
func (r *PaymentRepository) WriteMonthlyPaid(ctx context.Context, w models.MonthlyPaidWrite) error {
	key, err := monthlyKey(w.FeeType, w.Month)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin payment write: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := execWrite(ctx, tx, setActualQuery, w.StudentID, w.AcademicYearID, key, w.Amount, now); err != nil {
		return err
	}
	if w.CascadeAgreed {
		for _, month := range cascadeMonths(w.Month) {
			agreedKey, err := monthlyKey(w.FeeType, month)
			if err != nil {
				return err
			}
			if err := execWrite(ctx, tx, setAgreedQuery, w.StudentID, w.AcademicYearID, agreedKey, w.Amount, now); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit payment write: %w", err)
	}
	return nil
}

// WriteMonthlyAgreed stores a monthly agreed amount.
func (r *PaymentRepository) WriteMonthlyAgreed(ctx context.Context, w models.MonthlyAgreedWrite) error {
	key, err := monthlyKey(w.FeeType, w.Month)
	if err != nil {
		return err
	}
	return execWrite(ctx, r.db, setAgreedQuery, w.StudentID, w.AcademicYearID, key, w.Amount, time.Now().UTC())
}

// WriteAnnualPaid stores an annual paid amount, optionally fixing the agreed
// amount in the same transaction (insurance first-touch).
func (r *PaymentRepository) WriteAnnualPaid(ctx context.Context, w models.AnnualPaidWrite) error {
	key, err := annualKey(w.FeeType)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	if !w.AlsoSetAgreed {
		return execWrite(ctx, r.db, setActualQuery, w.StudentID, w.AcademicYearID, key, w.Amount, now)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin annual write: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := execWrite(ctx, tx, setActualQuery, w.StudentID, w.AcademicYearID, key, w.Amount, now); err != nil {
		return err
	}
	if err := execWrite(ctx, tx, setAgreedQuery, w.StudentID, w.AcademicYearID, key, w.Amount, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit annual write: %w", err)
	}
	return nil
}

// WriteAnnualAgreed stores an annual agreed amount.
func (r *PaymentRepository) WriteAnnualAgreed(ctx context.Context, w models.AnnualAgreedWrite) error {
	key, err := annualKey(w.FeeType)
	if err != nil {
		return err
	}
	return execWrite(ctx, r.db, setAgreedQuery, w.StudentID, w.AcademicYearID, key, w.Amount, time.Now().UTC())
}

func execWrite(ctx context.Context, e sqlx.ExtContext, query, studentID, yearID, key string, amount float64, now time.Time) error {
	res, err := e.ExecContext(ctx, query, studentID, yearID, key, amount, now)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("write %s: student %s not found in year %s", key, studentID, yearID)
	}
	return nil
}

func monthlyKey(feeType models.FeeType, month int) (string, error) {
	if month < 1 || month > 12 {
		return "", fmt.Errorf("invalid calendar month %d", month)
	}
	switch feeType {
	case models.FeeTypeTuition:
		return models.TuitionKey(month), nil
	case models.FeeTypeTransport:
		return models.TransportKey(month), nil
	}
	return "", fmt.Errorf("fee type %s is not monthly", feeType)
}

func annualKey(feeType models.FeeType) (string, error) {
	switch feeType {
	case models.FeeTypeInsurance:
		return models.KeyAnnualInsurance, nil
	case models.FeeTypeRegistration:
		return models.KeyAnnualRegistration, nil
	}
	return "", fmt.Errorf("fee type %s is not annual", feeType)
}

// cascadeMonths lists the calendar months from the given month to the end of
// the school year in academic order.
func cascadeMonths(from int) []int {
	start := models.AcademicOrder(from)
	months := make([]int, 0, len(models.AcademicMonths))
	for _, month := range models.AcademicMonths {
		if models.AcademicOrder(month) >= start {
			months = append(months, month)
		}
	}
	return months
}
