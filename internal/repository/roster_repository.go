package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/khalidoy/gspfinancefront-sub000/internal/models"
)

// RosterRepository loads student rosters from the record store. It is the
// authoritative resync source for the in-memory ledger.
type RosterRepository struct {
	db *sqlx.DB
}

// NewRosterRepository constructs a RosterRepository.
func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

type rosterRow struct {
	models.StudentRecord
	ClassID     *string `db:"class_id"`
	ClassName   *string `db:"class_name"`
	SectionName *string `db:"section_name"`
}

const rosterColumns = `s.id, s.academic_year_id, s.student_code, s.full_name, s.enrollment_status,
        s.is_new_student, s.is_transfer_student, s.enrollment_month, s.agreed_fees, s.actual_fees,
        s.created_at, s.updated_at,
        c.id AS class_id, c.name AS class_name, c.section AS section_name`

// FetchRoster returns the full roster for one academic year ordered by name.
func (r *RosterRepository) FetchRoster(ctx context.Context, academicYearID string) ([]models.StudentRecord, error) {
	query := fmt.Sprintf(`SELECT %s
        FROM students s
        LEFT JOIN classes c ON c.id = s.class_id
        WHERE s.academic_year_id = $1
        ORDER BY s.full_name ASC, s.id ASC`, rosterColumns)

	var rows []rosterRow
	if err := r.db.SelectContext(ctx, &rows, query, academicYearID); err != nil {
		return nil, fmt.Errorf("fetch roster: %w", err)
	}

	roster := make([]models.StudentRecord, 0, len(rows))
	for _, row := range rows {
		roster = append(roster, row.toRecord())
	}
	return roster, nil
}

// FindByID fetches a single roster entry.
func (r *RosterRepository) FindByID(ctx context.Context, studentID string) (*models.StudentRecord, error) {
	query := fmt.Sprintf(`SELECT %s
        FROM students s
        LEFT JOIN classes c ON c.id = s.class_id
        WHERE s.id = $1`, rosterColumns)

	var row rosterRow
	if err := r.db.GetContext(ctx, &row, query, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	record := row.toRecord()
	return &record, nil
}

func (row rosterRow) toRecord() models.StudentRecord {
	record := row.StudentRecord
	if row.ClassID != nil && *row.ClassID != "" {
		ref := models.ClassRef{ClassID: *row.ClassID}
		if row.ClassName != nil {
			ref.ClassName = *row.ClassName
		}
		if row.SectionName != nil {
			ref.SectionName = *row.SectionName
		}
		record.Class = &ref
	}
	return record
}
