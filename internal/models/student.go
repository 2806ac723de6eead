package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// EnrollmentStatus describes where a student currently stands in the school.
type EnrollmentStatus string

const (
	EnrollmentStatusActive      EnrollmentStatus = "ACTIVE"
	EnrollmentStatusWithdrawn   EnrollmentStatus = "WITHDRAWN"
	EnrollmentStatusSuspended   EnrollmentStatus = "SUSPENDED"
	EnrollmentStatusGraduated   EnrollmentStatus = "GRADUATED"
	EnrollmentStatusTransferred EnrollmentStatus = "TRANSFERRED"
)

// HasLeft reports whether the status belongs to the "left school" set.
func (s EnrollmentStatus) HasLeft() bool {
	switch s {
	case EnrollmentStatusWithdrawn, EnrollmentStatusSuspended, EnrollmentStatusGraduated, EnrollmentStatusTransferred:
		return true
	}
	return false
}

// Annual fee bucket keys inside a FeeMap.
const (
	KeyAnnualInsurance    = "annualInsurance"
	KeyAnnualRegistration = "annualRegistration"
)

// TuitionKey returns the FeeMap key for a calendar month's tuition bucket.
func TuitionKey(month int) string {
	return strconv.Itoa(month) + "_tuition"
}

// TransportKey returns the FeeMap key for a calendar month's transport bucket.
func TransportKey(month int) string {
	return strconv.Itoa(month) + "_transport"
}

// FeeMap maps fee bucket keys ("9_tuition", "annualInsurance", ...) to amounts.
// It is stored as a JSONB column.
type FeeMap map[string]float64

// Amount returns the amount recorded under key, coercing missing or malformed
// values (negative, NaN, Inf) to 0 so external data can never crash derivation.
func (m FeeMap) Amount(key string) float64 {
	if m == nil {
		return 0
	}
	v, ok := m[key]
	if !ok {
		return 0
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Clone returns a deep copy of the map.
func (m FeeMap) Clone() FeeMap {
	if m == nil {
		return nil
	}
	out := make(FeeMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Value implements driver.Valuer for JSONB storage.
func (m FeeMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB columns.
func (m *FeeMap) Scan(src interface{}) error {
	if src == nil {
		*m = FeeMap{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("fee map: unsupported scan type %T", src)
	}
	if len(raw) == 0 {
		*m = FeeMap{}
		return nil
	}
	return json.Unmarshal(raw, m)
}

// ClassRef identifies the class and section a student is enrolled in.
type ClassRef struct {
	ClassID     string `db:"class_id" json:"class_id"`
	ClassName   string `db:"class_name" json:"class_name"`
	SectionName string `db:"section_name" json:"section_name"`
}

// StudentRecord is the raw roster entry fetched from the record store. It is
// the single source of truth the derived views are computed from.
type StudentRecord struct {
	ID                string           `db:"id" json:"id"`
	AcademicYearID    string           `db:"academic_year_id" json:"academic_year_id"`
	StudentCode       string           `db:"student_code" json:"student_code"`
	FullName          string           `db:"full_name" json:"full_name"`
	EnrollmentStatus  EnrollmentStatus `db:"enrollment_status" json:"enrollment_status"`
	IsNewStudent      bool             `db:"is_new_student" json:"is_new_student"`
	IsTransferStudent bool             `db:"is_transfer_student" json:"is_transfer_student"`
	EnrollmentMonth   int              `db:"enrollment_month" json:"enrollment_month"`
	Class             *ClassRef        `json:"class,omitempty"`
	Agreed            FeeMap           `db:"agreed_fees" json:"agreed"`
	Actual            FeeMap           `db:"actual_fees" json:"actual"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updated_at"`
}

// Clone returns a deep copy safe to hand out of the store.
func (r StudentRecord) Clone() StudentRecord {
	out := r
	out.Agreed = r.Agreed.Clone()
	out.Actual = r.Actual.Clone()
	if r.Class != nil {
		ref := *r.Class
		out.Class = &ref
	}
	return out
}
