package service

import (
	"sort"
	"strings"

	"github.com/khalidoy/gspfinancefront-sub000/internal/models"
)

// FilterRoster evaluates a compound filter over the roster. All present
// predicates are combined by AND; an empty spec returns the roster unchanged
// in order.
func FilterRoster(roster []models.StudentRecord, spec models.FilterSpec) []models.StudentRecord {
	out := make([]models.StudentRecord, 0, len(roster))
	search := strings.ToLower(strings.TrimSpace(spec.Search))

	for _, student := range roster {
		if search != "" && !matchesSearch(student, search) {
			continue
		}
		if !matchesCategory(student, spec.Category) {
			continue
		}
		if spec.UnpaidMonth != "" && !isUnpaidForMonth(student, spec) {
			continue
		}
		out = append(out, student)
	}
	return out
}

func matchesSearch(student models.StudentRecord, loweredQuery string) bool {
	return strings.Contains(strings.ToLower(student.FullName), loweredQuery) ||
		strings.Contains(strings.ToLower(student.StudentCode), loweredQuery)
}

func matchesCategory(student models.StudentRecord, category models.StatisticCategory) bool {
	switch category {
	case "", models.CategoryTotal:
		return true
	case models.CategoryLeft:
		return student.EnrollmentStatus.HasLeft()
	}
	// Every remaining category is scoped to students still in school.
	if student.EnrollmentStatus.HasLeft() {
		return false
	}
	switch category {
	case models.CategoryNew:
		return student.IsNewStudent
	case models.CategoryTransfer:
		return student.IsTransferStudent
	case models.CategoryRegistered:
		return student.Actual.Amount(models.KeyAnnualInsurance) > 0
	case models.CategoryNotRegistered:
		return student.Actual.Amount(models.KeyAnnualInsurance) == 0
	}
	return true
}

// isUnpaidForMonth is defined purely on the paid side: agreed amounts are
// deliberately ignored.
func isUnpaidForMonth(student models.StudentRecord, spec models.FilterSpec) bool {
	if spec.UnpaidMonth == models.UnpaidMonthInsurance {
		return student.Actual.Amount(models.KeyAnnualInsurance) == 0
	}
	month, ok := spec.UnpaidCalendarMonth()
	if !ok {
		return true
	}
	paid := student.Actual.Amount(models.TuitionKey(month)) + student.Actual.Amount(models.TransportKey(month))
	return paid == 0
}

// BucketByClass groups a filtered roster into per-class buckets with
// aggregated stats. Students without a class land in the "no-class" bucket.
// Buckets are ordered by class name, sentinel last.
func BucketByClass(filtered []models.StudentRecord) []models.ClassBucket {
	byClass := make(map[string]*models.ClassBucket)
	order := make([]string, 0)

	for _, student := range filtered {
		id := models.NoClassBucketID
		name := ""
		section := ""
		if student.Class != nil && student.Class.ClassID != "" {
			id = student.Class.ClassID
			name = student.Class.ClassName
			section = student.Class.SectionName
		}
		bucket, ok := byClass[id]
		if !ok {
			bucket = &models.ClassBucket{ClassID: id, ClassName: name, SectionName: section}
			byClass[id] = bucket
			order = append(order, id)
		}
		bucket.Students = append(bucket.Students, student)

		agreed, paid := studentTotals(student)
		bucket.TotalAgreed += agreed
		bucket.TotalPaid += paid
		if agreed > 0 && paid >= agreed {
			bucket.FullyPaidCount++
		}
		if agreed > 0 && paid == 0 {
			bucket.UnpaidCount++
		}
	}

	buckets := make([]models.ClassBucket, 0, len(order))
	for _, id := range order {
		bucket := byClass[id]
		bucket.CollectionRate = models.CollectionRate(bucket.TotalPaid, bucket.TotalAgreed, 1)
		buckets = append(buckets, *bucket)
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		if (buckets[i].ClassID == models.NoClassBucketID) != (buckets[j].ClassID == models.NoClassBucketID) {
			return buckets[j].ClassID == models.NoClassBucketID
		}
		return buckets[i].ClassName < buckets[j].ClassName
	})
	return buckets
}
