package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/khalidoy/gspfinancefront-sub000/internal/models"
	appErrors "github.com/khalidoy/gspfinancefront-sub000/pkg/errors"
)

type fakeRemote struct {
	mu       sync.Mutex
	roster   []models.StudentRecord
	fetchErr error
	writeErr error

	monthlyPaid   []models.MonthlyPaidWrite
	monthlyAgreed []models.MonthlyAgreedWrite
	annualPaid    []models.AnnualPaidWrite
	annualAgreed  []models.AnnualAgreedWrite

	writeStarted chan struct{}
	writeRelease chan struct{}
}

func (f *fakeRemote) FetchRoster(context.Context, string) ([]models.StudentRecord, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]models.StudentRecord, len(f.roster))
	for i, s := range f.roster {
		out[i] = s.Clone()
	}
	return out, nil
}

func (f *fakeRemote) waitIfBlocked() {
	if f.writeStarted != nil {
		f.writeStarted <- struct{}{}
		<-f.writeRelease
	}
}

func (f *fakeRemote) WriteMonthlyPaid(_ context.Context, w models.MonthlyPaidWrite) error {
	f.waitIfBlocked()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.monthlyPaid = append(f.monthlyPaid, w)
	return nil
}

func (f *fakeRemote) WriteMonthlyAgreed(_ context.Context, w models.MonthlyAgreedWrite) error {
	f.waitIfBlocked()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.monthlyAgreed = append(f.monthlyAgreed, w)
	return nil
}

func (f *fakeRemote) WriteAnnualPaid(_ context.Context, w models.AnnualPaidWrite) error {
	f.waitIfBlocked()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.annualPaid = append(f.annualPaid, w)
	return nil
}

func (f *fakeRemote) WriteAnnualAgreed(_ context.Context, w models.AnnualAgreedWrite) error {
	f.waitIfBlocked()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.annualAgreed = append(f.annualAgreed, w)
	return nil
}

func newTestStore(remote *fakeRemote) *LedgerStore {
	return NewLedgerStore(remote, nil, nil, zap.NewNop(), LedgerStoreConfig{})
}

func storeRoster() []models.StudentRecord {
	return []models.StudentRecord{
		{
			ID: "s1", StudentCode: "STU-001", FullName: "Amina Berrada",
			EnrollmentStatus: models.EnrollmentStatusActive, EnrollmentMonth: 9,
			Class:  &models.ClassRef{ClassID: "c1", ClassName: "CE1 A"},
			Agreed: models.FeeMap{models.TuitionKey(9): 1000},
			Actual: models.FeeMap{},
		},
		{
			ID: "s2", StudentCode: "STU-002", FullName: "Bilal Cherkaoui",
			EnrollmentStatus: models.EnrollmentStatusActive, EnrollmentMonth: 9,
			Agreed: models.FeeMap{},
			Actual: models.FeeMap{},
		},
	}
}

func TestSnapshotLoadsRosterOnFirstAccess(t *testing.T) {
	store := newTestStore(&fakeRemote{roster: storeRoster()})

	snapshot, err := store.Snapshot(context.Background(), "2025")
	require.NoError(t, err)
	assert.Equal(t, "2025", snapshot.AcademicYearID)
	assert.Len(t, snapshot.Students, 2)
	assert.Equal(t, 1000.0, snapshot.Summary.TotalAgreed)
}

func TestSnapshotRequiresYear(t *testing.T) {
	store := newTestStore(&fakeRemote{})
	_, err := store.Snapshot(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestApplyEditPaidCeilingAndPartial(t *testing.T) {
	remote := &fakeRemote{roster: storeRoster()}
	store := newTestStore(remote)
	ctx := context.Background()

	// 3000 exceeds the monthly paid ceiling; nothing may change.
	_, err := store.ApplyEdit(ctx, "2025", models.EditRequest{
		StudentID: "s1", FeeType: models.FeeTypeTuition, Field: models.EditFieldPaid, Month: 9, Amount: 3000,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, remote.monthlyPaid)

	view, err := store.StudentLedger(ctx, "2025", "s1")
	require.NoError(t, err)
	assert.Zero(t, view.Months[0].Tuition.Paid)

	// 900 against agreed 1000 commits and lands as a partial cell.
	result, err := store.ApplyEdit(ctx, "2025", models.EditRequest{
		StudentID: "s1", FeeType: models.FeeTypeTuition, Field: models.EditFieldPaid, Month: 9, Amount: 900,
	})
	require.NoError(t, err)
	assert.Equal(t, 900.0, result.Student.Months[0].Tuition.Paid)
	assert.Equal(t, models.PaymentStatusPartial, result.Student.Months[0].Tuition.Status)
	assert.False(t, result.CascadeApplied)
	require.Len(t, remote.monthlyPaid, 1)
	assert.Equal(t, 900.0, remote.monthlyPaid[0].Amount)
	assert.False(t, remote.monthlyPaid[0].CascadeAgreed)
}

func TestApplyEditPaidCannotExceedAgreed(t *testing.T) {
	store := newTestStore(&fakeRemote{roster: storeRoster()})

	_, err := store.ApplyEdit(context.Background(), "2025", models.EditRequest{
		StudentID: "s1", FeeType: models.FeeTypeTuition, Field: models.EditFieldPaid, Month: 9, Amount: 1200,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestApplyEditAgreedCeilingAndFloor(t *testing.T) {
	remote := &fakeRemote{roster: storeRoster()}
	store := newTestStore(remote)
	ctx := context.Background()

	_, err := store.ApplyEdit(ctx, "2025", models.EditRequest{
		StudentID: "s1", FeeType: models.FeeTypeTuition, Field: models.EditFieldAgreed, Month: 9, Amount: 6000,
	})
	require.Error(t, err)

	// Set some payment first, then try to lower agreed below it.
	_, err = store.ApplyEdit(ctx, "2025", models.EditRequest{
		StudentID: "s1", FeeType: models.FeeTypeTuition, Field: models.EditFieldPaid, Month: 9, Amount: 800,
	})
	require.NoError(t, err)

	_, err = store.ApplyEdit(ctx, "2025", models.EditRequest{
		StudentID: "s1", FeeType: models.FeeTypeTuition, Field: models.EditFieldAgreed, Month: 9, Amount: 500,
	})
	require.Error(t, err)

	result, err := store.ApplyEdit(ctx, "2025", models.EditRequest{
		StudentID: "s1", FeeType: models.FeeTypeTuition, Field: models.EditFieldAgreed, Month: 9, Amount: 1200,
	})
	require.NoError(t, err)
	assert.Equal(t, 1200.0, result.Student.Months[0].Tuition.Agreed)
	require.Len(t, remote.monthlyAgreed, 1)
}

func TestApplyEditAnnualAgreedCeiling(t *testing.T) {
	store := newTestStore(&fakeRemote{roster: storeRoster()})

	_, err := store.ApplyEdit(context.Background(), "2025", models.EditRequest{
		StudentID: "s1", FeeType: models.FeeTypeInsurance, Field: models.EditFieldAgreed, Amount: 2000,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestApplyEditRejectsBadInput(t *testing.T) {
	store := newTestStore(&fakeRemote{roster: storeRoster()})
	ctx := context.Background()

	cases := []models.EditRequest{
		{StudentID: "s1", FeeType: models.FeeTypeTuition, Field: models.EditFieldPaid, Month: 9, Amount: -5},
		{StudentID: "s1", FeeType: models.FeeTypeTuition, Field: models.EditFieldPaid, Month: 7, Amount: 100},
		{StudentID: "s1", FeeType: models.FeeTypeTuition, Field: models.EditFieldPaid, Month: 0, Amount: 100},
		{StudentID: "s1", FeeType: "insurancee", Field: models.EditFieldPaid, Amount: 100},
		{StudentID: "s1", FeeType: models.FeeTypeTuition, Field: "payed", Month: 9, Amount: 100},
		{StudentID: "missing", FeeType: models.FeeTypeTuition, Field: models.EditFieldPaid, Month: 9, Amount: 100},
	}
	for _, req := range cases {
		_, err := store.ApplyEdit(ctx, "2025", req)
		assert.Error(t, err, "request %+v should be rejected", req)
	}
}

func TestApplyEditMonthlyCascade(t *testing.T) {
	remote := &fakeRemote{roster: storeRoster()}
	store := newTestStore(remote)

	// s2 has no agreed tuition anywhere. Paying 500 for November fixes the
	// agreed amount for November through June, not for September and October.
	result, err := store.ApplyEdit(context.Background(), "2025", models.EditRequest{
		StudentID: "s2", FeeType: models.FeeTypeTuition, Field: models.EditFieldPaid, Month: 11, Amount: 500,
	})
	require.NoError(t, err)
	assert.True(t, result.CascadeApplied)

	byMonth := make(map[int]models.MonthLedger)
	for _, m := range result.Student.Months {
		byMonth[m.Month] = m
	}
	assert.Zero(t, byMonth[9].Tuition.Agreed)
	assert.Zero(t, byMonth[10].Tuition.Agreed)
	for _, month := range []int{11, 12, 1, 2, 3, 4, 5, 6} {
		assert.Equal(t, 500.0, byMonth[month].Tuition.Agreed, "month %d", month)
	}
	assert.Equal(t, 500.0, byMonth[11].Tuition.Paid)
	assert.Equal(t, models.PaymentStatusPaid, byMonth[11].Tuition.Status)

	require.Len(t, remote.monthlyPaid, 1)
	assert.True(t, remote.monthlyPaid[0].CascadeAgreed)
}

func TestApplyEditInsuranceFirstTouch(t *testing.T) {
	remote := &fakeRemote{roster: storeRoster()}
	store := newTestStore(remote)

	result, err := store.ApplyEdit(context.Background(), "2025", models.EditRequest{
		StudentID: "s2", FeeType: models.FeeTypeInsurance, Field: models.EditFieldPaid, Amount: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, result.Student.Insurance.Agreed)
	assert.Equal(t, 100.0, result.Student.Insurance.Paid)
	assert.Equal(t, models.PaymentStatusPaid, result.Student.Insurance.Status)

	require.Len(t, remote.annualPaid, 1)
	assert.True(t, remote.annualPaid[0].AlsoSetAgreed)
}

func TestApplyEditRollbackOnRemoteFailure(t *testing.T) {
	remote := &fakeRemote{roster: storeRoster(), writeErr: errors.New("connection refused")}
	store := newTestStore(remote)
	ctx := context.Background()

	before, err := store.Snapshot(ctx, "2025")
	require.NoError(t, err)

	_, err = store.ApplyEdit(ctx, "2025", models.EditRequest{
		StudentID: "s1", FeeType: models.FeeTypeTuition, Field: models.EditFieldPaid, Month: 9, Amount: 900,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSyncFailed.Code, appErrors.FromError(err).Code)

	// The cell and summary are restored to their pre-edit values.
	view, err := store.StudentLedger(ctx, "2025", "s1")
	require.NoError(t, err)
	assert.Zero(t, view.Months[0].Tuition.Paid)

	after, err := store.Snapshot(ctx, "2025")
	require.NoError(t, err)
	assert.Equal(t, before.Summary, after.Summary)

	// A retry after the outage commits normally.
	remote.writeErr = nil
	_, err = store.ApplyEdit(ctx, "2025", models.EditRequest{
		StudentID: "s1", FeeType: models.FeeTypeTuition, Field: models.EditFieldPaid, Month: 9, Amount: 900,
	})
	require.NoError(t, err)
}

func TestApplyEditRejectsConcurrentCellEdit(t *testing.T) {
	remote := &fakeRemote{
		roster:       storeRoster(),
		writeStarted: make(chan struct{}),
		writeRelease: make(chan struct{}),
	}
	store := newTestStore(remote)
	ctx := context.Background()

	_, err := store.Snapshot(ctx, "2025")
	require.NoError(t, err)

	firstDone := make(chan error, 1)
	go func() {
		_, err := store.ApplyEdit(ctx, "2025", models.EditRequest{
			StudentID: "s1", FeeType: models.FeeTypeTuition, Field: models.EditFieldPaid, Month: 9, Amount: 400,
		})
		firstDone <- err
	}()

	<-remote.writeStarted

	// While the first write is in flight the same cell refuses a second edit.
	_, err = store.ApplyEdit(ctx, "2025", models.EditRequest{
		StudentID: "s1", FeeType: models.FeeTypeTuition, Field: models.EditFieldPaid, Month: 9, Amount: 600,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrEditInFlight.Code, appErrors.FromError(err).Code)

	// A different cell is unaffected.
	secondDone := make(chan error, 1)
	go func() {
		_, err := store.ApplyEdit(ctx, "2025", models.EditRequest{
			StudentID: "s1", FeeType: models.FeeTypeTuition, Field: models.EditFieldPaid, Month: 10, Amount: 0,
		})
		secondDone <- err
	}()
	<-remote.writeStarted

	remote.writeRelease <- struct{}{}
	remote.writeRelease <- struct{}{}
	require.NoError(t, <-firstDone)
	require.NoError(t, <-secondDone)
}

func TestApplyEditStudentRemovedByRefreshMidFlight(t *testing.T) {
	remote := &fakeRemote{
		roster:       storeRoster(),
		writeStarted: make(chan struct{}),
		writeRelease: make(chan struct{}),
	}
	store := newTestStore(remote)
	ctx := context.Background()

	_, err := store.Snapshot(ctx, "2025")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := store.ApplyEdit(ctx, "2025", models.EditRequest{
			StudentID: "s1", FeeType: models.FeeTypeTuition, Field: models.EditFieldPaid, Month: 9, Amount: 400,
		})
		done <- err
	}()
	<-remote.writeStarted

	// The student leaves the roster while the write is outstanding.
	remote.roster = remote.roster[1:]
	require.NoError(t, store.RefreshFromRemote(ctx, "2025"))

	remote.writeRelease <- struct{}{}
	err = <-done
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	// The refreshed roster stays authoritative; the remote write itself landed.
	snapshot, err := store.Snapshot(ctx, "2025")
	require.NoError(t, err)
	require.Len(t, snapshot.Students, 1)
	assert.Equal(t, "s2", snapshot.Students[0].ID)
	require.Len(t, remote.monthlyPaid, 1)
	assert.Equal(t, "s1", remote.monthlyPaid[0].StudentID)
}

func TestSetFilterRecomputesSummaryAndEditDeltas(t *testing.T) {
	remote := &fakeRemote{roster: storeRoster()}
	store := newTestStore(remote)
	ctx := context.Background()

	snapshot, err := store.SetFilter(ctx, "2025", models.FilterSpec{Search: "berrada"})
	require.NoError(t, err)
	require.Len(t, snapshot.Students, 1)
	assert.Equal(t, 1000.0, snapshot.Summary.TotalAgreed)
	assert.Equal(t, 1, snapshot.Summary.TotalStudents)

	// Editing the selected student adjusts the selection summary in place.
	result, err := store.ApplyEdit(ctx, "2025", models.EditRequest{
		StudentID: "s1", FeeType: models.FeeTypeTuition, Field: models.EditFieldPaid, Month: 9, Amount: 600,
	})
	require.NoError(t, err)
	assert.Equal(t, 600.0, result.Summary.TotalPaid)
	assert.Equal(t, 400.0, result.Summary.OutstandingBalance)
	assert.Equal(t, 60.0, result.Summary.CollectionRate)

	// Editing a student outside the selection leaves the summary alone.
	result, err = store.ApplyEdit(ctx, "2025", models.EditRequest{
		StudentID: "s2", FeeType: models.FeeTypeRegistration, Field: models.EditFieldAgreed, Amount: 250,
	})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, result.Summary.TotalAgreed)
	assert.Equal(t, 600.0, result.Summary.TotalPaid)
}

func TestEditAcrossSelectionBoundaryConvergesOnRefresh(t *testing.T) {
	remote := &fakeRemote{roster: storeRoster()}
	store := newTestStore(remote)
	ctx := context.Background()

	snapshot, err := store.SetFilter(ctx, "2025", models.FilterSpec{UnpaidMonth: "9"})
	require.NoError(t, err)
	assert.Equal(t, 2, snapshot.Summary.TotalStudents)
	assert.Equal(t, 1000.0, snapshot.Summary.TotalAgreed)

	// Paying September moves the student out of the unpaid selection; the
	// edit applies no delta and the stale totals stand until a recompute.
	result, err := store.ApplyEdit(ctx, "2025", models.EditRequest{
		StudentID: "s1", FeeType: models.FeeTypeTuition, Field: models.EditFieldPaid, Month: 9, Amount: 400,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Summary.TotalStudents)
	assert.Equal(t, 1000.0, result.Summary.TotalAgreed)
	assert.Equal(t, 0.0, result.Summary.TotalPaid)

	// The refresh recomputes the summary over the shrunken selection.
	refreshed := storeRoster()
	refreshed[0].Actual = models.FeeMap{models.TuitionKey(9): 400}
	remote.roster = refreshed
	require.NoError(t, store.RefreshFromRemote(ctx, "2025"))

	snapshot, err = store.Snapshot(ctx, "2025")
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.Summary.TotalStudents)
	assert.Equal(t, 0.0, snapshot.Summary.TotalAgreed)
	assert.Equal(t, 0.0, snapshot.Summary.TotalPaid)
}

func TestSetFilterRejectsUnknownCategory(t *testing.T) {
	store := newTestStore(&fakeRemote{roster: storeRoster()})
	_, err := store.SetFilter(context.Background(), "2025", models.FilterSpec{Category: "alumni"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRefreshFromRemoteReplacesStateAndKeepsFilter(t *testing.T) {
	remote := &fakeRemote{roster: storeRoster()}
	store := newTestStore(remote)
	ctx := context.Background()

	_, err := store.SetFilter(ctx, "2025", models.FilterSpec{Search: "berrada"})
	require.NoError(t, err)

	remote.roster = append(storeRoster(), models.StudentRecord{
		ID: "s3", StudentCode: "STU-003", FullName: "Chaima Berrada",
		EnrollmentStatus: models.EnrollmentStatusActive, EnrollmentMonth: 9,
		Agreed: models.FeeMap{models.TuitionKey(9): 700},
		Actual: models.FeeMap{models.TuitionKey(9): 700},
	})

	require.NoError(t, store.RefreshFromRemote(ctx, "2025"))

	snapshot, err := store.Snapshot(ctx, "2025")
	require.NoError(t, err)
	require.Len(t, snapshot.Students, 2)
	assert.Equal(t, models.FilterSpec{Search: "berrada"}, snapshot.Filter)
	assert.Equal(t, 1700.0, snapshot.Summary.TotalAgreed)
}

func TestRefreshFromRemoteFailureKeepsLocalState(t *testing.T) {
	remote := &fakeRemote{roster: storeRoster()}
	store := newTestStore(remote)
	ctx := context.Background()

	_, err := store.ApplyEdit(ctx, "2025", models.EditRequest{
		StudentID: "s1", FeeType: models.FeeTypeTuition, Field: models.EditFieldPaid, Month: 9, Amount: 500,
	})
	require.NoError(t, err)

	remote.fetchErr = errors.New("record store down")
	err = store.RefreshFromRemote(ctx, "2025")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSyncFailed.Code, appErrors.FromError(err).Code)

	view, err := store.StudentLedger(ctx, "2025", "s1")
	require.NoError(t, err)
	assert.Equal(t, 500.0, view.Months[0].Tuition.Paid)
}

func TestClassSummary(t *testing.T) {
	store := newTestStore(&fakeRemote{roster: storeRoster()})
	ctx := context.Background()

	whole, err := store.ClassSummary(ctx, "2025", "")
	require.NoError(t, err)
	assert.Equal(t, 2, whole.TotalStudents)

	c1, err := store.ClassSummary(ctx, "2025", "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, c1.TotalStudents)
	assert.Equal(t, 1000.0, c1.TotalAgreed)

	unassigned, err := store.ClassSummary(ctx, "2025", models.NoClassBucketID)
	require.NoError(t, err)
	assert.Equal(t, 1, unassigned.TotalStudents)
}

func TestStoreStartStop(t *testing.T) {
	store := newTestStore(&fakeRemote{roster: storeRoster()})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	store.Start(ctx)
	store.Stop()
}
