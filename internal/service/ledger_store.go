package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khalidoy/gspfinancefront-sub000/internal/models"
	appErrors "github.com/khalidoy/gspfinancefront-sub000/pkg/errors"
	"github.com/khalidoy/gspfinancefront-sub000/pkg/jobs"
)

// Default edit ceilings. Policy constants, overridable through config.
const (
	defaultMonthlyPaidCap   = 2500
	defaultMonthlyAgreedCap = 5000
	defaultAnnualAgreedCap  = 1500
)

// LedgerRemote is the record-store contract the ledger store depends on.
type LedgerRemote interface {
	FetchRoster(ctx context.Context, academicYearID string) ([]models.StudentRecord, error)
	WriteMonthlyPaid(ctx context.Context, w models.MonthlyPaidWrite) error
	WriteMonthlyAgreed(ctx context.Context, w models.MonthlyAgreedWrite) error
	WriteAnnualPaid(ctx context.Context, w models.AnnualPaidWrite) error
	WriteAnnualAgreed(ctx context.Context, w models.AnnualAgreedWrite) error
}

// LedgerStoreConfig tunes ceilings, snapshot caching and background refresh.
type LedgerStoreConfig struct {
	MonthlyPaidCap   float64
	MonthlyAgreedCap float64
	AnnualAgreedCap  float64
	CacheTTL         time.Duration
	RefreshWorkers   int
	RefreshRetries   int
	RefreshDelay     time.Duration
}

// EditResult reports the state after a committed edit.
type EditResult struct {
	Student        models.StudentLedgerView `json:"student"`
	Summary        models.SummarySnapshot   `json:"summary"`
	CascadeApplied bool                     `json:"cascade_applied"`
}

// LedgerStore owns the in-memory roster per academic year and is the only
// writer to it. Derived views (ledger matrices, buckets, summaries) are
// recomputed from the roster; the summary of the active selection is
// additionally maintained incrementally between full recomputes so edits
// reflect immediately.
type LedgerStore struct {
	remote  LedgerRemote
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	cfg     LedgerStoreConfig

	mu    sync.Mutex
	years map[string]*yearState

	refreshQueue *jobs.Queue
}

type yearState struct {
	order    []string
	students map[string]*models.StudentRecord
	filter   models.FilterSpec
	summary  models.SummarySnapshot
	inflight map[string]struct{}
	version  uint64
}

// NewLedgerStore constructs the store and its background refresh queue. Call
// Start before serving traffic and Stop on shutdown.
func NewLedgerStore(remote LedgerRemote, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg LedgerStoreConfig) *LedgerStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MonthlyPaidCap <= 0 {
		cfg.MonthlyPaidCap = defaultMonthlyPaidCap
	}
	if cfg.MonthlyAgreedCap <= 0 {
		cfg.MonthlyAgreedCap = defaultMonthlyAgreedCap
	}
	if cfg.AnnualAgreedCap <= 0 {
		cfg.AnnualAgreedCap = defaultAnnualAgreedCap
	}
	s := &LedgerStore{
		remote:  remote,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		years:   make(map[string]*yearState),
	}
	s.refreshQueue = jobs.NewQueue("ledger-refresh", s.handleRefreshJob, jobs.QueueConfig{
		Workers:    cfg.RefreshWorkers,
		MaxRetries: cfg.RefreshRetries,
		RetryDelay: cfg.RefreshDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the background refresh workers.
func (s *LedgerStore) Start(ctx context.Context) {
	s.refreshQueue.Start(ctx)
}

// Stop drains the refresh workers.
func (s *LedgerStore) Stop() {
	s.refreshQueue.Stop()
}

// Snapshot returns the filtered roster, class buckets and selection summary
// for an academic year, loading the roster from the record store on first
// access. Snapshots are memoized by (roster version, filter).
func (s *LedgerStore) Snapshot(ctx context.Context, academicYearID string) (*models.LedgerSnapshot, error) {
	state, err := s.ensureYear(ctx, academicYearID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	version := state.version
	filter := state.filter
	s.mu.Unlock()

	cacheKey := snapshotCacheKey(academicYearID, version, filter)
	if s.cache.Enabled() {
		var cached models.LedgerSnapshot
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	s.mu.Lock()
	snapshot := s.buildSnapshotLocked(academicYearID, state)
	s.mu.Unlock()

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, snapshot, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("snapshot cache write failed", zap.String("year", academicYearID), zap.Error(err))
		}
	}
	return snapshot, nil
}

// SetFilter replaces the active filter and returns the resulting snapshot.
// The selection summary is fully recomputed here; it then drifts only by the
// incremental deltas of subsequent edits until the next recompute.
func (s *LedgerStore) SetFilter(ctx context.Context, academicYearID string, spec models.FilterSpec) (*models.LedgerSnapshot, error) {
	if !spec.Category.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown statistic category %q", spec.Category))
	}
	state, err := s.ensureYear(ctx, academicYearID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	state.filter = spec
	state.summary = ComputeSummary(FilterRoster(s.rosterLocked(state), spec))
	s.mu.Unlock()

	return s.Snapshot(ctx, academicYearID)
}

// StudentLedger derives the payment matrix for one student.
func (s *LedgerStore) StudentLedger(ctx context.Context, academicYearID, studentID string) (*models.StudentLedgerView, error) {
	state, err := s.ensureYear(ctx, academicYearID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	student, ok := state.students[studentID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found in roster")
	}
	view := DeriveLedger(*student)
	return &view, nil
}

// ClassSummary recomputes the summary for one class of the year. An empty
// classID yields the summary over the whole roster.
func (s *LedgerStore) ClassSummary(ctx context.Context, academicYearID, classID string) (*models.SummarySnapshot, error) {
	state, err := s.ensureYear(ctx, academicYearID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	roster := s.rosterLocked(state)
	if classID != "" {
		selected := roster[:0:0]
		for _, student := range roster {
			switch {
			case classID == models.NoClassBucketID && (student.Class == nil || student.Class.ClassID == ""):
				selected = append(selected, student)
			case student.Class != nil && student.Class.ClassID == classID:
				selected = append(selected, student)
			}
		}
		roster = selected
	}
	summary := ComputeSummary(roster)
	return &summary, nil
}

// ApplyEdit validates and commits a single amount edit: optimistic local
// mutation and summary delta first, then the remote write; on remote failure
// exactly this edit's delta is reverted. At most one edit per cell may be in
// flight.
func (s *LedgerStore) ApplyEdit(ctx context.Context, academicYearID string, req models.EditRequest) (*EditResult, error) {
	state, err := s.ensureYear(ctx, academicYearID)
	if err != nil {
		return nil, err
	}

	tx, cellKey, err := s.validateAndMutate(state, req)
	if err != nil {
		s.metrics.RecordEditRejection()
		return nil, err
	}

	// Local state is already mutated; the remote write happens strictly
	// after, never the other way around.
	if writeErr := s.writeRemote(ctx, academicYearID, *tx); writeErr != nil {
		s.rollback(state, *tx, cellKey)
		s.metrics.RecordEditRollback()
		s.logger.Warn("edit rolled back after failed remote write",
			zap.String("student_id", req.StudentID),
			zap.String("fee_type", string(req.FeeType)),
			zap.String("field", string(req.Field)),
			zap.Error(writeErr))
		return nil, appErrors.Wrap(writeErr, appErrors.ErrSyncFailed.Code, appErrors.ErrSyncFailed.Status, appErrors.ErrSyncFailed.Message)
	}

	s.mu.Lock()
	delete(state.inflight, cellKey)
	// A refresh may have replaced the roster while the write was outstanding;
	// if the student is gone the refreshed roster stands.
	student, ok := state.students[req.StudentID]
	var result *EditResult
	if ok {
		result = &EditResult{
			Student:        DeriveLedger(*student),
			Summary:        state.summary,
			CascadeApplied: tx.CascadeApplied,
		}
	}
	s.mu.Unlock()

	s.metrics.RecordEditCommit(string(req.FeeType), string(req.Field))

	// Best-effort resync; the caller never waits on it.
	if err := s.refreshQueue.Enqueue(jobs.Job{
		ID:   uuid.NewString(),
		Key:  academicYearID,
		Type: "roster-refresh",
	}); err != nil {
		s.logger.Warn("refresh enqueue failed", zap.String("year", academicYearID), zap.Error(err))
	}

	if result == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student no longer in roster")
	}
	return result, nil
}

// RefreshFromRemote replaces the in-memory roster with the authoritative
// remote state and fully recomputes the selection summary, correcting any
// drift from incremental math. A failed refresh leaves the optimistic local
// state in place.
func (s *LedgerStore) RefreshFromRemote(ctx context.Context, academicYearID string) error {
	roster, err := s.remote.FetchRoster(ctx, academicYearID)
	if err != nil {
		s.metrics.RecordRefresh(false)
		s.logger.Warn("roster refresh failed, keeping local state", zap.String("year", academicYearID), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrSyncFailed.Code, appErrors.ErrSyncFailed.Status, "roster refresh failed")
	}

	s.mu.Lock()
	state, ok := s.years[academicYearID]
	if !ok {
		state = &yearState{inflight: make(map[string]struct{})}
		s.years[academicYearID] = state
	}
	s.installRosterLocked(state, roster)
	s.mu.Unlock()

	s.metrics.RecordRefresh(true)
	if s.cache.Enabled() {
		if err := s.cache.Invalidate(ctx, fmt.Sprintf("ledger:snap:%s:*", academicYearID)); err != nil {
			s.logger.Warn("snapshot cache invalidation failed", zap.String("year", academicYearID), zap.Error(err))
		}
	}
	return nil
}

func (s *LedgerStore) handleRefreshJob(ctx context.Context, job jobs.Job) error {
	return s.RefreshFromRemote(ctx, job.Key)
}

func (s *LedgerStore) ensureYear(ctx context.Context, academicYearID string) (*yearState, error) {
	if academicYearID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "academic year is required")
	}
	s.mu.Lock()
	if state, ok := s.years[academicYearID]; ok {
		s.mu.Unlock()
		return state, nil
	}
	s.mu.Unlock()

	roster, err := s.remote.FetchRoster(ctx, academicYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.years[academicYearID]; ok {
		return state, nil
	}
	state := &yearState{inflight: make(map[string]struct{})}
	s.installRosterLocked(state, roster)
	s.years[academicYearID] = state
	return state, nil
}

func (s *LedgerStore) installRosterLocked(state *yearState, roster []models.StudentRecord) {
	state.order = state.order[:0]
	state.students = make(map[string]*models.StudentRecord, len(roster))
	for i := range roster {
		student := roster[i].Clone()
		state.order = append(state.order, student.ID)
		state.students[student.ID] = &student
	}
	state.summary = ComputeSummary(FilterRoster(s.rosterLocked(state), state.filter))
	state.version++
}

func (s *LedgerStore) rosterLocked(state *yearState) []models.StudentRecord {
	roster := make([]models.StudentRecord, 0, len(state.order))
	for _, id := range state.order {
		if student, ok := state.students[id]; ok {
			roster = append(roster, student.Clone())
		}
	}
	return roster
}

func (s *LedgerStore) buildSnapshotLocked(academicYearID string, state *yearState) *models.LedgerSnapshot {
	filtered := FilterRoster(s.rosterLocked(state), state.filter)
	return &models.LedgerSnapshot{
		AcademicYearID: academicYearID,
		Version:        state.version,
		Filter:         state.filter,
		Students:       filtered,
		Buckets:        BucketByClass(filtered),
		Summary:        state.summary,
	}
}

// validateAndMutate runs the validation chain and, if it passes, applies the
// optimistic mutation and summary delta under the lock. The returned
// transaction carries everything needed to revert.
func (s *LedgerStore) validateAndMutate(state *yearState, req models.EditRequest) (*models.EditTransaction, string, error) {
	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) || req.Amount < 0 {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "amount must be a non-negative number")
	}
	if req.Field != models.EditFieldPaid && req.Field != models.EditFieldAgreed {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown edit field %q", req.Field))
	}
	key := req.BucketKey()
	if key == "" {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown fee type %q", req.FeeType))
	}
	if req.FeeType.Monthly() && models.AcademicOrder(req.Month) > len(models.AcademicMonths) {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("month %d is outside the school year", req.Month))
	}
	if req.FeeType.Monthly() && (req.Month < 1 || req.Month > 12) {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "month is required for monthly fees")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	student, ok := state.students[req.StudentID]
	if !ok {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "student not found in roster")
	}

	cellKey := req.StudentID + ":" + key
	if _, busy := state.inflight[cellKey]; busy {
		return nil, "", appErrors.Clone(appErrors.ErrEditInFlight, "")
	}

	agreed := student.Agreed.Amount(key)
	paid := student.Actual.Amount(key)

	tx := &models.EditTransaction{StudentID: req.StudentID, Request: req}

	switch req.Field {
	case models.EditFieldAgreed:
		ceiling := s.cfg.AnnualAgreedCap
		if req.FeeType.Monthly() {
			ceiling = s.cfg.MonthlyAgreedCap
		}
		if req.Amount > ceiling {
			return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("agreed amount exceeds the %.0f ceiling", ceiling))
		}
		if paid > 0 && req.Amount < paid {
			return nil, "", appErrors.Clone(appErrors.ErrValidation, "agreed cannot be set below already-paid amount")
		}
		tx.Changes = append(tx.Changes, models.AmountChange{Field: models.EditFieldAgreed, Key: key, Before: agreed, After: req.Amount})

	case models.EditFieldPaid:
		ceiling := s.cfg.AnnualAgreedCap
		if req.FeeType.Monthly() {
			ceiling = s.cfg.MonthlyPaidCap
		}
		if req.Amount > ceiling {
			return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("paid amount exceeds the %.0f ceiling", ceiling))
		}
		// A zero agreed amount means "uncapped" to support first-time setup.
		if agreed != 0 && req.Amount > agreed {
			return nil, "", appErrors.Clone(appErrors.ErrValidation, "paid cannot exceed the agreed amount")
		}
		tx.Changes = append(tx.Changes, models.AmountChange{Field: models.EditFieldPaid, Key: key, Before: paid, After: req.Amount})

		if agreed == 0 && req.Amount > 0 {
			if req.FeeType.Monthly() {
				// The entered amount becomes the going rate from this month on.
				for _, month := range models.AcademicMonths {
					if models.AcademicOrder(month) < models.AcademicOrder(req.Month) {
						continue
					}
					monthKey := key
					if month != req.Month {
						if req.FeeType == models.FeeTypeTuition {
							monthKey = models.TuitionKey(month)
						} else {
							monthKey = models.TransportKey(month)
						}
					}
					tx.Changes = append(tx.Changes, models.AmountChange{
						Field:  models.EditFieldAgreed,
						Key:    monthKey,
						Before: student.Agreed.Amount(monthKey),
						After:  req.Amount,
					})
				}
				tx.CascadeApplied = true
			} else if paid == 0 {
				// Annual first touch fixes the agreed amount alongside.
				tx.Changes = append(tx.Changes, models.AmountChange{Field: models.EditFieldAgreed, Key: key, Before: 0, After: req.Amount})
			}
		}
	}

	s.applyChangesLocked(state, student, *tx)
	state.inflight[cellKey] = struct{}{}
	return tx, cellKey, nil
}

func (s *LedgerStore) applyChangesLocked(state *yearState, student *models.StudentRecord, tx models.EditTransaction) {
	if student.Agreed == nil {
		student.Agreed = models.FeeMap{}
	}
	if student.Actual == nil {
		student.Actual = models.FeeMap{}
	}
	for _, change := range tx.Changes {
		if change.Field == models.EditFieldAgreed {
			student.Agreed[change.Key] = change.After
		} else {
			student.Actual[change.Key] = change.After
		}
	}
	s.adjustSummaryLocked(state, *student, tx.AgreedDelta(), tx.PaidDelta())
	state.version++
}

// rollback reverts exactly one edit's delta. Values are only restored where
// the current amount still matches what the edit wrote, so a refresh that
// landed in between stays authoritative.
func (s *LedgerStore) rollback(state *yearState, tx models.EditTransaction, cellKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(state.inflight, cellKey)

	student, ok := state.students[tx.StudentID]
	if !ok {
		return
	}
	var agreedDelta, paidDelta float64
	for _, change := range tx.Changes {
		if change.Field == models.EditFieldAgreed {
			if student.Agreed.Amount(change.Key) == change.After {
				student.Agreed[change.Key] = change.Before
				agreedDelta += change.Before - change.After
			}
		} else {
			if student.Actual.Amount(change.Key) == change.After {
				student.Actual[change.Key] = change.Before
				paidDelta += change.Before - change.After
			}
		}
	}
	s.adjustSummaryLocked(state, *student, agreedDelta, paidDelta)
	state.version++
}

// adjustSummaryLocked applies an incremental delta to the selection summary
// when the edited student belongs to the active selection. The rate is
// re-derived from the adjusted totals, so repeated deltas converge to the
// full recompute. Membership is evaluated on the post-edit student: an edit
// that moves a student across the selection boundary (an unpaid-month filter
// the edit just satisfied or broke) applies only its own delta, leaving
// TotalStudents and the other students' totals unchanged until the next
// filter change or refresh recomputes the summary from the whole selection.
func (s *LedgerStore) adjustSummaryLocked(state *yearState, student models.StudentRecord, agreedDelta, paidDelta float64) {
	if agreedDelta == 0 && paidDelta == 0 {
		return
	}
	if len(FilterRoster([]models.StudentRecord{student}, state.filter)) == 0 {
		return
	}
	state.summary.TotalAgreed += agreedDelta
	state.summary.TotalPaid += paidDelta
	state.summary.OutstandingBalance = state.summary.TotalAgreed - state.summary.TotalPaid
	state.summary.CollectionRate = models.CollectionRate(state.summary.TotalPaid, state.summary.TotalAgreed, 0)
}

func (s *LedgerStore) writeRemote(ctx context.Context, academicYearID string, tx models.EditTransaction) error {
	req := tx.Request
	switch {
	case req.FeeType.Monthly() && req.Field == models.EditFieldPaid:
		return s.remote.WriteMonthlyPaid(ctx, models.MonthlyPaidWrite{
			StudentID:      req.StudentID,
			AcademicYearID: academicYearID,
			FeeType:        req.FeeType,
			Month:          req.Month,
			Amount:         req.Amount,
			CascadeAgreed:  tx.CascadeApplied,
		})
	case req.FeeType.Monthly():
		return s.remote.WriteMonthlyAgreed(ctx, models.MonthlyAgreedWrite{
			StudentID:      req.StudentID,
			AcademicYearID: academicYearID,
			FeeType:        req.FeeType,
			Month:          req.Month,
			Amount:         req.Amount,
		})
	case req.Field == models.EditFieldPaid:
		return s.remote.WriteAnnualPaid(ctx, models.AnnualPaidWrite{
			StudentID:      req.StudentID,
			AcademicYearID: academicYearID,
			FeeType:        req.FeeType,
			Amount:         req.Amount,
			AlsoSetAgreed:  len(tx.Changes) > 1,
		})
	default:
		return s.remote.WriteAnnualAgreed(ctx, models.AnnualAgreedWrite{
			StudentID:      req.StudentID,
			AcademicYearID: academicYearID,
			FeeType:        req.FeeType,
			Amount:         req.Amount,
		})
	}
}

func snapshotCacheKey(academicYearID string, version uint64, filter models.FilterSpec) string {
	h := fnv.New32a()
	h.Write([]byte(filter.Search))
	h.Write([]byte(filter.Category))
	h.Write([]byte(filter.UnpaidMonth))
	return fmt.Sprintf("ledger:snap:%s:%d:%x", academicYearID, version, h.Sum32())
}
