package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yegors/runboard/internal/backend"
	"github.com/yegors/runboard/internal/layout"
	"github.com/yegors/runboard/internal/metrics"
	"github.com/yegors/runboard/internal/schedule"
	"github.com/yegors/runboard/internal/storage/sqlite"
	"github.com/yegors/runboard/pkg/logger"
)

// Session owns the state of one operator's editing session: the active
// date, the last confirmed snapshot, the board derived from it and the
// layout editor holding unsaved local order. Network calls happen outside
// the lock; results are applied only if the active date still matches.
type Session struct {
	id      string
	backend Backend
	journal Journal
	metrics *metrics.Metrics
	limits  schedule.Limits
	logger  *logger.Logger

	mu         sync.Mutex
	date       string
	phase      Phase
	mutation   MutationState
	mutating   bool
	lastErr    error
	feedErrors map[string]string

	// last confirmed server state for date
	flights []schedule.Flight
	runs    []schedule.Run
	staff   []schedule.StaffAssignment
	board   *schedule.Board
	editor  *layout.Editor

	// placement changes seen by the last post-mutation refresh
	lastChanges []schedule.AssignmentChange
}

// Options carries the optional collaborators of a Session
type Options struct {
	Limits  schedule.Limits
	Journal Journal
	Metrics *metrics.Metrics
}

// NewSession creates an idle session
func NewSession(b Backend, opts Options, log *logger.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:       id,
		backend:  b,
		journal:  opts.Journal,
		metrics:  opts.Metrics,
		limits:   opts.Limits,
		logger:   log.Named("planner").With(logger.String("session_id", id)),
		phase:    PhaseIdle,
		mutation: MutationIdle,
		editor:   layout.NewEditor(nil, nil),
	}
}

// ID identifies the session in the journal
func (s *Session) ID() string {
	return s.id
}

// Load fetches flights, runs and staff for date concurrently and rebuilds
// the board. A failed feed does not block the others; the session becomes
// ready with per-feed errors. If another date was selected while the fetch
// was in flight, the results are dropped and ErrSuperseded is returned.
// Refreshing the active date while a mutation is in flight is refused.
func (s *Session) Load(ctx context.Context, date string) (*LoadResult, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	s.mu.Lock()
	if s.mutating && s.date == date {
		s.countLoad("refused")
		s.mu.Unlock()
		return nil, ErrMutationInFlight
	}
	s.date = date
	s.phase = PhaseLoading
	s.mu.Unlock()

	log := s.logger.WithDate(date)
	log.Debug("Loading board")
	start := time.Now()

	var (
		flights                     []schedule.Flight
		runs                        []schedule.Run
		staff                       []schedule.StaffAssignment
		flightErr, runErr, staffErr error
	)

	// Feeds fail independently, so no goroutine returns an error that would
	// cancel its siblings.
	var g errgroup.Group
	g.Go(func() error {
		flights, flightErr = s.backend.FetchFlights(ctx, date)
		return nil
	})
	g.Go(func() error {
		runs, runErr = s.backend.FetchRuns(ctx, date)
		return nil
	})
	g.Go(func() error {
		staff, staffErr = s.backend.FetchStaffAssignments(ctx, date)
		return nil
	})
	_ = g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.date != date {
		log.Info("Discarding stale load", logger.String("active_date", s.date))
		s.countLoad("superseded")
		return nil, ErrSuperseded
	}

	// A failed feed on a same-date refresh keeps its last confirmed data;
	// for a newly selected date there is nothing to keep.
	sameDate := s.board != nil && s.board.Date == date
	feedErrors := map[string]string{}
	if flightErr != nil {
		feedErrors[FeedFlights] = backend.StatusOf(flightErr).Message
		s.countFeedFailure(FeedFlights)
		if sameDate {
			flights = s.flights
		}
	}
	if runErr != nil {
		feedErrors[FeedRuns] = backend.StatusOf(runErr).Message
		s.countFeedFailure(FeedRuns)
		if sameDate {
			runs = s.runs
		}
	}
	if staffErr != nil {
		feedErrors[FeedStaff] = backend.StatusOf(staffErr).Message
		s.countFeedFailure(FeedStaff)
		if sameDate {
			staff = s.staff
		}
	}

	if !sameDate {
		s.lastChanges = nil
	}
	s.flights, s.runs, s.staff = flights, runs, staff
	s.feedErrors = feedErrors
	if s.mutating && sameDate {
		// the local order under save stays until the mutation settles
		s.buildBoardLocked()
	} else {
		s.rebuildLocked()
	}
	s.phase = PhaseReady

	result := &LoadResult{Date: date, Board: s.board}
	if len(feedErrors) > 0 {
		result.FeedErrors = feedErrors
		s.lastErr = partialLoadFailure(feedErrors)
		s.countLoad("partial")
		log.Warn("Board loaded with feed errors", logger.Any("feed_errors", feedErrors))
	} else {
		s.lastErr = nil
		s.countLoad("ready")
	}
	if s.metrics != nil {
		s.metrics.LoadDuration.Observe(time.Since(start).Seconds())
	}

	log.Info("Board loaded",
		logger.Int("flights", len(s.flights)),
		logger.Int("runs", len(s.runs)),
		logger.Int("unassigned", len(s.board.Unassigned)),
		logger.Duration("elapsed", time.Since(start)))
	return result, nil
}

// AssignFlight puts an unassigned flight into a run. On success the whole
// day's runs are reloaded, since downstream conflicts are the server's
// call. On failure nothing local changes except that a provisional drop of
// the flight is undone.
func (s *Session) AssignFlight(ctx context.Context, runID, flightID string) error {
	payload := map[string]string{"run_id": runID, "flight_id": flightID}
	date, err := s.beginMutation(ctx, OpAssign, payload)
	if err != nil {
		return err
	}
	start := time.Now()

	if runID == "" || flightID == "" {
		err = ErrMissingAssignment
	} else {
		err = s.backend.AssignFlight(ctx, runID, flightID)
	}
	if err != nil {
		s.mu.Lock()
		if s.date == date {
			s.editor.DiscardProvisional(flightID)
		}
		s.mu.Unlock()
		s.finishMutation(ctx, OpAssign, date, payload, start, err)
		return err
	}

	err = s.reload(ctx, date)
	if err != nil {
		// the server owns the membership now; only the refresh is missing
		s.mu.Lock()
		if s.date == date {
			s.editor.ConfirmProvisional(flightID)
		}
		s.mu.Unlock()
	}
	s.finishMutation(ctx, OpAssign, date, payload, start, err)
	return err
}

// SaveLayout submits every run's current on-screen order as one batch. On
// success the editor is rebuilt from the reloaded server state; on failure
// the local order stays as displayed.
func (s *Session) SaveLayout(ctx context.Context) (*SaveResult, error) {
	// the request is taken under the same lock that claims the mutation, so
	// no edit can land between the two
	s.mu.Lock()
	date := s.date
	req := s.editor.LayoutRequest(date)
	err := ErrProvisionalPending
	if len(s.editor.Provisional()) == 0 {
		err = s.claimLocked()
	}
	s.mu.Unlock()

	if err != nil {
		s.reject(ctx, OpSaveLayout, date, req, err)
		return nil, err
	}
	start := time.Now()

	updated, err := s.backend.UpdateLayout(ctx, req)
	if err != nil {
		s.finishMutation(ctx, OpSaveLayout, date, req, start, err)
		return nil, err
	}

	err = s.reload(ctx, date)
	s.finishMutation(ctx, OpSaveLayout, date, req, start, err)
	if err != nil {
		return nil, err
	}
	return &SaveResult{UpdatedFlightRuns: updated}, nil
}

// AutoAssign asks the backend to rebuild the day's assignments. It refuses
// to run without explicit confirmation because it may replace every manual
// assignment of the day.
func (s *Session) AutoAssign(ctx context.Context, opts AutoAssignOptions) (*AutoAssignReport, error) {
	mode := opts.Mode
	if mode == "" {
		mode = ModeGenerate
	}
	payload := map[string]any{"mode": mode, "respect_existing_runs": false}

	if !opts.Confirmed {
		s.mu.Lock()
		date := s.date
		s.mu.Unlock()
		s.reject(ctx, OpAutoAssign, date, payload, ErrConfirmationRequired)
		return nil, ErrConfirmationRequired
	}
	if mode != ModeGenerate && mode != ModeRuns {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}

	date, err := s.beginMutation(ctx, OpAutoAssign, payload)
	if err != nil {
		return nil, err
	}
	start := time.Now()

	var report *AutoAssignReport
	switch mode {
	case ModeRuns:
		var summary *backend.AutoAssignSummary
		summary, err = s.backend.AutoAssignRuns(ctx, date)
		if err == nil {
			report = &AutoAssignReport{
				Assigned:        summary.AssignedFlights,
				UnassignedCount: summary.UnassignedFlights,
				TotalFlights:    summary.TotalFlights,
				Mode:            string(ModeRuns),
				Reason:          summary.Reason,
			}
		}
	default:
		var result *backend.GenerateResult
		result, err = s.backend.GenerateAssignments(ctx, date)
		if err == nil {
			report = &AutoAssignReport{
				Assigned:        result.Assigned,
				UnassignedCount: len(result.UnassignedFlightIDs),
				Mode:            result.Mode,
			}
		}
	}
	if err != nil {
		s.finishMutation(ctx, OpAutoAssign, date, payload, start, err)
		return nil, err
	}

	err = s.reload(ctx, date)
	s.finishMutation(ctx, OpAutoAssign, date, payload, start, err)
	if err != nil {
		return nil, err
	}

	s.logger.WithDate(date).Info("Auto-assign completed",
		logger.Int("assigned", report.Assigned),
		logger.Int("unassigned", report.UnassignedCount),
		logger.String("mode", report.Mode))
	return report, nil
}

// Reorder moves an entry within its run in the local layout
func (s *Session) Reorder(entryKey, anchorKey string, after bool) error {
	return s.edit(func(e *layout.Editor) error { return e.Reorder(entryKey, anchorKey, after) })
}

// Move moves an entry to another run in the local layout
func (s *Session) Move(entryKey, targetRunID, anchorKey string, after bool) error {
	return s.edit(func(e *layout.Editor) error { return e.Move(entryKey, targetRunID, anchorKey, after) })
}

// InsertUnassigned drops an unassigned flight into a run locally. The
// caller follows up with AssignFlight to make it stick.
func (s *Session) InsertUnassigned(flightID, targetRunID, anchorKey string, after bool) error {
	return s.edit(func(e *layout.Editor) error { return e.InsertUnassigned(flightID, targetRunID, anchorKey, after) })
}

// DiscardEdits reverts the editor to the last confirmed snapshot
func (s *Session) DiscardEdits() error {
	return s.edit(func(e *layout.Editor) error {
		e.Reset(s.runs, s.board.Unassigned)
		return nil
	})
}

func (s *Session) edit(fn func(*layout.Editor) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseReady {
		return ErrNotReady
	}
	if s.mutating {
		return ErrMutationInFlight
	}
	return fn(s.editor)
}

// Board returns the board of the last confirmed snapshot, or nil before
// the first load
func (s *Session) Board() *schedule.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board
}

// Lanes returns the editor's current local order
func (s *Session) Lanes() []layout.Lane {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.Lanes()
}

// Unassigned returns the flights not placed in any run locally
func (s *Session) Unassigned() []schedule.Flight {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.Unassigned()
}

// Snapshot copies the session state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		SessionID: s.id,
		Date:      s.date,
		Phase:     s.phase,
		Mutation:  s.mutation,
		Dirty:     s.editor.Dirty(),
		Changes:   append([]schedule.AssignmentChange(nil), s.lastChanges...),
	}
	if s.lastErr != nil {
		snap.LastError = backend.StatusOf(s.lastErr).Message
	}
	if len(s.feedErrors) > 0 {
		snap.FeedErrors = make(map[string]string, len(s.feedErrors))
		for k, v := range s.feedErrors {
			snap.FeedErrors[k] = v
		}
	}
	return snap
}

// LastError is the most recent load or mutation failure, if any
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// beginMutation enforces at most one mutation in flight and returns the
// date the mutation applies to
func (s *Session) beginMutation(ctx context.Context, op string, payload any) (string, error) {
	s.mu.Lock()
	date := s.date
	err := s.claimLocked()
	s.mu.Unlock()

	if err != nil {
		s.reject(ctx, op, date, payload, err)
		return "", err
	}
	return date, nil
}

// claimLocked marks a mutation in flight. Callers hold s.mu.
func (s *Session) claimLocked() error {
	switch {
	case s.phase != PhaseReady:
		return ErrNotReady
	case s.mutating:
		return ErrMutationInFlight
	}
	s.mutating = true
	s.mutation = MutationSaving
	return nil
}

// reject journals and counts a mutation refused before anything was sent
func (s *Session) reject(ctx context.Context, op, date string, payload any, err error) {
	s.record(ctx, op, date, payload, sqlite.OutcomeRejected, err)
	if s.metrics != nil {
		s.metrics.Mutations.WithLabelValues(op, sqlite.OutcomeRejected).Inc()
	}
}

func (s *Session) finishMutation(ctx context.Context, op, date string, payload any, start time.Time, err error) {
	s.mu.Lock()
	s.mutating = false
	if err != nil {
		s.mutation = MutationError
		s.lastErr = err
	} else {
		s.mutation = MutationIdle
		s.lastErr = nil
	}
	s.mu.Unlock()

	outcome := sqlite.OutcomeSucceeded
	log := s.logger.WithDate(date).With(logger.String("operation", op), logger.Duration("elapsed", time.Since(start)))
	if err != nil {
		outcome = sqlite.OutcomeFailed
		log.Warn("Assignment change failed", logger.Error(err))
	} else {
		log.Info("Assignment change saved")
	}

	if s.metrics != nil {
		s.metrics.Mutations.WithLabelValues(op, outcome).Inc()
		s.metrics.MutationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
	s.record(ctx, op, date, payload, outcome, err)
}

// reload refetches runs and staff after a successful mutation and rebuilds
// the board and editor from them. Flights are unchanged by mutations.
func (s *Session) reload(ctx context.Context, date string) error {
	var (
		runs             []schedule.Run
		staff            []schedule.StaffAssignment
		runErr, staffErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		runs, runErr = s.backend.FetchRuns(ctx, date)
		return nil
	})
	g.Go(func() error {
		staff, staffErr = s.backend.FetchStaffAssignments(ctx, date)
		return nil
	})
	_ = g.Wait()

	if runErr != nil {
		s.countFeedFailure(FeedRuns)
		return fmt.Errorf("%w: %w", ErrRefreshFailed, runErr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.date != date {
		s.logger.Info("Date changed during mutation, not applying refresh",
			logger.String("mutation_date", date),
			logger.String("active_date", s.date))
		return nil
	}
	s.lastChanges = schedule.DiffAssignments(s.runs, runs)
	if n := len(s.lastChanges); n > 0 {
		s.logger.WithDate(date).Debug("Refresh changed run placements", logger.Int("changes", n))
	}
	s.runs = runs
	if staffErr == nil {
		s.staff = staff
		delete(s.feedErrors, FeedStaff)
	} else {
		s.countFeedFailure(FeedStaff)
	}
	delete(s.feedErrors, FeedRuns)
	s.rebuildLocked()
	return nil
}

// rebuildLocked derives the board from the confirmed snapshot and throws
// away any local edits. Callers hold s.mu.
func (s *Session) rebuildLocked() {
	s.buildBoardLocked()
	s.editor.Reset(s.runs, s.board.Unassigned)
}

// buildBoardLocked derives the board and leaves the editor alone. Callers
// hold s.mu.
func (s *Session) buildBoardLocked() {
	s.board = schedule.BuildBoard(schedule.BoardInput{
		Date:    s.date,
		Flights: s.flights,
		Runs:    s.runs,
		Staff:   s.staff,
		Limits:  s.limits,
	})

	if dups := s.board.DuplicateFlights; len(dups) > 0 {
		s.logger.WithDate(s.date).Warn("Flights listed in more than one run",
			logger.Strings("flight_ids", dups))
	}
	s.observeBoardLocked()
}

func (s *Session) observeBoardLocked() {
	if s.metrics == nil {
		return
	}
	overloaded, tight := 0, 0
	for _, g := range s.board.Groups {
		for _, card := range g.Runs {
			if card.Conflicts.Overloaded {
				overloaded++
			}
			tight += len(card.Conflicts.TightConnections)
		}
	}
	s.metrics.Conflicts.WithLabelValues("overloaded_runs").Set(float64(overloaded))
	s.metrics.Conflicts.WithLabelValues("tight_connections").Set(float64(tight))
	s.metrics.Unassigned.Set(float64(len(s.board.Unassigned)))
}

func (s *Session) record(ctx context.Context, op, date string, payload any, outcome string, err error) {
	if s.journal == nil {
		return
	}
	rec := &sqlite.MutationRecord{
		SessionID: s.id,
		Date:      date,
		Operation: op,
		Outcome:   outcome,
	}
	if data, mErr := json.Marshal(payload); mErr == nil {
		rec.Payload = string(data)
	}
	if err != nil {
		st := backend.StatusOf(err)
		rec.Status = st.Status
		rec.Message = st.Message
	}
	// the journal entry is written even if the caller's context is done
	if jErr := s.journal.Record(context.WithoutCancel(ctx), rec); jErr != nil {
		s.logger.Error("Failed to journal mutation", logger.Error(jErr), logger.String("operation", op))
	}
}

func (s *Session) countLoad(result string) {
	if s.metrics != nil {
		s.metrics.Loads.WithLabelValues(result).Inc()
	}
}

func (s *Session) countFeedFailure(feed string) {
	if s.metrics != nil {
		s.metrics.FeedFailures.WithLabelValues(feed).Inc()
	}
}

func partialLoadFailure(feedErrors map[string]string) error {
	parts := make([]string, 0, len(feedErrors))
	for _, feed := range []string{FeedFlights, FeedRuns, FeedStaff} {
		if msg, ok := feedErrors[feed]; ok {
			parts = append(parts, feed+": "+msg)
		}
	}
	return &backend.Failure{
		Kind:    backend.PartialLoadFailure,
		Op:      "load board",
		Message: strings.Join(parts, "; "),
	}
}

// IsPartialLoad reports whether err describes a load where some feeds failed
func IsPartialLoad(err error) bool {
	var f *backend.Failure
	return errors.As(err, &f) && f.Kind == backend.PartialLoadFailure
}
