package planner

import (
	"context"
	"errors"

	"github.com/yegors/runboard/internal/backend"
	"github.com/yegors/runboard/internal/schedule"
	"github.com/yegors/runboard/internal/storage/sqlite"
)

var (
	ErrInvalidDate          = errors.New("date must be YYYY-MM-DD")
	ErrNotReady             = errors.New("no board loaded")
	ErrSuperseded           = errors.New("load superseded by a newer date selection")
	ErrMutationInFlight     = errors.New("another assignment change is still being saved")
	ErrConfirmationRequired = errors.New("auto-assign must be confirmed")
	ErrProvisionalPending   = errors.New("unassigned flights dropped into runs must be assigned before saving the layout")
	ErrRefreshFailed        = errors.New("change saved but refreshing the board failed")
	ErrUnknownMode          = errors.New("unknown auto-assign mode")
	ErrMissingAssignment    = errors.New("run and flight are required")
)

// Backend is the remote ops API as the orchestrator uses it
type Backend interface {
	FetchFlights(ctx context.Context, date string) ([]schedule.Flight, error)
	FetchRuns(ctx context.Context, date string) ([]schedule.Run, error)
	FetchStaffAssignments(ctx context.Context, date string) ([]schedule.StaffAssignment, error)
	AssignFlight(ctx context.Context, runID, flightID string) error
	UpdateLayout(ctx context.Context, req schedule.LayoutUpdate) (int, error)
	GenerateAssignments(ctx context.Context, date string) (*backend.GenerateResult, error)
	AutoAssignRuns(ctx context.Context, date string) (*backend.AutoAssignSummary, error)
}

// Journal receives one record per mutation attempt
type Journal interface {
	Record(ctx context.Context, record *sqlite.MutationRecord) error
}

// Phase is the load state of a session
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
)

// MutationState tracks the single in-flight mutation
type MutationState string

const (
	MutationIdle   MutationState = "idle"
	MutationSaving MutationState = "saving"
	MutationError  MutationState = "error"
)

// Feed names
const (
	FeedFlights = "flights"
	FeedRuns    = "runs"
	FeedStaff   = "staff"
)

// Mutation operation names, as journaled
const (
	OpAssign     = "assign"
	OpSaveLayout = "save_layout"
	OpAutoAssign = "auto_assign"
)

// AutoAssignMode selects which backend endpoint performs the pass
type AutoAssignMode string

const (
	// ModeGenerate rebuilds assignments from scratch via assignments/generate
	ModeGenerate AutoAssignMode = "generate"
	// ModeRuns runs the airline-scoped run allocator via runs/auto_assign
	ModeRuns AutoAssignMode = "runs"
)

// AutoAssignOptions must carry an explicit confirmation
type AutoAssignOptions struct {
	Confirmed bool
	Mode      AutoAssignMode
}

// AutoAssignReport summarizes an auto-assign pass
type AutoAssignReport struct {
	Assigned        int    `json:"assigned"`
	UnassignedCount int    `json:"unassigned_count"`
	TotalFlights    int    `json:"total_flights,omitempty"`
	Mode            string `json:"mode,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

// LoadResult is the outcome of a load. FeedErrors is keyed by feed name.
type LoadResult struct {
	Date       string            `json:"date"`
	Board      *schedule.Board   `json:"board"`
	FeedErrors map[string]string `json:"feed_errors,omitempty"`
}

// Partial reports whether any feed failed
func (r *LoadResult) Partial() bool {
	return len(r.FeedErrors) > 0
}

// SaveResult is the outcome of a layout save
type SaveResult struct {
	UpdatedFlightRuns int `json:"updated_flight_runs"`
}

// Snapshot is a read-only copy of session state
type Snapshot struct {
	SessionID  string                      `json:"session_id"`
	Date       string                      `json:"date"`
	Phase      Phase                       `json:"phase"`
	Mutation   MutationState               `json:"mutation"`
	LastError  string                      `json:"last_error,omitempty"`
	FeedErrors map[string]string           `json:"feed_errors,omitempty"`
	Dirty      []string                    `json:"dirty_runs"`
	Changes    []schedule.AssignmentChange `json:"last_changes,omitempty"`
}
