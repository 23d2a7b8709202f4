package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/yegors/runboard/internal/backend"
	"github.com/yegors/runboard/internal/config"
	"github.com/yegors/runboard/internal/layout"
	"github.com/yegors/runboard/internal/planner"
	"github.com/yegors/runboard/internal/schedule"
	"github.com/yegors/runboard/internal/storage/sqlite"
	"github.com/yegors/runboard/pkg/logger"
)

const defaultJournalLimit = 50

// Session is the planner session as the HTTP surface drives it
type Session interface {
	Load(ctx context.Context, date string) (*planner.LoadResult, error)
	AssignFlight(ctx context.Context, runID, flightID string) error
	SaveLayout(ctx context.Context) (*planner.SaveResult, error)
	AutoAssign(ctx context.Context, opts planner.AutoAssignOptions) (*planner.AutoAssignReport, error)
	Reorder(entryKey, anchorKey string, after bool) error
	Move(entryKey, targetRunID, anchorKey string, after bool) error
	InsertUnassigned(flightID, targetRunID, anchorKey string, after bool) error
	DiscardEdits() error
	Board() *schedule.Board
	Lanes() []layout.Lane
	Unassigned() []schedule.Flight
	Snapshot() planner.Snapshot
}

// JournalReader lists recorded mutations
type JournalReader interface {
	ByDate(ctx context.Context, date string, limit int) ([]*sqlite.MutationRecord, error)
	Recent(ctx context.Context, limit int) ([]*sqlite.MutationRecord, error)
}

// Handler contains the HTTP handlers
type Handler struct {
	session Session
	journal JournalReader
	config  *config.Config
	logger  *logger.Logger
}

// NewHandler creates a new handler. journal may be nil.
func NewHandler(session Session, journal JournalReader, config *config.Config, logger *logger.Logger) *Handler {
	return &Handler{
		session: session,
		journal: journal,
		config:  config,
		logger:  logger.Named("api-handler"),
	}
}

type loadRequest struct {
	Date string `json:"date"`
}

type assignRequest struct {
	FlightID string `json:"flight_id"`
}

// editRequest covers reorder, move and insert. EntryKey names a flight-run
// (or provisional entry); FlightID names an unassigned flight for insert.
type editRequest struct {
	EntryKey  string `json:"entry_key"`
	FlightID  string `json:"flight_id"`
	RunID     string `json:"run_id"`
	AnchorKey string `json:"anchor_key"`
	After     bool   `json:"after"`
}

type autoAssignRequest struct {
	Confirm bool   `json:"confirm"`
	Mode    string `json:"mode"`
}

type layoutResponse struct {
	OK         bool              `json:"ok"`
	Lanes      []layout.Lane     `json:"lanes"`
	Unassigned []schedule.Flight `json:"unassigned"`
	Session    planner.Snapshot  `json:"session"`
}

// GetBoard returns the board of the active date
func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	board := h.session.Board()
	if board == nil {
		h.writeError(w, r, planner.ErrNotReady)
		return
	}
	if date := r.URL.Query().Get("date"); date != "" && date != board.Date {
		h.writeError(w, r, planner.ErrNotReady)
		return
	}
	snap := h.session.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"board":       board,
		"feed_errors": snap.FeedErrors,
		"session":     snap,
	})
}

// LoadBoard selects a date and loads its board
func (h *Handler) LoadBoard(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.session.Load(r.Context(), req.Date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"partial":     result.Partial(),
		"board":       result.Board,
		"feed_errors": result.FeedErrors,
	})
}

// GetSession returns the session state
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "session": h.session.Snapshot()})
}

// AssignFlight assigns a flight to the run in the path
func (h *Handler) AssignFlight(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if !h.decode(w, r, &req) {
		return
	}
	runID := chi.URLParam(r, "runId")
	if err := h.session.AssignFlight(r.Context(), runID, req.FlightID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "board": h.session.Board()})
}

// AutoAssign runs a confirmed auto-assign pass
func (h *Handler) AutoAssign(w http.ResponseWriter, r *http.Request) {
	var req autoAssignRequest
	if !h.decode(w, r, &req) {
		return
	}
	report, err := h.session.AutoAssign(r.Context(), planner.AutoAssignOptions{
		Confirmed: req.Confirm,
		Mode:      planner.AutoAssignMode(req.Mode),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "result": report, "board": h.session.Board()})
}

// GetLayout returns the editor's local order
func (h *Handler) GetLayout(w http.ResponseWriter, r *http.Request) {
	h.writeLayout(w)
}

// ReorderEntry moves an entry within its run
func (h *Handler) ReorderEntry(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.session.Reorder(req.EntryKey, req.AnchorKey, req.After); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeLayout(w)
}

// MoveEntry moves an entry to another run
func (h *Handler) MoveEntry(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.session.Move(req.EntryKey, req.RunID, req.AnchorKey, req.After); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeLayout(w)
}

// InsertUnassigned drops an unassigned flight into a run locally
func (h *Handler) InsertUnassigned(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.session.InsertUnassigned(req.FlightID, req.RunID, req.AnchorKey, req.After); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeLayout(w)
}

// DiscardEdits reverts local edits
func (h *Handler) DiscardEdits(w http.ResponseWriter, r *http.Request) {
	if err := h.session.DiscardEdits(); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeLayout(w)
}

// SaveLayout persists the local order
func (h *Handler) SaveLayout(w http.ResponseWriter, r *http.Request) {
	result, err := h.session.SaveLayout(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":                  true,
		"updated_flight_runs": result.UpdatedFlightRuns,
		"board":               h.session.Board(),
	})
}

// GetJournal lists recorded mutations, optionally for one date
func (h *Handler) GetJournal(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "records": []*sqlite.MutationRecord{}})
		return
	}

	limit := defaultJournalLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, backend.Status{Status: http.StatusBadRequest, Message: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	var (
		records []*sqlite.MutationRecord
		err     error
	)
	if date := r.URL.Query().Get("date"); date != "" {
		records, err = h.journal.ByDate(r.Context(), date, limit)
	} else {
		records, err = h.journal.Recent(r.Context(), limit)
	}
	if err != nil {
		h.logger.Error("Failed to read journal", logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, backend.Status{Status: http.StatusInternalServerError, Message: "failed to read journal"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "records": records})
}

// GetHealth reports liveness and the session phase
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	snap := h.session.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"phase":  snap.Phase,
		"date":   snap.Date,
	})
}

// GetConfig returns the non-secret configuration the UI needs
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"airport":             h.config.Backend.Airport,
		"airline":             h.config.Backend.Airline,
		"max_flights_per_run": h.config.Planner.MaxFlightsPerRun,
		"tight_gap_minutes":   h.config.Planner.TightGapMinutes,
		"shift_bands":         schedule.ShiftBands,
	})
}

func (h *Handler) writeLayout(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, layoutResponse{
		OK:         true,
		Lanes:      h.session.Lanes(),
		Unassigned: h.session.Unassigned(),
		Session:    h.session.Snapshot(),
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, backend.Status{Status: http.StatusBadRequest, Message: "invalid request body"})
		return false
	}
	return true
}

// writeError renders every failure as {ok:false, status, message}. Remote
// failures keep the backend's status in the body and answer 502.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := httpStatus(err)
	body := backend.StatusOf(err)
	if _, remote := backend.AsFailure(err); !remote {
		body.Status = code
	}
	if errors.Is(err, planner.ErrRefreshFailed) {
		body.Message = planner.ErrRefreshFailed.Error() + ": " + body.Message
	}
	if code >= http.StatusInternalServerError {
		h.logger.Warn("Request failed",
			logger.String("path", r.URL.Path),
			logger.Int("status", code),
			logger.Error(err))
	}
	writeJSON(w, code, body)
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, planner.ErrInvalidDate),
		errors.Is(err, planner.ErrConfirmationRequired),
		errors.Is(err, planner.ErrUnknownMode),
		errors.Is(err, planner.ErrMissingAssignment),
		errors.Is(err, layout.ErrCrossRunAnchor),
		errors.Is(err, layout.ErrSelfAnchor):
		return http.StatusBadRequest
	case errors.Is(err, layout.ErrUnknownEntry),
		errors.Is(err, layout.ErrUnknownRun),
		errors.Is(err, layout.ErrNotUnassigned):
		return http.StatusNotFound
	case errors.Is(err, planner.ErrNotReady),
		errors.Is(err, planner.ErrSuperseded),
		errors.Is(err, planner.ErrMutationInFlight),
		errors.Is(err, planner.ErrProvisionalPending):
		return http.StatusConflict
	}
	if _, ok := backend.AsFailure(err); ok {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
