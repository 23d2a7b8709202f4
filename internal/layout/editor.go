package layout

import (
	"errors"
	"fmt"
	"sort"

	"github.com/yegors/runboard/internal/schedule"
)

// ProvisionalPrefix marks the key of an entry created by dropping an
// unassigned flight into a run. Such entries have no flight-run id until
// the server confirms them.
const ProvisionalPrefix = "new:"

var (
	ErrUnknownEntry   = errors.New("unknown entry")
	ErrUnknownRun     = errors.New("unknown run")
	ErrNotUnassigned  = errors.New("flight is not unassigned")
	ErrCrossRunAnchor = errors.New("anchor belongs to a different run")
	ErrSelfAnchor     = errors.New("entry cannot be anchored to itself")
)

// Entry is one flight's position in a run as currently shown. Assigned marks
// a provisional entry the server accepted before a refresh brought back its
// flight-run id.
type Entry struct {
	ID            string           `json:"id"`
	FlightID      string           `json:"flight_id"`
	RunID         string           `json:"run_id"`
	PlannedTime   string           `json:"planned_time"`
	SequenceIndex int              `json:"sequence_index"`
	Provisional   bool             `json:"provisional"`
	Assigned      bool             `json:"assigned,omitempty"`
	Flight        *schedule.Flight `json:"flight,omitempty"`
}

// Key identifies the entry within the editor
func (e Entry) Key() string {
	if e.Provisional {
		return ProvisionalPrefix + e.FlightID
	}
	return e.ID
}

// Lane is a run with its entries in on-screen order
type Lane struct {
	RunID   string  `json:"run_id"`
	Label   string  `json:"label"`
	Entries []Entry `json:"entries"`
}

type lane struct {
	run     schedule.Run
	entries []*Entry
}

// Editor owns the mutable on-screen order of flights within runs. It never
// computes conflicts; those are re-derived from server data after a save.
// An Editor is not safe for concurrent use.
type Editor struct {
	order      []string
	lanes      map[string]*lane
	unassigned []schedule.Flight
	dirty      map[string]bool
}

// NewEditor builds lanes from confirmed runs
func NewEditor(runs []schedule.Run, unassigned []schedule.Flight) *Editor {
	e := &Editor{}
	e.Reset(runs, unassigned)
	return e
}

// Reset discards all local edits and rebuilds from server truth
func (e *Editor) Reset(runs []schedule.Run, unassigned []schedule.Flight) {
	e.order = make([]string, 0, len(runs))
	e.lanes = make(map[string]*lane, len(runs))
	e.dirty = make(map[string]bool)
	e.unassigned = append([]schedule.Flight(nil), unassigned...)

	for _, run := range runs {
		l := &lane{run: run, entries: make([]*Entry, 0, len(run.Flights))}
		members := append([]schedule.FlightRun(nil), run.Flights...)
		schedule.SortMembers(members)
		for _, fr := range members {
			l.entries = append(l.entries, &Entry{
				ID:          fr.ID,
				FlightID:    fr.FlightID,
				RunID:       run.ID,
				PlannedTime: fr.Time(),
				Flight:      fr.Flight,
			})
		}
		resequence(l)
		if _, seen := e.lanes[run.ID]; !seen {
			e.order = append(e.order, run.ID)
		}
		e.lanes[run.ID] = l
	}
}

func resequence(l *lane) {
	for i, entry := range l.entries {
		entry.SequenceIndex = i
	}
}

// Reorder moves an entry before or after another entry of the same run
func (e *Editor) Reorder(entryKey, anchorKey string, after bool) error {
	src, _, err := e.locate(entryKey)
	if err != nil {
		return err
	}
	if anchorKey == "" {
		return fmt.Errorf("%w: reorder needs an anchor", ErrUnknownEntry)
	}
	anchorLane, _, err := e.locate(anchorKey)
	if err != nil {
		return err
	}
	if anchorLane != src {
		return ErrCrossRunAnchor
	}
	return e.place(entryKey, src.run.ID, anchorKey, after)
}

// Move takes an entry out of its run and drops it into targetRunID before
// or after anchorKey. An empty anchor appends to the end.
func (e *Editor) Move(entryKey, targetRunID, anchorKey string, after bool) error {
	if _, _, err := e.locate(entryKey); err != nil {
		return err
	}
	return e.place(entryKey, targetRunID, anchorKey, after)
}

// InsertUnassigned drops a flight from the unassigned set into a run as a
// provisional entry
func (e *Editor) InsertUnassigned(flightID, targetRunID, anchorKey string, after bool) error {
	pos := -1
	for i, f := range e.unassigned {
		if f.ID == flightID {
			pos = i
			break
		}
	}
	if pos < 0 {
		return fmt.Errorf("%w: %s", ErrNotUnassigned, flightID)
	}
	target, at, err := e.dropPosition(targetRunID, anchorKey, "", after)
	if err != nil {
		return err
	}

	flight := e.unassigned[pos]
	e.unassigned = append(e.unassigned[:pos], e.unassigned[pos+1:]...)
	entry := &Entry{
		FlightID:    flight.ID,
		RunID:       targetRunID,
		PlannedTime: flight.TimeLocal,
		Provisional: true,
		Flight:      &flight,
	}
	insertAt(target, at, entry)
	resequence(target)
	e.dirty[targetRunID] = true
	return nil
}

// DiscardProvisional removes a provisional entry and returns its flight to
// the unassigned set
func (e *Editor) DiscardProvisional(flightID string) bool {
	l, i, err := e.locate(ProvisionalPrefix + flightID)
	if err != nil {
		return false
	}
	entry := l.entries[i]
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	resequence(l)

	if entry.Flight != nil {
		e.unassigned = append(e.unassigned, *entry.Flight)
	} else {
		e.unassigned = append(e.unassigned, schedule.Flight{ID: entry.FlightID, TimeLocal: entry.PlannedTime})
	}
	sort.SliceStable(e.unassigned, func(a, b int) bool {
		x, y := e.unassigned[a], e.unassigned[b]
		if x.TimeLocal != y.TimeLocal {
			return x.TimeLocal < y.TimeLocal
		}
		return x.FlightNumber < y.FlightNumber
	})
	return true
}

// ConfirmProvisional marks a provisional entry as assigned on the server.
// It keeps its place until the next Reset but no longer blocks a layout save.
func (e *Editor) ConfirmProvisional(flightID string) bool {
	l, i, err := e.locate(ProvisionalPrefix + flightID)
	if err != nil {
		return false
	}
	l.entries[i].Assigned = true
	return true
}

func (e *Editor) place(entryKey, targetRunID, anchorKey string, after bool) error {
	src, from, err := e.locate(entryKey)
	if err != nil {
		return err
	}
	target, at, err := e.dropPosition(targetRunID, anchorKey, entryKey, after)
	if err != nil {
		return err
	}

	entry := src.entries[from]
	src.entries = append(src.entries[:from], src.entries[from+1:]...)
	if src == target && from < at {
		at--
	}
	entry.RunID = targetRunID
	insertAt(target, at, entry)

	resequence(src)
	resequence(target)
	e.dirty[src.run.ID] = true
	e.dirty[targetRunID] = true
	return nil
}

// dropPosition resolves where an entry lands in targetRunID. The index is
// relative to the lane before the moving entry is removed.
func (e *Editor) dropPosition(targetRunID, anchorKey, movingKey string, after bool) (*lane, int, error) {
	target, ok := e.lanes[targetRunID]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnknownRun, targetRunID)
	}
	if anchorKey == "" {
		return target, len(target.entries), nil
	}
	if anchorKey == movingKey {
		return nil, 0, ErrSelfAnchor
	}
	for i, entry := range target.entries {
		if entry.Key() == anchorKey {
			if after {
				i++
			}
			return target, i, nil
		}
	}
	return nil, 0, fmt.Errorf("%w: anchor %s not in run %s", ErrUnknownEntry, anchorKey, targetRunID)
}

func (e *Editor) locate(key string) (*lane, int, error) {
	for _, id := range e.order {
		l := e.lanes[id]
		for i, entry := range l.entries {
			if entry.Key() == key {
				return l, i, nil
			}
		}
	}
	return nil, 0, fmt.Errorf("%w: %s", ErrUnknownEntry, key)
}

func insertAt(l *lane, at int, entry *Entry) {
	if at > len(l.entries) {
		at = len(l.entries)
	}
	l.entries = append(l.entries, nil)
	copy(l.entries[at+1:], l.entries[at:])
	l.entries[at] = entry
}

// Lanes returns a copy of every run's current order
func (e *Editor) Lanes() []Lane {
	lanes := make([]Lane, 0, len(e.order))
	for _, id := range e.order {
		l := e.lanes[id]
		lanes = append(lanes, Lane{RunID: id, Label: l.run.Label, Entries: copyEntries(l.entries)})
	}
	return lanes
}

// Entries returns a copy of one run's current order
func (e *Editor) Entries(runID string) ([]Entry, bool) {
	l, ok := e.lanes[runID]
	if !ok {
		return nil, false
	}
	return copyEntries(l.entries), true
}

// Runs renders the local order back into runs with dense sequence indices
func (e *Editor) Runs() []schedule.Run {
	runs := make([]schedule.Run, 0, len(e.order))
	for _, id := range e.order {
		l := e.lanes[id]
		run := l.run
		run.Flights = make([]schedule.FlightRun, 0, len(l.entries))
		for _, entry := range l.entries {
			seq := entry.SequenceIndex
			run.Flights = append(run.Flights, schedule.FlightRun{
				ID:            entry.ID,
				RunID:         id,
				FlightID:      entry.FlightID,
				SequenceIndex: &seq,
				PlannedTime:   entry.PlannedTime,
				Flight:        entry.Flight,
			})
		}
		runs = append(runs, run)
	}
	return runs
}

// Unassigned returns the flights not placed in any run locally
func (e *Editor) Unassigned() []schedule.Flight {
	return append([]schedule.Flight(nil), e.unassigned...)
}

// Dirty lists the runs touched since the last Reset, in run order
func (e *Editor) Dirty() []string {
	ids := []string{}
	for _, id := range e.order {
		if e.dirty[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

// Provisional lists entries still waiting for a server-side assignment
func (e *Editor) Provisional() []Entry {
	out := []Entry{}
	for _, id := range e.order {
		for _, entry := range e.lanes[id].entries {
			if entry.Provisional && !entry.Assigned {
				out = append(out, *entry)
			}
		}
	}
	return out
}

// LayoutRequest serializes every run, touched or not, in on-screen order.
// Provisional entries are skipped: they become members through an assign
// request, not a layout update.
func (e *Editor) LayoutRequest(date string) schedule.LayoutUpdate {
	req := schedule.LayoutUpdate{Date: date, Runs: make([]schedule.RunLayout, 0, len(e.order))}
	for _, id := range e.order {
		ids := []string{}
		for _, entry := range e.lanes[id].entries {
			if !entry.Provisional {
				ids = append(ids, entry.ID)
			}
		}
		req.Runs = append(req.Runs, schedule.RunLayout{ID: id, FlightRunIDs: ids})
	}
	return req
}

func copyEntries(entries []*Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, *entry)
	}
	return out
}
