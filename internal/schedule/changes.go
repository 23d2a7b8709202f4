package schedule

import "sort"

// Assignment change types
const (
	ChangeAdded       = "added"       // flight joined a run
	ChangeRemoved     = "removed"     // flight left every run
	ChangeMoved       = "moved"       // flight is now in a different run
	ChangeResequenced = "resequenced" // same run, different position
)

// AssignmentChange is one flight whose run placement differs between two
// snapshots of the same day
type AssignmentChange struct {
	Type      string `json:"type"`
	FlightID  string `json:"flight_id"`
	FromRunID string `json:"from_run_id,omitempty"`
	ToRunID   string `json:"to_run_id,omitempty"`
	FromIndex int    `json:"from_index"`
	ToIndex   int    `json:"to_index"`
}

type placement struct {
	runID string
	index int
}

// DiffAssignments compares run membership before and after a refresh.
// Positions are the dense order members would be shown in, so a server
// that only renumbers sparse indices produces no resequenced entries.
func DiffAssignments(before, after []Run) []AssignmentChange {
	prev := placements(before)
	curr := placements(after)
	changes := []AssignmentChange{}

	for flightID, now := range curr {
		was, existed := prev[flightID]
		switch {
		case !existed:
			changes = append(changes, AssignmentChange{Type: ChangeAdded, FlightID: flightID, ToRunID: now.runID, FromIndex: -1, ToIndex: now.index})
		case was.runID != now.runID:
			changes = append(changes, AssignmentChange{Type: ChangeMoved, FlightID: flightID, FromRunID: was.runID, ToRunID: now.runID, FromIndex: was.index, ToIndex: now.index})
		case was.index != now.index:
			changes = append(changes, AssignmentChange{Type: ChangeResequenced, FlightID: flightID, FromRunID: was.runID, ToRunID: now.runID, FromIndex: was.index, ToIndex: now.index})
		}
	}
	for flightID, was := range prev {
		if _, exists := curr[flightID]; !exists {
			changes = append(changes, AssignmentChange{Type: ChangeRemoved, FlightID: flightID, FromRunID: was.runID, FromIndex: was.index, ToIndex: -1})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].FlightID < changes[j].FlightID
	})
	return changes
}

// placements maps each flight to its run and display position. As with
// BuildIndex, the last run listing a flight wins.
func placements(runs []Run) map[string]placement {
	out := make(map[string]placement)
	for _, run := range runs {
		members := append([]FlightRun(nil), run.Flights...)
		SortMembers(members)
		for i, fr := range members {
			out[fr.FlightID] = placement{runID: run.ID, index: i}
		}
	}
	return out
}
