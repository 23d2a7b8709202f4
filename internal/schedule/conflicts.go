package schedule

import "sort"

// Timed is the minimal view of a flight the conflict analyzer needs
type Timed struct {
	ID           string
	FlightNumber string
	Time         string
}

// TightConnection is a consecutive pair whose gap is under the turnaround
// threshold. GapMinutes is plain wall-clock subtraction and may be negative.
type TightConnection struct {
	FromID     string `json:"from_id"`
	ToID       string `json:"to_id"`
	GapMinutes int    `json:"gap_minutes"`
}

// ConflictSummary is derived per call and never cached
type ConflictSummary struct {
	FlightCount      int               `json:"flight_count"`
	Overloaded       bool              `json:"overloaded"`
	TightConnections []TightConnection `json:"tight_connections"`
	HasConflicts     bool              `json:"has_conflicts"`
}

// AnalyzeConflicts sorts the items by time string and flags tight
// connections between neighbours plus an overall overload.
func AnalyzeConflicts(items []Timed, limits Limits) ConflictSummary {
	limits = limits.orDefault()

	sorted := make([]Timed, len(items))
	copy(sorted, items)
	sortTimed(sorted)

	tight := []TightConnection{}
	for i := 1; i < len(sorted); i++ {
		prev, next := sorted[i-1], sorted[i]
		a, okA := ParseClock(prev.Time)
		b, okB := ParseClock(next.Time)
		if !okA || !okB {
			continue
		}
		gap := b - a
		if gap < limits.TightGapMinutes {
			tight = append(tight, TightConnection{FromID: prev.ID, ToID: next.ID, GapMinutes: gap})
		}
	}

	overloaded := len(items) > limits.MaxFlights
	return ConflictSummary{
		FlightCount:      len(items),
		Overloaded:       overloaded,
		TightConnections: tight,
		HasConflicts:     overloaded || len(tight) > 0,
	}
}

// TightIDs returns every flight id that is an endpoint of a tight pair
func (c ConflictSummary) TightIDs() map[string]bool {
	ids := make(map[string]bool, len(c.TightConnections)*2)
	for _, tc := range c.TightConnections {
		ids[tc.FromID] = true
		ids[tc.ToID] = true
	}
	return ids
}

// IsTight reports whether id appears in any tight pair
func (c ConflictSummary) IsTight(id string) bool {
	for _, tc := range c.TightConnections {
		if tc.FromID == id || tc.ToID == id {
			return true
		}
	}
	return false
}

// FlightsTimed adapts a flight list for AnalyzeConflicts
func FlightsTimed(flights []Flight) []Timed {
	out := make([]Timed, 0, len(flights))
	for _, f := range flights {
		out = append(out, Timed{ID: f.ID, FlightNumber: f.FlightNumber, Time: f.TimeLocal})
	}
	return out
}

// RunTimed adapts a run's flight-run list for AnalyzeConflicts, keyed by
// flight id
func RunTimed(run Run) []Timed {
	out := make([]Timed, 0, len(run.Flights))
	for _, fr := range run.Flights {
		t := Timed{ID: fr.FlightID, Time: fr.Time()}
		if fr.Flight != nil {
			t.FlightNumber = fr.Flight.FlightNumber
		}
		out = append(out, t)
	}
	return out
}

// sortTimed orders by time string; missing times compare as "" and sort
// first. Equal times fall back to flight number then id so the output does
// not depend on input order.
func sortTimed(items []Timed) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		if a.FlightNumber != b.FlightNumber {
			return a.FlightNumber < b.FlightNumber
		}
		return a.ID < b.ID
	})
}
