package schedule

import "sort"

// Display placeholders for optional values
const (
	Placeholder     = "—"
	UnassignedLabel = "Unassigned"
)

// Flight is the canonical flight record after ingestion normalization.
// The server owns it; a refresh replaces the whole snapshot.
type Flight struct {
	ID           string `json:"id"`
	FlightNumber string `json:"flight_number"`
	TimeLocal    string `json:"time_local"` // "HH:MM", empty when missing or malformed
	Destination  string `json:"destination"`
	OperatorCode string `json:"operator_code"`
	Notes        string `json:"notes,omitempty"`
	TailNumber   string `json:"tail_number,omitempty"`
	Status       string `json:"status,omitempty"`
}

// Run is a grouped sequence of flights serviced by one vehicle/crew
type Run struct {
	ID           string      `json:"id"`
	Label        string      `json:"label"`
	OperatorCode string      `json:"operator_code"`
	TruckID      *string     `json:"truck_id"` // nil means no vehicle assigned
	StartTime    string      `json:"start_time"`
	EndTime      string      `json:"end_time"`
	Flights      []FlightRun `json:"flights"`
}

// FlightRun binds a flight to a run at a sequence position
type FlightRun struct {
	ID            string  `json:"id"`
	RunID         string  `json:"run_id"`
	FlightID      string  `json:"flight_id"`
	SequenceIndex *int    `json:"sequence_index"` // nil when the server omitted it
	PlannedTime   string  `json:"planned_time"`
	Status        string  `json:"status,omitempty"`
	Flight        *Flight `json:"flight,omitempty"`
}

// StaffAssignment is one staff member attached to a flight through the
// staff overlay feed
type StaffAssignment struct {
	FlightKey  string `json:"flight_key"`
	FlightID   string `json:"flight_id,omitempty"`
	StaffID    string `json:"staff_id"`
	StaffLabel string `json:"staff_label"`
}

// Time returns the planned time, falling back to the embedded flight time
func (fr FlightRun) Time() string {
	if fr.PlannedTime != "" {
		return fr.PlannedTime
	}
	if fr.Flight != nil {
		return fr.Flight.TimeLocal
	}
	return ""
}

// VehicleLabel renders the assigned vehicle or "Unassigned"
func (r Run) VehicleLabel() string {
	if r.TruckID == nil || *r.TruckID == "" {
		return UnassignedLabel
	}
	return *r.TruckID
}

// FlightIDs lists member flight ids in stored order
func (r Run) FlightIDs() []string {
	ids := make([]string, 0, len(r.Flights))
	for _, fr := range r.Flights {
		ids = append(ids, fr.FlightID)
	}
	return ids
}

// Limits are the fixed conflict thresholds
type Limits struct {
	MaxFlights      int `json:"max_flights"`
	TightGapMinutes int `json:"tight_gap_minutes"`
}

// DefaultLimits returns a ceiling of 8 flights and a 20 minute turnaround
func DefaultLimits() Limits {
	return Limits{MaxFlights: 8, TightGapMinutes: 20}
}

func (l Limits) orDefault() Limits {
	d := DefaultLimits()
	if l.MaxFlights <= 0 {
		l.MaxFlights = d.MaxFlights
	}
	if l.TightGapMinutes <= 0 {
		l.TightGapMinutes = d.TightGapMinutes
	}
	return l
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}

// LayoutUpdate is the batch reorder request: every run with its flight-run
// ids in display order
type LayoutUpdate struct {
	Date string      `json:"date"`
	Runs []RunLayout `json:"runs"`
}

// RunLayout is one run's flight-run sequence
type RunLayout struct {
	ID           string   `json:"id"`
	FlightRunIDs []string `json:"flight_run_ids"`
}

// SortMembers orders by sequence index; absent or equal indices fall back
// to the planned time string.
func SortMembers(members []FlightRun) {
	sort.SliceStable(members, func(i, j int) bool {
		a, b := members[i], members[j]
		switch {
		case a.SequenceIndex != nil && b.SequenceIndex != nil:
			if *a.SequenceIndex != *b.SequenceIndex {
				return *a.SequenceIndex < *b.SequenceIndex
			}
		case a.SequenceIndex != nil:
			return true
		case b.SequenceIndex != nil:
			return false
		}
		return a.Time() < b.Time()
	})
}
