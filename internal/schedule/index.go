package schedule

import (
	"fmt"
	"strings"
)

// Index maps flights to their current run and staff. It is rebuilt from
// scratch on every refresh.
type Index struct {
	runByFlight map[string]*Run
	staffByKey  map[string][]StaffAssignment
	staffByID   map[string][]StaffAssignment
	duplicates  []string
}

// BuildIndex walks every run's flight list once. A flight listed in more
// than one run resolves to the last run seen; such ids are reported by
// Duplicates but not rejected.
func BuildIndex(runs []Run, staff []StaffAssignment) *Index {
	idx := &Index{
		runByFlight: make(map[string]*Run),
		staffByKey:  make(map[string][]StaffAssignment),
		staffByID:   make(map[string][]StaffAssignment),
	}

	for i := range runs {
		run := &runs[i]
		for _, fr := range run.Flights {
			if fr.FlightID == "" {
				continue
			}
			if prev, ok := idx.runByFlight[fr.FlightID]; ok && prev.ID != run.ID {
				idx.duplicates = append(idx.duplicates, fr.FlightID)
			}
			idx.runByFlight[fr.FlightID] = run
		}
	}

	for _, sa := range staff {
		if sa.FlightKey != "" {
			idx.staffByKey[sa.FlightKey] = append(idx.staffByKey[sa.FlightKey], sa)
		}
		if sa.FlightID != "" {
			idx.staffByID[sa.FlightID] = append(idx.staffByID[sa.FlightID], sa)
		}
	}

	return idx
}

// RunFor returns the run owning flightID
func (idx *Index) RunFor(flightID string) (*Run, bool) {
	run, ok := idx.runByFlight[flightID]
	return run, ok
}

// Assigned reports whether the flight is a member of any run
func (idx *Index) Assigned(flightID string) bool {
	_, ok := idx.runByFlight[flightID]
	return ok
}

// StaffFor returns all staff attached to a flight key
func (idx *Index) StaffFor(key string) []StaffAssignment {
	return idx.staffByKey[key]
}

// StaffList returns the staff attached to a flight. The canonical flight
// id is preferred; the synthetic key is the fallback.
func (idx *Index) StaffList(f Flight, date string) []StaffAssignment {
	if list := idx.staffByID[f.ID]; len(list) > 0 {
		return list
	}
	return idx.staffByKey[FlightKey(f.FlightNumber, date, f.TimeLocal)]
}

// PrimaryStaff is the first staff entry for the flight
func (idx *Index) PrimaryStaff(f Flight, date string) (StaffAssignment, bool) {
	list := idx.StaffList(f, date)
	if len(list) == 0 {
		return StaffAssignment{}, false
	}
	return list[0], true
}

// Duplicates lists flight ids seen in more than one run
func (idx *Index) Duplicates() []string {
	return idx.duplicates
}

// FlightKey is the synthetic staff-overlay key "FLIGHTNO|YYYY-MM-DDTHH:MM",
// used when the overlay feed has no canonical flight id.
func FlightKey(flightNumber, date, timeLocal string) string {
	number := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(flightNumber), " ", ""))
	clock := CanonicalClock(timeLocal)
	if clock == "" {
		return fmt.Sprintf("%s|%s", number, date)
	}
	return fmt.Sprintf("%s|%sT%s", number, date, clock)
}
