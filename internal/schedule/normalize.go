package schedule

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Field precedence chains for upstream payloads. The first non-empty value
// wins. Upstream feeds are not consistent about naming, so every shape the
// dashboard has seen is listed here and nowhere else.
var (
	flightIDKeys       = []string{"id", "flight_id", "flightId"}
	flightNumberKeys   = []string{"flight_number", "flightNumber", "flight_no", "callsign"}
	flightTimeKeys     = []string{"time_local", "timeLocal", "scheduled_time", "estimated_time", "time"}
	destinationKeys    = []string{"destination", "dest", "destination_code"}
	operatorCodeKeys   = []string{"operator_code", "operatorCode", "airline", "airline_code"}
	tailNumberKeys     = []string{"tail_number", "tailNumber", "rego", "tail"}
	notesKeys          = []string{"notes", "note"}
	statusKeys         = []string{"status", "status_tag"}
	runLabelKeys       = []string{"label", "name"}
	truckIDKeys        = []string{"truck_id", "truckId", "vehicle_id", "vehicle"}
	startTimeKeys      = []string{"start_time", "startTime"}
	endTimeKeys        = []string{"end_time", "endTime"}
	flightRunIDKeys    = []string{"id", "flight_run_id", "flightRunId"}
	memberFlightIDKeys = []string{"flight_id", "flightId"}
	sequenceKeys       = []string{"sequence_index", "sequenceIndex", "position"}
	plannedTimeKeys    = []string{"planned_time", "plannedTime"}
	staffKeyKeys       = []string{"flight_key", "flightKey"}
	staffIDKeys        = []string{"staff_id", "staffId", "employee_id"}
	staffLabelKeys     = []string{"staff_name", "staff_label", "name", "staff_code"}

	// The member array of a run has appeared under three names; when more
	// than one is present the last one listed here wins.
	runMemberArrayKeys = []string{"flights", "flight_runs", "flightRuns"}
)

func firstString(r gjson.Result, keys ...string) string {
	for _, key := range keys {
		v := r.Get(key)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		if s := strings.TrimSpace(v.String()); s != "" {
			return s
		}
	}
	return ""
}

func firstInt(r gjson.Result, keys ...string) *int {
	for _, key := range keys {
		v := r.Get(key)
		switch v.Type {
		case gjson.Number:
			n := int(v.Int())
			return &n
		case gjson.String:
			if n, err := strconv.Atoi(strings.TrimSpace(v.Str)); err == nil {
				return &n
			}
		}
	}
	return nil
}

// NormalizeFlight maps one upstream flight object onto Flight. Missing or
// malformed optional fields become empty strings.
func NormalizeFlight(r gjson.Result) Flight {
	f := Flight{
		ID:           firstString(r, flightIDKeys...),
		FlightNumber: firstString(r, flightNumberKeys...),
		TimeLocal:    CanonicalClock(firstString(r, flightTimeKeys...)),
		Destination:  firstString(r, destinationKeys...),
		OperatorCode: strings.ToUpper(firstString(r, operatorCodeKeys...)),
		Notes:        firstString(r, notesKeys...),
		TailNumber:   firstString(r, tailNumberKeys...),
		Status:       firstString(r, statusKeys...),
	}
	if f.OperatorCode == "" {
		f.OperatorCode = OperatorPrefix(f.FlightNumber)
	}
	return f
}

// NormalizeFlights maps an upstream flight array. Non-object entries are
// skipped.
func NormalizeFlights(arr gjson.Result) []Flight {
	flights := []Flight{}
	arr.ForEach(func(_, v gjson.Result) bool {
		if v.IsObject() {
			flights = append(flights, NormalizeFlight(v))
		}
		return true
	})
	return flights
}

// NormalizeFlightRun maps one member of a run
func NormalizeFlightRun(r gjson.Result, runID string) FlightRun {
	fr := FlightRun{
		ID:            firstString(r, flightRunIDKeys...),
		RunID:         firstString(r, "run_id", "runId"),
		FlightID:      firstString(r, memberFlightIDKeys...),
		SequenceIndex: firstInt(r, sequenceKeys...),
		PlannedTime:   CanonicalClock(firstString(r, plannedTimeKeys...)),
		Status:        firstString(r, statusKeys...),
	}
	if fr.RunID == "" {
		fr.RunID = runID
	}
	if embedded := r.Get("flight"); embedded.IsObject() {
		f := NormalizeFlight(embedded)
		fr.Flight = &f
		if fr.FlightID == "" {
			fr.FlightID = f.ID
		}
	}
	return fr
}

// NormalizeRun maps one upstream run object, resolving the member array
// shape once and deriving start/end times from members when absent.
func NormalizeRun(r gjson.Result) Run {
	run := Run{
		ID:           firstString(r, "id", "run_id", "runId"),
		Label:        firstString(r, runLabelKeys...),
		OperatorCode: strings.ToUpper(firstString(r, operatorCodeKeys...)),
		StartTime:    CanonicalClock(firstString(r, startTimeKeys...)),
		EndTime:      CanonicalClock(firstString(r, endTimeKeys...)),
		Flights:      []FlightRun{},
	}
	if truck := firstString(r, truckIDKeys...); truck != "" {
		run.TruckID = &truck
	}
	if run.Label == "" {
		run.Label = fmt.Sprintf("Run %s", run.ID)
	}

	var members gjson.Result
	for _, key := range runMemberArrayKeys {
		if v := r.Get(key); v.IsArray() {
			members = v
		}
	}
	members.ForEach(func(_, v gjson.Result) bool {
		if v.IsObject() {
			run.Flights = append(run.Flights, NormalizeFlightRun(v, run.ID))
		}
		return true
	})

	if run.StartTime == "" || run.EndTime == "" {
		first, last := memberTimeRange(run.Flights)
		if run.StartTime == "" {
			run.StartTime = first
		}
		if run.EndTime == "" {
			run.EndTime = last
		}
	}
	return run
}

// NormalizeRuns maps an upstream run array
func NormalizeRuns(arr gjson.Result) []Run {
	runs := []Run{}
	arr.ForEach(func(_, v gjson.Result) bool {
		if v.IsObject() {
			runs = append(runs, NormalizeRun(v))
		}
		return true
	})
	return runs
}

// NormalizeStaff maps staff overlay rows. Rows without a flight key get the
// synthetic FlightKey built from flight number and time on date.
func NormalizeStaff(arr gjson.Result, date string) []StaffAssignment {
	out := []StaffAssignment{}
	arr.ForEach(func(_, v gjson.Result) bool {
		if !v.IsObject() {
			return true
		}
		sa := StaffAssignment{
			FlightKey:  firstString(v, staffKeyKeys...),
			FlightID:   firstString(v, memberFlightIDKeys...),
			StaffID:    firstString(v, staffIDKeys...),
			StaffLabel: firstString(v, staffLabelKeys...),
		}
		if sa.StaffLabel == "" {
			sa.StaffLabel = sa.StaffID
		}
		if sa.FlightKey == "" {
			number := firstString(v, flightNumberKeys...)
			if number != "" {
				sa.FlightKey = FlightKey(number, date, firstString(v, flightTimeKeys...))
			}
		}
		if sa.FlightKey == "" && sa.FlightID == "" {
			return true
		}
		out = append(out, sa)
		return true
	})
	return out
}

func memberTimeRange(members []FlightRun) (string, string) {
	first, last := "", ""
	for _, fr := range members {
		t := fr.Time()
		if t == "" {
			continue
		}
		if first == "" || t < first {
			first = t
		}
		if t > last {
			last = t
		}
	}
	return first, last
}
