package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestNormalizeFlightFallbackChains(t *testing.T) {
	raw := gjson.Parse(`{
		"flight_id": 42,
		"flightNumber": "qf512",
		"scheduled_time": "2024-03-01T7:05:00",
		"dest": "SYD",
		"rego": "VH-ABC",
		"note": "wheelchair",
		"status_tag": "boarding"
	}`)
	f := NormalizeFlight(raw)
	assert.Equal(t, "42", f.ID)
	assert.Equal(t, "qf512", f.FlightNumber)
	assert.Equal(t, "", f.TimeLocal, "single-digit hour inside an ISO string is not a clock")
	assert.Equal(t, "SYD", f.Destination)
	assert.Equal(t, "QF", f.OperatorCode, "derived from the flight number when absent")
	assert.Equal(t, "VH-ABC", f.TailNumber)
	assert.Equal(t, "wheelchair", f.Notes)
	assert.Equal(t, "boarding", f.Status)
}

func TestNormalizeFlightPrefersCanonicalNames(t *testing.T) {
	raw := gjson.Parse(`{
		"id": "f1", "flight_id": "ignored",
		"flight_number": "VA100", "callsign": "VOZ100",
		"time_local": "9:40", "time": "23:00",
		"operator_code": "va", "airline": "QF"
	}`)
	f := NormalizeFlight(raw)
	assert.Equal(t, "f1", f.ID)
	assert.Equal(t, "VA100", f.FlightNumber)
	assert.Equal(t, "09:40", f.TimeLocal)
	assert.Equal(t, "VA", f.OperatorCode)
}

func TestNormalizeFlightToleratesGarbage(t *testing.T) {
	f := NormalizeFlight(gjson.Parse(`{"id":"x","time_local":null,"flight_number":""}`))
	assert.Equal(t, Flight{ID: "x"}, f)

	flights := NormalizeFlights(gjson.Parse(`[{"id":"a"}, 3, "junk", null, {"id":"b"}]`))
	require.Len(t, flights, 2)
	assert.Equal(t, "b", flights[1].ID)

	assert.Empty(t, NormalizeFlights(gjson.Parse(`null`)))
}

func TestNormalizeRunLastMemberArrayWins(t *testing.T) {
	raw := gjson.Parse(`{
		"id": "r1",
		"flights": [{"id": "fr-old", "flight_id": "a"}],
		"flight_runs": [{"id": "fr-mid", "flight_id": "b"}],
		"flightRuns": [{"id": "fr-new", "flightId": "c", "sequenceIndex": "0"}]
	}`)
	run := NormalizeRun(raw)
	require.Len(t, run.Flights, 1)
	assert.Equal(t, "fr-new", run.Flights[0].ID)
	assert.Equal(t, "c", run.Flights[0].FlightID)
	assert.Equal(t, "r1", run.Flights[0].RunID)
	require.NotNil(t, run.Flights[0].SequenceIndex)
	assert.Equal(t, 0, *run.Flights[0].SequenceIndex)
	assert.Equal(t, "Run r1", run.Label)
	assert.Nil(t, run.TruckID)
	assert.Equal(t, UnassignedLabel, run.VehicleLabel())
}

func TestNormalizeRunDerivesTimesAndEmbeddedFlight(t *testing.T) {
	raw := gjson.Parse(`{
		"id": 7, "label": "Early A", "truck_id": "T4",
		"flights": [
			{"id": 1, "sequence_index": 1, "flight": {"id": "b", "flight_number": "QF2", "time_local": "08:30"}},
			{"id": 2, "flight_id": "a", "sequence_index": 0, "planned_time": "06:10"}
		]
	}`)
	run := NormalizeRun(raw)
	assert.Equal(t, "7", run.ID)
	assert.Equal(t, "T4", run.VehicleLabel())
	assert.Equal(t, "06:10", run.StartTime)
	assert.Equal(t, "08:30", run.EndTime)
	require.Len(t, run.Flights, 2)
	assert.Equal(t, "b", run.Flights[0].FlightID, "flight id taken from the embedded flight")
	assert.Equal(t, "08:30", run.Flights[0].Time())
	assert.Equal(t, []string{"b", "a"}, run.FlightIDs())
}

func TestNormalizeStaffBuildsSyntheticKey(t *testing.T) {
	raw := gjson.Parse(`[
		{"flight_number": "qf 12", "time_local": "09:00", "staff_id": "s1", "staff_name": "Alex"},
		{"flight_key": "VA7|2024-03-01T10:00", "staff_id": "s2"},
		{"flight_id": "f9", "staffId": "s3", "staff_code": "KM"},
		{"staff_id": "orphan"}
	]`)
	staff := NormalizeStaff(raw, "2024-03-01")
	require.Len(t, staff, 3)
	assert.Equal(t, "QF12|2024-03-01T09:00", staff[0].FlightKey)
	assert.Equal(t, "Alex", staff[0].StaffLabel)
	assert.Equal(t, "s2", staff[1].StaffLabel, "label falls back to staff id")
	assert.Equal(t, "f9", staff[2].FlightID)
	assert.Equal(t, "KM", staff[2].StaffLabel)
}
