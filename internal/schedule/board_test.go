package schedule

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }

func sampleDay() BoardInput {
	flights := []Flight{
		{ID: "f1", FlightNumber: "QF1", TimeLocal: "06:00", Destination: "SYD"},
		{ID: "f2", FlightNumber: "QF3", TimeLocal: "06:10"},
		{ID: "f3", FlightNumber: "VA5", TimeLocal: "12:00"},
		{ID: "f4", FlightNumber: "jq7", TimeLocal: "18:30"},
		{ID: "f5", FlightNumber: "", TimeLocal: ""},
		{ID: "f6", FlightNumber: "QF9", TimeLocal: "12:30"},
	}
	runs := []Run{
		{
			ID: "r-am", Label: "Early", TruckID: strPtr("T1"), StartTime: "06:00", EndTime: "06:10",
			Flights: []FlightRun{
				{ID: "fr1", RunID: "r-am", FlightID: "f1", SequenceIndex: intPtr(0), PlannedTime: "06:00"},
				{ID: "fr2", RunID: "r-am", FlightID: "f2", SequenceIndex: intPtr(1), PlannedTime: "06:10"},
			},
		},
		{
			ID: "r-mid", Label: "Noon", StartTime: "12:00", EndTime: "12:00",
			Flights: []FlightRun{
				{ID: "fr3", RunID: "r-mid", FlightID: "f3", SequenceIndex: intPtr(0), PlannedTime: "12:00"},
			},
		},
	}
	staff := []StaffAssignment{
		{FlightKey: FlightKey("QF1", "2024-03-01", "06:00"), StaffID: "s1", StaffLabel: "Sam"},
		{FlightKey: FlightKey("QF1", "2024-03-01", "06:00"), StaffID: "s2", StaffLabel: "Kim"},
		{FlightID: "f3", StaffID: "s3", StaffLabel: "Lee"},
	}
	return BoardInput{Date: "2024-03-01", Flights: flights, Runs: runs, Staff: staff}
}

func TestBuildBoardRowsAndLabels(t *testing.T) {
	board := BuildBoard(sampleDay())

	require.Len(t, board.Rows, 6)
	order := make([]string, 0, len(board.Rows))
	for _, r := range board.Rows {
		order = append(order, r.Flight.ID)
	}
	assert.Equal(t, []string{"f5", "f1", "f2", "f3", "f6", "f4"}, order)

	missing := board.Rows[0]
	assert.Equal(t, Placeholder, missing.TimeDisplay)
	assert.Equal(t, BandUnscheduled, missing.Band)
	assert.Equal(t, UnassignedLabel, missing.RunLabel)
	assert.Equal(t, Placeholder, missing.StaffLabel)

	first := board.Rows[1]
	assert.Equal(t, "Early", first.RunLabel)
	assert.Equal(t, "Sam", first.StaffLabel, "first staff entry is primary")
	assert.Equal(t, 2, first.StaffCount)
	assert.True(t, first.TightConnection)
	assert.True(t, first.RunConflict)

	assert.Equal(t, "Lee", board.Rows[3].StaffLabel)
}

func TestBuildBoardUnassigned(t *testing.T) {
	board := BuildBoard(sampleDay())

	ids := []string{}
	for _, f := range board.Unassigned {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"f5", "f6", "f4"}, ids)

	assigned := map[string]bool{}
	for _, g := range board.Groups {
		for _, c := range g.Runs {
			for _, id := range c.Run.FlightIDs() {
				assigned[id] = true
			}
		}
	}
	for _, f := range board.Unassigned {
		assert.False(t, assigned[f.ID], f.ID)
	}
}

func TestBuildBoardGroupsAreEmptySafe(t *testing.T) {
	board := BuildBoard(sampleDay())
	require.Len(t, board.Groups, 4)
	for i, band := range ShiftBands {
		assert.Equal(t, band, board.Groups[i].Band)
		assert.NotNil(t, board.Groups[i].Runs)
	}
	assert.Len(t, board.Group(BandAM).Runs, 1)
	assert.Len(t, board.Group(BandMidday).Runs, 1)
	assert.Empty(t, board.Group(BandEvening).Runs)

	card, ok := board.Card("r-mid")
	require.True(t, ok)
	assert.Equal(t, UnassignedLabel, card.VehicleLabel)
	assert.False(t, card.Conflicts.HasConflicts)

	empty := BuildBoard(BoardInput{})
	assert.Len(t, empty.Groups, 4)
	assert.Empty(t, empty.Rows)
	assert.Empty(t, empty.Unassigned)
	assert.Equal(t, 0, empty.Summary.Total)
}

func TestBuildBoardSummary(t *testing.T) {
	board := BuildBoard(sampleDay())
	s := board.Summary
	assert.Equal(t, 6, s.Total)
	require.Len(t, s.Parts, 3)

	assert.Equal(t, "am", s.Parts[0].Part)
	assert.Equal(t, 3, s.Parts[0].Total, "12:00 counts as am in the summary")
	assert.Equal(t, map[string]int{"QF": 2, "VA": 1}, s.Parts[0].ByOperator)

	assert.Equal(t, "pm", s.Parts[1].Part)
	assert.Equal(t, map[string]int{"QF": 1, "JQ": 1}, s.Parts[1].ByOperator)

	assert.Equal(t, "unscheduled", s.Parts[2].Part)
	assert.Equal(t, map[string]int{"": 1}, s.Parts[2].ByOperator)

	assert.Equal(t, map[string]int{"QF": 3, "VA": 1, "JQ": 1, "": 1}, s.ByOperator)
}

func TestBuildBoardIsIdempotent(t *testing.T) {
	in := sampleDay()
	a, err := json.Marshal(BuildBoard(in))
	require.NoError(t, err)
	b, err := json.Marshal(BuildBoard(in))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestBuildBoardNineFlightDay(t *testing.T) {
	flights := make([]Flight, 0, 9)
	times := []string{"05:10", "06:00", "07:00", "08:00", "09:00", "09:10", "11:00", "13:00", "15:00"}
	for i, tm := range times {
		flights = append(flights, Flight{ID: fmt.Sprintf("id%d", i+1), FlightNumber: fmt.Sprintf("QF%d", 100+i), TimeLocal: tm})
	}

	board := BuildBoard(BoardInput{Date: "2024-03-01", Flights: flights})
	assert.True(t, board.Day.Overloaded)
	require.Len(t, board.Day.TightConnections, 1)
	assert.Equal(t, TightConnection{FromID: "id5", ToID: "id6", GapMinutes: 10}, board.Day.TightConnections[0])
	assert.Len(t, board.Unassigned, 9)
}

func TestBuildIndexDuplicateLastRunWins(t *testing.T) {
	runs := []Run{
		{ID: "r1", Flights: []FlightRun{{FlightID: "a"}, {FlightID: "b"}}},
		{ID: "r2", Flights: []FlightRun{{FlightID: "b"}}},
	}
	idx := BuildIndex(runs, nil)

	run, ok := idx.RunFor("b")
	require.True(t, ok)
	assert.Equal(t, "r2", run.ID)
	assert.Equal(t, []string{"b"}, idx.Duplicates())
	assert.True(t, idx.Assigned("a"))
	assert.False(t, idx.Assigned("z"))
}

func TestFlightKey(t *testing.T) {
	assert.Equal(t, "QF12|2024-03-01T09:05", FlightKey(" qf12", "2024-03-01", "9:05"))
	assert.Equal(t, "QF12|2024-03-01", FlightKey("QF12", "2024-03-01", ""))
}
