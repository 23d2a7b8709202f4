package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortMembersMixedIndices(t *testing.T) {
	members := []FlightRun{
		{ID: "x", PlannedTime: "05:00"},
		{ID: "y", SequenceIndex: intPtr(1), PlannedTime: "09:00"},
		{ID: "z", SequenceIndex: intPtr(1), PlannedTime: "08:00"},
		{ID: "w", SequenceIndex: intPtr(0), PlannedTime: "10:00"},
	}
	SortMembers(members)
	got := []string{}
	for _, m := range members {
		got = append(got, m.ID)
	}
	assert.Equal(t, []string{"w", "z", "y", "x"}, got)
}

func TestDiffAssignments(t *testing.T) {
	before := []Run{
		{ID: "r1", Flights: []FlightRun{
			{ID: "a", FlightID: "f1", SequenceIndex: intPtr(0)},
			{ID: "b", FlightID: "f2", SequenceIndex: intPtr(1)},
			{ID: "c", FlightID: "f3", SequenceIndex: intPtr(2)},
		}},
		{ID: "r2", Flights: []FlightRun{
			{ID: "d", FlightID: "f4", SequenceIndex: intPtr(0)},
		}},
	}
	after := []Run{
		{ID: "r1", Flights: []FlightRun{
			{ID: "c", FlightID: "f3", SequenceIndex: intPtr(10)},
			{ID: "a", FlightID: "f1", SequenceIndex: intPtr(20)},
		}},
		{ID: "r2", Flights: []FlightRun{
			{ID: "d", FlightID: "f4", SequenceIndex: intPtr(0)},
			{ID: "b", FlightID: "f2", SequenceIndex: intPtr(1)},
			{ID: "e", FlightID: "f5", SequenceIndex: intPtr(2)},
		}},
	}

	assert.Equal(t, []AssignmentChange{
		{Type: ChangeResequenced, FlightID: "f1", FromRunID: "r1", ToRunID: "r1", FromIndex: 0, ToIndex: 1},
		{Type: ChangeMoved, FlightID: "f2", FromRunID: "r1", ToRunID: "r2", FromIndex: 1, ToIndex: 1},
		{Type: ChangeResequenced, FlightID: "f3", FromRunID: "r1", ToRunID: "r1", FromIndex: 2, ToIndex: 0},
		{Type: ChangeAdded, FlightID: "f5", ToRunID: "r2", FromIndex: -1, ToIndex: 2},
	}, DiffAssignments(before, after))

	removed := DiffAssignments(before, before[:1])
	assert.Equal(t, []AssignmentChange{
		{Type: ChangeRemoved, FlightID: "f4", FromRunID: "r2", FromIndex: 0, ToIndex: -1},
	}, removed)
}

func TestDiffAssignmentsIgnoresSparseRenumbering(t *testing.T) {
	before := []Run{{ID: "r1", Flights: []FlightRun{
		{ID: "a", FlightID: "f1", SequenceIndex: intPtr(0)},
		{ID: "b", FlightID: "f2", SequenceIndex: intPtr(1)},
	}}}
	after := []Run{{ID: "r1", Flights: []FlightRun{
		{ID: "b", FlightID: "f2", SequenceIndex: intPtr(7)},
		{ID: "a", FlightID: "f1", SequenceIndex: intPtr(3)},
	}}}
	assert.Empty(t, DiffAssignments(before, after))
	assert.Empty(t, DiffAssignments(nil, nil))
}
