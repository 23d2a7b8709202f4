package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShiftBandOf(t *testing.T) {
	tests := []struct {
		in   string
		want ShiftBand
	}{
		{"04:59", BandUnscheduled},
		{"05:00", BandAM},
		{"11:59", BandAM},
		{"12:00", BandMidday},
		{"16:59", BandMidday},
		{"17:00", BandEvening},
		{"23:00", BandEvening},
		{"23:01", BandUnscheduled},
		{"00:00", BandUnscheduled},
		{"", BandUnscheduled},
		{"noon", BandUnscheduled},
		{"25:00", BandUnscheduled},
		{"9:15", BandAM},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ShiftBandOf(tc.in))
		})
	}
}

func TestDayPartOf(t *testing.T) {
	tests := []struct {
		in   string
		want DayPart
	}{
		{"04:59", PartNone},
		{"05:00", PartAM},
		{"12:00", PartAM},
		{"12:01", PartPM},
		{"23:00", PartPM},
		{"23:30", PartNone},
		{"", PartNone},
		{"12-00", PartNone},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, DayPartOf(tc.in))
		})
	}
}

func TestNoonDiffersBetweenClassifiers(t *testing.T) {
	assert.Equal(t, PartAM, DayPartOf("12:00"))
	assert.Equal(t, BandMidday, ShiftBandOf("12:00"))
}

func TestCanonicalClock(t *testing.T) {
	tests := map[string]string{
		"9:05":                      "09:05",
		"09:05":                     "09:05",
		"09:05:30":                  "09:05",
		"2024-03-01T18:40:00+10:00": "18:40",
		"24:00":                     "",
		"9:5":                       "",
		"TBA":                       "",
		"":                          "",
	}
	for in, want := range tests {
		assert.Equal(t, want, CanonicalClock(in), in)
	}
}

func TestOperatorPrefix(t *testing.T) {
	assert.Equal(t, "QF", OperatorPrefix("qf512"))
	assert.Equal(t, "JQ", OperatorPrefix(" JQ 7 "))
	assert.Equal(t, "", OperatorPrefix("3K123"))
	assert.Equal(t, "", OperatorPrefix(""))
}
