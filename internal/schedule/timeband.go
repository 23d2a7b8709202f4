package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ShiftBand groups run cards on the board
type ShiftBand string

const (
	BandAM          ShiftBand = "am"
	BandMidday      ShiftBand = "midday"
	BandEvening     ShiftBand = "evening"
	BandUnscheduled ShiftBand = "unscheduled"
)

// ShiftBands is the fixed display order
var ShiftBands = []ShiftBand{BandAM, BandMidday, BandEvening, BandUnscheduled}

// DayPart is the coarser am/pm split used by daily summaries.
// The empty value means no part (missing or out-of-hours time).
type DayPart string

const (
	PartAM   DayPart = "am"
	PartPM   DayPart = "pm"
	PartNone DayPart = ""
)

const (
	minute0500 = 5 * 60
	minute1200 = 12 * 60
	minute1201 = 12*60 + 1
	minute1700 = 17 * 60
	minute2300 = 23 * 60
)

// ParseClock converts "HH:MM" to minutes since midnight.
// It accepts a single-digit hour and ignores a trailing ":SS".
func ParseClock(s string) (int, bool) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	if len(parts[0]) < 1 || len(parts[0]) > 2 || len(parts[1]) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec < 0 || sec > 59 {
			return 0, false
		}
	}
	return h*60 + m, true
}

// CanonicalClock rewrites a parseable time as zero-padded "HH:MM".
// ISO timestamps ("2024-03-01T09:05:00+10:00") yield their clock part.
func CanonicalClock(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, 'T'); i >= 0 && len(s) >= i+6 {
		s = s[i+1 : i+6]
	}
	m, ok := ParseClock(s)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// ShiftBandOf classifies a local time into a run shift band:
// am [05:00,12:00), midday [12:00,17:00), evening [17:00,23:00].
func ShiftBandOf(t string) ShiftBand {
	m, ok := ParseClock(t)
	if !ok {
		return BandUnscheduled
	}
	switch {
	case m >= minute0500 && m < minute1200:
		return BandAM
	case m >= minute1200 && m < minute1700:
		return BandMidday
	case m >= minute1700 && m <= minute2300:
		return BandEvening
	default:
		return BandUnscheduled
	}
}

// DayPartOf classifies a local time for daily summaries:
// am [05:00,12:00], pm [12:01,23:00]. Noon itself is am here,
// unlike ShiftBandOf.
func DayPartOf(t string) DayPart {
	m, ok := ParseClock(t)
	if !ok {
		return PartNone
	}
	switch {
	case m >= minute0500 && m <= minute1200:
		return PartAM
	case m >= minute1201 && m <= minute2300:
		return PartPM
	default:
		return PartNone
	}
}

// OperatorPrefix is the leading alphabetic prefix of a flight number,
// uppercased. "qf512" -> "QF", "3K12" -> "".
func OperatorPrefix(flightNumber string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(flightNumber) {
		if !unicode.IsLetter(r) {
			break
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
