package schedule

import "sort"

// BoardInput is one confirmed snapshot of a day
type BoardInput struct {
	Date    string
	Flights []Flight
	Runs    []Run
	Staff   []StaffAssignment
	Limits  Limits
}

// Board is the renderable state of a day. It is derived, never persisted.
type Board struct {
	Date             string          `json:"date"`
	Limits           Limits          `json:"limits"`
	Rows             []FlightRow     `json:"rows"`
	Groups           []RunGroup      `json:"groups"`
	Summary          DaySummary      `json:"summary"`
	Day              ConflictSummary `json:"day_conflicts"`
	Unassigned       []Flight        `json:"unassigned"`
	DuplicateFlights []string        `json:"duplicate_flights,omitempty"`
}

// FlightRow is one line of the flat flight table
type FlightRow struct {
	Flight          Flight    `json:"flight"`
	TimeDisplay     string    `json:"time_display"`
	Band            ShiftBand `json:"band"`
	RunID           string    `json:"run_id,omitempty"`
	RunLabel        string    `json:"run_label"`
	StaffLabel      string    `json:"staff_label"`
	StaffCount      int       `json:"staff_count"`
	TightConnection bool      `json:"tight_connection"`
	RunConflict     bool      `json:"run_conflict"`
}

// RunCard is a run as shown in the shift grid
type RunCard struct {
	Run          Run             `json:"run"`
	Band         ShiftBand       `json:"band"`
	VehicleLabel string          `json:"vehicle_label"`
	StartDisplay string          `json:"start_display"`
	EndDisplay   string          `json:"end_display"`
	Conflicts    ConflictSummary `json:"conflicts"`
}

// RunGroup holds the runs starting in one shift band
type RunGroup struct {
	Band ShiftBand `json:"band"`
	Runs []RunCard `json:"runs"`
}

// DaySummary counts flights for the day
type DaySummary struct {
	Total      int            `json:"total"`
	Parts      []PartSummary  `json:"parts"`
	ByOperator map[string]int `json:"by_operator"`
}

// PartSummary counts flights in one day part
type PartSummary struct {
	Part       string         `json:"part"`
	Total      int            `json:"total"`
	ByOperator map[string]int `json:"by_operator"`
}

// BuildBoard derives the board from a snapshot. It never fails; missing
// optional data degrades to placeholders.
func BuildBoard(in BoardInput) *Board {
	limits := in.Limits.orDefault()

	runs := make([]Run, len(in.Runs))
	copy(runs, in.Runs)
	idx := BuildIndex(runs, in.Staff)

	runConflicts := make(map[string]ConflictSummary, len(runs))
	for _, run := range runs {
		runConflicts[run.ID] = AnalyzeConflicts(RunTimed(run), limits)
	}

	day := AnalyzeConflicts(FlightsTimed(in.Flights), limits)
	tight := day.TightIDs()

	board := &Board{
		Date:             in.Date,
		Limits:           limits,
		Rows:             make([]FlightRow, 0, len(in.Flights)),
		Day:              day,
		Unassigned:       []Flight{},
		DuplicateFlights: idx.Duplicates(),
	}

	for _, f := range in.Flights {
		row := FlightRow{
			Flight:          f,
			TimeDisplay:     orPlaceholder(f.TimeLocal),
			Band:            ShiftBandOf(f.TimeLocal),
			RunLabel:        UnassignedLabel,
			StaffLabel:      Placeholder,
			TightConnection: tight[f.ID],
		}
		if run, ok := idx.RunFor(f.ID); ok {
			row.RunID = run.ID
			row.RunLabel = run.Label
			row.RunConflict = runConflicts[run.ID].HasConflicts
		} else {
			board.Unassigned = append(board.Unassigned, f)
		}
		if staff := idx.StaffList(f, in.Date); len(staff) > 0 {
			row.StaffLabel = orPlaceholder(staff[0].StaffLabel)
			row.StaffCount = len(staff)
		}
		board.Rows = append(board.Rows, row)
	}

	sort.SliceStable(board.Rows, func(i, j int) bool {
		return flightLess(board.Rows[i].Flight, board.Rows[j].Flight)
	})
	sort.SliceStable(board.Unassigned, func(i, j int) bool {
		return flightLess(board.Unassigned[i], board.Unassigned[j])
	})

	board.Groups = groupRuns(runs, runConflicts)
	board.Summary = summarize(in.Flights)
	return board
}

// Group returns the run group for band
func (b *Board) Group(band ShiftBand) RunGroup {
	for _, g := range b.Groups {
		if g.Band == band {
			return g
		}
	}
	return RunGroup{Band: band, Runs: []RunCard{}}
}

// Card finds the run card for runID
func (b *Board) Card(runID string) (RunCard, bool) {
	for _, g := range b.Groups {
		for _, c := range g.Runs {
			if c.Run.ID == runID {
				return c, true
			}
		}
	}
	return RunCard{}, false
}

func groupRuns(runs []Run, conflicts map[string]ConflictSummary) []RunGroup {
	byBand := make(map[ShiftBand][]RunCard, len(ShiftBands))
	for _, run := range runs {
		band := ShiftBandOf(run.StartTime)
		byBand[band] = append(byBand[band], RunCard{
			Run:          run,
			Band:         band,
			VehicleLabel: run.VehicleLabel(),
			StartDisplay: orPlaceholder(run.StartTime),
			EndDisplay:   orPlaceholder(run.EndTime),
			Conflicts:    conflicts[run.ID],
		})
	}

	groups := make([]RunGroup, 0, len(ShiftBands))
	for _, band := range ShiftBands {
		cards := byBand[band]
		if cards == nil {
			cards = []RunCard{}
		}
		sort.SliceStable(cards, func(i, j int) bool {
			a, b := cards[i].Run, cards[j].Run
			if a.StartTime != b.StartTime {
				return a.StartTime < b.StartTime
			}
			if a.Label != b.Label {
				return a.Label < b.Label
			}
			return a.ID < b.ID
		})
		groups = append(groups, RunGroup{Band: band, Runs: cards})
	}
	return groups
}

func summarize(flights []Flight) DaySummary {
	parts := map[DayPart]*PartSummary{
		PartAM:   {Part: string(PartAM), ByOperator: map[string]int{}},
		PartPM:   {Part: string(PartPM), ByOperator: map[string]int{}},
		PartNone: {Part: string(BandUnscheduled), ByOperator: map[string]int{}},
	}
	summary := DaySummary{Total: len(flights), ByOperator: map[string]int{}}

	for _, f := range flights {
		op := OperatorPrefix(f.FlightNumber)
		p := parts[DayPartOf(f.TimeLocal)]
		p.Total++
		p.ByOperator[op]++
		summary.ByOperator[op]++
	}

	summary.Parts = []PartSummary{*parts[PartAM], *parts[PartPM], *parts[PartNone]}
	return summary
}

func flightLess(a, b Flight) bool {
	if a.TimeLocal != b.TimeLocal {
		return a.TimeLocal < b.TimeLocal
	}
	if a.FlightNumber != b.FlightNumber {
		return a.FlightNumber < b.FlightNumber
	}
	return a.ID < b.ID
}
