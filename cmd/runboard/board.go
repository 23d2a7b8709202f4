package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/yegors/runboard/internal/layout"
	"github.com/yegors/runboard/internal/planner"
	"github.com/yegors/runboard/internal/schedule"
)

var boardDate string

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Print the run sheet for a day",
	Long: `Load flights, runs and staff for a date and print the run sheet: every run
grouped by shift with its conflicts, followed by the unassigned flights.`,
	RunE: runBoard,
}

func init() {
	boardCmd.Flags().StringVarP(&boardDate, "date", "d", "", "Operating date (YYYY-MM-DD, default today)")
}

var (
	headingStyle  = lipgloss.NewStyle().Bold(true)
	conflictStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func runBoard(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	date := boardDate
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	result, err := a.session.Load(cmd.Context(), date)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if result.Partial() {
		for _, feed := range []string{planner.FeedFlights, planner.FeedRuns, planner.FeedStaff} {
			if msg, ok := result.FeedErrors[feed]; ok {
				fmt.Fprintf(out, "warning: %s feed failed: %s\n", feed, msg)
			}
		}
	}
	renderRunSheet(out, result.Board)
	return nil
}

// renderRunSheet writes the board as plain tables, one per shift band
func renderRunSheet(w io.Writer, board *schedule.Board) {
	fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("Run sheet %s", board.Date)))
	fmt.Fprintln(w, daySummaryLine(board.Summary))
	if board.Day.HasConflicts {
		fmt.Fprintln(w, conflictStyle.Render(fmt.Sprintf("%d tight connections across the day", len(board.Day.TightConnections))))
	}

	staffByFlight := make(map[string]string, len(board.Rows))
	for _, row := range board.Rows {
		staffByFlight[row.Flight.ID] = row.StaffLabel
	}

	for _, group := range board.Groups {
		fmt.Fprintln(w)
		fmt.Fprintln(w, headingStyle.Render(bandTitle(group.Band)))
		if len(group.Runs) == 0 {
			fmt.Fprintln(w, "  no runs")
			continue
		}
		for _, card := range group.Runs {
			fmt.Fprintln(w, runHeading(card))
			tight := card.Conflicts.TightIDs()
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("#", "TIME", "FLIGHT", "DEST", "STAFF", "")
			// same member order the layout editor shows
			members := layout.NewEditor([]schedule.Run{card.Run}, nil).Runs()[0].Flights
			for i, fr := range members {
				number, dest := schedule.Placeholder, schedule.Placeholder
				if fr.Flight != nil {
					number = fr.Flight.FlightNumber
					dest = orDash(fr.Flight.Destination)
				}
				staff, ok := staffByFlight[fr.FlightID]
				if !ok {
					staff = schedule.Placeholder
				}
				flag := ""
				if tight[fr.FlightID] {
					flag = "tight"
				}
				t.Row(fmt.Sprint(i+1), orDash(fr.Time()), number, dest, staff, flag)
			}
			fmt.Fprintln(w, t.Render())
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("Unassigned (%d)", len(board.Unassigned))))
	for _, f := range board.Unassigned {
		fmt.Fprintf(w, "  %-5s %-8s %s\n", orDash(f.TimeLocal), f.FlightNumber, orDash(f.Destination))
	}
}

func runHeading(card schedule.RunCard) string {
	line := fmt.Sprintf("%s  %s-%s  vehicle %s  %d flights",
		card.Run.Label, card.StartDisplay, card.EndDisplay, card.VehicleLabel, card.Conflicts.FlightCount)
	var flags []string
	if card.Conflicts.Overloaded {
		flags = append(flags, "overloaded")
	}
	if n := len(card.Conflicts.TightConnections); n > 0 {
		flags = append(flags, fmt.Sprintf("%d tight", n))
	}
	if len(flags) == 0 {
		return line
	}
	return line + "  " + conflictStyle.Render("["+strings.Join(flags, ", ")+"]")
}

func daySummaryLine(s schedule.DaySummary) string {
	parts := make([]string, 0, len(s.Parts))
	for _, p := range s.Parts {
		parts = append(parts, fmt.Sprintf("%s %d", p.Part, p.Total))
	}
	return fmt.Sprintf("%d flights (%s)", s.Total, strings.Join(parts, ", "))
}

func bandTitle(band schedule.ShiftBand) string {
	switch band {
	case schedule.BandAM:
		return "AM"
	case schedule.BandMidday:
		return "Midday"
	case schedule.BandEvening:
		return "Evening"
	default:
		return "Unscheduled"
	}
}

func orDash(s string) string {
	if s == "" {
		return schedule.Placeholder
	}
	return s
}
