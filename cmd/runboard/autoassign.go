package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yegors/runboard/internal/planner"
)

var (
	autoAssignDate    string
	autoAssignConfirm bool
	autoAssignMode    string
)

var autoAssignCmd = &cobra.Command{
	Use:   "auto-assign",
	Short: "Rebuild a day's run assignments on the server",
	Long: `Ask the ground-ops API to assign the day's flights to runs automatically.

This replaces manual assignments for the date. It does nothing unless --yes
is given.`,
	RunE: runAutoAssign,
}

func init() {
	autoAssignCmd.Flags().StringVarP(&autoAssignDate, "date", "d", "", "Operating date (YYYY-MM-DD, default today)")
	autoAssignCmd.Flags().BoolVarP(&autoAssignConfirm, "yes", "y", false, "Confirm replacing the day's assignments")
	autoAssignCmd.Flags().StringVar(&autoAssignMode, "mode", string(planner.ModeGenerate), "Allocator to use: generate or runs")
}

func runAutoAssign(cmd *cobra.Command, args []string) error {
	if !autoAssignConfirm {
		return fmt.Errorf("%w: rerun with --yes to replace the day's assignments", planner.ErrConfirmationRequired)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	date := autoAssignDate
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	if _, err := a.session.Load(cmd.Context(), date); err != nil {
		return err
	}

	report, err := a.session.AutoAssign(cmd.Context(), planner.AutoAssignOptions{
		Confirmed: true,
		Mode:      planner.AutoAssignMode(autoAssignMode),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Assigned %d flights, %d left unassigned", report.Assigned, report.UnassignedCount)
	if report.TotalFlights > 0 {
		fmt.Fprintf(out, " of %d", report.TotalFlights)
	}
	fmt.Fprintln(out)
	if report.Reason != "" {
		fmt.Fprintf(out, "Reason: %s\n", report.Reason)
	}
	renderRunSheet(out, a.session.Board())
	return nil
}
