package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/openswoop/chronicler/pkg/report"
	"github.com/openswoop/chronicler/pkg/schedule"
)

var (
	typeArgs []string
	csvFile  string
	icsFile  string
)

var timetableCmd = &cobra.Command{
	Use:   "timetable START END",
	Short: "Print the timetable between two dates, grouped by day",
	Long: `Prints every class between START and END (inclusive, YYYY-MM-DD) grouped
by day. Restrict the output with --type, given either as a bare type name to
keep every entry of that type or as TYPE=REGEX to keep only entries whose
description matches. Repeat --type to combine several rules.`,
	Example: `  chronicler timetable 2024-03-04 2024-03-08 --type Lecture='^BBA' --type Lab
  chronicler timetable 2024-03-04 2024-03-08 --ics week.ics`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := parseDate(args[0])
		if err != nil {
			return err
		}
		end, err := parseDate(args[1])
		if err != nil {
			return err
		}
		if end.Before(start) {
			return fmt.Errorf("end date %s is before start date %s", args[1], args[0])
		}
		spec, err := schedule.ParseFilterArgs(typeArgs)
		if err != nil {
			return err
		}

		days, err := svc.FilteredTimetable(cmd.Context(), start, end, spec)
		if err != nil {
			return err
		}

		if csvFile != "" {
			if err := report.WriteFile(csvFile, func(w io.Writer) error {
				return report.WriteTimetable(w, days)
			}); err != nil {
				return err
			}
		}
		if icsFile != "" {
			if err := report.WriteFile(icsFile, func(w io.Writer) error {
				return report.WriteCalendar(w, "Timetable", days, time.Now())
			}); err != nil {
				return err
			}
		}
		if csvFile == "" && icsFile == "" {
			printDays(cmd.OutOrStdout(), days)
		}
		return nil
	},
}

func init() {
	timetableCmd.Flags().StringArrayVarP(&typeArgs, "type", "t", nil, "Entry type to keep, optionally TYPE=REGEX (repeatable)")
	timetableCmd.Flags().StringVar(&csvFile, "csv", "", "Write the timetable to this CSV file")
	timetableCmd.Flags().StringVar(&icsFile, "ics", "", "Write the timetable to this iCalendar file")
	rootCmd.AddCommand(timetableCmd)
}

func printDays(w io.Writer, days []schedule.Day) {
	if len(days) == 0 {
		fmt.Fprintln(w, "No classes found")
		return
	}
	for i, d := range days {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, d.Date.Format("Monday 02 January 2006"))
		for _, e := range d.Entries {
			fmt.Fprintln(w, " ", e.String())
		}
	}
}
