package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openswoop/chronicler/pkg/report"
	"github.com/openswoop/chronicler/pkg/schedule"
)

var (
	freeRoom string
	freeAt   string
	freeCsv  string
)

var freeCmd = &cobra.Command{
	Use:   "free DATE",
	Short: "List when classrooms are free on a day",
	Long: `Lists the free windows of each classroom between 07:30 and 20:30 on DATE
(YYYY-MM-DD). Rooms with no free time are left out.`,
	Example: `  chronicler free 2024-03-05
  chronicler free 2024-03-05 --room 601 --at 14:00`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := parseDate(args[0])
		if err != nil {
			return err
		}
		opts := schedule.FreeOptions{Room: freeRoom}
		if freeAt != "" {
			at, err := schedule.ParseClock(freeAt)
			if err != nil {
				return err
			}
			opts.At = &at
		}

		rooms, err := svc.FreeOn(cmd.Context(), day, opts)
		if err != nil {
			return err
		}
		if freeCsv != "" {
			return report.WriteFile(freeCsv, func(w io.Writer) error {
				return report.WriteFree(w, rooms)
			})
		}

		out := cmd.OutOrStdout()
		if len(rooms) == 0 {
			fmt.Fprintln(out, "No free rooms")
			return nil
		}
		for _, r := range rooms {
			windows := make([]string, 0, len(r.Free))
			for _, i := range r.Free {
				windows = append(windows, i.String())
			}
			fmt.Fprintf(out, "%-8s %s\n", r.Room, strings.Join(windows, ", "))
		}
		return nil
	},
}

func init() {
	freeCmd.Flags().StringVarP(&freeRoom, "room", "r", "all", "Only show this room")
	freeCmd.Flags().StringVar(&freeAt, "at", "", "Only show windows containing this time (HH:MM)")
	freeCmd.Flags().StringVar(&freeCsv, "csv", "", "Write the result to this CSV file")
	rootCmd.AddCommand(freeCmd)
}
