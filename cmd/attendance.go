package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/openswoop/chronicler/pkg/config"
	"github.com/openswoop/chronicler/pkg/report"
)

var (
	username      string
	password      string
	attendanceCsv string
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Fetch the attendance summary of every enrolled course",
	Long: `Logs in to the LMS and prints the attendance report of each enrolled
course that has an attendance module. The password may also be given through
CHRONICLER_LMS_PASSWORD.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if password == "" {
			password = config.Env("LMS_PASSWORD")
		}
		if username == "" || password == "" {
			return errors.New("both a username and a password are required")
		}

		reports, err := svc.Attendance(cmd.Context(), username, password)
		if err != nil {
			return err
		}
		if attendanceCsv != "" {
			return report.WriteFile(attendanceCsv, func(w io.Writer) error {
				return report.WriteAttendance(w, reports)
			})
		}

		out := cmd.OutOrStdout()
		for i, r := range reports {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintln(out, r.String())
		}
		return nil
	},
}

func init() {
	attendanceCmd.Flags().StringVarP(&username, "username", "u", "", "LMS username")
	attendanceCmd.Flags().StringVarP(&password, "password", "p", "", "LMS password")
	attendanceCmd.Flags().StringVar(&attendanceCsv, "csv", "", "Write the reports to this CSV file")
	rootCmd.AddCommand(attendanceCmd)
}
