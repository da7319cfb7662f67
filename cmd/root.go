package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/openswoop/chronicler/pkg/app"
	"github.com/openswoop/chronicler/pkg/config"
)

var (
	cfg config.Config
	svc *app.Service

	cfgFile      string
	envFiles     []string
	timetableUrl string
	lmsUrl       string
	timezone     string
	timeout      time.Duration
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chronicler",
	Short: "Timetable, free room and attendance lookups for SICSR",
	Long: `Fetches the institute's timetable report and derives filtered day by
day schedules and free classroom windows from it. It can also log in to the
LMS and collect the attendance summary of every enrolled course, or serve all
of this as a small JSON API.`,
	SilenceUsage:      true,
	PersistentPreRunE: initService,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default: ~/.config/chronicler/config.toml)")
	flags.StringSliceVar(&envFiles, "env-file", []string{".env"}, "Environment files to load before reading the config")
	flags.StringVar(&timetableUrl, "timetable-url", "", "Timetable report endpoint")
	flags.StringVar(&lmsUrl, "lms-url", "", "LMS base URL")
	flags.StringVar(&timezone, "timezone", "", "Time zone the timetable is published in")
	flags.DurationVar(&timeout, "timeout", 0, "Per request timeout for upstream calls")
}

func initService(cmd *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return err
	}
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if timetableUrl != "" {
		loaded.TimetableUrl = timetableUrl
	}
	if lmsUrl != "" {
		loaded.LmsUrl = lmsUrl
	}
	if timezone != "" {
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			return fmt.Errorf("load timezone %q: %w", timezone, err)
		}
		loaded.Timezone, loaded.Location = timezone, loc
	}
	if timeout > 0 {
		loaded.Timeout = timeout
	}
	cfg = loaded

	svc, err = app.New(cfg)
	return err
}

func parseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", value, svc.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not a YYYY-MM-DD date", value)
	}
	return t, nil
}
