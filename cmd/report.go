package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/report"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Attendance reports from the ledger",
}

var reportDayCmd = &cobra.Command{
	Use:   "day [date]",
	Short: "Attendance for one day, sorted by arrival",
	Long:  `Show everybody recorded on a date (YYYY-MM-DD, default today).`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReportDay,
}

var reportMonthCmd = &cobra.Command{
	Use:   "month [month]",
	Short: "Days present per identity for one month",
	Long:  `Show how many days each identity was present in a month (YYYY-MM, default current).`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReportMonth,
}

var reportLateCmd = &cobra.Command{
	Use:   "late [date]",
	Short: "Arrivals after the workday start plus grace period",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReportLate,
}

var reportExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the whole ledger as CSV",
	Long:  `Write the attendance ledger as CSV to stdout or to --output.`,
	RunE:  runReportExport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportDayCmd)
	reportCmd.AddCommand(reportMonthCmd)
	reportCmd.AddCommand(reportLateCmd)
	reportCmd.AddCommand(reportExportCmd)

	reportLateCmd.Flags().String("start", "", "Workday start as HH:MM (default from WORKDAY_START)")
	reportLateCmd.Flags().Int("grace", -1, "Grace period in minutes (default from GRACE_MINUTES)")
	reportExportCmd.Flags().String("output", "", "Write CSV to a file instead of stdout")

	for _, c := range []*cobra.Command{reportDayCmd, reportMonthCmd, reportLateCmd} {
		c.Flags().Bool("json", false, "Output as JSON")
	}
}

func outputJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func argOrDefault(args []string, def string) string {
	if len(args) == 1 {
		return args[0]
	}
	return def
}

func runReportDay(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	date := argOrDefault(args, time.Now().Format(constants.DateFormat))

	summary, err := report.Day(openLedger(cfg), date)
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(summary)
	}

	if len(summary.Records) == 0 {
		fmt.Printf("No attendance records for %s\n", date)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tIDENTITY")
	for _, r := range summary.Records {
		fmt.Fprintf(w, "%s\t%s\n", r.Time, r.Identity)
	}
	w.Flush()

	fmt.Printf("\n%d present on %s\n", len(summary.Records), date)
	return nil
}

func runReportMonth(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	month := argOrDefault(args, time.Now().Format(constants.MonthFormat))

	summary, err := report.Month(openLedger(cfg), month)
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(summary)
	}

	if len(summary.Entries) == 0 {
		fmt.Printf("No attendance records for %s\n", month)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "IDENTITY\tDAYS")
	for _, e := range summary.Entries {
		fmt.Fprintf(w, "%s\t%d\n", e.Identity, e.Days)
	}
	w.Flush()
	return nil
}

func runReportLate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	date := argOrDefault(args, time.Now().Format(constants.DateFormat))

	start := mustGetString(cmd, "start")
	if start == "" {
		start = cfg.Report.WorkdayStart
	}
	grace := mustGetInt(cmd, "grace")
	if grace < 0 {
		grace = cfg.Report.GraceMinutes
	}

	summary, err := report.Late(openLedger(cfg), date, start, grace)
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(summary)
	}

	if len(summary.Records) == 0 {
		fmt.Printf("Nobody arrived after %s on %s\n", summary.Cutoff, date)
		return nil
	}

	fmt.Printf("Arrivals after %s on %s:\n", summary.Cutoff, date)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tIDENTITY")
	for _, r := range summary.Records {
		fmt.Fprintf(w, "%s\t%s\n", r.Time, r.Identity)
	}
	w.Flush()
	return nil
}

func runReportExport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	out := os.Stdout
	if path := mustGetString(cmd, "output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	return report.WriteCSV(out, openLedger(cfg))
}
