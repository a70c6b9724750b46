package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/myassistant/internal/domain"
	"github.com/kalambet/myassistant/internal/health"
	"github.com/kalambet/myassistant/internal/transfer"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Log and review health data",
}

var healthLogCmd = &cobra.Command{
	Use:   "log <type> <value>",
	Short: "Log water, sleep, exercise, a meal or weight",
	Long: `Log a health entry for today.

Examples:
  myassistant health log water 2
  myassistant health log sleep 7.5
  myassistant health log meal "Oatmeal with berries"
  myassistant health log weight 165 --unit lbs`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		unit, _ := cmd.Flags().GetString("unit")
		notes, _ := cmd.Flags().GetString("notes")
		return withApp(func(a *app) error {
			entry, totals, err := logHealth(a, args[0], strings.Join(args[1:], " "), unit, notes)
			if err != nil {
				return err
			}
			printSuccess("Logged %s %s %s", entry.Type, entry.Value, entry.Unit)
			if entry.Type != domain.EntryWeight {
				printStatus("Today", "%s", currentLabel(entry.Type, totals))
			}
			return nil
		})
	},
}

var healthSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show today's totals, streak, goals and score",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withApp(func(a *app) error {
			ds := a.store.Health()
			sum := health.Summarize(ds, a.now())
			if asJSON {
				return printJSON(cmd.OutOrStdout(), sum)
			}
			printHealthSummary(cmd.OutOrStdout(), sum, ds)
			return nil
		})
	},
}

var healthExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export health data as CSV or JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		return withApp(func(a *app) error {
			now := a.now()
			if output == "-" {
				return exportHealth(cmd.OutOrStdout(), a, format, now)
			}
			if output == "" {
				output = transfer.ExportFilename(format, now)
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			if err := exportHealth(f, a, format, now); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			printSuccess("Health data exported to %s", output)
			return nil
		})
	},
}

var healthImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import health data from a CSV or JSON export",
	Long: `Import health data from a CSV or JSON export.

Merge (the default) adds entries with new timestamps and goals with new IDs;
importing the same file twice changes nothing the second time. Replace
overwrites logs, and goals and settings when the file carries them.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		modeStr, _ := cmd.Flags().GetString("mode")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		yes, _ := cmd.Flags().GetBool("yes")

		mode, err := transfer.ParseMode(modeStr)
		if err != nil {
			return err
		}
		if mode == transfer.ModeReplace && !dryRun && !yes {
			printWarning("Replace overwrites your existing health data. Use --yes to proceed.")
			return nil
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening import file: %w", err)
		}
		defer f.Close()

		return withApp(func(a *app) error {
			p, res, err := importHealth(a, filepath.Base(args[0]), f, mode, dryRun)
			if err != nil {
				return err
			}
			printPreview(p)
			if dryRun {
				printStep("Dry run: nothing was imported")
				return nil
			}
			if mode == transfer.ModeReplace {
				printSuccess("Replaced health logs: %d entries (was %d)", res.After, res.Before)
				return nil
			}
			printSuccess("Added %d of %d imported entries (merge)", res.Added(), p.Entries)
			return nil
		})
	},
}

var healthSettingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change tracked metrics and daily targets",
	Long: `Show or change tracked metrics and daily targets.

Examples:
  myassistant health settings
  myassistant health settings --disable weight --target water=10 --target sleep=7.5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		enable, _ := cmd.Flags().GetStringSlice("enable")
		disable, _ := cmd.Flags().GetStringSlice("disable")
		targets, _ := cmd.Flags().GetStringArray("target")
		return withApp(func(a *app) error {
			ds := a.store.Health()
			if len(enable)+len(disable)+len(targets) > 0 {
				metrics, tgts, err := applySettings(ds.EnabledMetrics, ds.Targets, enable, disable, targets)
				if err != nil {
					return err
				}
				if ds, err = a.store.SaveHealthSettings(metrics, tgts); err != nil {
					return err
				}
				printSuccess("Health settings saved")
			}
			printSettings(cmd.OutOrStdout(), ds.EnabledMetrics, ds.Targets)
			return nil
		})
	},
}

func init() {
	healthLogCmd.Flags().String("unit", "", "unit (defaults per type)")
	healthLogCmd.Flags().String("notes", "", "free-form notes")
	healthSummaryCmd.Flags().Bool("json", false, "print the summary as JSON")
	healthExportCmd.Flags().String("format", "csv", "export format: csv or json")
	healthExportCmd.Flags().StringP("output", "o", "", "output file (default: health-data-<date>.<format>, - for stdout)")
	healthImportCmd.Flags().String("mode", "merge", "merge or replace")
	healthImportCmd.Flags().Bool("dry-run", false, "show what would be imported without saving")
	healthImportCmd.Flags().Bool("yes", false, "confirm a replace import")
	healthSettingsCmd.Flags().StringSlice("enable", nil, "metrics to enable")
	healthSettingsCmd.Flags().StringSlice("disable", nil, "metrics to disable")
	healthSettingsCmd.Flags().StringArray("target", nil, "daily target as type=value (repeatable)")
	healthCmd.AddCommand(healthLogCmd, healthSummaryCmd, healthExportCmd, healthImportCmd, healthSettingsCmd)
}

func logHealth(a *app, typ, raw, unit, notes string) (domain.Entry, health.DayTotals, error) {
	et, ok := domain.ParseEntryType(typ)
	if !ok {
		return domain.Entry{}, health.DayTotals{}, fmt.Errorf("unknown entry type %q (want one of %s)", typ, entryTypeList())
	}
	value, err := et.ParseValue(raw)
	if err != nil {
		return domain.Entry{}, health.DayTotals{}, err
	}
	if unit == "" {
		unit = et.DefaultUnit()
	}

	entry := domain.Entry{Type: et, Value: value, Unit: unit, Notes: notes}
	now := a.now()
	ds, err := a.store.LogHealthEntry(entry, now)
	if err != nil {
		return domain.Entry{}, health.DayTotals{}, err
	}
	return entry, health.Totals(ds.DailyLogs, health.LocalDateKey(now)), nil
}

func exportHealth(w io.Writer, a *app, format string, now time.Time) error {
	ds := a.store.Health()
	switch strings.ToLower(format) {
	case "csv":
		return transfer.ExportCSV(w, ds.DailyLogs)
	case "json":
		return transfer.ExportJSON(w, ds, now)
	}
	return fmt.Errorf("unknown export format %q (want csv or json)", format)
}

// importResult counts stored log entries around an import.
type importResult struct {
	Before, After int
}

// Added is how many entries the import contributed; a replace may shrink
// the log, which counts as zero.
func (r importResult) Added() int {
	return max(r.After-r.Before, 0)
}

// importHealth parses r completely before touching the store.
func importHealth(a *app, name string, r io.Reader, mode transfer.Mode, dryRun bool) (transfer.Preview, importResult, error) {
	snap, err := transfer.Parse(name, r, a.now())
	if err != nil {
		return transfer.Preview{}, importResult{}, err
	}
	p := snap.Preview()
	if dryRun {
		n := countEntries(a.store.Health().DailyLogs)
		return p, importResult{Before: n, After: n}, nil
	}

	var res importResult
	_, err = a.store.UpdateHealth(func(prev domain.HealthDataset) domain.HealthDataset {
		next := transfer.Apply(prev, snap, mode)
		res = importResult{Before: countEntries(prev.DailyLogs), After: countEntries(next.DailyLogs)}
		return next
	})
	return p, res, err
}

func countEntries(logs domain.DailyLogs) int {
	n := 0
	for _, entries := range logs {
		n += len(entries)
	}
	return n
}

func applySettings(metrics domain.Metrics, targets domain.Targets, enable, disable, target []string) (domain.Metrics, domain.Targets, error) {
	for _, name := range enable {
		et, ok := domain.ParseEntryType(name)
		if !ok {
			return metrics, targets, fmt.Errorf("unknown metric %q", name)
		}
		metrics = metrics.Set(et, true)
	}
	for _, name := range disable {
		et, ok := domain.ParseEntryType(name)
		if !ok {
			return metrics, targets, fmt.Errorf("unknown metric %q", name)
		}
		metrics = metrics.Set(et, false)
	}
	for _, kv := range target {
		name, raw, found := strings.Cut(kv, "=")
		if !found {
			return metrics, targets, fmt.Errorf("target %q must be type=value", kv)
		}
		et, ok := domain.ParseEntryType(name)
		if !ok {
			return metrics, targets, fmt.Errorf("unknown metric %q", name)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || v < 0 {
			return metrics, targets, fmt.Errorf("invalid target for %s: %q", et, raw)
		}
		targets = targets.Set(et, v)
	}
	return metrics, targets, nil
}

func entryTypeList() string {
	names := make([]string, len(domain.EntryTypes))
	for i, t := range domain.EntryTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

func currentLabel(et domain.EntryType, totals health.DayTotals) string {
	if et == domain.EntryMeal {
		return fmt.Sprintf("%d meals", totals.Meals)
	}
	return fmt.Sprintf("%g %s", totals.Current(et), et.DefaultUnit())
}

func printHealthSummary(w io.Writer, sum health.Summary, ds domain.HealthDataset) {
	fmt.Fprintf(w, "%s  score %d/100  streak %d day%s\n",
		colorize(colorBold, sum.Today), sum.Score, sum.Streak, plural(sum.Streak))

	for _, et := range domain.EntryTypes {
		if !ds.EnabledMetrics.Enabled(et) {
			continue
		}
		switch et {
		case domain.EntryWeight:
			if sum.LastWeight != nil {
				fmt.Fprintf(w, "  %-9s %g (%s)", et, sum.LastWeight.Value, sum.LastWeight.Date)
				if ds.Targets.Weight > 0 {
					fmt.Fprintf(w, "  goal %g", ds.Targets.Weight)
				}
				fmt.Fprintln(w)
			} else {
				fmt.Fprintf(w, "  %-9s -\n", et)
			}
		default:
			fmt.Fprintf(w, "  %-9s %s / %g\n", et, currentLabel(et, sum.Totals), ds.Targets.For(et))
		}
	}

	if len(sum.Goals) > 0 {
		fmt.Fprintln(w, colorize(colorBold, "Goals"))
		for _, g := range sum.Goals {
			printGoal(w, g)
		}
	}

	fmt.Fprintf(w, "%s %d days logged, %g water, %g h sleep, %g min exercise\n",
		colorize(colorBold, "This week:"), sum.Week.DaysLogged, sum.Week.Water, sum.Week.Sleep, sum.Week.Exercise)

	if sum.Insight != nil {
		c := colorCyan
		switch sum.Insight.Kind {
		case "positive":
			c = colorGreen
		case "warning":
			c = colorYellow
		}
		fmt.Fprintln(w, colorize(c, sum.Insight.Text))
	}
}

func printPreview(p transfer.Preview) {
	printStatus("Days", "%d", p.Days)
	printStatus("Entries", "%d", p.Entries)
	if p.FirstDate != "" {
		printStatus("Range", "%s to %s", p.FirstDate, p.LastDate)
	}
	printStatus("Goals", "%d", p.Goals)
	printStatus("Settings", "%t", p.HasSettings)
	if p.ExportDate != "" {
		printStatus("Exported", "%s", p.ExportDate)
	}
}

func printSettings(w io.Writer, metrics domain.Metrics, targets domain.Targets) {
	for _, et := range domain.EntryTypes {
		state := colorize(colorFaint, "off")
		if metrics.Enabled(et) {
			state = colorize(colorGreen, "on ")
		}
		fmt.Fprintf(w, "  %-9s %s  target %g\n", et, state, targets.For(et))
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
