package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
)

func newGenerateCmd(opts *options) *cobra.Command {
	var (
		settingsPath string
		outPath      string
		name         string
		retryBudget  int
		timeout      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a timetable from the school roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			sch, err := loadSchool(opts.schoolPath)
			if err != nil {
				return err
			}
			var settings models.GenerationSettings
			if settingsPath != "" {
				if err := readYAML(settingsPath, &settings); err != nil {
					return err
				}
			}
			if settings.MaxPeriodsPerDayPerTeacher <= 0 {
				settings.MaxPeriodsPerDayPerTeacher = sch.file.Rules.MaxPeriodsPerDayPerTeacher
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			start := time.Now()
			result, err := scheduler.NewGenerator(scheduler.Options{RetryBudget: retryBudget}).Generate(ctx, scheduler.Problem{
				Calendar: sch.cal,
				Roster:   sch.file.Roster,
				Settings: settings,
			})
			if err != nil {
				return fmt.Errorf("generation failed: %w", err)
			}
			opts.logger.Info("timetable generated",
				zap.Int("placed", result.Stats.Placed),
				zap.Int("unplaced", len(result.Unplaced)),
				zap.Bool("cancelled", result.Cancelled),
				zap.Duration("duration", time.Since(start)),
			)

			kind := settings.TimetableType
			if kind == "" {
				kind = models.TimetableTypeTeaching
			}
			tt := &TimetableFile{Name: name, Type: kind, Slots: result.Slots}
			if err := writeYAML(outPath, tt); err != nil {
				return fmt.Errorf("writing %s: %w", outPath, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, header("Generation"))
			fmt.Fprintf(out, "Demand units: %d\n", result.Stats.DemandUnits)
			fmt.Fprintf(out, "Placed:       %s\n", styleOK.Render(fmt.Sprint(result.Stats.Placed)))
			fmt.Fprintf(out, "Repaired:     %d\n", result.Stats.Repaired)
			if result.Cancelled {
				fmt.Fprintln(out, styleWarning.Render("Run stopped before completion; result is partial."))
			}
			if len(result.Unplaced) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, header("Unplaced"))
				for _, line := range unplacedSummary(result.Unplaced) {
					fmt.Fprintln(out, styleWarning.Render(line))
				}
			}
			fmt.Fprintf(out, "\nWrote %d slots to %s\n", len(tt.Slots), outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&settingsPath, "settings", "", "generation settings file")
	cmd.Flags().StringVarP(&outPath, "out", "o", "timetable.yaml", "output timetable file")
	cmd.Flags().StringVar(&name, "name", "", "timetable name")
	cmd.Flags().IntVar(&retryBudget, "retry-budget", 3, "repair attempts per stuck unit")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "abort generation after this long")
	return cmd
}

// unplacedSummary groups unplaced units by class, subject and reason.
func unplacedSummary(units []scheduler.UnplacedUnit) []string {
	counts := make(map[string]int)
	for _, u := range units {
		key := fmt.Sprintf("%s %s: %s", u.Unit.ClassID, u.Unit.SubjectID, u.Reason)
		counts[key]++
	}
	lines := make([]string, 0, len(counts))
	for key, n := range counts {
		lines = append(lines, fmt.Sprintf("%s (x%d)", key, n))
	}
	sort.Strings(lines)
	return lines
}
