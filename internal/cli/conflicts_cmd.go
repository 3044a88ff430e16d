package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
)

// ErrBlockingConflicts is returned by conflicts --strict when activation would be refused.
var ErrBlockingConflicts = errors.New("timetable has unresolved critical conflicts")

func newConflictsCmd(opts *options) *cobra.Command {
	var (
		timetablePath string
		strict        bool
	)

	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "Report conflicts and statistics for a timetable file",
		RunE: func(cmd *cobra.Command, args []string) error {
			sch, err := loadSchool(opts.schoolPath)
			if err != nil {
				return err
			}
			tt, err := loadTimetable(timetablePath)
			if err != nil {
				return err
			}

			conflicts := sch.detect(tt)
			stats := scheduler.ComputeStatistics(tt.Type, tt.Slots, conflicts, sch.roster)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, header("Conflicts"))
			if len(conflicts) == 0 {
				fmt.Fprintln(out, styleOK.Render("No conflicts"))
			}
			for _, c := range conflicts {
				fmt.Fprintln(out, conflictLine(c))
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, header("Statistics"))
			fmt.Fprintf(out, "Slots:      %d\n", stats.TotalSlots)
			fmt.Fprintf(out, "Required:   %d\n", stats.RequiredPeriods)
			fmt.Fprintf(out, "Completion: %.1f%%\n", stats.CompletionPercent)

			if strict && scheduler.HasBlocking(conflicts) {
				return ErrBlockingConflicts
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&timetablePath, "timetable", "t", "timetable.yaml", "timetable file")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit with an error when critical conflicts remain")
	return cmd
}
