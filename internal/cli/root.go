// Package cli implements timetablectl, an offline companion to the API that
// generates, checks and exports timetables from YAML files.
package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	schoolPath string
	logger     *zap.Logger
}

// NewRootCmd creates the top-level "timetablectl" command.
func NewRootCmd(logger *zap.Logger) *cobra.Command {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := &options{logger: logger}
	root := &cobra.Command{
		Use:           "timetablectl",
		Short:         "Generate, check and export school timetables offline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.schoolPath, "school", "s", "school.yaml", "school calendar and roster file")

	root.AddCommand(
		newGenerateCmd(opts),
		newConflictsCmd(opts),
		newExportCmd(opts),
	)
	return root
}
