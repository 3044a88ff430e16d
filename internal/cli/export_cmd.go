package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-timetable-api/internal/render"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
)

func newExportCmd(opts *options) *cobra.Command {
	var (
		timetablePath string
		outPath       string
		mode          string
		selectedID    string
		format        string
		orientation   string
		pageSize      string
		stats         bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render a timetable file as text, CSV or PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			sch, err := loadSchool(opts.schoolPath)
			if err != nil {
				return err
			}
			tt, err := loadTimetable(timetablePath)
			if err != nil {
				return err
			}
			viewMode, ok := scheduler.ParseViewMode(mode)
			if !ok {
				return fmt.Errorf("unknown view mode %q", mode)
			}
			pageOrientation, err := export.ParseOrientation(orientation, export.OrientationLandscape)
			if err != nil {
				return err
			}
			size, err := export.ParsePageSize(pageSize, export.PageSizeA4)
			if err != nil {
				return err
			}

			grid := scheduler.BuildGrid(sch.cal, scheduler.Project(tt.Slots, viewMode, selectedID))
			renderOpts := render.Options{
				SchoolName:  sch.file.Name,
				Timetable:   sch.summary(tt),
				Mode:        viewMode,
				SelectedID:  selectedID,
				Orientation: pageOrientation,
				PageSize:    size,
			}
			if stats {
				renderOpts.IncludeStatistics = true
				renderOpts.Statistics = scheduler.ComputeStatistics(tt.Type, tt.Slots, sch.detect(tt), sch.roster)
			}
			doc := render.BuildDocument(grid, render.NamesFromRoster(sch.file.Roster), renderOpts)

			var content []byte
			switch strings.ToLower(format) {
			case "", "text", "txt":
				content, err = export.NewTextRenderer().Render(doc)
			case "csv":
				content, err = export.NewCSVExporter().Render(doc.Dataset())
			case "pdf":
				content, err = export.NewPDFExporter().Render(doc)
			default:
				return fmt.Errorf("unsupported format %q", format)
			}
			if err != nil {
				return fmt.Errorf("rendering export: %w", err)
			}

			if outPath == "" || outPath == "-" {
				_, err = cmd.OutOrStdout().Write(content)
				return err
			}
			if err := os.WriteFile(outPath, content, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (etag %s)\n", outPath, export.ContentHash(content))
			return nil
		},
	}

	cmd.Flags().StringVarP(&timetablePath, "timetable", "t", "timetable.yaml", "timetable file")
	cmd.Flags().StringVarP(&outPath, "out", "o", "-", "output file, - for stdout")
	cmd.Flags().StringVar(&mode, "mode", "admin", "view mode: class, teacher, subject or admin")
	cmd.Flags().StringVar(&selectedID, "selected", "", "class, teacher or subject id")
	cmd.Flags().StringVar(&format, "format", "text", "text, csv or pdf")
	cmd.Flags().StringVar(&orientation, "orientation", "", "portrait or landscape")
	cmd.Flags().StringVar(&pageSize, "page-size", "", "A4, Letter or Legal")
	cmd.Flags().BoolVar(&stats, "stats", false, "append statistics")
	return cmd
}
