// Package render turns projected timetable grids into export documents.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
)

const (
	badgeExam   = "[EXAM]"
	badgeDouble = "[DOUBLE]"
	freeMarker  = "free"
	naMarker    = "N/A"
)

// Names resolves entity ids to display names, falling back to the id.
type Names struct {
	Classes  map[string]string
	Subjects map[string]string
	Teachers map[string]string
	Rooms    map[string]string
}

// NamesFromRoster indexes display names for every roster entity.
func NamesFromRoster(roster models.Roster) Names {
	names := Names{
		Classes:  make(map[string]string, len(roster.Classes)),
		Subjects: make(map[string]string, len(roster.Subjects)),
		Teachers: make(map[string]string, len(roster.Teachers)),
		Rooms:    make(map[string]string, len(roster.Rooms)),
	}
	for _, c := range roster.Classes {
		names.Classes[c.ID] = c.Name
	}
	for _, s := range roster.Subjects {
		names.Subjects[s.ID] = s.Name
	}
	for _, t := range roster.Teachers {
		names.Teachers[t.ID] = t.Name
	}
	for _, r := range roster.Rooms {
		names.Rooms[r.ID] = r.Name
	}
	return names
}

func lookup(m map[string]string, id string) string {
	if name, ok := m[id]; ok && name != "" {
		return name
	}
	return id
}

// Options describes the header and layout of an export.
type Options struct {
	SchoolName        string
	Timetable         models.TimetableSummary
	Mode              scheduler.ViewMode
	SelectedID        string
	Orientation       export.Orientation
	PageSize          export.PageSize
	IncludeStatistics bool
	Statistics        models.TimetableStatistics
}

// BuildDocument renders a grid into a page description. Output depends only on
// its inputs, so identical inputs give identical documents.
func BuildDocument(grid scheduler.Grid, names Names, opts Options) export.TimetableDocument {
	doc := export.TimetableDocument{
		Title:       title(opts),
		Subtitle:    subtitle(opts, names),
		Orientation: opts.Orientation,
		PageSize:    opts.PageSize,
	}
	if doc.Orientation == "" {
		doc.Orientation = export.OrientationLandscape
	}
	if doc.PageSize == "" {
		doc.PageSize = export.PageSizeA4
	}
	for _, day := range grid.Days {
		doc.Columns = append(doc.Columns, day.Title())
	}

	usedExam, usedDouble := false, false
	for _, row := range grid.Rows {
		docRow := export.DocumentRow{
			Label: row.Period.Name,
			Time:  row.Period.StartTime + "-" + row.Period.EndTime,
		}
		if docRow.Label == "" {
			docRow.Label = row.Period.ID
		}
		for _, cell := range row.Cells {
			out := export.DocumentCell{State: string(cell.State)}
			switch cell.State {
			case scheduler.CellOccupied:
				for _, slot := range cell.Slots {
					out.Lines = append(out.Lines, slotLine(slot, opts.Mode, names))
					usedExam = usedExam || slot.IsExam
					usedDouble = usedDouble || slot.IsDoublePeriod
				}
			case scheduler.CellNonTeaching:
				out.Lines = []string{docRow.Label}
			case scheduler.CellNotApplicable:
				out.Lines = []string{naMarker}
			default:
				out.Lines = []string{freeMarker}
			}
			docRow.Cells = append(docRow.Cells, out)
		}
		doc.Rows = append(doc.Rows, docRow)
	}

	if usedExam {
		doc.Legend = append(doc.Legend, export.LegendEntry{Symbol: badgeExam, Meaning: "exam sitting"})
	}
	if usedDouble {
		doc.Legend = append(doc.Legend, export.LegendEntry{Symbol: badgeDouble, Meaning: "part of a double period"})
	}
	doc.Legend = append(doc.Legend,
		export.LegendEntry{Symbol: freeMarker, Meaning: "teaching period with nothing scheduled"},
		export.LegendEntry{Symbol: naMarker, Meaning: "period does not exist on this day"},
	)

	if opts.IncludeStatistics {
		doc.Statistics = statLines(opts.Statistics)
	}
	return doc
}

// slotLine shows what the viewer needs: the counterpart entity plus subject and room.
func slotLine(slot models.TimetableSlot, mode scheduler.ViewMode, names Names) string {
	parts := []string{lookup(names.Subjects, slot.SubjectID)}
	switch mode {
	case scheduler.ViewClass:
		parts = append(parts, lookup(names.Teachers, slot.TeacherID))
	case scheduler.ViewTeacher:
		parts = append(parts, lookup(names.Classes, slot.ClassID))
	default:
		parts = append(parts, lookup(names.Classes, slot.ClassID), lookup(names.Teachers, slot.TeacherID))
	}
	if room := slot.Room(); room != "" {
		parts = append(parts, lookup(names.Rooms, room))
	}
	line := strings.Join(parts, " - ")
	if slot.IsExam {
		line += " " + badgeExam
	}
	if slot.IsDoublePeriod {
		line += " " + badgeDouble
	}
	return line
}

func title(opts Options) string {
	name := strings.TrimSpace(opts.SchoolName)
	if name == "" {
		name = "School"
	}
	kind := "Timetable"
	if opts.Timetable.Type == models.TimetableTypeExam {
		kind = "Exam Timetable"
	}
	return name + " " + kind
}

func subtitle(opts Options, names Names) string {
	parts := make([]string, 0, 4)
	if opts.Timetable.Name != "" {
		parts = append(parts, opts.Timetable.Name)
	}
	if opts.Timetable.AcademicYear != "" {
		parts = append(parts, opts.Timetable.AcademicYear)
	}
	if opts.Timetable.Term != "" {
		parts = append(parts, "Term "+opts.Timetable.Term)
	}
	parts = append(parts, viewLabel(opts, names))
	return strings.Join(parts, " | ")
}

func viewLabel(opts Options, names Names) string {
	if opts.SelectedID == "" || opts.Mode == scheduler.ViewAdmin || opts.Mode == "" {
		return "All classes"
	}
	switch opts.Mode {
	case scheduler.ViewClass:
		return "Class " + lookup(names.Classes, opts.SelectedID)
	case scheduler.ViewTeacher:
		return "Teacher " + lookup(names.Teachers, opts.SelectedID)
	default:
		return "Subject " + lookup(names.Subjects, opts.SelectedID)
	}
}

func statLines(stats models.TimetableStatistics) []export.StatLine {
	lines := []export.StatLine{
		{Label: "Slots", Value: fmt.Sprintf("%d", stats.TotalSlots)},
		{Label: "Required periods", Value: fmt.Sprintf("%d", stats.RequiredPeriods)},
		{Label: "Completion", Value: fmt.Sprintf("%.1f%%", stats.CompletionPercent)},
		{Label: "Classes", Value: fmt.Sprintf("%d", stats.ClassCount)},
		{Label: "Teachers", Value: fmt.Sprintf("%d", stats.TeacherCount)},
		{Label: "Subjects", Value: fmt.Sprintf("%d", stats.SubjectCount)},
	}
	severities := make([]string, 0, len(stats.ConflictsBySeverity))
	for severity := range stats.ConflictsBySeverity {
		severities = append(severities, severity)
	}
	sort.Slice(severities, func(i, j int) bool {
		return models.Severity(severities[i]).Rank() < models.Severity(severities[j]).Rank()
	})
	for _, severity := range severities {
		lines = append(lines, export.StatLine{
			Label: "Open " + strings.ToLower(severity) + " conflicts",
			Value: fmt.Sprintf("%d", stats.ConflictsBySeverity[severity]),
		})
	}
	return lines
}
