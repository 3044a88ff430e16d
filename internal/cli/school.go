package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/sma-timetable-api/internal/calendar"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
)

// SchoolFile is the offline description of a school: its week and roster.
type SchoolFile struct {
	Name         string                `yaml:"name"`
	AcademicYear string                `yaml:"academicYear"`
	Term         string                `yaml:"term"`
	Calendar     []models.SchoolDay    `yaml:"calendar"`
	Roster       models.Roster         `yaml:"roster"`
	Rules        models.DetectionRules `yaml:"rules"`
}

// TimetableFile is the slot set written by generate and read by the other commands.
type TimetableFile struct {
	Name  string                 `yaml:"name,omitempty"`
	Type  models.TimetableType   `yaml:"type"`
	Slots []models.TimetableSlot `yaml:"slots"`
}

// school is a loaded SchoolFile with its derived lookups.
type school struct {
	file   SchoolFile
	cal    *calendar.Calendar
	roster *scheduler.RosterIndex
}

func loadSchool(path string) (*school, error) {
	var file SchoolFile
	if err := readYAML(path, &file); err != nil {
		return nil, err
	}
	days := file.Calendar
	if len(days) == 0 {
		days = calendar.DefaultWeek()
	}
	cal, err := calendar.New(days)
	if err != nil {
		return nil, fmt.Errorf("school %s: %w", path, err)
	}
	if file.Rules.MaxPeriodsPerDayPerTeacher <= 0 {
		file.Rules.MaxPeriodsPerDayPerTeacher = 6
	}
	return &school{file: file, cal: cal, roster: scheduler.NewRosterIndex(file.Roster)}, nil
}

func loadTimetable(path string) (*TimetableFile, error) {
	var file TimetableFile
	if err := readYAML(path, &file); err != nil {
		return nil, err
	}
	if file.Type == "" {
		file.Type = models.TimetableTypeTeaching
	}
	for i, slot := range file.Slots {
		if !slot.Day.Valid() {
			return nil, fmt.Errorf("timetable %s: slot %d has unknown day %q", path, i+1, slot.Day)
		}
		if slot.ID == "" {
			file.Slots[i].ID = fmt.Sprintf("slot-%03d", i+1)
		}
	}
	return &file, nil
}

func readYAML(path string, dest interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func writeYAML(path string, value interface{}) error {
	raw, err := yaml.Marshal(value)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

func (s *school) summary(tt *TimetableFile) models.TimetableSummary {
	name := tt.Name
	if name == "" {
		name = "Timetable"
	}
	return models.TimetableSummary{
		Name:         name,
		AcademicYear: s.file.AcademicYear,
		Term:         s.file.Term,
		Type:         tt.Type,
		Status:       models.TimetableStatusDraft,
		SlotCount:    len(tt.Slots),
	}
}

func (s *school) detect(tt *TimetableFile) []models.Conflict {
	return scheduler.DetectConflicts(scheduler.DetectInput{
		Type:   tt.Type,
		Slots:  tt.Slots,
		Rules:  s.file.Rules,
		Roster: s.roster,
	})
}
