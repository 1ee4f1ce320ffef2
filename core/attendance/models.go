package attendance

import (
	"math"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
)

type Status string

const (
	StatusPresent   Status = "present"
	StatusAbsent    Status = "absent"
	StatusJustified Status = "justified"
)

// Weekend is the default set of school days.
var Weekend = []time.Weekday{time.Saturday, time.Sunday}

// Record is the attendance of a student on a day. There is at most one record per student and date.
type Record struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	ClassID   string    `json:"class_id"`
	Date      time.Time `json:"date"` // day precision
	Status    Status    `json:"status"`
	Notes     string    `json:"notes"`
	MarkedBy  string    `json:"marked_by"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// SchoolDays returns the days of the month falling on one of the weekdays, the weekend when none is given.
func SchoolDays(year int, month time.Month, weekdays ...time.Weekday) []time.Time {
	if len(weekdays) == 0 {
		weekdays = Weekend
	}
	isSchoolDay := make(map[time.Weekday]bool, len(weekdays))
	for _, wd := range weekdays {
		isSchoolDay[wd] = true
	}

	var days []time.Time
	for d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC); d.Month() == month; d = d.AddDate(0, 0, 1) {
		if isSchoolDay[d.Weekday()] {
			days = append(days, d)
		}
	}
	return days
}

// IsSchoolDay reports whether the date falls on one of the weekdays, the weekend when none is given.
func IsSchoolDay(date time.Time, weekdays ...time.Weekday) bool {
	if len(weekdays) == 0 {
		weekdays = Weekend
	}
	for _, wd := range weekdays {
		if date.Weekday() == wd {
			return true
		}
	}
	return false
}

// Rate is the integer percentage of weekend school days of the month the student was present.
func Rate(records []Record, year int, month time.Month) int {
	return RateOn(records, year, month, Weekend...)
}

// RateOn is Rate over the given school weekdays. A month without school days has a rate of 0.
func RateOn(records []Record, year int, month time.Month, weekdays ...time.Weekday) int {
	total := len(SchoolDays(year, month, weekdays...))
	if total == 0 {
		return 0
	}
	present := countInMonth(records, year, month, StatusPresent)
	return int(math.Floor(float64(present)*100/float64(total) + 0.5))
}

func countInMonth(records []Record, year int, month time.Month, status Status) int {
	var n int
	for _, rec := range records {
		if rec.Status == status && rec.Date.Year() == year && rec.Date.Month() == month {
			n++
		}
	}
	return n
}

// MonthlyReport sums up the attendance of a student over a month.
type MonthlyReport struct {
	StudentID  string   `json:"student_id"`
	Year       int      `json:"year"`
	Month      int      `json:"month"`
	SchoolDays int      `json:"school_days"`
	Present    int      `json:"present"`
	Absent     int      `json:"absent"`
	Justified  int      `json:"justified"`
	Rate       int      `json:"rate"`
	Records    []Record `json:"records"`
}

func NewMonthlyReport(studentID string, records []Record, year int, month time.Month, weekdays ...time.Weekday) MonthlyReport {
	inMonth := make([]Record, 0, len(records))
	for _, rec := range records {
		if rec.Date.Year() == year && rec.Date.Month() == month {
			inMonth = append(inMonth, rec)
		}
	}
	return MonthlyReport{
		StudentID:  studentID,
		Year:       year,
		Month:      int(month),
		SchoolDays: len(SchoolDays(year, month, weekdays...)),
		Present:    countInMonth(inMonth, year, month, StatusPresent),
		Absent:     countInMonth(inMonth, year, month, StatusAbsent),
		Justified:  countInMonth(inMonth, year, month, StatusJustified),
		Rate:       RateOn(inMonth, year, month, weekdays...),
		Records:    inMonth,
	}
}

// Mark contains information needed to mark the attendance of a student.
type Mark struct {
	StudentID string `json:"student_id" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Status    Status `json:"status" validate:"required,oneof=present absent justified"`
	Notes     string `json:"notes" validate:"max=500"`
}

func (m *Mark) Validate(validate *validator.Validate) error {
	m.StudentID = core.CleanString(m.StudentID)
	m.Date = core.CleanString(m.Date)
	m.Status = Status(core.CleanString(string(m.Status), true))
	m.Notes = core.CleanString(m.Notes)
	return validate.Struct(m)
}

type ClassEntry struct {
	StudentID string `json:"student_id" validate:"required"`
	Status    Status `json:"status" validate:"required,oneof=present absent justified"`
	Notes     string `json:"notes" validate:"max=500"`
}

// MarkClass marks the attendance of several students of a class on the same day.
type MarkClass struct {
	Date    string       `json:"date" validate:"required,datetime=2006-01-02"`
	Entries []ClassEntry `json:"entries" validate:"required,min=1,dive"`
}

func (mc *MarkClass) Validate(validate *validator.Validate) error {
	mc.Date = core.CleanString(mc.Date)
	for i := range mc.Entries {
		mc.Entries[i].StudentID = core.CleanString(mc.Entries[i].StudentID)
		mc.Entries[i].Status = Status(core.CleanString(string(mc.Entries[i].Status), true))
		mc.Entries[i].Notes = core.CleanString(mc.Entries[i].Notes)
	}
	return validate.Struct(mc)
}

type QueryFilter struct {
	StudentID string    `query:"student_id"`
	ClassID   string    `query:"class_id"`
	Status    Status    `query:"status"`
	From      time.Time `query:"-"` // bound from "from"
	To        time.Time `query:"-"` // bound from "to"
}
