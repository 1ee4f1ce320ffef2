package homework

import (
	"sort"
	"time"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
)

type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"

	trendWindow    = 3
	trendThreshold = 0.5
)

// GradeStats are computed on demand from the graded submissions of a student.
type GradeStats struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"` // rounded to 1 decimal
	Highest float64 `json:"highest"`
	Lowest  float64 `json:"lowest"`
	Trend   Trend   `json:"trend"`
}

// ComputeGradeStats ignores the submissions that are not graded.
// The trend compares the mean of the 3 most recent grades with the mean of the 3 before them,
// and stays stable with less than 6 grades.
func ComputeGradeStats(subs []Submission) GradeStats {
	type graded struct {
		grade float64
		at    time.Time
	}
	grades := make([]graded, 0, len(subs))
	for _, s := range subs {
		if !s.IsGraded() {
			continue
		}
		var at time.Time
		if s.GradedAt != nil {
			at = *s.GradedAt
		}
		grades = append(grades, graded{grade: *s.Grade, at: at})
	}

	stats := GradeStats{Count: len(grades), Trend: TrendStable}
	if len(grades) == 0 {
		return stats
	}

	var sum float64
	stats.Highest, stats.Lowest = grades[0].grade, grades[0].grade
	for _, g := range grades {
		sum += g.grade
		if g.grade > stats.Highest {
			stats.Highest = g.grade
		}
		if g.grade < stats.Lowest {
			stats.Lowest = g.grade
		}
	}
	stats.Average = core.Round(sum/float64(len(grades)), 1)

	if len(grades) >= 2*trendWindow {
		sort.SliceStable(grades, func(i, j int) bool { return grades[i].at.After(grades[j].at) })
		mean := func(gs []graded) float64 {
			var s float64
			for _, g := range gs {
				s += g.grade
			}
			return s / float64(len(gs))
		}
		diff := mean(grades[:trendWindow]) - mean(grades[trendWindow:2*trendWindow])
		switch {
		case diff > trendThreshold:
			stats.Trend = TrendUp
		case diff < -trendThreshold:
			stats.Trend = TrendDown
		}
	}
	return stats
}
