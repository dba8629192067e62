package attendance

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/user"
)

type (
	// Summary aggregates the attendance of a batch over a date range.
	Summary struct {
		Batch         string         `json:"batch"`
		FromDate      core.Date      `json:"from_date"`
		ToDate        core.Date      `json:"to_date"`
		Sessions      []Session      `json:"sessions"`
		StudentTotals []StudentTotal `json:"student_totals"`
		OverallCounts map[Status]int `json:"overall_counts"`
	}

	StudentTotal struct {
		Student              string         `json:"student"`
		StudentName          string         `json:"student_name"`
		Enrollment           string         `json:"enrollment"`
		Counts               map[Status]int `json:"counts"`
		TotalSessions        int            `json:"total_sessions"`
		AttendancePercentage float64        `json:"attendance_percentage"`
	}
)

// SummaryRange normalizes the bounds of a summary: both default to today,
// a single bound is used for both ends and swapped bounds are reordered.
func SummaryRange(from, to core.Date) (core.Date, core.Date) {
	switch {
	case from.IsZero() && to.IsZero():
		from = core.Today()
		to = from
	case from.IsZero():
		from = to
	case to.IsZero():
		to = from
	}
	if from.After(to) {
		from, to = to, from
	}
	return from, to
}

// Summarize computes per student and overall status counts of `sessions`.
// Students appear in the order they are first met.
func Summarize(batchName string, from, to core.Date, sessions []Session) Summary {
	sum := Summary{
		Batch:         batchName,
		FromDate:      from,
		ToDate:        to,
		Sessions:      sessions,
		StudentTotals: []StudentTotal{},
		OverallCounts: make(map[Status]int),
	}
	if sum.Sessions == nil {
		sum.Sessions = []Session{}
	}

	pos := make(map[string]int)
	for _, s := range sessions {
		for _, r := range s.Records {
			key := r.Student
			if key == "" {
				key = r.Enrollment
			}
			i, ok := pos[key]
			if !ok {
				i = len(sum.StudentTotals)
				pos[key] = i
				counts := make(map[Status]int, len(Statuses))
				for _, st := range Statuses {
					counts[st] = 0
				}
				sum.StudentTotals = append(sum.StudentTotals, StudentTotal{
					Student:     r.Student,
					StudentName: r.StudentName,
					Enrollment:  r.Enrollment,
					Counts:      counts,
				})
			}
			sum.StudentTotals[i].Counts[r.Status]++
			sum.StudentTotals[i].TotalSessions++
			sum.OverallCounts[r.Status]++
		}
	}

	for i := range sum.StudentTotals {
		st := &sum.StudentTotals[i]
		if st.TotalSessions > 0 {
			present := st.Counts[StatusPresent]
			st.AttendancePercentage = core.Round(float64(present)/float64(st.TotalSessions)*100, 2)
		}
	}
	return sum
}

// GetAttendanceSummary summarizes the sessions of `batchName` between `from` and `to`.
func (svc *Service) GetAttendanceSummary(ctx context.Context, actor user.User, batchName string, from, to core.Date) (Summary, error) {
	if err := svc.ensureBatchAccess(ctx, actor, batchName); err != nil {
		return Summary{}, err
	}
	from, to = SummaryRange(from, to)
	sessions, err := svc.repo.QuerySessions(ctx, batchName, from, to)
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying attendance sessions")
	}
	return Summarize(batchName, from, to, sessions), nil
}
