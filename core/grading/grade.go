package grading

import (
	"fmt"

	"github.com/trezcool/masomo-lms/core"
)

func studentLabel(r Record) string {
	switch {
	case r.StudentName != "":
		return r.StudentName
	case r.Student != "":
		return r.Student
	}
	return fmt.Sprintf("row #%d", r.Idx)
}

// RecalculateRowTotal rounds every graded component to 2 decimal places and sets their sum as the row total.
// With `enforceLimits`, a component outside of [0, max] is rejected.
func RecalculateRowTotal(r *Record, enforceLimits bool) (float64, error) {
	var total float64
	for _, c := range Components {
		score := r.Score(c.Field)
		if *score == nil {
			continue
		}
		value := core.Round(**score, 2)
		if enforceLimits && (value < 0 || value > c.Max) {
			return 0, core.Invalid("%s for %s must be between 0 and %v.", c.Label, studentLabel(*r), c.Max)
		}
		*score = &value
		total += value
	}
	r.Total = core.Round(total, 2)
	return r.Total, nil
}

// Validate recomputes the totals of every record, enforcing component limits.
func (sh *Sheet) Validate() error {
	for i := range sh.Records {
		if _, err := RecalculateRowTotal(&sh.Records[i], true); err != nil {
			return err
		}
	}
	return nil
}

// BeforeSubmit checks that every student is fully graded within limits.
func (sh *Sheet) BeforeSubmit() error {
	if len(sh.Records) == 0 {
		return core.Invalid("Add at least one grade record before submitting.")
	}
	for i := range sh.Records {
		r := &sh.Records[i]
		for _, c := range Components {
			if *r.Score(c.Field) == nil {
				return core.Invalid("Please enter %s for %s before submitting.", c.Label, studentLabel(*r))
			}
		}
		total, err := RecalculateRowTotal(r, true)
		if err != nil {
			return err
		}
		if total > MaxTotal {
			return core.Invalid("Total for %s cannot exceed %v.", studentLabel(*r), MaxTotal)
		}
	}
	return nil
}
