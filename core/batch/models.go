package batch

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-lms/core"
)

// Batch is a cohort of students following a course over a period of time.
type Batch struct {
	Name      string    `json:"name"`
	Title     string    `json:"title"`
	StartDate core.Date `json:"start_date"`
	EndDate   core.Date `json:"end_date"` // open ended when zero
	Timezone  string    `json:"timezone"`
	Published bool      `json:"published"`
}

// IsActive tells whether the batch is published and runs on `day`.
func (b Batch) IsActive(day core.Date) bool {
	if !b.Published || b.StartDate.IsZero() || b.StartDate.After(day) {
		return false
	}
	return b.EndDate.IsZero() || !b.EndDate.Before(day)
}

// HasDates tells whether both batch dates are set.
func (b Batch) HasDates() bool {
	return !b.StartDate.IsZero() && !b.EndDate.IsZero()
}

// Summary is the public projection of a Batch.
type Summary struct {
	Name      string    `json:"name"`
	Title     string    `json:"title"`
	StartDate core.Date `json:"start_date"`
	EndDate   core.Date `json:"end_date"`
	Timezone  string    `json:"timezone"`
}

func (b Batch) Summary() Summary {
	return Summary{Name: b.Name, Title: b.Title, StartDate: b.StartDate, EndDate: b.EndDate, Timezone: b.Timezone}
}

// Enrollment links a member (student) to a batch.
type Enrollment struct {
	Name       string `json:"name"`
	Batch      string `json:"batch"`
	Member     string `json:"member"`
	MemberName string `json:"member_name"`
}

// Student is an enrolled student as shown on grade sheets.
type Student struct {
	Student     string `json:"student"`
	StudentName string `json:"student_name"`
}

// CourseInstructor allows an instructor to manage a batch.
type CourseInstructor struct {
	Batch      string `json:"batch"`
	Instructor string `json:"instructor"`
}

// NewBatch contains information needed to create a new Batch.
type NewBatch struct {
	Name      string    `json:"name" validate:"required,slug,max=140"`
	Title     string    `json:"title" validate:"required,max=140"`
	StartDate core.Date `json:"start_date" validate:"required"`
	EndDate   core.Date `json:"end_date"`
	Timezone  string    `json:"timezone"`
	Published bool      `json:"published"`
}

func (nb *NewBatch) Validate(validate *validator.Validate) error {
	nb.Name = core.CleanString(nb.Name, true /* lower */)
	nb.Title = core.CleanString(nb.Title)
	nb.Timezone = core.CleanString(nb.Timezone)
	if err := validate.Struct(nb); err != nil {
		return err
	}
	if !nb.EndDate.IsZero() && nb.EndDate.Before(nb.StartDate) {
		return core.NewValidationError(nil, core.FieldError{Field: "end_date", Error: "end date cannot be before the start date"})
	}
	return nil
}

// NewEnrollment enrolls a user into a batch.
type NewEnrollment struct {
	Member string `json:"member" validate:"required"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	ne.Member = core.CleanString(ne.Member)
	return validate.Struct(ne)
}

// NewInstructor assigns a user as instructor of a batch.
type NewInstructor struct {
	Instructor string `json:"instructor" validate:"required"`
}

func (ni *NewInstructor) Validate(validate *validator.Validate) error {
	ni.Instructor = core.CleanString(ni.Instructor)
	return validate.Struct(ni)
}

// Repository persists batches, enrollments and course instructors.
type Repository interface {
	CreateBatch(ctx context.Context, b Batch) (Batch, error)
	GetBatch(ctx context.Context, name string) (Batch, error)
	// QueryActiveBatches returns batches active on `day` ordered by start date.
	// When `instructor` is set, only the batches they instruct are returned.
	QueryActiveBatches(ctx context.Context, day core.Date, instructor string) ([]Batch, error)
	// QueryInstructorBatches returns all the batches `instructor` instructs ordered by start date.
	QueryInstructorBatches(ctx context.Context, instructor string) ([]Batch, error)
	IsInstructor(ctx context.Context, batch, instructor string) (bool, error)
	AddInstructor(ctx context.Context, ci CourseInstructor) error
	// QueryEnrollments returns the enrollments of `batch` ordered by member name.
	QueryEnrollments(ctx context.Context, batch string) ([]Enrollment, error)
	CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
}
