package batch

import (
	"context"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/user"
)

// BatchRequiredMsg is reported when an operation is called without a batch.
const BatchRequiredMsg = "Batch is required."

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("batch")
	ErrExists          = errors.New("a batch with this name already exists")
	ErrAlreadyEnrolled = errors.New("this member is already enrolled in the batch")
	ErrNotAllowed      = core.NewPermissionError("You are not allowed to manage batches.")
	errMemberNotFound  = "user not found"
)

type Service struct {
	repo    Repository
	userSvc user.Service
}

func NewService(repo Repository, userSvc user.Service) (*Service, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(userSvc, "userSvc"),
	).Check(); err != nil {
		return nil, err
	}
	return &Service{repo: repo, userSvc: userSvc}, nil
}

func (svc *Service) Create(ctx context.Context, actor user.User, nb NewBatch) (Batch, error) {
	if !actor.HasAnyRole(user.BatchManagerRoles...) {
		return Batch{}, ErrNotAllowed
	}
	b, err := svc.repo.CreateBatch(ctx, Batch{
		Name:      nb.Name,
		Title:     nb.Title,
		StartDate: nb.StartDate,
		EndDate:   nb.EndDate,
		Timezone:  nb.Timezone,
		Published: nb.Published,
	})
	if err == ErrExists {
		return Batch{}, core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
	}
	return b, errors.Wrap(err, "creating batch")
}

func (svc *Service) Get(ctx context.Context, name string) (Batch, error) {
	if name == "" {
		return Batch{}, core.Invalid(BatchRequiredMsg)
	}
	return svc.repo.GetBatch(ctx, name)
}

func (svc *Service) Enroll(ctx context.Context, actor user.User, batchName string, ne NewEnrollment) (Enrollment, error) {
	if !actor.HasAnyRole(user.BatchManagerRoles...) {
		return Enrollment{}, ErrNotAllowed
	}
	if _, err := svc.Get(ctx, batchName); err != nil {
		return Enrollment{}, err
	}
	member, err := svc.userSvc.GetByID(ctx, ne.Member)
	if err != nil {
		if err == user.ErrNotFound {
			return Enrollment{}, core.NewValidationError(err, core.FieldError{Field: "member", Error: errMemberNotFound})
		}
		return Enrollment{}, errors.Wrap(err, "finding member")
	}

	e, err := svc.repo.CreateEnrollment(ctx, Enrollment{
		Batch:      batchName,
		Member:     member.ID,
		MemberName: member.DisplayName(),
	})
	if err == ErrAlreadyEnrolled {
		return Enrollment{}, core.NewValidationError(err, core.FieldError{Field: "member", Error: err.Error()})
	}
	return e, errors.Wrap(err, "creating enrollment")
}

func (svc *Service) AssignInstructor(ctx context.Context, actor user.User, batchName string, ni NewInstructor) error {
	if !actor.HasAnyRole(user.BatchManagerRoles...) {
		return ErrNotAllowed
	}
	if _, err := svc.Get(ctx, batchName); err != nil {
		return err
	}
	instructor, err := svc.userSvc.GetByID(ctx, ni.Instructor)
	if err != nil {
		if err == user.ErrNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "instructor", Error: errMemberNotFound})
		}
		return errors.Wrap(err, "finding instructor")
	}
	return errors.Wrap(
		svc.repo.AddInstructor(ctx, CourseInstructor{Batch: batchName, Instructor: instructor.ID}),
		"adding instructor",
	)
}

// Enrollments returns the enrollments of `batchName` ordered by member name.
func (svc *Service) Enrollments(ctx context.Context, batchName string) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, batchName)
}

// ActiveBatches returns batches active on `day`; all of them when `instructor` is empty.
func (svc *Service) ActiveBatches(ctx context.Context, day core.Date, instructor string) ([]Batch, error) {
	return svc.repo.QueryActiveBatches(ctx, day, instructor)
}

func (svc *Service) InstructorBatches(ctx context.Context, instructor string) ([]Batch, error) {
	return svc.repo.QueryInstructorBatches(ctx, instructor)
}

func (svc *Service) IsInstructor(ctx context.Context, batchName, instructor string) (bool, error) {
	return svc.repo.IsInstructor(ctx, batchName, instructor)
}

// Summaries projects `batches` to their public summary.
func Summaries(batches []Batch) []Summary {
	out := make([]Summary, 0, len(batches))
	for _, b := range batches {
		out = append(out, b.Summary())
	}
	return out
}
