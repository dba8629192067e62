package grading

import (
	"context"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/batch"
	"github.com/trezcool/masomo-lms/core/user"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("grade sheet")
	ErrLoginRequired  = core.NewPermissionError("Please log in to access instructor tools.")
	ErrSheetLocked    = core.Invalid("Cannot edit a submitted grade sheet.")
	ErrNotCancellable = core.Invalid("Only submitted grade sheets can be cancelled.")
	ErrNotSubmittable = core.Invalid("Only draft grade sheets can be submitted.")
)

// Batches is the part of the batch service grading depends on.
type Batches interface {
	Enrollments(ctx context.Context, batchName string) ([]batch.Enrollment, error)
	InstructorBatches(ctx context.Context, instructor string) ([]batch.Batch, error)
	IsInstructor(ctx context.Context, batchName, instructor string) (bool, error)
}

type Service struct {
	repo    Repository
	batches Batches
}

func NewService(repo Repository, batches Batches) (*Service, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(batches, "batches"),
	).Check(); err != nil {
		return nil, err
	}
	return &Service{repo: repo, batches: batches}, nil
}

// EnsureBatchPermission checks that `actor` can manage the grades of `batchName`:
// grading admins manage every batch, instructors only the batches they teach.
func (svc *Service) EnsureBatchPermission(ctx context.Context, batchName string, actor user.User) error {
	if batchName == "" {
		return core.Invalid(batch.BatchRequiredMsg)
	}
	if actor.HasAnyRole(user.GradingAdminRoles...) {
		return nil
	}
	if !actor.IsGuest() {
		ok, err := svc.batches.IsInstructor(ctx, batchName, actor.ID)
		if err != nil {
			return errors.Wrap(err, "checking course instructor")
		}
		if ok {
			return nil
		}
	}
	return core.NewPermissionError("You are not allowed to manage grades for batch %s.", batchName)
}

// GetBatchesForCurrentInstructor returns the batches `actor` instructs, oldest first.
func (svc *Service) GetBatchesForCurrentInstructor(ctx context.Context, actor user.User) ([]batch.Summary, error) {
	if actor.IsGuest() {
		return nil, ErrLoginRequired
	}
	batches, err := svc.batches.InstructorBatches(ctx, actor.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying instructor batches")
	}
	return batch.Summaries(batches), nil
}

func (svc *Service) GetEnrolledStudents(ctx context.Context, actor user.User, batchName string) ([]batch.Student, error) {
	if batchName == "" {
		return []batch.Student{}, nil
	}
	if err := svc.EnsureBatchPermission(ctx, batchName, actor); err != nil {
		return nil, err
	}
	enrollments, err := svc.batches.Enrollments(ctx, batchName)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	students := make([]batch.Student, 0, len(enrollments))
	for _, e := range enrollments {
		students = append(students, batch.Student{Student: e.Member, StudentName: e.MemberName})
	}
	return students, nil
}

// GetOrCreateGradeSheet returns the open grade sheet of `actor` for `batchName`.
// A new sheet gets an empty record per enrolled student; students enrolled later are appended to draft sheets.
func (svc *Service) GetOrCreateGradeSheet(ctx context.Context, actor user.User, batchName string) (Sheet, error) {
	if batchName == "" {
		return Sheet{}, core.Invalid(batch.BatchRequiredMsg)
	}
	if actor.IsGuest() {
		return Sheet{}, ErrLoginRequired
	}
	if err := svc.EnsureBatchPermission(ctx, batchName, actor); err != nil {
		return Sheet{}, err
	}

	students, err := svc.GetEnrolledStudents(ctx, actor, batchName)
	if err != nil {
		return Sheet{}, err
	}

	sh, err := svc.repo.FindSheet(ctx, batchName, actor.ID)
	switch {
	case err == ErrNotFound:
		sh = Sheet{Batch: batchName, Instructor: actor.ID, DocStatus: core.DocDraft}
		appendMissingStudents(&sh, students)
		sh, err = svc.repo.CreateSheet(ctx, sh)
		return sh, errors.Wrap(err, "creating grade sheet")
	case err != nil:
		return Sheet{}, errors.Wrap(err, "finding grade sheet")
	}

	if sh.DocStatus.IsDraft() && appendMissingStudents(&sh, students) {
		sh, err = svc.repo.UpdateSheet(ctx, sh)
		return sh, errors.Wrap(err, "adding enrolled students")
	}
	return sh, nil
}

func appendMissingStudents(sh *Sheet, students []batch.Student) (added bool) {
	graded := make(map[string]bool, len(sh.Records))
	for _, r := range sh.Records {
		graded[r.Student] = true
	}
	for _, s := range students {
		if graded[s.Student] {
			continue
		}
		sh.Records = append(sh.Records, Record{
			Idx:         len(sh.Records) + 1,
			Student:     s.Student,
			StudentName: s.StudentName,
		})
		added = true
	}
	return added
}

func (svc *Service) GetGradeSheet(ctx context.Context, actor user.User, name string) (Sheet, error) {
	sh, err := svc.repo.GetSheet(ctx, name)
	if err != nil {
		return Sheet{}, err
	}
	if err := svc.EnsureBatchPermission(ctx, sh.Batch, actor); err != nil {
		return Sheet{}, err
	}
	return sh, nil
}

// SaveGradeSheet replaces the records of a draft sheet after validating them.
func (svc *Service) SaveGradeSheet(ctx context.Context, actor user.User, name string, su SheetUpdate) (Sheet, error) {
	sh, err := svc.GetGradeSheet(ctx, actor, name)
	if err != nil {
		return Sheet{}, err
	}
	if !sh.DocStatus.IsDraft() {
		return Sheet{}, ErrSheetLocked
	}
	sh.Records = su.Records
	for i := range sh.Records {
		sh.Records[i].Idx = i + 1
	}
	if err := sh.Validate(); err != nil {
		return Sheet{}, err
	}
	sh, err = svc.repo.UpdateSheet(ctx, sh)
	return sh, errors.Wrap(err, "saving grade sheet")
}

func (svc *Service) SubmitGradeSheet(ctx context.Context, actor user.User, name string) (Sheet, error) {
	sh, err := svc.GetGradeSheet(ctx, actor, name)
	if err != nil {
		return Sheet{}, err
	}
	if !sh.DocStatus.IsDraft() {
		return Sheet{}, ErrNotSubmittable
	}
	if err := sh.BeforeSubmit(); err != nil {
		return Sheet{}, err
	}
	sh.DocStatus = core.DocSubmitted
	sh, err = svc.repo.UpdateSheet(ctx, sh)
	return sh, errors.Wrap(err, "submitting grade sheet")
}

// CancelGradeSheet cancels a submitted sheet so that a new one can be started.
func (svc *Service) CancelGradeSheet(ctx context.Context, actor user.User, name string) (Sheet, error) {
	sh, err := svc.GetGradeSheet(ctx, actor, name)
	if err != nil {
		return Sheet{}, err
	}
	if !sh.DocStatus.IsSubmitted() {
		return Sheet{}, ErrNotCancellable
	}
	sh.DocStatus = core.DocCancelled
	sh, err = svc.repo.UpdateSheet(ctx, sh)
	return sh, errors.Wrap(err, "cancelling grade sheet")
}
