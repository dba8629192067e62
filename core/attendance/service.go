package attendance

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
	ErrSessionNotFound = core.NewNotFoundError("attendance session")
	ErrRecordNotFound  = core.NewNotFoundError("attendance record")
	ErrSheetNotFound   = core.NewNotFoundError("attendance sheet")
	ErrEntryNotFound   = core.NewNotFoundError("attendance entry")
	ErrSessionExists   = errors.New("this batch already has an attendance session on that day")
	ErrSheetExists     = errors.New("this batch already has an attendance sheet")

	ErrSessionLocked = core.Invalid("You cannot edit a submitted attendance session. Please reopen it first.")
	ErrSheetLocked   = core.Invalid("You cannot edit a submitted attendance sheet. Please reopen it first.")
	ErrNotReopenable = core.Invalid("Only submitted sessions can be reopened.")
	ErrExcuseReason  = core.Invalid("Excuse reason is required when marking a student as Excused.")
	errNoEnrollments = "Cannot create attendance %s because the batch has no enrollments yet."
)

// Batches is the part of the batch service attendance depends on.
type Batches interface {
	Get(ctx context.Context, name string) (batch.Batch, error)
	Enrollments(ctx context.Context, batchName string) ([]batch.Enrollment, error)
	ActiveBatches(ctx context.Context, day core.Date, instructor string) ([]batch.Batch, error)
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

// GetInstructorBatches returns the batches active today that `actor` can take attendance for, oldest first.
func (svc *Service) GetInstructorBatches(ctx context.Context, actor user.User) ([]batch.Summary, error) {
	if err := requireAttendanceRole(actor); err != nil {
		return nil, err
	}
	instructor := actor.ID
	if hasAdminPrivileges(actor) {
		instructor = ""
	}
	batches, err := svc.batches.ActiveBatches(ctx, core.Today(), instructor)
	if err != nil {
		return nil, errors.Wrap(err, "querying active batches")
	}
	return batch.Summaries(batches), nil
}

func (svc *Service) GetEnrollmentsForBatch(ctx context.Context, actor user.User, batchName string) ([]batch.Enrollment, error) {
	if batchName == "" {
		return []batch.Enrollment{}, nil
	}
	if err := svc.ensureBatchAccess(ctx, actor, batchName); err != nil {
		return nil, err
	}
	return svc.batches.Enrollments(ctx, batchName)
}

func (svc *Service) GetBatchSummary(ctx context.Context, actor user.User, batchName string) (batch.Summary, error) {
	if err := svc.ensureBatchAccess(ctx, actor, batchName); err != nil {
		return batch.Summary{}, err
	}
	b, err := svc.batches.Get(ctx, batchName)
	if err != nil {
		return batch.Summary{}, err
	}
	return b.Summary(), nil
}

// GetOrCreateSession returns the session of `batchName` on `day` (today when zero).
// A missing session is created with every enrolled student marked Absent.
func (svc *Service) GetOrCreateSession(ctx context.Context, actor user.User, batchName string, day core.Date) (Session, error) {
	if err := svc.ensureBatchAccess(ctx, actor, batchName); err != nil {
		return Session{}, err
	}
	if day.IsZero() {
		day = core.Today()
	}

	b, err := svc.batches.Get(ctx, batchName)
	if err != nil {
		return Session{}, err
	}
	if !b.StartDate.IsZero() && day.Before(b.StartDate) {
		return Session{}, core.Invalid("Session date %s is before the batch starts.", day)
	}
	if !b.EndDate.IsZero() && day.After(b.EndDate) {
		return Session{}, core.Invalid("Session date %s is after the batch ends.", day)
	}

	existing, err := svc.sessionOn(ctx, batchName, day)
	if err != ErrSessionNotFound {
		return existing, err
	}

	enrollments, err := svc.batches.Enrollments(ctx, batchName)
	if err != nil {
		return Session{}, errors.Wrap(err, "querying enrollments")
	}
	if len(enrollments) == 0 {
		return Session{}, core.Invalid(errNoEnrollments, "session")
	}

	s := Session{
		Batch:       batchName,
		SessionDate: day,
		Status:      LabelDraft,
		DocStatus:   core.DocDraft,
		Records:     make([]Record, 0, len(enrollments)),
	}
	for i, e := range enrollments {
		s.Records = append(s.Records, Record{
			Idx:         i + 1,
			Enrollment:  e.Name,
			Student:     e.Member,
			StudentName: e.MemberName,
			Status:      StatusAbsent,
		})
	}
	created, err := svc.repo.CreateSession(ctx, s)
	if err == ErrSessionExists { // created by a concurrent request
		return svc.sessionOn(ctx, batchName, day)
	}
	return created, errors.Wrap(err, "creating session")
}

// sessionOn returns the session of `batchName` on `day` with its records.
func (svc *Service) sessionOn(ctx context.Context, batchName string, day core.Date) (Session, error) {
	existing, err := svc.repo.GetSessionByDate(ctx, batchName, day)
	if err != nil {
		if err == ErrSessionNotFound {
			return Session{}, err
		}
		return Session{}, errors.Wrap(err, "finding session")
	}
	return svc.repo.GetSession(ctx, existing.Name)
}

// getSession loads a session and checks that `actor` can access its batch.
func (svc *Service) getSession(ctx context.Context, actor user.User, name string) (Session, error) {
	if err := requireAttendanceRole(actor); err != nil {
		return Session{}, err
	}
	s, err := svc.repo.GetSession(ctx, name)
	if err != nil {
		return Session{}, err
	}
	if err := svc.ensureBatchAccess(ctx, actor, s.Batch); err != nil {
		return Session{}, err
	}
	return s, nil
}

// SubmitSession locks a session. Submitting a submitted session is a no-op.
func (svc *Service) SubmitSession(ctx context.Context, actor user.User, name string) (Session, error) {
	s, err := svc.getSession(ctx, actor, name)
	if err != nil {
		return Session{}, err
	}
	if s.DocStatus.IsSubmitted() {
		return s, nil
	}
	if err := svc.repo.SetSessionState(ctx, name, core.DocSubmitted, LabelSubmitted); err != nil {
		return Session{}, errors.Wrap(err, "submitting session")
	}
	return svc.repo.GetSession(ctx, name)
}

// ReopenSession puts a submitted session back to draft; only attendance admins can do it.
func (svc *Service) ReopenSession(ctx context.Context, actor user.User, name string) (Session, error) {
	if err := requireAttendanceRole(actor); err != nil {
		return Session{}, err
	}
	if !hasAdminPrivileges(actor) {
		return Session{}, errReopenSession
	}
	s, err := svc.repo.GetSession(ctx, name)
	if err != nil {
		return Session{}, err
	}
	if !s.DocStatus.IsSubmitted() {
		return Session{}, ErrNotReopenable
	}
	if err := svc.repo.SetSessionState(ctx, name, core.DocDraft, LabelDraft); err != nil {
		return Session{}, errors.Wrap(err, "reopening session")
	}
	return svc.repo.GetSession(ctx, name)
}

func (svc *Service) UpdateAttendanceRecord(ctx context.Context, actor user.User, name string, m Mark) (Record, error) {
	if err := requireAttendanceRole(actor); err != nil {
		return Record{}, err
	}
	r, err := svc.repo.GetRecord(ctx, name)
	if err != nil {
		return Record{}, err
	}
	s, err := svc.getSession(ctx, actor, r.Session)
	if err != nil {
		return Record{}, err
	}
	if !s.DocStatus.IsDraft() {
		return Record{}, ErrSessionLocked
	}
	if err := m.apply(&r.Status, &r.ExcuseReason, &r.Notes); err != nil {
		return Record{}, err
	}
	r, err = svc.repo.UpdateRecord(ctx, r)
	return r, errors.Wrap(err, "updating attendance record")
}

// apply marks an attendance: Excused needs a reason (the current one is kept when none is given),
// any other status clears it.
func (m Mark) apply(status *Status, excuseReason, notes *string) error {
	if m.Status != "" {
		if !m.Status.IsValid() {
			return core.Invalid("Invalid attendance status: %s", m.Status)
		}
		*status = m.Status
	}

	if *status == StatusExcused {
		reason := core.CleanString(m.ExcuseReason)
		if reason == "" {
			reason = *excuseReason
		}
		if reason == "" {
			return ErrExcuseReason
		}
		*excuseReason = reason
	} else {
		*excuseReason = ""
	}

	if m.Notes != nil {
		*notes = *m.Notes
	}
	return nil
}
