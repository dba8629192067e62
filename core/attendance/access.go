package attendance

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/batch"
	"github.com/trezcool/masomo-lms/core/user"
)

var (
	ErrLoginRequired = core.NewPermissionError("Please log in to manage attendance.")
	ErrNotAllowed    = core.NewPermissionError("You are not allowed to manage attendance.")
	ErrNoBatchAccess = core.NewPermissionError("You do not have access to this batch.")

	errReopenSession = core.NewPermissionError("Only Moderators or Administrators can reopen submitted sessions.")
	errReopenSheet   = core.NewPermissionError("Only Moderators or Administrators can reopen submitted sheets.")
)

func requireAttendanceRole(actor user.User) error {
	if actor.IsGuest() {
		return ErrLoginRequired
	}
	if !actor.HasAnyRole(user.AttendanceRoles...) {
		return ErrNotAllowed
	}
	return nil
}

func hasAdminPrivileges(actor user.User) bool {
	return actor.HasAnyRole(user.AttendanceAdminRoles...)
}

// ensureBatchAccess checks that `actor` may take the attendance of `batchName`:
// attendance admins can access every batch, instructors only the batches they teach.
func (svc *Service) ensureBatchAccess(ctx context.Context, actor user.User, batchName string) error {
	if err := requireAttendanceRole(actor); err != nil {
		return err
	}
	if batchName == "" {
		return core.Invalid(batch.BatchRequiredMsg)
	}
	if hasAdminPrivileges(actor) {
		return nil
	}
	ok, err := svc.batches.IsInstructor(ctx, batchName, actor.ID)
	if err != nil {
		return errors.Wrap(err, "checking course instructor")
	}
	if !ok {
		return ErrNoBatchAccess
	}
	return nil
}
