package batch_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/batch"
	"github.com/trezcool/masomo-lms/core/user"
	"github.com/trezcool/masomo-lms/services/email"
	"github.com/trezcool/masomo-lms/storage/database/inmem"
	"github.com/trezcool/masomo-lms/tests"
)

func TestIsActive(t *testing.T) {
	day := core.MustParseDate("2024-02-10")
	tests := []struct {
		name string
		b    batch.Batch
		want bool
	}{
		{"running", batch.Batch{Published: true, StartDate: core.MustParseDate("2024-02-01"), EndDate: core.MustParseDate("2024-03-01")}, true},
		{"first day", batch.Batch{Published: true, StartDate: day, EndDate: core.MustParseDate("2024-03-01")}, true},
		{"last day", batch.Batch{Published: true, StartDate: core.MustParseDate("2024-02-01"), EndDate: day}, true},
		{"open ended", batch.Batch{Published: true, StartDate: core.MustParseDate("2024-02-01")}, true},
		{"unpublished", batch.Batch{StartDate: core.MustParseDate("2024-02-01")}, false},
		{"not started", batch.Batch{Published: true, StartDate: core.MustParseDate("2024-02-11")}, false},
		{"over", batch.Batch{Published: true, StartDate: core.MustParseDate("2024-01-01"), EndDate: core.MustParseDate("2024-02-09")}, false},
		{"no dates", batch.Batch{Published: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.b.IsActive(day); got != tt.want {
				t.Errorf("failed! IsActive() = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestNewBatchValidate(t *testing.T) {
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	tests := []struct {
		name    string
		nb      batch.NewBatch
		wantErr bool
	}{
		{name: "valid", nb: batch.NewBatch{Name: "FR-A1", Title: "French A1", StartDate: core.MustParseDate("2024-01-01")}},
		{name: "missing start", nb: batch.NewBatch{Name: "fr-a1", Title: "French A1"}, wantErr: true},
		{name: "bad name", nb: batch.NewBatch{Name: "fr a1", Title: "French A1", StartDate: core.MustParseDate("2024-01-01")}, wantErr: true},
		{
			name:    "ends before start",
			nb:      batch.NewBatch{Name: "fr-a1", Title: "French A1", StartDate: core.MustParseDate("2024-01-10"), EndDate: core.MustParseDate("2024-01-01")},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.nb.Validate(validate); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v; wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestService(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	svc, err := batch.NewService(inmemdb.NewBatchRepository(db), user.NewServiceMock(usrRepo, emailsvc.NewConsoleServiceMock()))
	require.NoError(t, err)

	manager := testutil.CreateUser(t, usrRepo, "Manager", "manager", "manager@test.test", "", []string{user.RoleModerator}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.test", "", []string{user.RoleInstructor}, true)
	amy := testutil.CreateUser(t, usrRepo, "Amy", "amy", "amy@test.test", "", []string{user.RoleStudent}, true)

	nb := batch.NewBatch{Name: "fr-a1", Title: "French A1", StartDate: core.MustParseDate("2024-01-01"), Published: true}
	_, err = svc.Create(ctx, teacher, nb)
	assert.Equal(t, batch.ErrNotAllowed, err)
	b, err := svc.Create(ctx, manager, nb)
	require.NoError(t, err)
	_, err = svc.Create(ctx, manager, nb)
	_, isValidation := err.(*core.ValidationError)
	assert.True(t, isValidation)

	_, err = svc.Get(ctx, "")
	assert.EqualError(t, err, batch.BatchRequiredMsg)
	_, err = svc.Get(ctx, "nope")
	assert.Equal(t, batch.ErrNotFound, err)

	e, err := svc.Enroll(ctx, manager, b.Name, batch.NewEnrollment{Member: amy.ID})
	require.NoError(t, err)
	assert.Equal(t, "Amy", e.MemberName)
	_, err = svc.Enroll(ctx, manager, b.Name, batch.NewEnrollment{Member: amy.ID})
	_, isValidation = err.(*core.ValidationError)
	assert.True(t, isValidation)
	_, err = svc.Enroll(ctx, manager, b.Name, batch.NewEnrollment{Member: "ghost"})
	_, isValidation = err.(*core.ValidationError)
	assert.True(t, isValidation)
	_, err = svc.Enroll(ctx, teacher, b.Name, batch.NewEnrollment{Member: amy.ID})
	assert.Equal(t, batch.ErrNotAllowed, err)

	ok, err := svc.IsInstructor(ctx, b.Name, teacher.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, svc.AssignInstructor(ctx, manager, b.Name, batch.NewInstructor{Instructor: teacher.ID}))
	ok, err = svc.IsInstructor(ctx, b.Name, teacher.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	batches, err := svc.InstructorBatches(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, []batch.Summary{b.Summary()}, batch.Summaries(batches))

	active, err := svc.ActiveBatches(ctx, core.MustParseDate("2023-12-31"), "")
	require.NoError(t, err)
	assert.Empty(t, active)
	active, err = svc.ActiveBatches(ctx, core.MustParseDate("2024-05-01"), teacher.ID)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	enrollments, err := svc.Enrollments(ctx, b.Name)
	require.NoError(t, err)
	assert.Equal(t, []batch.Enrollment{e}, enrollments)
}
