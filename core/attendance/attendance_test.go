package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/attendance"
	"github.com/trezcool/masomo-lms/core/batch"
	"github.com/trezcool/masomo-lms/core/user"
	"github.com/trezcool/masomo-lms/services/email"
	"github.com/trezcool/masomo-lms/storage/database/inmem"
	"github.com/trezcool/masomo-lms/tests"
)

type fixture struct {
	svc        *attendance.Service
	repo       attendance.Repository
	batchSvc   *batch.Service
	usrRepo    user.Repository
	batchRepo  batch.Repository
	admin      user.User
	instructor user.User
	outsider   user.User
	student    user.User
	amy, zed   user.User
	batch      batch.Batch
}

func setUp(t *testing.T) fixture {
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	batchRepo := inmemdb.NewBatchRepository(db)

	usrSvc := user.NewServiceMock(usrRepo, emailsvc.NewConsoleServiceMock())
	batchSvc, err := batch.NewService(batchRepo, usrSvc)
	require.NoError(t, err)
	repo := inmemdb.NewAttendanceRepository(db)
	svc, err := attendance.NewService(repo, batchSvc)
	require.NoError(t, err)

	f := fixture{svc: svc, repo: repo, batchSvc: batchSvc, usrRepo: usrRepo, batchRepo: batchRepo}
	f.admin = testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.test", "", []string{user.RoleModerator}, true)
	f.instructor = testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.test", "", []string{user.RoleLMSInstructor}, true)
	f.outsider = testutil.CreateUser(t, usrRepo, "Other", "other", "other@test.test", "", []string{user.RoleInstructor}, true)
	f.student = testutil.CreateUser(t, usrRepo, "Student", "student", "student@test.test", "", []string{user.RoleStudent}, true)
	f.zed = testutil.CreateUser(t, usrRepo, "Zed", "zed", "zed@test.test", "", []string{user.RoleStudent}, true)
	f.amy = testutil.CreateUser(t, usrRepo, "Amy", "amy", "amy@test.test", "", []string{user.RoleStudent}, true)

	f.batch = testutil.CreateBatch(t, batchRepo, "fr-a1", "2024-01-01", "2024-01-10")
	testutil.AddInstructor(t, batchRepo, f.batch, f.instructor)
	testutil.Enroll(t, batchRepo, f.batch, f.zed, f.amy)
	return f
}

func errMsg(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func TestCalendar(t *testing.T) {
	days := attendance.Calendar(core.MustParseDate("2024-01-01"), core.MustParseDate("2024-01-10"))
	require.Len(t, days, 10)

	tests := []struct {
		name    string
		day     attendance.Day
		date    string
		week    int
		label   string
		weekday string
	}{
		{name: "first day", day: days[0], date: "2024-01-01", week: 1, label: "Week 1 · Jan 1 – Jan 7", weekday: "Mon"},
		{name: "end of first week", day: days[6], date: "2024-01-07", week: 1, label: "Week 1 · Jan 1 – Jan 7", weekday: "Sun"},
		{name: "truncated last week", day: days[9], date: "2024-01-10", week: 2, label: "Week 2 · Jan 8 – Jan 10", weekday: "Wed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.day.Date.String(); got != tt.date {
				t.Errorf("failed! date = %v; want %v", got, tt.date)
			}
			if tt.day.WeekIndex != tt.week {
				t.Errorf("failed! week = %v; want %v", tt.day.WeekIndex, tt.week)
			}
			if tt.day.WeekLabel != tt.label {
				t.Errorf("failed! label = %v; want %v", tt.day.WeekLabel, tt.label)
			}
			if tt.day.WeekdayName != tt.weekday {
				t.Errorf("failed! weekday = %v; want %v", tt.day.WeekdayName, tt.weekday)
			}
		})
	}

	assert.Empty(t, attendance.Calendar(core.MustParseDate("2024-01-10"), core.MustParseDate("2024-01-01")))
}

func TestAccess(t *testing.T) {
	f := setUp(t)
	ctx := context.Background()
	day := core.MustParseDate("2024-01-02")

	tests := []struct {
		name    string
		actor   user.User
		batch   string
		wantErr string
	}{
		{name: "guest", actor: user.Guest, batch: f.batch.Name, wantErr: "Please log in to manage attendance."},
		{name: "student", actor: f.student, batch: f.batch.Name, wantErr: "You are not allowed to manage attendance."},
		{name: "other instructor", actor: f.outsider, batch: f.batch.Name, wantErr: "You do not have access to this batch."},
		{name: "no batch", actor: f.instructor, batch: "", wantErr: "Batch is required."},
		{name: "guest without batch", actor: user.Guest, batch: "", wantErr: "Please log in to manage attendance."},
		{name: "student without batch", actor: f.student, batch: "", wantErr: "You are not allowed to manage attendance."},
		{name: "batch instructor", actor: f.instructor, batch: f.batch.Name},
		{name: "moderator", actor: f.admin, batch: f.batch.Name},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.GetOrCreateSession(ctx, tt.actor, tt.batch, day)
			if got := errMsg(err); got != tt.wantErr {
				t.Errorf("GetOrCreateSession() error = %v; wantErr %v", got, tt.wantErr)
			}
		})
	}
}

func TestGetInstructorBatches(t *testing.T) {
	f := setUp(t)
	ctx := context.Background()
	testutil.CreateBatch(t, f.batchRepo, "fr-a2", "2024-01-03", "")
	testutil.CreateBatch(t, f.batchRepo, "fr-old", "2023-01-01", "2023-02-01")

	core.NowFunc = func() time.Time { return time.Date(2024, 1, 5, 10, 0, 0, 0, time.Local) }
	defer func() { core.NowFunc = time.Now }()

	batches, err := f.svc.GetInstructorBatches(ctx, f.admin)
	require.NoError(t, err)
	names := make([]string, 0, len(batches))
	for _, b := range batches {
		names = append(names, b.Name)
	}
	assert.Equal(t, []string{"fr-a1", "fr-a2"}, names)

	batches, err = f.svc.GetInstructorBatches(ctx, f.instructor)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, "fr-a1", batches[0].Name)

	batches, err = f.svc.GetInstructorBatches(ctx, f.outsider)
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestSessionLifecycle(t *testing.T) {
	f := setUp(t)
	ctx := context.Background()

	_, err := f.svc.GetOrCreateSession(ctx, f.instructor, f.batch.Name, core.MustParseDate("2023-12-31"))
	assert.EqualError(t, err, "Session date 2023-12-31 is before the batch starts.")
	_, err = f.svc.GetOrCreateSession(ctx, f.instructor, f.batch.Name, core.MustParseDate("2024-01-11"))
	assert.EqualError(t, err, "Session date 2024-01-11 is after the batch ends.")

	s, err := f.svc.GetOrCreateSession(ctx, f.instructor, f.batch.Name, core.MustParseDate("2024-01-02"))
	require.NoError(t, err)
	assert.Equal(t, core.DocDraft, s.DocStatus)
	require.Len(t, s.Records, 2)
	assert.Equal(t, "Amy", s.Records[0].StudentName)
	assert.Equal(t, "Zed", s.Records[1].StudentName)
	for _, r := range s.Records {
		assert.Equal(t, attendance.StatusAbsent, r.Status)
	}

	again, err := f.svc.GetOrCreateSession(ctx, f.admin, f.batch.Name, core.MustParseDate("2024-01-02"))
	require.NoError(t, err)
	assert.Equal(t, s.Name, again.Name)

	rec := s.Records[0].Name
	notes := "came late"
	tests := []struct {
		name       string
		mark       attendance.Mark
		wantErr    string
		wantStatus attendance.Status
		wantReason string
		wantNotes  string
	}{
		{name: "invalid status", mark: attendance.Mark{Status: "Sleeping"}, wantErr: "Invalid attendance status: Sleeping"},
		{name: "excused without reason", mark: attendance.Mark{Status: attendance.StatusExcused}, wantErr: "Excuse reason is required when marking a student as Excused."},
		{name: "excused", mark: attendance.Mark{Status: attendance.StatusExcused, ExcuseReason: "sick"}, wantStatus: attendance.StatusExcused, wantReason: "sick"},
		{name: "reason kept", mark: attendance.Mark{Notes: &notes}, wantStatus: attendance.StatusExcused, wantReason: "sick", wantNotes: notes},
		{name: "present clears reason", mark: attendance.Mark{Status: attendance.StatusPresent}, wantStatus: attendance.StatusPresent, wantNotes: notes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.UpdateAttendanceRecord(ctx, f.instructor, rec, tt.mark)
			if errMsg(err) != tt.wantErr {
				t.Fatalf("UpdateAttendanceRecord() error = %v; wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr != "" {
				return
			}
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantReason, got.ExcuseReason)
			assert.Equal(t, tt.wantNotes, got.Notes)
		})
	}

	_, err = f.svc.UpdateAttendanceRecord(ctx, f.outsider, rec, attendance.Mark{Status: attendance.StatusLate})
	assert.Equal(t, attendance.ErrNoBatchAccess, err)

	_, err = f.svc.ReopenSession(ctx, f.admin, s.Name)
	assert.Equal(t, attendance.ErrNotReopenable, err)

	s, err = f.svc.SubmitSession(ctx, f.instructor, s.Name)
	require.NoError(t, err)
	assert.Equal(t, core.DocSubmitted, s.DocStatus)
	assert.Equal(t, attendance.LabelSubmitted, s.Status)

	s, err = f.svc.SubmitSession(ctx, f.instructor, s.Name)
	require.NoError(t, err)
	assert.Equal(t, core.DocSubmitted, s.DocStatus)

	_, err = f.svc.UpdateAttendanceRecord(ctx, f.instructor, rec, attendance.Mark{Status: attendance.StatusLate})
	assert.Equal(t, attendance.ErrSessionLocked, err)

	_, err = f.svc.ReopenSession(ctx, f.instructor, s.Name)
	assert.EqualError(t, err, "Only Moderators or Administrators can reopen submitted sessions.")
	assert.True(t, core.IsPermissionError(err))

	s, err = f.svc.ReopenSession(ctx, f.admin, s.Name)
	require.NoError(t, err)
	assert.Equal(t, core.DocDraft, s.DocStatus)
	assert.Equal(t, attendance.LabelDraft, s.Status)
}

func TestSessionWithoutEnrollments(t *testing.T) {
	f := setUp(t)
	empty := testutil.CreateBatch(t, f.batchRepo, "empty", "2024-01-01", "2024-01-10")

	_, err := f.svc.GetOrCreateSession(context.Background(), f.admin, empty.Name, core.MustParseDate("2024-01-02"))
	assert.EqualError(t, err, "Cannot create attendance session because the batch has no enrollments yet.")
}

func TestAttendanceSummary(t *testing.T) {
	f := setUp(t)
	ctx := context.Background()

	for _, day := range []string{"2024-01-02", "2024-01-03", "2024-01-04"} {
		s, err := f.svc.GetOrCreateSession(ctx, f.instructor, f.batch.Name, core.MustParseDate(day))
		require.NoError(t, err)
		// Amy is present every day but the last, Zed is always absent
		if day != "2024-01-04" {
			_, err = f.svc.UpdateAttendanceRecord(ctx, f.instructor, s.Records[0].Name, attendance.Mark{Status: attendance.StatusPresent})
			require.NoError(t, err)
		}
	}

	sum, err := f.svc.GetAttendanceSummary(ctx, f.instructor, f.batch.Name, core.MustParseDate("2024-01-04"), core.MustParseDate("2024-01-02"))
	require.NoError(t, err)

	assert.Equal(t, "2024-01-02", sum.FromDate.String())
	assert.Equal(t, "2024-01-04", sum.ToDate.String())
	require.Len(t, sum.Sessions, 3)
	assert.Equal(t, "2024-01-02", sum.Sessions[0].SessionDate.String())

	require.Len(t, sum.StudentTotals, 2)
	amy := sum.StudentTotals[0]
	assert.Equal(t, f.amy.ID, amy.Student)
	assert.Equal(t, 3, amy.TotalSessions)
	assert.Equal(t, 2, amy.Counts[attendance.StatusPresent])
	assert.Equal(t, 66.67, amy.AttendancePercentage)
	assert.Equal(t, 0, amy.Counts[attendance.StatusExcused])
	assert.Equal(t, 0.0, sum.StudentTotals[1].AttendancePercentage)

	assert.Equal(t, map[attendance.Status]int{attendance.StatusPresent: 2, attendance.StatusAbsent: 4}, sum.OverallCounts)
}

func TestSummaryRange(t *testing.T) {
	core.NowFunc = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local) }
	defer func() { core.NowFunc = time.Now }()

	tests := []struct {
		name     string
		from, to string
		wantFrom string
		wantTo   string
	}{
		{name: "no bounds", wantFrom: "2024-03-01", wantTo: "2024-03-01"},
		{name: "from only", from: "2024-02-01", wantFrom: "2024-02-01", wantTo: "2024-02-01"},
		{name: "to only", to: "2024-02-05", wantFrom: "2024-02-05", wantTo: "2024-02-05"},
		{name: "swapped", from: "2024-02-05", to: "2024-02-01", wantFrom: "2024-02-01", wantTo: "2024-02-05"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := attendance.SummaryRange(core.MustParseDate(tt.from), core.MustParseDate(tt.to))
			if from.String() != tt.wantFrom || to.String() != tt.wantTo {
				t.Errorf("failed! range = %v..%v; want %v..%v", from, to, tt.wantFrom, tt.wantTo)
			}
		})
	}
}

// lateRepo misses the first lookup, as when a concurrent request creates the same document
// between the lookup and the insert.
type lateRepo struct {
	attendance.Repository
	sessionMisses, sheetMisses int
}

func (r *lateRepo) GetSessionByDate(ctx context.Context, batchName string, day core.Date) (attendance.Session, error) {
	if r.sessionMisses == 0 {
		r.sessionMisses++
		return attendance.Session{}, attendance.ErrSessionNotFound
	}
	return r.Repository.GetSessionByDate(ctx, batchName, day)
}

func (r *lateRepo) GetSheetByBatch(ctx context.Context, batchName string) (attendance.Sheet, error) {
	if r.sheetMisses == 0 {
		r.sheetMisses++
		return attendance.Sheet{}, attendance.ErrSheetNotFound
	}
	return r.Repository.GetSheetByBatch(ctx, batchName)
}

func TestGetOrCreate_concurrentCreation(t *testing.T) {
	f := setUp(t)
	ctx := context.Background()
	day := core.MustParseDate("2024-01-03")

	late, err := attendance.NewService(&lateRepo{Repository: f.repo}, f.batchSvc)
	require.NoError(t, err)

	t.Run("session", func(t *testing.T) {
		first, err := f.svc.GetOrCreateSession(ctx, f.instructor, f.batch.Name, day)
		require.NoError(t, err)

		second, err := late.GetOrCreateSession(ctx, f.instructor, f.batch.Name, day)
		require.NoError(t, err)
		assert.Equal(t, first.Name, second.Name)
		assert.Len(t, second.Records, 2)
	})

	t.Run("sheet", func(t *testing.T) {
		first, err := f.svc.GetOrCreateSheet(ctx, f.instructor, f.batch.Name)
		require.NoError(t, err)

		second, err := late.GetOrCreateSheet(ctx, f.instructor, f.batch.Name)
		require.NoError(t, err)
		assert.Equal(t, first.Name, second.Name)
		assert.Len(t, second.Rows, 2)
	})
}
