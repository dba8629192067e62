package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/attendance"
)

type (
	sessionRow struct {
		Name        string         `db:"name"`
		Batch       string         `db:"batch"`
		SessionDate core.Date      `db:"session_date"`
		Status      string         `db:"status"`
		DocStatus   core.DocStatus `db:"docstatus"`
		Notes       string         `db:"notes"`
	}

	recordRow struct {
		Name         string            `db:"name"`
		Session      string            `db:"session"`
		Idx          int               `db:"idx"`
		Enrollment   string            `db:"enrollment"`
		Student      string            `db:"student"`
		StudentName  string            `db:"student_name"`
		Status       attendance.Status `db:"status"`
		ExcuseReason string            `db:"excuse_reason"`
		Notes        string            `db:"notes"`
	}

	sheetRow struct {
		Name      string         `db:"name"`
		Batch     string         `db:"batch"`
		Status    string         `db:"status"`
		DocStatus core.DocStatus `db:"docstatus"`
		StartDate core.Date      `db:"start_date"`
		EndDate   core.Date      `db:"end_date"`
		Timezone  string         `db:"timezone"`
		Notes     string         `db:"notes"`
	}

	entryRow struct {
		Name           string            `db:"name"`
		Sheet          string            `db:"sheet"`
		AttendanceDate core.Date         `db:"attendance_date"`
		WeekIndex      int               `db:"week_index"`
		WeekLabel      string            `db:"week_label"`
		WeekdayName    string            `db:"weekday_name"`
		Enrollment     string            `db:"enrollment"`
		Student        string            `db:"student"`
		StudentName    string            `db:"student_name"`
		Status         attendance.Status `db:"status"`
		ExcuseReason   string            `db:"excuse_reason"`
		Notes          string            `db:"notes"`
	}
)

func (r sessionRow) session() attendance.Session {
	return attendance.Session{
		Name:        r.Name,
		Batch:       r.Batch,
		SessionDate: r.SessionDate,
		Status:      r.Status,
		DocStatus:   r.DocStatus,
		Notes:       r.Notes,
	}
}

func (r sheetRow) sheet() attendance.Sheet {
	return attendance.Sheet{
		Name:      r.Name,
		Batch:     r.Batch,
		Status:    r.Status,
		DocStatus: r.DocStatus,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		Timezone:  r.Timezone,
		Notes:     r.Notes,
	}
}

const (
	sessionColumns = `name, batch, session_date, status, docstatus, notes`
	recordColumns  = `name, session, idx, enrollment, student, student_name, status, excuse_reason, notes`
	sheetColumns   = `name, batch, status, docstatus, start_date, end_date, timezone, notes`
	entryColumns   = `name, sheet, attendance_date, week_index, week_label, weekday_name, enrollment, student, student_name, status, excuse_reason, notes`
)

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) GetSessionByDate(ctx context.Context, batchName string, day core.Date) (attendance.Session, error) {
	var r sessionRow
	q := `SELECT ` + sessionColumns + ` FROM attendance_session WHERE batch = $1 AND session_date = $2`
	if err := repo.db.GetContext(ctx, &r, q, batchName, day); err != nil {
		return attendance.Session{}, getOr(err, attendance.ErrSessionNotFound)
	}
	return r.session(), nil
}

func (repo *attendanceRepository) records(ctx context.Context, orderBy string, sessions ...string) (map[string][]attendance.Record, error) {
	var rows []recordRow
	q, args, err := sqlx.In(`SELECT `+recordColumns+` FROM attendance_record WHERE session IN (?) ORDER BY `+orderBy, sessions)
	if err != nil {
		return nil, err
	}
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}
	bySession := make(map[string][]attendance.Record, len(sessions))
	for _, r := range rows {
		bySession[r.Session] = append(bySession[r.Session], attendance.Record(r))
	}
	return bySession, nil
}

func (repo *attendanceRepository) GetSession(ctx context.Context, name string) (attendance.Session, error) {
	if _, err := uuid.Parse(name); err != nil {
		return attendance.Session{}, attendance.ErrSessionNotFound
	}
	var r sessionRow
	if err := repo.db.GetContext(ctx, &r, `SELECT `+sessionColumns+` FROM attendance_session WHERE name = $1`, name); err != nil {
		return attendance.Session{}, getOr(err, attendance.ErrSessionNotFound)
	}
	records, err := repo.records(ctx, "idx", name)
	if err != nil {
		return attendance.Session{}, err
	}
	s := r.session()
	s.Records = append(make([]attendance.Record, 0), records[name]...)
	return s, nil
}

func (repo *attendanceRepository) CreateSession(ctx context.Context, s attendance.Session) (attendance.Session, error) {
	s.Name = uuid.NewString()
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `INSERT INTO attendance_session (` + sessionColumns + `)
			VALUES (:name, :batch, :session_date, :status, :docstatus, :notes)`
		row := sessionRow{s.Name, s.Batch, s.SessionDate, s.Status, s.DocStatus, s.Notes}
		if _, err := tx.NamedExecContext(ctx, q, row); err != nil {
			if isUniqueViolation(err) {
				return attendance.ErrSessionExists
			}
			return errors.Wrap(err, "inserting attendance session")
		}

		stmt, err := tx.PrepareNamedContext(ctx, `INSERT INTO attendance_record (`+recordColumns+`)
			VALUES (:name, :session, :idx, :enrollment, :student, :student_name, :status, :excuse_reason, :notes)`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()
		for i := range s.Records {
			s.Records[i].Name = uuid.NewString()
			s.Records[i].Session = s.Name
			if _, err := stmt.ExecContext(ctx, recordRow(s.Records[i])); err != nil {
				return errors.Wrap(err, "inserting attendance record")
			}
		}
		return nil
	})
	if err != nil {
		return attendance.Session{}, err
	}
	return s, nil
}

func (repo *attendanceRepository) SetSessionState(ctx context.Context, name string, docStatus core.DocStatus, status string) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE attendance_session SET docstatus = $2, status = $3 WHERE name = $1`, name, docStatus, status)
	return mustAffect(res, err, attendance.ErrSessionNotFound)
}

func (repo *attendanceRepository) QuerySessions(ctx context.Context, batchName string, from, to core.Date) ([]attendance.Session, error) {
	var rows []sessionRow
	q := `SELECT ` + sessionColumns + ` FROM attendance_session
		WHERE batch = $1 AND session_date BETWEEN $2 AND $3
		ORDER BY session_date`
	if err := repo.db.SelectContext(ctx, &rows, q, batchName, from, to); err != nil {
		return nil, errors.Wrap(err, "querying attendance sessions")
	}
	sessions := make([]attendance.Session, 0, len(rows))
	if len(rows) == 0 {
		return sessions, nil
	}

	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.Name)
	}
	records, err := repo.records(ctx, "student_name, idx", names...)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		s := r.session()
		s.Records = append(make([]attendance.Record, 0), records[r.Name]...)
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func (repo *attendanceRepository) GetRecord(ctx context.Context, name string) (attendance.Record, error) {
	if _, err := uuid.Parse(name); err != nil {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	var r recordRow
	if err := repo.db.GetContext(ctx, &r, `SELECT `+recordColumns+` FROM attendance_record WHERE name = $1`, name); err != nil {
		return attendance.Record{}, getOr(err, attendance.ErrRecordNotFound)
	}
	return attendance.Record(r), nil
}

func (repo *attendanceRepository) UpdateRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	var r recordRow
	q := `UPDATE attendance_record SET status = $2, excuse_reason = $3, notes = $4
		WHERE name = $1 RETURNING ` + recordColumns
	if err := repo.db.GetContext(ctx, &r, q, rec.Name, rec.Status, rec.ExcuseReason, rec.Notes); err != nil {
		return attendance.Record{}, getOr(err, attendance.ErrRecordNotFound)
	}
	return attendance.Record(r), nil
}

func (repo *attendanceRepository) GetSheetByBatch(ctx context.Context, batchName string) (attendance.Sheet, error) {
	var r sheetRow
	if err := repo.db.GetContext(ctx, &r, `SELECT `+sheetColumns+` FROM attendance_sheet WHERE batch = $1`, batchName); err != nil {
		return attendance.Sheet{}, getOr(err, attendance.ErrSheetNotFound)
	}
	return r.sheet(), nil
}

func (repo *attendanceRepository) GetSheet(ctx context.Context, name string) (attendance.Sheet, error) {
	if _, err := uuid.Parse(name); err != nil {
		return attendance.Sheet{}, attendance.ErrSheetNotFound
	}
	var r sheetRow
	if err := repo.db.GetContext(ctx, &r, `SELECT `+sheetColumns+` FROM attendance_sheet WHERE name = $1`, name); err != nil {
		return attendance.Sheet{}, getOr(err, attendance.ErrSheetNotFound)
	}

	var rows []entryRow
	q := `SELECT ` + entryColumns + ` FROM attendance_entry WHERE sheet = $1 ORDER BY attendance_date, student_name`
	if err := repo.db.SelectContext(ctx, &rows, q, name); err != nil {
		return attendance.Sheet{}, errors.Wrap(err, "querying attendance entries")
	}
	sh := r.sheet()
	sh.Entries = make([]attendance.Entry, 0, len(rows))
	for _, e := range rows {
		sh.Entries = append(sh.Entries, attendance.Entry(e))
	}
	return sh, nil
}

func insertEntries(ctx context.Context, tx *sqlx.Tx, sheet string, entries []attendance.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	stmt, err := tx.PrepareNamedContext(ctx, `INSERT INTO attendance_entry (`+entryColumns+`)
		VALUES (:name, :sheet, :attendance_date, :week_index, :week_label, :weekday_name,
		:enrollment, :student, :student_name, :status, :excuse_reason, :notes)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for i := range entries {
		entries[i].Name = uuid.NewString()
		entries[i].Sheet = sheet
		if _, err := stmt.ExecContext(ctx, entryRow(entries[i])); err != nil {
			return errors.Wrap(err, "inserting attendance entry")
		}
	}
	return nil
}

func (repo *attendanceRepository) CreateSheet(ctx context.Context, sh attendance.Sheet) (attendance.Sheet, error) {
	sh.Name = uuid.NewString()
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `INSERT INTO attendance_sheet (` + sheetColumns + `)
			VALUES (:name, :batch, :status, :docstatus, :start_date, :end_date, :timezone, :notes)`
		row := sheetRow{sh.Name, sh.Batch, sh.Status, sh.DocStatus, sh.StartDate, sh.EndDate, sh.Timezone, sh.Notes}
		if _, err := tx.NamedExecContext(ctx, q, row); err != nil {
			if isUniqueViolation(err) {
				return attendance.ErrSheetExists
			}
			return errors.Wrap(err, "inserting attendance sheet")
		}
		return insertEntries(ctx, tx, sh.Name, sh.Entries)
	})
	if err != nil {
		return attendance.Sheet{}, err
	}
	return sh, nil
}

func (repo *attendanceRepository) UpdateSheet(ctx context.Context, sh attendance.Sheet) error {
	q := `UPDATE attendance_sheet SET status = :status, docstatus = :docstatus, start_date = :start_date,
		end_date = :end_date, timezone = :timezone, notes = :notes
		WHERE name = :name`
	row := sheetRow{sh.Name, sh.Batch, sh.Status, sh.DocStatus, sh.StartDate, sh.EndDate, sh.Timezone, sh.Notes}
	res, err := repo.db.NamedExecContext(ctx, q, row)
	return mustAffect(res, err, attendance.ErrSheetNotFound)
}

func (repo *attendanceRepository) AddEntries(ctx context.Context, sheet string, entries []attendance.Entry) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var found bool
		if err := tx.GetContext(ctx, &found, `SELECT EXISTS (SELECT 1 FROM attendance_sheet WHERE name = $1)`, sheet); err != nil {
			return err
		}
		if !found {
			return attendance.ErrSheetNotFound
		}
		return insertEntries(ctx, tx, sheet, append([]attendance.Entry(nil), entries...))
	})
}

func (repo *attendanceRepository) GetEntry(ctx context.Context, name string) (attendance.Entry, error) {
	if _, err := uuid.Parse(name); err != nil {
		return attendance.Entry{}, attendance.ErrEntryNotFound
	}
	var r entryRow
	if err := repo.db.GetContext(ctx, &r, `SELECT `+entryColumns+` FROM attendance_entry WHERE name = $1`, name); err != nil {
		return attendance.Entry{}, getOr(err, attendance.ErrEntryNotFound)
	}
	return attendance.Entry(r), nil
}

func (repo *attendanceRepository) UpdateEntry(ctx context.Context, e attendance.Entry) (attendance.Entry, error) {
	var r entryRow
	q := `UPDATE attendance_entry SET status = $2, excuse_reason = $3, notes = $4
		WHERE name = $1 RETURNING ` + entryColumns
	if err := repo.db.GetContext(ctx, &r, q, e.Name, e.Status, e.ExcuseReason, e.Notes); err != nil {
		return attendance.Entry{}, getOr(err, attendance.ErrEntryNotFound)
	}
	return attendance.Entry(r), nil
}
