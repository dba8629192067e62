package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/grading"
)

type (
	gradeSheetRow struct {
		Name       string         `db:"name"`
		Batch      string         `db:"batch"`
		Instructor string         `db:"instructor"`
		DocStatus  core.DocStatus `db:"docstatus"`
	}

	gradeRecordRow struct {
		Name                    string       `db:"name"`
		Sheet                   string       `db:"sheet"`
		Idx                     int          `db:"idx"`
		Student                 null.String  `db:"student"`
		StudentName             string       `db:"student_name"`
		Attendance              null.Float64 `db:"attendance"`
		Participation           null.Float64 `db:"participation"`
		Assignments             null.Float64 `db:"assignments"`
		Speaking                null.Float64 `db:"speaking"`
		Writing                 null.Float64 `db:"writing"`
		CommunicativeCompetence null.Float64 `db:"communicative_competence"`
		FinalOral               null.Float64 `db:"final_oral"`
		Exam                    null.Float64 `db:"exam"`
		Total                   float64      `db:"total"`
	}
)

func toGradeRecordRow(sheet string, r grading.Record) gradeRecordRow {
	return gradeRecordRow{
		Name:                    r.Name,
		Sheet:                   sheet,
		Idx:                     r.Idx,
		Student:                 null.NewString(r.Student, r.Student != ""),
		StudentName:             r.StudentName,
		Attendance:              null.Float64FromPtr(r.Attendance),
		Participation:           null.Float64FromPtr(r.Participation),
		Assignments:             null.Float64FromPtr(r.Assignments),
		Speaking:                null.Float64FromPtr(r.Speaking),
		Writing:                 null.Float64FromPtr(r.Writing),
		CommunicativeCompetence: null.Float64FromPtr(r.CommunicativeCompetence),
		FinalOral:               null.Float64FromPtr(r.FinalOral),
		Exam:                    null.Float64FromPtr(r.Exam),
		Total:                   r.Total,
	}
}

func (r gradeRecordRow) record() grading.Record {
	return grading.Record{
		Name:                    r.Name,
		Idx:                     r.Idx,
		Student:                 r.Student.String,
		StudentName:             r.StudentName,
		Attendance:              r.Attendance.Ptr(),
		Participation:           r.Participation.Ptr(),
		Assignments:             r.Assignments.Ptr(),
		Speaking:                r.Speaking.Ptr(),
		Writing:                 r.Writing.Ptr(),
		CommunicativeCompetence: r.CommunicativeCompetence.Ptr(),
		FinalOral:               r.FinalOral.Ptr(),
		Exam:                    r.Exam.Ptr(),
		Total:                   r.Total,
	}
}

const (
	gradeSheetColumns  = `name, batch, instructor, docstatus`
	gradeRecordColumns = `name, sheet, idx, student, student_name, attendance, participation, assignments,
		speaking, writing, communicative_competence, final_oral, exam, total`
)

type gradingRepository struct {
	db *sqlx.DB
}

var _ grading.Repository = (*gradingRepository)(nil)

func NewGradingRepository(db *sqlx.DB) grading.Repository {
	return &gradingRepository{db: db}
}

func (repo *gradingRepository) withRecords(ctx context.Context, q sqlx.QueryerContext, r gradeSheetRow) (grading.Sheet, error) {
	var rows []gradeRecordRow
	if err := sqlx.SelectContext(ctx, q, &rows, `SELECT `+gradeRecordColumns+` FROM grade_record WHERE sheet = $1 ORDER BY idx`, r.Name); err != nil {
		return grading.Sheet{}, errors.Wrap(err, "querying grade records")
	}
	sh := grading.Sheet{Name: r.Name, Batch: r.Batch, Instructor: r.Instructor, DocStatus: r.DocStatus}
	sh.Records = make([]grading.Record, 0, len(rows))
	for _, rec := range rows {
		sh.Records = append(sh.Records, rec.record())
	}
	return sh, nil
}

func (repo *gradingRepository) FindSheet(ctx context.Context, batchName, instructor string) (grading.Sheet, error) {
	if _, err := uuid.Parse(instructor); err != nil {
		return grading.Sheet{}, grading.ErrNotFound
	}
	var r gradeSheetRow
	q := `SELECT ` + gradeSheetColumns + ` FROM grade_sheet
		WHERE batch = $1 AND instructor = $2 AND docstatus <> $3
		ORDER BY docstatus LIMIT 1`
	if err := repo.db.GetContext(ctx, &r, q, batchName, instructor, core.DocCancelled); err != nil {
		return grading.Sheet{}, getOr(err, grading.ErrNotFound)
	}
	return repo.withRecords(ctx, repo.db, r)
}

func (repo *gradingRepository) GetSheet(ctx context.Context, name string) (grading.Sheet, error) {
	if _, err := uuid.Parse(name); err != nil {
		return grading.Sheet{}, grading.ErrNotFound
	}
	var r gradeSheetRow
	if err := repo.db.GetContext(ctx, &r, `SELECT `+gradeSheetColumns+` FROM grade_sheet WHERE name = $1`, name); err != nil {
		return grading.Sheet{}, getOr(err, grading.ErrNotFound)
	}
	return repo.withRecords(ctx, repo.db, r)
}

func insertGradeRecords(ctx context.Context, tx *sqlx.Tx, sheet string, records []grading.Record) error {
	if len(records) == 0 {
		return nil
	}
	stmt, err := tx.PrepareNamedContext(ctx, `INSERT INTO grade_record (`+gradeRecordColumns+`)
		VALUES (:name, :sheet, :idx, :student, :student_name, :attendance, :participation, :assignments,
		:speaking, :writing, :communicative_competence, :final_oral, :exam, :total)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for i := range records {
		if records[i].Name == "" {
			records[i].Name = uuid.NewString()
		}
		records[i].Idx = i + 1
		if _, err := stmt.ExecContext(ctx, toGradeRecordRow(sheet, records[i])); err != nil {
			return errors.Wrap(err, "inserting grade record")
		}
	}
	return nil
}

func (repo *gradingRepository) CreateSheet(ctx context.Context, sh grading.Sheet) (grading.Sheet, error) {
	sh.Name = uuid.NewString()
	sh.Records = append([]grading.Record(nil), sh.Records...)
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `INSERT INTO grade_sheet (` + gradeSheetColumns + `) VALUES (:name, :batch, :instructor, :docstatus)`
		row := gradeSheetRow{sh.Name, sh.Batch, sh.Instructor, sh.DocStatus}
		if _, err := tx.NamedExecContext(ctx, q, row); err != nil {
			return errors.Wrap(err, "inserting grade sheet")
		}
		return insertGradeRecords(ctx, tx, sh.Name, sh.Records)
	})
	if err != nil {
		return grading.Sheet{}, err
	}
	return sh, nil
}

func (repo *gradingRepository) UpdateSheet(ctx context.Context, sh grading.Sheet) (grading.Sheet, error) {
	if _, err := uuid.Parse(sh.Name); err != nil {
		return grading.Sheet{}, grading.ErrNotFound
	}
	var saved grading.Sheet
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE grade_sheet SET docstatus = $2 WHERE name = $1`, sh.Name, sh.DocStatus)
		if err = mustAffect(res, err, grading.ErrNotFound); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM grade_record WHERE sheet = $1`, sh.Name); err != nil {
			return errors.Wrap(err, "deleting grade records")
		}
		if err = insertGradeRecords(ctx, tx, sh.Name, append([]grading.Record(nil), sh.Records...)); err != nil {
			return err
		}

		var r gradeSheetRow
		if err = tx.GetContext(ctx, &r, `SELECT `+gradeSheetColumns+` FROM grade_sheet WHERE name = $1`, sh.Name); err != nil {
			return err
		}
		saved, err = repo.withRecords(ctx, tx, r)
		return err
	})
	if err != nil {
		return grading.Sheet{}, err
	}
	return saved, nil
}
