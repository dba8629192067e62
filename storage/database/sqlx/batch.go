package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/batch"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}

type batchRow struct {
	Name      string    `db:"name"`
	Title     string    `db:"title"`
	StartDate core.Date `db:"start_date"`
	EndDate   core.Date `db:"end_date"`
	Timezone  string    `db:"timezone"`
	Published bool      `db:"published"`
}

func (r batchRow) batch() batch.Batch { return batch.Batch(r) }

type enrollmentRow struct {
	Name       string `db:"name"`
	Batch      string `db:"batch"`
	Member     string `db:"member"`
	MemberName string `db:"member_name"`
}

const batchColumns = `b.name, b.title, b.start_date, b.end_date, b.timezone, b.published`

type batchRepository struct {
	db *sqlx.DB
}

var _ batch.Repository = (*batchRepository)(nil)

func NewBatchRepository(db *sqlx.DB) batch.Repository {
	return &batchRepository{db: db}
}

func (repo *batchRepository) CreateBatch(ctx context.Context, b batch.Batch) (batch.Batch, error) {
	q := `INSERT INTO batch (name, title, start_date, end_date, timezone, published)
		VALUES (:name, :title, :start_date, :end_date, :timezone, :published)`
	if _, err := repo.db.NamedExecContext(ctx, q, batchRow(b)); err != nil {
		if isUniqueViolation(err) {
			return batch.Batch{}, batch.ErrExists
		}
		return batch.Batch{}, errors.Wrap(err, "inserting batch")
	}
	return b, nil
}

func (repo *batchRepository) GetBatch(ctx context.Context, name string) (batch.Batch, error) {
	var r batchRow
	if err := repo.db.GetContext(ctx, &r, `SELECT `+batchColumns+` FROM batch b WHERE b.name = $1`, name); err != nil {
		return batch.Batch{}, getOr(err, batch.ErrNotFound)
	}
	return r.batch(), nil
}

func (repo *batchRepository) selectBatches(ctx context.Context, q string, args ...interface{}) ([]batch.Batch, error) {
	var rows []batchRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying batches")
	}
	batches := make([]batch.Batch, 0, len(rows))
	for _, r := range rows {
		batches = append(batches, r.batch())
	}
	return batches, nil
}

func (repo *batchRepository) QueryActiveBatches(ctx context.Context, day core.Date, instructor string) ([]batch.Batch, error) {
	q := `SELECT ` + batchColumns + ` FROM batch b
		WHERE b.published AND b.start_date <= $1 AND (b.end_date IS NULL OR b.end_date >= $1)`
	args := []interface{}{day}
	if instructor != "" {
		if _, err := uuid.Parse(instructor); err != nil {
			return []batch.Batch{}, nil
		}
		q += ` AND EXISTS (SELECT 1 FROM course_instructor ci WHERE ci.batch = b.name AND ci.instructor = $2)`
		args = append(args, instructor)
	}
	return repo.selectBatches(ctx, q+` ORDER BY b.start_date, b.name`, args...)
}

func (repo *batchRepository) QueryInstructorBatches(ctx context.Context, instructor string) ([]batch.Batch, error) {
	if _, err := uuid.Parse(instructor); err != nil {
		return []batch.Batch{}, nil
	}
	q := `SELECT ` + batchColumns + ` FROM batch b
		JOIN course_instructor ci ON ci.batch = b.name
		WHERE ci.instructor = $1
		ORDER BY b.start_date, b.name`
	return repo.selectBatches(ctx, q, instructor)
}

func (repo *batchRepository) IsInstructor(ctx context.Context, batchName, instructor string) (bool, error) {
	if _, err := uuid.Parse(instructor); err != nil {
		return false, nil
	}
	var found bool
	q := `SELECT EXISTS (SELECT 1 FROM course_instructor WHERE batch = $1 AND instructor = $2)`
	err := repo.db.GetContext(ctx, &found, q, batchName, instructor)
	return found, errors.Wrap(err, "checking course instructor")
}

func (repo *batchRepository) AddInstructor(ctx context.Context, ci batch.CourseInstructor) error {
	q := `INSERT INTO course_instructor (batch, instructor) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	_, err := repo.db.ExecContext(ctx, q, ci.Batch, ci.Instructor)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "foreign_key_violation" {
		return batch.ErrNotFound
	}
	return errors.Wrap(err, "inserting course instructor")
}

func (repo *batchRepository) QueryEnrollments(ctx context.Context, batchName string) ([]batch.Enrollment, error) {
	var rows []enrollmentRow
	q := `SELECT name, batch, member, member_name FROM enrollment WHERE batch = $1 ORDER BY member_name, name`
	if err := repo.db.SelectContext(ctx, &rows, q, batchName); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrollments := make([]batch.Enrollment, 0, len(rows))
	for _, r := range rows {
		enrollments = append(enrollments, batch.Enrollment(r))
	}
	return enrollments, nil
}

func (repo *batchRepository) CreateEnrollment(ctx context.Context, e batch.Enrollment) (batch.Enrollment, error) {
	e.Name = uuid.NewString()
	q := `INSERT INTO enrollment (name, batch, member, member_name) VALUES (:name, :batch, :member, :member_name)`
	if _, err := repo.db.NamedExecContext(ctx, q, enrollmentRow(e)); err != nil {
		if isUniqueViolation(err) {
			return batch.Enrollment{}, batch.ErrAlreadyEnrolled
		}
		return batch.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return e, nil
}
