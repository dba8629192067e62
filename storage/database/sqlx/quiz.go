package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-lms/core/quiz"
)

type quizRow struct {
	Name           string    `db:"name"`
	Title          string    `db:"title"`
	AvailableFrom  null.Time `db:"available_from"`
	AvailableUntil null.Time `db:"available_until"`
}

func toQuizRow(q quiz.Quiz) quizRow {
	return quizRow{
		Name:           q.Name,
		Title:          q.Title,
		AvailableFrom:  null.TimeFromPtr(q.AvailableFrom),
		AvailableUntil: null.TimeFromPtr(q.AvailableUntil),
	}
}

func (r quizRow) quiz() quiz.Quiz {
	return quiz.Quiz{
		Name:           r.Name,
		Title:          r.Title,
		AvailableFrom:  r.AvailableFrom.Ptr(),
		AvailableUntil: r.AvailableUntil.Ptr(),
	}
}

type quizRepository struct {
	db *sqlx.DB
}

var _ quiz.Repository = (*quizRepository)(nil)

func NewQuizRepository(db *sqlx.DB) quiz.Repository {
	return &quizRepository{db: db}
}

func (repo *quizRepository) CreateQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	stmt := `INSERT INTO quiz (name, title, available_from, available_until)
		VALUES (:name, :title, :available_from, :available_until)`
	if _, err := repo.db.NamedExecContext(ctx, stmt, toQuizRow(q)); err != nil {
		if isUniqueViolation(err) {
			return quiz.Quiz{}, quiz.ErrExists
		}
		return quiz.Quiz{}, errors.Wrap(err, "inserting quiz")
	}
	return q, nil
}

func (repo *quizRepository) UpdateQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	stmt := `UPDATE quiz SET title = :title, available_from = :available_from, available_until = :available_until
		WHERE name = :name`
	res, err := repo.db.NamedExecContext(ctx, stmt, toQuizRow(q))
	if err = mustAffect(res, err, quiz.ErrNotFound); err != nil {
		return quiz.Quiz{}, err
	}
	return q, nil
}

func (repo *quizRepository) GetQuiz(ctx context.Context, name string) (quiz.Quiz, error) {
	var r quizRow
	q := `SELECT name, title, available_from, available_until FROM quiz WHERE name = $1`
	if err := repo.db.GetContext(ctx, &r, q, name); err != nil {
		return quiz.Quiz{}, getOr(err, quiz.ErrNotFound)
	}
	return r.quiz(), nil
}
