package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/masomo-lms/core/quiz"
)

type quizTable struct {
	mutex sync.RWMutex
	table map[string]*quiz.Quiz
}

type quizRepository struct {
	db *quizTable
}

var _ quiz.Repository = (*quizRepository)(nil)

func NewQuizRepository(db *DB) quiz.Repository {
	return &quizRepository{db: db.quiz}
}

func (repo *quizRepository) CreateQuiz(_ context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[q.Name]; ok {
		return quiz.Quiz{}, quiz.ErrExists
	}
	stored := q
	repo.db.table[q.Name] = &stored
	return q, nil
}

func (repo *quizRepository) UpdateQuiz(_ context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[q.Name]; !ok {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	stored := q
	repo.db.table[q.Name] = &stored
	return q, nil
}

func (repo *quizRepository) GetQuiz(_ context.Context, name string) (quiz.Quiz, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if q, ok := repo.db.table[name]; ok {
		return *q, nil
	}
	return quiz.Quiz{}, quiz.ErrNotFound
}
