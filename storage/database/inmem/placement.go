package inmemdb

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/masomo-lms/core/placement"
)

type placementTables struct {
	mutex       sync.RWMutex
	questions   map[string]*placement.Question
	tests       map[string]*placement.Test
	submissions map[string]*placement.Submission
}

type placementRepository struct {
	db *placementTables
}

var _ placement.Repository = (*placementRepository)(nil)

func NewPlacementRepository(db *DB) placement.Repository {
	return &placementRepository{db: db.placement}
}

func (repo *placementRepository) CreateQuestion(_ context.Context, q placement.Question) (placement.Question, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	q.Name = uuid.NewString()
	stored := q
	repo.db.questions[q.Name] = &stored
	return q, nil
}

func (repo *placementRepository) UpdateQuestion(_ context.Context, q placement.Question) (placement.Question, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.questions[q.Name]; !ok {
		return placement.Question{}, placement.ErrQuestionNotFound
	}
	stored := q
	repo.db.questions[q.Name] = &stored
	return q, nil
}

func (repo *placementRepository) GetQuestion(_ context.Context, name string) (placement.Question, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if q, ok := repo.db.questions[name]; ok {
		return *q, nil
	}
	return placement.Question{}, placement.ErrQuestionNotFound
}

func (repo *placementRepository) FindQuestionByText(_ context.Context, text string) (placement.Question, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, q := range repo.db.questions {
		if q.Question == text {
			return *q, nil
		}
	}
	return placement.Question{}, placement.ErrQuestionNotFound
}

func (repo *placementRepository) GetQuestions(_ context.Context, names []string) ([]placement.Question, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	questions := make([]placement.Question, 0, len(names))
	for _, name := range names {
		if q, ok := repo.db.questions[name]; ok {
			questions = append(questions, *q)
		}
	}
	return questions, nil
}

func (repo *placementRepository) CreateTest(_ context.Context, t placement.Test) (placement.Test, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if t.Name == "" {
		t.Name = uuid.NewString()
	} else if _, ok := repo.db.tests[t.Name]; ok {
		return placement.Test{}, placement.ErrTestExists
	}
	stored := t
	repo.db.tests[t.Name] = &stored
	return t, nil
}

func (repo *placementRepository) UpdateTest(_ context.Context, t placement.Test) (placement.Test, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tests[t.Name]; !ok {
		return placement.Test{}, placement.ErrTestNotFound
	}
	stored := t
	repo.db.tests[t.Name] = &stored
	return t, nil
}

func (repo *placementRepository) GetTest(_ context.Context, name string) (placement.Test, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if t, ok := repo.db.tests[name]; ok {
		return *t, nil
	}
	return placement.Test{}, placement.ErrTestNotFound
}

func (repo *placementRepository) QueryTests(_ context.Context, activeOnly bool) ([]placement.Test, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	tests := make([]placement.Test, 0, len(repo.db.tests))
	for _, t := range repo.db.tests {
		if activeOnly && !t.IsActive {
			continue
		}
		tests = append(tests, *t)
	}
	sort.Slice(tests, func(i, j int) bool { return tests[i].Modified.After(tests[j].Modified) })
	return tests, nil
}

func (repo *placementRepository) QueryTestsByQuestion(_ context.Context, question string) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	names := make([]string, 0)
	for _, t := range repo.db.tests {
		for _, q := range t.Questions {
			if q == question {
				names = append(names, t.Name)
				break
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

func (repo *placementRepository) CreateSubmission(_ context.Context, s placement.Submission) (placement.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tests[s.Test]; !ok {
		return placement.Submission{}, placement.ErrTestNotFound
	}
	s.Name = uuid.NewString()
	stored := s
	repo.db.submissions[s.Name] = &stored
	return s, nil
}

func (repo *placementRepository) GetSubmission(_ context.Context, name string) (placement.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.submissions[name]; ok {
		return *s, nil
	}
	return placement.Submission{}, placement.ErrSubmissionNotFound
}

func (repo *placementRepository) UpdateSubmission(_ context.Context, s placement.Submission) (placement.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.submissions[s.Name]; !ok {
		return placement.Submission{}, placement.ErrSubmissionNotFound
	}
	stored := s
	repo.db.submissions[s.Name] = &stored
	return s, nil
}

func (repo *placementRepository) QuerySubmissions(_ context.Context, filter placement.SubmissionFilter) ([]placement.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	search := strings.ToLower(filter.Search)
	subs := make([]placement.Submission, 0)
	for _, s := range repo.db.submissions {
		if filter.Test != "" && s.Test != filter.Test {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(s.FullName), search) && !strings.Contains(s.Email, search) {
			continue
		}
		subs = append(subs, *s)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].StartTime.After(subs[j].StartTime) })
	return subs, nil
}

func (repo *placementRepository) ExpireSubmissions(_ context.Context, now time.Time) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var expired int
	for _, s := range repo.db.submissions {
		if s.DocStatus.IsDraft() && s.HasExpired(now) {
			s.Status = placement.StatusExpired
			expired++
		}
	}
	return expired, nil
}
