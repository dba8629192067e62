package inmemdb

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/batch"
)

type batchTables struct {
	mutex       sync.RWMutex
	batches     map[string]*batch.Batch
	instructors map[batch.CourseInstructor]bool
	enrollments map[string]*batch.Enrollment
}

type batchRepository struct {
	db *batchTables
}

var _ batch.Repository = (*batchRepository)(nil)

func NewBatchRepository(db *DB) batch.Repository {
	return &batchRepository{db: db.batch}
}

func (repo *batchRepository) CreateBatch(_ context.Context, b batch.Batch) (batch.Batch, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.batches[b.Name]; ok {
		return batch.Batch{}, batch.ErrExists
	}
	repo.db.batches[b.Name] = &b
	return b, nil
}

func (repo *batchRepository) GetBatch(_ context.Context, name string) (batch.Batch, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if b, ok := repo.db.batches[name]; ok {
		return *b, nil
	}
	return batch.Batch{}, batch.ErrNotFound
}

func (repo *batchRepository) query(keep func(b batch.Batch) bool) []batch.Batch {
	batches := make([]batch.Batch, 0)
	for _, b := range repo.db.batches {
		if keep(*b) {
			batches = append(batches, *b)
		}
	}
	sort.Slice(batches, func(i, j int) bool {
		if batches[i].StartDate.Equal(batches[j].StartDate) {
			return batches[i].Name < batches[j].Name
		}
		return batches[i].StartDate.Before(batches[j].StartDate)
	})
	return batches
}

func (repo *batchRepository) QueryActiveBatches(_ context.Context, day core.Date, instructor string) ([]batch.Batch, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return repo.query(func(b batch.Batch) bool {
		if !b.IsActive(day) {
			return false
		}
		return instructor == "" || repo.db.instructors[batch.CourseInstructor{Batch: b.Name, Instructor: instructor}]
	}), nil
}

func (repo *batchRepository) QueryInstructorBatches(_ context.Context, instructor string) ([]batch.Batch, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return repo.query(func(b batch.Batch) bool {
		return repo.db.instructors[batch.CourseInstructor{Batch: b.Name, Instructor: instructor}]
	}), nil
}

func (repo *batchRepository) IsInstructor(_ context.Context, batchName, instructor string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.instructors[batch.CourseInstructor{Batch: batchName, Instructor: instructor}], nil
}

func (repo *batchRepository) AddInstructor(_ context.Context, ci batch.CourseInstructor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.batches[ci.Batch]; !ok {
		return batch.ErrNotFound
	}
	repo.db.instructors[ci] = true
	return nil
}

func (repo *batchRepository) QueryEnrollments(_ context.Context, batchName string) ([]batch.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	enrollments := make([]batch.Enrollment, 0)
	for _, e := range repo.db.enrollments {
		if e.Batch == batchName {
			enrollments = append(enrollments, *e)
		}
	}
	sort.Slice(enrollments, func(i, j int) bool {
		if enrollments[i].MemberName == enrollments[j].MemberName {
			return enrollments[i].Name < enrollments[j].Name
		}
		return enrollments[i].MemberName < enrollments[j].MemberName
	})
	return enrollments, nil
}

func (repo *batchRepository) CreateEnrollment(_ context.Context, e batch.Enrollment) (batch.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.batches[e.Batch]; !ok {
		return batch.Enrollment{}, batch.ErrNotFound
	}
	for _, existing := range repo.db.enrollments {
		if existing.Batch == e.Batch && existing.Member == e.Member {
			return batch.Enrollment{}, batch.ErrAlreadyEnrolled
		}
	}
	e.Name = uuid.NewString()
	repo.db.enrollments[e.Name] = &e
	return e, nil
}
