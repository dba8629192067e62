package inmemdb

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/grading"
)

type gradingTable struct {
	mutex sync.RWMutex
	table map[string]*grading.Sheet
}

type gradingRepository struct {
	db *gradingTable
}

var _ grading.Repository = (*gradingRepository)(nil)

func NewGradingRepository(db *DB) grading.Repository {
	return &gradingRepository{db: db.grading}
}

func copySheet(sh grading.Sheet) grading.Sheet {
	records := make([]grading.Record, len(sh.Records))
	copy(records, sh.Records)
	sh.Records = records
	return sh
}

func (repo *gradingRepository) FindSheet(_ context.Context, batchName, instructor string) (grading.Sheet, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, sh := range repo.db.table {
		if sh.Batch == batchName && sh.Instructor == instructor && sh.DocStatus != core.DocCancelled {
			return copySheet(*sh), nil
		}
	}
	return grading.Sheet{}, grading.ErrNotFound
}

func (repo *gradingRepository) GetSheet(_ context.Context, name string) (grading.Sheet, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sh, ok := repo.db.table[name]; ok {
		return copySheet(*sh), nil
	}
	return grading.Sheet{}, grading.ErrNotFound
}

func nameRecords(sh *grading.Sheet) {
	for i := range sh.Records {
		if sh.Records[i].Name == "" {
			sh.Records[i].Name = uuid.NewString()
		}
	}
}

func (repo *gradingRepository) CreateSheet(_ context.Context, sh grading.Sheet) (grading.Sheet, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sh = copySheet(sh)
	sh.Name = uuid.NewString()
	nameRecords(&sh)
	stored := copySheet(sh)
	repo.db.table[sh.Name] = &stored
	return sh, nil
}

func (repo *gradingRepository) UpdateSheet(_ context.Context, sh grading.Sheet) (grading.Sheet, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[sh.Name]; !ok {
		return grading.Sheet{}, grading.ErrNotFound
	}
	sh = copySheet(sh)
	nameRecords(&sh)
	stored := copySheet(sh)
	repo.db.table[sh.Name] = &stored
	return sh, nil
}

func newGradingTable() *gradingTable {
	return &gradingTable{table: make(map[string]*grading.Sheet)}
}
