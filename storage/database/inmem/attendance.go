package inmemdb

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/attendance"
)

type attendanceTables struct {
	mutex    sync.RWMutex
	sessions map[string]*attendance.Session // records are kept in `records`
	records  map[string]*attendance.Record
	sheets   map[string]*attendance.Sheet // entries are kept in `entries`
	entries  map[string]*attendance.Entry
}

type attendanceRepository struct {
	db *attendanceTables
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db.attendance}
}

func (repo *attendanceRepository) GetSessionByDate(_ context.Context, batchName string, day core.Date) (attendance.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, s := range repo.db.sessions {
		if s.Batch == batchName && s.SessionDate.Equal(day) {
			return *s, nil
		}
	}
	return attendance.Session{}, attendance.ErrSessionNotFound
}

// sessionRecords returns the records of session `name`, sorted with `less`.
func (repo *attendanceRepository) sessionRecords(name string, less func(a, b attendance.Record) bool) []attendance.Record {
	records := make([]attendance.Record, 0)
	for _, r := range repo.db.records {
		if r.Session == name {
			records = append(records, *r)
		}
	}
	sort.Slice(records, func(i, j int) bool { return less(records[i], records[j]) })
	return records
}

func byIdx(a, b attendance.Record) bool { return a.Idx < b.Idx }

func byStudentName(a, b attendance.Record) bool {
	if a.StudentName == b.StudentName {
		return a.Idx < b.Idx
	}
	return a.StudentName < b.StudentName
}

func (repo *attendanceRepository) GetSession(_ context.Context, name string) (attendance.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	s, ok := repo.db.sessions[name]
	if !ok {
		return attendance.Session{}, attendance.ErrSessionNotFound
	}
	session := *s
	session.Records = repo.sessionRecords(name, byIdx)
	return session, nil
}

func (repo *attendanceRepository) CreateSession(_ context.Context, s attendance.Session) (attendance.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.sessions {
		if existing.Batch == s.Batch && existing.SessionDate.Equal(s.SessionDate) {
			return attendance.Session{}, attendance.ErrSessionExists
		}
	}
	s.Name = uuid.NewString()
	records := s.Records
	s.Records = nil
	for i := range records {
		r := records[i]
		r.Name = uuid.NewString()
		r.Session = s.Name
		repo.db.records[r.Name] = &r
		records[i] = r
	}
	stored := s
	repo.db.sessions[s.Name] = &stored
	s.Records = records
	return s, nil
}

func (repo *attendanceRepository) SetSessionState(_ context.Context, name string, docStatus core.DocStatus, status string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s, ok := repo.db.sessions[name]
	if !ok {
		return attendance.ErrSessionNotFound
	}
	s.DocStatus = docStatus
	s.Status = status
	return nil
}

func (repo *attendanceRepository) QuerySessions(_ context.Context, batchName string, from, to core.Date) ([]attendance.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sessions := make([]attendance.Session, 0)
	for _, s := range repo.db.sessions {
		if s.Batch != batchName || s.SessionDate.Before(from) || s.SessionDate.After(to) {
			continue
		}
		session := *s
		session.Records = repo.sessionRecords(s.Name, byStudentName)
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].SessionDate.Before(sessions[j].SessionDate) })
	return sessions, nil
}

func (repo *attendanceRepository) GetRecord(_ context.Context, name string) (attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if r, ok := repo.db.records[name]; ok {
		return *r, nil
	}
	return attendance.Record{}, attendance.ErrRecordNotFound
}

func (repo *attendanceRepository) UpdateRecord(_ context.Context, r attendance.Record) (attendance.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.records[r.Name]
	if !ok {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	orig.Status = r.Status
	orig.ExcuseReason = r.ExcuseReason
	orig.Notes = r.Notes
	return *orig, nil
}

func (repo *attendanceRepository) GetSheetByBatch(_ context.Context, batchName string) (attendance.Sheet, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, sh := range repo.db.sheets {
		if sh.Batch == batchName {
			return *sh, nil
		}
	}
	return attendance.Sheet{}, attendance.ErrSheetNotFound
}

func (repo *attendanceRepository) GetSheet(_ context.Context, name string) (attendance.Sheet, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sh, ok := repo.db.sheets[name]
	if !ok {
		return attendance.Sheet{}, attendance.ErrSheetNotFound
	}
	sheet := *sh
	sheet.Entries = make([]attendance.Entry, 0)
	for _, e := range repo.db.entries {
		if e.Sheet == name {
			sheet.Entries = append(sheet.Entries, *e)
		}
	}
	return sheet, nil
}

func (repo *attendanceRepository) addEntries(sheet string, entries []attendance.Entry) []attendance.Entry {
	added := make([]attendance.Entry, 0, len(entries))
	for _, e := range entries {
		e.Name = uuid.NewString()
		e.Sheet = sheet
		entry := e
		repo.db.entries[e.Name] = &entry
		added = append(added, e)
	}
	return added
}

func (repo *attendanceRepository) CreateSheet(_ context.Context, sh attendance.Sheet) (attendance.Sheet, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.sheets {
		if existing.Batch == sh.Batch {
			return attendance.Sheet{}, attendance.ErrSheetExists
		}
	}
	sh.Name = uuid.NewString()
	entries := sh.Entries
	sh.Entries = nil
	stored := sh
	repo.db.sheets[sh.Name] = &stored
	sh.Entries = repo.addEntries(sh.Name, entries)
	return sh, nil
}

func (repo *attendanceRepository) UpdateSheet(_ context.Context, sh attendance.Sheet) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.sheets[sh.Name]
	if !ok {
		return attendance.ErrSheetNotFound
	}
	orig.Status = sh.Status
	orig.DocStatus = sh.DocStatus
	orig.StartDate = sh.StartDate
	orig.EndDate = sh.EndDate
	orig.Timezone = sh.Timezone
	orig.Notes = sh.Notes
	return nil
}

func (repo *attendanceRepository) AddEntries(_ context.Context, sheet string, entries []attendance.Entry) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.sheets[sheet]; !ok {
		return attendance.ErrSheetNotFound
	}
	repo.addEntries(sheet, entries)
	return nil
}

func (repo *attendanceRepository) GetEntry(_ context.Context, name string) (attendance.Entry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if e, ok := repo.db.entries[name]; ok {
		return *e, nil
	}
	return attendance.Entry{}, attendance.ErrEntryNotFound
}

func (repo *attendanceRepository) UpdateEntry(_ context.Context, e attendance.Entry) (attendance.Entry, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.entries[e.Name]
	if !ok {
		return attendance.Entry{}, attendance.ErrEntryNotFound
	}
	orig.Status = e.Status
	orig.ExcuseReason = e.ExcuseReason
	orig.Notes = e.Notes
	return *orig, nil
}
