package attendance

import (
	"context"

	"github.com/trezcool/masomo-lms/core"
)

// Status is the attendance of a student on a given day.
type Status string

const (
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
	StatusLate    Status = "Late"
	StatusExcused Status = "Excused"
)

// Statuses lists all the valid attendance statuses.
var Statuses = []Status{StatusPresent, StatusAbsent, StatusLate, StatusExcused}

func (s Status) IsValid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

// document status labels
const (
	LabelDraft     = "Draft"
	LabelSubmitted = "Submitted"
)

// Session is the attendance of a batch for a single day.
type Session struct {
	Name        string         `json:"name"`
	Batch       string         `json:"batch"`
	SessionDate core.Date      `json:"session_date"`
	Status      string         `json:"status"`
	DocStatus   core.DocStatus `json:"docstatus"`
	Notes       string         `json:"notes"`
	Records     []Record       `json:"attendance_records"`
}

// Record is the attendance of one enrolled student within a Session.
type Record struct {
	Name         string `json:"name"`
	Session      string `json:"-"`
	Idx          int    `json:"-"`
	Enrollment   string `json:"enrollment"`
	Student      string `json:"student"`
	StudentName  string `json:"student_name"`
	Status       Status `json:"status"`
	ExcuseReason string `json:"excuse_reason"`
	Notes        string `json:"notes"`
}

// Sheet is the batch-wide attendance calendar: one Entry per day and enrollment.
type Sheet struct {
	Name      string         `json:"name"`
	Batch     string         `json:"batch"`
	Status    string         `json:"status"`
	DocStatus core.DocStatus `json:"docstatus"`
	StartDate core.Date      `json:"start_date"`
	EndDate   core.Date      `json:"end_date"`
	Timezone  string         `json:"timezone"`
	Notes     string         `json:"notes"`
	Entries   []Entry        `json:"-"`
}

// Entry is the attendance of one enrolled student on one day of a Sheet.
type Entry struct {
	Name           string    `json:"name"`
	Sheet          string    `json:"-"`
	AttendanceDate core.Date `json:"attendance_date"`
	WeekIndex      int       `json:"week_index"`
	WeekLabel      string    `json:"week_label"`
	WeekdayName    string    `json:"weekday_name"`
	Enrollment     string    `json:"enrollment"`
	Student        string    `json:"student"`
	StudentName    string    `json:"student_name"`
	Status         Status    `json:"status"`
	ExcuseReason   string    `json:"excuse_reason"`
	Notes          string    `json:"notes"`
}

// Mark is a change of attendance for a Record or an Entry.
// An empty Status keeps the current one and a nil Notes keeps the current notes.
type Mark struct {
	Status       Status  `json:"status"`
	ExcuseReason string  `json:"excuse_reason"`
	Notes        *string `json:"notes"`
}

// EntryMark is the result of marking an Entry.
type EntryMark struct {
	Name         string `json:"name"`
	Status       Status `json:"status"`
	ExcuseReason string `json:"excuse_reason"`
	Notes        string `json:"notes"`
}

type Repository interface {
	// GetSessionByDate returns the session of `batch` on `day`, without its records.
	GetSessionByDate(ctx context.Context, batch string, day core.Date) (Session, error)
	// GetSession returns a session with its records in roster order.
	GetSession(ctx context.Context, name string) (Session, error)
	CreateSession(ctx context.Context, s Session) (Session, error)
	SetSessionState(ctx context.Context, name string, docStatus core.DocStatus, status string) error
	// QuerySessions returns the sessions of `batch` between `from` and `to` (inclusive) ordered by date,
	// with their records ordered by student name.
	QuerySessions(ctx context.Context, batch string, from, to core.Date) ([]Session, error)
	GetRecord(ctx context.Context, name string) (Record, error)
	UpdateRecord(ctx context.Context, r Record) (Record, error)

	// GetSheetByBatch returns the sheet of `batch`, without its entries.
	GetSheetByBatch(ctx context.Context, batch string) (Sheet, error)
	// GetSheet returns a sheet with all its entries.
	GetSheet(ctx context.Context, name string) (Sheet, error)
	CreateSheet(ctx context.Context, sh Sheet) (Sheet, error)
	// UpdateSheet saves the sheet fields, not its entries.
	UpdateSheet(ctx context.Context, sh Sheet) error
	AddEntries(ctx context.Context, sheet string, entries []Entry) error
	GetEntry(ctx context.Context, name string) (Entry, error)
	UpdateEntry(ctx context.Context, e Entry) (Entry, error)
}
