package attendance

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/batch"
	"github.com/trezcool/masomo-lms/core/user"
)

var (
	ErrSheetCancel   = core.Invalid("Attendance sheets cannot be cancelled. Use the Reopen action instead.")
	ErrSubmittedLock = core.Invalid("Submitted attendance sheets are locked. Use the Reopen action to make changes.")
)

type (
	// SheetView is a Sheet laid out as a calendar grid: weeks of days as columns, one row per enrollment.
	SheetView struct {
		Name      string         `json:"name"`
		Batch     string         `json:"batch"`
		Status    string         `json:"status"`
		DocStatus core.DocStatus `json:"docstatus"`
		StartDate core.Date      `json:"start_date"`
		EndDate   core.Date      `json:"end_date"`
		Timezone  string         `json:"timezone"`
		Notes     string         `json:"notes"`
		Weeks     []Week         `json:"weeks,omitempty"`
		Rows      []Row          `json:"rows,omitempty"`
	}

	Week struct {
		Index int       `json:"index"`
		Label string    `json:"label"`
		Days  []WeekDay `json:"days"`
	}

	WeekDay struct {
		Date    core.Date `json:"date"`
		Weekday string    `json:"weekday"`
	}

	Row struct {
		Enrollment  string               `json:"enrollment"`
		Student     string               `json:"student"`
		StudentName string               `json:"student_name"`
		Entries     map[string]CellEntry `json:"entries"` // keyed by date
	}

	CellEntry struct {
		Name         string `json:"name"`
		Status       Status `json:"status"`
		ExcuseReason string `json:"excuse_reason"`
		Notes        string `json:"notes"`
		WeekIndex    int    `json:"week_index"`
	}
)

// View lays out the sheet; entries are left out when `withEntries` is false.
func (sh Sheet) View(withEntries bool) SheetView {
	v := SheetView{
		Name:      sh.Name,
		Batch:     sh.Batch,
		Status:    sh.Status,
		DocStatus: sh.DocStatus,
		StartDate: sh.StartDate,
		EndDate:   sh.EndDate,
		Timezone:  sh.Timezone,
		Notes:     sh.Notes,
	}
	if !withEntries {
		return v
	}

	entries := make([]Entry, len(sh.Entries))
	copy(entries, sh.Entries)
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].AttendanceDate.Equal(entries[j].AttendanceDate) {
			return entries[i].AttendanceDate.Before(entries[j].AttendanceDate)
		}
		return entries[i].StudentName < entries[j].StudentName
	})

	weekPos := make(map[int]int)
	seenDays := make(map[string]bool)
	rowPos := make(map[string]int)
	v.Weeks = []Week{}
	v.Rows = []Row{}

	for _, e := range entries {
		dateKey := e.AttendanceDate.String()

		wi, ok := weekPos[e.WeekIndex]
		if !ok {
			wi = len(v.Weeks)
			weekPos[e.WeekIndex] = wi
			v.Weeks = append(v.Weeks, Week{Index: e.WeekIndex, Label: e.WeekLabel, Days: []WeekDay{}})
		}
		if !seenDays[dateKey] {
			seenDays[dateKey] = true
			v.Weeks[wi].Days = append(v.Weeks[wi].Days, WeekDay{Date: e.AttendanceDate, Weekday: e.WeekdayName})
		}

		ri, ok := rowPos[e.Enrollment]
		if !ok {
			ri = len(v.Rows)
			rowPos[e.Enrollment] = ri
			v.Rows = append(v.Rows, Row{
				Enrollment:  e.Enrollment,
				Student:     e.Student,
				StudentName: e.StudentName,
				Entries:     make(map[string]CellEntry),
			})
		}
		v.Rows[ri].Entries[dateKey] = CellEntry{
			Name:         e.Name,
			Status:       e.Status,
			ExcuseReason: e.ExcuseReason,
			Notes:        e.Notes,
			WeekIndex:    e.WeekIndex,
		}
	}

	sort.SliceStable(v.Rows, func(i, j int) bool { return v.Rows[i].sortKey() < v.Rows[j].sortKey() })
	return v
}

func (r Row) sortKey() string {
	if r.StudentName != "" {
		return r.StudentName
	}
	return r.Student
}

// missingEntries returns an Absent entry for every (day, enrollment) pair of the calendar the sheet lacks.
func missingEntries(sh Sheet, days []Day, enrollments []batch.Enrollment) []Entry {
	type key struct {
		date       string
		enrollment string
	}
	existing := make(map[key]bool, len(sh.Entries))
	for _, e := range sh.Entries {
		existing[key{e.AttendanceDate.String(), e.Enrollment}] = true
	}

	var missing []Entry
	for _, d := range days {
		for _, enr := range enrollments {
			k := key{d.Date.String(), enr.Name}
			if existing[k] {
				continue
			}
			existing[k] = true
			missing = append(missing, Entry{
				Sheet:          sh.Name,
				AttendanceDate: d.Date,
				WeekIndex:      d.WeekIndex,
				WeekLabel:      d.WeekLabel,
				WeekdayName:    d.WeekdayName,
				Enrollment:     enr.Name,
				Student:        enr.Member,
				StudentName:    enr.MemberName,
				Status:         StatusAbsent,
			})
		}
	}
	return missing
}

// syncDates copies the batch dates and timezone onto the sheet, keeping the sheet values the batch lacks.
func syncDates(sh *Sheet, b batch.Batch) (updated bool) {
	if !b.StartDate.IsZero() && !b.StartDate.Equal(sh.StartDate) {
		sh.StartDate, updated = b.StartDate, true
	}
	if !b.EndDate.IsZero() && !b.EndDate.Equal(sh.EndDate) {
		sh.EndDate, updated = b.EndDate, true
	}
	if b.Timezone != "" && b.Timezone != sh.Timezone {
		sh.Timezone, updated = b.Timezone, true
	}
	return updated
}

// GetOrCreateSheet returns the attendance sheet of `batchName`, creating it when missing.
// A draft sheet follows its batch: dates are synced and new enrollments or days get Absent entries.
func (svc *Service) GetOrCreateSheet(ctx context.Context, actor user.User, batchName string) (SheetView, error) {
	if err := svc.ensureBatchAccess(ctx, actor, batchName); err != nil {
		return SheetView{}, err
	}
	b, err := svc.batches.Get(ctx, batchName)
	if err != nil {
		return SheetView{}, err
	}
	if !b.HasDates() {
		return SheetView{}, core.Invalid("Batch %s needs both start and end dates set before taking attendance.", batchName)
	}

	sh, err := svc.repo.GetSheetByBatch(ctx, batchName)
	exists := err == nil
	if err != nil && err != ErrSheetNotFound {
		return SheetView{}, errors.Wrap(err, "finding attendance sheet")
	}

	enrollments, err := svc.batches.Enrollments(ctx, batchName)
	if err != nil {
		return SheetView{}, errors.Wrap(err, "querying enrollments")
	}
	if len(enrollments) == 0 {
		return SheetView{}, core.Invalid(errNoEnrollments, "sheet")
	}
	days := Calendar(b.StartDate, b.EndDate)

	if !exists {
		sh = Sheet{
			Batch:     batchName,
			Status:    LabelDraft,
			DocStatus: core.DocDraft,
			StartDate: b.StartDate,
			EndDate:   b.EndDate,
			Timezone:  b.Timezone,
		}
		sh.Entries = missingEntries(sh, days, enrollments)
		created, err := svc.repo.CreateSheet(ctx, sh)
		if err == nil {
			return created.View(true), nil
		}
		if err != ErrSheetExists {
			return SheetView{}, errors.Wrap(err, "creating attendance sheet")
		}
		// created by a concurrent request
		if sh, err = svc.repo.GetSheetByBatch(ctx, batchName); err != nil {
			return SheetView{}, errors.Wrap(err, "finding attendance sheet")
		}
	}

	if sh, err = svc.repo.GetSheet(ctx, sh.Name); err != nil {
		return SheetView{}, err
	}
	updated := syncDates(&sh, b)
	missing := missingEntries(sh, days, enrollments)
	if updated || len(missing) > 0 {
		if !sh.DocStatus.IsDraft() {
			return SheetView{}, ErrSubmittedLock
		}
		if updated {
			if err := svc.repo.UpdateSheet(ctx, sh); err != nil {
				return SheetView{}, errors.Wrap(err, "syncing attendance sheet dates")
			}
		}
		if len(missing) > 0 {
			if err := svc.repo.AddEntries(ctx, sh.Name, missing); err != nil {
				return SheetView{}, errors.Wrap(err, "adding attendance entries")
			}
		}
		if sh, err = svc.repo.GetSheet(ctx, sh.Name); err != nil {
			return SheetView{}, err
		}
	}
	return sh.View(true), nil
}

// getSheet loads a sheet and checks that `actor` can access its batch.
func (svc *Service) getSheet(ctx context.Context, actor user.User, name string) (Sheet, error) {
	if err := requireAttendanceRole(actor); err != nil {
		return Sheet{}, err
	}
	sh, err := svc.repo.GetSheet(ctx, name)
	if err != nil {
		return Sheet{}, err
	}
	if err := svc.ensureBatchAccess(ctx, actor, sh.Batch); err != nil {
		return Sheet{}, err
	}
	return sh, nil
}

// SubmitSheet locks a draft sheet. Other sheets are returned unchanged.
func (svc *Service) SubmitSheet(ctx context.Context, actor user.User, name string) (SheetView, error) {
	sh, err := svc.getSheet(ctx, actor, name)
	if err != nil {
		return SheetView{}, err
	}
	if sh.DocStatus.IsDraft() {
		sh.DocStatus, sh.Status = core.DocSubmitted, LabelSubmitted
		if err := svc.repo.UpdateSheet(ctx, sh); err != nil {
			return SheetView{}, errors.Wrap(err, "submitting attendance sheet")
		}
	}
	return sh.View(true), nil
}

// ReopenSheet puts a submitted sheet back to draft; only attendance admins can do it.
func (svc *Service) ReopenSheet(ctx context.Context, actor user.User, name string) (SheetView, error) {
	if err := requireAttendanceRole(actor); err != nil {
		return SheetView{}, err
	}
	if !hasAdminPrivileges(actor) {
		return SheetView{}, errReopenSheet
	}
	sh, err := svc.repo.GetSheet(ctx, name)
	if err != nil {
		return SheetView{}, err
	}
	if sh.DocStatus.IsSubmitted() {
		sh.DocStatus, sh.Status = core.DocDraft, LabelDraft
		if err := svc.repo.UpdateSheet(ctx, sh); err != nil {
			return SheetView{}, errors.Wrap(err, "reopening attendance sheet")
		}
	}
	return sh.View(true), nil
}

// CancelSheet always fails: sheets are reopened, never cancelled.
func (svc *Service) CancelSheet(ctx context.Context, actor user.User, name string) error {
	if _, err := svc.getSheet(ctx, actor, name); err != nil {
		return err
	}
	return ErrSheetCancel
}

func (svc *Service) UpdateAttendanceEntry(ctx context.Context, actor user.User, name string, m Mark) (EntryMark, error) {
	if err := requireAttendanceRole(actor); err != nil {
		return EntryMark{}, err
	}
	e, err := svc.repo.GetEntry(ctx, name)
	if err != nil {
		return EntryMark{}, err
	}
	sh, err := svc.repo.GetSheet(ctx, e.Sheet)
	if err != nil {
		return EntryMark{}, err
	}
	if err := svc.ensureBatchAccess(ctx, actor, sh.Batch); err != nil {
		return EntryMark{}, err
	}
	if !sh.DocStatus.IsDraft() {
		return EntryMark{}, ErrSheetLocked
	}
	if err := m.apply(&e.Status, &e.ExcuseReason, &e.Notes); err != nil {
		return EntryMark{}, err
	}
	if e, err = svc.repo.UpdateEntry(ctx, e); err != nil {
		return EntryMark{}, errors.Wrap(err, "updating attendance entry")
	}
	return EntryMark{Name: e.Name, Status: e.Status, ExcuseReason: e.ExcuseReason, Notes: e.Notes}, nil
}

// SaveSheet updates the notes of a draft sheet; nil `notes` leaves them untouched.
func (svc *Service) SaveSheet(ctx context.Context, actor user.User, name string, notes *string) (SheetView, error) {
	sh, err := svc.getSheet(ctx, actor, name)
	if err != nil {
		return SheetView{}, err
	}
	if !sh.DocStatus.IsDraft() {
		return SheetView{}, ErrSheetLocked
	}
	if notes != nil {
		sh.Notes = *notes
		if err := svc.repo.UpdateSheet(ctx, sh); err != nil {
			return SheetView{}, errors.Wrap(err, "saving attendance sheet")
		}
	}
	return sh.View(false), nil
}
