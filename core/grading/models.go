package grading

import (
	"context"

	"github.com/trezcool/masomo-lms/core"
)

// Component is a graded part of the course with its maximum points.
type Component struct {
	Field string
	Label string
	Max   float64
}

// Components lists the graded components in sheet order.
var Components = []Component{
	{Field: "attendance", Label: "Attendance", Max: 10},
	{Field: "participation", Label: "Participation", Max: 10},
	{Field: "assignments", Label: "Assignments", Max: 10},
	{Field: "speaking", Label: "Speaking", Max: 10},
	{Field: "writing", Label: "Writing", Max: 15},
	{Field: "communicative_competence", Label: "Communicative Competence", Max: 10},
	{Field: "final_oral", Label: "Final Oral", Max: 10},
	{Field: "exam", Label: "Exam", Max: 25},
}

// MaxTotal is the highest total a student can get.
var MaxTotal = maxTotal()

func maxTotal() float64 {
	var total float64
	for _, c := range Components {
		total += c.Max
	}
	return total
}

// Sheet holds the grades an instructor gives to the students of a batch.
type Sheet struct {
	Name       string         `json:"name"`
	Batch      string         `json:"batch"`
	Instructor string         `json:"instructor"`
	DocStatus  core.DocStatus `json:"docstatus"`
	Records    []Record       `json:"grade_records"`
}

// Record holds the grades of one student. Components not graded yet are nil.
type Record struct {
	Name                    string   `json:"name"`
	Idx                     int      `json:"idx"`
	Student                 string   `json:"student"`
	StudentName             string   `json:"student_name"`
	Attendance              *float64 `json:"attendance"`
	Participation           *float64 `json:"participation"`
	Assignments             *float64 `json:"assignments"`
	Speaking                *float64 `json:"speaking"`
	Writing                 *float64 `json:"writing"`
	CommunicativeCompetence *float64 `json:"communicative_competence"`
	FinalOral               *float64 `json:"final_oral"`
	Exam                    *float64 `json:"exam"`
	Total                   float64  `json:"total"`
}

// Score returns the address of the grade of component `field`, nil for unknown fields.
func (r *Record) Score(field string) **float64 {
	switch field {
	case "attendance":
		return &r.Attendance
	case "participation":
		return &r.Participation
	case "assignments":
		return &r.Assignments
	case "speaking":
		return &r.Speaking
	case "writing":
		return &r.Writing
	case "communicative_competence":
		return &r.CommunicativeCompetence
	case "final_oral":
		return &r.FinalOral
	case "exam":
		return &r.Exam
	}
	return nil
}

// SheetUpdate replaces the grade records of a draft sheet.
type SheetUpdate struct {
	Records []Record `json:"grade_records"`
}

type Repository interface {
	// FindSheet returns the sheet of `instructor` for `batch` that is not cancelled.
	FindSheet(ctx context.Context, batch, instructor string) (Sheet, error)
	GetSheet(ctx context.Context, name string) (Sheet, error)
	CreateSheet(ctx context.Context, sh Sheet) (Sheet, error)
	// UpdateSheet saves the docstatus and replaces the records of a sheet.
	UpdateSheet(ctx context.Context, sh Sheet) (Sheet, error)
}
