package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/batch"
	"github.com/trezcool/masomo-lms/core/placement"
	"github.com/trezcool/masomo-lms/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateBatch creates a published batch running from `start` to `end` (open ended when empty).
func CreateBatch(t *testing.T, repo batch.Repository, name, start, end string) batch.Batch {
	b, err := repo.CreateBatch(context.Background(), batch.Batch{
		Name:      name,
		Title:     name,
		StartDate: core.MustParseDate(start),
		EndDate:   core.MustParseDate(end),
		Timezone:  "Africa/Kinshasa",
		Published: true,
	})
	if err != nil {
		t.Fatalf("CreateBatch() failed: %v", err)
	}
	return b
}

func Enroll(t *testing.T, repo batch.Repository, b batch.Batch, members ...user.User) []batch.Enrollment {
	enrollments := make([]batch.Enrollment, 0, len(members))
	for _, m := range members {
		e, err := repo.CreateEnrollment(context.Background(), batch.Enrollment{
			Batch:      b.Name,
			Member:     m.ID,
			MemberName: m.DisplayName(),
		})
		if err != nil {
			t.Fatalf("Enroll() failed: %v", err)
		}
		enrollments = append(enrollments, e)
	}
	return enrollments
}

func AddInstructor(t *testing.T, repo batch.Repository, b batch.Batch, instructor user.User) {
	if err := repo.AddInstructor(context.Background(), batch.CourseInstructor{Batch: b.Name, Instructor: instructor.ID}); err != nil {
		t.Fatalf("AddInstructor() failed: %v", err)
	}
}

// CreateQuestion creates a question whose correct options are at `correct`.
func CreateQuestion(t *testing.T, repo placement.Repository, text, qtype string, options []string, correct ...int) placement.Question {
	q := placement.Question{Question: text, QuestionType: qtype, Marks: 1}
	isCorrect := make(map[int]bool, len(correct))
	for _, i := range correct {
		isCorrect[i] = true
	}
	for i, opt := range options {
		q.Options = append(q.Options, placement.Option{OptionText: opt, IsCorrect: isCorrect[i]})
	}
	q, err := repo.CreateQuestion(context.Background(), q)
	if err != nil {
		t.Fatalf("CreateQuestion() failed: %v", err)
	}
	return q
}

func CreateTest(t *testing.T, repo placement.Repository, name string, timeLimit int, passingScore float64, questions ...placement.Question) placement.Test {
	pt := placement.Test{
		Name:         name,
		TestTitle:    name,
		TimeLimit:    timeLimit,
		PassingScore: passingScore,
		IsActive:     true,
		Modified:     time.Now().UTC(),
	}
	for _, q := range questions {
		pt.Questions = append(pt.Questions, q.Name)
	}
	pt, err := repo.CreateTest(context.Background(), pt)
	if err != nil {
		t.Fatalf("CreateTest() failed: %v", err)
	}
	return pt
}

func Float(f float64) *float64 { return &f }
