package placement

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-lms/core"
)

// Question types
const (
	SingleAnswer   = "Single Answer"
	MultipleAnswer = "Multiple Answer"
)

// Submission statuses
const (
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
	StatusExpired    = "Expired"
)

type Option struct {
	OptionText string `json:"option_text" yaml:"option_text" validate:"required"`
	IsCorrect  bool   `json:"is_correct" yaml:"is_correct"`
}

// Question is a multiple choice question, shared between tests.
type Question struct {
	Name         string    `json:"name"`
	Question     string    `json:"question"`
	QuestionType string    `json:"question_type"`
	Explanation  string    `json:"explanation"`
	Marks        int       `json:"marks"`
	Options      []Option  `json:"options"`
	Modified     time.Time `json:"modified"`
}

func (q Question) Validate() error {
	if len(q.Options) < 2 {
		return core.Invalid("Please add at least 2 options for the question.")
	}
	for _, opt := range q.Options {
		if opt.IsCorrect {
			return nil
		}
	}
	return core.Invalid("Please mark at least one option as correct.")
}

// CorrectIndices returns the positions of the correct options.
func (q Question) CorrectIndices() []int {
	indices := make([]int, 0, 1)
	for i, opt := range q.Options {
		if opt.IsCorrect {
			indices = append(indices, i)
		}
	}
	return indices
}

// Test is a timed placement test made of questions.
type Test struct {
	Name         string    `json:"name"`
	TestTitle    string    `json:"test_title"`
	Description  string    `json:"description"`
	TimeLimit    int       `json:"time_limit"` // minutes; 0 means untimed
	PassingScore float64   `json:"passing_score"`
	IsActive     bool      `json:"is_active"`
	Questions    []string  `json:"questions"` // question names, in test order
	Modified     time.Time `json:"modified"`
}

func (t Test) Validate() error {
	if len(t.Questions) < 1 {
		return core.Invalid("Please add at least one question to the test.")
	}
	if t.TimeLimit < 0 {
		return core.Invalid("Time limit cannot be negative.")
	}
	return nil
}

// TestSummary is a Test as listed to guests.
type TestSummary struct {
	Name         string  `json:"name"`
	TestTitle    string  `json:"test_title"`
	Description  string  `json:"description"`
	TimeLimit    int     `json:"time_limit"`
	PassingScore float64 `json:"passing_score"`
}

func (t Test) Summary() TestSummary {
	return TestSummary{
		Name:         t.Name,
		TestTitle:    t.TestTitle,
		Description:  t.Description,
		TimeLimit:    t.TimeLimit,
		PassingScore: t.PassingScore,
	}
}

type (
	// TestData is a Test as taken by guests: the correct options are not disclosed.
	TestData struct {
		TestSummary
		Questions []PublicQuestion `json:"questions"`
	}

	PublicQuestion struct {
		Name         string         `json:"name"`
		Question     string         `json:"question"`
		QuestionType string         `json:"question_type"`
		Explanation  string         `json:"explanation"`
		Options      []PublicOption `json:"options"`
	}

	PublicOption struct {
		OptionText string `json:"option_text"`
	}
)

func (q Question) Public() PublicQuestion {
	pq := PublicQuestion{
		Name:         q.Name,
		Question:     q.Question,
		QuestionType: q.QuestionType,
		Explanation:  q.Explanation,
		Options:      make([]PublicOption, 0, len(q.Options)),
	}
	for _, opt := range q.Options {
		pq.Options = append(pq.Options, PublicOption{OptionText: opt.OptionText})
	}
	return pq
}

// Answer is the selection of a participant for one question.
type Answer struct {
	Question        string `json:"question"`
	SelectedOptions []int  `json:"selected_options"`
	IsCorrect       bool   `json:"is_correct"`
}

// Submission is an attempt at a placement test.
type Submission struct {
	Name          string         `json:"name"`
	Test          string         `json:"placement_test"`
	FullName      string         `json:"full_name"`
	DateOfBirth   core.Date      `json:"date_of_birth"`
	Email         string         `json:"email"`
	PhoneNumber   string         `json:"phone_number"`
	InterviewTime string         `json:"interview_time"`
	StartTime     time.Time      `json:"start_time"`
	EndTime       *time.Time     `json:"end_time"`
	ExpiryTime    *time.Time     `json:"expiry_time"`
	Status        string         `json:"status"`
	DocStatus     core.DocStatus `json:"docstatus"`
	Score         float64        `json:"score"`
	Passed        bool           `json:"passed"`
	Answers       []Answer       `json:"answers"`
}

// BeforeInsert starts the submission clock; timed tests also set the expiry time.
func (s *Submission) BeforeInsert(t Test, now time.Time) {
	s.StartTime = now
	s.Status = StatusInProgress
	s.DocStatus = core.DocDraft
	s.ExpiryTime = nil
	if t.TimeLimit > 0 {
		expiry := now.Add(time.Duration(t.TimeLimit) * time.Minute)
		s.ExpiryTime = &expiry
	}
}

// CalculateScore sets the score as the percentage of correct answers. Without answers the score is left as is.
func (s *Submission) CalculateScore(passingScore float64) {
	if len(s.Answers) == 0 {
		return
	}
	var correct int
	for _, a := range s.Answers {
		if a.IsCorrect {
			correct++
		}
	}
	s.Score = float64(correct) / float64(len(s.Answers)) * 100
	s.Passed = s.Score >= passingScore
}

func (s *Submission) OnSubmit(now time.Time) {
	s.Status = StatusCompleted
	s.DocStatus = core.DocSubmitted
	s.EndTime = &now
}

// HasExpired tells whether a timed submission is still open past its expiry time.
func (s Submission) HasExpired(now time.Time) bool {
	return s.Status == StatusInProgress && s.ExpiryTime != nil && now.After(*s.ExpiryTime)
}

func (s Submission) CorrectAnswers() int {
	var correct int
	for _, a := range s.Answers {
		if a.IsCorrect {
			correct++
		}
	}
	return correct
}

// NewSubmission contains the participant information needed to start a test.
type NewSubmission struct {
	Test          string    `json:"test_id" validate:"required"`
	FullName      string    `json:"full_name" validate:"required,max=140"`
	DateOfBirth   core.Date `json:"date_of_birth" validate:"required"`
	Email         string    `json:"email" validate:"required,email"`
	Phone         string    `json:"phone" validate:"required,max=40"`
	InterviewTime string    `json:"interview_time"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.Test = core.CleanString(ns.Test)
	ns.FullName = core.CleanString(ns.FullName)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Phone = core.CleanString(ns.Phone)
	ns.InterviewTime = core.CleanString(ns.InterviewTime)
	return validate.Struct(ns)
}

// ParticipantInfo overrides the participant information of a submission; empty fields are ignored.
type ParticipantInfo struct {
	FullName    string    `json:"full_name"`
	DateOfBirth core.Date `json:"date_of_birth"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
}

func (pi ParticipantInfo) apply(s *Submission) {
	if name := core.CleanString(pi.FullName); name != "" {
		s.FullName = name
	}
	if !pi.DateOfBirth.IsZero() {
		s.DateOfBirth = pi.DateOfBirth
	}
	if email := core.CleanString(pi.Email, true /* lower */); email != "" {
		s.Email = email
	}
	if phone := core.CleanString(pi.Phone); phone != "" {
		s.PhoneNumber = phone
	}
}

type (
	// Result is the outcome of a submission, with the review of the wrong answers.
	Result struct {
		TotalQuestions   int               `json:"total_questions"`
		CorrectAnswers   int               `json:"correct_answers"`
		Score            float64           `json:"score"`
		Passed           bool              `json:"passed"`
		PassingScore     float64           `json:"passing_score"`
		IncorrectAnswers []IncorrectAnswer `json:"incorrect_answers"`
	}

	IncorrectAnswer struct {
		Question   Review `json:"question"`
		UserAnswer []int  `json:"user_answer"`
	}

	// Review discloses the correct options of a question.
	Review struct {
		Name         string   `json:"name"`
		Question     string   `json:"question"`
		QuestionType string   `json:"question_type"`
		Explanation  string   `json:"explanation"`
		Options      []Option `json:"options"`
	}
)

func (q Question) Review() Review {
	return Review{
		Name:         q.Name,
		Question:     q.Question,
		QuestionType: q.QuestionType,
		Explanation:  q.Explanation,
		Options:      q.Options,
	}
}

// SubmissionFilter selects submissions for managers; empty fields match everything.
type SubmissionFilter struct {
	Test   string `query:"test"`
	Status string `query:"status"`
	Search string `query:"search"`
}

type Repository interface {
	CreateQuestion(ctx context.Context, q Question) (Question, error)
	UpdateQuestion(ctx context.Context, q Question) (Question, error)
	GetQuestion(ctx context.Context, name string) (Question, error)
	// FindQuestionByText returns the question with exactly this text.
	FindQuestionByText(ctx context.Context, text string) (Question, error)
	// GetQuestions returns the named questions in the given order, skipping unknown names.
	GetQuestions(ctx context.Context, names []string) ([]Question, error)

	CreateTest(ctx context.Context, t Test) (Test, error)
	UpdateTest(ctx context.Context, t Test) (Test, error)
	GetTest(ctx context.Context, name string) (Test, error)
	// QueryTests returns tests, most recently modified first.
	QueryTests(ctx context.Context, activeOnly bool) ([]Test, error)
	// QueryTestsByQuestion returns the names of the tests using `question`.
	QueryTestsByQuestion(ctx context.Context, question string) ([]string, error)

	CreateSubmission(ctx context.Context, s Submission) (Submission, error)
	GetSubmission(ctx context.Context, name string) (Submission, error)
	UpdateSubmission(ctx context.Context, s Submission) (Submission, error)
	// QuerySubmissions returns submissions, most recent first.
	QuerySubmissions(ctx context.Context, filter SubmissionFilter) ([]Submission, error)
	// ExpireSubmissions marks in progress submissions whose expiry time is before `now` as expired.
	ExpireSubmissions(ctx context.Context, now time.Time) (int, error)
}

// Cache stores JSON-serializable values; implementations may be no-ops.
type Cache interface {
	// Get loads the value at `key` into `dst` and reports whether it was found.
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, keys ...string) error
}
