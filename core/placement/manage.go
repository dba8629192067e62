package placement

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/user"
)

var ErrNotAllowed = core.NewPermissionError("You are not allowed to manage placement tests.")

func ensureManager(actor user.User) error {
	if !actor.HasAnyRole(user.PlacementManagerRoles...) {
		return ErrNotAllowed
	}
	return nil
}

// QuestionInput contains the information needed to create or replace a Question.
type QuestionInput struct {
	Question     string   `json:"question" yaml:"question" validate:"required"`
	QuestionType string   `json:"question_type" yaml:"question_type" validate:"required,oneof='Single Answer' 'Multiple Answer'"`
	Explanation  string   `json:"explanation" yaml:"explanation"`
	Marks        int      `json:"marks" yaml:"marks" validate:"gte=0"`
	Options      []Option `json:"options" yaml:"options" validate:"dive"`
}

func (qi *QuestionInput) Validate(validate *validator.Validate) error {
	qi.clean()
	return validate.Struct(qi)
}

func (qi *QuestionInput) clean() {
	qi.Question = core.CleanString(qi.Question)
	qi.Explanation = core.CleanString(qi.Explanation)
	if qi.QuestionType == "" {
		qi.QuestionType = SingleAnswer
	}
	if qi.Marks == 0 {
		qi.Marks = 1
	}
	for i := range qi.Options {
		qi.Options[i].OptionText = core.CleanString(qi.Options[i].OptionText)
	}
}

func (qi QuestionInput) question() Question {
	return Question{
		Question:     qi.Question,
		QuestionType: qi.QuestionType,
		Explanation:  qi.Explanation,
		Marks:        qi.Marks,
		Options:      qi.Options,
	}
}

// TestInput contains the information needed to create or replace a Test.
type TestInput struct {
	Name         string   `json:"name" validate:"omitempty,slug,max=140"`
	TestTitle    string   `json:"test_title" validate:"required,max=140"`
	Description  string   `json:"description"`
	TimeLimit    int      `json:"time_limit"`
	PassingScore float64  `json:"passing_score" validate:"gte=0,lte=100"`
	IsActive     bool     `json:"is_active"`
	Questions    []string `json:"questions"`
}

func (ti *TestInput) Validate(validate *validator.Validate) error {
	ti.Name = core.CleanString(ti.Name, true /* lower */)
	ti.TestTitle = core.CleanString(ti.TestTitle)
	ti.Description = core.CleanString(ti.Description)
	return validate.Struct(ti)
}

func (svc *Service) CreateQuestion(ctx context.Context, actor user.User, qi QuestionInput) (Question, error) {
	if err := ensureManager(actor); err != nil {
		return Question{}, err
	}
	q := qi.question()
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	q.Modified = core.NowFunc().UTC()
	q, err := svc.repo.CreateQuestion(ctx, q)
	return q, errors.Wrap(err, "creating question")
}

func (svc *Service) UpdateQuestion(ctx context.Context, actor user.User, name string, qi QuestionInput) (Question, error) {
	if err := ensureManager(actor); err != nil {
		return Question{}, err
	}
	orig, err := svc.repo.GetQuestion(ctx, name)
	if err != nil {
		return Question{}, err
	}
	q := qi.question()
	q.Name = orig.Name
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	q.Modified = core.NowFunc().UTC()
	if q, err = svc.repo.UpdateQuestion(ctx, q); err != nil {
		return Question{}, errors.Wrap(err, "updating question")
	}

	tests, err := svc.repo.QueryTestsByQuestion(ctx, q.Name)
	if err != nil {
		return Question{}, errors.Wrap(err, "querying tests of question")
	}
	svc.invalidate(ctx, tests...)
	return q, nil
}

func (svc *Service) GetQuestion(ctx context.Context, actor user.User, name string) (Question, error) {
	if err := ensureManager(actor); err != nil {
		return Question{}, err
	}
	return svc.repo.GetQuestion(ctx, name)
}

// checkQuestions ensures every question of `t` exists.
func (svc *Service) checkQuestions(ctx context.Context, t Test) error {
	questions, err := svc.repo.GetQuestions(ctx, t.Questions)
	if err != nil {
		return errors.Wrap(err, "loading questions")
	}
	if len(questions) == len(t.Questions) {
		return nil
	}
	known := make(map[string]bool, len(questions))
	for _, q := range questions {
		known[q.Name] = true
	}
	for _, name := range t.Questions {
		if !known[name] {
			return core.NewValidationError(ErrQuestionNotFound, core.FieldError{Field: "questions", Error: "unknown question " + name})
		}
	}
	return nil
}

func (svc *Service) CreateTest(ctx context.Context, actor user.User, ti TestInput) (Test, error) {
	if err := ensureManager(actor); err != nil {
		return Test{}, err
	}
	t := Test{
		Name:         ti.Name,
		TestTitle:    ti.TestTitle,
		Description:  ti.Description,
		TimeLimit:    ti.TimeLimit,
		PassingScore: ti.PassingScore,
		IsActive:     ti.IsActive,
		Questions:    ti.Questions,
		Modified:     core.NowFunc().UTC(),
	}
	if err := t.Validate(); err != nil {
		return Test{}, err
	}
	if err := svc.checkQuestions(ctx, t); err != nil {
		return Test{}, err
	}
	t, err := svc.repo.CreateTest(ctx, t)
	if err == ErrTestExists {
		return Test{}, core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
	}
	if err != nil {
		return Test{}, errors.Wrap(err, "creating placement test")
	}
	svc.invalidate(ctx)
	return t, nil
}

func (svc *Service) UpdateTest(ctx context.Context, actor user.User, name string, ti TestInput) (Test, error) {
	if err := ensureManager(actor); err != nil {
		return Test{}, err
	}
	t, err := svc.repo.GetTest(ctx, name)
	if err != nil {
		return Test{}, err
	}
	t.TestTitle = ti.TestTitle
	t.Description = ti.Description
	t.TimeLimit = ti.TimeLimit
	t.PassingScore = ti.PassingScore
	t.IsActive = ti.IsActive
	t.Questions = ti.Questions
	t.Modified = core.NowFunc().UTC()
	if err := t.Validate(); err != nil {
		return Test{}, err
	}
	if err := svc.checkQuestions(ctx, t); err != nil {
		return Test{}, err
	}
	if t, err = svc.repo.UpdateTest(ctx, t); err != nil {
		return Test{}, errors.Wrap(err, "updating placement test")
	}
	svc.invalidate(ctx, t.Name)
	return t, nil
}

// GetTest returns a test with the full questions, correct options included.
func (svc *Service) GetTest(ctx context.Context, actor user.User, name string) (Test, []Question, error) {
	if err := ensureManager(actor); err != nil {
		return Test{}, nil, err
	}
	t, err := svc.repo.GetTest(ctx, name)
	if err != nil {
		return Test{}, nil, err
	}
	questions, err := svc.repo.GetQuestions(ctx, t.Questions)
	if err != nil {
		return Test{}, nil, errors.Wrap(err, "loading questions")
	}
	return t, questions, nil
}

// ListAllTests returns every test, inactive ones included.
func (svc *Service) ListAllTests(ctx context.Context, actor user.User) ([]Test, error) {
	if err := ensureManager(actor); err != nil {
		return nil, err
	}
	return svc.repo.QueryTests(ctx, false /* activeOnly */)
}

func (svc *Service) ListSubmissions(ctx context.Context, actor user.User, filter SubmissionFilter) ([]Submission, error) {
	if err := ensureManager(actor); err != nil {
		return nil, err
	}
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QuerySubmissions(ctx, filter)
}

func (svc *Service) GetSubmission(ctx context.Context, actor user.User, name string) (Submission, error) {
	if err := ensureManager(actor); err != nil {
		return Submission{}, err
	}
	return svc.repo.GetSubmission(ctx, name)
}
