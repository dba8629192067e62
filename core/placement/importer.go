package placement

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/user"
)

type (
	// ImportFile is the YAML layout of a placement tests file.
	ImportFile struct {
		Tests []ImportTest `yaml:"tests"`
	}

	ImportTest struct {
		Name         string          `yaml:"name"`
		TestTitle    string          `yaml:"test_title"`
		Description  string          `yaml:"description"`
		TimeLimit    int             `yaml:"time_limit"`
		PassingScore float64         `yaml:"passing_score"`
		IsActive     *bool           `yaml:"is_active"` // defaults to true
		Questions    []QuestionInput `yaml:"questions"`
	}

	ImportReport struct {
		TestsCreated     int `json:"tests_created"`
		TestsUpdated     int `json:"tests_updated"`
		QuestionsCreated int `json:"questions_created"`
		QuestionsReused  int `json:"questions_reused"`
	}
)

// ImportTests loads placement tests from YAML on behalf of a manager.
func (svc *Service) ImportTests(ctx context.Context, actor user.User, r io.Reader) (ImportReport, error) {
	if err := ensureManager(actor); err != nil {
		return ImportReport{}, err
	}
	return svc.Import(ctx, r)
}

// Import creates or replaces the tests described in the YAML read from `r`.
// A question whose text already exists is reused as is; marks default to 1.
func (svc *Service) Import(ctx context.Context, r io.Reader) (ImportReport, error) {
	var (
		file   ImportFile
		report ImportReport
	)
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return report, core.Invalid("invalid placement tests file: %v", err)
	}

	imported := make([]string, 0, len(file.Tests))
	for i, it := range file.Tests {
		t, created, err := svc.importTest(ctx, it, &report)
		if err != nil {
			return report, errors.Wrapf(err, "importing test #%d (%s)", i+1, it.TestTitle)
		}
		if created {
			report.TestsCreated++
		} else {
			report.TestsUpdated++
		}
		imported = append(imported, t.Name)
	}
	svc.invalidate(ctx, imported...)
	return report, nil
}

func (svc *Service) importTest(ctx context.Context, it ImportTest, report *ImportReport) (Test, bool, error) {
	t := Test{
		Name:         core.CleanString(it.Name, true /* lower */),
		TestTitle:    core.CleanString(it.TestTitle),
		Description:  core.CleanString(it.Description),
		TimeLimit:    it.TimeLimit,
		PassingScore: it.PassingScore,
		IsActive:     it.IsActive == nil || *it.IsActive,
		Questions:    make([]string, 0, len(it.Questions)),
		Modified:     core.NowFunc().UTC(),
	}
	if t.TestTitle == "" {
		return Test{}, false, core.Invalid("test_title is required")
	}

	for _, qi := range it.Questions {
		q, err := svc.importQuestion(ctx, qi, report)
		if err != nil {
			return Test{}, false, err
		}
		t.Questions = append(t.Questions, q.Name)
	}
	if err := t.Validate(); err != nil {
		return Test{}, false, err
	}

	if t.Name != "" {
		if _, err := svc.repo.GetTest(ctx, t.Name); err == nil {
			t, err = svc.repo.UpdateTest(ctx, t)
			return t, false, errors.Wrap(err, "updating placement test")
		} else if err != ErrTestNotFound {
			return Test{}, false, errors.Wrap(err, "finding placement test")
		}
	}
	t, err := svc.repo.CreateTest(ctx, t)
	return t, true, errors.Wrap(err, "creating placement test")
}

func (svc *Service) importQuestion(ctx context.Context, qi QuestionInput, report *ImportReport) (Question, error) {
	qi.clean()
	if qi.Question == "" {
		return Question{}, core.Invalid("question text is required")
	}

	q, err := svc.repo.FindQuestionByText(ctx, qi.Question)
	if err == nil {
		report.QuestionsReused++
		return q, nil
	}
	if err != ErrQuestionNotFound {
		return Question{}, errors.Wrap(err, "finding question")
	}

	if qi.QuestionType != SingleAnswer && qi.QuestionType != MultipleAnswer {
		return Question{}, core.Invalid("invalid question type %q", qi.QuestionType)
	}
	q = qi.question()
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	q.Modified = core.NowFunc().UTC()
	if q, err = svc.repo.CreateQuestion(ctx, q); err != nil {
		return Question{}, errors.Wrap(err, "creating question")
	}
	report.QuestionsCreated++
	return q, nil
}
