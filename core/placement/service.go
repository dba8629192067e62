package placement

import (
	"context"
	"encoding/json"
	"net/mail"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
)

var (
	// errors
	ErrTestNotFound       = core.NewNotFoundError("placement test")
	ErrQuestionNotFound   = core.NewNotFoundError("placement test question")
	ErrSubmissionNotFound = core.NewNotFoundError("placement test submission")
	ErrTestExists         = errors.New("a placement test with this name already exists")

	ErrTestUnavailable  = core.Invalid("This placement test is not available.")
	ErrAlreadySubmitted = core.Invalid("This placement test has already been submitted.")
	ErrExpired          = core.Invalid("This placement test submission has expired.")
	ErrNotSubmitted     = core.Invalid("This placement test has not been submitted yet.")
)

const (
	cacheKeyTests      = "placement:tests"
	cacheKeyTestPrefix = "placement:test:"
)

type Service struct {
	repo       Repository
	cache      Cache
	mailSvc    core.EmailService
	logger     core.Logger
	recipients []mail.Address
}

// NewService creates the placement test service. Result emails are copied to `recipients`.
func NewService(repo Repository, cache Cache, mailSvc core.EmailService, logger core.Logger, recipients ...mail.Address) (*Service, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(cache, "cache"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(logger, "logger"),
	).Check(); err != nil {
		return nil, err
	}
	return &Service{repo: repo, cache: cache, mailSvc: mailSvc, logger: logger, recipients: recipients}, nil
}

// ListTests returns the active tests, most recently modified first.
func (svc *Service) ListTests(ctx context.Context) ([]TestSummary, error) {
	var summaries []TestSummary
	if svc.cacheGet(ctx, cacheKeyTests, &summaries) {
		return summaries, nil
	}

	tests, err := svc.repo.QueryTests(ctx, true /* activeOnly */)
	if err != nil {
		return nil, errors.Wrap(err, "querying placement tests")
	}
	summaries = make([]TestSummary, 0, len(tests))
	for _, t := range tests {
		summaries = append(summaries, t.Summary())
	}
	svc.cacheSet(ctx, cacheKeyTests, summaries)
	return summaries, nil
}

// GetTestData returns a test with its questions, hiding which options are correct.
func (svc *Service) GetTestData(ctx context.Context, name string) (TestData, error) {
	var data TestData
	key := cacheKeyTestPrefix + name
	if svc.cacheGet(ctx, key, &data) {
		return data, nil
	}

	t, err := svc.repo.GetTest(ctx, name)
	if err != nil {
		return TestData{}, err
	}
	questions, err := svc.repo.GetQuestions(ctx, t.Questions)
	if err != nil {
		return TestData{}, errors.Wrap(err, "loading questions")
	}
	data = TestData{TestSummary: t.Summary(), Questions: make([]PublicQuestion, 0, len(questions))}
	for _, q := range questions {
		data.Questions = append(data.Questions, q.Public())
	}
	svc.cacheSet(ctx, key, data)
	return data, nil
}

// CreateTestSubmission starts an attempt at an active test and returns its name.
func (svc *Service) CreateTestSubmission(ctx context.Context, ns NewSubmission) (string, error) {
	t, err := svc.repo.GetTest(ctx, ns.Test)
	if err != nil {
		return "", err
	}
	if !t.IsActive {
		return "", ErrTestUnavailable
	}

	s := Submission{
		Test:          t.Name,
		FullName:      ns.FullName,
		DateOfBirth:   ns.DateOfBirth,
		Email:         ns.Email,
		PhoneNumber:   ns.Phone,
		InterviewTime: ns.InterviewTime,
	}
	s.BeforeInsert(t, core.NowFunc())
	s, err = svc.repo.CreateSubmission(ctx, s)
	if err != nil {
		return "", errors.Wrap(err, "creating submission")
	}
	return s.Name, nil
}

// SubmitTestAnswers grades `rawAnswers`, completes the submission and emails the result.
func (svc *Service) SubmitTestAnswers(ctx context.Context, name string, rawAnswers json.RawMessage, info ParticipantInfo) (Result, error) {
	s, err := svc.repo.GetSubmission(ctx, name)
	if err != nil {
		return Result{}, err
	}
	now := core.NowFunc()
	switch {
	case s.Status == StatusExpired:
		return Result{}, ErrExpired
	case s.HasExpired(now):
		s.Status = StatusExpired
		if _, err := svc.repo.UpdateSubmission(ctx, s); err != nil {
			return Result{}, errors.Wrap(err, "expiring submission")
		}
		return Result{}, ErrExpired
	case !s.DocStatus.IsDraft():
		return Result{}, ErrAlreadySubmitted
	}

	t, err := svc.repo.GetTest(ctx, s.Test)
	if err != nil {
		return Result{}, errors.Wrap(err, "loading placement test")
	}
	info.apply(&s)

	parsed := ParseAnswers(rawAnswers)
	names := make([]string, 0, len(parsed))
	for _, a := range parsed {
		names = append(names, a.Question)
	}
	questions, err := svc.questionsByName(ctx, names)
	if err != nil {
		return Result{}, err
	}

	s.Answers = make([]Answer, 0, len(parsed))
	for _, a := range parsed {
		q, ok := questions[a.Question]
		if !ok {
			return Result{}, core.NewValidationError(ErrQuestionNotFound, core.FieldError{Field: "answers", Error: "unknown question " + a.Question})
		}
		s.Answers = append(s.Answers, Answer{
			Question:        q.Name,
			SelectedOptions: a.SelectedOptions,
			IsCorrect:       IsAnswerCorrect(q, a.SelectedOptions),
		})
	}
	s.CalculateScore(t.PassingScore)
	s.OnSubmit(now)

	if s, err = svc.repo.UpdateSubmission(ctx, s); err != nil {
		return Result{}, errors.Wrap(err, "submitting answers")
	}

	res := buildResult(s, t, questions)
	svc.sendResultMail(s, t, res)
	return res, nil
}

// GetSubmissionResult returns the result of a completed submission.
func (svc *Service) GetSubmissionResult(ctx context.Context, name string) (Result, error) {
	s, err := svc.repo.GetSubmission(ctx, name)
	if err != nil {
		return Result{}, err
	}
	if s.Status != StatusCompleted {
		return Result{}, ErrNotSubmitted
	}
	t, err := svc.repo.GetTest(ctx, s.Test)
	if err != nil {
		return Result{}, errors.Wrap(err, "loading placement test")
	}
	names := make([]string, 0, len(s.Answers))
	for _, a := range s.Answers {
		names = append(names, a.Question)
	}
	questions, err := svc.questionsByName(ctx, names)
	if err != nil {
		return Result{}, err
	}
	return buildResult(s, t, questions), nil
}

// ExpireStaleSubmissions marks the in progress submissions past their expiry time as expired.
func (svc *Service) ExpireStaleSubmissions(ctx context.Context) (int, error) {
	n, err := svc.repo.ExpireSubmissions(ctx, core.NowFunc())
	return n, errors.Wrap(err, "expiring submissions")
}

func (svc *Service) questionsByName(ctx context.Context, names []string) (map[string]Question, error) {
	questions, err := svc.repo.GetQuestions(ctx, names)
	if err != nil {
		return nil, errors.Wrap(err, "loading questions")
	}
	byName := make(map[string]Question, len(questions))
	for _, q := range questions {
		byName[q.Name] = q
	}
	return byName, nil
}

func buildResult(s Submission, t Test, questions map[string]Question) Result {
	res := Result{
		TotalQuestions:   len(s.Answers),
		CorrectAnswers:   s.CorrectAnswers(),
		Score:            s.Score,
		Passed:           s.Passed,
		PassingScore:     t.PassingScore,
		IncorrectAnswers: make([]IncorrectAnswer, 0),
	}
	for _, a := range s.Answers {
		if a.IsCorrect {
			continue
		}
		q, ok := questions[a.Question]
		if !ok {
			continue
		}
		res.IncorrectAnswers = append(res.IncorrectAnswers, IncorrectAnswer{Question: q.Review(), UserAnswer: a.SelectedOptions})
	}
	return res
}

// ResultMailData is rendered by the placement_result email template.
type ResultMailData struct {
	FullName       string
	TestTitle      string
	CorrectAnswers int
	TotalQuestions int
	Score          float64
	PassingScore   float64
	Passed         bool
	InterviewTime  string
	Submission     string
}

func (svc *Service) sendResultMail(s Submission, t Test, res Result) {
	to, bcc := core.Addresses(s.Email), svc.recipients
	if len(to) > 0 {
		to[0].Name = s.FullName
	} else {
		to, bcc = bcc, nil
	}
	if len(to) == 0 {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           to,
		Bcc:          bcc,
		Subject:      "Placement Test Result: " + t.TestTitle,
		TemplateName: "placement_result",
		TemplateData: ResultMailData{
			FullName:       s.FullName,
			TestTitle:      t.TestTitle,
			CorrectAnswers: res.CorrectAnswers,
			TotalQuestions: res.TotalQuestions,
			Score:          res.Score,
			PassingScore:   res.PassingScore,
			Passed:         res.Passed,
			InterviewTime:  s.InterviewTime,
			Submission:     s.Name,
		},
	})
}

func (svc *Service) cacheGet(ctx context.Context, key string, dst interface{}) bool {
	found, err := svc.cache.Get(ctx, key, dst)
	if err != nil {
		svc.logger.Warn("placement.cache.Get("+key+")", err)
		return false
	}
	return found
}

func (svc *Service) cacheSet(ctx context.Context, key string, value interface{}) {
	if err := svc.cache.Set(ctx, key, value); err != nil {
		svc.logger.Warn("placement.cache.Set("+key+")", err)
	}
}

// invalidate drops the cached catalogue and the cached data of `tests`.
func (svc *Service) invalidate(ctx context.Context, tests ...string) {
	keys := []string{cacheKeyTests}
	for _, t := range tests {
		keys = append(keys, cacheKeyTestPrefix+t)
	}
	if err := svc.cache.Delete(ctx, keys...); err != nil {
		svc.logger.Warn("placement.cache.Delete", err)
	}
}
