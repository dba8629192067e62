package sqlxrepos

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/placement"
)

type (
	questionRow struct {
		Name         string         `db:"name"`
		Question     string         `db:"question"`
		QuestionType string         `db:"question_type"`
		Explanation  string         `db:"explanation"`
		Marks        int            `db:"marks"`
		Options      types.JSONText `db:"options"`
		Modified     time.Time      `db:"modified"`
	}

	testRow struct {
		Name         string         `db:"name"`
		TestTitle    string         `db:"test_title"`
		Description  string         `db:"description"`
		TimeLimit    int            `db:"time_limit"`
		PassingScore float64        `db:"passing_score"`
		IsActive     bool           `db:"is_active"`
		Questions    pq.StringArray `db:"questions"`
		Modified     time.Time      `db:"modified"`
	}

	submissionRow struct {
		Name          string         `db:"name"`
		Test          string         `db:"placement_test"`
		FullName      string         `db:"full_name"`
		DateOfBirth   core.Date      `db:"date_of_birth"`
		Email         string         `db:"email"`
		PhoneNumber   string         `db:"phone_number"`
		InterviewTime string         `db:"interview_time"`
		StartTime     time.Time      `db:"start_time"`
		EndTime       null.Time      `db:"end_time"`
		ExpiryTime    null.Time      `db:"expiry_time"`
		Status        string         `db:"status"`
		DocStatus     core.DocStatus `db:"docstatus"`
		Score         float64        `db:"score"`
		Passed        bool           `db:"passed"`
		Answers       types.JSONText `db:"answers"`
	}
)

func toQuestionRow(q placement.Question) (questionRow, error) {
	opts := q.Options
	if opts == nil {
		opts = []placement.Option{}
	}
	data, err := json.Marshal(opts)
	if err != nil {
		return questionRow{}, err
	}
	return questionRow{
		Name:         q.Name,
		Question:     q.Question,
		QuestionType: q.QuestionType,
		Explanation:  q.Explanation,
		Marks:        q.Marks,
		Options:      types.JSONText(data),
		Modified:     q.Modified.UTC(),
	}, nil
}

func (r questionRow) question() (placement.Question, error) {
	q := placement.Question{
		Name:         r.Name,
		Question:     r.Question,
		QuestionType: r.QuestionType,
		Explanation:  r.Explanation,
		Marks:        r.Marks,
		Modified:     r.Modified,
	}
	if err := r.Options.Unmarshal(&q.Options); err != nil {
		return placement.Question{}, errors.Wrapf(err, "decoding options of question %s", r.Name)
	}
	return q, nil
}

func toSubmissionRow(s placement.Submission) (submissionRow, error) {
	answers := s.Answers
	if answers == nil {
		answers = []placement.Answer{}
	}
	data, err := json.Marshal(answers)
	if err != nil {
		return submissionRow{}, err
	}
	return submissionRow{
		Name:          s.Name,
		Test:          s.Test,
		FullName:      s.FullName,
		DateOfBirth:   s.DateOfBirth,
		Email:         s.Email,
		PhoneNumber:   s.PhoneNumber,
		InterviewTime: s.InterviewTime,
		StartTime:     s.StartTime,
		EndTime:       null.TimeFromPtr(s.EndTime),
		ExpiryTime:    null.TimeFromPtr(s.ExpiryTime),
		Status:        s.Status,
		DocStatus:     s.DocStatus,
		Score:         s.Score,
		Passed:        s.Passed,
		Answers:       types.JSONText(data),
	}, nil
}

func (r submissionRow) submission() (placement.Submission, error) {
	s := placement.Submission{
		Name:          r.Name,
		Test:          r.Test,
		FullName:      r.FullName,
		DateOfBirth:   r.DateOfBirth,
		Email:         r.Email,
		PhoneNumber:   r.PhoneNumber,
		InterviewTime: r.InterviewTime,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime.Ptr(),
		ExpiryTime:    r.ExpiryTime.Ptr(),
		Status:        r.Status,
		DocStatus:     r.DocStatus,
		Score:         r.Score,
		Passed:        r.Passed,
	}
	if err := r.Answers.Unmarshal(&s.Answers); err != nil {
		return placement.Submission{}, errors.Wrapf(err, "decoding answers of submission %s", r.Name)
	}
	return s, nil
}

const (
	questionColumns   = `name, question, question_type, explanation, marks, options, modified`
	testColumns       = `name, test_title, description, time_limit, passing_score, is_active, questions, modified`
	submissionColumns = `name, placement_test, full_name, date_of_birth, email, phone_number, interview_time,
		start_time, end_time, expiry_time, status, docstatus, score, passed, answers`
)

type placementRepository struct {
	db *sqlx.DB
}

var _ placement.Repository = (*placementRepository)(nil)

func NewPlacementRepository(db *sqlx.DB) placement.Repository {
	return &placementRepository{db: db}
}

func (repo *placementRepository) CreateQuestion(ctx context.Context, q placement.Question) (placement.Question, error) {
	q.Name = uuid.NewString()
	row, err := toQuestionRow(q)
	if err != nil {
		return placement.Question{}, err
	}
	q2 := `INSERT INTO placement_question (` + questionColumns + `)
		VALUES (:name, :question, :question_type, :explanation, :marks, :options, :modified)`
	if _, err = repo.db.NamedExecContext(ctx, q2, row); err != nil {
		return placement.Question{}, errors.Wrap(err, "inserting placement question")
	}
	return q, nil
}

func (repo *placementRepository) UpdateQuestion(ctx context.Context, q placement.Question) (placement.Question, error) {
	if _, err := uuid.Parse(q.Name); err != nil {
		return placement.Question{}, placement.ErrQuestionNotFound
	}
	row, err := toQuestionRow(q)
	if err != nil {
		return placement.Question{}, err
	}
	stmt := `UPDATE placement_question SET question = :question, question_type = :question_type,
		explanation = :explanation, marks = :marks, options = :options, modified = :modified
		WHERE name = :name`
	res, err := repo.db.NamedExecContext(ctx, stmt, row)
	if err = mustAffect(res, err, placement.ErrQuestionNotFound); err != nil {
		return placement.Question{}, err
	}
	return q, nil
}

func (repo *placementRepository) getQuestion(ctx context.Context, where string, arg interface{}) (placement.Question, error) {
	var r questionRow
	if err := repo.db.GetContext(ctx, &r, `SELECT `+questionColumns+` FROM placement_question WHERE `+where+` LIMIT 1`, arg); err != nil {
		return placement.Question{}, getOr(err, placement.ErrQuestionNotFound)
	}
	return r.question()
}

func (repo *placementRepository) GetQuestion(ctx context.Context, name string) (placement.Question, error) {
	if _, err := uuid.Parse(name); err != nil {
		return placement.Question{}, placement.ErrQuestionNotFound
	}
	return repo.getQuestion(ctx, "name = $1", name)
}

func (repo *placementRepository) FindQuestionByText(ctx context.Context, text string) (placement.Question, error) {
	return repo.getQuestion(ctx, "md5(question) = md5($1) AND question = $1", text)
}

func (repo *placementRepository) GetQuestions(ctx context.Context, names []string) ([]placement.Question, error) {
	questions := make([]placement.Question, 0, len(names))
	ids := make([]string, 0, len(names))
	for _, name := range names {
		if _, err := uuid.Parse(name); err == nil {
			ids = append(ids, name)
		}
	}
	if len(ids) == 0 {
		return questions, nil
	}

	var rows []questionRow
	q := `SELECT ` + questionColumns + ` FROM placement_question WHERE name = ANY($1::uuid[])`
	if err := repo.db.SelectContext(ctx, &rows, q, pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "querying placement questions")
	}
	byName := make(map[string]placement.Question, len(rows))
	for _, r := range rows {
		qn, err := r.question()
		if err != nil {
			return nil, err
		}
		byName[qn.Name] = qn
	}
	for _, name := range names {
		if qn, ok := byName[name]; ok {
			questions = append(questions, qn)
		}
	}
	return questions, nil
}

func (repo *placementRepository) CreateTest(ctx context.Context, t placement.Test) (placement.Test, error) {
	if t.Name == "" {
		t.Name = uuid.NewString()
	}
	q := `INSERT INTO placement_test (` + testColumns + `)
		VALUES (:name, :test_title, :description, :time_limit, :passing_score, :is_active, :questions, :modified)`
	if _, err := repo.db.NamedExecContext(ctx, q, toTestRow(t)); err != nil {
		if isUniqueViolation(err) {
			return placement.Test{}, placement.ErrTestExists
		}
		return placement.Test{}, errors.Wrap(err, "inserting placement test")
	}
	return t, nil
}

func toTestRow(t placement.Test) testRow {
	questions := t.Questions
	if questions == nil {
		questions = []string{}
	}
	return testRow{
		Name:         t.Name,
		TestTitle:    t.TestTitle,
		Description:  t.Description,
		TimeLimit:    t.TimeLimit,
		PassingScore: t.PassingScore,
		IsActive:     t.IsActive,
		Questions:    questions,
		Modified:     t.Modified.UTC(),
	}
}

func (r testRow) test() placement.Test {
	return placement.Test{
		Name:         r.Name,
		TestTitle:    r.TestTitle,
		Description:  r.Description,
		TimeLimit:    r.TimeLimit,
		PassingScore: r.PassingScore,
		IsActive:     r.IsActive,
		Questions:    append(make([]string, 0, len(r.Questions)), r.Questions...),
		Modified:     r.Modified,
	}
}

func (repo *placementRepository) UpdateTest(ctx context.Context, t placement.Test) (placement.Test, error) {
	q := `UPDATE placement_test SET test_title = :test_title, description = :description, time_limit = :time_limit,
		passing_score = :passing_score, is_active = :is_active, questions = :questions, modified = :modified
		WHERE name = :name`
	res, err := repo.db.NamedExecContext(ctx, q, toTestRow(t))
	if err = mustAffect(res, err, placement.ErrTestNotFound); err != nil {
		return placement.Test{}, err
	}
	return t, nil
}

func (repo *placementRepository) GetTest(ctx context.Context, name string) (placement.Test, error) {
	var r testRow
	if err := repo.db.GetContext(ctx, &r, `SELECT `+testColumns+` FROM placement_test WHERE name = $1`, name); err != nil {
		return placement.Test{}, getOr(err, placement.ErrTestNotFound)
	}
	return r.test(), nil
}

func (repo *placementRepository) QueryTests(ctx context.Context, activeOnly bool) ([]placement.Test, error) {
	var rows []testRow
	q := `SELECT ` + testColumns + ` FROM placement_test`
	if activeOnly {
		q += ` WHERE is_active`
	}
	q += ` ORDER BY modified DESC`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying placement tests")
	}
	tests := make([]placement.Test, 0, len(rows))
	for _, r := range rows {
		tests = append(tests, r.test())
	}
	return tests, nil
}

func (repo *placementRepository) QueryTestsByQuestion(ctx context.Context, question string) ([]string, error) {
	names := make([]string, 0)
	q := `SELECT name FROM placement_test WHERE $1 = ANY(questions) ORDER BY name`
	if err := repo.db.SelectContext(ctx, &names, q, question); err != nil {
		return nil, errors.Wrap(err, "querying placement tests by question")
	}
	return names, nil
}

func (repo *placementRepository) CreateSubmission(ctx context.Context, s placement.Submission) (placement.Submission, error) {
	s.Name = uuid.NewString()
	row, err := toSubmissionRow(s)
	if err != nil {
		return placement.Submission{}, err
	}
	q := `INSERT INTO placement_submission (` + submissionColumns + `)
		VALUES (:name, :placement_test, :full_name, :date_of_birth, :email, :phone_number, :interview_time,
		:start_time, :end_time, :expiry_time, :status, :docstatus, :score, :passed, :answers)`
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == "23503" {
			return placement.Submission{}, placement.ErrTestNotFound
		}
		return placement.Submission{}, errors.Wrap(err, "inserting placement submission")
	}
	return s, nil
}

func (repo *placementRepository) GetSubmission(ctx context.Context, name string) (placement.Submission, error) {
	if _, err := uuid.Parse(name); err != nil {
		return placement.Submission{}, placement.ErrSubmissionNotFound
	}
	var r submissionRow
	if err := repo.db.GetContext(ctx, &r, `SELECT `+submissionColumns+` FROM placement_submission WHERE name = $1`, name); err != nil {
		return placement.Submission{}, getOr(err, placement.ErrSubmissionNotFound)
	}
	return r.submission()
}

func (repo *placementRepository) UpdateSubmission(ctx context.Context, s placement.Submission) (placement.Submission, error) {
	if _, err := uuid.Parse(s.Name); err != nil {
		return placement.Submission{}, placement.ErrSubmissionNotFound
	}
	row, err := toSubmissionRow(s)
	if err != nil {
		return placement.Submission{}, err
	}
	q := `UPDATE placement_submission SET full_name = :full_name, date_of_birth = :date_of_birth, email = :email,
		phone_number = :phone_number, interview_time = :interview_time, start_time = :start_time,
		end_time = :end_time, expiry_time = :expiry_time, status = :status, docstatus = :docstatus,
		score = :score, passed = :passed, answers = :answers
		WHERE name = :name`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err = mustAffect(res, err, placement.ErrSubmissionNotFound); err != nil {
		return placement.Submission{}, err
	}
	return s, nil
}

func (repo *placementRepository) QuerySubmissions(ctx context.Context, filter placement.SubmissionFilter) ([]placement.Submission, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if filter.Test != "" {
		where = append(where, "placement_test = "+arg(filter.Test))
	}
	if filter.Status != "" {
		where = append(where, "status = "+arg(filter.Status))
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		p := arg("%" + search + "%")
		where = append(where, "(lower(full_name) LIKE "+p+" OR email LIKE "+p+")")
	}

	q := `SELECT ` + submissionColumns + ` FROM placement_submission`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY start_time DESC`

	var rows []submissionRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying placement submissions")
	}
	subs := make([]placement.Submission, 0, len(rows))
	for _, r := range rows {
		s, err := r.submission()
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, nil
}

func (repo *placementRepository) ExpireSubmissions(ctx context.Context, now time.Time) (int, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE placement_submission SET status = $1 WHERE status = $2 AND docstatus = $3 AND expiry_time < $4`,
		placement.StatusExpired, placement.StatusInProgress, core.DocDraft, now,
	)
	if err != nil {
		return 0, errors.Wrap(err, "expiring placement submissions")
	}
	n, err := res.RowsAffected()
	return int(n), err
}
