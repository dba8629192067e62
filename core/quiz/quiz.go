package quiz

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/user"
)

// Availability statuses
const (
	StatusOpen     = "open"
	StatusUpcoming = "upcoming"
	StatusExpired  = "expired"
)

const availableOnLayout = "Jan 2, 2006 15:04"

var (
	// errors
	ErrNotFound   = core.NewNotFoundError("quiz")
	ErrExists     = errors.New("a quiz with this name already exists")
	ErrNotAllowed = core.NewPermissionError("You are not allowed to manage quizzes.")
)

// Quiz is an assessment that may only be taken within an availability window.
type Quiz struct {
	Name           string     `json:"name"`
	Title          string     `json:"title"`
	AvailableFrom  *time.Time `json:"available_from"`
	AvailableUntil *time.Time `json:"available_until"`
}

// Availability tells whether a user can see and start a quiz.
type Availability struct {
	Quiz           string     `json:"quiz"`
	Title          string     `json:"title"`
	AvailableFrom  *time.Time `json:"available_from"`
	AvailableUntil *time.Time `json:"available_until"`
	Status         string     `json:"status"`
	Message        *string    `json:"message"`
	CanView        bool       `json:"can_view"`
	CanStart       bool       `json:"can_start"`
	IsStaff        bool       `json:"is_staff"`
}

// NewQuiz contains information needed to create or replace a Quiz.
type NewQuiz struct {
	Name           string     `json:"name" validate:"required,slug,max=140"`
	Title          string     `json:"title" validate:"required,max=140"`
	AvailableFrom  *time.Time `json:"available_from"`
	AvailableUntil *time.Time `json:"available_until"`
}

func (nq *NewQuiz) Validate(validate *validator.Validate) error {
	nq.Name = core.CleanString(nq.Name, true /* lower */)
	nq.Title = core.CleanString(nq.Title)
	if err := validate.Struct(nq); err != nil {
		return err
	}
	if nq.AvailableFrom != nil && nq.AvailableUntil != nil && nq.AvailableUntil.Before(*nq.AvailableFrom) {
		return core.NewValidationError(
			errors.New("invalid availability window"),
			core.FieldError{Field: "available_until", Error: "must be after available_from"},
		)
	}
	return nil
}

type Repository interface {
	CreateQuiz(ctx context.Context, q Quiz) (Quiz, error)
	UpdateQuiz(ctx context.Context, q Quiz) (Quiz, error)
	GetQuiz(ctx context.Context, name string) (Quiz, error)
}

// UserCanManageQuizzes tells whether `usr` bypasses availability windows.
func UserCanManageQuizzes(usr user.User) bool {
	if usr.IsGuest() {
		return false
	}
	return usr.IsAdministrator() || usr.HasAnyRole(user.QuizStaffRoles...)
}

// GetAvailability computes the availability of `q` for `usr` at `now`.
// Staff can always view and start quizzes.
func GetAvailability(q Quiz, usr user.User, now time.Time) Availability {
	av := Availability{
		Quiz:           q.Name,
		Title:          q.Title,
		AvailableFrom:  q.AvailableFrom,
		AvailableUntil: q.AvailableUntil,
		Status:         StatusOpen,
		CanView:        true,
		CanStart:       true,
		IsStaff:        UserCanManageQuizzes(usr),
	}
	if av.IsStaff {
		return av
	}

	switch {
	case q.AvailableFrom != nil && now.Before(*q.AvailableFrom):
		msg := "This quiz will be available on " + q.AvailableFrom.Format(availableOnLayout)
		av.Status, av.Message = StatusUpcoming, &msg
		av.CanView, av.CanStart = false, false
	case q.AvailableUntil != nil && now.After(*q.AvailableUntil):
		msg := "This quiz is no longer available"
		av.Status, av.Message = StatusExpired, &msg
		av.CanView, av.CanStart = false, false
	}
	return av
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) (*Service, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
	).Check(); err != nil {
		return nil, err
	}
	return &Service{repo: repo}, nil
}

func (svc *Service) GetAvailability(ctx context.Context, name string, usr user.User) (Availability, error) {
	q, err := svc.repo.GetQuiz(ctx, name)
	if err != nil {
		return Availability{}, err
	}
	return GetAvailability(q, usr, core.NowFunc()), nil
}

// EnsureCanStart fails with a PermissionError carrying the availability message when `usr` cannot start the quiz.
func (svc *Service) EnsureCanStart(ctx context.Context, name string, usr user.User) (Availability, error) {
	av, err := svc.GetAvailability(ctx, name, usr)
	if err != nil {
		return Availability{}, err
	}
	if !av.CanStart {
		msg := ""
		if av.Message != nil {
			msg = *av.Message
		}
		return av, core.NewPermissionError("%s", msg)
	}
	return av, nil
}

func (svc *Service) Create(ctx context.Context, actor user.User, nq NewQuiz) (Quiz, error) {
	if !UserCanManageQuizzes(actor) {
		return Quiz{}, ErrNotAllowed
	}
	q, err := svc.repo.CreateQuiz(ctx, Quiz{
		Name:           nq.Name,
		Title:          nq.Title,
		AvailableFrom:  nq.AvailableFrom,
		AvailableUntil: nq.AvailableUntil,
	})
	if err == ErrExists {
		return Quiz{}, core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
	}
	return q, errors.Wrap(err, "creating quiz")
}

// Update replaces the title and availability window of a quiz.
func (svc *Service) Update(ctx context.Context, actor user.User, name string, nq NewQuiz) (Quiz, error) {
	if !UserCanManageQuizzes(actor) {
		return Quiz{}, ErrNotAllowed
	}
	q, err := svc.repo.GetQuiz(ctx, name)
	if err != nil {
		return Quiz{}, err
	}
	q.Title = nq.Title
	q.AvailableFrom = nq.AvailableFrom
	q.AvailableUntil = nq.AvailableUntil
	q, err = svc.repo.UpdateQuiz(ctx, q)
	return q, errors.Wrap(err, "updating quiz")
}
