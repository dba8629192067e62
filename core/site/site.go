package site

import (
	"context"
	"regexp"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/user"
)

// DisabledPageLocation is where visitors of a disabled page are sent.
const DisabledPageLocation = "/404"

var (
	// errors
	ErrNotFound     = core.NewNotFoundError("settings")
	ErrPageDisabled = core.NewNotFoundError("page")
	ErrNotAllowed   = core.NewPermissionError("You are not allowed to manage website settings.")
)

// About holds the "About Us" page settings.
type About struct {
	PageTitle           string  `json:"page_title"`
	CompanyIntroduction *string `json:"company_introduction"`
	IsDisabled          bool    `json:"is_disabled"`
}

// Contact holds the "Contact Us" page settings.
type Contact struct {
	Heading      string `json:"heading"`
	Introduction string `json:"introduction"`
	QueryOptions string `json:"query_options"`
	AddressTitle string `json:"address_title"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	State        string `json:"state"`
	Pincode      string `json:"pincode"`
	Country      string `json:"country"`
	Phone        string `json:"phone"`
	EmailID      string `json:"email_id"`
	Skype        string `json:"skype"`
}

type (
	// PlacementLanding is the context of the placement test landing page.
	PlacementLanding struct {
		Title  string  `json:"title"`
		Levels []Level `json:"levels"`
	}

	Level struct {
		Name        string `json:"name"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
		Color       string `json:"color"`
	}
)

var placementLanding = PlacementLanding{
	Title: "Placement Test",
	Levels: []Level{
		{
			Name:        "beginner",
			Title:       "Beginner",
			Description: "New to the language? Start here to build a strong foundation.",
			Icon:        "seedling",
			Color:       "primary",
		},
		{
			Name:        "intermediate",
			Title:       "Intermediate",
			Description: "Have some knowledge? Test your skills and see where you stand.",
			Icon:        "chart-line",
			Color:       "warning",
		},
		{
			Name:        "advanced",
			Title:       "Advanced",
			Description: "Confident in your skills? Challenge yourself with advanced questions.",
			Icon:        "trophy",
			Color:       "success",
		},
	},
}

// Redirect sends requests matching Source to Target.
// The query string is only part of the match when MatchWithQueryString is set.
type Redirect struct {
	Source               *regexp.Regexp
	Target               string
	MatchWithQueryString bool
}

// Redirects are the legacy website routes moved under /lms.
var Redirects = []Redirect{
	{Source: regexp.MustCompile(`^/update-profile$`), Target: "/edit-profile"},
	{Source: regexp.MustCompile(`^/courses$`), Target: "/lms/courses"},
	{Source: regexp.MustCompile(`^/courses/.*$`), Target: "/lms/courses"},
	{Source: regexp.MustCompile(`^/batches$`), Target: "/lms/batches"},
	{Source: regexp.MustCompile(`^/batches/(.*)$`), Target: "/lms/batches", MatchWithQueryString: true},
	{Source: regexp.MustCompile(`^/job-openings$`), Target: "/lms/job-openings"},
	{Source: regexp.MustCompile(`^/job-openings/(.*)$`), Target: "/lms/job-openings", MatchWithQueryString: true},
	{Source: regexp.MustCompile(`^/statistics$`), Target: "/lms/statistics"},
}

// ResolveRedirect returns the target of the first redirect matching `path`.
func ResolveRedirect(path, rawQuery string) (string, bool) {
	for _, r := range Redirects {
		subject := path
		if r.MatchWithQueryString && rawQuery != "" {
			subject = path + "?" + rawQuery
		}
		if r.Source.MatchString(subject) {
			return r.Target, true
		}
	}
	return "", false
}

type Repository interface {
	GetAbout(ctx context.Context) (About, error)
	SaveAbout(ctx context.Context, a About) error
	GetContact(ctx context.Context) (Contact, error)
	SaveContact(ctx context.Context, c Contact) error
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

// AboutPage returns the about page settings; defaults are used until they are saved.
func (svc *Service) AboutPage(ctx context.Context) (About, error) {
	a, err := svc.repo.GetAbout(ctx)
	switch {
	case err == ErrNotFound:
		return About{PageTitle: "About Us"}, nil
	case err != nil:
		return About{}, errors.Wrap(err, "loading about settings")
	case a.IsDisabled:
		return About{}, ErrPageDisabled
	}
	return a, nil
}

// ContactPage returns the contact page settings; the heading defaults to "Contact Us".
func (svc *Service) ContactPage(ctx context.Context) (Contact, error) {
	c, err := svc.repo.GetContact(ctx)
	if err != nil && err != ErrNotFound {
		return Contact{}, errors.Wrap(err, "loading contact settings")
	}
	if c.Heading == "" {
		c.Heading = "Contact Us"
	}
	return c, nil
}

func (svc *Service) PlacementLanding() PlacementLanding {
	return placementLanding
}

func (svc *Service) UpdateAbout(ctx context.Context, actor user.User, a About) (About, error) {
	if !actor.IsAdmin() {
		return About{}, ErrNotAllowed
	}
	a.PageTitle = core.CleanString(a.PageTitle)
	if a.PageTitle == "" {
		a.PageTitle = "About Us"
	}
	return a, errors.Wrap(svc.repo.SaveAbout(ctx, a), "saving about settings")
}

func (svc *Service) UpdateContact(ctx context.Context, actor user.User, c Contact) (Contact, error) {
	if !actor.IsAdmin() {
		return Contact{}, ErrNotAllowed
	}
	c.Heading = core.CleanString(c.Heading)
	return c, errors.Wrap(svc.repo.SaveContact(ctx, c), "saving contact settings")
}
