package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/masomo-lms/core"
)

// Roles
const (
	RoleAdministrator = "Administrator"
	RoleSystemManager = "System Manager"

	// staff
	RoleModerator     = "Moderator"
	RoleCourseCreator = "Course Creator"

	// instructors
	RoleInstructor    = "Instructor"
	RoleLMSInstructor = "LMS Instructor"

	// placement tests
	RolePlacementTestManager = "Placement Test Manager"
	RolePlacementTestTaker   = "Placement Test Taker"

	// learners
	RoleStudent = "LMS Student"
)

var (
	AdminRoles = []string{RoleAdministrator, RoleSystemManager}
	AllRoles   = []string{
		RoleAdministrator, RoleSystemManager, RoleModerator, RoleCourseCreator, RoleInstructor,
		RoleLMSInstructor, RolePlacementTestManager, RolePlacementTestTaker, RoleStudent,
	}

	// AttendanceRoles may take attendance; AttendanceAdminRoles may also reopen submitted attendance.
	AttendanceRoles      = []string{RoleAdministrator, RoleModerator, RoleInstructor, RoleLMSInstructor}
	AttendanceAdminRoles = []string{RoleAdministrator, RoleModerator}

	// GradingAdminRoles may manage grades of any batch.
	GradingAdminRoles = []string{RoleAdministrator, RoleSystemManager}

	// QuizStaffRoles bypass quiz availability windows.
	QuizStaffRoles = []string{RoleSystemManager, RoleModerator, RoleCourseCreator}

	PlacementManagerRoles = []string{RoleAdministrator, RoleSystemManager, RolePlacementTestManager}

	// BatchManagerRoles may create batches, enroll students and assign instructors.
	BatchManagerRoles = []string{RoleAdministrator, RoleSystemManager, RoleModerator}

	rolePriorities = map[string]int{
		RoleAdministrator:        100,
		RoleSystemManager:        90,
		RoleModerator:            70,
		RoleCourseCreator:        60,
		RolePlacementTestManager: 50,
		RoleInstructor:           40,
		RoleLMSInstructor:        40,
		RolePlacementTestTaker:   10,
		RoleStudent:              10,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Placement Test Taker", Value: RolePlacementTestTaker},
		{Name: "Instructor", Value: RoleInstructor},
		{Name: "LMS Instructor", Value: RoleLMSInstructor},
		{Name: "Placement Test Manager", Value: RolePlacementTestManager},
		{Name: "Course Creator", Value: RoleCourseCreator},
		{Name: "Moderator", Value: RoleModerator},
		{Name: "System Manager", Value: RoleSystemManager},
		{Name: "Administrator", Value: RoleAdministrator},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	IsActive     bool      `json:"is_active"`
	Roles        []string  `json:"roles"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

// Guest is the anonymous user.
var Guest = User{}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// DisplayName is the name shown on rosters.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

func (u User) IsGuest() bool {
	return u.ID == ""
}

func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (u User) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}

func (u User) IsAdministrator() bool {
	return u.HasRole(RoleAdministrator)
}

func (u User) IsAdmin() bool {
	return u.HasAnyRole(AdminRoles...)
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string   `json:"name" validate:"required"`
	Username        string   `json:"username" validate:"omitempty,min=3,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string   `json:"name"`
	Username        string   `json:"username" validate:"omitempty,min=3,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	IsActive        *bool    `json:"is_active"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
	Password        string   `json:"password" validate:"omitempty"`
	PasswordConfirm string   `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc Service) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}
	if uname := core.CleanString(uu.Username, true /* lower */); uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, uu.Username, uu.Email, origUsr)
}

type ResetUserPassword struct {
	Token           string `json:"token" validate:"required"`
	UID             string `json:"uid" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (rp *ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

type QueryFilter struct {
	Search   string   `query:"search"`
	Roles    []string `query:"role"`
	IsActive *bool    `query:"is_active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && len(qf.Roles) == 0 && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter selects a single User; the first non-empty field wins.
type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail string
}
