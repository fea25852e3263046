package user

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/masomo-console/core"
)

// Roles
const (
	// Admin
	RoleAdmin          = "admin:"
	RoleAdminOwner     = "admin:owner"
	RoleAdminPrincipal = "admin:principal"

	// Staff
	RoleStaff     = "staff:"
	RoleSecretary = "staff:secretary"
)

var (
	AdminRoles = []string{RoleAdmin, RoleAdminOwner, RoleAdminPrincipal}
	StaffRoles = []string{RoleStaff, RoleSecretary}
	AllRoles   = getAllRoles()

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdminOwner:     30,
		RoleAdminPrincipal: 29,
		RoleAdmin:          21,

		// Staff: 20 - 11
		RoleSecretary: 12,
		RoleStaff:     11,
	}

	Roles = []Role{
		{Name: "Staff", Value: RoleStaff},
		{Name: "Secretary", Value: RoleSecretary},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Admin Principal", Value: RoleAdminPrincipal},
		{Name: "Admin Owner", Value: RoleAdminOwner},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, len(AdminRoles)+len(StaffRoles))
	all = append(all, AdminRoles...)
	all = append(all, StaffRoles...)
	return all
}

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

// User is a console operator.
type User struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Username     string           `json:"username"`
	Email        string           `json:"email"`
	IsActive     bool             `json:"is_active"`
	Roles        []string         `json:"roles"`
	Institution  core.Institution `json:"institution"`
	PasswordHash []byte           `json:"-"`
	CreatedAt    time.Time        `json:"created_at"` // UTC
	UpdatedAt    time.Time        `json:"updated_at"` // UTC
	LastLogin    time.Time        `json:"last_login"` // UTC
}

// SearchFields are the fields an operator list search matches against.
func SearchFields(u User) []string {
	return []string{u.Name, u.Username, u.Email}
}

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

func (u *User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.RoleStartsWith(RoleAdmin)
}

func (u *User) IsStaff() bool {
	return u.RoleStartsWith(RoleStaff)
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name             string   `json:"name" validate:"required"`
	Username         string   `json:"username" validate:"omitempty,min=6,alphanum_"`
	Email            string   `json:"email" validate:"omitempty,email"`
	Password         string   `json:"password" validate:"required"`
	PasswordConfirm  string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles            []string `json:"roles" validate:"omitempty,allroles"`
	InstitutionCode  string   `json:"institution_code" validate:"required,max=32"`
	InstitutionName  string   `json:"institution_name" validate:"required"`
	InstitutionEmail string   `json:"institution_email" validate:"omitempty,email"`
}

func (nu *NewUser) Validate(ctx context.Context, svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.InstitutionCode = strings.ToUpper(core.CleanString(nu.InstitutionCode))
	nu.InstitutionName = core.CleanString(nu.InstitutionName)
	nu.InstitutionEmail = core.CleanString(nu.InstitutionEmail, true /* lower */)

	if err := core.Validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string   `json:"name"`
	Username        string   `json:"username" validate:"omitempty,min=6,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	IsActive        *bool    `json:"is_active"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
	Password        string   `json:"password" validate:"omitempty"`
	PasswordConfirm string   `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, svc *Service) error {
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

	if uu.Roles == nil {
		uu.Roles = origUsr.Roles
	}
	if uu.IsActive == nil {
		uu.IsActive = &origUsr.IsActive
	}

	if err := core.Validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, uu.Username, uu.Email, origUsr)
}

// Credentials are what an operator logs in with; Username may also be an email.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (cr *Credentials) Validate() error {
	cr.Username = core.CleanString(cr.Username, true /* lower */)
	return core.Validate.Struct(cr)
}

type SetUserPassword struct {
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`

	user User // for the similarity check
}

func (sp *SetUserPassword) Validate(usr User) error {
	sp.user = usr
	return core.Validate.Struct(sp)
}
