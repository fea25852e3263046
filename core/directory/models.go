// Package directory manages the institution's people: teachers, staff, parents and students.
package directory

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/listing"
)

// Kinds
const (
	KindTeacher = "teacher"
	KindStaff   = "staff"
	KindParent  = "parent"
	KindStudent = "student"
)

var (
	Kinds = []string{KindTeacher, KindStaff, KindParent, KindStudent}

	// OrderingFields are the fields a member list may be ordered by.
	OrderingFields = []string{"name", "email", "department", "created_at", "updated_at"}

	phoneTag   = "phone"
	phoneText  = "must be a valid phone number"
	phoneRegex = regexp.MustCompile(`^\+?[0-9][0-9 ()-]{5,19}$`)
)

func init() {
	_ = core.Validate.RegisterValidation(phoneTag, func(fl validator.FieldLevel) bool {
		return phoneRegex.MatchString(fl.Field().String())
	})
	core.RegisterCustomTranslation(core.Validate, core.Translator, phoneTag, phoneText)
}

// ParseKind accepts a kind in its singular or plural form ("teachers" for "teacher").
func ParseKind(s string) (string, bool) {
	s = strings.TrimSuffix(core.CleanString(s, true /* lower */), "s")
	for _, kind := range Kinds {
		if s == kind {
			return kind, true
		}
	}
	return "", false
}

type Member struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Department string    `json:"department"` // class for students, subject for teachers
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

// SearchFields are the fields a member list search matches against.
func SearchFields(m Member) []string {
	return []string{m.Name, m.Email, m.Phone, m.Department}
}

func MemberID(m Member) string { return m.ID }

// NewMember contains information needed to add a Member to the directory.
type NewMember struct {
	Kind       string `json:"kind" validate:"required,oneof=teacher staff parent student"`
	Name       string `json:"name" validate:"required,max=120"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone" validate:"omitempty,phone"`
	Department string `json:"department" validate:"omitempty,max=80"`
}

func (nm *NewMember) Validate(ctx context.Context, svc *Service) error {
	if kind, ok := ParseKind(nm.Kind); ok {
		nm.Kind = kind
	}
	nm.Name = core.CleanString(nm.Name)
	nm.Email = core.CleanString(nm.Email, true /* lower */)
	nm.Phone = core.CleanString(nm.Phone)
	nm.Department = core.CleanString(nm.Department)

	if err := core.Validate.Struct(nm); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nm.Kind, nm.Email)
}

// UpdateMember defines what information may be provided to modify a Member.
// Empty fields keep their current value.
type UpdateMember struct {
	Name       string `json:"name" validate:"omitempty,max=120"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone" validate:"omitempty,phone"`
	Department string `json:"department" validate:"omitempty,max=80"`
	IsActive   *bool  `json:"is_active"`
}

func (um *UpdateMember) Validate(ctx context.Context, orig Member, svc *Service) error {
	um.Name = core.CleanString(um.Name)
	um.Email = core.CleanString(um.Email, true /* lower */)
	um.Phone = core.CleanString(um.Phone)
	um.Department = core.CleanString(um.Department)

	if err := core.Validate.Struct(um); err != nil {
		return err
	}
	if um.Email == "" || um.Email == orig.Email {
		return nil
	}
	return svc.CheckUniqueness(ctx, orig.Kind, um.Email, orig)
}

// QueryFilter narrows a member list before it is searched and paginated.
type QueryFilter struct {
	Kind     string `query:"kind" validate:"omitempty,oneof=teacher staff parent student"`
	IsActive *bool  `query:"is_active"`

	listing.Query
}

func (qf *QueryFilter) Validate() error {
	if kind, ok := ParseKind(qf.Kind); ok {
		qf.Kind = kind
	}
	qf.Query.Clean()
	return core.Validate.Struct(qf)
}
