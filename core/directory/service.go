package directory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/listing"
)

var (
	// errors
	ErrNotFound    = errors.New("member not found")
	ErrEmailExists = errors.New("a member with this email already exists")
)

type (
	Repository interface {
		// CheckEmailUniqueness checks the email among the members of the same kind.
		CheckEmailUniqueness(ctx context.Context, kind, email string, excludedMembers ...Member) error
		CreateMember(ctx context.Context, m Member) (Member, error)
		GetMemberByID(ctx context.Context, id string) (Member, error)
		// FilterMembers applies AND operation on QueryFilter.Kind and QueryFilter.IsActive; the search
		// and pagination are left to the caller.
		FilterMembers(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Member, error)
		UpdateMember(ctx context.Context, m Member) (Member, error)
		DeleteMembersByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckUniqueness(ctx context.Context, kind, email string, excl ...Member) error {
	if email == "" {
		return nil
	}
	if err := svc.repo.CheckEmailUniqueness(ctx, kind, email, excl...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nm NewMember) (Member, error) {
	now := core.NowFunc().UTC()
	return svc.repo.CreateMember(ctx, Member{
		ID:         uuid.NewString(),
		Kind:       nm.Kind,
		Name:       nm.Name,
		Email:      nm.Email,
		Phone:      nm.Phone,
		Department: nm.Department,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

func (svc *Service) GetByID(ctx context.Context, id string) (Member, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Member{}, ErrNotFound
	}
	return svc.repo.GetMemberByID(ctx, id)
}

// List returns the requested page of the filtered, searched member list.
func (svc *Service) List(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) (listing.View[Member], error) {
	if err := ValidateOrdering(ordering); err != nil {
		return listing.View[Member]{}, err
	}
	members, err := svc.repo.FilterMembers(ctx, filter, ordering...)
	if err != nil {
		return listing.View[Member]{}, err
	}
	found := listing.Filter(members, filter.Search, SearchFields)
	return listing.NewView(listing.Paginate(found, filter.Page, filter.PerPage)), nil
}

func (svc *Service) Update(ctx context.Context, orig Member, um UpdateMember) (Member, error) {
	m := orig
	if um.Name != "" {
		m.Name = um.Name
	}
	if um.Email != "" {
		m.Email = um.Email
	}
	if um.Phone != "" {
		m.Phone = um.Phone
	}
	if um.Department != "" {
		m.Department = um.Department
	}
	if um.IsActive != nil {
		m.IsActive = *um.IsActive
	}
	m.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateMember(ctx, m)
}

// Delete removes the members with the given ids; unknown ids are ignored.
func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	valid := core.ValidIDs(ids)
	if len(valid) == 0 {
		return nil
	}
	return svc.repo.DeleteMembersByID(ctx, valid...)
}

// Recipients returns the active members of kinds that have an email address.
func (svc *Service) Recipients(ctx context.Context, kinds ...string) ([]Member, error) {
	active := true
	var recipients []Member
	for _, kind := range kinds {
		members, err := svc.repo.FilterMembers(ctx, QueryFilter{Kind: kind, IsActive: &active}, core.DBOrdering{Field: "name", Ascending: true})
		if err != nil {
			return nil, errors.Wrapf(err, "querying %s members", kind)
		}
		for _, m := range members {
			if m.Email != "" {
				recipients = append(recipients, m)
			}
		}
	}
	return recipients, nil
}

// ValidateOrdering rejects fields that are not in OrderingFields.
func ValidateOrdering(ordering []core.DBOrdering) error {
	for _, ord := range ordering {
		var ok bool
		for _, fld := range OrderingFields {
			if ord.Field == fld {
				ok = true
				break
			}
		}
		if !ok {
			return core.NewValidationError(nil, core.FieldError{
				Field: "ordering",
				Error: "must be one of: " + strings.Join(OrderingFields, " "),
			})
		}
	}
	return nil
}

// Sort orders members in place, by name when ordering is empty. Ties are broken by id.
func Sort(members []Member, ordering ...core.DBOrdering) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	sort.SliceStable(members, func(i, j int) bool {
		for _, ord := range ordering {
			cmp := compare(members[i], members[j], ord.Field)
			if cmp == 0 {
				continue
			}
			if ord.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return members[i].ID < members[j].ID
	})
}

func compare(a, b Member, field string) int {
	switch field {
	case "email":
		return strings.Compare(a.Email, b.Email)
	case "department":
		return strings.Compare(strings.ToLower(a.Department), strings.ToLower(b.Department))
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	}
}
