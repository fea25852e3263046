package sqlxdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/directory"
)

const (
	memberColumns = `id, kind, name, email, phone, department, is_active, created_at, updated_at`

	queryMemberEmailExists = `SELECT true FROM members WHERE kind = $1 AND email = $2 AND NOT (id = ANY($3)) LIMIT 1`
	queryMemberInsert      = `INSERT INTO members (` + memberColumns + `) VALUES (:id, :kind, :name, :email, :phone, :department, :is_active, :created_at, :updated_at)`
	queryMemberByID        = `SELECT ` + memberColumns + ` FROM members WHERE id = $1`
	queryMembers           = `SELECT ` + memberColumns + ` FROM members`
	queryMemberUpdate      = `UPDATE members SET name = :name, email = :email, phone = :phone, department = :department, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	queryMembersDelete     = `DELETE FROM members WHERE id = ANY($1)`
)

// memberOrderColumns maps directory.OrderingFields to SQL expressions.
var memberOrderColumns = map[string]string{
	"name":       "lower(name)",
	"email":      "email",
	"department": "lower(department)",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

type memberRow struct {
	ID         string    `db:"id"`
	Kind       string    `db:"kind"`
	Name       string    `db:"name"`
	Email      string    `db:"email"`
	Phone      string    `db:"phone"`
	Department string    `db:"department"`
	IsActive   bool      `db:"is_active"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r memberRow) toMember() directory.Member {
	m := directory.Member(r)
	m.CreatedAt = r.CreatedAt.UTC()
	m.UpdatedAt = r.UpdatedAt.UTC()
	return m
}

type memberRepository struct {
	db *sqlx.DB
}

var _ directory.Repository = (*memberRepository)(nil) // interface compliance check

func NewMemberRepository(db *sqlx.DB) directory.Repository {
	return &memberRepository{db: db}
}

func (repo *memberRepository) CheckEmailUniqueness(ctx context.Context, kind, email string, excludedMembers ...directory.Member) error {
	excl := make([]string, 0, len(excludedMembers))
	for _, m := range excludedMembers {
		excl = append(excl, m.ID)
	}
	var found bool
	err := repo.db.GetContext(ctx, &found, queryMemberEmailExists, kind, email, pq.Array(excl))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return errors.Wrap(err, "checking member email uniqueness")
	}
	return directory.ErrEmailExists
}

func (repo *memberRepository) CreateMember(ctx context.Context, m directory.Member) (directory.Member, error) {
	if _, err := repo.db.NamedExecContext(ctx, queryMemberInsert, memberRow(m)); err != nil {
		return directory.Member{}, errors.Wrap(err, "inserting member")
	}
	return m, nil
}

func (repo *memberRepository) GetMemberByID(ctx context.Context, id string) (directory.Member, error) {
	var r memberRow
	if err := repo.db.GetContext(ctx, &r, queryMemberByID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return directory.Member{}, directory.ErrNotFound
		}
		return directory.Member{}, errors.Wrap(err, "selecting member")
	}
	return r.toMember(), nil
}

// FilterMembers only pushes the kind and activity filters to the database; the search stays in memory.
func (repo *memberRepository) FilterMembers(ctx context.Context, filter directory.QueryFilter, ordering ...core.DBOrdering) ([]directory.Member, error) {
	query, args := filterMembersQuery(filter, ordering)
	var rows []memberRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "selecting members")
	}
	members := make([]directory.Member, 0, len(rows))
	for _, r := range rows {
		members = append(members, r.toMember())
	}
	return members, nil
}

func filterMembersQuery(filter directory.QueryFilter, ordering []core.DBOrdering) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		conds = append(conds, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		conds = append(conds, fmt.Sprintf("is_active = $%d", len(args)))
	}

	var sb strings.Builder
	sb.WriteString(queryMembers)
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	orderBy := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if col, ok := memberOrderColumns[ord.Field]; ok {
			orderBy = append(orderBy, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	orderBy = append(orderBy, "id ASC")
	sb.WriteString(" ORDER BY ")
	sb.WriteString(strings.Join(orderBy, ", "))
	return sb.String(), args
}

func (repo *memberRepository) UpdateMember(ctx context.Context, m directory.Member) (directory.Member, error) {
	res, err := repo.db.NamedExecContext(ctx, queryMemberUpdate, memberRow(m))
	if err != nil {
		return directory.Member{}, errors.Wrap(err, "updating member")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return directory.Member{}, directory.ErrNotFound
	}
	return m, nil
}

func (repo *memberRepository) DeleteMembersByID(ctx context.Context, ids ...string) error {
	_, err := repo.db.ExecContext(ctx, queryMembersDelete, pq.Array(ids))
	return errors.Wrap(err, "deleting members")
}
