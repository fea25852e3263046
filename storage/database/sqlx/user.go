// Package sqlxdb holds the Postgres repositories.
package sqlxdb

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/user"
)

const (
	userColumns = `id, name, username, email, is_active, roles, institution_code, institution_name, institution_email, password_hash, created_at, updated_at, last_login`

	queryUserUniqueness = `SELECT username, email FROM users WHERE ((username = $1 AND $1 <> '') OR (email = $2 AND $2 <> '')) AND NOT (id = ANY($3)) LIMIT 1`
	queryUserInsert     = `INSERT INTO users (` + userColumns + `) VALUES (:id, :name, :username, :email, :is_active, :roles, :institution_code, :institution_name, :institution_email, :password_hash, :created_at, :updated_at, :last_login)`
	queryUsers          = `SELECT ` + userColumns + ` FROM users ORDER BY created_at`
	queryUserByID       = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	queryUserByLogin    = `SELECT ` + userColumns + ` FROM users WHERE (username = $1 OR email = $1) AND $1 <> '' LIMIT 1`
	queryUserUpdate     = `UPDATE users SET name = :name, username = :username, email = :email, is_active = :is_active, roles = :roles, password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login WHERE id = :id`
	queryUsersDelete    = `DELETE FROM users WHERE id = ANY($1)`
)

type userRow struct {
	ID               string         `db:"id"`
	Name             string         `db:"name"`
	Username         string         `db:"username"`
	Email            string         `db:"email"`
	IsActive         bool           `db:"is_active"`
	Roles            pq.StringArray `db:"roles"`
	InstitutionCode  string         `db:"institution_code"`
	InstitutionName  string         `db:"institution_name"`
	InstitutionEmail string         `db:"institution_email"`
	PasswordHash     []byte         `db:"password_hash"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
	LastLogin        sql.NullTime   `db:"last_login"`
}

func toUserRow(usr user.User) userRow {
	roles := usr.Roles
	if roles == nil {
		roles = []string{}
	}
	return userRow{
		ID:               usr.ID,
		Name:             usr.Name,
		Username:         usr.Username,
		Email:            usr.Email,
		IsActive:         usr.IsActive,
		Roles:            roles,
		InstitutionCode:  usr.Institution.Code,
		InstitutionName:  usr.Institution.Name,
		InstitutionEmail: usr.Institution.Email,
		PasswordHash:     usr.PasswordHash,
		CreatedAt:        usr.CreatedAt,
		UpdatedAt:        usr.UpdatedAt,
		LastLogin:        sql.NullTime{Time: usr.LastLogin, Valid: !usr.LastLogin.IsZero()},
	}
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:       r.ID,
		Name:     r.Name,
		Username: r.Username,
		Email:    r.Email,
		IsActive: r.IsActive,
		Roles:    r.Roles,
		Institution: core.Institution{
			Code:  r.InstitutionCode,
			Name:  r.InstitutionName,
			Email: r.InstitutionEmail,
		},
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	excl := make([]string, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		excl = append(excl, usr.ID)
	}

	var found struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	err := repo.db.GetContext(ctx, &found, queryUserUniqueness, username, email, pq.Array(excl))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return errors.Wrap(err, "checking username uniqueness")
	case username != "" && found.Username == username:
		return user.ErrUsernameExists
	default:
		return user.ErrEmailExists
	}
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if _, err := repo.db.NamedExecContext(ctx, queryUserInsert, toUserRow(usr)); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, queryUsers); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

func (repo *userRepository) getOne(ctx context.Context, query string, arg interface{}) (user.User, error) {
	var r userRow
	if err := repo.db.GetContext(ctx, &r, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return r.toUser(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.getOne(ctx, queryUserByID, id)
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	return repo.getOne(ctx, queryUserByLogin, username)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	res, err := repo.db.NamedExecContext(ctx, queryUserUpdate, toUserRow(usr))
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	_, err := repo.db.ExecContext(ctx, queryUsersDelete, pq.Array(ids))
	return errors.Wrap(err, "deleting users")
}
