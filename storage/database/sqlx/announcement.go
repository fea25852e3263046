package sqlxdb

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core/announcement"
)

const (
	announcementColumns = `id, title, body, audience, author_id, recipients, published_at`

	queryAnnouncementInsert  = `INSERT INTO announcements (` + announcementColumns + `) VALUES (:id, :title, :body, :audience, :author_id, :recipients, :published_at)`
	queryAnnouncements       = `SELECT ` + announcementColumns + ` FROM announcements ORDER BY published_at DESC`
	queryAnnouncementsDelete = `DELETE FROM announcements WHERE id = ANY($1)`
)

type announcementRow struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Body        string         `db:"body"`
	Audience    string         `db:"audience"`
	AuthorID    sql.NullString `db:"author_id"`
	Recipients  int            `db:"recipients"`
	PublishedAt time.Time      `db:"published_at"`
}

type announcementRepository struct {
	db *sqlx.DB
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(db *sqlx.DB) announcement.Repository {
	return &announcementRepository{db: db}
}

func (repo *announcementRepository) CreateAnnouncement(ctx context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	row := announcementRow{
		ID:          a.ID,
		Title:       a.Title,
		Body:        a.Body,
		Audience:    a.Audience,
		AuthorID:    sql.NullString{String: a.AuthorID, Valid: a.AuthorID != ""},
		Recipients:  a.Recipients,
		PublishedAt: a.PublishedAt,
	}
	if _, err := repo.db.NamedExecContext(ctx, queryAnnouncementInsert, row); err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "inserting announcement")
	}
	return a, nil
}

func (repo *announcementRepository) QueryAnnouncements(ctx context.Context) ([]announcement.Announcement, error) {
	var rows []announcementRow
	if err := repo.db.SelectContext(ctx, &rows, queryAnnouncements); err != nil {
		return nil, errors.Wrap(err, "selecting announcements")
	}
	all := make([]announcement.Announcement, 0, len(rows))
	for _, r := range rows {
		all = append(all, announcement.Announcement{
			ID:          r.ID,
			Title:       r.Title,
			Body:        r.Body,
			Audience:    r.Audience,
			AuthorID:    r.AuthorID.String,
			Recipients:  r.Recipients,
			PublishedAt: r.PublishedAt.UTC(),
		})
	}
	return all, nil
}

func (repo *announcementRepository) DeleteAnnouncementsByID(ctx context.Context, ids ...string) error {
	_, err := repo.db.ExecContext(ctx, queryAnnouncementsDelete, pq.Array(ids))
	return errors.Wrap(err, "deleting announcements")
}
