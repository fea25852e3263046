package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/masomo-console/core/announcement"
)

type announcementRepository struct {
	db *announcementTable
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(db *DB) announcement.Repository {
	return &announcementRepository{db: db.announcement}
}

func (repo *announcementRepository) CreateAnnouncement(_ context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[a.ID] = &a
	return a, nil
}

func (repo *announcementRepository) QueryAnnouncements(context.Context) ([]announcement.Announcement, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	all := make([]announcement.Announcement, 0, len(repo.db.table))
	for _, a := range repo.db.table {
		all = append(all, *a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].PublishedAt.After(all[j].PublishedAt) })
	return all, nil
}

func (repo *announcementRepository) DeleteAnnouncementsByID(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
