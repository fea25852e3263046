package inmemdb

import (
	"context"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/directory"
)

type memberRepository struct {
	db *memberTable
}

var _ directory.Repository = (*memberRepository)(nil) // interface compliance check

func NewMemberRepository(db *DB) directory.Repository {
	return &memberRepository{db: db.member}
}

func (repo *memberRepository) CheckEmailUniqueness(_ context.Context, kind, email string, excludedMembers ...directory.Member) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

outer:
	for _, m := range repo.db.table {
		if m.Kind != kind || m.Email != email {
			continue
		}
		for _, excl := range excludedMembers {
			if excl.ID == m.ID {
				continue outer
			}
		}
		return directory.ErrEmailExists
	}
	return nil
}

func (repo *memberRepository) CreateMember(_ context.Context, m directory.Member) (directory.Member, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[m.ID] = &m
	return m, nil
}

func (repo *memberRepository) GetMemberByID(_ context.Context, id string) (directory.Member, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if m, ok := repo.db.table[id]; ok {
		return *m, nil
	}
	return directory.Member{}, directory.ErrNotFound
}

func (repo *memberRepository) FilterMembers(_ context.Context, filter directory.QueryFilter, ordering ...core.DBOrdering) ([]directory.Member, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	members := make([]directory.Member, 0, len(repo.db.table))
	for _, m := range repo.db.table {
		if filter.Kind != "" && m.Kind != filter.Kind {
			continue
		}
		if filter.IsActive != nil && m.IsActive != *filter.IsActive {
			continue
		}
		members = append(members, *m)
	}
	directory.Sort(members, ordering...)
	return members, nil
}

func (repo *memberRepository) UpdateMember(_ context.Context, m directory.Member) (directory.Member, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[m.ID]; !ok {
		return directory.Member{}, directory.ErrNotFound
	}
	repo.db.table[m.ID] = &m
	return m, nil
}

func (repo *memberRepository) DeleteMembersByID(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
