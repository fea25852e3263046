// Package inmemdb is the in-memory storage of the API, used in DEV and tests.
package inmemdb

import (
	"sync"

	"github.com/trezcool/masomo-console/core/announcement"
	"github.com/trezcool/masomo-console/core/directory"
	"github.com/trezcool/masomo-console/core/user"
)

type (
	DB struct {
		user         *userTable
		member       *memberTable
		announcement *announcementTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	memberTable struct {
		sync.RWMutex
		table map[string]*directory.Member
	}

	announcementTable struct {
		sync.RWMutex
		table map[string]*announcement.Announcement
	}
)

func Open() *DB {
	return &DB{
		user:         &userTable{table: make(map[string]*user.User)},
		member:       &memberTable{table: make(map[string]*directory.Member)},
		announcement: &announcementTable{table: make(map[string]*announcement.Announcement)},
	}
}
