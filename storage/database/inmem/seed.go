package inmemdb

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/announcement"
	"github.com/trezcool/masomo-console/core/directory"
	"github.com/trezcool/masomo-console/core/user"
)

var (
	firstNames = []string{
		"Amani", "Bienvenu", "Chantal", "Dieudonné", "Esther", "Fiston", "Grâce", "Héritier",
		"Irène", "Jonathan", "Kevine", "Lumière", "Merveille", "Nathan", "Olive", "Patience",
	}
	lastNames = []string{
		"Kabila", "Tshisekedi", "Mbuyi", "Kasongo", "Ilunga", "Mukendi", "Lukusa", "Nzuzi",
		"Makiese", "Mutombo", "Kalonji", "Banza",
	}
	subjects = []string{"Mathematics", "French", "English", "Physics", "Chemistry", "Biology", "History", "Geography"}
	classes  = []string{"1A", "1B", "2A", "2B", "3A", "3B", "4A", "4B", "5A", "6A"}
	services = []string{"Secretariat", "Accounting", "Library", "Maintenance", "Security"}

	// number of mock members per kind
	seedCounts = map[string]int{
		directory.KindTeacher: 36,
		directory.KindStaff:   14,
		directory.KindParent:  96,
		directory.KindStudent: 120,
	}
)

// SeedID returns the stable id of the n-th mock member of kind.
func SeedID(kind string, n int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("masomo.%s.%d", kind, n))).String()
}

// Seed fills db with mock directory data, a welcome announcement and the mock operator.
func Seed(db *DB, conf *core.Config) error {
	now := core.NowFunc().UTC()

	db.member.Lock()
	for _, kind := range directory.Kinds {
		for n := 1; n <= seedCounts[kind]; n++ {
			m := mockMember(kind, n, now)
			db.member.table[m.ID] = &m
		}
	}
	db.member.Unlock()

	db.announcement.Lock()
	welcome := announcement.Announcement{
		ID:          uuid.NewSHA1(uuid.NameSpaceOID, []byte("masomo.announcement.welcome")).String(),
		Title:       "Welcome back",
		Body:        "Classes resume on Monday at 7:30.",
		Audience:    announcement.AudienceAll,
		PublishedAt: now.Add(-24 * time.Hour),
	}
	db.announcement.table[welcome.ID] = &welcome
	db.announcement.Unlock()

	if conf.Server.SeedOperator == "" {
		return nil
	}
	uname, pwd, ok := strings.Cut(conf.Server.SeedOperator, ":")
	if !ok || uname == "" || pwd == "" {
		return errors.Errorf("invalid seed operator %q, expected username:password", conf.Server.SeedOperator)
	}
	usr := user.User{
		ID:          uuid.NewSHA1(uuid.NameSpaceOID, []byte("masomo.operator."+uname)).String(),
		Name:        "Masomo Admin",
		Username:    uname,
		Email:       uname + "@" + strings.ToLower(strings.ReplaceAll(conf.Server.SeedInstitution.Code, "-", "")) + ".cd",
		IsActive:    true,
		Roles:       []string{user.RoleAdminOwner},
		Institution: conf.Server.SeedInstitution,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing seed operator password")
	}
	db.user.Lock()
	db.user.table[usr.ID] = &usr
	db.user.Unlock()
	return nil
}

func mockMember(kind string, n int, now time.Time) directory.Member {
	first := firstNames[(n*7)%len(firstNames)]
	last := lastNames[(n*5+len(kind))%len(lastNames)]
	m := directory.Member{
		ID:        SeedID(kind, n),
		Kind:      kind,
		Name:      fmt.Sprintf("%s %s", first, last),
		Phone:     fmt.Sprintf("+243 81 %03d %04d", n%1000, (n*37)%10000),
		IsActive:  n%11 != 0,
		CreatedAt: now.Add(-time.Duration(n) * time.Hour),
	}
	m.UpdatedAt = m.CreatedAt

	local := strings.ToLower(fmt.Sprintf("%s.%s%d", first, last, n))
	local = strings.NewReplacer("é", "e", "è", "e", "â", "a", "ç", "c").Replace(local)
	switch kind {
	case directory.KindTeacher:
		m.Department = subjects[n%len(subjects)]
		m.Email = local + "@csk.cd"
	case directory.KindStaff:
		m.Department = services[n%len(services)]
		m.Email = local + "@csk.cd"
	case directory.KindStudent:
		m.Department = classes[n%len(classes)]
		if n%4 == 0 {
			m.Email = local + "@eleves.csk.cd"
		}
	case directory.KindParent:
		m.Department = classes[n%len(classes)]
		m.Email = local + "@gmail.com"
	}
	return m
}
