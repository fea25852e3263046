// Package announcement publishes notices to the institution's members and mails them.
package announcement

import (
	"context"
	"net/mail"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/directory"
	"github.com/trezcool/masomo-console/core/listing"
	"github.com/trezcool/masomo-console/core/user"
)

// Audiences
const (
	AudienceAll      = "all"
	AudienceTeachers = "teachers"
	AudienceStaff    = "staff"
	AudienceParents  = "parents"
	AudienceStudents = "students"
)

const templateName = "announcement"

var audienceKinds = map[string][]string{
	AudienceAll:      directory.Kinds,
	AudienceTeachers: {directory.KindTeacher},
	AudienceStaff:    {directory.KindStaff},
	AudienceParents:  {directory.KindParent},
	AudienceStudents: {directory.KindStudent},
}

type Announcement struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Audience    string    `json:"audience"`
	AuthorID    string    `json:"author_id"`
	Recipients  int       `json:"recipients"`
	PublishedAt time.Time `json:"published_at"` // UTC
}

func SearchFields(a Announcement) []string {
	return []string{a.Title, a.Body}
}

func AnnouncementID(a Announcement) string { return a.ID }

type NewAnnouncement struct {
	Title    string `json:"title" validate:"required,max=200"`
	Body     string `json:"body" validate:"required"`
	Audience string `json:"audience" validate:"required,oneof=all teachers staff parents students"`
}

func (na *NewAnnouncement) Validate() error {
	na.Title = core.CleanString(na.Title)
	na.Body = core.CleanString(na.Body)
	na.Audience = core.CleanString(na.Audience, true /* lower */)
	return core.Validate.Struct(na)
}

// MailData is the announcement email template data.
type MailData struct {
	RecipientName   string
	Title           string
	Body            string
	InstitutionName string
}

type Repository interface {
	CreateAnnouncement(ctx context.Context, a Announcement) (Announcement, error)
	// QueryAnnouncements returns every announcement, the most recent first.
	QueryAnnouncements(ctx context.Context) ([]Announcement, error)
	DeleteAnnouncementsByID(ctx context.Context, ids ...string) error
}

type Service struct {
	repo    Repository
	members *directory.Service
	mailSvc core.EmailService
}

func NewService(repo Repository, members *directory.Service, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, members: members, mailSvc: mailSvc}
}

// Publish stores the announcement and mails it to every active member of its audience.
func (svc *Service) Publish(ctx context.Context, na NewAnnouncement, author user.User) (Announcement, error) {
	recipients, err := svc.members.Recipients(ctx, audienceKinds[na.Audience]...)
	if err != nil {
		return Announcement{}, err
	}

	a, err := svc.repo.CreateAnnouncement(ctx, Announcement{
		ID:          uuid.NewString(),
		Title:       na.Title,
		Body:        na.Body,
		Audience:    na.Audience,
		AuthorID:    author.ID,
		Recipients:  len(recipients),
		PublishedAt: core.NowFunc().UTC(),
	})
	if err != nil {
		return Announcement{}, errors.Wrap(err, "storing announcement")
	}

	if len(recipients) > 0 {
		msgs := make([]*core.EmailMessage, 0, len(recipients))
		for _, m := range recipients {
			msgs = append(msgs, &core.EmailMessage{
				To:           []mail.Address{{Name: m.Name, Address: m.Email}},
				Subject:      a.Title,
				TemplateName: templateName,
				TemplateData: MailData{
					RecipientName:   m.Name,
					Title:           a.Title,
					Body:            a.Body,
					InstitutionName: author.Institution.Name,
				},
			})
		}
		svc.mailSvc.SendMessages(msgs...)
	}
	return a, nil
}

// List returns the requested page of the searched announcements.
func (svc *Service) List(ctx context.Context, q listing.Query) (listing.View[Announcement], error) {
	all, err := svc.repo.QueryAnnouncements(ctx)
	if err != nil {
		return listing.View[Announcement]{}, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].PublishedAt.After(all[j].PublishedAt) })
	found := listing.Filter(all, q.Search, SearchFields)
	return listing.NewView(listing.Paginate(found, q.Page, q.PerPage)), nil
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	valid := core.ValidIDs(ids)
	if len(valid) == 0 {
		return nil
	}
	return svc.repo.DeleteAnnouncementsByID(ctx, valid...)
}
