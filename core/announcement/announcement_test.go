package announcement_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/announcement"
	"github.com/trezcool/masomo-console/core/directory"
	"github.com/trezcool/masomo-console/core/listing"
	"github.com/trezcool/masomo-console/core/user"
	"github.com/trezcool/masomo-console/storage/database/inmem"
)

type mailRecorder struct {
	mu   sync.Mutex
	msgs []*core.EmailMessage
}

func (r *mailRecorder) SendMessages(messages ...*core.EmailMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, messages...)
}

var author = user.User{
	ID:          "e3b0c442-98fc-1c14-9afb-f4c8996fb924",
	Name:        "Masomo Admin",
	Institution: core.Institution{Code: "CSK-01", Name: "Complexe Scolaire Kinshasa"},
}

func setup(t *testing.T) (*announcement.Service, *mailRecorder) {
	db := inmemdb.Open()
	require.NoError(t, inmemdb.Seed(db, core.Conf))
	mails := new(mailRecorder)
	members := directory.NewService(inmemdb.NewMemberRepository(db))
	return announcement.NewService(inmemdb.NewAnnouncementRepository(db), members, mails), mails
}

func TestNewAnnouncement_Validate(t *testing.T) {
	tests := []struct {
		name string
		na   announcement.NewAnnouncement
		want []string
	}{
		{name: "valid", na: announcement.NewAnnouncement{Title: " Exam week ", Body: "Exams start on Monday", Audience: " Teachers "}},
		{name: "empty", na: announcement.NewAnnouncement{}, want: []string{"title", "body", "audience"}},
		{name: "unknown audience", na: announcement.NewAnnouncement{Title: "T", Body: "B", Audience: "robots"}, want: []string{"audience"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.na.Validate()
			if tt.want == nil {
				require.NoError(t, err)
				assert.Equal(t, "Exam week", tt.na.Title)
				assert.Equal(t, announcement.AudienceTeachers, tt.na.Audience)
				return
			}
			flds, ok := core.FieldErrors(err)
			require.True(t, ok)
			assert.Len(t, flds, len(tt.want))
			for _, fld := range tt.want {
				assert.Contains(t, flds, fld)
			}
		})
	}
}

func TestService_Publish(t *testing.T) {
	tests := []struct {
		audience       string
		wantRecipients int
	}{
		{audience: announcement.AudienceTeachers, wantRecipients: 33},
		{audience: announcement.AudienceStaff, wantRecipients: 13},
		{audience: announcement.AudienceStudents, wantRecipients: 28},
		{audience: announcement.AudienceAll, wantRecipients: 162},
	}
	for _, tt := range tests {
		t.Run(tt.audience, func(t *testing.T) {
			svc, mails := setup(t)
			ctx := context.Background()

			a, err := svc.Publish(ctx, announcement.NewAnnouncement{Title: "Exam week", Body: "Exams start on Monday", Audience: tt.audience}, author)
			require.NoError(t, err)
			assert.NotEmpty(t, a.ID)
			assert.Equal(t, author.ID, a.AuthorID)
			assert.Equal(t, tt.wantRecipients, a.Recipients)

			require.Len(t, mails.msgs, tt.wantRecipients)
			for _, msg := range mails.msgs {
				require.Len(t, msg.To, 1)
				assert.NotEmpty(t, msg.To[0].Address)
				assert.Equal(t, "Exam week", msg.Subject)
				assert.Equal(t, "announcement", msg.TemplateName)
				data, ok := msg.TemplateData.(announcement.MailData)
				require.True(t, ok)
				assert.Equal(t, msg.To[0].Name, data.RecipientName)
				assert.Equal(t, author.Institution.Name, data.InstitutionName)
			}

			view, err := svc.List(ctx, listing.Query{Page: 1, PerPage: 10})
			require.NoError(t, err)
			require.Equal(t, 2, view.TotalItems)
			assert.Equal(t, a.ID, view.Rows[0].ID, "most recent first")
		})
	}
}

func TestService_ListAndDelete(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	orig := core.NowFunc
	t.Cleanup(func() { core.NowFunc = orig })
	base := time.Now().UTC().Add(-3 * time.Hour)
	var published []announcement.Announcement
	for i, title := range []string{"Parents meeting", "Sports day", "Exam week"} {
		core.NowFunc = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		a, err := svc.Publish(ctx, announcement.NewAnnouncement{Title: title, Body: "See the notice board", Audience: announcement.AudienceStaff}, author)
		require.NoError(t, err)
		published = append(published, a)
	}

	view, err := svc.List(ctx, listing.Query{Page: 1, PerPage: 10})
	require.NoError(t, err)
	titles := make([]string, 0, len(view.Rows))
	for _, a := range view.Rows {
		titles = append(titles, a.Title)
	}
	// the seeded welcome announcement is dated a day before now
	assert.Equal(t, []string{"Exam week", "Sports day", "Parents meeting", "Welcome back"}, titles)

	view, err = svc.List(ctx, listing.Query{Search: "DAY", Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, view.Rows, 2)
	assert.Equal(t, "Sports day", view.Rows[0].Title)
	assert.Equal(t, "Welcome back", view.Rows[1].Title) // "Classes resume on Monday"

	require.NoError(t, svc.Delete(ctx, published[0].ID, published[1].ID))
	view, err = svc.List(ctx, listing.Query{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, view.TotalItems)
}
