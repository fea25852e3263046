package core

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailMessage_Render(t *testing.T) {
	data := struct {
		RecipientName string
		Title         string
		Body          string
	}{RecipientName: "Amani Kabila", Title: "Exam week", Body: "Exams start on Monday."}

	tests := []struct {
		name     string
		msg      EmailMessage
		wantErr  bool
		wantText []string
		wantHTML []string
	}{
		{
			name:     "announcement template",
			msg:      EmailMessage{TemplateName: "announcement", TemplateData: data},
			wantText: []string{"Hello Amani Kabila,", "Exam week", "Exams start on Monday.", Conf.AppName},
			wantHTML: []string{"<h2>Exam week</h2>", "<p>Exams start on Monday.</p>", Conf.FrontendBaseURL},
		},
		{
			name:     "plain body",
			msg:      EmailMessage{BodyStr: "hello"},
			wantText: []string{"hello"},
		},
		{
			name:    "unknown template",
			msg:     EmailMessage{TemplateName: "nope"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.msg.To = []mail.Address{{Address: "amani@csk.cd"}}
			err := tt.msg.Render()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.msg.HasContent())
			for _, want := range tt.wantText {
				assert.Contains(t, tt.msg.TextContent, want)
			}
			if tt.wantHTML == nil {
				assert.Empty(t, tt.msg.HTMLContent)
			}
			for _, want := range tt.wantHTML {
				assert.Contains(t, tt.msg.HTMLContent, want)
			}
		})
	}
}

func TestParseTemplates_BaseLayoutsEmbedded(t *testing.T) {
	for _, name := range []string{"_base.txt", "_base.gohtml", "announcement.txt", "announcement.gohtml"} {
		_, err := templateFS.ReadFile(templateDir + "/" + name)
		assert.NoError(t, err, name)
	}

	tmplInit.Do(parseTemplates)
	require.NoError(t, tmplErr)
	entry, ok := templates["announcement"]
	require.True(t, ok)
	assert.NotNil(t, entry.text)
	assert.NotNil(t, entry.html)
	assert.NotContains(t, templates, "_base")
}
