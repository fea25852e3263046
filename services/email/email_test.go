package emailsvc

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-console/core"
	logsvc "github.com/trezcool/masomo-console/services/logger"
)

type mailData struct {
	RecipientName string
	Title         string
	Body          string
}

func announcementMessage() *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: "Amani Kabila", Address: "amani@csk.cd"}},
		Subject:      "Exams",
		TemplateName: "announcement",
		TemplateData: mailData{RecipientName: "Amani Kabila", Title: "Exams", Body: "Exams start on Monday."},
	}
}

func testLogger() core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), core.Conf)
}

func TestConsoleServiceMock(t *testing.T) {
	ResetSentMessages()
	svc := NewConsoleServiceMock(core.Conf, testLogger())

	svc.SendMessages(
		announcementMessage(),
		&core.EmailMessage{Subject: "no recipients", BodyStr: "dropped"},
		&core.EmailMessage{To: []mail.Address{{Address: "x@csk.cd"}}, Subject: "plain", BodyStr: "hello"},
	)

	sent := SentMessages()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0].TextContent, "Hello Amani Kabila,")
	assert.Contains(t, sent[0].TextContent, "Exams start on Monday.")
	assert.Contains(t, sent[0].HTMLContent, "<h2>Exams</h2>")
	assert.Equal(t, "hello", sent[1].TextContent)
	assert.Empty(t, sent[1].HTMLContent)
}

func TestConsoleService_UnknownTemplate(t *testing.T) {
	ResetSentMessages()
	svc := NewConsoleService(core.Conf, testLogger())
	svc.disableOutput = true

	svc.SendMessages(&core.EmailMessage{To: []mail.Address{{Address: "x@csk.cd"}}, TemplateName: "nope"})
	svc.Wait()
	assert.Empty(t, SentMessages())
}

func TestSendgridService(t *testing.T) {
	var (
		mu       sync.Mutex
		payloads []map[string]interface{}
		auth     string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, endpoint, r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		var payload map[string]interface{}
		assert.NoError(t, json.Unmarshal(body, &payload))

		mu.Lock()
		payloads = append(payloads, payload)
		auth = r.Header.Get("Authorization")
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	conf := *core.Conf
	conf.SendgridApiKey = "SG.test"
	svc := NewSendgridService(&conf, testLogger())
	svc.host = srv.URL

	svc.SendMessages(announcementMessage())
	svc.Wait()

	require.Len(t, payloads, 1)
	assert.Equal(t, "Bearer SG.test", auth)

	p := payloads[0]
	pers := p["personalizations"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "["+conf.AppName+"] Exams", pers["subject"])
	to := pers["to"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "amani@csk.cd", to["email"])
	assert.Equal(t, conf.DefaultFromEmail.Address, p["from"].(map[string]interface{})["email"])
	assert.Len(t, p["content"], 2)
}
