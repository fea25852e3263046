package main

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-console/apps/api/echo"
	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/announcement"
	"github.com/trezcool/masomo-console/core/directory"
	"github.com/trezcool/masomo-console/core/session"
	"github.com/trezcool/masomo-console/core/user"
	"github.com/trezcool/masomo-console/services/apiclient"
	"github.com/trezcool/masomo-console/services/email"
	"github.com/trezcool/masomo-console/services/logger"
	"github.com/trezcool/masomo-console/storage/database/inmem"
)

const (
	operatorUname = "masomo_admin"
	operatorPwd   = "Kinshasa#2024"
)

var testLogger = logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), core.Conf)

type testAPI struct {
	*httptest.Server
	usrSvc *user.Service
}

// newTestAPI serves the masomo API over the seeded in-memory store.
func newTestAPI(t *testing.T) testAPI {
	conf := *core.Conf
	conf.Server.SeedOperator = operatorUname + ":" + operatorPwd

	db := inmemdb.Open()
	require.NoError(t, inmemdb.Seed(db, &conf))
	usrSvc := user.NewService(inmemdb.NewUserRepository(db))
	memSvc := directory.NewService(inmemdb.NewMemberRepository(db))
	mailSvc := emailsvc.NewConsoleServiceMock(&conf, testLogger)

	app := echoapi.NewServer(&echoapi.Options{
		DisableReqLogs:  true,
		Logger:          testLogger,
		UserSvc:         usrSvc,
		MemberSvc:       memSvc,
		AnnouncementSvc: announcement.NewService(inmemdb.NewAnnouncementRepository(db), memSvc, mailSvc),
	})
	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)
	return testAPI{Server: srv, usrSvc: usrSvc}
}

func newTestCLI(t *testing.T, api testAPI, store session.Storage, input string) (*commandLine, *bytes.Buffer) {
	out := new(bytes.Buffer)
	cli := newCommandLine(strings.NewReader(input), out)

	opts := apiclient.OptionsFromConfig(core.Conf.Client)
	opts.BaseURL = api.URL
	opts.Logger = testLogger
	opts.Navigator = cli
	client, err := apiclient.New(session.Open(store), opts)
	require.NoError(t, err)
	cli.client = client
	return cli, out
}

func mockPassword(t *testing.T, pwd string) {
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

func Test_commandLine_usage(t *testing.T) {
	api := newTestAPI(t)
	cli, out := newTestCLI(t, api, session.NewMemoryStorage(), "")

	for _, args := range [][]string{{"masomo"}, {"masomo", "lol"}, {"masomo", "login"}, {"masomo", "browse"}} {
		out.Reset()
		err := cli.run(context.Background(), args)
		assert.Equal(t, errHelp, err, args)
		assert.NotEmpty(t, out.String(), args)
	}
}

func Test_commandLine_login(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mockPassword(t, operatorPwd)
		store := session.NewMemoryStorage()
		cli, out := newTestCLI(t, api, store, "")

		require.NoError(t, cli.run(ctx, []string{"masomo", "login", "-username", operatorUname}))
		assert.Contains(t, out.String(), "Signed in as Masomo Admin (masomo_admin) at "+core.Conf.Server.SeedInstitution.Name+".")
		tok, ok := store.Get(session.KeyAccessToken)
		assert.True(t, ok)
		assert.True(t, strings.HasPrefix(tok, session.BearerPrefix))
		code, _ := store.Get(session.KeyInstitutionCode)
		assert.Equal(t, core.Conf.Server.SeedInstitution.Code, code)
	})

	t.Run("wrong password", func(t *testing.T) {
		mockPassword(t, "nope")
		store := session.NewMemoryStorage()
		cli, _ := newTestCLI(t, api, store, "")

		err := cli.run(ctx, []string{"masomo", "login", "-username", operatorUname})
		assert.Equal(t, http.StatusUnauthorized, apiclient.StatusCode(err))
		_, ok := store.Get(session.KeyAccessToken)
		assert.False(t, ok)
	})

	t.Run("empty password is caught before the API", func(t *testing.T) {
		mockPassword(t, "")
		cli, out := newTestCLI(t, api, session.NewMemoryStorage(), "")

		err := cli.run(ctx, []string{"masomo", "login", "-username", operatorUname})
		flds, ok := core.FieldErrors(err)
		require.True(t, ok, err)
		assert.Equal(t, map[string]string{"password": "this field is required"}, flds)

		cli.printError(err)
		assert.Contains(t, out.String(), "  password: this field is required\n")
	})
}

func Test_commandLine_shell(t *testing.T) {
	api := newTestAPI(t)
	mockPassword(t, operatorPwd)
	emailsvc.ResetSentMessages()
	t.Cleanup(emailsvc.ResetSentMessages)

	script := strings.Join([]string{
		"whoami",
		"login -username " + operatorUname,
		"whoami",
		"browse -kind teachers -per-page 12",
		"next",
		"toggle 1 2",
		"size 24",
		"page 9",
		"search zzz-nobody",
		"quit",
		`announce -title "Exam week" -body "Exams start on Monday" -audience teachers`,
		"announce -title Empty",
		"announcements -per-page 12",
		"logout",
		"exit",
	}, "\n")
	store := session.NewMemoryStorage()
	cli, out := newTestCLI(t, api, store, script)

	require.NoError(t, cli.run(context.Background(), []string{"masomo", "shell"}))
	output := out.String()

	for _, want := range []string{
		"Not signed in.",
		"Masomo Admin (masomo_admin)",
		"  roles:       " + user.RoleAdminOwner,
		"Showing 1-12 of 36.\nPages: [1] 2 3\n",
		"Showing 13-24 of 36.\nPages: 1 [2] 3\n",
		"Showing 13-24 of 36.\nPages: 1 [2] 3\n2 selected.\n",
		"Showing 1-24 of 36.\nPages: [1] 2\n",
		"Page 9 is empty, there are 2 page(s).",
		"Search: \"zzz-nobody\"\nNo results.\n",
		`Published "Exam week" to 33 recipient(s).`,
		"invalid input:\n  body: this field is required\n",
		"Showing 1-2 of 2.\nPages: [1]\n",
		"Signed out.",
	} {
		assert.Contains(t, output, want)
	}
	assert.Len(t, emailsvc.SentMessages(), 33)
	assert.False(t, cli.client.Session().IsAuthenticated())
	assert.False(t, cli.interactive)
}

func Test_commandLine_browseDelete(t *testing.T) {
	api := newTestAPI(t)
	mockPassword(t, operatorPwd)
	ctx := context.Background()

	script := "toggle 1 3\ndelete\ndelete\nquit\n"
	cli, out := newTestCLI(t, api, session.NewMemoryStorage(), script)
	require.NoError(t, cli.run(ctx, []string{"masomo", "login", "-username", operatorUname}))
	require.NoError(t, cli.run(ctx, []string{"masomo", "browse", "-kind", "staff"}))

	output := out.String()
	assert.Contains(t, output, "Showing 1-10 of 14.")
	assert.Contains(t, output, "2 selected.")
	assert.Contains(t, output, "Deleted 2 staff(s).")
	assert.Contains(t, output, "Showing 1-10 of 12.")
	assert.Contains(t, output, "Nothing selected.")
}

func Test_commandLine_expiredSession(t *testing.T) {
	api := newTestAPI(t)
	mockPassword(t, operatorPwd)
	ctx := context.Background()

	op, err := api.usrSvc.GetByUsernameOrEmail(ctx, operatorUname)
	require.NoError(t, err)
	claims := echoapi.GetUserClaims(op)
	claims.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	expired, err := echoapi.GenerateToken(claims)
	require.NoError(t, err)

	store := session.NewMemoryStorage()
	cli, out := newTestCLI(t, api, store, "")
	require.NoError(t, cli.run(ctx, []string{"masomo", "login", "-username", operatorUname}))

	t.Run("the refresh cookie renews the session", func(t *testing.T) {
		require.NoError(t, store.Set(map[string]string{session.KeyAccessToken: session.Bearer(expired)}))
		out.Reset()

		require.NoError(t, cli.run(ctx, []string{"masomo", "whoami"}))
		assert.Contains(t, out.String(), "Masomo Admin (masomo_admin)")
		tok, ok := store.Get(session.KeyAccessToken)
		require.True(t, ok)
		assert.NotEqual(t, session.Bearer(expired), tok)
	})

	t.Run("without the refresh cookie the session ends", func(t *testing.T) {
		require.NoError(t, store.Set(map[string]string{session.KeyAccessToken: session.Bearer(expired)}))
		other, otherOut := newTestCLI(t, api, store, "") // new process, empty cookie jar

		err := other.run(ctx, []string{"masomo", "whoami"})
		assert.True(t, apiclient.IsSessionExpired(err), err)
		assert.Contains(t, otherOut.String(), "Your session has expired.")
		for _, key := range session.Keys {
			_, ok := store.Get(key)
			assert.False(t, ok, key)
		}
	})
}

func Test_splitArgs(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{line: "", want: nil},
		{line: "whoami", want: []string{"whoami"}},
		{line: "  browse   -kind staff ", want: []string{"browse", "-kind", "staff"}},
		{line: `announce -title "Exam week" -body "A  B"`, want: []string{"announce", "-title", "Exam week", "-body", "A  B"}},
		{line: `search ""`, want: []string{"search", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, splitArgs(tt.line))
		})
	}
}
