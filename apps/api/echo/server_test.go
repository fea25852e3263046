package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/announcement"
	"github.com/trezcool/masomo-console/core/directory"
	"github.com/trezcool/masomo-console/core/user"
	"github.com/trezcool/masomo-console/services/email"
	"github.com/trezcool/masomo-console/services/logger"
	"github.com/trezcool/masomo-console/storage/database/inmem"
)

const (
	operatorUname = "masomo_admin"
	operatorPwd   = "Kinshasa#2024"
)

type testApp struct {
	Server
	usrSvc   *user.Service
	operator user.User
	staff    user.User
}

func setup(t *testing.T) testApp {
	ctx := context.Background()
	conf := *core.Conf
	conf.Server.SeedOperator = operatorUname + ":" + operatorPwd

	// set up DB & repos
	db := inmemdb.Open()
	require.NoError(t, inmemdb.Seed(db, &conf))

	// set up services
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), &conf)
	mailSvc := emailsvc.NewConsoleServiceMock(&conf, logger)
	usrSvc := user.NewService(inmemdb.NewUserRepository(db))
	memSvc := directory.NewService(inmemdb.NewMemberRepository(db))
	annSvc := announcement.NewService(inmemdb.NewAnnouncementRepository(db), memSvc, mailSvc)

	operator, err := usrSvc.GetByUsernameOrEmail(ctx, operatorUname)
	require.NoError(t, err)
	staff, err := usrSvc.Create(ctx, user.NewUser{
		Name:            "Fiston Mbuyi",
		Username:        "fiston_mbuyi",
		Email:           "fiston@csk.cd",
		Password:        operatorPwd,
		Roles:           []string{user.RoleStaff},
		InstitutionCode: conf.Server.SeedInstitution.Code,
		InstitutionName: conf.Server.SeedInstitution.Name,
	})
	require.NoError(t, err)

	// set up server
	app := NewServer(&Options{
		DisableReqLogs:  true,
		Logger:          logger,
		UserSvc:         usrSvc,
		MemberSvc:       memSvc,
		AnnouncementSvc: annSvc,
	})
	return testApp{Server: app, usrSvc: usrSvc, operator: operator, staff: staff}
}

type httpErr struct {
	Message string `json:"message"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app http.Handler, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestServer_home(t *testing.T) {
	app := setup(t)
	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), core.Conf.AppName)
}
