package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/user"
)

type tokenResponse struct {
	Data struct {
		AccessToken string            `json:"accessToken"`
		User        *user.User        `json:"user"`
		Institution *core.Institution `json:"institution"`
	} `json:"data"`
}

func login(t *testing.T, app testApp, uname, pwd string) (*http.Cookie, tokenResponse) {
	t.Helper()
	body := marchallObj(t, user.Credentials{Username: uname, Password: pwd})
	req, rec := newRequest(http.MethodPost, "/v1/auth/login", body)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	for _, c := range rec.Result().Cookies() {
		if c.Name == RefreshCookieName {
			return c, resp
		}
	}
	t.Fatal("login did not set the refresh cookie")
	return nil, resp
}

func Test_authApi_login(t *testing.T) {
	app := setup(t)

	cookie, resp := login(t, app, operatorUname, operatorPwd)
	assert.NotEmpty(t, resp.Data.AccessToken)
	if assert.NotNil(t, resp.Data.User) {
		assert.Equal(t, app.operator.ID, resp.Data.User.ID)
		assert.False(t, resp.Data.User.LastLogin.IsZero())
	}
	if assert.NotNil(t, resp.Data.Institution) {
		assert.Equal(t, core.Conf.Server.SeedInstitution, *resp.Data.Institution)
	}
	assert.Equal(t, "/v1/auth", cookie.Path)
	assert.True(t, cookie.HttpOnly)

	claims := new(Claims)
	require.NoError(t, parseToken(resp.Data.AccessToken, claims))
	assert.Equal(t, app.operator.ID, claims.Subject)
	assert.True(t, claims.IsAdmin)

	// login by email works too
	_, resp = login(t, app, app.staff.Email, operatorPwd)
	assert.NotEmpty(t, resp.Data.AccessToken)

	runHTTPTests(t, app, []httpTest{
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/auth/login",
			body:     marchallObj(t, user.Credentials{Username: operatorUname, Password: "nope"}),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Message: "invalid credentials"}),
		},
		{
			name: "unknown user", method: http.MethodPost, path: "/v1/auth/login",
			body:     marchallObj(t, user.Credentials{Username: "ghost", Password: operatorPwd}),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Message: "invalid credentials"}),
		},
		{
			name: "missing fields", method: http.MethodPost, path: "/v1/auth/login", body: []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username": "this field is required", "password": "this field is required"}`),
		},
	})
}

func Test_authApi_refresh(t *testing.T) {
	app := setup(t)
	cookie, loginResp := login(t, app, operatorUname, operatorPwd)

	t.Run("refresh cookie issues a new access token", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/refresh")
		req.AddCookie(cookie)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp tokenResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		claims := new(Claims)
		require.NoError(t, parseToken(resp.Data.AccessToken, claims))
		assert.Equal(t, app.operator.ID, claims.Subject)
		assert.Nil(t, resp.Data.User)

		origClaims := new(Claims)
		require.NoError(t, parseToken(loginResp.Data.AccessToken, origClaims))
		assert.Equal(t, origClaims.OrigIssuedAt, claims.OrigIssuedAt)
	})

	invalid := marchallObj(t, httpErr{Message: "invalid refresh token"})
	tests := []struct {
		name   string
		cookie string
	}{
		{name: "no cookie"},
		{name: "garbage", cookie: "not-a-jwt"},
		{name: "access token in cookie", cookie: loginResp.Data.AccessToken},
		{name: "past the refresh window", cookie: func() string {
			origIat := time.Now().Add(-core.Conf.Server.JWTRefreshExpirationDelta - time.Minute).Unix()
			token, err := GenerateToken(getRefreshClaims(app.operator, origIat))
			require.NoError(t, err)
			return token
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/refresh")
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: tt.cookie})
			}
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: invalid}, rec)
		})
	}
}

func Test_authApi_logout(t *testing.T) {
	app := setup(t)
	req, rec := newRequest(http.MethodPost, "/v1/auth/logout")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, RefreshCookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0)
}

func Test_jwtMiddleware(t *testing.T) {
	app := setup(t)

	expired := GetUserClaims(app.operator)
	expired.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	expiredToken, err := GenerateToken(expired)
	require.NoError(t, err)

	refreshTok, err := GenerateToken(getRefreshClaims(app.operator))
	require.NoError(t, err)

	untyped := GetUserClaims(app.operator)
	untyped.TokenType = ""
	untypedTok, err := GenerateToken(untyped)
	require.NoError(t, err)

	expiredErr := marchallObj(t, httpErr{Message: ExpiredTokenMessage})
	runHTTPTests(t, app, []httpTest{
		{name: "no token", path: "/v1/members", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Message: "missing or malformed jwt"})},
		{name: "garbage token", path: "/v1/members", token: "lol", wantCode: http.StatusUnauthorized, wantData: expiredErr},
		{name: "expired token", path: "/v1/members", token: expiredToken, wantCode: http.StatusUnauthorized, wantData: expiredErr},
		{name: "refresh token", path: "/v1/members", token: refreshTok, wantCode: http.StatusUnauthorized, wantData: expiredErr},
		{name: "refresh token on me", path: "/v1/auth/me", token: refreshTok, wantCode: http.StatusUnauthorized, wantData: expiredErr},
		{name: "untyped token", path: "/v1/members", token: untypedTok, wantCode: http.StatusUnauthorized, wantData: expiredErr},
		{name: "valid token", path: "/v1/auth/me", token: getToken(t, app.operator), wantCode: http.StatusOK},
	})
}

func TestClaims_Valid(t *testing.T) {
	usr := user.User{ID: "1", Username: "amani"}

	expired := GetUserClaims(usr)
	expired.ExpiresAt = time.Now().Add(-time.Minute).Unix()

	tests := []struct {
		name    string
		claims  jwt.Claims
		wantErr bool
	}{
		{name: "access", claims: GetUserClaims(usr)},
		{name: "expired access", claims: expired, wantErr: true},
		{name: "refresh as access", claims: &Claims{
			StandardClaims: getRefreshClaims(usr).StandardClaims,
			TokenType:      refreshToken,
		}, wantErr: true},
		{name: "refresh", claims: getRefreshClaims(usr)},
		{name: "access as refresh", claims: &refreshClaims{*GetUserClaims(usr)}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.claims.Valid()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func Test_getContextClaims(t *testing.T) {
	e := echo.New()
	req, rec := newRequest(http.MethodGet, "/")
	ctx := e.NewContext(req, rec)

	_, err := getContextClaims(ctx)
	assert.Equal(t, errInvalidToken, err)

	claims := GetUserClaims(user.User{ID: "1", Username: "amani"})
	ctx.Set(appJWTConfig().ContextKey, jwt.NewWithClaims(jwt.SigningMethodHS256, claims))
	got, err := getContextClaims(ctx)
	require.NoError(t, err)
	assert.Equal(t, "amani", got.Username)
}
