package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/user"
)

const (
	// token types
	accessToken  = "access"
	refreshToken = "refresh"

	RefreshCookieName = "refresh_token"
	refreshCookiePath = "/v1/auth"

	contextUserKey = "user"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	TokenType    string   `json:"typ"`
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Username     string   `json:"username,omitempty"`
	Institution  string   `json:"inst,omitempty"`
	IsAdmin      bool     `json:"is_admin,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

// Valid only accepts unexpired access tokens, so a refresh token is never a bearer credential.
func (c Claims) Valid() error {
	if err := c.StandardClaims.Valid(); err != nil {
		return err
	}
	if c.TokenType != accessToken {
		return errors.Errorf("unexpected token type %q", c.TokenType)
	}
	return nil
}

// refreshClaims are the claims of the token held in the refresh cookie.
type refreshClaims struct {
	Claims
}

func (c refreshClaims) Valid() error {
	if err := c.StandardClaims.Valid(); err != nil {
		return err
	}
	if c.TokenType != refreshToken {
		return errors.Errorf("unexpected token type %q", c.TokenType)
	}
	return nil
}

func appJWTConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(core.Conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "userToken",
		Claims:        new(Claims),
		ErrorHandler: func(err error) error {
			if err == middleware.ErrJWTMissing {
				return errMissingToken
			}
			return errInvalidToken
		},
	}
}

// GetUserClaims returns the claims of an access token for usr.
// origIat carries the original login time over refreshes.
func GetUserClaims(usr user.User, origIat ...int64) *Claims {
	return newClaims(usr, accessToken, core.Conf.Server.JWTExpirationDelta, origIat...)
}

func getRefreshClaims(usr user.User, origIat ...int64) *refreshClaims {
	return &refreshClaims{*newClaims(usr, refreshToken, core.Conf.Server.JWTRefreshExpirationDelta, origIat...)}
}

func newClaims(usr user.User, typ string, lifetime time.Duration, origIat ...int64) *Claims {
	now := core.NowFunc()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	exp := now.Add(lifetime)
	if typ == refreshToken {
		// a refresh token never outlives the original login
		exp = time.Unix(oriat, 0).Add(lifetime)
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   usr.ID,
			Audience:  usr.Institution.Code,
			ExpiresAt: exp.Unix(),
			IssuedAt:  nownix,
		},
		TokenType:    typ,
		OrigIssuedAt: oriat,
		Username:     usr.Username,
		Institution:  usr.Institution.Code,
		IsAdmin:      usr.IsAdmin(),
		Roles:        usr.Roles,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims jwt.Claims) (string, error) {
	conf := appJWTConfig()
	token := jwt.NewWithClaims(jwt.GetSigningMethod(conf.SigningMethod), claims)
	ss, err := token.SignedString(conf.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// parseToken verifies the signature of raw and fills claims, which check expiry and token type.
func parseToken(raw string, claims jwt.Claims) error {
	conf := appJWTConfig()
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != conf.SigningMethod {
			return nil, errors.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return conf.SigningKey, nil
	})
	return err
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig().ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errInvalidToken
}

func getContextUser(ctx echo.Context, svc *user.Service) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, err
	}
	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errInvalidToken
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsActive {
		return user.User{}, errAccountDeactivated
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

func newRefreshCookie(token string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     refreshCookiePath,
		Expires:  expires,
		HttpOnly: true,
		Secure:   !(core.Conf.Debug || core.Conf.TestMode),
		SameSite: http.SameSiteStrictMode,
	}
}

func clearRefreshCookie() *http.Cookie {
	c := newRefreshCookie("", time.Unix(0, 0))
	c.MaxAge = -1
	return c
}

// issueTokens returns a new access token and sets the refresh cookie.
func issueTokens(ctx echo.Context, usr user.User, origIat ...int64) (string, error) {
	token, err := GenerateToken(GetUserClaims(usr, origIat...))
	if err != nil {
		return "", errors.Wrap(err, "generating access token")
	}

	rClaims := getRefreshClaims(usr, origIat...)
	rToken, err := GenerateToken(rClaims)
	if err != nil {
		return "", errors.Wrap(err, "generating refresh token")
	}
	ctx.SetCookie(newRefreshCookie(rToken, time.Unix(rClaims.ExpiresAt, 0)))
	return token, nil
}

type authApi struct {
	svc *user.Service
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *user.Service) {
	api := authApi{svc: svc}

	ag := g.Group("/auth")
	ag.POST("/login", api.login)
	ag.POST("/refresh", api.refresh)
	ag.POST("/logout", api.logout)
	ag.GET("/me", api.me, jwt)
}

type loginResponse struct {
	AccessToken string            `json:"accessToken"`
	User        *user.User        `json:"user,omitempty"`
	Institution *core.Institution `json:"institution,omitempty"`
}

func (api *authApi) login(ctx echo.Context) error {
	var data user.Credentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) == user.ErrInvalidCredentials {
			return errAuthenticationFailed
		}
		return errors.Wrap(err, "authenticating")
	}

	token, err := issueTokens(ctx, usr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, envelope{Data: loginResponse{
		AccessToken: token,
		User:        &usr,
		Institution: &usr.Institution,
	}})
}

// refresh exchanges the refresh cookie for a new access token.
func (api *authApi) refresh(ctx echo.Context) error {
	cookie, err := ctx.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		return errRefreshInvalid
	}
	claims := new(refreshClaims)
	if err := parseToken(cookie.Value, claims); err != nil {
		return errRefreshInvalid
	}

	usr, err := api.svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errRefreshInvalid
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsActive {
		return errAccountDeactivated
	}

	token, err := issueTokens(ctx, usr, claims.OrigIssuedAt)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, envelope{Data: loginResponse{AccessToken: token}})
}

func (api *authApi) logout(ctx echo.Context) error {
	ctx.SetCookie(clearRefreshCookie())
	return ctx.NoContent(http.StatusNoContent)
}

func (api *authApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, envelope{Data: usr})
}
