package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/directory"
	"github.com/trezcool/masomo-console/core/user"
)

// ExpiredTokenMessage is what clients watch for before refreshing their access token.
const ExpiredTokenMessage = "Invalid or expired token"

var (
	errMissingToken         = echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed jwt")
	errInvalidToken         = echo.NewHTTPError(http.StatusUnauthorized, ExpiredTokenMessage)
	errAuthenticationFailed = echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	errRefreshInvalid       = echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		if cause == directory.ErrNotFound || cause == user.ErrNotFound {
			cause = errHttpNotFound
		}

		if fldErrs, ok := core.FieldErrors(cause); ok {
			code = http.StatusBadRequest
			message = fldErrs
			if len(fldErrs) == 0 {
				message = echo.Map{"message": cause.Error()}
			}
		} else if herr, ok := cause.(*echo.HTTPError); ok {
			if inner, ok := herr.Internal.(*echo.HTTPError); ok {
				herr = inner
			}
			code = herr.Code
			message = echo.Map{"message": herr.Message}
		} else { // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = echo.Map{"message": msg}

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Username = claims.Username
				usr.Institution.Code = claims.Institution
				usr.Roles = claims.Roles
			}
			logger.Error(msg, errors.Wrap(err, msg), usr)

			if ctx.Echo().Debug {
				message = echo.Map{"message": err.Error()}
			}

			// shutting down...
			if core.IsShutdown(err) && signalShutdown != nil {
				signalShutdown()
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
