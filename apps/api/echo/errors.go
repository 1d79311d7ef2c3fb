package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/edutech/backend/core"
	"github.com/edutech/backend/core/assignment"
	"github.com/edutech/backend/core/certificate"
	"github.com/edutech/backend/core/course"
	"github.com/edutech/backend/core/enroll"
	"github.com/edutech/backend/core/quiz"
	"github.com/edutech/backend/core/user"
)

var (
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAccountDeactivated = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired     = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden      = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound       = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// sentinelStatus maps domain sentinel errors to HTTP status codes.
var sentinelStatus = map[error]int{
	user.ErrNotFound:           http.StatusNotFound,
	user.ErrEmailExists:        http.StatusBadRequest,
	user.ErrInvalidCredentials: http.StatusBadRequest,
	user.ErrUserInactive:       http.StatusForbidden,
	user.ErrNotAdmin:           http.StatusForbidden,
	user.ErrInvalidPIN:         http.StatusBadRequest,
	user.ErrPINExpired:         http.StatusBadRequest,
	user.ErrPINUsed:            http.StatusBadRequest,

	course.ErrNotFound:      http.StatusNotFound,
	course.ErrVideoNotFound: http.StatusNotFound,

	enroll.ErrNotFound:       http.StatusNotFound,
	enroll.ErrCourseNotFound: http.StatusNotFound,

	quiz.ErrNotFound:           http.StatusNotFound,
	quiz.ErrSubmissionNotFound: http.StatusNotFound,
	quiz.ErrAlreadySubmitted:   http.StatusForbidden,

	assignment.ErrNotFound:           http.StatusNotFound,
	assignment.ErrSubmissionNotFound: http.StatusNotFound,
	assignment.ErrAlreadySubmitted:   http.StatusForbidden,

	certificate.ErrNotFound: http.StatusNotFound,
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how
// to render domain errors with the right status code.
func newAppHTTPErrorHandler(logger core.Logger) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *core.NotFoundError:
			code = http.StatusNotFound
			message = origErr.Error()
		case *core.ForbiddenError:
			code = http.StatusForbidden
			message = origErr.Error()
		case *core.ConflictError:
			code = http.StatusBadRequest
			message = origErr.Error()
		default:
			if status, ok := sentinelStatus[cause]; ok {
				code = status
				message = cause.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Email = claims.Email
			}
			logger.Error(msg, errors.Wrap(err, msg), usr)

			// shutting down...
			if core.IsShutdown(err) {
				ctx.Echo().Logger.Error("shutdown signaled")
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
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
