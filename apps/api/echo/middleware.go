package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/soko/core"
	"github.com/trezcool/soko/core/user"
)

const ctxUserIDKey = "ctxUserID"

var errUsrNotFoundInCtx = errors.New("user id not found in echo.Context")

// sessionAuthMiddleware authenticates the bearer session token against the
// identity provider and stashes the subject's user id in the request context.
func sessionAuthMiddleware(identity core.IdentityService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token := bearerToken(ctx.Request())
			if token == "" {
				return errUnauthorized
			}
			sess, err := identity.VerifySession(ctx.Request().Context(), token)
			if err != nil {
				return errUnauthorized
			}
			ctx.Set(ctxUserIDKey, sess.UserID)
			return next(ctx)
		}
	}
}

// educatorMiddleware gates endpoints on the provider's role claim; the
// provider is the source of truth for roles, not the local mirror.
func educatorMiddleware(identity core.IdentityService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			uid, err := getContextUserID(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user id")
			}
			role, err := identity.Role(ctx.Request().Context(), uid)
			if err != nil {
				return errors.Wrap(err, "getting provider role")
			}
			if role != user.RoleEducator {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get(echo.HeaderAuthorization)
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}

func getContextUserID(ctx echo.Context) (string, error) {
	id, ok := ctx.Get(ctxUserIDKey).(string)
	if !ok || id == "" {
		return "", errUsrNotFoundInCtx
	}
	return id, nil
}
