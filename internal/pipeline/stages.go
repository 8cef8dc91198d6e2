package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"school-api/internal/logging"
	"school-api/internal/ratelimit"
	"school-api/internal/roles"
	"school-api/internal/session"
	"school-api/internal/tokens"
)

// cacheTimeout bounds every cache round-trip made by a stage.
const cacheTimeout = 2 * time.Second

// RateLimit counts the request against the scope's budget and stamps the
// X-RateLimit headers on every response, allowed or not.
func RateLimit(limiter *ratelimit.Limiter, scope ratelimit.Scope) Stage {
	return func(c echo.Context, ac *AuthContext) *Reject {
		ctx, cancel := context.WithTimeout(c.Request().Context(), cacheTimeout)
		defer cancel()

		res, err := limiter.Check(ctx, scope, c.RealIP())
		if err != nil {
			logging.FromContext(c.Request().Context()).Error("rate_check_failed", "error", err)
			return unavailable()
		}

		h := c.Response().Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		h.Set("X-RateLimit-Reset", res.ResetAt.UTC().Format(http.TimeFormat))

		ac.RateLimit = &res

		if !res.Allowed {
			retryAfter := res.RetryAfter
			if retryAfter < time.Second {
				retryAfter = time.Second
			}
			return &Reject{
				Status:     http.StatusTooManyRequests,
				Code:       "rate_limited",
				Message:    fmt.Sprintf("rate limit exceeded, try again in %d seconds", int(retryAfter.Seconds())),
				RetryAfter: retryAfter,
			}
		}
		return nil
	}
}

// VerifyShort checks the bearer short credential and fills the auth context
// from its claims.
func VerifyShort(ts *tokens.Service) Stage {
	return func(c echo.Context, ac *AuthContext) *Reject {
		raw, rej := bearerToken(c)
		if rej != nil {
			return rej
		}

		claims, err := ts.VerifyShort(raw)
		if err != nil {
			return unauthenticated("invalid or expired token")
		}

		role, err := roles.Parse(claims.Role)
		if err != nil {
			return unauthenticated("invalid or expired token")
		}

		ac.UserID = claims.Subject
		ac.UserKey = claims.UserKey
		ac.Role = role
		ac.SchoolID = claims.SchoolID
		ac.SessionID = claims.SessionID
		ac.DeviceID = claims.DeviceID
		return nil
	}
}

// VerifyLong checks the bearer long credential, for the refresh flow only.
func VerifyLong(ts *tokens.Service) Stage {
	return func(c echo.Context, ac *AuthContext) *Reject {
		raw, rej := bearerToken(c)
		if rej != nil {
			return rej
		}

		claims, err := ts.VerifyLong(raw)
		if err != nil {
			return unauthenticated("invalid or expired token")
		}

		role, err := roles.Parse(claims.Role)
		if err != nil {
			return unauthenticated("invalid or expired token")
		}

		ac.UserID = claims.Subject
		ac.UserKey = claims.UserKey
		ac.Role = role
		ac.SchoolID = claims.SchoolID
		return nil
	}
}

// CheckRevoked rejects short credentials whose session was logged out. A
// cache fault fails closed.
func CheckRevoked(registry *session.Registry) Stage {
	return func(c echo.Context, ac *AuthContext) *Reject {
		ctx, cancel := context.WithTimeout(c.Request().Context(), cacheTimeout)
		defer cancel()

		revoked, err := registry.IsRevoked(ctx, ac.SessionID)
		if err != nil {
			logging.FromContext(c.Request().Context()).Error("revocation_check_failed", "error", err)
			return unavailable()
		}
		if revoked {
			return &Reject{Status: http.StatusUnauthorized, Code: "session_revoked", Message: "session has been revoked"}
		}
		return nil
	}
}

// RequireSchoolScope derives the effective tenant for tenant-scoped
// operations. Superadmins must name the school explicitly; school admins are
// pinned to the school in their credential, and any request-supplied school
// id is ignored for authorization.
func RequireSchoolScope() Stage {
	return func(c echo.Context, ac *AuthContext) *Reject {
		switch ac.Role {
		case roles.Superadmin:
			schoolID := requestSchoolID(c)
			if schoolID == "" {
				return &Reject{
					Status:  http.StatusBadRequest,
					Code:    "school_required",
					Message: "school_id is required for superadmin to access school resources",
				}
			}
			ac.EffectiveSchoolID = schoolID
			return nil
		case roles.SchoolAdmin:
			if ac.SchoolID == "" {
				return forbidden("school admin is not assigned to any school")
			}
			ac.EffectiveSchoolID = ac.SchoolID
			return nil
		default:
			return forbidden("school admin access required")
		}
	}
}

// RequireSuperadmin gates operations that have no tenant scope at all.
func RequireSuperadmin() Stage {
	return func(c echo.Context, ac *AuthContext) *Reject {
		switch ac.Role {
		case roles.Superadmin:
			return nil
		case roles.SchoolAdmin:
			return forbidden("superadmin access required")
		default:
			return forbidden("superadmin access required")
		}
	}
}

func bearerToken(c echo.Context) (string, *Reject) {
	header := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
	if header == "" {
		return "", unauthenticated("missing authorization token")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", unauthenticated("invalid authorization format")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", unauthenticated("missing authorization token")
	}
	return token, nil
}

func requestSchoolID(c echo.Context) string {
	if v := c.QueryParam("school_id"); v != "" {
		return v
	}
	return c.Param("id")
}
