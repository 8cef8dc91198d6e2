// Package pipeline composes the request-processing chain that every
// protected route runs before its handler: rate check, short-credential
// verification, revocation check, role scoping. Stages execute strictly in
// the order given; each one either enriches the auth context or halts the
// chain with a terminal rejection.
package pipeline

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"school-api/internal/ratelimit"
	"school-api/internal/roles"
)

const contextKey = "auth_context"

// AuthContext is the only authorization context business handlers receive.
// Handlers never re-derive scope from raw claims.
type AuthContext struct {
	UserID    string
	UserKey   string
	Role      roles.Role
	SchoolID  string
	SessionID string
	DeviceID  string

	// EffectiveSchoolID is the tenant the request may act on, derived by the
	// scoping stage from the verified role.
	EffectiveSchoolID string

	RateLimit *ratelimit.Result
}

// Reject is a terminal pipeline outcome. It is dispatched immediately; no
// stage partially writes a response and later overrides it.
type Reject struct {
	Status     int
	Code       string
	Message    string
	RetryAfter time.Duration
}

func (r *Reject) send(c echo.Context) error {
	if r.RetryAfter > 0 {
		c.Response().Header().Set("Retry-After", strconv.Itoa(int(r.RetryAfter.Seconds())))
	}
	return c.JSON(r.Status, echo.Map{
		"ok":    false,
		"code":  r.Code,
		"error": r.Message,
	})
}

// Stage inspects the request, may enrich the auth context, and returns nil
// to continue or a Reject to halt the chain.
type Stage func(c echo.Context, ac *AuthContext) *Reject

// Chain runs the stages in order and invokes the handler only when every
// stage passed.
func Chain(stages ...Stage) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ac := &AuthContext{}
			for _, stage := range stages {
				if rej := stage(c, ac); rej != nil {
					return rej.send(c)
				}
			}
			c.Set(contextKey, ac)
			return next(c)
		}
	}
}

// FromEcho returns the auth context a completed chain left on the request.
func FromEcho(c echo.Context) *AuthContext {
	if ac, ok := c.Get(contextKey).(*AuthContext); ok {
		return ac
	}
	return nil
}

func unauthenticated(message string) *Reject {
	return &Reject{Status: http.StatusUnauthorized, Code: "unauthenticated", Message: message}
}

func forbidden(message string) *Reject {
	return &Reject{Status: http.StatusForbidden, Code: "forbidden", Message: message}
}

// unavailable is the fail-closed outcome for cache/store faults and
// timeouts inside a stage: the request is rejected, never waved through.
func unavailable() *Reject {
	return &Reject{Status: http.StatusServiceUnavailable, Code: "unavailable", Message: "service temporarily unavailable"}
}
