package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"school-api/internal/pipeline"
	"school-api/internal/ratelimit"
	"school-api/internal/session"
	"school-api/internal/tokens"
)

type Deps struct {
	Auth     *AuthHTTP
	Schools  *SchoolHTTP
	Tokens   *tokens.Service
	Limiter  *ratelimit.Limiter
	Sessions *session.Registry
}

// Register wires the route table. Every protected route runs the same
// ordered chain: rate check, credential verification, revocation check,
// then role scoping where the operation is tenant-scoped.
func Register(e *echo.Echo, d *Deps) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	authRate := pipeline.RateLimit(d.Limiter, ratelimit.ScopeAuth)
	globalRate := pipeline.RateLimit(d.Limiter, ratelimit.ScopeGlobal)
	verifyShort := pipeline.VerifyShort(d.Tokens)
	notRevoked := pipeline.CheckRevoked(d.Sessions)

	v1 := e.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/login", d.Auth.Login, pipeline.Chain(authRate))
	auth.POST("/refresh", d.Auth.Refresh, pipeline.Chain(authRate, pipeline.VerifyLong(d.Tokens)))
	auth.POST("/logout", d.Auth.Logout, pipeline.Chain(authRate, verifyShort, notRevoked))
	auth.GET("/me", d.Auth.Me, pipeline.Chain(globalRate, verifyShort, notRevoked))
	auth.POST("/change-password", d.Auth.ChangePassword, pipeline.Chain(globalRate, verifyShort, notRevoked))

	schools := v1.Group("/schools")
	schools.GET("", d.Schools.List,
		pipeline.Chain(globalRate, verifyShort, notRevoked, pipeline.RequireSuperadmin()))
	schools.POST("", d.Schools.Create,
		pipeline.Chain(globalRate, verifyShort, notRevoked, pipeline.RequireSuperadmin()))
	schools.GET("/:id", d.Schools.Get,
		pipeline.Chain(globalRate, verifyShort, notRevoked, pipeline.RequireSchoolScope()))
}
