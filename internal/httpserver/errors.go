package httpserver

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"school-api/internal/logging"
	"school-api/internal/service"
	"school-api/internal/tokens"
)

// writeError maps service-layer errors onto the response envelope. Expected
// conditions arrive as structured error values; anything unrecognized is a
// server fault and surfaces as a generic 500.
func writeError(c echo.Context, err error) error {
	var locked *service.AccountLockedError
	if errors.As(err, &locked) {
		mins := remainingMinutes(locked.Until)
		return reject(c, http.StatusUnauthorized, "account_locked",
			fmt.Sprintf("account is locked, try again in %d minute(s)", mins))
	}

	var bad *service.BadCredentialsError
	if errors.As(err, &bad) {
		return reject(c, http.StatusUnauthorized, "invalid_credentials",
			fmt.Sprintf("invalid credentials, %d attempt(s) remaining", bad.Remaining))
	}

	switch {
	case errors.Is(err, service.ErrValidation):
		return reject(c, http.StatusBadRequest, "validation", "username and password are required")
	case errors.Is(err, service.ErrInvalidCredentials):
		return reject(c, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
	case errors.Is(err, service.ErrUserNotFound):
		return reject(c, http.StatusUnauthorized, "unauthenticated", "user not found")
	case errors.Is(err, tokens.ErrInvalidToken):
		return reject(c, http.StatusUnauthorized, "unauthenticated", "invalid or expired token")
	case errors.Is(err, service.ErrPasswordTooShort),
		errors.Is(err, service.ErrPasswordTooWeak):
		return reject(c, http.StatusBadRequest, "password_policy", err.Error())
	case errors.Is(err, service.ErrSeededAccount):
		return reject(c, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, service.ErrWrongPassword):
		return reject(c, http.StatusUnauthorized, "invalid_credentials", err.Error())
	default:
		logging.FromContext(c.Request().Context()).Error("internal_error", "error", err)
		return reject(c, http.StatusInternalServerError, "internal", "internal server error")
	}
}

func reject(c echo.Context, status int, code, message string) error {
	return c.JSON(status, echo.Map{
		"ok":    false,
		"code":  code,
		"error": message,
	})
}

func remainingMinutes(until time.Time) int {
	mins := int(math.Ceil(time.Until(until).Minutes()))
	if mins < 1 {
		mins = 1
	}
	return mins
}
