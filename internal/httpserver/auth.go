package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"school-api/internal/logging"
	"school-api/internal/models"
	"school-api/internal/pipeline"
	"school-api/internal/service"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return reject(c, http.StatusBadRequest, "validation", "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Username, req.Password, deviceFrom(c))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"ok": true,
		"data": echo.Map{
			"user":       userPayload(res.User),
			"longToken":  res.LongToken,
			"shortToken": res.ShortToken,
		},
	})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	ac := pipeline.FromEcho(c)

	shortToken, err := h.Svc.Refresh(ctx, ac.UserID, ac.UserKey, ac.Role, ac.SchoolID, deviceFrom(c))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"ok":   true,
		"data": echo.Map{"shortToken": shortToken},
	})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	ac := pipeline.FromEcho(c)

	if err := h.Svc.Logout(ctx, ac.UserID, ac.SessionID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()
	ac := pipeline.FromEcho(c)

	user, school, err := h.Svc.Me(ctx, ac.UserID)
	if err != nil {
		return writeError(c, err)
	}

	payload := userPayload(user)
	if school != nil {
		payload["school"] = echo.Map{"id": school.ID, "name": school.Name}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"ok":   true,
		"data": echo.Map{"user": payload},
	})
}

func (h *AuthHTTP) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()
	ac := pipeline.FromEcho(c)

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := c.Bind(&req); err != nil {
		return reject(c, http.StatusBadRequest, "validation", "invalid body")
	}

	if err := h.Svc.ChangePassword(ctx, ac.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"ok":   true,
		"data": echo.Map{"message": "password changed successfully"},
	})
}

func deviceFrom(c echo.Context) service.Device {
	return service.Device{
		IP:        c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}

func userPayload(u *models.User) echo.Map {
	payload := echo.Map{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
		"role":     u.Role,
	}
	if u.SchoolID != nil {
		payload["school_id"] = *u.SchoolID
	}
	return payload
}
