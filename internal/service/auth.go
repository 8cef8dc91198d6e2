package service

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"school-api/internal/hash"
	"school-api/internal/logging"
	"school-api/internal/loginguard"
	"school-api/internal/models"
	"school-api/internal/repo"
	"school-api/internal/roles"
	"school-api/internal/session"
	"school-api/internal/tokens"
)

// EventSink receives auth audit events. Publishing is best-effort; the
// service logs failures and moves on.
type EventSink interface {
	Publish(ctx context.Context, key string, event any) error
}

type AuthService struct {
	Repo     *repo.UserRepo
	Guard    *loginguard.Guard
	Tokens   *tokens.Service
	Sessions *session.Registry
	Events   EventSink
}

type LoginResult struct {
	User       *models.User
	LongToken  string
	ShortToken string
}

// Login runs the hardened authentication flow: lockout check before the
// password check, failure bookkeeping persisted before responding, counter
// reset on success, then issuance of both credential classes.
func (s *AuthService) Login(ctx context.Context, login, password string, device Device) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if login == "" || password == "" {
		return nil, ErrValidation
	}

	user, err := s.Repo.FindByLogin(ctx, login)
	if err != nil {
		if err == repo.ErrNotFound {
			l.Warn("login_failed", "reason", "unknown identifier")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	now := time.Now()
	if s.Guard.IsLocked(user, now) {
		l.Warn("login_rejected", "reason", "account locked", "user_id", user.ID)
		return nil, &AccountLockedError{Until: *user.LockoutUntil}
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		attempts, err := s.Guard.RecordFailure(ctx, user)
		if err != nil {
			// Fail closed: if the counter cannot be persisted the attempt
			// is rejected, never silently allowed through.
			return nil, err
		}
		if attempts >= s.Guard.MaxAttempts {
			l.Warn("account_locked", "user_id", user.ID, "attempts", attempts)
			s.publish(ctx, user, "account_locked")
			return nil, &AccountLockedError{Until: *user.LockoutUntil}
		}
		l.Warn("login_failed", "user_id", user.ID, "attempts", attempts)
		s.publish(ctx, user, "login_failed")
		return nil, &BadCredentialsError{Remaining: s.Guard.RemainingAttempts(attempts)}
	}

	if err := s.Guard.RecordSuccess(ctx, user); err != nil {
		return nil, err
	}

	role, err := roles.Parse(user.Role)
	if err != nil {
		return nil, err
	}

	userID := strconv.FormatUint(uint64(user.ID), 10)
	schoolID := schoolIDString(user)

	longToken, err := s.Tokens.IssueLong(userID, userID, role, schoolID)
	if err != nil {
		return nil, err
	}

	shortToken, err := s.Tokens.IssueShort(userID, userID, role, schoolID, uuid.NewString(), device.Fingerprint())
	if err != nil {
		return nil, err
	}

	l.Info("login_successful", "user_id", user.ID)
	s.publish(ctx, user, "login_succeeded")

	return &LoginResult{User: user, LongToken: longToken, ShortToken: shortToken}, nil
}

// Refresh exchanges a verified long credential for a fresh short credential
// bound to a new session id and the presenting device. The caller's identity
// comes from the pipeline's verified context, never from raw request input.
func (s *AuthService) Refresh(ctx context.Context, userID, userKey string, role roles.Role, schoolID string, device Device) (string, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return "", err
	}

	shortToken, err := s.Tokens.IssueShort(userID, userKey, role, schoolID, uuid.NewString(), device.Fingerprint())
	if err != nil {
		return "", err
	}

	logging.FromContext(ctx).Info("token_refreshed", "user_id", user.ID)
	return shortToken, nil
}

// Logout revokes the session carried by the verified short credential.
func (s *AuthService) Logout(ctx context.Context, userID, sessionID string) error {
	if err := s.Sessions.Revoke(ctx, sessionID); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("logged_out", "session_id", sessionID)
	if s.Events != nil {
		if err := s.Events.Publish(ctx, userID, map[string]any{
			"type":       "logged_out",
			"user_id":    userID,
			"session_id": sessionID,
		}); err != nil {
			logging.FromContext(ctx).Error("event_publish_failed", "error", err)
		}
	}
	return nil
}

// Me loads the profile behind the verified short credential, plus the school
// record for school admins.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, *models.School, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	var school *models.School
	if user.Role == roles.SchoolAdmin.String() && user.SchoolID != nil {
		school, err = s.Repo.FindSchoolByID(ctx, *user.SchoolID)
		if err != nil && err != repo.ErrNotFound {
			return nil, nil, err
		}
	}
	return user, school, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID, current, updated string) error {
	if current == "" || updated == "" {
		return ErrValidation
	}
	if len(updated) < 8 {
		return ErrPasswordTooShort
	}
	if !passwordStrongEnough(updated) {
		return ErrPasswordTooWeak
	}

	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}

	// Demo accounts keep their seeded password.
	if user.IsSeeded {
		return ErrSeededAccount
	}

	if !hash.CheckPassword(user.PasswordHash, current) {
		return ErrWrongPassword
	}

	newHash, err := hash.HashPassword(updated)
	if err != nil {
		return err
	}
	return s.Repo.UpdatePassword(ctx, user.ID, newHash)
}

func (s *AuthService) findUser(ctx context.Context, userID string) (*models.User, error) {
	id, err := strconv.ParseUint(userID, 10, 64)
	if err != nil {
		return nil, tokens.ErrInvalidToken
	}
	user, err := s.Repo.FindByID(ctx, uint(id))
	if err != nil {
		if err == repo.ErrNotFound {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) publish(ctx context.Context, user *models.User, eventType string) {
	if s.Events == nil {
		return
	}
	event := map[string]any{
		"type":     eventType,
		"user_id":  user.ID,
		"username": user.Username,
	}
	if err := s.Events.Publish(ctx, strconv.FormatUint(uint64(user.ID), 10), event); err != nil {
		logging.FromContext(ctx).Error("event_publish_failed", "type", eventType, "error", err)
	}
}

func passwordStrongEnough(password string) bool {
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	return hasUpper && hasLower && hasDigit
}

func schoolIDString(u *models.User) string {
	if u.SchoolID == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*u.SchoolID), 10)
}
