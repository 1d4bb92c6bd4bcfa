package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"landregistry/internal/audit"
	"landregistry/internal/identity/device"
	"landregistry/internal/identity/models"
	dErrors "landregistry/pkg/domain-errors"
	"landregistry/pkg/platform/sentinel"
	"landregistry/pkg/requestcontext"
)

// UserStore persists users. Implementations return sentinel errors; the
// service translates them into coded domain errors.
type UserStore interface {
	CreateIfAvailable(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByCitizenID(ctx context.Context, citizenID string) (*models.User, error)
	Execute(ctx context.Context, id string, validate func(*models.User) error, mutate func(*models.User)) (*models.User, error)
}

// SessionStore persists login sessions.
type SessionStore interface {
	Save(ctx context.Context, session models.Session) error
	Find(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

// Service owns signup, login and session resolution. Password hashing stays
// here; stores and models only ever see the hash.
type Service struct {
	users      UserStore
	sessions   SessionStore
	auditor    *audit.Emitter
	sessionTTL time.Duration
}

func New(users UserStore, sessions SessionStore, auditor *audit.Emitter, sessionTTL time.Duration) *Service {
	return &Service{users: users, sessions: sessions, auditor: auditor, sessionTTL: sessionTTL}
}

// SignupInput carries the signup fields after transport decoding.
type SignupInput struct {
	CitizenID   string
	Email       string
	PhoneNumber string
	Name        string
	Password    string
	Role        string
}

// Signup registers a user and opens their first session.
func (s *Service) Signup(ctx context.Context, in SignupInput, userAgent string) (*models.User, *models.Session, error) {
	role, err := models.ParseRole(in.Role)
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(in.Password) == "" {
		return nil, nil, dErrors.New(dErrors.CodeBadRequest, "password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	now := requestcontext.Now(ctx)
	u, err := models.NewUser(uuid.NewString(), in.CitizenID, in.Email, in.PhoneNumber, in.Name, string(hash), role, now)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeBadRequest, dErrors.MessageOf(err))
	}

	if err := s.users.CreateIfAvailable(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, nil, dErrors.New(dErrors.CodeConflict, "user with this citizen id or email already exists")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	session, err := s.openSession(ctx, u.ID, userAgent)
	if err != nil {
		return nil, nil, err
	}

	s.auditor.Emit(ctx, audit.Event{
		Action:  audit.ActionUserCreated,
		ActorID: u.ID,
		Detail:  string(u.Role),
	})
	return u, session, nil
}

// Login verifies credentials and opens a session. Unknown citizen ids and bad
// passwords produce the same error so the endpoint does not leak which
// accounts exist.
func (s *Service) Login(ctx context.Context, citizenID, password, userAgent string) (*models.User, *models.Session, error) {
	citizenID = strings.TrimSpace(citizenID)
	if citizenID == "" || password == "" {
		return nil, nil, dErrors.New(dErrors.CodeBadRequest, "citizen id and password are required")
	}

	u, err := s.users.FindByCitizenID(ctx, citizenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, errInvalidCredentials()
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if u.IsDeleted() {
		return nil, nil, errInvalidCredentials()
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, nil, errInvalidCredentials()
	}

	session, err := s.openSession(ctx, u.ID, userAgent)
	if err != nil {
		return nil, nil, err
	}
	return u, session, nil
}

// Logout deletes the session. Deleting an unknown session is a no-op.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete session")
	}
	return nil
}

// Me returns the authenticated user's profile.
func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.FindByID(ctx, userID)
}

// FindByID resolves a user for cross-feature references (owner projection on
// land listings).
func (s *Service) FindByID(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return u, nil
}

// FindByCitizenID resolves a user for cross-feature references (buyer lookup
// during transfer approval).
func (s *Service) FindByCitizenID(ctx context.Context, citizenID string) (*models.User, error) {
	u, err := s.users.FindByCitizenID(ctx, citizenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "no user with citizen id %q", citizenID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return u, nil
}

// UpdateProfile applies a sparse profile patch. Used by the admin land-approval
// path, which may correct owner contact fields while reviewing a parcel.
func (s *Service) UpdateProfile(ctx context.Context, userID string, patch models.ProfilePatch) (*models.User, error) {
	if patch.IsZero() {
		return s.Me(ctx, userID)
	}
	now := requestcontext.Now(ctx)
	var applyErr error
	u, err := s.users.Execute(ctx, userID,
		func(u *models.User) error {
			work := *u
			applyErr = patch.Apply(&work, now)
			return applyErr
		},
		func(u *models.User) {
			_ = patch.Apply(u, now)
		},
	)
	if err != nil {
		if applyErr != nil {
			return nil, applyErr
		}
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return nil, dErrors.New(dErrors.CodeConflict, "email already in use")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update profile")
	}
	return u, nil
}

// ResolveActor implements the auth middleware contract: session must exist
// and be unexpired, user must exist and not be soft-deleted.
func (s *Service) ResolveActor(ctx context.Context, userID, sessionID string) (requestcontext.ActorInfo, error) {
	session, err := s.sessions.Find(ctx, sessionID)
	if err != nil {
		return requestcontext.ActorInfo{}, dErrors.New(dErrors.CodeUnauthorized, "session not found")
	}
	if session.UserID != userID || session.Expired(requestcontext.Now(ctx)) {
		return requestcontext.ActorInfo{}, dErrors.New(dErrors.CodeUnauthorized, "session expired")
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil || u.IsDeleted() {
		return requestcontext.ActorInfo{}, dErrors.New(dErrors.CodeUnauthorized, "user not found")
	}

	return requestcontext.ActorInfo{
		UserID:    u.ID,
		CitizenID: u.CitizenID,
		Role:      string(u.Role),
	}, nil
}

func (s *Service) openSession(ctx context.Context, userID, userAgent string) (*models.Session, error) {
	now := requestcontext.Now(ctx)
	session := models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Device:    device.ParseUserAgent(userAgent),
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save session")
	}
	return &session, nil
}

func errInvalidCredentials() error {
	return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
}
