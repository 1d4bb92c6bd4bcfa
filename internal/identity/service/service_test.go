package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landregistry/internal/audit"
	auditstore "landregistry/internal/audit/store"
	"landregistry/internal/identity/models"
	sessionstore "landregistry/internal/identity/store/session"
	userstore "landregistry/internal/identity/store/user"
	dErrors "landregistry/pkg/domain-errors"
	"landregistry/pkg/requestcontext"
)

const chromeUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func newTestService(t *testing.T) (*Service, *auditstore.InMemory) {
	t.Helper()
	events := auditstore.NewInMemory()
	emitter := audit.NewEmitter(nil, events, nil)
	return New(userstore.NewInMemory(), sessionstore.NewInMemory(), emitter, 7*24*time.Hour), events
}

func testCtx(now time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), now)
}

func validSignup() SignupInput {
	return SignupInput{
		CitizenID:   "1234567890123",
		Email:       "somsak@example.com",
		PhoneNumber: "0812345678",
		Name:        "Somsak J",
		Password:    "s3cret-pass",
	}
}

func TestSignup(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	t.Run("creates user with default role and opens a session", func(t *testing.T) {
		svc, events := newTestService(t)

		u, session, err := svc.Signup(testCtx(now), validSignup(), chromeUA)
		require.NoError(t, err)

		assert.Equal(t, models.RoleOwner, u.Role)
		assert.NotEmpty(t, u.ID)
		assert.NotEqual(t, "s3cret-pass", u.PasswordHash)
		assert.Equal(t, now, u.CreatedAt)

		require.NotNil(t, session)
		assert.Equal(t, u.ID, session.UserID)
		assert.Equal(t, now.Add(7*24*time.Hour), session.ExpiresAt)
		assert.Contains(t, session.Device, "Chrome")

		require.Len(t, events.All(), 1)
		assert.Equal(t, audit.ActionUserCreated, events.All()[0].Action)
	})

	t.Run("rejects duplicate citizen id with conflict", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, _, err := svc.Signup(testCtx(now), validSignup(), chromeUA)
		require.NoError(t, err)

		in := validSignup()
		in.Email = "other@example.com"
		_, _, err = svc.Signup(testCtx(now), in, chromeUA)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("rejects empty password", func(t *testing.T) {
		svc, _ := newTestService(t)

		in := validSignup()
		in.Password = "   "
		_, _, err := svc.Signup(testCtx(now), in, chromeUA)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		svc, _ := newTestService(t)

		in := validSignup()
		in.Role = "superuser"
		_, _, err := svc.Signup(testCtx(now), in, chromeUA)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func TestLogin(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	t.Run("valid credentials open a session", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, _, err := svc.Signup(testCtx(now), validSignup(), chromeUA)
		require.NoError(t, err)

		u, session, err := svc.Login(testCtx(now), "1234567890123", "s3cret-pass", chromeUA)
		require.NoError(t, err)
		assert.Equal(t, "1234567890123", u.CitizenID)
		assert.NotNil(t, session)
	})

	t.Run("wrong password and unknown citizen id fail identically", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, _, err := svc.Signup(testCtx(now), validSignup(), chromeUA)
		require.NoError(t, err)

		_, _, errBadPass := svc.Login(testCtx(now), "1234567890123", "wrong", chromeUA)
		_, _, errUnknown := svc.Login(testCtx(now), "0000000000000", "s3cret-pass", chromeUA)

		require.Error(t, errBadPass)
		require.Error(t, errUnknown)
		assert.Equal(t, errBadPass.Error(), errUnknown.Error())
		assert.True(t, dErrors.HasCode(errBadPass, dErrors.CodeUnauthorized))
	})
}

func TestResolveActor(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	t.Run("resolves a live session to actor info", func(t *testing.T) {
		svc, _ := newTestService(t)
		u, session, err := svc.Signup(testCtx(now), validSignup(), chromeUA)
		require.NoError(t, err)

		actor, err := svc.ResolveActor(testCtx(now), u.ID, session.ID)
		require.NoError(t, err)
		assert.Equal(t, u.ID, actor.UserID)
		assert.Equal(t, u.CitizenID, actor.CitizenID)
		assert.Equal(t, string(models.RoleOwner), actor.Role)
	})

	t.Run("rejects expired sessions", func(t *testing.T) {
		svc, _ := newTestService(t)
		u, session, err := svc.Signup(testCtx(now), validSignup(), chromeUA)
		require.NoError(t, err)

		later := now.Add(8 * 24 * time.Hour)
		_, err = svc.ResolveActor(testCtx(later), u.ID, session.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects a session after logout", func(t *testing.T) {
		svc, _ := newTestService(t)
		u, session, err := svc.Signup(testCtx(now), validSignup(), chromeUA)
		require.NoError(t, err)

		require.NoError(t, svc.Logout(testCtx(now), session.ID))
		_, err = svc.ResolveActor(testCtx(now), u.ID, session.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func TestUpdateProfile(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	t.Run("applies sparse patch", func(t *testing.T) {
		svc, _ := newTestService(t)
		u, _, err := svc.Signup(testCtx(now), validSignup(), chromeUA)
		require.NoError(t, err)

		name := "Somsak Jaidee"
		updated, err := svc.UpdateProfile(testCtx(now), u.ID, models.ProfilePatch{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "Somsak Jaidee", updated.Name)
		assert.Equal(t, u.Email, updated.Email)
	})

	t.Run("empty patch is a read", func(t *testing.T) {
		svc, _ := newTestService(t)
		u, _, err := svc.Signup(testCtx(now), validSignup(), chromeUA)
		require.NoError(t, err)

		updated, err := svc.UpdateProfile(testCtx(now), u.ID, models.ProfilePatch{})
		require.NoError(t, err)
		assert.Equal(t, u.Name, updated.Name)
	})

	t.Run("unknown user yields not found", func(t *testing.T) {
		svc, _ := newTestService(t)

		name := "Nobody"
		_, err := svc.UpdateProfile(testCtx(now), "missing-id", models.ProfilePatch{Name: &name})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
