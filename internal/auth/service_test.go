package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-printhub/internal/common"
	"github.com/noah-isme/backend-printhub/internal/store"
)

type stubAuthStore struct {
	usersByEmail map[string]store.User
	usersByID    map[uuid.UUID]store.User
	sessions     map[string]store.Session
}

func newStubAuthStore() *stubAuthStore {
	return &stubAuthStore{
		usersByEmail: make(map[string]store.User),
		usersByID:    make(map[uuid.UUID]store.User),
		sessions:     make(map[string]store.Session),
	}
}

func (s *stubAuthStore) CreateUser(_ context.Context, name, email, passwordHash, phone, tier, role string) (store.User, error) {
	if _, exists := s.usersByEmail[email]; exists {
		return store.User{}, &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	}
	u := store.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Phone:        phone,
		Tier:         tier,
		Role:         role,
		IsActive:     true,
	}
	s.usersByEmail[email] = u
	s.usersByID[u.ID] = u
	return u, nil
}

func (s *stubAuthStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	u, ok := s.usersByEmail[email]
	if !ok {
		return store.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (s *stubAuthStore) GetUserByID(_ context.Context, id uuid.UUID) (store.User, error) {
	u, ok := s.usersByID[id]
	if !ok {
		return store.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (s *stubAuthStore) CreateSession(_ context.Context, userID uuid.UUID, tokenHash string, userAgent, ip *string, expiresAt time.Time) (store.Session, error) {
	sess := store.Session{
		ID:           uuid.New(),
		UserID:       userID,
		RefreshToken: tokenHash,
		UserAgent:    userAgent,
		IP:           ip,
		ExpiresAt:    expiresAt,
	}
	s.sessions[tokenHash] = sess
	return sess, nil
}

func (s *stubAuthStore) GetSessionByToken(_ context.Context, tokenHash string) (store.Session, error) {
	sess, ok := s.sessions[tokenHash]
	if !ok {
		return store.Session{}, pgx.ErrNoRows
	}
	return sess, nil
}

func (s *stubAuthStore) DeleteSession(_ context.Context, id uuid.UUID) error {
	for hash, sess := range s.sessions {
		if sess.ID == id {
			delete(s.sessions, hash)
			return nil
		}
	}
	return nil
}

func (s *stubAuthStore) DeleteSessionsForUser(_ context.Context, userID uuid.UUID) error {
	for hash, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, hash)
		}
	}
	return nil
}

func newTestService(t *testing.T, st Store) *Service {
	t.Helper()
	svc, err := NewService(Config{Store: st, Secret: "test-secret-32-bytes-long-enough"})
	require.NoError(t, err)
	return svc
}

func registerAndLogin(t *testing.T, svc *Service) LoginResult {
	t.Helper()
	_, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Asha Verma",
		Email:    "asha@example.com",
		Password: "correct horse",
		Phone:    "+91 98234-56789",
		Tier:     "Student",
	})
	require.NoError(t, err)
	res, err := svc.Login(context.Background(), "asha@example.com", "correct horse", "", "")
	require.NoError(t, err)
	return res
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t, newStubAuthStore())

	_, err := svc.Register(context.Background(), RegisterInput{})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
	require.ElementsMatch(t, []string{"name", "email", "password"}, appErr.Details.(map[string]any)["fields"])

	_, err = svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@b.c", Password: "short"})
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)

	_, err = svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@b.c", Password: "long enough", Tier: "Staff"})
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestRegisterNormalizes(t *testing.T) {
	st := newStubAuthStore()
	svc := newTestService(t, st)

	u, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Ravi",
		Email:    "  Ravi@Example.COM ",
		Password: "password123",
		Phone:    "+91 98123-45678",
	})
	require.NoError(t, err)
	require.Equal(t, "ravi@example.com", u.Email)
	require.Equal(t, "919812345678", st.usersByEmail["ravi@example.com"].Phone)
	require.Equal(t, "Regular", u.Tier)
	require.Equal(t, "user", u.Role)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(t, newStubAuthStore())

	in := RegisterInput{Name: "Ravi", Email: "ravi@example.com", Password: "password123"}
	_, err := svc.Register(context.Background(), in)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), in)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "EMAIL_ALREADY_USED", appErr.Code)
}

func TestLoginUniformFailure(t *testing.T) {
	svc := newTestService(t, newStubAuthStore())
	registerAndLogin(t, svc)

	for _, attempt := range []struct{ email, password string }{
		{"asha@example.com", "wrong password"},
		{"nobody@example.com", "correct horse"},
	} {
		_, err := svc.Login(context.Background(), attempt.email, attempt.password, "", "")
		var appErr *common.AppError
		require.ErrorAs(t, err, &appErr)
		require.Equal(t, "INVALID_CREDENTIALS", appErr.Code)
	}
}

func TestParseAccessToken(t *testing.T) {
	svc := newTestService(t, newStubAuthStore())
	res := registerAndLogin(t, svc)

	id, err := svc.ParseAccessToken(res.AccessToken)
	require.NoError(t, err)
	require.Equal(t, res.User.ID, id.UserID)
	require.Equal(t, "user", id.Role)
	require.Equal(t, "Student", id.Tier)

	_, err = svc.ParseAccessToken(res.AccessToken + "x")
	require.Error(t, err)
}

func TestParseAccessTokenExpired(t *testing.T) {
	svc := newTestService(t, newStubAuthStore())
	res := registerAndLogin(t, svc)

	svc.WithNow(func() time.Time { return time.Now().Add(24 * time.Hour) })
	_, err := svc.ParseAccessToken(res.AccessToken)
	require.Error(t, err)
}

func TestRefreshRotatesSession(t *testing.T) {
	st := newStubAuthStore()
	svc := newTestService(t, st)
	res := registerAndLogin(t, svc)

	rotated, err := svc.Refresh(context.Background(), res.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, res.RefreshToken, rotated.RefreshToken)

	// The old token died with the rotation.
	_, err = svc.Refresh(context.Background(), res.RefreshToken)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "UNAUTHENTICATED", appErr.Code)

	// The new one still works.
	_, err = svc.Refresh(context.Background(), rotated.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshExpiredSession(t *testing.T) {
	st := newStubAuthStore()
	svc := newTestService(t, st)
	res := registerAndLogin(t, svc)

	svc.WithNow(func() time.Time { return time.Now().Add(31 * 24 * time.Hour) })
	_, err := svc.Refresh(context.Background(), res.RefreshToken)
	require.Error(t, err)
	require.Empty(t, st.sessions)
}

func TestLogout(t *testing.T) {
	st := newStubAuthStore()
	svc := newTestService(t, st)
	res := registerAndLogin(t, svc)

	require.NoError(t, svc.Logout(context.Background(), res.RefreshToken))
	require.Empty(t, st.sessions)

	// Logging out an unknown token is a no-op.
	require.NoError(t, svc.Logout(context.Background(), "unknown"))
}
