package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const userColumns = `id, name, email, password_hash, phone, tier, role, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Phone, &u.Tier, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, name, email, passwordHash, phone, tier, role string) (User, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, phone, tier, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		name, email, passwordHash, phone, tier, role)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 AND is_active`, email)
	return scanUser(row)
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 AND is_active`, id)
	return scanUser(row)
}

func (s *Store) CreateSession(ctx context.Context, userID uuid.UUID, tokenHash string, userAgent, ip *string, expiresAt time.Time) (Session, error) {
	var sess Session
	row := s.db.QueryRow(ctx, `
		INSERT INTO sessions (user_id, refresh_token, user_agent, ip, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, refresh_token, user_agent, ip, expires_at, created_at`,
		userID, tokenHash, userAgent, ip, expiresAt)
	err := row.Scan(&sess.ID, &sess.UserID, &sess.RefreshToken, &sess.UserAgent, &sess.IP, &sess.ExpiresAt, &sess.CreatedAt)
	return sess, err
}

func (s *Store) GetSessionByToken(ctx context.Context, tokenHash string) (Session, error) {
	var sess Session
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, refresh_token, user_agent, ip, expires_at, created_at
		FROM sessions WHERE refresh_token = $1`, tokenHash)
	err := row.Scan(&sess.ID, &sess.UserID, &sess.RefreshToken, &sess.UserAgent, &sess.IP, &sess.ExpiresAt, &sess.CreatedAt)
	return sess, err
}

func (s *Store) DeleteSession(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

func (s *Store) DeleteSessionsForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

func (s *Store) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
