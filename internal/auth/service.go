// Package auth implements credential handling, JWT issuance, and refresh
// session management.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-printhub/internal/common"
	"github.com/noah-isme/backend-printhub/internal/store"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 30 * 24 * time.Hour
)

// Tiers accepted at registration. Staff tiers are assigned by admins, never
// self-selected.
var selfServeTiers = map[string]bool{
	"Regular":   true,
	"Business":  true,
	"Student":   true,
	"Institute": true,
}

// Store is the persistence surface the service needs.
type Store interface {
	CreateUser(ctx context.Context, name, email, passwordHash, phone, tier, role string) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (store.User, error)
	CreateSession(ctx context.Context, userID uuid.UUID, tokenHash string, userAgent, ip *string, expiresAt time.Time) (store.Session, error)
	GetSessionByToken(ctx context.Context, tokenHash string) (store.Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	DeleteSessionsForUser(ctx context.Context, userID uuid.UUID) error
}

// Service coordinates authentication and session persistence.
type Service struct {
	store      Store
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	signer     jwa.SignatureAlgorithm
	validator  TokenValidator
	issuer     string
	audience   string
}

// Config configures the auth service.
type Config struct {
	Store           Store
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Issuer          string
	Audience        string
	ClockSkew       time.Duration
}

// User is the safe subset of the user model returned to clients.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Tier      string    `json:"tier"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LoginResult bundles token material returned after a successful login.
type LoginResult struct {
	User          User      `json:"user"`
	AccessToken   string    `json:"access_token"`
	RefreshToken  string    `json:"refresh_token"`
	AccessExpiry  time.Time `json:"access_expires_at"`
	RefreshExpiry time.Time `json:"refresh_expires_at"`
}

// RefreshResult represents the outcome of a refresh operation.
type RefreshResult struct {
	AccessToken   string    `json:"access_token"`
	AccessExpiry  time.Time `json:"access_expires_at"`
	RefreshToken  string    `json:"refresh_token"`
	RefreshExpiry time.Time `json:"refresh_expires_at"`
}

// NewService constructs a Service instance with sane defaults.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("auth: store is required")
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	refreshTTL := cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "backend-printhub"
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = "printhub-frontend"
	}
	clockSkew := cfg.ClockSkew
	if clockSkew < 0 {
		clockSkew = 0
	}

	return &Service{
		store:      cfg.Store,
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
		signer:     jwa.HS256,
		validator: TokenValidator{
			Issuer:    issuer,
			Audience:  audience,
			ClockSkew: clockSkew,
			Algorithm: jwa.HS256,
		},
		issuer:   issuer,
		audience: audience,
	}, nil
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// RegisterInput captures the self-registration payload.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Tier     string
}

// Register creates a new customer account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	var missing []string
	if strings.TrimSpace(in.Name) == "" {
		missing = append(missing, "name")
	}
	normalizedEmail := strings.TrimSpace(strings.ToLower(in.Email))
	if normalizedEmail == "" {
		missing = append(missing, "email")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return User{}, common.ErrValidation("missing required fields", missing)
	}
	if len(in.Password) < 8 {
		return User{}, common.NewAppError("VALIDATION_ERROR", "password must be at least 8 characters", http.StatusBadRequest, nil)
	}
	tier := strings.TrimSpace(in.Tier)
	if tier == "" {
		tier = "Regular"
	}
	if !selfServeTiers[tier] {
		return User{}, common.NewAppError("VALIDATION_ERROR", "unknown customer tier", http.StatusBadRequest, nil)
	}

	hash, err := argon2id.CreateHash(in.Password, argon2id.DefaultParams)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.store.CreateUser(ctx, strings.TrimSpace(in.Name), normalizedEmail, hash, common.DigitsOnly(in.Phone), tier, "user")
	if err != nil {
		if store.IsUniqueViolation(err) {
			return User{}, common.ErrConflict("EMAIL_ALREADY_USED", "email is already registered", err)
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return convertUser(created), nil
}

// Login verifies credentials and issues a JWT/refresh token pair.
func (s *Service) Login(ctx context.Context, email, password, userAgent, ip string) (LoginResult, error) {
	normalizedEmail := strings.TrimSpace(strings.ToLower(email))
	if normalizedEmail == "" || password == "" {
		return LoginResult{}, invalidCredentials()
	}

	dbUser, err := s.store.GetUserByEmail(ctx, normalizedEmail)
	if err != nil {
		return LoginResult{}, invalidCredentials()
	}
	ok, err := argon2id.ComparePasswordAndHash(password, dbUser.PasswordHash)
	if err != nil || !ok {
		return LoginResult{}, invalidCredentials()
	}

	accessToken, accessExpiry, err := s.signAccessToken(dbUser)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign access token: %w", err)
	}
	refreshToken, refreshExpiry, err := s.openSession(ctx, dbUser.ID, userAgent, ip)
	if err != nil {
		return LoginResult{}, fmt.Errorf("open session: %w", err)
	}

	return LoginResult{
		User:          convertUser(dbUser),
		AccessToken:   accessToken,
		RefreshToken:  refreshToken,
		AccessExpiry:  accessExpiry,
		RefreshExpiry: refreshExpiry,
	}, nil
}

// Logout revokes the refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	token := strings.TrimSpace(refreshToken)
	if token == "" {
		return nil
	}
	session, err := s.store.GetSessionByToken(ctx, hashRefreshToken(token))
	if err != nil {
		return nil
	}
	return s.store.DeleteSession(ctx, session.ID)
}

// Refresh validates and rotates a refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (RefreshResult, error) {
	token := strings.TrimSpace(refreshToken)
	if token == "" {
		return RefreshResult{}, invalidRefresh()
	}
	session, err := s.store.GetSessionByToken(ctx, hashRefreshToken(token))
	if err != nil {
		return RefreshResult{}, invalidRefresh()
	}
	if s.now().After(session.ExpiresAt) {
		_ = s.store.DeleteSession(ctx, session.ID)
		return RefreshResult{}, invalidRefresh()
	}
	dbUser, err := s.store.GetUserByID(ctx, session.UserID)
	if err != nil {
		_ = s.store.DeleteSession(ctx, session.ID)
		return RefreshResult{}, invalidRefresh()
	}

	accessToken, accessExpiry, err := s.signAccessToken(dbUser)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("sign access token: %w", err)
	}

	// Rotation replaces the session row so a stolen token dies on first use.
	if err := s.store.DeleteSession(ctx, session.ID); err != nil {
		return RefreshResult{}, fmt.Errorf("revoke session: %w", err)
	}
	newRefresh, refreshExpiry, err := s.openSessionWith(ctx, session.UserID, session.UserAgent, session.IP)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("rotate session: %w", err)
	}

	return RefreshResult{
		AccessToken:   accessToken,
		AccessExpiry:  accessExpiry,
		RefreshToken:  newRefresh,
		RefreshExpiry: refreshExpiry,
	}, nil
}

// Me fetches the current authenticated user.
func (s *Service) Me(ctx context.Context, userID string) (User, error) {
	id, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil {
		return User{}, common.ErrUnauthenticated("")
	}
	dbUser, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return User{}, common.ErrUnauthenticated("")
	}
	return convertUser(dbUser), nil
}

// ParseAccessToken validates an access token and returns the caller identity.
func (s *Service) ParseAccessToken(token string) (common.Identity, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return common.Identity{}, common.ErrUnauthenticated("missing token")
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return common.Identity{}, common.NewAppError("UNAUTHENTICATED", "invalid token", http.StatusUnauthorized, err)
	}
	if s.validator.Algorithm != "" && algorithm != s.validator.Algorithm {
		return common.Identity{}, common.NewAppError("UNAUTHENTICATED", "invalid token", http.StatusUnauthorized, fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, s.secret))
	if err != nil {
		return common.Identity{}, common.NewAppError("UNAUTHENTICATED", "invalid token", http.StatusUnauthorized, err)
	}
	if err := s.validator.Validate(parsed, algorithm, s.now()); err != nil {
		return common.Identity{}, common.NewAppError("UNAUTHENTICATED", "invalid token", http.StatusUnauthorized, err)
	}
	id := common.Identity{UserID: parsed.Subject()}
	if v, ok := parsed.Get("role"); ok {
		id.Role, _ = v.(string)
	}
	if v, ok := parsed.Get("tier"); ok {
		id.Tier, _ = v.(string)
	}
	return id, nil
}

func invalidCredentials() error {
	return common.NewAppError("INVALID_CREDENTIALS", "invalid email or password", http.StatusUnauthorized, nil)
}

func invalidRefresh() error {
	return common.NewAppError("UNAUTHENTICATED", "invalid refresh token", http.StatusUnauthorized, nil)
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if alg == jwa.NoSignature {
			return "", errors.New("auth: token uses none algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", errors.New("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}

func (s *Service) signAccessToken(u store.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	builder := jwt.NewBuilder().
		Subject(u.ID.String()).
		Issuer(s.issuer).
		Audience([]string{s.audience}).
		IssuedAt(now).
		NotBefore(now.Add(-s.validator.ClockSkew)).
		Expiration(expiresAt).
		Claim("role", u.Role).
		Claim("tier", u.Tier)
	token, err := builder.Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(s.signer, s.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

func (s *Service) openSession(ctx context.Context, userID uuid.UUID, userAgent, ip string) (string, time.Time, error) {
	var ua, addr *string
	if userAgent != "" {
		ua = &userAgent
	}
	if ip != "" {
		addr = &ip
	}
	return s.openSessionWith(ctx, userID, ua, addr)
}

func (s *Service) openSessionWith(ctx context.Context, userID uuid.UUID, userAgent, ip *string) (string, time.Time, error) {
	token, err := generateToken(48)
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := s.now().Add(s.refreshTTL)
	if _, err := s.store.CreateSession(ctx, userID, hashRefreshToken(token), userAgent, ip, expiresAt); err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func generateToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func convertUser(u store.User) User {
	return User{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Tier:      u.Tier,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
