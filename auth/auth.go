// Package auth registers users, checks their passwords and issues the signed
// session tokens the API expects as bearer credentials.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/deemkeen/reblog/db"
	"github.com/deemkeen/reblog/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultTokenTtl   = 30 * 24 * time.Hour
	MinPasswordLength = 6
	bcryptCost        = 10
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Id string `json:"id"`
	jwt.RegisteredClaims
}

type Service struct {
	users  db.UserStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// New returns a Service signing tokens with secret. An empty secret is
// replaced by a random one, which invalidates tokens on every restart.
func New(users db.UserStore, secret string, ttl time.Duration) *Service {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic(fmt.Sprintf("generating jwt secret: %v", err))
		}
		slog.Warn("no jwt secret configured, using a random one; tokens will not survive a restart")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTtl
	}
	return &Service{users: users, secret: key, ttl: ttl, now: time.Now}
}

func validateRegistration(name, email, password string) error {
	if strings.TrimSpace(name) == "" {
		return domain.NewValidationError(domain.ReasonInvalidInput, "name is required")
	}
	if !strings.Contains(email, "@") {
		return domain.NewValidationError(domain.ReasonInvalidInput, "a valid email is required")
	}
	if len(password) < MinPasswordLength {
		return domain.NewValidationError(domain.ReasonInvalidInput, "password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// Register creates a user and returns a token for it.
func (s *Service) Register(ctx context.Context, name, email, password string) (string, *domain.User, error) {
	if err := validateRegistration(name, email, password); err != nil {
		return "", nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", nil, domain.Authoritative("hash password", err)
	}

	user := domain.NewUser(name, email, string(hash))
	if err := s.users.CreateUser(ctx, user); err != nil {
		return "", nil, err
	}

	token, err := s.Issue(user.Id)
	if err != nil {
		return "", nil, err
	}
	slog.Info("user registered", slog.String("user_id", user.Id.String()))
	return token, user, nil
}

// Login checks the credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.Issue(user.Id)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Issue signs a token for userId.
func (s *Service) Issue(userId uuid.UUID) (string, error) {
	now := s.now()
	claims := Claims{
		Id: userId.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userId.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", domain.Authoritative("sign token", err)
	}
	return token, nil
}

// Verify checks signature and expiry and returns the user id of the token.
func (s *Service) Verify(token string) (uuid.UUID, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	raw := claims.Id
	if raw == "" {
		raw = claims.Subject
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return id, nil
}
