package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"asthma_shield/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultTokenTTL   = time.Hour
	tokenIssuer       = "asthma-shield"
	maxUsernameLength = 64
	minPasswordLength = 8
)

var errNoSigningKey = errors.New("auth signing key is empty")

// Auth errors. Handlers map ErrInvalidCredentials to 401 and
// ErrInvalidCredentialsFormat to 400.
var (
	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrInvalidCredentialsFormat = errors.New("invalid credentials format")
	ErrUserExists               = errors.New("username already taken")
	ErrInvalidToken             = errors.New("invalid token")
)

// AuthService signs up API operators and issues their bearer tokens.
type AuthService struct {
	repo       repository.OperatorStore
	signingKey []byte
	tokenTTL   time.Duration
	now        func() time.Time
}

// NewAuthService builds the auth flows. An empty signing key is an error.
func NewAuthService(repo repository.OperatorStore, signingKey string, tokenTTL time.Duration) (*AuthService, error) {
	if strings.TrimSpace(signingKey) == "" {
		return nil, errNoSigningKey
	}
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &AuthService{repo: repo, signingKey: []byte(signingKey), tokenTTL: tokenTTL, now: time.Now}, nil
}

// SignUp validates the credentials, hashes the password and stores the operator.
func (s *AuthService) SignUp(ctx context.Context, username, password string) (int, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return 0, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	id, err := s.repo.Create(ctx, username, string(hash))
	if errors.Is(err, repository.ErrUserExists) {
		return 0, ErrUserExists
	}
	return id, err
}

// Claims are the JWT claims carried by operator tokens.
type Claims struct {
	jwt.RegisteredClaims
	UserID int `json:"user_id"`
}

// GenerateToken checks the credentials and returns a signed token. Unknown
// users and wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) GenerateToken(ctx context.Context, username, password string) (string, error) {
	u, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repository.ErrUserNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	return s.issueToken(u.ID, u.Username)
}

// ParseToken verifies signature, issuer and expiry and returns the user ID.
func (s *AuthService) ParseToken(accessToken string) (int, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(accessToken, &claims,
		func(*jwt.Token) (interface{}, error) { return s.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.UserID <= 0 {
		return 0, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}
	return claims.UserID, nil
}

func (s *AuthService) issueToken(userID int, username string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
		UserID: userID,
	})
	return token.SignedString(s.signingKey)
}

func validateCredentials(username, password string) error {
	switch {
	case username == "":
		return fmt.Errorf("%w: username is empty", ErrInvalidCredentialsFormat)
	case utf8.RuneCountInString(username) > maxUsernameLength:
		return fmt.Errorf("%w: username longer than %d characters", ErrInvalidCredentialsFormat, maxUsernameLength)
	case len(password) < minPasswordLength:
		return fmt.Errorf("%w: password shorter than %d characters", ErrInvalidCredentialsFormat, minPasswordLength)
	}
	return nil
}
