package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/xtrntr/p2pexchange/internal/models"
)

var (
	ErrInvalidSession = errors.New("invalid or expired session")
	ErrSessionRevoked = errors.New("session revoked")
)

// SessionService issues and verifies signed session tokens
type SessionService struct {
	secret      []byte
	ttl         time.Duration
	revocations RevocationStore
	now         func() time.Time
}

// NewSessionService creates a new session service
func NewSessionService(secret string, ttl time.Duration, revocations RevocationStore) *SessionService {
	return &SessionService{
		secret:      []byte(secret),
		ttl:         ttl,
		revocations: revocations,
		now:         time.Now,
	}
}

// Issue signs a session token for the account
func (s *SessionService) Issue(account *models.Account) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      strconv.FormatInt(account.ID, 10),
		"username": account.Username,
		"jti":      uuid.NewString(),
		"iat":      now.Unix(),
		"exp":      now.Add(s.ttl).Unix(),
	})

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return tokenString, nil
}

// Verify parses a session token and returns the requester it identifies
func (s *SessionService) Verify(ctx context.Context, tokenString string) (*models.Requester, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidSession
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return nil, ErrInvalidSession
	}
	accountID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, ErrInvalidSession
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrInvalidSession
	}
	sessionID, _ := claims["jti"].(string)
	username, _ := claims["username"].(string)
	if sessionID == "" || username == "" {
		return nil, ErrInvalidSession
	}

	revoked, err := s.revocations.IsRevoked(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check session revocation: %w", err)
	}
	if revoked {
		return nil, ErrSessionRevoked
	}

	return &models.Requester{
		AccountID: accountID,
		Username:  username,
		SessionID: sessionID,
		ExpiresAt: exp.Time,
	}, nil
}

// Revoke ends the requester's session for the rest of its lifetime
func (s *SessionService) Revoke(ctx context.Context, requester *models.Requester) error {
	ttl := requester.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revocations.Revoke(ctx, requester.SessionID, ttl); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// TTL returns the lifetime of issued sessions
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}
