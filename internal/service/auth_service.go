package service

import (
	"errors"
	"fmt"
	"time"

	"whisperwall/internal/config"
	"whisperwall/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Claims carried by admin tokens.
const (
	TokenIssuer   = "whisperwall-api"
	AdminAudience = "whisperwall-admin"
	AdminSubject  = "admin"
)

// AuthService checks the shared board password and issues admin tokens.
type AuthService struct {
	boardHash []byte
	adminHash []byte
	secret    []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewAuthService prepares password hashes from cfg. Plain-text passwords
// are hashed once here.
func NewAuthService(cfg *config.Config) (*AuthService, error) {
	s := &AuthService{
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.AdminTokenTTL,
		now:    time.Now,
	}
	if s.ttl <= 0 {
		s.ttl = 12 * time.Hour
	}

	if cfg.BoardPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.BoardPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash board password: %w", err)
		}
		s.boardHash = hash
	}

	switch {
	case cfg.AdminPasswordHash != "":
		s.adminHash = []byte(cfg.AdminPasswordHash)
	case cfg.AdminPassword != "":
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		s.adminHash = hash
	}
	return s, nil
}

// BoardOpen reports whether login needs no password.
func (s *AuthService) BoardOpen() bool {
	return s.boardHash == nil
}

// Login checks the shared password and returns a fresh session token for
// like deduplication.
func (s *AuthService) Login(password string) (string, error) {
	if s.boardHash != nil {
		if err := bcrypt.CompareHashAndPassword(s.boardHash, []byte(password)); err != nil {
			return "", models.NewUnauthorizedError("Invalid password")
		}
	}
	return uuid.NewString(), nil
}

// AdminLogin checks the admin password and returns a signed admin token.
func (s *AuthService) AdminLogin(password string) (string, time.Time, error) {
	if s.adminHash == nil {
		return "", time.Time{}, models.NewForbiddenError("Admin access is not configured")
	}
	if err := bcrypt.CompareHashAndPassword(s.adminHash, []byte(password)); err != nil {
		return "", time.Time{}, models.NewUnauthorizedError("Invalid credentials")
	}

	now := s.now()
	expires := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    TokenIssuer,
		Subject:   AdminSubject,
		Audience:  jwt.ClaimStrings{AdminAudience},
		ExpiresAt: jwt.NewNumericDate(expires),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, models.NewInternalError(err)
	}
	return token, expires, nil
}

// VerifyAdminToken validates an admin token and returns its subject.
func (s *AuthService) VerifyAdminToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(AdminAudience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject != AdminSubject {
		return "", errors.New("invalid admin token")
	}
	return claims.Subject, nil
}
