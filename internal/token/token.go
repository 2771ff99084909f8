package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"legalgpt/server/internal/model"
)

// Token classes. A token signed for one class never verifies as the other:
// each class has its own signing secret, and the class claim is checked
// after decode.
const (
	ClassAccess  = "access"
	ClassRefresh = "refresh"
)

// ErrInvalidToken is the single outcome for every verification failure:
// bad signature, structural garbage, expiry, missing claim fields, wrong
// token class. Callers are never told which one it was.
var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID     string `json:"userId"`
	Email      string `json:"email"`
	TokenClass string `json:"tokenClass"`
	jwt.RegisteredClaims
}

type Config struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewService(cfg Config) *Service {
	return &Service{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		issuer:        cfg.Issuer,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
	}
}

func (s *Service) IssueAccess(user model.User) (string, error) {
	return s.issue(user, ClassAccess, s.accessSecret, s.accessTTL)
}

func (s *Service) IssueRefresh(user model.User) (string, error) {
	return s.issue(user, ClassRefresh, s.refreshSecret, s.refreshTTL)
}

func (s *Service) issue(user model.User, class string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID:     user.ID,
		Email:      user.Email,
		TokenClass: class,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (s *Service) VerifyAccess(tokenString string) (*Claims, error) {
	return verify(tokenString, s.accessSecret, ClassAccess)
}

func (s *Service) VerifyRefresh(tokenString string) (*Claims, error) {
	return verify(tokenString, s.refreshSecret, ClassRefresh)
}

func verify(tokenString string, secret []byte, class string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	// Reject payloads missing required fields before they reach handlers.
	if claims.UserID == "" || claims.Email == "" {
		return nil, ErrInvalidToken
	}
	if claims.TokenClass != class {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
