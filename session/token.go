package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"Gin_postgres_redis_asset_loan/clock"
	"Gin_postgres_redis_asset_loan/models"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims binds a bearer token to a redis session.
type Claims struct {
	UserID    uint        `json:"uid"`
	SessionID string      `json:"sid"`
	Role      models.Role `json:"role"`
	jwt.RegisteredClaims
}

type Tokens struct {
	secret []byte
	ttl    time.Duration
	clk    clock.Clock
}

func NewTokens(secret string, ttl time.Duration, clk clock.Clock) *Tokens {
	if clk == nil {
		clk = clock.Real()
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, clk: clk}
}

// Issue signs an HS256 token for the session and returns its expiry.
func (t *Tokens) Issue(userID uint, sid string, role models.Role) (string, time.Time, error) {
	now := t.clk.Now()
	exp := now.Add(t.ttl)
	claims := Claims{
		UserID:    userID,
		SessionID: sid,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (t *Tokens) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.clk.Now),
	)
	if err != nil || claims.SessionID == "" || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// BcryptCost is lowered by tests.
var BcryptCost = bcrypt.DefaultCost

func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
