// Package token signs and verifies the bearer tokens used by the API. Tokens
// are self-contained HS256 JWTs carrying subject, expiry and purpose; nothing
// is persisted server-side, so revocation happens by deactivating the account.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pvolkov/filecrate/internal/apperr"
)

type Purpose string

const (
	PurposeAccess  Purpose = "access"
	PurposeRefresh Purpose = "refresh"
)

type Claims struct {
	Subject   uuid.UUID
	Purpose   Purpose
	ExpiresAt time.Time
}

type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewCodec(secret string, accessTTL, refreshTTL time.Duration) *Codec {
	return &Codec{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL}
}

func (c *Codec) Issue(subject uuid.UUID, purpose Purpose) (string, error) {
	ttl := c.accessTTL
	if purpose == PurposeRefresh {
		ttl = c.refreshTTL
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":     subject.String(),
		"purpose": string(purpose),
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", apperr.Internal("failed to sign token", err)
	}
	return signed, nil
}

func (c *Codec) IssuePair(subject uuid.UUID) (Pair, error) {
	access, err := c.Issue(subject, PurposeAccess)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := c.Issue(subject, PurposeRefresh)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// Verify checks signature, expiry and purpose. Every failure mode maps to the
// same Unauthorized error so callers cannot distinguish which check tripped.
func (c *Codec) Verify(raw string, want Purpose) (Claims, error) {
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return c.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Claims{}, apperr.Unauthorized("invalid token")
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, apperr.Unauthorized("invalid token")
	}

	purpose, _ := mapClaims["purpose"].(string)
	if Purpose(purpose) != want {
		return Claims{}, apperr.Unauthorized("invalid token")
	}

	sub, _ := mapClaims["sub"].(string)
	subject, err := uuid.Parse(sub)
	if err != nil {
		return Claims{}, apperr.Unauthorized("invalid token")
	}

	exp, err := mapClaims.GetExpirationTime()
	if err != nil || exp == nil {
		return Claims{}, apperr.Unauthorized("invalid token")
	}

	return Claims{Subject: subject, Purpose: want, ExpiresAt: exp.Time}, nil
}
