package middleware

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const gmIssuer = "raidtable"

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrWrongScope    = errors.New("token is for another encounter")
	errSigningMethod = errors.New("unexpected signing method")
)

// GMClaims is the payload of a GM token. A token only opens the admin
// overrides of the encounter it was issued for.
type GMClaims struct {
	EncounterID string `json:"encounter_id"`
	jwt.RegisteredClaims
}

// GenerateGMToken signs a GM token for encounterID with the given secret and TTL.
func GenerateGMToken(encounterID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &GMClaims{
		EncounterID: encounterID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    gmIssuer,
			Subject:   encounterID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseGMToken validates a GM token and returns its claims.
func ParseGMToken(tokenStr, secret string) (*GMClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &GMClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errSigningMethod
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(gmIssuer))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*GMClaims)
	if !ok || !token.Valid || claims.EncounterID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyGMToken parses tokenStr and checks it was issued for encounterID.
func VerifyGMToken(tokenStr, secret, encounterID string) (*GMClaims, error) {
	claims, err := ParseGMToken(tokenStr, secret)
	if err != nil {
		return nil, err
	}
	if claims.EncounterID != encounterID {
		return nil, ErrWrongScope
	}
	return claims, nil
}
