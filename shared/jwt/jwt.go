package jwt

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/itchan-dev/prepublish/shared/domain"
	internal_errors "github.com/itchan-dev/prepublish/shared/errors"
	"github.com/itchan-dev/prepublish/shared/logger"
)

// JwtService issues and verifies actor tokens. Accounts and login live in a
// separate service; this one only trusts what the token says.
type JwtService interface {
	NewToken(actor domain.Actor) (string, error)
	DecodeActor(jwtStr string) (domain.Actor, error)
}

type Jwt struct {
	secretKey string
	ttl       time.Duration
}

type actorClaims struct {
	Capabilities []domain.Capability `json:"caps"`
	jwt.RegisteredClaims
}

func New(secretKey string, ttl time.Duration) JwtService {
	return &Jwt{secretKey, ttl}
}

func (j *Jwt) NewToken(actor domain.Actor) (string, error) {
	claims := actorClaims{
		Capabilities: actor.Capabilities,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.Id.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(j.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		logger.Log.Error("failed to sign token", "error", err)
		return "", errors.New("Can't create token")
	}
	return tokenString, nil
}

func (j *Jwt) DecodeActor(jwtStr string) (domain.Actor, error) {
	var claims actorClaims
	token, err := jwt.ParseWithClaims(jwtStr, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(j.secretKey), nil
	})
	if err != nil {
		logger.Log.Debug("token rejected", "error", err)
		return domain.Actor{}, &internal_errors.ErrorWithStatusCode{Message: "Invalid token signature", StatusCode: http.StatusUnauthorized}
	}
	if !token.Valid {
		return domain.Actor{}, &internal_errors.ErrorWithStatusCode{Message: "Invalid access token", StatusCode: http.StatusUnauthorized}
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil || id == uuid.Nil {
		return domain.Actor{}, &internal_errors.ErrorWithStatusCode{Message: "Invalid token subject", StatusCode: http.StatusUnauthorized}
	}
	caps := make([]domain.Capability, 0, len(claims.Capabilities))
	for _, c := range claims.Capabilities {
		if c.Valid() {
			caps = append(caps, c)
		}
	}
	return domain.NewActor(id, caps...), nil
}
