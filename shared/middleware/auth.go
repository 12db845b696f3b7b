package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/itchan-dev/prepublish/shared/domain"
	jwt_internal "github.com/itchan-dev/prepublish/shared/jwt"
	"github.com/itchan-dev/prepublish/shared/utils"
)

// Key to store the actor in the request context
type key int

const ActorKey key = 0

// Auth resolves the calling actor from a bearer token or the accessToken cookie.
type Auth struct {
	jwtService jwt_internal.JwtService
}

func NewAuth(jwtService jwt_internal.JwtService) *Auth {
	return &Auth{jwtService: jwtService}
}

// NeedAuth rejects requests without a valid token.
func (a *Auth) NeedAuth() func(http.Handler) http.Handler {
	return a.auth("")
}

// RequireCapability is NeedAuth plus a capability check.
func (a *Auth) RequireCapability(c domain.Capability) func(http.Handler) http.Handler {
	return a.auth(c)
}

// OptionalAuth populates the actor if the token is valid and falls through as anonymous otherwise.
func (a *Auth) OptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := a.extractActor(r)
			if err == nil {
				next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (a *Auth) extractActor(r *http.Request) (domain.Actor, error) {
	var tokenString string
	if accessCookie, err := r.Cookie("accessToken"); err == nil {
		tokenString = accessCookie.Value
	} else if token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); found {
		tokenString = token
	}

	if tokenString == "" {
		return domain.Anonymous, errNoToken
	}
	return a.jwtService.DecodeActor(tokenString)
}

var errNoToken = errorString("no token")

type errorString string

func (e errorString) Error() string { return string(e) }

func (a *Auth) auth(required domain.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := a.extractActor(r)
			if err != nil {
				if err == errNoToken {
					http.Error(w, "Please sign-in", http.StatusUnauthorized)
					return
				}
				utils.WriteErrorAndStatusCode(w, err)
				return
			}

			if required != "" && !actor.Permitted(required) {
				http.Error(w, "Access denied. Requires "+string(required), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// GetActorFromContext returns the authenticated actor or domain.Anonymous.
func GetActorFromContext(r *http.Request) domain.Actor {
	actor, ok := r.Context().Value(ActorKey).(domain.Actor)
	if !ok {
		return domain.Anonymous
	}
	return actor
}
