package middleware

import (
	"fmt"
	"net"
	"net/http"

	"github.com/itchan-dev/prepublish/shared/domain"
	"github.com/itchan-dev/prepublish/shared/middleware/ratelimiter"
	"github.com/itchan-dev/prepublish/shared/utils"
)

func RateLimit(rl *ratelimiter.UserRateLimiter, getIdentity func(r *http.Request) (string, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetActorFromContext(r).Permitted(domain.CapManaging) {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := getIdentity(r)
			if err != nil {
				utils.WriteErrorAndStatusCode(w, err)
				return
			}
			if !rl.Allow(identity) {
				http.Error(w, "Rate limit exceeded, try again later", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ActorOrIP keys authenticated callers by actor id and anonymous ones by address.
func ActorOrIP(r *http.Request) (string, error) {
	if actor := GetActorFromContext(r); !actor.IsAnonymous() {
		return "actor_" + actor.Id.String(), nil
	}
	ip, err := GetIP(r)
	if err != nil {
		return "", err
	}
	return "ip_" + ip, nil
}

// GetIP extracts the client IP from RemoteAddr.
// Forwarding headers are ignored; put a trusted proxy's RealIP middleware in front if needed.
func GetIP(r *http.Request) (string, error) {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}

	if net.ParseIP(ip) == nil {
		return "", fmt.Errorf("invalid IP address: %s", ip)
	}

	return ip, nil
}
