package httpapi

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimit is a fixed-window limiter keyed by client IP and scope,
// backed by Redis so the limit holds across replicas. On Redis failure
// the request is let through.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			key := fmt.Sprintf("ratelimit:%s:%s", scope, ip)

			count, err := rdb.Incr(r.Context(), key).Result()
			if err == nil {
				if count == 1 {
					rdb.Expire(r.Context(), key, window)
				}
				if count > int64(limit) {
					writeError(w, http.StatusTooManyRequests, "too many requests")
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
