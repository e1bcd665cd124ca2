package middleware

import (
	"net/http"
	"time"

	"github.com/cpcoach/backend/internal/httpx"
	"github.com/cpcoach/backend/internal/models"
	"github.com/go-chi/httprate"
)

func rateLimited(w http.ResponseWriter, r *http.Request) {
	resp := models.NewErrorResponse(models.CodeRateLimited, "Too many requests. Please slow down.")
	w.Header().Set("Retry-After", "60")
	httpx.WriteJSON(w, http.StatusTooManyRequests, resp)
}

// RateLimit allows perMinute requests per client IP, with at most burst of
// them in any one second. A non-positive perMinute disables limiting.
func RateLimit(perMinute, burst int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	opts := []httprate.Option{
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rateLimited),
	}
	minute := httprate.Limit(perMinute, time.Minute, opts...)
	if burst <= 0 {
		return minute
	}
	second := httprate.Limit(burst, time.Second, opts...)
	return func(next http.Handler) http.Handler {
		return minute(second(next))
	}
}
