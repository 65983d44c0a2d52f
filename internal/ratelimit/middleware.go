package ratelimit

import (
	"log/slog"
	"net/http"

	derrors "cardvault/pkg/domain-errors"
	"cardvault/pkg/platform/httputil"
	"cardvault/pkg/requestcontext"
)

// Middleware limits requests per authenticated user. Mount after RequireAuth
// so the user ID is in context. Limiter failures fail open: dropping traffic
// because redis blipped is worse than briefly not limiting.
func Middleware(limiter Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := requestcontext.UserID(ctx)

			allowed, err := limiter.Allow(ctx, userID.String())
			if err != nil {
				logger.WarnContext(ctx, "rate limiter unavailable, failing open",
					"request_id", requestcontext.RequestID(ctx),
					"error", err.Error(),
				)
				allowed = true
			}
			if !allowed {
				logger.InfoContext(ctx, "rate limit exceeded",
					"request_id", requestcontext.RequestID(ctx),
					"user_id", userID.String(),
				)
				httputil.WriteError(w, derrors.New(derrors.CodeRateLimited, "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
