package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/candlelife/candle/internal/auth"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type contextKey string

const userIDKey contextKey = "user_id"

// userID returns the identity the request was authenticated as.
func userID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// requestLogger logs each request once it has been served.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

// requireUser admits requests whose bearer token names the identity the
// daemon is signed in as.
func (a *API) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.verifier == nil {
			writeError(w, http.StatusUnauthorized, "token auth is not configured")
			return
		}
		token, err := auth.ExtractBearerToken(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		subject, err := a.verifier.Verify(token)
		if err != nil {
			a.logger.Info("rejected token", zap.Error(err))
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		current, ok := a.identity.Current()
		if !ok {
			writeError(w, http.StatusUnauthorized, "not signed in")
			return
		}
		if subject != current {
			writeError(w, http.StatusForbidden, "token does not match the signed-in user")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
