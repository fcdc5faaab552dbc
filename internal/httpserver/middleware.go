package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/macrotracker/intake-service/internal/config"
	"github.com/macrotracker/intake-service/internal/logger"
	"github.com/macrotracker/intake-service/internal/userctx"
)

// AuthMiddleware resolves the caller's identity. In gateway mode the
// X-User-Id header is trusted as-is, since only the API gateway can
// reach this service. In jwt mode a Bearer token is verified instead.
// Requests without an identity pass through; handlers reject them.
func AuthMiddleware(cfg *config.Config, log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		switch cfg.AuthMode {
		case config.AuthModeJWT:
			userID, err := verifyBearer(r.Header.Get("Authorization"), cfg.JWTSecret)
			if err != nil {
				writeAuthError(w, "Invalid or expired token")
				return
			}
			r = r.WithContext(userctx.WithUserID(r.Context(), userID))
		default:
			if raw := r.Header.Get("X-User-Id"); raw != "" {
				userID, err := strconv.ParseInt(raw, 10, 64)
				if err != nil {
					writeAuthError(w, "Invalid X-User-Id header")
					return
				}
				r = r.WithContext(userctx.WithUserID(r.Context(), userID))
			}
		}

		next.ServeHTTP(w, r)
	})
}

func verifyBearer(authHeader, secret string) (int64, error) {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return 0, fmt.Errorf("malformed authorization header")
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, fmt.Errorf("invalid token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return 0, fmt.Errorf("missing sub claim")
	}
	return strconv.ParseInt(sub, 10, 64)
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}

func isPublicPath(path string) bool {
	return path == "/healthz"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// TraceMiddleware assigns each request a trace id (propagating an
// incoming X-Trace-Id), echoes it on the response and logs the request.
func TraceMiddleware(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-Id")
		if traceID == "" {
			traceID = uuid.New().String()
		}
		w.Header().Set("X-Trace-Id", traceID)
		r = r.WithContext(userctx.WithTraceID(r.Context(), traceID))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		if r.URL.Path == "/healthz" {
			return
		}
		log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"trace_id", traceID,
		)
	})
}
