package core

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"sunpump/internal/types"
)

// AdminKeyHeader carries the plaintext admin key.
const AdminKeyHeader = "X-Admin-Key"

// RequireAdminKey guards operator routes. The presented key is compared
// against hash with bcrypt. An empty hash disables the routes entirely.
func (s *Server) RequireAdminKey(hash types.SecretString) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hash.IsZero() {
				Error(w, r, types.NewAppError(types.ErrCodeAuthTokenInvalid, "admin access is not configured", nil))
				return
			}
			key := r.Header.Get(AdminKeyHeader)
			if key == "" {
				Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "missing "+AdminKeyHeader+" header", nil))
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(hash.Unmask()), []byte(key)); err != nil {
				s.Logger.Warn("admin key rejected",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"request_id", types.GetRequestID(r.Context()),
				)
				Error(w, r, types.NewAppError(types.ErrCodeAuthTokenInvalid, "invalid admin key", nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
