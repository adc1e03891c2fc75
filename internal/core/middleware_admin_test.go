package core

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"sunpump/internal/types"
)

func TestRequireAdminKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("open-sesame"), bcrypt.MinCost)
	require.NoError(t, err)

	srv := newTestServer(t)
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusAccepted) })

	tests := []struct {
		name   string
		hash   types.SecretString
		key    string
		status int
		code   string
	}{
		{"valid", types.SecretString(hash), "open-sesame", http.StatusAccepted, ""},
		{"missing", types.SecretString(hash), "", http.StatusUnauthorized, "auth_token_missing"},
		{"wrong", types.SecretString(hash), "guess", http.StatusUnauthorized, "auth_token_invalid"},
		{"disabled", "", "open-sesame", http.StatusUnauthorized, "auth_token_invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/forecast/reload", nil)
			if tt.key != "" {
				req.Header.Set(AdminKeyHeader, tt.key)
			}
			rec := httptest.NewRecorder()
			srv.RequireAdminKey(tt.hash)(ok).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.code != "" {
				assert.Contains(t, rec.Body.String(), `"code":"`+tt.code+`"`)
			}
		})
	}
}
