package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/content-service/internal/auth"
)

const secret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func echoIdentity() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(Subject(r.Context()) + "/" + Role(r.Context())))
	})
}

func TestRequireAuth(t *testing.T) {
	issued, err := auth.IssueToken(secret, "svc-1", "admin", time.Hour)
	require.NoError(t, err)
	valid := jwt.MapClaims{"sub": "editor-7", "role": "editor", "exp": time.Now().Add(time.Hour).Unix()}

	tests := []struct {
		name   string
		header string
		roles  []string
		status int
		body   string
	}{
		{name: "missing header", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer abc", status: http.StatusUnauthorized},
		{
			name:   "wrong secret",
			header: "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), valid),
			status: http.StatusUnauthorized,
		},
		{
			name:   "expired",
			header: "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": "x", "exp": time.Now().Add(-time.Minute).Unix()}),
			status: http.StatusUnauthorized,
		},
		{
			name:   "other algorithm",
			header: "Bearer " + sign(t, jwt.SigningMethodHS512, []byte(secret), valid),
			status: http.StatusUnauthorized,
		},
		{
			name:   "valid",
			header: "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), valid),
			status: http.StatusOK,
			body:   "editor-7/editor",
		},
		{
			name:   "role allowed",
			header: "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), valid),
			roles:  []string{"admin", "editor"},
			status: http.StatusOK,
			body:   "editor-7/editor",
		},
		{
			name:   "issued token",
			header: "Bearer " + issued,
			roles:  []string{"admin", "editor"},
			status: http.StatusOK,
			body:   "svc-1/admin",
		},
		{
			name:   "role denied",
			header: "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(secret), valid),
			roles:  []string{"admin"},
			status: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			RequireAuth(secret, tt.roles...)(echoIdentity()).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := chiMiddleware.RequestID(Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("missing"))
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/media/x", nil))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "GET", line["method"])
	assert.Equal(t, "/api/v1/media/x", line["path"])
	assert.EqualValues(t, 404, line["status"])
	assert.EqualValues(t, 7, line["bytes"])
	assert.NotEmpty(t, line["request_id"])
}
