package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/damage-detector/internal/core/auth"
)

func echoUser(w http.ResponseWriter, r *http.Request) {
	id, ok := UserIDFromContext(r.Context())
	if !ok {
		id = "anonymous"
	}
	_, _ = w.Write([]byte(id))
}

func TestJWTMiddleware(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	h := JWTMiddleware(tokens)(http.HandlerFunc(echoUser))

	tok, err := tokens.Issue("user-7")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{"valid", "Bearer " + tok, http.StatusOK, "user-7"},
		{"missing", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Token " + tok, http.StatusUnauthorized, ""},
		{"garbage", "Bearer abc.def.ghi", http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.code, rec.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), `"error"`)
			}
		})
	}
}

func TestOptionalJWT(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	h := OptionalJWT(tokens)(http.HandlerFunc(echoUser))
	tok, err := tokens.Issue("user-9")
	require.NoError(t, err)

	for header, want := range map[string]string{
		"":                 "anonymous",
		"Bearer " + tok:    "user-9",
		"Bearer not-a-jwt": "anonymous",
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/analyze_assessment", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, want, rec.Body.String())
	}
}
