package ops

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSweeper struct {
	processed int
	err       error
	calls     int
}

func (s *stubSweeper) Run(_ context.Context) (int, error) {
	s.calls++
	return s.processed, s.err
}

func TestHealthzIsOpen(t *testing.T) {
	router := NewRouter("secret", &stubSweeper{}, &stubSweeper{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSweepEndpointAuth(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		authHeader string
		wantCode   int
	}{
		{"no header", "secret", "", http.StatusUnauthorized},
		{"wrong scheme", "secret", "Basic secret", http.StatusUnauthorized},
		{"wrong token", "secret", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "secret", "Bearer secret", http.StatusOK},
		{"disabled when unconfigured", "", "Bearer anything", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payouts := &stubSweeper{processed: 3}
			router := NewRouter(tt.token, payouts, &stubSweeper{})

			req := httptest.NewRequest(http.MethodPost, "/ops/payouts", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, 1, payouts.calls)
			} else {
				assert.Zero(t, payouts.calls)
			}
		})
	}
}

func TestSweepEndpointReportsProcessedCount(t *testing.T) {
	reclaimer := &stubSweeper{processed: 2}
	router := NewRouter("secret", &stubSweeper{}, reclaimer)

	req := httptest.NewRequest(http.MethodPost, "/ops/reclaim", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body["processed"])
}

func TestSweepEndpointFailure(t *testing.T) {
	payouts := &stubSweeper{err: errors.New("store unavailable")}
	router := NewRouter("secret", payouts, &stubSweeper{})

	req := httptest.NewRequest(http.MethodPost, "/ops/payouts", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
