package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/goquad/internal/config"
	"github.com/njchilds90/goquad/internal/render"
	"github.com/njchilds90/goquad/internal/server"
)

func newServer(t *testing.T) http.Handler {
	t.Helper()
	cfg := config.Default()
	cfg.Server.MaxBodyBytes = 512
	return server.New(cfg, nil).Handler()
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/integrate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIntegrate(t *testing.T) {
	rec := post(t, newServer(t), `{"expr": "6/sqrt(x)", "lower": 1, "upper": "2*2", "n": 100}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var view render.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, 4.0, view.Upper)
	require.NotNil(t, view.Exact.Value)
	assert.Equal(t, 12.0, *view.Exact.Value)
	require.Len(t, view.Approximations, 3)
	for _, a := range view.Approximations {
		require.NotNil(t, a.Value, a.Rule)
		assert.InDelta(t, 12, *a.Value, 0.01, a.Rule)
	}
}

func TestIntegrate_RulesAndDefaults(t *testing.T) {
	rec := post(t, newServer(t), `{"expr": "t^2", "lower": 0, "upper": 1, "rules": ["M_n"], "precision": 2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var view render.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "t", view.Var)
	assert.Equal(t, 10, view.N)
	require.Len(t, view.Approximations, 1)
	assert.Equal(t, "midpoint", view.Approximations[0].Rule)
	assert.Equal(t, 0.33, *view.Approximations[0].Value)
}

func TestIntegrate_BadRequests(t *testing.T) {
	h := newServer(t)
	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed", `{"expr": `, http.StatusBadRequest},
		{"unknown field", `{"expr": "x", "lower": 0, "upper": 1, "steps": 4}`, http.StatusBadRequest},
		{"trailing data", `{"expr": "x", "lower": 0, "upper": 1} {}`, http.StatusBadRequest},
		{"parse error", `{"expr": "x +", "lower": 0, "upper": 1}`, http.StatusBadRequest},
		{"bad bound", `{"expr": "x", "lower": true, "upper": 1}`, http.StatusBadRequest},
		{"unknown rule", `{"expr": "x", "lower": 0, "upper": 1, "rules": ["romberg"]}`, http.StatusBadRequest},
		{"odd n with simpson", `{"expr": "x", "lower": 0, "upper": 1, "n": 3}`, http.StatusUnprocessableEntity},
		{"negative n", `{"expr": "x", "lower": 0, "upper": 1, "n": -2}`, http.StatusUnprocessableEntity},
		{"n above limit", `{"expr": "x", "lower": 1, "upper": 1, "n": 1152921504606846976, "rules": ["trapezoidal"]}`, http.StatusBadRequest},
		{"huge precision", `{"expr": "x", "lower": 0, "upper": 1, "precision": 1000000000}`, http.StatusBadRequest},
		{"negative precision", `{"expr": "x", "lower": 0, "upper": 1, "precision": -1}`, http.StatusBadRequest},
		{"too large", `{"expr": "` + strings.Repeat("x+", 400) + `x", "lower": 0, "upper": 1}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h, tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestIntegrate_MethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	newServer(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/integrate", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRules(t *testing.T) {
	rec := httptest.NewRecorder()
	newServer(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rules", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var rules []server.RuleInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rules))
	require.Len(t, rules, 3)
	assert.Equal(t, "S_n", rules[2].Symbol)
	assert.Equal(t, 4, rules[2].Order)
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newServer(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
