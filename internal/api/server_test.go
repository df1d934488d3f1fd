package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"classtrade/internal/admin"
	"classtrade/internal/aigen"
	"classtrade/internal/auth"
	"classtrade/internal/config"
	"classtrade/internal/game"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestServer(t *testing.T, qrTTL time.Duration) (*Server, *auth.Issuer) {
	t.Helper()
	issuer := auth.NewIssuer(testSecret, time.Hour, qrTTL)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	cfg := config.APIConfig{PublicBaseURL: "http://class.test"}
	return New(cfg, logger, issuer, nil, nil, aigen.NewGenerator(nil)), issuer
}

func do(t *testing.T, s *Server, method, path, token, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, time.Minute)
	rec, env := do(t, s, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, map[string]any{"ok": true}, env.Data)
}

func TestMetricsExposed(t *testing.T) {
	s, _ := newTestServer(t, time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "classtrade_ranking_compute_seconds")
}

func TestAdminRoutesRequireAdminToken(t *testing.T) {
	s, issuer := newTestServer(t, time.Minute)

	rec, env := do(t, s, http.MethodGet, "/v1/admin/clients", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "missing bearer token", env.Message)

	rec, _ = do(t, s, http.MethodGet, "/v1/admin/clients", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	guest, err := issuer.GuestSession(5, 1)
	require.NoError(t, err)
	rec, env = do(t, s, http.MethodGet, "/v1/admin/clients", guest.AccessToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, auth.ErrWrongRole.Error(), env.Message)
}

func TestStudentRoutesRejectAdminToken(t *testing.T) {
	s, issuer := newTestServer(t, time.Minute)
	adm, err := issuer.AdminSession(1)
	require.NoError(t, err)
	rec, _ := do(t, s, http.MethodGet, "/v1/student/dashboard", adm.AccessToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStudentLoginValidation(t *testing.T) {
	s, _ := newTestServer(t, time.Minute)

	rec, env := do(t, s, http.MethodPost, "/v1/student/login", "", `{"class_id":1,"extra":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Message, "unknown field")

	rec, env = do(t, s, http.MethodPost, "/v1/student/login", "", `{"name":" "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid input", env.Message)
	assert.Contains(t, env.Fields, "class_id")
	assert.Contains(t, env.Fields, "name")
	assert.Contains(t, env.Fields, "phone")
}

func TestQRLoginRejectsOtherClass(t *testing.T) {
	s, issuer := newTestServer(t, time.Minute)
	qr, err := issuer.QRToken(7, 1)
	require.NoError(t, err)

	rec, env := do(t, s, http.MethodGet, fmt.Sprintf("/qr-login?token=%s&classId=2", qr.AccessToken), "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, auth.ErrClassMismatch.Error(), env.Message)

	body := fmt.Sprintf(`{"token":%q,"class_id":2}`, qr.AccessToken)
	rec, _ = do(t, s, http.MethodPost, "/v1/student/qr-login", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestQRLoginRejectsExpiredToken(t *testing.T) {
	s, issuer := newTestServer(t, -time.Minute)
	qr, err := issuer.QRToken(7, 1)
	require.NoError(t, err)

	body := fmt.Sprintf(`{"token":%q,"class_id":1}`, qr.AccessToken)
	rec, env := do(t, s, http.MethodPost, "/v1/student/qr-login", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, auth.ErrTokenExpired.Error(), env.Message)
}

func TestQRLoginLinkRequiresParams(t *testing.T) {
	s, _ := newTestServer(t, time.Minute)
	rec, _ := do(t, s, http.MethodGet, "/qr-login?token=abc", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQRTokenCannotOpenStudentRoutes(t *testing.T) {
	s, issuer := newTestServer(t, time.Minute)
	qr, err := issuer.QRToken(7, 1)
	require.NoError(t, err)
	rec, _ := do(t, s, http.MethodGet, "/v1/student/dashboard", qr.AccessToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminRequestValidationBeforeServices(t *testing.T) {
	s, issuer := newTestServer(t, time.Minute)
	adm, err := issuer.AdminSession(1)
	require.NoError(t, err)

	rec, env := do(t, s, http.MethodGet, "/v1/admin/classes/abc", adm.AccessToken, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid id", env.Message)

	rec, env = do(t, s, http.MethodPost, "/v1/admin/classes/1/guests/bulk", adm.AccessToken, `{"rows":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Fields, "rows")

	rec, env = do(t, s, http.MethodGet, "/v1/admin/news", adm.AccessToken, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Fields, "class_id")
}

func TestGenerateDisabledWithoutModel(t *testing.T) {
	s, issuer := newTestServer(t, time.Minute)
	adm, err := issuer.AdminSession(1)
	require.NoError(t, err)
	rec, env := do(t, s, http.MethodPost, "/v1/admin/classes/1/generate", adm.AccessToken, `{"stock_ids":[1]}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, aigen.ErrDisabled.Error(), env.Message)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("buy: %w", game.ErrInsufficientFunds), http.StatusUnprocessableEntity},
		{game.ErrInsufficientHoldings, http.StatusUnprocessableEntity},
		{game.ErrPriceMismatch, http.StatusUnprocessableEntity},
		{&game.MissingPricesError{Day: 2, StockIDs: []int64{1}}, http.StatusUnprocessableEntity},
		{game.ErrNoNewsForDay, http.StatusUnprocessableEntity},
		{game.ErrClassEnded, http.StatusForbidden},
		{game.ErrWalletNotFound, http.StatusNotFound},
		{fmt.Errorf("class %w", admin.ErrNotFound), http.StatusNotFound},
		{game.ErrNicknameTaken, http.StatusConflict},
		{admin.ErrDuplicatePhone, http.StatusConflict},
		{game.ErrInvalidQuantity, http.StatusBadRequest},
		{auth.ErrBadCredentials, http.StatusUnauthorized},
		{&aigen.PlanError{Problems: []string{"x"}}, http.StatusBadGateway},
		{errors.New("connection refused"), 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, statusFor(tc.err), "err=%v", tc.err)
	}
}

func TestInternalErrorsAreHidden(t *testing.T) {
	s, _ := newTestServer(t, time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	s.writeDomainError(rec, req, errors.New("pq: password authentication failed"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer   abc "))
	assert.Equal(t, "", bearerToken("Basic abc"))
	assert.Equal(t, "", bearerToken(""))
}
