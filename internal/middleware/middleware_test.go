package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"botoapp/user/internal/models"
	"botoapp/user/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type pingRequest struct {
	Name string `json:"name"`
}

func (p *pingRequest) Validate() error {
	if p.Name == "" {
		return models.FieldErrors{"name": "This field is required."}
	}
	if p.Name == "plain" {
		return errors.New("plain failure")
	}
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestValidateRequest(t *testing.T) {
	handler := ValidateRequest[*pingRequest]()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := GetValidatedRequest[*pingRequest](r)
		utils.JSON(w, http.StatusOK, map[string]string{"name": req.Name})
	}))

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantField  string
	}{
		{name: "valid", body: `{"name":"ada"}`, wantStatus: http.StatusOK},
		{name: "malformed json", body: `{"name":`, wantStatus: http.StatusBadRequest, wantField: "non_field_errors"},
		{name: "field error", body: `{}`, wantStatus: http.StatusBadRequest, wantField: "name"},
		{name: "empty body", body: ``, wantStatus: http.StatusBadRequest, wantField: "name"},
		{name: "plain error", body: `{"name":"plain"}`, wantStatus: http.StatusBadRequest, wantField: "non_field_errors"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body)))
			require.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantField != "" {
				body := decodeBody(t, rec)
				assert.Equal(t, false, body["success"])
				errs, ok := body["errors"].(map[string]any)
				require.True(t, ok)
				assert.Contains(t, errs, tc.wantField)
			}
		})
	}
}

type stubUsers struct {
	user *models.User
	err  error
}

func (s stubUsers) GetUserByID(_ context.Context, id string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.user == nil || s.user.ID != id {
		return nil, errors.New("not found")
	}
	return s.user, nil
}

func TestAuthenticate(t *testing.T) {
	issuer := utils.NewTokenIssuer("secret", time.Minute, time.Hour)
	active := &models.User{ID: "u1", IsActive: true}
	inactive := &models.User{ID: "u2"}

	accessFor := func(u *models.User) string {
		tok, err := issuer.IssueAccess(u)
		require.NoError(t, err)
		return tok
	}
	refresh, err := issuer.IssuePair(active)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		users      UserLoader
		wantStatus int
	}{
		{name: "missing header", users: stubUsers{user: active}, wantStatus: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer nope", users: stubUsers{user: active}, wantStatus: http.StatusUnauthorized},
		{name: "refresh token", header: "Bearer " + refresh.Refresh, users: stubUsers{user: active}, wantStatus: http.StatusUnauthorized},
		{name: "unknown user", header: "Bearer " + accessFor(active), users: stubUsers{}, wantStatus: http.StatusUnauthorized},
		{name: "inactive user", header: "Bearer " + accessFor(inactive), users: stubUsers{user: inactive}, wantStatus: http.StatusUnauthorized},
		{name: "ok", header: "Bearer " + accessFor(active), users: stubUsers{user: active}, wantStatus: http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var seen *models.User
			h := Authenticate(issuer, tc.users, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = UserFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantStatus == http.StatusOK {
				require.NotNil(t, seen)
				assert.Equal(t, "u1", seen.ID)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	h := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	serve := func(u *models.User) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodDelete, "/", nil)
		if u != nil {
			req = req.WithContext(WithUser(req.Context(), u))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, serve(nil).Code)

	rec := serve(&models.User{ID: "c", Roles: models.RoleList{models.RoleCustomer}})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Only Admins are authorized to perform this action.", decodeBody(t, rec)["detail"])

	assert.Equal(t, http.StatusNoContent, serve(&models.User{ID: "a", Roles: models.RoleList{models.RoleAdmin}}).Code)
	assert.Equal(t, http.StatusNoContent, serve(&models.User{ID: "s", IsAdmin: true}).Code)
}

func TestRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	rl := NewRateLimiter(rdb, "rl:test", 2, time.Minute, nil)
	h := rl.MiddlewareByKey(ClientIPAndPath)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, call("10.0.0.1:1001").Code)
	limited := call("10.0.0.1:1002")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, call("10.0.0.2:1000").Code, "other clients have their own window")

	mr.FastForward(2 * time.Minute)
	assert.Equal(t, http.StatusOK, call("10.0.0.1:1003").Code, "window expiry resets the count")

	mr.Close()
	assert.Equal(t, http.StatusOK, call("10.0.0.3:1000").Code, "limiter fails open")
}

func TestRateLimiterIgnoresForwardedHeadersFromUntrustedPeers(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	proxies, err := ParseTrustedProxies([]string{"172.16.0.0/12"})
	require.NoError(t, err)
	rl := NewRateLimiter(rdb, "rl:verify", 2, time.Minute, nil)
	h := TrustedRealIP(proxies)(rl.MiddlewareByKey(ClientIPAndPath)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	send := func(peer, xff string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/verify-account", nil)
		req.RemoteAddr = peer
		req.Header.Set("X-Forwarded-For", xff)
		req.Header.Set("X-Real-IP", xff)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	passed := 0
	for i := 0; i < 20; i++ {
		if send("10.0.0.1:5000", fmt.Sprintf("1.2.3.%d", i)) == http.StatusOK {
			passed++
		}
	}
	assert.Equal(t, 2, passed, "rotating forwarded addresses from one peer share a window")

	// behind a trusted proxy each forwarded client gets its own window
	assert.Equal(t, http.StatusOK, send("172.16.0.10:443", "5.5.5.5"))
	assert.Equal(t, http.StatusOK, send("172.16.0.10:443", "5.5.5.5"))
	assert.Equal(t, http.StatusTooManyRequests, send("172.16.0.10:443", "5.5.5.5"))
	assert.Equal(t, http.StatusOK, send("172.16.0.10:443", "6.6.6.6"))
}

func TestTrustedRealIP(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.168.1.1"})
	require.NoError(t, err)

	var seen string
	h := TrustedRealIP(proxies)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.RemoteAddr
	}))

	tests := []struct {
		name    string
		peer    string
		headers map[string]string
		want    string
	}{
		{name: "untrusted peer keeps socket address", peer: "8.8.8.8:1234", headers: map[string]string{"X-Forwarded-For": "1.1.1.1"}, want: "8.8.8.8:1234"},
		{name: "trusted peer forwards client", peer: "10.1.2.3:1234", headers: map[string]string{"X-Forwarded-For": "1.1.1.1"}, want: "1.1.1.1"},
		{name: "spoofed leftmost hop is skipped", peer: "10.1.2.3:1234", headers: map[string]string{"X-Forwarded-For": "9.9.9.9, 1.1.1.1, 10.0.0.7"}, want: "1.1.1.1"},
		{name: "all hops trusted", peer: "192.168.1.1:80", headers: map[string]string{"X-Forwarded-For": "10.0.0.2, 10.0.0.3"}, want: "10.0.0.2"},
		{name: "garbage hop stops the walk", peer: "10.1.2.3:1234", headers: map[string]string{"X-Forwarded-For": "nonsense"}, want: "10.1.2.3:1234"},
		{name: "x-real-ip", peer: "10.1.2.3:1234", headers: map[string]string{"X-Real-IP": "2.2.2.2"}, want: "2.2.2.2"},
		{name: "no headers", peer: "10.1.2.3:1234", want: "10.1.2.3:1234"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.peer
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tc.want, seen)
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{" 10.0.0.0/8 ", "", "::1", "192.168.1.7"})
	require.NoError(t, err)
	require.Len(t, proxies, 3)
	assert.Equal(t, "10.0.0.0/8", proxies[0].String())
	assert.Equal(t, "::1/128", proxies[1].String())
	assert.Equal(t, "192.168.1.7/32", proxies[2].String())

	_, err = ParseTrustedProxies([]string{"not-an-ip"})
	assert.Error(t, err)
	_, err = ParseTrustedProxies([]string{"10.0.0.0/99"})
	assert.Error(t, err)
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("done"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/users", nil))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, int64(http.StatusCreated), fields["status"])
	assert.Equal(t, "/api/v1/users", fields["path"])
	assert.Equal(t, int64(4), fields["bytes"])
}
