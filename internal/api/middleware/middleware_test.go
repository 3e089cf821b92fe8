package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/idempotency"
	"github.com/go-redis/redismock/v9"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	SetJWTSecret("test-secret-that-is-long-enough-1234567890")
	SetJWTValidation("wallet-ledger", "wallet-api")
}

func echoIdentity() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(UserIDFromContext(r.Context()) + "/" + UserRoleFromContext(r.Context())))
	})
}

func TestAuthMiddleware(t *testing.T) {
	token, expiresAt, err := IssueToken("user-1", domain.RoleUser, time.Hour, time.Now())
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"no bearer prefix", token, http.StatusUnauthorized},
		{"garbage", "Bearer not-a-token", http.StatusUnauthorized},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
		{"empty token", "Bearer ", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			AuthMiddleware(echoIdentity()).ServeHTTP(rr, req)
			assert.Equal(t, tc.status, rr.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, "user-1/user", rr.Body.String())
			} else {
				assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
			}
		})
	}
}

func TestAuthMiddlewareRejectsExpiredToken(t *testing.T) {
	token, _, err := IssueToken("user-1", domain.RoleUser, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	AuthMiddleware(echoIdentity()).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthMiddlewareRejectsUnknownRole(t *testing.T) {
	_, _, err := IssueToken("user-1", "superuser", time.Hour, time.Now())
	assert.Error(t, err)

	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-1",
		"role":    "superuser",
		"sub":     "user-1",
		"iss":     "wallet-ledger",
		"aud":     "wallet-api",
		"exp":     now.Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret-that-is-long-enough-1234567890"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	AuthMiddleware(echoIdentity()).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(domain.RoleAdmin)(echoIdentity())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req.WithContext(WithUser(req.Context(), "user-1", domain.RoleUser)))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req.WithContext(WithUser(req.Context(), "admin-1", domain.RoleAdmin)))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestTraceMiddlewarePropagatesHeader(t *testing.T) {
	var seen string
	h := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Trace-ID", "trace-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "trace-123", seen)
	assert.Equal(t, "trace-123", rr.Header().Get("X-Trace-ID"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rr.Header().Get("X-Trace-ID"))
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestIdempotencyWithoutStorePassesThrough(t *testing.T) {
	calls := 0
	h := IdempotencyMiddleware(nil, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/transactions/deposit", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, 1, calls)
}

func TestIdempotencyRequiresKey(t *testing.T) {
	db, _ := redismock.NewClientMock()
	store := idempotency.NewStore(db, time.Hour)
	h := IdempotencyMiddleware(store, zap.NewNop())(echoIdentity())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/transactions/deposit", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestIdempotencyReplaysRecordedResponse(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := idempotency.NewStore(db, time.Hour)

	body := `{"amount":"10"}`
	recorded, err := json.Marshal(map[string]any{
		"key":          "user-1:k-1",
		"hash":         hashRequest(http.MethodPost, "/v1/transactions/deposit", []byte(body)),
		"in_progress":  false,
		"status":       http.StatusCreated,
		"body":         []byte(`{"id":"dep-1"}`),
		"content_type": "application/json",
	})
	require.NoError(t, err)
	mock.ExpectGet("idempotency:user-1:k-1").SetVal(string(recorded))

	calls := 0
	h := IdempotencyMiddleware(store, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/transactions/deposit", strings.NewReader(body))
	req.Header.Set("Idempotency-Key", "k-1")
	req = req.WithContext(WithUser(req.Context(), "user-1", domain.RoleUser))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, 0, calls)
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "redis", rr.Header().Get("X-Idempotent-Replay"))
	assert.JSONEq(t, `{"id":"dep-1"}`, rr.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyConflictingBody(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := idempotency.NewStore(db, time.Hour)

	recorded, err := json.Marshal(map[string]any{
		"key":    "user-1:k-2",
		"hash":   "some-other-hash",
		"status": http.StatusCreated,
	})
	require.NoError(t, err)
	mock.ExpectGet("idempotency:user-1:k-2").SetVal(string(recorded))

	h := IdempotencyMiddleware(store, zap.NewNop())(echoIdentity())
	req := httptest.NewRequest(http.MethodPost, "/v1/transactions/deposit", strings.NewReader(`{"amount":"10"}`))
	req.Header.Set("Idempotency-Key", "k-2")
	req = req.WithContext(WithUser(req.Context(), "user-1", domain.RoleUser))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestTraceMiddlewareReplacesUnsafeIDs(t *testing.T) {
	h := TraceMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	for _, id := range []string{"has spaces", strings.Repeat("a", maxTraceIDLen+1), "tab\tid"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Trace-ID", id)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.NotEqual(t, id, rr.Header().Get("X-Trace-ID"))
		assert.NotEmpty(t, rr.Header().Get("X-Trace-ID"))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "req-42", rr.Header().Get("X-Trace-ID"))
}

func TestRecoverKeepsStartedResponse(t *testing.T) {
	h := RecoverMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic("late failure")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Empty(t, rr.Body.String())
}

func TestLoggingMiddlewareLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	status := http.StatusOK
	h := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("hello"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/users/me", nil))
	status = http.StatusBadGateway
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/users/me", nil))
	status = http.StatusOK
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, int64(5), entries[0].ContextMap()["bytes"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, int64(http.StatusBadGateway), entries[1].ContextMap()["status"])
	assert.Equal(t, zapcore.DebugLevel, entries[2].Level)
	assert.Equal(t, unmatchedRoute, entries[2].ContextMap()["route"])
}

func TestIdempotencyReleasesOnServerError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := idempotency.NewStore(db, time.Hour)

	body := `{"amount":"10"}`
	path := "/v1/transactions/deposit"
	hash := hashRequest(http.MethodPost, path, []byte(body))
	mock.ExpectGet("idempotency:user-1:k-3").RedisNil()
	mock.ExpectSetNX("idempotency:user-1:k-3",
		`{"key":"user-1:k-3","hash":"`+hash+`","method":"POST","path":"`+path+`","in_progress":true,"status":0,"body":null,"content_type":""}`,
		30*time.Second).SetVal(true)
	mock.ExpectDel("idempotency:user-1:k-3").SetVal(1)

	h := IdempotencyMiddleware(store, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Idempotency-Key", "k-3")
	req = req.WithContext(WithUser(req.Context(), "user-1", domain.RoleUser))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRejectsOversizedKey(t *testing.T) {
	db, _ := redismock.NewClientMock()
	h := IdempotencyMiddleware(idempotency.NewStore(db, time.Hour), zap.NewNop())(echoIdentity())
	req := httptest.NewRequest(http.MethodPost, "/v1/transactions/deposit", strings.NewReader(`{}`))
	req.Header.Set("Idempotency-Key", strings.Repeat("k", maxIdempotencyKeyLen+1))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
