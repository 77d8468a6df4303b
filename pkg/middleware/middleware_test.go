package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	apperrors "reservo/pkg/errors"
	httputil "reservo/pkg/http"
	"reservo/pkg/logger"
	"reservo/pkg/model"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	var resp httputil.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error body %q: %v", rec.Body.String(), err)
	}
	return resp
}

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims AccountClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func validClaims(subject string) AccountClaims {
	return AccountClaims{
		Email: "ada@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

// ────────────────────────────────────────────────
// Identity
// ────────────────────────────────────────────────

func TestIdentity(t *testing.T) {
	expired := validClaims("acc-1")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	tests := []struct {
		name        string
		secret      string
		header      string
		wantStatus  int
		wantAccount string
	}{
		{name: "anonymous", secret: testSecret, wantStatus: http.StatusOK},
		{name: "valid token", secret: testSecret, header: "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, validClaims("acc-1")), wantStatus: http.StatusOK, wantAccount: "acc-1"},
		{name: "wrong secret", secret: testSecret, header: "Bearer " + signToken(t, "other", jwt.SigningMethodHS256, validClaims("acc-1")), wantStatus: http.StatusUnauthorized},
		{name: "expired", secret: testSecret, header: "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, expired), wantStatus: http.StatusUnauthorized},
		{name: "missing subject", secret: testSecret, header: "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, validClaims("")), wantStatus: http.StatusUnauthorized},
		{name: "other algorithm", secret: testSecret, header: "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS512, validClaims("acc-1")), wantStatus: http.StatusUnauthorized},
		{name: "not bearer", secret: testSecret, header: "Basic YWRhOnB3", wantStatus: http.StatusUnauthorized},
		{name: "verification disabled", secret: "", header: "Bearer garbage", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen *model.Identity
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = IdentityFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/mine", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			Identity(tt.secret, logger.Discard())(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantStatus == http.StatusUnauthorized {
				if code := decodeError(t, rec).Code; code != apperrors.CodeUnauthorized {
					t.Errorf("expected code %s, got %s", apperrors.CodeUnauthorized, code)
				}
				return
			}
			if tt.wantAccount == "" {
				if seen.Authenticated() {
					t.Errorf("expected anonymous caller, got %+v", seen)
				}
				return
			}
			if seen == nil || seen.AccountID != tt.wantAccount || seen.Email != "ada@example.com" {
				t.Errorf("expected account %s, got %+v", tt.wantAccount, seen)
			}
		})
	}
}

// ────────────────────────────────────────────────
// Idempotency
// ────────────────────────────────────────────────

func TestIdempotency_ReplaysSuccessfulResponse(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls atomic.Int32
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = fmt.Fprintf(w, `{"call":%d}`, n)
	})
	h := Idempotency(store, "", logger.Discard())(next)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{}`))
		req.Header.Set(DefaultIdempotencyHeader, "key-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := send()
	second := send()

	if calls.Load() != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls.Load())
	}
	if second.Code != http.StatusCreated || second.Body.String() != first.Body.String() {
		t.Errorf("replay mismatch: first=%d %q second=%d %q", first.Code, first.Body.String(), second.Code, second.Body.String())
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Error("expected replay header on second response")
	}
}

func TestIdempotency_DoesNotCacheFailures(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls atomic.Int32
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_ = httputil.WriteError(w, apperrors.SlotUnavailable("s-1"))
	})
	h := Idempotency(store, "", logger.Discard())(next)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{}`))
		req.Header.Set(DefaultIdempotencyHeader, "key-1")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls.Load() != 2 {
		t.Errorf("expected failed responses to be re-executed, ran %d times", calls.Load())
	}
}

func TestIdempotency_KeysAreScopedPerCaller(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls atomic.Int32
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusCreated)
	})
	h := Idempotency(store, "", logger.Discard())(next)

	for _, account := range []string{"acc-1", "acc-2"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{}`))
		req.Header.Set(DefaultIdempotencyHeader, "same-key")
		req = req.WithContext(WithIdentity(req.Context(), &model.Identity{AccountID: account}))
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls.Load() != 2 {
		t.Errorf("expected one execution per caller, got %d", calls.Load())
	}
}

func TestIdempotency_SkipsGetAndMissingKey(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls atomic.Int32
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	h := Idempotency(store, "", logger.Discard())(next)

	for i := 0; i < 2; i++ {
		get := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
		get.Header.Set(DefaultIdempotencyHeader, "key-1")
		h.ServeHTTP(httptest.NewRecorder(), get)

		post := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{}`))
		h.ServeHTTP(httptest.NewRecorder(), post)
	}
	if calls.Load() != 4 {
		t.Errorf("expected every request to execute, got %d", calls.Load())
	}
}

func TestInMemoryIdempotencyStore_Expires(t *testing.T) {
	store := NewInMemoryIdempotencyStore(10 * time.Millisecond)
	defer store.Stop()

	ctx := context.Background()
	if err := store.Set(ctx, "k", &CachedResponse{StatusCode: http.StatusCreated}); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := store.Get(ctx, "k"); !found {
		t.Fatal("expected fresh entry to be found")
	}
	time.Sleep(20 * time.Millisecond)
	if _, found, _ := store.Get(ctx, "k"); found {
		t.Error("expected entry to expire")
	}
}

// ────────────────────────────────────────────────
// Rate limiting
// ────────────────────────────────────────────────

func TestRateLimit_PerCaller(t *testing.T) {
	limiter := NewCallerRateLimiter(2, time.Minute, logger.Discard())
	defer limiter.Stop()
	h := RateLimit(limiter)(okHandler())

	send := func(account, addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", nil)
		req.RemoteAddr = addr
		if account != "" {
			req = req.WithContext(WithIdentity(req.Context(), &model.Identity{AccountID: account}))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := send("acc-1", "10.0.0.1:1234"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}

	rec := send("acc-1", "10.0.0.2:1234")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for exhausted account, got %d", rec.Code)
	}
	if decodeError(t, rec).Code != CodeRateLimited {
		t.Errorf("unexpected error body %s", rec.Body.String())
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	if rec := send("acc-2", "10.0.0.1:1234"); rec.Code != http.StatusOK {
		t.Errorf("another account must have its own bucket, got %d", rec.Code)
	}
	if rec := send("", "10.0.0.1:1234"); rec.Code != http.StatusOK {
		t.Errorf("anonymous caller is keyed by IP, got %d", rec.Code)
	}
}

// ────────────────────────────────────────────────
// Timeout, content type, recovery, size
// ────────────────────────────────────────────────

func TestRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusCreated)
	})

	rec := httptest.NewRecorder()
	RequestTimeout(20*time.Millisecond, logger.Discard())(slow).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/bookings", nil))

	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != apperrors.CodeTimeout || !resp.Retriable {
		t.Errorf("unexpected timeout body %+v", resp)
	}
}

func TestRequestTimeout_FastHandlerKeepsHeaders(t *testing.T) {
	fast := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Booking", "b-1")
		w.WriteHeader(http.StatusCreated)
	})

	rec := httptest.NewRecorder()
	RequestTimeout(time.Second, logger.Discard())(fast).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/bookings", nil))

	if rec.Code != http.StatusCreated || rec.Header().Get("X-Booking") != "b-1" {
		t.Errorf("expected handler response to pass through, got %d %v", rec.Code, rec.Header())
	}
}

func TestContentTypeValidation(t *testing.T) {
	tests := []struct {
		method      string
		contentType string
		want        int
	}{
		{http.MethodPost, "application/json", http.StatusOK},
		{http.MethodPost, "application/json; charset=utf-8", http.StatusOK},
		{http.MethodPost, "text/plain", http.StatusUnsupportedMediaType},
		{http.MethodPut, "", http.StatusUnsupportedMediaType},
		{http.MethodGet, "", http.StatusOK},
		{http.MethodDelete, "", http.StatusOK},
	}

	h := ContentTypeValidation(logger.Discard())(okHandler())
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.contentType, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/slots", nil)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	boom := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	Recovery(logger.Discard())(boom).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != apperrors.CodeInternal || strings.Contains(resp.Message, "boom") {
		t.Errorf("panic value must not leak, got %+v", resp)
	}
}

func TestMaxRequestSize(t *testing.T) {
	h := MaxRequestSize(16, logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	small := httptest.NewRecorder()
	h.ServeHTTP(small, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`)))
	if small.Code != http.StatusOK {
		t.Errorf("expected small body to pass, got %d", small.Code)
	}

	large := httptest.NewRecorder()
	h.ServeHTTP(large, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64))))
	if large.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", large.Code)
	}
}

func TestRequestLogging_PropagatesRequestID(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	RequestLogging(logger.Discard())(next).ServeHTTP(rec, req)

	if seen != "req-42" || rec.Header().Get(RequestIDHeader) != "req-42" {
		t.Errorf("expected request id to propagate, got ctx=%q header=%q", seen, rec.Header().Get(RequestIDHeader))
	}
}

func TestLevelForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   slog.Level
	}{
		{http.StatusOK, slog.LevelInfo},
		{http.StatusCreated, slog.LevelInfo},
		{http.StatusConflict, slog.LevelWarn},
		{http.StatusServiceUnavailable, slog.LevelError},
	}
	for _, tt := range tests {
		if got := levelForStatus(tt.status); got != tt.want {
			t.Errorf("levelForStatus(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestRecovery_AfterHeadersWritten(t *testing.T) {
	h := Recovery(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic("late")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusAccepted {
		t.Errorf("status already sent must be kept, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected no error body after headers were sent, got %q", rec.Body.String())
	}
}
