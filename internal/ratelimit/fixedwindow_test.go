package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/booking-ledger/internal/common"
)

func TestFixedWindowMiddlewareKeysByActor(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	l, err := FixedWindow(client, "finalize", 1)
	if err != nil {
		t.Fatalf("fixed window: %v", err)
	}
	h := FixedWindowMiddleware(l, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(userID string) int {
		req := httptest.NewRequest(http.MethodPost, "/finalize", nil)
		req = req.WithContext(common.WithUserID(req.Context(), userID))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("u1"); code != http.StatusOK {
		t.Fatalf("expected first request allowed, got %d", code)
	}
	if code := send("u1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected second request limited, got %d", code)
	}
	if code := send("u2"); code != http.StatusOK {
		t.Fatalf("expected other actor allowed, got %d", code)
	}
}

func TestFixedWindowValidation(t *testing.T) {
	if _, err := FixedWindow(nil, "x", 1); err == nil {
		t.Fatal("expected error without client")
	}
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer func() { _ = client.Close() }()
	if _, err := FixedWindow(client, "x", 0); err == nil {
		t.Fatal("expected error for zero limit")
	}
}

func TestActorOrIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:5123"
	if got := ActorOrIP(req); got != "ip:10.0.0.7" {
		t.Fatalf("unexpected key %q", got)
	}
	req = req.WithContext(common.WithUserID(req.Context(), "u9"))
	if got := ActorOrIP(req); got != "user:u9" {
		t.Fatalf("unexpected key %q", got)
	}
}
