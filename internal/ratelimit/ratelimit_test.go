package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_Burst(t *testing.T) {
	l := New(1, 3, time.Minute)

	for i := 0; i < 3; i++ {
		if !l.Allow("a") {
			t.Fatalf("Allow() #%d = false, want true within burst", i+1)
		}
	}
	if l.Allow("a") {
		t.Error("Allow() after burst = true, want false")
	}
	if !l.Allow("b") {
		t.Error("Allow() for another key = false, want true")
	}
}

func TestLimiter_Evict(t *testing.T) {
	l := New(1, 1, time.Minute)
	l.Allow("a")
	l.evict(time.Now().Add(2 * time.Minute))

	l.mu.Lock()
	n := len(l.m)
	l.mu.Unlock()
	if n != 0 {
		t.Errorf("evict() left %d keys, want 0", n)
	}
}

func TestLimiter_StopTwice(t *testing.T) {
	l := New(1, 1, time.Minute)
	done := make(chan struct{})
	go func() {
		l.Run(10 * time.Millisecond)
		close(done)
	}()
	l.Stop()
	l.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after Stop()")
	}
}

func TestMiddleware(t *testing.T) {
	l := New(1, 2, time.Minute)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/rooms/x/join", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("status codes = %v, want [200 200 429]", codes)
	}
}
