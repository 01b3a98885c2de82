package llm

import (
	"testing"
	"time"
)

func TestCircuitBreakerTripsAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, 50*time.Millisecond)
	for i := 0; i < 3; i++ {
		if !cb.AllowRequest() {
			t.Fatalf("expected closed breaker to allow request %d", i)
		}
		cb.RecordFailure()
	}
	if cb.AllowRequest() {
		t.Fatal("expected breaker to be open after threshold failures")
	}
}

func TestCircuitBreakerHalfOpenAfterCooldown(t *testing.T) {
	cb := NewCircuitBreaker(1, 20*time.Millisecond)
	cb.AllowRequest()
	cb.RecordFailure()
	if cb.AllowRequest() {
		t.Fatal("expected breaker open immediately after tripping")
	}
	time.Sleep(30 * time.Millisecond)
	if !cb.AllowRequest() {
		t.Fatal("expected breaker to allow one half-open trial after cooldown")
	}
	if cb.AllowRequest() {
		t.Fatal("expected only one trial request in half-open state")
	}
}

func TestCircuitBreakerRecoversOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)
	cb.AllowRequest()
	cb.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	cb.AllowRequest()
	cb.RecordSuccess()
	if stats := cb.Stats(); stats.State != CircuitClosed {
		t.Fatalf("expected closed after success, got %v", stats.State)
	}
}
