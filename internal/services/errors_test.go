package services_test

import (
	"errors"
	"testing"
	"time"

	"shelfsync/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	err := services.Wrap(services.ErrNotFound, "telegram", "fetch", "message gone", nil)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound marker, got %v", err)
	}
	if services.IsRetryable(err) {
		t.Fatal("not-found errors must not be retryable")
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "storage", "put", "disk hiccup", errors.New("EIO"))
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !services.IsRetryable(err) {
		t.Fatal("transient errors must be retryable")
	}
}

func TestThrottledErrorCarriesRetryAfter(t *testing.T) {
	base := &services.ThrottledError{RetryAfter: 30 * time.Second, Operation: "getFile"}
	wrapped := services.Wrap(services.ErrThrottled, "telegram", "fetch", "flood wait", base)

	if !errors.Is(wrapped, services.ErrThrottled) {
		t.Fatalf("expected throttled marker, got %v", wrapped)
	}
	delay, ok := services.RetryAfter(wrapped)
	if !ok || delay != 30*time.Second {
		t.Fatalf("expected retry-after 30s, got %v ok=%v", delay, ok)
	}
	if !services.IsRetryable(wrapped) {
		t.Fatal("throttled errors must be retryable")
	}
}

func TestRetryAfterAbsentForPlainErrors(t *testing.T) {
	if _, ok := services.RetryAfter(errors.New("boom")); ok {
		t.Fatal("plain error should not report a retry-after delay")
	}
}

func TestValidationNotRetryable(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "api", "enqueue", "missing message id", nil)
	if services.IsRetryable(err) {
		t.Fatal("validation errors must not be retryable")
	}
}
