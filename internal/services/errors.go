package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel markers used to classify collaborator failures. Wrap tags an
// error with one of these so the worker loop can decide between retrying
// and failing a task outright.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrThrottled    = errors.New("throttled")
	ErrTransient    = errors.New("transient failure")
	ErrStorageWrite = errors.New("storage write failed")
	ErrCatalogWrite = errors.New("catalog write failed")
)

// ThrottledError reports an upstream flood-wait directive. RetryAfter is the
// exact delay the upstream demanded; the retry controller adds its own margin.
type ThrottledError struct {
	RetryAfter time.Duration
	Operation  string
}

func (e *ThrottledError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("throttled: %s: retry after %s", e.Operation, e.RetryAfter)
	}
	return fmt.Sprintf("throttled: retry after %s", e.RetryAfter)
}

func (e *ThrottledError) Is(target error) bool {
	return target == ErrThrottled
}

// RetryAfter extracts an upstream-specified delay from an error chain.
func RetryAfter(err error) (time.Duration, bool) {
	var throttled *ThrottledError
	if errors.As(err, &throttled) {
		return throttled.RetryAfter, true
	}
	return 0, false
}

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRetryable reports whether a task failure should be rescheduled rather
// than marked failed. Untagged errors are treated as transient so that a
// forgotten marker never silently discards a task.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
		return false
	default:
		return true
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
