package testutil

import (
	"context"
	"testing"
	"time"

	"namereg/pkg/domain"
	"namereg/pkg/requestcontext"
)

// Context returns a background context pinned to a fixed request time so
// timestamp assertions stay deterministic.
func Context(t *testing.T) context.Context {
	t.Helper()
	return requestcontext.WithTime(context.Background(), FixedTime())
}

// ContextAs returns a pinned context with the given caller identity attached,
// mirroring what the auth middleware does in production.
func ContextAs(t *testing.T, caller domain.Identity) context.Context {
	t.Helper()
	return requestcontext.WithCaller(Context(t), caller)
}

// FixedTime is the canonical instant used across unit tests.
func FixedTime() time.Time {
	return time.Date(2025, time.March, 14, 9, 26, 53, 0, time.UTC)
}
