// Package ratelimit throttles form submissions per client key (normally the
// client IP). Limits are fixed at construction; callers only ask Allow.
package ratelimit

import "context"

type Limiter interface {
	// Allow reports whether the caller identified by key may proceed.
	// A non-nil error means the limiter backend is unavailable; callers
	// decide whether to fail open.
	Allow(ctx context.Context, key string) (bool, error)
}
