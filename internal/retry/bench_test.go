package retry

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// BenchmarkBackoff_ImmediateSuccess measures overhead when the first
// attempt succeeds (the common case).
func BenchmarkBackoff_ImmediateSuccess(b *testing.B) {
	bo := DefaultBackoff()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bo.Do(ctx, func(_ int) error { return nil }) //nolint:errcheck
	}
}

// BenchmarkBackoff_PermanentError measures early-exit overhead.
func BenchmarkBackoff_PermanentError(b *testing.B) {
	bo := DefaultBackoff()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bo.Do(ctx, func(_ int) error { //nolint:errcheck
			return Permanent(fmt.Errorf("fatal"))
		})
	}
}

// BenchmarkFixed_FirstTick measures the fixed-cadence poll loop when
// the first scan already finds what it wants, so no sleep happens.
func BenchmarkFixed_FirstTick(b *testing.B) {
	bo := Fixed(100*time.Millisecond, 50)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bo.Do(ctx, func(_ int) error { return nil }) //nolint:errcheck
	}
}

// BenchmarkJitter measures the jitter helper without backoff overhead.
func BenchmarkJitter(b *testing.B) {
	d := 100 * time.Millisecond
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = addJitter(d)
	}
}
