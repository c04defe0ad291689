package batch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/FryrAI/keel/internal/graph"
)

func TestStructuralAlwaysSurfaces(t *testing.T) {
	b := New()
	now := time.Now()
	b.Start(now)

	deferred := b.Offer(graph.Violation{Code: "E001"}, now)
	require.False(t, deferred)
}

func TestNonStructuralDeferredUntilEnd(t *testing.T) {
	b := New()
	now := time.Now()
	b.Start(now)

	deferred := b.Offer(graph.Violation{Code: "E002"}, now)
	require.True(t, deferred)

	flushed := b.End()
	require.Len(t, flushed, 1)
	require.Equal(t, "E002", flushed[0].Code)
}

func TestAutoExpire(t *testing.T) {
	b := New()
	start := time.Now()
	b.Start(start)

	later := start.Add(ExpireAfter + time.Second)
	require.False(t, b.Active(later))

	deferred := b.Offer(graph.Violation{Code: "W001"}, later)
	require.False(t, deferred, "expired batch must not silently swallow violations")
}
