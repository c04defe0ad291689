package breaker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/FryrAI/keel/internal/graph"
)

func TestEscalationAndDowngrade(t *testing.T) {
	b := New()
	v := func() *graph.Violation { return &graph.Violation{Code: "E001", Hash: "H1", Severity: graph.SeverityError} }

	first := v()
	b.Apply(first)
	require.Equal(t, graph.SeverityError, first.Severity)

	second := v()
	b.Apply(second)
	require.Equal(t, graph.SeverityError, second.Severity)

	third := v()
	b.Apply(third)
	require.Equal(t, graph.SeverityError, third.Severity)

	fourth := v()
	b.Apply(fourth)
	require.Equal(t, graph.SeverityWarn, fourth.Severity, "4th consecutive failure must downgrade per §8 breaker monotonicity")
}

func TestSuccessResets(t *testing.T) {
	b := New()
	b.Record("E001", "H1")
	b.Record("E001", "H1")
	b.Record("E001", "H1")
	require.True(t, b.IsDowngraded("E001", "H1"))

	b.Succeed("E001", "H1")
	require.False(t, b.IsDowngraded("E001", "H1"))

	v := &graph.Violation{Code: "E001", Hash: "H1", Severity: graph.SeverityError}
	b.Apply(v)
	require.Equal(t, graph.SeverityError, v.Severity)
}

func TestDifferentHashDoesNotEscalate(t *testing.T) {
	b := New()
	b.Record("E001", "H1")
	b.Record("E001", "H1")
	b.Record("E001", "H2")
	require.False(t, b.IsDowngraded("E001", "H1"))
	require.False(t, b.IsDowngraded("E001", "H2"))
}
