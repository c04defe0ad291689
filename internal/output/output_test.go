package output

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/FryrAI/keel/internal/graph"
)

func TestCleanOutputContract(t *testing.T) {
	r := New("compile", []string{"a.go"}, nil, nil, nil)
	require.True(t, r.IsClean())
	require.Equal(t, 0, r.ExitCode())

	machine, err := RenderMachine(r)
	require.NoError(t, err)
	require.Contains(t, string(machine), `"status": "clean"`)

	human := RenderHuman(r, false)
	require.Contains(t, human, "clean")

	compact := RenderCompact(r, DefaultMaxTokens)
	require.Empty(t, compact)
}

func TestNonCleanExitCode(t *testing.T) {
	r := New("compile", nil, []graph.Violation{{Code: "E001", Severity: graph.SeverityError, File: "a.go", Line: 3, Hash: "H1234567890"}}, nil, nil)
	require.False(t, r.IsClean())
	require.Equal(t, 1, r.ExitCode())

	compact := RenderCompact(r, DefaultMaxTokens)
	require.Contains(t, compact, "E001")
}

func TestCompactBudgetTruncatesDeterministically(t *testing.T) {
	var errs []graph.Violation
	for i := 0; i < 50; i++ {
		errs = append(errs, graph.Violation{Code: "E002", Severity: graph.SeverityError, File: "f.go", Line: i, Hash: "HHHHHHHHHHH"})
	}
	r := New("compile", nil, errs, nil, nil)

	first := RenderCompact(r, 50)
	second := RenderCompact(r, 50)
	require.Equal(t, first, second, "truncation must be deterministic for a fixed budget")
	require.Contains(t, first, "elided")
}
