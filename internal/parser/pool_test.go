package parser

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestParseAllGo(t *testing.T) {
	grammars := NewGrammarSet()
	defer grammars.Close()

	src := []byte(`package demo

// Add sums two ints.
func Add(a int, b int) int {
	return a + b
}

func unexported() {}
`)
	results := ParseAll(grammars, []FileInput{{Path: "demo.go", Content: src}})
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)

	var names []string
	for _, d := range results[0].Parsed.Defs {
		names = append(names, d.Name)
	}
	require.Contains(t, names, "Add")
	require.Contains(t, names, "unexported")
}

func TestParseAllOrderPreserved(t *testing.T) {
	grammars := NewGrammarSet()
	defer grammars.Close()

	inputs := []FileInput{
		{Path: "a.go", Content: []byte("package a\nfunc A() {}\n")},
		{Path: "b.go", Content: []byte("package b\nfunc B() {}\n")},
		{Path: "c.go", Content: []byte("package c\nfunc C() {}\n")},
	}
	results := ParseAll(grammars, inputs)
	require.Equal(t, "a.go", results[0].Path)
	require.Equal(t, "b.go", results[1].Path)
	require.Equal(t, "c.go", results[2].Path)
}

func TestParseFileUnsupportedExtensionErrors(t *testing.T) {
	grammars := NewGrammarSet()
	defer grammars.Close()

	_, err := ParseFile(grammars, "weird.xyz", []byte("not a real language"))
	require.Error(t, err)
}

func TestContentFingerprintDeterministic(t *testing.T) {
	a := ContentFingerprint([]byte("package a\n"))
	b := ContentFingerprint([]byte("package a\n"))
	require.Equal(t, a, b)
}
