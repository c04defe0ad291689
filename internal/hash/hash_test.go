package hash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashDeterminism(t *testing.T) {
	in := Input{
		CanonicalSignature: "login(email string, pw string) Token",
		NormalizedBody:     "block return call",
		Docstring:          "logs a user in",
	}
	require.Equal(t, Hash(in), Hash(in))
}

func TestHashLength(t *testing.T) {
	h := Hash(Input{CanonicalSignature: "f()"})
	require.Len(t, h, IdentifierLength)
}

func TestDocstringSensitivity(t *testing.T) {
	base := Input{CanonicalSignature: "f()", NormalizedBody: "block"}
	withDoc := base
	withDoc.Docstring = "does a thing"
	require.NotEqual(t, Hash(base), Hash(withDoc))
}

func TestFormatInvarianceIsCallerResponsibility(t *testing.T) {
	// The hash itself is a pure function of its three inputs; format
	// invariance (§8) is a property of the caller's normalization step, not
	// of Hash. Two different NormalizedBody values always produce distinct
	// hashes, confirming Hash does not silently re-normalize on our behalf.
	a := Hash(Input{CanonicalSignature: "f()", NormalizedBody: "block a"})
	b := Hash(Input{CanonicalSignature: "f()", NormalizedBody: "block  a"})
	require.NotEqual(t, a, b)
}

func TestHashWithFingerprintDiffersFromBase(t *testing.T) {
	in := Input{CanonicalSignature: "f()", NormalizedBody: "block"}
	base := Hash(in)
	disambiguated := HashWithFingerprint(in, FilePathFingerprint("pkg/a.go"))
	require.NotEqual(t, base, disambiguated)
	require.Len(t, disambiguated, IdentifierLength)
}

func TestCollidesWithDifferentSignature(t *testing.T) {
	require.True(t, CollidesWithDifferentSignature("f(a)", "f(a, b)"))
	require.False(t, CollidesWithDifferentSignature("f(a)", "f(a)"))
}
