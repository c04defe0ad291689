// Package hash implements keel's content-addressed node identifier (§4.1):
// an 11-character base62 encoding of an xxhash64 digest over a node's
// canonical signature, normalized body, and docstring.
package hash

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// IdentifierLength is the fixed width of a keel hash identifier.
const IdentifierLength = 11

// Input is the triple hashed into a node's identifier.
type Input struct {
	// CanonicalSignature is the language-normalized declaration form: name,
	// parameter list with types where statically present, return type where
	// present; whitespace collapsed, trailing commas normalized, comments
	// stripped.
	CanonicalSignature string
	// NormalizedBody is an AST-based serialization (pre-order node kinds plus
	// identifier/literal content) with comments and formatting stripped.
	// Reformatting must not change it.
	NormalizedBody string
	// Docstring is the first contiguous doc-comment attached to the
	// declaration, or empty if absent. Any non-empty change must change the hash.
	Docstring string
}

// Hash computes a node's content-addressed identifier. Deterministic: equal
// Input values always produce equal identifiers (testable property, §8).
func Hash(in Input) string {
	var b strings.Builder
	b.Grow(len(in.CanonicalSignature) + len(in.NormalizedBody) + len(in.Docstring) + 2)
	b.WriteString(in.CanonicalSignature)
	b.WriteByte(0)
	b.WriteString(in.NormalizedBody)
	b.WriteByte(0)
	b.WriteString(in.Docstring)

	sum := xxhash.Sum64String(b.String())
	return encodeBase62(sum)
}

// HashWithFingerprint re-hashes a colliding identifier by folding in the
// owning file's 8-char fingerprint, per the collision-disambiguation rule in
// §4.1. The result is still IdentifierLength characters.
func HashWithFingerprint(in Input, filePathFingerprint string) string {
	var b strings.Builder
	b.WriteString(in.CanonicalSignature)
	b.WriteByte(0)
	b.WriteString(in.NormalizedBody)
	b.WriteByte(0)
	b.WriteString(in.Docstring)
	b.WriteByte(0)
	b.WriteString(filePathFingerprint)

	sum := xxhash.Sum64String(b.String())
	return encodeBase62(sum)
}

// FilePathFingerprint returns the 8-char base62 fingerprint of a file path,
// used as the collision-disambiguation suffix seed.
func FilePathFingerprint(filePath string) string {
	sum := xxhash.Sum64String(filePath)
	full := encodeBase62(sum)
	if len(full) < 8 {
		return full
	}
	return full[:8]
}

// encodeBase62 encodes a 64-bit value into a fixed IdentifierLength base62
// string, left-padded with the alphabet's zero digit. The all-zero identifier
// ("00000000000") is never produced for non-zero input; xxhash64 of any
// non-empty input is effectively never exactly zero, but callers must not
// rely on that — the all-zero identifier is reserved and forbidden per §4.1
// ("Failure" clause) as a hasher-level output.
func encodeBase62(v uint64) string {
	if v == 0 {
		// xxhash64 of a non-empty string hitting exactly 0 is astronomically
		// unlikely; nudge it off zero rather than emit the forbidden identifier.
		v = 1
	}
	buf := make([]byte, IdentifierLength)
	for i := IdentifierLength - 1; i >= 0; i-- {
		buf[i] = base62Alphabet[v%62]
		v /= 62
	}
	return string(buf)
}

// CollidesWithDifferentSignature reports whether a node whose canonical
// signature is `newSignature` would collide with an existing node stored
// under the same hash with a different `existingSignature`. Nothing outside
// this package calls it or HashWithFingerprint: commit does not re-hash a
// colliding identifier.
func CollidesWithDifferentSignature(existingSignature, newSignature string) bool {
	return existingSignature != newSignature
}

// NodeID computes the engine's stable node identity: distinct from Hash,
// which is content-addressed and changes whenever the body/signature/doc
// changes. NodeID is keyed on (kind, file path, enclosing parent, name) and
// does not change across a body/signature edit (§3 "Hash changes with same
// name+file ⇒ body/signature/doc changed"), which is what makes
// previous_hashes rename tracking and In-edge lookups across a hash change
// possible: the edge still points at the same node ID.
//
// A file move or a rename is a new NodeID (no identity carried across it);
// the engine's one-hop fan-out and discover's RENAMED annotation are what
// let callers find the successor via previous_hashes instead.
func NodeID(kind, filePath, parent, name string) string {
	var b strings.Builder
	b.WriteString(kind)
	b.WriteByte(0)
	b.WriteString(filePath)
	b.WriteByte(0)
	b.WriteString(parent)
	b.WriteByte(0)
	b.WriteString(name)
	return encodeBase62(xxhash.Sum64String(b.String()))
}
