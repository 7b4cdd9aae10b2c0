// Package fingerprint gives a macro body a stable content hash, independent
// of the AST node IDs assigned when it is parsed. Two macros with
// byte-identical canonical token streams get the same fingerprint even
// though any ExprId/StmtId they're parsed into is per-parse and not
// reusable (spec.md §3 ExprId/StmtId, property P5).
package fingerprint

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"

	"github.com/hkoba/libperl-macrogen-sub001/internal/token"
)

// Tag is a 16-hex-char content fingerprint.
type Tag string

// OfTokens hashes the canonical (kind, text) sequence of toks with
// Keccak-256 and truncates to a 16-hex-char tag. Source locations are
// deliberately excluded: two expansions that differ only in where they
// came from are still the same body.
func OfTokens(toks []token.Token) Tag {
	w := sha3.NewLegacyKeccak256()
	for _, t := range toks {
		w.Write([]byte{byte(t.Kind)})
		w.Write([]byte(t.Text))
		w.Write([]byte{0}) // separator, so "ab""c" and "a""bc" can't collide
	}
	sum := w.Sum(nil)
	return Tag(hex.EncodeToString(sum[:8]))
}

// Duplicates groups names by their body's fingerprint, returning only the
// groups with more than one member: macros whose bodies are byte-identical
// after canonicalization, surfaced as a diagnostic note rather than acted
// on (spec.md §3 doesn't require deduplication, only the engine's own
// per-name processing).
func Duplicates(byName map[string][]token.Token) map[Tag][]string {
	groups := make(map[Tag][]string)
	for name, body := range byName {
		tag := OfTokens(body)
		groups[tag] = append(groups[tag], name)
	}
	for tag, names := range groups {
		if len(names) < 2 {
			delete(groups, tag)
		}
	}
	return groups
}
