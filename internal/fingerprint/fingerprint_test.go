package fingerprint

import (
	"testing"

	"github.com/hkoba/libperl-macrogen-sub001/internal/token"
)

func tok(kind token.Kind, text string) token.Token {
	return token.Token{Kind: kind, Text: text}
}

func TestOfTokensStableAndContentSensitive(t *testing.T) {
	a := []token.Token{tok(token.Ident, "sv"), tok(token.Arrow, "->"), tok(token.Ident, "sv_flags")}
	b := []token.Token{tok(token.Ident, "sv"), tok(token.Arrow, "->"), tok(token.Ident, "sv_flags")}
	c := []token.Token{tok(token.Ident, "sv"), tok(token.Arrow, "->"), tok(token.Ident, "sv_any")}

	if OfTokens(a) != OfTokens(b) {
		t.Fatalf("identical token streams produced different fingerprints")
	}
	if OfTokens(a) == OfTokens(c) {
		t.Fatalf("different token streams collided")
	}
	if len(OfTokens(a)) != 16 {
		t.Fatalf("expected a 16-hex-char tag, got %q", OfTokens(a))
	}
}

func TestOfTokensNoConcatenationCollision(t *testing.T) {
	a := []token.Token{tok(token.Ident, "ab"), tok(token.Ident, "c")}
	b := []token.Token{tok(token.Ident, "a"), tok(token.Ident, "bc")}
	if OfTokens(a) == OfTokens(b) {
		t.Fatalf("fingerprint collided across a token-boundary split")
	}
}

func TestDuplicates(t *testing.T) {
	body := []token.Token{tok(token.Ident, "x"), tok(token.Arrow, "->"), tok(token.Ident, "f")}
	other := []token.Token{tok(token.Ident, "y")}
	byName := map[string][]token.Token{
		"MACRO_A": body,
		"MACRO_B": body,
		"MACRO_C": other,
	}
	dups := Duplicates(byName)
	if len(dups) != 1 {
		t.Fatalf("expected exactly one duplicate group, got %d", len(dups))
	}
	for _, names := range dups {
		if len(names) != 2 {
			t.Fatalf("expected 2 names in the duplicate group, got %v", names)
		}
	}
}
