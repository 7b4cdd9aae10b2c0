package cpp

import (
	"github.com/hkoba/libperl-macrogen-sub001/internal/intern"
	"github.com/hkoba/libperl-macrogen-sub001/internal/token"
)

// Kind distinguishes object-like macros ("#define FOO 1") from function-like
// ones ("#define FOO(x) ...").
type Kind int

const (
	Object Kind = iota
	Function
)

// MacroDef is a single #define as registered by the preprocessor. Its Body
// is unexpanded: expansion (including rescan and blue-painting) is the
// token expander's job, not the preprocessor's.
type MacroDef struct {
	Name intern.Str

	Kind     Kind
	Params   []intern.Str
	Variadic bool

	Body []token.Token
	Loc  token.Position

	// LeadingComments holds doc-comment lines immediately preceding the
	// #define, stripped of their comment markers, in source order.
	LeadingComments []string

	// IsTarget is true when this macro was defined while processing one of
	// the headers the caller asked to bind (directly, or via a quoted
	// #include reachable from one), as opposed to an angle-bracket system
	// include pulled in only to supply declarations.
	IsTarget bool

	// HasTokenPasting is true if Body contains a '##' operator anywhere,
	// computed eagerly at definition time (spec.md §4.7 P6).
	HasTokenPasting bool
}

func computeHasTokenPasting(body []token.Token) bool {
	for _, tok := range body {
		if tok.Kind == token.HashHash {
			return true
		}
	}
	return false
}
