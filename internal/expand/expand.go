// Package expand performs C-style rescan macro expansion over a token
// stream produced by package cpp, and records every macro name it touches
// along the way — including ones that vanish entirely from the expanded
// text, such as an object macro that only contributes to THX reachability
// (spec.md §4.3, §4.7 step 5).
package expand

import (
	"strconv"
	"strings"

	"github.com/hkoba/libperl-macrogen-sub001/internal/cpp"
	"github.com/hkoba/libperl-macrogen-sub001/internal/intern"
	"github.com/hkoba/libperl-macrogen-sub001/internal/token"
)

// Lookup resolves a macro name to its definition, if any.
type Lookup func(intern.Str) (*cpp.MacroDef, bool)

// Expander rescans a token stream, substituting macro invocations.
type Expander struct {
	lookup   Lookup
	interner *intern.Table
}

// New creates an Expander backed by lookup for macro resolution.
func New(lookup Lookup, interner *intern.Table) *Expander {
	return &Expander{lookup: lookup, interner: interner}
}

// Expand substitutes every macro invocation reachable from toks, with self
// blue-painted so the macro being processed never expands into itself. It
// returns the expanded token stream and the cumulative set of every macro
// name touched during the walk (used, not used_by).
func (e *Expander) Expand(toks []token.Token, self intern.Str) (expanded []token.Token, used map[intern.Str]bool) {
	used = make(map[intern.Str]bool)
	blue := map[intern.Str]bool{self: true}
	expanded = e.expandTokens(toks, blue, used)
	return expanded, used
}

func (e *Expander) expandTokens(toks []token.Token, blue map[intern.Str]bool, used map[intern.Str]bool) []token.Token {
	var out []token.Token
	i := 0
	for i < len(toks) {
		t := toks[i]
		if t.Kind != token.Ident {
			out = append(out, t)
			i++
			continue
		}
		name := e.interner.Intern(t.Text)
		def, ok := e.lookup(name)
		if !ok {
			out = append(out, t)
			i++
			continue
		}
		if blue[name] {
			// Recorded as touched even though expansion is suppressed here:
			// the inference engine subtracts self from this set itself.
			used[name] = true
			out = append(out, t)
			i++
			continue
		}
		if def.Kind == cpp.Object {
			used[name] = true
			body := e.expandTokens(def.Body, withBlue(blue, name), used)
			out = append(out, body...)
			i++
			continue
		}

		// Function-like macro: only invoked if immediately followed by '('.
		if i+1 >= len(toks) || toks[i+1].Kind != token.LParen {
			out = append(out, t)
			i++
			continue
		}
		args, after, ok := collectArgs(toks, i+1)
		if !ok {
			out = append(out, t)
			i++
			continue
		}
		used[name] = true
		substituted := e.substitute(def, args, blue, used)
		body := e.expandTokens(substituted, withBlue(blue, name), used)
		out = append(out, body...)
		i = after
	}
	return out
}

func withBlue(blue map[intern.Str]bool, name intern.Str) map[intern.Str]bool {
	next := make(map[intern.Str]bool, len(blue)+1)
	for k := range blue {
		next[k] = true
	}
	next[name] = true
	return next
}

// collectArgs scans a balanced, comma-separated argument list starting at
// toks[openParen] == '(' and returns the argument token slices and the
// index of the first token after the matching ')'.
func collectArgs(toks []token.Token, openParen int) (args [][]token.Token, after int, ok bool) {
	depth := 0
	i := openParen
	var cur []token.Token
	sawAny := false
	for i < len(toks) {
		t := toks[i]
		switch t.Kind {
		case token.LParen:
			depth++
			if depth > 1 {
				cur = append(cur, t)
			}
			i++
		case token.RParen:
			depth--
			if depth == 0 {
				if sawAny || len(cur) > 0 {
					args = append(args, cur)
				}
				return args, i + 1, true
			}
			cur = append(cur, t)
			i++
		case token.Comma:
			if depth == 1 {
				args = append(args, cur)
				cur = nil
				sawAny = true
				i++
				continue
			}
			cur = append(cur, t)
			i++
		default:
			cur = append(cur, t)
			i++
		}
	}
	return nil, openParen, false
}

// substitute performs parameter substitution, '#' stringification and '##'
// pasting over def's body, given the raw (unexpanded) argument token lists
// captured at the call site. Arguments are macro-expanded before ordinary
// substitution, but used raw for '#' and '##' operands, matching standard C
// macro-expansion semantics.
func (e *Expander) substitute(def *cpp.MacroDef, rawArgs [][]token.Token, blue map[intern.Str]bool, used map[intern.Str]bool) []token.Token {
	paramIndex := make(map[intern.Str]int, len(def.Params))
	for idx, p := range def.Params {
		paramIndex[p] = idx
	}
	argFor := func(idx int) []token.Token {
		if idx < len(rawArgs) {
			return rawArgs[idx]
		}
		return nil
	}
	variadicArg := func() []token.Token {
		if len(rawArgs) <= len(def.Params) {
			return nil
		}
		var out []token.Token
		for i := len(def.Params); i < len(rawArgs); i++ {
			if i > len(def.Params) {
				out = append(out, token.Token{Kind: token.Comma, Text: ","})
			}
			out = append(out, rawArgs[i]...)
		}
		return out
	}

	expandedArgCache := make(map[int][]token.Token)
	expandedArg := func(idx int) []token.Token {
		if cached, ok := expandedArgCache[idx]; ok {
			return cached
		}
		v := e.expandTokens(argFor(idx), blue, used)
		expandedArgCache[idx] = v
		return v
	}

	body := def.Body
	var out []token.Token
	for i := 0; i < len(body); i++ {
		tok := body[i]

		// '#' stringification: only meaningful directly before a parameter.
		if tok.Kind == token.Hash && i+1 < len(body) && body[i+1].Kind == token.Ident {
			pname := e.interner.Intern(body[i+1].Text)
			if idx, isParam := paramIndex[pname]; isParam {
				out = append(out, stringify(argFor(idx), tok.Loc.Position))
				i++
				continue
			}
			if def.Variadic && body[i+1].Text == "__VA_ARGS__" {
				out = append(out, stringify(variadicArg(), tok.Loc.Position))
				i++
				continue
			}
		}

		// '##' pasting: glue the previous output token to the next body
		// token's raw text (parameter operands are substituted unexpanded).
		if tok.Kind == token.HashHash && len(out) > 0 && i+1 < len(body) {
			next := body[i+1]
			rightText := next.Text
			if next.Kind == token.Ident {
				pname := e.interner.Intern(next.Text)
				if idx, isParam := paramIndex[pname]; isParam {
					rightText = rawText(argFor(idx))
				} else if def.Variadic && next.Text == "__VA_ARGS__" {
					rightText = rawText(variadicArg())
				}
			}
			left := out[len(out)-1]
			out[len(out)-1] = pasteTokens(left, rightText)
			i++
			continue
		}

		if tok.Kind == token.Ident {
			// The left operand of a following '##' is substituted raw.
			pasteNext := i+1 < len(body) && body[i+1].Kind == token.HashHash
			pname := e.interner.Intern(tok.Text)
			if idx, isParam := paramIndex[pname]; isParam {
				if pasteNext {
					out = append(out, argFor(idx)...)
				} else {
					out = append(out, expandedArg(idx)...)
				}
				continue
			}
			if def.Variadic && tok.Text == "__VA_ARGS__" {
				if pasteNext {
					out = append(out, variadicArg()...)
				} else {
					out = append(out, e.expandTokens(variadicArg(), blue, used)...)
				}
				continue
			}
		}

		out = append(out, tok)
	}
	return out
}

// rawText concatenates an argument's raw token text without separators, for
// use as the right operand of a '##' paste.
func rawText(arg []token.Token) string {
	var b strings.Builder
	for _, t := range arg {
		b.WriteString(t.Text)
	}
	return b.String()
}

func stringify(arg []token.Token, loc token.Position) token.Token {
	var parts []string
	for _, t := range arg {
		parts = append(parts, t.Text)
	}
	text := `"` + strings.ReplaceAll(strings.Join(parts, " "), `"`, `\"`) + `"`
	return token.Token{Kind: token.StringLit, Text: text, Loc: token.SourceLocation{Position: loc}}
}

func pasteTokens(left token.Token, rightText string) token.Token {
	pasted := left.Text + rightText
	return token.Token{Kind: classifyPasted(pasted), Text: pasted, Loc: left.Loc}
}

// classifyPasted re-derives a plausible token kind for a pasted token. A
// paste that doesn't form a valid token (e.g. "foo" ## "+") still produces
// a single Invalid token here; the containing macro is later rejected by
// the parser, matching spec.md §4.3's "preserved as two adjacent tokens"
// note at the level that matters (it fails to parse either way).
func classifyPasted(text string) token.Kind {
	if text == "" {
		return token.Invalid
	}
	if isIdentStart(rune(text[0])) {
		for _, r := range text {
			if !isIdentCont(rune(r)) {
				return token.Invalid
			}
		}
		return token.Ident
	}
	if text[0] >= '0' && text[0] <= '9' {
		if _, err := strconv.ParseInt(text, 0, 64); err == nil {
			return token.IntLit
		}
		return token.Invalid
	}
	return token.Invalid
}

func isIdentStart(r rune) bool { return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }
func isIdentCont(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}
