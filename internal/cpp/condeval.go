package cpp

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hkoba/libperl-macrogen-sub001/internal/token"
)

// evalConstExpr evaluates the integer constant expression following #if or
// #elif. It supports defined()/defined IDENT, the usual C operators, and
// object-macro substitution one level deep; it is not a general expression
// evaluator, since header #if guards are overwhelmingly feature-test
// idioms rather than arithmetic.
func (p *Preprocessor) evalConstExpr(file string, line int, expr string) (bool, error) {
	expr = substituteDefined(expr, p.definedFn())
	expr = p.substituteObjectMacros(expr)

	toks := lexAll(fmt.Sprintf("%s:%d #if", file, line), expr)
	ev := &condEvaluator{toks: toks}
	v, err := ev.parseTernary()
	if err != nil {
		return false, err
	}
	if !ev.atEnd() {
		return false, fmt.Errorf("cpp: trailing tokens in #if expression %q", expr)
	}
	return v != 0, nil
}

func (p *Preprocessor) definedFn() func(string) bool {
	return func(name string) bool {
		_, ok := p.macros[p.interner.Intern(name)]
		return ok
	}
}

var definedRe = regexp.MustCompile(`defined\s*\(\s*([A-Za-z_]\w*)\s*\)|defined\s+([A-Za-z_]\w*)`)

// substituteDefined rewrites defined(X) / defined X into 0 or 1 before
// object-macro substitution runs, so that defined() never itself expands
// its operand.
func substituteDefined(expr string, isDefined func(string) bool) string {
	return definedRe.ReplaceAllStringFunc(expr, func(m string) string {
		sub := definedRe.FindStringSubmatch(m)
		name := sub[1]
		if name == "" {
			name = sub[2]
		}
		if isDefined(name) {
			return "1"
		}
		return "0"
	})
}

var identRe = regexp.MustCompile(`[A-Za-z_]\w*`)

// substituteObjectMacros replaces identifiers that name an object-like
// macro with an integer literal body by that body's text, one pass, left
// to right. Anything else (function-like macros, non-integer bodies,
// unknown identifiers) is left as-is and later treated as 0 by the parser.
func (p *Preprocessor) substituteObjectMacros(expr string) string {
	return identRe.ReplaceAllStringFunc(expr, func(name string) string {
		m, ok := p.macros[p.interner.Intern(name)]
		if !ok || m.Kind != Object || len(m.Body) != 1 {
			return name
		}
		tok := m.Body[0]
		if tok.Kind == token.IntLit {
			return tok.Text
		}
		return name
	})
}

// condEvaluator is a small recursive-descent parser/evaluator over the
// token stream of a preprocessed #if expression, precedence following
// standard C (lowest to highest): ?: || && | ^ & ==/!= </<=/>/>= <</>>
// +/- */ /%  unary.
type condEvaluator struct {
	toks []token.Token
	pos  int
}

func (e *condEvaluator) atEnd() bool {
	return e.pos >= len(e.toks) || e.toks[e.pos].Kind == token.Newline
}

func (e *condEvaluator) peek() token.Token {
	if e.atEnd() {
		return token.Token{Kind: token.EOF}
	}
	return e.toks[e.pos]
}

func (e *condEvaluator) next() token.Token {
	t := e.peek()
	e.pos++
	return t
}

func (e *condEvaluator) parseTernary() (int64, error) {
	cond, err := e.parseBinary(0)
	if err != nil {
		return 0, err
	}
	if e.peek().Kind == token.Question {
		e.next()
		thenV, err := e.parseTernary()
		if err != nil {
			return 0, err
		}
		if e.peek().Kind != token.Colon {
			return 0, fmt.Errorf("cpp: expected ':' in ?: expression")
		}
		e.next()
		elseV, err := e.parseTernary()
		if err != nil {
			return 0, err
		}
		if cond != 0 {
			return thenV, nil
		}
		return elseV, nil
	}
	return cond, nil
}

// precedence levels, lowest first.
var binOpPrec = []map[token.Kind]func(a, b int64) int64{
	{token.OrOr: func(a, b int64) int64 { return boolInt(a != 0 || b != 0) }},
	{token.AndAnd: func(a, b int64) int64 { return boolInt(a != 0 && b != 0) }},
	{token.Pipe: func(a, b int64) int64 { return a | b }},
	{token.Caret: func(a, b int64) int64 { return a ^ b }},
	{token.Amp: func(a, b int64) int64 { return a & b }},
	{
		token.Eq: func(a, b int64) int64 { return boolInt(a == b) },
		token.Ne: func(a, b int64) int64 { return boolInt(a != b) },
	},
	{
		token.Lt: func(a, b int64) int64 { return boolInt(a < b) },
		token.Gt: func(a, b int64) int64 { return boolInt(a > b) },
		token.Le: func(a, b int64) int64 { return boolInt(a <= b) },
		token.Ge: func(a, b int64) int64 { return boolInt(a >= b) },
	},
	{
		token.Shl: func(a, b int64) int64 { return a << uint(b) },
		token.Shr: func(a, b int64) int64 { return a >> uint(b) },
	},
	{
		token.Plus:  func(a, b int64) int64 { return a + b },
		token.Minus: func(a, b int64) int64 { return a - b },
	},
	{
		token.Star:    func(a, b int64) int64 { return a * b },
		token.Slash:   func(a, b int64) int64 { return safeDiv(a, b) },
		token.Percent: func(a, b int64) int64 { return safeMod(a, b) },
	},
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func safeDiv(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func safeMod(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	return a % b
}

func (e *condEvaluator) parseBinary(level int) (int64, error) {
	if level >= len(binOpPrec) {
		return e.parseUnary()
	}
	lhs, err := e.parseBinary(level + 1)
	if err != nil {
		return 0, err
	}
	for {
		ops := binOpPrec[level]
		fn, ok := ops[e.peek().Kind]
		if !ok {
			return lhs, nil
		}
		e.next()
		rhs, err := e.parseBinary(level + 1)
		if err != nil {
			return 0, err
		}
		lhs = fn(lhs, rhs)
	}
}

func (e *condEvaluator) parseUnary() (int64, error) {
	switch e.peek().Kind {
	case token.Bang:
		e.next()
		v, err := e.parseUnary()
		return boolInt(v == 0), err
	case token.Tilde:
		e.next()
		v, err := e.parseUnary()
		return ^v, err
	case token.Minus:
		e.next()
		v, err := e.parseUnary()
		return -v, err
	case token.Plus:
		e.next()
		return e.parseUnary()
	}
	return e.parsePrimary()
}

func (e *condEvaluator) parsePrimary() (int64, error) {
	t := e.next()
	switch t.Kind {
	case token.IntLit:
		return parseIntLit(t.Text), nil
	case token.LParen:
		v, err := e.parseTernary()
		if err != nil {
			return 0, err
		}
		if e.peek().Kind != token.RParen {
			return 0, fmt.Errorf("cpp: expected ')' in #if expression")
		}
		e.next()
		return v, nil
	case token.Ident:
		// An identifier surviving substitution is an undefined macro or a
		// function-like one invoked here; C defines both as 0.
		if e.peek().Kind == token.LParen {
			depth := 0
			for !e.atEnd() {
				if e.peek().Kind == token.LParen {
					depth++
				}
				if e.peek().Kind == token.RParen {
					depth--
					e.next()
					if depth == 0 {
						break
					}
					continue
				}
				e.next()
			}
		}
		return 0, nil
	case token.EOF:
		return 0, fmt.Errorf("cpp: unexpected end of #if expression")
	default:
		return 0, fmt.Errorf("cpp: unexpected token %v in #if expression", t.Kind)
	}
}

func parseIntLit(text string) int64 {
	text = strings.TrimRight(text, "uUlL")
	var v int64
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		n, _ := strconv.ParseInt(text[2:], 16, 64)
		v = n
	} else if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		v = n
	} else if n, err := strconv.ParseInt(text, 8, 64); err == nil {
		v = n
	}
	return v
}
