// Package cpp implements just enough of the C preprocessor to recover macro
// definitions from real header text: conditional inclusion, #include
// resolution against a configured search path, and #define/#undef
// registration. It deliberately works line-at-a-time rather than rescanning
// a full token stream through every directive, since the inputs are real
// header files rather than arbitrary preprocessor torture tests (spec.md
// §2 Non-goals: no arbitrary macro-argument trickery).
package cpp

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"strings"

	"github.com/hkoba/libperl-macrogen-sub001/internal/diag"
	"github.com/hkoba/libperl-macrogen-sub001/internal/intern"
	"github.com/hkoba/libperl-macrogen-sub001/internal/lexer"
	"github.com/hkoba/libperl-macrogen-sub001/internal/token"
)

// Preprocessor walks a header (and the headers it #includes) and builds up
// the macro table visible at the end of that walk. One Preprocessor is
// reused across every target header passed to Process, so macros defined by
// an earlier header are visible while processing a later one, matching how
// a real compilation unit accumulates #defines across included files.
type Preprocessor struct {
	fsys        fs.FS
	interner    *intern.Table
	diags       *diag.List
	includePath []string
	maxDepth    int

	macros    map[intern.Str]*MacroDef
	order     []intern.Str
	pragmaOne map[string]bool
	visiting  map[string]bool
	inlineFns map[intern.Str]bool
}

// New creates a Preprocessor reading header text from fsys.
func New(fsys fs.FS, interner *intern.Table, diags *diag.List) *Preprocessor {
	return &Preprocessor{
		fsys:      fsys,
		interner:  interner,
		diags:     diags,
		maxDepth:  200,
		macros:    make(map[intern.Str]*MacroDef),
		pragmaOne: make(map[string]bool),
		visiting:  make(map[string]bool),
		inlineFns: make(map[intern.Str]bool),
	}
}

// SetIncludePath configures the directories searched for #include, in
// order. The first directory that contains the requested file wins: an
// earlier, more specific -I entry shadows a later, more general one.
func (p *Preprocessor) SetIncludePath(dirs []string) { p.includePath = dirs }

// SetMaxIncludeDepth bounds recursive #include nesting (spec.md §5 resource
// limits).
func (p *Preprocessor) SetMaxIncludeDepth(n int) {
	if n > 0 {
		p.maxDepth = n
	}
}

// ProcessTarget processes file as a header the caller explicitly asked to
// bind: every macro it defines directly, and every macro defined by a
// quoted (non-system) #include reachable from it, is marked IsTarget.
func (p *Preprocessor) ProcessTarget(file string) error {
	return p.process(file, true, 0)
}

// Macros returns every macro visible at the end of processing, in
// definition order.
func (p *Preprocessor) Macros() []*MacroDef {
	out := make([]*MacroDef, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.macros[name])
	}
	return out
}

// Lookup returns the macro named name, if any is currently defined.
func (p *Preprocessor) Lookup(name intern.Str) (*MacroDef, bool) {
	m, ok := p.macros[name]
	return m, ok
}

// InlineFunctions returns the set of C function names found defined with
// "static inline" (or the header set's own PERL_STATIC_INLINE spelling of
// it) while walking the target headers. These count as available callees
// for spec.md §4.8 exactly like an already-bound native function does.
func (p *Preprocessor) InlineFunctions() map[intern.Str]bool {
	return p.inlineFns
}

func (p *Preprocessor) process(file string, isTarget bool, depth int) error {
	if depth > p.maxDepth {
		return fmt.Errorf("cpp: include depth exceeds %d at %s", p.maxDepth, file)
	}
	raw, err := fs.ReadFile(p.fsys, file)
	if err != nil {
		return fmt.Errorf("cpp: reading %s: %w", file, err)
	}
	src := lexer.SpliceContinuations(raw)

	cond := &condStack{}
	var pending []string         // pending leading-comment lines
	var pendingInlineSig string  // prior line, if it looked like an inline-function header with no '(' yet

	scanner := bufio.NewScanner(bytes.NewReader(src))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		loc := token.Position{File: file, Line: lineNo}

		if !strings.HasPrefix(trimmed, "#") {
			switch {
			case trimmed == "":
				// A blank line breaks the adjacency a leading doc comment
				// needs to attach to the next #define.
				pending = nil
				pendingInlineSig = ""
			case strings.HasPrefix(trimmed, "//"):
				pending = append(pending, strings.TrimSpace(trimmed[2:]))
			case strings.HasPrefix(trimmed, "/*"):
				pending = append(pending, extractBlockComment(trimmed))
			default:
				pending = nil
				if cond.active() {
					if name, ok := inlineFuncName(trimmed); ok {
						p.inlineFns[p.interner.Intern(name)] = true
						pendingInlineSig = ""
					} else if name, ok := inlineFuncName(pendingInlineSig + " " + trimmed); ok {
						// Perl's own headers routinely split the return type
						// and the "name(args)" part across two lines.
						p.inlineFns[p.interner.Intern(name)] = true
						pendingInlineSig = ""
					} else if inlineSigStartRe.MatchString(trimmed) && !strings.Contains(trimmed, "(") {
						pendingInlineSig = trimmed
					} else {
						pendingInlineSig = ""
					}
				}
			}
			continue
		}

		directive, rest := splitDirective(trimmed)
		if !cond.active() && directive != "if" && directive != "ifdef" &&
			directive != "ifndef" && directive != "elif" && directive != "else" && directive != "endif" {
			pending = nil
			continue
		}

		switch directive {
		case "include":
			pending = nil
			inc, quoted, ok := parseInclude(rest)
			if !ok {
				p.diags.AddAt(loc, fmt.Errorf("cpp: malformed #include: %s", line))
				continue
			}
			resolved, err := p.resolveInclude(file, inc, quoted)
			if err != nil {
				p.diags.AddAt(loc, err)
				continue
			}
			childIsTarget := isTarget && quoted
			if err := p.process(resolved, childIsTarget, depth+1); err != nil {
				p.diags.AddAt(loc, err)
			}

		case "define":
			def, err := p.parseDefine(file, lineNo, rest, isTarget, pending)
			pending = nil
			if err != nil {
				p.diags.AddAt(loc, err)
				continue
			}
			p.define(def)

		case "undef":
			pending = nil
			name := strings.TrimSpace(rest)
			delete(p.macros, p.interner.Intern(name))

		case "if":
			pending = nil
			v, err := p.evalConstExpr(file, lineNo, rest)
			if err != nil {
				p.diags.Add(&diag.WarningError{Err: err})
				v = false
			}
			cond.push(loc, v)

		case "ifdef":
			pending = nil
			_, ok := p.macros[p.interner.Intern(strings.TrimSpace(rest))]
			cond.push(loc, ok)

		case "ifndef":
			pending = nil
			_, ok := p.macros[p.interner.Intern(strings.TrimSpace(rest))]
			cond.push(loc, !ok)

		case "elif":
			pending = nil
			v, err := p.evalConstExpr(file, lineNo, rest)
			if err != nil {
				p.diags.Add(&diag.WarningError{Err: err})
				v = false
			}
			if err := cond.nextBranch(v); err != nil {
				p.diags.AddAt(loc, err)
			}

		case "else":
			pending = nil
			if err := cond.nextBranch(true); err != nil {
				p.diags.AddAt(loc, err)
			}

		case "endif":
			pending = nil
			if err := cond.pop(); err != nil {
				p.diags.AddAt(loc, err)
			}

		case "error":
			pending = nil
			if cond.active() {
				p.diags.AddAt(loc, fmt.Errorf("cpp: #error %s", strings.TrimSpace(rest)))
			}

		case "pragma":
			pending = nil
			if strings.TrimSpace(rest) == "once" {
				if p.pragmaOne[file] {
					return nil
				}
				p.pragmaOne[file] = true
			}

		default:
			pending = nil
			// Unrecognized directives (#line, #ident, vendor pragmas) carry no
			// macro information and are silently skipped.
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if len(cond.frames) != 0 {
		open := cond.frames[0]
		return fmt.Errorf("cpp: %s: unterminated #if (missing #endif)", open.loc)
	}
	return nil
}

func (p *Preprocessor) define(def *MacroDef) {
	name := def.Name
	if _, seen := p.macros[name]; !seen {
		p.order = append(p.order, name)
	}
	p.macros[name] = def
}

var directiveRe = regexp.MustCompile(`^#\s*([A-Za-z_]+)\s*(.*)$`)

func splitDirective(trimmed string) (directive, rest string) {
	m := directiveRe.FindStringSubmatch(trimmed)
	if m == nil {
		return "", ""
	}
	return m[1], m[2]
}

func extractBlockComment(s string) string {
	s = strings.TrimPrefix(s, "/*")
	s = strings.TrimSuffix(s, "*/")
	return strings.TrimSpace(s)
}

// inlineFuncRe matches a "static inline"-shaped C function definition
// header, e.g. "PERL_STATIC_INLINE SV * Perl_sv_2mortal(...)" or
// "static inline void Perl_foo(pTHX_ SV *sv)". Only the identifier
// immediately before the opening paren is captured.
var inlineFuncRe = regexp.MustCompile(`(?:PERL_STATIC_INLINE|static\s+inline)\b.*?([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

// inlineSigStartRe matches a line that opens an inline-function declaration
// but doesn't yet show the "name(args)" part, e.g. a bare "PERL_STATIC_INLINE
// SV *" line with the function name on the following line.
var inlineSigStartRe = regexp.MustCompile(`(?:PERL_STATIC_INLINE|static\s+inline)\b`)

func inlineFuncName(line string) (string, bool) {
	m := inlineFuncRe.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

var includeRe = regexp.MustCompile(`^(<[^>]+>|"[^"]+")`)

func parseInclude(rest string) (name string, quoted bool, ok bool) {
	m := includeRe.FindString(strings.TrimSpace(rest))
	if m == "" {
		return "", false, false
	}
	quoted = m[0] == '"'
	return m[1 : len(m)-1], quoted, true
}

// resolveInclude looks up a #include target. Quoted includes are tried
// relative to the including file's own directory first, then against the
// configured include path; angle-bracket includes go straight to the
// include path. The first matching candidate, in that order, wins.
func (p *Preprocessor) resolveInclude(fromFile, name string, quoted bool) (string, error) {
	var candidates []string
	if quoted {
		candidates = append(candidates, path.Join(path.Dir(fromFile), name))
	}
	for _, dir := range p.includePath {
		candidates = append(candidates, path.Join(dir, name))
	}
	if !quoted && len(p.includePath) == 0 {
		candidates = append(candidates, name)
	}
	for _, c := range candidates {
		if _, err := fs.Stat(p.fsys, c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("cpp: cannot resolve #include %q from %s", name, fromFile)
}

// parseDefine parses the text following "#define" (name, optional parameter
// list, body) and lexes the body into tokens.
func (p *Preprocessor) parseDefine(file string, line int, rest string, isTarget bool, leading []string) (*MacroDef, error) {
	rest = strings.TrimLeft(rest, " \t")
	i := 0
	for i < len(rest) && isIdentByte(rest[i]) {
		i++
	}
	if i == 0 {
		return nil, fmt.Errorf("cpp: #define missing macro name at %s:%d", file, line)
	}
	name := rest[:i]
	rest = rest[i:]

	def := &MacroDef{
		Name:            p.interner.Intern(name),
		Loc:             token.Position{File: file, Line: line},
		IsTarget:        isTarget,
		LeadingComments: append([]string(nil), leading...),
	}

	if strings.HasPrefix(rest, "(") {
		def.Kind = Function
		close := strings.IndexByte(rest, ')')
		if close < 0 {
			return nil, fmt.Errorf("cpp: unterminated parameter list for %s at %s:%d", name, file, line)
		}
		paramList := rest[1:close]
		rest = rest[close+1:]
		for _, raw := range strings.Split(paramList, ",") {
			param := strings.TrimSpace(raw)
			if param == "" {
				continue
			}
			if param == "..." {
				def.Variadic = true
				continue
			}
			def.Params = append(def.Params, p.interner.Intern(param))
		}
	} else {
		def.Kind = Object
	}

	body := strings.TrimSpace(rest)
	def.Body = lexAll(name, body)
	def.HasTokenPasting = computeHasTokenPasting(def.Body)
	return def, nil
}

// lexAll drains a lexer.Run channel into a slice, dropping the trailing EOF.
func lexAll(label, src string) []token.Token {
	var out []token.Token
	for tok := range lexer.Run(label, []byte(src)) {
		if tok.Kind == token.EOF {
			break
		}
		out = append(out, tok)
	}
	return out
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// condStack tracks nested #if/#elif/#else/#endif state.
type condStack struct {
	frames []condFrame
}

type condFrame struct {
	loc          token.Position
	parentActive bool
	takenBranch  bool
	branchActive bool
}

func (c *condStack) active() bool {
	if len(c.frames) == 0 {
		return true
	}
	f := c.frames[len(c.frames)-1]
	return f.parentActive && f.branchActive
}

func (c *condStack) push(loc token.Position, v bool) {
	parentActive := c.active()
	c.frames = append(c.frames, condFrame{
		loc:          loc,
		parentActive: parentActive,
		branchActive: parentActive && v,
		takenBranch:  parentActive && v,
	})
}

func (c *condStack) nextBranch(v bool) error {
	if len(c.frames) == 0 {
		return fmt.Errorf("cpp: #elif/#else without matching #if")
	}
	f := &c.frames[len(c.frames)-1]
	if f.takenBranch {
		f.branchActive = false
		return nil
	}
	f.branchActive = f.parentActive && v
	if f.branchActive {
		f.takenBranch = true
	}
	return nil
}

func (c *condStack) pop() error {
	if len(c.frames) == 0 {
		return fmt.Errorf("cpp: #endif without matching #if")
	}
	c.frames = c.frames[:len(c.frames)-1]
	return nil
}
