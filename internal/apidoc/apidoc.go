// Package apidoc ingests the declarative, embed.fnc-shaped function-
// signature file (spec.md §6): one function or macro per line, giving its
// return type and parameter list as raw type strings. Parsing those
// strings into TypeRef values is deferred to package infer, since the
// typedef set needed to interpret them fully is only complete after the
// whole header pass (spec.md §4.6).
package apidoc

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/hkoba/libperl-macrogen-sub001/internal/diag"
	"github.com/hkoba/libperl-macrogen-sub001/internal/intern"
)

// Param is one raw (type-string, name) pair from a signature line.
type Param struct {
	TypeString string
	Name       intern.Str
}

// Entry is one parsed declarative line: flags, return type string, and
// parameters. Type strings are kept raw; see package infer for the lazy,
// memoized parse into TypeRef.
type Entry struct {
	Flags      string
	ReturnType string
	Name       intern.Str
	Params     []Param
	SourceLine int
}

// Table maps function/macro name to its declarative entry, keeping only
// the first entry seen per name (spec.md §9(a): "first-in-file wins").
type Table struct {
	byName map[intern.Str]*Entry
	order  []intern.Str
}

// New creates an empty table.
func New() *Table {
	return &Table{byName: make(map[intern.Str]*Entry)}
}

// Lookup returns the entry for name, if any.
func (t *Table) Lookup(name intern.Str) (*Entry, bool) {
	e, ok := t.byName[name]
	return e, ok
}

// Entries returns every entry in first-seen order.
func (t *Table) Entries() []*Entry {
	out := make([]*Entry, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.byName[name])
	}
	return out
}

// Parse reads a line-oriented api-doc file of the shape
//
//	flags | return-type | name | param-type param-name, param-type param-name
//
// into t. Lines starting with ':' or '#' are comments; blank lines are
// skipped. A malformed line is skipped rather than treated as fatal, since
// the api-doc is supplementary evidence, not a required input (spec.md §7:
// only preprocessor-level errors are fatal).
func Parse(r io.Reader, interner *intern.Table) (*Table, []error) {
	t := New()
	var errs []error
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, ":") || strings.HasPrefix(trimmed, "#") {
			continue
		}
		entry, err := parseLine(trimmed, lineNo, interner)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if prev, seen := t.byName[entry.Name]; seen {
			// spec.md §9(a): first-in-file wins; record the ambiguity as a
			// warning rather than silently discarding it.
			errs = append(errs, &diag.WarningError{Err: fmt.Errorf(
				"apidoc:%d: duplicate entry for %q, first seen at line %d: keeping the earlier one",
				lineNo, interner.Lookup(entry.Name), prev.SourceLine)})
			continue
		}
		t.byName[entry.Name] = entry
		t.order = append(t.order, entry.Name)
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, err)
	}
	return t, errs
}

func parseLine(line string, lineNo int, interner *intern.Table) (*Entry, error) {
	fields := strings.Split(line, "|")
	if len(fields) != 4 {
		return nil, fmt.Errorf("apidoc:%d: expected 4 '|'-separated fields, got %d", lineNo, len(fields))
	}
	flags := strings.TrimSpace(fields[0])
	returnType := strings.TrimSpace(fields[1])
	name := strings.TrimSpace(fields[2])
	if name == "" {
		return nil, fmt.Errorf("apidoc:%d: missing function/macro name", lineNo)
	}

	paramField := strings.TrimSpace(fields[3])
	var params []Param
	if paramField != "" {
		for _, raw := range strings.Split(paramField, ",") {
			p, err := parseParam(strings.TrimSpace(raw), lineNo, interner)
			if err != nil {
				return nil, err
			}
			params = append(params, p)
		}
	}

	return &Entry{
		Flags:      flags,
		ReturnType: returnType,
		Name:       interner.Intern(name),
		Params:     params,
		SourceLine: lineNo,
	}, nil
}

// parseParam splits "type-string param-name" on the last whitespace run,
// since type strings can themselves contain spaces ("const char *").
func parseParam(raw string, lineNo int, interner *intern.Table) (Param, error) {
	idx := strings.LastIndexAny(raw, " \t*")
	if idx < 0 {
		return Param{}, fmt.Errorf("apidoc:%d: malformed parameter %q", lineNo, raw)
	}
	// Include a trailing '*' in the type string, not the name.
	splitAt := idx
	if raw[idx] == '*' {
		splitAt = idx + 1
	}
	typeStr := strings.TrimSpace(raw[:splitAt])
	name := strings.TrimSpace(raw[splitAt:])
	if typeStr == "" || name == "" {
		return Param{}, fmt.Errorf("apidoc:%d: malformed parameter %q", lineNo, raw)
	}
	return Param{TypeString: typeStr, Name: interner.Intern(name)}, nil
}
