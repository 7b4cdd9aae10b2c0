// Package intern implements string interning for identifiers shared across the
// macro-to-function pipeline (lexer, preprocessor, parser, inference engine).
package intern

import "sync"

// Str is an opaque handle for an interned string. Equality of two Str values
// implies equality of the underlying text; ordering is only meaningful via
// Table.Lookup.
type Str int32

// Table is a two-way interning table. It is safe for concurrent use, though
// the pipeline itself is single-threaded (see spec §5) and never exercises
// that safety beyond defensive use from tests.
type Table struct {
	mu      sync.RWMutex
	byText  map[string]Str
	byID    []string
}

// New creates an empty interning table.
func New() *Table {
	return &Table{byText: make(map[string]Str)}
}

// Intern returns the Str for s, assigning a new one if s hasn't been seen
// before. The returned handle is stable for the lifetime of the table.
func (t *Table) Intern(s string) Str {
	t.mu.RLock()
	if id, ok := t.byText[s]; ok {
		t.mu.RUnlock()
		return id
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.byText[s]; ok {
		return id
	}
	id := Str(len(t.byID))
	t.byID = append(t.byID, s)
	t.byText[s] = id
	return id
}

// Lookup returns the original text for id. It panics if id was never
// returned by Intern on this table, since that indicates a programming
// error (a Str handle escaping its owning table).
func (t *Table) Lookup(id Str) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(id) < 0 || int(id) >= len(t.byID) {
		panic("intern: Str not known to this table")
	}
	return t.byID[id]
}

// Len returns the number of distinct strings interned so far.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byID)
}
