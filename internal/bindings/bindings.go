// Package bindings ingests the pre-existing FFI binding descriptor
// (spec.md §6): a flat list of identifiers, of which any line starting
// with "fn <ident>" records <ident> as an already-available native
// function.
package bindings

import (
	"bufio"
	"io"
	"strings"

	"github.com/hkoba/libperl-macrogen-sub001/internal/intern"
	"github.com/hkoba/libperl-macrogen-sub001/internal/set"
)

// Set is the set of function names the downstream binding already exposes.
type Set struct {
	names set.Set[intern.Str]
}

// Available reports whether name is already bound.
func (s *Set) Available(name intern.Str) bool {
	return s.names.Includes(name)
}

// Names returns every available name.
func (s *Set) Names() set.Set[intern.Str] { return s.names }

// Parse reads r line by line, recording the identifier following "fn" on
// any line that starts with it.
func Parse(r io.Reader, interner *intern.Table) (*Set, error) {
	s := &Set{names: make(set.Set[intern.Str])}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[0] == "fn" {
			name := fields[1]
			if i := strings.IndexAny(name, "(<:,;"); i >= 0 {
				name = name[:i]
			}
			if name != "" {
				s.names.Add(interner.Intern(name))
			}
		}
	}
	return s, scanner.Err()
}
