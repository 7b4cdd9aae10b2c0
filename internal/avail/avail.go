// Package avail implements the availability analyzer (spec.md §4.8): a
// callee is available iff the downstream FFI binding already exposes it,
// it is an inline function collected from header parsing, or it names
// another target macro in this run.
package avail

import (
	"github.com/hkoba/libperl-macrogen-sub001/internal/bindings"
	"github.com/hkoba/libperl-macrogen-sub001/internal/cast"
	"github.com/hkoba/libperl-macrogen-sub001/internal/intern"
	"github.com/hkoba/libperl-macrogen-sub001/internal/set"
)

// Set answers the "is this callee available" question the inference
// engine needs while classifying each macro.
type Set struct {
	bindings *bindings.Set
	inline   map[intern.Str]bool
	targets  map[intern.Str]bool
}

// New builds a Set from the bound native functions, the inline functions
// collected while parsing headers, and the set of target macro names.
func New(bound *bindings.Set, inline map[intern.Str]bool, targets map[intern.Str]bool) *Set {
	if inline == nil {
		inline = make(map[intern.Str]bool)
	}
	if targets == nil {
		targets = make(map[intern.Str]bool)
	}
	return &Set{bindings: bound, inline: inline, targets: targets}
}

// Available reports whether name is an available callee.
func (s *Set) Available(name intern.Str) bool {
	return s.bindings.Available(name) || s.inline[name] || s.targets[name]
}

// CollectCallees returns every distinct identifier called from pr's parse
// result (the "Call nodes" of spec.md §4.8), in first-appearance order.
func CollectCallees(pr cast.ParseResult) []intern.Str {
	var out []intern.Str
	seen := make(set.Set[intern.Str])
	record := func(e cast.Expr) {
		call, ok := e.(*cast.CallExpr)
		if !ok {
			return
		}
		ident, ok := call.Callee.(*cast.IdentExpr)
		if !ok || seen.Includes(ident.Name) {
			return
		}
		seen.Add(ident.Name)
		out = append(out, ident.Name)
	}

	switch pr.Kind {
	case cast.ExpressionResult:
		walkExpr(pr.Expr, record)
	case cast.StatementResult:
		walkStmt(pr.Stmt, record)
	}
	return out
}

func walkExpr(e cast.Expr, visit func(cast.Expr)) {
	if e == nil {
		return
	}
	visit(e)
	for _, c := range cast.Children(e) {
		walkExpr(c, visit)
	}
}

func walkStmt(s cast.Stmt, visit func(cast.Expr)) {
	switch n := s.(type) {
	case nil:
		return
	case *cast.CompoundStmt:
		for _, it := range n.Items {
			walkStmt(it, visit)
		}
	case *cast.ExprStmt:
		walkExpr(n.X, visit)
	case *cast.IfStmt:
		walkExpr(n.Cond, visit)
		walkStmt(n.Then, visit)
		walkStmt(n.Else, visit)
	case *cast.WhileStmt:
		walkExpr(n.Cond, visit)
		walkStmt(n.Body, visit)
	case *cast.DoWhileStmt:
		walkStmt(n.Body, visit)
		walkExpr(n.Cond, visit)
	case *cast.ForStmt:
		walkStmt(n.Init, visit)
		walkExpr(n.Cond, visit)
		walkExpr(n.Post, visit)
		walkStmt(n.Body, visit)
	case *cast.SwitchStmt:
		walkExpr(n.Tag, visit)
		walkStmt(n.Body, visit)
	case *cast.CaseStmt:
		walkExpr(n.Value, visit)
		walkStmt(n.Body, visit)
	case *cast.ReturnStmt:
		walkExpr(n.X, visit)
	case *cast.LabelStmt:
		walkStmt(n.Inner, visit)
	case *cast.DeclStmt:
		walkExpr(n.Init, visit)
	}
}
