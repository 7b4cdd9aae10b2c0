package infer

import (
	"github.com/hkoba/libperl-macrogen-sub001/internal/cast"
	"github.com/hkoba/libperl-macrogen-sub001/internal/intern"
)

// TypeConstraint is one candidate type for an expression, parameter or
// return value, tagged with the evidence that produced it.
type TypeConstraint struct {
	Type       TypeRepr
	Confidence float64
}

// ExprToParamLink records that expr constrains param's type, and under what
// circumstance (spec.md §3 TypeEnv.expr_to_param).
type ExprToParamLink struct {
	Expr    cast.ExprId
	Param   intern.Str
	Context string
}

// TypeEnv holds every constraint gathered for one macro (spec.md §3).
type TypeEnv struct {
	ExprConstraints   map[cast.ExprId][]TypeConstraint
	ReturnConstraints []TypeConstraint
	ParamConstraints  map[intern.Str][]TypeConstraint
	ExprToParam       []ExprToParamLink
	ParamToExprs      map[intern.Str][]cast.ExprId
}

// NewTypeEnv creates an empty TypeEnv.
func NewTypeEnv() *TypeEnv {
	return &TypeEnv{
		ExprConstraints:  make(map[cast.ExprId][]TypeConstraint),
		ParamConstraints: make(map[intern.Str][]TypeConstraint),
		ParamToExprs:     make(map[intern.Str][]cast.ExprId),
	}
}

// AddExprConstraint attaches tc to expr id, in insertion order.
func (e *TypeEnv) AddExprConstraint(id cast.ExprId, tc TypeConstraint) {
	e.ExprConstraints[id] = append(e.ExprConstraints[id], tc)
}

// AddParamConstraint attaches tc to parameter name, in insertion order.
func (e *TypeEnv) AddParamConstraint(name intern.Str, tc TypeConstraint) {
	e.ParamConstraints[name] = append(e.ParamConstraints[name], tc)
}

// AddReturnConstraint attaches tc to the macro's return type, in insertion
// order.
func (e *TypeEnv) AddReturnConstraint(tc TypeConstraint) {
	e.ReturnConstraints = append(e.ReturnConstraints, tc)
}

// LinkExprToParam records that expr constrains param's type, in context,
// building the forward and reverse maps at the same call site so invariant
// I2 (param_to_exprs = reverse of expr_to_param) holds by construction.
func (e *TypeEnv) LinkExprToParam(id cast.ExprId, param intern.Str, context string) {
	e.ExprToParam = append(e.ExprToParam, ExprToParamLink{Expr: id, Param: param, Context: context})
	e.ParamToExprs[param] = append(e.ParamToExprs[param], id)
}

// bestConstraint returns the highest-priority constraint in cs (lowest
// priorityRank), breaking ties by earliest insertion order.
func bestConstraint(cs []TypeConstraint) (TypeConstraint, bool) {
	if len(cs) == 0 {
		return TypeConstraint{}, false
	}
	best := cs[0]
	bestRank := priorityRank(best.Type.Origin)
	for _, c := range cs[1:] {
		if r := priorityRank(c.Type.Origin); r < bestRank {
			best, bestRank = c, r
		}
	}
	return best, true
}
