package infer

import (
	"github.com/hkoba/libperl-macrogen-sub001/internal/cast"
	"github.com/hkoba/libperl-macrogen-sub001/internal/intern"
)

// ParamType implements spec.md §4.7.1 param_type(m, name):
//
//	(a) a FromApiDoc param constraint, if one exists;
//	(b) else the first constraint (by the Cast > FieldDict > SvUUnion >
//	    Propagation ranking, first-insertion tie-break) reached by
//	    walking param_to_exprs[name];
//	(c) else the param's own synthetic ExprId constraints;
//	(d) else the best-ranked of the param's own param constraints;
//	(e) else Unknown.
func (info *MacroInferInfo) ParamType(name intern.Str) TypeRepr {
	for _, c := range info.Env.ParamConstraints[name] {
		if c.Type.Origin == FromApiDoc {
			return c.Type
		}
	}

	var viaExprs []TypeConstraint
	for _, id := range info.Env.ParamToExprs[name] {
		viaExprs = append(viaExprs, info.Env.ExprConstraints[id]...)
	}
	if best, ok := bestConstraint(viaExprs); ok {
		return best.Type
	}

	if id, ok := info.paramExprID(name); ok {
		if best, ok := bestConstraint(info.Env.ExprConstraints[id]); ok {
			return best.Type
		}
	}

	if best, ok := bestConstraint(info.Env.ParamConstraints[name]); ok {
		return best.Type
	}

	return Unknown
}

// ReturnType implements spec.md §4.7.1 return_type(m):
//
//	(a) a FromApiDoc return constraint, if any, else any other
//	    return_constraint;
//	(b) else the expr_constraints of parse_result's top-level
//	    expression;
//	(c) else Unknown for an expression macro, Unit for a statement
//	    macro or an unparseable one.
func (info *MacroInferInfo) ReturnType() TypeRepr {
	for _, c := range info.Env.ReturnConstraints {
		if c.Type.Origin == FromApiDoc {
			return c.Type
		}
	}
	if best, ok := bestConstraint(info.Env.ReturnConstraints); ok {
		return best.Type
	}

	if info.ParseResult.Kind != cast.ExpressionResult {
		return Unit
	}
	id := cast.ExprID(info.ParseResult.Expr)
	if best, ok := bestConstraint(info.Env.ExprConstraints[id]); ok {
		return best.Type
	}
	return Unknown
}
