package infer

import (
	"strings"

	"github.com/hkoba/libperl-macrogen-sub001/internal/cast"
	"github.com/hkoba/libperl-macrogen-sub001/internal/fields"
	"github.com/hkoba/libperl-macrogen-sub001/internal/intern"
	"github.com/hkoba/libperl-macrogen-sub001/internal/token"
)

// SeedConstraints walks info's parse result and seeds type constraints from
// the AST shapes listed in spec.md §4.7 step 3: casts, direct field
// access, the SvANY cast idiom, the sv_u union idiom, and propagation
// across assignment/binary operators and address-of.
func SeedConstraints(info *MacroInferInfo, fd *fields.Dict, interner *intern.Table) {
	var binAssignNodes []cast.Expr
	var addrOfNodes []*cast.UnaryExpr
	visit := func(e cast.Expr) {
		seedNode(info, e, fd, interner)
		switch n := e.(type) {
		case *cast.BinaryExpr, *cast.AssignExpr:
			binAssignNodes = append(binAssignNodes, e)
		case *cast.UnaryExpr:
			if n.Op == token.Amp {
				addrOfNodes = append(addrOfNodes, n)
			}
		}
	}

	switch info.ParseResult.Kind {
	case cast.ExpressionResult:
		walkExpr(info.ParseResult.Expr, visit)
	case cast.StatementResult:
		walkStmt(info.ParseResult.Stmt, visit)
	}

	propagateToStable(info.Env, binAssignNodes, addrOfNodes)
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

func seedNode(info *MacroInferInfo, e cast.Expr, fd *fields.Dict, interner *intern.Table) {
	switch n := e.(type) {
	case *cast.CastExpr:
		ty := parseTypeName(n.TypeName, interner)
		ty.Origin = FromCast
		info.Env.AddExprConstraint(n.Id, TypeConstraint{Type: ty})
	case *cast.PtrMemberExpr:
		seedPtrMember(info, n, fd, interner)
	case *cast.MemberExpr:
		seedMember(info, n, fd, interner)
	}
}

// seedPtrMember handles "p->f" (direct field access) and
// "((T*)SvANY(p))->f" (the SV body-cast idiom).
func seedPtrMember(info *MacroInferInfo, n *cast.PtrMemberExpr, fd *fields.Dict, interner *intern.Table) {
	if ph, ok := n.X.(*cast.ParamHoleExpr); ok {
		if structTag, ok := fd.LookupUnique(n.Field); ok {
			ty := TagPointerTo(BaseStructTag, structTag, FromFieldDict)
			info.Env.AddParamConstraint(ph.Param, TypeConstraint{Type: ty})
			info.Env.LinkExprToParam(ph.Id, ph.Param, "field-access-base")
		}
		if fieldTy, ok := fd.GetConsistentFieldType(n.Field); ok {
			info.Env.AddExprConstraint(n.Id, TypeConstraint{Type: FromFieldRef(fieldTy, FromFieldDict, interner)})
		}
		return
	}

	cst, ok := n.X.(*cast.CastExpr)
	if !ok {
		return
	}
	call, ok := cst.X.(*cast.CallExpr)
	if !ok {
		return
	}
	callee, ok := call.Callee.(*cast.IdentExpr)
	if !ok || interner.Lookup(callee.Name) != "SvANY" || len(call.Args) != 1 {
		return
	}
	bodyTagName, _, _ := splitTypeName(cst.TypeName)
	bodyTag := interner.Intern(bodyTagName)

	if family, ok := fd.FamilyForBody(bodyTag); ok {
		if ph, ok := call.Args[0].(*cast.ParamHoleExpr); ok {
			ty := TagPointerTo(BaseStructTag, family, FromCast)
			info.Env.AddParamConstraint(ph.Param, TypeConstraint{Type: ty})
			info.Env.LinkExprToParam(ph.Id, ph.Param, "svany-cast")
		}
	}
	if fieldTy, ok := fd.GetFieldType(bodyTag, n.Field); ok {
		info.Env.AddExprConstraint(n.Id, TypeConstraint{Type: FromFieldRef(fieldTy, FromFieldDict, interner)})
	} else if fieldTy, ok := fd.GetConsistentFieldType(n.Field); ok {
		info.Env.AddExprConstraint(n.Id, TypeConstraint{Type: FromFieldRef(fieldTy, FromFieldDict, interner)})
	}
}

// seedMember handles "p->sv_u.svu_X", the only case package fields
// registers a plain Member (not PtrMember) access for.
func seedMember(info *MacroInferInfo, n *cast.MemberExpr, fd *fields.Dict, interner *intern.Table) {
	inner, ok := n.X.(*cast.PtrMemberExpr)
	if !ok || interner.Lookup(inner.Field) != "sv_u" {
		return
	}
	if ph, ok := inner.X.(*cast.ParamHoleExpr); ok {
		// The sv_u union lives in the common SV head, so any p->sv_u.X
		// access means p is at least pointer-to-SV; narrow to the
		// specific family (AV/HV/...) when svu_X carries one.
		family, ok := fd.SvUFamilyFor(n.Field)
		if !ok {
			family = interner.Intern("SV")
		}
		ty := TagPointerTo(BaseStructTag, family, FromSvUUnion)
		info.Env.AddParamConstraint(ph.Param, TypeConstraint{Type: ty})
		info.Env.LinkExprToParam(ph.Id, ph.Param, "svu-union")
	}
	if fieldTy, ok := fd.SvUFieldType(n.Field); ok {
		info.Env.AddExprConstraint(n.Id, TypeConstraint{Type: FromFieldRef(fieldTy, FromSvUUnion, interner)})
	}
}

// propagateToStable repeatedly propagates constraints across
// assignment/binary operands and address-of expressions until no node
// gains a new constraint, bounded by the number of candidate nodes so it
// always terminates.
func propagateToStable(env *TypeEnv, nodes []cast.Expr, addrOfNodes []*cast.UnaryExpr) {
	for iter := 0; iter <= len(nodes)+len(addrOfNodes); iter++ {
		changed := false
		for _, n := range nodes {
			switch b := n.(type) {
			case *cast.BinaryExpr:
				if propagatePair(env, b.X, b.Y) {
					changed = true
				}
			case *cast.AssignExpr:
				if propagatePair(env, b.Lhs, b.Rhs) {
					changed = true
				}
			}
		}
		for _, u := range addrOfNodes {
			if propagateAddrOf(env, u) {
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

// propagateAddrOf seeds "&e"'s own ExprId as pointer-to-e's-type once e
// has a constraint: the address-of operator always adds one pointer
// level over its operand's type (spec.md §3 Unary{op, expr}).
func propagateAddrOf(env *TypeEnv, u *cast.UnaryExpr) bool {
	id := cast.ExprID(u)
	if len(env.ExprConstraints[id]) > 0 {
		return false
	}
	best, ok := bestConstraint(env.ExprConstraints[cast.ExprID(u.X)])
	if !ok {
		return false
	}
	env.AddExprConstraint(id, TypeConstraint{Type: pointerTo(best.Type, FromPropagation)})
	return true
}

func propagatePair(env *TypeEnv, a, b cast.Expr) bool {
	changed := false
	idA, idB := cast.ExprID(a), cast.ExprID(b)
	ca, cb := env.ExprConstraints[idA], env.ExprConstraints[idB]

	if len(ca) > 0 && len(cb) == 0 {
		if best, ok := bestConstraint(ca); ok {
			ty := best.Type
			ty.Origin = FromPropagation
			env.AddExprConstraint(idB, TypeConstraint{Type: ty})
			changed = true
		}
	}
	if len(cb) > 0 && len(ca) == 0 {
		if best, ok := bestConstraint(cb); ok {
			ty := best.Type
			ty.Origin = FromPropagation
			env.AddExprConstraint(idA, TypeConstraint{Type: ty})
			changed = true
		}
	}

	if ph, ok := a.(*cast.ParamHoleExpr); ok {
		if cs := env.ExprConstraints[idB]; len(cs) > 0 {
			if best, ok := bestConstraint(cs); ok {
				ty := best.Type
				ty.Origin = FromPropagation
				env.AddParamConstraint(ph.Param, TypeConstraint{Type: ty})
				env.LinkExprToParam(ph.Id, ph.Param, "propagation")
				changed = true
			}
		}
	}
	if ph, ok := b.(*cast.ParamHoleExpr); ok {
		if cs := env.ExprConstraints[idA]; len(cs) > 0 {
			if best, ok := bestConstraint(cs); ok {
				ty := best.Type
				ty.Origin = FromPropagation
				env.AddParamConstraint(ph.Param, TypeConstraint{Type: ty})
				env.LinkExprToParam(ph.Id, ph.Param, "propagation")
				changed = true
			}
		}
	}
	return changed
}

// splitTypeName splits a parser-produced type-name string (e.g. "XPVAV *"
// or "const char *") into its base name, pointer depth, and qualifiers.
func splitTypeName(raw string) (base string, ptrDepth int, quals Qualifiers) {
	var parts []string
	for _, f := range strings.Fields(raw) {
		switch f {
		case "*":
			ptrDepth++
		case "const":
			quals.Const = true
		case "volatile":
			quals.Volatile = true
		case "restrict":
			quals.Restrict = true
		default:
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, " "), ptrDepth, quals
}

func parseTypeName(raw string, interner *intern.Table) TypeRepr {
	base, ptrDepth, quals := splitTypeName(raw)
	t := TypeRepr{BaseKind: classifyBuiltinOrTag(base), BaseName: interner.Intern(base), Quals: quals}
	for i := 0; i < ptrDepth; i++ {
		t.Modifiers = append(t.Modifiers, Modifier{Kind: ModPointer})
	}
	return t
}
