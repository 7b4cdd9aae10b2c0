package cast

import (
	"testing"

	"github.com/hkoba/libperl-macrogen-sub001/internal/intern"
	"github.com/hkoba/libperl-macrogen-sub001/internal/lexer"
	"github.com/hkoba/libperl-macrogen-sub001/internal/token"
)

func parseSrc(t *testing.T, src string, params []string, interner *intern.Table) ParseResult {
	t.Helper()
	var toks []token.Token
	for tok := range lexer.Run("test", []byte(src)) {
		if tok.Kind == token.EOF {
			break
		}
		toks = append(toks, tok)
	}
	var ids []intern.Str
	for _, p := range params {
		ids = append(ids, interner.Intern(p))
	}
	return Parse(toks, ids, interner)
}

func TestParseDirectFieldAccess(t *testing.T) {
	interner := intern.New()
	r := parseSrc(t, "((sv)->sv_flags)", []string{"sv"}, interner)
	if r.Kind != ExpressionResult {
		t.Fatalf("expected expression, got kind=%v reason=%q", r.Kind, r.Reason)
	}
	pm, ok := r.Expr.(*PtrMemberExpr)
	if !ok {
		t.Fatalf("expected PtrMemberExpr, got %T", r.Expr)
	}
	if _, ok := pm.X.(*ParamHoleExpr); !ok {
		t.Errorf("expected base to be ParamHoleExpr, got %T", pm.X)
	}
	if interner.Lookup(pm.Field) != "sv_flags" {
		t.Errorf("expected field sv_flags, got %s", interner.Lookup(pm.Field))
	}
}

func TestParseSvANYCast(t *testing.T) {
	interner := intern.New()
	r := parseSrc(t, "(((XPVAV*)SvANY(av))->xav_max)", []string{"av"}, interner)
	if r.Kind != ExpressionResult {
		t.Fatalf("expected expression, got kind=%v reason=%q", r.Kind, r.Reason)
	}
	pm, ok := r.Expr.(*PtrMemberExpr)
	if !ok {
		t.Fatalf("expected PtrMemberExpr, got %T", r.Expr)
	}
	cast, ok := pm.X.(*CastExpr)
	if !ok {
		t.Fatalf("expected CastExpr, got %T", pm.X)
	}
	if cast.TypeName != "XPVAV *" {
		t.Errorf("expected type name 'XPVAV *', got %q", cast.TypeName)
	}
	call, ok := cast.X.(*CallExpr)
	if !ok {
		t.Fatalf("expected CallExpr inside cast, got %T", cast.X)
	}
	callee, ok := call.Callee.(*IdentExpr)
	if !ok || interner.Lookup(callee.Name) != "SvANY" {
		t.Errorf("expected callee SvANY, got %+v", call.Callee)
	}
}

func TestParseUnionField(t *testing.T) {
	interner := intern.New()
	r := parseSrc(t, "((sv)->sv_u.svu_rv)", []string{"sv"}, interner)
	if r.Kind != ExpressionResult {
		t.Fatalf("expected expression, got kind=%v reason=%q", r.Kind, r.Reason)
	}
	outer, ok := r.Expr.(*MemberExpr)
	if !ok {
		t.Fatalf("expected outer MemberExpr, got %T", r.Expr)
	}
	if interner.Lookup(outer.Field) != "svu_rv" {
		t.Errorf("expected field svu_rv, got %s", interner.Lookup(outer.Field))
	}
	inner, ok := outer.X.(*PtrMemberExpr)
	if !ok || interner.Lookup(inner.Field) != "sv_u" {
		t.Fatalf("expected inner PtrMemberExpr to sv_u, got %+v", outer.X)
	}
}

func TestParseStmtStartWrapper(t *testing.T) {
	interner := intern.New()
	r := parseSrc(t, "STMT_START { (PL_Sv = (sv)); SvEND(PL_Sv); } STMT_END", []string{"sv"}, interner)
	if r.Kind != StatementResult {
		t.Fatalf("expected statement, got kind=%v reason=%q", r.Kind, r.Reason)
	}
	compound, ok := r.Stmt.(*CompoundStmt)
	if !ok {
		t.Fatalf("expected CompoundStmt, got %T", r.Stmt)
	}
	if len(compound.Items) != 2 {
		t.Fatalf("expected 2 statements in compound, got %d", len(compound.Items))
	}
}

func TestParseDoWhileZeroCollapsesToCompound(t *testing.T) {
	interner := intern.New()
	r := parseSrc(t, "do { foo(); bar(); } while (0)", nil, interner)
	if r.Kind != StatementResult {
		t.Fatalf("expected statement, got kind=%v reason=%q", r.Kind, r.Reason)
	}
	if _, ok := r.Stmt.(*CompoundStmt); !ok {
		t.Fatalf("expected do-while(0) to collapse to CompoundStmt, got %T", r.Stmt)
	}
}

func TestParseUnparseable(t *testing.T) {
	interner := intern.New()
	r := parseSrc(t, ") ( malformed", nil, interner)
	if r.Kind != Unparseable {
		t.Fatalf("expected Unparseable, got %v", r.Kind)
	}
}

func TestParseParenthesizedCall(t *testing.T) {
	interner := intern.New()
	r := parseSrc(t, "(Perl_croak_memory_wrap())", nil, interner)
	if r.Kind != ExpressionResult {
		t.Fatalf("expected expression, got kind=%v reason=%q", r.Kind, r.Reason)
	}
	call, ok := r.Expr.(*CallExpr)
	if !ok {
		t.Fatalf("expected CallExpr, got %T", r.Expr)
	}
	callee, ok := call.Callee.(*IdentExpr)
	if !ok || interner.Lookup(callee.Name) != "Perl_croak_memory_wrap" {
		t.Errorf("expected callee Perl_croak_memory_wrap, got %+v", call.Callee)
	}
}
