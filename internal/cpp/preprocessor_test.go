package cpp

import (
	"testing"
	"testing/fstest"

	"github.com/hkoba/libperl-macrogen-sub001/internal/diag"
	"github.com/hkoba/libperl-macrogen-sub001/internal/intern"
)

func run(t *testing.T, files map[string]string, target string) (*Preprocessor, *diag.List) {
	t.Helper()
	fsys := make(fstest.MapFS, len(files))
	for name, content := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(content)}
	}
	interner := intern.New()
	diags := diag.NewList(50)
	p := New(fsys, interner, diags)
	p.SetIncludePath([]string{"include"})
	func() {
		defer diags.CatchAbort()
		if err := p.ProcessTarget(target); err != nil {
			diags.Add(err)
		}
	}()
	return p, diags
}

func TestDefineObjectAndFunction(t *testing.T) {
	p, diags := run(t, map[string]string{
		"perl.h": "#define TRUE 1\n#define ADD(a, b) ((a) + (b))\n",
	}, "perl.h")
	if diags.HasError() {
		t.Fatalf("unexpected errors: %v", diags.Errors())
	}
	interner := p.interner

	truth, ok := p.Lookup(interner.Intern("TRUE"))
	if !ok || truth.Kind != Object || len(truth.Body) != 1 || truth.Body[0].Text != "1" {
		t.Fatalf("TRUE not registered correctly: %+v", truth)
	}

	add, ok := p.Lookup(interner.Intern("ADD"))
	if !ok || add.Kind != Function {
		t.Fatalf("ADD not registered as function-like: %+v", add)
	}
	if len(add.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(add.Params))
	}
}

func TestTokenPastingFlag(t *testing.T) {
	p, diags := run(t, map[string]string{
		"perl.h": "#define CAT(a, b) a ## b\n#define PLAIN(a) (a)\n",
	}, "perl.h")
	if diags.HasError() {
		t.Fatalf("unexpected errors: %v", diags.Errors())
	}
	cat, _ := p.Lookup(p.interner.Intern("CAT"))
	if !cat.HasTokenPasting {
		t.Error("CAT should have HasTokenPasting = true")
	}
	plain, _ := p.Lookup(p.interner.Intern("PLAIN"))
	if plain.HasTokenPasting {
		t.Error("PLAIN should have HasTokenPasting = false")
	}
}

func TestLeadingComments(t *testing.T) {
	p, diags := run(t, map[string]string{
		"perl.h": "// does a thing\n// returns an int\n#define DOES_A_THING(x) (x)\n\n// unrelated, separated by blank line\n\n#define OTHER(x) (x)\n",
	}, "perl.h")
	if diags.HasError() {
		t.Fatalf("unexpected errors: %v", diags.Errors())
	}
	m, _ := p.Lookup(p.interner.Intern("DOES_A_THING"))
	want := []string{"does a thing", "returns an int"}
	if len(m.LeadingComments) != 2 || m.LeadingComments[0] != want[0] || m.LeadingComments[1] != want[1] {
		t.Errorf("got leading comments %v, want %v", m.LeadingComments, want)
	}
	other, _ := p.Lookup(p.interner.Intern("OTHER"))
	if len(other.LeadingComments) != 0 {
		t.Errorf("OTHER should have no leading comments after blank-line break, got %v", other.LeadingComments)
	}
}

func TestConditionalInclusion(t *testing.T) {
	p, diags := run(t, map[string]string{
		"perl.h": "#define PERL_CORE 1\n" +
			"#if defined(PERL_CORE)\n" +
			"#define CORE_ONLY 1\n" +
			"#else\n" +
			"#define NOT_CORE 1\n" +
			"#endif\n" +
			"#if !defined(PERL_CORE)\n" +
			"#define SHOULD_NOT_EXIST 1\n" +
			"#elif 1\n" +
			"#define ELIF_TAKEN 1\n" +
			"#endif\n",
	}, "perl.h")
	if diags.HasError() {
		t.Fatalf("unexpected errors: %v", diags.Errors())
	}
	mustExist := []string{"PERL_CORE", "CORE_ONLY", "ELIF_TAKEN"}
	for _, name := range mustExist {
		if _, ok := p.Lookup(p.interner.Intern(name)); !ok {
			t.Errorf("%s should be defined", name)
		}
	}
	mustNotExist := []string{"NOT_CORE", "SHOULD_NOT_EXIST"}
	for _, name := range mustNotExist {
		if _, ok := p.Lookup(p.interner.Intern(name)); ok {
			t.Errorf("%s should not be defined", name)
		}
	}
}

func TestIncludeResolutionAndTargetFlag(t *testing.T) {
	p, diags := run(t, map[string]string{
		"perl.h":         "#include \"perliol.h\"\n#include <stdio.h>\n",
		"perliol.h":      "#define PERLIO_LAYERS 1\n",
		"include/stdio.h": "#define EOF (-1)\n",
	}, "perl.h")
	if diags.HasError() {
		t.Fatalf("unexpected errors: %v", diags.Errors())
	}
	quoted, ok := p.Lookup(p.interner.Intern("PERLIO_LAYERS"))
	if !ok || !quoted.IsTarget {
		t.Errorf("PERLIO_LAYERS (quoted include) should be IsTarget, got %+v", quoted)
	}
	system, ok := p.Lookup(p.interner.Intern("EOF"))
	if !ok || system.IsTarget {
		t.Errorf("EOF (angle-bracket include) should not be IsTarget, got %+v", system)
	}
}

func TestUndef(t *testing.T) {
	p, diags := run(t, map[string]string{
		"perl.h": "#define FOO 1\n#undef FOO\n",
	}, "perl.h")
	if diags.HasError() {
		t.Fatalf("unexpected errors: %v", diags.Errors())
	}
	if _, ok := p.Lookup(p.interner.Intern("FOO")); ok {
		t.Error("FOO should be undefined after #undef")
	}
}

func TestPragmaOnce(t *testing.T) {
	p, diags := run(t, map[string]string{
		"perl.h":   "#include \"common.h\"\n#include \"common.h\"\n",
		"common.h": "#pragma once\n#define COMMON 1\n",
	}, "perl.h")
	if diags.HasError() {
		t.Fatalf("unexpected errors: %v", diags.Errors())
	}
	if _, ok := p.Lookup(p.interner.Intern("COMMON")); !ok {
		t.Error("COMMON should be defined")
	}
}

func TestErrorDirectiveFatal(t *testing.T) {
	_, diags := run(t, map[string]string{
		"perl.h": "#error unsupported platform\n",
	}, "perl.h")
	if !diags.HasError() {
		t.Error("#error should record a fatal diagnostic")
	}
}

func TestUnterminatedIfIsFatal(t *testing.T) {
	_, diags := run(t, map[string]string{
		"perl.h": "#if defined(PERL_CORE)\n#define FOO 1\n",
	}, "perl.h")
	if !diags.HasError() {
		t.Fatal("an unterminated #if should record a fatal diagnostic")
	}
}

func TestInlineFunctionsCollected(t *testing.T) {
	p, diags := run(t, map[string]string{
		"perl.h": "PERL_STATIC_INLINE SV *\nPerl_sv_2mortal(pTHX_ SV *sv)\n{\n    return sv;\n}\n" +
			"static inline void helper_func(int x) { }\n",
	}, "perl.h")
	if diags.HasError() {
		t.Fatalf("unexpected errors: %v", diags.Errors())
	}
	inline := p.InlineFunctions()
	for _, name := range []string{"Perl_sv_2mortal", "helper_func"} {
		if !inline[p.interner.Intern(name)] {
			t.Errorf("expected %s to be collected as an inline function", name)
		}
	}
}
