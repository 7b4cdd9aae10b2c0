package emit_test

import (
	"bytes"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/hkoba/libperl-macrogen-sub001/internal/avail"
	"github.com/hkoba/libperl-macrogen-sub001/internal/bindings"
	"github.com/hkoba/libperl-macrogen-sub001/internal/cpp"
	"github.com/hkoba/libperl-macrogen-sub001/internal/diag"
	"github.com/hkoba/libperl-macrogen-sub001/internal/emit"
	"github.com/hkoba/libperl-macrogen-sub001/internal/expand"
	"github.com/hkoba/libperl-macrogen-sub001/internal/fields"
	"github.com/hkoba/libperl-macrogen-sub001/internal/infer"
	"github.com/hkoba/libperl-macrogen-sub001/internal/intern"
)

// run builds the full pipeline (minus apidoc) over src and returns the
// rendered text output, mirroring how cmd/macrogen wires these packages
// together.
func run(t *testing.T, src string) string {
	t.Helper()
	in := intern.New()
	fd := fields.New(in)
	fd.RegisterStandardSvUnion()
	fd.RegisterField(in.Intern("SV"), in.Intern("sv_flags"), fields.TypeRef{Base: "U32"})

	fsys := fstest.MapFS{"perl.h": &fstest.MapFile{Data: []byte(src)}}
	diags := diag.NewList(50)
	pp := cpp.New(fsys, in, diags)
	func() {
		defer diags.CatchAbort()
		if err := pp.ProcessTarget("perl.h"); err != nil {
			diags.Add(err)
		}
	}()
	if diags.HasError() {
		t.Fatalf("preprocessing failed: %v", diags.Errors())
	}

	bound, err := bindings.Parse(strings.NewReader(""), in)
	if err != nil {
		t.Fatalf("bindings.Parse: %v", err)
	}
	availSet := avail.New(bound, pp.InlineFunctions(), nil)

	engine := infer.NewEngine(in, fd, nil, availSet)
	expander := expand.New(pp.Lookup, in)
	for _, def := range pp.Macros() {
		engine.ProcessMacro(def, expander)
	}
	engine.Finalize()

	var buf bytes.Buffer
	e := emit.NewTextEmitter(emit.Config{})
	if err := e.Emit(&buf, in, engine.Infos()); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	return buf.String()
}

func TestEmitDirectFieldAccess(t *testing.T) {
	out := run(t, "#define SvFLAGS(sv) ((sv)->sv_flags)\n")
	if !strings.Contains(out, "func SvFLAGS(sv SV *) U32 {") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestEmitUnavailableCalleeSuppressesBody(t *testing.T) {
	out := run(t, "#define MEM_WRAP_CHECK(n,t) (Perl_croak_memory_wrap())\n")
	if !strings.Contains(out, "unavailable") {
		t.Errorf("expected an unavailable marker, got:\n%s", out)
	}
	if !strings.Contains(out, "TODO(macrogen): unavailable callees: Perl_croak_memory_wrap") {
		t.Errorf("expected the unavailable-callees TODO, got:\n%s", out)
	}
	if strings.Contains(out, "unimplemented()") {
		t.Errorf("body should be suppressed for a calls_unavailable macro, got:\n%s", out)
	}
}

func TestEmitTokenPastingSkipped(t *testing.T) {
	src := "#define BHKf_foo 1\n" +
		"#define BhkFLAGS(hk) ((hk)->flags)\n" +
		"#define BhkENTRY(hk, which) ((BhkFLAGS(hk) & BHKf_ ## which) ? ((hk)->which) : NULL)\n"
	out := run(t, src)
	if strings.Contains(out, "BhkENTRY") {
		t.Errorf("unparseable macro should be skipped entirely, got:\n%s", out)
	}
}

func TestEmitThxDependentPrependsContextParam(t *testing.T) {
	src := "#define vTHX aTHX\n" +
		"#define PL_Sv (vTHX->ISv)\n" +
		"#define SvENDx(sv) ((PL_Sv = (sv)), SvEND(PL_Sv))\n"
	out := run(t, src)
	if !strings.Contains(out, "func SvENDx(ctx *Interp, sv") {
		t.Errorf("expected a prepended context parameter, got:\n%s", out)
	}
}

func TestEmitOrderedLexically(t *testing.T) {
	src := "#define Zeta(x) ((x)->f)\n#define Alpha(x) ((x)->f)\n"
	out := run(t, src)
	a := strings.Index(out, "Alpha")
	z := strings.Index(out, "Zeta")
	if a < 0 || z < 0 || a > z {
		t.Errorf("expected Alpha before Zeta, got:\n%s", out)
	}
}

func TestEmitGotoRendersPlaceholder(t *testing.T) {
	src := "#define FOO(x) STMT_START { if (x) goto out; out: x = 0; } STMT_END\n"
	out := run(t, src)
	if !strings.Contains(out, "// unsupported: goto") {
		t.Errorf("expected a goto placeholder comment, got:\n%s", out)
	}
	if strings.Contains(out, "unimplemented()") {
		t.Errorf("a statement containing goto should not get the generic unimplemented body, got:\n%s", out)
	}
}

func TestEmitIdentOverrideRenames(t *testing.T) {
	out := func() string {
		in := intern.New()
		fd := fields.New(in)
		fsys := fstest.MapFS{"perl.h": &fstest.MapFile{Data: []byte("#define SvFLAGS(sv) ((sv)->sv_flags)\n")}}
		diags := diag.NewList(50)
		pp := cpp.New(fsys, in, diags)
		func() {
			defer diags.CatchAbort()
			pp.ProcessTarget("perl.h")
		}()
		bound, _ := bindings.Parse(strings.NewReader(""), in)
		availSet := avail.New(bound, pp.InlineFunctions(), nil)
		engine := infer.NewEngine(in, fd, nil, availSet)
		expander := expand.New(pp.Lookup, in)
		for _, def := range pp.Macros() {
			engine.ProcessMacro(def, expander)
		}
		engine.Finalize()
		var buf bytes.Buffer
		e := emit.NewTextEmitter(emit.Config{Overrides: []emit.IdentOverride{{Name: "SvFLAGS", Rename: "SvFlags"}}})
		e.Emit(&buf, in, engine.Infos())
		return buf.String()
	}()
	if !strings.Contains(out, "func SvFlags(") {
		t.Errorf("expected renamed identifier in output, got:\n%s", out)
	}
}
