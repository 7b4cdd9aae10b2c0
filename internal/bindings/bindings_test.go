package bindings

import (
	"strings"
	"testing"

	"github.com/hkoba/libperl-macrogen-sub001/internal/intern"
)

func TestParse(t *testing.T) {
	in := intern.New()
	src := "// generated bindings\n" +
		"fn SvREFCNT_dec(sv: *mut SV);\n" +
		"fn newSVpv(s: *const c_char, len: STRLEN) -> *mut SV;\n" +
		"type SV = c_void;\n"
	set, err := Parse(strings.NewReader(src), in)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"SvREFCNT_dec", "newSVpv"} {
		if !set.Available(in.Intern(name)) {
			t.Errorf("expected %s to be available", name)
		}
	}
	if set.Available(in.Intern("SV")) {
		t.Error("SV is a type, not a function; should not be available")
	}
}
