package fields

import (
	"testing"

	"github.com/hkoba/libperl-macrogen-sub001/internal/intern"
)

func TestLookupUnique(t *testing.T) {
	in := intern.New()
	d := New(in)
	d.RegisterField(in.Intern("sv"), in.Intern("sv_flags"), TypeRef{Base: "U32"})

	tag, ok := d.LookupUnique(in.Intern("sv_flags"))
	if !ok || tag != in.Intern("sv") {
		t.Fatalf("expected unique struct 'sv', got %v ok=%v", tag, ok)
	}

	d.RegisterField(in.Intern("sv2"), in.Intern("sv_flags"), TypeRef{Base: "U32"})
	if _, ok := d.LookupUnique(in.Intern("sv_flags")); ok {
		t.Fatal("sv_flags should no longer be unique once a second struct declares it")
	}
}

func TestGetConsistentFieldType(t *testing.T) {
	in := intern.New()
	d := New(in)
	d.RegisterField(in.Intern("xpvav"), in.Intern("xav_max"), TypeRef{Base: "SSize_t"})
	d.RegisterField(in.Intern("xpvhv"), in.Intern("xav_max"), TypeRef{Base: "SSize_t"})

	ty, ok := d.GetConsistentFieldType(in.Intern("xav_max"))
	if !ok || ty.Base != "SSize_t" {
		t.Fatalf("expected consistent type SSize_t, got %+v ok=%v", ty, ok)
	}

	d.RegisterField(in.Intern("xpvcv"), in.Intern("xav_max"), TypeRef{Base: "IV"})
	if _, ok := d.GetConsistentFieldType(in.Intern("xav_max")); ok {
		t.Fatal("expected inconsistency once a struct disagrees on the type")
	}
}

func TestSvHeadAndUnion(t *testing.T) {
	in := intern.New()
	d := New(in)
	d.RegisterSvHead(in.Intern("AV"), in.Intern("XPVAV"))
	d.RegisterStandardSvUnion()

	family, ok := d.FamilyForBody(in.Intern("XPVAV"))
	if !ok || family != in.Intern("AV") {
		t.Fatalf("expected family AV for XPVAV, got %v ok=%v", family, ok)
	}

	ty, ok := d.SvUFieldType(in.Intern("svu_rv"))
	if !ok || ty.Base != "SV" || ty.PtrDepth != 1 {
		t.Fatalf("expected svu_rv to be SV*, got %+v ok=%v", ty, ok)
	}

	arrFamily, ok := d.SvUFamilyFor(in.Intern("svu_array"))
	if !ok || arrFamily != in.Intern("AV") {
		t.Fatalf("expected svu_array family AV, got %v ok=%v", arrFamily, ok)
	}
	_, ok = d.SvUFamilyFor(in.Intern("svu_rv"))
	if ok {
		t.Fatal("svu_rv has no fixed family (polymorphic reference target)")
	}
}
