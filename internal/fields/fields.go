// Package fields implements the struct-field dictionary used to seed type
// constraints from field-access expressions (spec.md §4.5): which struct
// tag(s) a field name belongs to, the type of a given (struct, field) pair,
// and the special-cased sv_u union that discriminates an SV's body layout
// by family (AV, HV, CV, ...).
package fields

import (
	"strings"

	"golang.org/x/exp/slices"

	"github.com/hkoba/libperl-macrogen-sub001/internal/intern"
)

// TypeRef is a lightweight named-type reference as recorded in the
// dictionary: a base type name plus a pointer depth. The richer TypeRepr
// used by the inference engine (package infer) is built from this plus an
// origin tag; the dictionary itself has no notion of inference origin.
type TypeRef struct {
	Base    string
	PtrDepth int
}

func (t TypeRef) String() string {
	s := t.Base
	for i := 0; i < t.PtrDepth; i++ {
		s += " *"
	}
	return s
}

// Dict is the field/struct dictionary. It is append-only during
// construction (spec.md §5) and read-only afterward.
type Dict struct {
	// fieldToStructs maps a field name to every struct tag that declares it.
	fieldToStructs map[intern.Str][]intern.Str
	// structField maps (struct, field) to its declared type.
	structField map[structFieldKey]TypeRef

	// svHead maps an SV-family tag (AV, HV, CV, ...) to the XPV-shaped body
	// struct tag reached through that family's SvANY pointer.
	svHead map[intern.Str]intern.Str
	// svHeadRev is the reverse of svHead, for resolving a cast target type
	// back to the family it belongs to.
	svHeadRev map[intern.Str]intern.Str

	// svuFieldType maps a sv_u union field (svu_pv, svu_iv, ...) to its type.
	svuFieldType map[intern.Str]TypeRef
	// svuFamilyFor maps a sv_u union field to the SV family it is valid in.
	svuFamilyFor map[intern.Str]intern.Str

	interner *intern.Table
}

type structFieldKey struct {
	Struct intern.Str
	Field  intern.Str
}

// New creates an empty dictionary.
func New(interner *intern.Table) *Dict {
	return &Dict{
		fieldToStructs: make(map[intern.Str][]intern.Str),
		structField:    make(map[structFieldKey]TypeRef),
		svHead:         make(map[intern.Str]intern.Str),
		svHeadRev:      make(map[intern.Str]intern.Str),
		svuFieldType:   make(map[intern.Str]TypeRef),
		svuFamilyFor:   make(map[intern.Str]intern.Str),
		interner:       interner,
	}
}

// RegisterField records that structTag declares field with type ty.
func (d *Dict) RegisterField(structTag, field intern.Str, ty TypeRef) {
	key := structFieldKey{Struct: structTag, Field: field}
	if _, exists := d.structField[key]; !exists {
		d.fieldToStructs[field] = append(d.fieldToStructs[field], structTag)
	}
	d.structField[key] = ty
}

// RegisterSvHead associates an SV-family tag (e.g. "AV") with the XPV-like
// body struct tag (e.g. "XPVAV") reached through SvANY for that family.
func (d *Dict) RegisterSvHead(family, bodyTypeTag intern.Str) {
	d.svHead[family] = bodyTypeTag
	d.svHeadRev[bodyTypeTag] = family
}

// RegisterSvUField records one field of the sv_u union: its type, and the
// SV family in which that field is semantically valid.
func (d *Dict) RegisterSvUField(field intern.Str, ty TypeRef, family intern.Str) {
	d.svuFieldType[field] = ty
	d.svuFamilyFor[field] = family
}

// LookupUnique returns the struct tag declaring field, if field is declared
// by exactly one struct across the whole dictionary.
func (d *Dict) LookupUnique(field intern.Str) (intern.Str, bool) {
	structs := d.fieldToStructs[field]
	if len(structs) != 1 {
		return 0, false
	}
	return structs[0], true
}

// GetConsistentFieldType returns field's type if every struct declaring it
// agrees on that type.
func (d *Dict) GetConsistentFieldType(field intern.Str) (TypeRef, bool) {
	structs := d.fieldToStructs[field]
	if len(structs) == 0 {
		return TypeRef{}, false
	}
	first, ok := d.structField[structFieldKey{Struct: structs[0], Field: field}]
	if !ok {
		return TypeRef{}, false
	}
	for _, s := range structs[1:] {
		ty, ok := d.structField[structFieldKey{Struct: s, Field: field}]
		if !ok || ty != first {
			return TypeRef{}, false
		}
	}
	return first, true
}

// GetFieldType returns the exact type of (structTag, field), if declared.
func (d *Dict) GetFieldType(structTag, field intern.Str) (TypeRef, bool) {
	ty, ok := d.structField[structFieldKey{Struct: structTag, Field: field}]
	return ty, ok
}

// FamilyForBody returns the SV family associated with bodyTypeTag through
// RegisterSvHead, e.g. "XPVAV" -> "AV".
func (d *Dict) FamilyForBody(bodyTypeTag intern.Str) (intern.Str, bool) {
	family, ok := d.svHeadRev[bodyTypeTag]
	return family, ok
}

// SvUFieldType returns the type of a sv_u union field, e.g. svu_rv.
func (d *Dict) SvUFieldType(field intern.Str) (TypeRef, bool) {
	ty, ok := d.svuFieldType[field]
	return ty, ok
}

// SvUFamilyFor returns the SV family in which a sv_u union field is valid,
// e.g. svu_array -> AV.
func (d *Dict) SvUFamilyFor(field intern.Str) (intern.Str, bool) {
	family, ok := d.svuFamilyFor[field]
	return family, ok
}

// StructsDeclaring returns every struct tag that declares field, sorted by
// name for deterministic iteration.
func (d *Dict) StructsDeclaring(field intern.Str) []intern.Str {
	structs := append([]intern.Str(nil), d.fieldToStructs[field]...)
	slices.SortFunc(structs, func(a, b intern.Str) int {
		return strings.Compare(d.interner.Lookup(a), d.interner.Lookup(b))
	})
	return structs
}

// RegisterStandardSvUnion seeds the fixed sv_u field tables described in
// spec.md §4.5: a field → type table and a field → SV-family table. This is
// the one sub-dictionary that is never derived from header parsing, since
// Perl's sv_u layout is an ABI constant rather than something that varies
// per build.
func (d *Dict) RegisterStandardSvUnion() {
	type svuField struct {
		name   string
		ty     TypeRef
		family string
	}
	fields := []svuField{
		{"svu_pv", TypeRef{Base: "char", PtrDepth: 1}, ""},
		{"svu_iv", TypeRef{Base: "IV"}, ""},
		{"svu_uv", TypeRef{Base: "UV"}, ""},
		{"svu_nv", TypeRef{Base: "NV"}, ""},
		{"svu_rv", TypeRef{Base: "SV", PtrDepth: 1}, ""},
		{"svu_array", TypeRef{Base: "AV", PtrDepth: 1}, "AV"},
		{"svu_hash", TypeRef{Base: "HV", PtrDepth: 1}, "HV"},
		{"svu_gp", TypeRef{Base: "GP", PtrDepth: 1}, "GV"},
		{"svu_cv", TypeRef{Base: "CV", PtrDepth: 1}, "CV"},
		{"svu_fp", TypeRef{Base: "PerlIO", PtrDepth: 1}, "IO"},
	}
	for _, f := range fields {
		field := d.interner.Intern(f.name)
		d.svuFieldType[field] = f.ty
		if f.family != "" {
			d.svuFamilyFor[field] = d.interner.Intern(f.family)
		}
	}
}
