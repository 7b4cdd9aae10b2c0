// Package infer implements the constraint-based macro type-inference
// engine (spec.md §4.7): for each target macro it builds a MacroInferInfo
// carrying the macro's parse result, a TypeEnv of ranked type constraints,
// its uses/used_by adjacency, and THX/availability classification.
package infer

import (
	"strings"

	"github.com/hkoba/libperl-macrogen-sub001/internal/fields"
	"github.com/hkoba/libperl-macrogen-sub001/internal/intern"
)

// Origin ranks where a type constraint came from. Retrieval (§4.7.1) uses
// this ranking to arbitrate between competing constraints on the same
// expression or parameter.
type Origin int

const (
	FromDeclaration Origin = iota
	FromCast
	FromFieldDict
	FromSvUUnion
	FromApiDoc
	FromPropagation
)

func (o Origin) String() string {
	switch o {
	case FromDeclaration:
		return "declaration"
	case FromCast:
		return "cast"
	case FromFieldDict:
		return "field-dict"
	case FromSvUUnion:
		return "sv-union"
	case FromApiDoc:
		return "api-doc"
	case FromPropagation:
		return "propagation"
	default:
		return "unknown-origin"
	}
}

// priorityRank orders origins for retrieval tie-breaking, lowest wins.
// FromApiDoc is handled as its own first-class tier directly by the
// retrieval functions, so it is deliberately not part of this ranking.
func priorityRank(o Origin) int {
	switch o {
	case FromCast:
		return 0
	case FromFieldDict:
		return 1
	case FromSvUUnion:
		return 2
	case FromPropagation:
		return 3
	default:
		return 99
	}
}

// BaseKind distinguishes the shape of a TypeRepr's base type.
type BaseKind int

const (
	BaseBuiltin BaseKind = iota
	BaseTypedef
	BaseStructTag
	BaseUnionTag
	BaseEnumTag
	BaseUnknown
	// BaseUnit marks a statement macro's return type: it has no value, as
	// opposed to BaseUnknown's "we couldn't tell".
	BaseUnit
)

// ModifierKind is one entry in a TypeRepr's ordered derived-modifier list.
type ModifierKind int

const (
	ModPointer ModifierKind = iota
	ModArray
)

// Modifier is one derived-type step, applied in list order starting from
// the base type (index 0 is closest to the base).
type Modifier struct {
	Kind        ModifierKind
	ArrayLen    int
	HasArrayLen bool
}

// Qualifiers are the cv-qualifiers attached to a TypeRepr's base type.
type Qualifiers struct {
	Const    bool
	Volatile bool
	Restrict bool
}

// TypeRepr is a language-neutral description of a C type (spec.md §3).
type TypeRepr struct {
	BaseKind  BaseKind
	BaseName  intern.Str
	Modifiers []Modifier
	Quals     Qualifiers
	Origin    Origin
}

// IsUnknown reports whether t is the zero-value placeholder rather than a
// real inferred type.
func (t TypeRepr) IsUnknown() bool {
	return t.BaseKind == BaseUnknown
}

// PointerDepth returns how many leading pointer modifiers t has.
func (t TypeRepr) PointerDepth() int {
	n := 0
	for _, m := range t.Modifiers {
		if m.Kind == ModPointer {
			n++
			continue
		}
		break
	}
	return n
}

// String renders t for diagnostics and for the default text emitter.
func (t TypeRepr) String(interner *intern.Table) string {
	if t.IsUnknown() {
		return "unknown"
	}
	if t.BaseKind == BaseUnit {
		return "void"
	}
	var b strings.Builder
	if t.Quals.Const {
		b.WriteString("const ")
	}
	if t.Quals.Volatile {
		b.WriteString("volatile ")
	}
	b.WriteString(interner.Lookup(t.BaseName))
	for _, m := range t.Modifiers {
		switch m.Kind {
		case ModPointer:
			b.WriteString(" *")
		case ModArray:
			if m.HasArrayLen {
				b.WriteString("[")
				b.WriteString(itoa(m.ArrayLen))
				b.WriteString("]")
			} else {
				b.WriteString("[]")
			}
		}
	}
	return b.String()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

// Unknown is the zero-value TypeRepr, used whenever no constraint applies.
var Unknown = TypeRepr{BaseKind: BaseUnknown}

// Unit is the return type of a statement macro or an unparseable one: it
// produces no value for the emitter to bind (spec.md §4.7.1 return_type
// step (c)).
var Unit = TypeRepr{BaseKind: BaseUnit}

// pointerTo returns a copy of base with one more pointer modifier prepended
// to the front (closest to the base type).
func pointerTo(base TypeRepr, origin Origin) TypeRepr {
	mods := make([]Modifier, 0, len(base.Modifiers)+1)
	mods = append(mods, Modifier{Kind: ModPointer})
	mods = append(mods, base.Modifiers...)
	base.Modifiers = mods
	base.Origin = origin
	return base
}

// FromFieldRef converts a fields.TypeRef (a plain base-name + pointer-depth
// pair, as produced by the field dictionary) into a TypeRepr tagged with
// origin.
func FromFieldRef(ref fields.TypeRef, origin Origin, interner *intern.Table) TypeRepr {
	t := TypeRepr{BaseKind: classifyBuiltinOrTag(ref.Base), BaseName: interner.Intern(ref.Base), Origin: origin}
	for i := 0; i < ref.PtrDepth; i++ {
		t.Modifiers = append(t.Modifiers, Modifier{Kind: ModPointer})
	}
	return t
}

// TagPointerTo builds "pointer to struct/typedef named tag", tagged origin
// — the shape produced by FieldsDict lookups for a macro parameter.
func TagPointerTo(kind BaseKind, tag intern.Str, origin Origin) TypeRepr {
	return TypeRepr{BaseKind: BaseStructTag, BaseName: tag, Modifiers: []Modifier{{Kind: ModPointer}}, Origin: origin}
	// Perl's SV-family tags (SV, AV, HV, ...) are conventionally used bare as
	// "pointer to AV" rather than "pointer to struct av", so kind is accepted
	// for call-site clarity but the dictionary always stores them as tags.
}

var builtinNames = map[string]bool{
	"void": true, "char": true, "int": true, "long": true, "short": true,
	"unsigned": true, "signed": true, "float": true, "double": true, "_Bool": true,
	"IV": true, "UV": true, "NV": true, "STRLEN": true, "SSize_t": true, "Size_t": true,
	"U32": true, "I32": true, "U16": true, "I16": true, "U8": true, "I8": true, "bool": true,
}

func classifyBuiltinOrTag(name string) BaseKind {
	if builtinNames[name] {
		return BaseBuiltin
	}
	return BaseStructTag
}
