package infer

import (
	"github.com/hkoba/libperl-macrogen-sub001/internal/apidoc"
	"github.com/hkoba/libperl-macrogen-sub001/internal/avail"
	"github.com/hkoba/libperl-macrogen-sub001/internal/cast"
	"github.com/hkoba/libperl-macrogen-sub001/internal/cpp"
	"github.com/hkoba/libperl-macrogen-sub001/internal/expand"
	"github.com/hkoba/libperl-macrogen-sub001/internal/fields"
	"github.com/hkoba/libperl-macrogen-sub001/internal/fingerprint"
	"github.com/hkoba/libperl-macrogen-sub001/internal/intern"
	"github.com/hkoba/libperl-macrogen-sub001/internal/token"
)

// thxSymbolNames are the context symbols whose presence in a macro's
// expansion marks it THX-dependent (spec.md §4.7 step 5).
var thxSymbolNames = map[string]bool{"aTHX": true, "tTHX": true, "my_perl": true}

// Engine drives the per-macro inference steps (spec.md §4.7) and the two
// closing fix-point passes over the whole macro set.
type Engine struct {
	interner *intern.Table
	fields   *fields.Dict
	apidoc   *apidoc.Table
	avail    *avail.Set
	strings  *typeStringCache

	infos map[intern.Str]*MacroInferInfo
	order []intern.Str
}

// NewEngine creates an Engine. apidocTable and availSet may be nil, in
// which case apidoc constraints and availability classification are
// skipped (a run with no api-doc/bindings input still infers from shapes
// and THX reachability alone).
func NewEngine(interner *intern.Table, fd *fields.Dict, apidocTable *apidoc.Table, availSet *avail.Set) *Engine {
	return &Engine{
		interner: interner,
		fields:   fd,
		apidoc:   apidocTable,
		avail:    availSet,
		strings:  newTypeStringCache(interner),
		infos:    make(map[intern.Str]*MacroInferInfo),
	}
}

// ProcessMacro runs steps 1-6 of spec.md §4.7 for one target macro and
// records its MacroInferInfo. expander is used to expand def's body with
// def itself blue-painted.
func (en *Engine) ProcessMacro(def *cpp.MacroDef, expander *expand.Expander) *MacroInferInfo {
	info := newInfo(def, en.interner)
	en.register(info)

	if !info.HasBody {
		return info
	}
	if info.HasTokenPasting {
		info.ParseResult = cast.ParseResult{Kind: cast.Unparseable, Reason: "macro body contains token pasting"}
		return info
	}

	expanded, used := expander.Expand(def.Body, def.Name)
	delete(used, def.Name) // uses := expanded_set \ {self}
	info.Uses = used
	info.Fingerprint = fingerprint.OfTokens(expanded)

	info.ParseResult = cast.Parse(expanded, def.Params, en.interner)

	SeedConstraints(info, en.fields, en.interner)
	en.applyApiDoc(info)
	en.classifyThx(info, expanded)
	en.classifyAvailability(info)

	return info
}

func (en *Engine) register(info *MacroInferInfo) {
	if _, seen := en.infos[info.Name]; !seen {
		en.order = append(en.order, info.Name)
	}
	en.infos[info.Name] = info
}

// applyApiDoc implements spec.md §4.7 step 4.
func (en *Engine) applyApiDoc(info *MacroInferInfo) {
	if en.apidoc == nil {
		return
	}
	entry, ok := en.apidoc.Lookup(info.Name)
	if !ok {
		return
	}
	for _, p := range entry.Params {
		ty := en.strings.parse(p.TypeString, FromApiDoc)
		info.Env.AddParamConstraint(p.Name, TypeConstraint{Type: ty})
	}
	if entry.ReturnType != "" {
		ty := en.strings.parse(entry.ReturnType, FromApiDoc)
		info.Env.AddReturnConstraint(TypeConstraint{Type: ty})
	}
}

// classifyThx implements spec.md §4.7 step 5's local (pre-fixpoint) check:
// a THX symbol appears literally in the expansion, or one was touched
// during expansion (including an object macro that vanished, e.g.
// PL_Sv -> vTHX -> aTHX).
func (en *Engine) classifyThx(info *MacroInferInfo, expanded []token.Token) {
	for _, t := range expanded {
		if t.Kind == token.Ident && thxSymbolNames[t.Text] {
			info.IsThxDependent = true
			return
		}
	}
	for name := range info.Uses {
		if thxSymbolNames[en.interner.Lookup(name)] {
			info.IsThxDependent = true
			return
		}
	}
}

// classifyAvailability implements the per-macro half of spec.md §4.8: scan
// the parse result's Call nodes and mark every callee that is not
// available as an unavailable callee of info.
func (en *Engine) classifyAvailability(info *MacroInferInfo) {
	if en.avail == nil {
		return
	}
	for _, callee := range avail.CollectCallees(info.ParseResult) {
		if !en.avail.Available(callee) {
			info.markUnavailable(callee)
		}
	}
}

// Finalize builds the used_by adjacency and runs the two closing
// fix-point passes (spec.md §4.7, last paragraph).
func (en *Engine) Finalize() {
	en.buildUsedBy()
	en.propagateThx()
	en.propagateAvailability()
}

func (en *Engine) buildUsedBy() {
	for _, name := range en.order {
		m := en.infos[name]
		for used := range m.Uses {
			if callee, ok := en.infos[used]; ok {
				callee.UsedBy[name] = true
			}
		}
	}
}

// propagateThx is the THX fix-point: if m uses any THX-dependent macro, m
// becomes THX-dependent too. Monotone, so it terminates in at most
// len(order) passes.
func (en *Engine) propagateThx() {
	for pass := 0; pass <= len(en.order); pass++ {
		changed := false
		for _, name := range en.order {
			m := en.infos[name]
			if m.IsThxDependent {
				continue
			}
			for used := range m.Uses {
				if callee, ok := en.infos[used]; ok && callee.IsThxDependent {
					m.IsThxDependent = true
					changed = true
					break
				}
			}
		}
		if !changed {
			return
		}
	}
}

// propagateAvailability is the availability fix-point: if m uses a macro
// that calls_unavailable, m inherits that flag along with the offending
// callee names, extending reachability through used_by (spec.md §4.7
// closing bullets, property P4).
func (en *Engine) propagateAvailability() {
	for pass := 0; pass <= len(en.order); pass++ {
		changed := false
		for _, name := range en.order {
			m := en.infos[name]
			for used := range m.Uses {
				callee, ok := en.infos[used]
				if !ok || !callee.CallsUnavailable {
					continue
				}
				wasUnavailable := m.CallsUnavailable
				before := len(m.UnavailableCallees)
				for _, c := range callee.UnavailableCallees {
					m.markUnavailable(c)
				}
				if !wasUnavailable || len(m.UnavailableCallees) != before {
					changed = true
				}
			}
		}
		if !changed {
			return
		}
	}
}

// Infos returns every processed macro's info, in first-registration order.
func (en *Engine) Infos() []*MacroInferInfo {
	out := make([]*MacroInferInfo, 0, len(en.order))
	for _, name := range en.order {
		out = append(out, en.infos[name])
	}
	return out
}

// Lookup returns the info for name, if it was processed.
func (en *Engine) Lookup(name intern.Str) (*MacroInferInfo, bool) {
	m, ok := en.infos[name]
	return m, ok
}

// DuplicateBodies groups processed macros whose expanded bodies are
// byte-identical (info.Fingerprint), keyed by that fingerprint, omitting
// singleton groups. This is a diagnostic note for the caller, not a
// behavioral change: each name in a group is still inferred and emitted
// independently.
func (en *Engine) DuplicateBodies() map[fingerprint.Tag][]string {
	groups := make(map[fingerprint.Tag][]string)
	for _, name := range en.order {
		info := en.infos[name]
		if !info.HasBody || info.HasTokenPasting {
			continue
		}
		groups[info.Fingerprint] = append(groups[info.Fingerprint], en.interner.Lookup(name))
	}
	for tag, names := range groups {
		if len(names) < 2 {
			delete(groups, tag)
		}
	}
	return groups
}
