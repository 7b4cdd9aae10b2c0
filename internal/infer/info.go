package infer

import (
	"github.com/hkoba/libperl-macrogen-sub001/internal/cast"
	"github.com/hkoba/libperl-macrogen-sub001/internal/cpp"
	"github.com/hkoba/libperl-macrogen-sub001/internal/fingerprint"
	"github.com/hkoba/libperl-macrogen-sub001/internal/intern"
)

// MacroParam gives a macro parameter its own synthetic ExprId, so the
// declaration site can carry constraints independently of any particular
// body reference to it (spec.md §3).
type MacroParam struct {
	Name        intern.Str
	ParamExprID cast.ExprId
}

// MacroInferInfo is the fully-assembled inference record for one target
// macro (spec.md §3).
type MacroInferInfo struct {
	Name       intern.Str
	IsTarget   bool
	HasBody    bool
	IsFunction bool

	Def         *cpp.MacroDef
	Params      []MacroParam
	ParseResult cast.ParseResult
	Env         *TypeEnv

	Uses   map[intern.Str]bool
	UsedBy map[intern.Str]bool

	IsThxDependent bool

	CallsUnavailable   bool
	UnavailableCallees []intern.Str
	unavailableSeen    map[intern.Str]bool

	HasTokenPasting bool

	// Fingerprint is a content hash of the macro's expanded body, set once
	// expansion runs. Two macros with byte-identical expansions share a
	// Fingerprint even though their parse results get independent node IDs.
	Fingerprint fingerprint.Tag
}

func newInfo(def *cpp.MacroDef, interner *intern.Table) *MacroInferInfo {
	info := &MacroInferInfo{
		Name:            def.Name,
		IsTarget:        def.IsTarget,
		HasBody:         len(def.Body) > 0,
		IsFunction:      def.Kind == cpp.Function,
		Def:             def,
		Env:             NewTypeEnv(),
		Uses:            make(map[intern.Str]bool),
		UsedBy:          make(map[intern.Str]bool),
		HasTokenPasting: def.HasTokenPasting,
		unavailableSeen: make(map[intern.Str]bool),
	}
	for _, p := range def.Params {
		id := cast.ExprId(-1 - int32(len(info.Params))) // synthetic ids are negative, distinct from parser-assigned ids
		info.Params = append(info.Params, MacroParam{Name: p, ParamExprID: id})
	}
	return info
}

func (info *MacroInferInfo) paramExprID(name intern.Str) (cast.ExprId, bool) {
	for _, p := range info.Params {
		if p.Name == name {
			return p.ParamExprID, true
		}
	}
	return 0, false
}

// markUnavailable records callee as an unavailable callee of info, setting
// CallsUnavailable and de-duplicating the callee list.
func (info *MacroInferInfo) markUnavailable(callee intern.Str) {
	info.CallsUnavailable = true
	if info.unavailableSeen[callee] {
		return
	}
	info.unavailableSeen[callee] = true
	info.UnavailableCallees = append(info.UnavailableCallees, callee)
}
