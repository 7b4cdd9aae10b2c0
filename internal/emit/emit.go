// Package emit implements the emitter contract of spec.md §4.9: given a
// finalized slice of infer.MacroInferInfo and the shared interner, render
// target-language function declarations. It ships exactly one concrete
// renderer, TextEmitter, so the pipeline is runnable and testable
// end-to-end; any other emitter is a separate external collaborator that
// implements the same Emitter interface (SPEC_FULL.md §5.4).
package emit

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/hkoba/libperl-macrogen-sub001/internal/cast"
	"github.com/hkoba/libperl-macrogen-sub001/internal/infer"
	"github.com/hkoba/libperl-macrogen-sub001/internal/intern"
)

// Emitter is the contract every renderer implements: render infos to w.
// infos may arrive in any order; TextEmitter orders its output lexically by
// name (spec.md §4.9). An emitter has no
// business mutating a MacroInferInfo; anything it needs it asks the core
// for via the exported accessors below.
type Emitter interface {
	Emit(w io.Writer, interner *intern.Table, infos []*infer.MacroInferInfo) error
}

// IdentOverride renames one C identifier in emitted output, grounded on
// cxgo's IdentConfig (name/rename pair) but trimmed to the one knob this
// emitter actually needs.
type IdentOverride struct {
	Name   string `yaml:"name"`
	Rename string `yaml:"rename"`
}

// Config controls the default TextEmitter's output knobs.
type Config struct {
	// Indent is the per-line indentation prefix for a placeholder comment
	// block. Defaults to "    ".
	Indent string `yaml:"indent"`

	// ContextParam names the synthetic interpreter-context parameter
	// prepended to THX-dependent signatures. Defaults to "ctx".
	ContextParam string `yaml:"context_param"`

	// ContextType is the Go-side type of ContextParam. Defaults to
	// "*Interp".
	ContextType string `yaml:"context_type"`

	// Overrides renames individual macro/parameter names on emission.
	Overrides []IdentOverride `yaml:"idents"`

	overrideByName map[string]string
}

func (c *Config) init() {
	if c.Indent == "" {
		c.Indent = "    "
	}
	if c.ContextParam == "" {
		c.ContextParam = "ctx"
	}
	if c.ContextType == "" {
		c.ContextType = "*Interp"
	}
	c.overrideByName = make(map[string]string, len(c.Overrides))
	for _, o := range c.Overrides {
		c.overrideByName[o.Name] = o.Rename
	}
}

func (c *Config) rename(name string) string {
	if r, ok := c.overrideByName[name]; ok {
		return r
	}
	return name
}

// TextEmitter is the default, simple-text Emitter (spec.md §4.9, §8's end-
// to-end scenarios pin its behavior).
type TextEmitter struct {
	cfg Config
}

// NewTextEmitter creates a TextEmitter with cfg, applying defaults to any
// zero-valued field.
func NewTextEmitter(cfg Config) *TextEmitter {
	cfg.init()
	return &TextEmitter{cfg: cfg}
}

// Emit renders infos to w, ordered lexically by macro name (spec.md §4.9).
// Unparseable macros are skipped entirely — they were never emittable, not
// an error (spec.md §8 S6). A macro whose transitive calls are
// unavailable keeps its doc comment but has its body suppressed, followed
// by a TODO naming the offending callees (spec.md §9(b)).
func (e *TextEmitter) Emit(w io.Writer, interner *intern.Table, infos []*infer.MacroInferInfo) error {
	ordered := make([]*infer.MacroInferInfo, 0, len(infos))
	for _, info := range infos {
		if !info.IsFunction || !info.HasBody {
			continue
		}
		if info.ParseResult.Kind == cast.Unparseable {
			continue
		}
		ordered = append(ordered, info)
	}
	slices.SortFunc(ordered, func(a, b *infer.MacroInferInfo) int {
		return strings.Compare(interner.Lookup(a.Name), interner.Lookup(b.Name))
	})

	for _, info := range ordered {
		if err := e.emitOne(w, interner, info); err != nil {
			return err
		}
	}
	return nil
}

func (e *TextEmitter) emitOne(w io.Writer, interner *intern.Table, info *infer.MacroInferInfo) error {
	name := e.cfg.rename(interner.Lookup(info.Name))

	for _, line := range info.Def.LeadingComments {
		if _, err := fmt.Fprintf(w, "// %s\n", line); err != nil {
			return err
		}
	}

	sig, err := e.signature(interner, info, name)
	if err != nil {
		return err
	}

	if info.CallsUnavailable {
		if _, err := fmt.Fprintf(w, "// %s — unavailable\n", sig); err != nil {
			return err
		}
		callees := make([]string, len(info.UnavailableCallees))
		for i, c := range info.UnavailableCallees {
			callees[i] = interner.Lookup(c)
		}
		_, err := fmt.Fprintf(w, "// TODO(macrogen): unavailable callees: %s\n\n", strings.Join(callees, ", "))
		return err
	}

	if info.ParseResult.Kind == cast.StatementResult && cast.ContainsGoto(info.ParseResult.Stmt) {
		_, err := fmt.Fprintf(w, "%s {\n%s// unsupported: goto\n}\n\n", sig, e.cfg.Indent)
		return err
	}

	_, err = fmt.Fprintf(w, "%s {\n%sunimplemented()\n}\n\n", sig, e.cfg.Indent)
	return err
}

// signature builds "func Name(params...) ReturnType", prepending the
// synthetic context parameter for THX-dependent macros.
func (e *TextEmitter) signature(interner *intern.Table, info *infer.MacroInferInfo, name string) (string, error) {
	var params []string
	if info.IsThxDependent {
		params = append(params, fmt.Sprintf("%s %s", e.cfg.ContextParam, e.cfg.ContextType))
	}
	for _, p := range info.Params {
		pname := e.cfg.rename(interner.Lookup(p.Name))
		ptype := info.ParamType(p.Name).String(interner)
		params = append(params, fmt.Sprintf("%s %s", pname, ptype))
	}

	ret := info.ReturnType().String(interner)
	if ret == "void" {
		return fmt.Sprintf("func %s(%s)", name, strings.Join(params, ", ")), nil
	}
	return fmt.Sprintf("func %s(%s) %s", name, strings.Join(params, ", "), ret), nil
}
