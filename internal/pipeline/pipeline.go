// Package pipeline wires every stage of the macro-to-function transpiler
// (spec.md §2 data flow: Interner → Preprocessor → (Token expander, Field
// dictionary, ApiDoc) → Parser → Inference engine → Availability →
// Emitter) into one straight-line run over a config.Config, the way
// asm.Compiler wires geas's lexer/loader/evaluator stages behind one
// entry point.
package pipeline

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"

	"github.com/hkoba/libperl-macrogen-sub001/internal/apidoc"
	"github.com/hkoba/libperl-macrogen-sub001/internal/avail"
	"github.com/hkoba/libperl-macrogen-sub001/internal/bindings"
	"github.com/hkoba/libperl-macrogen-sub001/internal/config"
	"github.com/hkoba/libperl-macrogen-sub001/internal/cpp"
	"github.com/hkoba/libperl-macrogen-sub001/internal/diag"
	"github.com/hkoba/libperl-macrogen-sub001/internal/emit"
	"github.com/hkoba/libperl-macrogen-sub001/internal/expand"
	"github.com/hkoba/libperl-macrogen-sub001/internal/fields"
	"github.com/hkoba/libperl-macrogen-sub001/internal/infer"
	"github.com/hkoba/libperl-macrogen-sub001/internal/intern"
)

// Result is everything a caller (the CLI, or a test) might want out of a
// run: the rendered output, the shared interner (for further lookups),
// the finalized inference records, and any duplicate-body groups noticed
// along the way.
type Result struct {
	Output      string
	Interner    *intern.Table
	Infos       []*infer.MacroInferInfo
	Duplicates  map[string][]string // fingerprint tag (as text) -> macro names
	Diagnostics *diag.List
}

// Run executes the full pipeline for cfg, reading header/bindings/apidoc
// text from fsys. It returns a non-nil error only for a fatal input error
// (spec.md §7); everything else — parse refusals, inference gaps,
// availability gaps — rides along in Result.Infos for the caller to
// inspect or for the emitter to render as comments/placeholders.
func Run(cfg *config.Config, fsys fs.FS) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	in := intern.New()
	diags := diag.NewList(cfg.MaxErrors)

	pp := cpp.New(fsys, in, diags)
	pp.SetIncludePath(cfg.IncludePath)
	pp.SetMaxIncludeDepth(cfg.MaxIncludeDepth)

	func() {
		defer diags.CatchAbort()
		for _, header := range cfg.Headers {
			if err := pp.ProcessTarget(header); err != nil {
				diags.Add(err)
			}
		}
	}()
	if diags.HasError() {
		return &Result{Interner: in, Diagnostics: diags}, fmt.Errorf("pipeline: preprocessing failed: %v", diags.Errors())
	}

	boundSet, err := loadBindings(cfg.BindingsFile, in)
	if err != nil {
		return nil, err
	}
	apidocTable, err := loadApiDoc(cfg.ApiDocFile, in, diags)
	if err != nil {
		return nil, err
	}

	fd := fields.New(in)
	fd.RegisterStandardSvUnion()

	targets := make(map[intern.Str]bool)
	for _, def := range pp.Macros() {
		if def.IsTarget {
			targets[def.Name] = true
		}
	}
	availSet := avail.New(boundSet, pp.InlineFunctions(), targets)

	engine := infer.NewEngine(in, fd, apidocTable, availSet)
	expander := expand.New(pp.Lookup, in)
	for _, def := range pp.Macros() {
		engine.ProcessMacro(def, expander)
	}
	engine.Finalize()

	dupGroups := engine.DuplicateBodies()
	dups := make(map[string][]string, len(dupGroups))
	for tag, names := range dupGroups {
		dups[string(tag)] = names
	}

	e := emit.NewTextEmitter(emit.Config{})
	var buf bytes.Buffer
	if err := e.Emit(&buf, in, engine.Infos()); err != nil {
		return nil, fmt.Errorf("pipeline: emit: %w", err)
	}

	return &Result{
		Output:      buf.String(),
		Interner:    in,
		Infos:       engine.Infos(),
		Duplicates:  dups,
		Diagnostics: diags,
	}, nil
}

// loadBindings reads the bindings file, if configured. An unconfigured
// bindings file is treated as an empty set: every callee not defined as a
// target macro or inline function is then unavailable, which is the
// conservative default.
func loadBindings(path string, in *intern.Table) (*bindings.Set, error) {
	if path == "" {
		return bindings.Parse(bytes.NewReader(nil), in)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: opening bindings file: %w", err)
	}
	defer f.Close()
	return bindings.Parse(f, in)
}

// loadApiDoc reads the api-doc file, if configured. Malformed lines are
// recorded as warnings (spec.md §7: the api-doc is supplementary evidence,
// not a required input) rather than aborting the run.
func loadApiDoc(path string, in *intern.Table, diags *diag.List) (*apidoc.Table, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: opening apidoc file: %w", err)
	}
	defer f.Close()
	table, errs := apidoc.Parse(f, in)
	for _, e := range errs {
		diags.Add(&diag.WarningError{Err: e})
	}
	return table, nil
}
