package pipeline_test

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/hkoba/libperl-macrogen-sub001/internal/config"
	"github.com/hkoba/libperl-macrogen-sub001/internal/pipeline"
)

func TestRunEndToEnd(t *testing.T) {
	fsys := fstest.MapFS{
		"perl.h": &fstest.MapFile{Data: []byte(
			"#define SvFLAGS(sv) ((sv)->sv_flags)\n" +
				"#define MEM_WRAP_CHECK(n, t) (Perl_croak_memory_wrap())\n",
		)},
	}
	cfg := &config.Config{Headers: []string{"perl.h"}, MaxErrors: 50, MaxIncludeDepth: 200, Emitter: "text"}

	result, err := pipeline.Run(cfg, fsys)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(result.Output, "SvFLAGS") {
		t.Errorf("expected SvFLAGS in output, got:\n%s", result.Output)
	}
	if !strings.Contains(result.Output, "unavailable") {
		t.Errorf("expected an unavailable marker for MEM_WRAP_CHECK, got:\n%s", result.Output)
	}
	if len(result.Infos) != 2 {
		t.Errorf("expected 2 processed macros, got %d", len(result.Infos))
	}
}

func TestRunFatalOnMissingHeader(t *testing.T) {
	fsys := fstest.MapFS{}
	cfg := &config.Config{Headers: []string{"missing.h"}, MaxErrors: 50, MaxIncludeDepth: 200, Emitter: "text"}
	if _, err := pipeline.Run(cfg, fsys); err == nil {
		t.Fatal("expected a fatal error for a missing header")
	}
}

func TestRunRejectsEmptyConfig(t *testing.T) {
	if _, err := pipeline.Run(&config.Config{}, fstest.MapFS{}); err == nil {
		t.Fatal("expected Validate to reject a config with no headers")
	}
}
