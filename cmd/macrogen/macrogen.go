// Command macrogen transpiles a C header bundle's macro surface into
// target-language function declarations (spec.md §1). It has one primary
// mode (generate) and an -i information mode, mirroring the mode dispatch
// of geas's own CLI.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/hkoba/libperl-macrogen-sub001/internal/config"
	"github.com/hkoba/libperl-macrogen-sub001/internal/pipeline"
)

var t2s = strings.NewReplacer("\t", "  ")

func usage() {
	fmt.Fprint(os.Stderr, t2s.Replace(`
Usage: macrogen [options...] <header...>
       macrogen -i {-thx-symbols}

 GENERATE (default)

	 -c <file>          run configuration (YAML)
	 -bindings <file>   pre-existing FFI binding descriptor
	 -apidoc <file>     declarative api-doc file (embed.fnc-shaped)
	 -I <dir>           add a directory to the include path (repeatable)
	 -o <file>          output file name (default: stdout)
	 -max-errors <n>    fatal-error budget before aborting (default 50)
	 -duplicates        after a run, list macros sharing a body fingerprint

 -i: INFORMATION

	 -thx-symbols       list the context symbols that trigger THX propagation

 -h: HELP

`))
}

type includePathFlag []string

func (f *includePathFlag) String() string { return strings.Join(*f, ",") }
func (f *includePathFlag) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func main() {
	if len(os.Args) >= 2 && os.Args[1] == "-i" {
		information(os.Args[2:])
		return
	}
	if len(os.Args) >= 2 && (os.Args[1] == "-h" || os.Args[1] == "-help" || os.Args[1] == "--help") {
		usage()
		os.Exit(0)
	}
	generate(os.Args[1:])
}

func generate(args []string) {
	var (
		fs2          = newFlagSet("macrogen")
		configFile   = fs2.String("c", "", "")
		bindingsFile = fs2.String("bindings", "", "")
		apidocFile   = fs2.String("apidoc", "", "")
		outputFile   = fs2.String("o", "", "")
		maxErrors    = fs2.Int("max-errors", 0, "")
		showDups     = fs2.Bool("duplicates", false, "")
		includePath  includePathFlag
	)
	fs2.Var(&includePath, "I", "")
	parseFlags(fs2, args)

	cfg := loadConfig(*configFile)
	cfg.Headers = append(cfg.Headers, fs2.Args()...)
	if *bindingsFile != "" {
		cfg.BindingsFile = *bindingsFile
	}
	if *apidocFile != "" {
		cfg.ApiDocFile = *apidocFile
	}
	if *maxErrors > 0 {
		cfg.MaxErrors = *maxErrors
	}
	cfg.IncludePath = append(cfg.IncludePath, includePath...)

	if err := cfg.Validate(); err != nil {
		exit(2, err)
	}

	wd, err := os.Getwd()
	if err != nil {
		exit(1, err)
	}
	result, err := pipeline.Run(cfg, os.DirFS(wd))
	for _, w := range warningsOf(result) {
		fmt.Fprintln(os.Stderr, w)
	}
	if err != nil {
		exit(1, err)
	}

	output := os.Stdout
	if *outputFile != "" {
		f, err := os.OpenFile(*outputFile, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
		if err != nil {
			exit(1, err)
		}
		defer f.Close()
		output = f
	}
	if _, err := fmt.Fprint(output, result.Output); err != nil {
		exit(1, err)
	}

	if *showDups {
		printDuplicates(result)
	}
}

func warningsOf(result *pipeline.Result) []error {
	if result == nil || result.Diagnostics == nil {
		return nil
	}
	return result.Diagnostics.Warnings()
}

func printDuplicates(result *pipeline.Result) {
	tags := make([]string, 0, len(result.Duplicates))
	for tag := range result.Duplicates {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	for _, tag := range tags {
		names := append([]string(nil), result.Duplicates[tag]...)
		slices.Sort(names)
		fmt.Fprintf(os.Stderr, "duplicate body %s: %s\n", tag, strings.Join(names, ", "))
	}
}

func loadConfig(path string) *config.Config {
	if path == "" {
		return config.New()
	}
	cfg, err := config.Load(path)
	if err != nil {
		exit(2, err)
	}
	return cfg
}

func information(args []string) {
	var ran bool
	checkRunOnce := func() {
		if ran {
			exit(2, fmt.Errorf("can't show more than one thing at once in -i mode"))
		}
		ran = true
	}

	var fs2 = newFlagSet("macrogen -i")
	fs2.BoolFunc("thx-symbols", "", func(string) error {
		checkRunOnce()
		for _, name := range []string{"aTHX", "tTHX", "my_perl"} {
			fmt.Println(name)
		}
		return nil
	})
	parseFlags(fs2, args)
	if !ran {
		usage()
		exit(2, fmt.Errorf("please select information topic"))
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs2 := flag.NewFlagSet(name, flag.ContinueOnError)
	fs2.Usage = usage
	fs2.SetOutput(os.Stderr)
	return fs2
}

func parseFlags(fs2 *flag.FlagSet, args []string) {
	if err := fs2.Parse(args); err != nil {
		exit(2, err)
	}
}

func exit(code int, err error) {
	if err == nil || err == flag.ErrHelp {
		os.Exit(0)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(code)
}
