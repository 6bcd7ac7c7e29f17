// Command jqstream is the CLI front end for the jq-compatible filter
// evaluator, NDJSON pipeline and output serialiser implemented by this
// module's packages. It reads JSON from stdin (or a file given as the
// last positional argument), evaluates a filter program against it, and
// writes the results to stdout.
//
// Building a Filter tree out of jq source text is a full parser's worth
// of work and, per the filter package's own design, out of scope here -
// filter.Filter values are meant to be constructed programmatically by a
// parser living elsewhere in the toolchain. jqstream recognises exactly
// the identity filter "." and "empty" from the command line; anything
// else is a usage error. This keeps the CLI honest about what it can run
// today while still exercising the full pipeline/fastpath/output stack
// end to end.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/jqstream/jqstream/filter"
	_ "github.com/jqstream/jqstream/filter/builtins"
	"github.com/jqstream/jqstream/output"
	"github.com/jqstream/jqstream/pipeline"
	"github.com/jqstream/jqstream/value"
)

func main() {
	os.Exit(run())
}

func run() int {
	signal.Ignore(syscall.SIGPIPE)
	defer func() {
		if e := recover(); e != nil {
			fmt.Fprintf(os.Stderr, "jqstream: %s\n%s", e, debug.Stack())
		}
	}()

	var (
		compact         bool
		rawOutput       bool
		indent          int
		tab             bool
		sortKeys        bool
		joinOutput      bool
		nullSeparator   bool
		asciiOutput     bool
		colorMode       string
		unbuffered      bool
		forceJSONL      bool
		windowMB        int
		disableMmap     bool
		disableFastPath bool
		exitStatus      bool
		filterFile      string
	)

	flag.BoolVar(&compact, "c", false, "compact instead of pretty-printed output")
	flag.BoolVar(&rawOutput, "r", false, "output raw strings, not JSON-quoted")
	flag.IntVar(&indent, "indent", 2, "number of spaces to indent (pretty mode only)")
	flag.BoolVar(&tab, "tab", false, "indent with a tab instead of spaces")
	flag.BoolVar(&sortKeys, "S", false, "sort object keys on output")
	flag.BoolVar(&joinOutput, "j", false, "join output without a trailing newline")
	flag.BoolVar(&nullSeparator, "nul-output", false, "terminate output with NUL instead of newline")
	flag.BoolVar(&asciiOutput, "a", false, "escape non-ASCII characters in output")
	flag.StringVar(&colorMode, "color", "auto", "colorize output: auto, always, never")
	flag.BoolVar(&unbuffered, "unbuffered", false, "flush stdout after every output value")
	flag.BoolVar(&forceJSONL, "force-jsonl", false, "force newline-delimited JSON input parsing")
	flag.IntVar(&windowMB, "window-mb", 0, "override the NDJSON streaming window size in MiB")
	flag.BoolVar(&disableMmap, "disable-mmap", false, "read input with a buffered reader instead of mmap")
	flag.BoolVar(&disableFastPath, "disable-fast-path", false, "always use the full evaluator, never the fast path")
	flag.BoolVar(&exitStatus, "e", false, "exit with status 1 when there is no output or every output is falsy")
	flag.StringVar(&filterFile, "f", "", "read the filter program from a file")
	flag.Parse()

	prog, usageErr := resolveFilter(filterFile, flag.Args())
	if usageErr != nil {
		fmt.Fprintf(os.Stderr, "jqstream: %s\n", usageErr)
		return 2
	}

	mode := output.Pretty
	switch {
	case rawOutput:
		mode = output.Raw
	case compact:
		mode = output.Compact
	}
	indentStr := strings.Repeat(" ", indent)
	if tab {
		indentStr = "\t"
	}

	useColor := false
	switch colorMode {
	case "always":
		useColor = true
	case "never":
		useColor = false
	case "auto":
		useColor = isatty.IsTerminal(os.Stdout.Fd())
	default:
		fmt.Fprintf(os.Stderr, "jqstream: invalid -color value %q\n", colorMode)
		return 2
	}

	var writer io.Writer = os.Stdout
	if useColor {
		writer = colorable.NewColorableStdout()
	}

	w := output.New(writer, output.Options{
		Mode:          mode,
		Indent:        indentStr,
		SortKeys:      sortKeys,
		JoinOutput:    joinOutput,
		NullSeparator: nullSeparator,
		ASCIIOutput:   asciiOutput,
		Color:         useColor,
		Unbuffered:    unbuffered,
	})

	env := filter.Empty().BindConst("ENV", environObject())

	var in *os.File = os.Stdin
	if args := flag.Args(); filterFile != "" && len(args) == 1 {
		if f, err := os.Open(args[0]); err == nil {
			defer f.Close()
			in = f
		}
	} else if filterFile == "" && len(args) == 2 {
		if f, err := os.Open(args[1]); err == nil {
			defer f.Close()
			in = f
		}
	}

	count, allFalsy, err := pipeline.Run(in, prog, env, pipeline.Options{
		ForceJSONL:      forceJSONL,
		WindowMB:        windowMB,
		DisableMmap:     disableMmap,
		DisableFastPath: disableFastPath,
	}, w.Write)

	flushErr := w.Flush()
	if err != nil {
		if ee, ok := err.(*filter.EvalError); ok {
			fmt.Fprintf(os.Stderr, "jqstream: error: %s\n", ee.Msg)
		} else {
			fmt.Fprintf(os.Stderr, "jqstream: error: %s\n", err)
		}
		return 3
	}
	if flushErr != nil {
		fmt.Fprintf(os.Stderr, "jqstream: %s\n", flushErr)
		return 3
	}
	if exitStatus {
		if count == 0 {
			return 1
		}
		if allFalsy {
			return 1
		}
	}
	return 0
}

// resolveFilter recognises "." and "empty" only; anything else is a usage
// error (see the package doc comment for why).
func resolveFilter(filterFile string, args []string) (filter.Filter, error) {
	var text string
	if filterFile != "" {
		b, err := os.ReadFile(filterFile)
		if err != nil {
			return nil, err
		}
		text = strings.TrimSpace(string(b))
	} else if len(args) > 0 {
		text = strings.TrimSpace(args[0])
	} else {
		text = "."
	}
	switch text {
	case ".", "":
		return filter.Identity{}, nil
	case "empty":
		return filter.Builtin{Name: "empty"}, nil
	default:
		return nil, fmt.Errorf("unsupported filter program %q (only \".\" and \"empty\" are recognised; jqstream does not include a jq-source parser)", text)
	}
}

func environObject() value.Value {
	o := value.EmptyObject()
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			o = o.Set(parts[0], value.String(parts[1]))
		}
	}
	return o
}
