// Package pipeline implements the NDJSON ingestion path (C8) and the input
// preprocessor in front of it (C7): sniffing whether input is NDJSON or a
// single/concatenated JSON document, splitting NDJSON into line-aligned
// windows and chunks, and running a filter over each chunk on a fixed
// worker pool when doing so is safe.
package pipeline

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/jqstream/jqstream/fastpath"
	"github.com/jqstream/jqstream/filter"
	"github.com/jqstream/jqstream/value"
)

// Options configures one Run - the knobs the external interface's
// configuration table (spec C6) exposes for the ingestion path.
type Options struct {
	ForceJSONL      bool // force NDJSON line-by-line parsing
	WindowMB        int  // override the streaming window size; 0 means auto
	DisableMmap     bool // read via a buffered reader instead of mmap
	DisableFastPath bool // always run the full evaluator, never fastpath
	Workers         int  // worker pool size; 0 means runtime.NumCPU()
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Run reads JSON from r, evaluates prog once per top-level input value
// (once per line for NDJSON, once per value for a single/concatenated
// document) and calls sink, in output order, for every result. count is
// the number of times sink was called; allFalsy reports whether every one
// of those outputs was jq-falsy (null or false) - the --exit-status
// contract named in the external interface.
func Run(r io.Reader, prog filter.Filter, env *filter.Env, opts Options, sink func(value.Value) error) (count int, allFalsy bool, err error) {
	allFalsy = true
	emit := func(v value.Value) error {
		count++
		if !isFalsy(v) {
			allFalsy = false
		}
		return sink(v)
	}

	if f, ok := r.(*os.File); ok && !opts.DisableMmap {
		if data, closer, merr := mmapFile(f); merr == nil {
			defer closer()
			data = stripBOM(data)
			err = runFromBytes(data, prog, env, opts, emit)
			return count, allFalsy, err
		}
		// mmap unavailable (pipe, unsupported platform, zero-length file
		// handled inside mmapFile): fall back to the buffered path below.
	}

	br := bufio.NewReaderSize(r, chunkTarget)
	if bom, _ := br.Peek(3); bytes.Equal(bom, utf8BOM) {
		br.Discard(3)
	}
	head, _ := br.Peek(chunkTarget)
	if !opts.ForceJSONL && !looksLikeNDJSON(head) {
		data, rerr := io.ReadAll(br)
		if rerr != nil {
			return 0, false, rerr
		}
		err = runSingleDocument(data, prog, env, emit)
		return count, allFalsy, err
	}
	err = runWindows(&readerSource{br: br}, prog, env, opts, emit)
	return count, allFalsy, err
}

func runFromBytes(data []byte, prog filter.Filter, env *filter.Env, opts Options, emit func(value.Value) error) error {
	head := data
	if len(head) > chunkTarget {
		head = head[:chunkTarget]
	}
	if !opts.ForceJSONL && !looksLikeNDJSON(head) {
		return runSingleDocument(data, prog, env, emit)
	}
	return runWindows(&mmapSource{data: data}, prog, env, opts, emit)
}

func stripBOM(data []byte) []byte {
	if bytes.HasPrefix(data, utf8BOM) {
		return data[3:]
	}
	return data
}

// looksLikeNDJSON implements the input preprocessor's NDJSON heuristic: it
// tracks container nesting depth (ignoring brackets inside strings) and
// reports true as soon as a newline at depth 0 is followed by further
// non-whitespace content - i.e. the input keeps going with another
// top-level value rather than being one pretty-printed document.
func looksLikeNDJSON(head []byte) bool {
	depth := 0
	inStr := false
	esc := false
	sawValueAtDepth0 := false
	for i := 0; i < len(head); i++ {
		c := head[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
		case '\n':
			if depth == 0 && sawValueAtDepth0 {
				rest := bytes.TrimLeft(head[i+1:], " \t\r\n")
				if len(rest) > 0 {
					return true
				}
			}
		default:
			if depth == 0 && !isSpaceByte(c) {
				sawValueAtDepth0 = true
			}
		}
	}
	return false
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isFalsy(v value.Value) bool {
	if _, ok := v.(value.Null); ok {
		return true
	}
	if b, ok := v.(value.Bool); ok {
		return !bool(b)
	}
	return false
}

// runSingleDocument handles the non-NDJSON preprocessor path: a single
// JSON value, or several whitespace-separated values concatenated in one
// input, evaluated sequentially with a single Evaluator since there is no
// line-level unit of work to parallelise over.
func runSingleDocument(data []byte, prog filter.Filter, env *filter.Env, emit func(value.Value) error) error {
	data = substituteSpecialFloats(data)
	values, err := value.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return err
	}
	ev := filter.NewEvaluator()
	for _, v := range values {
		v = restoreSpecialFloats(v)
		if err := ev.Eval(prog, v, env, func(r value.Value) error {
			return emit(restoreSpecialFloats(r))
		}); err != nil {
			return err
		}
	}
	return nil
}

// runWindows drives the NDJSON path (C8): read a line-aligned window,
// split it into ~1 MiB chunks, evaluate the chunks (in parallel across a
// fixed worker pool when the parallelism gate allows it) and emit their
// results in order before moving on to the next window.
func runWindows(src byteSource, prog filter.Filter, env *filter.Env, opts Options, emit func(value.Value) error) error {
	var fp *fastpath.Program
	if !opts.DisableFastPath && os.Getenv("JQSTREAM_DISABLE_FASTPATH") == "" {
		fp, _ = fastpath.Compile(prog)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	// The parallelism gate: a filter that closes over caller-bound
	// variables or functions may not be safe to run concurrently against
	// independent inputs, so the pipeline only fans out across chunks
	// when env carries no bindings at all (see Env.IsEmpty's doc comment).
	parallel := env.IsEmpty() && workers > 1

	size := windowSize(opts.WindowMB)
	var carry []byte
	for {
		window, newCarry, eof, err := readWindow(src, size, carry)
		if err != nil {
			return err
		}
		carry = newCarry
		if len(window) > 0 {
			if err := processWindow(window, prog, fp, env, parallel, workers, emit); err != nil {
				return err
			}
		}
		if eof {
			return nil
		}
	}
}

func processWindow(window []byte, prog filter.Filter, fp *fastpath.Program, env *filter.Env, parallel bool, workers int, emit func(value.Value) error) error {
	chunks := splitChunks(window)
	results := make([][]value.Value, len(chunks))
	errs := make([]error, len(chunks))

	if parallel && len(chunks) > 1 {
		var wg sync.WaitGroup
		sem := make(chan struct{}, workers)
		for i, chunk := range chunks {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int, chunk []byte) {
				defer wg.Done()
				defer func() { <-sem }()
				results[i], errs[i] = evalChunk(prog, fp, env, chunk)
			}(i, chunk)
		}
		wg.Wait()
	} else {
		for i, chunk := range chunks {
			results[i], errs[i] = evalChunk(prog, fp, env, chunk)
		}
	}

	// Output order is chunk order within the window, and windows are
	// processed strictly sequentially by the caller - together these give
	// the ordering guarantee in spec §5 despite per-chunk parallel eval.
	for i := range chunks {
		if errs[i] != nil {
			return errs[i]
		}
		for _, v := range results[i] {
			if err := emit(v); err != nil {
				return err
			}
		}
	}
	return nil
}
