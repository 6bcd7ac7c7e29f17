package pipeline

import (
	"bytes"
	"io"

	jsondec "github.com/jqstream/jqstream/encoding/json"
	"github.com/jqstream/jqstream/fastpath"
	"github.com/jqstream/jqstream/filter"
	"github.com/jqstream/jqstream/iterator"
	"github.com/jqstream/jqstream/token"
	"github.com/jqstream/jqstream/value"
)

// evalLine evaluates prog against one decoded NDJSON line, preferring a
// compiled fast-path program when one is available and can settle this
// particular line without ambiguity (fastpath.ErrFallback), and otherwise
// materialising the line into a value.Value tree and running it through
// the ordinary evaluator.
func evalLine(ev *filter.Evaluator, prog filter.Filter, fp *fastpath.Program, env *filter.Env, line []byte, out *[]value.Value) error {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}
	// Per-line NDJSON input gets the same bare-NaN/Infinity preprocessing
	// as the single-document path (pipeline.go's runSingleDocument):
	// Python's json.dumps and similar emitters produce these one line at a
	// time just as often as in a single blob.
	line = substituteSpecialFloats(line)
	if fp != nil {
		root, release, err := decodeIteratorValue(line)
		if err == nil {
			runErr := fp.Run(root, func(v value.Value) error {
				*out = append(*out, restoreSpecialFloats(v))
				return nil
			})
			release()
			if runErr == nil {
				return nil
			}
			if runErr != fastpath.ErrFallback {
				return runErr
			}
			// runErr == ErrFallback: re-decode and fall through below.
		} else if err != fastpath.ErrFallback {
			return err
		}
	}
	v, err := value.Decode(line)
	if err != nil {
		return err
	}
	v = restoreSpecialFloats(v)
	return ev.Eval(prog, v, env, func(r value.Value) error {
		*out = append(*out, restoreSpecialFloats(r))
		return nil
	})
}

// decodeIteratorValue parses line into a lazily-navigable iterator.Value
// without materialising a value.Value tree for it. The returned release
// func drains any unread tokens so the decoder goroutine started by
// token.StartStream always exits.
func decodeIteratorValue(line []byte) (iterator.Value, func(), error) {
	dec := jsondec.NewDecoder(bytes.NewReader(line))
	ch := token.StartStream(dec, nil)
	it := iterator.New(token.ChannelReadStream(ch))
	release := func() {
		for range ch {
		}
	}
	if !it.Advance() {
		release()
		return nil, func() {}, io.ErrUnexpectedEOF
	}
	return it.CurrentValue(), release, nil
}

// evalChunk runs evalLine over every line in chunk in order, using its own
// Evaluator (LastError must not be shared across goroutines) and returns
// the concatenated outputs in line order.
func evalChunk(prog filter.Filter, fp *fastpath.Program, env *filter.Env, chunk []byte) ([]value.Value, error) {
	ev := filter.NewEvaluator()
	var results []value.Value
	start := 0
	for start < len(chunk) {
		nl := indexNewlineFrom(chunk, start)
		var line []byte
		if nl < 0 {
			line = chunk[start:]
			start = len(chunk)
		} else {
			line = chunk[start:nl]
			start = nl + 1
		}
		if err := evalLine(ev, prog, fp, env, line, &results); err != nil {
			return results, err
		}
	}
	return results, nil
}
