package builtins

import (
	"regexp"
	"strings"

	"github.com/jqstream/jqstream/filter"
	"github.com/jqstream/jqstream/value"
)

// jq's regex builtins are implemented on top of Go's RE2 engine
// (regexp/syntax) rather than Oniguruma, the library the original jq
// links against - nothing in the example corpus ships an Oniguruma or
// PCRE binding. The i, s, m and p flags map onto RE2 inline flags and g
// onto repeated matching; n and l are accepted and ignored. RE2 has no
// extended (x) mode, so a pattern given the x flag fails to compile and
// is reported as not a valid regex. Backreferences and lookaround are
// not supported either.
func init() {
	reg := filter.RegisterBuiltin

	reg("test", 1, regexBuiltin(func(re *regexp.Regexp, s string, _ bool) (value.Value, error) {
		return value.Bool(re.MatchString(s)), nil
	}))
	reg("test", 2, regexBuiltin2(func(re *regexp.Regexp, s string, _ bool) (value.Value, error) {
		return value.Bool(re.MatchString(s)), nil
	}))

	reg("match", 1, regexBuiltin(matchAll))
	reg("match", 2, regexBuiltin2(matchAll))

	reg("capture", 1, regexBuiltin(captureFirst))
	reg("capture", 2, regexBuiltin2(captureFirst))

	reg("scan", 1, regexBuiltin(scanAll))
	reg("scan", 2, regexBuiltin2(scanAll))

	reg("splits", 1, regexBuiltin(splitAll))
	reg("splits", 2, regexBuiltin2(splitAll))

	reg("sub", 2, subBuiltin(false))
	reg("sub", 3, subBuiltinWithFlags(false))
	reg("gsub", 2, subBuiltin(true))
	reg("gsub", 3, subBuiltinWithFlags(true))
}

// regexFlags translates jq's single-letter flag string into RE2 inline
// flags plus a "global" bit jq treats specially (g means "all matches",
// which in Go is just not stopping at the first FindXIndex result).
func regexFlags(flags string) (prefix string, global bool, err error) {
	var inline strings.Builder
	for _, f := range flags {
		switch f {
		case 'g':
			global = true
		case 'i':
			inline.WriteByte('i')
		case 'x':
			inline.WriteByte('x')
		case 's':
			inline.WriteByte('s')
		case 'm':
			inline.WriteByte('m')
		case 'n', 'l', 'p':
			// n (ignore empty matches), l (longest match), p (both s and m)
			// are accepted for compatibility but have no RE2 equivalent
			// beyond what s/m already provide.
			if f == 'p' {
				inline.WriteByte('s')
				inline.WriteByte('m')
			}
		default:
			return "", false, typeError("%s is not a valid modifier string", flags)
		}
	}
	if inline.Len() == 0 {
		return "", global, nil
	}
	return "(?" + inline.String() + ")", global, nil
}

func compileRegex(pattern, flags string) (*regexp.Regexp, bool, error) {
	prefix, global, err := regexFlags(flags)
	if err != nil {
		return nil, false, err
	}
	re, err := regexp.Compile(prefix + pattern)
	if err != nil {
		return nil, false, typeError("%s is not a valid regex: %s", pattern, err.Error())
	}
	return re, global, nil
}

func regexBuiltin(fn func(re *regexp.Regexp, s string, global bool) (value.Value, error)) filter.BuiltinFunc {
	return func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		s, err := asString(input, "regex")
		if err != nil {
			return err
		}
		return ev.Eval(args[0], input, env, func(patV value.Value) error {
			pattern, flags, err := patternAndFlags(patV)
			if err != nil {
				return err
			}
			re, global, err := compileRegex(pattern, flags)
			if err != nil {
				return err
			}
			out, err := fn(re, s, global)
			if err != nil {
				return err
			}
			return emit(out)
		})
	}
}

func regexBuiltin2(fn func(re *regexp.Regexp, s string, global bool) (value.Value, error)) filter.BuiltinFunc {
	return func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		s, err := asString(input, "regex")
		if err != nil {
			return err
		}
		return ev.Eval(args[0], input, env, func(patV value.Value) error {
			pattern, err := asString(patV, "regex")
			if err != nil {
				return err
			}
			return ev.Eval(args[1], input, env, func(flagsV value.Value) error {
				flags := ""
				if _, ok := flagsV.(value.Null); !ok {
					flags, err = asString(flagsV, "regex flags")
					if err != nil {
						return err
					}
				}
				re, global, err := compileRegex(pattern, flags)
				if err != nil {
					return err
				}
				out, err := fn(re, s, global)
				if err != nil {
					return err
				}
				return emit(out)
			})
		})
	}
}

// patternAndFlags supports the 1-arg forms which accept either a plain
// string or a 2-element [regex, flags] array.
func patternAndFlags(v value.Value) (pattern, flags string, err error) {
	if a, ok := v.(*value.Array); ok {
		if len(a.Items) < 1 || len(a.Items) > 2 {
			return "", "", typeError("regex array must have 1 or 2 elements")
		}
		pattern, err = asString(a.Items[0], "regex")
		if err != nil {
			return "", "", err
		}
		if len(a.Items) == 2 {
			if _, ok := a.Items[1].(value.Null); !ok {
				flags, err = asString(a.Items[1], "regex flags")
				if err != nil {
					return "", "", err
				}
			}
		}
		return pattern, flags, nil
	}
	pattern, err = asString(v, "regex")
	return pattern, flags, err
}

func matchObject(re *regexp.Regexp, s string, loc []int) *value.Object {
	names := re.SubexpNames()
	captures := make([]value.Value, 0, len(loc)/2-1)
	for i := 1; i < len(loc)/2; i++ {
		start, end := loc[2*i], loc[2*i+1]
		var capVal value.Value = value.NullValue
		if start >= 0 {
			capVal = value.String(s[start:end])
		}
		name := value.Value(value.NullValue)
		if i < len(names) && names[i] != "" {
			name = value.String(names[i])
		}
		offset := -1
		length := 0
		if start >= 0 {
			offset = byteToRuneOffset(s, start)
			length = byteToRuneOffset(s[start:end], end-start)
		}
		captures = append(captures, value.EmptyObject().
			Set("offset", value.Int(int64(offset))).
			Set("length", value.Int(int64(length))).
			Set("string", capVal).
			Set("name", name))
	}
	offset := byteToRuneOffset(s, loc[0])
	length := byteToRuneOffset(s[loc[0]:loc[1]], loc[1]-loc[0])
	return value.EmptyObject().
		Set("offset", value.Int(int64(offset))).
		Set("length", value.Int(int64(length))).
		Set("string", value.String(s[loc[0]:loc[1]])).
		Set("captures", value.NewArray(captures))
}

func byteToRuneOffset(s string, byteOffset int) int {
	return len([]rune(s[:byteOffset]))
}

func matchAll(re *regexp.Regexp, s string, global bool) (value.Value, error) {
	var locs [][]int
	if global {
		locs = re.FindAllSubmatchIndex([]byte(s), -1)
	} else if loc := re.FindSubmatchIndex([]byte(s)); loc != nil {
		locs = [][]int{loc}
	}
	items := make([]value.Value, len(locs))
	for i, loc := range locs {
		items[i] = matchObject(re, s, loc)
	}
	return value.NewArray(items), nil
}

func captureFirst(re *regexp.Regexp, s string, _ bool) (value.Value, error) {
	loc := re.FindSubmatchIndex([]byte(s))
	if loc == nil {
		return value.NullValue, nil
	}
	mo := matchObject(re, s, loc)
	result := value.EmptyObject()
	captures, _ := mo.Get("captures")
	for _, c := range captures.(*value.Array).Items {
		co := c.(*value.Object)
		nameV, _ := co.Get("name")
		if name, ok := nameV.(value.String); ok {
			strV, _ := co.Get("string")
			result = result.Set(string(name), strV)
		}
	}
	return result, nil
}

func scanAll(re *regexp.Regexp, s string, _ bool) (value.Value, error) {
	locs := re.FindAllSubmatchIndex([]byte(s), -1)
	items := make([]value.Value, len(locs))
	for i, loc := range locs {
		if len(loc) == 2 {
			items[i] = value.String(s[loc[0]:loc[1]])
			continue
		}
		var caps []value.Value
		for g := 1; g < len(loc)/2; g++ {
			start, end := loc[2*g], loc[2*g+1]
			if start < 0 {
				caps = append(caps, value.NullValue)
			} else {
				caps = append(caps, value.String(s[start:end]))
			}
		}
		items[i] = value.NewArray(caps)
	}
	return value.NewArray(items), nil
}

func splitAll(re *regexp.Regexp, s string, _ bool) (value.Value, error) {
	parts := re.Split(s, -1)
	items := make([]value.Value, len(parts))
	for i, p := range parts {
		items[i] = value.String(p)
	}
	return value.NewArray(items), nil
}

func subBuiltin(global bool) filter.BuiltinFunc {
	return subBuiltinImpl(global, false)
}

func subBuiltinWithFlags(global bool) filter.BuiltinFunc {
	return subBuiltinImpl(global, true)
}

// subBuiltinImpl implements sub/gsub: the replacement argument is itself
// a filter evaluated with the input set to an object of named capture
// groups (.group_name style interpolation), matching jq's def sub($re; s).
func subBuiltinImpl(global, takesFlags bool) filter.BuiltinFunc {
	return func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		s, err := asString(input, "sub")
		if err != nil {
			return err
		}
		return ev.Eval(args[0], input, env, func(patV value.Value) error {
			pattern, err := asString(patV, "sub")
			if err != nil {
				return err
			}
			flags := ""
			runSub := func() error {
				re, forceGlobal, err := compileRegex(pattern, flags)
				if err != nil {
					return err
				}
				effectiveGlobal := global || forceGlobal
				result, err := applySub(ev, re, s, effectiveGlobal, args[1], env)
				if err != nil {
					return err
				}
				return emit(value.String(result))
			}
			if !takesFlags {
				return runSub()
			}
			return ev.Eval(args[2], input, env, func(flagsV value.Value) error {
				if _, ok := flagsV.(value.Null); !ok {
					f, err := asString(flagsV, "sub flags")
					if err != nil {
						return err
					}
					flags = f
				}
				return runSub()
			})
		})
	}
}

func applySub(ev *filter.Evaluator, re *regexp.Regexp, s string, global bool, replFilter filter.Filter, env *filter.Env) (string, error) {
	var locs [][]int
	if global {
		locs = re.FindAllSubmatchIndex([]byte(s), -1)
	} else if loc := re.FindSubmatchIndex([]byte(s)); loc != nil {
		locs = [][]int{loc}
	}
	if len(locs) == 0 {
		return s, nil
	}
	names := re.SubexpNames()
	var b strings.Builder
	last := 0
	for _, loc := range locs {
		b.WriteString(s[last:loc[0]])
		captureObj := value.EmptyObject()
		for i := 1; i < len(loc)/2; i++ {
			if i >= len(names) || names[i] == "" {
				continue
			}
			start, end := loc[2*i], loc[2*i+1]
			var v value.Value = value.NullValue
			if start >= 0 {
				v = value.String(s[start:end])
			}
			captureObj = captureObj.Set(names[i], v)
		}
		out, found, err := first1(ev, replFilter, captureObj, env)
		if err != nil {
			return "", err
		}
		if found {
			repl, err := asString(out, "sub replacement")
			if err != nil {
				return "", err
			}
			b.WriteString(repl)
		}
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String(), nil
}
