package builtins

import (
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/jqstream/jqstream/filter"
	"github.com/jqstream/jqstream/value"
)

// @-format builtins are registered twice: once into filter.RegisterFormat
// so @name works both as a standalone filter and as the string
// interpolation prefix in "...\( @name "literal" )...", and once into
// the ordinary builtin table so @name can also be called as a 0-arg
// filter directly (Builtin{Name: "@name"}).
func init() {
	register("text", formatText)
	register("json", formatJSON)
	register("html", formatHTML)
	register("uri", formatURI)
	register("csv", formatCSV)
	register("tsv", formatTSV)
	register("sh", formatSh)
	register("base64", formatBase64)
	register("base64d", formatBase64d)
	register("base32", formatBase32)
	register("base32d", formatBase32d)
}

func register(name string, fn func(value.Value) (string, error)) {
	filter.RegisterFormat(name, fn)
	filter.RegisterBuiltin("@"+name, 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		s, err := fn(input)
		if err != nil {
			return err
		}
		return emit(value.String(s))
	})
}

func formatText(v value.Value) (string, error) {
	if s, ok := v.(value.String); ok {
		return string(s), nil
	}
	return v.String(), nil
}

func formatJSON(v value.Value) (string, error) {
	return v.String(), nil
}

func formatHTML(v value.Value) (string, error) {
	s, err := formatText(v)
	if err != nil {
		return "", err
	}
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"'", "&#39;",
		"\"", "&quot;",
	)
	return r.Replace(s), nil
}

func formatURI(v value.Value) (string, error) {
	s, err := formatText(v)
	if err != nil {
		return "", err
	}
	return url.QueryEscape(s), nil
}

func formatCSV(v value.Value) (string, error) {
	a, err := asArray(v, "@csv")
	if err != nil {
		return "", err
	}
	fields := make([]string, len(a.Items))
	for i, item := range a.Items {
		switch x := item.(type) {
		case value.Null:
			fields[i] = ""
		case value.String:
			fields[i] = `"` + strings.ReplaceAll(string(x), `"`, `""`) + `"`
		case value.Bool, value.Int, value.Double:
			fields[i] = x.String()
		default:
			return "", typeError("@csv: invalid value %s", item.TypeName())
		}
	}
	return strings.Join(fields, ","), nil
}

func formatTSV(v value.Value) (string, error) {
	a, err := asArray(v, "@tsv")
	if err != nil {
		return "", err
	}
	fields := make([]string, len(a.Items))
	for i, item := range a.Items {
		switch x := item.(type) {
		case value.Null:
			fields[i] = ""
		case value.String:
			s := string(x)
			s = strings.ReplaceAll(s, "\\", "\\\\")
			s = strings.ReplaceAll(s, "\t", "\\t")
			s = strings.ReplaceAll(s, "\n", "\\n")
			s = strings.ReplaceAll(s, "\r", "\\r")
			fields[i] = s
		case value.Bool, value.Int, value.Double:
			fields[i] = x.String()
		default:
			return "", typeError("@tsv: invalid value %s", item.TypeName())
		}
	}
	return strings.Join(fields, "\t"), nil
}

func formatSh(v value.Value) (string, error) {
	quote := func(s string) string {
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	}
	switch x := v.(type) {
	case value.String:
		return quote(string(x)), nil
	case *value.Array:
		parts := make([]string, len(x.Items))
		for i, item := range x.Items {
			s, err := formatSh(item)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return strings.Join(parts, " "), nil
	case value.Null, value.Bool, value.Int, value.Double:
		return x.String(), nil
	default:
		return "", typeError("@sh: invalid value %s", v.TypeName())
	}
}

func formatBase64(v value.Value) (string, error) {
	s, err := formatText(v)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString([]byte(s)), nil
}

func formatBase64d(v value.Value) (string, error) {
	s, err := asString(v, "@base64d")
	if err != nil {
		return "", err
	}
	b, err := base64.StdEncoding.WithPadding(base64.NoPadding).DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return "", fmt.Errorf("@base64d: invalid input: %s", err.Error())
	}
	return string(b), nil
}

func formatBase32(v value.Value) (string, error) {
	s, err := formatText(v)
	if err != nil {
		return "", err
	}
	return base32.StdEncoding.EncodeToString([]byte(s)), nil
}

func formatBase32d(v value.Value) (string, error) {
	s, err := asString(v, "@base32d")
	if err != nil {
		return "", err
	}
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	b, err := enc.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return "", fmt.Errorf("@base32d: invalid input: %s", err.Error())
	}
	return string(b), nil
}
