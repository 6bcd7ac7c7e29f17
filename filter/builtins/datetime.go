package builtins

import (
	"time"

	"github.com/jqstream/jqstream/filter"
	"github.com/jqstream/jqstream/value"
)

// jq represents a "broken down time" as the 8-element array produced by
// C's struct tm: [seconds, minutes, hours, mday, month(0-based), year,
// wday, yday], plus fractional seconds in the first slot. gmtime/mktime
// and strftime/strptime below translate between that array and Go's
// time.Time, always working in UTC to match jq's gmtime (there is no
// timezone database dependency anywhere in the example corpus, so
// localtime degrades to gmtime rather than pulling one in).
func init() {
	reg := filter.RegisterBuiltin

	reg("now", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return emit(value.NewDouble(float64(time.Now().UnixNano()) / 1e9))
	})

	reg("gmtime", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		f, ok := value.AsFloat64(input)
		if !ok {
			return typeError("gmtime: expected a number")
		}
		return emit(brokenDownTime(epochToTime(f)))
	})

	reg("localtime", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		f, ok := value.AsFloat64(input)
		if !ok {
			return typeError("localtime: expected a number")
		}
		return emit(brokenDownTime(epochToTime(f)))
	})

	reg("mktime", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		a, err := asArray(input, "mktime")
		if err != nil {
			return err
		}
		t, err := timeFromBrokenDown(a)
		if err != nil {
			return err
		}
		return emit(value.Int(t.Unix()))
	})

	reg("todate", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		f, ok := value.AsFloat64(input)
		if !ok {
			return typeError("todate: expected a number")
		}
		return emit(value.String(epochToTime(f).UTC().Format("2006-01-02T15:04:05Z")))
	})

	reg("fromdate", 0, fromDateBuiltin)
	reg("fromdateiso8601", 0, fromDateBuiltin)
	reg("todateiso8601", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		f, ok := value.AsFloat64(input)
		if !ok {
			return typeError("todateiso8601: expected a number")
		}
		return emit(value.String(epochToTime(f).UTC().Format("2006-01-02T15:04:05Z")))
	})

	reg("strftime", 1, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		t, err := timeFromInput(input)
		if err != nil {
			return err
		}
		return ev.Eval(args[0], input, env, func(fmtV value.Value) error {
			layout, err := asString(fmtV, "strftime")
			if err != nil {
				return err
			}
			return emit(value.String(strftime(t, layout)))
		})
	})

	reg("strflocaltime", 1, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		t, err := timeFromInput(input)
		if err != nil {
			return err
		}
		return ev.Eval(args[0], input, env, func(fmtV value.Value) error {
			layout, err := asString(fmtV, "strflocaltime")
			if err != nil {
				return err
			}
			return emit(value.String(strftime(t, layout)))
		})
	})

	reg("strptime", 1, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		s, err := asString(input, "strptime")
		if err != nil {
			return err
		}
		return ev.Eval(args[0], input, env, func(fmtV value.Value) error {
			layout, err := asString(fmtV, "strptime")
			if err != nil {
				return err
			}
			t, err := strptime(s, layout)
			if err != nil {
				return typeError("date \"%s\" does not match format \"%s\"", s, layout)
			}
			return emit(brokenDownTime(t))
		})
	})
}

func epochToTime(epoch float64) time.Time {
	sec := int64(epoch)
	nsec := int64((epoch - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

func fromDateBuiltin(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
	s, err := asString(input, "fromdate")
	if err != nil {
		return err
	}
	t, err := time.Parse("2006-01-02T15:04:05Z", s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return typeError("date \"%s\" does not match format \"%%Y-%%m-%%dT%%H:%%M:%%SZ\"", s)
		}
	}
	return emit(value.Int(t.Unix()))
}

func timeFromInput(input value.Value) (time.Time, error) {
	if a, ok := input.(*value.Array); ok {
		return timeFromBrokenDown(a)
	}
	f, ok := value.AsFloat64(input)
	if !ok {
		return time.Time{}, typeError("expected a number or broken down time array")
	}
	return epochToTime(f), nil
}

func brokenDownTime(t time.Time) *value.Array {
	yday := t.YearDay() - 1
	return value.NewArray([]value.Value{
		value.NewDouble(float64(t.Second()) + float64(t.Nanosecond())/1e9),
		value.Int(int64(t.Minute())),
		value.Int(int64(t.Hour())),
		value.Int(int64(t.Day())),
		value.Int(int64(t.Month()) - 1),
		value.Int(int64(t.Year())),
		value.Int(int64(t.Weekday())),
		value.Int(int64(yday)),
	})
}

func timeFromBrokenDown(a *value.Array) (time.Time, error) {
	if len(a.Items) < 6 {
		return time.Time{}, typeError("broken down time array must have at least 6 elements")
	}
	get := func(i int) float64 {
		f, _ := value.AsFloat64(a.Items[i])
		return f
	}
	sec := get(0)
	year := int(get(5))
	month := time.Month(int(get(4)) + 1)
	day := int(get(3))
	hour := int(get(2))
	min := int(get(1))
	whole := int(sec)
	nsec := int((sec - float64(whole)) * 1e9)
	return time.Date(year, month, day, hour, min, whole, nsec, time.UTC), nil
}

// strftime supports the subset of C strftime directives jq's test suite
// exercises; unrecognized directives pass through verbatim.
func strftime(t time.Time, layout string) string {
	var b []byte
	for i := 0; i < len(layout); i++ {
		c := layout[i]
		if c != '%' || i+1 >= len(layout) {
			b = append(b, c)
			continue
		}
		i++
		switch layout[i] {
		case 'Y':
			b = append(b, t.Format("2006")...)
		case 'm':
			b = append(b, t.Format("01")...)
		case 'd':
			b = append(b, t.Format("02")...)
		case 'H':
			b = append(b, t.Format("15")...)
		case 'M':
			b = append(b, t.Format("04")...)
		case 'S':
			b = append(b, t.Format("05")...)
		case 'Z':
			b = append(b, "UTC"...)
		case 'j':
			b = append(b, t.Format("002")...)
		case 'e':
			b = append(b, t.Format("_2")...)
		case 'A':
			b = append(b, t.Format("Monday")...)
		case 'a':
			b = append(b, t.Format("Mon")...)
		case 'B':
			b = append(b, t.Format("January")...)
		case 'b':
			b = append(b, t.Format("Jan")...)
		case 'T':
			b = append(b, t.Format("15:04:05")...)
		case '%':
			b = append(b, '%')
		default:
			b = append(b, '%', layout[i])
		}
	}
	return string(b)
}

func strptime(s, layout string) (time.Time, error) {
	goLayout := strftimeToGoLayout(layout)
	return time.Parse(goLayout, s)
}

func strftimeToGoLayout(layout string) string {
	var b []byte
	for i := 0; i < len(layout); i++ {
		c := layout[i]
		if c != '%' || i+1 >= len(layout) {
			b = append(b, c)
			continue
		}
		i++
		switch layout[i] {
		case 'Y':
			b = append(b, "2006"...)
		case 'm':
			b = append(b, "01"...)
		case 'd':
			b = append(b, "02"...)
		case 'H':
			b = append(b, "15"...)
		case 'M':
			b = append(b, "04"...)
		case 'S':
			b = append(b, "05"...)
		case 'Z':
			b = append(b, "MST"...)
		case 'A':
			b = append(b, "Monday"...)
		case 'a':
			b = append(b, "Mon"...)
		case 'B':
			b = append(b, "January"...)
		case 'b':
			b = append(b, "Jan"...)
		case 'T':
			b = append(b, "15:04:05"...)
		case '%':
			b = append(b, '%')
		default:
			b = append(b, layout[i])
		}
	}
	return string(b)
}
