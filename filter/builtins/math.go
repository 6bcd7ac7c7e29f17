package builtins

import (
	"math"

	"github.com/jqstream/jqstream/filter"
	"github.com/jqstream/jqstream/value"
)

func init() {
	reg := filter.RegisterBuiltin

	for name, fn := range map[string]func(float64) float64{
		"floor": math.Floor,
		"ceil":  math.Ceil,
		"round": math.Round,
		"trunc": math.Trunc,
		"sqrt":  math.Sqrt,
		"cbrt":  math.Cbrt,
		"exp":   math.Exp,
		"exp2":  math.Exp2,
		"exp10": func(x float64) float64 { return math.Pow(10, x) },
		"expm1": math.Expm1,
		"log":   math.Log,
		"log2":  math.Log2,
		"log10": math.Log10,
		"log1p": math.Log1p,
		"logb":  math.Logb,
		"gamma": math.Gamma,
		"lgamma": func(x float64) float64 { v, _ := math.Lgamma(x); return v },
		"tgamma": math.Gamma,
		"sin":    math.Sin,
		"cos":    math.Cos,
		"tan":    math.Tan,
		"asin":   math.Asin,
		"acos":   math.Acos,
		"atan":   math.Atan,
		"sinh":   math.Sinh,
		"cosh":   math.Cosh,
		"tanh":   math.Tanh,
		"asinh":  math.Asinh,
		"acosh":  math.Acosh,
		"atanh":  math.Atanh,
		"significand": func(x float64) float64 {
			f, _ := math.Frexp(x)
			return f * 2
		},
		"j0":        math.J0,
		"j1":        math.J1,
		"y0":        math.Y0,
		"y1":        math.Y1,
		"nearbyint": math.RoundToEven,
		"rint":      math.RoundToEven,
	} {
		f := fn
		reg(name, 0, mathUnary(f))
	}

	reg("pow", 2, mathBinary(math.Pow))
	reg("atan2", 2, mathBinary(math.Atan2))
	reg("copysign", 2, mathBinary(math.Copysign))
	reg("drem", 2, mathBinary(math.Remainder))
	reg("ldexp", 2, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return ev.Eval(args[0], input, env, func(a value.Value) error {
			return ev.Eval(args[1], input, env, func(b value.Value) error {
				af, ok := value.AsFloat64(a)
				if !ok {
					return typeError("ldexp: expected a number")
				}
				bf, ok := value.AsFloat64(b)
				if !ok {
					return typeError("ldexp: expected a number")
				}
				return emit(value.NewDouble(math.Ldexp(af, int(bf))))
			})
		})
	})
	reg("scalb", 2, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return ev.Eval(args[0], input, env, func(a value.Value) error {
			return ev.Eval(args[1], input, env, func(b value.Value) error {
				af, ok := value.AsFloat64(a)
				if !ok {
					return typeError("scalb: expected a number")
				}
				bf, ok := value.AsFloat64(b)
				if !ok {
					return typeError("scalb: expected a number")
				}
				return emit(value.NewDouble(math.Ldexp(af, int(bf))))
			})
		})
	})
	reg("scalbln", 2, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return ev.Eval(args[0], input, env, func(a value.Value) error {
			return ev.Eval(args[1], input, env, func(b value.Value) error {
				af, ok := value.AsFloat64(a)
				if !ok {
					return typeError("scalbln: expected a number")
				}
				bf, ok := value.AsFloat64(b)
				if !ok {
					return typeError("scalbln: expected a number")
				}
				return emit(value.NewDouble(math.Ldexp(af, int(bf))))
			})
		})
	})
	reg("hypot", 2, mathBinary(math.Hypot))
	reg("fmin", 2, mathBinary(math.Min))
	reg("fmax", 2, mathBinary(math.Max))
	reg("fmod", 2, mathBinary(math.Mod))
	reg("remainder", 2, mathBinary(math.Remainder))

	reg("frexp", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		f, ok := value.AsFloat64(input)
		if !ok {
			return typeError("frexp: expected a number")
		}
		frac, exp := math.Frexp(f)
		return emit(value.NewArray([]value.Value{value.NewDouble(frac), value.Int(int64(exp))}))
	})

	reg("modf", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		f, ok := value.AsFloat64(input)
		if !ok {
			return typeError("modf: expected a number")
		}
		ip, frac := math.Modf(f)
		return emit(value.NewArray([]value.Value{value.NewDouble(frac), value.NewDouble(ip)}))
	})

	reg("fma", 3, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return ev.Eval(args[0], input, env, func(a value.Value) error {
			return ev.Eval(args[1], input, env, func(b value.Value) error {
				return ev.Eval(args[2], input, env, func(c value.Value) error {
					af, _ := value.AsFloat64(a)
					bf, _ := value.AsFloat64(b)
					cf, _ := value.AsFloat64(c)
					return emit(value.NewDouble(math.FMA(af, bf, cf)))
				})
			})
		})
	})

	reg("isnan", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		f, ok := value.AsFloat64(input)
		if !ok {
			return typeError("isnan: expected a number")
		}
		return emit(value.Bool(math.IsNaN(f)))
	})
	reg("isinfinite", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		f, ok := value.AsFloat64(input)
		if !ok {
			return typeError("isinfinite: expected a number")
		}
		return emit(value.Bool(math.IsInf(f, 0)))
	})
	reg("isnormal", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		f, ok := value.AsFloat64(input)
		if !ok {
			return typeError("isnormal: expected a number")
		}
		return emit(value.Bool(!math.IsNaN(f) && !math.IsInf(f, 0) && f != 0))
	})
	reg("infinite", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return emit(value.NewDouble(math.Inf(1)))
	})
	reg("nan", 0, func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return emit(value.NewDouble(math.NaN()))
	})

	reg("range", 1, rangeBuiltin1)
	reg("range", 2, rangeBuiltin2)
	reg("range", 3, rangeBuiltin3)
}

func mathUnary(fn func(float64) float64) filter.BuiltinFunc {
	return func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		f, ok := value.AsFloat64(input)
		if !ok {
			return typeError("expected a number, got %s", input.TypeName())
		}
		return emit(value.NewDouble(fn(f)))
	}
}

func mathBinary(fn func(a, b float64) float64) filter.BuiltinFunc {
	return func(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
		return ev.Eval(args[0], input, env, func(a value.Value) error {
			return ev.Eval(args[1], input, env, func(b value.Value) error {
				af, ok := value.AsFloat64(a)
				if !ok {
					return typeError("expected a number, got %s", a.TypeName())
				}
				bf, ok := value.AsFloat64(b)
				if !ok {
					return typeError("expected a number, got %s", b.TypeName())
				}
				return emit(value.NewDouble(fn(af, bf)))
			})
		})
	}
}

func rangeBuiltin1(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
	return ev.Eval(args[0], input, env, func(toV value.Value) error {
		to, ok := value.AsFloat64(toV)
		if !ok {
			return typeError("range: expected a number")
		}
		for i := 0.0; i < to; i++ {
			if err := emit(value.NewDouble(i)); err != nil {
				return err
			}
		}
		return nil
	})
}

func rangeBuiltin2(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
	return ev.Eval(args[0], input, env, func(fromV value.Value) error {
		from, ok := value.AsFloat64(fromV)
		if !ok {
			return typeError("range: expected a number")
		}
		return ev.Eval(args[1], input, env, func(toV value.Value) error {
			to, ok := value.AsFloat64(toV)
			if !ok {
				return typeError("range: expected a number")
			}
			for i := from; i < to; i++ {
				if err := emit(value.NewDouble(i)); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

func rangeBuiltin3(ev *filter.Evaluator, args []filter.Filter, input value.Value, env *filter.Env, emit filter.Emit) error {
	return ev.Eval(args[0], input, env, func(fromV value.Value) error {
		from, ok := value.AsFloat64(fromV)
		if !ok {
			return typeError("range: expected a number")
		}
		return ev.Eval(args[1], input, env, func(toV value.Value) error {
			to, ok := value.AsFloat64(toV)
			if !ok {
				return typeError("range: expected a number")
			}
			return ev.Eval(args[2], input, env, func(byV value.Value) error {
				by, ok := value.AsFloat64(byV)
				if !ok {
					return typeError("range: expected a number")
				}
				if by == 0 {
					return nil
				}
				if by > 0 {
					for i := from; i < to; i += by {
						if err := emit(value.NewDouble(i)); err != nil {
							return err
						}
					}
				} else {
					for i := from; i > to; i += by {
						if err := emit(value.NewDouble(i)); err != nil {
							return err
						}
					}
				}
				return nil
			})
		})
	})
}
