package main

import (
	"fmt"
	"time"

	"github.com/vela-lang/vela/vlbc"
	"github.com/vela-lang/vela/vm"
)

// registerHostNatives installs the small standard set of host functions
// available to `vela run`. Natives cannot mint new interned strings (the
// pool is sealed at link time), so everything here returns numbers, bools,
// or nothing.
func registerHostNatives(ctx *vm.Context) {
	ctx.RegisterNative("print", nativePrint)
	ctx.RegisterNative("len", nativeLen)
	ctx.RegisterNative("abs", nativeAbs)
	ctx.RegisterNative("min", nativeMin)
	ctx.RegisterNative("max", nativeMax)
	ctx.RegisterNative("clock", nativeClock)
}

// nativePrint writes its arguments space-separated on one line. Unlike the
// PRINT opcode it takes any argc.
func nativePrint(ctx *vm.Context, args []vm.Value) (vm.Value, error) {
	for i, a := range args {
		if i > 0 {
			fmt.Fprint(ctx.Output(), " ")
		}
		fmt.Fprint(ctx.Output(), a.String())
	}
	fmt.Fprintln(ctx.Output())
	return vm.Nil(), nil
}

func nativeLen(ctx *vm.Context, args []vm.Value) (vm.Value, error) {
	if len(args) != 1 || args[0].Kind() != vm.KindStr {
		return vm.Nil(), vlbc.Errorf(vlbc.ErrBadArgument, "len wants one string argument")
	}
	return vm.Int(int64(len(args[0].AsStr().Bytes()))), nil
}

func nativeAbs(ctx *vm.Context, args []vm.Value) (vm.Value, error) {
	if len(args) != 1 {
		return vm.Nil(), vlbc.Errorf(vlbc.ErrBadArgument, "abs wants one numeric argument")
	}
	switch args[0].Kind() {
	case vm.KindInt:
		v := args[0].AsInt()
		if v < 0 {
			v = -v
		}
		return vm.Int(v), nil
	case vm.KindFloat:
		v := args[0].AsFloat()
		if v < 0 {
			v = -v
		}
		return vm.Float(v), nil
	default:
		return vm.Nil(), vlbc.Errorf(vlbc.ErrTypeError, "abs on %s", args[0].Kind())
	}
}

func nativeMin(ctx *vm.Context, args []vm.Value) (vm.Value, error) {
	return pickExtreme(args, "min", func(a, b float64) bool { return a < b })
}

func nativeMax(ctx *vm.Context, args []vm.Value) (vm.Value, error) {
	return pickExtreme(args, "max", func(a, b float64) bool { return a > b })
}

func pickExtreme(args []vm.Value, name string, better func(a, b float64) bool) (vm.Value, error) {
	if len(args) == 0 {
		return vm.Nil(), vlbc.Errorf(vlbc.ErrBadArgument, "%s wants at least one argument", name)
	}
	best := args[0]
	for _, a := range args {
		if a.Kind() != vm.KindInt && a.Kind() != vm.KindFloat {
			return vm.Nil(), vlbc.Errorf(vlbc.ErrTypeError, "%s on %s", name, a.Kind())
		}
		if better(asFloat(a), asFloat(best)) {
			best = a
		}
	}
	return best, nil
}

func asFloat(v vm.Value) float64 {
	if v.Kind() == vm.KindInt {
		return float64(v.AsInt())
	}
	return v.AsFloat()
}

// nativeClock returns seconds since the Unix epoch as a float.
func nativeClock(ctx *vm.Context, args []vm.Value) (vm.Value, error) {
	return vm.Float(float64(time.Now().UnixNano()) / 1e9), nil
}
