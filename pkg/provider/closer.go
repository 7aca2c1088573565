package provider

import (
	"context"
	"reflect"
)

// closerConventionNames lists the method names probed, in priority order,
// when a provider supplies no explicit onClose callback. The source
// ecosystem's convention list also includes "$disconnect" (a Prisma-style
// client method); that name isn't a legal Go identifier, so it has no
// analogue here and is simply skipped.
var closerConventionNames = []string{"Close", "End", "Quit", "Disconnect", "Destroy"}

var ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()

// DetectCloser looks for a conventionally-named closer method on value and
// wraps it as a Closer, or returns nil if none is found. It accepts either
// `func() error` or `func(context.Context) error` shaped methods.
func DetectCloser(value any) Closer {
	if value == nil {
		return nil
	}
	rv := reflect.ValueOf(value)

	for _, name := range closerConventionNames {
		method := rv.MethodByName(name)
		if !method.IsValid() {
			continue
		}
		if closer := asCloser(method); closer != nil {
			return closer
		}
	}
	return nil
}

func asCloser(method reflect.Value) Closer {
	mt := method.Type()
	switch {
	case mt.NumIn() == 0 && mt.NumOut() == 1 && mt.Out(0) == errType:
		return func(ctx context.Context) error {
			out := method.Call(nil)
			return errOrNil(out[0])
		}
	case mt.NumIn() == 1 && mt.In(0) == ctxType && mt.NumOut() == 1 && mt.Out(0) == errType:
		return func(ctx context.Context) error {
			out := method.Call([]reflect.Value{reflect.ValueOf(ctx)})
			return errOrNil(out[0])
		}
	default:
		return nil
	}
}

func errOrNil(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}
