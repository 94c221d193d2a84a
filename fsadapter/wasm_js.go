//go:build js && wasm

package fsadapter

import (
	"context"
	"fmt"
	"strings"
	"syscall/js"
)

// await blocks the calling goroutine until promise settles, returning
// its resolved value or an error built from the rejection reason.
// ctx cancellation does not abort the underlying JS promise (OPFS has
// no cancellation primitive) but unblocks the caller immediately so a
// dropped future doesn't wedge the adapter.
func await(ctx context.Context, promise js.Value) (js.Value, error) {
	done := make(chan struct{})
	var result js.Value
	var rejected js.Value
	var ok bool

	thenFunc := js.FuncOf(func(_ js.Value, args []js.Value) any {
		result = args[0]
		ok = true
		close(done)
		return nil
	})
	defer thenFunc.Release()
	catchFunc := js.FuncOf(func(_ js.Value, args []js.Value) any {
		rejected = args[0]
		close(done)
		return nil
	})
	defer catchFunc.Release()

	promise.Call("then", thenFunc).Call("catch", catchFunc)

	select {
	case <-done:
		if !ok {
			return js.Undefined(), fmt.Errorf("%s", rejected.Get("message").String())
		}
		return result, nil
	case <-ctx.Done():
		return js.Undefined(), ctx.Err()
	}
}

func fileOpts(create bool) js.Value {
	o := js.Global().Get("Object").New()
	o.Set("create", create)
	return o
}

func dirOpts(create bool) js.Value {
	o := js.Global().Get("Object").New()
	o.Set("create", create)
	return o
}

func removeOpts(recursive bool) js.Value {
	o := js.Global().Get("Object").New()
	o.Set("recursive", recursive)
	return o
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func goBytesToJS(data []byte) js.Value {
	arr := js.Global().Get("Uint8Array").New(len(data))
	js.CopyBytesToJS(arr, data)
	return arr
}

func jsBytesToGo(arrayBuffer js.Value) []byte {
	arr := js.Global().Get("Uint8Array").New(arrayBuffer)
	out := make([]byte, arr.Get("length").Int())
	js.CopyBytesToGo(out, arr)
	return out
}

func translateJS(op, path string, err error) error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "notfound"):
		return fmt.Errorf("%w: %s %s: %s", ErrNotFound, op, path, msg)
	case strings.Contains(lower, "notallowed") || strings.Contains(lower, "security"):
		return fmt.Errorf("%w: %s %s: %s", ErrPermissionDenied, op, path, msg)
	default:
		return fmt.Errorf("%w: %s %s: %s", ErrIO, op, path, msg)
	}
}
