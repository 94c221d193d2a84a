//go:build js && wasm

package fsadapter

import (
	"context"
	"fmt"
	"syscall/js"

	"github.com/google/uuid"
)

// WASM backs FS with the browser's origin-private file system (OPFS),
// reached through syscall/js. Every OPFS call is promise-based on the
// JS side; await blocks the goroutine on the promise's resolution
// without blocking the browser's event loop, since each call runs on
// its own goroutine.
type WASM struct {
	root js.Value // FileSystemDirectoryHandle for the cache root
}

// NewWASM wraps an already-obtained OPFS root directory handle (the
// caller resolves it via navigator.storage.getDirectory() before
// constructing the adapter, since that call is itself async and has
// no synchronous Go-side equivalent).
func NewWASM(root js.Value) *WASM {
	return &WASM{root: root}
}

func (w *WASM) Read(ctx context.Context, path string) ([]byte, error) {
	handle, err := w.getFileHandle(ctx, path, false)
	if err != nil {
		return nil, err
	}
	file, err := await(ctx, handle.Call("getFile"))
	if err != nil {
		return nil, translateJS("read", path, err)
	}
	buf, err := await(ctx, file.Call("arrayBuffer"))
	if err != nil {
		return nil, translateJS("read", path, err)
	}
	return jsBytesToGo(buf), nil
}

func (w *WASM) Write(ctx context.Context, path string, data []byte, createParents bool) error {
	dir, name, err := w.navigateToParent(ctx, path, createParents)
	if err != nil {
		return err
	}
	tmpName := fmt.Sprintf(".%s.%s.tmp", name, uuid.NewString())

	tmpHandle, err := await(ctx, dir.Call("getFileHandle", tmpName, fileOpts(true)))
	if err != nil {
		return translateJS("write", path, err)
	}
	writable, err := await(ctx, tmpHandle.Call("createWritable"))
	if err != nil {
		return translateJS("write", path, err)
	}
	if _, err := await(ctx, writable.Call("write", goBytesToJS(data))); err != nil {
		return translateJS("write", path, err)
	}
	if _, err := await(ctx, writable.Call("close")); err != nil {
		return translateJS("write", path, err)
	}

	// OPFS has no atomic rename primitive reachable from this API
	// surface. After the temp file is written, the same data is written
	// a second time to the final file through its own writable stream,
	// and the temp file is then removed.
	finalHandle, err := await(ctx, dir.Call("getFileHandle", name, fileOpts(true)))
	if err != nil {
		return translateJS("write", path, err)
	}
	finalWritable, err := await(ctx, finalHandle.Call("createWritable"))
	if err != nil {
		return translateJS("write", path, err)
	}
	if _, err := await(ctx, finalWritable.Call("write", goBytesToJS(data))); err != nil {
		return translateJS("write", path, err)
	}
	if _, err := await(ctx, finalWritable.Call("close")); err != nil {
		return translateJS("write", path, err)
	}
	_, _ = await(ctx, dir.Call("removeEntry", tmpName))
	return nil
}

func (w *WASM) Remove(ctx context.Context, path string) error {
	dir, name, err := w.navigateToParent(ctx, path, false)
	if err != nil {
		return err
	}
	if _, err := await(ctx, dir.Call("removeEntry", name, removeOpts(true))); err != nil {
		return translateJS("remove", path, err)
	}
	return nil
}

func (w *WASM) Exists(ctx context.Context, path string) bool {
	_, err := w.getFileHandle(ctx, path, false)
	return err == nil
}

func (w *WASM) getFileHandle(ctx context.Context, path string, create bool) (js.Value, error) {
	dir, name, err := w.navigateToParent(ctx, path, create)
	if err != nil {
		return js.Undefined(), err
	}
	h, err := await(ctx, dir.Call("getFileHandle", name, fileOpts(create)))
	if err != nil {
		return js.Undefined(), translateJS("open", path, err)
	}
	return h, nil
}

func (w *WASM) navigateToParent(ctx context.Context, path string, create bool) (js.Value, string, error) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return js.Undefined(), "", fmt.Errorf("%w: empty path", ErrIO)
	}
	dir := w.root
	for _, seg := range segments[:len(segments)-1] {
		next, err := await(ctx, dir.Call("getDirectoryHandle", seg, dirOpts(create)))
		if err != nil {
			return js.Undefined(), "", translateJS("open", path, err)
		}
		dir = next
	}
	return dir, segments[len(segments)-1], nil
}
