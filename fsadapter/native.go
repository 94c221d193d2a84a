//go:build !js

package fsadapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Native backs FS with the host operating system's filesystem. The
// zero value is not usable; construct with NewNative.
type Native struct {
	root string
}

// NewNative returns an FS rooted at root. root need not exist yet;
// it is created on first Write with createParents set.
func NewNative(root string) *Native {
	return &Native{root: root}
}

func (n *Native) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(n.root, path)
}

func (n *Native) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(n.resolve(path))
	if err != nil {
		return nil, translate("read", path, err)
	}
	return data, nil
}

// Write replaces path's contents by writing to a randomly suffixed
// temp file in the destination directory and renaming over the
// target, so a reader never observes a half-written file. If the
// rename fails for any reason, Write falls back to copying the temp
// file onto the target and then removing the temp file; that copy
// rewrites the target in place rather than replacing it atomically.
func (n *Native) Write(ctx context.Context, path string, data []byte, createParents bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full := n.resolve(path)
	dir := filepath.Dir(full)
	if createParents {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return translate("write", path, err)
		}
	}

	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(full), uuid.NewString()))
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return translate("write", path, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		if copyErr := copyAndRemove(tmp, full); copyErr != nil {
			_ = os.Remove(tmp)
			return translate("write", path, copyErr)
		}
	}
	return nil
}

func copyAndRemove(tmp, dest string) error {
	src, err := os.Open(tmp)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}
	return os.Remove(tmp)
}

func (n *Native) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full := n.resolve(path)
	if _, err := os.Stat(full); err != nil {
		return translate("remove", path, err)
	}
	if err := os.RemoveAll(full); err != nil {
		return translate("remove", path, err)
	}
	return nil
}

func (n *Native) Exists(ctx context.Context, path string) bool {
	if ctx.Err() != nil {
		return false
	}
	_, err := os.Stat(n.resolve(path))
	return err == nil
}

// translate maps a *fs.PathError (or a bare fs error) to the package's
// platform-neutral sentinels, so callers never match on os-specific
// types.
func translate(op, path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s %s: %v", ErrNotFound, op, path, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s %s: %v", ErrPermissionDenied, op, path, err)
	default:
		return fmt.Errorf("%w: %s %s: %v", ErrIO, op, path, err)
	}
}
