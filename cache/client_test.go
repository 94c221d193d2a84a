package cache_test

import (
	"context"
	"crypto/sha1" //nolint:gosec // test fixture hashing, matches production's own mandated algorithm
	"encoding/hex"
	"errors"
	"net/url"
	"testing"

	"github.com/ailoy-run/ailoycache/cache"
	"github.com/ailoy-run/ailoycache/manifest"
	"github.com/ailoy-run/ailoycache/testutil"
)

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

func newTestClient(t *testing.T, remote *testutil.FakeRemote) (*cache.Client, *testutil.MemFS) {
	t.Helper()
	u, err := url.Parse(remote.URL)
	if err != nil {
		t.Fatalf("parse remote url: %v", err)
	}
	fs := testutil.NewMemFS()
	cl, err := cache.New(cache.WithFS(fs), cache.WithRemoteURL(u))
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	return cl, fs
}

func TestColdFetch(t *testing.T) {
	remote := testutil.NewFakeRemote()
	defer remote.Close()

	dir := manifest.NewDirectory()
	dir.Files["weights.bin"] = []manifest.FileRevision{{SHA1: sha1Hex("hello"), Size: 5, HasVersion: false}}
	remote.SetManifest("dir", dir)
	remote.SetBlob(sha1Hex("hello"), []byte("hello"))

	cl, fs := newTestClient(t, remote)
	ctx := context.Background()

	data, err := cl.Get(ctx, cache.Entry{Dirname: "dir", Filename: "weights.bin"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("got %q, want %q", data, "hello")
	}
	if !fs.Exists(ctx, "dir/weights.bin") {
		t.Fatal("expected local file to exist after Get")
	}
}

func TestWarmHit(t *testing.T) {
	remote := testutil.NewFakeRemote()

	dir := manifest.NewDirectory()
	dir.Files["weights.bin"] = []manifest.FileRevision{{SHA1: sha1Hex("hello"), Size: 5, HasVersion: false}}
	remote.SetManifest("dir", dir)
	remote.SetBlob(sha1Hex("hello"), []byte("hello"))

	cl, _ := newTestClient(t, remote)
	ctx := context.Background()

	if _, err := cl.Get(ctx, cache.Entry{Dirname: "dir", Filename: "weights.bin"}); err != nil {
		t.Fatalf("first Get: %v", err)
	}

	remote.Close() // server offline; manifest + local SHA are already cached

	data, err := cl.Get(ctx, cache.Entry{Dirname: "dir", Filename: "weights.bin"})
	if err != nil {
		t.Fatalf("warm Get should not hit the network: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("got %q, want %q", data, "hello")
	}
}

func TestStaleLocalIsRefetched(t *testing.T) {
	remote := testutil.NewFakeRemote()
	defer remote.Close()

	dir := manifest.NewDirectory()
	dir.Files["weights.bin"] = []manifest.FileRevision{{SHA1: sha1Hex("hello"), Size: 5, HasVersion: false}}
	remote.SetManifest("dir", dir)
	remote.SetBlob(sha1Hex("hello"), []byte("hello"))

	cl, fs := newTestClient(t, remote)
	ctx := context.Background()

	if err := fs.Write(ctx, "dir/weights.bin", []byte("goodbye"), true); err != nil {
		t.Fatalf("seed stale file: %v", err)
	}

	data, err := cl.Get(ctx, cache.Entry{Dirname: "dir", Filename: "weights.bin"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("expected re-fetched bytes %q, got %q", "hello", data)
	}
}

func TestIntegrityMismatch(t *testing.T) {
	remote := testutil.NewFakeRemote()
	defer remote.Close()

	dir := manifest.NewDirectory()
	dir.Files["weights.bin"] = []manifest.FileRevision{{SHA1: sha1Hex("hello"), Size: 5, HasVersion: false}}
	remote.SetManifest("dir", dir)
	remote.SetBlob(sha1Hex("hello"), []byte("tampered"))

	cl, fs := newTestClient(t, remote)
	ctx := context.Background()

	_, err := cl.Get(ctx, cache.Entry{Dirname: "dir", Filename: "weights.bin"})
	if err == nil {
		t.Fatal("expected IntegrityMismatch error")
	}
	var cacheErr *cache.Error
	if !errors.As(err, &cacheErr) || cacheErr.Kind != cache.IntegrityMismatch {
		t.Fatalf("expected IntegrityMismatch, got %v", err)
	}
	if fs.Exists(ctx, "dir/weights.bin") {
		t.Fatal("local file must not be written on integrity mismatch")
	}
}

func TestGetManifestFileNotInManifest(t *testing.T) {
	remote := testutil.NewFakeRemote()
	defer remote.Close()

	dir := manifest.NewDirectory()
	remote.SetManifest("dir", dir)

	cl, _ := newTestClient(t, remote)
	_, err := cl.GetManifest(context.Background(), cache.Entry{Dirname: "dir", Filename: "missing.bin"})
	var cacheErr *cache.Error
	if !errors.As(err, &cacheErr) || cacheErr.Kind != cache.FileNotInManifest {
		t.Fatalf("expected FileNotInManifest, got %v", err)
	}
}

func TestGetManifestUnavailable(t *testing.T) {
	remote := testutil.NewFakeRemote()
	defer remote.Close()
	// deliberately never call SetManifest for "dir"

	cl, _ := newTestClient(t, remote)
	_, err := cl.GetManifest(context.Background(), cache.Entry{Dirname: "dir", Filename: "x"})
	var cacheErr *cache.Error
	if !errors.As(err, &cacheErr) || cacheErr.Kind != cache.ManifestUnavailable {
		t.Fatalf("expected ManifestUnavailable, got %v", err)
	}
}

func TestRemoveIdempotentOnNotFound(t *testing.T) {
	remote := testutil.NewFakeRemote()
	defer remote.Close()
	cl, _ := newTestClient(t, remote)

	if err := cl.Remove(context.Background(), cache.Entry{Dirname: "dir", Filename: "nope.bin"}); err != nil {
		t.Fatalf("expected idempotent Remove, got %v", err)
	}
}

func TestConcurrentGetSameEntry(t *testing.T) {
	remote := testutil.NewFakeRemote()
	defer remote.Close()

	dir := manifest.NewDirectory()
	dir.Files["weights.bin"] = []manifest.FileRevision{{SHA1: sha1Hex("hello"), Size: 5, HasVersion: false}}
	remote.SetManifest("dir", dir)
	remote.SetBlob(sha1Hex("hello"), []byte("hello"))

	cl, _ := newTestClient(t, remote)
	ctx := context.Background()

	const n = 10
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := cl.Get(ctx, cache.Entry{Dirname: "dir", Filename: "weights.bin"})
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("concurrent Get: %v", err)
		}
	}
}
