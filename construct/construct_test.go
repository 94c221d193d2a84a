package construct_test

import (
	"context"
	"crypto/sha1" //nolint:gosec // test fixture hashing
	"encoding/hex"
	"errors"
	"net/url"
	"testing"

	"github.com/ailoy-run/ailoycache/cache"
	"github.com/ailoy-run/ailoycache/construct"
	"github.com/ailoy-run/ailoycache/manifest"
	"github.com/ailoy-run/ailoycache/testutil"
)

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// twoFileModel is a minimal destination type: it claims two fixed
// entries and assembles itself by storing each one's bytes in its own
// field.
type twoFileModel struct {
	Tokenizer    []byte
	ChatTemplate []byte
}

type twoFileCtx struct{}

type twoFileBuilder struct {
	dirname string
}

func (b twoFileBuilder) ClaimFiles(_ context.Context, _ *cache.Client, _ string) (construct.Claim[twoFileCtx], error) {
	return construct.Claim[twoFileCtx]{
		Entries: []cache.Entry{
			{Dirname: b.dirname, Filename: "tokenizer.json"},
			{Dirname: b.dirname, Filename: "chat_template.j2"},
		},
	}, nil
}

func (b twoFileBuilder) wantEntries() []cache.Entry {
	return []cache.Entry{
		{Dirname: b.dirname, Filename: "tokenizer.json"},
		{Dirname: b.dirname, Filename: "chat_template.j2"},
	}
}

func (b twoFileBuilder) FromContents(contents *construct.Contents, _ twoFileCtx) (twoFileModel, error) {
	want := b.wantEntries()
	if err := construct.RequireContents(contents, want); err != nil {
		return twoFileModel{}, err
	}
	tok, _ := contents.Get(want[0])
	tmpl, _ := contents.Get(want[1])
	return twoFileModel{Tokenizer: tok, ChatTemplate: tmpl}, nil
}

// mismatchBuilder claims only one of the two files FromContents
// actually requires, exercising the ContextMismatch path a composite
// or versioned builder could hit if its claim and assembly phases
// disagree about what was needed.
type mismatchBuilder struct {
	dirname string
}

func (b mismatchBuilder) ClaimFiles(_ context.Context, _ *cache.Client, _ string) (construct.Claim[twoFileCtx], error) {
	return construct.Claim[twoFileCtx]{
		Entries: []cache.Entry{{Dirname: b.dirname, Filename: "tokenizer.json"}},
	}, nil
}

func (b mismatchBuilder) FromContents(contents *construct.Contents, _ twoFileCtx) (twoFileModel, error) {
	want := twoFileBuilder{dirname: b.dirname}.wantEntries()
	if err := construct.RequireContents(contents, want); err != nil {
		return twoFileModel{}, err
	}
	tok, _ := contents.Get(want[0])
	tmpl, _ := contents.Get(want[1])
	return twoFileModel{Tokenizer: tok, ChatTemplate: tmpl}, nil
}

func setupClient(t *testing.T) (*cache.Client, *testutil.FakeRemote) {
	t.Helper()
	remote := testutil.NewFakeRemote()
	t.Cleanup(remote.Close)

	dir := manifest.NewDirectory()
	dir.Files["tokenizer.json"] = []manifest.FileRevision{{SHA1: sha1Hex("tok"), Size: 3, HasVersion: false}}
	dir.Files["chat_template.j2"] = []manifest.FileRevision{{SHA1: sha1Hex("tmpl"), Size: 4, HasVersion: false}}
	remote.SetManifest("model", dir)
	remote.SetBlob(sha1Hex("tok"), []byte("tok"))
	remote.SetBlob(sha1Hex("tmpl"), []byte("tmpl"))

	u, err := url.Parse(remote.URL)
	if err != nil {
		t.Fatalf("parse remote url: %v", err)
	}
	cl, err := cache.New(cache.WithFS(testutil.NewMemFS()), cache.WithRemoteURL(u))
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	return cl, remote
}

func TestTryCreateEmitsMonotonicProgressAndResult(t *testing.T) {
	cl, _ := setupClient(t)
	builder := twoFileBuilder{dirname: "model"}

	var events []construct.Progress[twoFileModel]
	var finalErr error
	for p, err := range construct.TryCreate[twoFileModel, twoFileCtx](context.Background(), cl, "model", builder) {
		if err != nil {
			finalErr = err
			break
		}
		events = append(events, p)
	}
	if finalErr != nil {
		t.Fatalf("unexpected error: %v", finalErr)
	}

	if len(events) < 3 {
		t.Fatalf("expected at least 3 events (claimed + 2 fetches + built folded in), got %d", len(events))
	}

	var prevCurrent uint
	var terminal *construct.Progress[twoFileModel]
	for i, e := range events {
		if e.Current < prevCurrent {
			t.Fatalf("event %d: current_task decreased: %d -> %d", i, prevCurrent, e.Current)
		}
		prevCurrent = e.Current
		if e.Current > e.Total {
			t.Fatalf("event %d: current %d exceeds total %d", i, e.Current, e.Total)
		}
		if e.Result != nil {
			if e.Current != e.Total {
				t.Fatalf("event %d: result set but current(%d) != total(%d)", i, e.Current, e.Total)
			}
			ev := e
			terminal = &ev
		} else if e.Current == e.Total && i == len(events)-1 {
			t.Fatalf("event %d: final event reached total but carries no result", i)
		}
	}
	if terminal == nil {
		t.Fatal("expected a terminal event with a result")
	}
	if string(terminal.Result.Tokenizer) != "tok" || string(terminal.Result.ChatTemplate) != "tmpl" {
		t.Fatalf("unexpected assembled model: %+v", terminal.Result)
	}
}

func TestTryCreateStopsOnFetchError(t *testing.T) {
	remote := testutil.NewFakeRemote()
	defer remote.Close()

	dir := manifest.NewDirectory()
	dir.Files["tokenizer.json"] = []manifest.FileRevision{{SHA1: sha1Hex("tok"), Size: 3, HasVersion: false}}
	// chat_template.j2 intentionally absent from the manifest: its
	// fetch will fail with FileNotInManifest.
	remote.SetManifest("model", dir)
	remote.SetBlob(sha1Hex("tok"), []byte("tok"))

	u, err := url.Parse(remote.URL)
	if err != nil {
		t.Fatalf("parse remote url: %v", err)
	}
	cl, err := cache.New(cache.WithFS(testutil.NewMemFS()), cache.WithRemoteURL(u))
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}

	builder := twoFileBuilder{dirname: "model"}
	var sawResult bool
	var sawErr bool
	for p, err := range construct.TryCreate[twoFileModel, twoFileCtx](context.Background(), cl, "model", builder) {
		if err != nil {
			sawErr = true
			break
		}
		if p.Result != nil {
			sawResult = true
		}
	}
	if !sawErr {
		t.Fatal("expected the stream to end in an error")
	}
	if sawResult {
		t.Fatal("no terminal result should be emitted when a fetch fails")
	}
}

func TestTryCreateEarlyBreakStopsIteration(t *testing.T) {
	cl, _ := setupClient(t)
	builder := twoFileBuilder{dirname: "model"}

	count := 0
	for range construct.TryCreate[twoFileModel, twoFileCtx](context.Background(), cl, "model", builder) {
		count++
		if count == 1 {
			break
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one event observed before break, got %d", count)
	}
}

func TestTryCreateSurfacesContextMismatch(t *testing.T) {
	cl, _ := setupClient(t)
	builder := mismatchBuilder{dirname: "model"}

	var finalErr error
	for p, err := range construct.TryCreate[twoFileModel, twoFileCtx](context.Background(), cl, "model", builder) {
		if err != nil {
			finalErr = err
			break
		}
		if p.Result != nil {
			t.Fatal("no result should be produced when assembly fails")
		}
	}
	if finalErr == nil {
		t.Fatal("expected an error from the mismatched builder")
	}

	var cacheErr *cache.Error
	if !errors.As(finalErr, &cacheErr) {
		t.Fatalf("expected *cache.Error, got %T: %v", finalErr, finalErr)
	}
	if cacheErr.Kind != cache.ContextMismatch {
		t.Fatalf("expected ContextMismatch, got %v", cacheErr.Kind)
	}
}

func TestPrepareFilesStreamsEachEntry(t *testing.T) {
	cl, _ := setupClient(t)
	builder := twoFileBuilder{dirname: "model"}

	seen := map[string]bool{}
	for fe, err := range construct.PrepareFiles[twoFileCtx](context.Background(), cl, "model", builder) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seen[fe.Entry.Filename] = true
	}
	if !seen["tokenizer.json"] || !seen["chat_template.j2"] {
		t.Fatalf("expected both files streamed, got %v", seen)
	}
}
