package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/ailoy-run/ailoycache/manifest"
)

// FakeRemote is an httptest.Server that serves directory manifests and
// content-addressed blobs, modeled directly on the teacher's
// test/registry/server.go fake registry server: routes are resolved
// from an in-memory table rather than a real object store.
type FakeRemote struct {
	*httptest.Server

	mu        sync.Mutex
	manifests map[string]*manifest.Directory
	blobs     map[string][]byte // sha1 -> bytes, shared across all dirnames
}

// NewFakeRemote starts a FakeRemote. Call Close (inherited from
// httptest.Server) when done.
func NewFakeRemote() *FakeRemote {
	r := &FakeRemote{
		manifests: make(map[string]*manifest.Directory),
		blobs:     make(map[string][]byte),
	}
	r.Server = httptest.NewServer(http.HandlerFunc(r.handle))
	return r
}

// SetManifest registers dir as the directory manifest served at
// /<dirname>/_manifest.json.
func (r *FakeRemote) SetManifest(dirname string, dir *manifest.Directory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.manifests[dirname] = dir
}

// SetBlob registers content as the bytes served for sha1 at
// /<dirname>/<sha1>, regardless of dirname (blobs are content-addressed
// and the fake, like the real server, serves identical bytes for the
// same SHA indefinitely).
func (r *FakeRemote) SetBlob(sha1 string, content []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blobs[sha1] = content
}

func (r *FakeRemote) handle(w http.ResponseWriter, req *http.Request) {
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	if len(parts) != 2 {
		http.NotFound(w, req)
		return
	}
	dirname, rest := parts[0], parts[1]

	r.mu.Lock()
	defer r.mu.Unlock()

	if rest == "_manifest.json" {
		dir, ok := r.manifests[dirname]
		if !ok {
			http.NotFound(w, req)
			return
		}
		data, err := manifest.Encode(dir)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
		return
	}

	content, ok := r.blobs[rest]
	if !ok {
		http.NotFound(w, req)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(content)
}
