// Package cache implements the content-addressed model artifact
// cache: the component that owns the local cache root, the remote
// base URL, and the in-process map of parsed directory manifests, and
// that serves as the driver for typed construction (see package
// construct).
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"runtime"
	"sync"

	"github.com/ailoy-run/ailoycache/fsadapter"
	"github.com/ailoy-run/ailoycache/internal/logging"
	"github.com/ailoy-run/ailoycache/internal/xfetch"
	"github.com/ailoy-run/ailoycache/manifest"
)

// defaultRemoteURL is the fallback project URL baked into the build
// when no AILOY_REMOTE_CACHE_URL/AILOY_CACHE_REMOTE_URL is set.
const defaultRemoteURL = "https://cache.ailoy.run"

// LibraryVersion is this module's own semver, used as the default
// target version the resolver matches FileRevisions against. A host
// embedding this package as a library may override it via
// WithLibraryVersion when it wants manifest resolution to track its
// own release rather than this module's.
const LibraryVersion = "0.1.0"

type manifestSlot struct {
	once sync.Once
	dir  *manifest.Directory
	err  error
}

// Client owns the local cache root, the remote base URL, and the
// in-process manifest cache. The zero value is not usable; construct
// with New.
type Client struct {
	root     fsadapter.FS
	rootPath string
	remote   *url.URL
	fetch    *xfetch.Client
	logger   *slog.Logger
	version  manifest.Version

	mu        sync.RWMutex
	manifests map[string]*manifestSlot
}

// Option configures a Client constructed by New.
type Option func(*Client)

// WithRoot overrides the local cache root directory.
func WithRoot(path string) Option {
	return func(c *Client) { c.rootPath = path }
}

// WithFS overrides the filesystem adapter entirely (used by tests to
// inject an in-memory fsadapter.FS).
func WithFS(fs fsadapter.FS) Option {
	return func(c *Client) { c.root = fs }
}

// WithRemoteURL overrides the remote base URL.
func WithRemoteURL(u *url.URL) Option {
	return func(c *Client) { c.remote = u }
}

// WithFetcher overrides the HTTP fetcher (used by tests to point at
// an httptest.Server, or to inject a transport with custom timeouts).
func WithFetcher(f *xfetch.Client) Option {
	return func(c *Client) { c.fetch = f }
}

// WithLogger overrides the structured logger. Defaults to
// logging.New("info").
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithLibraryVersion overrides the target library version used when
// resolving FileRevisions. Defaults to LibraryVersion.
func WithLibraryVersion(v manifest.Version) Option {
	return func(c *Client) { c.version = v }
}

// New constructs a Client. Defaults are resolved exactly as spec.md
// §6 describes: the cache root from AILOY_CACHE_ROOT or a per-OS user
// cache directory, and the remote URL from AILOY_REMOTE_CACHE_URL (or
// its alias AILOY_CACHE_REMOTE_URL) or the fallback project URL. An
// invalid remote URL env var is logged and falls back rather than
// panicking — this implementation takes spec.md §6's explicitly
// allowed "MAY log-and-fall-back" option.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		logger:    logging.New("info"),
		fetch:     xfetch.New(),
		manifests: make(map[string]*manifestSlot),
	}

	v, err := manifest.ParseVersion(LibraryVersion)
	if err != nil {
		return nil, fmt.Errorf("cache: parse default library version: %w", err)
	}
	c.version = v

	for _, opt := range opts {
		opt(c)
	}

	if c.rootPath == "" && c.root == nil {
		c.rootPath = defaultCacheRoot()
	}
	if c.root == nil {
		c.root = fsadapter.NewNative(c.rootPath)
	}

	if c.remote == nil {
		c.remote = resolveRemoteURL(c.logger)
	}

	return c, nil
}

func defaultCacheRoot() string {
	if root := os.Getenv("AILOY_CACHE_ROOT"); root != "" {
		return root
	}
	if runtime.GOOS == "windows" {
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return path.Join(filepathToSlash(dir), "ailoy")
		}
	}
	if runtime.GOOS == "js" {
		return "/ailoy"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ailoy-cache"
	}
	return path.Join(filepathToSlash(home), ".cache", "ailoy")
}

// filepathToSlash normalizes a native path's separators to "/" for
// joining with path.Join, which assumes forward slashes.
func filepathToSlash(p string) string {
	out := make([]rune, 0, len(p))
	for _, r := range p {
		if r == '\\' {
			r = '/'
		}
		out = append(out, r)
	}
	return string(out)
}

func resolveRemoteURL(logger *slog.Logger) *url.URL {
	raw := os.Getenv("AILOY_REMOTE_CACHE_URL")
	if raw == "" {
		raw = os.Getenv("AILOY_CACHE_REMOTE_URL")
	}
	if raw == "" {
		u, _ := url.Parse(defaultRemoteURL)
		return u
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		logger.Warn("invalid remote cache URL env var, falling back to default",
			"value", raw, "fallback", defaultRemoteURL, "error", err)
		u, _ = url.Parse(defaultRemoteURL)
		return u
	}
	return u
}

// manifestURL returns the remote URL for dirname's manifest.
func (c *Client) manifestURL(dirname string) string {
	u := *c.remote
	u.Path = path.Join(u.Path, dirname, manifestFilename)
	return u.String()
}

// blobURL returns the remote URL for a content-addressed blob.
func (c *Client) blobURL(dirname, sha1 string) string {
	u := *c.remote
	u.Path = path.Join(u.Path, dirname, sha1)
	return u.String()
}

// localDirname rewrites a logical dirname containing "/" (e.g. a
// model key "Qwen/Qwen3-0.6B") into its on-disk form ("Qwen--Qwen3-0.6B"),
// per spec.md §6's persisted state layout.
func localDirname(dirname string) string {
	out := make([]byte, 0, len(dirname))
	for i := 0; i < len(dirname); i++ {
		if dirname[i] == '/' {
			out = append(out, '-', '-')
			continue
		}
		out = append(out, dirname[i])
	}
	return string(out)
}

// GetManifest resolves entry's FileRevision: it fetches and parses
// dirname's directory manifest from the remote on first use per
// dirname per process (manifests are always authoritative from
// remote; there is no local cache check for manifests), then resolves
// entry.Filename against the client's target library version.
func (c *Client) GetManifest(ctx context.Context, entry Entry) (manifest.FileRevision, error) {
	dir, err := c.directoryManifest(ctx, entry.Dirname)
	if err != nil {
		return manifest.FileRevision{}, err
	}

	rev, err := dir.GetFileRevision(entry.Filename, c.version)
	if err != nil {
		kind := FileNotInManifest
		if _, ok := dir.Files[entry.Filename]; ok {
			kind = NoVersionMatch
		}
		return manifest.FileRevision{}, newError(kind, "GetManifest", err)
	}
	return rev, nil
}

// directoryManifest returns dirname's parsed manifest, fetching and
// parsing it at most once per dirname per process. Concurrent callers
// for the same dirname block on the same sync.Once; callers for
// distinct dirnames proceed independently under the read lock.
func (c *Client) directoryManifest(ctx context.Context, dirname string) (*manifest.Directory, error) {
	c.mu.RLock()
	slot, ok := c.manifests[dirname]
	c.mu.RUnlock()

	if !ok {
		c.mu.Lock()
		slot, ok = c.manifests[dirname]
		if !ok {
			slot = &manifestSlot{}
			c.manifests[dirname] = slot
		}
		c.mu.Unlock()
	}

	slot.once.Do(func() {
		data, err := c.fetch.Get(ctx, c.manifestURL(dirname))
		if err != nil {
			slot.err = newError(ManifestUnavailable, "GetManifest", err)
			return
		}
		dir, err := manifest.Decode(data)
		if err != nil {
			slot.err = newError(ManifestUnavailable, "GetManifest", err)
			return
		}
		slot.dir = dir
		c.logger.Debug("parsed directory manifest", "dirname", dirname)
	})

	return slot.dir, slot.err
}

// ListFiles returns every filename tracked in dirname's directory
// manifest, fetching and parsing it if not already cached in-process.
// Convenience used by prefetch-style callers that want to warm an
// entire dirname without a typed destination to drive the claim.
func (c *Client) ListFiles(ctx context.Context, dirname string) ([]string, error) {
	dir, err := c.directoryManifest(ctx, dirname)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(dir.Files))
	for name := range dir.Files {
		names = append(names, name)
	}
	return names, nil
}

// Get returns entry's bytes. If the local copy's SHA-1 matches the
// resolved revision it is returned as-is; otherwise the bytes are
// downloaded from the remote, written locally (creating parent
// directories), and returned. A downloaded payload whose SHA-1 does
// not match the claimed revision is an IntegrityMismatch and the
// local file is left untouched.
func (c *Client) Get(ctx context.Context, entry Entry) ([]byte, error) {
	rev, err := c.GetManifest(ctx, entry)
	if err != nil {
		return nil, err
	}

	localPath := path.Join(localDirname(entry.Dirname), entry.Filename)
	if c.root.Exists(ctx, localPath) {
		local, err := c.root.Read(ctx, localPath)
		if err == nil && rev.Matches(local) {
			return local, nil
		}
		// A stale local file (SHA mismatch) is not an error — it
		// triggers a re-fetch, per spec.md §7's explicit carve-out.
	}

	remoteURL := c.blobURL(entry.Dirname, rev.SHA1)
	body, err := c.fetch.Get(ctx, remoteURL)
	if err != nil {
		return nil, newError(NetworkError, "Get", err)
	}
	if !rev.Matches(body) {
		return nil, newError(IntegrityMismatch, "Get",
			fmt.Errorf("downloaded bytes for %s/%s do not match manifest sha1 %s", entry.Dirname, entry.Filename, rev.SHA1))
	}

	if err := c.root.Write(ctx, localPath, body, true); err != nil {
		return nil, newError(LocalIOError, "Get", err)
	}
	c.logger.Debug("fetched and stored entry", "dirname", entry.Dirname, "filename", entry.Filename, "size", len(body))
	return body, nil
}

// ResolvedPath returns entry's path relative to the cache root, after
// applying the dirname rewrite spec.md §6 specifies ("/" -> "--").
func (c *Client) ResolvedPath(entry Entry) string {
	return path.Join(localDirname(entry.Dirname), entry.Filename)
}

// Logger returns the client's structured logger, so callers in other
// packages (e.g. construct.TryCreate) can attach their own
// request-scoped fields to the same sink rather than constructing a
// second logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// Remove deletes entry's local copy. Idempotent on NotFound.
func (c *Client) Remove(ctx context.Context, entry Entry) error {
	localPath := path.Join(localDirname(entry.Dirname), entry.Filename)
	if err := c.root.Remove(ctx, localPath); err != nil {
		if errors.Is(err, fsadapter.ErrNotFound) {
			return nil
		}
		return newError(LocalIOError, "Remove", err)
	}
	return nil
}
