// Package construct implements the typed-construction protocol: the
// two-phase claim_files / try_from_contents pipeline by which any
// destination type participates in cached construction without the
// cache knowing its schema (spec.md §4.4).
package construct

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/ailoy-run/ailoycache/cache"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Claim is produced by the claim phase: every CacheEntry the
// destination needs, plus whatever opaque context it recorded to pass
// partitioning information to the assembly phase (e.g. a composite
// type's sub-claim boundaries).
type Claim[C any] struct {
	Entries []cache.Entry
	Ctx     C
}

// Claimer is the first half of the protocol: declare which entries
// are needed to build a T for key. This phase is expected to be
// lightweight — it may inspect the cache (e.g. read a small index
// file) but should not perform heavy work.
type Claimer[C any] interface {
	ClaimFiles(ctx context.Context, cl *cache.Client, key string) (Claim[C], error)
}

// Assembler is the second half: consume the Contents the driver
// populated and produce T. A composite type partitions
// Contents.Entries() by the boundaries recorded in cctx and delegates
// each partition to its subcomponent's FromContents.
type Assembler[T any, C any] interface {
	FromContents(contents *Contents, cctx C) (T, error)
}

// Builder is the common shape a destination type provides: usually
// the same stateless value implements both halves.
type Builder[T any, C any] interface {
	Claimer[C]
	Assembler[T, C]
}

// Contents is the accumulator passed through one typed-construction
// invocation: the fetched bytes for every claimed entry, keyed and
// insertion-ordered.
type Contents struct {
	mu      sync.Mutex
	order   []cache.Entry
	byEntry map[cache.Entry][]byte
}

func newContents() *Contents {
	return &Contents{byEntry: make(map[cache.Entry][]byte)}
}

// set inserts or replaces entry's bytes. Duplicates on insertion
// replace earlier values, matching spec.md §3's CacheContents contract.
func (c *Contents) set(entry cache.Entry, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.byEntry[entry]; !exists {
		c.order = append(c.order, entry)
	}
	c.byEntry[entry] = data
}

// Get returns entry's bytes and whether they were present.
func (c *Contents) Get(entry cache.Entry) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.byEntry[entry]
	return b, ok
}

// Entries returns every populated entry in insertion order.
func (c *Contents) Entries() []cache.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]cache.Entry, len(c.order))
	copy(out, c.order)
	return out
}

// Len reports how many entries are currently populated.
func (c *Contents) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// RequireContents checks that contents holds exactly want — no
// missing entries, no unexpected extras — and is the standard way an
// Assembler validates what the claim phase promised before indexing
// into Contents.Get. A mismatch (wrong count or a missing filename)
// returns a *cache.Error with Kind cache.ContextMismatch (spec.md §7),
// rather than an Assembler-specific ad hoc error.
func RequireContents(contents *Contents, want []cache.Entry) error {
	if contents.Len() != len(want) {
		return &cache.Error{
			Kind: cache.ContextMismatch,
			Op:   "FromContents",
			Err:  fmt.Errorf("expected %d entries, got %d", len(want), contents.Len()),
		}
	}
	for _, entry := range want {
		if _, ok := contents.Get(entry); !ok {
			return &cache.Error{
				Kind: cache.ContextMismatch,
				Op:   "FromContents",
				Err:  fmt.Errorf("missing entry %s", entry.LocalPath()),
			}
		}
	}
	return nil
}

// Progress is one streamed event of a try_create call. Invariants:
// Current <= Total; Result is non-nil on exactly the terminal event
// (Current == Total).
type Progress[T any] struct {
	Comment string
	Current uint
	Total   uint
	Result  *T
}

// maxParallelFetches bounds how many entries TryCreate fetches at
// once, so a destination claiming hundreds of files doesn't open
// hundreds of sockets simultaneously.
const maxParallelFetches = 8

// TryCreate is the full typed-construction pipeline of spec.md §4.4,
// rendered as a Go 1.23 range-over-func iterator: a lazy, pull-driven
// sequence of progress events. No fetch starts before the consumer has
// pulled the "claimed" event. After that, up to maxParallelFetches
// entries are fetched at once, and each fetching goroutine blocks on an
// unbuffered channel send until the consumer's `for range` pulls its
// progress event, so at most maxParallelFetches fetches complete ahead
// of consumption. Stopping iteration early (`break`) cancels the
// internal context and aborts in-flight fetches.
func TryCreate[T any, C any](ctx context.Context, cl *cache.Client, key string, b Builder[T, C]) iter.Seq2[Progress[T], error] {
	return func(yield func(Progress[T], error) bool) {
		runID := uuid.NewString()
		log := cl.Logger().With("run_id", runID, "key", key)

		claim, err := b.ClaimFiles(ctx, cl, key)
		if err != nil {
			log.Warn("claim_files failed", "error", err)
			yield(Progress[T]{}, err)
			return
		}

		entries := dedupe(claim.Entries)
		total := uint(len(entries)) + 1
		log.Debug("claimed entries", "count", len(entries))

		if !yield(Progress[T]{Comment: "claimed", Current: 0, Total: total}, nil) {
			return
		}

		fetchCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		contents := newContents()
		progressCh := make(chan Progress[T])
		errCh := make(chan error, 1)

		go func() {
			defer close(progressCh)
			g, gctx := errgroup.WithContext(fetchCtx)
			g.SetLimit(maxParallelFetches)

			var mu sync.Mutex
			current := uint(0)

			for _, entry := range entries {
				entry := entry
				g.Go(func() error {
					data, err := cl.Get(gctx, entry)
					if err != nil {
						return err
					}
					contents.set(entry, data)

					mu.Lock()
					current++
					cur := current
					mu.Unlock()

					select {
					case progressCh <- Progress[T]{Comment: entry.Filename + " ready", Current: cur, Total: total}:
						return nil
					case <-gctx.Done():
						return gctx.Err()
					}
				})
			}

			if err := g.Wait(); err != nil {
				errCh <- err
			}
		}()

		fetchFailed := false
		for p := range progressCh {
			if !yield(p, nil) {
				cancel()
				return
			}
		}

		select {
		case err := <-errCh:
			fetchFailed = true
			log.Warn("fetch failed", "error", err)
			yield(Progress[T]{}, err)
		default:
		}
		if fetchFailed {
			return
		}

		result, err := b.FromContents(contents, claim.Ctx)
		if err != nil {
			log.Warn("assembly failed", "error", err)
			yield(Progress[T]{}, err)
			return
		}
		log.Debug("construction complete")

		yield(Progress[T]{Comment: "built", Current: total, Total: total, Result: &result}, nil)
	}
}

// dedupe removes duplicate entries while preserving first-seen order,
// so the cache fetches each distinct entry at most once per call even
// when a composite builder's sub-claims overlap.
func dedupe(entries []cache.Entry) []cache.Entry {
	seen := make(map[cache.Entry]struct{}, len(entries))
	out := make([]cache.Entry, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}
