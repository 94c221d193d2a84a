package construct

import (
	"context"
	"iter"

	"github.com/ailoy-run/ailoycache/cache"
)

// FetchedEntry is one completed fetch emitted by PrepareFiles.
type FetchedEntry struct {
	Entry cache.Entry
	Index uint
	Total uint
	Bytes []byte
}

// PrepareFiles performs a Claimer's claim phase for key and streams
// one FetchedEntry per completed fetch, without ever assembling a
// typed result — the cache-warming convenience spec.md §4.3 describes
// as `prepare_files`. Any Claimer works here; the Assembler half is
// irrelevant since nothing is assembled.
func PrepareFiles[C any](ctx context.Context, cl *cache.Client, key string, claimer Claimer[C]) iter.Seq2[FetchedEntry, error] {
	return func(yield func(FetchedEntry, error) bool) {
		claim, err := claimer.ClaimFiles(ctx, cl, key)
		if err != nil {
			yield(FetchedEntry{}, err)
			return
		}

		entries := dedupe(claim.Entries)
		total := uint(len(entries))

		for i, entry := range entries {
			data, err := cl.Get(ctx, entry)
			if err != nil {
				yield(FetchedEntry{}, err)
				return
			}
			if !yield(FetchedEntry{Entry: entry, Index: uint(i + 1), Total: total, Bytes: data}, nil) {
				return
			}
		}
	}
}
