package manifest

import (
	"fmt"
	"sort"
)

// FileRevision describes one concrete revision of a file inside a
// directory manifest: its content hash, advisory size, and the
// minimum library version it requires. HasVersion == false denotes the
// wildcard revision (its MinVersion is then the zero Version) — the
// fallback chosen when no versioned revision qualifies.
type FileRevision struct {
	Size       uint64
	SHA1       string
	MinVersion Version
	HasVersion bool // false for the wildcard revision
}

// IsWildcard reports whether this revision is the directory's
// fallback ("*") revision.
func (r FileRevision) IsWildcard() bool {
	return !r.HasVersion
}

// Directory is the decoded form of a directory's _manifest.json: the
// manifest schema version plus, for every tracked filename, its list
// of available revisions.
type Directory struct {
	Version string
	Files   map[string][]FileRevision
}

// NewDirectory returns an empty Directory at schema version "1", the
// only schema version this codec understands.
func NewDirectory() *Directory {
	return &Directory{Version: "1", Files: map[string][]FileRevision{}}
}

// Validate checks the structural invariants §3/§4.2 of the manifest
// model require, independent of how the Directory was constructed
// (JSON-decoded or built by hand in tests): every file's revision
// list is non-empty, and at most one revision per file is a
// wildcard. Run automatically by the JSON codec, and exported so
// hand-built directories (e.g. in tests) get the same guarantee.
func (d *Directory) Validate() error {
	if d.Version == "" {
		return fmt.Errorf("manifest: missing version")
	}
	for filename, revs := range d.Files {
		if len(revs) == 0 {
			return fmt.Errorf("manifest: file %q has no revisions", filename)
		}
		wildcards := 0
		seen := map[string]struct{}{}
		for _, r := range revs {
			if r.IsWildcard() {
				wildcards++
				continue
			}
			key := r.MinVersion.canonical()
			if _, dup := seen[key]; dup {
				return fmt.Errorf("manifest: file %q has duplicate min_version %q", filename, key)
			}
			seen[key] = struct{}{}
		}
		if wildcards > 1 {
			return fmt.Errorf("manifest: file %q has more than one wildcard revision", filename)
		}
	}
	return nil
}

// sortedRevisions returns revs sorted in descending MinVersion order,
// with the wildcard (lowest) last.
func sortedRevisions(revs []FileRevision) []FileRevision {
	out := make([]FileRevision, len(revs))
	copy(out, revs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MinVersion.Compare(out[j].MinVersion) > 0
	})
	return out
}
