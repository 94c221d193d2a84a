package manifest

import "fmt"

// ErrFileNotFound is returned by GetFileRevision when the filename is
// absent from the directory manifest entirely.
var ErrFileNotFound = fmt.Errorf("manifest: file not found")

// ErrNoVersionMatch is returned by GetFileRevision when the filename
// exists but no revision (versioned or wildcard) satisfies target.
var ErrNoVersionMatch = fmt.Errorf("manifest: no revision matches target version")

// GetFileRevision resolves the single best FileRevision for filename
// against target, per §4.2's algorithm:
//
//  1. If filename is absent, ErrFileNotFound.
//  2. Sort revisions descending by MinVersion, wildcard lowest.
//  3. Walk the sorted list; accept the first versioned revision whose
//     MinVersion <= target.
//  4. If none qualify, fall back to the wildcard revision if present.
//  5. Otherwise ErrNoVersionMatch.
func (d *Directory) GetFileRevision(filename string, target Version) (FileRevision, error) {
	revs, ok := d.Files[filename]
	if !ok {
		return FileRevision{}, fmt.Errorf("%w: %q", ErrFileNotFound, filename)
	}

	sorted := sortedRevisions(revs)
	var wildcard *FileRevision
	for i := range sorted {
		r := sorted[i]
		if r.IsWildcard() {
			wc := r
			wildcard = &wc
			continue
		}
		if target.GreaterThanOrEqual(r.MinVersion) {
			return r, nil
		}
	}
	if wildcard != nil {
		return *wildcard, nil
	}
	return FileRevision{}, fmt.Errorf("%w: %q at %s", ErrNoVersionMatch, filename, target)
}

// GetFileRevisions resolves every filename in the directory against
// target, skipping filenames with no match (ErrNoVersionMatch is not
// propagated — it just omits that filename from the result).
func (d *Directory) GetFileRevisions(target Version) map[string]FileRevision {
	out := make(map[string]FileRevision, len(d.Files))
	for filename := range d.Files {
		rev, err := d.GetFileRevision(filename, target)
		if err != nil {
			continue
		}
		out[filename] = rev
	}
	return out
}
