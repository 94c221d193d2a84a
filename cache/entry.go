package cache

import "path"

// Entry is a logical reference to one file within one logical
// directory: the unique key type for the cache. Entries are
// immutable value objects, hashable (usable as a map key) and
// totally ordered (lexicographic on Dirname then Filename).
type Entry struct {
	Dirname  string
	Filename string
}

// Less implements the pair's lexicographic total order.
func (e Entry) Less(o Entry) bool {
	if e.Dirname != o.Dirname {
		return e.Dirname < o.Dirname
	}
	return e.Filename < o.Filename
}

// LocalPath returns the entry's path relative to the cache root:
// dirname/filename, with any "/" in dirname rewritten to "--".
func (e Entry) LocalPath() string {
	return path.Join(localDirname(e.Dirname), e.Filename)
}

// manifestFilename is the directory's reserved manifest entry name.
const manifestFilename = "_manifest.json"

// manifestEntry returns the Entry identifying dirname's manifest file.
func manifestEntry(dirname string) Entry {
	return Entry{Dirname: dirname, Filename: manifestFilename}
}
