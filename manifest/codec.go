package manifest

import (
	"encoding/json"
	"fmt"
)

// wireDirectory is the on-wire shape of _manifest.json:
//
//	{
//	  "version": "1",
//	  "files": {
//	    "<filename>": {
//	      "<min-version-or-'*'>": { "size": <uint64>, "sha1": "<hex40>" },
//	      ...
//	    }
//	  }
//	}
type wireDirectory struct {
	Version string                                 `json:"version"`
	Files   map[string]map[string]json.RawMessage `json:"files"`
}

type wireRev struct {
	Size uint64 `json:"size"`
	SHA1 string `json:"sha1"`
}

// ErrDuplicateRevision is returned by Decode when two min_version keys
// of a single file entry parse to the same version (e.g. "1.2.3" and
// "v1.2.3"). A key repeated verbatim in the JSON text is not detected:
// encoding/json keeps only its last occurrence.
var ErrDuplicateRevision = fmt.Errorf("manifest: duplicate min_version key")

// Decode parses the JSON bytes of a _manifest.json document.
func Decode(data []byte) (*Directory, error) {
	var w wireDirectory
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("manifest: decode: %w", err)
	}

	d := &Directory{Version: w.Version, Files: make(map[string][]FileRevision, len(w.Files))}
	for filename, revs := range w.Files {
		if len(revs) == 0 {
			return nil, fmt.Errorf("manifest: file %q has no revisions", filename)
		}
		parsed := make([]FileRevision, 0, len(revs))
		seen := map[string]struct{}{}
		for key, raw := range revs {
			// Decode into a presence probe first: wireRev.Size is a
			// plain uint64, so an absent "size" key is otherwise
			// indistinguishable from an explicit "size":0, and zero-byte
			// files are a valid boundary case (spec §8) that must still
			// decode successfully when size is actually present.
			var probe map[string]json.RawMessage
			if err := json.Unmarshal(raw, &probe); err != nil {
				return nil, fmt.Errorf("manifest: file %q revision %q: %w", filename, key, err)
			}
			if _, ok := probe["size"]; !ok {
				return nil, fmt.Errorf("manifest: file %q revision %q: missing size", filename, key)
			}
			if _, ok := probe["sha1"]; !ok {
				return nil, fmt.Errorf("manifest: file %q revision %q: missing sha1", filename, key)
			}
			var wr wireRev
			if err := json.Unmarshal(raw, &wr); err != nil {
				return nil, fmt.Errorf("manifest: file %q revision %q: %w", filename, key, err)
			}
			fr := FileRevision{Size: wr.Size, SHA1: wr.SHA1}
			dedupKey := key
			if key == "*" {
				fr.HasVersion = false
			} else {
				v, err := ParseVersion(key)
				if err != nil {
					return nil, fmt.Errorf("manifest: file %q: %w", filename, err)
				}
				fr.MinVersion = v
				fr.HasVersion = true
				dedupKey = v.canonical()
			}
			if _, dup := seen[dedupKey]; dup {
				return nil, fmt.Errorf("%w: file %q key %q", ErrDuplicateRevision, filename, key)
			}
			seen[dedupKey] = struct{}{}
			parsed = append(parsed, fr)
		}
		d.Files[filename] = parsed
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// outDirectory is wireDirectory's encode-side counterpart: Decode
// reads each revision as json.RawMessage first to detect missing
// keys, but Encode always has concrete values to write, so it uses
// wireRev directly.
type outDirectory struct {
	Version string                        `json:"version"`
	Files   map[string]map[string]wireRev `json:"files"`
}

// Encode serializes a Directory back to the wire JSON shape. The
// wildcard revision is always emitted under the key "*". Round-trips
// losslessly modulo the inner map's insertion order, which JSON
// marshaling of a Go map does not preserve — callers that need a
// byte-stable encoding should compare decoded structures, not bytes.
func Encode(d *Directory) ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	w := outDirectory{Version: d.Version, Files: make(map[string]map[string]wireRev, len(d.Files))}
	for filename, revs := range d.Files {
		inner := make(map[string]wireRev, len(revs))
		for _, r := range revs {
			key := "*"
			if r.HasVersion {
				key = r.MinVersion.String()
			}
			inner[key] = wireRev{Size: r.Size, SHA1: r.SHA1}
		}
		w.Files[filename] = inner
	}
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("manifest: encode: %w", err)
	}
	return data, nil
}
