// Package diffs classifies every file between two manifests. Comparison is
// by content hash only: equal sizes never imply equal content, and no file
// is re-read once both manifests exist.
package diffs

import (
	"github.com/orion-system/patchforge/manifest"
)

type Class string

const (
	Added     Class = "added"
	Modified  Class = "modified"
	Unchanged Class = "unchanged"
	Removed   Class = "removed"
)

type Entry struct {
	Path  string
	Class Class
	// Old and New are set where the file exists on that side.
	Old *manifest.FileEntry
	New *manifest.FileEntry
}

type Result struct {
	// Entries are ordered by path, covering the union of both trees.
	Entries []Entry
}

// Classify walks both manifests in parallel. Both file lists are already
// path-sorted, so a single merge pass covers the union.
func Classify(old, new *manifest.Manifest) Result {
	out := Result{Entries: make([]Entry, 0, len(new.Files))}
	i, j := 0, 0
	for i < len(old.Files) || j < len(new.Files) {
		switch {
		case j >= len(new.Files) || (i < len(old.Files) && old.Files[i].Path < new.Files[j].Path):
			o := old.Files[i]
			out.Entries = append(out.Entries, Entry{Path: o.Path, Class: Removed, Old: &o})
			i++
		case i >= len(old.Files) || old.Files[i].Path > new.Files[j].Path:
			n := new.Files[j]
			out.Entries = append(out.Entries, Entry{Path: n.Path, Class: Added, New: &n})
			j++
		default:
			o := old.Files[i]
			n := new.Files[j]
			class := Unchanged
			if o.SHA256 != n.SHA256 {
				class = Modified
			}
			out.Entries = append(out.Entries, Entry{Path: n.Path, Class: class, Old: &o, New: &n})
			i++
			j++
		}
	}
	return out
}

// Changed returns the Added and Modified entries in path order; these are
// the only classes that produce patch blobs.
func (r Result) Changed() []Entry {
	out := []Entry{}
	for _, e := range r.Entries {
		if e.Class == Added || e.Class == Modified {
			out = append(out, e)
		}
	}
	return out
}

func (r Result) Count(c Class) int {
	n := 0
	for _, e := range r.Entries {
		if e.Class == c {
			n++
		}
	}
	return n
}
