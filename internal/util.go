package internal

import (
	"path"
	"strings"

	"github.com/pg9182/vpk"
)

// MatchGlobParents is like path.Match, but will match if any component matches
// with optional anchoring. Both the pattern and name are normalized like VPK
// filenames first, so matching is case-insensitive.
func MatchGlobParents(pattern string, name string) (matched bool, err error) {
	// check if anchored
	pattern, anchor := strings.CutPrefix(strings.ReplaceAll(pattern, "\\", "/"), "/")

	// remove consecutive and extra leading/trailing slashes
	pattern = vpk.Normalize(pattern)
	name = vpk.Normalize(name)

	// special case: if anchored but empty, match everything
	if anchor && pattern == "" {
		return true, nil
	}

	for name != "" {
		// test against the full path
		if m, err := path.Match(pattern, name); m || err != nil {
			return m, err
		}
		parent, base := path.Split(name)
		if !anchor {
			// test against the just the current basename
			if m, err := path.Match(pattern, base); m || err != nil {
				return m, err
			}
		}
		name = strings.TrimRight(parent, "/")
	}
	return false, nil
}
