package asset

import (
	"path"
	"strings"

	"golang.org/x/text/cases"
)

// folder is only used from the game loop goroutine; Caser keeps state.
var folder = cases.Fold()

// NormalizeKey maps every spelling of a texture name to one cache key:
// case-folded, forward slashes, cleaned, no leading "./" or "/". A key that
// climbs above the texture root normalizes to "".
func NormalizeKey(key string) string {
	k := strings.ReplaceAll(strings.TrimSpace(key), "\\", "/")
	if k == "" {
		return ""
	}
	k = path.Clean(folder.String(k))
	k = strings.TrimLeft(k, "/")
	if k == "." || escapesRoot(k) {
		return ""
	}
	return k
}

// escapesRoot reports whether a cleaned relative key points above its root.
func escapesRoot(k string) bool {
	return k == ".." || strings.HasPrefix(k, "../")
}
