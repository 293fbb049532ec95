package paths

import (
	"path"
	"strings"
	"time"
)

/* Structs */

type Path struct {
	Path         string
	FileName     string
	Directory    string
	Size         int64
	ModifiedTime time.Time
}

/* Public */

// Key normalises p for equivalence checks: separators are unified and the
// path is cleaned; with foldCase the result is lower-cased as well.
func Key(p string, foldCase bool) string {
	k := path.Clean(strings.ReplaceAll(p, "\\", "/"))
	if foldCase {
		k = strings.ToLower(k)
	}

	return k
}

// Equivalent reports whether a and b name the same path.
func Equivalent(a string, b string, foldCase bool) bool {
	return Key(a, foldCase) == Key(b, foldCase)
}
