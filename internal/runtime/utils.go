package runtime

import (
	"path"
	"strings"
)

// --- helpers ---
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func formatOrNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "<none>"
	}
	return s
}

// topDir maps a repository path to the top-level directory holding it;
// files at the root map to ".".
func topDir(p string) string {
	dir := path.Dir(strings.TrimPrefix(p, "./"))
	top, _, _ := strings.Cut(dir, "/")
	return top
}

func lines(out string) []string {
	var res []string
	for _, l := range strings.Split(out, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			res = append(res, l)
		}
	}
	return res
}
