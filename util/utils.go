package util

import (
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
)

// ReplaceExt swaps the extension of name for ext, which must include the dot.
func ReplaceExt(name, ext string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if base == "" {
		base = "media"
	}
	return base + ext
}

// QueryInt parses an optional integer query parameter, returning def when it
// is absent.
func QueryInt(q url.Values, key string, def int) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
