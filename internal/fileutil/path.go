package fileutil

import (
	"net/url"
	"strconv"
	"strings"
)

// PathSeparator separates segments in storage paths regardless of platform
const PathSeparator = "/"

// segments splits a path into its non-empty segments
func segments(p string) []string {
	parts := strings.Split(p, PathSeparator)
	out := parts[:0]
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// StrippedPath returns the path without leading, trailing or duplicate slashes.
// The root path strips to "".
func StrippedPath(p string) string {
	return strings.Join(segments(p), PathSeparator)
}

// Normalize returns the absolute form of a path, "/" for the root
func Normalize(p string) string {
	return PathSeparator + StrippedPath(p)
}

// IsRoot reports whether the path points at the storage root
func IsRoot(p string) bool {
	return StrippedPath(p) == ""
}

// IsWithin reports whether p is dir itself or lies below it
func IsWithin(p, dir string) bool {
	p, dir = Normalize(p), Normalize(dir)
	return IsRoot(dir) || p == dir || strings.HasPrefix(p, dir+PathSeparator)
}

// PathHierarchy returns every ancestor of a path including the path itself
// and excluding the root, e.g. "/a/b/c" gives ["/a", "/a/b", "/a/b/c"]
func PathHierarchy(p string) []string {
	segs := segments(p)
	paths := make([]string, 0, len(segs))
	current := ""
	for _, s := range segs {
		current += PathSeparator + s
		paths = append(paths, current)
	}
	return paths
}

// ParentPath returns the directory containing p. The parent of a top-level
// entry is "/"; the root has no parent and returns "".
func ParentPath(p string) string {
	segs := segments(p)
	if len(segs) == 0 {
		return ""
	}
	return Normalize(strings.Join(segs[:len(segs)-1], PathSeparator))
}

// JoinPaths joins path elements into a normalized absolute path
func JoinPaths(parts ...string) string {
	var all []string
	for _, p := range parts {
		all = append(all, segments(p)...)
	}
	return PathSeparator + strings.Join(all, PathSeparator)
}

// Basename returns the last segment of a path, "" for the root
func Basename(p string) string {
	segs := segments(p)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// EncodePath URL-encodes every segment of a path and keeps the separators
func EncodePath(p string) string {
	parts := strings.Split(p, PathSeparator)
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, PathSeparator)
}

// SplitExtension splits "report.tar.gz" into "report.tar" and ".gz".
// Names starting with a dot have no extension.
func SplitExtension(name string) (string, string) {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 {
		return name, ""
	}
	return name[:idx], name[idx:]
}

// UniqueFileName returns name, or "name (n).ext" with the smallest n for
// which taken reports false
func UniqueFileName(name string, taken func(string) bool) string {
	if !taken(name) {
		return name
	}
	base, ext := SplitExtension(name)
	for i := 1; ; i++ {
		candidate := base + " (" + strconv.Itoa(i) + ")" + ext
		if !taken(candidate) {
			return candidate
		}
	}
}
