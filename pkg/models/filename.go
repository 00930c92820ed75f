package models

import "strings"

// FileName is a repository-relative path normalized to lower case.
// Two FileNames are equal when their normalized strings are equal and they
// order lexicographically on that string.
type FileName string

// NewFileName normalizes a path into a FileName.
func NewFileName(path string) FileName {
	return FileName(strings.ToLower(path))
}

// String returns the normalized path.
func (f FileName) String() string {
	return string(f)
}

// Extension returns the substring after the last '.', or "" when there is none.
func (f FileName) Extension() string {
	s := string(f)
	idx := strings.LastIndex(s, ".")
	if idx < 0 {
		return ""
	}
	return s[idx+1:]
}

// Parent returns the directory part including the trailing '/', or "/" for
// files at the repository root.
func (f FileName) Parent() string {
	s := string(f)
	idx := strings.LastIndex(s, "/")
	if idx < 0 {
		return "/"
	}
	return s[:idx+1]
}

// Name returns the last path segment without its extension.
func (f FileName) Name() string {
	s := string(f)
	if idx := strings.LastIndex(s, "/"); idx >= 0 {
		s = s[idx+1:]
	}
	if idx := strings.LastIndex(s, "."); idx >= 0 {
		return s[:idx]
	}
	return s
}

// Compare returns -1, 0 or 1 comparing f and other on the normalized path.
func (f FileName) Compare(other FileName) int {
	return strings.Compare(string(f), string(other))
}
