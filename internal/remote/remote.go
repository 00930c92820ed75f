// Package remote resolves analysis targets that name a remote repository and
// clones them into a temporary directory.
package remote

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/panbanda/corel/internal/vcs"
)

// Source represents a remote repository to analyze.
type Source struct {
	URL      string // normalized git URL
	Ref      string // branch or tag (empty = default branch)
	CloneDir string // directory holding the clone, set by Clone

	preserve bool
}

var (
	schemePattern = regexp.MustCompile(`^(https?|ssh|git|file)://`)
	scpPattern    = regexp.MustCompile(`^[A-Za-z0-9._-]+@[^:/]+:.+`)
	hostPattern   = regexp.MustCompile(`^[A-Za-z0-9-]+(\.[A-Za-z0-9-]+)+/[^/]+/.+`)
	unsafeRun     = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// Parse detects if a path is a remote reference.
// Returns nil if path exists on filesystem (local path takes precedence) or
// is not recognized as remote.
func Parse(path string) (*Source, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("empty repository target")
	}
	if _, err := os.Stat(path); err == nil {
		return nil, nil
	}

	// path@ref, where the @ comes after the last slash so that user@host
	// forms are left alone.
	ref := ""
	if idx := strings.LastIndex(path, "@"); idx > strings.LastIndex(path, "/") && idx > strings.LastIndex(path, ":") {
		ref = path[idx+1:]
		path = path[:idx]
	}

	switch {
	case schemePattern.MatchString(path), scpPattern.MatchString(path):
		return &Source{URL: path, Ref: ref}, nil
	case hostPattern.MatchString(path):
		return &Source{URL: "https://" + path, Ref: ref}, nil
	case isGitHubShorthand(path):
		return &Source{URL: "https://github.com/" + path, Ref: ref}, nil
	}
	return nil, nil
}

// isGitHubShorthand returns true if path matches owner/repo pattern.
func isGitHubShorthand(path string) bool {
	slashIdx := strings.Index(path, "/")
	if slashIdx == -1 {
		return false
	}
	// Must have exactly one slash
	if strings.Count(path, "/") != 1 {
		return false
	}
	// No dots before the slash (would indicate a domain)
	if strings.Contains(path[:slashIdx], ".") {
		return false
	}
	return slashIdx > 0 && slashIdx < len(path)-1
}

// RepoID returns a filesystem-safe name for the source.
func (s *Source) RepoID() string {
	id := schemePattern.ReplaceAllString(s.URL, "")
	id = strings.TrimSuffix(id, ".git")
	id = unsafeRun.ReplaceAllString(id, "_")
	return strings.Trim(id, "_")
}

// Clone bare-clones the source into a directory named after RepoID under
// baseDir, replacing any previous clone there. With preserve the directory
// survives Cleanup.
func (s *Source) Clone(ctx context.Context, opener vcs.Opener, baseDir string, preserve bool) (vcs.Repository, error) {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create clone directory: %w", err)
	}

	dir := filepath.Join(baseDir, s.RepoID())
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("failed to clear clone directory: %w", err)
	}

	repo, err := opener.Clone(ctx, s.URL, dir, vcs.CloneOptions{Ref: s.Ref, Bare: true})
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to clone %s: %w", s.URL, err)
	}

	s.CloneDir = dir
	s.preserve = preserve
	return repo, nil
}

// Cleanup removes the clone directory unless it was preserved.
func (s *Source) Cleanup() error {
	if s.CloneDir == "" || s.preserve {
		return nil
	}
	err := os.RemoveAll(s.CloneDir)
	s.CloneDir = ""
	return err
}
