// Package collect reads revisions from a git repository.
package collect

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/sirupsen/logrus"

	"github.com/panbanda/corel/internal/vcs"
	"github.com/panbanda/corel/pkg/models"
)

// DefaultBranch is preferred when no branch is configured.
const DefaultBranch = "master"

// Options filters the collected history.
type Options struct {
	// Branch to walk. Empty selects DefaultBranch when present, else the
	// first branch, else HEAD.
	Branch string
	// Limit caps the number of single-parent commits examined, newest
	// first. Zero means unlimited.
	Limit int
	// From and To bound commit times in epoch milliseconds. Values <= 0
	// leave that side unbounded.
	From int64
	To   int64
	// Extensions keeps only files with one of these extensions. Empty keeps
	// every file.
	Extensions []string
	// IgnoreStrings drops files whose lower-cased path contains any entry.
	IgnoreStrings []string
}

// Normalize lower-cases and sorts the filter lists, dropping blanks and
// duplicates.
func (o Options) Normalize() Options {
	o.Extensions = normalizeList(o.Extensions, func(s string) string {
		return strings.TrimPrefix(s, ".")
	})
	o.IgnoreStrings = normalizeList(o.IgnoreStrings, nil)
	return o
}

// Key returns a stable description of the options for cache keys.
func (o Options) Key() string {
	n := o.Normalize()
	return strings.Join([]string{
		"branch=" + n.Branch,
		"limit=" + strconv.Itoa(n.Limit),
		"from=" + strconv.FormatInt(n.From, 10),
		"to=" + strconv.FormatInt(n.To, 10),
		"ext=" + strings.Join(n.Extensions, ","),
		"ignore=" + strings.Join(n.IgnoreStrings, ","),
	}, ";")
}

func normalizeList(in []string, fn func(string) string) []string {
	var out []string
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if fn != nil {
			s = fn(s)
		}
		if s == "" || slices.Contains(out, s) {
			continue
		}
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// GitCollector collects revisions from one branch of a repository.
type GitCollector struct {
	repo   vcs.Repository
	opts   Options
	logger *logrus.Logger
	onTick func()

	latest *models.Revision
}

// Option is a functional option for configuring GitCollector.
type Option func(*GitCollector)

// WithLogger sets the logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(c *GitCollector) {
		c.logger = logger
	}
}

// WithProgress registers a callback invoked once per examined commit.
func WithProgress(fn func()) Option {
	return func(c *GitCollector) {
		c.onTick = fn
	}
}

// NewGitCollector creates a collector over repo.
func NewGitCollector(repo vcs.Repository, opts Options, fns ...Option) *GitCollector {
	c := &GitCollector{
		repo:   repo,
		opts:   opts.Normalize(),
		logger: logrus.StandardLogger(),
	}
	for _, fn := range fns {
		fn(c)
	}
	return c
}

// ResolveStart returns the reference the collector walks from.
func (c *GitCollector) ResolveStart() (vcs.Reference, error) {
	if c.opts.Branch != "" {
		return c.repo.ResolveBranch(c.opts.Branch)
	}

	branches, err := c.repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	switch {
	case slices.Contains(branches, DefaultBranch):
		return c.repo.ResolveBranch(DefaultBranch)
	case len(branches) > 0:
		return c.repo.ResolveBranch(branches[0])
	}
	return c.repo.Head()
}

// Collect walks the branch history newest first and returns the revisions
// that touch at least one kept file. Merge and root commits are skipped.
func (c *GitCollector) Collect(ctx context.Context) ([]*models.Revision, error) {
	start, err := c.ResolveStart()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve branch: %w", err)
	}

	iter, err := c.repo.Log(&vcs.LogOptions{From: start.Hash()})
	if err != nil {
		return nil, fmt.Errorf("failed to read commit log: %w", err)
	}
	defer iter.Close()

	var (
		revisions    []*models.Revision
		latestCommit vcs.Commit
		examined     int
		skipped      int
	)
	err = iter.ForEach(func(commit vcs.Commit) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if c.opts.Limit > 0 && examined >= c.opts.Limit {
			return storer.ErrStop
		}

		when := commit.When().UnixMilli()
		if c.opts.From > 0 && when < c.opts.From {
			return nil
		}
		if c.opts.To > 0 && when > c.opts.To {
			return nil
		}
		if commit.NumParents() != 1 {
			skipped++
			return nil
		}

		examined++
		if c.onTick != nil {
			c.onTick()
		}

		rev, err := c.revisionOf(commit)
		if err != nil {
			return err
		}
		if rev.FileCount() == 0 {
			return nil
		}

		if latestCommit == nil || commit.When().After(latestCommit.When()) {
			latestCommit = commit
		}
		revisions = append(revisions, rev)
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, err
	}

	c.latest = nil
	if latestCommit != nil {
		if c.latest, err = listTree(latestCommit); err != nil {
			return nil, fmt.Errorf("failed to list latest revision: %w", err)
		}
	}

	c.logger.WithFields(logrus.Fields{
		"branch":    start.Name(),
		"head":      start.Hash().String(),
		"examined":  examined,
		"skipped":   skipped,
		"revisions": len(revisions),
	}).Info("collected revisions")

	models.SortRevisions(revisions)
	return revisions, nil
}

// Latest returns the full file listing of the newest collected commit, or
// nil before Collect or when nothing was collected.
func (c *GitCollector) Latest() *models.Revision {
	return c.latest
}

// Head returns the hash of the commit Collect starts from.
func (c *GitCollector) Head() (plumbing.Hash, error) {
	ref, err := c.ResolveStart()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return ref.Hash(), nil
}

func (c *GitCollector) revisionOf(commit vcs.Commit) (*models.Revision, error) {
	parent, err := commit.Parent(0)
	if err != nil {
		return nil, fmt.Errorf("commit %s: failed to load parent: %w", commit.Hash(), err)
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return nil, fmt.Errorf("commit %s: failed to load parent tree: %w", commit.Hash(), err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("commit %s: failed to load tree: %w", commit.Hash(), err)
	}
	changes, err := parentTree.Diff(tree)
	if err != nil {
		return nil, fmt.Errorf("commit %s: failed to diff: %w", commit.Hash(), err)
	}

	rev := models.NewRevision(
		commit.Hash().String(),
		commit.When().UnixMilli(),
		commit.Author().Name,
		strings.TrimSpace(commit.Message()),
	)
	for _, change := range changes {
		path := change.ToName()
		if path == "" {
			path = change.FromName()
		}
		file := models.NewFileName(path)
		if c.keep(file) {
			rev.AddFile(file)
		}
	}

	c.logger.WithFields(logrus.Fields{
		"commit": commit.Hash().String(),
		"files":  rev.FileCount(),
	}).Debug("read commit")
	return rev, nil
}

func (c *GitCollector) keep(file models.FileName) bool {
	if len(c.opts.Extensions) > 0 && !slices.Contains(c.opts.Extensions, file.Extension()) {
		return false
	}
	for _, s := range c.opts.IgnoreStrings {
		if strings.Contains(file.String(), s) {
			return false
		}
	}
	return true
}

func listTree(commit vcs.Commit) (*models.Revision, error) {
	tree, err := commit.Tree()
	if err != nil {
		return nil, err
	}
	entries, err := tree.Entries()
	if err != nil {
		return nil, err
	}
	rev := models.NewRevision(commit.Hash().String(), commit.When().UnixMilli(), commit.Author().Name, "")
	for _, e := range entries {
		rev.AddPath(e.Path)
	}
	return rev, nil
}
