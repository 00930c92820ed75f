// Package vcs provides version control system abstractions.
package vcs

import (
	"context"
	"errors"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrBranchNotFound is returned when a named branch does not exist.
var ErrBranchNotFound = errors.New("branch not found")

// Repository provides access to git repository operations.
type Repository interface {
	// Head returns a reference to the HEAD commit.
	Head() (Reference, error)
	// Branches returns the short names of all local branches, sorted.
	Branches() ([]string, error)
	// ResolveBranch returns the reference of a local branch, falling back to
	// the remote-tracking branch of origin.
	ResolveBranch(name string) (Reference, error)
	// Log returns a commit iterator.
	Log(opts *LogOptions) (CommitIterator, error)
	// CommitObject returns the commit with the given hash.
	CommitObject(hash plumbing.Hash) (Commit, error)
}

// Reference represents a git reference (branch, tag, HEAD).
type Reference interface {
	Name() string
	Hash() plumbing.Hash
}

// LogOptions configures the commit log query.
type LogOptions struct {
	// From is the commit to start walking from. Zero means HEAD.
	From  plumbing.Hash
	Since *time.Time
	Until *time.Time
}

// CommitIterator iterates over commits.
type CommitIterator interface {
	ForEach(fn func(Commit) error) error
	Close()
}

// Commit represents a git commit.
type Commit interface {
	// Hash returns the commit hash.
	Hash() plumbing.Hash
	// NumParents returns the number of parent commits.
	NumParents() int
	// Parent returns the nth parent commit.
	Parent(n int) (Commit, error)
	// Tree returns the tree object for this commit.
	Tree() (Tree, error)
	// Author returns commit author information.
	Author() object.Signature
	// When returns the author time.
	When() time.Time
	// Message returns the commit message.
	Message() string
}

// TreeEntry represents a file in a git tree.
type TreeEntry struct {
	Path string
	Size int64
}

// Tree represents a git tree object.
type Tree interface {
	// Diff computes differences between this tree and another.
	Diff(to Tree) (Changes, error)
	// Entries returns all files in the tree (recursively).
	Entries() ([]TreeEntry, error)
}

// Changes represents a collection of file changes between trees.
type Changes []Change

// Change represents a single file change.
type Change interface {
	// FromName returns the source file name (empty for new files).
	FromName() string
	// ToName returns the destination file name (empty for deleted files).
	ToName() string
}

// CloneOptions configures a clone.
type CloneOptions struct {
	// Ref is a branch or tag to check out. Empty means the remote default.
	Ref string
	// Bare skips the worktree checkout.
	Bare bool
}

// Opener opens git repositories.
type Opener interface {
	// PlainOpen opens an existing git repository.
	PlainOpen(path string) (Repository, error)
	// PlainOpenWithDetect opens a git repository, detecting .git in parent directories.
	PlainOpenWithDetect(path string) (Repository, error)
	// Clone clones url into dir.
	Clone(ctx context.Context, url, dir string, opts CloneOptions) (Repository, error)
}
