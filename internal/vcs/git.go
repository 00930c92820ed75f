package vcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrInvalidType is returned when a type assertion fails for vcs types.
var ErrInvalidType = errors.New("invalid type")

// GitOpener opens git repositories using go-git.
type GitOpener struct {
	// Progress receives clone progress output. Nil discards it.
	Progress io.Writer
}

// NewGitOpener creates a new GitOpener.
func NewGitOpener() *GitOpener {
	return &GitOpener{}
}

// PlainOpen opens an existing git repository.
func (o *GitOpener) PlainOpen(path string) (Repository, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, err
	}
	return &gitRepository{repo: repo}, nil
}

// PlainOpenWithDetect opens a git repository, detecting .git in parent directories.
func (o *GitOpener) PlainOpenWithDetect(path string) (Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, err
	}
	return &gitRepository{repo: repo}, nil
}

// Clone clones url into dir. A ref is tried as a branch first, then as a tag.
func (o *GitOpener) Clone(ctx context.Context, url, dir string, opts CloneOptions) (Repository, error) {
	cloneOpts := &git.CloneOptions{
		URL:      url,
		Progress: o.Progress,
	}
	if opts.Ref == "" {
		repo, err := git.PlainCloneContext(ctx, dir, opts.Bare, cloneOpts)
		if err != nil {
			return nil, err
		}
		return &gitRepository{repo: repo}, nil
	}

	cloneOpts.SingleBranch = true
	cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(opts.Ref)
	repo, err := git.PlainCloneContext(ctx, dir, opts.Bare, cloneOpts)
	if err == nil {
		return &gitRepository{repo: repo}, nil
	}

	cloneOpts.ReferenceName = plumbing.NewTagReferenceName(opts.Ref)
	repo, tagErr := git.PlainCloneContext(ctx, dir, opts.Bare, cloneOpts)
	if tagErr != nil {
		return nil, fmt.Errorf("ref %q is neither a branch nor a tag: %w", opts.Ref, err)
	}
	return &gitRepository{repo: repo}, nil
}

// gitRepository wraps go-git Repository.
type gitRepository struct {
	repo *git.Repository
}

func (r *gitRepository) Head() (Reference, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return nil, err
	}
	return &gitReference{ref: ref}, nil
}

func (r *gitRepository) Branches() ([]string, error) {
	iter, err := r.repo.Branches()
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(names)
	return names, nil
}

func (r *gitRepository) ResolveBranch(name string) (Reference, error) {
	ref, err := r.repo.Reference(plumbing.NewBranchReferenceName(name), true)
	if err == nil {
		return &gitReference{ref: ref}, nil
	}
	if !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, err
	}
	ref, err = r.repo.Reference(plumbing.NewRemoteReferenceName(git.DefaultRemoteName, name), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, fmt.Errorf("%s: %w", name, ErrBranchNotFound)
		}
		return nil, err
	}
	return &gitReference{ref: ref}, nil
}

func (r *gitRepository) Log(opts *LogOptions) (CommitIterator, error) {
	gitOpts := &git.LogOptions{Order: git.LogOrderCommitterTime}
	if opts != nil {
		gitOpts.From = opts.From
		gitOpts.Since = opts.Since
		gitOpts.Until = opts.Until
	}
	iter, err := r.repo.Log(gitOpts)
	if err != nil {
		return nil, err
	}
	return &gitCommitIterator{iter: iter}, nil
}

func (r *gitRepository) CommitObject(hash plumbing.Hash) (Commit, error) {
	commit, err := r.repo.CommitObject(hash)
	if err != nil {
		return nil, err
	}
	return &gitCommit{commit: commit}, nil
}

// gitReference wraps go-git Reference.
type gitReference struct {
	ref *plumbing.Reference
}

func (r *gitReference) Name() string {
	return r.ref.Name().Short()
}

func (r *gitReference) Hash() plumbing.Hash {
	return r.ref.Hash()
}

// gitCommitIterator wraps go-git CommitIter.
type gitCommitIterator struct {
	iter object.CommitIter
}

func (i *gitCommitIterator) ForEach(fn func(Commit) error) error {
	return i.iter.ForEach(func(c *object.Commit) error {
		return fn(&gitCommit{commit: c})
	})
}

func (i *gitCommitIterator) Close() {
	i.iter.Close()
}

// gitCommit wraps go-git Commit.
type gitCommit struct {
	commit *object.Commit
}

func (c *gitCommit) Hash() plumbing.Hash {
	return c.commit.Hash
}

func (c *gitCommit) NumParents() int {
	return c.commit.NumParents()
}

func (c *gitCommit) Parent(n int) (Commit, error) {
	parent, err := c.commit.Parent(n)
	if err != nil {
		return nil, err
	}
	return &gitCommit{commit: parent}, nil
}

func (c *gitCommit) Tree() (Tree, error) {
	tree, err := c.commit.Tree()
	if err != nil {
		return nil, err
	}
	return &gitTree{tree: tree}, nil
}

func (c *gitCommit) Author() object.Signature {
	return c.commit.Author
}

func (c *gitCommit) When() time.Time {
	return c.commit.Author.When
}

func (c *gitCommit) Message() string {
	return c.commit.Message
}

// gitTree wraps go-git Tree.
type gitTree struct {
	tree *object.Tree
}

func (t *gitTree) Diff(to Tree) (Changes, error) {
	gt, ok := to.(*gitTree)
	if !ok {
		return nil, ErrInvalidType
	}
	objChanges, err := t.tree.Diff(gt.tree)
	if err != nil {
		return nil, err
	}
	changes := make(Changes, len(objChanges))
	for i, c := range objChanges {
		changes[i] = &gitChange{change: c}
	}
	return changes, nil
}

func (t *gitTree) Entries() ([]TreeEntry, error) {
	var entries []TreeEntry
	err := t.tree.Files().ForEach(func(f *object.File) error {
		if f.Mode == filemode.Submodule {
			return nil
		}
		entries = append(entries, TreeEntry{Path: f.Name, Size: f.Size})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// gitChange wraps go-git Change.
type gitChange struct {
	change *object.Change
}

func (c *gitChange) FromName() string {
	return c.change.From.Name
}

func (c *gitChange) ToName() string {
	return c.change.To.Name
}

// Default opener singleton
var defaultOpener Opener = NewGitOpener()

// DefaultOpener returns the default git opener.
func DefaultOpener() Opener {
	return defaultOpener
}

// SetDefaultOpener sets the default git opener (useful for testing).
func SetDefaultOpener(opener Opener) {
	defaultOpener = opener
}
