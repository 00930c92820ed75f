package vcs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewGitOpener(t *testing.T) {
	opener := NewGitOpener()
	if opener == nil {
		t.Fatal("NewGitOpener() returned nil")
	}
}

func TestGitOpener_PlainOpen(t *testing.T) {
	repoPath := initTestRepo(t)

	repo, err := NewGitOpener().PlainOpen(repoPath)
	if err != nil {
		t.Fatalf("PlainOpen() error = %v", err)
	}
	if repo == nil {
		t.Fatal("PlainOpen() returned nil repository")
	}
}

func TestGitOpener_PlainOpen_NonExistent(t *testing.T) {
	_, err := NewGitOpener().PlainOpen("/nonexistent/path")
	if err == nil {
		t.Error("PlainOpen() should return error for non-existent path")
	}
}

func TestGitOpener_PlainOpenWithDetect(t *testing.T) {
	repoPath := initTestRepo(t)

	subDir := filepath.Join(repoPath, "subdir")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}

	repo, err := NewGitOpener().PlainOpenWithDetect(subDir)
	if err != nil {
		t.Fatalf("PlainOpenWithDetect() error = %v", err)
	}
	if repo == nil {
		t.Fatal("PlainOpenWithDetect() returned nil repository")
	}
}

func TestGitRepository_Head(t *testing.T) {
	repoPath, gitRepo := initTestRepoWithCommits(t, 1)

	repo := mustOpen(t, repoPath)
	head, err := repo.Head()
	if err != nil {
		t.Fatalf("Head() error = %v", err)
	}
	if head.Hash().IsZero() {
		t.Error("Hash() returned zero hash")
	}

	want, _ := gitRepo.Head()
	if head.Name() != want.Name().Short() {
		t.Errorf("Name() = %q, want %q", head.Name(), want.Name().Short())
	}
}

func TestGitRepository_Branches(t *testing.T) {
	repoPath, gitRepo := initTestRepoWithCommits(t, 1)
	head, _ := gitRepo.Head()
	for _, name := range []string{"feature", "alpha"} {
		ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), head.Hash())
		if err := gitRepo.Storer.SetReference(ref); err != nil {
			t.Fatal(err)
		}
	}

	branches, err := mustOpen(t, repoPath).Branches()
	if err != nil {
		t.Fatalf("Branches() error = %v", err)
	}
	want := []string{"alpha", "feature", head.Name().Short()}
	slices.Sort(want)
	if !slices.Equal(branches, want) {
		t.Errorf("Branches() = %v, want %v", branches, want)
	}
}

func TestGitRepository_ResolveBranch(t *testing.T) {
	repoPath, gitRepo := initTestRepoWithCommits(t, 2)
	head, _ := gitRepo.Head()
	remoteRef := plumbing.NewHashReference(plumbing.NewRemoteReferenceName("origin", "release"), head.Hash())
	if err := gitRepo.Storer.SetReference(remoteRef); err != nil {
		t.Fatal(err)
	}

	repo := mustOpen(t, repoPath)

	ref, err := repo.ResolveBranch(head.Name().Short())
	if err != nil {
		t.Fatalf("ResolveBranch(local) error = %v", err)
	}
	if ref.Hash() != head.Hash() {
		t.Errorf("local branch hash = %s, want %s", ref.Hash(), head.Hash())
	}

	ref, err = repo.ResolveBranch("release")
	if err != nil {
		t.Fatalf("ResolveBranch(remote) error = %v", err)
	}
	if ref.Hash() != head.Hash() {
		t.Errorf("remote branch hash = %s, want %s", ref.Hash(), head.Hash())
	}

	_, err = repo.ResolveBranch("missing")
	if !errors.Is(err, ErrBranchNotFound) {
		t.Errorf("ResolveBranch(missing) error = %v, want ErrBranchNotFound", err)
	}
}

func TestGitRepository_Log(t *testing.T) {
	repoPath, _ := initTestRepoWithCommits(t, 3)
	repo := mustOpen(t, repoPath)

	if n := countCommits(t, repo, nil); n != 3 {
		t.Errorf("Log(nil) walked %d commits, want 3", n)
	}

	since := baseTime.Add(30 * time.Minute)
	if n := countCommits(t, repo, &LogOptions{Since: &since}); n != 2 {
		t.Errorf("Log(since) walked %d commits, want 2", n)
	}

	until := baseTime.Add(90 * time.Minute)
	if n := countCommits(t, repo, &LogOptions{Until: &until}); n != 2 {
		t.Errorf("Log(until) walked %d commits, want 2", n)
	}
}

func TestGitRepository_Log_From(t *testing.T) {
	repoPath, _ := initTestRepoWithCommits(t, 3)
	repo := mustOpen(t, repoPath)

	head, _ := repo.Head()
	commit, _ := repo.CommitObject(head.Hash())
	parent, err := commit.Parent(0)
	if err != nil {
		t.Fatal(err)
	}

	if n := countCommits(t, repo, &LogOptions{From: parent.Hash()}); n != 2 {
		t.Errorf("Log(from parent) walked %d commits, want 2", n)
	}
}

func TestGitCommit_Methods(t *testing.T) {
	repoPath, _ := initTestRepoWithCommits(t, 2)
	repo := mustOpen(t, repoPath)

	head, _ := repo.Head()
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		t.Fatalf("CommitObject() error = %v", err)
	}
	if commit.Hash() != head.Hash() {
		t.Error("Commit hash doesn't match head hash")
	}
	if commit.NumParents() != 1 {
		t.Errorf("NumParents() = %d, want 1", commit.NumParents())
	}
	if _, err := commit.Parent(0); err != nil {
		t.Fatalf("Parent() error = %v", err)
	}
	if commit.Author().Name != "Test" {
		t.Errorf("Author().Name = %q, want Test", commit.Author().Name)
	}
	if want := baseTime.Add(time.Hour); !commit.When().Equal(want) {
		t.Errorf("When() = %v, want %v", commit.When(), want)
	}
	if commit.Message() != "commit 1" {
		t.Errorf("Message() = %q, want %q", commit.Message(), "commit 1")
	}
}

func TestGitTree_Diff(t *testing.T) {
	repoPath, _ := initTestRepoWithCommits(t, 2)
	repo := mustOpen(t, repoPath)

	head, _ := repo.Head()
	commit, _ := repo.CommitObject(head.Hash())
	tree, _ := commit.Tree()
	parent, _ := commit.Parent(0)
	parentTree, _ := parent.Tree()

	changes, err := parentTree.Diff(tree)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}

	var names []string
	for _, c := range changes {
		names = append(names, c.ToName())
	}
	slices.Sort(names)
	want := []string{"file1.txt", "shared.txt"}
	if !slices.Equal(names, want) {
		t.Errorf("changed files = %v, want %v", names, want)
	}
}

func TestGitTree_Entries(t *testing.T) {
	repoPath, _ := initTestRepoWithCommits(t, 3)
	repo := mustOpen(t, repoPath)

	head, _ := repo.Head()
	commit, _ := repo.CommitObject(head.Hash())
	tree, err := commit.Tree()
	if err != nil {
		t.Fatalf("Tree() error = %v", err)
	}

	entries, err := tree.Entries()
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	var paths []string
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	slices.Sort(paths)
	want := []string{"file0.txt", "file1.txt", "file2.txt", "shared.txt"}
	if !slices.Equal(paths, want) {
		t.Errorf("Entries() = %v, want %v", paths, want)
	}
}

func TestGitOpener_Clone(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping clone test in short mode")
	}
	repoPath, _ := initTestRepoWithCommits(t, 2)

	dir := filepath.Join(t.TempDir(), "clone")
	repo, err := NewGitOpener().Clone(context.Background(), repoPath, dir, CloneOptions{Bare: true})
	if err != nil {
		t.Fatalf("Clone() error = %v", err)
	}
	if n := countCommits(t, repo, nil); n != 2 {
		t.Errorf("cloned repo has %d commits, want 2", n)
	}
}

func TestDefaultOpener(t *testing.T) {
	if DefaultOpener() == nil {
		t.Fatal("DefaultOpener() returned nil")
	}
}

func TestSetDefaultOpener(t *testing.T) {
	original := DefaultOpener()
	defer SetDefaultOpener(original)

	newOpener := NewGitOpener()
	SetDefaultOpener(newOpener)

	if DefaultOpener() != newOpener {
		t.Error("SetDefaultOpener() didn't change default opener")
	}
}

// Helper functions

func mustOpen(t *testing.T, path string) Repository {
	t.Helper()
	repo, err := NewGitOpener().PlainOpen(path)
	if err != nil {
		t.Fatalf("PlainOpen() error = %v", err)
	}
	return repo
}

func countCommits(t *testing.T, repo Repository, opts *LogOptions) int {
	t.Helper()
	iter, err := repo.Log(opts)
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	defer iter.Close()

	n := 0
	if err := iter.ForEach(func(Commit) error {
		n++
		return nil
	}); err != nil {
		t.Fatalf("ForEach() error = %v", err)
	}
	return n
}

func initTestRepo(t *testing.T) string {
	t.Helper()
	repoPath := t.TempDir()
	if _, err := git.PlainInit(repoPath, false); err != nil {
		t.Fatalf("Failed to init repo: %v", err)
	}
	return repoPath
}

// initTestRepoWithCommits creates n commits one hour apart starting at
// baseTime. Commit i adds file<i>.txt and rewrites shared.txt.
func initTestRepoWithCommits(t *testing.T, n int) (string, *git.Repository) {
	t.Helper()
	repoPath := t.TempDir()
	repo, err := git.PlainInit(repoPath, false)
	if err != nil {
		t.Fatalf("Failed to init repo: %v", err)
	}
	w, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < n; i++ {
		files := map[string]string{
			"file" + string(rune('0'+i)) + ".txt": "content\n",
			"shared.txt":                          "revision " + string(rune('0'+i)) + "\n",
		}
		for name, content := range files {
			if err := os.WriteFile(filepath.Join(repoPath, name), []byte(content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := w.Add(name); err != nil {
				t.Fatal(err)
			}
		}
		_, err := w.Commit("commit "+string(rune('0'+i)), &git.CommitOptions{
			Author: &object.Signature{
				Name:  "Test",
				Email: "test@example.com",
				When:  baseTime.Add(time.Duration(i) * time.Hour),
			},
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	return repoPath, repo
}
