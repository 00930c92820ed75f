package remote

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/panbanda/corel/internal/vcs"
	"github.com/panbanda/corel/internal/vcs/mocks"
	"github.com/stretchr/testify/mock"
)

func TestParse_LocalPath(t *testing.T) {
	dir := t.TempDir()

	src, err := Parse(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src != nil {
		t.Errorf("expected nil for local path, got %+v", src)
	}
}

func TestParse_Empty(t *testing.T) {
	if _, err := Parse("  "); err == nil {
		t.Error("expected error for empty target")
	}
}

func TestParse_Remote(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantURL string
		wantRef string
	}{
		{"simple owner/repo", "facebook/react", "https://github.com/facebook/react", ""},
		{"shorthand with ref", "facebook/react@v18.2.0", "https://github.com/facebook/react", "v18.2.0"},
		{"host without scheme", "github.com/golang/go", "https://github.com/golang/go", ""},
		{"host with ref", "github.com/golang/go@go1.21.0", "https://github.com/golang/go", "go1.21.0"},
		{"https URL", "https://gitlab.com/group/project", "https://gitlab.com/group/project", ""},
		{"https URL with user", "https://bot@example.com/org/repo.git", "https://bot@example.com/org/repo.git", ""},
		{"SCP SSH URL", "git@github.com:owner/repo.git", "git@github.com:owner/repo.git", ""},
		{"SCP SSH URL with ref", "git@github.com:owner/repo.git@main", "git@github.com:owner/repo.git", "main"},
		{"ssh URL", "ssh://git@github.com/owner/repo.git", "ssh://git@github.com/owner/repo.git", ""},
		{"file URL", "file:///srv/git/repo.git", "file:///srv/git/repo.git", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if src == nil {
				t.Fatal("expected Source, got nil")
			}
			if src.URL != tt.wantURL {
				t.Errorf("URL = %q, want %q", src.URL, tt.wantURL)
			}
			if src.Ref != tt.wantRef {
				t.Errorf("Ref = %q, want %q", src.Ref, tt.wantRef)
			}
		})
	}
}

func TestParse_NotRemote(t *testing.T) {
	for _, input := range []string{"missing-dir", "./relative/path/that/does/not/exist", "a/b/c"} {
		src, err := Parse(input)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", input, err)
		}
		if src != nil {
			t.Errorf("Parse(%q) = %+v, want nil", input, src)
		}
	}
}

func TestSource_RepoID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://github.com/owner/repo", "github.com_owner_repo"},
		{"git@github.com:owner/repo.git", "git_github.com_owner_repo"},
		{"ssh://git@gitlab.com/group/sub/repo.git", "git_gitlab.com_group_sub_repo"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got := (&Source{URL: tt.url}).RepoID()
			if got != tt.want {
				t.Errorf("RepoID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSource_Clone(t *testing.T) {
	base := t.TempDir()
	src := &Source{URL: "https://github.com/owner/repo", Ref: "develop"}
	wantDir := filepath.Join(base, "github.com_owner_repo")

	opener := mocks.NewMockOpener(t)
	repo := mocks.NewMockRepository(t)
	opener.EXPECT().
		Clone(mock.Anything, src.URL, wantDir, vcs.CloneOptions{Ref: "develop", Bare: true}).
		RunAndReturn(func(_ context.Context, _, dir string, _ vcs.CloneOptions) (vcs.Repository, error) {
			return repo, os.MkdirAll(dir, 0755)
		})

	got, err := src.Clone(context.Background(), opener, base, false)
	if err != nil {
		t.Fatalf("Clone() error = %v", err)
	}
	if got != repo {
		t.Error("Clone() did not return the opened repository")
	}
	if src.CloneDir != wantDir {
		t.Errorf("CloneDir = %q, want %q", src.CloneDir, wantDir)
	}

	if err := src.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if _, err := os.Stat(wantDir); !os.IsNotExist(err) {
		t.Error("clone directory should be removed")
	}
}

func TestSource_Clone_Preserve(t *testing.T) {
	base := t.TempDir()
	src := &Source{URL: "https://github.com/owner/repo"}

	opener := mocks.NewMockOpener(t)
	opener.EXPECT().
		Clone(mock.Anything, src.URL, mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, _, dir string, _ vcs.CloneOptions) (vcs.Repository, error) {
			return mocks.NewMockRepository(t), os.MkdirAll(dir, 0755)
		})

	if _, err := src.Clone(context.Background(), opener, base, true); err != nil {
		t.Fatalf("Clone() error = %v", err)
	}
	if err := src.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if _, err := os.Stat(src.CloneDir); err != nil {
		t.Errorf("preserved clone directory missing: %v", err)
	}
}

func TestSource_Clone_Error(t *testing.T) {
	base := t.TempDir()
	src := &Source{URL: "https://github.com/owner/repo"}

	opener := mocks.NewMockOpener(t)
	opener.EXPECT().
		Clone(mock.Anything, src.URL, mock.Anything, mock.Anything).
		Return(nil, errors.New("authentication required"))

	if _, err := src.Clone(context.Background(), opener, base, false); err == nil {
		t.Fatal("expected clone error")
	}
	if src.CloneDir != "" {
		t.Errorf("CloneDir = %q, want empty after failure", src.CloneDir)
	}
}
