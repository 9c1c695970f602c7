// Package sourcerev reports which git revision a source tree was built from.
package sourcerev

import (
	stderrors "errors"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	ferrors "git.home.luguber.info/inful/mdsite/internal/foundation/errors"
)

// Revision identifies the checked out commit of the repository containing a
// source directory. The zero value means the directory is not under git.
type Revision struct {
	Commit string
	Branch string
	Dirty  bool
}

// Short returns the abbreviated commit hash, or "" outside a repository.
func (r Revision) Short() string {
	if len(r.Commit) > 8 {
		return r.Commit[:8]
	}
	return r.Commit
}

// String renders the revision for logs and history, e.g. "main@1a2b3c4d+dirty".
func (r Revision) String() string {
	if r.Commit == "" {
		return ""
	}
	s := r.Short()
	if r.Branch != "" {
		s = r.Branch + "@" + s
	}
	if r.Dirty {
		s += "+dirty"
	}
	return s
}

// Detect opens the repository enclosing dir, searching parent directories.
// A directory outside any repository, or a repository without commits, yields
// the zero Revision and no error.
func Detect(dir string) (Revision, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if stderrors.Is(err, git.ErrRepositoryNotExists) {
		return Revision{}, nil
	}
	if err != nil {
		return Revision{}, ferrors.FileSystemError("open git repository").
			WithCause(err).
			WithContext("path", dir).
			Build()
	}

	ref, err := repo.Head()
	if stderrors.Is(err, plumbing.ErrReferenceNotFound) {
		return Revision{}, nil
	}
	if err != nil {
		return Revision{}, ferrors.FileSystemError("resolve HEAD").
			WithCause(err).
			WithContext("path", dir).
			Build()
	}

	rev := Revision{Commit: ref.Hash().String()}
	if ref.Name().IsBranch() {
		rev.Branch = ref.Name().Short()
	}
	if wt, err := repo.Worktree(); err == nil {
		if st, err := wt.Status(); err == nil {
			rev.Dirty = !st.IsClean()
		}
	}
	return rev, nil
}
