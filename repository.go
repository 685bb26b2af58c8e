package gitcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/opengit/gitcore/config"
	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/plumbing/odb"
	"github.com/opengit/gitcore/storage"
	"github.com/opengit/gitcore/storage/filesystem"
	"github.com/opengit/gitcore/storage/memory"
)

var (
	ErrRepositoryAlreadyExists = errors.New("gitcore: repository already exists")
	ErrRemoteNotFound          = errors.New("gitcore: remote not found")
	ErrRemoteExists            = errors.New("gitcore: remote already exists")
	ErrWorktreeRequired        = errors.New("gitcore: operation requires a non-bare repository")
)

// Repository is a Git repository: a storage backend, its configured
// remotes, and (unless bare) the working tree filesystem checkouts
// write to.
type Repository struct {
	s       storage.Storer
	worktreeFS billy.Filesystem
	remotes map[string]*Remote
	odb     *odb.ODB
}

func newRepository(s storage.Storer, wt billy.Filesystem) *Repository {
	return &Repository{s: s, worktreeFS: wt, remotes: map[string]*Remote{}, odb: odb.New(s)}
}

// Storer exposes the backend a Repository is built on, for callers that
// need direct ref/object access (plumbing-level operations).
func (r *Repository) Storer() storage.Storer { return r.s }

// IsBare reports whether the repository has no associated worktree.
func (r *Repository) IsBare() bool { return r.worktreeFS == nil }

// Init creates a new, empty repository on s. If wt is non-nil the
// repository is a normal (non-bare) one whose files live there.
func Init(s storage.Storer, wt billy.Filesystem) (*Repository, error) {
	r := newRepository(s, wt)

	if _, err := s.ReadHEAD(); err == nil {
		return nil, ErrRepositoryAlreadyExists
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("master"))
	if err := s.WriteHEAD(head); err != nil {
		return nil, err
	}
	return r, nil
}

// InitFilesystem creates a new repository rooted at path, using an
// on-disk storage backend (and, unless bare, an on-disk worktree at the
// same path).
func InitFilesystem(path string, bare bool) (*Repository, error) {
	root := osfs.New(path)
	gitDir := root
	var wt billy.Filesystem
	if !bare {
		dot, err := root.Chroot(".git")
		if err != nil {
			return nil, err
		}
		gitDir = dot
		wt = root
	}
	s := filesystem.NewStorage(gitDir, plumbing.FormatSHA1)
	return Init(s, wt)
}

// Open opens an existing repository given its storage backend and
// optional worktree filesystem.
func Open(s storage.Storer, wt billy.Filesystem) (*Repository, error) {
	if _, err := s.ReadHEAD(); err != nil {
		return nil, fmt.Errorf("gitcore: opening repository: %w", err)
	}
	return newRepository(s, wt), nil
}

// OpenFilesystem opens an existing on-disk repository rooted at path.
func OpenFilesystem(path string, bare bool) (*Repository, error) {
	root := osfs.New(path)
	gitDir := root
	var wt billy.Filesystem
	if !bare {
		dot, err := root.Chroot(".git")
		if err != nil {
			return nil, err
		}
		gitDir = dot
		wt = root
	}
	return Open(filesystem.NewStorage(gitDir, plumbing.FormatSHA1), wt)
}

// Clone creates a new in-memory repository and populates it by fetching
// from url, matching native git clone's default (non-bare, single
// remote named "origin").
func Clone(ctx context.Context, o *CloneOptions) (*Repository, error) {
	o, err := withDefaults(o, defaultCloneOptions())
	if err != nil {
		return nil, err
	}
	s := memory.NewStorage()
	r, err := Init(s, memfs.New())
	if err != nil {
		return nil, err
	}
	return r, r.cloneInto(ctx, o)
}

// CloneFilesystem is Clone but persists to an on-disk repository rooted
// at path instead of memory.
func CloneFilesystem(ctx context.Context, path string, bare bool, o *CloneOptions) (*Repository, error) {
	r, err := InitFilesystem(path, bare)
	if err != nil {
		return nil, err
	}
	o, err = withDefaults(o, defaultCloneOptions())
	if err != nil {
		return nil, err
	}
	return r, r.cloneInto(ctx, o)
}

func (r *Repository) cloneInto(ctx context.Context, o *CloneOptions) error {
	remote, err := r.CreateRemote(&config.RemoteConfig{
		Name:  o.RemoteName,
		URLs:  []string{o.URL},
		Fetch: []config.RefSpec{config.RefSpec(fmt.Sprintf("+refs/heads/*:refs/remotes/%s/*", o.RemoteName))},
	})
	if err != nil {
		return err
	}

	res, err := remote.Fetch(ctx, &FetchOptions{
		RemoteName:   o.RemoteName,
		Depth:        o.Depth,
		Tags:         o.Tags,
		Auth:         o.Auth,
		Progress:     o.Progress,
	})
	if err != nil && !errors.Is(err, ErrAlreadyUpToDate) {
		return err
	}

	branch := o.ReferenceName
	if branch == "" {
		branch = res.DefaultBranch
	}
	if branch == "" {
		return nil
	}

	tracking := plumbing.ReferenceName(fmt.Sprintf("refs/remotes/%s/%s", o.RemoteName, branch.Short()))
	ref, err := r.s.ReadRef(tracking)
	if err != nil {
		return fmt.Errorf("gitcore: resolving cloned branch %s: %w", branch, err)
	}

	local := plumbing.NewHashReference(branch, ref.Hash())
	if err := r.s.WriteRef(branch, local, storage.RefUpdateOptions{Force: true}); err != nil {
		return err
	}
	return r.s.WriteHEAD(plumbing.NewSymbolicReference(plumbing.HEAD, branch))
}

// CreateRemote registers and returns a new Remote.
func (r *Repository) CreateRemote(c *config.RemoteConfig) (*Remote, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if _, ok := r.remotes[c.Name]; ok {
		return nil, ErrRemoteExists
	}
	remote := NewRemote(r.s, c)
	r.remotes[c.Name] = remote
	return remote, nil
}

// Remote returns a previously created remote by name.
func (r *Repository) Remote(name string) (*Remote, error) {
	remote, ok := r.remotes[name]
	if !ok {
		return nil, ErrRemoteNotFound
	}
	return remote, nil
}

// Fetch fetches from the named remote using its default refspecs.
func (r *Repository) Fetch(ctx context.Context, o *FetchOptions) (*FetchResult, error) {
	o, err := withDefaults(o, defaultFetchOptions())
	if err != nil {
		return nil, err
	}
	remote, err := r.Remote(o.RemoteName)
	if err != nil {
		return nil, err
	}
	return remote.Fetch(ctx, o)
}

// Push pushes to the named remote using its default refspecs.
func (r *Repository) Push(ctx context.Context, o *PushOptions) (*PushResult, error) {
	o, err := withDefaults(o, defaultPushOptions())
	if err != nil {
		return nil, err
	}
	remote, err := r.Remote(o.RemoteName)
	if err != nil {
		return nil, err
	}
	return remote.Push(ctx, o)
}

// Head resolves the symbolic HEAD down to the direct reference it
// ultimately points at.
func (r *Repository) Head() (*plumbing.Reference, error) {
	head, err := r.s.ReadHEAD()
	if err != nil {
		return nil, err
	}
	if head.Type() == plumbing.HashReference {
		return head, nil
	}
	return r.s.ReadRef(head.Target())
}
