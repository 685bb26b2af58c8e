package gitcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/opengit/gitcore/plumbing"
)

// Pull fetches from the named remote and merges its tracking branch for
// the current (or requested) branch into HEAD, fast-forwarding when
// possible the same way Merge does.
func (r *Repository) Pull(ctx context.Context, o *PullOptions) error {
	o, err := withDefaults(o, defaultPullOptions())
	if err != nil {
		return err
	}

	remote, err := r.Remote(o.RemoteName)
	if err != nil {
		return err
	}

	branch := o.ReferenceName
	if branch == "" {
		head, err := r.s.ReadHEAD()
		if err != nil {
			return err
		}
		if head.Type() != plumbing.SymbolicReference {
			return fmt.Errorf("gitcore: pull requires HEAD to point at a branch")
		}
		branch = head.Target()
	}

	_, err = remote.Fetch(ctx, &FetchOptions{
		RemoteName: o.RemoteName,
		Depth:      o.Depth,
		Tags:       o.Tags,
		Force:      o.Force,
		Auth:       o.Auth,
		Progress:   o.Progress,
	})
	upToDate := errors.Is(err, ErrAlreadyUpToDate)
	if err != nil && !upToDate {
		return fmt.Errorf("gitcore: pull: %w", err)
	}

	tracking := plumbing.ReferenceName(fmt.Sprintf("refs/remotes/%s/%s", o.RemoteName, branch.Short()))
	if _, err := r.s.ReadRef(tracking); err != nil {
		if upToDate {
			return ErrAlreadyUpToDate
		}
		return fmt.Errorf("gitcore: resolving %s: %w", tracking, err)
	}

	_, err = r.Merge(&MergeOptions{Branch: tracking, NoFastForward: false})
	if err != nil {
		if errors.Is(err, ErrMergeConflicts) {
			return err
		}
		return fmt.Errorf("gitcore: merging %s: %w", tracking, err)
	}
	return nil
}
