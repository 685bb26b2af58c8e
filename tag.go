package gitcore

import (
	"errors"
	"fmt"

	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/plumbing/object"
	"github.com/opengit/gitcore/storage"
)

var ErrTagExists = errors.New("gitcore: tag already exists")

// Tag creates a lightweight tag (a direct ref) when Message is empty, or
// an annotated tag object otherwise.
func (r *Repository) Tag(o *TagOptions) (*plumbing.Reference, error) {
	name := plumbing.NewTagReferenceName(o.Name)

	if !o.Force {
		if _, err := r.s.ReadRef(name); err == nil {
			return nil, ErrTagExists
		} else if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
	}

	target := o.Target
	if target.IsZero() {
		head, err := r.Head()
		if err != nil {
			return nil, fmt.Errorf("gitcore: tagging: %w", err)
		}
		target = head.Hash()
	}

	refHash := target
	if o.Message != "" {
		obj, err := r.odb.DecodeObject(r.s.ObjectFormat(), target)
		if err != nil {
			return nil, err
		}
		t := &object.Tag{
			Object:     target,
			ObjectType: obj.Type(),
			Name:       o.Name,
			Tagger:     toObjectSignature(o.Tagger),
			Message:    o.Message,
		}
		hash, err := r.odb.EncodeObject(r.s.ObjectFormat(), t)
		if err != nil {
			return nil, err
		}
		refHash = hash
	}

	ref := plumbing.NewHashReference(name, refHash)
	if err := r.s.WriteRef(name, ref, storage.RefUpdateOptions{Force: o.Force}); err != nil {
		return nil, err
	}
	return ref, nil
}

// DeleteTag removes a tag ref.
func (r *Repository) DeleteTag(name string) error {
	return r.s.DeleteRef(plumbing.NewTagReferenceName(name))
}

// Tags lists every tag ref.
func (r *Repository) Tags() ([]*plumbing.Reference, error) {
	return r.s.ListRefs(plumbing.ReferenceName("refs/tags/"))
}
