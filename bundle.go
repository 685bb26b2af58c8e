package gitcore

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/opengit/gitcore/config"
	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/plumbing/format/idxfile"
	"github.com/opengit/gitcore/plumbing/format/packfile"
	"github.com/opengit/gitcore/storage"
)

const bundleSignature = "# v2 git bundle\n"

// CreateBundle writes a self-contained bundle file to w: every ref
// matched by o.RefSpecs (all local refs if none given) plus the closure
// of objects those refs reach, excluding whatever is already reachable
// from o.Since.
func (r *Repository) CreateBundle(w io.Writer, o *BundleOptions) error {
	refs, err := r.s.ListRefs("")
	if err != nil {
		return err
	}

	var tips []*plumbing.Reference
	for _, ref := range refs {
		if ref.Type() != plumbing.HashReference {
			continue
		}
		if len(o.RefSpecs) > 0 && !config.MatchAny(o.RefSpecs, ref.Name()) {
			continue
		}
		tips = append(tips, ref)
	}
	if len(tips) == 0 {
		return fmt.Errorf("gitcore: bundle: no matching refs")
	}

	format := r.s.ObjectFormat()
	excluded := map[plumbing.Hash]bool{}
	for _, h := range o.Since {
		seen := map[plumbing.Hash]bool{}
		var closure []plumbing.Hash
		if err := r.odb.Closure(format, h, seen, &closure); err != nil {
			continue
		}
		for _, c := range closure {
			excluded[c] = true
		}
	}

	seen := map[plumbing.Hash]bool{}
	var objs []plumbing.Hash
	for _, tip := range tips {
		var closure []plumbing.Hash
		if err := r.odb.Closure(format, tip.Hash(), seen, &closure); err != nil {
			return err
		}
		objs = append(objs, closure...)
	}
	out := objs[:0]
	for _, h := range objs {
		if !excluded[h] {
			out = append(out, h)
		}
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(bundleSignature); err != nil {
		return err
	}
	for _, h := range o.Since {
		if _, err := fmt.Fprintf(bw, "-%s\n", h); err != nil {
			return err
		}
	}
	for _, tip := range tips {
		if _, err := fmt.Fprintf(bw, "%s %s\n", tip.Hash(), tip.Name()); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString("\n"); err != nil {
		return err
	}

	if len(out) == 0 {
		return bw.Flush()
	}
	if _, _, err := packfile.Write(bw, out, r.odb, format, false); err != nil {
		return fmt.Errorf("gitcore: writing bundle pack: %w", err)
	}
	return bw.Flush()
}

// UnbundleInto reads a bundle produced by CreateBundle from r2, storing
// its packfile and writing every ref it carries into the repository.
func (r *Repository) UnbundleInto(r2 io.Reader) ([]plumbing.ReferenceName, error) {
	br := bufio.NewReader(r2)
	sig, err := br.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("gitcore: reading bundle header: %w", err)
	}
	if sig != bundleSignature {
		return nil, fmt.Errorf("gitcore: not a recognized bundle (got %q)", strings.TrimSpace(sig))
	}

	var refs []struct {
		hash plumbing.Hash
		name plumbing.ReferenceName
	}
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("gitcore: reading bundle refs: %w", err)
		}
		line = strings.TrimSuffix(line, "\n")
		if line == "" {
			break
		}
		if strings.HasPrefix(line, "-") {
			continue // prerequisite commit; assumed already present locally
		}
		hashHex, name, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("gitcore: malformed bundle ref line %q", line)
		}
		h, ok := plumbing.FromHex(hashHex)
		if !ok {
			return nil, fmt.Errorf("gitcore: malformed bundle ref oid %q", hashHex)
		}
		refs = append(refs, struct {
			hash plumbing.Hash
			name plumbing.ReferenceName
		}{h, plumbing.ReferenceName(name)})
	}

	raw, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("gitcore: reading bundle pack: %w", err)
	}

	format := r.s.ObjectFormat()
	if len(raw) > 0 {
		ra := bytes.NewReader(raw)
		idx, err := packfile.BuildIndex(ra, int64(len(raw)), format, r.odb.Object, nil)
		if err != nil {
			return nil, fmt.Errorf("gitcore: indexing bundle pack: %w", err)
		}
		name := idx.PackSum.String()
		if err := r.s.WritePack(name, bytes.NewReader(raw)); err != nil {
			return nil, err
		}
		var idxBuf bytes.Buffer
		if _, err := idxfile.Encode(&idxBuf, idx, format, false); err != nil {
			return nil, err
		}
		if err := r.s.WritePackIndex(name, &idxBuf); err != nil {
			return nil, err
		}
	}

	var updated []plumbing.ReferenceName
	for _, ref := range refs {
		if err := r.s.WriteRef(ref.name, plumbing.NewHashReference(ref.name, ref.hash), storage.RefUpdateOptions{
			Force:  true,
			Reflog: storage.ReflogEntry{New: ref.hash, Message: "unbundle"},
		}); err != nil {
			return nil, fmt.Errorf("gitcore: writing %s: %w", ref.name, err)
		}
		updated = append(updated, ref.name)
	}
	return updated, nil
}
