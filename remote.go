package gitcore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/opengit/gitcore/config"
	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/plumbing/cache"
	"github.com/opengit/gitcore/plumbing/format/idxfile"
	"github.com/opengit/gitcore/plumbing/format/packfile"
	"github.com/opengit/gitcore/plumbing/odb"
	"github.com/opengit/gitcore/plumbing/protocol/packp"
	"github.com/opengit/gitcore/plumbing/protocol/packp/capability"
	"github.com/opengit/gitcore/plumbing/protocol/packp/sideband"
	"github.com/opengit/gitcore/plumbing/revlist"
	"github.com/opengit/gitcore/plumbing/transport"
	_ "github.com/opengit/gitcore/plumbing/transport/http"
	"github.com/opengit/gitcore/storage"
)

var (
	ErrAlreadyUpToDate      = errors.New("gitcore: already up-to-date")
	ErrEmptyURLs            = errors.New("gitcore: remote has no URLs")
	ErrNonFastForwardUpdate = errors.New("gitcore: non-fast-forward update, use Force")
)

// Remote is one named connection to a remote repository: its config
// plus the local storage updates a fetch/push applies to.
type Remote struct {
	c     *config.RemoteConfig
	s     storage.Storer
	odb   *odb.ODB
	cache *cache.Object
}

// NewRemote returns a Remote for c backed by s.
func NewRemote(s storage.Storer, c *config.RemoteConfig) *Remote {
	objCache := cache.NewObject(cache.DefaultObjectCacheSize)
	return &Remote{c: c, s: s, odb: odb.NewWithCache(s, objCache), cache: objCache}
}

func (r *Remote) Config() *config.RemoteConfig { return r.c }

func (r *Remote) endpoint() (*transport.Endpoint, error) {
	if len(r.c.URLs) == 0 {
		return nil, ErrEmptyURLs
	}
	return transport.ParseEndpoint(r.c.URLs[0])
}

// getRemoteInfo issues the v1 ref advertisement request.
func (r *Remote) getRemoteInfo(ctx context.Context, sess interface {
	AdvertisedReferences(ctx context.Context) (*packp.AdvRefs, error)
}) (*packp.AdvRefs, error) {
	ar, err := sess.AdvertisedReferences(ctx)
	if err != nil {
		return nil, fmt.Errorf("gitcore: fetching remote refs: %w", err)
	}
	return ar, nil
}

// lsRefsV2 asks a v2-capable session for its ref list via ls-refs and
// adapts the result into the same *packp.AdvRefs shape the v1 callers
// already know how to match refspecs against, plus the advertised
// default branch (HEAD's symref target).
func (r *Remote) lsRefsV2(ctx context.Context, sess transport.V2Session) (*packp.AdvRefs, plumbing.ReferenceName, error) {
	caps, err := sess.CapabilitiesV2(ctx)
	if err != nil {
		return nil, "", err
	}
	supportsFetch := false
	for _, cmd := range caps.Commands {
		if cmd == "fetch" {
			supportsFetch = true
			break
		}
	}
	if !supportsFetch {
		return nil, "", transport.ErrUnsupportedVersion
	}

	resp, err := sess.LsRefs(ctx, &packp.LsRefsRequest{SymRefs: true, RefPrefixes: []string{"refs/"}})
	if err != nil {
		return nil, "", err
	}

	ar := &packp.AdvRefs{
		Refs:         resp.Refs,
		RefOrder:     resp.RefOrder,
		Capabilities: caps.Capabilities,
	}
	var defaultBranch plumbing.ReferenceName
	if target, ok := resp.SymrefTargets[plumbing.HEAD]; ok {
		defaultBranch = target
	}
	return ar, defaultBranch, nil
}

// FetchResult mirrors what a fetch reports back to the caller.
type FetchResult struct {
	DefaultBranch plumbing.ReferenceName
	FetchHead     plumbing.Hash
	Updated       []plumbing.ReferenceName
	Pruned        []plumbing.ReferenceName
}

// Fetch retrieves missing objects from the remote and updates
// remote-tracking refs.
func (r *Remote) Fetch(ctx context.Context, o *FetchOptions) (*FetchResult, error) {
	o, err := withDefaults(o, defaultFetchOptions())
	if err != nil {
		return nil, err
	}
	if len(o.RefSpecs) == 0 {
		o.RefSpecs = r.c.Fetch
	}

	ep, err := r.endpoint()
	if err != nil {
		return nil, err
	}
	tr, err := transport.Get(ep)
	if err != nil {
		return nil, err
	}
	sess, err := tr.NewUploadPackSession(ep, o.Auth)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	var (
		ar            *packp.AdvRefs
		defaultBranch plumbing.ReferenceName
		v2sess        transport.V2Session
	)
	if vs, ok := sess.(transport.V2Session); ok {
		if a, db, err := r.lsRefsV2(ctx, vs); err == nil {
			ar, defaultBranch, v2sess = a, db, vs
		}
	}
	if ar == nil {
		ar, err = r.getRemoteInfo(ctx, sess)
		if err != nil {
			return nil, err
		}
	}

	wants, v1DefaultBranch, err := r.resolveWants(ar, o.RefSpecs)
	if err != nil {
		return nil, err
	}
	if defaultBranch == "" {
		defaultBranch = v1DefaultBranch
	}
	if len(wants) == 0 {
		return nil, ErrAlreadyUpToDate
	}

	haves, err := r.localHaves()
	if err != nil {
		return nil, err
	}
	wants = r.filterKnown(wants)
	if len(wants) == 0 {
		return nil, ErrAlreadyUpToDate
	}

	localShallow, err := r.s.ReadShallow()
	if err != nil {
		return nil, err
	}

	var (
		body                  io.Reader
		shallows, unshallows []plumbing.Hash
	)
	if v2sess != nil {
		fr := &packp.FetchRequest{
			Wants:    wants,
			Haves:    haves,
			Shallows: localShallow,
			Depth:    o.Depth,
			Done:     true,
		}
		rc, err := v2sess.FetchV2(ctx, fr)
		if err != nil {
			return nil, fmt.Errorf("gitcore: fetch (v2): %w", err)
		}
		defer rc.Close()

		resp, err := packp.DecodeFetchResponse(rc)
		if err != nil {
			return nil, fmt.Errorf("gitcore: decoding fetch response: %w", err)
		}
		shallows, unshallows = parseShallowInfo(resp.ShallowInfo)
		body = sideband.NewDemuxer(rc)
	} else {
		req := packp.NewUploadPackRequest()
		req.Wants = wants
		req.Haves = haves
		req.Shallows = localShallow
		req.Depth = o.Depth
		req.Done = true

		rc, err := sess.UploadPack(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("gitcore: upload-pack: %w", err)
		}
		defer rc.Close()

		sr, err := packp.DecodeServerResponse(rc)
		if err != nil {
			return nil, fmt.Errorf("gitcore: decoding negotiation response: %w", err)
		}
		shallows, unshallows = sr.Shallows, sr.Unshallows

		if req.Capabilities.Supports(capability.SideBand64k) {
			body = sideband.NewDemuxer(rc)
		} else {
			body = rc
		}
	}

	if err := r.updateShallow(shallows, unshallows); err != nil {
		return nil, err
	}

	packSum, err := r.ingestPack(body, wants[0].Format())
	if err != nil {
		return nil, err
	}

	updated, err := r.updateTrackingRefs(ar, o.RefSpecs)
	if err != nil {
		return nil, err
	}

	var pruned []plumbing.ReferenceName
	if o.Prune {
		pruned, err = r.pruneTrackingRefs(ar, o.RefSpecs)
		if err != nil {
			return nil, err
		}
	}

	return &FetchResult{
		DefaultBranch: defaultBranch,
		FetchHead:     packSum,
		Updated:       updated,
		Pruned:        pruned,
	}, nil
}

// resolveWants maps the caller's refspecs against the advertisement,
// returning one oid per matched source ref plus the server's default
// branch (HEAD symref target), if advertised.
func (r *Remote) resolveWants(ar *packp.AdvRefs, specs []config.RefSpec) ([]plumbing.Hash, plumbing.ReferenceName, error) {
	var wants []plumbing.Hash
	var defaultBranch plumbing.ReferenceName
	if target, ok := ar.Capabilities.Get(capability.SymRef); ok {
		if _, after, found := strings.Cut(target, ":"); found {
			defaultBranch = plumbing.ReferenceName(after)
		}
	}

	seen := map[plumbing.Hash]bool{}
	for _, name := range ar.RefOrder {
		if !config.MatchAny(specs, name) {
			continue
		}
		h := ar.Refs[name]
		if seen[h] {
			continue
		}
		seen[h] = true
		wants = append(wants, h)
	}
	return wants, defaultBranch, nil
}

// localHaves walks every local ref's ancestry (bounded to what's
// actually resolvable) to build the have set offered in negotiation.
func (r *Remote) localHaves() ([]plumbing.Hash, error) {
	refs, err := r.s.ListRefs("")
	if err != nil {
		return nil, err
	}
	var haves []plumbing.Hash
	seen := map[plumbing.Hash]bool{}
	for _, ref := range refs {
		if ref.Type() != plumbing.HashReference {
			continue
		}
		h := ref.Hash()
		if seen[h] {
			continue
		}
		ancestors, err := revlist.Ancestors(r.odb, h.Format(), h)
		if err != nil {
			// Local history may be incomplete (shallow clone); offer
			// what we have and move on.
			continue
		}
		for _, a := range ancestors {
			if !seen[a] {
				seen[a] = true
				haves = append(haves, a)
			}
		}
	}
	return haves, nil
}

// filterKnown drops any want the local object database already has.
func (r *Remote) filterKnown(wants []plumbing.Hash) []plumbing.Hash {
	var out []plumbing.Hash
	for _, h := range wants {
		has, err := r.odb.HasObject(h)
		if err == nil && has {
			continue
		}
		out = append(out, h)
	}
	return out
}

// ingestPack reads a packfile stream to completion, stores it and its
// index under the storage backend, and returns the pack's trailing
// checksum.
func (r *Remote) ingestPack(body io.Reader, format plumbing.ObjectFormat) (plumbing.Hash, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return plumbing.Hash{}, fmt.Errorf("gitcore: reading packfile: %w", err)
	}
	if len(raw) == 0 {
		return plumbing.Hash{}, nil
	}

	ra := bytes.NewReader(raw)
	idx, err := packfile.BuildIndex(ra, int64(len(raw)), format, r.odb.Object, nil)
	if err != nil {
		return plumbing.Hash{}, fmt.Errorf("gitcore: indexing packfile: %w", err)
	}

	name := idx.PackSum.String()
	if err := r.s.WritePack(name, bytes.NewReader(raw)); err != nil {
		return plumbing.Hash{}, err
	}

	var idxBuf bytes.Buffer
	if _, err := idxfile.Encode(&idxBuf, idx, format, false); err != nil {
		return plumbing.Hash{}, err
	}
	if err := r.s.WritePackIndex(name, &idxBuf); err != nil {
		return plumbing.Hash{}, err
	}
	return idx.PackSum, nil
}

// updateShallow merges the server's reported shallow/unshallow commits
// into the local shallow set, the way a deepen/unshallow fetch narrows
// or widens a shallow clone's history boundary.
func (r *Remote) updateShallow(shallows, unshallows []plumbing.Hash) error {
	if len(shallows) == 0 && len(unshallows) == 0 {
		return nil
	}
	current, err := r.s.ReadShallow()
	if err != nil {
		return err
	}
	drop := map[plumbing.Hash]bool{}
	for _, h := range unshallows {
		drop[h] = true
	}
	set := map[plumbing.Hash]bool{}
	var merged []plumbing.Hash
	for _, h := range current {
		if drop[h] {
			continue
		}
		if !set[h] {
			set[h] = true
			merged = append(merged, h)
		}
	}
	for _, h := range shallows {
		if drop[h] || set[h] {
			continue
		}
		set[h] = true
		merged = append(merged, h)
	}
	return r.s.WriteShallow(merged)
}

// parseShallowInfo splits a v2 fetch response's "shallow-info" section
// lines (each "shallow <oid>" or "unshallow <oid>") into the same two
// slices DecodeServerResponse produces for v1.
func parseShallowInfo(lines []string) (shallows, unshallows []plumbing.Hash) {
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "shallow "):
			if h, ok := plumbing.FromHex(strings.TrimPrefix(line, "shallow ")); ok {
				shallows = append(shallows, h)
			}
		case strings.HasPrefix(line, "unshallow "):
			if h, ok := plumbing.FromHex(strings.TrimPrefix(line, "unshallow ")); ok {
				unshallows = append(unshallows, h)
			}
		}
	}
	return shallows, unshallows
}

// updateTrackingRefs writes the remote-tracking ref for every matched
// advertised ref, appending a "fetch" reflog entry.
func (r *Remote) updateTrackingRefs(ar *packp.AdvRefs, specs []config.RefSpec) ([]plumbing.ReferenceName, error) {
	var updated []plumbing.ReferenceName
	for _, name := range ar.RefOrder {
		var dst plumbing.ReferenceName
		matched := false
		for _, rs := range specs {
			if rs.Match(name) {
				dst = rs.Dst(name)
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		h := ar.Refs[name]
		ref := plumbing.NewHashReference(dst, h)
		opts := storage.RefUpdateOptions{
			Force: true,
			Reflog: storage.ReflogEntry{
				New:     h,
				Message: fmt.Sprintf("update by fetch: %s", name),
			},
		}
		if err := r.s.WriteRef(dst, ref, opts); err != nil {
			return nil, fmt.Errorf("gitcore: updating %s: %w", dst, err)
		}
		updated = append(updated, dst)
	}
	return updated, nil
}

// pruneTrackingRefs deletes remote-tracking refs whose source no
// longer appears in the advertisement.
func (r *Remote) pruneTrackingRefs(ar *packp.AdvRefs, specs []config.RefSpec) ([]plumbing.ReferenceName, error) {
	var pruned []plumbing.ReferenceName
	for _, rs := range specs {
		local, err := r.s.ListRefs(plumbing.ReferenceName(""))
		if err != nil {
			return nil, err
		}
		for _, ref := range local {
			dst := ref.Name()
			stillAdvertised := false
			for _, remoteName := range ar.RefOrder {
				if rs.Match(remoteName) && rs.Dst(remoteName) == dst {
					stillAdvertised = true
					break
				}
			}
			if !stillAdvertised && looksLikeTrackingDst(rs, dst) {
				if err := r.s.DeleteRef(dst); err != nil {
					return nil, err
				}
				pruned = append(pruned, dst)
			}
		}
	}
	return pruned, nil
}

func looksLikeTrackingDst(rs config.RefSpec, name plumbing.ReferenceName) bool {
	spec := string(rs)
	sep := strings.Index(spec, ":")
	if sep < 0 {
		return false
	}
	dstPattern := spec[sep+1:]
	prefix := strings.TrimSuffix(dstPattern, "*")
	return strings.HasPrefix(name.String(), prefix)
}

// PushResult mirrors what a push reports back per updated ref.
type PushResult struct {
	OK   bool
	Refs map[plumbing.ReferenceName]error
}

// Push transmits local commits the remote lacks and asks it to apply
// the corresponding ref updates.
func (r *Remote) Push(ctx context.Context, o *PushOptions) (*PushResult, error) {
	o, err := withDefaults(o, defaultPushOptions())
	if err != nil {
		return nil, err
	}

	ep, err := r.endpoint()
	if err != nil {
		return nil, err
	}
	tr, err := transport.Get(ep)
	if err != nil {
		return nil, err
	}
	sess, err := tr.NewReceivePackSession(ep, o.Auth)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	ar, err := r.getRemoteInfo(ctx, sess)
	if err != nil {
		return nil, err
	}

	commands, newOids, err := r.buildCommands(ar, o.RefSpecs, o.Force)
	if err != nil {
		return nil, err
	}
	if len(commands) == 0 {
		return nil, ErrAlreadyUpToDate
	}

	req := packp.NewReferenceUpdateRequest()
	req.Commands = commands

	if len(newOids) > 0 {
		haves := make([]plumbing.Hash, 0, len(ar.Refs))
		for _, h := range ar.Refs {
			haves = append(haves, h)
		}
		objs, err := r.pushObjectSet(newOids, haves)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if _, _, err := packfile.Write(&buf, objs, r.odb, newOids[0].Format(), false); err != nil {
			return nil, fmt.Errorf("gitcore: building push packfile: %w", err)
		}
		req.Pack = &buf
	}

	status, err := sess.ReceivePack(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("gitcore: receive-pack: %w", err)
	}

	res := &PushResult{OK: status.UnpackError == "", Refs: map[plumbing.ReferenceName]error{}}
	for _, c := range status.Commands {
		if c.Error != "" {
			res.Refs[c.Name] = errors.New(c.Error)
		} else {
			res.Refs[c.Name] = nil
		}
	}
	return res, status.Error()
}

// buildCommands maps local refs matched by specs onto push commands,
// pairing each with the remote's current value (its "old" oid).
func (r *Remote) buildCommands(ar *packp.AdvRefs, specs []config.RefSpec, force bool) ([]*packp.Command, []plumbing.Hash, error) {
	var commands []*packp.Command
	var newOids []plumbing.Hash

	for _, rs := range specs {
		if rs.IsDelete() {
			continue
		}
		localRefs, err := r.s.ListRefs("")
		if err != nil {
			return nil, nil, err
		}
		for _, local := range localRefs {
			if !rs.Match(local.Name()) {
				continue
			}
			dst := rs.Dst(local.Name())
			oldHash := ar.Refs[dst]

			if !force && !rs.IsForceUpdate() && !oldHash.IsZero() {
				ok, err := revlist.IsAncestor(r.odb, local.Hash().Format(), oldHash, local.Hash())
				if err != nil {
					return nil, nil, err
				}
				if !ok {
					return nil, nil, fmt.Errorf("%w: %s", ErrNonFastForwardUpdate, dst)
				}
			}

			commands = append(commands, &packp.Command{Old: oldHash, New: local.Hash(), Name: dst})
			newOids = append(newOids, local.Hash())
		}
	}
	return commands, newOids, nil
}

// pushObjectSet computes the full object closure of newOids minus
// whatever is already reachable from the remote's haves.
func (r *Remote) pushObjectSet(newOids, haves []plumbing.Hash) ([]plumbing.Hash, error) {
	excluded := map[plumbing.Hash]bool{}
	for _, h := range haves {
		seen := map[plumbing.Hash]bool{}
		var closure []plumbing.Hash
		if err := r.odb.Closure(h.Format(), h, seen, &closure); err != nil {
			continue
		}
		for _, c := range closure {
			excluded[c] = true
		}
	}

	seen := map[plumbing.Hash]bool{}
	var all []plumbing.Hash
	for _, h := range newOids {
		var closure []plumbing.Hash
		if err := r.odb.Closure(h.Format(), h, seen, &closure); err != nil {
			return nil, err
		}
		all = append(all, closure...)
	}

	out := all[:0]
	for _, h := range all {
		if !excluded[h] {
			out = append(out, h)
		}
	}
	return out, nil
}
