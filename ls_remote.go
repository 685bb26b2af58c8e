package gitcore

import (
	"context"
	"fmt"
	"strings"

	"github.com/opengit/gitcore/plumbing"
	"github.com/opengit/gitcore/plumbing/protocol/packp"
	"github.com/opengit/gitcore/plumbing/transport"
	_ "github.com/opengit/gitcore/plumbing/transport/http"
)

// LsRemote lists a remote's refs without cloning or fetching anything,
// preferring protocol v2's ls-refs command and falling back to a plain
// v1 advertisement when the server (or transport) doesn't support it.
func LsRemote(ctx context.Context, o *LsRemoteOptions) ([]*plumbing.Reference, error) {
	ep, err := transport.ParseEndpoint(o.URL)
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

	refs, refOrder, err := lsRemoteRefs(ctx, sess, o)
	if err != nil {
		return nil, fmt.Errorf("gitcore: ls-remote %s: %w", o.URL, err)
	}

	var out []*plumbing.Reference
	for _, name := range refOrder {
		if !lsRemoteWanted(name, o) {
			continue
		}
		out = append(out, plumbing.NewHashReference(name, refs[name]))
	}
	return out, nil
}

func lsRemoteRefs(ctx context.Context, sess transport.UploadPackSession, o *LsRemoteOptions) (map[plumbing.ReferenceName]plumbing.Hash, []plumbing.ReferenceName, error) {
	if vs, ok := sess.(transport.V2Session); ok {
		if caps, err := vs.CapabilitiesV2(ctx); err == nil {
			for _, cmd := range caps.Commands {
				if cmd != "ls-refs" {
					continue
				}
				resp, err := vs.LsRefs(ctx, &packp.LsRefsRequest{PeelTags: true})
				if err != nil {
					return nil, nil, err
				}
				return resp.Refs, resp.RefOrder, nil
			}
		}
	}

	ar, err := sess.AdvertisedReferences(ctx)
	if err != nil {
		return nil, nil, err
	}
	return ar.Refs, ar.RefOrder, nil
}

func lsRemoteWanted(name plumbing.ReferenceName, o *LsRemoteOptions) bool {
	if !o.Heads && !o.Tags {
		return true
	}
	isHead := strings.HasPrefix(name.String(), "refs/heads/")
	isTag := strings.HasPrefix(name.String(), "refs/tags/")
	return (o.Heads && isHead) || (o.Tags && isTag)
}
