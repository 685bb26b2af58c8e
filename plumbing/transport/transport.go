// Package transport defines the client-side interface to a remote
// repository's smart protocol endpoint (upload-pack/receive-pack) and
// the errors every concrete transport shares.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/opengit/gitcore/plumbing/protocol/packp"
)

var (
	ErrUnsupportedVersion        = errors.New("transport: unsupported protocol version")
	ErrUnsupportedService        = errors.New("transport: unsupported service")
	ErrInvalidResponse           = errors.New("transport: invalid response")
	ErrEmptyRemoteRepository     = errors.New("transport: remote repository is empty")
	ErrAuthenticationRequired    = errors.New("transport: authentication required")
	ErrAuthorizationFailed       = errors.New("transport: authorization failed")
	ErrRepositoryNotFound        = errors.New("transport: repository not found")
)

// Endpoint identifies a remote repository: the address a concrete
// transport dials plus the local options that shape it (credentials
// live outside this struct, injected per call).
type Endpoint struct {
	Protocol string // "http", "https", "ssh", "git", "file"
	Host     string
	Port     int
	Path     string
	User     string
}

func (e *Endpoint) String() string {
	if e.Protocol == "file" {
		return e.Path
	}
	port := ""
	if e.Port != 0 {
		port = fmt.Sprintf(":%d", e.Port)
	}
	user := ""
	if e.User != "" {
		user = e.User + "@"
	}
	return fmt.Sprintf("%s://%s%s%s%s", e.Protocol, user, e.Host, port, e.Path)
}

// ParseEndpoint parses a remote URL ("https://host/path.git",
// "ssh://git@host/path.git", or a bare local filesystem path) into an
// Endpoint.
func ParseEndpoint(raw string) (*Endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return &Endpoint{Protocol: "file", Path: raw}, nil
	}

	ep := &Endpoint{Protocol: u.Scheme, Host: u.Hostname(), Path: u.Path}
	if u.User != nil {
		ep.User = u.User.Username()
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("transport: invalid port in %q: %w", raw, err)
		}
		ep.Port = port
	}
	return ep, nil
}

// RemoteError wraps an error message the remote sent back (e.g. over a
// sideband error channel or an HTTP error body).
type RemoteError struct{ Reason string }

func (e *RemoteError) Error() string { return "remote: " + e.Reason }

// UploadPackSession is a single connection to a remote's upload-pack
// service: advertise refs, then negotiate and fetch a pack.
type UploadPackSession interface {
	AdvertisedReferences(ctx context.Context) (*packp.AdvRefs, error)
	UploadPack(ctx context.Context, req *packp.UploadPackRequest) (io.ReadCloser, error)
	Close() error
}

// ReceivePackSession is a single connection to a remote's receive-pack
// service: advertise refs, then push ref updates plus a pack.
type ReceivePackSession interface {
	AdvertisedReferences(ctx context.Context) (*packp.AdvRefs, error)
	ReceivePack(ctx context.Context, req *packp.ReferenceUpdateRequest) (*packp.ReportStatus, error)
	Close() error
}

// Transport dials a concrete protocol's upload-pack/receive-pack
// endpoints for an Endpoint.
type Transport interface {
	NewUploadPackSession(ep *Endpoint, auth AuthMethod) (UploadPackSession, error)
	NewReceivePackSession(ep *Endpoint, auth AuthMethod) (ReceivePackSession, error)
}

// V2Session is an optional capability of an UploadPackSession: a
// session that can speak Git's wire protocol version 2 instead of
// falling back to v1's want/have pkt-line stream. Callers type-assert
// for it and fall back to plain AdvertisedReferences/UploadPack when a
// session doesn't implement it, or when the server's advertisement
// doesn't start with "version 2".
type V2Session interface {
	// CapabilitiesV2 re-issues the ref advertisement request with
	// protocol v2 requested, returning the command/capability list a v2
	// server answers with instead of ref advertisements.
	CapabilitiesV2(ctx context.Context) (*packp.V2Capabilities, error)
	LsRefs(ctx context.Context, req *packp.LsRefsRequest) (*packp.LsRefsResponse, error)
	FetchV2(ctx context.Context, req *packp.FetchRequest) (io.ReadCloser, error)
}

// AuthMethod is implemented by each supported credential kind
// (BasicAuth, a bearer token, or an SSH identity); it only needs to know
// how to decorate an outgoing request/connection.
type AuthMethod interface {
	Name() string
}

// UnknownTransport is returned by Get for any scheme this module does
// not implement client-side dialing for (e.g. ssh:// and git://, whose
// session-establishment is out of scope — see the ssh subpackage, which
// covers configuration resolution only).
type UnknownTransport struct{ Protocol string }

func (e *UnknownTransport) Error() string {
	return fmt.Sprintf("transport: unsupported protocol %q", e.Protocol)
}

// registry maps a scheme to its Transport, populated by the http
// subpackage's init() and by callers registering their own.
var registry = map[string]Transport{}

// Register associates protocol with t, overwriting any previous
// registration (tests substitute fakes this way).
func Register(protocol string, t Transport) { registry[protocol] = t }

// Get resolves ep.Protocol to a registered Transport.
func Get(ep *Endpoint) (Transport, error) {
	t, ok := registry[ep.Protocol]
	if !ok {
		return nil, &UnknownTransport{Protocol: ep.Protocol}
	}
	return t, nil
}
