// Package http implements the smart HTTP transport: the
// "$GIT_URL/info/refs?service=git-<upload|receive>-pack" advertisement
// request followed by a POST to "$GIT_URL/git-<service>-pack".
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/opengit/gitcore/plumbing/format/pktline"
	"github.com/opengit/gitcore/plumbing/protocol/packp"
	"github.com/opengit/gitcore/plumbing/transport"
)

func init() {
	t := &Transport{Client: http.DefaultClient}
	transport.Register("http", t)
	transport.Register("https", t)
}

// BasicAuth is a username/password AuthMethod.
type BasicAuth struct{ Username, Password string }

func (BasicAuth) Name() string { return "http-basic-auth" }

// TokenAuth is a bearer-token AuthMethod.
type TokenAuth struct{ Token string }

func (TokenAuth) Name() string { return "http-token-auth" }

// Transport dials smart-HTTP endpoints using an injected *http.Client,
// so tests can substitute a RoundTripper without a live server.
type Transport struct {
	Client *http.Client
}

func (t *Transport) client() *http.Client {
	if t.Client != nil {
		return t.Client
	}
	return http.DefaultClient
}

func (t *Transport) NewUploadPackSession(ep *transport.Endpoint, auth transport.AuthMethod) (transport.UploadPackSession, error) {
	return &session{t: t, ep: ep, auth: auth, service: "git-upload-pack"}, nil
}

func (t *Transport) NewReceivePackSession(ep *transport.Endpoint, auth transport.AuthMethod) (transport.ReceivePackSession, error) {
	return &session{t: t, ep: ep, auth: auth, service: "git-receive-pack"}, nil
}

type session struct {
	t       *Transport
	ep      *transport.Endpoint
	auth    transport.AuthMethod
	service string
}

func (s *session) applyAuth(req *http.Request) {
	switch a := s.auth.(type) {
	case BasicAuth:
		req.SetBasicAuth(a.Username, a.Password)
	case TokenAuth:
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}
}

func (s *session) AdvertisedReferences(ctx context.Context) (*packp.AdvRefs, error) {
	body, err := s.infoRefs(ctx, "")
	if err != nil {
		return nil, err
	}
	return packp.DecodeAdvRefs(bytes.NewReader(body))
}

// CapabilitiesV2 implements transport.V2Session: it re-requests
// info/refs with "Git-Protocol: version=2" set, and the server answers
// with a command/capability list instead of ref advertisements if it
// understands that header.
func (s *session) CapabilitiesV2(ctx context.Context) (*packp.V2Capabilities, error) {
	body, err := s.infoRefs(ctx, "version=2")
	if err != nil {
		return nil, err
	}
	if !isProtocolV2(body) {
		return nil, transport.ErrUnsupportedVersion
	}
	return packp.DecodeV2Capabilities(bytes.NewReader(body))
}

func (s *session) LsRefs(ctx context.Context, lr *packp.LsRefsRequest) (*packp.LsRefsResponse, error) {
	var buf bytes.Buffer
	if err := lr.Encode(&buf); err != nil {
		return nil, err
	}
	rc, err := s.postV2(ctx, buf.Bytes())
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return packp.DecodeLsRefsResponse(rc)
}

func (s *session) FetchV2(ctx context.Context, fr *packp.FetchRequest) (io.ReadCloser, error) {
	var buf bytes.Buffer
	if err := fr.Encode(&buf); err != nil {
		return nil, err
	}
	return s.postV2(ctx, buf.Bytes())
}

func (s *session) infoRefs(ctx context.Context, protocolVersion string) ([]byte, error) {
	url := fmt.Sprintf("%s/info/refs?service=%s", s.ep.String(), s.service)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/x-"+s.service+"-advertisement")
	if protocolVersion != "" {
		req.Header.Set("Git-Protocol", protocolVersion)
	}
	s.applyAuth(req)

	resp, err := s.t.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

// isProtocolV2 reports whether body's first non-comment pkt-line is
// exactly "version 2", i.e. whether the server answered with a v2
// capability advertisement instead of falling back to v1 refs.
func isProtocolV2(body []byte) bool {
	sc := pktline.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		if sc.Status() != pktline.Data {
			continue
		}
		line := strings.TrimSuffix(string(sc.Bytes()), "\n")
		if strings.HasPrefix(line, "#") {
			continue
		}
		return line == "version 2"
	}
	return false
}

func (s *session) postV2(ctx context.Context, body []byte) (io.ReadCloser, error) {
	url := fmt.Sprintf("%s/%s", s.ep.String(), s.service)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-"+s.service+"-request")
	req.Header.Set("Accept", "application/x-"+s.service+"-result")
	req.Header.Set("Git-Protocol", "version=2")
	req.ContentLength = int64(len(body))
	s.applyAuth(req)

	resp, err := s.t.client().Do(req)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func (s *session) UploadPack(ctx context.Context, pr *packp.UploadPackRequest) (io.ReadCloser, error) {
	var buf bytes.Buffer
	if err := pr.Encode(&buf); err != nil {
		return nil, err
	}
	return s.post(ctx, s.service, buf.Bytes())
}

func (s *session) ReceivePack(ctx context.Context, pr *packp.ReferenceUpdateRequest) (*packp.ReportStatus, error) {
	var buf bytes.Buffer
	if err := pr.Encode(&buf); err != nil {
		return nil, err
	}
	rc, err := s.post(ctx, s.service, buf.Bytes())
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return packp.DecodeReportStatus(rc)
}

func (s *session) post(ctx context.Context, service string, body []byte) (io.ReadCloser, error) {
	url := fmt.Sprintf("%s/%s", s.ep.String(), service)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-"+service+"-request")
	req.Header.Set("Accept", "application/x-"+service+"-result")
	req.ContentLength = int64(len(body))
	s.applyAuth(req)

	resp, err := s.t.client().Do(req)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func (s *session) Close() error { return nil }

func checkStatus(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		return transport.ErrAuthenticationRequired
	case http.StatusForbidden:
		return transport.ErrAuthorizationFailed
	case http.StatusNotFound:
		return transport.ErrRepositoryNotFound
	default:
		return fmt.Errorf("transport: unexpected HTTP status %d", resp.StatusCode)
	}
}
