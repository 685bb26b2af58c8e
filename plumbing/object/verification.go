package object

import (
	"bytes"
	"fmt"

	"github.com/opengit/gitcore/plumbing/object/sign"
)

// Signer produces a detached OpenPGP signature over payload. Signing is
// treated as an opaque external collaborator (e.g. GPG, or an in-process
// key); this type is the seam commit/tag creation calls through.
type Signer func(payload string) (string, error)

// Verify checks c's PGP signature against armoredKeyRing, returning the
// signer identity on success.
func (c *Commit) Verify(armoredKeyRing string) (string, error) {
	if c.PGPSignature == "" {
		return "", fmt.Errorf("commit has no PGP signature")
	}
	payload, err := c.withoutSignature()
	if err != nil {
		return "", err
	}
	return sign.Verify(payload, c.PGPSignature, armoredKeyRing)
}

func (c *Commit) withoutSignature() (string, error) {
	cp := *c
	cp.PGPSignature = ""
	var buf bytes.Buffer
	if err := cp.Encode(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Verify checks t's PGP signature against armoredKeyRing.
func (t *Tag) Verify(armoredKeyRing string) (string, error) {
	if t.PGPSignature == "" {
		return "", fmt.Errorf("tag has no PGP signature")
	}
	cp := *t
	cp.PGPSignature = ""
	var buf bytes.Buffer
	if err := cp.Encode(&buf); err != nil {
		return "", err
	}
	return sign.Verify(buf.String(), t.PGPSignature, armoredKeyRing)
}
