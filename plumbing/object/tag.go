package object

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/opengit/gitcore/plumbing"
)

// Tag is an annotated tag object: a named, signed-or-not pointer to
// another object (usually a commit).
type Tag struct {
	hash         plumbing.Hash
	Object       plumbing.Hash
	ObjectType   plumbing.ObjectType
	Name         string
	Tagger       Signature
	Message      string
	PGPSignature string
}

func (t *Tag) ID() plumbing.Hash         { return t.hash }
func (t *Tag) Type() plumbing.ObjectType { return plumbing.TagObject }

func (t *Tag) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "object %s\n", t.Object)
	fmt.Fprintf(bw, "type %s\n", t.ObjectType)
	fmt.Fprintf(bw, "tag %s\n", t.Name)
	bw.WriteString("tagger ")
	if err := t.Tagger.Encode(bw); err != nil {
		return err
	}
	bw.WriteString("\n\n")
	bw.WriteString(t.Message)
	if t.PGPSignature != "" {
		if !strings.HasSuffix(t.Message, "\n") {
			bw.WriteString("\n")
		}
		bw.WriteString(t.PGPSignature)
	}
	return bw.Flush()
}

func (t *Tag) Decode(id plumbing.Hash, r io.Reader) error {
	t.hash = id
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		trimmed := strings.TrimSuffix(line, "\n")
		if trimmed == "" {
			break
		}
		switch {
		case strings.HasPrefix(trimmed, "object "):
			h, ok := plumbing.FromHex(strings.TrimPrefix(trimmed, "object "))
			if !ok {
				return fmt.Errorf("malformed object header")
			}
			t.Object = h
		case strings.HasPrefix(trimmed, "type "):
			ot, err := plumbing.ParseObjectType(strings.TrimPrefix(trimmed, "type "))
			if err != nil {
				return err
			}
			t.ObjectType = ot
		case strings.HasPrefix(trimmed, "tag "):
			t.Name = strings.TrimPrefix(trimmed, "tag ")
		case strings.HasPrefix(trimmed, "tagger "):
			t.Tagger.Decode([]byte(strings.TrimPrefix(trimmed, "tagger ")))
		}
		if err == io.EOF {
			break
		}
	}
	rest, err := io.ReadAll(br)
	if err != nil {
		return err
	}
	if pos, ok := findSignatureStart(rest); ok {
		t.Message = string(rest[:pos])
		t.PGPSignature = string(rest[pos:])
	} else {
		t.Message = string(rest)
	}
	return nil
}

// findSignatureStart locates a trailing PGP/SSH/X509 signature block, the
// same way commit gpgsig detection works for detached tag signatures.
func findSignatureStart(b []byte) (int, bool) {
	pos, typ := parseSignedBytes(b)
	if typ == SignatureTypeUnknown {
		return 0, false
	}
	return pos, true
}
