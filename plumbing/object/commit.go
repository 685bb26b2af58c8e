package object

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/opengit/gitcore/plumbing"
)

// Commit is a point-in-time snapshot: a tree plus zero or more parents and
// authorship metadata.
type Commit struct {
	hash      plumbing.Hash
	Tree      plumbing.Hash
	Parents   []plumbing.Hash
	Author    Signature
	Committer Signature
	Message   string
	// PGPSignature is the verbatim "gpgsig" header block, if present.
	PGPSignature string
	// ExtraHeaders preserves any other headers (e.g. "mergetag") in
	// encounter order, so round-tripping a commit never drops data.
	ExtraHeaders []string
}

func (c *Commit) ID() plumbing.Hash         { return c.hash }
func (c *Commit) Type() plumbing.ObjectType { return plumbing.CommitObject }

func (c *Commit) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "tree %s\n", c.Tree)
	for _, p := range c.Parents {
		fmt.Fprintf(bw, "parent %s\n", p)
	}
	bw.WriteString("author ")
	if err := c.Author.Encode(bw); err != nil {
		return err
	}
	bw.WriteString("\ncommitter ")
	if err := c.Committer.Encode(bw); err != nil {
		return err
	}
	bw.WriteString("\n")
	for _, h := range c.ExtraHeaders {
		bw.WriteString(h)
		bw.WriteString("\n")
	}
	if c.PGPSignature != "" {
		bw.WriteString("gpgsig ")
		bw.WriteString(indentSignature(c.PGPSignature))
		bw.WriteString("\n")
	}
	bw.WriteString("\n")
	bw.WriteString(c.Message)
	return bw.Flush()
}

// indentSignature re-indents a multi-line PGP signature block with a
// leading space on continuation lines, as Git's commit header encoding
// requires.
func indentSignature(sig string) string {
	lines := strings.Split(strings.TrimRight(sig, "\n"), "\n")
	return strings.Join(lines, "\n ")
}

func (c *Commit) Decode(id plumbing.Hash, r io.Reader) error {
	c.hash = id
	c.Parents = nil
	c.ExtraHeaders = nil
	c.PGPSignature = ""

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
		case strings.HasPrefix(trimmed, "tree "):
			h, ok := plumbing.FromHex(strings.TrimPrefix(trimmed, "tree "))
			if !ok {
				return fmt.Errorf("malformed tree header")
			}
			c.Tree = h
		case strings.HasPrefix(trimmed, "parent "):
			h, ok := plumbing.FromHex(strings.TrimPrefix(trimmed, "parent "))
			if !ok {
				return fmt.Errorf("malformed parent header")
			}
			c.Parents = append(c.Parents, h)
		case strings.HasPrefix(trimmed, "author "):
			c.Author.Decode([]byte(strings.TrimPrefix(trimmed, "author ")))
		case strings.HasPrefix(trimmed, "committer "):
			c.Committer.Decode([]byte(strings.TrimPrefix(trimmed, "committer ")))
		case strings.HasPrefix(trimmed, "gpgsig "):
			sig, err := readContinuation(br, strings.TrimPrefix(trimmed, "gpgsig "))
			if err != nil {
				return err
			}
			c.PGPSignature = sig
		default:
			c.ExtraHeaders = append(c.ExtraHeaders, trimmed)
		}
		if err == io.EOF {
			break
		}
	}
	msg, err := io.ReadAll(br)
	if err != nil {
		return err
	}
	c.Message = string(msg)
	return nil
}

// readContinuation reads header continuation lines (leading single space)
// following a multi-line header value such as gpgsig.
func readContinuation(br *bufio.Reader, first string) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(first)
	for {
		b, err := br.Peek(1)
		if err != nil || len(b) == 0 || b[0] != ' ' {
			break
		}
		br.ReadByte()
		line, err := br.ReadString('\n')
		buf.WriteString("\n")
		buf.WriteString(strings.TrimSuffix(line, "\n"))
		if err != nil {
			break
		}
	}
	return buf.String(), nil
}

// NumParents returns the number of parent commits.
func (c *Commit) NumParents() int { return len(c.Parents) }
