package merge

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// MergeText three-way merges base/ours/theirs at line granularity,
// diffing each side against base with diffmatchpatch's line-hashing mode
// (DiffLinesToChars/DiffCharsToLines, the standard trick for running a
// character-level differ over whole lines cheaply) and then merging the
// two resulting edit scripts over base's line numbering. Overlapping,
// non-identical edits are reported as a conflict and left as
// "<<<<<<< ours" / "=======" / ">>>>>>> theirs" markers in the returned
// content.
func MergeText(base, ours, theirs []byte) (merged []byte, conflict bool) {
	dmp := diffmatchpatch.New()

	oursDiffs := lineDiff(dmp, base, ours)
	theirsDiffs := lineDiff(dmp, base, theirs)

	baseLines := splitLines(string(base))
	oursHunks := buildHunks(oursDiffs)
	theirsHunks := buildHunks(theirsDiffs)

	lines, conflict := mergeHunks(baseLines, oursHunks, theirsHunks)
	return []byte(strings.Join(lines, "")), conflict
}

func lineDiff(dmp *diffmatchpatch.DiffMatchPatch, a, b []byte) []diffmatchpatch.Diff {
	c1, c2, lines := dmp.DiffLinesToChars(string(a), string(b))
	diffs := dmp.DiffMain(c1, c2, false)
	return dmp.DiffCharsToLines(diffs, lines)
}

// hunk is a half-open range [start, end) of base line numbers replaced
// by text (text may be empty for a pure deletion, or start==end for a
// pure insertion at that position).
type hunk struct {
	start, end int
	text       string
}

func buildHunks(diffs []diffmatchpatch.Diff) []hunk {
	var hunks []hunk
	pos := 0
	start := 0
	var text strings.Builder
	inEdit := false

	flush := func(end int) {
		if inEdit {
			hunks = append(hunks, hunk{start: start, end: end, text: text.String()})
			text.Reset()
			inEdit = false
		}
	}

	for _, d := range diffs {
		n := countLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush(pos)
			pos += n
		case diffmatchpatch.DiffDelete:
			if !inEdit {
				start = pos
				inEdit = true
			}
			pos += n
		case diffmatchpatch.DiffInsert:
			if !inEdit {
				start = pos
				inEdit = true
			}
			text.WriteString(d.Text)
		}
	}
	flush(pos)
	return hunks
}

// mergeHunks walks base's lines once, applying ours's and theirs's
// hunks in base-position order. Disjoint hunks apply independently;
// hunks covering the same base range are taken once if identical,
// otherwise reported as a conflict.
func mergeHunks(baseLines []string, ours, theirs []hunk) (out []string, conflict bool) {
	pos := 0
	oi, ti := 0, 0

	next := func(i int, hs []hunk) *hunk {
		if i < len(hs) {
			return &hs[i]
		}
		return nil
	}

	for oi < len(ours) || ti < len(theirs) {
		oh, th := next(oi, ours), next(ti, theirs)

		switch {
		case th == nil || (oh != nil && oh.end <= th.start):
			out = append(out, baseLines[pos:oh.start]...)
			out = append(out, splitLines(oh.text)...)
			pos = oh.end
			oi++

		case oh == nil || (th.end <= oh.start):
			out = append(out, baseLines[pos:th.start]...)
			out = append(out, splitLines(th.text)...)
			pos = th.end
			ti++

		default:
			start := oh.start
			if th.start < start {
				start = th.start
			}
			end := oh.end
			if th.end > end {
				end = th.end
			}
			out = append(out, baseLines[pos:start]...)
			if oh.start == th.start && oh.end == th.end && oh.text == th.text {
				out = append(out, splitLines(oh.text)...)
			} else {
				conflict = true
				out = append(out, "<<<<<<< ours\n")
				out = append(out, splitLines(oh.text)...)
				out = append(out, "=======\n")
				out = append(out, splitLines(th.text)...)
				out = append(out, ">>>>>>> theirs\n")
			}
			pos = end
			oi++
			ti++
		}
	}
	out = append(out, baseLines[pos:]...)
	return out, conflict
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func countLines(s string) int { return len(splitLines(s)) }
