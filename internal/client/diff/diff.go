// Package diff computes line-level differences between two text blobs and
// renders them as a unified stream or as two side-by-side columns.
//
// The diff is a minimal edit script over whole lines (equivalent to a longest
// common subsequence), computed without time limits so the same inputs
// always produce the same segments.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/dmitrijs2005/doccontrol/internal/client/models"
	"github.com/dmitrijs2005/doccontrol/internal/common"
)

type Op string

const (
	Added     Op = "added"
	Removed   Op = "removed"
	Unchanged Op = "unchanged"
)

// Segment is a run of one or more whole lines sharing the same Op. Value
// holds the lines joined by "\n" without a trailing newline.
type Segment struct {
	Op    Op     `json:"op"`
	Value string `json:"value"`
}

// Lines splits the segment value back into lines.
func (s Segment) Lines() []string {
	return strings.Split(s.Value, "\n")
}

// Lines diffs a against b line by line. CRLF line endings are treated as LF
// and a missing final newline is not a difference.
func Lines(a, b string) []Segment {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0

	ra, rb, lineArray := dmp.DiffLinesToRunes(normalize(a), normalize(b))
	diffs := dmp.DiffCharsToLines(dmp.DiffMainRunes(ra, rb, false), lineArray)

	segments := make([]Segment, 0, len(diffs))
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		op := toOp(d.Type)
		value := strings.TrimSuffix(d.Text, "\n")

		if n := len(segments); n > 0 && segments[n-1].Op == op {
			segments[n-1].Value += "\n" + value
			continue
		}
		segments = append(segments, Segment{Op: op, Value: value})
	}
	return segments
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if s != "" && !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	return s
}

func toOp(t diffmatchpatch.Operation) Op {
	switch t {
	case diffmatchpatch.DiffInsert:
		return Added
	case diffmatchpatch.DiffDelete:
		return Removed
	default:
		return Unchanged
	}
}

// Compare diffs two downloaded versions. Both must be text/*; otherwise it
// fails with common.ErrUnsupportedContentType and computes nothing.
func Compare(left, right models.Blob) ([]Segment, error) {
	for _, b := range []models.Blob{left, right} {
		if !b.IsText() {
			return nil, fmt.Errorf("%w: %q", common.ErrUnsupportedContentType, b.ContentType)
		}
	}
	return Lines(string(left.Data), string(right.Data)), nil
}

// Stats counts lines per Op.
type Stats struct {
	Added     int
	Removed   int
	Unchanged int
}

func (s Stats) Changed() bool {
	return s.Added > 0 || s.Removed > 0
}

func Summarize(segments []Segment) Stats {
	var st Stats
	for _, seg := range segments {
		n := len(seg.Lines())
		switch seg.Op {
		case Added:
			st.Added += n
		case Removed:
			st.Removed += n
		default:
			st.Unchanged += n
		}
	}
	return st
}
