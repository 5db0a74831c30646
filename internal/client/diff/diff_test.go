package diff

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/doccontrol/internal/client/models"
	"github.com/dmitrijs2005/doccontrol/internal/common"
)

func TestLines(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want []Segment
	}{
		{
			name: "check-in scenario",
			a:    "line1\nline2",
			b:    "line1\nlineX",
			want: []Segment{
				{Op: Unchanged, Value: "line1"},
				{Op: Removed, Value: "line2"},
				{Op: Added, Value: "lineX"},
			},
		},
		{
			name: "identical",
			a:    "a\nb\nc\n",
			b:    "a\nb\nc\n",
			want: []Segment{{Op: Unchanged, Value: "a\nb\nc"}},
		},
		{
			name: "both empty",
			want: []Segment{},
		},
		{
			name: "from empty",
			b:    "x\ny",
			want: []Segment{{Op: Added, Value: "x\ny"}},
		},
		{
			name: "to empty",
			a:    "x\ny",
			want: []Segment{{Op: Removed, Value: "x\ny"}},
		},
		{
			name: "trailing newline ignored",
			a:    "a\nb",
			b:    "a\nb\n",
			want: []Segment{{Op: Unchanged, Value: "a\nb"}},
		},
		{
			name: "crlf",
			a:    "a\r\nb\r\n",
			b:    "a\nb\n",
			want: []Segment{{Op: Unchanged, Value: "a\nb"}},
		},
		{
			name: "append at end",
			a:    "a\nb",
			b:    "a\nb\nc",
			want: []Segment{
				{Op: Unchanged, Value: "a\nb"},
				{Op: Added, Value: "c"},
			},
		},
		{
			name: "whole lines only",
			a:    "the quick fox\n",
			b:    "the quick dog\n",
			want: []Segment{
				{Op: Removed, Value: "the quick fox"},
				{Op: Added, Value: "the quick dog"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Lines(tt.a, tt.b)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Lines() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLines_Deterministic(t *testing.T) {
	a := strings.Repeat("x\ny\n", 50)
	b := strings.Repeat("y\nx\n", 50)

	first := Lines(a, b)
	for range 20 {
		require.Equal(t, first, Lines(a, b))
	}
}

// rebuild returns the lines of one side of the diff: removed+unchanged for
// the left, added+unchanged for the right.
func rebuild(segments []Segment, skip Op) []string {
	var out []string
	for _, s := range segments {
		if s.Op != skip {
			out = append(out, s.Lines()...)
		}
	}
	return out
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func TestLines_Symmetry(t *testing.T) {
	pairs := [][2]string{
		{"a\nb\nc", "a\nc\nd"},
		{"1\n2\n3\n4\n5", "5\n4\n3\n2\n1"},
		{"", "only\nright"},
		{"dup\ndup\ndup", "dup"},
		{"head\nmid\ntail", "head\nnew\nmid\ntail\nmore"},
	}

	for _, p := range pairs {
		a, b := p[0], p[1]
		ab := Lines(a, b)
		ba := Lines(b, a)

		assert.Equal(t, splitLines(a), rebuild(ab, Added), "left side of %q/%q", a, b)
		assert.Equal(t, splitLines(b), rebuild(ab, Removed), "right side of %q/%q", a, b)

		sab, sba := Summarize(ab), Summarize(ba)
		assert.Equal(t, sab.Removed, sba.Added)
		assert.Equal(t, sab.Added, sba.Removed)
		assert.Equal(t, sab.Unchanged, sba.Unchanged)
	}
}

func TestCompare(t *testing.T) {
	text := models.Blob{ContentType: "text/plain; charset=utf-8", Data: []byte("a\nb")}
	md := models.Blob{ContentType: "text/markdown", Data: []byte("a\nc")}
	pdf := models.Blob{ContentType: "application/pdf", Data: []byte("%PDF")}

	segs, err := Compare(text, md)
	require.NoError(t, err)
	assert.Equal(t, Stats{Added: 1, Removed: 1, Unchanged: 1}, Summarize(segs))

	_, err = Compare(text, pdf)
	require.ErrorIs(t, err, common.ErrUnsupportedContentType)

	_, err = Compare(models.Blob{ContentType: "image/png"}, text)
	require.ErrorIs(t, err, common.ErrUnsupportedContentType)
}

func TestSummarize(t *testing.T) {
	st := Summarize(Lines("a\nb\nc", "a\nb\nc"))
	assert.Equal(t, Stats{Unchanged: 3}, st)
	assert.False(t, st.Changed())

	st = Summarize(Lines("line1\nline2", "line1\nlineX"))
	assert.True(t, st.Changed())
}

func TestUnified(t *testing.T) {
	got := Unified([]Segment{
		{Op: Unchanged, Value: "line1"},
		{Op: Removed, Value: "line2\nline3"},
		{Op: Added, Value: "lineX"},
	})
	assert.Equal(t, " line1\n-line2\n-line3\n+lineX\n", got)
	assert.Empty(t, Unified(nil))
}

func TestSideBySide(t *testing.T) {
	out := SideBySide("line1\nline2", "line1\nlineX\nline3", SideBySideOptions{
		LeftTitle:  "v1",
		RightTitle: "v2",
		Width:      40,
	})

	for _, s := range []string{"v1", "v2", "line2", "lineX", "line3"} {
		assert.Contains(t, out, s)
	}

	rows := strings.Split(out, "\n")
	assert.Len(t, rows, 4, "title plus the longer side")
	for _, r := range rows {
		assert.LessOrEqual(t, lipgloss.Width(r), 40)
		assert.Contains(t, r, "│")
	}
}

func TestSideBySide_DefaultWidth(t *testing.T) {
	out := SideBySide("a", "b", SideBySideOptions{})
	for _, r := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, lipgloss.Width(r), DefaultWidth)
	}
}
