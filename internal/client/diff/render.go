package diff

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var prefixes = map[Op]string{
	Added:     "+",
	Removed:   "-",
	Unchanged: " ",
}

// Unified renders segments as one interleaved stream. Every line carries
// the prefix of its segment.
func Unified(segments []Segment) string {
	var sb strings.Builder
	for _, seg := range segments {
		p := prefixes[seg.Op]
		for _, line := range seg.Lines() {
			sb.WriteString(p)
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// DefaultWidth is the side-by-side width when none is configured.
const DefaultWidth = 80

type SideBySideOptions struct {
	LeftTitle  string
	RightTitle string
	// Width is the total width of both columns and the separator.
	Width int
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	columnStyle = lipgloss.NewStyle().PaddingRight(1)
	dividerLeft = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			PaddingRight(1)
)

// SideBySide lays out the two original texts in parallel columns. It does
// not look at any diff result.
func SideBySide(left, right string, opts SideBySideOptions) string {
	width := opts.Width
	if width <= 0 {
		width = DefaultWidth
	}
	// one border cell plus padding on each side
	col := max((width-3)/2, 10)

	r := columnStyle.PaddingLeft(1).Width(col).Render(column(opts.RightTitle, right))
	// the divider runs the full height of the taller column
	l := dividerLeft.Width(col).Height(lipgloss.Height(r)).Render(column(opts.LeftTitle, left))

	return lipgloss.JoinHorizontal(lipgloss.Top, l, r)
}

func column(title, text string) string {
	text = strings.TrimSuffix(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if title == "" {
		return text
	}
	return titleStyle.Render(title) + "\n" + text
}
