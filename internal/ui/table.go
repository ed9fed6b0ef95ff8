package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// column describes one table column.
type column struct {
	title string
	width int
	right bool
}

// cellStyler picks a style for one cell. Returning ok=false uses the
// default text style.
type cellStyler func(row, col int) (lipgloss.Style, bool)

// renderTable draws a header and rows, scrolled so selected stays within
// height rows. A negative selected disables highlighting.
func renderTable(styles Styles, cols []column, rows [][]string, selected, height int, styleCell cellStyler) string {
	var b strings.Builder

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = fitCell(c.title, c)
	}
	b.WriteString(styles.TableHeader.Render(strings.Join(header, " ")))

	if height < 1 {
		height = 1
	}
	start := 0
	if selected >= height {
		start = selected - height + 1
	}
	end := min(len(rows), start+height)

	for r := start; r < end; r++ {
		b.WriteString("\n")
		cells := make([]string, len(cols))
		for i, c := range cols {
			text := ""
			if i < len(rows[r]) {
				text = rows[r][i]
			}
			cells[i] = fitCell(text, c)
		}
		if r == selected {
			b.WriteString(styles.Selected.Render(strings.Join(cells, " ")))
			continue
		}
		for i := range cells {
			style := styles.Text
			if styleCell != nil {
				if s, ok := styleCell(r, i); ok {
					style = s
				}
			}
			cells[i] = style.Render(cells[i])
		}
		b.WriteString(strings.Join(cells, " "))
	}
	return b.String()
}

func fitCell(text string, c column) string {
	text = truncate(text, c.width)
	if c.right {
		return padLeft(text, c.width)
	}
	return padRight(text, c.width)
}

// tableWidth is the rendered width of cols including separators.
func tableWidth(cols []column) int {
	w := 0
	for _, c := range cols {
		w += c.width + 1
	}
	return max(w-1, 0)
}

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// sparkline renders values as block characters scaled to their range.
func sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	out := make([]rune, len(values))
	for i, v := range values {
		idx := 0
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(sparkBlocks)-1))
		}
		out[i] = sparkBlocks[idx]
	}
	return string(out)
}
