package viz

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/mat"
)

// RenderMatrix renders m inside a titled panel. splits lists the offsets at
// which a new state block starts; a separator is drawn before each one.
func RenderMatrix(title string, m mat.Matrix, splits []int) string {
	r, c := m.Dims()
	cells := make([][]string, r)
	width := 0
	for i := 0; i < r; i++ {
		cells[i] = make([]string, c)
		for j := 0; j < c; j++ {
			cells[i][j] = formatValue(m.At(i, j))
			width = max(width, len(cells[i][j]))
		}
	}

	isSplit := make(map[int]bool, len(splits))
	for _, s := range splits {
		if s > 0 {
			isSplit[s] = true
		}
	}

	var lines []string
	for i := 0; i < r; i++ {
		if isSplit[i] {
			lines = append(lines, Subtle.Render(strings.Repeat("─", rowWidth(c, width, isSplit))))
		}
		var row strings.Builder
		for j := 0; j < c; j++ {
			if isSplit[j] {
				row.WriteString(Subtle.Render(" │"))
			}
			row.WriteString(" ")
			row.WriteString(styleFor(m.At(i, j)).Render(pad(cells[i][j], width)))
		}
		lines = append(lines, row.String())
	}

	body := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return Title.Render(title) + "\n" + Panel.Render(body)
}

// RenderVector renders v as one labelled row.
func RenderVector(label string, v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = styleFor(x).Render(formatValue(x))
	}
	return Title.Render(label) + " [" + strings.Join(parts, " ") + "]"
}

func rowWidth(cols, width int, splits map[int]bool) int {
	w := cols * (width + 1)
	for j := 1; j < cols; j++ {
		if splits[j] {
			w += 2
		}
	}
	return w
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

func styleFor(v float64) lipgloss.Style {
	switch {
	case v > 0:
		return Positive
	case v < 0:
		return Negative
	}
	return Zero
}
