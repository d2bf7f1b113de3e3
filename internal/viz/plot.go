package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"
)

// Plot draws each series as a line chart. Series longer than width are
// downsampled by asciigraph.
func Plot(caption string, width, height int, series ...[]float64) string {
	data := make([][]float64, 0, len(series))
	for _, s := range series {
		if len(s) > 0 {
			data = append(data, s)
		}
	}
	if len(data) == 0 {
		return Subtle.Render(fmt.Sprintf("%s: no data", caption))
	}

	colors := []asciigraph.AnsiColor{asciigraph.Cyan, asciigraph.Green, asciigraph.Red, asciigraph.Yellow}
	seriesColors := make([]asciigraph.AnsiColor, len(data))
	for i := range data {
		seriesColors[i] = colors[i%len(colors)]
	}

	return asciigraph.PlotMany(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(seriesColors...),
	)
}

// Column extracts component k of every state.
func Column(states [][]float64, k int) []float64 {
	out := make([]float64, 0, len(states))
	for _, s := range states {
		if k < len(s) {
			out = append(out, s[k])
		}
	}
	return out
}
