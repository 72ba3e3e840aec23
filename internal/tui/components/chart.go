package components

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/theirongolddev/fincast/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Sparkline renders a unicode sparkline from values.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	t := theme.Active

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	peak := slices.Max(values)
	if peak <= 0 {
		peak = 1
	}

	style := lipgloss.NewStyle().Foreground(color).Background(t.Surface)

	var buf strings.Builder
	for _, v := range values {
		idx := min(max(int(v/peak*float64(len(blocks)-1)), 0), len(blocks)-1)
		buf.WriteRune(blocks[idx])
	}

	return style.Render(buf.String())
}

// Series is a bar chart input. Bars at index Split and later are drawn in
// the projected color; Split <= 0 or >= len(Values) means no projection.
type Series struct {
	Values []float64
	Labels []string
	Color  lipgloss.Color
	Split  int
}

// BarChart renders a bar chart of s. Negative values are drawn as empty bars.
func BarChart(s Series, width, height int) string {
	values := s.Values
	labels := s.Labels
	color := s.Color
	if len(values) == 0 {
		return ""
	}
	if width < 15 || height < 3 {
		return Sparkline(values, color)
	}

	t := theme.Active
	if color == "" {
		color = t.Accent
	}
	split := s.Split
	if split <= 0 || split > len(values) {
		split = len(values)
	}

	maxVal := max(slices.Max(values), 0)
	if maxVal == 0 {
		maxVal = 1
	}

	tickStep := chartTickStep(maxVal)
	maxIntervals := max(height/2, 2)
	for math.Ceil(maxVal/tickStep) > float64(maxIntervals) {
		tickStep *= 2
	}
	ceiling := math.Ceil(maxVal/tickStep) * tickStep
	numIntervals := max(int(math.Round(ceiling/tickStep)), 1)
	rowsPerTick := max(height/numIntervals, 2)
	chartH := rowsPerTick * numIntervals

	yLabelW := max(len(formatChartLabel(ceiling))+1, 4)
	tickLabels := make(map[int]string, numIntervals)
	for i := 1; i <= numIntervals; i++ {
		tickLabels[i*rowsPerTick] = formatChartLabel(tickStep * float64(i))
	}

	chartW := max(width-yLabelW-1, 5)
	values, labels, split = fitBars(values, labels, split, chartW)
	n := len(values)
	gap := 0
	barW := chartW
	if n > 1 {
		gap = 1
		barW = (chartW - (n - 1)) / n
	}
	barW = min(max(barW, 2), 6)
	axisLen := n*barW + (n-1)*gap

	blocks := []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	axisStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	barStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
	projStyle := lipgloss.NewStyle().Foreground(t.Projected()).Background(t.Surface)

	var b strings.Builder

	for row := chartH; row >= 1; row-- {
		rowTop := ceiling * float64(row) / float64(chartH)
		rowBottom := ceiling * float64(row-1) / float64(chartH)

		label := tickLabels[row]
		b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, label)))
		b.WriteString(axisStyle.Render("│"))

		for i, v := range values {
			if i > 0 && gap > 0 {
				b.WriteString(lipgloss.NewStyle().Background(t.Surface).Render(strings.Repeat(" ", gap)))
			}
			style := barStyle
			if i >= split {
				style = projStyle
			}
			switch {
			case v >= rowTop:
				b.WriteString(style.Render(strings.Repeat("█", barW)))
			case v > rowBottom:
				frac := (v - rowBottom) / (rowTop - rowBottom)
				idx := min(max(int(frac*8), 1), 8)
				b.WriteString(style.Render(strings.Repeat(string(blocks[idx]), barW)))
			default:
				b.WriteString(lipgloss.NewStyle().Background(t.Surface).Render(strings.Repeat(" ", barW)))
			}
		}
		b.WriteString("\n")
	}

	// X-axis line with 0 label
	b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, "0")))
	b.WriteString(axisStyle.Render("└"))
	b.WriteString(axisStyle.Render(strings.Repeat("─", axisLen)))

	if len(labels) == n {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Background(t.Surface).Render(strings.Repeat(" ", yLabelW+1)))
		b.WriteString(axisStyle.Render(axisLabels(labels, barW+gap, axisLen)))
	}

	return b.String()
}

// fitBars downsamples values so every bar is at least two cells wide, and
// moves split to the first sampled bar at or past it.
func fitBars(values []float64, labels []string, split, chartW int) ([]float64, []string, int) {
	n := len(values)
	keep := max((chartW+1)/3, 2)
	if n <= keep {
		return values, labels, split
	}
	out := make([]float64, keep)
	var outLabels []string
	if len(labels) == n {
		outLabels = make([]string, keep)
	}
	newSplit := keep
	for i := range out {
		src := i * (n - 1) / (keep - 1)
		out[i] = values[src]
		if outLabels != nil {
			outLabels[i] = labels[src]
		}
		if src >= split && newSplit == keep {
			newSplit = i
		}
	}
	return out, outLabels, newSplit
}

// axisLabels places bar labels stride cells apart, dropping any that would
// collide. The last label is always drawn so the newest period stays visible.
func axisLabels(labels []string, stride, width int) string {
	buf := []byte(strings.Repeat(" ", width))
	last := len(labels) - 1
	lastPos := max(min(last*stride, width-len(labels[last])), 0)
	limit := width
	if last > 0 {
		limit = lastPos - 1
	}
	end := -1
	for i := 0; i < last; i++ {
		pos := i * stride
		if pos <= end || pos+len(labels[i]) > limit {
			continue
		}
		copy(buf[pos:], labels[i])
		end = pos + len(labels[i])
	}
	copy(buf[lastPos:], labels[last])
	return strings.TrimRight(string(buf), " ")
}

// chartTickStep computes a nice tick interval targeting ~5 ticks.
func chartTickStep(maxVal float64) float64 {
	if maxVal <= 0 {
		return 1
	}
	rough := maxVal / 5
	exp := math.Floor(math.Log10(rough))
	base := math.Pow(10, exp)
	frac := rough / base

	switch {
	case frac < 1.5:
		return base
	case frac < 3.5:
		return 2 * base
	default:
		return 5 * base
	}
}

// formatChartLabel renders an axis tick as a compact currency amount.
func formatChartLabel(v float64) string {
	return "$" + compactNumber(v)
}

func compactNumber(v float64) string {
	switch {
	case v >= 1e9:
		if v == math.Trunc(v/1e9)*1e9 {
			return fmt.Sprintf("%.0fB", v/1e9)
		}
		return fmt.Sprintf("%.1fB", v/1e9)
	case v >= 1e6:
		if v == math.Trunc(v/1e6)*1e6 {
			return fmt.Sprintf("%.0fM", v/1e6)
		}
		return fmt.Sprintf("%.1fM", v/1e6)
	case v >= 1e3:
		if v == math.Trunc(v/1e3)*1e3 {
			return fmt.Sprintf("%.0fk", v/1e3)
		}
		return fmt.Sprintf("%.1fk", v/1e3)
	case v >= 1:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
