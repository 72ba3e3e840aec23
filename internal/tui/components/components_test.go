package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/theirongolddev/fincast/internal/tui/theme"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestLayoutRowSumsToTotal(t *testing.T) {
	for _, total := range []int{80, 121, 179} {
		for n := 1; n <= 5; n++ {
			sum := 0
			for _, w := range LayoutRow(total, n) {
				sum += w
			}
			if sum != total {
				t.Fatalf("LayoutRow(%d, %d) sums to %d", total, n, sum)
			}
		}
	}
	if LayoutRow(80, 0) != nil {
		t.Fatal("LayoutRow with n=0 should be nil")
	}
}

func TestCardRowPadsShorterCards(t *testing.T) {
	theme.SetActive("flexoki-dark")

	shortCard := ContentCard("Short", "Content", 22)
	tallCard := ContentCard("Tall", "Line 1\nLine 2\nLine 3\nLine 4\nLine 5", 22)

	shortLines := lipgloss.Height(shortCard)
	tallLines := lipgloss.Height(tallCard)
	if shortLines >= tallLines {
		t.Fatalf("short card (%d lines) should be shorter than tall card (%d lines)", shortLines, tallLines)
	}

	joined := CardRow([]string{tallCard, shortCard})
	lines := strings.Split(joined, "\n")
	if len(lines) != tallLines {
		t.Fatalf("joined height = %d, want %d", len(lines), tallLines)
	}

	want := lipgloss.Width(lines[0])
	for i, line := range lines {
		if w := lipgloss.Width(line); w != want {
			t.Fatalf("line %d width = %d, want %d", i, w, want)
		}
		if i >= shortLines && !strings.Contains(line, "\x1b[") {
			t.Fatalf("padding line %d has no styling: %q", i, line)
		}
	}
}

func TestCardRowSkipsEmptyCards(t *testing.T) {
	card := ContentCard("Only", "x", 20)
	if got := CardRow([]string{"", card, ""}); got != card {
		t.Fatalf("CardRow with empty entries changed the single card")
	}
	if CardRow(nil) != "" {
		t.Fatal("CardRow(nil) should be empty")
	}
}

func TestTabVisualWidth(t *testing.T) {
	settings := Tabs[len(Tabs)-1]
	if got := TabVisualWidth(settings, false); got != len(settings.Name)+5 {
		t.Fatalf("inactive Settings width = %d", got)
	}
	if got := TabVisualWidth(settings, true); got != len(settings.Name)+2 {
		t.Fatalf("active Settings width = %d", got)
	}
	if TabIdxByKey('b') != 3 {
		t.Fatalf("TabIdxByKey('b') = %d, want 3", TabIdxByKey('b'))
	}
}

func TestBarChartMarksProjection(t *testing.T) {
	theme.SetActive("flexoki-dark")
	out := BarChart(Series{
		Values: []float64{100, 200, 300, 400},
		Labels: []string{"Jan", "Feb", "Mar", "Apr"},
		Split:  2,
	}, 40, 6)
	if out == "" {
		t.Fatal("empty chart")
	}
	if !strings.Contains(out, "$") {
		t.Fatalf("chart has no currency ticks:\n%s", out)
	}
	if !strings.Contains(out, "Jan") {
		t.Fatalf("chart missing first label:\n%s", out)
	}
}

func TestFitBarsKeepsSplitPosition(t *testing.T) {
	values := make([]float64, 30)
	labels := make([]string, 30)
	for i := range values {
		values[i] = float64(i)
		labels[i] = "x"
	}
	got, gotLabels, split := fitBars(values, labels, 24, 20)
	if len(got) != 7 || len(gotLabels) != 7 {
		t.Fatalf("sampled %d bars, %d labels, want 7", len(got), len(gotLabels))
	}
	if got[0] != 0 || got[6] != 29 {
		t.Fatalf("sample ends = %v, %v", got[0], got[6])
	}
	if split != 5 {
		t.Fatalf("split = %d, want 5", split)
	}

	same, _, s := fitBars(values[:3], nil, 1, 20)
	if len(same) != 3 || s != 1 {
		t.Fatalf("short series changed: %d bars, split %d", len(same), s)
	}
}

func TestAxisLabelsDropsCollisions(t *testing.T) {
	got := axisLabels([]string{"2024-01", "2024-02", "2024-03"}, 5, 20)
	if !strings.HasPrefix(got, "2024-01") {
		t.Fatalf("first label missing: %q", got)
	}
	if strings.Contains(got, "2024-02") {
		t.Fatalf("colliding label drawn: %q", got)
	}
	if !strings.HasSuffix(got, "2024-03") {
		t.Fatalf("last label missing: %q", got)
	}
}
