package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/qlab/internal/quantum"
)

type Bar struct {
	Label string
	Value float64
}

// BarChart draws one horizontal bar per entry scaled to the largest
// magnitude. Negative values draw in the error colour.
func BarChart(title string, bars []Bar, width int) string {
	if width < 4 {
		width = 4
	}
	labelW, maxAbs := 0, 0.0
	for _, b := range bars {
		labelW = max(labelW, len([]rune(b.Label)))
		maxAbs = math.Max(maxAbs, math.Abs(b.Value))
	}
	if maxAbs == 0 {
		maxAbs = 1
	}

	var s strings.Builder
	if title != "" {
		s.WriteString(TitleStyle.Render(title) + "\n")
	}
	for _, b := range bars {
		n := int(math.Round(math.Abs(b.Value) / maxAbs * float64(width)))
		bar := strings.Repeat("█", n) + strings.Repeat(" ", width-n)
		style := BarStyle
		if b.Value < 0 {
			style = NegativeStyle
		}
		fmt.Fprintf(&s, "%s │%s %s\n",
			LabelStyle.Render(padRight(b.Label, labelW)),
			style.Render(bar),
			ValueStyle.Render(formatValue(b.Value)))
	}
	return s.String()
}

// Histogram charts sampled counts as probabilities, keys in bitstring
// order.
func Histogram(title string, counts quantum.Counts, width int) string {
	total := float64(counts.Total())
	if total == 0 {
		return BarChart(title, nil, width)
	}
	bars := make([]Bar, 0, len(counts))
	for _, k := range counts.Keys() {
		bars = append(bars, Bar{Label: k, Value: float64(counts[k]) / total})
	}
	return BarChart(title, bars, width)
}

// ProbabilityChart charts a full distribution over n qubits.
func ProbabilityChart(title string, probs []float64, n, width int) string {
	bars := make([]Bar, len(probs))
	for i, p := range probs {
		bars[i] = Bar{Label: quantum.BasisLabel(i, n), Value: p}
	}
	return BarChart(title, bars, width)
}

// SignedBars draws amplitudes about a zero axis with a dotted column at
// the mean, the picture of inversion about the mean.
func SignedBars(title string, labels []string, values []float64, mean float64, width int) string {
	half := max(width/2, 2)
	maxAbs := math.Abs(mean)
	labelW := 0
	for i, v := range values {
		maxAbs = math.Max(maxAbs, math.Abs(v))
		if i < len(labels) {
			labelW = max(labelW, len([]rune(labels[i])))
		}
	}
	if maxAbs == 0 {
		maxAbs = 1
	}
	col := func(v float64) int {
		return half + int(math.Round(v/maxAbs*float64(half)))
	}
	meanCol := col(mean)

	var s strings.Builder
	if title != "" {
		s.WriteString(TitleStyle.Render(title) + "\n")
	}
	for i, v := range values {
		row := []rune(strings.Repeat(" ", 2*half+1))
		lo, hi := half, col(v)
		if hi < lo {
			lo, hi = hi, lo
		}
		for x := lo; x <= hi && x < len(row); x++ {
			row[x] = '█'
		}
		row[half] = '│'
		if meanCol >= 0 && meanCol < len(row) && row[meanCol] == ' ' {
			row[meanCol] = '┊'
		}
		label := ""
		if i < len(labels) {
			label = labels[i]
		}
		style := BarStyle
		if v < 0 {
			style = NegativeStyle
		}
		fmt.Fprintf(&s, "%s %s %s\n",
			LabelStyle.Render(padRight(label, labelW)),
			style.Render(string(row)),
			ValueStyle.Render(formatValue(v)))
	}
	s.WriteString(Subtle.Render(fmt.Sprintf("mean %s", formatValue(mean))) + "\n")
	return s.String()
}

func formatValue(v float64) string {
	return fmt.Sprintf("%+.4f", v)
}

func padRight(s string, w int) string {
	if n := len([]rune(s)); n < w {
		return s + strings.Repeat(" ", w-n)
	}
	return s
}
