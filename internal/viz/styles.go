package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Theme is the colour scheme shared by the CLI output and the explorer.
type Theme struct {
	Name     string
	Primary  lipgloss.Color
	Accent   lipgloss.Color
	Text     lipgloss.Color
	Muted    lipgloss.Color
	Positive lipgloss.Color
	Negative lipgloss.Color
}

var (
	ThemeQuantum = Theme{
		Name:     "quantum",
		Primary:  lipgloss.Color("#7D56F4"),
		Accent:   lipgloss.Color("#00ccff"),
		Text:     lipgloss.Color("#e0e0ff"),
		Muted:    lipgloss.Color("#666688"),
		Positive: lipgloss.Color("#00ff88"),
		Negative: lipgloss.Color("#ff4466"),
	}

	ThemeRetroGreen = Theme{
		Name:     "retro",
		Primary:  lipgloss.Color("#00ff00"),
		Accent:   lipgloss.Color("#88ff88"),
		Text:     lipgloss.Color("#00ff00"),
		Muted:    lipgloss.Color("#005500"),
		Positive: lipgloss.Color("#88ff88"),
		Negative: lipgloss.Color("#ffff00"),
	}

	ThemeMinimal = Theme{
		Name:     "minimal",
		Primary:  lipgloss.Color("#ffffff"),
		Accent:   lipgloss.Color("#0088ff"),
		Text:     lipgloss.Color("#ffffff"),
		Muted:    lipgloss.Color("#888888"),
		Positive: lipgloss.Color("#cccccc"),
		Negative: lipgloss.Color("#ff0000"),
	}

	Themes = []Theme{ThemeQuantum, ThemeRetroGreen, ThemeMinimal}

	CurrentTheme = ThemeQuantum
)

var (
	TitleStyle    lipgloss.Style
	LabelStyle    lipgloss.Style
	ValueStyle    lipgloss.Style
	BarStyle      lipgloss.Style
	NegativeStyle lipgloss.Style
	Subtle        lipgloss.Style
	KeyHint       lipgloss.Style
	Panel         lipgloss.Style
)

func init() { applyTheme(CurrentTheme) }

func applyTheme(t Theme) {
	CurrentTheme = t
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(t.Primary)
	LabelStyle = lipgloss.NewStyle().Foreground(t.Text)
	ValueStyle = lipgloss.NewStyle().Foreground(t.Accent)
	BarStyle = lipgloss.NewStyle().Foreground(t.Positive)
	NegativeStyle = lipgloss.NewStyle().Foreground(t.Negative)
	Subtle = lipgloss.NewStyle().Foreground(t.Muted)
	KeyHint = lipgloss.NewStyle().Foreground(t.Muted).Italic(true)
	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Muted).
		Padding(0, 1)
}

// GetTheme returns a theme by name, falling back to the default.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeQuantum
}

func SetTheme(name string) { applyTheme(GetTheme(name)) }

// NextTheme cycles to the theme after the current one.
func NextTheme() Theme {
	for i, t := range Themes {
		if t.Name == CurrentTheme.Name {
			applyTheme(Themes[(i+1)%len(Themes)])
			return CurrentTheme
		}
	}
	applyTheme(ThemeQuantum)
	return CurrentTheme
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// Table renders rows under a header with a rounded border.
func Table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(Subtle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TitleStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	return t.String()
}

// ProgressBar renders a fraction in [0, 1] as a bar.
func ProgressBar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	filled = min(max(filled, 0), width)
	return BarStyle.Render(strings.Repeat("█", filled)) + Subtle.Render(strings.Repeat("░", width-filled))
}

// Sparkline renders values as a one-line chart.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	step := max(len(values)/width, 1)

	var b strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		norm := (values[i*step] - lo) / span
		idx := min(max(int(norm*float64(len(chars)-1)), 0), len(chars)-1)
		b.WriteRune(chars[idx])
	}
	return ValueStyle.Render(b.String())
}

// Spinner returns one frame of the braille spinner.
func Spinner(frame int) string {
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	return frames[frame%len(frames)]
}

func Separator(width int) string {
	mid := width / 2
	left := strings.Repeat("─", max(mid-3, 0))
	right := strings.Repeat("─", max(width-mid-3, 0))
	return Subtle.Render(left + " ◆ " + right)
}
