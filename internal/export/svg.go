package export

import (
	"fmt"
	"html"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/san-kum/qlab/internal/viz"
)

const (
	background = "#0a0a0a"
	foreground = "#e0e0ff"
	muted      = "#666688"
	positive   = "#00cc88"
	negative   = "#ff4466"
	meanColor  = "#ffcc00"
)

var palette = []string{"#00ccff", "#ff00ff", "#ffcc00", "#00ff88", "#ff4466", "#7d56f4"}

func header(sb *strings.Builder, width, height int, title string) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="monospace" font-size="12">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)
	if title != "" {
		fmt.Fprintf(sb, `<text x="%d" y="20" fill="%s" text-anchor="middle" font-size="14">%s</text>
`, width/2, foreground, html.EscapeString(title))
	}
}

// CanvasToSVG draws every lit braille dot as a circle.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}
	w, h := canvas.Size()
	var sb strings.Builder
	header(&sb, int(float64(w)*scale), int(float64(h)*scale), "")
	fmt.Fprintf(&sb, "<g fill=\"%s\">\n", positive)
	r := scale * 0.4
	for _, d := range canvas.Dots() {
		fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
			float64(d[0])*scale+scale/2, float64(d[1])*scale+scale/2, r)
	}
	sb.WriteString("</g>\n</svg>\n")
	return sb.String()
}

// BarChartSVG draws vertical bars about a zero baseline. A non-nil mean
// adds a dashed line at that value.
func BarChartSVG(title string, bars []viz.Bar, mean *float64, width, height int) string {
	const left, right, top, bottom = 60, 20, 40, 50
	lo, hi := 0.0, 0.0
	for _, b := range bars {
		lo, hi = math.Min(lo, b.Value), math.Max(hi, b.Value)
	}
	if mean != nil {
		lo, hi = math.Min(lo, *mean), math.Max(hi, *mean)
	}
	if hi == lo {
		hi = lo + 1
	}
	plotW := float64(width - left - right)
	plotH := float64(height - top - bottom)
	y := func(v float64) float64 { return float64(top) + (hi-v)/(hi-lo)*plotH }

	var sb strings.Builder
	header(&sb, width, height, title)
	fmt.Fprintf(&sb, `<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="%s"/>
`, left, y(0), width-right, y(0), muted)
	axisLabels(&sb, left, y, lo, hi)

	if len(bars) > 0 {
		slot := plotW / float64(len(bars))
		for i, b := range bars {
			x := float64(left) + float64(i)*slot + slot*0.15
			y0, y1 := y(0), y(b.Value)
			if y1 > y0 {
				y0, y1 = y1, y0
			}
			color := positive
			if b.Value < 0 {
				color = negative
			}
			fmt.Fprintf(&sb, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>
`, x, y1, slot*0.7, y0-y1, color)
			fmt.Fprintf(&sb, `<text x="%.1f" y="%d" fill="%s" text-anchor="middle">%s</text>
`, x+slot*0.35, height-bottom+18, foreground, html.EscapeString(b.Label))
		}
	}
	if mean != nil {
		fmt.Fprintf(&sb, `<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="%s" stroke-dasharray="6 4"/>
<text x="%d" y="%.1f" fill="%s" text-anchor="end">mean</text>
`, left, y(*mean), width-right, y(*mean), meanColor, width-right, y(*mean)-4, meanColor)
	}
	sb.WriteString("</svg>\n")
	return sb.String()
}

// LineChartSVG plots each series against its index, or against xs when
// given.
func LineChartSVG(title string, series []viz.Series, xs []float64, width, height int) string {
	const left, right, top, bottom = 60, 120, 40, 40
	lo, hi := math.Inf(1), math.Inf(-1)
	n := 0
	for _, s := range series {
		for _, v := range s.Values {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
		n = max(n, len(s.Values))
	}
	if n == 0 {
		lo, hi = 0, 1
	}
	if hi == lo {
		lo, hi = lo-0.5, hi+0.5
	}
	xAt := func(i int) float64 {
		if i < len(xs) {
			return xs[i]
		}
		return float64(i)
	}
	xlo, xhi := xAt(0), xAt(max(n-1, 1))
	if xhi == xlo {
		xhi = xlo + 1
	}
	plotW := float64(width - left - right)
	plotH := float64(height - top - bottom)
	px := func(x float64) float64 { return float64(left) + (x-xlo)/(xhi-xlo)*plotW }
	py := func(v float64) float64 { return float64(top) + (hi-v)/(hi-lo)*plotH }

	var sb strings.Builder
	header(&sb, width, height, title)
	fmt.Fprintf(&sb, `<rect x="%d" y="%d" width="%.0f" height="%.0f" fill="none" stroke="%s"/>
`, left, top, plotW, plotH, muted)
	axisLabels(&sb, left, py, lo, hi)

	for si, s := range series {
		if len(s.Values) == 0 {
			continue
		}
		color := palette[si%len(palette)]
		sb.WriteString(`<path fill="none" stroke="` + color + `" stroke-width="1.5" d="`)
		for i, v := range s.Values {
			cmd := " L"
			if i == 0 {
				cmd = "M"
			}
			fmt.Fprintf(&sb, "%s%.1f,%.1f", cmd, px(xAt(i)), py(v))
		}
		sb.WriteString("\"/>\n")
		fmt.Fprintf(&sb, `<text x="%d" y="%d" fill="%s">%s</text>
`, width-right+10, top+14+16*si, color, html.EscapeString(s.Name))
	}
	sb.WriteString("</svg>\n")
	return sb.String()
}

func axisLabels(sb *strings.Builder, left int, y func(float64) float64, lo, hi float64) {
	for _, v := range []float64{lo, (lo + hi) / 2, hi} {
		fmt.Fprintf(sb, `<text x="%d" y="%.1f" fill="%s" text-anchor="end">%.3g</text>
`, left-6, y(v)+4, muted, v)
	}
}

// BlochSVG projects the sphere and its state vectors with the given
// camera. Vectors are drawn over the wireframe in distinct colours.
func BlochSVG(title string, vectors []viz.Vec3, cam *viz.Camera, size int) string {
	if cam == nil {
		cam = viz.NewCamera()
	}
	var sb strings.Builder
	header(&sb, size, size, title)

	line := func(a, b viz.Vec3, color string, w float64) {
		x1, y1, _, _ := cam.Project(a, size, size)
		x2, y2, _, _ := cam.Project(b, size, size)
		fmt.Fprintf(&sb, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="%.1f"/>
`, x1, y1, x2, y2, color, w)
	}
	for _, e := range viz.SphereWireframe().Edges {
		line(e.Start, e.End, muted, 1)
	}
	axes := []struct {
		label string
		at    viz.Vec3
	}{
		{"x", viz.Vec3{X: 1.15}},
		{"y", viz.Vec3{Y: 1.15}},
		{"|0⟩", viz.Vec3{Z: 1.15}},
		{"|1⟩", viz.Vec3{Z: -1.2}},
	}
	for _, a := range axes {
		x, y, _, _ := cam.Project(a.at, size, size)
		fmt.Fprintf(&sb, `<text x="%d" y="%d" fill="%s" text-anchor="middle">%s</text>
`, x, y, foreground, html.EscapeString(a.label))
	}
	for i, v := range vectors {
		color := palette[i%len(palette)]
		for _, e := range viz.ArrowWireframe(v).Edges {
			line(e.Start, e.End, color, 2)
		}
	}
	sb.WriteString("</svg>\n")
	return sb.String()
}

// WriteFile writes an SVG document to dir/name, creating dir.
func WriteFile(dir, name, svg string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	if !strings.HasSuffix(name, ".svg") {
		name += ".svg"
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
		return "", err
	}
	return path, nil
}
