package viz

import (
	"math"
	"strings"
	"testing"

	"github.com/san-kum/qlab/internal/quantum"
)

func TestCanvasSetUnset(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)
	if !c.IsSet(0, 0) || !c.IsSet(3, 3) {
		t.Fatal("expected dots to be set")
	}
	if c.Grid[0][0] != 0x2801 {
		t.Errorf("expected ⠁, got %q", c.Grid[0][0])
	}
	if c.Grid[0][1] != 0x2880 {
		t.Errorf("expected ⢀, got %q", c.Grid[0][1])
	}

	c.Unset(0, 0)
	if c.IsSet(0, 0) {
		t.Error("expected dot to be cleared")
	}
	if c.Grid[0][0] != brailleBase {
		t.Errorf("expected empty cell, got %q", c.Grid[0][0])
	}

	c.Set(-1, 0)
	c.Set(100, 0)
	if got := len(c.Dots()); got != 1 {
		t.Errorf("expected 1 dot, got %d", got)
	}
}

func TestCanvasDrawLine(t *testing.T) {
	c := NewCanvas(4, 1)
	c.DrawLine(0, 0, 7, 0)
	for x := 0; x < 8; x++ {
		if !c.IsSet(x, 0) {
			t.Errorf("expected dot at x=%d", x)
		}
	}
	if len(c.Dots()) != 8 {
		t.Errorf("expected 8 dots, got %d", len(c.Dots()))
	}
}

func TestCanvasString(t *testing.T) {
	c := NewCanvas(3, 2)
	lines := strings.Split(strings.TrimSuffix(c.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if len([]rune(lines[0])) != 3 {
		t.Errorf("expected 3 cells, got %d", len([]rune(lines[0])))
	}
}

func TestVecAngles(t *testing.T) {
	theta, phi := Vec3{0, 1, 0}.Angles()
	if math.Abs(theta-math.Pi/2) > 1e-12 || math.Abs(phi-math.Pi/2) > 1e-12 {
		t.Errorf("expected (pi/2, pi/2), got (%g, %g)", theta, phi)
	}
	theta, _ = Vec3{0, 0, -2}.Angles()
	if math.Abs(theta-math.Pi) > 1e-12 {
		t.Errorf("expected pi, got %g", theta)
	}
}

func TestCameraProjectsNorthPoleUp(t *testing.T) {
	cam := NewCamera()
	_, yNorth, _, ok1 := cam.Project(Vec3{0, 0, 1}, 100, 100)
	_, ySouth, _, ok2 := cam.Project(Vec3{0, 0, -1}, 100, 100)
	if !ok1 || !ok2 {
		t.Fatal("poles should be visible")
	}
	if yNorth >= ySouth {
		t.Errorf("expected |0> above |1>, got y=%d and y=%d", yNorth, ySouth)
	}
}

func TestBlochSphere(t *testing.T) {
	out := BlochSphere([]Vec3{{1, 0, 0}, {0.3, 0.5, 0.6}}, 30, 15, nil)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 15 {
		t.Fatalf("expected 15 rows, got %d", len(lines))
	}
	blank := string(rune(brailleBase))
	if strings.Count(out, blank) == 30*15 {
		t.Error("sphere rendered nothing")
	}
}

func TestHistogram(t *testing.T) {
	out := Histogram("bell", quantum.Counts{"00": 60, "11": 40}, 10)
	if !strings.Contains(out, "00") || !strings.Contains(out, "11") {
		t.Errorf("missing labels:\n%s", out)
	}
	if !strings.Contains(out, "+0.6000") || !strings.Contains(out, "+0.4000") {
		t.Errorf("missing probabilities:\n%s", out)
	}
	if !strings.Contains(out, strings.Repeat("█", 10)) {
		t.Errorf("largest bar should fill the width:\n%s", out)
	}
}

func TestSignedBars(t *testing.T) {
	out := SignedBars("oracle", []string{"|0⟩", "|1⟩"}, []float64{0.5, -0.5}, 0, 10)
	if !strings.Contains(out, "-0.5000") {
		t.Errorf("missing negative value:\n%s", out)
	}
	if !strings.Contains(out, "mean +0.0000") {
		t.Errorf("missing mean line:\n%s", out)
	}
}

func TestLinePlot(t *testing.T) {
	out := LinePlot("sweep", []Series{
		{Name: "00", Values: []float64{0, 0.5, 1}},
		{Name: "11", Values: []float64{1, 0.5, 0}},
	}, 5, 20)
	if !strings.Contains(out, "sweep") {
		t.Errorf("missing caption:\n%s", out)
	}
	if LinePlot("empty", nil, 5, 20) != "" {
		t.Error("expected empty plot for no series")
	}
}

func TestTable(t *testing.T) {
	out := Table([]string{"name", "qubits"}, [][]string{{"fake_eagle", "5"}})
	if !strings.Contains(out, "fake_eagle") || !strings.Contains(out, "qubits") {
		t.Errorf("unexpected table:\n%s", out)
	}
}

func TestThemes(t *testing.T) {
	defer SetTheme("quantum")

	SetTheme("retro")
	if CurrentTheme.Name != "retro" {
		t.Errorf("expected retro, got %s", CurrentTheme.Name)
	}
	if NextTheme().Name != "minimal" {
		t.Errorf("expected minimal after retro")
	}
	if GetTheme("nope").Name != "quantum" {
		t.Error("unknown theme should fall back to quantum")
	}
}
