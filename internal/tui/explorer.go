package tui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/qlab/internal/quantum"
	"github.com/san-kum/qlab/internal/viz"
)

// RotationStep is the angle applied by one rx/ry/rz key press.
const RotationStep = math.Pi / 8

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

// gateKeys maps a key to the gate it applies. Upper-case rotation keys
// turn the other way.
var gateKeys = map[string]struct {
	gate  string
	angle float64
}{
	"h": {"h", 0},
	"x": {"x", 0},
	"y": {"y", 0},
	"z": {"z", 0},
	"s": {"s", 0},
	"S": {"sdg", 0},
	"t": {"t", 0},
	"T": {"tdg", 0},
	"1": {"rx", RotationStep},
	"!": {"rx", -RotationStep},
	"2": {"ry", RotationStep},
	"@": {"ry", -RotationStep},
	"3": {"rz", RotationStep},
	"#": {"rz", -RotationStep},
}

// Explorer is a one-qubit playground: every key press appends a gate and
// the Bloch sphere follows the state.
type Explorer struct {
	circuit *quantum.Circuit
	state   *quantum.State
	camera  *viz.Camera
	err     error

	width  int
	height int
}

func NewExplorer() (*Explorer, error) {
	st, err := quantum.NewState(1)
	if err != nil {
		return nil, err
	}
	return &Explorer{
		circuit: quantum.NewCircuit(1, 0),
		state:   st,
		camera:  viz.NewCamera(),
		width:   80,
		height:  24,
	}, nil
}

func (m *Explorer) Init() tea.Cmd { return nil }

func (m *Explorer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg.String())
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

func (m *Explorer) handleKey(key string) tea.Cmd {
	if g, ok := gateKeys[key]; ok {
		m.Apply(g.gate, g.angle)
		return nil
	}
	switch key {
	case "q", "ctrl+c", "esc":
		return tea.Quit
	case "u", "backspace":
		m.Undo()
	case "r":
		m.Reset()
	case "left":
		m.camera.RotateZ(-math.Pi / 16)
	case "right":
		m.camera.RotateZ(math.Pi / 16)
	case "up":
		m.camera.RotateX(-math.Pi / 16)
	case "down":
		m.camera.RotateX(math.Pi / 16)
	case "+", "=":
		m.camera.ZoomIn()
	case "-", "_":
		m.camera.ZoomOut()
	case "c":
		viz.NextTheme()
	}
	return nil
}

// Apply appends a gate and evolves the state by it. A gate the state
// rejects is not kept.
func (m *Explorer) Apply(gate string, angle float64) {
	var params []quantum.Angle
	if _, n, _ := quantum.GateArity(gate); n > 0 {
		params = append(params, quantum.Fixed(angle))
	}
	next := m.state.Clone()
	op := quantum.Op{Name: gate, Qubits: []int{0}, Params: params}
	if m.err = next.Apply(op); m.err != nil {
		return
	}
	m.circuit.Ops = append(m.circuit.Ops, op)
	m.state = next
}

// Undo drops the last gate and replays the rest from |0>. On failure the
// circuit and state stay as they were.
func (m *Explorer) Undo() {
	n := len(m.circuit.Ops)
	if n == 0 {
		return
	}
	prev := m.circuit.Ops
	m.circuit.Ops = prev[:n-1]
	st, err := quantum.Simulate(m.circuit)
	if err != nil {
		m.circuit.Ops = prev
		m.err = fmt.Errorf("undo: %w", err)
		return
	}
	m.state, m.err = st, nil
}

func (m *Explorer) Reset() {
	st, err := quantum.NewState(1)
	if err != nil {
		m.err = fmt.Errorf("reset: %w", err)
		return
	}
	m.circuit = quantum.NewCircuit(1, 0)
	m.state, m.err = st, nil
}

func (m *Explorer) State() *quantum.State     { return m.state }
func (m *Explorer) Circuit() *quantum.Circuit { return m.circuit }

func (m *Explorer) BlochVector() viz.Vec3 {
	x, y, z := m.state.BlochVector(0)
	return viz.Vec3{X: x, Y: y, Z: z}
}

func (m *Explorer) View() string {
	cw := max(min(m.width/2, 60), 24)
	ch := max(min(m.height-6, 24), 10)
	canvas := viz.NewCanvas(cw, ch)
	wf := viz.SphereWireframe()
	wf.Merge(viz.ArrowWireframe(m.BlochVector()))
	viz.Render3D(canvas, wf, m.camera)
	sphere := viz.Panel.Render(cyan.Render(canvas.String()))

	var s strings.Builder
	s.WriteString(viz.TitleStyle.Render("bloch explorer") + "\n\n")
	a0, a1 := m.state.Amplitude(0), m.state.Amplitude(1)
	probs := m.state.Probabilities()
	fmt.Fprintf(&s, "%s %s  %s\n", dim.Render("|0⟩"), white.Render(formatComplex(a0)), viz.ProgressBar(probs[0], 12))
	fmt.Fprintf(&s, "%s %s  %s\n", dim.Render("|1⟩"), white.Render(formatComplex(a1)), viz.ProgressBar(probs[1], 12))
	fmt.Fprintf(&s, "\n%s %.3f  %s %.3f\n", dim.Render("P(0)"), probs[0], dim.Render("P(1)"), probs[1])
	s.WriteString("\n" + dim.Render("bloch ") + magenta.Render(viz.DescribeVector(m.BlochVector())) + "\n")

	s.WriteString("\n" + dim.Render("circuit ") + white.Render(gateList(m.circuit)) + "\n")
	if m.err != nil {
		s.WriteString(viz.NegativeStyle.Render(m.err.Error()) + "\n")
	}
	s.WriteString("\n" + dimmer.Render(strings.Repeat("─", 34)) + "\n")
	s.WriteString(viz.KeyHint.Render("h x y z s t   gates (S T inverse)") + "\n")
	s.WriteString(viz.KeyHint.Render("1 2 3         rx ry rz +π/8 (! @ # back)") + "\n")
	s.WriteString(viz.KeyHint.Render("←→↑↓ +/-      rotate, zoom") + "\n")
	s.WriteString(viz.KeyHint.Render("u undo  r reset  c theme  q quit") + "\n")

	return lipgloss.JoinHorizontal(lipgloss.Top, sphere, "  ", s.String())
}

func formatComplex(c complex128) string {
	return fmt.Sprintf("%+.3f%+.3fi", real(c), imag(c))
}

func gateList(c *quantum.Circuit) string {
	if len(c.Ops) == 0 {
		return "(empty)"
	}
	names := make([]string, 0, len(c.Ops))
	for _, op := range c.Ops {
		names = append(names, strings.Fields(op.String())[0])
	}
	const keep = 8
	if len(names) > keep {
		names = append([]string{"…"}, names[len(names)-keep:]...)
	}
	return strings.Join(names, " ")
}

func RunExplorer() error {
	m, err := NewExplorer()
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
