package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/san-kum/qlab/internal/algorithms"
	"github.com/san-kum/qlab/internal/quantum"
	"github.com/san-kum/qlab/internal/viz"
)

const (
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

// StageRenderer replays Grover amplitude stages as an animation, one
// frame per stage.
type StageRenderer struct {
	w     io.Writer
	delay time.Duration
	width int
	ansi  bool
}

// NewStageRenderer writes frames to w. With ansi set the screen is
// cleared between frames.
func NewStageRenderer(w io.Writer, delay time.Duration, width int, ansi bool) *StageRenderer {
	return &StageRenderer{w: w, delay: delay, width: width, ansi: ansi}
}

// Frame renders one stage with every marked state highlighted.
func (r *StageRenderer) Frame(res *algorithms.GroverResult, i int) string {
	st := res.Stages[i]
	labels := make([]string, len(st.Amplitudes))
	marked := make(map[int]bool, len(res.Marked))
	for _, m := range res.Marked {
		marked[m] = true
	}
	for k := range labels {
		labels[k] = quantum.BasisLabel(k, res.NumQubits)
		if marked[k] {
			labels[k] += "*"
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", viz.TitleStyle.Render(fmt.Sprintf("grover n=%d", res.NumQubits)),
		viz.Subtle.Render(fmt.Sprintf("stage %d/%d", i+1, len(res.Stages))))
	b.WriteString(viz.SignedBars(st.Label, labels, st.Amplitudes, st.Mean, r.width))
	return b.String()
}

// Play renders every stage in order, waiting delay between frames. It
// stops early when ctx is cancelled.
func (r *StageRenderer) Play(ctx context.Context, res *algorithms.GroverResult) error {
	if r.ansi {
		fmt.Fprint(r.w, hideCursor)
		defer fmt.Fprint(r.w, showCursor)
	}
	for i := range res.Stages {
		if r.ansi {
			fmt.Fprint(r.w, clearScreen)
		}
		fmt.Fprintln(r.w, r.Frame(res, i))
		if i == len(res.Stages)-1 || r.delay <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.delay):
		}
	}
	return nil
}
