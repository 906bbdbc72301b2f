package viz

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/msmseg/internal/mesh"
	"github.com/san-kum/msmseg/internal/relax"
)

const (
	canvasWidth  = 40
	canvasHeight = 18
	graphWidth   = 48
	graphHeight  = 8
	graphWindow  = 240
)

// Feed is a relax.Observer that forwards iteration stats to a channel.
// A full buffer drops the stats rather than stalling the run.
type Feed struct {
	ch      chan relax.IterationStats
	dropped atomic.Int64
}

func NewFeed(buffer int) *Feed {
	if buffer < 1 {
		buffer = 1
	}
	return &Feed{ch: make(chan relax.IterationStats, buffer)}
}

func (f *Feed) OnIteration(stats relax.IterationStats) {
	select {
	case f.ch <- stats:
	default:
		f.dropped.Add(1)
	}
}

func (f *Feed) C() <-chan relax.IterationStats { return f.ch }

// Close must be called once the run has returned.
func (f *Feed) Close() { close(f.ch) }

func (f *Feed) Dropped() int64 { return f.dropped.Load() }

// RunFunc performs one relaxation, reporting every iteration to obs.
type RunFunc func(ctx context.Context, obs relax.Observer) (*relax.Result, error)

type statsMsg relax.IterationStats

type doneMsg struct {
	res *relax.Result
	err error
}

// LiveModel follows a relaxation run in the terminal.
type LiveModel struct {
	title    string
	ctx      context.Context
	cancel   context.CancelFunc
	run      RunFunc
	feed     *Feed
	maxIter  int
	state    relax.State
	latest   relax.IterationStats
	history  []float64
	mesh     *mesh.Mesh
	oob      map[int]int
	camera   *Camera
	canvas   *Canvas
	result   *relax.Result
	err      error
	done     bool
	quitting bool
}

// NewLiveModel prepares a view of run. initial is drawn until the run
// returns its final mesh.
func NewLiveModel(ctx context.Context, title string, initial *mesh.Mesh, maxIter int, run RunFunc) LiveModel {
	ctx, cancel := context.WithCancel(ctx)
	return LiveModel{
		title:   title,
		ctx:     ctx,
		cancel:  cancel,
		run:     run,
		feed:    NewFeed(1024),
		maxIter: maxIter,
		state:   relax.StateInitialized,
		history: make([]float64, 0, graphWindow),
		mesh:    initial,
		camera:  NewCamera(),
		canvas:  NewCanvas(canvasWidth, canvasHeight),
	}
}

// Result returns the outcome of the run once the program has exited.
func (m LiveModel) Result() (*relax.Result, error) { return m.result, m.err }

func (m LiveModel) Init() tea.Cmd {
	return tea.Batch(m.start(), m.listen())
}

func (m LiveModel) start() tea.Cmd {
	run, feed, ctx := m.run, m.feed, m.ctx
	return func() tea.Msg {
		res, err := run(ctx, feed)
		feed.Close()
		return doneMsg{res: res, err: err}
	}
}

func (m LiveModel) listen() tea.Cmd {
	ch := m.feed.C()
	return func() tea.Msg {
		stats, ok := <-ch
		if !ok {
			return nil
		}
		return statsMsg(stats)
	}
}

func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.cancel()
			if m.done {
				return m, tea.Quit
			}
			m.quitting = true
		case "x":
			m.camera.RotateX(0.1)
		case "X":
			m.camera.RotateX(-0.1)
		case "y":
			m.camera.RotateY(0.1)
		case "Y":
			m.camera.RotateY(-0.1)
		case "z":
			m.camera.RotateZ(0.1)
		case "Z":
			m.camera.RotateZ(-0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		case "r":
			m.camera.Reset()
		}
		return m, nil

	case statsMsg:
		if !m.done {
			m.state = relax.StateRunning
			m.latest = relax.IterationStats(msg)
			m.push(msg.MaxDisplacement)
		}
		return m, m.listen()

	case doneMsg:
		m.done = true
		m.result, m.err = msg.res, msg.err
		m.state = relax.StateFailed
		if res := msg.res; res != nil {
			m.state = res.State
			if res.Mesh != nil {
				m.mesh = res.Mesh
			}
			m.oob = res.OutOfBounds
			// the run's own history is complete even if the feed dropped
			m.history = m.history[:0]
			for _, h := range res.History {
				m.push(h.MaxDisplacement)
			}
			if n := len(res.History); n > 0 {
				m.latest = res.History[n-1]
			}
		}
		m.cancel()
		if m.quitting {
			return m, tea.Quit
		}
		return m, nil
	}
	return m, nil
}

func (m *LiveModel) push(v float64) {
	if len(m.history) == graphWindow {
		copy(m.history, m.history[1:])
		m.history = m.history[:graphWindow-1]
	}
	m.history = append(m.history, v)
}

func (m LiveModel) View() string {
	m.canvas.Clear()
	RenderMesh(m.canvas, m.mesh, m.camera, m.oob)
	meshView := Panel.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(Title.Render(m.title) + "  " + StateBadge(m.state) + "\n\n")

	progress := 0.0
	if m.maxIter > 0 {
		progress = float64(m.latest.Iteration) / float64(m.maxIter)
	}
	s.WriteString(ProgressBar(progress, graphWidth) + "\n\n")

	s.WriteString(Metric("iteration", fmt.Sprintf("%d / %d", m.latest.Iteration, m.maxIter)) + "\n")
	s.WriteString(Metric("max displacement", fmt.Sprintf("%.3g", m.latest.MaxDisplacement)) + "\n")
	s.WriteString(Metric("mean displacement", fmt.Sprintf("%.3g", m.latest.MeanDisplacement)) + "\n")
	s.WriteString(Metric("kinetic energy", fmt.Sprintf("%.3g", m.latest.KineticEnergy)) + "\n")
	s.WriteString(Metric("out of bounds", fmt.Sprintf("%d", m.latest.TotalOutOfBounds)) + "\n")
	if m.mesh != nil {
		s.WriteString(Metric("points", fmt.Sprintf("%d", m.mesh.Len())) + "\n")
	}

	if len(m.history) > 1 {
		chart := asciigraph.Plot(m.history,
			asciigraph.Height(graphHeight),
			asciigraph.Width(graphWidth),
			asciigraph.Caption("max displacement"))
		s.WriteString("\n" + GraphStyle.Render(chart) + "\n")
	}

	if m.err != nil {
		s.WriteString("\n" + StatusFailed.Render(m.err.Error()) + "\n")
	}

	hint := "q:quit  x/y/z:rotate  +/-:zoom  r:reset view"
	if m.quitting && !m.done {
		hint = "stopping..."
	}
	s.WriteString("\n" + KeyHint.Render(hint))

	return lipgloss.JoinHorizontal(lipgloss.Top, meshView, "  ", s.String())
}
