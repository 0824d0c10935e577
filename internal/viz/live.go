package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/blobsim/internal/analysis"
	"github.com/san-kum/blobsim/internal/dynamo"
)

const (
	width           = 60
	height          = 20
	historyCapacity = 300
	trailCapacity   = 200
	angleBins       = 24
	maxStepsPerTick = 256
)

// Stepper is the integrator surface the live view needs.
type Stepper interface {
	TimeStep(dt float64) error
	State() dynamo.State
	Time() float64
	Residual() []float64
}

type TickMsg time.Time

// Model advances a Stepper a few steps per frame and renders it.
type Model struct {
	stepper      Stepper
	title        string
	dt           float64
	stepsPerTick int
	running      bool
	showHelp     bool

	canvas   *Canvas
	trail    []dynamo.State
	scale    float64
	steps    int
	failures int
	lastErr  error

	residuals []float64
	lowest    []float64
	angles    []float64
	counts    []float64
}

func NewModel(stepper Stepper, dt float64, title string) Model {
	return Model{
		stepper:      stepper,
		title:        title,
		dt:           dt,
		stepsPerTick: 4,
		running:      true,
		canvas:       NewCanvas(width, height),
		trail:        make([]dynamo.State, 0, trailCapacity),
		residuals:    make([]float64, 0, historyCapacity),
		lowest:       make([]float64, 0, historyCapacity),
		counts:       make([]float64, angleBins),
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "+", "=":
			m.stepsPerTick = min(m.stepsPerTick*2, maxStepsPerTick)
		case "-", "_":
			m.stepsPerTick = max(m.stepsPerTick/2, 1)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			for i := 0; i < m.stepsPerTick; i++ {
				m.step()
			}
		}
		return m, tick()
	}
	return m, nil
}

// step takes one integrator step. A failed step leaves the configuration
// unchanged and is counted, not fatal.
func (m *Model) step() {
	if err := m.stepper.TimeStep(m.dt); err != nil {
		m.failures++
		m.lastErr = err
		return
	}
	m.steps++

	x := m.stepper.State()
	m.trail = appendCapped(m.trail, x, trailCapacity)
	m.residuals = appendCapped(m.residuals, dynamo.MaxAbs(m.stepper.Residual()), historyCapacity)

	if len(x) == 2 {
		a := math.Atan2(x[1], x[0])
		m.angles = append(m.angles, a)
		bin := min(int((a+math.Pi)/(2*math.Pi)*angleBins), angleBins-1)
		m.counts[bin]++
	} else if len(x)%3 == 0 {
		low := math.Inf(1)
		for k := 2; k < len(x); k += 3 {
			low = math.Min(low, x[k])
		}
		m.lowest = appendCapped(m.lowest, low, historyCapacity)
	}
}

func appendCapped[T any](s []T, v T, capacity int) []T {
	s = append(s, v)
	if len(s) > capacity {
		s = s[1:]
	}
	return s
}

func (m *Model) draw() {
	m.canvas.Clear()
	x := m.stepper.State()
	switch {
	case len(x) == 2:
		m.drawPlanar(x)
	case len(x)%3 == 0:
		m.drawBlobs(x)
	}
}

// fit grows the plot scale so every coordinate seen so far stays on screen.
func (m *Model) fit(extent float64) float64 {
	m.scale = math.Max(m.scale, extent)
	if m.scale == 0 {
		return 1
	}
	return m.scale
}

func (m *Model) drawPlanar(x dynamo.State) {
	cw, ch := m.canvas.Width*2, m.canvas.Height*4
	cx, cy := cw/2, ch/2
	radius := math.Hypot(x[0], x[1])
	s := float64(ch/2-4) / m.fit(radius)
	aspect := 1.0

	m.canvas.DrawCircle(cx, cy, radius*s, aspect)
	for _, p := range m.trail {
		m.canvas.Set(cx+int(p[0]*s*aspect), cy-int(p[1]*s))
	}
	m.canvas.DrawLine(cx, cy, cx+int(x[0]*s*aspect), cy-int(x[1]*s))
	m.canvas.Dot(cx+int(x[0]*s*aspect), cy-int(x[1]*s), 1)
}

// drawBlobs shows the x-z side view with the wall along the bottom.
func (m *Model) drawBlobs(x dynamo.State) {
	cw, ch := m.canvas.Width*2, m.canvas.Height*4
	n := len(x) / 3
	meanX, top := 0.0, 0.0
	for i := 0; i < n; i++ {
		meanX += x[3*i] / float64(n)
		top = math.Max(top, x[3*i+2])
	}
	s := float64(ch-8) / m.fit(top*1.2)
	ground := ch - 2

	m.canvas.DrawLine(0, ground, cw-1, ground)
	px := func(i int) (int, int) {
		return cw/2 + int((x[3*i]-meanX)*s), ground - int(x[3*i+2]*s)
	}
	for i := 0; i < n; i++ {
		xi, yi := px(i)
		for j := i + 1; j < n; j++ {
			xj, yj := px(j)
			m.canvas.DrawLine(xi, yi, xj, yj)
		}
		m.canvas.Dot(xi, yi, 2)
	}
}

func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.title)) + "\n")

	status := StatusRunning.Render("RUNNING")
	if !m.running {
		status = StatusPaused.Render("PAUSED")
	}
	s.WriteString(fmt.Sprintf("%s  %d steps/frame\n\n", status, m.stepsPerTick))

	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.3f", m.stepper.Time())) + "\n")
	s.WriteString(labelStyle.Render("Steps") + valueStyle.Render(fmt.Sprintf("%d", m.steps)) + "\n")
	s.WriteString(labelStyle.Render("Failed") + valueStyle.Render(fmt.Sprintf("%d", m.failures)) + "\n")
	residual := 0.0
	if len(m.residuals) > 0 {
		residual = m.residuals[len(m.residuals)-1]
	}
	s.WriteString(labelStyle.Render("Residual") + valueStyle.Render(fmt.Sprintf("%.2e", residual)) + "\n")
	if len(m.residuals) > 1 {
		s.WriteString(labelStyle.Render("") + SparklineChart(m.residuals, 30) + "\n")
	}

	if len(m.angles) > 1 {
		est := analysis.MeanCos(m.angles)
		s.WriteString(labelStyle.Render("⟨cos θ⟩") + valueStyle.Render(fmt.Sprintf("%+.3f ± %.3f", est.Mean, est.StdErr)) + "\n")
		chart := asciigraph.Plot(m.counts, asciigraph.Height(6), asciigraph.Width(36), asciigraph.Caption("angle histogram (-π..π)"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	} else if len(m.lowest) > 1 {
		chart := asciigraph.Plot(m.lowest, asciigraph.Height(6), asciigraph.Width(36), asciigraph.Caption("lowest blob height"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	if m.lastErr != nil {
		s.WriteString(StatusFailed.Render(truncate(m.lastErr.Error(), 44)) + "\n")
	}

	s.WriteString(helpStyle.Render("SP:Pause +/-:Speed ?:Help Q:Quit"))
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))

	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume             ║
║  + / -    - Double/halve steps/frame ║
║  ?        - Toggle this help         ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝
` + "\n" + mainView
	}
	return mainView
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

// Run opens the live view on the alternate screen until the user quits.
func Run(stepper Stepper, dt float64, title string) error {
	_, err := tea.NewProgram(NewModel(stepper, dt, title), tea.WithAltScreen()).Run()
	return err
}
