package viz

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/rigidkit/internal/rigid"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
	kickSpeed       = 5.0
)

// Snapshot is the scene after one step, kept for replay.
type Snapshot struct {
	Time   float64
	Frame  uint64
	Poses  []rigid.Transform
	Energy float64
	Awake  int
}

type bodyState struct {
	body     *rigid.Rigidbody
	pose     rigid.Transform
	velocity mgl64.Vec3
	angular  mgl64.Vec3
}

type TickMsg time.Time

// Model is a bubbletea side view (XY plane) of a running scene. The scene
// is stepped on every tick.
type Model struct {
	title    string
	scene    *rigid.Scene
	dt, t    float64
	maxSteps int
	steps    int

	bodies  []outline
	initial []bodyState
	dynamic int

	canvas *Canvas
	view   Viewport
	home   Viewport
	theme  Theme
	styles styles

	running       bool
	err           error
	energyHistory []float64
	awakeHistory  []float64
	history       []Snapshot
	playHead      int
	showHelp      bool

	shotDir  string
	lastShot string
}

// NewModel frames every actor currently in scene. maxSteps stops stepping
// after that many steps; zero runs until quit.
func NewModel(title string, scene *rigid.Scene, dt float64, maxSteps int) (Model, error) {
	if !(dt > 0) {
		return Model{}, fmt.Errorf("viz: dt must be positive, got %v", dt)
	}
	m := Model{
		title:    title,
		scene:    scene,
		dt:       dt,
		maxSteps: maxSteps,
		canvas:   NewCanvas(width, height),
		theme:    Themes[0],
		styles:   newStyles(Themes[0]),
		running:  true,
		playHead: -1,
		shotDir:  ".",
	}

	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := 0.0, 1.0
	for _, a := range scene.ActiveActors() {
		o, err := outlineOf(a)
		if err != nil {
			return Model{}, err
		}
		m.bodies = append(m.bodies, o)

		pose, err := a.Transform()
		if err != nil {
			return Model{}, err
		}
		if rb, ok := a.(*rigid.Rigidbody); ok {
			st := bodyState{body: rb, pose: pose}
			if st.velocity, err = rb.Velocity(); err != nil {
				return Model{}, err
			}
			if st.angular, err = rb.AngularVelocity(); err != nil {
				return Model{}, err
			}
			m.initial = append(m.initial, st)
			if a.Kind() == rigid.KindDynamic {
				m.dynamic++
			}
		}
		if o.shape == rigid.PlaneColliderType {
			continue
		}
		p, r := pose.Apply(o.center), o.extent()
		minX, maxX = math.Min(minX, p.X()-r), math.Max(maxX, p.X()+r)
		minY, maxY = math.Min(minY, p.Y()-r), math.Max(maxY, p.Y()+r)
	}
	if math.IsInf(minX, 0) {
		minX, maxX = -5, 5
	}
	w, h := m.canvas.Dots()
	m.home = FitViewport(minX, maxX, minY, maxY, w, h)
	m.view = m.home

	snap, err := m.capture()
	if err != nil {
		return Model{}, err
	}
	m.record(snap)
	return m, nil
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

// WithTheme returns m drawn with t.
func (m Model) WithTheme(t Theme) Model {
	m.theme, m.styles = t, newStyles(t)
	return m
}

// WithShotDir returns m saving screenshots under dir.
func (m Model) WithShotDir(dir string) Model {
	m.shotDir = dir
	return m
}

// Err reports the step failure that stopped the view, if any.
func (m Model) Err() error { return m.err }

// Time is the simulated time of the live scene.
func (m Model) Time() float64 { return m.t }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "[":
			m.scrub(-1)
		case "]":
			m.scrub(1)
		case "k":
			m.kick()
		case "t":
			m.theme = NextTheme(m.theme)
			m.styles = newStyles(m.theme)
		case "+", "=":
			m.view.Zoom(1.2)
		case "-", "_":
			m.view.Zoom(1 / 1.2)
		case "left", "h":
			m.view.Pan(-8, 0)
		case "right", "l":
			m.view.Pan(8, 0)
		case "up":
			m.view.Pan(0, 8)
		case "down", "j":
			m.view.Pan(0, -8)
		case "c":
			m.view = m.home
		case "p":
			m.screenshot()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			if m.playHead == -1 {
				m.step()
			} else {
				m.playHead++
				if m.playHead >= len(m.history) {
					m.playHead = -1
				}
			}
		}
		return m, tick()
	}
	return m, nil
}

// step advances the scene once and records the result.
func (m *Model) step() {
	if m.err != nil || (m.maxSteps > 0 && m.steps >= m.maxSteps) {
		m.running = false
		return
	}
	if err := m.scene.Update(m.dt); err != nil {
		m.err, m.running = err, false
		return
	}
	m.t += m.dt
	m.steps++

	snap, err := m.capture()
	if err != nil {
		m.err, m.running = err, false
		return
	}
	m.record(snap)
}

func (m *Model) capture() (Snapshot, error) {
	snap := Snapshot{Time: m.t, Frame: m.scene.FrameCount(), Poses: make([]rigid.Transform, len(m.bodies))}
	var errs []error
	for i, o := range m.bodies {
		pose, err := o.actor.Transform()
		errs = append(errs, err)
		snap.Poses[i] = pose

		rb, ok := o.actor.(*rigid.Rigidbody)
		if !ok || rb.Kind() != rigid.KindDynamic {
			continue
		}
		v, err := rb.Velocity()
		errs = append(errs, err)
		mass, err := rb.Mass()
		errs = append(errs, err)
		snap.Energy += 0.5 * mass * v.Dot(v)
		if asleep, err := rb.IsSleeping(); err == nil && !asleep {
			snap.Awake++
		}
	}
	return snap, errors.Join(errs...)
}

func appendCapped[T any](s []T, v T) []T {
	s = append(s, v)
	if len(s) > historyCapacity {
		s = s[1:]
	}
	return s
}

func (m *Model) record(snap Snapshot) {
	m.history = appendCapped(m.history, snap)
	m.energyHistory = appendCapped(m.energyHistory, snap.Energy)
	m.awakeHistory = appendCapped(m.awakeHistory, float64(snap.Awake))
}

// scrub moves the replay position through history, pausing live stepping.
func (m *Model) scrub(dir int) {
	if m.playHead == -1 {
		if len(m.history) == 0 {
			return
		}
		m.playHead = len(m.history) - 1
		m.running = false
	}
	m.playHead += dir
	if m.playHead < 0 {
		m.playHead = 0
	}
	if m.playHead >= len(m.history) {
		m.playHead = -1
	}
}

// kick gives every dynamic body an upward velocity change.
func (m *Model) kick() {
	for _, st := range m.initial {
		if st.body.Kind() != rigid.KindDynamic {
			continue
		}
		if err := st.body.AddForce(mgl64.Vec3{0, kickSpeed, 0}, rigid.VelocityChange); err != nil {
			m.err = err
			return
		}
	}
}

// reset restores every body to its pose and velocity at construction.
func (m *Model) reset() {
	var errs []error
	for _, st := range m.initial {
		errs = append(errs,
			st.body.SetPosition(st.pose.Position),
			st.body.SetRotation(st.pose.Rotation),
			st.body.SetVelocity(st.velocity),
			st.body.SetAngularVelocity(st.angular),
		)
	}
	m.err = errors.Join(errs...)
	m.t, m.steps, m.playHead = 0, 0, -1
	m.history, m.energyHistory, m.awakeHistory = m.history[:0], m.energyHistory[:0], m.awakeHistory[:0]
	if snap, err := m.capture(); err == nil {
		m.record(snap)
	}
	m.running = m.err == nil
}

// screenshot writes the shown frame as SVG.
func (m *Model) screenshot() {
	snap := m.current()
	m.draw(snap)
	path := filepath.Join(m.shotDir, fmt.Sprintf("%s_%06d.svg", m.title, snap.Frame))
	if err := os.WriteFile(path, []byte(m.canvas.SVG(4, string(m.theme.Primary))), 0644); err != nil {
		m.lastShot = "error: " + err.Error()
		return
	}
	m.lastShot = path
}

func (m Model) current() Snapshot {
	if m.playHead >= 0 && m.playHead < len(m.history) {
		return m.history[m.playHead]
	}
	if len(m.history) == 0 {
		return Snapshot{}
	}
	return m.history[len(m.history)-1]
}

func (m *Model) draw(snap Snapshot) {
	m.canvas.Clear()
	for i, o := range m.bodies {
		if i < len(snap.Poses) {
			o.draw(m.canvas, m.view, snap.Poses[i])
		}
	}
}

func (m Model) status() string {
	last := m.current().Time
	if len(m.history) > 0 {
		last = m.history[len(m.history)-1].Time
	}
	switch {
	case m.err != nil:
		return m.styles.failed.Render("FAILED: " + m.err.Error())
	case m.playHead != -1 && !m.running:
		return m.styles.paused.Render(fmt.Sprintf("REPLAY PAUSED (%.1fs)", m.history[m.playHead].Time-last))
	case m.playHead != -1:
		return m.styles.running.Render(fmt.Sprintf("REPLAYING (%.1fs)", m.history[m.playHead].Time-last))
	case m.maxSteps > 0 && m.steps >= m.maxSteps:
		return m.styles.paused.Render("DONE")
	case !m.running:
		return m.styles.paused.Render("PAUSED")
	}
	return m.styles.running.Render("RUNNING")
}

func (m Model) View() string {
	snap := m.current()
	m.draw(snap)
	canvasView := m.styles.canvas.Render(m.canvas.String())

	st := m.styles
	var s strings.Builder
	s.WriteString(st.header.Render(strings.ToUpper(m.title)) + "\n")
	s.WriteString(m.status() + "\n\n")
	if len(m.energyHistory) > 1 {
		chart := asciigraph.Plot(m.energyHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Kinetic energy"))
		s.WriteString(st.graph.Render(chart) + "\n\n")
	}
	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", snap.Time))
	row("Frame", fmt.Sprintf("%d", snap.Frame))
	row("Actors", fmt.Sprintf("%d", len(m.bodies)))
	row("Energy", fmt.Sprintf("%.2f J", snap.Energy))
	awake := 0.0
	if m.dynamic > 0 {
		awake = float64(snap.Awake) / float64(m.dynamic)
	}
	row("Awake", st.ProgressBar(awake, 12)+fmt.Sprintf(" %d/%d", snap.Awake, m.dynamic))
	row("", Sparkline(m.awakeHistory, 24))
	row("Zoom", fmt.Sprintf("%.1f px/m", m.view.Scale))
	row("Theme", m.theme.Name)
	if m.lastShot != "" {
		row("Saved", m.lastShot)
	}
	s.WriteString(st.help.Render("SP:Pause R:Reset K:Kick Q:Quit\n[ ]:Replay +/-:Zoom P:Shot ?:Help"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.stats.Render(s.String()))
	if m.showHelp {
		return helpText + "\n\n" + mainView
	}
	return mainView
}

const helpText = `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume stepping    ║
║  R        - Reset bodies             ║
║  K        - Kick dynamic bodies up   ║
║  [ / ]    - Replay back / forward    ║
║  + / -    - Zoom in / out            ║
║  Arrows   - Pan                      ║
║  C        - Recenter view            ║
║  T        - Cycle themes             ║
║  P        - Save frame as SVG        ║
║  Q        - Quit                     ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝`
