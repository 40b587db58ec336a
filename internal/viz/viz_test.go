package viz

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidkit/internal/native"
	"github.com/san-kum/rigidkit/internal/native/planar"
	"github.com/san-kum/rigidkit/internal/rigid"
)

func TestCanvasSet(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)
	c.Set(-1, 0)
	c.Set(4, 0)

	if c.Grid[0][0] != 0x2801 {
		t.Errorf("expected dot 1, got %U", c.Grid[0][0])
	}
	if c.Grid[0][1] != 0x2880 {
		t.Errorf("expected dot 8, got %U", c.Grid[0][1])
	}
	if !c.IsSet(3, 3) || c.IsSet(1, 1) {
		t.Error("IsSet disagrees with Set")
	}
	c.Unset(3, 3)
	if c.Grid[0][1] != 0x2800 {
		t.Errorf("expected blank after unset, got %U", c.Grid[0][1])
	}
}

func TestCanvasShapes(t *testing.T) {
	c := NewCanvas(20, 10)
	c.DrawLine(0, 0, 39, 0)
	for x := 0; x < 40; x++ {
		if !c.IsSet(x, 0) {
			t.Fatalf("line missing dot %d", x)
		}
	}

	c.Clear()
	c.DrawCircle(20, 20, 10)
	for _, p := range [][2]int{{30, 20}, {10, 20}, {20, 30}, {20, 10}} {
		if !c.IsSet(p[0], p[1]) {
			t.Errorf("circle missing %v", p)
		}
	}
	if c.IsSet(20, 20) {
		t.Error("circle should be hollow")
	}

	c.Clear()
	c.DrawPolygon([][2]int{{2, 2}, {8, 2}, {8, 8}})
	if !c.IsSet(5, 5) || !c.IsSet(8, 5) || !c.IsSet(5, 2) {
		t.Error("polygon edges missing")
	}
	if lines := strings.Count(c.String(), "\n"); lines != 10 {
		t.Errorf("expected 10 rows, got %d", lines)
	}
}

func TestViewport(t *testing.T) {
	v := FitViewport(-5, 5, 0, 10, 160, 96)
	if x, y := v.Project(0, 5); x != 80 || y != 48 {
		t.Errorf("center projected to %d,%d", x, y)
	}
	_, top := v.Project(0, 10)
	_, bottom := v.Project(0, 0)
	if top >= bottom {
		t.Errorf("y should point up: top %d bottom %d", top, bottom)
	}
	scale := v.Scale
	v.Zoom(2)
	if v.Scale != 2*scale {
		t.Errorf("zoom: %v -> %v", scale, v.Scale)
	}
	v.Zoom(1e9)
	if v.Scale != 200 {
		t.Errorf("zoom not clamped: %v", v.Scale)
	}
}

func TestThemes(t *testing.T) {
	if GetTheme("nonexistent").Name != Themes[0].Name {
		t.Error("unknown theme should fall back to the first")
	}
	seen := map[string]bool{}
	th := Themes[0]
	for range Themes {
		seen[th.Name] = true
		th = NextTheme(th)
	}
	if len(seen) != len(Themes) || th.Name != Themes[0].Name {
		t.Errorf("cycle visited %v", seen)
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{0, 1, 2, 3, 4, 5, 6, 7}, 8); got != "▁▂▃▄▅▆▇█" {
		t.Errorf("unexpected sparkline %q", got)
	}
	if got := []rune(Sparkline([]float64{1, 2, 3}, 2)); len(got) != 2 {
		t.Errorf("expected 2 cells, got %d", len(got))
	}
}

func newModel(t *testing.T) (Model, *rigid.Rigidbody) {
	t.Helper()
	f, err := rigid.NewFoundation(planar.New())
	if err != nil {
		t.Fatal(err)
	}
	sys, err := rigid.NewSystem(f, rigid.DefaultSystemConfig())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		sys.Close()
		f.Close()
	})
	sc, err := sys.CreateDefaultScene()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sc.AddStaticPlane(native.NewPlane(0, 1, 0, 0), mgl64.Vec3{}, mgl64.QuatIdent(), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := sc.AddStaticBox(mgl64.Vec3{1, 0.2, 1}, mgl64.Vec3{3, 1, 0}, mgl64.QuatIdent(), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := sc.AddDynamicCapsule(0.2, 0.5, mgl64.Vec3{-3, 2, 0}, mgl64.QuatIdent(), 1, nil); err != nil {
		t.Fatal(err)
	}
	ball, err := sc.AddDynamicSphere(0.5, mgl64.Vec3{0, 5, 0}, mgl64.QuatIdent(), 1, nil)
	if err != nil {
		t.Fatal(err)
	}

	m, err := NewModel("drop", sc, 1.0/60, 0)
	if err != nil {
		t.Fatal(err)
	}
	return m, ball
}

func tickN(m Model, n int) Model {
	for i := 0; i < n; i++ {
		next, _ := m.Update(TickMsg(time.Time{}))
		m = next.(Model)
	}
	return m
}

func key(m Model, k string) Model {
	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	if k == " " {
		msg = tea.KeyMsg{Type: tea.KeySpace}
	}
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestModelSteps(t *testing.T) {
	m, ball := newModel(t)
	m = tickN(m, 30)

	if m.Err() != nil {
		t.Fatal(m.Err())
	}
	if m.steps != 30 || len(m.history) != 31 {
		t.Errorf("expected 30 steps / 31 snapshots, got %d / %d", m.steps, len(m.history))
	}
	pos, err := ball.Position()
	if err != nil {
		t.Fatal(err)
	}
	if pos.Y() >= 5 {
		t.Errorf("ball did not fall: %v", pos)
	}
	if m.current().Energy <= 0 {
		t.Error("falling ball should have kinetic energy")
	}

	view := m.View()
	if !strings.Contains(view, "DROP") || !strings.Contains(view, "RUNNING") {
		t.Errorf("unexpected view:\n%s", view)
	}
}

func TestModelPauseAndReplay(t *testing.T) {
	m, _ := newModel(t)
	m = tickN(m, 10)

	m = key(m, " ")
	m = tickN(m, 5)
	if m.steps != 10 {
		t.Errorf("paused model stepped: %d", m.steps)
	}

	m = key(m, "[")
	if m.playHead != len(m.history)-2 || m.running {
		t.Errorf("expected paused replay one step back, got head %d running %v", m.playHead, m.running)
	}
	if !strings.Contains(m.View(), "REPLAY PAUSED") {
		t.Error("expected replay status")
	}
	m = key(m, "]")
	m = key(m, "]")
	if m.playHead != -1 {
		t.Errorf("expected live view, got head %d", m.playHead)
	}
}

func TestModelResetAndKick(t *testing.T) {
	m, ball := newModel(t)
	m = tickN(m, 20)

	m = key(m, "r")
	if m.Err() != nil {
		t.Fatal(m.Err())
	}
	pos, err := ball.Position()
	if err != nil {
		t.Fatal(err)
	}
	if pos.Y() != 5 || m.Time() != 0 || len(m.history) != 1 {
		t.Errorf("reset failed: y=%v t=%v history=%d", pos.Y(), m.Time(), len(m.history))
	}

	m = key(m, "k")
	v, err := ball.Velocity()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(v.Y()-kickSpeed) > 1e-9 {
		t.Errorf("expected kick velocity %v, got %v", kickSpeed, v)
	}
}

func TestModelMaxSteps(t *testing.T) {
	m, _ := newModel(t)
	m.maxSteps = 3
	m = tickN(m, 10)
	if m.steps != 3 || m.running {
		t.Errorf("expected stop after 3 steps, got %d running %v", m.steps, m.running)
	}
	if !strings.Contains(m.View(), "DONE") {
		t.Error("expected DONE status")
	}
}

func TestModelQuit(t *testing.T) {
	m, _ := newModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected QuitMsg")
	}
}

func TestCanvasSVG(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)
	svg := c.SVG(4, "#fff")
	if n := strings.Count(svg, "<circle"); n != 2 {
		t.Errorf("expected 2 dots, got %d", n)
	}
	if !strings.Contains(svg, `cx="14.0" cy="14.0"`) {
		t.Errorf("dot (3,3) misplaced:\n%s", svg)
	}
}

func TestTrajectorySVG(t *testing.T) {
	if TrajectorySVG([]float64{1}, []float64{1}, 100, 100, "red") != "" {
		t.Error("single point should give no path")
	}
	svg := TrajectorySVG([]float64{0, 1, 2}, []float64{0, 1, 0}, 120, 60, "red")
	if !strings.Contains(svg, `d="M10.0,55.0 L60.0,5.0 L110.0,55.0"`) {
		t.Errorf("unexpected path:\n%s", svg)
	}
}

func TestModelScreenshot(t *testing.T) {
	m, _ := newModel(t)
	dir := t.TempDir()
	m = m.WithShotDir(dir)
	m = tickN(m, 2)
	m = key(m, "p")

	path := filepath.Join(dir, "drop_000002.svg")
	if m.lastShot != path {
		t.Fatalf("expected shot at %s, got %q", path, m.lastShot)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<circle") {
		t.Error("screenshot has no dots")
	}
}
