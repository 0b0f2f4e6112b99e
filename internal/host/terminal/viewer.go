// Package terminal is a top-down tcell host for a scene.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/zeusync/planar/internal/core/events/bus"
	"github.com/zeusync/planar/internal/core/models"
	"github.com/zeusync/planar/internal/core/observability/log"
	"github.com/zeusync/planar/internal/core/scene"
	"github.com/zeusync/planar/internal/core/storage"
	"github.com/zeusync/planar/internal/core/systems/physics"
)

type Config struct {
	// CellsPerUnit is the number of rows per world unit. Columns use twice
	// as many to make up for the cell aspect ratio.
	CellsPerUnit float64
	MoveStep     float64
	RotateStep   float64
	TickInterval time.Duration
	DragRelease  time.Duration
}

func DefaultConfig() Config {
	return Config{
		CellsPerUnit: 2,
		MoveStep:     0.25,
		RotateStep:   15,
		TickInterval: 16 * time.Millisecond,
		DragRelease:  250 * time.Millisecond,
	}
}

var (
	styleBounds   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleStatus   = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleHelp     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleOverlap  = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleBodies   = [2]tcell.Style{tcell.StyleDefault.Foreground(tcell.ColorGreen), tcell.StyleDefault.Foreground(tcell.ColorBlue)}
	bodyRunes     = [2]rune{'A', 'B'}
	helpLine      = "tab select  arrows move  [/] ±5°  q/e ±15°  z/x ±90°  0-7 snap 45°  v verbose  esc quit"
	statusReverts = "released in collision, reverted"
)

// Viewer draws the scene from above and turns key presses into drags and
// rotations. Like the scene it is driven from a single goroutine.
type Viewer struct {
	screen tcell.Screen
	scene  *scene.Scene
	config Config
	logger log.Log

	selected int

	// keyboard drag
	dragging  bool
	sinceMove time.Duration
	target    physics.Vec2

	status    string
	notices   chan string
	noticeSub bus.Subscription

	// base is the level 'v' toggles back to from debug
	root log.Log
	base log.Level
}

func New(screen tcell.Screen, sc *scene.Scene, config Config, logger log.Log) *Viewer {
	def := DefaultConfig()
	if config.CellsPerUnit <= 0 {
		config.CellsPerUnit = def.CellsPerUnit
	}
	if config.MoveStep <= 0 {
		config.MoveStep = def.MoveStep
	}
	if config.RotateStep <= 0 {
		config.RotateStep = def.RotateStep
	}
	if config.TickInterval <= 0 {
		config.TickInterval = def.TickInterval
	}
	if config.DragRelease <= 0 {
		config.DragRelease = def.DragRelease
	}
	if logger == nil {
		logger = log.Nop()
	}
	v := &Viewer{
		screen:  screen,
		scene:   sc,
		config:  config,
		logger:  logger.With(log.String("component", "viewer")),
		notices: make(chan string, 8),
		root:    logger,
		base:    logger.GetLevel(),
	}
	sub, err := sc.Events().SubscribeTopic(storage.TopicStorage, storage.EventPersistFailed, v.persistFailed)
	if err != nil {
		v.logger.Warn("Persist failures will not be shown", log.Error(err))
	} else {
		v.noticeSub = sub
	}
	return v
}

// Close stops listening for persist failures.
func (v *Viewer) Close() error {
	if v.noticeSub == nil {
		return nil
	}
	return v.noticeSub.Cancel()
}

// persistFailed runs on the persister's goroutine; the message is picked up
// by the next Step.
func (v *Viewer) persistFailed(ev bus.Event) error {
	f, ok := ev.Data().(storage.PersistFailure)
	if !ok {
		return nil
	}
	select {
	case v.notices <- fmt.Sprintf("%s not saved: %v", f.Body, f.Err):
	default:
	}
	return nil
}

func (v *Viewer) Selected() models.BodyID { return v.scene.Bodies()[v.selected].ID() }

func (v *Viewer) Status() string { return v.status }

// Run polls the screen and ticks the scene until ctx ends or the user quits.
func (v *Viewer) Run(ctx context.Context) error {
	ticker := time.NewTicker(v.config.TickInterval)
	defer ticker.Stop()

	done := make(chan struct{})
	defer close(done)

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	v.Draw()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			v.release()
			return nil
		case ev := <-events:
			if !v.HandleEvent(ev) {
				v.release()
				return nil
			}
			v.Draw()
		case msg := <-v.notices:
			v.status = msg
			v.Draw()
		case now := <-ticker.C:
			if err := v.Step(now.Sub(last)); err != nil {
				return err
			}
			last = now
			v.Draw()
		}
	}
}

// Step advances the scene by dt and releases a keyboard drag that has been
// idle for the configured period.
func (v *Viewer) Step(dt time.Duration) error {
	if _, err := v.scene.Tick(dt); err != nil {
		return fmt.Errorf("tick: %w", err)
	}
	for drained := false; !drained; {
		select {
		case msg := <-v.notices:
			v.status = msg
		default:
			drained = true
		}
	}
	if v.dragging {
		v.sinceMove += dt
		if v.sinceMove >= v.config.DragRelease {
			v.release()
		}
	}
	return nil
}

// HandleEvent applies one terminal event. It returns false when the user asks
// to quit.
func (v *Viewer) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return v.handleKey(ev)
	case *tcell.EventResize:
		v.screen.Sync()
	}
	return true
}

func (v *Viewer) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyTab:
		v.release()
		v.selected = 1 - v.selected
		v.status = ""
	case tcell.KeyUp:
		v.move(physics.V2(0, -v.config.MoveStep))
	case tcell.KeyDown:
		v.move(physics.V2(0, v.config.MoveStep))
	case tcell.KeyLeft:
		v.move(physics.V2(-v.config.MoveStep, 0))
	case tcell.KeyRight:
		v.move(physics.V2(v.config.MoveStep, 0))
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			v.nudge(-v.config.RotateStep)
		case 'e':
			v.nudge(v.config.RotateStep)
		case '[':
			v.nudge(-5)
		case ']':
			v.nudge(5)
		case 'z':
			v.nudge(-90)
		case 'x':
			v.nudge(90)
		case '0', '1', '2', '3', '4', '5', '6', '7':
			v.snap(float64(ev.Rune()-'0') * 45)
		case 'v':
			v.toggleVerbose()
		}
	}
	return true
}

// move proposes a translation by step. Repeated presses within one frame
// accumulate; otherwise the step is taken from the committed position so the
// target never runs ahead of a blocked body.
func (v *Viewer) move(step physics.Vec2) {
	id := v.Selected()
	body := v.scene.Bodies()[v.selected]
	if !v.dragging {
		if err := v.scene.BeginDrag(id, physics.Vec2{}, false); err != nil {
			v.fail("begin drag", err)
			return
		}
		v.dragging = true
	}
	if !v.scene.Pending(id) {
		v.target = body.Pose().Position
	}
	v.target = v.scene.Bounds().Clamp(v.target.Add(step))
	v.sinceMove = 0
	if err := v.scene.Propose(scene.Proposal{Body: id, Kind: scene.ProposeTranslation, Position: v.target}); err != nil {
		v.fail("propose", err)
	}
}

// release ends the keyboard drag, resolving a queued frame first.
func (v *Viewer) release() {
	if !v.dragging {
		return
	}
	v.dragging = false
	id := v.Selected()
	if v.scene.Pending(id) {
		if _, err := v.scene.Tick(0); err != nil {
			v.fail("tick", err)
		}
	}
	phase, err := v.scene.EndDrag(id)
	if err != nil {
		v.fail("end drag", err)
		return
	}
	if phase == scene.DragReverted {
		v.status = statusReverts
	}
}

func (v *Viewer) nudge(deltaDeg float64) {
	if _, err := v.scene.Nudge(v.Selected(), deltaDeg); err != nil {
		v.fail("rotate", err)
	}
}

func (v *Viewer) snap(deg float64) {
	if _, err := v.scene.Snap(v.Selected(), deg); err != nil {
		v.fail("rotate", err)
	}
}

func (v *Viewer) toggleVerbose() {
	level := log.LevelDebug
	if v.root.GetLevel() == log.LevelDebug {
		level = v.base
	}
	v.root.SetLevel(level)
	v.status = "log level " + level.String()
}

func (v *Viewer) fail(op string, err error) {
	if errors.Is(err, scene.ErrNotDragging) {
		v.dragging = false
	}
	v.status = op + ": " + err.Error()
	v.logger.Warn("Viewer operation failed", log.String("op", op), log.Error(err))
}

// Draw renders the bounds, both bodies and the status lines.
func (v *Viewer) Draw() {
	v.screen.Clear()
	w, h := v.screen.Size()
	if w <= 0 || h <= 2 {
		v.screen.Show()
		return
	}
	// two rows at the bottom hold the status and help lines
	proj := newProjection(w, h-2, v.config.CellsPerUnit)

	v.drawBounds(proj)

	overlapping := v.scene.Overlapping()
	for i, b := range v.scene.Bodies() {
		style := styleBodies[i]
		if overlapping {
			style = styleOverlap
		}
		if i == v.selected {
			style = style.Bold(true).Reverse(true)
		}
		v.drawBody(proj, b.OBB(), bodyRunes[i], style)
	}

	v.drawText(0, h-2, v.statusLine(), styleStatus)
	v.drawText(0, h-1, helpLine, styleHelp)
	v.screen.Show()
}

func (v *Viewer) drawBounds(proj projection) {
	bounds := v.scene.Bounds()
	c0, r0 := proj.cell(bounds.Min)
	c1, r1 := proj.cell(bounds.Max)
	for c := c0; c <= c1; c++ {
		v.screen.SetContent(c, r0, '·', nil, styleBounds)
		v.screen.SetContent(c, r1, '·', nil, styleBounds)
	}
	for r := r0; r <= r1; r++ {
		v.screen.SetContent(c0, r, '·', nil, styleBounds)
		v.screen.SetContent(c1, r, '·', nil, styleBounds)
	}
}

// drawBody fills every cell whose centre lies inside box.
func (v *Viewer) drawBody(proj projection, box physics.OBB, ch rune, style tcell.Style) {
	reach := box.Half.Len()
	c0, r0 := proj.cell(box.Center.Sub(physics.V2(reach, reach)))
	c1, r1 := proj.cell(box.Center.Add(physics.V2(reach, reach)))
	drawn := false
	for r := max(r0, 0); r <= min(r1, proj.rows-1); r++ {
		for c := max(c0, 0); c <= min(c1, proj.cols-1); c++ {
			if box.Contains(proj.world(c, r)) {
				v.screen.SetContent(c, r, ch, nil, style)
				drawn = true
			}
		}
	}
	// keep boxes smaller than a cell visible
	if !drawn {
		c, r := proj.cell(box.Center)
		if c >= 0 && c < proj.cols && r >= 0 && r < proj.rows {
			v.screen.SetContent(c, r, ch, nil, style)
		}
	}
}

func (v *Viewer) drawText(col, row int, text string, style tcell.Style) {
	for _, r := range text {
		v.screen.SetContent(col, row, r, nil, style)
		col++
	}
}

func (v *Viewer) statusLine() string {
	b := v.scene.Bodies()[v.selected]
	pose := b.Pose()
	line := fmt.Sprintf("%s (%s)  x=%.2f z=%.2f  yaw=%.1f°  %s",
		b.ID(), b.Model(), pose.Position.X, pose.Position.Z, pose.YawDegrees(), b.DragPhase())
	if v.status != "" {
		line += "  " + v.status
	}
	return line
}

// projection maps world coordinates to screen cells with the world origin at
// the centre of the drawing area and +z pointing down.
type projection struct {
	cols, rows int
	sx, sz     float64
}

func newProjection(cols, rows int, cellsPerUnit float64) projection {
	return projection{cols: cols, rows: rows, sx: 2 * cellsPerUnit, sz: cellsPerUnit}
}

func (p projection) cell(w physics.Vec2) (col, row int) {
	col = int(math.Floor(float64(p.cols)/2 + w.X*p.sx))
	row = int(math.Floor(float64(p.rows)/2 + w.Z*p.sz))
	return col, row
}

// world is the centre of a cell in world coordinates.
func (p projection) world(col, row int) physics.Vec2 {
	return physics.V2(
		(float64(col)+0.5-float64(p.cols)/2)/p.sx,
		(float64(row)+0.5-float64(p.rows)/2)/p.sz,
	)
}
