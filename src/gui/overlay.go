// Package gui is the full-screen overlay: the frozen screenshot, the dimmed
// selection cutout and the prompt/response panel. Everything here runs on the
// fyne main goroutine; results are pulled from the session on a ticker.
package gui

import (
	"image"
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"ai-shot/src/selection"
	"ai-shot/src/session"
)

const DefaultTickInterval = 16 * time.Millisecond

var (
	dimColor    = color.NRGBA{A: 0x80}
	borderColor = color.NRGBA{R: 0x00, G: 0x78, B: 0xd4, A: 0xff}
)

type Options struct {
	Session    *session.Session
	Screenshot image.Image
	// TickInterval is how often results are drained when nothing wakes the
	// overlay sooner.
	TickInterval time.Duration
	Logger       zerolog.Logger
}

// Overlay binds a session to fyne widgets.
type Overlay struct {
	sess     *session.Session
	log      zerolog.Logger
	interval time.Duration

	layer *selectionLayer
	panel *panel
	root  *fyne.Container

	win    fyne.Window
	closed bool
	result session.Result
	stop   chan struct{}
}

// NewOverlay builds the widget tree without creating a window.
func NewOverlay(opts Options) *Overlay {
	o := &Overlay{
		sess:     opts.Session,
		log:      opts.Logger.With().Str("component", "gui").Logger(),
		interval: opts.TickInterval,
		stop:     make(chan struct{}),
	}
	if o.interval <= 0 {
		o.interval = DefaultTickInterval
	}
	o.layer = newSelectionLayer(o, opts.Screenshot)
	o.panel = newPanel(o)
	o.root = newRoot(o)
	o.refresh()
	return o
}

// Content is the overlay's root object.
func (o *Overlay) Content() fyne.CanvasObject { return o.root }

// Run opens the overlay full screen and blocks until it is closed.
func Run(opts Options) session.Result {
	a := app.NewWithID("ai-shot")
	o := NewOverlay(opts)
	w := a.NewWindow("ai-shot")
	o.Attach(w)
	w.SetFullScreen(true)
	w.ShowAndRun()
	o.shutdown()
	return o.result
}

// Attach puts the overlay into w and wires keys, close and the result ticker.
func (o *Overlay) Attach(w fyne.Window) {
	o.win = w
	w.SetPadded(false)
	w.SetContent(o.root)
	w.SetMaster()
	w.Canvas().SetOnTypedKey(o.typedKey)
	w.SetOnClosed(o.shutdown)
	go o.pump(o.sess.Ready())
}

// pump schedules a Tick on the UI goroutine whenever results arrive, and at
// least once per interval.
func (o *Overlay) pump(ready <-chan struct{}) {
	t := time.NewTicker(o.interval)
	defer t.Stop()
	for {
		select {
		case <-o.stop:
			return
		case <-t.C:
		case <-ready:
		}
		fyne.Do(o.tick)
	}
}

func (o *Overlay) tick() {
	if o.closed {
		return
	}
	res := o.sess.Tick()
	if res.Copied {
		o.panel.flash("Copied to clipboard")
	}
	if res.Changed || res.Finished {
		o.refresh()
	}
}

func (o *Overlay) typedKey(ev *fyne.KeyEvent) {
	if ev.Name == fyne.KeyEscape && o.sess.Escape() == selection.EventClose {
		o.close()
	}
}

func (o *Overlay) pointerDown(p fyne.Position) {
	if o.sess.PointerDown(toPoint(p)) == selection.EventStarted {
		o.panel.resetPrompt()
		o.refresh()
	}
}

func (o *Overlay) pointerMove(p fyne.Position) {
	if o.sess.PointerMove(toPoint(p)) == selection.EventDragging {
		o.layer.Refresh()
	}
}

func (o *Overlay) pointerUp() {
	switch o.sess.PointerUp() {
	case selection.EventFinalized:
		o.refresh()
		o.panel.focusPrompt()
	case selection.EventCancelled:
		o.refresh()
	}
}

func (o *Overlay) submit() {
	o.sess.SetPrompt(o.panel.prompt.Text)
	gen, err := o.sess.Submit()
	if err != nil {
		o.log.Debug().Err(err).Msg("submit ignored")
		return
	}
	o.log.Debug().Uint64("generation", uint64(gen)).Msg("submitted")
	o.refresh()
}

func (o *Overlay) back() {
	o.sess.Back()
	o.refresh()
	o.panel.focusPrompt()
}

func (o *Overlay) copyAnswer() {
	if err := o.sess.Copy(); err != nil {
		o.log.Warn().Err(err).Msg("copy failed")
		o.panel.flash("Copy failed: " + err.Error())
		return
	}
	o.panel.flash("Copied to clipboard")
}

func (o *Overlay) close() {
	o.shutdown()
	if o.win != nil {
		o.win.Close()
	}
}

func (o *Overlay) shutdown() {
	if o.closed {
		return
	}
	o.closed = true
	close(o.stop)
	o.result = o.sess.Close()
}

// Result is valid once the overlay has closed.
func (o *Overlay) Result() session.Result { return o.result }

func (o *Overlay) refresh() {
	v := o.sess.View()
	o.panel.update(v)
	o.layer.Refresh()
	o.root.Refresh()
}

func toPoint(p fyne.Position) selection.Point {
	return selection.Point{X: float64(p.X), Y: float64(p.Y)}
}

func newRoot(o *Overlay) *fyne.Container {
	return &fyne.Container{
		Layout:  &overlayLayout{o: o},
		Objects: []fyne.CanvasObject{o.layer, o.panel.box},
	}
}

// overlayLayout stretches the selection layer and floats the panel next to
// the selection.
type overlayLayout struct {
	o *Overlay
}

func (l *overlayLayout) Layout(_ []fyne.CanvasObject, size fyne.Size) {
	l.o.sess.SetUISize(selection.Size{Width: float64(size.Width), Height: float64(size.Height)})
	l.o.layer.Move(fyne.NewPos(0, 0))
	l.o.layer.Resize(size)

	p := l.o.panel.box
	if !p.Visible() {
		return
	}
	v := l.o.sess.View()
	f := panelFrame(v.Selection, size, p.MinSize().Height)
	p.Move(f.pos())
	p.Resize(f.size())
}

func (l *overlayLayout) MinSize(_ []fyne.CanvasObject) fyne.Size {
	return fyne.NewSize(100, 100)
}

// selectionLayer draws the screenshot with the dimmed cutout and turns mouse
// input into pointer events.
type selectionLayer struct {
	widget.BaseWidget
	o      *Overlay
	image  *canvas.Image
	masks  [4]*canvas.Rectangle
	border *canvas.Rectangle
}

var (
	_ fyne.Draggable     = (*selectionLayer)(nil)
	_ desktop.Mouseable  = (*selectionLayer)(nil)
	_ desktop.Cursorable = (*selectionLayer)(nil)
)

func newSelectionLayer(o *Overlay, shot image.Image) *selectionLayer {
	l := &selectionLayer{o: o}
	if shot != nil {
		l.image = canvas.NewImageFromImage(shot)
	} else {
		l.image = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	}
	l.image.FillMode = canvas.ImageFillStretch
	for i := range l.masks {
		l.masks[i] = canvas.NewRectangle(dimColor)
	}
	l.border = canvas.NewRectangle(color.Transparent)
	l.border.StrokeColor = borderColor
	l.border.StrokeWidth = 2
	l.ExtendBaseWidget(l)
	return l
}

func (l *selectionLayer) CreateRenderer() fyne.WidgetRenderer {
	return &layerRenderer{l: l}
}

func (l *selectionLayer) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	l.o.pointerDown(ev.Position)
}

func (l *selectionLayer) MouseUp(*desktop.MouseEvent) { l.o.pointerUp() }

func (l *selectionLayer) Dragged(ev *fyne.DragEvent) { l.o.pointerMove(ev.Position) }

func (l *selectionLayer) DragEnd() { l.o.pointerUp() }

func (l *selectionLayer) Cursor() desktop.Cursor { return desktop.CrosshairCursor }

type layerRenderer struct {
	l *selectionLayer
}

func (r *layerRenderer) Layout(size fyne.Size) {
	r.l.image.Move(fyne.NewPos(0, 0))
	r.l.image.Resize(size)

	v := r.l.o.sess.View()
	for i, b := range maskBoxes(v.Selection, v.HasSelection, size) {
		r.l.masks[i].Move(b.pos())
		r.l.masks[i].Resize(b.size())
	}
	if v.HasSelection {
		b := selectionBox(v.Selection, size)
		r.l.border.Move(b.pos())
		r.l.border.Resize(b.size())
		r.l.border.Show()
	} else {
		r.l.border.Hide()
	}
}

func (r *layerRenderer) MinSize() fyne.Size { return fyne.NewSize(1, 1) }

func (r *layerRenderer) Refresh() {
	r.Layout(r.l.Size())
	for _, m := range r.l.masks {
		m.Refresh()
	}
	r.l.border.Refresh()
}

func (r *layerRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.l.image, r.l.masks[0], r.l.masks[1], r.l.masks[2], r.l.masks[3], r.l.border}
}

func (r *layerRenderer) Destroy() {}
