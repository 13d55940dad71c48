// Package canvas provides the zoomable image panes of the editor.
package canvas

import (
	"image"
	"sync"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"defect-synth/internal/app"
	"defect-synth/internal/viewmap"
	"defect-synth/pkg/colorutil"
	"defect-synth/pkg/geometry"
)

// ContentFunc supplies the image a pane shows, or nil for an empty pane.
type ContentFunc func() (*image.NRGBA, error)

// ImagePane shows one image of the document, letterboxed and zoomable, and
// turns pointer and key events into app.InputEvents.
type ImagePane struct {
	widget.BaseWidget

	state   *app.State
	pane    app.Pane
	content ContentFunc
	raster  *fynecanvas.Raster

	mu       sync.Mutex
	frame    *image.NRGBA // cached content, image pixels
	dirty    bool
	dragging bool
	lastSize fyne.Size

	onError func(error)
}

var (
	_ fyne.Tappable          = (*ImagePane)(nil)
	_ fyne.SecondaryTappable = (*ImagePane)(nil)
	_ fyne.Draggable         = (*ImagePane)(nil)
	_ fyne.Scrollable        = (*ImagePane)(nil)
	_ fyne.Focusable         = (*ImagePane)(nil)
)

// NewImagePane creates a pane that draws content and forwards input to state.
func NewImagePane(state *app.State, pane app.Pane, content ContentFunc) *ImagePane {
	p := &ImagePane{
		state:   state,
		pane:    pane,
		content: content,
		dirty:   true,
	}
	p.raster = fynecanvas.NewRaster(p.draw)
	p.raster.ScaleMode = fynecanvas.ImageScalePixels
	p.ExtendBaseWidget(p)
	return p
}

// OnError sets the callback for errors raised while handling input or
// producing content.
func (p *ImagePane) OnError(callback func(error)) {
	p.onError = callback
}

// Invalidate drops the cached content and redraws.
func (p *ImagePane) Invalidate() {
	p.mu.Lock()
	p.dirty = true
	p.mu.Unlock()
	p.Refresh()
}

// Refresh redraws the pane with the current view and overlay.
func (p *ImagePane) Refresh() {
	p.raster.Refresh()
}

func (p *ImagePane) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(p.raster)
}

func (p *ImagePane) MinSize() fyne.Size {
	return fyne.NewSize(320, 240)
}

// Resize refits the image to the new pane size.
func (p *ImagePane) Resize(size fyne.Size) {
	p.BaseWidget.Resize(size)
	p.mu.Lock()
	changed := size != p.lastSize && size.Width > 0 && size.Height > 0
	p.lastSize = size
	p.mu.Unlock()
	if changed {
		p.state.ResizeView(p.pane, float64(size.Width), float64(size.Height))
	}
}

func (p *ImagePane) send(ev app.InputEvent) {
	ev.Pane = p.pane
	if err := p.state.HandleInput(ev); err != nil && p.onError != nil {
		p.onError(err)
	}
}

func toPoint(pos fyne.Position) geometry.Point2D {
	return geometry.NewPoint2D(float64(pos.X), float64(pos.Y))
}

func (p *ImagePane) requestFocus() {
	if c := fyne.CurrentApp().Driver().CanvasForObject(p); c != nil {
		c.Focus(p)
	}
}

// Tapped handles left-click events.
func (p *ImagePane) Tapped(ev *fyne.PointEvent) {
	p.requestFocus()
	p.send(app.InputEvent{Kind: app.InputPress, Pos: toPoint(ev.Position), Button: app.ButtonPrimary})
	p.send(app.InputEvent{Kind: app.InputRelease, Pos: toPoint(ev.Position), Button: app.ButtonPrimary})
}

// TappedSecondary handles right-click events.
func (p *ImagePane) TappedSecondary(ev *fyne.PointEvent) {
	p.send(app.InputEvent{Kind: app.InputPress, Pos: toPoint(ev.Position), Button: app.ButtonSecondary})
}

// Dragged moves the region grabbed at the start of the drag. Only the
// target pane drags; on the source pane vertices are placed by clicking.
func (p *ImagePane) Dragged(ev *fyne.DragEvent) {
	if p.pane != app.PaneTarget {
		return
	}
	p.mu.Lock()
	start := !p.dragging
	p.dragging = true
	p.mu.Unlock()

	if start {
		p.requestFocus()
		origin := fyne.NewPos(ev.Position.X-ev.Dragged.DX, ev.Position.Y-ev.Dragged.DY)
		p.send(app.InputEvent{Kind: app.InputPress, Pos: toPoint(origin), Button: app.ButtonPrimary})
	}
	p.send(app.InputEvent{Kind: app.InputMove, Pos: toPoint(ev.Position)})
}

func (p *ImagePane) DragEnd() {
	p.mu.Lock()
	was := p.dragging
	p.dragging = false
	p.mu.Unlock()
	if was {
		p.send(app.InputEvent{Kind: app.InputRelease})
	}
}

// Scrolled scales the region under the pointer or zooms the view.
func (p *ImagePane) Scrolled(ev *fyne.ScrollEvent) {
	p.send(app.InputEvent{Kind: app.InputScroll, Pos: toPoint(ev.Position), ScrollDY: float64(ev.Scrolled.DY)})
}

func (p *ImagePane) FocusGained() {}
func (p *ImagePane) FocusLost()   {}
func (p *ImagePane) TypedRune(rune) {}

// TypedKey forwards key presses by name.
func (p *ImagePane) TypedKey(ev *fyne.KeyEvent) {
	key := string(ev.Name)
	if ev.Name == fyne.KeyEnter {
		key = app.KeyEnter
	}
	p.send(app.InputEvent{Kind: app.InputKey, Key: key})
}

// currentFrame returns the cached content, refreshing it when invalidated.
func (p *ImagePane) currentFrame() *image.NRGBA {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.dirty {
		return p.frame
	}
	p.dirty = false
	frame, err := p.content()
	if err != nil {
		p.frame = nil
		if p.onError != nil {
			go p.onError(err)
		}
		return nil
	}
	p.frame = frame
	return frame
}

// draw is the raster drawing function. w and h are device pixels, which
// may differ from the logical size the view mapper works in.
func (p *ImagePane) draw(w, h int) image.Image {
	scale := 1.0
	if size := p.Size(); size.Width > 0 {
		scale = float64(w) / float64(size.Width)
	}
	view := p.state.ViewSnapshot(p.pane)
	output := RenderView(p.currentFrame(), view, w, h, scale)
	DrawOverlay(output, BuildOverlay(p.state, p.pane), func(pt geometry.Point2D) image.Point {
		d := view.ToDisplay(pt)
		return image.Pt(int(d.X*scale), int(d.Y*scale))
	})
	return output
}

// Background is the letterbox color around the image.
var Background = colorutil.Gray

// RenderView draws frame into a w x h output as seen through view, with
// scale device pixels per view unit. Zoomed in, image pixels stay sharp
// squares; zoomed out they are filtered.
func RenderView(frame *image.NRGBA, view viewmap.Mapper, w, h int, scale float64) *image.RGBA {
	output := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(output, output.Bounds(), image.NewUniform(Background), image.Point{}, xdraw.Src)
	if frame == nil {
		return output
	}

	origin := view.ToDisplay(geometry.Point2D{})
	z := (view.ToDisplay(geometry.NewPoint2D(1, 0)).X - origin.X) * scale
	if z <= 0 {
		return output
	}
	aff := f64.Aff3{
		z, 0, origin.X * scale,
		0, z, origin.Y * scale,
	}
	var interp xdraw.Transformer = xdraw.NearestNeighbor
	if z < 1 {
		interp = xdraw.ApproxBiLinear
	}
	interp.Transform(output, aff, frame, frame.Bounds(), xdraw.Over, nil)
	return output
}
