// Package app provides the editing document: loaded images, the polygon being
// drawn, the placed regions and the events the UI listens to.
package app

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"defect-synth/internal/codec"
	"defect-synth/internal/config"
	dsimage "defect-synth/internal/image"
	"defect-synth/internal/mask"
	"defect-synth/internal/pixbuf"
	"defect-synth/internal/region"
	"defect-synth/internal/selection"
	"defect-synth/internal/viewmap"
	"defect-synth/pkg/geometry"
)

var (
	// ErrNoSourceLoaded is returned when drawing without a source image.
	ErrNoSourceLoaded = errors.New("no source image loaded")

	// ErrNoTargetLoaded is returned when placing or rendering without a
	// target image. Nothing is changed.
	ErrNoTargetLoaded = errors.New("no target image loaded")

	// ErrEmptyComposite is returned when exporting with no target or no
	// placed region. Nothing is written.
	ErrEmptyComposite = errors.New("nothing to export")

	// ErrNoActiveRegion is returned by region commands when no region is
	// selected.
	ErrNoActiveRegion = errors.New("no active region")
)

// EventType identifies different document events.
type EventType int

const (
	EventSourceLoaded   EventType = iota // *dsimage.Layer
	EventTargetLoaded                    // *dsimage.Layer
	EventPolygonChanged                  // []geometry.Point2D
	EventRegionAdded                     // *region.Region
	EventRegionChanged                   // *region.Region snapshot
	EventRegionRemoved                   // *region.Region
	EventRegionsCleared                  // nil
	EventActiveChanged                   // *region.Region, nil when deselected
	EventViewChanged                     // Pane
	EventExported                        // codec.Format
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// DecodeFunc turns file contents into a 3-channel buffer.
type DecodeFunc func(data []byte) (*pixbuf.Buffer, codec.Format, error)

// EncodeFunc turns a rendered result into file contents.
type EncodeFunc func(buf *pixbuf.Buffer, format codec.Format, opts codec.Options) ([]byte, error)

// Option configures a State.
type Option func(*State)

// WithConfig sets the editing and rendering settings.
func WithConfig(cfg *config.Config) Option {
	return func(s *State) { s.cfg = cfg }
}

// WithRasterizer sets the polygon rasterizer used when finalizing.
func WithRasterizer(r mask.Rasterizer) Option {
	return func(s *State) { s.rasterizer = r }
}

// WithWarper sets the region resampler used when rendering.
func WithWarper(w dsimage.Warper) Option {
	return func(s *State) { s.warper = w }
}

// WithDecoder sets the image decoder.
func WithDecoder(d DecodeFunc) Option {
	return func(s *State) { s.decode = d }
}

// WithEncoder sets the image encoder used on export.
func WithEncoder(e EncodeFunc) Option {
	return func(s *State) { s.encode = e }
}

// dragState tracks a region being moved with the pointer.
type dragState struct {
	active bool
	offset geometry.Point2D // region centre minus grab point
}

// State is the editing document. All methods are safe for concurrent use;
// listeners run on the calling goroutine after the lock is released.
type State struct {
	mu sync.RWMutex

	cfg        *config.Config
	rasterizer mask.Rasterizer
	warper     dsimage.Warper
	decode     DecodeFunc
	encode     EncodeFunc

	source *dsimage.Layer
	target *dsimage.Layer

	// Views map pointer positions on each pane to image pixels.
	SourceView *viewmap.Mapper
	TargetView *viewmap.Mapper

	session *selection.Session
	regions region.Stack
	drag    dragState

	modified bool

	// Event listeners
	listeners map[EventType][]EventListener
}

// NewState creates an empty document.
func NewState(opts ...Option) *State {
	s := &State{
		cfg:        config.DefaultConfig(),
		rasterizer: mask.ScanlineRasterizer{},
		decode:     codec.Decode,
		encode:     codec.Encode,
		SourceView: viewmap.New(0, 0),
		TargetView: viewmap.New(0, 0),
		listeners:  make(map[EventType][]EventListener),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg == nil {
		s.cfg = config.DefaultConfig()
	}
	s.session = selection.New(nil)
	s.session.SetRasterizer(s.rasterizer)
	return s
}

// Config returns the active settings.
func (s *State) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// LoadSource decodes data as the image polygons are cut from. Any polygon
// in progress is discarded; placed regions are kept.
func (s *State) LoadSource(data []byte) error {
	layer, err := s.decodeLayer(data, dsimage.RoleSource)
	if err != nil {
		return err
	}
	s.setSource(layer)
	return nil
}

// LoadSourceFile reads and loads a source image from disk.
func (s *State) LoadSourceFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	layer, err := s.decodeLayer(data, dsimage.RoleSource)
	if err != nil {
		return err
	}
	layer.Path = path
	s.setSource(layer)
	return nil
}

func (s *State) setSource(layer *dsimage.Layer) {
	s.mu.Lock()
	s.source = layer
	s.session.Bind(layer.Buffer.Clone())
	s.SourceView.SetSource(layer.Width(), layer.Height())
	s.mu.Unlock()

	log.Printf("Loaded source %s (%dx%d, %s)", layer.Name(), layer.Width(), layer.Height(), layer.Format)
	s.Emit(EventSourceLoaded, layer)
	s.Emit(EventPolygonChanged, []geometry.Point2D(nil))
}

// LoadTarget decodes data as the image regions are placed on. Existing
// regions are removed.
func (s *State) LoadTarget(data []byte) error {
	layer, err := s.decodeLayer(data, dsimage.RoleTarget)
	if err != nil {
		return err
	}
	s.setTarget(layer)
	return nil
}

// LoadTargetFile reads and loads a target image from disk.
func (s *State) LoadTargetFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	layer, err := s.decodeLayer(data, dsimage.RoleTarget)
	if err != nil {
		return err
	}
	layer.Path = path
	s.setTarget(layer)
	return nil
}

func (s *State) setTarget(layer *dsimage.Layer) {
	s.mu.Lock()
	s.target = layer
	hadRegions := s.regions.Len() > 0
	s.regions.Clear()
	s.drag = dragState{}
	s.TargetView.SetSource(layer.Width(), layer.Height())
	s.modified = false
	s.mu.Unlock()

	log.Printf("Loaded target %s (%dx%d, %s)", layer.Name(), layer.Width(), layer.Height(), layer.Format)
	if hadRegions {
		s.Emit(EventRegionsCleared, nil)
	}
	s.Emit(EventTargetLoaded, layer)
}

func (s *State) decodeLayer(data []byte, role dsimage.Role) (*dsimage.Layer, error) {
	s.mu.RLock()
	decode := s.decode
	s.mu.RUnlock()

	buf, format, err := decode(data)
	if err != nil {
		return nil, err
	}
	return &dsimage.Layer{Buffer: buf, Format: format, Role: role}, nil
}

// AddVertex maps a position on the source pane to image pixels and appends
// it to the polygon. Positions outside the image are ignored.
func (s *State) AddVertex(display geometry.Point2D) bool {
	s.mu.RLock()
	p, ok := s.SourceView.ToSource(display)
	s.mu.RUnlock()
	if !ok {
		return false
	}
	return s.AddSourceVertex(p)
}

// AddSourceVertex appends a vertex given in source pixel coordinates.
func (s *State) AddSourceVertex(p geometry.Point2D) bool {
	if !s.session.AddVertex(p) {
		return false
	}
	s.Emit(EventPolygonChanged, s.session.Vertices())
	return true
}

// Polygon returns the vertices drawn so far.
func (s *State) Polygon() []geometry.Point2D {
	return s.session.Vertices()
}

// ResetPolygon discards the polygon in progress.
func (s *State) ResetPolygon() {
	s.session.Reset()
	s.Emit(EventPolygonChanged, []geometry.Point2D(nil))
}

// FinalizePolygon cuts the polygon out of the source and places it on the
// target at the centre of the visible target area. Without a target nothing
// is cut and the polygon is kept.
func (s *State) FinalizePolygon() (*region.Region, error) {
	s.mu.RLock()
	hasSource, hasTarget := s.source != nil, s.target != nil
	s.mu.RUnlock()
	if !hasSource {
		return nil, ErrNoSourceLoaded
	}
	if !hasTarget {
		return nil, ErrNoTargetLoaded
	}

	seed, rect, err := s.session.Finalize()
	if err != nil {
		return nil, err
	}
	s.Emit(EventPolygonChanged, []geometry.Point2D(nil))

	r, err := s.Place(seed, s.placementCenter())
	if err != nil {
		return nil, err
	}
	log.Printf("Placed region %s (%dx%d from %d,%d)", r.ID(), rect.Width, rect.Height, rect.X, rect.Y)
	return r, nil
}

// placementCenter returns the target pixel at the middle of the view, or
// the image centre when the view has no size yet.
func (s *State) placementCenter() geometry.Point2D {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := s.TargetView
	if v.ViewW > 0 && v.ViewH > 0 {
		if p, ok := v.ToSource(geometry.NewPoint2D(v.ViewW/2, v.ViewH/2)); ok {
			return p
		}
	}
	return geometry.NewPoint2D(float64(s.target.Width())/2, float64(s.target.Height())/2)
}

// Place puts a copy of seed on the target centred at center and makes it
// the active region.
func (s *State) Place(seed *pixbuf.Buffer, center geometry.Point2D) (*region.Region, error) {
	s.mu.Lock()
	if s.target == nil {
		s.mu.Unlock()
		return nil, ErrNoTargetLoaded
	}
	r, err := region.New(seed, center)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.regions.Add(r)
	s.modified = true
	s.mu.Unlock()

	s.Emit(EventRegionAdded, r)
	s.Emit(EventActiveChanged, r)
	return r, nil
}

// SourceLayer returns the loaded NG image, or nil.
func (s *State) SourceLayer() *dsimage.Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// TargetLayer returns the loaded OK image, or nil.
func (s *State) TargetLayer() *dsimage.Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.target
}

// Modified reports whether regions changed since the target was loaded or
// the result was last exported.
func (s *State) Modified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modified
}

// Regions returns the placed regions, bottom first.
func (s *State) Regions() []*region.Region {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.regions.Regions()
}

// Active returns the selected region, or nil. The region is live; read its
// pose through ActiveSnapshot when other goroutines may be editing it.
func (s *State) Active() *region.Region {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.regions.Active()
}

// ActiveSnapshot returns a copy of the selected region taken under the
// lock, or nil.
func (s *State) ActiveSnapshot() *region.Region {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r := s.regions.Active(); r != nil {
		return r.Snapshot()
	}
	return nil
}

// snapshotRegions copies every region's pose. Callers hold s.mu.
func (s *State) snapshotRegions() []*region.Region {
	live := s.regions.Regions()
	out := make([]*region.Region, len(live))
	for i, r := range live {
		out[i] = r.Snapshot()
	}
	return out
}

// RegionAt returns the topmost region under a target pixel without
// changing the selection.
func (s *State) RegionAt(p geometry.Point2D) *region.Region {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.regions.HitTest(p)
}

// SelectAt activates the topmost region under a target pixel. It returns
// nil and clears the selection when there is none.
func (s *State) SelectAt(p geometry.Point2D) *region.Region {
	s.mu.Lock()
	hit := s.regions.HitTest(p)
	prev := s.regions.Active()
	if hit != nil {
		s.regions.SetActive(hit.ID())
	} else {
		s.regions.SetActive("")
	}
	s.mu.Unlock()

	if hit != prev {
		s.Emit(EventActiveChanged, hit)
	}
	return hit
}

// Deselect clears the active region.
func (s *State) Deselect() {
	s.mu.Lock()
	prev := s.regions.Active()
	s.regions.SetActive("")
	s.drag = dragState{}
	s.mu.Unlock()
	if prev != nil {
		s.Emit(EventActiveChanged, nil)
	}
}

// withActive runs fn on the active region under the lock and emits
// EventRegionChanged with a snapshot of the new pose on success.
func (s *State) withActive(fn func(r *region.Region) error) error {
	s.mu.Lock()
	r := s.regions.Active()
	if r == nil {
		s.mu.Unlock()
		return ErrNoActiveRegion
	}
	if err := fn(r); err != nil {
		s.mu.Unlock()
		return err
	}
	s.modified = true
	snap := r.Snapshot()
	s.mu.Unlock()

	s.Emit(EventRegionChanged, snap)
	return nil
}

// NudgeScale grows or shrinks the active region by one configured step.
// Growing then shrinking restores the original size.
func (s *State) NudgeScale(up bool) error {
	step := s.Config().ScaleStep
	if !up {
		step = 1 / step
	}
	return s.ScaleActive(step)
}

// ScaleActive multiplies the active region's scale by f.
func (s *State) ScaleActive(f float64) error {
	return s.withActive(func(r *region.Region) error {
		return r.NudgeScale(f)
	})
}

// NudgeRotation rotates the active region by deg degrees clockwise.
func (s *State) NudgeRotation(deg float64) error {
	return s.withActive(func(r *region.Region) error {
		r.NudgeRotation(deg)
		return nil
	})
}

// MoveActive centres the active region on target pixel p.
func (s *State) MoveActive(p geometry.Point2D) error {
	return s.withActive(func(r *region.Region) error {
		r.SetCenter(p)
		return nil
	})
}

// DeleteActive removes the active region.
func (s *State) DeleteActive() error {
	s.mu.Lock()
	r := s.regions.Active()
	if r == nil {
		s.mu.Unlock()
		return ErrNoActiveRegion
	}
	s.regions.Remove(r.ID())
	s.drag = dragState{}
	s.modified = true
	s.mu.Unlock()

	log.Printf("Removed region %s", r.ID())
	s.Emit(EventRegionRemoved, r)
	s.Emit(EventActiveChanged, nil)
	return nil
}

// ClearRegions removes every placed region.
func (s *State) ClearRegions() {
	s.mu.Lock()
	s.regions.Clear()
	s.drag = dragState{}
	s.mu.Unlock()
	s.Emit(EventRegionsCleared, nil)
	s.Emit(EventActiveChanged, nil)
}

// ClearAll discards the polygon in progress and every placed region. The
// loaded images are kept.
func (s *State) ClearAll() {
	s.ResetPolygon()
	s.ClearRegions()
	s.mu.Lock()
	s.modified = false
	s.mu.Unlock()
}

func (s *State) compositor() *dsimage.Compositor {
	c := dsimage.NewCompositor()
	if mode, err := dsimage.ParseBlendMode(s.cfg.BlendMode); err == nil {
		c.Mode = mode
	}
	if interp, err := dsimage.ParseInterpolation(s.cfg.Interpolation); err == nil {
		c.Interp = interp
	}
	c.Threshold = uint8(max(0, min(s.cfg.AlphaThreshold, 254)))
	c.Warper = s.warper
	return c
}

// Render composites the placed regions over the target. The target itself
// is not modified.
func (s *State) Render() (*pixbuf.Buffer, error) {
	s.mu.RLock()
	if s.target == nil {
		s.mu.RUnlock()
		return nil, ErrNoTargetLoaded
	}
	base := s.target.Buffer
	regions := s.snapshotRegions()
	c := s.compositor()
	bg := s.cfg.BackgroundColor()
	s.mu.RUnlock()

	out, err := c.Render(base, regions)
	if err != nil {
		if errors.Is(err, dsimage.ErrNoTarget) {
			return nil, ErrNoTargetLoaded
		}
		return nil, err
	}
	return dsimage.Flatten(out, bg), nil
}

// Export renders and encodes the result.
func (s *State) Export(format codec.Format) ([]byte, error) {
	s.mu.RLock()
	empty := s.target == nil || s.regions.Len() == 0
	quality := s.cfg.JPEGQuality
	encode := s.encode
	s.mu.RUnlock()
	if empty {
		return nil, ErrEmptyComposite
	}

	out, err := s.Render()
	if err != nil {
		return nil, err
	}
	data, err := encode(out, format, codec.Options{JPEGQuality: quality})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.modified = false
	s.mu.Unlock()
	s.Emit(EventExported, format)
	return data, nil
}

// ExportFile renders and writes the result, picking the format from the
// file extension.
func (s *State) ExportFile(path string) error {
	format := codec.FormatFromPath(path)
	if format == codec.FormatUnknown {
		return fmt.Errorf("%w: %s", codec.ErrUnsupportedFormat, path)
	}
	data, err := s.Export(format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Printf("Exported %s", path)
	return nil
}
