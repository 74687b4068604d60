package services

import (
	"math"
	"sync"

	"github.com/ersonp/realmforge/internal/domain/entities"
)

// Canvas controls.
const (
	ZoomStep        = 1.2
	MinZoom         = 0.2
	MaxZoom         = 5.0
	AllLayers       = "all"
	MarkerPinRadius = 8.0
)

// Frame is one complete clear-and-redraw of the map canvas.
type Frame struct {
	Seq        int
	Width      float64
	Height     float64
	Background BackgroundTransform
	Regions    []DrawnRegion
	Markers    []DrawnMarker
}

// BackgroundTransform is applied, in order, to the background image.
type BackgroundTransform struct {
	ImageURL  string
	Translate entities.Point
	Scale     float64
	Rotation  float64 // degrees
}

// DrawnRegion is a region circle in canvas space.
type DrawnRegion struct {
	Region entities.Region
	Center entities.Point
	Radius float64
}

// DrawnMarker is a marker pin in canvas space.
type DrawnMarker struct {
	Marker entities.Marker
	Center entities.Point
	Radius float64
}

// Renderer draws frames. Every call replaces the whole canvas.
type Renderer interface {
	Render(frame Frame)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(Frame)

// Render calls f(frame).
func (f RendererFunc) Render(frame Frame) { f(frame) }

// MapView holds the view state of one rendered map. Changing zoom, rotation,
// active layer or marker visibility redraws the full canvas. Clicks are
// resolved only against what the current frame shows.
type MapView struct {
	renderer Renderer

	mu          sync.Mutex
	doc         entities.MapDocument
	index       *MapSpatialIndex
	view        ViewTransform
	layer       string
	showMarkers bool
	seq         int
	onMarker    func(entities.Marker)
	onRegion    func(entities.Region)
}

// NewMapView creates a view of doc on a width x height canvas and draws the
// first frame.
func NewMapView(doc entities.MapDocument, cfg SpatialConfig, width, height float64, renderer Renderer) *MapView {
	if renderer == nil {
		renderer = RendererFunc(func(Frame) {})
	}
	v := &MapView{
		renderer:    renderer,
		doc:         doc,
		index:       NewMapSpatialIndexFromDocument(doc, cfg),
		view:        ViewTransform{Width: width, Height: height, Zoom: 1},
		layer:       AllLayers,
		showMarkers: true,
	}
	v.mu.Lock()
	frame := v.frameLocked()
	v.mu.Unlock()
	v.renderer.Render(frame)
	return v
}

// OnMarkerClick sets the callback for clicks resolving to a marker.
func (v *MapView) OnMarkerClick(fn func(entities.Marker)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onMarker = fn
}

// OnRegionClick sets the callback for clicks resolving to a region.
func (v *MapView) OnRegionClick(fn func(entities.Region)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onRegion = fn
}

// Transform returns the current view transform.
func (v *MapView) Transform() ViewTransform {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.view
}

// Layer returns the active layer id, AllLayers by default.
func (v *MapView) Layer() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.layer
}

// MarkersShown reports whether markers are drawn.
func (v *MapView) MarkersShown() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.showMarkers
}

// ZoomIn multiplies zoom by ZoomStep, up to MaxZoom.
func (v *MapView) ZoomIn() {
	v.update(func() bool { return v.setZoomLocked(v.view.Zoom * ZoomStep) })
}

// ZoomOut divides zoom by ZoomStep, down to MinZoom.
func (v *MapView) ZoomOut() {
	v.update(func() bool { return v.setZoomLocked(v.view.Zoom / ZoomStep) })
}

// SetZoom sets zoom, clamped to [MinZoom, MaxZoom].
func (v *MapView) SetZoom(z float64) {
	v.update(func() bool { return v.setZoomLocked(z) })
}

// SetRotation sets the background rotation in degrees.
func (v *MapView) SetRotation(deg float64) {
	v.update(func() bool {
		deg = math.Mod(deg, 360)
		if deg == v.view.Rotation {
			return false
		}
		v.view.Rotation = deg
		return true
	})
}

// Reset restores zoom 1 and rotation 0.
func (v *MapView) Reset() {
	v.update(func() bool {
		if v.view.Zoom == 1 && v.view.Rotation == 0 {
			return false
		}
		v.view.Zoom, v.view.Rotation = 1, 0
		return true
	})
}

// SetLayer selects the layer to show; AllLayers or "" shows every layer.
func (v *MapView) SetLayer(layer string) {
	if layer == "" {
		layer = AllLayers
	}
	v.update(func() bool {
		if v.layer == layer {
			return false
		}
		v.layer = layer
		return true
	})
}

// SetShowMarkers toggles marker visibility.
func (v *MapView) SetShowMarkers(show bool) {
	v.update(func() bool {
		if v.showMarkers == show {
			return false
		}
		v.showMarkers = show
		return true
	})
}

// Click resolves a canvas point against the drawn markers and regions and
// fires the matching callback.
func (v *MapView) Click(canvas entities.Point) Hit {
	v.mu.Lock()
	visible := v.visibleIndexLocked()
	p := v.view.ToWorld(canvas)
	onMarker, onRegion := v.onMarker, v.onRegion
	v.mu.Unlock()

	return visible.Resolve(p, onMarker, onRegion)
}

func (v *MapView) update(change func() bool) {
	v.mu.Lock()
	if !change() {
		v.mu.Unlock()
		return
	}
	frame := v.frameLocked()
	v.mu.Unlock()
	v.renderer.Render(frame)
}

// setZoomLocked ignores non-finite zoom levels.
func (v *MapView) setZoomLocked(z float64) bool {
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return false
	}
	z = math.Max(MinZoom, math.Min(MaxZoom, z))
	if z == v.view.Zoom {
		return false
	}
	v.view.Zoom = z
	return true
}

func (v *MapView) onLayer(layer string) bool {
	return v.layer == AllLayers || layer == "" || layer == v.layer
}

func (v *MapView) visibleIndexLocked() *MapSpatialIndex {
	return v.index.Filter(
		func(m entities.Marker) bool { return v.showMarkers && v.onLayer(m.Layer) },
		func(r entities.Region) bool { return v.onLayer(r.Layer) },
	)
}

func (v *MapView) frameLocked() Frame {
	v.seq++
	z := v.view.scale()
	visible := v.visibleIndexLocked()

	f := Frame{
		Seq:    v.seq,
		Width:  v.view.Width,
		Height: v.view.Height,
		Background: BackgroundTransform{
			ImageURL:  v.doc.ImageURL,
			Translate: v.view.Center(),
			Scale:     z,
			Rotation:  v.view.Rotation,
		},
	}
	for _, r := range visible.regions {
		f.Regions = append(f.Regions, DrawnRegion{
			Region: r,
			Center: v.view.ToCanvas(r.Coordinates),
			Radius: visible.cfg.RegionRadius * z,
		})
	}
	for _, m := range visible.markers {
		f.Markers = append(f.Markers, DrawnMarker{
			Marker: m,
			Center: v.view.ToCanvas(m.Coordinates),
			Radius: MarkerPinRadius * z,
		})
	}
	return f
}
