package handlers

import (
	"context"

	"github.com/ersonp/realmforge/internal/domain/entities"
	"github.com/ersonp/realmforge/internal/domain/services"
)

// MapHandler resolves clicks on a map canvas.
type MapHandler struct {
	session *services.Session
}

// NewMapHandler creates a new MapHandler.
func NewMapHandler(session *services.Session) *MapHandler {
	return &MapHandler{session: session}
}

// HitRequest describes a click on a rendered map.
type HitRequest struct {
	MapID       string
	Canvas      entities.Point
	Width       float64
	Height      float64
	Zoom        float64
	Rotation    float64
	Layer       string // "" or services.AllLayers for every layer
	HideMarkers bool
}

// HitResult is the outcome of a click.
type HitResult struct {
	MapName string           `json:"map"`
	World   entities.Point   `json:"world"`
	Zoom    float64          `json:"zoom"`
	Marker  *entities.Marker `json:"marker,omitempty"`
	Region  *entities.Region `json:"region,omitempty"`
}

// Found reports whether the click landed on anything.
func (r *HitResult) Found() bool {
	return r.Marker != nil || r.Region != nil
}

// HandleHit opens the map with the requested view and resolves one click.
func (h *MapHandler) HandleHit(ctx context.Context, req HitRequest) (*HitResult, error) {
	doc, err := h.session.LoadMap(ctx, req.MapID)
	if err != nil {
		return nil, err
	}

	view := services.NewMapView(doc, h.session.Spatial(), req.Width, req.Height, nil)
	if req.Zoom > 0 {
		view.SetZoom(req.Zoom)
	}
	view.SetRotation(req.Rotation)
	if req.Layer != "" {
		view.SetLayer(req.Layer)
	}
	view.SetShowMarkers(!req.HideMarkers)

	hit := view.Click(req.Canvas)
	t := view.Transform()
	return &HitResult{
		MapName: doc.Name,
		World:   t.ToWorld(req.Canvas),
		Zoom:    t.Zoom,
		Marker:  hit.Marker,
		Region:  hit.Region,
	}, nil
}
