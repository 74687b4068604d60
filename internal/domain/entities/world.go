package entities

import "time"

// World is the top-level namespace owning a user's content.
type World struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	ImageURL    string    `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	OwnerID     string    `json:"owner_id" yaml:"owner_id"`
	IsPublic    bool      `json:"is_public" yaml:"is_public"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// WorldPatch holds optional world field updates. Nil fields are left unchanged.
type WorldPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`
	IsPublic    *bool   `json:"is_public,omitempty"`
}

// Apply merges the patch into w.
func (p WorldPatch) Apply(w *World) {
	if p.Name != nil {
		w.Name = *p.Name
	}
	if p.Description != nil {
		w.Description = *p.Description
	}
	if p.ImageURL != nil {
		w.ImageURL = *p.ImageURL
	}
	if p.IsPublic != nil {
		w.IsPublic = *p.IsPublic
	}
}

// DefaultWorldName and DefaultWorldDescription describe the world seeded
// for an owner that has none.
const (
	DefaultWorldName        = "My First World"
	DefaultWorldDescription = "Welcome to your first world. Start by adding characters, maps, and power systems!"
)
