package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/gallery"
)

// GalleryHandler exposes the loaded reference gallery.
type GalleryHandler struct {
	gallery *gallery.Gallery
}

// NewGalleryHandler creates a gallery handler.
func NewGalleryHandler(g *gallery.Gallery) *GalleryHandler {
	return &GalleryHandler{gallery: g}
}

type galleryMember struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"display_name"`
	Path        string `json:"path"`
}

// List returns every registered identity.
// GET /api/v1/gallery
func (h *GalleryHandler) List(w http.ResponseWriter, r *http.Request) {
	entries := h.gallery.Entries()
	members := make([]galleryMember, 0, len(entries))
	for _, e := range entries {
		members = append(members, galleryMember{
			Identity:    e.Identity,
			DisplayName: e.DisplayName,
			Path:        e.Path,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"dir":     h.gallery.Dir(),
		"count":   len(members),
		"members": members,
	})
}
