package handlers

import (
	"net/http"

	"github.com/akinalp/dmrelay/models"
	"github.com/akinalp/dmrelay/pkg"
	"github.com/akinalp/dmrelay/services"
)

// RelationshipHandler, block/mute/pin/archive/star/hide endpoint'leri.
type RelationshipHandler struct {
	relationshipService services.RelationshipService
}

// NewRelationshipHandler, constructor.
func NewRelationshipHandler(relationshipService services.RelationshipService) *RelationshipHandler {
	return &RelationshipHandler{relationshipService: relationshipService}
}

// List godoc
// GET /api/relationships
// Response: { peerId: { blocked, muted, pinned, ... } }
func (h *RelationshipHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	all, err := h.relationshipService.List(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, all)
}

// Set godoc
// PUT /api/relationships/{peerId}
// Body: { "kind": "blocked", "enabled": true }
func (h *RelationshipHandler) Set(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.SetRelationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	flags, err := h.relationshipService.Set(r.Context(), user.ID, r.PathValue("peerId"), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, flags)
}
