package api

import (
	"net/http"

	"putik-service/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listVehicles(c *gin.Context) {
	vehicles, err := h.svc.Catalog.ListVehicles(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": vehicles})
}

func (h *Handler) getVehicle(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	vehicle, err := h.svc.Catalog.GetVehicle(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vehicle)
}

// listParts serves the parts of a vehicle. A signed-in customer who is
// editing a booking sees that booking's reservation credited back.
func (h *Handler) listParts(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var filter models.CatalogFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, "Invalid search", err)
		return
	}

	var editGroupID *int64
	if actor, ok := actorFrom(c); ok {
		group, err := h.svc.Cart.EditGroup(c.Request.Context(), actor.UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		editGroupID = group
	}

	parts, err := h.svc.Catalog.ListParts(c.Request.Context(), id, filter, editGroupID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"parts": parts, "filter": filter})
}

func (h *Handler) listTypes(c *gin.Context) {
	types, err := h.svc.Catalog.ListTypes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"types": types})
}

func (h *Handler) listMechanics(c *gin.Context) {
	mechanics, err := h.svc.Catalog.ListMechanics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mechanics": mechanics})
}
