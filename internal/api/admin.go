package api

import (
	"context"
	"net/http"

	"putik-service/internal/models"

	"github.com/gin-gonic/gin"
)

// saveRecord binds a JSON body into T, lets assign copy the path id, and
// hands the record to the write
func saveRecord[T any](c *gin.Context, status int, assign func(*T, int64), write func(context.Context, *T) error) {
	var id int64
	if assign != nil {
		var ok bool
		if id, ok = idParam(c, "id"); !ok {
			return
		}
	}

	var record T
	if err := c.ShouldBindJSON(&record); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	if assign != nil {
		assign(&record, id)
	}

	if err := write(c.Request.Context(), &record); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, record)
}

func deleteRecord(c *gin.Context, remove func(context.Context, int64) error) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := remove(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) createVehicle(c *gin.Context) {
	saveRecord(c, http.StatusCreated, nil, h.svc.Admin.CreateVehicle)
}

func (h *Handler) updateVehicle(c *gin.Context) {
	saveRecord(c, http.StatusOK, func(v *models.Vehicle, id int64) { v.ID = id }, h.svc.Admin.UpdateVehicle)
}

func (h *Handler) deleteVehicle(c *gin.Context) {
	deleteRecord(c, h.svc.Admin.DeleteVehicle)
}

func (h *Handler) createType(c *gin.Context) {
	saveRecord(c, http.StatusCreated, nil, h.svc.Admin.CreateType)
}

func (h *Handler) updateType(c *gin.Context) {
	saveRecord(c, http.StatusOK, func(t *models.Type, id int64) { t.ID = id }, h.svc.Admin.UpdateType)
}

func (h *Handler) deleteType(c *gin.Context) {
	deleteRecord(c, h.svc.Admin.DeleteType)
}

func (h *Handler) createPart(c *gin.Context) {
	saveRecord(c, http.StatusCreated, nil, h.svc.Admin.CreatePart)
}

func (h *Handler) updatePart(c *gin.Context) {
	saveRecord(c, http.StatusOK, func(p *models.Part, id int64) { p.ID = id }, h.svc.Admin.UpdatePart)
}

func (h *Handler) deletePart(c *gin.Context) {
	deleteRecord(c, h.svc.Admin.DeletePart)
}

func (h *Handler) createMechanic(c *gin.Context) {
	saveRecord(c, http.StatusCreated, nil, h.svc.Admin.CreateMechanic)
}

func (h *Handler) updateMechanic(c *gin.Context) {
	saveRecord(c, http.StatusOK, func(m *models.Mechanic, id int64) { m.ID = id }, h.svc.Admin.UpdateMechanic)
}

func (h *Handler) deleteMechanic(c *gin.Context) {
	deleteRecord(c, h.svc.Admin.DeleteMechanic)
}
