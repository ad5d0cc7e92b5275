package api

import (
	"net/http"
	"time"

	"putik-service/internal/service"
	"putik-service/internal/store"

	"github.com/gin-gonic/gin"
)

type addLeaveRequest struct {
	Date   string `json:"date" binding:"required"`
	Reason string `json:"reason"`
}

func (h *Handler) listOwnBookings(c *gin.Context) {
	status, ok := statusQuery(c)
	if !ok {
		return
	}
	groups, err := h.svc.Bookings.ListForCustomer(c.Request.Context(), mustActor(c).UserID, status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": groups})
}

func (h *Handler) listMechanicBookings(c *gin.Context) {
	status, ok := statusQuery(c)
	if !ok {
		return
	}
	groups, err := h.svc.Bookings.ListForMechanic(c.Request.Context(), mustActor(c).UserID, status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": groups})
}

func (h *Handler) listAllBookings(c *gin.Context) {
	status, ok := statusQuery(c)
	if !ok {
		return
	}
	groups, err := h.svc.Bookings.ListAll(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": groups})
}

func (h *Handler) getBooking(c *gin.Context) {
	groupID, ok := idParam(c, "group_id")
	if !ok {
		return
	}
	group, err := h.svc.Bookings.GetGroup(c.Request.Context(), mustActor(c), groupID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

func (h *Handler) editBooking(c *gin.Context) {
	groupID, ok := idParam(c, "group_id")
	if !ok {
		return
	}
	view, err := h.svc.Checkout.BeginEdit(c.Request.Context(), mustActor(c), groupID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) cancelBooking(c *gin.Context) {
	groupID, ok := idParam(c, "group_id")
	if !ok {
		return
	}
	h.transition(c, groupID, service.ActionCancel)
}

func (h *Handler) transitionBooking(c *gin.Context) {
	groupID, ok := idParam(c, "group_id")
	if !ok {
		return
	}
	action, err := service.ParseAction(c.Param("action"))
	if err != nil {
		respondError(c, err)
		return
	}
	h.transition(c, groupID, action)
}

func (h *Handler) transition(c *gin.Context, groupID int64, action service.Action) {
	group, err := h.svc.Bookings.Transition(c.Request.Context(), mustActor(c), groupID, action)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

// dateRange reads the optional from and to query dates
func dateRange(c *gin.Context) (*time.Time, *time.Time, bool) {
	var bounds [2]*time.Time
	for i, name := range []string{"from", "to"} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		d, err := time.Parse(store.DateLayout, raw)
		if err != nil {
			badRequest(c, "Invalid "+name+" date", err)
			return nil, nil, false
		}
		bounds[i] = &d
	}
	return bounds[0], bounds[1], true
}

func (h *Handler) listLeaves(c *gin.Context, mechanicID int64) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	leaves, err := h.svc.Leaves.List(c.Request.Context(), mechanicID, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaves": leaves})
}

func (h *Handler) addLeave(c *gin.Context, mechanicID int64) {
	var req addLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	date, err := time.Parse(store.DateLayout, req.Date)
	if err != nil {
		badRequest(c, "Invalid date", err)
		return
	}
	leave, err := h.svc.Leaves.Add(c.Request.Context(), mechanicID, date, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, leave)
}

func (h *Handler) deleteLeave(c *gin.Context, mechanicID int64) {
	leaveID, ok := idParam(c, "leave_id")
	if !ok {
		return
	}
	if err := h.svc.Leaves.Delete(c.Request.Context(), mechanicID, leaveID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ownMechanicID resolves the mechanic record of the signed-in mechanic
func (h *Handler) ownMechanicID(c *gin.Context) (int64, bool) {
	m, err := h.svc.Leaves.MechanicFor(c.Request.Context(), mustActor(c).UserID)
	if err != nil {
		respondError(c, err)
		return 0, false
	}
	return m.ID, true
}

func (h *Handler) listOwnLeaves(c *gin.Context) {
	if id, ok := h.ownMechanicID(c); ok {
		h.listLeaves(c, id)
	}
}

func (h *Handler) addOwnLeave(c *gin.Context) {
	if id, ok := h.ownMechanicID(c); ok {
		h.addLeave(c, id)
	}
}

func (h *Handler) deleteOwnLeave(c *gin.Context) {
	if id, ok := h.ownMechanicID(c); ok {
		h.deleteLeave(c, id)
	}
}

func (h *Handler) listMechanicLeaves(c *gin.Context) {
	if id, ok := idParam(c, "id"); ok {
		h.listLeaves(c, id)
	}
}

func (h *Handler) addMechanicLeave(c *gin.Context) {
	if id, ok := idParam(c, "id"); ok {
		h.addLeave(c, id)
	}
}

func (h *Handler) deleteMechanicLeave(c *gin.Context) {
	if id, ok := idParam(c, "id"); ok {
		h.deleteLeave(c, id)
	}
}
