package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type selectVehicleRequest struct {
	VehicleID int64 `json:"vehicle_id" binding:"required,min=1"`
}

type addCartItemRequest struct {
	PartID int64 `json:"part_id" binding:"required,min=1"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type selectDateRequest struct {
	Date string `json:"date" binding:"required"`
}

type selectMechanicRequest struct {
	MechanicID int64 `json:"mechanic_id" binding:"required,min=1"`
}

func (h *Handler) getCart(c *gin.Context) {
	cart, err := h.svc.Cart.GetCart(c.Request.Context(), mustActor(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *Handler) clearCart(c *gin.Context) {
	if err := h.svc.Cart.ClearCart(c.Request.Context(), mustActor(c).UserID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) selectVehicle(c *gin.Context) {
	var req selectVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	cart, err := h.svc.Cart.SelectVehicle(c.Request.Context(), mustActor(c).UserID, req.VehicleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *Handler) addCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	cart, err := h.svc.Cart.AddPart(c.Request.Context(), mustActor(c).UserID, req.PartID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *Handler) updateCartItem(c *gin.Context) {
	partID, ok := idParam(c, "part_id")
	if !ok {
		return
	}
	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	cart, err := h.svc.Cart.UpdateQuantity(c.Request.Context(), mustActor(c).UserID, partID, *req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *Handler) getCheckout(c *gin.Context) {
	view, err := h.svc.Checkout.Get(c.Request.Context(), mustActor(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) cancelCheckout(c *gin.Context) {
	view, err := h.svc.Checkout.Cancel(c.Request.Context(), mustActor(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) selectDate(c *gin.Context) {
	var req selectDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	date, err := h.svc.Checkout.ParseDate(req.Date)
	if err != nil {
		respondError(c, err)
		return
	}
	view, err := h.svc.Checkout.SelectDate(c.Request.Context(), mustActor(c).UserID, date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) checkoutMechanics(c *gin.Context) {
	options, err := h.svc.Checkout.MechanicOptions(c.Request.Context(), mustActor(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mechanics": options})
}

func (h *Handler) selectMechanic(c *gin.Context) {
	var req selectMechanicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	view, err := h.svc.Checkout.SelectMechanic(c.Request.Context(), mustActor(c).UserID, req.MechanicID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// confirmCheckout submits the cart; Idempotency-Key makes retries safe
func (h *Handler) confirmCheckout(c *gin.Context) {
	result, err := h.svc.Checkout.Confirm(c.Request.Context(), mustActor(c).UserID, c.GetHeader("Idempotency-Key"))
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed || result.Edited {
		status = http.StatusOK
	}
	c.JSON(status, result)
}
