package api

import (
	"net/http"

	"ecofinds/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) checkout(c *gin.Context) {
	var req service.CheckoutRequest
	if !bindJSON(c, &req) {
		return
	}
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")

	result, err := h.svc.Checkout.Checkout(c.Request.Context(), userID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"orders": result.Orders})
}

func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.svc.Orders.List(c.Request.Context(), userID(c), c.Query("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) getOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	order, err := h.svc.Orders.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.UpdateOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.svc.Orders.UpdateStatus(c.Request.Context(), userID(c), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}
