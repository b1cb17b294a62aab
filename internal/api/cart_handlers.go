package api

import (
	"net/http"

	"ecofinds/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) getCart(c *gin.Context) {
	cart, err := h.svc.Cart.GetCart(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *Handler) addToCart(c *gin.Context) {
	var req service.AddToCartRequest
	if !bindJSON(c, &req) {
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	item, err := h.svc.Cart.AddItem(c.Request.Context(), userID(c), req.ListingID, quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"cartItem": item})
}

func (h *Handler) updateCartItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.UpdateCartItemRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.svc.Cart.UpdateQuantity(c.Request.Context(), userID(c), id, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cartItem": item})
}

func (h *Handler) removeCartItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.svc.Cart.RemoveItem(c.Request.Context(), userID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart"})
}
