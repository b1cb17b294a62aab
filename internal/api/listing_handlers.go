package api

import (
	"net/http"

	"ecofinds/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.svc.Listings.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *Handler) listProducts(c *gin.Context) {
	var q service.ListingQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query: " + err.Error()})
		return
	}

	page, err := h.svc.Listings.List(c.Request.Context(), &q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) getProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	listing, err := h.svc.Listings.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": listing})
}

func (h *Handler) createProduct(c *gin.Context) {
	var req service.CreateListingRequest
	if !bindJSON(c, &req) {
		return
	}

	listing, err := h.svc.Listings.Create(c.Request.Context(), userID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": listing})
}

func (h *Handler) updateProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.UpdateListingRequest
	if !bindJSON(c, &req) {
		return
	}

	listing, err := h.svc.Listings.Update(c.Request.Context(), userID(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": listing})
}

func (h *Handler) deleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	kept, err := h.svc.Listings.Delete(c.Request.Context(), userID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	msg := "Product deleted"
	if kept {
		msg = "Product deactivated; it is kept for order history"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *Handler) myListings(c *gin.Context) {
	listings, err := h.svc.Listings.ListMine(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings})
}
