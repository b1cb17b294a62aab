package api

import (
	"net/http"

	"ecofinds/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, maxAge, "/", "", h.cookie.Secure, true)
}

func (h *Handler) signup(c *gin.Context) {
	var req service.SignupRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.svc.Auth.Signup(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setSessionCookie(c, session.Token, int(h.cookie.MaxAge.Seconds()))
	c.JSON(http.StatusCreated, gin.H{"user": session.User, "token": session.Token})
}

func (h *Handler) login(c *gin.Context) {
	var req service.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.svc.Auth.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setSessionCookie(c, session.Token, int(h.cookie.MaxAge.Seconds()))
	c.JSON(http.StatusOK, gin.H{"user": session.User, "token": session.Token})
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.svc.Auth.Logout(c.Request.Context(), principal(c)); err != nil {
		respondError(c, err)
		return
	}

	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *Handler) me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": principal(c).User})
}
