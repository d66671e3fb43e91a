package handlers

import (
	"net/http"
	"time"
	"vhs_converter/internal/models"
	"vhs_converter/internal/services"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	userService  services.UserService
	sessionTTL   time.Duration
	cookieSecure bool
}

func NewAuthHandler(userService services.UserService, sessionTTL time.Duration, cookieSecure bool) *AuthHandler {
	return &AuthHandler{userService: userService, sessionTTL: sessionTTL, cookieSecure: cookieSecure}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"max=128"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, value, maxAge, "/", "", h.cookieSecure, true)
}

func (h *AuthHandler) startSession(c *gin.Context, status int, user *models.User) {
	sessionID, err := h.userService.CreateSession(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}
	h.setSessionCookie(c, sessionID, int(h.sessionTTL.Seconds()))
	c.JSON(status, gin.H{"user": user})
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	h.startSession(c, http.StatusCreated, user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	h.startSession(c, http.StatusOK, user)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if sessionID, err := c.Cookie(sessionCookie); err == nil {
		if err := h.userService.DestroySession(c.Request.Context(), sessionID); err != nil {
			respondError(c, err)
			return
		}
	}
	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

func (h *AuthHandler) Me(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "is_admin": user.IsAdmin()})
}
