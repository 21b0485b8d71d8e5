package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/dailypen/internal/model"
	"github.com/xxxsen/dailypen/internal/pkg/response"
	"github.com/xxxsen/dailypen/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Fields are checked by the service so that a missing value reports InvalidRequest.
type verifyOTPRequest struct {
	UserID string `json:"user_id"`
	OTP    string `json:"otp"`
}

type profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func toProfile(user *model.User) profile {
	return profile{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	user, token, err := h.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"user": toProfile(user), "token": token})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	if res.Status == service.LoginAlreadyPending {
		response.Success(c, gin.H{"already_pending": true, "user_id": res.UserID})
		return
	}
	response.Success(c, gin.H{"challenge_issued": true, "user_id": res.UserID})
}

func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	user, token, err := h.auth.VerifyOTP(c.Request.Context(), req.UserID, req.OTP)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"user_id": user.ID,
		"token":   token,
		"name":    user.Name,
		"email":   user.Email,
		"role":    user.Role,
	})
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.auth.Me(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, toProfile(user))
}

func Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}
