package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/dailypen/internal/middleware"
)

type RouterDeps struct {
	Auth      *AuthHandler
	Users     *UserHandler
	Admin     *AdminHandler
	Roles     middleware.RoleLookup
	Limiter   middleware.Limiter
	JWTSecret []byte
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", Health)

	limit := middleware.RateLimit(deps.Limiter)
	auth := middleware.JWTAuth(deps.JWTSecret)

	authGroup := api.Group("/auth")
	authGroup.POST("/register", limit, deps.Auth.Register)
	authGroup.POST("/login", limit, deps.Auth.Login)
	authGroup.POST("/verify-otp", limit, deps.Auth.VerifyOTP)
	authGroup.GET("/me", auth, limit, deps.Auth.Me)

	api.GET("/users/:id", deps.Users.GetProfile)
	api.PUT("/users/profile", auth, deps.Users.UpdateProfile)

	adminGroup := api.Group("/admin")
	adminGroup.Use(auth, middleware.AdminOnly(deps.Roles))
	adminGroup.GET("/users", deps.Admin.ListUsers)
	adminGroup.DELETE("/users/:id", deps.Admin.DeleteUser)
}
