package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/dailypen/internal/pkg/response"
	"github.com/xxxsen/dailypen/internal/service"
)

type AdminHandler struct {
	users *service.UserService
}

func NewAdminHandler(users *service.UserService) *AdminHandler {
	return &AdminHandler{users: users}
}

type adminUser struct {
	profile
	Ctime int64 `json:"ctime"`
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	out := make([]adminUser, 0, len(users))
	for _, user := range users {
		out = append(out, adminUser{profile: toProfile(user), Ctime: user.Ctime})
	}
	response.Success(c, gin.H{"users": out})
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	if err := h.users.DeleteUser(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
