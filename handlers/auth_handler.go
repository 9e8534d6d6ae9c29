package handlers

import (
	"go_draft_backend/models"
	"go_draft_backend/services"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login 卡密登录透传
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.LoginReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	ok, err := h.auth.Verify(c.Context(), req.Key)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, "鉴权服务不可用")
	}
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "无效的卡密")
	}
	return c.JSON(fiber.Map{"status": "success", "msg": "登录成功"})
}
