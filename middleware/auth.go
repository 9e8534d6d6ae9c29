package middleware

import (
	"go_draft_backend/services"

	"github.com/gofiber/fiber/v2"
)

// RequireUser 业务路由统一鉴权：卡密放在 X-User-ID 头里，
// 校验通过后写进 Locals 供 handler 取用。
func RequireUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-ID")
		if userID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "缺少 X-User-ID")
		}
		ok, err := auth.Verify(c.Context(), userID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "鉴权服务不可用")
		}
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "无效的卡密")
		}
		c.Locals("userID", userID)
		return c.Next()
	}
}

// UserID 从 Locals 取当前用户
func UserID(c *fiber.Ctx) string {
	if id, ok := c.Locals("userID").(string); ok {
		return id
	}
	return ""
}
