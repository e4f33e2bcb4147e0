package handler

import (
	"github.com/gin-gonic/gin"

	"moving-team/backend/internal/dto"
	"moving-team/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id（customer_id 或 driver_id）。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, "user_id")
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	return mustGetString(c, "role")
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// mustBindPage 绑定分页参数，失败时写入 400
func mustBindPage(c *gin.Context) (*dto.PaginationRequest, bool) {
	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, 10001, "分页参数无效")
		return nil, false
	}
	return &page, true
}
