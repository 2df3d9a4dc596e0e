package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"keijiban/backend/pkg/response"
)

// MustGetIntParam 从路径参数中提取正整数。
// 解析失败或非正数时写入 400 响应并返回 false，调用方应直接 return。
func MustGetIntParam(c *gin.Context, name, label string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v <= 0 {
		response.BadRequest(c, response.CodeInvalidParams, label+"无效")
		return 0, false
	}
	return v, true
}

// MustGetDepartmentParam 部署 ID 允许为 0（表示仅全部署联络事项）
func MustGetDepartmentParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v < 0 {
		response.BadRequest(c, response.CodeInvalidParams, "部署ID无效")
		return 0, false
	}
	return v, true
}

// MustBindJSON 绑定 JSON 请求体；超出大小限制返回 413，其余绑定错误返回 400
func MustBindJSON(c *gin.Context, obj interface{}) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeBodyTooLarge, "请求体过大")
		return false
	}
	response.BadRequest(c, response.CodeInvalidParams, "参数校验失败")
	return false
}
