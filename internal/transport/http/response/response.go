package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Fail 错误响应只有状态码，没有响应体；err 记入 c.Errors 供访问日志输出
func Fail(c *gin.Context, code int, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	c.AbortWithStatus(code)
}

// JSON 成功响应，直接输出数据本身（不包信封）
func JSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// Empty 无响应体的成功状态（如 202）
func Empty(c *gin.Context, code int) {
	c.Status(code)
	c.Writer.WriteHeaderNow()
}

// BodyTooLarge 识别 http.MaxBytesReader 的超限错误
func BodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
