package app

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bhumi3292/VaultLease-sub001/apperror"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const loggerKey = "logger"

// Envelope 所有接口统一的返回格式
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Code    string `json:"code,omitempty"`
}

// RequestLogger 替代 gin 默认日志，并把 logger 放进上下文
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Set(loggerKey, logger)
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"ip", c.ClientIP(),
		)
	}
}

func Logger(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(*slog.Logger); ok {
			return l
		}
	}
	return slog.Default()
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

func Created(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

func Message(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

// Fail 把任意错误映射为状态码；服务端错误只记日志，不把内部信息返回给客户端
func Fail(c *gin.Context, err error) {
	ae := apperror.From(err)
	if ae.Kind == apperror.KindServer {
		Logger(c).Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "err", err)
	}
	c.AbortWithStatusJSON(ae.HTTPStatus(), Envelope{Success: false, Message: ae.Message, Code: ae.Code})
}

// BindFail 绑定/校验失败统一按 400 返回
func BindFail(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		Fail(c, apperror.Validation(fe.Field()+" failed on '"+fe.Tag()+"'"))
		return
	}
	Fail(c, apperror.Validation("invalid request body"))
}
