package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger пишет одну строку на запрос. Текст ошибки берётся из ключа
// "error", который выставляет обработчик.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		}
		if id, ok := c.Get(merchantKey); ok {
			attrs = append(attrs, slog.Any("merchant_id", id))
		}

		level := slog.LevelInfo
		if msg := c.GetString("error"); msg != "" {
			attrs = append(attrs, slog.String("error", msg))
			if c.Writer.Status() >= 500 {
				level = slog.LevelError
			} else {
				level = slog.LevelWarn
			}
		}

		log.LogAttrs(c.Request.Context(), level, "http request", attrs...)
	}
}
