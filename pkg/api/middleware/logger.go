package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger 请求日志中间件
// 问答请求体可能包含病情描述, 只记录路径与耗时, 不记录请求体
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Printf("[API] %s %s %d %v",
			c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
