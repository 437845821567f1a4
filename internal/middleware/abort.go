package middleware

import "github.com/gin-gonic/gin"

// abort stops the chain with the same envelope the handlers write.
func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
		"error":   code,
	})
}
