package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kriviai/chat-web/internal/logger"
)

// NewRouter builds the gin engine with the full route surface.
func NewRouter(h *Handler, corsAllowedOrigins string) *gin.Engine {
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", corsAllowedOrigins)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Attach a request ID so every log line of a request correlates.
	router.Use(func(c *gin.Context) {
		ctx := logger.WithRequestID(c.Request.Context(), logger.GenerateRequestID())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Page-level views.
	router.GET("/", h.NewChatView)
	router.GET("/chat/:chatId", h.ChatView)
	router.GET("/login", h.LoginView)
	router.POST("/logout", h.Logout)

	// Chat stream relay.
	router.POST("/api/chat/stream", h.StreamChat)

	return router
}
