package http

import (
	"fmt"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/profullstack/ugig.net-sub000/internal/auth"
	"github.com/profullstack/ugig.net-sub000/internal/chat"
	"github.com/profullstack/ugig.net-sub000/internal/config"
	"github.com/profullstack/ugig.net-sub000/internal/store"
)

// NewServer builds an HTTP server with all API and WebSocket routes.
func NewServer(hub *chat.Hub, typing *chat.TypingRegistry, authService *auth.Service, st store.Store, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))
	router.Use(MetricsMiddleware())

	authHandlers := NewAuthHandlers(authService, logger)
	chatHandlers := NewChatHandlers(st, hub, typing, cfg.HistoryPageSize, logger)
	wsHandlers := NewWSHandlers(chatHandlers, logger)

	router.GET("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.POST("/register", authHandlers.Register)
	api.POST("/login", authHandlers.Login)

	protected := api.Group("")
	protected.Use(AuthMiddleware(authService, logger))
	protected.GET("/conversations", chatHandlers.ListConversations)
	protected.POST("/conversations", chatHandlers.CreateConversation)
	protected.GET("/conversations/:id/messages", chatHandlers.History)
	protected.POST("/conversations/:id/messages", chatHandlers.SendMessage)
	protected.GET("/conversations/:id/typing", chatHandlers.PollTyping)
	protected.POST("/conversations/:id/typing", chatHandlers.Typing)
	protected.PUT("/messages/:id/read", chatHandlers.MarkRead)

	ws := router.Group("/ws")
	ws.Use(AuthMiddleware(authService, logger))
	ws.GET("/conversations/:id", wsHandlers.Subscribe)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	fmt.Fprint(c.Writer, "ok")
}
