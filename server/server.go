package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"signage-console/backend"
	"signage-console/handlers"
	httpHandler "signage-console/handlers/http"
	"signage-console/presence"
	"signage-console/realtime"
	"signage-console/store"
	"signage-console/usecases"
	"signage-console/ws"
)

// Deps is everything the console API serves from. Built once at the
// composition root and passed in; the server owns no domain state.
type Deps struct {
	Devices  *store.DeviceStore
	Messages *store.MessageStore
	Backend  *backend.Client
	Commands *usecases.CommandGateway
	Chat     *usecases.ChatGateway
	Tracker  *presence.Tracker
	Channels map[string]*realtime.Channel
	Logger   zerolog.Logger
}

type Server struct {
	app  *gin.Engine
	deps Deps
}

func NewServer(deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	return &Server{
		app:  gin.New(),
		deps: deps,
	}
}

func (s *Server) Start(addr string) error {
	s.app.Use(gin.Recovery())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	s.app.Use(cors.New(config))

	s.app.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	deviceHandler := httpHandler.NewDeviceHandler(s.deps.Devices, s.deps.Backend, s.deps.Commands)
	chatHandler := httpHandler.NewChatHandler(s.deps.Messages, s.deps.Chat, s.deps.Tracker)
	channelHandler := httpHandler.NewChannelHandler(s.deps.Channels)

	mgr := ws.NewManager()
	wsHandler := handlers.NewWSHandler(mgr, s.deps.Logger)
	wsHandler.Run(s.deps.Devices, s.deps.Messages)

	api := s.app.Group("/api/v1")
	{
		devices := api.Group("/devices")
		{
			devices.GET("", deviceHandler.List)
			devices.POST("", deviceHandler.Create)
			devices.GET("/:id", deviceHandler.Get)
			devices.PUT("/:id", deviceHandler.Update)
			devices.DELETE("/:id", deviceHandler.Delete)
			devices.GET("/:id/stats", deviceHandler.Stats)
			devices.GET("/:id/test", deviceHandler.Test)
			devices.POST("/:id/sync", deviceHandler.Sync)
			devices.POST("/:id/commands", deviceHandler.Command)
		}

		api.GET("/alerts", deviceHandler.Alerts)

		conversations := api.Group("/conversations")
		{
			conversations.POST("/:id/open", chatHandler.Open)
			conversations.GET("/:id/messages", chatHandler.Messages)
			conversations.POST("/:id/messages", chatHandler.Send)
			conversations.GET("/:id/typing", chatHandler.Typers)
			conversations.POST("/:id/typing", chatHandler.Typing)
			conversations.POST("/:id/read", chatHandler.MarkRead)
			conversations.POST("/:id/close", chatHandler.Close)
		}

		channels := api.Group("/channels")
		{
			channels.GET("", channelHandler.States)
			channels.POST("/:name/connect", channelHandler.Connect)
			channels.POST("/:name/disconnect", channelHandler.Disconnect)
		}
	}

	s.app.GET("/ws", wsHandler.HandleConsoleWS)

	return s.app.Run(addr)
}
