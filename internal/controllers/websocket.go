package controllers

import (
	"net/http"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"crm-system/pkg/utils"
	appwebsocket "crm-system/pkg/websocket"
)

type WebSocketController struct {
	hub      *appwebsocket.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketController accepts upgrades from allowedOrigins; an empty list allows any origin.
func NewWebSocketController(hub *appwebsocket.Hub, allowedOrigins []string, logger *zap.Logger) *WebSocketController {
	return &WebSocketController{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, origin)
			},
		},
		logger: logger,
	}
}

// ServeWs runs behind AuthQueryToken, so the actor is already resolved.
func (c *WebSocketController) ServeWs(ctx echo.Context) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	conn, err := c.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		c.logger.Warn("websocket upgrade failed", zap.String("userID", actor.ID), zap.Error(err))
		return nil
	}

	client := appwebsocket.NewClient(c.hub, conn, actor.ID, actor.Role)
	c.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	c.logger.Info("websocket client connected", zap.String("userID", actor.ID))
	return nil
}
