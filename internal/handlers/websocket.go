package handlers

import (
	"github.com/cargoflow/cargoflow-backend/internal/models"
	"github.com/cargoflow/cargoflow-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// WebSocketHandler handles WebSocket connections
func WebSocketHandler(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		role := models.UserRole(c.GetString("role"))

		services.HandleWebSocket(hub, c.Writer, c.Request, userID, role)
	}
}
