package handlers

import (
	"github.com/cargoflow/cargoflow-backend/internal/models"
	"github.com/cargoflow/cargoflow-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// ReportVehicleLocation handles device position reports sent over plain
// HTTP. The sample is cached and, when the hub runs on the device source,
// relayed to every live connection.
func ReportVehicleLocation(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.GetUint("userId")
		role := models.UserRole(c.GetString("role"))

		if role != models.RoleDriver {
			c.JSON(403, gin.H{"error": "Only drivers can report positions"})
			return
		}

		var input struct {
			Lat float64 `json:"lat" binding:"required"`
			Lng float64 `json:"lng" binding:"required"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if input.Lat < -90 || input.Lat > 90 {
			c.JSON(400, gin.H{"error": "Invalid latitude"})
			return
		}
		if input.Lng < -180 || input.Lng > 180 {
			c.JSON(400, gin.H{"error": "Invalid longitude"})
			return
		}

		hub.RelayPosition(driverID, input.Lat, input.Lng)

		c.JSON(200, gin.H{"message": "Position recorded"})
	}
}
