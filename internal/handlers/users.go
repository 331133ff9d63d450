package handlers

import (
	"errors"

	"github.com/cargoflow/cargoflow-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// GetProfile retrieves the user's profile
func GetProfile(store services.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		user, err := store.GetUser(c.Request.Context(), userId)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				c.JSON(404, gin.H{"error": "User not found"})
				return
			}
			c.JSON(500, gin.H{"error": "Failed to fetch user"})
			return
		}

		c.JSON(200, user)
	}
}
