package handlers

import (
	"errors"

	"github.com/cargoflow/cargoflow-backend/internal/models"
	"github.com/cargoflow/cargoflow-backend/internal/services"
	"github.com/cargoflow/cargoflow-backend/pkg/utils"
	"github.com/gin-gonic/gin"
)

type RegisterInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// currentUser rebuilds the acting user from the claims the auth middleware
// placed on the context.
func currentUser(c *gin.Context) *models.User {
	return &models.User{
		ID:       c.GetUint("userId"),
		Username: c.GetString("username"),
		Role:     models.UserRole(c.GetString("role")),
	}
}

func Register(store services.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input RegisterInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		user := models.User{
			Username: input.Username,
			Password: input.Password,
			Role:     models.RoleUnset, // Role is picked after registration
		}
		if err := user.HashPassword(); err != nil {
			c.JSON(500, gin.H{"error": "Failed to hash password"})
			return
		}

		if err := store.CreateUser(c.Request.Context(), &user); err != nil {
			c.JSON(500, gin.H{"error": "Failed to create user: " + err.Error()})
			return
		}

		token, err := utils.GenerateToken(&user)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(201, gin.H{
			"token": token,
			"user":  user,
		})
	}
}

func Login(store services.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input LoginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		user, err := store.GetUserByUsername(c.Request.Context(), input.Username)
		if err != nil {
			c.JSON(401, gin.H{"error": "Invalid username or password"})
			return
		}

		if err := user.CheckPassword(input.Password); err != nil {
			c.JSON(401, gin.H{"error": "Invalid username or password"})
			return
		}

		token, err := utils.GenerateToken(user)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(200, gin.H{
			"token": token,
			"user":  user,
		})
	}
}

// UpdateRole sets the caller's role. Re-switching an already-set role is a
// debug affordance gated by configuration.
func UpdateRole(store services.Store, allowRoleSwitching bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var input struct {
			Role string `json:"role" binding:"required,oneof=customer driver"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		user, err := store.GetUser(c.Request.Context(), userId)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				c.JSON(404, gin.H{"error": "User not found"})
				return
			}
			c.JSON(500, gin.H{"error": "Failed to fetch user"})
			return
		}

		requested := models.UserRole(input.Role)
		if user.Role != models.RoleUnset && user.Role != requested && !allowRoleSwitching {
			c.JSON(403, gin.H{"error": "Role already selected"})
			return
		}

		user.Role = requested
		if err := store.SaveUser(c.Request.Context(), user); err != nil {
			c.JSON(500, gin.H{"error": "Failed to update role"})
			return
		}

		// The role lives in the token claims, so issue a fresh one.
		token, err := utils.GenerateToken(user)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(200, gin.H{
			"token": token,
			"user":  user,
		})
	}
}
