package main

import (
	"log"
	"time"

	"github.com/cargoflow/cargoflow-backend/internal/config"
	"github.com/cargoflow/cargoflow-backend/internal/database"
	"github.com/cargoflow/cargoflow-backend/internal/handlers"
	"github.com/cargoflow/cargoflow-backend/internal/middleware"
	"github.com/cargoflow/cargoflow-backend/internal/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg := config.Load()

	db, err := database.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Get underlying SQL DB instance
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}

	// Configure connection pool
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Initialize Redis
	if err := services.InitRedis(); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}

	// Initialize Storage (S3 or local fallback)
	if err := services.InitStorage(); err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	store := services.NewGormStore(db)

	// Initialize WebSocket hub
	hub := services.NewHub(services.ParsePositionSource(cfg.PositionSource), store)
	go hub.Run()

	transitions := services.NewTransitionService(store, hub)

	// Initialize router
	r := gin.Default()

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(corsConfig))

	// Serve locally stored delivery photos
	r.Static("/uploads", "./uploads")

	// Routes
	api := r.Group("/api")
	{
		// Public routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register(store))
			auth.POST("/login", handlers.Login(store))
		}

		// WebSocket connection
		api.GET("/ws", middleware.AuthMiddleware(), handlers.WebSocketHandler(hub))

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.GET("/users/profile", handlers.GetProfile(store))
			protected.PATCH("/user/role", handlers.UpdateRole(store, cfg.AllowRoleSwitching))

			bookings := protected.Group("/bookings")
			{
				bookings.POST("", handlers.CreateBooking(store))
				bookings.GET("", handlers.GetBookings(store))
				bookings.GET("/:id", handlers.GetBooking(store))
				bookings.PATCH("/:id/status", handlers.UpdateBookingStatus(transitions))
				bookings.POST("/:id/delivery-photo", handlers.UploadDeliveryPhoto(store))
			}

			driver := protected.Group("/driver")
			{
				driver.POST("/location", handlers.ReportVehicleLocation(hub))
			}
		}
	}

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
