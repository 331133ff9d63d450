package handlers

import (
	"errors"
	"log"
	"strconv"

	"github.com/cargoflow/cargoflow-backend/internal/models"
	"github.com/cargoflow/cargoflow-backend/internal/services"
	"github.com/cargoflow/cargoflow-backend/pkg/utils"
	"github.com/gin-gonic/gin"
)

// CreateBooking handles the creation of a new booking
func CreateBooking(store services.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var input struct {
			VehicleType     string `json:"vehicleType" binding:"required,oneof=van-3.5 truck-7.5 truck-18"`
			PickupLocation  string `json:"pickupLocation" binding:"required"`
			DropoffLocation string `json:"dropoffLocation" binding:"required"`
			PickupCoords    string `json:"pickupCoords" binding:"required"`
			DropoffCoords   string `json:"dropoffCoords" binding:"required"`
			CargoType       string `json:"cargoType" binding:"required,oneof=dry_goods food moving_services"`
			CargoWeight     int    `json:"cargoWeight" binding:"required,min=1"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if _, err := utils.ParseCoords(input.PickupCoords); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		if _, err := utils.ParseCoords(input.DropoffCoords); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		booking := models.Booking{
			UserID:          userId,
			VehicleType:     input.VehicleType,
			PickupLocation:  input.PickupLocation,
			DropoffLocation: input.DropoffLocation,
			PickupCoords:    input.PickupCoords,
			DropoffCoords:   input.DropoffCoords,
			CargoType:       input.CargoType,
			CargoWeight:     input.CargoWeight,
			Status:          models.BookingStatusPending,
		}

		if err := store.CreateBooking(c.Request.Context(), &booking); err != nil {
			c.JSON(500, gin.H{"error": "Failed to create booking"})
			return
		}

		c.JSON(201, booking)
	}
}

// GetBookings retrieves all bookings visible to the caller, newest first.
// Customers see their own bookings; drivers see every booking.
func GetBookings(store services.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := currentUser(c)

		bookings, err := store.ListBookings(c.Request.Context(), actor)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch bookings"})
			return
		}
		if bookings == nil {
			bookings = []models.Booking{}
		}

		c.JSON(200, bookings)
	}
}

// GetBooking retrieves detailed booking information including the trip
// distance and estimated drive time.
func GetBooking(store services.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := currentUser(c)

		bookingId, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid booking ID"})
			return
		}

		booking, err := store.GetBooking(c.Request.Context(), uint(bookingId))
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				c.JSON(404, gin.H{"error": "Booking not found"})
				return
			}
			c.JSON(500, gin.H{"error": "Failed to fetch booking"})
			return
		}

		// Not-owned and not-found look the same to a customer.
		if actor.Role != models.RoleDriver && booking.UserID != actor.ID {
			c.JSON(404, gin.H{"error": "Booking not found"})
			return
		}

		response := gin.H{"booking": booking}

		pickup, perr := utils.ParseCoords(booking.PickupCoords)
		dropoff, derr := utils.ParseCoords(booking.DropoffCoords)
		if perr == nil && derr == nil {
			distance := utils.HaversineDistance(pickup.Lat, pickup.Lng, dropoff.Lat, dropoff.Lng)
			response["distanceKm"] = distance
			response["etaMinutes"] = utils.CalculateETA(distance, 50)
		}

		if services.RedisClient != nil {
			if url, err := services.GetDeliveryPhoto(c.Request.Context(), booking.ID); err == nil && url != "" {
				response["deliveryPhotoUrl"] = url
			}
		}

		c.JSON(200, response)
	}
}

// UpdateBookingStatus moves a booking along its lifecycle via the
// transition service.
func UpdateBookingStatus(transitions *services.TransitionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := currentUser(c)

		bookingId, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid booking ID"})
			return
		}

		var input struct {
			Status string `json:"status" binding:"required,oneof=pending accepted in_transit completed cancelled rejected"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		booking, err := transitions.ApplyTransition(
			c.Request.Context(), uint(bookingId), actor, models.BookingStatus(input.Status))
		if err != nil {
			var invalid *models.InvalidTransitionError
			var terminal *models.TerminalStateError
			switch {
			case errors.Is(err, services.ErrNotFound):
				c.JSON(404, gin.H{"error": "Booking not found"})
			case errors.As(err, &invalid), errors.As(err, &terminal):
				c.JSON(400, gin.H{"error": err.Error()})
			default:
				log.Printf("Failed to update status of booking %d: %v", bookingId, err)
				c.JSON(500, gin.H{"error": "Failed to update booking status"})
			}
			return
		}

		c.JSON(200, booking)
	}
}

// UploadDeliveryPhoto stores a driver's proof-of-delivery image for a
// completed booking.
func UploadDeliveryPhoto(store services.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := currentUser(c)

		if actor.Role != models.RoleDriver {
			c.JSON(403, gin.H{"error": "Only drivers can upload delivery photos"})
			return
		}

		bookingId, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid booking ID"})
			return
		}

		booking, err := store.GetBooking(c.Request.Context(), uint(bookingId))
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				c.JSON(404, gin.H{"error": "Booking not found"})
				return
			}
			c.JSON(500, gin.H{"error": "Failed to fetch booking"})
			return
		}

		if booking.Status != models.BookingStatusCompleted {
			c.JSON(400, gin.H{"error": "Delivery photo requires a completed booking"})
			return
		}

		file, err := c.FormFile("photo")
		if err != nil {
			c.JSON(400, gin.H{"error": "Photo file is required"})
			return
		}

		url, err := services.UploadDeliveryPhoto(file, booking.ID)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to store photo"})
			return
		}

		if services.RedisClient != nil {
			if err := services.SetDeliveryPhoto(c.Request.Context(), booking.ID, url); err != nil {
				log.Printf("Failed to cache delivery photo for booking %d: %v", booking.ID, err)
			}
		}

		c.JSON(200, gin.H{"url": url})
	}
}
