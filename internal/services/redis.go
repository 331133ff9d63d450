package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/cargoflow/cargoflow-backend/internal/models"
	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

// BookingUpdatesChannel is the pub/sub channel carrying status transitions.
// A distributed deployment would subscribe here instead of relying on the
// in-process hub.
const BookingUpdatesChannel = "booking:updates"

// InitRedis initializes the Redis client
func InitRedis() error {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://redis:6379" // Default Redis address for Docker
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	RedisClient = redis.NewClient(opt)

	// Test the connection
	ctx := context.Background()
	_, err = RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return nil
}

// SetVehiclePosition caches the latest reported position for a driver
func SetVehiclePosition(ctx context.Context, driverID uint, lat, lng float64) error {
	positionData := map[string]interface{}{
		"lat":     lat,
		"lng":     lng,
		"updated": time.Now().Unix(),
	}

	data, err := json.Marshal(positionData)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("vehicle:position:%d", driverID)
	return RedisClient.Set(ctx, key, data, time.Hour).Err()
}

// GetVehiclePosition retrieves the latest cached position for a driver
func GetVehiclePosition(ctx context.Context, driverID uint) (lat, lng float64, err error) {
	key := fmt.Sprintf("vehicle:position:%d", driverID)
	data, err := RedisClient.Get(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}

	var positionData map[string]interface{}
	if err := json.Unmarshal([]byte(data), &positionData); err != nil {
		return 0, 0, err
	}

	lat, _ = positionData["lat"].(float64)
	lng, _ = positionData["lng"].(float64)

	return lat, lng, nil
}

// PublishBookingUpdate publishes a status transition to Redis pub/sub
func PublishBookingUpdate(ctx context.Context, booking *models.Booking) error {
	updateData := map[string]interface{}{
		"bookingId": booking.ID,
		"newStatus": booking.Status,
		"timestamp": booking.UpdatedAt.Unix(),
	}

	data, err := json.Marshal(updateData)
	if err != nil {
		return err
	}

	return RedisClient.Publish(ctx, BookingUpdatesChannel, data).Err()
}

// SetDeliveryPhoto stores the proof-of-delivery photo URL for a booking
func SetDeliveryPhoto(ctx context.Context, bookingID uint, url string) error {
	key := fmt.Sprintf("booking:delivery_photo:%d", bookingID)
	return RedisClient.Set(ctx, key, url, 0).Err()
}

// GetDeliveryPhoto retrieves the proof-of-delivery photo URL for a booking
func GetDeliveryPhoto(ctx context.Context, bookingID uint) (string, error) {
	key := fmt.Sprintf("booking:delivery_photo:%d", bookingID)
	return RedisClient.Get(ctx, key).Result()
}
