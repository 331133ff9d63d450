package models

import (
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusAccepted  BookingStatus = "accepted"
	BookingStatusInTransit BookingStatus = "in_transit"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusRejected  BookingStatus = "rejected"
)

// Vehicle types offered by the fleet
const (
	VehicleVan35   = "van-3.5"
	VehicleTruck75 = "truck-7.5"
	VehicleTruck18 = "truck-18"
)

// Cargo type catalog
const (
	CargoDryGoods       = "dry_goods"
	CargoFood           = "food"
	CargoMovingServices = "moving_services"
)

type Booking struct {
	ID              uint          `json:"id" gorm:"primaryKey"`
	UserID          uint          `json:"userId" gorm:"not null;index"`
	VehicleType     string        `json:"vehicleType" gorm:"not null"`
	PickupLocation  string        `json:"pickupLocation" gorm:"not null"`
	DropoffLocation string        `json:"dropoffLocation" gorm:"not null"`
	PickupCoords    string        `json:"pickupCoords" gorm:"not null"`
	DropoffCoords   string        `json:"dropoffCoords" gorm:"not null"`
	CargoType       string        `json:"cargoType" gorm:"not null"`
	CargoWeight     int           `json:"cargoWeight" gorm:"not null"`
	Status          BookingStatus `json:"status" gorm:"not null;default:'pending'"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// TableName specifies the table name
func (Booking) TableName() string {
	return "bookings"
}

// IsTerminal reports whether a status accepts no further transitions.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingStatusCompleted, BookingStatusCancelled, BookingStatusRejected:
		return true
	}
	return false
}
