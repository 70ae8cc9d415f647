package model

import "time"

// Device roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Device is a registered IoT unit. UserCount is a denormalized member
// count maintained by the access-control store.
type Device struct {
	ID         int64     `gorm:"primaryKey"`
	DeviceCode string    `gorm:"uniqueIndex;size:100;not null"`
	Name       string    `gorm:"size:255;not null"`
	UserCount  int       `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"not null"`
}

// UserDevice links a user to a device with a role. A device has exactly
// one admin row at any time.
type UserDevice struct {
	ID        int64     `gorm:"primaryKey"`
	UserID    int64     `gorm:"uniqueIndex:idx_user_device;not null"`
	DeviceID  int64     `gorm:"uniqueIndex:idx_user_device;index;not null"`
	Role      string    `gorm:"size:50;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// AccessRequest is an open request by a user for membership on a device.
// The composite unique index closes the duplicate-request race.
type AccessRequest struct {
	ID                int64     `gorm:"primaryKey"`
	DeviceID          int64     `gorm:"uniqueIndex:idx_device_requester;not null"`
	RequestedByUserID int64     `gorm:"uniqueIndex:idx_device_requester;not null"`
	CreatedAt         time.Time `gorm:"not null"`
}
