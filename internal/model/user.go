package model

import "time"

// User is a fully verified account.
type User struct {
	ID           int64     `gorm:"primaryKey"`
	Phone        string    `gorm:"uniqueIndex;size:20;not null"`
	PasswordHash string    `gorm:"size:255;not null"`
	Name         string    `gorm:"size:255"`
	IsActive     bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time `gorm:"not null"`
}

// PendingUser is a staged signup waiting for OTP verification.
// At most one row exists per phone.
type PendingUser struct {
	ID           int64     `gorm:"primaryKey"`
	Phone        string    `gorm:"uniqueIndex;size:20;not null"`
	PasswordHash string    `gorm:"size:255;not null"`
	Name         string    `gorm:"size:255"`
	CreatedAt    time.Time `gorm:"not null"`
}

// Otp purposes.
const (
	OtpPurposeSignup = "signup"
	OtpPurposeForgot = "forgot"
)

// Otp is a one-time code issued for a phone. Rows are never invalidated
// in place; only the most recently created row per phone+purpose is
// consulted during verification.
type Otp struct {
	ID        int64     `gorm:"primaryKey"`
	Phone     string    `gorm:"index;size:20;not null"`
	Code      string    `gorm:"size:10;not null"`
	Purpose   string    `gorm:"size:20;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}
