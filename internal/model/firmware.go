package model

import "time"

// OtaDevice tracks the last version a device reported. Upserted on every
// update check.
type OtaDevice struct {
	ID             int64     `gorm:"primaryKey"`
	DeviceCode     string    `gorm:"uniqueIndex;size:100;not null"`
	CurrentVersion string    `gorm:"size:20;not null"`
	LastSeen       time.Time `gorm:"not null"`
}

// Firmware is one uploaded firmware image. The binary itself lives in
// blob storage; FilePath is relative to the configured firmware base URL.
type Firmware struct {
	ID        int64     `gorm:"primaryKey"`
	Version   string    `gorm:"uniqueIndex;size:20;not null"`
	FilePath  string    `gorm:"size:255;not null"`
	Checksum  string    `gorm:"size:128;not null"`
	Released  bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null"`
}
