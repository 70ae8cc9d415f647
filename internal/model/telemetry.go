package model

import "time"

// SolarSample is one telemetry reading from a device. Append-only,
// written by the ingest path only. Energy is in Wh and is supplied by
// the ingest caller, not derived here.
type SolarSample struct {
	ID         int64     `gorm:"primaryKey"`
	DeviceCode string    `gorm:"index:idx_sample_device_time;size:100;not null"`
	Voltage    float64   `gorm:"not null"`
	Current    float64   `gorm:"not null"`
	Power      float64   `gorm:"not null"`
	Energy     float64   `gorm:"not null;default:0"`
	Lat        *float64
	Lon        *float64
	Timestamp  time.Time `gorm:"index:idx_sample_device_time;not null"`
}

// Wash record types.
const (
	WashBefore = "BEFORE"
	WashAfter  = "AFTER"
)

// WashRecord is a power reading taken immediately before or after a
// panel cleaning. Append-only.
type WashRecord struct {
	ID         int64     `gorm:"primaryKey"`
	DeviceCode string    `gorm:"index;size:100;not null"`
	WashType   string    `gorm:"size:10;not null"`
	Voltage    float64   `gorm:"not null"`
	Current    float64   `gorm:"not null"`
	Power      float64   `gorm:"not null"`
	Timestamp  time.Time `gorm:"index;not null"`
}

// DeviceLocation is the last known location and tariff data for a
// device, upserted by location pings.
type DeviceLocation struct {
	DeviceCode    string    `gorm:"primaryKey;size:100"`
	Lat           float64
	Lon           float64
	City          string    `gorm:"size:128"`
	State         string    `gorm:"size:128"`
	Country       string    `gorm:"size:128"`
	Zip           string    `gorm:"size:32"`
	PricePerUnit  float64
	CapacityWatts float64
	UpdatedAt     time.Time `gorm:"not null"`
}
