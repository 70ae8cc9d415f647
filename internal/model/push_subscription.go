package model

import "time"

// PushSubscription holds a user's browser push registration, used to
// alert device admins about new access requests.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	UserID    int64     `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"not null"`
}
