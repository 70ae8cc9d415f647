package model

// Popup is an admin-managed broadcast banner. Read-only through the API.
type Popup struct {
	ID         int64  `gorm:"primaryKey"`
	Message    string `gorm:"type:text;not null"`
	ButtonName string `gorm:"size:128"`
	ButtonURL  string `gorm:"size:255"`
	IsActive   bool   `gorm:"not null;default:false"`
}
