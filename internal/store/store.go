package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"solar-monitor-backend/internal/model"
	"solar-monitor-backend/internal/otp"
)

// Store defines the interface for all database operations.
type Store interface {
	// Signup / OTP flow
	StartSignup(ctx context.Context, phone, password, name string) (int64, error)
	VerifySignupOtp(ctx context.Context, pendingUserID int64, code string) (int64, error)
	ResendSignupOtp(ctx context.Context, pendingUserID int64) error
	Login(ctx context.Context, phone, password string) (*model.User, error)
	StartForgotPassword(ctx context.Context, phone string) (int64, error)
	VerifyForgotOtp(ctx context.Context, userID int64, code, newPassword string) error
	ResendForgotOtp(ctx context.Context, userID int64) error

	// Device access control
	RegisterOrRequestAccess(ctx context.Context, userID int64, deviceCode string) (AddDeviceResult, error)
	DevicesForUser(ctx context.Context, userID int64) ([]DeviceSummary, error)
	RenameDevice(ctx context.Context, deviceID int64, newName string) error
	DeviceMembers(ctx context.Context, deviceID int64) ([]Member, error)
	PendingRequestsForAdmin(ctx context.Context, adminUserID int64) ([]PendingRequest, error)
	ApproveAccess(ctx context.Context, requestID, adminUserID int64) error
	RejectAccess(ctx context.Context, requestID, adminUserID int64) error
	RemoveAccess(ctx context.Context, deviceID, targetUserID, adminUserID int64) error
	ChangeAdmin(ctx context.Context, deviceID, currentAdminUserID, newAdminUserID int64) error
	DeleteDevice(ctx context.Context, deviceID, userID int64) (DeleteDeviceResult, error)

	// Telemetry
	InsertSample(ctx context.Context, sample *model.SolarSample) error
	InsertWashRecord(ctx context.Context, rec *model.WashRecord) error
	SamplesForRange(ctx context.Context, deviceCode string, from, to time.Time) ([]model.SolarSample, error)
	LatestSample(ctx context.Context, deviceCode string) (*model.SolarSample, error)
	WashRecords(ctx context.Context, deviceCode string) ([]model.WashRecord, error)
	Location(ctx context.Context, deviceCode string) (*model.DeviceLocation, error)
	UpsertLocation(ctx context.Context, loc *model.DeviceLocation) error

	// OTA
	CheckForUpdate(ctx context.Context, deviceCode, reportedVersion string) (*model.Firmware, error)
	ReportOtaStatus(ctx context.Context, deviceCode, version string) error

	// Misc
	ActivePopup(ctx context.Context) (*model.Popup, error)
	SaveSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeleteSubscription(ctx context.Context, endpoint string) error
	AdminSubscriptions(ctx context.Context, deviceID int64) ([]model.PushSubscription, error)
	AccessRequestDetail(ctx context.Context, requestID int64) (*PendingRequest, error)

	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db        *gorm.DB
	sender    otp.Sender
	otpExpiry time.Duration
}

// NewGormStore creates a new GORM-backed store. The sender delivers OTP
// codes; otpExpiry bounds their validity.
func NewGormStore(db *gorm.DB, sender otp.Sender, otpExpiry time.Duration) Store {
	return &gormStore{db: db, sender: sender, otpExpiry: otpExpiry}
}

// DB exposes the underlying handle for handlers that only read.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}
