package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"solar-monitor-backend/internal/model"
)

// CheckForUpdate records the version a device reported and returns the
// newest released firmware, or nil when the device is already current
// (or nothing has been released).
func (s *gormStore) CheckForUpdate(ctx context.Context, deviceCode, reportedVersion string) (*model.Firmware, error) {
	// Every check doubles as a heartbeat.
	device := model.OtaDevice{
		DeviceCode:     deviceCode,
		CurrentVersion: reportedVersion,
		LastSeen:       time.Now(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"current_version", "last_seen"}),
	}).Create(&device).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert ota device %s: %w", deviceCode, err)
	}

	var fw model.Firmware
	err = s.db.WithContext(ctx).
		Where("released = ?", true).
		Order("created_at DESC").
		First(&fw).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch released firmware: %w", err)
	}
	if fw.Version == reportedVersion {
		return nil, nil
	}
	return &fw, nil
}

// ReportOtaStatus unconditionally records the version a device confirmed
// after flashing.
func (s *gormStore) ReportOtaStatus(ctx context.Context, deviceCode, version string) error {
	err := s.db.WithContext(ctx).Model(&model.OtaDevice{}).
		Where("device_code = ?", deviceCode).
		Updates(map[string]any{"current_version": version, "last_seen": time.Now()}).Error
	if err != nil {
		return fmt.Errorf("failed to record ota status for %s: %w", deviceCode, err)
	}
	return nil
}
