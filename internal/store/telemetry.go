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

// InsertSample appends a telemetry sample. The ingest path is the only
// writer.
func (s *gormStore) InsertSample(ctx context.Context, sample *model.SolarSample) error {
	if err := s.db.WithContext(ctx).Create(sample).Error; err != nil {
		return fmt.Errorf("failed to insert sample for %s: %w", sample.DeviceCode, err)
	}
	return nil
}

// InsertWashRecord appends a wash reading.
func (s *gormStore) InsertWashRecord(ctx context.Context, rec *model.WashRecord) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to insert wash record for %s: %w", rec.DeviceCode, err)
	}
	return nil
}

// SamplesForRange returns samples in [from, to) ordered by time.
func (s *gormStore) SamplesForRange(ctx context.Context, deviceCode string, from, to time.Time) ([]model.SolarSample, error) {
	var samples []model.SolarSample
	err := s.db.WithContext(ctx).
		Where("device_code = ? AND timestamp >= ? AND timestamp < ?", deviceCode, from, to).
		Order("timestamp ASC").
		Find(&samples).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch samples for %s: %w", deviceCode, err)
	}
	return samples, nil
}

// LatestSample returns the most recent sample for a device, or nil when
// none have been recorded.
func (s *gormStore) LatestSample(ctx context.Context, deviceCode string) (*model.SolarSample, error) {
	var sample model.SolarSample
	err := s.db.WithContext(ctx).
		Where("device_code = ?", deviceCode).
		Order("timestamp DESC").
		First(&sample).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest sample for %s: %w", deviceCode, err)
	}
	return &sample, nil
}

// WashRecords returns all wash readings for a device, newest first. The
// pairing heuristic depends on this ordering.
func (s *gormStore) WashRecords(ctx context.Context, deviceCode string) ([]model.WashRecord, error) {
	var records []model.WashRecord
	err := s.db.WithContext(ctx).
		Where("device_code = ?", deviceCode).
		Order("timestamp DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch wash records for %s: %w", deviceCode, err)
	}
	return records, nil
}

// Location returns the stored location for a device, or nil when absent.
func (s *gormStore) Location(ctx context.Context, deviceCode string) (*model.DeviceLocation, error) {
	var loc model.DeviceLocation
	err := s.db.WithContext(ctx).Where("device_code = ?", deviceCode).First(&loc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch location for %s: %w", deviceCode, err)
	}
	return &loc, nil
}

// UpsertLocation creates or replaces a device's location record.
func (s *gormStore) UpsertLocation(ctx context.Context, loc *model.DeviceLocation) error {
	loc.UpdatedAt = time.Now()
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "device_code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"lat", "lon", "city", "state", "country", "zip",
			"price_per_unit", "capacity_watts", "updated_at",
		}),
	}).Create(loc).Error
	if err != nil {
		return fmt.Errorf("failed to upsert location for %s: %w", loc.DeviceCode, err)
	}
	return nil
}
