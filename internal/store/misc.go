package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"solar-monitor-backend/internal/model"
)

// ActivePopup returns the newest active broadcast banner, or nil.
func (s *gormStore) ActivePopup(ctx context.Context) (*model.Popup, error) {
	var popup model.Popup
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id DESC").
		First(&popup).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch popup: %w", err)
	}
	return &popup, nil
}

// SaveSubscription creates or refreshes a browser push registration.
func (s *gormStore) SaveSubscription(ctx context.Context, sub *model.PushSubscription) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "user_id"}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

// DeleteSubscription drops a push registration by endpoint.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

// AdminSubscriptions returns the push registrations of a device's admin.
func (s *gormStore) AdminSubscriptions(ctx context.Context, deviceID int64) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN user_devices ud ON ud.user_id = push_subscriptions.user_id").
		Where("ud.device_id = ? AND ud.role = ?", deviceID, model.RoleAdmin).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch admin subscriptions for device %d: %w", deviceID, err)
	}
	return subs, nil
}
