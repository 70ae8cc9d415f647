package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"solar-monitor-backend/internal/model"
)

// NormalizeDeviceCode canonicalizes a user-supplied device code.
func NormalizeDeviceCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func defaultDeviceName(code string) string {
	suffix := code
	if len(code) > 4 {
		suffix = code[len(code)-4:]
	}
	return "Device " + suffix
}

// RegisterOrRequestAccess links the caller to the device named by code.
// An unknown code creates the device with the caller as admin; a known
// code files an access request for its admin to approve. The unique
// index on device_code makes concurrent creation safe: the loser of the
// race falls through to the request branch.
func (s *gormStore) RegisterOrRequestAccess(ctx context.Context, userID int64, deviceCode string) (AddDeviceResult, error) {
	code := NormalizeDeviceCode(deviceCode)
	var result AddDeviceResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var device model.Device
		err := tx.Where("device_code = ?", code).First(&device).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			created, createErr := createDeviceWithAdmin(tx, userID, code)
			if createErr == nil {
				result = AddDeviceResult{DeviceID: created.ID, Created: true}
				return nil
			}
			if !errors.Is(createErr, gorm.ErrDuplicatedKey) {
				return createErr
			}
			// Lost the creation race; treat the code as existing.
			if err := tx.Where("device_code = ?", code).First(&device).Error; err != nil {
				return fmt.Errorf("failed to reload device after create conflict: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("failed to look up device: %w", err)
		}

		var link model.UserDevice
		err = tx.Where("user_id = ? AND device_id = ?", userID, device.ID).First(&link).Error
		if err == nil {
			return ErrAlreadyLinked
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check existing link: %w", err)
		}

		request := model.AccessRequest{
			DeviceID:          device.ID,
			RequestedByUserID: userID,
			CreatedAt:         time.Now(),
		}
		if err := tx.Create(&request).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateRequest
			}
			return fmt.Errorf("failed to create access request: %w", err)
		}
		result = AddDeviceResult{DeviceID: device.ID, RequestID: request.ID}
		return nil
	})
	return result, err
}

func createDeviceWithAdmin(tx *gorm.DB, userID int64, code string) (*model.Device, error) {
	device := model.Device{
		DeviceCode: code,
		Name:       defaultDeviceName(code),
		UserCount:  1,
		CreatedAt:  time.Now(),
	}
	if err := tx.Create(&device).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, gorm.ErrDuplicatedKey
		}
		return nil, fmt.Errorf("failed to create device: %w", err)
	}
	link := model.UserDevice{
		UserID:    userID,
		DeviceID:  device.ID,
		Role:      model.RoleAdmin,
		CreatedAt: time.Now(),
	}
	if err := tx.Create(&link).Error; err != nil {
		return nil, fmt.Errorf("failed to link device admin: %w", err)
	}
	return &device, nil
}

// DevicesForUser lists all devices the user is linked to.
func (s *gormStore) DevicesForUser(ctx context.Context, userID int64) ([]DeviceSummary, error) {
	var devices []DeviceSummary
	err := s.db.WithContext(ctx).
		Table("devices d").
		Select("d.id AS device_id, d.name, d.device_code, ud.role").
		Joins("JOIN user_devices ud ON d.id = ud.device_id").
		Where("ud.user_id = ?", userID).
		Scan(&devices).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch devices for user %d: %w", userID, err)
	}
	return devices, nil
}

// RenameDevice sets a device's display name.
func (s *gormStore) RenameDevice(ctx context.Context, deviceID int64, newName string) error {
	res := s.db.WithContext(ctx).Model(&model.Device{}).
		Where("id = ?", deviceID).
		Update("name", newName)
	if res.Error != nil {
		return fmt.Errorf("failed to rename device %d: %w", deviceID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// DeviceMembers lists all users linked to a device, admin first.
func (s *gormStore) DeviceMembers(ctx context.Context, deviceID int64) ([]Member, error) {
	var members []Member
	err := s.db.WithContext(ctx).
		Table("users u").
		Select("u.id AS user_id, u.name, u.phone, ud.role").
		Joins("JOIN user_devices ud ON u.id = ud.user_id").
		Where("ud.device_id = ?", deviceID).
		Order("CASE WHEN ud.role = 'admin' THEN 0 ELSE 1 END, u.id ASC").
		Scan(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch members for device %d: %w", deviceID, err)
	}
	return members, nil
}

// PendingRequestsForAdmin lists open requests on devices the caller
// administers, newest first. Requests whose requester has since gained
// access by another path are filtered out.
func (s *gormStore) PendingRequestsForAdmin(ctx context.Context, adminUserID int64) ([]PendingRequest, error) {
	var requests []PendingRequest
	err := s.db.WithContext(ctx).
		Table("access_requests r").
		Select("r.id AS request_id, r.device_id, d.name AS device_name, "+
			"r.requested_by_user_id AS user_id, u.name, u.phone").
		Joins("JOIN user_devices ud ON ud.device_id = r.device_id AND ud.role = 'admin' AND ud.user_id = ?", adminUserID).
		Joins("JOIN devices d ON d.id = r.device_id").
		Joins("JOIN users u ON u.id = r.requested_by_user_id").
		Where("NOT EXISTS (SELECT 1 FROM user_devices ud2 WHERE ud2.device_id = r.device_id AND ud2.user_id = r.requested_by_user_id)").
		Order("r.id DESC").
		Scan(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending requests for admin %d: %w", adminUserID, err)
	}
	return requests, nil
}

// AccessRequestDetail loads a single request with device and requester
// context, for notification payloads.
func (s *gormStore) AccessRequestDetail(ctx context.Context, requestID int64) (*PendingRequest, error) {
	var req PendingRequest
	err := s.db.WithContext(ctx).
		Table("access_requests r").
		Select("r.id AS request_id, r.device_id, d.name AS device_name, "+
			"r.requested_by_user_id AS user_id, u.name, u.phone").
		Joins("JOIN devices d ON d.id = r.device_id").
		Joins("JOIN users u ON u.id = r.requested_by_user_id").
		Where("r.id = ?", requestID).
		Scan(&req).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load access request %d: %w", requestID, err)
	}
	if req.RequestID == 0 {
		return nil, ErrRequestNotFound
	}
	return &req, nil
}

// ApproveAccess grants the requester member access and deletes the
// request. A retry after success sees ErrRequestNotFound.
func (s *gormStore) ApproveAccess(ctx context.Context, requestID, adminUserID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var request model.AccessRequest
		if err := tx.First(&request, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return fmt.Errorf("failed to load request: %w", err)
		}

		if !isAdmin(tx, adminUserID, request.DeviceID) {
			return ErrNotAuthorized
		}

		var link model.UserDevice
		err := tx.Where("user_id = ? AND device_id = ?", request.RequestedByUserID, request.DeviceID).
			First(&link).Error
		if err == nil {
			// Stale request: the user got access by another path.
			if err := tx.Delete(&model.AccessRequest{}, requestID).Error; err != nil {
				return fmt.Errorf("failed to delete stale request: %w", err)
			}
			return ErrAlreadyLinked
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check existing link: %w", err)
		}

		newLink := model.UserDevice{
			UserID:    request.RequestedByUserID,
			DeviceID:  request.DeviceID,
			Role:      model.RoleMember,
			CreatedAt: time.Now(),
		}
		if err := tx.Create(&newLink).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyLinked
			}
			return fmt.Errorf("failed to create member link: %w", err)
		}
		if err := tx.Model(&model.Device{}).Where("id = ?", request.DeviceID).
			Update("user_count", gorm.Expr("user_count + 1")).Error; err != nil {
			return fmt.Errorf("failed to bump member count: %w", err)
		}
		if err := tx.Delete(&model.AccessRequest{}, requestID).Error; err != nil {
			return fmt.Errorf("failed to delete approved request: %w", err)
		}
		return nil
	})
}

// RejectAccess deletes a pending request after an admin check.
func (s *gormStore) RejectAccess(ctx context.Context, requestID, adminUserID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var request model.AccessRequest
		if err := tx.First(&request, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return fmt.Errorf("failed to load request: %w", err)
		}
		if !isAdmin(tx, adminUserID, request.DeviceID) {
			return ErrNotAuthorized
		}
		if err := tx.Delete(&model.AccessRequest{}, requestID).Error; err != nil {
			return fmt.Errorf("failed to delete request: %w", err)
		}
		return nil
	})
}

// RemoveAccess deletes a member link on behalf of the device admin. The
// admin's own link is never removable this way; transfer admin first.
func (s *gormStore) RemoveAccess(ctx context.Context, deviceID, targetUserID, adminUserID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !isAdmin(tx, adminUserID, deviceID) {
			return ErrNotAuthorized
		}
		res := tx.Where("device_id = ? AND user_id = ? AND role <> ?", deviceID, targetUserID, model.RoleAdmin).
			Delete(&model.UserDevice{})
		if res.Error != nil {
			return fmt.Errorf("failed to remove access: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrCannotRemoveAdmin
		}
		if err := tx.Model(&model.Device{}).Where("id = ?", deviceID).
			Update("user_count", gorm.Expr("user_count - 1")).Error; err != nil {
			return fmt.Errorf("failed to drop member count: %w", err)
		}
		return nil
	})
}

// ChangeAdmin transfers the admin role. Demote-then-promote inside one
// transaction keeps the single-admin invariant; a promote that touches
// no row rolls the demotion back.
func (s *gormStore) ChangeAdmin(ctx context.Context, deviceID, currentAdminUserID, newAdminUserID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !isAdmin(tx, currentAdminUserID, deviceID) {
			return ErrNotAuthorized
		}
		if err := tx.Model(&model.UserDevice{}).Where("device_id = ?", deviceID).
			Update("role", model.RoleMember).Error; err != nil {
			return fmt.Errorf("failed to demote roles: %w", err)
		}
		res := tx.Model(&model.UserDevice{}).
			Where("device_id = ? AND user_id = ?", deviceID, newAdminUserID).
			Update("role", model.RoleAdmin)
		if res.Error != nil {
			return fmt.Errorf("failed to promote new admin: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrTargetNotLinked
		}
		return nil
	})
}

// DeleteDevice removes a device or the caller's link to it. An admin
// wipes the device outright, remaining members included; a member only
// self-removes, and the device is reaped once no links remain.
func (s *gormStore) DeleteDevice(ctx context.Context, deviceID, userID int64) (DeleteDeviceResult, error) {
	var result DeleteDeviceResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var device model.Device
		if err := tx.First(&device, deviceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDeviceNotFound
			}
			return fmt.Errorf("failed to load device: %w", err)
		}

		var link model.UserDevice
		err := tx.Where("user_id = ? AND device_id = ?", userID, deviceID).First(&link).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotLinked
			}
			return fmt.Errorf("failed to load link: %w", err)
		}

		if link.Role == model.RoleAdmin {
			if err := wipeDevice(tx, deviceID); err != nil {
				return err
			}
			result = DeleteDeviceResult{DeviceDeleted: true, ByAdmin: true}
			return nil
		}

		if err := tx.Delete(&model.UserDevice{}, link.ID).Error; err != nil {
			return fmt.Errorf("failed to remove link: %w", err)
		}
		if err := tx.Model(&model.Device{}).Where("id = ?", deviceID).
			Update("user_count", gorm.Expr("user_count - 1")).Error; err != nil {
			return fmt.Errorf("failed to drop member count: %w", err)
		}

		var remaining int64
		if err := tx.Model(&model.UserDevice{}).Where("device_id = ?", deviceID).
			Count(&remaining).Error; err != nil {
			return fmt.Errorf("failed to count remaining links: %w", err)
		}
		if remaining == 0 {
			if err := wipeDevice(tx, deviceID); err != nil {
				return err
			}
			result = DeleteDeviceResult{DeviceDeleted: true}
		}
		return nil
	})
	return result, err
}

func wipeDevice(tx *gorm.DB, deviceID int64) error {
	if err := tx.Where("device_id = ?", deviceID).Delete(&model.UserDevice{}).Error; err != nil {
		return fmt.Errorf("failed to delete device links: %w", err)
	}
	if err := tx.Where("device_id = ?", deviceID).Delete(&model.AccessRequest{}).Error; err != nil {
		return fmt.Errorf("failed to delete device requests: %w", err)
	}
	if err := tx.Delete(&model.Device{}, deviceID).Error; err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	return nil
}

func isAdmin(tx *gorm.DB, userID, deviceID int64) bool {
	var count int64
	if err := tx.Model(&model.UserDevice{}).
		Where("user_id = ? AND device_id = ? AND role = ?", userID, deviceID, model.RoleAdmin).
		Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}
