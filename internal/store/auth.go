package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"solar-monitor-backend/internal/model"
	"solar-monitor-backend/internal/otp"
)

// StartSignup stages a pending user and issues a signup OTP. The pending
// and OTP rows are committed before dispatch so a failed dispatch can be
// retried with a resend; the operation itself still fails in that case.
func (s *gormStore) StartSignup(ctx context.Context, phone, password, name string) (int64, error) {
	var existing model.User
	err := s.db.WithContext(ctx).Where("phone = ? AND is_active = ?", phone, true).First(&existing).Error
	if err == nil {
		return 0, ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("failed to check existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("failed to hash password: %w", err)
	}

	pending := model.PendingUser{
		Phone:        phone,
		PasswordHash: string(hash),
		Name:         name,
		CreatedAt:    time.Now(),
	}
	code := otp.GenerateCode()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// At most one pending row per phone: stale attempts are superseded.
		if err := tx.Where("phone = ?", phone).Delete(&model.PendingUser{}).Error; err != nil {
			return fmt.Errorf("failed to clear stale pending users: %w", err)
		}
		if err := tx.Create(&pending).Error; err != nil {
			return fmt.Errorf("failed to create pending user: %w", err)
		}
		return s.insertOtp(tx, phone, code, model.OtpPurposeSignup)
	})
	if err != nil {
		return 0, err
	}

	if err := s.sender.Send(ctx, phone, code); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrOtpDispatchFailed, err)
	}
	return pending.ID, nil
}

// VerifySignupOtp promotes a pending user to a full user when the most
// recently issued signup OTP matches and has not expired.
func (s *gormStore) VerifySignupOtp(ctx context.Context, pendingUserID int64, code string) (int64, error) {
	var pending model.PendingUser
	if err := s.db.WithContext(ctx).First(&pending, pendingUserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrPendingUserNotFound
		}
		return 0, fmt.Errorf("failed to load pending user: %w", err)
	}

	latest, err := s.latestOtp(ctx, pending.Phone, model.OtpPurposeSignup)
	if err != nil {
		return 0, err
	}
	if err := checkOtp(latest, code); err != nil {
		return 0, err
	}

	user := model.User{
		Phone:        pending.Phone,
		PasswordHash: pending.PasswordHash,
		Name:         pending.Name,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrUserExists
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		if err := tx.Delete(&model.PendingUser{}, pending.ID).Error; err != nil {
			return fmt.Errorf("failed to delete pending user: %w", err)
		}
		if err := tx.Delete(&model.Otp{}, latest.ID).Error; err != nil {
			return fmt.Errorf("failed to delete consumed otp: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

// ResendSignupOtp issues a fresh signup OTP for a pending user. The
// previous OTP rows are left in place; verification only consults the
// newest.
func (s *gormStore) ResendSignupOtp(ctx context.Context, pendingUserID int64) error {
	var pending model.PendingUser
	if err := s.db.WithContext(ctx).First(&pending, pendingUserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPendingUserNotFound
		}
		return fmt.Errorf("failed to load pending user: %w", err)
	}
	return s.issueAndSend(ctx, pending.Phone, model.OtpPurposeSignup)
}

// Login verifies a phone/password pair. Unknown phone and wrong password
// are indistinguishable to the caller.
func (s *gormStore) Login(ctx context.Context, phone, password string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("phone = ? AND is_active = ?", phone, true).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// StartForgotPassword issues a password-reset OTP for a registered phone
// and returns the matching user id.
func (s *gormStore) StartForgotPassword(ctx context.Context, phone string) (int64, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("phone = ? AND is_active = ?", phone, true).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrPhoneNotRegistered
		}
		return 0, fmt.Errorf("failed to load user: %w", err)
	}
	if err := s.issueAndSend(ctx, user.Phone, model.OtpPurposeForgot); err != nil {
		return 0, err
	}
	return user.ID, nil
}

// VerifyForgotOtp checks the newest forgot-password OTP and overwrites
// the user's credential on success.
func (s *gormStore) VerifyForgotOtp(ctx context.Context, userID int64, code, newPassword string) error {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	latest, err := s.latestOtp(ctx, user.Phone, model.OtpPurposeForgot)
	if err != nil {
		return err
	}
	if err := checkOtp(latest, code); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.User{}).Where("id = ?", userID).
			Update("password_hash", string(hash)).Error; err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		if err := tx.Delete(&model.Otp{}, latest.ID).Error; err != nil {
			return fmt.Errorf("failed to delete consumed otp: %w", err)
		}
		return nil
	})
}

// ResendForgotOtp issues a fresh password-reset OTP for an active user.
func (s *gormStore) ResendForgotOtp(ctx context.Context, userID int64) error {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to load user: %w", err)
	}
	return s.issueAndSend(ctx, user.Phone, model.OtpPurposeForgot)
}

func (s *gormStore) issueAndSend(ctx context.Context, phone, purpose string) error {
	code := otp.GenerateCode()
	if err := s.insertOtp(s.db.WithContext(ctx), phone, code, purpose); err != nil {
		return err
	}
	if err := s.sender.Send(ctx, phone, code); err != nil {
		return fmt.Errorf("%w: %v", ErrOtpDispatchFailed, err)
	}
	return nil
}

func (s *gormStore) insertOtp(tx *gorm.DB, phone, code, purpose string) error {
	row := model.Otp{
		Phone:     phone,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(s.otpExpiry),
		CreatedAt: time.Now(),
	}
	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}
	return nil
}

// latestOtp returns the most recently created OTP row for a phone and
// purpose. A newer OTP supersedes an older one even if both are
// unexpired; rows created in the same timestamp tick fall back to
// insertion order.
func (s *gormStore) latestOtp(ctx context.Context, phone, purpose string) (*model.Otp, error) {
	var row model.Otp
	err := s.db.WithContext(ctx).
		Where("phone = ? AND purpose = ?", phone, purpose).
		Order("created_at DESC, id DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOtpNotFound
		}
		return nil, fmt.Errorf("failed to load otp: %w", err)
	}
	return &row, nil
}

// checkOtp validates expiry before the code itself, so an expired row
// never reads as merely "invalid". Codes compare as strings.
func checkOtp(row *model.Otp, code string) error {
	if time.Now().After(row.ExpiresAt) {
		return ErrOtpExpired
	}
	if row.Code != code {
		return ErrInvalidOtp
	}
	return nil
}
