package store

import "errors"

// Domain errors returned by store operations. Handlers translate these
// to HTTP statuses; anything else is an internal failure.
var (
	ErrUserExists          = errors.New("user already exists")
	ErrPendingUserNotFound = errors.New("pending user not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrPhoneNotRegistered  = errors.New("phone not registered")
	ErrInvalidCredentials  = errors.New("invalid phone or password")
	ErrOtpNotFound         = errors.New("otp not found")
	ErrOtpExpired          = errors.New("otp expired")
	ErrInvalidOtp          = errors.New("invalid otp")
	ErrOtpDispatchFailed   = errors.New("otp dispatch failed")

	ErrDeviceNotFound    = errors.New("device not found")
	ErrAlreadyLinked     = errors.New("user already has access to this device")
	ErrDuplicateRequest  = errors.New("access request already pending")
	ErrRequestNotFound   = errors.New("access request not found")
	ErrNotAuthorized     = errors.New("not authorized")
	ErrNotLinked         = errors.New("device not assigned to this user")
	ErrCannotRemoveAdmin = errors.New("access not found or cannot remove admin")
	ErrTargetNotLinked   = errors.New("new admin user not linked to device")
)
