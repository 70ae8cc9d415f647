package store

// DeviceSummary is one row of a user's device list.
type DeviceSummary struct {
	DeviceID   int64  `json:"device_id"`
	Name       string `json:"name"`
	DeviceCode string `json:"device_code"`
	Role       string `json:"role"`
}

// Member is one user linked to a device.
type Member struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Role   string `json:"role"`
}

// PendingRequest is an open access request as seen by a device admin.
type PendingRequest struct {
	RequestID  int64  `json:"request_id"`
	DeviceID   int64  `json:"device_id"`
	DeviceName string `json:"device_name"`
	UserID     int64  `json:"user_id"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
}

// AddDeviceResult reports what RegisterOrRequestAccess did.
type AddDeviceResult struct {
	DeviceID  int64
	Created   bool  // device was created and the caller linked as admin
	RequestID int64 // set when an access request was filed instead
}

// DeleteDeviceResult reports what DeleteDevice did.
type DeleteDeviceResult struct {
	DeviceDeleted bool // the device row itself was removed
	ByAdmin       bool
}
