package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"solar-monitor-backend/internal/model"
)

func createUser(t *testing.T, gdb *gorm.DB, phone, name string) int64 {
	t.Helper()
	user := model.User{
		Phone:        phone,
		PasswordHash: "$2a$10$notachecked.hash",
		Name:         name,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, gdb.Create(&user).Error)
	return user.ID
}

func TestNormalizeDeviceCode(t *testing.T) {
	assert.Equal(t, "PANEL42", NormalizeDeviceCode("  panel42 "))
	assert.Equal(t, "SN-001", NormalizeDeviceCode("sn-001"))
}

func TestRegisterOrRequestAccess(t *testing.T) {
	s, gdb, _ := newTestStore(t)
	ctx := context.Background()

	owner := createUser(t, gdb, "9100000001", "Owner")
	joiner := createUser(t, gdb, "9100000002", "Joiner")

	var deviceID int64
	t.Run("unknown code creates the device with the caller as admin", func(t *testing.T) {
		result, err := s.RegisterOrRequestAccess(ctx, owner, " panel42 ")
		require.NoError(t, err)
		assert.True(t, result.Created)
		deviceID = result.DeviceID

		var device model.Device
		require.NoError(t, gdb.First(&device, deviceID).Error)
		assert.Equal(t, "PANEL42", device.DeviceCode)
		assert.Equal(t, "Device EL42", device.Name)
		assert.Equal(t, 1, device.UserCount)

		devices, err := s.DevicesForUser(ctx, owner)
		require.NoError(t, err)
		require.Len(t, devices, 1)
		assert.Equal(t, model.RoleAdmin, devices[0].Role)
	})

	t.Run("adding an already linked device fails", func(t *testing.T) {
		_, err := s.RegisterOrRequestAccess(ctx, owner, "PANEL42")
		assert.ErrorIs(t, err, ErrAlreadyLinked)
	})

	t.Run("known code files a request instead", func(t *testing.T) {
		result, err := s.RegisterOrRequestAccess(ctx, joiner, "panel42")
		require.NoError(t, err)
		assert.False(t, result.Created)
		assert.Equal(t, deviceID, result.DeviceID)
		assert.NotZero(t, result.RequestID)

		devices, err := s.DevicesForUser(ctx, joiner)
		require.NoError(t, err)
		assert.Empty(t, devices, "no access until the admin approves")
	})

	t.Run("repeating the request fails", func(t *testing.T) {
		_, err := s.RegisterOrRequestAccess(ctx, joiner, "PANEL42")
		assert.ErrorIs(t, err, ErrDuplicateRequest)
	})
}

func TestApproveAccess(t *testing.T) {
	s, gdb, _ := newTestStore(t)
	ctx := context.Background()

	admin := createUser(t, gdb, "9100000010", "Admin")
	requester := createUser(t, gdb, "9100000011", "Requester")
	outsider := createUser(t, gdb, "9100000012", "Outsider")

	created, err := s.RegisterOrRequestAccess(ctx, admin, "SN100")
	require.NoError(t, err)
	request, err := s.RegisterOrRequestAccess(ctx, requester, "SN100")
	require.NoError(t, err)

	t.Run("requests are visible to the admin only", func(t *testing.T) {
		pending, err := s.PendingRequestsForAdmin(ctx, admin)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, request.RequestID, pending[0].RequestID)
		assert.Equal(t, requester, pending[0].UserID)
		assert.Equal(t, "Requester", pending[0].Name)

		pending, err = s.PendingRequestsForAdmin(ctx, requester)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("a non-admin cannot approve", func(t *testing.T) {
		err := s.ApproveAccess(ctx, request.RequestID, outsider)
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("approval links the requester as member", func(t *testing.T) {
		require.NoError(t, s.ApproveAccess(ctx, request.RequestID, admin))

		members, err := s.DeviceMembers(ctx, created.DeviceID)
		require.NoError(t, err)
		require.Len(t, members, 2)
		assert.Equal(t, model.RoleAdmin, members[0].Role, "admin sorts first")
		assert.Equal(t, admin, members[0].UserID)
		assert.Equal(t, model.RoleMember, members[1].Role)
		assert.Equal(t, requester, members[1].UserID)

		var device model.Device
		require.NoError(t, gdb.First(&device, created.DeviceID).Error)
		assert.Equal(t, 2, device.UserCount)
	})

	t.Run("a second approval finds no request", func(t *testing.T) {
		err := s.ApproveAccess(ctx, request.RequestID, admin)
		assert.ErrorIs(t, err, ErrRequestNotFound)
	})
}

func TestApproveAccessStaleRequest(t *testing.T) {
	s, gdb, _ := newTestStore(t)
	ctx := context.Background()

	admin := createUser(t, gdb, "9100000020", "Admin")
	requester := createUser(t, gdb, "9100000021", "Requester")

	created, err := s.RegisterOrRequestAccess(ctx, admin, "SN200")
	require.NoError(t, err)
	request, err := s.RegisterOrRequestAccess(ctx, requester, "SN200")
	require.NoError(t, err)

	// The requester gains access by another path before approval.
	link := model.UserDevice{
		UserID:    requester,
		DeviceID:  created.DeviceID,
		Role:      model.RoleMember,
		CreatedAt: time.Now(),
	}
	require.NoError(t, gdb.Create(&link).Error)

	err = s.ApproveAccess(ctx, request.RequestID, admin)
	assert.ErrorIs(t, err, ErrAlreadyLinked)

	var requestCount int64
	gdb.Model(&model.AccessRequest{}).Where("id = ?", request.RequestID).Count(&requestCount)
	assert.Equal(t, int64(0), requestCount, "stale request is cleaned up")
}

func TestRejectAccess(t *testing.T) {
	s, gdb, _ := newTestStore(t)
	ctx := context.Background()

	admin := createUser(t, gdb, "9100000030", "Admin")
	requester := createUser(t, gdb, "9100000031", "Requester")

	created, err := s.RegisterOrRequestAccess(ctx, admin, "SN300")
	require.NoError(t, err)
	request, err := s.RegisterOrRequestAccess(ctx, requester, "SN300")
	require.NoError(t, err)

	require.NoError(t, s.RejectAccess(ctx, request.RequestID, admin))

	members, err := s.DeviceMembers(ctx, created.DeviceID)
	require.NoError(t, err)
	assert.Len(t, members, 1, "requester was not linked")

	err = s.RejectAccess(ctx, request.RequestID, admin)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestRemoveAccess(t *testing.T) {
	s, gdb, _ := newTestStore(t)
	ctx := context.Background()

	admin := createUser(t, gdb, "9100000040", "Admin")
	member := createUser(t, gdb, "9100000041", "Member")

	created, err := s.RegisterOrRequestAccess(ctx, admin, "SN400")
	require.NoError(t, err)
	request, err := s.RegisterOrRequestAccess(ctx, member, "SN400")
	require.NoError(t, err)
	require.NoError(t, s.ApproveAccess(ctx, request.RequestID, admin))

	t.Run("only the admin may remove members", func(t *testing.T) {
		err := s.RemoveAccess(ctx, created.DeviceID, admin, member)
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("the admin link is not removable", func(t *testing.T) {
		err := s.RemoveAccess(ctx, created.DeviceID, admin, admin)
		assert.ErrorIs(t, err, ErrCannotRemoveAdmin)
	})

	t.Run("removing a member drops the link and the count", func(t *testing.T) {
		require.NoError(t, s.RemoveAccess(ctx, created.DeviceID, member, admin))

		members, err := s.DeviceMembers(ctx, created.DeviceID)
		require.NoError(t, err)
		assert.Len(t, members, 1)

		var device model.Device
		require.NoError(t, gdb.First(&device, created.DeviceID).Error)
		assert.Equal(t, 1, device.UserCount)
	})
}

func TestChangeAdmin(t *testing.T) {
	s, gdb, _ := newTestStore(t)
	ctx := context.Background()

	admin := createUser(t, gdb, "9100000050", "Admin")
	member := createUser(t, gdb, "9100000051", "Member")
	outsider := createUser(t, gdb, "9100000052", "Outsider")

	created, err := s.RegisterOrRequestAccess(ctx, admin, "SN500")
	require.NoError(t, err)
	request, err := s.RegisterOrRequestAccess(ctx, member, "SN500")
	require.NoError(t, err)
	require.NoError(t, s.ApproveAccess(ctx, request.RequestID, admin))

	adminCount := func() int64 {
		var n int64
		gdb.Model(&model.UserDevice{}).
			Where("device_id = ? AND role = ?", created.DeviceID, model.RoleAdmin).
			Count(&n)
		return n
	}

	t.Run("only the current admin may transfer", func(t *testing.T) {
		err := s.ChangeAdmin(ctx, created.DeviceID, member, member)
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("transfer to an unlinked user rolls back", func(t *testing.T) {
		err := s.ChangeAdmin(ctx, created.DeviceID, admin, outsider)
		assert.ErrorIs(t, err, ErrTargetNotLinked)
		assert.Equal(t, int64(1), adminCount(), "original admin is restored")

		var link model.UserDevice
		require.NoError(t, gdb.Where("device_id = ? AND user_id = ?", created.DeviceID, admin).First(&link).Error)
		assert.Equal(t, model.RoleAdmin, link.Role)
	})

	t.Run("transfer to a member swaps the roles", func(t *testing.T) {
		require.NoError(t, s.ChangeAdmin(ctx, created.DeviceID, admin, member))
		assert.Equal(t, int64(1), adminCount(), "exactly one admin at all times")

		var link model.UserDevice
		require.NoError(t, gdb.Where("device_id = ? AND user_id = ?", created.DeviceID, member).First(&link).Error)
		assert.Equal(t, model.RoleAdmin, link.Role)
		var demoted model.UserDevice
		require.NoError(t, gdb.Where("device_id = ? AND user_id = ?", created.DeviceID, admin).First(&demoted).Error)
		assert.Equal(t, model.RoleMember, demoted.Role)
	})
}

func TestDeleteDevice(t *testing.T) {
	ctx := context.Background()

	t.Run("admin deletion wipes the device and all links", func(t *testing.T) {
		s, gdb, _ := newTestStore(t)
		admin := createUser(t, gdb, "9100000060", "Admin")
		member := createUser(t, gdb, "9100000061", "Member")
		pending := createUser(t, gdb, "9100000062", "Pending")

		created, err := s.RegisterOrRequestAccess(ctx, admin, "SN600")
		require.NoError(t, err)
		request, err := s.RegisterOrRequestAccess(ctx, member, "SN600")
		require.NoError(t, err)
		require.NoError(t, s.ApproveAccess(ctx, request.RequestID, admin))
		_, err = s.RegisterOrRequestAccess(ctx, pending, "SN600")
		require.NoError(t, err)

		result, err := s.DeleteDevice(ctx, created.DeviceID, admin)
		require.NoError(t, err)
		assert.True(t, result.DeviceDeleted)
		assert.True(t, result.ByAdmin)

		var n int64
		gdb.Model(&model.Device{}).Where("id = ?", created.DeviceID).Count(&n)
		assert.Equal(t, int64(0), n)
		gdb.Model(&model.UserDevice{}).Where("device_id = ?", created.DeviceID).Count(&n)
		assert.Equal(t, int64(0), n)
		gdb.Model(&model.AccessRequest{}).Where("device_id = ?", created.DeviceID).Count(&n)
		assert.Equal(t, int64(0), n)
	})

	t.Run("member deletion removes only the member's link", func(t *testing.T) {
		s, gdb, _ := newTestStore(t)
		admin := createUser(t, gdb, "9100000063", "Admin")
		member := createUser(t, gdb, "9100000064", "Member")

		created, err := s.RegisterOrRequestAccess(ctx, admin, "SN601")
		require.NoError(t, err)
		request, err := s.RegisterOrRequestAccess(ctx, member, "SN601")
		require.NoError(t, err)
		require.NoError(t, s.ApproveAccess(ctx, request.RequestID, admin))

		result, err := s.DeleteDevice(ctx, created.DeviceID, member)
		require.NoError(t, err)
		assert.False(t, result.DeviceDeleted)

		var device model.Device
		require.NoError(t, gdb.First(&device, created.DeviceID).Error)
		assert.Equal(t, 1, device.UserCount)

		devices, err := s.DevicesForUser(ctx, member)
		require.NoError(t, err)
		assert.Empty(t, devices)
	})

	t.Run("the last departing link reaps the device", func(t *testing.T) {
		s, gdb, _ := newTestStore(t)
		lone := createUser(t, gdb, "9100000065", "Lone")

		device := model.Device{DeviceCode: "SN602", Name: "Device N602", UserCount: 1, CreatedAt: time.Now()}
		require.NoError(t, gdb.Create(&device).Error)
		link := model.UserDevice{UserID: lone, DeviceID: device.ID, Role: model.RoleMember, CreatedAt: time.Now()}
		require.NoError(t, gdb.Create(&link).Error)

		result, err := s.DeleteDevice(ctx, device.ID, lone)
		require.NoError(t, err)
		assert.True(t, result.DeviceDeleted)
		assert.False(t, result.ByAdmin)

		var n int64
		gdb.Model(&model.Device{}).Where("id = ?", device.ID).Count(&n)
		assert.Equal(t, int64(0), n)
	})

	t.Run("unlinked caller is rejected", func(t *testing.T) {
		s, gdb, _ := newTestStore(t)
		admin := createUser(t, gdb, "9100000066", "Admin")
		stranger := createUser(t, gdb, "9100000067", "Stranger")

		created, err := s.RegisterOrRequestAccess(ctx, admin, "SN603")
		require.NoError(t, err)

		_, err = s.DeleteDevice(ctx, created.DeviceID, stranger)
		assert.ErrorIs(t, err, ErrNotLinked)
	})
}

func TestRenameDevice(t *testing.T) {
	s, gdb, _ := newTestStore(t)
	ctx := context.Background()

	admin := createUser(t, gdb, "9100000070", "Admin")
	created, err := s.RegisterOrRequestAccess(ctx, admin, "SN700")
	require.NoError(t, err)

	require.NoError(t, s.RenameDevice(ctx, created.DeviceID, "Rooftop array"))

	var device model.Device
	require.NoError(t, gdb.First(&device, created.DeviceID).Error)
	assert.Equal(t, "Rooftop array", device.Name)

	err = s.RenameDevice(ctx, 99999, "nope")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestPendingRequestsFilterLinkedRequesters(t *testing.T) {
	s, gdb, _ := newTestStore(t)
	ctx := context.Background()

	admin := createUser(t, gdb, "9100000080", "Admin")
	requester := createUser(t, gdb, "9100000081", "Requester")

	created, err := s.RegisterOrRequestAccess(ctx, admin, "SN800")
	require.NoError(t, err)
	_, err = s.RegisterOrRequestAccess(ctx, requester, "SN800")
	require.NoError(t, err)

	// The requester gains membership without the request being resolved.
	link := model.UserDevice{UserID: requester, DeviceID: created.DeviceID, Role: model.RoleMember, CreatedAt: time.Now()}
	require.NoError(t, gdb.Create(&link).Error)

	pending, err := s.PendingRequestsForAdmin(ctx, admin)
	require.NoError(t, err)
	assert.Empty(t, pending, "requests by already linked users are hidden")
}
