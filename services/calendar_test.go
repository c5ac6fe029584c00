package services

import (
	"context"
	"testing"

	"github.com/bhumi3292/VaultLease-sub001/apperror"
	"github.com/bhumi3292/VaultLease-sub001/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (h *harness) space(t *testing.T, mgr models.User, capacity int) models.Space {
	t.Helper()
	sp := models.Space{RoomName: "Seminar Room 3", Location: "Library", Capacity: capacity}
	require.NoError(t, h.stock.CreateSpace(context.Background(), mgr.Actor(), &sp))
	return sp
}

func Test_Calendar_BookRejectCancelFlow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	mgr := h.user(t, models.RoleAdministrator)
	alice := h.user(t, models.RoleStudent)
	bob := h.user(t, models.RoleStudent)
	sp := h.space(t, mgr, 0)

	res, err := h.calendar.Publish(ctx, mgr.Actor(), PublishInput{PropertyID: sp.ID, Date: "2024-06-01", TimeSlots: []string{"9am", "10am"}})
	require.NoError(t, err)
	assert.True(t, res.Created)

	b, err := h.calendar.Book(ctx, alice.Actor(), BookInput{PropertyID: sp.ID, Date: "2024-06-01", TimeSlot: "9am"})
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, b.Status)
	assert.Equal(t, mgr.ID, b.LandlordID)

	_, err = h.calendar.Book(ctx, bob.Actor(), BookInput{PropertyID: sp.ID, Date: "2024-06-01", TimeSlot: "9am"})
	assert.ErrorIs(t, err, apperror.ErrSlotAlreadyBooked)

	_, err = h.calendar.Book(ctx, alice.Actor(), BookInput{PropertyID: sp.ID, Date: "2024-06-01", TimeSlot: "9am"})
	assert.ErrorIs(t, err, apperror.ErrDuplicateTenantBooking)

	avs, err := h.calendar.List(ctx, sp.ID, "2024-06-01", "2024-06-01")
	require.NoError(t, err)
	require.Len(t, avs, 1)
	assert.Equal(t, []string{"10am"}, avs[0].TimeSlots)

	// 拒绝后时段回到列表，租户收到邮件
	b, err = h.calendar.UpdateStatus(ctx, mgr.Actor(), b.ID, "rejected")
	require.NoError(t, err)
	assert.Equal(t, models.BookingRejected, b.Status)
	assert.Len(t, h.mail.To(alice.Username), 1)

	avs, err = h.calendar.List(ctx, sp.ID, "", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"9am", "10am"}, avs[0].TimeSlots)

	b, err = h.calendar.Book(ctx, bob.Actor(), BookInput{PropertyID: sp.ID, Date: "2024-06-01", TimeSlot: "9am"})
	require.NoError(t, err)

	// 租户自己取消：房东收到通知，租户不收邮件
	_, err = h.calendar.Cancel(ctx, bob.Actor(), b.ID)
	require.NoError(t, err)
	assert.Empty(t, h.mail.To(bob.Username))
	notes, err := h.repo.ListNotifications(ctx, mgr.ID, false, 20)
	require.NoError(t, err)
	assert.NotEmpty(t, notes)

	_, err = h.calendar.Cancel(ctx, bob.Actor(), b.ID)
	assert.Equal(t, apperror.KindInvalidState, apperror.From(err).Kind)
}

func Test_Calendar_InputValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	mgr := h.user(t, models.RoleAdministrator)
	sp := h.space(t, mgr, 0)

	_, err := h.calendar.Publish(ctx, mgr.Actor(), PublishInput{PropertyID: sp.ID, Date: "01/06/2024", TimeSlots: []string{"9am"}})
	assert.Equal(t, apperror.KindValidation, apperror.From(err).Kind)

	_, err = h.calendar.Book(ctx, mgr.Actor(), BookInput{PropertyID: sp.ID, Date: "2024-06-01"})
	assert.Equal(t, apperror.KindValidation, apperror.From(err).Kind)

	_, err = h.calendar.Book(ctx, h.user(t, models.RoleStudent).Actor(), BookInput{PropertyID: sp.ID, Date: "2024-06-01", TimeSlot: "9am"})
	assert.ErrorIs(t, err, apperror.ErrSlotUnavailable)

	_, err = h.calendar.UpdateStatus(ctx, mgr.Actor(), "x", "done")
	assert.ErrorIs(t, err, apperror.ErrInvalidStatus)

	_, err = h.calendar.List(ctx, sp.ID, "yesterday", "")
	assert.Equal(t, apperror.KindValidation, apperror.From(err).Kind)
}

func Test_Calendar_BookingListsByRole(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	mgr := h.user(t, models.RoleAdministrator)
	tenant := h.user(t, models.RoleStudent)
	sp := h.space(t, mgr, 0)
	_, err := h.calendar.Publish(ctx, mgr.Actor(), PublishInput{PropertyID: sp.ID, Date: "2024-06-02", TimeSlots: []string{"1pm"}})
	require.NoError(t, err)
	_, err = h.calendar.Book(ctx, tenant.Actor(), BookInput{PropertyID: sp.ID, Date: "2024-06-02", TimeSlot: "1pm"})
	require.NoError(t, err)

	mine, err := h.calendar.TenantBookings(ctx, tenant.Actor(), "")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	managed, err := h.calendar.LandlordBookings(ctx, mgr.Actor(), "", "pending")
	require.NoError(t, err)
	assert.Len(t, managed, 1)

	other, err := h.calendar.LandlordBookings(ctx, h.user(t, models.RoleAdministrator).Actor(), "", "")
	require.NoError(t, err)
	assert.Empty(t, other)
}
