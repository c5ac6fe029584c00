package db

import (
	"context"
	"testing"

	"github.com/bhumi3292/VaultLease-sub001/apperror"
	"github.com/bhumi3292/VaultLease-sub001/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_PublishAvailability_CreateThenMerge(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	mgr := seedUser(t, r, models.RoleAdministrator)
	space := seedSpace(t, r, mgr, 0)

	res, err := r.PublishAvailability(ctx, mgr.Actor(), space.ID, day("2024-06-01"), []string{" 9am", "10am", "9am", ""})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, []string{"10am", "9am"}, res.Availability.TimeSlots)

	res, err = r.PublishAvailability(ctx, mgr.Actor(), space.ID, day("2024-06-01"), []string{"11am", "9am"})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, []string{"10am", "11am", "9am"}, res.Availability.TimeSlots)
}

func Test_PublishAvailability_Rejections(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	mgr := seedUser(t, r, models.RoleAdministrator)
	space := seedSpace(t, r, mgr, 0)

	_, err := r.PublishAvailability(ctx, seedUser(t, r, models.RoleAdministrator).Actor(), space.ID, day("2024-06-01"), []string{"9am"})
	assert.Equal(t, apperror.KindForbidden, apperror.From(err).Kind)

	_, err = r.PublishAvailability(ctx, mgr.Actor(), space.ID, day("2024-06-01"), []string{" ", ""})
	assert.Equal(t, apperror.KindValidation, apperror.From(err).Kind)

	_, err = r.PublishAvailability(ctx, mgr.Actor(), "00000000-0000-0000-0000-000000000000", day("2024-06-01"), []string{"9am"})
	assert.Equal(t, apperror.KindNotFound, apperror.From(err).Kind)

	// super admin 可以替别人发布
	super := seedUser(t, r, models.RoleAdmin)
	res, err := r.PublishAvailability(ctx, super.Actor(), space.ID, day("2024-06-02"), []string{"9am"})
	require.NoError(t, err)
	assert.Equal(t, mgr.ID, res.Availability.LandlordID)
}

func Test_BookSlot_RoundTripAndDoubleBooking(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	mgr := seedUser(t, r, models.RoleAdministrator)
	space := seedSpace(t, r, mgr, 0)
	alice := seedUser(t, r, models.RoleStudent)
	bob := seedUser(t, r, models.RoleStudent)

	pub, err := r.PublishAvailability(ctx, mgr.Actor(), space.ID, day("2024-06-01"), []string{"9am", "10am"})
	require.NoError(t, err)

	b, err := r.BookSlot(ctx, BookSlotInput{TenantID: alice.ID, PropertyID: space.ID, Date: day("2024-06-01"), TimeSlot: "9am"})
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, b.Status)
	assert.Equal(t, mgr.ID, b.LandlordID)
	assert.Equal(t, "2024-06-01", b.Date)

	av, err := r.FindAvailability(ctx, pub.Availability.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"10am"}, av.TimeSlots)

	_, err = r.BookSlot(ctx, BookSlotInput{TenantID: bob.ID, PropertyID: space.ID, Date: day("2024-06-01"), TimeSlot: "9am"})
	require.ErrorIs(t, err, apperror.ErrSlotAlreadyBooked)
	assert.Equal(t, 409, apperror.From(err).HTTPStatus())

	_, err = r.BookSlot(ctx, BookSlotInput{TenantID: alice.ID, PropertyID: space.ID, Date: day("2024-06-01"), TimeSlot: "9am"})
	assert.ErrorIs(t, err, apperror.ErrDuplicateTenantBooking)

	_, err = r.BookSlot(ctx, BookSlotInput{TenantID: bob.ID, PropertyID: space.ID, Date: day("2024-06-02"), TimeSlot: "10am"})
	require.ErrorIs(t, err, apperror.ErrSlotUnavailable)
	assert.Equal(t, 400, apperror.From(err).HTTPStatus())

	_, err = r.CancelBooking(ctx, alice.Actor(), b.ID)
	require.NoError(t, err)
	av, err = r.FindAvailability(ctx, pub.Availability.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"10am", "9am"}, av.TimeSlots)

	// 取消后历史记录与新预约共存
	_, err = r.BookSlot(ctx, BookSlotInput{TenantID: bob.ID, PropertyID: space.ID, Date: day("2024-06-01"), TimeSlot: "9am"})
	require.NoError(t, err)
}

func Test_CancelBooking_AlreadyCancelledIsInvalidState(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	mgr := seedUser(t, r, models.RoleAdministrator)
	space := seedSpace(t, r, mgr, 0)
	tenant := seedUser(t, r, models.RoleStudent)
	pub, err := r.PublishAvailability(ctx, mgr.Actor(), space.ID, day("2024-06-01"), []string{"9am"})
	require.NoError(t, err)
	b, err := r.BookSlot(ctx, BookSlotInput{TenantID: tenant.ID, PropertyID: space.ID, Date: day("2024-06-01"), TimeSlot: "9am"})
	require.NoError(t, err)

	_, err = r.CancelBooking(ctx, seedUser(t, r, models.RoleStudent).Actor(), b.ID)
	assert.Equal(t, apperror.KindForbidden, apperror.From(err).Kind)

	_, err = r.CancelBooking(ctx, mgr.Actor(), b.ID)
	require.NoError(t, err)

	_, err = r.CancelBooking(ctx, tenant.Actor(), b.ID)
	assert.Equal(t, apperror.KindInvalidState, apperror.From(err).Kind)

	av, err := r.FindAvailability(ctx, pub.Availability.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"9am"}, av.TimeSlots)
}

func Test_UpdateBookingStatus_RejectRestoresSlotOnce(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	mgr := seedUser(t, r, models.RoleAdministrator)
	space := seedSpace(t, r, mgr, 0)
	tenant := seedUser(t, r, models.RoleStudent)
	pub, err := r.PublishAvailability(ctx, mgr.Actor(), space.ID, day("2024-06-01"), []string{"9am", "10am"})
	require.NoError(t, err)
	b, err := r.BookSlot(ctx, BookSlotInput{TenantID: tenant.ID, PropertyID: space.ID, Date: day("2024-06-01"), TimeSlot: "9am"})
	require.NoError(t, err)

	_, err = r.UpdateBookingStatus(ctx, tenant.Actor(), b.ID, models.BookingConfirmed)
	assert.Equal(t, apperror.KindForbidden, apperror.From(err).Kind)

	res, err := r.UpdateBookingStatus(ctx, mgr.Actor(), b.ID, models.BookingConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, res.From)

	_, err = r.UpdateBookingStatus(ctx, mgr.Actor(), b.ID, models.BookingPending)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	_, err = r.UpdateBookingStatus(ctx, mgr.Actor(), b.ID, models.BookingRejected)
	require.NoError(t, err)
	_, err = r.UpdateBookingStatus(ctx, mgr.Actor(), b.ID, models.BookingRejected)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	av, err := r.FindAvailability(ctx, pub.Availability.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"10am", "9am"}, av.TimeSlots)
}

func Test_UpdateAvailability_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	mgr := seedUser(t, r, models.RoleAdministrator)
	space := seedSpace(t, r, mgr, 0)
	pub, err := r.PublishAvailability(ctx, mgr.Actor(), space.ID, day("2024-06-01"), []string{"9am", "10am", "11am"})
	require.NoError(t, err)
	_, err = r.BookSlot(ctx, BookSlotInput{TenantID: seedUser(t, r, models.RoleStudent).ID, PropertyID: space.ID, Date: day("2024-06-01"), TimeSlot: "9am"})
	require.NoError(t, err)

	_, err = r.UpdateAvailability(ctx, mgr.Actor(), pub.Availability.ID, []string{"10am"})
	require.ErrorIs(t, err, apperror.ErrSlotInUse)
	av, err := r.FindAvailability(ctx, pub.Availability.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"10am", "11am"}, av.TimeSlots)

	av, err = r.UpdateAvailability(ctx, mgr.Actor(), pub.Availability.ID, []string{"9am", "2pm"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2pm"}, av.TimeSlots)
}

func Test_PublishAvailability_AllSlotsBooked(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	mgr := seedUser(t, r, models.RoleAdministrator)
	space := seedSpace(t, r, mgr, 0)
	pub, err := r.PublishAvailability(ctx, mgr.Actor(), space.ID, day("2024-06-01"), []string{"9am"})
	require.NoError(t, err)
	_, err = r.BookSlot(ctx, BookSlotInput{TenantID: seedUser(t, r, models.RoleStudent).ID, PropertyID: space.ID, Date: day("2024-06-01"), TimeSlot: "9am"})
	require.NoError(t, err)

	// 删除当天可用时段被活动预约挡住
	_, err = r.DeleteAvailability(ctx, mgr.Actor(), pub.Availability.ID)
	require.ErrorIs(t, err, apperror.ErrHasActiveBookings)

	// 已有行：合并时跳过已预约的时段
	res, err := r.PublishAvailability(ctx, mgr.Actor(), space.ID, day("2024-06-01"), []string{"9am"})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, []string{"9am"}, res.Skipped)
	assert.Empty(t, res.Availability.TimeSlots)
}

func Test_PublishAvailability_AllSlotsConflictOnCreate(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	mgr := seedUser(t, r, models.RoleAdministrator)
	space := seedSpace(t, r, mgr, 0)
	tenant := seedUser(t, r, models.RoleStudent)
	pub, err := r.PublishAvailability(ctx, mgr.Actor(), space.ID, day("2024-06-01"), []string{"9am"})
	require.NoError(t, err)
	b, err := r.BookSlot(ctx, BookSlotInput{TenantID: tenant.ID, PropertyID: space.ID, Date: day("2024-06-01"), TimeSlot: "9am"})
	require.NoError(t, err)

	_, err = r.CancelBooking(ctx, tenant.Actor(), b.ID)
	require.NoError(t, err)
	_, err = r.DeleteAvailability(ctx, mgr.Actor(), pub.Availability.ID)
	require.NoError(t, err)

	// 当天没有可用记录，但时段仍被一条活动预约占用
	require.NoError(t, r.DB.Create(&models.Booking{
		ID: "11111111-1111-1111-1111-111111111111", PropertyID: space.ID, TenantID: tenant.ID,
		LandlordID: mgr.ID, Date: "2024-06-01", TimeSlot: "9am", Status: models.BookingConfirmed,
	}).Error)

	_, err = r.PublishAvailability(ctx, mgr.Actor(), space.ID, day("2024-06-01"), []string{"9am"})
	assert.ErrorIs(t, err, apperror.ErrAllSlotsConflict)

	list, err := r.ListAvailabilities(ctx, space.ID, day("2024-05-01"), day("2024-07-01"))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func Test_ListBookings(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	mgr := seedUser(t, r, models.RoleAdministrator)
	space := seedSpace(t, r, mgr, 0)
	tenant := seedUser(t, r, models.RoleStudent)
	_, err := r.PublishAvailability(ctx, mgr.Actor(), space.ID, day("2024-06-01"), []string{"9am", "10am"})
	require.NoError(t, err)
	for _, s := range []string{"10am", "9am"} {
		_, err := r.BookSlot(ctx, BookSlotInput{TenantID: tenant.ID, PropertyID: space.ID, Date: day("2024-06-01"), TimeSlot: s})
		require.NoError(t, err)
	}

	mine, err := r.ListBookings(ctx, BookingQuery{TenantID: tenant.ID})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.NotNil(t, mine[0].Property)
	assert.Equal(t, space.RoomName, mine[0].Property.RoomName)

	managed, err := r.ListBookings(ctx, BookingQuery{LandlordID: mgr.ID, Status: models.BookingPending})
	require.NoError(t, err)
	assert.Len(t, managed, 2)
}
