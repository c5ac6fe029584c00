package db

import (
	"context"
	"testing"

	"github.com/bhumi3292/VaultLease-sub001/apperror"
	"github.com/bhumi3292/VaultLease-sub001/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_CapacityBooking_ReserveAndRelease(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	mgr := seedUser(t, r, models.RoleAdministrator)
	space := seedSpace(t, r, mgr, 1)
	tenant := seedUser(t, r, models.RoleStudent)

	b, err := r.CreateCapacityBooking(ctx, tenant.ID, space.ID, "group study")
	require.NoError(t, err)
	assert.Equal(t, mgr.ID, b.LandlordID)

	_, err = r.CreateCapacityBooking(ctx, seedUser(t, r, models.RoleStudent).ID, space.ID, "")
	require.ErrorIs(t, err, apperror.ErrOutOfStock)

	s, err := r.FindSpaceByID(ctx, space.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Capacity)

	_, err = r.UpdateCapacityBookingStatus(ctx, tenant.Actor(), b.ID, models.CapacityConfirmed)
	assert.Equal(t, apperror.KindForbidden, apperror.From(err).Kind)

	_, err = r.UpdateCapacityBookingStatus(ctx, mgr.Actor(), b.ID, models.CapacityConfirmed)
	require.NoError(t, err)
	s, _ = r.FindSpaceByID(ctx, space.ID)
	assert.Equal(t, 0, s.Capacity)

	res, err := r.UpdateCapacityBookingStatus(ctx, mgr.Actor(), b.ID, models.CapacityReturned)
	require.NoError(t, err)
	assert.Equal(t, models.CapacityConfirmed, res.From)
	s, _ = r.FindSpaceByID(ctx, space.ID)
	assert.Equal(t, 1, s.Capacity)

	_, err = r.UpdateCapacityBookingStatus(ctx, mgr.Actor(), b.ID, models.CapacityCompleted)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	s, _ = r.FindSpaceByID(ctx, space.ID)
	assert.Equal(t, 1, s.Capacity)
}

func Test_DeleteSpace_GuardedByActiveBookings(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	mgr := seedUser(t, r, models.RoleAdministrator)
	space := seedSpace(t, r, mgr, 2)
	b, err := r.CreateCapacityBooking(ctx, seedUser(t, r, models.RoleStudent).ID, space.ID, "")
	require.NoError(t, err)

	_, err = r.DeleteSpace(ctx, mgr.Actor(), space.ID)
	require.ErrorIs(t, err, apperror.ErrHasActiveBookings)

	_, err = r.UpdateCapacityBookingStatus(ctx, mgr.Actor(), b.ID, models.CapacityCancelled)
	require.NoError(t, err)
	_, err = r.PublishAvailability(ctx, mgr.Actor(), space.ID, day("2024-06-01"), []string{"9am"})
	require.NoError(t, err)

	_, err = r.DeleteSpace(ctx, seedUser(t, r, models.RoleAdministrator).Actor(), space.ID)
	assert.Equal(t, apperror.KindForbidden, apperror.From(err).Kind)

	_, err = r.DeleteSpace(ctx, mgr.Actor(), space.ID)
	require.NoError(t, err)
	list, err := r.ListAvailabilities(ctx, space.ID, day("2024-01-01"), day("2024-12-31"))
	require.NoError(t, err)
	assert.Empty(t, list)
}
