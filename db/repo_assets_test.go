package db

import (
	"context"
	"testing"

	"github.com/bhumi3292/VaultLease-sub001/apperror"
	"github.com/bhumi3292/VaultLease-sub001/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_UpdateAsset_TotalQuantityShiftsAvailable(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	owner := seedUser(t, r, models.RoleAdministrator)
	asset := seedAsset(t, r, owner, 2)
	_, err := borrow(t, r, asset, seedUser(t, r, models.RoleStudent))
	require.NoError(t, err)

	total := 5
	a, err := r.UpdateAsset(ctx, owner.Actor(), asset.ID, AssetPatch{TotalQuantity: &total})
	require.NoError(t, err)
	assert.Equal(t, 4, a.AvailableQuantity)

	total = 0
	_, err = r.UpdateAsset(ctx, owner.Actor(), asset.ID, AssetPatch{TotalQuantity: &total})
	assert.Equal(t, apperror.KindValidation, apperror.From(err).Kind)

	// 有一件借出时不能降到 0 可借以下
	total = 1
	a, err = r.UpdateAsset(ctx, owner.Actor(), asset.ID, AssetPatch{TotalQuantity: &total})
	require.NoError(t, err)
	assert.Equal(t, 0, a.AvailableQuantity)
	assert.Equal(t, models.AssetBorrowed, a.Status)
}

func Test_UpdateAsset_ExplicitStatusSurvivesCounter(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	owner := seedUser(t, r, models.RoleAdministrator)
	asset := seedAsset(t, r, owner, 2)
	req, err := borrow(t, r, asset, seedUser(t, r, models.RoleStudent))
	require.NoError(t, err)

	st := models.AssetMaintenance
	_, err = r.UpdateAsset(ctx, owner.Actor(), asset.ID, AssetPatch{Status: &st})
	require.NoError(t, err)

	res, err := r.TransitionAccessRequest(ctx, owner.Actor(), req.ID, models.AccessReturned, "")
	require.NoError(t, err)
	assert.Equal(t, models.AssetMaintenance, res.Request.Asset.Status)
	assert.Equal(t, 2, res.Request.Asset.AvailableQuantity)

	st = models.AssetAvailable
	a, err := r.UpdateAsset(ctx, owner.Actor(), asset.ID, AssetPatch{Status: &st})
	require.NoError(t, err)
	assert.Equal(t, models.AssetAvailable, a.Status)

	_, err = r.UpdateAsset(ctx, seedUser(t, r, models.RoleAdministrator).Actor(), asset.ID, AssetPatch{Status: &st})
	assert.Equal(t, apperror.KindForbidden, apperror.From(err).Kind)
}

func Test_DeleteAsset_GuardedByOutstandingRequests(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	owner := seedUser(t, r, models.RoleAdministrator)
	asset := seedAsset(t, r, owner, 1)
	req, err := borrow(t, r, asset, seedUser(t, r, models.RoleStudent))
	require.NoError(t, err)

	_, err = r.DeleteAsset(ctx, owner.Actor(), asset.ID)
	require.ErrorIs(t, err, apperror.ErrHasActiveRequests)

	_, err = r.TransitionAccessRequest(ctx, owner.Actor(), req.ID, models.AccessReturned, "")
	require.NoError(t, err)

	_, err = r.DeleteAsset(ctx, owner.Actor(), asset.ID)
	require.NoError(t, err)

	// 历史请求仍在
	got, err := r.FindAccessRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AccessReturned, got.Status)
	assert.Nil(t, got.Asset)
}

func Test_ListAssets_Filters(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	owner := seedUser(t, r, models.RoleAdministrator)
	seedAsset(t, r, owner, 1)
	other := models.Asset{Name: "Projector", Category: "av", AdministratorID: owner.ID, TotalQuantity: 2}
	require.NoError(t, r.CreateAsset(ctx, &other))

	page, err := r.ListAssets(ctx, AssetQuery{Q: "PROJ"})
	require.NoError(t, err)
	require.Len(t, page.Assets, 1)
	assert.Equal(t, "Projector", page.Assets[0].Name)

	page, err = r.ListAssets(ctx, AssetQuery{AdministratorID: owner.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
}
