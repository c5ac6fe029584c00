package db

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bhumi3292/VaultLease-sub001/apperror"
	"github.com/bhumi3292/VaultLease-sub001/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func borrow(t *testing.T, r *Repo, asset models.Asset, requester models.User) (*models.AccessRequest, error) {
	t.Helper()
	start := time.Now().UTC()
	return r.CreateAccessRequest(context.Background(), CreateAccessRequestInput{
		AssetID:            asset.ID,
		RequesterID:        requester.ID,
		StartDate:          start,
		ExpectedReturnDate: start.Add(72 * time.Hour),
		Notes:              "senior project",
	})
}

func Test_CreateAccessRequest_LastUnitThenOutOfStock(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	owner := seedUser(t, r, models.RoleAdministrator)
	asset := seedAsset(t, r, owner, 1)

	req, err := borrow(t, r, asset, seedUser(t, r, models.RoleStudent))
	require.NoError(t, err)
	assert.Equal(t, models.AccessPending, req.Status)
	assert.Equal(t, 25.0, req.AccessFee)
	require.NotNil(t, req.Asset)
	assert.Equal(t, 0, req.Asset.AvailableQuantity)
	assert.Equal(t, models.AssetBorrowed, req.Asset.Status)

	_, err = borrow(t, r, asset, seedUser(t, r, models.RoleStudent))
	require.ErrorIs(t, err, apperror.ErrOutOfStock)
	assert.Equal(t, 400, apperror.From(err).HTTPStatus())

	a, err := r.FindAssetByID(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, a.AvailableQuantity)

	page, err := r.ListAccessRequests(ctx, AccessRequestQuery{OwnerID: owner.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
}

func Test_CreateAccessRequest_FeeSnapshotSurvivesPriceChange(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	owner := seedUser(t, r, models.RoleAdministrator)
	asset := seedAsset(t, r, owner, 2)

	req, err := borrow(t, r, asset, seedUser(t, r, models.RoleStudent))
	require.NoError(t, err)

	fee := 99.0
	_, err = r.UpdateAsset(ctx, owner.Actor(), asset.ID, AssetPatch{AccessFee: &fee})
	require.NoError(t, err)

	got, err := r.FindAccessRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 25.0, got.AccessFee)
}

func Test_CreateAccessRequest_Rejections(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	owner := seedUser(t, r, models.RoleAdministrator)
	student := seedUser(t, r, models.RoleStudent)

	t.Run("missing asset", func(t *testing.T) {
		_, err := r.CreateAccessRequest(ctx, CreateAccessRequestInput{AssetID: "00000000-0000-0000-0000-000000000000", RequesterID: student.ID})
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("maintenance", func(t *testing.T) {
		asset := seedAsset(t, r, owner, 3)
		st := models.AssetMaintenance
		_, err := r.UpdateAsset(ctx, owner.Actor(), asset.ID, AssetPatch{Status: &st})
		require.NoError(t, err)

		_, err = borrow(t, r, asset, student)
		assert.ErrorIs(t, err, apperror.ErrAssetUnavailable)

		a, err := r.FindAssetByID(ctx, asset.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, a.AvailableQuantity)
	})

	t.Run("too long", func(t *testing.T) {
		asset := seedAsset(t, r, owner, 1)
		days := 1
		_, err := r.UpdateAsset(ctx, owner.Actor(), asset.ID, AssetPatch{MaxBorrowDurationDays: &days})
		require.NoError(t, err)

		_, err = borrow(t, r, asset, student)
		assert.Equal(t, apperror.KindValidation, apperror.From(err).Kind)
	})
}

func Test_CreateAccessRequest_ConcurrentClaimsNeverOversell(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	owner := seedUser(t, r, models.RoleAdministrator)
	asset := seedAsset(t, r, owner, 3)

	const callers = 10
	students := make([]models.User, callers)
	for i := range students {
		students[i] = seedUser(t, r, models.RoleStudent)
	}

	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(u models.User) {
			defer wg.Done()
			_, err := borrow(t, r, asset, u)
			errs <- err
		}(students[i])
	}
	wg.Wait()
	close(errs)

	var ok, outOfStock int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case apperror.From(err).Code == apperror.ErrOutOfStock.Code:
			outOfStock++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 3, ok)
	assert.Equal(t, 7, outOfStock)

	a, err := r.FindAssetByID(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, a.AvailableQuantity)
	assert.Equal(t, models.AssetBorrowed, a.Status)
}

func Test_TransitionAccessRequest_Lifecycle(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	owner := seedUser(t, r, models.RoleAdministrator)
	asset := seedAsset(t, r, owner, 1)
	req, err := borrow(t, r, asset, seedUser(t, r, models.RoleStudent))
	require.NoError(t, err)

	res, err := r.TransitionAccessRequest(ctx, owner.Actor(), req.ID, models.AccessApproved, "pick up at desk")
	require.NoError(t, err)
	assert.Equal(t, models.AccessPending, res.From)
	assert.Equal(t, "pick up at desk", res.Request.AdminNotes)
	require.NotNil(t, res.Request.ApproverID)
	assert.Equal(t, owner.ID, *res.Request.ApproverID)

	_, err = r.TransitionAccessRequest(ctx, owner.Actor(), req.ID, models.AccessActive, "")
	require.NoError(t, err)

	res, err = r.TransitionAccessRequest(ctx, owner.Actor(), req.ID, models.AccessReturned, "")
	require.NoError(t, err)
	assert.NotNil(t, res.Request.ActualReturnDate)
	assert.Equal(t, 1, res.Request.Asset.AvailableQuantity)
	assert.Equal(t, models.AssetAvailable, res.Request.Asset.Status)

	// 终态不能再动
	_, err = r.TransitionAccessRequest(ctx, owner.Actor(), req.ID, models.AccessActive, "")
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	a, err := r.FindAssetByID(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, a.AvailableQuantity)
}

func Test_TransitionAccessRequest_Guards(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	owner := seedUser(t, r, models.RoleAdministrator)
	stranger := seedUser(t, r, models.RoleAdministrator)
	super := seedUser(t, r, models.RoleAdmin)
	asset := seedAsset(t, r, owner, 2)
	req, err := borrow(t, r, asset, seedUser(t, r, models.RoleStudent))
	require.NoError(t, err)

	_, err = r.TransitionAccessRequest(ctx, stranger.Actor(), req.ID, models.AccessApproved, "")
	assert.Equal(t, apperror.KindForbidden, apperror.From(err).Kind)

	_, err = r.TransitionAccessRequest(ctx, owner.Actor(), req.ID, models.AccessPending, "")
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	_, err = r.TransitionAccessRequest(ctx, owner.Actor(), req.ID, models.AccessOverdue, "")
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	res, err := r.TransitionAccessRequest(ctx, super.Actor(), req.ID, models.AccessRejected, "damaged")
	require.NoError(t, err)
	assert.Equal(t, models.AccessRejected, res.Request.Status)
	assert.Equal(t, 2, res.Request.Asset.AvailableQuantity)

	_, err = r.TransitionAccessRequest(ctx, owner.Actor(), "00000000-0000-0000-0000-000000000000", models.AccessApproved, "")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func Test_CancelOwnAccessRequest(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	owner := seedUser(t, r, models.RoleAdministrator)
	student := seedUser(t, r, models.RoleStudent)
	asset := seedAsset(t, r, owner, 1)
	req, err := borrow(t, r, asset, student)
	require.NoError(t, err)

	_, err = r.CancelOwnAccessRequest(ctx, seedUser(t, r, models.RoleStudent).Actor(), req.ID, "")
	assert.Equal(t, apperror.KindForbidden, apperror.From(err).Kind)

	res, err := r.CancelOwnAccessRequest(ctx, student.Actor(), req.ID, "no longer needed")
	require.NoError(t, err)
	assert.Equal(t, models.AccessCancelled, res.Request.Status)
	assert.Equal(t, 1, res.Request.Asset.AvailableQuantity)

	_, err = r.CancelOwnAccessRequest(ctx, student.Actor(), req.ID, "")
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func Test_MarkOverdue_ChargesOnce(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	owner := seedUser(t, r, models.RoleAdministrator)
	asset := seedAsset(t, r, owner, 1)

	start := time.Now().UTC().Add(-72 * time.Hour)
	req, err := r.CreateAccessRequest(ctx, CreateAccessRequestInput{
		AssetID: asset.ID, RequesterID: seedUser(t, r, models.RoleStudent).ID,
		StartDate: start, ExpectedReturnDate: start.Add(48 * time.Hour),
	})
	require.NoError(t, err)
	_, err = r.TransitionAccessRequest(ctx, owner.Actor(), req.ID, models.AccessActive, "")
	require.NoError(t, err)

	now := time.Now().UTC()
	due, err := r.ListOverdueCandidates(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)

	got, flagged, err := r.MarkOverdue(ctx, req.ID, 10, now)
	require.NoError(t, err)
	require.True(t, flagged)
	assert.Equal(t, models.AccessOverdue, got.Status)
	assert.Equal(t, 10.0, got.LateFee)

	_, flagged, err = r.MarkOverdue(ctx, req.ID, 10, now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, flagged)

	got, err = r.FindAccessRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got.LateFee)

	// Overdue 只能归还
	res, err := r.TransitionAccessRequest(ctx, owner.Actor(), req.ID, models.AccessReturned, "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Request.Asset.AvailableQuantity)
}

func Test_ListDueSoon(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	owner := seedUser(t, r, models.RoleAdministrator)
	asset := seedAsset(t, r, owner, 3)
	now := time.Now().UTC()

	mk := func(due time.Time) string {
		req, err := r.CreateAccessRequest(ctx, CreateAccessRequestInput{
			AssetID: asset.ID, RequesterID: seedUser(t, r, models.RoleStudent).ID,
			StartDate: now.Add(-time.Hour), ExpectedReturnDate: due,
		})
		require.NoError(t, err)
		_, err = r.TransitionAccessRequest(ctx, owner.Actor(), req.ID, models.AccessActive, "")
		require.NoError(t, err)
		return req.ID
	}
	soon := mk(now.Add(3 * time.Hour))
	mk(now.Add(72 * time.Hour))

	got, err := r.ListDueSoon(ctx, now, 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, soon, got[0].ID)
	require.NotNil(t, got[0].Asset)
}

func Test_RecordPayment(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	owner := seedUser(t, r, models.RoleAdministrator)
	student := seedUser(t, r, models.RoleStudent)
	asset := seedAsset(t, r, owner, 1)
	req, err := borrow(t, r, asset, student)
	require.NoError(t, err)

	got, _, err := r.RecordPayment(ctx, RecordPaymentInput{RequestID: req.ID, PayerID: student.ID, Amount: 10, Provider: models.ProviderCash, Reference: "cash-1"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPartial, got.PaymentStatus)

	got, _, err = r.RecordPayment(ctx, RecordPaymentInput{RequestID: req.ID, PayerID: student.ID, Amount: 15, Provider: models.ProviderCash, Reference: "cash-2"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, 25.0, got.TotalAmountPaid)

	_, _, err = r.RecordPayment(ctx, RecordPaymentInput{RequestID: req.ID, PayerID: student.ID, Amount: 1, Provider: models.ProviderCash, Reference: "cash-2"})
	assert.ErrorIs(t, err, apperror.ErrPaymentRejected)

	pays, err := r.ListPayments(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, pays, 2)
}
