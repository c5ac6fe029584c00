package services

import (
	"context"

	"github.com/bhumi3292/VaultLease-sub001/apperror"
	"github.com/bhumi3292/VaultLease-sub001/models"
)

type PaymentClaim struct {
	RequestID string
	Payer     models.Actor
	Amount    float64
	Provider  models.PaymentProvider
	Reference string
}

// PaymentVerifier 外部支付网关的验证接口
type PaymentVerifier interface {
	Verify(ctx context.Context, claim PaymentClaim) error
}

// OfflineVerifier accepts owner-recorded cash and waivers. Gateway references
// cannot be confirmed without a gateway client, so they are rejected.
type OfflineVerifier struct{}

func (OfflineVerifier) Verify(_ context.Context, claim PaymentClaim) error {
	if claim.Provider.OwnerRecorded() {
		return nil
	}
	return apperror.ErrPaymentRejected.WithMessage("%s payment %q could not be verified", claim.Provider, claim.Reference)
}
