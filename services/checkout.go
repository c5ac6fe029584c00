package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bhumi3292/VaultLease-sub001/apperror"
	"github.com/bhumi3292/VaultLease-sub001/db"
	"github.com/bhumi3292/VaultLease-sub001/mailer"
	"github.com/bhumi3292/VaultLease-sub001/models"

	"github.com/google/uuid"
)

// CheckoutService 借用请求生命周期
type CheckoutService struct {
	repo     *db.Repo
	notify   *Notifier
	verifier PaymentVerifier
}

func NewCheckoutService(repo *db.Repo, notify *Notifier, verifier PaymentVerifier) *CheckoutService {
	if verifier == nil {
		verifier = OfflineVerifier{}
	}
	return &CheckoutService{repo: repo, notify: notify, verifier: verifier}
}

type CreateAccessInput struct {
	AssetID            string
	StartDate          time.Time
	ExpectedReturnDate time.Time
	Notes              string
}

func (s *CheckoutService) Create(ctx context.Context, actor models.Actor, in CreateAccessInput) (*models.AccessRequest, error) {
	if in.AssetID == "" {
		return nil, apperror.Validation("assetId is required")
	}
	if !in.ExpectedReturnDate.After(in.StartDate) {
		return nil, apperror.Validation("expectedReturnDate must be after startDate")
	}
	req, err := s.repo.CreateAccessRequest(ctx, db.CreateAccessRequestInput{
		AssetID:            in.AssetID,
		RequesterID:        actor.ID,
		StartDate:          in.StartDate,
		ExpectedReturnDate: in.ExpectedReturnDate,
		Notes:              in.Notes,
	})
	if err != nil {
		return nil, notFoundAs(err, "asset")
	}

	s.notify.Audit(ctx, db.AuditEntry{
		Actor:    actor,
		Action:   models.AuditRequestInitiated,
		Entity:   "AccessRequest",
		EntityID: req.ID,
		Details:  map[string]any{"assetId": req.AssetID, "accessFee": req.AccessFee},
	})
	if req.Asset != nil {
		s.notify.Notify(ctx, Note{
			UserID:   req.Asset.AdministratorID,
			Type:     "access_request",
			Title:    "New access request",
			Message:  fmt.Sprintf("%s requested %s", actor.Name, req.Asset.Name),
			Entity:   "AccessRequest",
			EntityID: req.ID,
		})
	}
	return req, nil
}

func (s *CheckoutService) UpdateStatus(ctx context.Context, actor models.Actor, id, status, adminNotes string) (*models.AccessRequest, error) {
	to, err := models.ParseAccessStatus(status)
	if err != nil {
		return nil, err
	}
	res, err := s.repo.TransitionAccessRequest(ctx, actor, id, to, strings.TrimSpace(adminNotes))
	if err != nil {
		return nil, notFoundAs(err, "access request")
	}
	s.afterTransition(ctx, actor, res, adminNotes)
	return res.Request, nil
}

// CancelOwn 申请人撤回 Pending 请求
func (s *CheckoutService) CancelOwn(ctx context.Context, actor models.Actor, id, reason string) (*models.AccessRequest, error) {
	res, err := s.repo.CancelOwnAccessRequest(ctx, actor, id, strings.TrimSpace(reason))
	if err != nil {
		return nil, notFoundAs(err, "access request")
	}
	s.afterTransition(ctx, actor, res, reason)
	return res.Request, nil
}

func (s *CheckoutService) afterTransition(ctx context.Context, actor models.Actor, res *db.TransitionResult, reason string) {
	req := res.Request
	s.notify.Audit(ctx, db.AuditEntry{
		Actor:    actor,
		Action:   models.AuditRequestStatusChanged,
		Entity:   "AccessRequest",
		EntityID: req.ID,
		Details:  map[string]any{"from": res.From, "to": req.Status, "notes": reason},
	})

	assetName := "your item"
	if req.Asset != nil {
		assetName = req.Asset.Name
	}
	// 申请人自己撤回不用再通知他
	if actor.ID == req.RequesterID {
		return
	}
	email, name := s.notify.contact(ctx, req.RequesterID)
	switch req.Status {
	case models.AccessApproved, models.AccessActive, models.AccessReturned:
		reason = ""
	}
	s.notify.Email(ctx, mailer.AccessStatus(s.notify.AppName, email, name, assetName, string(req.Status), reason))
	s.notify.Notify(ctx, Note{
		UserID:   req.RequesterID,
		Type:     "access_request_status",
		Title:    fmt.Sprintf("Request %s", strings.ToLower(string(req.Status))),
		Message:  fmt.Sprintf("Your request for %s is now %s.", assetName, req.Status),
		Entity:   "AccessRequest",
		EntityID: req.ID,
	})
}

// Get 申请人、资产管理者和超级管理员可见
func (s *CheckoutService) Get(ctx context.Context, actor models.Actor, id string) (*models.AccessRequest, error) {
	req, err := s.repo.FindAccessRequest(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "access request")
	}
	if req.RequesterID == actor.ID {
		return req, nil
	}
	owner := ""
	if req.Asset != nil {
		owner = req.Asset.AdministratorID
	}
	if !actor.Owns(owner) {
		return nil, apperror.Forbidden("you cannot view this request")
	}
	return req, nil
}

func (s *CheckoutService) ListMine(ctx context.Context, actor models.Actor, status string, page, size int) (*db.PagedAccessRequests, error) {
	st, err := optionalAccessStatus(status)
	if err != nil {
		return nil, err
	}
	return s.repo.ListAccessRequests(ctx, db.AccessRequestQuery{RequesterID: actor.ID, Status: st, Page: page, Size: size})
}

// ListManaged 管理者看自己资产上的请求；超级管理员看全部
func (s *CheckoutService) ListManaged(ctx context.Context, actor models.Actor, status string, page, size int) (*db.PagedAccessRequests, error) {
	st, err := optionalAccessStatus(status)
	if err != nil {
		return nil, err
	}
	q := db.AccessRequestQuery{Status: st, Page: page, Size: size}
	if !actor.Role.IsSuperAdmin() {
		q.OwnerID = actor.ID
	}
	return s.repo.ListAccessRequests(ctx, q)
}

type PaymentInput struct {
	Amount    float64
	Provider  string
	Reference string
}

// RecordPayment 现金/减免只能由资产管理者录入；网关付款由申请人提交并经过验证
func (s *CheckoutService) RecordPayment(ctx context.Context, actor models.Actor, id string, in PaymentInput) (*models.AccessRequest, error) {
	provider := models.PaymentProvider(strings.ToLower(strings.TrimSpace(in.Provider)))
	if !provider.Valid() {
		return nil, apperror.Validation("provider must be one of khalti, esewa, cash, waiver")
	}
	if in.Amount < 0 || (in.Amount == 0 && provider != models.ProviderWaiver) {
		return nil, apperror.Validation("amount must be positive")
	}
	req, err := s.repo.FindAccessRequest(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "access request")
	}
	owner := ""
	if req.Asset != nil {
		owner = req.Asset.AdministratorID
	}
	switch {
	case provider.OwnerRecorded() && !actor.Owns(owner):
		return nil, apperror.Forbidden("only the asset administrator can record cash payments or waivers")
	case !provider.OwnerRecorded() && actor.ID != req.RequesterID && !actor.Owns(owner):
		return nil, apperror.Forbidden("you cannot pay for this request")
	}
	ref := strings.TrimSpace(in.Reference)
	if ref == "" {
		if !provider.OwnerRecorded() {
			return nil, apperror.Validation("reference is required for gateway payments")
		}
		ref = string(provider) + "-" + uuid.NewString()
	}
	claim := PaymentClaim{RequestID: id, Payer: actor, Amount: in.Amount, Provider: provider, Reference: ref}
	if err := s.verifier.Verify(ctx, claim); err != nil {
		return nil, err
	}
	updated, pay, err := s.repo.RecordPayment(ctx, db.RecordPaymentInput{
		RequestID: id,
		PayerID:   actor.ID,
		Amount:    in.Amount,
		Provider:  provider,
		Reference: ref,
	})
	if err != nil {
		return nil, notFoundAs(err, "access request")
	}
	s.notify.Audit(ctx, db.AuditEntry{
		Actor:    actor,
		Action:   models.AuditPaymentRecorded,
		Entity:   "AccessRequest",
		EntityID: id,
		Details:  map[string]any{"paymentId": pay.ID, "amount": pay.Amount, "provider": pay.Provider, "paymentStatus": updated.PaymentStatus},
	})
	return updated, nil
}

func (s *CheckoutService) Payments(ctx context.Context, actor models.Actor, id string) ([]models.Payment, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.repo.ListPayments(ctx, id)
}

func optionalAccessStatus(s string) (models.AccessStatus, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	return models.ParseAccessStatus(s)
}
