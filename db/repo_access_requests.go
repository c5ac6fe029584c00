package db

import (
	"context"
	"time"

	"github.com/bhumi3292/VaultLease-sub001/apperror"
	"github.com/bhumi3292/VaultLease-sub001/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CreateAccessRequestInput struct {
	AssetID            string
	RequesterID        string
	StartDate          time.Time
	ExpectedReturnDate time.Time
	Notes              string
}

// CreateAccessRequest 原子操作 = 条件扣减库存 → 同步状态 → 新建请求（费用快照）
func (r *Repo) CreateAccessRequest(ctx context.Context, in CreateAccessRequestInput) (*models.AccessRequest, error) {
	var req *models.AccessRequest
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a models.Asset
		if err := tx.First(&a, "id = ?", in.AssetID).Error; err != nil {
			return err
		}
		if !a.Checkoutable() {
			return apperror.ErrAssetUnavailable.WithMessage("asset is %s", a.Status)
		}
		if a.MaxBorrowDurationDays > 0 {
			limit := in.StartDate.AddDate(0, 0, a.MaxBorrowDurationDays)
			if in.ExpectedReturnDate.After(limit) {
				return apperror.Validation("borrow period exceeds the asset's maximum duration")
			}
		}
		now := r.now()
		if err := reserveUnit(tx, assetUnits, a.ID, now); err != nil {
			return err
		}
		if err := syncAssetStatus(tx, a.ID); err != nil {
			return err
		}

		req = &models.AccessRequest{
			ID:                 uuid.NewString(),
			AssetID:            a.ID,
			RequesterID:        in.RequesterID,
			StartDate:          in.StartDate.UTC(),
			ExpectedReturnDate: in.ExpectedReturnDate.UTC(),
			Status:             models.AccessPending,
			AccessFee:          a.AccessFee,
			PaymentStatus:      models.PaymentUnpaid,
			RequestNotes:       in.Notes,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		return tx.Create(req).Error
	})
	if err != nil {
		return nil, err
	}
	return r.FindAccessRequest(ctx, req.ID)
}

func (r *Repo) FindAccessRequest(ctx context.Context, id string) (*models.AccessRequest, error) {
	var req models.AccessRequest
	if err := r.DB.WithContext(ctx).Preload("Asset").First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// TransitionResult 携带迁移前状态，供事务提交后的通知使用
type TransitionResult struct {
	Request *models.AccessRequest
	From    models.AccessStatus
}

type transitionAuth func(req *models.AccessRequest, asset *models.Asset) error

// TransitionAccessRequest 由资产管理者（或超级管理员）推进状态
func (r *Repo) TransitionAccessRequest(ctx context.Context, actor models.Actor, id string, to models.AccessStatus, adminNotes string) (*TransitionResult, error) {
	return r.transitionAccessRequest(ctx, actor, id, to, adminNotes, func(_ *models.AccessRequest, a *models.Asset) error {
		if !actor.Owns(a.AdministratorID) {
			return apperror.Forbidden("you do not manage this asset")
		}
		return nil
	})
}

// CancelOwnAccessRequest 申请人撤回自己仍在 Pending 的请求
func (r *Repo) CancelOwnAccessRequest(ctx context.Context, actor models.Actor, id, reason string) (*TransitionResult, error) {
	return r.transitionAccessRequest(ctx, actor, id, models.AccessCancelled, reason, func(req *models.AccessRequest, _ *models.Asset) error {
		if req.RequesterID != actor.ID {
			return apperror.Forbidden("you can only cancel your own requests")
		}
		if req.Status != models.AccessPending {
			return apperror.ErrInvalidTransition.WithMessage("only Pending requests can be withdrawn")
		}
		return nil
	})
}

func (r *Repo) transitionAccessRequest(ctx context.Context, actor models.Actor, id string, to models.AccessStatus, notes string, authorize transitionAuth) (*TransitionResult, error) {
	out := &TransitionResult{}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1) 锁住请求行，串行化同一请求上的并发迁移
		var req models.AccessRequest
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, "id = ?", id).Error; err != nil {
			return err
		}
		var a models.Asset
		if err := tx.First(&a, "id = ?", req.AssetID).Error; err != nil {
			return err
		}
		if err := authorize(&req, &a); err != nil {
			return err
		}
		// 2) 校验迁移边
		if req.Status == to {
			return apperror.ErrInvalidTransition.WithMessage("access request is already %s", to)
		}
		if err := models.CheckAccessTransition(req.Status, to, actor); err != nil {
			return err
		}

		now := r.now()
		out.From = req.Status
		updates := map[string]any{"status": to, "updated_at": now}
		if notes != "" {
			updates["admin_notes"] = notes
		}
		switch to {
		case models.AccessApproved, models.AccessActive:
			if actor.ID != "" {
				updates["approver_id"] = actor.ID
			}
		case models.AccessReturned:
			updates["actual_return_date"] = now
		}
		if err := tx.Model(&models.AccessRequest{}).Where("id = ?", req.ID).Updates(updates).Error; err != nil {
			return err
		}
		// 3) 进入终态则归还库存
		if models.ReleasesUnit(req.Status, to) {
			if err := releaseUnit(tx, assetUnits, a.ID, now); err != nil {
				return err
			}
			if err := syncAssetStatus(tx, a.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	req, err := r.FindAccessRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	out.Request = req
	return out, nil
}

// MarkOverdue 条件迁移 Active → Overdue 并加滞纳金；已是 Overdue 的不会重复计费
func (r *Repo) MarkOverdue(ctx context.Context, id string, fee float64, now time.Time) (*models.AccessRequest, bool, error) {
	var flagged bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.AccessRequest{}).
			Where("id = ? AND status = ? AND expected_return_date < ?", id, models.AccessActive, now.UTC()).
			Updates(map[string]any{
				"status":     models.AccessOverdue,
				"late_fee":   gorm.Expr("late_fee + ?", fee),
				"updated_at": now.UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		flagged = true

		// 应付金额变了，付款状态跟着重算
		var req models.AccessRequest
		if err := tx.First(&req, "id = ?", id).Error; err != nil {
			return err
		}
		ps := req.PaymentStatusFor(req.TotalAmountPaid)
		if ps == req.PaymentStatus {
			return nil
		}
		return tx.Model(&models.AccessRequest{}).Where("id = ?", id).Update("payment_status", ps).Error
	})
	if err != nil || !flagged {
		return nil, false, err
	}
	req, err := r.FindAccessRequest(ctx, id)
	if err != nil {
		return nil, true, err
	}
	return req, true, nil
}

// ListOverdueCandidates Active 且应还时间已过
func (r *Repo) ListOverdueCandidates(ctx context.Context, now time.Time) ([]models.AccessRequest, error) {
	var out []models.AccessRequest
	err := r.DB.WithContext(ctx).
		Where("status = ? AND expected_return_date < ?", models.AccessActive, now.UTC()).
		Order("expected_return_date ASC").
		Find(&out).Error
	return out, err
}

// ListDueSoon Active 且在 [now, now+window) 内到期
func (r *Repo) ListDueSoon(ctx context.Context, now time.Time, window time.Duration) ([]models.AccessRequest, error) {
	var out []models.AccessRequest
	err := r.DB.WithContext(ctx).Preload("Asset").
		Where("status = ? AND expected_return_date >= ? AND expected_return_date < ?",
			models.AccessActive, now.UTC(), now.UTC().Add(window)).
		Order("expected_return_date ASC").
		Find(&out).Error
	return out, err
}

type AccessRequestQuery struct {
	RequesterID string
	// OwnerID 过滤资产管理者；为空表示不过滤（超级管理员）
	OwnerID string
	Status  models.AccessStatus
	Page    int
	Size    int
}

type PagedAccessRequests struct {
	Total    int64                  `json:"total"`
	Requests []models.AccessRequest `json:"requests"`
}

func (r *Repo) ListAccessRequests(ctx context.Context, q AccessRequestQuery) (*PagedAccessRequests, error) {
	page, size := clampPage(q.Page, q.Size, 100)
	tx := r.DB.WithContext(ctx).Model(&models.AccessRequest{})
	if q.RequesterID != "" {
		tx = tx.Where("requester_id = ?", q.RequesterID)
	}
	if q.OwnerID != "" {
		sub := r.DB.WithContext(ctx).Model(&models.Asset{}).Select("id").Where("administrator_id = ?", q.OwnerID)
		tx = tx.Where("asset_id IN (?)", sub)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, err
	}
	var out []models.AccessRequest
	if err := tx.Preload("Asset").Order("created_at DESC").
		Offset((page - 1) * size).Limit(size).Find(&out).Error; err != nil {
		return nil, err
	}
	return &PagedAccessRequests{Total: total, Requests: out}, nil
}

type RecordPaymentInput struct {
	RequestID string
	PayerID   string
	Amount    float64
	Provider  models.PaymentProvider
	Reference string
}

// RecordPayment 记一笔已验证的付款并重算累计金额
func (r *Repo) RecordPayment(ctx context.Context, in RecordPaymentInput) (*models.AccessRequest, *models.Payment, error) {
	var pay *models.Payment
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req models.AccessRequest
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, "id = ?", in.RequestID).Error; err != nil {
			return err
		}
		now := r.now()
		pay = &models.Payment{
			ID:              uuid.NewString(),
			AccessRequestID: req.ID,
			PayerID:         in.PayerID,
			Amount:          in.Amount,
			Provider:        in.Provider,
			Reference:       in.Reference,
			CreatedAt:       now,
		}
		if err := tx.Create(pay).Error; err != nil {
			if apperror.IsUniqueViolation(err) {
				return apperror.ErrPaymentRejected.WithMessage("payment reference already recorded")
			}
			return err
		}
		paid := req.TotalAmountPaid + in.Amount
		status := req.PaymentStatusFor(paid)
		if in.Provider == models.ProviderWaiver {
			status = models.PaymentWaived
		}
		return tx.Model(&models.AccessRequest{}).Where("id = ?", req.ID).Updates(map[string]any{
			"total_amount_paid": paid,
			"payment_status":    status,
			"updated_at":        now,
		}).Error
	})
	if err != nil {
		return nil, nil, err
	}
	req, err := r.FindAccessRequest(ctx, in.RequestID)
	if err != nil {
		return nil, nil, err
	}
	return req, pay, nil
}

func (r *Repo) ListPayments(ctx context.Context, requestID string) ([]models.Payment, error) {
	var out []models.Payment
	err := r.DB.WithContext(ctx).Where("access_request_id = ?", requestID).Order("created_at ASC").Find(&out).Error
	return out, err
}
