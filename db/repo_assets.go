package db

import (
	"context"
	"strings"

	"github.com/bhumi3292/VaultLease-sub001/apperror"
	"github.com/bhumi3292/VaultLease-sub001/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *Repo) CreateAsset(ctx context.Context, a *models.Asset) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.TotalQuantity < 1 {
		return apperror.Validation("totalQuantity must be at least 1")
	}
	// 新建时全部可借
	a.AvailableQuantity = a.TotalQuantity
	if !a.Status.Valid() {
		a.Status = models.AssetAvailable
	}
	a.Status = a.StatusForQuantity(a.AvailableQuantity)
	return r.DB.WithContext(ctx).Create(a).Error
}

func (r *Repo) FindAssetByID(ctx context.Context, id string) (*models.Asset, error) {
	var a models.Asset
	if err := r.DB.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

type AssetQuery struct {
	Q               string
	Category        string
	Department      string
	Status          models.AssetStatus
	AdministratorID string
	Page            int
	Size            int
}

type PagedAssets struct {
	Total  int64          `json:"total"`
	Assets []models.Asset `json:"assets"`
}

func (r *Repo) ListAssets(ctx context.Context, q AssetQuery) (*PagedAssets, error) {
	page, size := clampPage(q.Page, q.Size, 100)
	tx := r.DB.WithContext(ctx).Model(&models.Asset{})
	if s := strings.TrimSpace(q.Q); s != "" {
		pat := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("LOWER(name) LIKE ? OR LOWER(category) LIKE ?", pat, pat)
	}
	if q.Category != "" {
		tx = tx.Where("category = ?", q.Category)
	}
	if q.Department != "" {
		tx = tx.Where("department = ?", q.Department)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if q.AdministratorID != "" {
		tx = tx.Where("administrator_id = ?", q.AdministratorID)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, err
	}
	var out []models.Asset
	if err := tx.Order("created_at DESC").Offset((page - 1) * size).Limit(size).Find(&out).Error; err != nil {
		return nil, err
	}
	return &PagedAssets{Total: total, Assets: out}, nil
}

// AssetPatch 为 nil 的字段不修改
type AssetPatch struct {
	Name                  *string
	Category              *string
	Description           *string
	Department            *string
	TotalQuantity         *int
	Status                *models.AssetStatus
	AccessFee             *float64
	LateFeePerDay         *float64
	MaxBorrowDurationDays *int
	Images                []string
}

// UpdateAsset 锁行后修改；总量变化时按差值调整可借数量
func (r *Repo) UpdateAsset(ctx context.Context, actor models.Actor, id string, p AssetPatch) (*models.Asset, error) {
	var a models.Asset
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&a, "id = ?", id).Error; err != nil {
			return err
		}
		if !actor.Owns(a.AdministratorID) {
			return apperror.Forbidden("you do not manage this asset")
		}
		if p.Name != nil {
			a.Name = *p.Name
		}
		if p.Category != nil {
			a.Category = *p.Category
		}
		if p.Description != nil {
			a.Description = *p.Description
		}
		if p.Department != nil {
			a.Department = *p.Department
		}
		if p.AccessFee != nil {
			a.AccessFee = *p.AccessFee
		}
		if p.LateFeePerDay != nil {
			a.LateFeePerDay = *p.LateFeePerDay
		}
		if p.MaxBorrowDurationDays != nil {
			a.MaxBorrowDurationDays = *p.MaxBorrowDurationDays
		}
		if p.Images != nil {
			a.Images = datatypes.JSONSlice[string](p.Images)
		}
		if p.TotalQuantity != nil {
			total := *p.TotalQuantity
			if total < 1 {
				return apperror.Validation("totalQuantity must be at least 1")
			}
			avail := a.AvailableQuantity + (total - a.TotalQuantity)
			if avail < 0 {
				return apperror.Validation("totalQuantity cannot drop below the number of units on loan")
			}
			a.TotalQuantity, a.AvailableQuantity = total, avail
		}
		if p.Status != nil {
			if !p.Status.Valid() {
				return apperror.ErrInvalidStatus.WithMessage("unknown asset status %q", *p.Status)
			}
			a.Status = *p.Status
		}
		a.Status = a.StatusForQuantity(a.AvailableQuantity)
		a.UpdatedAt = r.now()
		return tx.Save(&a).Error
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// DeleteAsset 仍有未结借用时拒绝；历史借用记录保留
func (r *Repo) DeleteAsset(ctx context.Context, actor models.Actor, id string) (*models.Asset, error) {
	var a models.Asset
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&a, "id = ?", id).Error; err != nil {
			return err
		}
		if !actor.Owns(a.AdministratorID) {
			return apperror.Forbidden("you do not manage this asset")
		}
		var n int64
		if err := tx.Model(&models.AccessRequest{}).
			Where("asset_id = ? AND status IN ?", id, models.OutstandingAccessStatuses()).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperror.ErrHasActiveRequests.WithMessage("asset has %d outstanding access requests", n)
		}
		return tx.Delete(&models.Asset{}, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}
