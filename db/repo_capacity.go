package db

import (
	"context"

	"github.com/bhumi3292/VaultLease-sub001/apperror"
	"github.com/bhumi3292/VaultLease-sub001/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateCapacityBooking 占用空间一个容量单位并记录预约
func (r *Repo) CreateCapacityBooking(ctx context.Context, tenantID, spaceID, notes string) (*models.CapacityBooking, error) {
	var b *models.CapacityBooking
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s models.Space
		if err := tx.First(&s, "id = ?", spaceID).Error; err != nil {
			return err
		}
		now := r.now()
		if err := reserveUnit(tx, spaceUnits, s.ID, now); err != nil {
			return err
		}
		b = &models.CapacityBooking{
			ID:         uuid.NewString(),
			SpaceID:    s.ID,
			TenantID:   tenantID,
			LandlordID: s.ManagerID,
			Status:     models.CapacityPending,
			Notes:      notes,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return tx.Create(b).Error
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

type CapacityTransition struct {
	Booking *models.CapacityBooking
	From    models.CapacityStatus
}

// UpdateCapacityBookingStatus 离开活动状态时归还容量
func (r *Repo) UpdateCapacityBookingStatus(ctx context.Context, actor models.Actor, id string, to models.CapacityStatus) (*CapacityTransition, error) {
	out := &CapacityTransition{}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b models.CapacityBooking
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&b, "id = ?", id).Error; err != nil {
			return err
		}
		if !actor.Owns(b.LandlordID) {
			return apperror.Forbidden("only the space manager can change this booking")
		}
		if err := models.CheckCapacityTransition(b.Status, to); err != nil {
			return err
		}
		now := r.now()
		if err := tx.Model(&models.CapacityBooking{}).Where("id = ?", b.ID).
			Updates(map[string]any{"status": to, "updated_at": now}).Error; err != nil {
			return err
		}
		if b.Status.Active() && !to.Active() {
			if err := releaseUnit(tx, spaceUnits, b.SpaceID, now); err != nil {
				return err
			}
		}
		out.From = b.Status
		b.Status, b.UpdatedAt = to, now
		out.Booking = &b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) ListCapacityBookings(ctx context.Context, spaceID, tenantID string) ([]models.CapacityBooking, error) {
	q := r.DB.WithContext(ctx)
	if spaceID != "" {
		q = q.Where("space_id = ?", spaceID)
	}
	if tenantID != "" {
		q = q.Where("tenant_id = ?", tenantID)
	}
	var out []models.CapacityBooking
	err := q.Order("created_at DESC").Find(&out).Error
	return out, err
}
