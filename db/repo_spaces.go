package db

import (
	"context"
	"strings"

	"github.com/bhumi3292/VaultLease-sub001/apperror"
	"github.com/bhumi3292/VaultLease-sub001/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *Repo) CreateSpace(ctx context.Context, s *models.Space) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Capacity < 0 {
		return apperror.Validation("capacity must not be negative")
	}
	return r.DB.WithContext(ctx).Create(s).Error
}

func (r *Repo) FindSpaceByID(ctx context.Context, id string) (*models.Space, error) {
	var s models.Space
	if err := r.DB.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

type SpaceQuery struct {
	Q            string
	DepartmentID string
	ManagerID    string
	Page         int
	Size         int
}

type PagedSpaces struct {
	Total  int64          `json:"total"`
	Spaces []models.Space `json:"spaces"`
}

func (r *Repo) ListSpaces(ctx context.Context, q SpaceQuery) (*PagedSpaces, error) {
	page, size := clampPage(q.Page, q.Size, 100)
	tx := r.DB.WithContext(ctx).Model(&models.Space{})
	if s := strings.TrimSpace(q.Q); s != "" {
		pat := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("LOWER(room_name) LIKE ? OR LOWER(location) LIKE ?", pat, pat)
	}
	if q.DepartmentID != "" {
		tx = tx.Where("department_id = ?", q.DepartmentID)
	}
	if q.ManagerID != "" {
		tx = tx.Where("manager_id = ?", q.ManagerID)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, err
	}
	var out []models.Space
	if err := tx.Order("created_at DESC").Offset((page - 1) * size).Limit(size).Find(&out).Error; err != nil {
		return nil, err
	}
	return &PagedSpaces{Total: total, Spaces: out}, nil
}

// DeleteSpace 有活动预约（时段或容量）时拒绝；同时清理该空间的可预约时段
func (r *Repo) DeleteSpace(ctx context.Context, actor models.Actor, id string) (*models.Space, error) {
	var s models.Space
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&s, "id = ?", id).Error; err != nil {
			return err
		}
		if !actor.Owns(s.ManagerID) {
			return apperror.Forbidden("you do not manage this space")
		}
		var n int64
		if err := tx.Model(&models.Booking{}).
			Where("property_id = ? AND status IN ?", id, models.ActiveBookingStatuses()).
			Count(&n).Error; err != nil {
			return err
		}
		var m int64
		if err := tx.Model(&models.CapacityBooking{}).
			Where("space_id = ? AND status IN ?", id, []models.CapacityStatus{models.CapacityPending, models.CapacityConfirmed}).
			Count(&m).Error; err != nil {
			return err
		}
		if n+m > 0 {
			return apperror.ErrHasActiveBookings.WithMessage("space has %d active bookings", n+m)
		}
		avIDs := tx.Model(&models.Availability{}).Select("id").Where("property_id = ?", id)
		if err := tx.Where("availability_id IN (?)", avIDs).Delete(&models.AvailabilitySlot{}).Error; err != nil {
			return err
		}
		if err := tx.Where("property_id = ?", id).Delete(&models.Availability{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Space{}, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}
