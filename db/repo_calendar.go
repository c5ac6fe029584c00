package db

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/bhumi3292/VaultLease-sub001/apperror"
	"github.com/bhumi3292/VaultLease-sub001/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PublishResult struct {
	Availability *models.Availability
	Created      bool
	// Skipped 已被活动预约占用、没有重新开放的时段
	Skipped []string
}

// PublishAvailability 新建或合并某空间某天的可预约时段
func (r *Repo) PublishAvailability(ctx context.Context, actor models.Actor, propertyID string, date time.Time, slots []string) (*PublishResult, error) {
	slots = models.CleanSlots(slots)
	if len(slots) == 0 {
		return nil, apperror.Validation("timeSlots must contain at least one non-empty slot")
	}
	date = models.NormalizeDate(date)
	dateKey := date.Format(models.DateLayout)

	out := &PublishResult{}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s models.Space
		if err := tx.First(&s, "id = ?", propertyID).Error; err != nil {
			return err
		}
		if !actor.Owns(s.ManagerID) {
			return apperror.Forbidden("you do not manage this space")
		}
		booked, err := activeBookedSlots(tx, propertyID, dateKey)
		if err != nil {
			return err
		}
		var fresh []string
		for _, slot := range slots {
			if _, ok := booked[slot]; ok {
				out.Skipped = append(out.Skipped, slot)
				continue
			}
			fresh = append(fresh, slot)
		}

		var av models.Availability
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("landlord_id = ? AND property_id = ? AND date = ?", s.ManagerID, propertyID, date).
			First(&av).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if len(fresh) == 0 {
				return apperror.ErrAllSlotsConflict
			}
			now := r.now()
			av = models.Availability{
				ID:         uuid.NewString(),
				LandlordID: s.ManagerID,
				PropertyID: propertyID,
				Date:       date,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := tx.Create(&av).Error; err != nil {
				return err
			}
			out.Created = true
		case err != nil:
			return err
		default:
			if err := tx.Model(&av).Update("updated_at", r.now()).Error; err != nil {
				return err
			}
		}
		if err := offerSlots(tx, av.ID, fresh); err != nil {
			return err
		}
		if av.TimeSlots, err = offeredSlots(tx, av.ID); err != nil {
			return err
		}
		out.Availability = &av
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateAvailability 整体替换开放的时段；不能去掉已被活动预约占用的时段，全部或全不应用
func (r *Repo) UpdateAvailability(ctx context.Context, actor models.Actor, id string, slots []string) (*models.Availability, error) {
	slots = models.CleanSlots(slots)
	var av models.Availability
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&av, "id = ?", id).Error; err != nil {
			return err
		}
		if err := r.authorizeAvailability(tx, actor, &av); err != nil {
			return err
		}
		booked, err := activeBookedSlots(tx, av.PropertyID, av.DateKey())
		if err != nil {
			return err
		}
		keep := make(map[string]struct{}, len(slots))
		for _, s := range slots {
			keep[s] = struct{}{}
		}
		for s := range booked {
			if _, ok := keep[s]; !ok {
				return apperror.ErrSlotInUse.WithMessage("slot %s has an active booking", s)
			}
		}
		if err := tx.Where("availability_id = ?", av.ID).Delete(&models.AvailabilitySlot{}).Error; err != nil {
			return err
		}
		var fresh []string
		for _, s := range slots {
			if _, ok := booked[s]; !ok {
				fresh = append(fresh, s)
			}
		}
		if err := offerSlots(tx, av.ID, fresh); err != nil {
			return err
		}
		if err := tx.Model(&av).Update("updated_at", r.now()).Error; err != nil {
			return err
		}
		av.TimeSlots, err = offeredSlots(tx, av.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &av, nil
}

// DeleteAvailability 当天任一时段有活动预约即拒绝
func (r *Repo) DeleteAvailability(ctx context.Context, actor models.Actor, id string) (*models.Availability, error) {
	var av models.Availability
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&av, "id = ?", id).Error; err != nil {
			return err
		}
		if err := r.authorizeAvailability(tx, actor, &av); err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.Booking{}).
			Where("property_id = ? AND date = ? AND status IN ?", av.PropertyID, av.DateKey(), models.ActiveBookingStatuses()).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperror.ErrHasActiveBookings.WithMessage("%d active bookings on %s", n, av.DateKey())
		}
		if err := tx.Where("availability_id = ?", av.ID).Delete(&models.AvailabilitySlot{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Availability{}, "id = ?", av.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &av, nil
}

func (r *Repo) authorizeAvailability(tx *gorm.DB, actor models.Actor, av *models.Availability) error {
	if actor.Owns(av.LandlordID) {
		return nil
	}
	var s models.Space
	if err := tx.First(&s, "id = ?", av.PropertyID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if s.ID != "" && actor.Owns(s.ManagerID) {
		return nil
	}
	return apperror.Forbidden("you do not manage this availability")
}

func (r *Repo) FindAvailability(ctx context.Context, id string) (*models.Availability, error) {
	var av models.Availability
	db := r.DB.WithContext(ctx)
	if err := db.First(&av, "id = ?", id).Error; err != nil {
		return nil, err
	}
	var err error
	av.TimeSlots, err = offeredSlots(db, av.ID)
	return &av, err
}

// ListAvailabilities 按空间与日期区间（含两端）；from/to 为零值时不限
func (r *Repo) ListAvailabilities(ctx context.Context, propertyID string, from, to time.Time) ([]models.Availability, error) {
	db := r.DB.WithContext(ctx)
	q := db.Model(&models.Availability{})
	if propertyID != "" {
		q = q.Where("property_id = ?", propertyID)
	}
	if !from.IsZero() {
		q = q.Where("date >= ?", models.NormalizeDate(from))
	}
	if !to.IsZero() {
		q = q.Where("date <= ?", models.NormalizeDate(to))
	}
	var out []models.Availability
	if err := q.Order("date ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}
	ids := make([]string, len(out))
	for i := range out {
		ids[i] = out[i].ID
	}
	var rows []models.AvailabilitySlot
	if err := db.Where("availability_id IN ?", ids).Order("time_slot ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	byAv := make(map[string][]string, len(out))
	for _, row := range rows {
		byAv[row.AvailabilityID] = append(byAv[row.AvailabilityID], row.TimeSlot)
	}
	for i := range out {
		out[i].TimeSlots = byAv[out[i].ID]
		if out[i].TimeSlots == nil {
			out[i].TimeSlots = []string{}
		}
	}
	return out, nil
}

type BookSlotInput struct {
	TenantID   string
	PropertyID string
	Date       time.Time
	TimeSlot   string
}

// BookSlot 原子操作 = 冲突检查 → 新建 pending 预约 → 条件删除时段行（领取）
func (r *Repo) BookSlot(ctx context.Context, in BookSlotInput) (*models.Booking, error) {
	date := models.NormalizeDate(in.Date)
	dateKey := date.Format(models.DateLayout)
	var b *models.Booking
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1) 已有活动预约：同一租户重复 / 别人已订
		var holders []models.Booking
		if err := tx.Where("property_id = ? AND date = ? AND time_slot = ? AND status IN ?",
			in.PropertyID, dateKey, in.TimeSlot, models.ActiveBookingStatuses()).
			Find(&holders).Error; err != nil {
			return err
		}
		for _, h := range holders {
			if h.TenantID == in.TenantID {
				return apperror.ErrDuplicateTenantBooking
			}
		}
		if len(holders) > 0 {
			return apperror.ErrSlotAlreadyBooked
		}

		// 2) 时段必须在当天开放列表中
		var av models.Availability
		err := tx.Model(&models.Availability{}).
			Select(models.AvailabilityTable+".*").
			Joins("JOIN "+models.AvailabilitySlotTable+" s ON s.availability_id = "+models.AvailabilityTable+".id").
			Where(models.AvailabilityTable+".property_id = ? AND "+models.AvailabilityTable+".date = ? AND s.time_slot = ?",
				in.PropertyID, date, in.TimeSlot).
			First(&av).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.ErrSlotUnavailable
		}
		if err != nil {
			return err
		}

		// 3) 房东取自 Availability 而不是 Space
		now := r.now()
		b = &models.Booking{
			ID:         uuid.NewString(),
			PropertyID: in.PropertyID,
			TenantID:   in.TenantID,
			LandlordID: av.LandlordID,
			Date:       dateKey,
			TimeSlot:   in.TimeSlot,
			Status:     models.BookingPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.Create(b).Error; err != nil {
			if apperror.IsUniqueViolation(err) {
				return apperror.ErrSlotAlreadyBooked
			}
			return err
		}

		// 4) 领取时段；0 行说明被并发领走了
		res := tx.Where("availability_id = ? AND time_slot = ?", av.ID, in.TimeSlot).Delete(&models.AvailabilitySlot{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperror.ErrSlotUnavailable
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *Repo) FindBooking(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	if err := r.DB.WithContext(ctx).Preload("Property").First(&b, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

type BookingTransition struct {
	Booking *models.Booking
	From    models.BookingStatus
}

// UpdateBookingStatus 房东推进预约状态；进入 rejected/cancelled 时归还时段
func (r *Repo) UpdateBookingStatus(ctx context.Context, actor models.Actor, id string, to models.BookingStatus) (*BookingTransition, error) {
	return r.transitionBooking(ctx, id, to, func(b *models.Booking) error {
		if !actor.Owns(b.LandlordID) {
			return apperror.Forbidden("only the landlord can change this booking")
		}
		return nil
	})
}

// CancelBooking 租户或房东都可以取消
func (r *Repo) CancelBooking(ctx context.Context, actor models.Actor, id string) (*BookingTransition, error) {
	return r.transitionBooking(ctx, id, models.BookingCancelled, func(b *models.Booking) error {
		if b.TenantID != actor.ID && !actor.Owns(b.LandlordID) {
			return apperror.Forbidden("only the tenant or the landlord can cancel this booking")
		}
		if !b.Status.Active() {
			return apperror.InvalidState("booking is already " + string(b.Status))
		}
		return nil
	})
}

func (r *Repo) transitionBooking(ctx context.Context, id string, to models.BookingStatus, authorize func(*models.Booking) error) (*BookingTransition, error) {
	out := &BookingTransition{}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b models.Booking
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&b, "id = ?", id).Error; err != nil {
			return err
		}
		if err := authorize(&b); err != nil {
			return err
		}
		if err := models.CheckBookingTransition(b.Status, to); err != nil {
			return err
		}
		now := r.now()
		if err := tx.Model(&models.Booking{}).Where("id = ?", b.ID).
			Updates(map[string]any{"status": to, "updated_at": now}).Error; err != nil {
			return err
		}
		if models.RestoresSlot(b.Status, to) {
			if err := r.restoreSlot(tx, &b, now); err != nil {
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

// restoreSlot 幂等：时段已存在则什么也不做；当天的 Availability 不在了就重建
func (r *Repo) restoreSlot(tx *gorm.DB, b *models.Booking, now time.Time) error {
	date, err := models.ParseDate(b.Date)
	if err != nil {
		return err
	}
	var av models.Availability
	err = tx.Where("landlord_id = ? AND property_id = ? AND date = ?", b.LandlordID, b.PropertyID, date).First(&av).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		av = models.Availability{
			ID:         uuid.NewString(),
			LandlordID: b.LandlordID,
			PropertyID: b.PropertyID,
			Date:       date,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		err = tx.Create(&av).Error
	}
	if err != nil {
		return err
	}
	return offerSlots(tx, av.ID, []string{b.TimeSlot})
}

type BookingQuery struct {
	TenantID   string
	LandlordID string
	PropertyID string
	Status     models.BookingStatus
}

func (r *Repo) ListBookings(ctx context.Context, q BookingQuery) ([]models.Booking, error) {
	tx := r.DB.WithContext(ctx).Preload("Property")
	if q.TenantID != "" {
		tx = tx.Where("tenant_id = ?", q.TenantID)
	}
	if q.LandlordID != "" {
		tx = tx.Where("landlord_id = ?", q.LandlordID)
	}
	if q.PropertyID != "" {
		tx = tx.Where("property_id = ?", q.PropertyID)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	var out []models.Booking
	err := tx.Order("date ASC, time_slot ASC").Find(&out).Error
	return out, err
}

func activeBookedSlots(tx *gorm.DB, propertyID, dateKey string) (map[string]struct{}, error) {
	var slots []string
	if err := tx.Model(&models.Booking{}).
		Where("property_id = ? AND date = ? AND status IN ?", propertyID, dateKey, models.ActiveBookingStatuses()).
		Pluck("time_slot", &slots).Error; err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(slots))
	for _, s := range slots {
		out[s] = struct{}{}
	}
	return out, nil
}

// offerSlots insert-if-absent，重复调用不会产生重复时段
func offerSlots(tx *gorm.DB, availabilityID string, slots []string) error {
	if len(slots) == 0 {
		return nil
	}
	rows := make([]models.AvailabilitySlot, len(slots))
	for i, s := range slots {
		rows[i] = models.AvailabilitySlot{AvailabilityID: availabilityID, TimeSlot: s}
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func offeredSlots(tx *gorm.DB, availabilityID string) ([]string, error) {
	var slots []string
	if err := tx.Model(&models.AvailabilitySlot{}).
		Where("availability_id = ?", availabilityID).
		Pluck("time_slot", &slots).Error; err != nil {
		return nil, err
	}
	sort.Strings(slots)
	if slots == nil {
		slots = []string{}
	}
	return slots, nil
}
