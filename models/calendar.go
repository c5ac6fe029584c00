package models

import (
	"sort"
	"strings"
	"time"

	"github.com/bhumi3292/VaultLease-sub001/apperror"
)

const (
	AvailabilityTable     = "vl_availabilities"
	AvailabilitySlotTable = "vl_availability_slots"
	BookingTable          = "vl_bookings"
	DateLayout            = "2006-01-02"
)

// Availability 某管理者在某天为某空间开放的时段集合；(landlord, property, date) 唯一
type Availability struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	LandlordID string    `gorm:"type:uuid;not null;uniqueIndex:ux_vl_availability_key" json:"landlordId"`
	PropertyID string    `gorm:"type:uuid;not null;uniqueIndex:ux_vl_availability_key;index" json:"propertyId"`
	Date       time.Time `gorm:"not null;uniqueIndex:ux_vl_availability_key" json:"date"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`

	// 渲染用：由 vl_availability_slots 行填充，已排序
	TimeSlots []string `gorm:"-" json:"timeSlots"`
}

func (Availability) TableName() string { return AvailabilityTable }

// DateKey is the YYYY-MM-DD form bookings refer to.
func (a Availability) DateKey() string { return a.Date.UTC().Format(DateLayout) }

// AvailabilitySlot is one offerable slot. Claiming a slot deletes its row.
type AvailabilitySlot struct {
	ID             uint   `gorm:"primaryKey" json:"-"`
	AvailabilityID string `gorm:"type:uuid;not null;uniqueIndex:ux_vl_availability_slot" json:"-"`
	TimeSlot       string `gorm:"size:64;not null;uniqueIndex:ux_vl_availability_slot" json:"timeSlot"`
}

func (AvailabilitySlot) TableName() string { return AvailabilitySlotTable }

// NormalizeDate 归一到 UTC 零点
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts YYYY-MM-DD or RFC 3339 and normalizes to UTC midnight.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, apperror.Validation("date must be YYYY-MM-DD")
	}
	return NormalizeDate(t), nil
}

// CleanSlots trims, drops blanks, dedupes and sorts.
func CleanSlots(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingRejected  BookingStatus = "rejected"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingRejected, BookingCancelled},
	BookingConfirmed: {BookingRejected, BookingCancelled},
}

func ParseBookingStatus(s string) (BookingStatus, error) {
	switch st := BookingStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingRejected:
		return st, nil
	}
	return "", apperror.ErrInvalidStatus.WithMessage("unknown booking status %q", s)
}

// Active 状态占用时段
func (s BookingStatus) Active() bool { return s == BookingPending || s == BookingConfirmed }

func ActiveBookingStatuses() []BookingStatus { return []BookingStatus{BookingPending, BookingConfirmed} }

// CheckBookingTransition allows forward moves only; nothing returns to pending.
func CheckBookingTransition(from, to BookingStatus) error {
	for _, next := range bookingTransitions[from] {
		if next == to {
			return nil
		}
	}
	return apperror.ErrInvalidTransition.WithMessage("cannot move booking from %s to %s", from, to)
}

// RestoresSlot: 从占用状态进入 rejected/cancelled 时把时段还回去
func RestoresSlot(from, to BookingStatus) bool {
	return from.Active() && (to == BookingRejected || to == BookingCancelled)
}

// Booking 一次时段预约
type Booking struct {
	ID         string        `gorm:"type:uuid;primaryKey" json:"id"`
	PropertyID string        `gorm:"type:uuid;not null;index" json:"propertyId"`
	TenantID   string        `gorm:"type:uuid;not null;index" json:"tenantId"`
	LandlordID string        `gorm:"type:uuid;not null;index" json:"landlordId"`
	Date       string        `gorm:"size:10;not null" json:"date"`
	TimeSlot   string        `gorm:"size:64;not null" json:"timeSlot"`
	Status     BookingStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`

	Property *Space `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
}

func (Booking) TableName() string { return BookingTable }
