package models

import (
	"strings"
	"time"

	"github.com/bhumi3292/VaultLease-sub001/apperror"
)

const CapacityBookingTable = "vl_capacity_bookings"

type CapacityStatus string

const (
	CapacityPending   CapacityStatus = "pending"
	CapacityConfirmed CapacityStatus = "confirmed"
	CapacityCancelled CapacityStatus = "cancelled"
	CapacityRejected  CapacityStatus = "rejected"
	CapacityReturned  CapacityStatus = "returned"
	CapacityCompleted CapacityStatus = "completed"
)

var capacityTransitions = map[CapacityStatus][]CapacityStatus{
	CapacityPending:   {CapacityConfirmed, CapacityCancelled, CapacityRejected, CapacityReturned},
	CapacityConfirmed: {CapacityReturned, CapacityCompleted, CapacityCancelled, CapacityRejected},
}

func ParseCapacityStatus(s string) (CapacityStatus, error) {
	switch st := CapacityStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case CapacityPending, CapacityConfirmed, CapacityCancelled, CapacityRejected, CapacityReturned, CapacityCompleted:
		return st, nil
	}
	return "", apperror.ErrInvalidStatus.WithMessage("unknown booking status %q", s)
}

func (s CapacityStatus) Active() bool { return s == CapacityPending || s == CapacityConfirmed }

func CheckCapacityTransition(from, to CapacityStatus) error {
	for _, next := range capacityTransitions[from] {
		if next == to {
			return nil
		}
	}
	return apperror.ErrInvalidTransition.WithMessage("cannot move booking from %s to %s", from, to)
}

// CapacityBooking 按容量计数的空间预约（不占具体时段）
type CapacityBooking struct {
	ID         string         `gorm:"type:uuid;primaryKey" json:"id"`
	SpaceID    string         `gorm:"type:uuid;not null;index" json:"spaceId"`
	TenantID   string         `gorm:"type:uuid;not null;index" json:"tenantId"`
	LandlordID string         `gorm:"type:uuid;not null;index" json:"landlordId"`
	Status     CapacityStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Notes      string         `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

func (CapacityBooking) TableName() string { return CapacityBookingTable }
