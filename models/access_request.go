package models

import (
	"strings"
	"time"

	"github.com/bhumi3292/VaultLease-sub001/apperror"
)

const AccessRequestTable = "vl_access_requests"

type AccessStatus string

const (
	AccessPending   AccessStatus = "Pending"
	AccessApproved  AccessStatus = "Approved"
	AccessRejected  AccessStatus = "Rejected"
	AccessActive    AccessStatus = "Active"
	AccessReturned  AccessStatus = "Returned"
	AccessOverdue   AccessStatus = "Overdue"
	AccessCancelled AccessStatus = "Cancelled"
)

var accessStatuses = []AccessStatus{
	AccessPending, AccessApproved, AccessRejected, AccessActive,
	AccessReturned, AccessOverdue, AccessCancelled,
}

// accessTransitions is the complete edge set; anything absent is illegal.
// Active -> Overdue is reserved for the sweeper.
var accessTransitions = map[AccessStatus][]AccessStatus{
	AccessPending:  {AccessApproved, AccessActive, AccessReturned, AccessRejected, AccessCancelled},
	AccessApproved: {AccessActive, AccessReturned, AccessRejected, AccessCancelled},
	AccessActive:   {AccessReturned, AccessOverdue},
	AccessOverdue:  {AccessReturned},
}

// ParseAccessStatus 忽略大小写
func ParseAccessStatus(s string) (AccessStatus, error) {
	for _, st := range accessStatuses {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", apperror.ErrInvalidStatus.WithMessage("unknown access request status %q", s)
}

func (s AccessStatus) Terminal() bool {
	return s == AccessRejected || s == AccessReturned || s == AccessCancelled
}

// HoldsUnit reports whether a request in this status still has one asset unit reserved.
func (s AccessStatus) HoldsUnit() bool {
	return s == AccessPending || s == AccessApproved || s == AccessActive || s == AccessOverdue
}

// OutstandingAccessStatuses are the statuses that block asset deletion.
func OutstandingAccessStatuses() []AccessStatus {
	return []AccessStatus{AccessPending, AccessApproved, AccessActive, AccessOverdue}
}

// CheckAccessTransition validates one edge of the lifecycle for the given actor.
func CheckAccessTransition(from, to AccessStatus, actor Actor) error {
	if to == AccessOverdue && !actor.IsSystem() {
		return apperror.ErrInvalidTransition.WithMessage("only the overdue sweeper may mark a request Overdue")
	}
	for _, next := range accessTransitions[from] {
		if next == to {
			return nil
		}
	}
	return apperror.ErrInvalidTransition.WithMessage("cannot move access request from %s to %s", from, to)
}

// ReleasesUnit: 从占用状态进入终态时归还一件库存
func ReleasesUnit(from, to AccessStatus) bool {
	return from.HoldsUnit() && to.Terminal()
}

type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "Unpaid"
	PaymentPaid    PaymentStatus = "Paid"
	PaymentPartial PaymentStatus = "Partial"
	PaymentWaived  PaymentStatus = "Waived"
)

// AccessRequest 一次借用
type AccessRequest struct {
	ID                 string        `gorm:"type:uuid;primaryKey" json:"id"`
	AssetID            string        `gorm:"type:uuid;index;not null" json:"assetId"`
	RequesterID        string        `gorm:"type:uuid;index;not null" json:"requesterId"`
	ApproverID         *string       `gorm:"type:uuid" json:"approverId,omitempty"`
	StartDate          time.Time     `gorm:"not null" json:"startDate"`
	ExpectedReturnDate time.Time     `gorm:"index;not null" json:"expectedReturnDate"`
	ActualReturnDate   *time.Time    `json:"actualReturnDate,omitempty"`
	Status             AccessStatus  `gorm:"size:20;not null;default:'Pending';index" json:"status"`
	AccessFee          float64       `gorm:"not null;default:0" json:"accessFee"` // 创建时快照，之后不变
	LateFee            float64       `gorm:"not null;default:0" json:"lateFee"`
	TotalAmountPaid    float64       `gorm:"not null;default:0" json:"totalAmountPaid"`
	PaymentStatus      PaymentStatus `gorm:"size:20;not null;default:'Unpaid'" json:"paymentStatus"`
	RequestNotes       string        `gorm:"type:text" json:"requestNotes,omitempty"`
	AdminNotes         string        `gorm:"type:text" json:"adminNotes,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`

	Asset *Asset `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
}

func (AccessRequest) TableName() string { return AccessRequestTable }

func (r AccessRequest) AmountDue() float64 { return r.AccessFee + r.LateFee }

// PaymentStatusFor derives the payment status from the running total.
func (r AccessRequest) PaymentStatusFor(paid float64) PaymentStatus {
	if r.PaymentStatus == PaymentWaived {
		return PaymentWaived
	}
	switch {
	case paid <= 0:
		return PaymentUnpaid
	case paid >= r.AmountDue():
		return PaymentPaid
	default:
		return PaymentPartial
	}
}
