package models

import "time"

type PaymentProvider string

const (
	ProviderKhalti PaymentProvider = "khalti"
	ProviderEsewa  PaymentProvider = "esewa"
	ProviderCash   PaymentProvider = "cash"
	ProviderWaiver PaymentProvider = "waiver"
)

// OwnerRecorded providers can only be entered by the asset owner.
func (p PaymentProvider) OwnerRecorded() bool { return p == ProviderCash || p == ProviderWaiver }

func (p PaymentProvider) Valid() bool {
	switch p {
	case ProviderKhalti, ProviderEsewa, ProviderCash, ProviderWaiver:
		return true
	}
	return false
}

type Payment struct {
	ID              string          `gorm:"type:uuid;primaryKey" json:"id"`
	AccessRequestID string          `gorm:"type:uuid;index;not null" json:"accessRequestId"`
	PayerID         string          `gorm:"type:uuid;index;not null" json:"payerId"`
	Amount          float64         `gorm:"not null" json:"amount"`
	Provider        PaymentProvider `gorm:"size:20;not null" json:"provider"`
	Reference       string          `gorm:"size:128;uniqueIndex" json:"reference"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func (Payment) TableName() string { return "vl_payments" }
