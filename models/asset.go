package models

import (
	"time"

	"gorm.io/datatypes"
)

const AssetTable = "vl_assets"

type AssetStatus string

const (
	AssetAvailable   AssetStatus = "Available"
	AssetBorrowed    AssetStatus = "Borrowed"
	AssetMaintenance AssetStatus = "Maintenance"
	AssetRetired     AssetStatus = "Retired"
)

func (s AssetStatus) Valid() bool {
	switch s {
	case AssetAvailable, AssetBorrowed, AssetMaintenance, AssetRetired:
		return true
	}
	return false
}

// QuantityDerived: Available/Borrowed 由库存计数推导；Maintenance/Retired 由管理员显式设置，计数变化不覆盖
func (s AssetStatus) QuantityDerived() bool { return s == AssetAvailable || s == AssetBorrowed }

// Asset 按数量借出的物品
type Asset struct {
	ID                    string      `gorm:"type:uuid;primaryKey" json:"id"`
	Name                  string      `gorm:"size:200;not null" json:"name"`
	Category              string      `gorm:"size:120;index" json:"category"`
	Description           string      `gorm:"type:text" json:"description,omitempty"`
	AdministratorID       string      `gorm:"type:uuid;index;not null" json:"administratorId"`
	Department            string      `gorm:"size:120;index" json:"department"`
	TotalQuantity         int         `gorm:"not null;default:1;check:chk_vl_assets_total,total_quantity >= 1" json:"totalQuantity"`
	AvailableQuantity     int         `gorm:"not null;default:1;check:chk_vl_assets_available,available_quantity >= 0 AND available_quantity <= total_quantity" json:"availableQuantity"`
	Status                AssetStatus `gorm:"size:20;not null;default:'Available';index" json:"status"`
	AccessFee             float64     `gorm:"not null;default:0" json:"accessFee"`
	LateFeePerDay         float64     `gorm:"not null;default:0" json:"lateFeePerDay"`
	MaxBorrowDurationDays int         `gorm:"not null;default:0" json:"maxBorrowDurationDays"`

	Images datatypes.JSONSlice[string] `json:"images"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Asset) TableName() string { return AssetTable }

// StatusForQuantity returns the status the counter implies, leaving explicit states untouched.
func (a Asset) StatusForQuantity(available int) AssetStatus {
	if !a.Status.QuantityDerived() {
		return a.Status
	}
	if available <= 0 {
		return AssetBorrowed
	}
	return AssetAvailable
}

// Checkoutable 维护中/已退役的资产不可借
func (a Asset) Checkoutable() bool { return a.Status.QuantityDerived() }
