package models

import (
	"time"

	"gorm.io/datatypes"
)

const SpaceTable = "vl_spaces"

// Space 可按时段预约的房间/实验室；Capacity 同时是容量预约的剩余计数
type Space struct {
	ID           string  `gorm:"type:uuid;primaryKey" json:"id"`
	RoomName     string  `gorm:"size:200;not null" json:"roomName"`
	Location     string  `gorm:"size:255" json:"location"`
	Description  string  `gorm:"type:text" json:"description,omitempty"`
	Capacity     int     `gorm:"not null;default:0;check:chk_vl_spaces_capacity,capacity >= 0" json:"capacity"`
	DepartmentID string  `gorm:"size:120;index" json:"departmentId"`
	ManagerID    string  `gorm:"type:uuid;index;not null" json:"managerId"`
	Price        float64 `gorm:"not null;default:0" json:"price"`
	FloorLevel   int     `json:"floorLevel"`

	Images datatypes.JSONSlice[string] `json:"images"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Space) TableName() string { return SpaceTable }
