package models

import "time"

// Notification 站内通知（不做实时推送）
type Notification struct {
	ID        string     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string     `gorm:"type:uuid;index;not null" json:"userId"`
	Type      string     `gorm:"size:64;not null" json:"type"`
	Title     string     `gorm:"size:255;not null" json:"title"`
	Message   string     `gorm:"type:text" json:"message"`
	Entity    string     `gorm:"size:64" json:"entity,omitempty"`
	EntityID  string     `gorm:"size:64" json:"entityId,omitempty"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `gorm:"index" json:"createdAt"`
}

func (Notification) TableName() string { return "vl_notifications" }
