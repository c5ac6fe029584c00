package models

import "time"

// Invite 一次性注册邀请，注册时授予 Role
type Invite struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Email     string     `gorm:"index;size:255;not null" json:"email"`
	Token     string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	Role      Role       `gorm:"size:20;not null;default:'STUDENT'" json:"role"`
	ExpiresAt time.Time  `gorm:"index;not null" json:"expiresAt"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
	CreatedBy string     `gorm:"size:255" json:"createdBy"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (Invite) TableName() string { return "vl_invites" }

func (i Invite) Usable(now time.Time) bool { return i.UsedAt == nil && now.Before(i.ExpiresAt) }
