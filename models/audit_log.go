package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuditAction string

const (
	AuditRequestInitiated     AuditAction = "REQUEST_INITIATED"
	AuditRequestStatusChanged AuditAction = "REQUEST_STATUS_CHANGED"
	AuditSystemOverdueFlag    AuditAction = "SYSTEM_OVERDUE_FLAG"
	AuditPaymentRecorded      AuditAction = "PAYMENT_RECORDED"
	AuditAvailabilityPublish  AuditAction = "AVAILABILITY_PUBLISHED"
	AuditAvailabilityUpdate   AuditAction = "AVAILABILITY_UPDATED"
	AuditAvailabilityDelete   AuditAction = "AVAILABILITY_DELETED"
	AuditBookingCreated       AuditAction = "BOOKING_CREATED"
	AuditBookingStatusChanged AuditAction = "BOOKING_STATUS_CHANGED"
	AuditBookingCancelled     AuditAction = "BOOKING_CANCELLED"
	AuditAssetCreated         AuditAction = "ASSET_CREATED"
	AuditAssetUpdated         AuditAction = "ASSET_UPDATED"
	AuditAssetDeleted         AuditAction = "ASSET_DELETED"
	AuditSpaceCreated         AuditAction = "SPACE_CREATED"
	AuditSpaceDeleted         AuditAction = "SPACE_DELETED"
	AuditUserRoleChanged      AuditAction = "USER_ROLE_CHANGED"
	AuditInviteCreated        AuditAction = "INVITE_CREATED"
	AuditUserDeleted          AuditAction = "USER_DELETED"
)

// AuditLog 记录特权操作；系统任务的 ActorID 为空，ActorName 为 "SYSTEM"
type AuditLog struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	ActorID   *string        `gorm:"type:uuid;index" json:"actorId,omitempty"`
	ActorName string         `gorm:"size:255" json:"actorName"`
	Action    AuditAction    `gorm:"size:64;index;not null" json:"action"`
	Entity    string         `gorm:"size:64;index" json:"entity"`
	EntityID  string         `gorm:"size:64;index" json:"entityId"`
	Details   datatypes.JSON `json:"details,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"createdAt"`
}

func (AuditLog) TableName() string { return "vl_audit_logs" }
