package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bhumi3292/VaultLease-sub001/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AuditEntry struct {
	Actor    models.Actor
	Action   models.AuditAction
	Entity   string
	EntityID string
	Details  map[string]any
}

func (r *Repo) WriteAudit(ctx context.Context, e AuditEntry) (*models.AuditLog, error) {
	row := &models.AuditLog{
		ID:        uuid.NewString(),
		ActorName: e.Actor.Name,
		Action:    e.Action,
		Entity:    e.Entity,
		EntityID:  e.EntityID,
		CreatedAt: r.now(),
	}
	// SYSTEM 没有真实用户 id
	if e.Actor.ID != "" {
		id := e.Actor.ID
		row.ActorID = &id
	}
	if len(e.Details) > 0 {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return nil, fmt.Errorf("marshal audit details: %w", err)
		}
		row.Details = datatypes.JSON(b)
	}
	if err := r.DB.WithContext(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("insert audit log: %w", err)
	}
	return row, nil
}

type AuditQuery struct {
	Action   string
	Entity   string
	EntityID string
	ActorID  string
	Page     int
	Size     int
}

type PagedAudit struct {
	Total int64             `json:"total"`
	Logs  []models.AuditLog `json:"logs"`
}

func (r *Repo) ListAudit(ctx context.Context, q AuditQuery) (*PagedAudit, error) {
	page, size := clampPage(q.Page, q.Size, 200)
	tx := r.DB.WithContext(ctx).Model(&models.AuditLog{})
	if q.Action != "" {
		tx = tx.Where("action = ?", q.Action)
	}
	if q.Entity != "" {
		tx = tx.Where("entity = ?", q.Entity)
	}
	if q.EntityID != "" {
		tx = tx.Where("entity_id = ?", q.EntityID)
	}
	if q.ActorID != "" {
		tx = tx.Where("actor_id = ?", q.ActorID)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, err
	}
	var logs []models.AuditLog
	if err := tx.Order("created_at DESC").Offset((page - 1) * size).Limit(size).Find(&logs).Error; err != nil {
		return nil, err
	}
	return &PagedAudit{Total: total, Logs: logs}, nil
}
