package db

import (
	"context"

	"github.com/bhumi3292/VaultLease-sub001/models"

	"github.com/google/uuid"
)

func (r *Repo) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.now()
	}
	return r.DB.WithContext(ctx).Create(n).Error
}

func (r *Repo) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := r.DB.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}
	var out []models.Notification
	err := q.Order("created_at DESC").Limit(limit).Find(&out).Error
	return out, err
}

// MarkNotificationRead 只能标记自己的通知；重复标记无副作用
func (r *Repo) MarkNotificationRead(ctx context.Context, userID, id string) error {
	var n models.Notification
	if err := r.DB.WithContext(ctx).First(&n, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return err
	}
	if n.ReadAt != nil {
		return nil
	}
	now := r.now()
	return r.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND read_at IS NULL", id).
		Update("read_at", &now).Error
}

func (r *Repo) CountUnread(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).Count(&n).Error
	return n, err
}

