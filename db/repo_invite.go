package db

import (
	"context"
	"time"

	"github.com/bhumi3292/VaultLease-sub001/apperror"
	"github.com/bhumi3292/VaultLease-sub001/models"
)

var ErrInviteUsed = apperror.New(apperror.KindConflict, "INVITE_USED", "invite already used or not found")

func (r *Repo) CreateInvite(ctx context.Context, email, token string, role models.Role, expiresAt time.Time, createdBy string) (*models.Invite, error) {
	inv := &models.Invite{Email: email, Token: token, Role: role, ExpiresAt: expiresAt, CreatedBy: createdBy}
	return inv, r.DB.WithContext(ctx).Create(inv).Error
}

func (r *Repo) GetInviteByToken(ctx context.Context, token string) (*models.Invite, error) {
	var inv models.Invite
	if err := r.DB.WithContext(ctx).Where("token = ?", token).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// MarkInviteUsed 条件更新，同一 token 并发完成注册只有一个成功
func (r *Repo) MarkInviteUsed(ctx context.Context, token string) error {
	now := r.now()
	res := r.DB.WithContext(ctx).Model(&models.Invite{}).
		Where("token = ? AND used_at IS NULL", token).
		Update("used_at", &now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInviteUsed
	}
	return nil
}

func (r *Repo) ListInvites(ctx context.Context, limit int) ([]models.Invite, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []models.Invite
	err := r.DB.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&out).Error
	return out, err
}
