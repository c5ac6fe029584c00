// db/repo_users_admin.go
package db

import (
	"context"

	"github.com/bhumi3292/VaultLease-sub001/apperror"
	"github.com/bhumi3292/VaultLease-sub001/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrLastAdmin = apperror.New(apperror.KindConflict, "LAST_ADMIN", "cannot demote the last super admin")

// SetUserRole 改角色；不允许把最后一个 ADMIN 降级
func (r *Repo) SetUserRole(ctx context.Context, userID string, role models.Role) (*models.User, error) {
	var u models.User
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&u, "id = ?", userID).Error; err != nil {
			return err
		}
		if u.Role == role {
			return nil
		}
		if u.Role == models.RoleAdmin {
			var n int64
			if err := tx.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&n).Error; err != nil {
				return err
			}
			if n <= 1 {
				return ErrLastAdmin
			}
		}
		u.Role = role
		return tx.Model(&models.User{}).Where("id = ?", userID).Update("role", role).Error
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Count(&n).Error
	return n, err
}
