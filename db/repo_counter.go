package db

import (
	"fmt"
	"time"

	"github.com/bhumi3292/VaultLease-sub001/apperror"
	"github.com/bhumi3292/VaultLease-sub001/models"

	"gorm.io/gorm"
)

// unitCounter 描述一个"剩余数量"列；资产和空间容量共用同一套占用/归还逻辑
type unitCounter struct {
	table  string
	column string
	// ceiling 为空表示没有上限列
	ceiling string
	what    string
}

var (
	assetUnits = unitCounter{table: models.AssetTable, column: "available_quantity", ceiling: "total_quantity", what: "asset"}
	spaceUnits = unitCounter{table: models.SpaceTable, column: "capacity", what: "space"}
)

// reserveUnit 条件扣减：available > 0 才减 1，0 行受影响即无库存
func reserveUnit(tx *gorm.DB, c unitCounter, id string, now time.Time) error {
	res := tx.Table(c.table).
		Where("id = ? AND "+c.column+" > 0", id).
		Updates(map[string]any{
			c.column:     gorm.Expr(c.column + " - 1"),
			"updated_at": now,
		})
	if res.Error != nil {
		return fmt.Errorf("reserve %s unit: %w", c.what, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.ErrOutOfStock
	}
	return nil
}

// releaseUnit 归还一件；有上限列时不会超过上限
func releaseUnit(tx *gorm.DB, c unitCounter, id string, now time.Time) error {
	q := tx.Table(c.table).Where("id = ?", id)
	if c.ceiling != "" {
		q = q.Where(c.column + " < " + c.ceiling)
	}
	res := q.Updates(map[string]any{
		c.column:     gorm.Expr(c.column + " + 1"),
		"updated_at": now,
	})
	if res.Error != nil {
		return fmt.Errorf("release %s unit: %w", c.what, res.Error)
	}
	return nil
}

// syncAssetStatus 只改写由数量推导的状态；Maintenance/Retired 保持不动
func syncAssetStatus(tx *gorm.DB, assetID string) error {
	return tx.Table(models.AssetTable).
		Where("id = ? AND status IN ?", assetID, []models.AssetStatus{models.AssetAvailable, models.AssetBorrowed}).
		Update("status", gorm.Expr("CASE WHEN available_quantity > 0 THEN ? ELSE ? END",
			models.AssetAvailable, models.AssetBorrowed)).Error
}
