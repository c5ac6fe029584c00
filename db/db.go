package db

import (
	"fmt"
	"log"

	"github.com/bhumi3292/VaultLease-sub001/config"
	"github.com/bhumi3292/VaultLease-sub001/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func ConnectDB(cfg config.DBConfig) *gorm.DB {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), Options())
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}

	if err := Migrate(db); err != nil {
		log.Fatal("Failed to migrate models: ", err)
	}
	log.Println("Database connected")
	return db
}

// Options 借用/预约历史在资源删除后仍保留，所以不建外键
func Options() *gorm.Config {
	return &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Warn),
		DisableForeignKeyConstraintWhenMigrating: true,
		// 唯一约束冲突统一翻译成 gorm.ErrDuplicatedKey（postgres 23505 / sqlite 2067）
		TranslateError: true,
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{}, &models.Credential{}, &models.Invite{},
		&models.Asset{}, &models.AccessRequest{}, &models.Payment{},
		&models.Space{}, &models.Availability{}, &models.AvailabilitySlot{},
		&models.Booking{}, &models.CapacityBooking{},
		&models.AuditLog{}, &models.Notification{},
	); err != nil {
		return err
	}

	// 同一 (空间, 日期, 时段) 最多一条活动预约；取消/拒绝的历史记录可以共享时段
	if err := db.Exec(fmt.Sprintf(`
	  CREATE UNIQUE INDEX IF NOT EXISTS %s_one_active_per_slot
	  ON %s (property_id, date, time_slot)
	  WHERE status IN ('pending', 'confirmed');
	`, models.BookingTable, models.BookingTable)).Error; err != nil {
		return err
	}

	// 扫描器只看 Active + 到期时间
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_active_due
	  ON %s (expected_return_date)
	  WHERE status = 'Active';
	`, models.AccessRequestTable, models.AccessRequestTable)).Error; err != nil {
		return err
	}

	return nil
}
