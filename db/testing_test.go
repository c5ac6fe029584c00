package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bhumi3292/VaultLease-sub001/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestRepo 每个测试一个独立的内存库；单连接，事务内只能用 tx
func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	cfg := Options()
	cfg.Logger = logger.Default.LogMode(logger.Silent)
	gdb, err := gorm.Open(sqlite.Open(dsn), cfg)
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, Migrate(gdb))
	return NewRepo(gdb)
}

func seedUser(t *testing.T, r *Repo, role models.Role) models.User {
	t.Helper()
	id := uuid.NewString()
	u, err := r.FindOrCreateUser(context.Background(), id[:8]+"@uni.edu", id, role)
	require.NoError(t, err)
	return *u
}

func seedAsset(t *testing.T, r *Repo, owner models.User, qty int) models.Asset {
	t.Helper()
	a := models.Asset{
		Name:            "Oscilloscope",
		Category:        "lab",
		AdministratorID: owner.ID,
		TotalQuantity:   qty,
		AccessFee:       25,
	}
	require.NoError(t, r.CreateAsset(context.Background(), &a))
	return a
}

func seedSpace(t *testing.T, r *Repo, manager models.User, capacity int) models.Space {
	t.Helper()
	s := models.Space{RoomName: "Lab 204", Location: "Block B", ManagerID: manager.ID, Capacity: capacity}
	require.NoError(t, r.CreateSpace(context.Background(), &s))
	return s
}

func day(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}
