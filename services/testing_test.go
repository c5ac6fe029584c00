package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/bhumi3292/VaultLease-sub001/config"
	"github.com/bhumi3292/VaultLease-sub001/db"
	"github.com/bhumi3292/VaultLease-sub001/mailer"
	"github.com/bhumi3292/VaultLease-sub001/models"
	"github.com/bhumi3292/VaultLease-sub001/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type harness struct {
	repo     *db.Repo
	mail     *mailer.Memory
	notify   *Notifier
	locker   *session.Locker
	checkout *CheckoutService
	calendar *CalendarService
	stock    *InventoryService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	cfg := db.Options()
	cfg.Logger = logger.Default.LogMode(logger.Silent)
	gdb, err := gorm.Open(sqlite.Open(dsn), cfg)
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(gdb))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	repo := db.NewRepo(gdb)
	mail := &mailer.Memory{}
	n := NewNotifier(repo, mail, quietLog(), "VaultLease")
	return &harness{
		repo:     repo,
		mail:     mail,
		notify:   n,
		locker:   session.NewLocker(rdb),
		checkout: NewCheckoutService(repo, n, nil),
		calendar: NewCalendarService(repo, n),
		stock:    NewInventoryService(repo, n),
	}
}

func quietLog() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func (h *harness) sweeper(now time.Time) *Sweeper {
	s := NewSweeper(h.repo, h.notify, h.locker, config.SweepConfig{
		DueSoonWindow:  24 * time.Hour,
		LateFeePerTick: 10,
		LockTTL:        time.Minute,
	}, quietLog())
	s.Now = func() time.Time { return now }
	return s
}

func (h *harness) user(t *testing.T, role models.Role) models.User {
	t.Helper()
	id := uuid.NewString()
	u, err := h.repo.FindOrCreateUser(context.Background(), id[:8]+"@uni.edu", id, role)
	require.NoError(t, err)
	return *u
}

func (h *harness) asset(t *testing.T, owner models.User, qty int) models.Asset {
	t.Helper()
	a := models.Asset{Name: "Soldering Station", Category: "lab", TotalQuantity: qty, AccessFee: 25}
	require.NoError(t, h.stock.CreateAsset(context.Background(), owner.Actor(), &a))
	return a
}

// activeLoan 建一条已出借的请求
func (h *harness) activeLoan(t *testing.T, owner, student models.User, a models.Asset, start, due time.Time) *models.AccessRequest {
	t.Helper()
	ctx := context.Background()
	req, err := h.checkout.Create(ctx, student.Actor(), CreateAccessInput{AssetID: a.ID, StartDate: start, ExpectedReturnDate: due})
	require.NoError(t, err)
	req, err = h.checkout.UpdateStatus(ctx, owner.Actor(), req.ID, "Active", "")
	require.NoError(t, err)
	return req
}
