package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bhumi3292/VaultLease-sub001/config"
	"github.com/bhumi3292/VaultLease-sub001/db"
	"github.com/bhumi3292/VaultLease-sub001/mailer"
	"github.com/bhumi3292/VaultLease-sub001/models"
	"github.com/bhumi3292/VaultLease-sub001/session"

	"github.com/robfig/cron/v3"
)

const (
	overdueLock = "sweep:overdue"
	dueSoonLock = "sweep:due-soon"
)

// Sweeper 定时扫描：每小时标记逾期，每天一次到期提醒；多副本靠 Redis 锁互斥
type Sweeper struct {
	repo   *db.Repo
	notify *Notifier
	locker *session.Locker
	cfg    config.SweepConfig
	log    *slog.Logger
	cron   *cron.Cron

	// 测试里替换
	Now func() time.Time
}

func NewSweeper(repo *db.Repo, notify *Notifier, locker *session.Locker, cfg config.SweepConfig, log *slog.Logger) *Sweeper {
	return &Sweeper{repo: repo, notify: notify, locker: locker, cfg: cfg, log: log, Now: time.Now}
}

type SweepReport struct {
	// Skipped 另一个副本持有锁
	Skipped  bool     `json:"skipped"`
	Scanned  int      `json:"scanned"`
	Affected []string `json:"affected"`
}

// Start registers both jobs and starts the scheduler.
func (s *Sweeper) Start() error {
	l := s.cronLogger()
	c := cron.New(cron.WithLogger(l), cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)))
	if _, err := c.AddFunc(s.cfg.OverdueSpec, func() { s.runJob("overdue", s.RunOverdue) }); err != nil {
		return fmt.Errorf("schedule overdue sweep %q: %w", s.cfg.OverdueSpec, err)
	}
	if _, err := c.AddFunc(s.cfg.DueSoonSpec, func() { s.runJob("due-soon", s.RunDueSoon) }); err != nil {
		return fmt.Errorf("schedule due-soon sweep %q: %w", s.cfg.DueSoonSpec, err)
	}
	s.cron = c
	c.Start()
	s.log.Info("sweeper started", "overdue", s.cfg.OverdueSpec, "dueSoon", s.cfg.DueSoonSpec)
	return nil
}

// cronLogger 让 cron 自身的日志（panic 恢复、跳过重叠执行）走同一个 slog handler
func (s *Sweeper) cronLogger() cron.Logger {
	return cron.PrintfLogger(slog.NewLogLogger(s.log.Handler(), slog.LevelError))
}

// Stop 等待正在执行的任务结束
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

func (s *Sweeper) runJob(name string, fn func(context.Context) (*SweepReport, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), s.lockTTL())
	defer cancel()
	rep, err := fn(ctx)
	if err != nil {
		s.log.Error("sweep failed", "job", name, "err", err)
		return
	}
	s.log.Info("sweep finished", "job", name, "skipped", rep.Skipped, "scanned", rep.Scanned, "affected", len(rep.Affected))
}

func (s *Sweeper) lockTTL() time.Duration {
	if s.cfg.LockTTL > 0 {
		return s.cfg.LockTTL
	}
	return 5 * time.Minute
}

func (s *Sweeper) withLock(ctx context.Context, name string, fn func() (*SweepReport, error)) (*SweepReport, error) {
	if s.locker == nil {
		return fn()
	}
	release, ok, err := s.locker.TryLock(ctx, name, s.lockTTL())
	if err != nil {
		return nil, fmt.Errorf("acquire %s lock: %w", name, err)
	}
	if !ok {
		return &SweepReport{Skipped: true}, nil
	}
	defer release()
	return fn()
}

// RunOverdue flags every Active request past its return date. The status
// change is conditional, so a request is charged the late fee only once.
func (s *Sweeper) RunOverdue(ctx context.Context) (*SweepReport, error) {
	return s.withLock(ctx, overdueLock, func() (*SweepReport, error) {
		now := s.Now().UTC()
		due, err := s.repo.ListOverdueCandidates(ctx, now)
		if err != nil {
			return nil, err
		}
		rep := &SweepReport{Scanned: len(due)}
		for _, c := range due {
			req, flagged, err := s.repo.MarkOverdue(ctx, c.ID, s.cfg.LateFeePerTick, now)
			if err != nil {
				// 单条失败不影响其余
				s.log.Error("mark overdue failed", "request", c.ID, "err", err)
				continue
			}
			if !flagged {
				continue
			}
			rep.Affected = append(rep.Affected, req.ID)
			s.afterOverdue(ctx, req)
		}
		return rep, nil
	})
}

func (s *Sweeper) afterOverdue(ctx context.Context, req *models.AccessRequest) {
	assetName := "your item"
	if req.Asset != nil {
		assetName = req.Asset.Name
	}
	email, name := s.notify.contact(ctx, req.RequesterID)
	s.notify.Email(ctx, mailer.Overdue(s.notify.AppName, email, name, assetName,
		req.ExpectedReturnDate.Format(models.DateLayout), req.LateFee))
	s.notify.Audit(ctx, db.AuditEntry{
		Actor:    models.SystemActor,
		Action:   models.AuditSystemOverdueFlag,
		Entity:   "AccessRequest",
		EntityID: req.ID,
		Details:  map[string]any{"lateFee": req.LateFee, "expectedReturnDate": req.ExpectedReturnDate},
	})
	s.notify.Notify(ctx, Note{
		UserID:   req.RequesterID,
		Type:     "overdue",
		Title:    "Item overdue",
		Message:  fmt.Sprintf("%s is overdue. Late fee: %.2f", assetName, req.LateFee),
		Entity:   "AccessRequest",
		EntityID: req.ID,
	})
}

// RunDueSoon 每条请求每个自然日最多提醒一次
func (s *Sweeper) RunDueSoon(ctx context.Context) (*SweepReport, error) {
	return s.withLock(ctx, dueSoonLock, func() (*SweepReport, error) {
		now := s.Now().UTC()
		window := s.cfg.DueSoonWindow
		if window <= 0 {
			window = 24 * time.Hour
		}
		due, err := s.repo.ListDueSoon(ctx, now, window)
		if err != nil {
			return nil, err
		}
		rep := &SweepReport{Scanned: len(due)}
		for i := range due {
			req := &due[i]
			if s.locker != nil {
				first, err := s.locker.Once(ctx, "due-soon:"+req.ID+":"+now.Format(models.DateLayout), 36*time.Hour)
				if err != nil {
					s.log.Error("due-soon dedupe failed", "request", req.ID, "err", err)
					continue
				}
				if !first {
					continue
				}
			}
			rep.Affected = append(rep.Affected, req.ID)
			assetName := "your item"
			if req.Asset != nil {
				assetName = req.Asset.Name
			}
			email, name := s.notify.contact(ctx, req.RequesterID)
			s.notify.Email(ctx, mailer.DueSoon(s.notify.AppName, email, name, assetName,
				req.ExpectedReturnDate.Format("2006-01-02 15:04 MST")))
			s.notify.Notify(ctx, Note{
				UserID:   req.RequesterID,
				Type:     "due_soon",
				Title:    "Return reminder",
				Message:  fmt.Sprintf("%s is due back soon.", assetName),
				Entity:   "AccessRequest",
				EntityID: req.ID,
			})
		}
		return rep, nil
	})
}
