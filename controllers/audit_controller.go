package controllers

import (
	"errors"
	"strconv"

	"github.com/bhumi3292/VaultLease-sub001/app"
	"github.com/bhumi3292/VaultLease-sub001/apperror"
	"github.com/bhumi3292/VaultLease-sub001/db"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AuditController 审计日志、站内通知和手动触发的扫描
type AuditController struct{ *Srv }

func NewAuditController(s *Srv) *AuditController { return &AuditController{Srv: s} }

// GET /api/audit-logs?action=&entity=&entityId=&actorId=&page=&size=
func (ac *AuditController) ListAuditLogs(c *gin.Context) {
	page, size := pageParams(c)
	res, err := ac.Repo.ListAudit(c.Request.Context(), db.AuditQuery{
		Action:   c.Query("action"),
		Entity:   c.Query("entity"),
		EntityID: c.Query("entityId"),
		ActorID:  c.Query("actorId"),
		Page:     page,
		Size:     size,
	})
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, res)
}

// GET /api/notifications?unread=1&limit=50
func (ac *AuditController) ListNotifications(c *gin.Context) {
	uid := app.CurrentActor(c).ID
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	notes, err := ac.Repo.ListNotifications(c.Request.Context(), uid, c.Query("unread") == "1", limit)
	if err != nil {
		app.Fail(c, err)
		return
	}
	unread, err := ac.Repo.CountUnread(c.Request.Context(), uid)
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, app.H{"notifications": notes, "unread": unread})
}

// PUT /api/notifications/:id/read
func (ac *AuditController) MarkRead(c *gin.Context) {
	err := ac.Repo.MarkNotificationRead(c.Request.Context(), app.CurrentActor(c).ID, c.Param("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		app.Fail(c, apperror.NotFound("notification"))
		return
	}
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, nil)
}

// POST /admin/sweeps/overdue?kind=due-soon
func (ac *AuditController) RunSweep(c *gin.Context) {
	run := ac.Sweeper.RunOverdue
	if c.Query("kind") == "due-soon" {
		run = ac.Sweeper.RunDueSoon
	}
	rep, err := run(c.Request.Context())
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, rep)
}
