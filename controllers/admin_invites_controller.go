package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/bhumi3292/VaultLease-sub001/app"
	"github.com/bhumi3292/VaultLease-sub001/apperror"
	"github.com/bhumi3292/VaultLease-sub001/mailer"
	"github.com/bhumi3292/VaultLease-sub001/models"

	"github.com/gin-gonic/gin"
)

type InviteController struct{ *Srv }

func GetInviteController(s *Srv) *InviteController { return &InviteController{Srv: s} }

// POST /admin/invites
func (ic *InviteController) CreateInvite(c *gin.Context) {
	var in struct {
		Email   string `json:"email" binding:"required,email"`
		Role    string `json:"role"`
		Expires int    `json:"expiresDays"` // 默认 1 天
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		app.BindFail(c, err)
		return
	}
	if in.Expires <= 0 {
		in.Expires = 1
	}
	role := models.RoleStudent
	if in.Role != "" {
		r, ok := models.ParseRole(in.Role)
		if !ok {
			app.Fail(c, apperror.Validation("role must be STUDENT, ADMINISTRATOR or ADMIN"))
			return
		}
		role = r
	}

	token, err := app.NewInviteToken()
	if err != nil {
		app.Fail(c, err)
		return
	}
	actor := app.CurrentActor(c)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	inv, err := ic.Repo.CreateInvite(ctx, email, token, role, time.Now().AddDate(0, 0, in.Expires), c.GetString("username"))
	if err != nil {
		app.Fail(c, err)
		return
	}

	// 拼邀请链接（前端登录页带 inviteToken）
	link := app.InviteLink(ic.Cfg.WebOrigin, token)
	// 未配置 SMTP 时 mailer 只打印日志
	ic.Notify.Email(c.Request.Context(), mailer.Invite(ic.Cfg.SMTP.AppName, email, link, in.Expires))
	ic.Notify.Audit(c.Request.Context(), auditEntry(actor, models.AuditInviteCreated, "Invite", inv.Email, map[string]any{"role": role}))

	data := app.H{"invite": inv}
	if !ic.Cfg.Production() {
		data["link"] = link // 方便开发环境直接点
	}
	app.Created(c, "invite created", data)
}

// GET /admin/invites
func (ic *InviteController) ListInvites(c *gin.Context) {
	invites, err := ic.Repo.ListInvites(c.Request.Context(), 100)
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, invites)
}
