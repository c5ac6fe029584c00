package controllers

import (
	"errors"

	"github.com/bhumi3292/VaultLease-sub001/app"
	"github.com/bhumi3292/VaultLease-sub001/apperror"
	"github.com/bhumi3292/VaultLease-sub001/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserController struct{ *Srv }

func GetUserController(s *Srv) *UserController { return &UserController{Srv: s} }

// GET /api/users?q=alice&role=STUDENT&page=1&size=20
func (uc *UserController) ListUsers(c *gin.Context) {
	var role models.Role
	if v := c.Query("role"); v != "" {
		r, ok := models.ParseRole(v)
		if !ok {
			app.Fail(c, apperror.Validation("unknown role"))
			return
		}
		role = r
	}
	page, size := pageParams(c)
	res, err := uc.Repo.ListUsers(c.Request.Context(), c.Query("q"), role, page, size)
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, res)
}

// GET /api/users/:id
func (uc *UserController) GetUser(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		app.Fail(c, apperror.Validation("invalid uuid"))
		return
	}
	user, err := uc.Repo.FindUserByID(c.Request.Context(), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		app.Fail(c, apperror.NotFound("user"))
		return
	}
	if err != nil {
		app.Fail(c, err)
		return
	}
	credCount, _ := uc.Repo.CountCredentials(c.Request.Context(), id)
	app.OK(c, app.H{"user": user, "credentialCount": credCount})
}

// DELETE /api/users/:id
func (uc *UserController) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	actor := app.CurrentActor(c)

	// 不允许删除自己，避免锁死
	if actor.ID == id {
		app.Fail(c, apperror.Validation("cannot delete yourself"))
		return
	}
	target, err := uc.Repo.FindUserByID(c.Request.Context(), id)
	if err != nil {
		app.Fail(c, apperror.NotFound("user"))
		return
	}
	if target.Role == models.RoleAdmin || uc.Cfg.IsAdminEmail(target.Username) {
		app.Fail(c, apperror.Forbidden("cannot delete an admin"))
		return
	}

	// 删除用户和凭据；借用/预约历史保留
	if err := uc.Repo.DeleteUserByID(c.Request.Context(), id); err != nil {
		app.Fail(c, err)
		return
	}
	// 关键：撤销该用户的所有登录会话
	if err := uc.AppSess.RevokeAllForUser(c.Request.Context(), id); err != nil {
		uc.Log.Warn("revoke sessions failed", "user", id, "err", err)
	}
	uc.Notify.Audit(c.Request.Context(), auditEntry(actor, models.AuditUserDeleted, "User", id, map[string]any{"username": target.Username}))
	app.OK(c, nil)
}

// PUT /api/users/:id/role
func (uc *UserController) SetRole(c *gin.Context) {
	var in struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		app.BindFail(c, err)
		return
	}
	role, ok := models.ParseRole(in.Role)
	if !ok {
		app.Fail(c, apperror.Validation("role must be STUDENT, ADMINISTRATOR or ADMIN"))
		return
	}
	id := c.Param("id")
	before, err := uc.Repo.FindUserByID(c.Request.Context(), id)
	if err != nil {
		app.Fail(c, apperror.NotFound("user"))
		return
	}
	u, err := uc.Repo.SetUserRole(c.Request.Context(), id, role)
	if err != nil {
		app.Fail(c, err)
		return
	}
	// 角色变更后强制重新登录
	if before.Role != u.Role {
		if err := uc.AppSess.RevokeAllForUser(c.Request.Context(), id); err != nil {
			uc.Log.Warn("revoke sessions failed", "user", id, "err", err)
		}
	}
	uc.Notify.Audit(c.Request.Context(), auditEntry(app.CurrentActor(c), models.AuditUserRoleChanged, "User", id,
		map[string]any{"from": before.Role, "to": u.Role}))
	app.OK(c, u)
}
