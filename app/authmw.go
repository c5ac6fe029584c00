package app

import (
	"strings"

	"github.com/bhumi3292/VaultLease-sub001/apperror"
	"github.com/bhumi3292/VaultLease-sub001/config"
	"github.com/bhumi3292/VaultLease-sub001/db"
	"github.com/bhumi3292/VaultLease-sub001/models"
	"github.com/bhumi3292/VaultLease-sub001/session"

	"github.com/gin-gonic/gin"
)

const (
	AppSessionCookie = "app_session"
	actorKey         = "actor"
)

// SessionID 先看 Cookie，再看 Authorization: Bearer
func SessionID(c *gin.Context) string {
	if ck, err := c.Request.Cookie(AppSessionCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func AuthRequired(appSess *session.AppSessionStore, repo *db.Repo, cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := SessionID(c)
		if sid == "" {
			Fail(c, apperror.ErrUnauthorized)
			return
		}
		as, err := appSess.Get(c.Request.Context(), sid)
		if err != nil {
			Fail(c, apperror.ErrUnauthorized.WithMessage("invalid session"))
			return
		}

		// 这里确认用户仍存在，并把角色放进 Context（只查一次）
		u, err := repo.FindUserByID(c.Request.Context(), as.UserID)
		if err != nil {
			_ = appSess.Delete(c.Request.Context(), sid)
			Fail(c, apperror.ErrUnauthorized)
			return
		}
		actor := u.Actor()
		if actor.Name == "" {
			actor.Name = u.Username
		}
		// ADMIN_EMAILS 中的账号总是超级管理员
		if cfg.IsAdminEmail(u.Username) {
			actor.Role = models.RoleAdmin
		}
		c.Set("userID", u.ID)
		c.Set("username", u.Username)
		c.Set(actorKey, actor)
		c.Next()
	}
}

// CurrentActor 只能在 AuthRequired 之后调用
func CurrentActor(c *gin.Context) models.Actor {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(models.Actor); ok {
			return a
		}
	}
	return models.Actor{}
}

func requireRole(allowed func(models.Role) bool, msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		a := CurrentActor(c)
		if a.ID == "" {
			Fail(c, apperror.ErrUnauthorized)
			return
		}
		if !allowed(a.Role) {
			Fail(c, apperror.Forbidden(msg))
			return
		}
		c.Next()
	}
}

// ManagerOnly 院系管理员或超级管理员
func ManagerOnly() gin.HandlerFunc {
	return requireRole(models.Role.CanManage, "administrator role required")
}

func AdminOnly() gin.HandlerFunc {
	return requireRole(models.Role.IsSuperAdmin, "admin role required")
}
