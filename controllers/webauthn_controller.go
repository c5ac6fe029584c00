// controllers/webauthn_controller.go
package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bhumi3292/VaultLease-sub001/app"
	"github.com/bhumi3292/VaultLease-sub001/apperror"
	"github.com/bhumi3292/VaultLease-sub001/session"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	errInvalidInvite   = apperror.Forbidden("invalid or expired invite")
	errCeremonyExpired = apperror.Validation("session expired or invalid")
)

func (s *Srv) WhoAmI(c *app.Ctx) {
	actor := app.CurrentActor(c)
	u, err := s.Repo.FindUserByID(c.Request.Context(), actor.ID)
	if err != nil {
		app.Fail(c, apperror.ErrUnauthorized)
		return
	}
	credCount, err := s.Repo.CountCredentials(c.Request.Context(), actor.ID)
	if err != nil {
		app.Fail(c, fmt.Errorf("count credentials: %w", err))
		return
	}
	app.OK(c, app.H{
		"user":            u,
		"role":            actor.Role,
		"canManage":       actor.Role.CanManage(),
		"isAdmin":         actor.Role.IsSuperAdmin(),
		"credentialCount": credCount,
	})
}

func registrationOptions() []webauthn.RegistrationOption {
	return []webauthn.RegistrationOption{
		webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementRequired),
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			UserVerification: protocol.VerificationRequired,
		}),
	}
}

// ===== 注册（邀请制） =====

func (s *Srv) BeginRegistration(c *gin.Context) {
	var in struct {
		InviteToken string `json:"inviteToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		app.BindFail(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	inv, err := s.Repo.GetInviteByToken(ctx, in.InviteToken)
	if err != nil || !inv.Usable(time.Now()) {
		app.Fail(c, errInvalidInvite)
		return
	}

	// 用户名强制 = 邀请邮箱；角色取自邀请
	u, err := s.Repo.FindOrCreateUser(ctx, inv.Email, uuid.NewString(), inv.Role)
	if err != nil {
		app.Fail(c, err)
		return
	}
	wUser, err := s.waUserOf(ctx, u)
	if err != nil {
		app.Fail(c, err)
		return
	}
	opts, sd, err := s.WA.BeginRegistration(wUser, registrationOptions()...)
	if err != nil {
		app.Fail(c, err)
		return
	}
	if err := s.Sess.Save(ctx, session.InviteSignup, in.InviteToken, sd); err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, app.H{"opts": opts})
}

func (s *Srv) FinishRegistration(c *gin.Context) {
	token := c.Query("inviteToken")
	if token == "" {
		app.Fail(c, apperror.Validation("missing inviteToken"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	inv, err := s.Repo.GetInviteByToken(ctx, token)
	if err != nil || !inv.Usable(time.Now()) {
		app.Fail(c, errInvalidInvite)
		return
	}
	wUser, err := s.loadWAUserByUsername(ctx, inv.Email)
	if err != nil {
		app.Fail(c, apperror.NotFound("user"))
		return
	}
	sd, err := s.Sess.Take(ctx, session.InviteSignup, token)
	if err != nil {
		app.Fail(c, errCeremonyExpired)
		return
	}
	cred, err := s.WA.FinishRegistration(wUser, *sd, c.Request)
	if err != nil {
		app.Fail(c, apperror.Validation("passkey registration failed"))
		return
	}
	// 先占用邀请，防止同一邀请并发注册两次
	if err := s.Repo.MarkInviteUsed(ctx, token); err != nil {
		app.Fail(c, err)
		return
	}
	if err := s.Repo.AddCredential(ctx, fromWaCred(wUser.user.ID, cred)); err != nil {
		app.Fail(c, err)
		return
	}

	// 注册即登录
	sid, err := s.issueSession(ctx, c.Writer, wUser.user.ID, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, app.H{"username": wUser.user.Username, "role": wUser.user.Role, "sessionId": sid})
}

// ===== 添加新凭据（已登录） =====

func (s *Srv) BeginAddCredential(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	wUser, err := s.loadWAUserByID(ctx, app.CurrentActor(c).ID)
	if err != nil {
		app.Fail(c, apperror.ErrUnauthorized)
		return
	}
	opts, sd, err := s.WA.BeginRegistration(wUser, registrationOptions()...)
	if err != nil {
		app.Fail(c, err)
		return
	}
	if err := s.Sess.Save(ctx, session.Registration, wUser.user.ID, sd); err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, app.H{"opts": opts})
}

func (s *Srv) FinishAddCredential(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	wUser, err := s.loadWAUserByID(ctx, app.CurrentActor(c).ID)
	if err != nil {
		app.Fail(c, apperror.ErrUnauthorized)
		return
	}
	sd, err := s.Sess.Take(ctx, session.Registration, wUser.user.ID)
	if err != nil {
		app.Fail(c, errCeremonyExpired)
		return
	}
	cred, err := s.WA.FinishRegistration(wUser, *sd, c.Request)
	if err != nil {
		app.Fail(c, apperror.Validation("passkey registration failed"))
		return
	}
	if err := s.Repo.AddCredential(ctx, fromWaCred(wUser.user.ID, cred)); err != nil {
		app.Fail(c, err)
		return
	}
	app.Message(c, http.StatusOK, "passkey added", nil)
}

// ===== 登录 =====

type loginBeginReq struct {
	Username     string `json:"username"`
	Discoverable bool   `json:"discoverable"`
}
type loginBeginResp struct {
	Options   *protocol.CredentialAssertion `json:"options"`
	SessionID string                        `json:"sessionId"`
}

func (s *Srv) BeginLogin(c *gin.Context) {
	var req loginBeginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		app.BindFail(c, err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	var (
		opts *protocol.CredentialAssertion
		sd   *webauthn.SessionData
		err  error
	)
	if req.Discoverable || req.Username == "" {
		opts, sd, err = s.WA.BeginDiscoverableLogin(webauthn.WithUserVerification(protocol.VerificationRequired))
	} else {
		wUser, err2 := s.loadWAUserByUsername(ctx, req.Username)
		if err2 != nil {
			app.Fail(c, apperror.NotFound("user"))
			return
		}
		opts, sd, err = s.WA.BeginLogin(wUser, webauthn.WithUserVerification(protocol.VerificationRequired))
	}
	if err != nil {
		app.Fail(c, err)
		return
	}

	sid := uuid.NewString()
	if err := s.Sess.Save(ctx, session.Authorization, sid, sd); err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, loginBeginResp{Options: opts, SessionID: sid})
}

func (s *Srv) FinishLogin(c *gin.Context) {
	sid := c.Query("sessionId")
	if sid == "" {
		app.Fail(c, apperror.Validation("missing sessionId"))
		return
	}
	ip, ua := c.ClientIP(), c.Request.UserAgent()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	sd, err := s.Sess.Take(ctx, session.Authorization, sid)
	if err != nil {
		app.Fail(c, errCeremonyExpired)
		return
	}

	var (
		userID string
		cred   *webauthn.Credential
	)
	if username := c.Query("username"); username != "" {
		wUser, err := s.loadWAUserByUsername(ctx, username)
		if err != nil {
			app.Fail(c, apperror.NotFound("user"))
			return
		}
		if cred, err = s.WA.FinishLogin(wUser, *sd, c.Request); err != nil {
			app.Fail(c, apperror.ErrUnauthorized.WithMessage("passkey verification failed"))
			return
		}
		userID = wUser.user.ID
	} else {
		handler := func(rawID, _ []byte) (webauthn.User, error) {
			u, _, err := s.Repo.FindUserByCredentialID(ctx, rawID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, protocol.ErrBadRequest.WithDetails("credential not found")
			}
			if err != nil {
				return nil, err
			}
			return s.waUserOf(ctx, u)
		}
		user, got, err := s.WA.FinishPasskeyLogin(handler, *sd, c.Request)
		if err != nil {
			app.Fail(c, apperror.ErrUnauthorized.WithMessage("passkey verification failed"))
			return
		}
		userID, cred = user.(*waUser).user.ID, got
	}
	if err := s.Repo.UpdateCredentialCounter(ctx, cred.ID, cred.Authenticator.SignCount, cred.Authenticator.CloneWarning); err != nil {
		s.Log.Warn("update sign count failed", "user", userID, "err", err)
	}
	_ = s.Repo.TouchCredentialUsed(ctx, cred.ID)

	appSID, err := s.issueSession(ctx, c.Writer, userID, ip, ua)
	if err != nil {
		app.Fail(c, err)
		return
	}
	app.OK(c, app.H{"redirect": "/dashboard", "sessionId": appSID})
}

// Logout 删除 Redis 会话并清掉 Cookie
func (s *Srv) Logout(c *gin.Context) {
	if sid := app.SessionID(c); sid != "" {
		_ = s.AppSess.Delete(c.Request.Context(), sid)
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.secureCookie(),
	})
	app.Message(c, http.StatusOK, "logged out", nil)
}
