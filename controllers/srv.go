// controllers/srv.go
package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bhumi3292/VaultLease-sub001/app"
	"github.com/bhumi3292/VaultLease-sub001/config"
	"github.com/bhumi3292/VaultLease-sub001/db"
	"github.com/bhumi3292/VaultLease-sub001/mailer"
	"github.com/bhumi3292/VaultLease-sub001/models"
	"github.com/bhumi3292/VaultLease-sub001/services"
	"github.com/bhumi3292/VaultLease-sub001/session"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
)

type Srv struct {
	WA      *webauthn.WebAuthn
	Repo    *db.Repo
	Sess    *session.Store
	AppSess *session.AppSessionStore
	Cfg     config.Config
	Log     *slog.Logger
	Mail    mailer.Sender

	Notify   *services.Notifier
	Checkout *services.CheckoutService
	Calendar *services.CalendarService
	Stock    *services.InventoryService
	Sweeper  *services.Sweeper
}

// NewSrv 组装服务层；mail 由调用方决定（SMTP 异步队列或测试用内存实现）
func NewSrv(a *app.App, mail mailer.Sender) *Srv {
	notify := services.NewNotifier(a.Repo, mail, a.Log, a.Config.SMTP.AppName)
	return &Srv{
		WA:       a.WA,
		Repo:     a.Repo,
		Sess:     a.Ceremonies,
		AppSess:  a.AppSess,
		Cfg:      a.Config,
		Log:      a.Log,
		Mail:     mail,
		Notify:   notify,
		Checkout: services.NewCheckoutService(a.Repo, notify, nil),
		Calendar: services.NewCalendarService(a.Repo, notify),
		Stock:    services.NewInventoryService(a.Repo, notify),
		Sweeper:  services.NewSweeper(a.Repo, notify, a.Locker, a.Config.Sweep, a.Log),
	}
}

// --- helpers ---

// 统一设置业务会话 Cookie
func (s *Srv) setAppCookie(w http.ResponseWriter, sessionID string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.secureCookie(),
		MaxAge:   int(maxAge / time.Second),
	})
}

func (s *Srv) secureCookie() bool { return strings.HasPrefix(s.Cfg.WebOrigin, "https://") }

// 登录成功：创建会话 + 记录登录快照；返回会话 ID 供 Bearer 客户端使用
func (s *Srv) issueSession(ctx context.Context, w http.ResponseWriter, userID string, ip, ua string) (string, error) {
	if err := s.Repo.TouchUserLogin(ctx, userID, ip, ua); err != nil {
		s.Log.Warn("touch login failed", "user", userID, "err", err) // 不阻塞
	}
	id := uuid.NewString()
	if err := s.AppSess.Create(ctx, id, userID); err != nil {
		return "", err
	}
	s.setAppCookie(w, id, s.AppSess.TTL())
	return id, nil
}

// WebAuthn: DB user -> waUser
type waUser struct {
	user  models.User
	creds []webauthn.Credential
}

func (u *waUser) WebAuthnID() []byte                         { id, _ := uuid.Parse(u.user.ID); return id[:] }
func (u *waUser) WebAuthnName() string                       { return u.user.Username }
func (u *waUser) WebAuthnDisplayName() string                { return u.user.DisplayName }
func (u *waUser) WebAuthnIcon() string                       { return "" }
func (u *waUser) WebAuthnCredentials() []webauthn.Credential { return u.creds }

func toWaCred(c models.Credential) webauthn.Credential {
	return webauthn.Credential{
		ID:              c.CredentialID,
		PublicKey:       c.PublicKey,
		AttestationType: c.AttestationType,
		Authenticator: webauthn.Authenticator{
			AAGUID:       c.AAGUID,
			SignCount:    c.SignCount,
			CloneWarning: c.CloneWarning,
		},
		Flags: webauthn.CredentialFlags{
			BackupEligible: c.BackupEligible,
			BackupState:    c.BackupState,
		},
	}
}

func fromWaCred(userID string, cred *webauthn.Credential) *models.Credential {
	return &models.Credential{
		UserID:          userID,
		CredentialID:    cred.ID,
		PublicKey:       cred.PublicKey,
		AttestationType: cred.AttestationType,
		AAGUID:          cred.Authenticator.AAGUID,
		SignCount:       cred.Authenticator.SignCount,
		CloneWarning:    cred.Authenticator.CloneWarning,
		BackupEligible:  cred.Flags.BackupEligible,
		BackupState:     cred.Flags.BackupState,
	}
}

func (s *Srv) waUserOf(ctx context.Context, u *models.User) (*waUser, error) {
	cs, err := s.Repo.LoadUserCredentials(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	ws := make([]webauthn.Credential, 0, len(cs))
	for _, c := range cs {
		ws = append(ws, toWaCred(c))
	}
	return &waUser{user: *u, creds: ws}, nil
}

func (s *Srv) loadWAUserByID(ctx context.Context, id string) (*waUser, error) {
	u, err := s.Repo.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.waUserOf(ctx, u)
}

func (s *Srv) loadWAUserByUsername(ctx context.Context, username string) (*waUser, error) {
	u, err := s.Repo.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.waUserOf(ctx, u)
}

// pageParams ?page=&size=，非法值交给 repo 的 clampPage
func pageParams(c *app.Ctx) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	return page, size
}

func auditEntry(actor models.Actor, action models.AuditAction, entity, id string, details map[string]any) db.AuditEntry {
	return db.AuditEntry{Actor: actor, Action: action, Entity: entity, EntityID: id, Details: details}
}
