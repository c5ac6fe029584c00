// Package services runs the reservation engines and their after-commit side
// effects: audit entries, in-app notifications and email.
package services

import (
	"context"
	"log/slog"

	"github.com/bhumi3292/VaultLease-sub001/db"
	"github.com/bhumi3292/VaultLease-sub001/mailer"
	"github.com/bhumi3292/VaultLease-sub001/models"
)

// Notifier 所有副作用都在事务提交之后执行，失败只记日志
type Notifier struct {
	repo    *db.Repo
	mail    mailer.Sender
	log     *slog.Logger
	AppName string
}

func NewNotifier(repo *db.Repo, mail mailer.Sender, log *slog.Logger, appName string) *Notifier {
	return &Notifier{repo: repo, mail: mail, log: log, AppName: appName}
}

// detach 请求被取消也要把审计写完
func detach(ctx context.Context) context.Context { return context.WithoutCancel(ctx) }

func (n *Notifier) Audit(ctx context.Context, e db.AuditEntry) {
	if _, err := n.repo.WriteAudit(detach(ctx), e); err != nil {
		n.log.Error("audit write failed", "action", e.Action, "entity", e.Entity, "entityId", e.EntityID, "err", err)
	}
}

type Note struct {
	UserID   string
	Type     string
	Title    string
	Message  string
	Entity   string
	EntityID string
}

func (n *Notifier) Notify(ctx context.Context, note Note) {
	if note.UserID == "" {
		return
	}
	err := n.repo.CreateNotification(detach(ctx), &models.Notification{
		UserID:   note.UserID,
		Type:     note.Type,
		Title:    note.Title,
		Message:  note.Message,
		Entity:   note.Entity,
		EntityID: note.EntityID,
	})
	if err != nil {
		n.log.Error("notification insert failed", "user", note.UserID, "type", note.Type, "err", err)
	}
}

func (n *Notifier) Email(ctx context.Context, m mailer.Message) {
	if m.To == "" {
		return
	}
	if err := n.mail.Send(detach(ctx), m); err != nil {
		n.log.Error("email send failed", "to", m.To, "subject", m.Subject, "err", err)
	}
}

// contact 查收件人；找不到用户时返回空地址（邮件会被跳过）
func (n *Notifier) contact(ctx context.Context, userID string) (email, name string) {
	u, err := n.repo.FindUserByID(ctx, userID)
	if err != nil {
		n.log.Warn("notification recipient lookup failed", "user", userID, "err", err)
		return "", ""
	}
	name = u.DisplayName
	if name == "" {
		name = u.Username
	}
	return u.Username, name
}
