// app/bootstrap.go
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bhumi3292/VaultLease-sub001/config"
	"github.com/bhumi3292/VaultLease-sub001/db"
	"github.com/bhumi3292/VaultLease-sub001/models"
)

// BootstrapFirstAdmin 还没有超级管理员时，为 BOOTSTRAP_ADMIN_EMAIL 生成一次性邀请
func BootstrapFirstAdmin(ctx context.Context, cfg config.Config, repo *db.Repo, logger *slog.Logger) (string, error) {
	if cfg.BootstrapEmail == "" {
		return "", nil
	}
	n, err := repo.CountAdmins(ctx)
	if err != nil {
		return "", fmt.Errorf("count admins: %w", err)
	}
	if n > 0 {
		return "", nil // 已经有管理员，跳过
	}

	token, err := NewInviteToken()
	if err != nil {
		return "", err
	}
	if _, err := repo.CreateInvite(ctx, cfg.BootstrapEmail, token, models.RoleAdmin, time.Now().Add(24*time.Hour), "bootstrap"); err != nil {
		return "", fmt.Errorf("bootstrap invite: %w", err)
	}

	// 打印邀请链接（直接点开注册）
	link := InviteLink(cfg.WebOrigin, token)
	logger.Warn("no admin found, created a bootstrap admin invite", "email", cfg.BootstrapEmail, "link", link)
	return link, nil
}

// NewInviteToken 16 字节随机数的十六进制
func NewInviteToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("invite token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func InviteLink(webOrigin, token string) string {
	return strings.TrimRight(webOrigin, "/") + "/login?inviteToken=" + token
}
