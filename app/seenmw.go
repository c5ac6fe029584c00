// app/seenmw.go
package app

import (
	"time"

	"github.com/bhumi3292/VaultLease-sub001/db"
	"github.com/bhumi3292/VaultLease-sub001/session"

	"github.com/gin-gonic/gin"
)

// TouchLastSeen 每个用户在 throttle 内最多写一次 last_seen_at
func TouchLastSeen(repo *db.Repo, locker *session.Locker, throttle time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString("userID")
		if uid == "" {
			c.Next()
			return
		}
		if first, err := locker.Once(c.Request.Context(), "lastseen:"+uid, throttle); err == nil && first {
			if err := repo.TouchUserSeen(c.Request.Context(), uid); err != nil {
				Logger(c).Warn("touch last seen failed", "user", uid, "err", err) // 不阻塞请求
			}
		}
		c.Next()
	}
}
