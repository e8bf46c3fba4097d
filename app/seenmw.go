// app/seenmw.go
package app

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"Gin_postgres_redis_asset_loan/db"
	"Gin_postgres_redis_asset_loan/logging"
)

// TouchLastSeen updates users.last_seen_at at most once per throttle
// window per user. The window is a redis SETNX key.
func TouchLastSeen(repo *db.Repo, rdb *redis.Client, throttle time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		if !ok || caller.UserID == 0 {
			c.Next()
			return
		}

		key := "user:lastseen:" + strconv.FormatUint(uint64(caller.UserID), 10)
		if ok, _ := rdb.SetNX(c.Request.Context(), key, "1", throttle).Result(); ok {
			if err := repo.TouchUserSeen(c.Request.Context(), caller.UserID); err != nil {
				logging.Warn("touch last seen", zap.Uint("user_id", caller.UserID), zap.Error(err))
			}
		}
		c.Next()
	}
}
