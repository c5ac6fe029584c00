package app

import (
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// useCORS 前后端同源部署时 origin 为空，不挂 CORS
func useCORS(r *gin.Engine, origin string) error {
	if origin == "" {
		return nil
	}
	cfg := cors.Config{
		AllowOrigins:     []string{origin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	// cors.New 遇到非法 origin 会 panic
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("cors origin %q: %w", origin, err)
	}
	r.Use(cors.New(cfg))
	return nil
}
