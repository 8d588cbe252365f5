package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/edpulse/presence/internal/adapters/signal"
	"github.com/edpulse/presence/internal/app"
	"github.com/edpulse/presence/internal/config"
	"github.com/edpulse/presence/internal/domain"
	"github.com/edpulse/presence/internal/monitoring"
)

// IdentityMiddleware resolves the upstream-authenticated user id. The auth
// layer shares the cookie store and writes "user_id" into the session; the
// X-User-Id header covers deployments where an auth proxy strips cookies.
// Connections without an identity are rejected at the socket, not here.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Default(c)
		if v, ok := s.Get("user_id").(string); ok && v != "" {
			c.Set("user_id", v)
		} else if h := c.GetHeader("X-User-Id"); h != "" {
			c.Set("user_id", h)
		}
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, hub *app.Hub, metrics *monitoring.Metrics) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("PresenceSessions", store))
	r.Use(IdentityMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	log.Info().Str("module", "adapters.http").Msg("router setup")

	api := r.Group("/api")

	// Read-only room inspection; membership is mutated only via frames.
	api.GET("/rooms", func(c *gin.Context) {
		ids := hub.Rooms.RoomIDs()
		out := make([]gin.H, 0, len(ids))
		for _, id := range ids {
			out = append(out, gin.H{"roomId": id, "headcount": hub.Rooms.Headcount(id)})
		}
		c.JSON(http.StatusOK, gin.H{"rooms": out})
	})

	api.GET("/rooms/:id/participants", func(c *gin.Context) {
		id := domain.RoomID(c.Param("id"))
		c.JSON(http.StatusOK, gin.H{
			"roomId":       id,
			"participants": hub.Rooms.Participants(id),
			"headcount":    hub.Rooms.Headcount(id),
		})
	})

	ctrl := signal.NewController(hub, cfg.ReadLimit, cfg.SendBuffer, cfg.WriteTimeout)
	api.GET("/ws", func(c *gin.Context) {
		ctrl.HandleSocket(ctx, c)
	})

	return r
}
