package http

import (
	"context"
	"net/http"

	"github.com/dkeye/pulse/internal/adapters/rtc"
	"github.com/dkeye/pulse/internal/adapters/signal"
	"github.com/dkeye/pulse/internal/app"
	"github.com/dkeye/pulse/internal/app/orch"
	"github.com/dkeye/pulse/internal/config"
	"github.com/dkeye/pulse/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const clientTokenKey = "client_token"

// ClientTokenMiddleware keeps a per-browser token in the session cookie
// and exposes it on the gin context.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get(clientTokenKey).(string)
		if token == "" {
			token = uuid.NewString()
			session.Set(clientTokenKey, token)
			if err := session.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save session")
			}
		}
		c.Set(clientTokenKey, token)
		c.Next()
	}
}

// SetupRouter builds the engine. locations may be nil when the configured
// store keeps nothing to read back.
func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, locations app.LocationReader) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions("PulseSessions", store))
	r.Use(ClientTokenMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	iceServers := rtc.ICEServers(cfg.ICEServers)
	if len(iceServers) == 0 {
		iceServers = rtc.DefaultICEServers()
	}
	ctrl := signal.NewSignalWSController(o, cfg)

	api := r.Group("/api")
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": o.Registry.Rooms()})
	})
	api.GET("/rooms/:name/members", func(c *gin.Context) {
		room, err := domain.ParseRoomName(c.Param("name"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"room": room, "members": o.Registry.MembersSnapshot(room)})
	})
	if locations != nil {
		api.GET("/users/:id/location", func(c *gin.Context) {
			user, err := domain.ParseIdentity(c.Param("id"))
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			loc, ok, err := locations.LastLocation(c.Request.Context(), user)
			if err != nil {
				log.Error().Err(err).Str("module", "adapters.http").Str("user", string(user)).Msg("read last location")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "store_unavailable"})
				return
			}
			if !ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"userId":    loc.UserID,
				"latitude":  loc.Latitude,
				"longitude": loc.Longitude,
				"updatedAt": loc.At,
			})
		})
	}
	api.GET("/ice", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"iceServers": iceServers})
	})
	api.GET("/ws/signal", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("client_token", c.GetString(clientTokenKey)).Msg("ws signal endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Int("ice_servers", len(iceServers)).Msg("router setup")
	return r
}
