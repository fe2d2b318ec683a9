// Package httpapi wires the REST surface and the websocket upgrade route.
package httpapi

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/callbridge/callbridge/internal/adapters/signal"
	"github.com/callbridge/callbridge/internal/auth"
	"github.com/callbridge/callbridge/internal/config"
	"github.com/callbridge/callbridge/internal/session"
)

func SetupRouter(ctx context.Context, cfg *config.Config, sessions *session.Service, ws *signal.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	verifier := auth.NewVerifier(cfg.Secret)
	h := &SessionHandler{Sessions: sessions}

	api := r.Group("/api", auth.Middleware(verifier))

	api.POST("/session/create", h.Create)
	api.POST("/session/join", h.Join)
	api.GET("/session/active", h.ListActive)
	api.GET("/session/:sessionId", h.Get)
	api.POST("/session/leave", h.Leave)
	api.POST("/session/end", h.End)

	api.GET("/ws/signal", func(c *gin.Context) {
		ws.HandleSignal(ctx, c)
	})

	log.Info().Str("module", "adapters.httpapi").Msg("router setup")
	return r
}
