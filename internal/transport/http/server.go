package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/liveclass/liveclass-server/internal/auth"
	"github.com/liveclass/liveclass-server/internal/config"
	"github.com/liveclass/liveclass-server/internal/core"
	"github.com/liveclass/liveclass-server/internal/session"
	"github.com/liveclass/liveclass-server/internal/store"
)

// NewServer builds the HTTP server: the websocket gateway, the session
// control API and a health probe.
func NewServer(hub *core.Hub, sessions *session.Controller, st store.Store, verifier *auth.Verifier, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	wsHandler := NewWSHandler(hub, sessions, verifier, logger)
	router.GET("/ws", gin.WrapH(wsHandler))

	sessionHandlers := NewSessionHandlers(sessions, st, logger)
	api := router.Group("/api", AuthMiddleware(verifier, logger))
	api.POST("/courses", sessionHandlers.CreateCourse)
	api.POST("/courses/:courseID/lessons", sessionHandlers.CreateLesson)
	api.POST("/courses/:courseID/lessons/:lessonID/start", sessionHandlers.StartSession)
	api.POST("/courses/:courseID/lessons/:lessonID/end", sessionHandlers.EndSession)
	api.POST("/courses/:courseID/lessons/:lessonID/cancel", sessionHandlers.CancelSession)
	api.GET("/courses/:courseID/lessons/:lessonID/meeting", sessionHandlers.GetMeeting)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
