// Package dashboard serves the analytics report over HTTP.
package dashboard

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Napageneral/chatscope/internal/metrics"
	"github.com/Napageneral/chatscope/internal/reconcile"
)

// Server holds what the handlers share. Location is the default time zone
// for hour-of-day bucketing.
type Server struct {
	Loader   *reconcile.Loader
	Location *time.Location
	Metrics  *metrics.Metrics
	Log      zerolog.Logger
}

func NewRouter(s *Server) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(Recovery(s.Log))
	r.Use(RequestID())
	r.Use(AccessLog(s.Log, s.Metrics))

	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.GET("/ping", s.Ping)
	if s.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.Metrics.Handler()))
	}

	api := r.Group("/api")
	api.GET("/range", s.Range)
	api.GET("/report", s.Report)
	api.GET("/overview", s.Overview)
	api.GET("/daily", s.Daily)
	api.GET("/top-chats", s.TopChats)
	api.GET("/hourly", s.Hourly)
	api.GET("/chat-types", s.ChatTypes)
	api.GET("/lengths", s.Lengths)
	api.GET("/response-times", s.ResponseTimes)
	api.GET("/messages", s.Messages)
	return r
}
