package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/velikanov/hnjobs/internal/config"
)

// Server is the thin read surface over the persisted postings, plus the
// manual refresh trigger. All scraping logic lives in the services package.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	config     config.ServerConfig
	handler    *JobsHandler
}

func New(cfg config.ServerConfig, handler *JobsHandler) (*Server, error) {

	router := gin.New()
	router.Use(gin.Recovery())
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	router.Use(corsMiddleware())
	router.Use(rateLimitMiddleware())

	s := &Server{
		router:  router,
		config:  cfg,
		handler: handler,
	}
	s.setUpRoutes()
	return s, nil
}

func (s *Server) setUpRoutes() {
	s.router.GET("/", s.handler.Info)
	s.router.GET("/health", s.handler.Health)
	s.router.GET("/stats", s.handler.Stats)
	s.router.GET("/jobs", s.handler.ListJobs)
	s.router.GET("/jobs/new", s.handler.ListNewJobs)
	s.router.GET("/jobs/search", s.handler.SearchJobs)
	s.router.POST("/jobs/refresh", s.handler.RefreshJobs)
}

func (s *Server) Run() error {
	s.httpServer = &http.Server{
		Addr:    ":" + strconv.Itoa(s.config.Port),
		Handler: s.router,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
