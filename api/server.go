package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/banachtech/pathpricer/config"
	"github.com/banachtech/pathpricer/db"
	"github.com/banachtech/pathpricer/pricer"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Server serves HTTP requests for the option pricing service.
type Server struct {
	config  *config.Config
	params  pricer.Params
	pricer  *pricer.Pricer
	store   db.Store
	logger  *slog.Logger
	metrics *Metrics
	router  *gin.Engine

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewServer creates a new HTTP server and set up routing. A nil store disables
// persistence of hedging runs.
func NewServer(c *config.Config, store db.Store, logger *slog.Logger) (*Server, error) {
	params, err := c.PricerParams()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	p, err := pricer.New(params, pricer.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("cannot create pricer: %w", err)
	}

	server := &Server{
		config:   c,
		params:   params,
		pricer:   p,
		store:    store,
		logger:   logger,
		metrics:  NewMetrics(),
		limiters: map[string]*rate.Limiter{},
	}
	server.setupRouter()
	return server, nil
}

func (server *Server) setupRouter() {
	router := gin.New()
	router.Use(gin.Recovery(), server.requestLogger, server.metrics.Middleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(server.metrics.Handler()))

	v1 := router.Group("/v1")
	if len(server.config.Server.APIKeys) > 0 {
		v1.Use(server.authentication, server.rateLimit)
	}
	v1.POST("/price", server.price)
	v1.GET("/info", server.info)
	v1.POST("/hedge", server.hedge)
	v1.GET("/hedge/:id", server.getHedge)
	server.router = router
}

// Handler exposes the router, for embedding in an http.Server.
func (server *Server) Handler() http.Handler {
	return server.router
}

// Start runs the HTTP server on a specific address.
func (server *Server) Start(address string) error {
	return server.router.Run(address)
}

func errorResponse(err error) gin.H {
	return gin.H{"error": err.Error()}
}
