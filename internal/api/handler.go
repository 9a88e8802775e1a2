package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dca-core/internal/engine"
	"dca-core/internal/events"
)

// Server wires HTTP endpoints around the decision engine.
type Server struct {
	Router    *gin.Engine
	Engine    engine.Service
	Bus       *events.Bus
	Gatherer  prometheus.Gatherer
	JWTSecret string
}

// NewServer builds the router. gatherer may be nil, which disables /metrics.
func NewServer(svc engine.Service, bus *events.Bus, gatherer prometheus.Gatherer, jwtSecret string) *Server {
	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())        // Panic recovery (first)
	r.Use(RequestIDMiddleware()) // Request ID tracking
	r.Use(RequestLogger())       // Request logging (after ID is set)
	r.Use(RateLimitMiddleware()) // Rate limiting
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(CORSMiddleware())

	s := &Server{
		Router:    r,
		Engine:    svc,
		Bus:       bus,
		Gatherer:  gatherer,
		JWTSecret: jwtSecret,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)
	if s.Gatherer != nil {
		s.Router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{})))
	}

	api := s.Router.Group("/api")
	{
		api.GET("/system/status", s.getSystemStatus)

		protected := api.Group("")
		protected.Use(AuthMiddleware(s.JWTSecret))
		{
			protected.GET("/contexts", s.listContexts)

			// Per-context hooks
			ctxs := protected.Group("/contexts/:id")
			{
				ctxs.POST("/expected-price", s.recordExpectedPrice)
				ctxs.POST("/entry/confirm", s.confirmEntry)
				ctxs.POST("/stake", s.stakeAmount)
				ctxs.POST("/position/adjust", s.adjustPosition)
				ctxs.POST("/exit", s.confirmExit)
				ctxs.POST("/balance", s.updateBalance)
				ctxs.POST("/bars", s.ingestBar)
				ctxs.GET("/risk", s.getRiskStatus)
			}

			// Stateless evaluations
			protected.POST("/regime", s.detectRegime)
			protected.POST("/slippage/check", s.checkSlippage)
			protected.POST("/montecarlo", s.simulateMonteCarlo)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
