package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shoplane/payments/internal/config"
	deliverydomain "github.com/shoplane/payments/internal/delivery/domain"
	"github.com/shoplane/payments/internal/dispatch"
	"github.com/shoplane/payments/internal/inbound"
	partnerdomain "github.com/shoplane/payments/internal/partner/domain"
	paymentdomain "github.com/shoplane/payments/internal/payment/domain"
	"github.com/shoplane/payments/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.registerRoutes() }),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	db         *gorm.DB
	partnerSvc partnerdomain.Service
	paymentSvc paymentdomain.Service
	attempts   deliverydomain.Repository
	dispatcher *dispatch.Dispatcher
	verifier   *inbound.Verifier
	limiter    *ratelimit.TokenBucket
}

type Params struct {
	fx.In

	Engine     *gin.Engine
	Cfg        config.Config
	DB         *gorm.DB
	PartnerSvc partnerdomain.Service
	PaymentSvc paymentdomain.Service
	Attempts   deliverydomain.Repository
	Dispatcher *dispatch.Dispatcher
	Verifier   *inbound.Verifier
	Limiter    *ratelimit.TokenBucket `optional:"true"`
}

func NewServer(p Params) *Server {
	return &Server{
		engine:     p.Engine,
		cfg:        p.Cfg,
		db:         p.DB,
		partnerSvc: p.PartnerSvc,
		paymentSvc: p.PaymentSvc,
		attempts:   p.Attempts,
		dispatcher: p.Dispatcher,
		verifier:   p.Verifier,
		limiter:    p.Limiter,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")

	// -------- Partners --------
	api.POST("/partners", s.RegisterPartner)
	api.GET("/partners", s.ListPartners)
	api.GET("/partners/:id", s.GetPartnerByID)
	api.PATCH("/partners/:id", s.UpdatePartner)
	api.POST("/partners/:id/deactivate", s.DeactivatePartner)
	api.POST("/partners/:id/reactivate", s.ReactivatePartner)

	// -------- Inbound Webhooks --------
	api.POST("/webhooks/partners/:id", rateLimit(s.limiter, partnerKey), s.HandlePartnerWebhook)
	api.POST("/webhooks/gateway", rateLimit(s.limiter, gatewayKey), s.HandleGatewayWebhook)

	// -------- Delivery audit --------
	api.GET("/deliveries", s.ListDeliveries)

	// -------- Payments --------
	api.POST("/payments", s.ProcessPayment)
	api.GET("/payments/:id", s.GetPaymentByID)
	api.POST("/payments/:id/refund", s.RefundPayment)

	// -------- Manual broadcast (replay hook) --------
	api.POST("/events/broadcast", s.BroadcastEvent)
}
