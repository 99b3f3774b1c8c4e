package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/checkoutrelay/internal/auth"
	authdomain "github.com/smallbiznis/checkoutrelay/internal/auth/domain"
	"github.com/smallbiznis/checkoutrelay/internal/clock"
	"github.com/smallbiznis/checkoutrelay/internal/config"
	"github.com/smallbiznis/checkoutrelay/internal/eligibility"
	eligibilitydomain "github.com/smallbiznis/checkoutrelay/internal/eligibility/domain"
	"github.com/smallbiznis/checkoutrelay/internal/observability"
	obslogger "github.com/smallbiznis/checkoutrelay/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/checkoutrelay/internal/observability/metrics"
	obstracing "github.com/smallbiznis/checkoutrelay/internal/observability/tracing"
	"github.com/smallbiznis/checkoutrelay/internal/order"
	orderdomain "github.com/smallbiznis/checkoutrelay/internal/order/domain"
	"github.com/smallbiznis/checkoutrelay/internal/ratelimit"
	"github.com/smallbiznis/checkoutrelay/internal/webhook"
	webhookdomain "github.com/smallbiznis/checkoutrelay/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	ratelimit.Module,
	eligibility.Module,
	auth.Module,
	order.Module,
	webhook.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-Id"},
			ExposeHeaders:    []string{"X-Request-Id", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
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
	engine         *gin.Engine
	cfg            config.Config
	log            *zap.Logger
	clock          clock.Clock
	authSvc        authdomain.Service
	eligibilitySvc eligibilitydomain.Service
	orderSvc       orderdomain.Service
	webhookSvc     webhookdomain.Service
	orderLimiter   *ratelimit.OrderLimiter
	obsMetrics     *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Engine         *gin.Engine
	Cfg            config.Config
	Log            *zap.Logger
	Clock          clock.Clock
	AuthSvc        authdomain.Service
	EligibilitySvc eligibilitydomain.Service
	OrderSvc       orderdomain.Service
	WebhookSvc     webhookdomain.Service
	OrderLimiter   *ratelimit.OrderLimiter `optional:"true"`
	ObsMetrics     *obsmetrics.Metrics     `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	log := p.Log.Named("http.server")
	if missing := p.Cfg.MissingSecrets(); len(missing) > 0 {
		log.Error("missing secrets; affected endpoints fail closed", zap.Strings("missing", missing))
	}

	return &Server{
		engine:         p.Engine,
		cfg:            p.Cfg,
		log:            log,
		clock:          p.Clock,
		authSvc:        p.AuthSvc,
		eligibilitySvc: p.EligibilitySvc,
		orderSvc:       p.OrderSvc,
		webhookSvc:     p.WebhookSvc,
		orderLimiter:   p.OrderLimiter,
		obsMetrics:     p.ObsMetrics,
	}
}

func (s *Server) RegisterRoutes() {
	webhooks := s.engine.Group("/webhooks")
	webhooks.POST("/clerk", s.HandleClerkWebhook)
	webhooks.POST("/razorpay", s.HandleRazorpayWebhook)

	api := s.engine.Group("/api")
	api.Use(s.AuthRequired())
	api.GET("/first-order-discount/status", s.HandleDiscountStatus)
	api.POST("/razorpay/order", s.OrderRateLimit(), s.HandleCreateOrder)
}

func (s *Server) Handler() http.Handler {
	return s.engine
}
