package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/owlbill/owlbill/internal/analytics"
	analyticsdomain "github.com/owlbill/owlbill/internal/analytics/domain"
	"github.com/owlbill/owlbill/internal/client"
	clientdomain "github.com/owlbill/owlbill/internal/client/domain"
	"github.com/owlbill/owlbill/internal/config"
	"github.com/owlbill/owlbill/internal/invoice"
	invoicedomain "github.com/owlbill/owlbill/internal/invoice/domain"
	"github.com/owlbill/owlbill/internal/observability"
	obsmiddleware "github.com/owlbill/owlbill/internal/observability/logger"
	obsmetrics "github.com/owlbill/owlbill/internal/observability/metrics"
	"github.com/owlbill/owlbill/internal/payment"
	paymentdomain "github.com/owlbill/owlbill/internal/payment/domain"
	"github.com/owlbill/owlbill/internal/providers/cache"
	"github.com/owlbill/owlbill/internal/providers/pdf"
	"github.com/owlbill/owlbill/internal/quote"
	quotedomain "github.com/owlbill/owlbill/internal/quote/domain"
	"github.com/owlbill/owlbill/internal/user"
	userdomain "github.com/owlbill/owlbill/internal/user/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	cache.Module,
	pdf.Module,
	user.Module,
	client.Module,
	quote.Module,
	invoice.Module,
	payment.Module,
	analytics.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
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
	engine       *gin.Engine
	cfg          config.Config
	userSvc      userdomain.Service
	clientSvc    clientdomain.Service
	quoteSvc     quotedomain.Service
	invoiceSvc   invoicedomain.Service
	paymentSvc   paymentdomain.Service
	analyticsSvc analyticsdomain.Service
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	UserSvc      userdomain.Service
	ClientSvc    clientdomain.Service
	QuoteSvc     quotedomain.Service
	InvoiceSvc   invoicedomain.Service
	PaymentSvc   paymentdomain.Service
	AnalyticsSvc analyticsdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		userSvc:      p.UserSvc,
		clientSvc:    p.ClientSvc,
		quoteSvc:     p.QuoteSvc,
		invoiceSvc:   p.InvoiceSvc,
		paymentSvc:   p.PaymentSvc,
		analyticsSvc: p.AnalyticsSvc,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/register", s.Register)
	auth.POST("/login", s.Login)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	api.GET("/me", s.CurrentUser)

	api.POST("/clients", s.CreateClient)
	api.GET("/clients", s.ListClients)
	api.GET("/clients/:id", s.GetClientByID)
	api.PATCH("/clients/:id", s.UpdateClient)
	api.DELETE("/clients/:id", s.DeleteClient)

	api.POST("/quotes", s.CreateQuote)
	api.GET("/quotes", s.ListQuotes)
	api.GET("/quotes/:id", s.GetQuoteByID)
	api.PATCH("/quotes/:id", s.UpdateQuote)
	api.POST("/quotes/:id/status", s.TransitionQuote)
	api.DELETE("/quotes/:id", s.DeleteQuote)
	api.GET("/quotes/:id/pdf", s.DownloadQuotePDF)

	api.POST("/invoices", s.CreateInvoice)
	api.GET("/invoices", s.ListInvoices)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.POST("/invoices/:id/send", s.SendInvoice)
	api.GET("/invoices/:id/pdf", s.DownloadInvoicePDF)
	api.POST("/invoices/:id/payments", s.CreatePayment)

	api.PATCH("/payments/:id", s.UpdatePayment)
	api.DELETE("/payments/:id", s.DeletePayment)

	api.GET("/analytics/summary", s.AnalyticsSummary)
	api.GET("/analytics/revenue.csv", s.DownloadRevenueCSV)
}
