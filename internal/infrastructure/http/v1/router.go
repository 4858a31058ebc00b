package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"paydocs/internal/app"
	"paydocs/internal/infrastructure/http/v1/handlers"
	"paydocs/internal/infrastructure/http/v1/middleware"
	"paydocs/internal/infrastructure/metrics"
	"paydocs/internal/infrastructure/storage/postgres"
	"paydocs/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Services *app.Services

	// Pool is nil with the in-memory backend.
	Pool    *postgres.Pool
	Storage string
	Version string

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator validates bearer tokens. Nil disables authentication
	// and role checks.
	JWTValidator middleware.JWTValidator

	// Idempotency stores X-Idempotency-Key outcomes. Nil disables replay.
	Idempotency middleware.IdempotencyStore

	// HTTPMetrics records request metrics. Nil disables them.
	HTTPMetrics *metrics.HTTP

	// Gatherer is served on /metrics. Nil serves the default registry.
	Gatherer prometheus.Gatherer

	// Debug switches gin to debug mode.
	Debug bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	router.Use(middleware.Logger(log))
	if cfg.HTTPMetrics != nil {
		router.Use(middleware.Metrics(cfg.HTTPMetrics))
	}
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Pool, cfg.Storage, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	if cfg.JWTValidator != nil {
		v1.Use(middleware.Auth(cfg.JWTValidator))
	}
	if cfg.Idempotency != nil {
		v1.Use(middleware.Idempotency(cfg.Idempotency))
	}

	acc := newAccess(cfg.JWTValidator != nil)
	base := handlers.NewBaseHandler()

	registerCatalogRoutes(v1, cfg.Services, base, acc)
	registerLedgerRoutes(v1, cfg.Services, base, acc)
	registerDocumentRoutes(v1, cfg.Services, base, acc)
	registerOrderRoutes(v1, cfg.Services, base, acc)
	registerAdminRoutes(v1, cfg.Services, base, acc)

	return router
}

// registerCatalogRoutes registers accounts, journals, partners and payment
// configuration.
func registerCatalogRoutes(rg *gin.RouterGroup, svc *app.Services, base *handlers.BaseHandler, acc access) {
	catalog := rg.Group("/catalog")

	RegisterCatalogRoutes(catalog.Group("/accounts"), handlers.NewAccountHandler(base, svc.Catalog), acc.read, acc.write)
	RegisterCatalogRoutes(catalog.Group("/journals"), handlers.NewJournalHandler(base, svc.Catalog), acc.read, acc.write)
	RegisterCatalogRoutes(catalog.Group("/partners"), handlers.NewPartnerHandler(base, svc.Catalog), acc.read, acc.write)
	RegisterCatalogRoutes(catalog.Group("/payment-methods"), handlers.NewPaymentMethodHandler(base, svc.Catalog), acc.read, acc.write)
	RegisterCatalogRoutes(catalog.Group("/payment-modes"), handlers.NewPaymentModeHandler(base, svc.Catalog), acc.read, acc.write)
}

// registerLedgerRoutes registers moves, move lines and statement reconciliation.
func registerLedgerRoutes(rg *gin.RouterGroup, svc *app.Services, base *handlers.BaseHandler, acc access) {
	h := handlers.NewLedgerHandler(base, svc.Ledger, svc.Links)

	moves := rg.Group("/moves")
	{
		moves.GET("", acc.read, h.ListMoves)
		moves.POST("", acc.write, h.CreateMove)
		moves.GET("/:id", acc.read, h.GetMove)
		moves.DELETE("/:id", acc.write, h.DeleteMove)
		moves.GET("/:id/payment-document", acc.read, h.PaymentDocument)
		moves.GET("/:id/pending", acc.read, h.Pending)
		registerActions(moves, acc.write,
			action{"post", h.PostMove},
			action{"cancel", h.CancelMove},
		)
	}

	candidates := handlers.NewLineCandidatesHandler(base, svc.LineCreate)
	lines := rg.Group("/move-lines")
	{
		lines.GET("", acc.read, h.ListLines)
		lines.GET("/candidates", acc.read, candidates.List)
		lines.POST("/reconcile", acc.write, h.Reconcile)
		lines.POST("/unreconcile", acc.write, h.Unreconcile)
		lines.GET("/:id", acc.read, h.GetLine)
		lines.GET("/:id/document-lines", acc.read, h.DocumentLines)
	}

	rg.POST("/statements/reconcile", acc.write, h.ReconcileStatement)
}

// registerDocumentRoutes registers payment documents and their workflow.
func registerDocumentRoutes(rg *gin.RouterGroup, svc *app.Services, base *handlers.BaseHandler, acc access) {
	h := handlers.NewPaymentDocumentHandler(base, svc.Documents)

	docs := rg.Group("/payment-documents")
	{
		docs.GET("", acc.read, h.List)
		docs.POST("", acc.write, h.Create)
		docs.GET("/:id", acc.read, h.Get)
		docs.PUT("/:id", acc.write, h.Update)
		docs.DELETE("/:id", acc.write, h.Delete)
		docs.GET("/:id/moves", acc.read, h.Moves)
		docs.GET("/:id/move-preview", acc.read, h.PreviewMove)
		registerActions(docs, acc.write,
			action{"copy", h.Copy},
			action{"move-lines", h.AttachMoveLines},
			action{"lines", h.AddLine},
			action{"lines/remove", h.RemoveLines},
			action{"open", h.Open},
			action{"advance", h.Advance},
			action{"attach-order", h.AttachToOrder},
			action{"paid", h.Paid},
			action{"unpaid", h.Unpaid},
			action{"cancel", h.Cancel},
			action{"paid-cancel", h.PaidCancel},
			action{"draft", h.Draft},
		)
	}
}

// registerOrderRoutes registers payment orders and their workflow.
func registerOrderRoutes(rg *gin.RouterGroup, svc *app.Services, base *handlers.BaseHandler, acc access) {
	h := handlers.NewPaymentOrderHandler(base, svc.Orders)

	orders := rg.Group("/payment-orders")
	{
		orders.GET("", acc.read, h.List)
		orders.POST("", acc.write, h.Create)
		orders.GET("/:id", acc.read, h.Get)
		orders.GET("/:id/moves", acc.read, h.Moves)
		orders.POST("/:id/bank-lines/:lineId/reconcile", acc.write, h.ReconcileBankLine)
		registerActions(orders, acc.write,
			action{"move-lines", h.AddMoveLines},
			action{"documents", h.AttachDocuments},
			action{"open", h.Open},
			action{"generate", h.Generate},
			action{"upload", h.Upload},
			action{"done", h.Done},
			action{"cancel", h.Cancel},
			action{"draft", h.Draft},
		)
	}
}

// registerAdminRoutes registers operational endpoints.
func registerAdminRoutes(rg *gin.RouterGroup, svc *app.Services, base *handlers.BaseHandler, acc access) {
	if svc.Expiration == nil {
		return
	}
	h := handlers.NewExpirationHandler(base, svc.Expiration)
	rg.POST("/admin/expiration/run", acc.admin, h.Run)
}
