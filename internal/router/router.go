// Package router assembles the HTTP API.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "ledgerbook/internal/docs" // Register swagger docs
	"ledgerbook/internal/handlers"
	"ledgerbook/internal/middleware"
	"ledgerbook/internal/services"
)

// Services groups the servicers the API is built on.
type Services struct {
	Categories   services.CategoryServicer
	Ledgers      services.LedgerServicer
	Transactions services.TransactionServicer
	Snapshots    services.SnapshotServicer
	Charts       services.ChartServicer
	Audit        services.AuditServicer
}

// Options tunes the HTTP stack.
type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
}

// New builds the Gin engine with middleware and every API route mounted
// under /api/v1.
func New(svc Services, opts Options) *gin.Engine {
	categoryHandler := handlers.NewCategoryHandler(svc.Categories, svc.Audit)
	ledgerHandler := handlers.NewLedgerHandler(svc.Ledgers, svc.Charts, svc.Audit)
	transactionHandler := handlers.NewTransactionHandler(svc.Transactions, svc.Audit)
	snapshotHandler := handlers.NewSnapshotHandler(svc.Snapshots, svc.Audit)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst))

	categories := v1.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.ListCategories)
	categories.GET("/:id", categoryHandler.GetCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	ledgers := v1.Group("/ledgers")
	ledgers.POST("", ledgerHandler.CreateLedger)
	ledgers.GET("", ledgerHandler.ListLedgers)
	ledgers.GET("/:id", ledgerHandler.GetLedger)
	ledgers.DELETE("/:id", ledgerHandler.DeleteLedger)
	ledgers.GET("/:id/summary", ledgerHandler.GetSummary)
	ledgers.GET("/:id/chart", ledgerHandler.GetChart)
	ledgers.GET("/:id/transactions", transactionHandler.GetLedgerTransactions)
	ledgers.GET("/:id/snapshots", snapshotHandler.ListSnapshots)
	ledgers.GET("/:id/snapshots/latest", snapshotHandler.GetLatestSnapshot)
	ledgers.GET("/:id/snapshots/chart", snapshotHandler.GetSnapshotChart)
	ledgers.POST("/:id/snapshots/generate", snapshotHandler.GenerateSnapshot)

	transactions := v1.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	return router
}
