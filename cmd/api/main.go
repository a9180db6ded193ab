package main

import (
	"fmt"
	"meterku/internal/config"
	"meterku/internal/database"
	"meterku/internal/handlers"
	"meterku/internal/logger"
	"meterku/internal/middleware"
	"meterku/internal/services"
	"meterku/internal/validator"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "meterku/internal/docs" // Import swagger docs
)

// @title           Meterku API
// @version         1.0
// @description     Meterku tracks prepaid electricity meter balances, reconstructs daily usage, projects token depletion, and scores consumption efficiency.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Register custom binding validators
	validator.Register()

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	settingsService := services.NewSettingsService(db)
	recalcService := services.NewRecalculationService(db)
	readingService := services.NewReadingService(db, recalcService, settingsService)
	analyticsService := services.NewAnalyticsService(db, settingsService)
	auditService := services.NewAuditService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, auditService)
	settingsHandler := handlers.NewSettingsHandler(settingsService, auditService)
	readingHandler := handlers.NewReadingHandler(readingService, auditService)
	recalcHandler := handlers.NewRecalculationHandler(recalcService, auditService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

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

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.RefreshToken)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Reading routes
	readings := protected.Group("/readings")
	readings.POST("", readingHandler.CreateReading)
	readings.GET("", readingHandler.GetReadings)
	readings.POST("/backdate/preview", recalcHandler.PreviewBackdate)
	readings.GET("/:id", readingHandler.GetReading)
	readings.PUT("/:id", readingHandler.UpdateReading)
	readings.DELETE("/:id", readingHandler.DeleteReading)

	// Recalculation routes
	recalculations := protected.Group("/recalculations")
	recalculations.GET("", recalcHandler.GetRecalculations)
	recalculations.GET("/:id", recalcHandler.GetRecalculation)
	recalculations.POST("/:id/rollback", recalcHandler.RollbackRecalculation)

	// Analytics routes
	analytics := protected.Group("/analytics")
	analytics.GET("/daily", analyticsHandler.GetDailyUsage)
	analytics.GET("/weekly", analyticsHandler.GetWeeklyUsage)
	analytics.GET("/monthly", analyticsHandler.GetMonthlyUsage)
	analytics.GET("/burn-rate", analyticsHandler.GetBurnRate)
	analytics.GET("/efficiency", analyticsHandler.GetEfficiencyScore)

	// Settings and tariff routes
	protected.GET("/settings", settingsHandler.GetSettings)
	protected.PUT("/settings", settingsHandler.UpdateSettings)
	protected.GET("/tariff/estimate", analyticsHandler.EstimateTariff)

	log.Infof("Starting Meterku backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
