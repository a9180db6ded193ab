package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"meterku/internal/handlers"
	"meterku/internal/logger"
	"meterku/internal/middleware"
	"meterku/internal/models"
	"meterku/internal/services"
	"meterku/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.User{},
		&models.UserSettings{},
		&models.Reading{},
		&models.RecalculationBatch{},
		&models.RecalculationEvent{},
		&models.AuditLog{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)

	// Services
	userService := services.NewUserService(db)
	settingsService := services.NewSettingsService(db)
	recalcService := services.NewRecalculationService(db)
	readingService := services.NewReadingService(db, recalcService, settingsService)
	analyticsService := services.NewAnalyticsService(db, settingsService)
	auditService := services.NewAuditService(db)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, auditService)
	settingsHandler := handlers.NewSettingsHandler(settingsService, auditService)
	readingHandler := handlers.NewReadingHandler(readingService, auditService)
	recalcHandler := handlers.NewRecalculationHandler(recalcService, auditService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.RefreshToken)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	readings := protected.Group("/readings")
	readings.POST("", readingHandler.CreateReading)
	readings.GET("", readingHandler.GetReadings)
	readings.POST("/backdate/preview", recalcHandler.PreviewBackdate)
	readings.GET("/:id", readingHandler.GetReading)
	readings.PUT("/:id", readingHandler.UpdateReading)
	readings.DELETE("/:id", readingHandler.DeleteReading)

	recalculations := protected.Group("/recalculations")
	recalculations.GET("", recalcHandler.GetRecalculations)
	recalculations.GET("/:id", recalcHandler.GetRecalculation)
	recalculations.POST("/:id/rollback", recalcHandler.RollbackRecalculation)

	analytics := protected.Group("/analytics")
	analytics.GET("/daily", analyticsHandler.GetDailyUsage)
	analytics.GET("/weekly", analyticsHandler.GetWeeklyUsage)
	analytics.GET("/monthly", analyticsHandler.GetMonthlyUsage)
	analytics.GET("/burn-rate", analyticsHandler.GetBurnRate)
	analytics.GET("/efficiency", analyticsHandler.GetEfficiencyScore)

	protected.GET("/settings", settingsHandler.GetSettings)
	protected.PUT("/settings", settingsHandler.UpdateSettings)
	protected.GET("/tariff/estimate", analyticsHandler.EstimateTariff)

	return &testApp{DB: db, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// registerUser registers a new user and returns the access token, refresh token, and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (accessToken, refreshToken string, userID float64) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"first_name":"Test","last_name":"User"}`, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["access_token"].(string), result["refresh_token"].(string), user["id"].(float64)
}

// loginUser logs in and returns the access and refresh tokens.
func (app *testApp) loginUser(t *testing.T, email, password string) (accessToken, refreshToken string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := app.request("POST", "/api/v1/auth/login", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	return result["access_token"].(string), result["refresh_token"].(string)
}

// createReading posts a plain reading on the given date and fails the test
// on anything but 201.
func (app *testApp) createReading(t *testing.T, token, date string, kwh float64) map[string]interface{} {
	t.Helper()
	body := fmt.Sprintf(`{"kind":"reading","kwh_value":%g,"date":%q}`, kwh, date)
	rec := app.request("POST", "/api/v1/readings", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create reading failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)
}
